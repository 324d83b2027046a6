package export

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/xuri/excelize/v2"
)

// defaultSheet is the worksheet every new excelize workbook starts with
const defaultSheet = "Sheet1"

// WriteWorkbook saves the report as an .xlsx workbook with one worksheet per
// sheet, the column names in the first row.
func WriteWorkbook(r *Report, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("error creating workbook directory: %w", err)
	}

	f := excelize.NewFile()
	defer f.Close()

	first := -1
	for _, sh := range r.Sheets {
		idx, err := f.NewSheet(sh.Name)
		if err != nil {
			return fmt.Errorf("error adding sheet %q: %w", sh.Name, err)
		}
		if first < 0 {
			first = idx
		}

		header := make([]any, len(sh.Columns))
		for i, c := range sh.Columns {
			header[i] = c
		}
		if err := f.SetSheetRow(sh.Name, "A1", &header); err != nil {
			return fmt.Errorf("error writing sheet %q: %w", sh.Name, err)
		}
		for i, row := range sh.Rows {
			cell, err := excelize.CoordinatesToCellName(1, i+2)
			if err != nil {
				return err
			}
			if err := f.SetSheetRow(sh.Name, cell, &row); err != nil {
				return fmt.Errorf("error writing sheet %q: %w", sh.Name, err)
			}
		}
	}

	if first >= 0 {
		if err := f.DeleteSheet(defaultSheet); err != nil {
			return fmt.Errorf("error removing default sheet: %w", err)
		}
		if idx, err := f.GetSheetIndex(r.Sheets[0].Name); err == nil {
			f.SetActiveSheet(idx)
		}
	}

	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("error writing workbook: %w", err)
	}
	return nil
}

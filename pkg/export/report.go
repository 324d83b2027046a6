// Package export persists analysis results as a multi-sheet report (YAML or
// an .xlsx workbook) and in a SQLite run store.
package export

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"maskstats/internal/models"
)

// Sheet names, in report order
const (
	SheetCellMorphology   = "Cell Morphology"
	SheetNucleiMorphology = "Nuclei Morphology"
	SheetSpatial          = "Spatial"
	SheetRelationships    = "Relationships"
	SheetMatchedPairs     = "Matched Pairs"
)

// Sheet is one table of the report
type Sheet struct {
	Name    string   `yaml:"name"`
	Columns []string `yaml:"columns"`
	Rows    [][]any  `yaml:"rows"`
}

// Report is the exported form of one analysis pass
type Report struct {
	GeneratedAt time.Time `yaml:"generated_at"`
	CellFile    string    `yaml:"cell_file,omitempty"`
	NucleiFile  string    `yaml:"nuclei_file,omitempty"`
	PixelSize   *float64  `yaml:"pixel_size_microns,omitempty"`
	Sheets      []Sheet   `yaml:"sheets"`
}

// Field is one metric/value row of a statistics sheet
type Field struct {
	Name  string
	Value any
}

// BasicFields flattens morphometrics into ordered field/value pairs
func BasicFields(s models.BasicStats) []Field {
	return []Field{
		{"count", s.Count},
		{"area_mean", s.AreaMean},
		{"area_std", s.AreaStd},
		{"unit", s.Unit},
		{"eccentricity_mean", s.EccentricityMean},
		{"eccentricity_std", s.EccentricityStd},
	}
}

// SpatialFields flattens spatial statistics into ordered field/value pairs
func SpatialFields(s models.SpatialStats) []Field {
	return []Field{
		{"count", s.Count},
		{"avg_nnd", s.AvgNND},
		{"std_nnd", s.StdNND},
		{"density", s.Density},
		{"avg_neighbor_count", s.AvgNeighborCount},
		{"std_neighbor_count", s.StdNeighborCount},
		{"dist_unit", s.DistUnit},
		{"density_unit", s.DensityUnit},
	}
}

// RelationalFields flattens relationship statistics into ordered pairs
func RelationalFields(s models.RelationalStats) []Field {
	return []Field{
		{"matched_pairs", s.MatchedPairs},
		{"avg_ratio", s.AvgRatio},
		{"std_ratio", s.StdRatio},
	}
}

func fieldSheet(name string, fields []Field) Sheet {
	sh := Sheet{Name: name, Columns: []string{"Metric", "Value"}}
	for _, f := range fields {
		sh.Rows = append(sh.Rows, []any{f.Name, f.Value})
	}
	return sh
}

// NewReport builds the sheets for every section present in stats. Sections
// that were not computed are left out.
func NewReport(stats models.ComprehensiveStats, pairs []models.MatchedPair) *Report {
	r := &Report{GeneratedAt: time.Now().UTC()}

	if stats.CellStats != nil {
		r.Sheets = append(r.Sheets, fieldSheet(SheetCellMorphology, BasicFields(*stats.CellStats)))
	}
	if stats.NucleiStats != nil {
		r.Sheets = append(r.Sheets, fieldSheet(SheetNucleiMorphology, BasicFields(*stats.NucleiStats)))
	}
	if stats.SpatialStats != nil {
		r.Sheets = append(r.Sheets, fieldSheet(SheetSpatial, SpatialFields(*stats.SpatialStats)))
	}
	if stats.RelationalStats != nil {
		r.Sheets = append(r.Sheets, fieldSheet(SheetRelationships, RelationalFields(*stats.RelationalStats)))

		sh := Sheet{
			Name:    SheetMatchedPairs,
			Columns: []string{"nucleus", "cell", "cell_area", "nucleus_area", "ratio"},
		}
		for _, p := range pairs {
			sh.Rows = append(sh.Rows, []any{p.DependentIndex, p.ReferenceIndex, p.ReferenceArea, p.DependentArea, p.Ratio})
		}
		r.Sheets = append(r.Sheets, sh)
	}
	return r
}

// Sheet returns the named sheet, or nil
func (r *Report) Sheet(name string) *Sheet {
	for i := range r.Sheets {
		if r.Sheets[i].Name == name {
			return &r.Sheets[i]
		}
	}
	return nil
}

// WriteReport saves the report as YAML, creating parent directories
func WriteReport(r *Report, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("error creating report directory: %w", err)
	}

	data, err := yaml.Marshal(r)
	if err != nil {
		return fmt.Errorf("error marshaling report: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("error writing report: %w", err)
	}
	return nil
}

// ReadReport loads a report written by WriteReport
func ReadReport(path string) (*Report, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("error reading report: %w", err)
	}
	r := &Report{}
	if err := yaml.Unmarshal(data, r); err != nil {
		return nil, fmt.Errorf("error parsing report: %w", err)
	}
	return r, nil
}

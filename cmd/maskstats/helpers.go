package main

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"maskstats/internal/models"
	"maskstats/pkg/analysis"
	"maskstats/pkg/export"
	"maskstats/pkg/maskio"
)

var errPixelSize = errors.New("--pixel-size must be positive")

// loadOrEmpty reads a stack, degrading to an empty stack on failure
func (s *cliState) loadOrEmpty(path string) *models.MaskStack {
	return analysis.LoadOrEmpty(maskio.Load, path, s.log)
}

func printSection(w io.Writer, title string, fields []export.Field) {
	fmt.Fprintf(w, "\n%s\n%s\n", title, strings.Repeat("=", len(title)))
	for _, f := range fields {
		switch v := f.Value.(type) {
		case float64:
			fmt.Fprintf(w, "%-20s %.4f\n", f.Name+":", v)
		default:
			fmt.Fprintf(w, "%-20s %v\n", f.Name+":", v)
		}
	}
}

func printStats(w io.Writer, stats models.ComprehensiveStats) {
	if stats.CellStats != nil {
		printSection(w, "Cell morphology", export.BasicFields(*stats.CellStats))
	}
	if stats.NucleiStats != nil {
		printSection(w, "Nuclei morphology", export.BasicFields(*stats.NucleiStats))
	}
	if stats.SpatialStats != nil {
		printSection(w, "Spatial distribution", export.SpatialFields(*stats.SpatialStats))
	}
	if stats.RelationalStats != nil {
		printSection(w, "Cell/nucleus relationships", export.RelationalFields(*stats.RelationalStats))
	}
}

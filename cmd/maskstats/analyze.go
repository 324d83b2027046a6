package main

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"maskstats/pkg/analysis"
	"maskstats/pkg/export"
	"maskstats/pkg/relation"
	"maskstats/pkg/spatial"
	"maskstats/pkg/visualization"
)

func newAnalyzeCmd(state *cliState) *cobra.Command {
	var (
		cellFile   string
		nucleiFile string
		outDir     string
		database   string
		render     bool
	)

	cmd := &cobra.Command{
		Use:   "analyze",
		Short: "Run morphology, spatial and relationship statistics in one pass",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := state.cfg
			if !cmd.Flags().Changed("out") {
				outDir = cfg.Output.Dir
			}
			if !cmd.Flags().Changed("db") {
				database = cfg.Output.Database
			}
			if !cmd.Flags().Changed("render") {
				render = cfg.Output.RenderOverlays
			}

			params := &analysis.Params{
				CellFile:   cellFile,
				NucleiFile: nucleiFile,
				PixelSize:  state.scale(cmd),
			}
			res, err := analysis.NewAnalyzer(params, state.log).Process(cmd.Context())
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintln(out, "================================")
			fmt.Fprintln(out, "MASK STATISTICS")
			fmt.Fprintln(out, "================================")
			printStats(out, res.Stats)
			fmt.Fprintf(out, "\nAnalysis completed in %.2f seconds\n", res.Elapsed.Seconds())

			report := export.NewReport(res.Stats, res.Pairs)
			report.CellFile, report.NucleiFile, report.PixelSize = cellFile, nucleiFile, params.PixelSize
			if cfg.Output.ReportFile != "" {
				path := filepath.Join(outDir, cfg.Output.ReportFile)
				if err := export.WriteReport(report, path); err != nil {
					return err
				}
				fmt.Fprintf(out, "Report saved to: %s\n", path)
			}
			if cfg.Output.WorkbookFile != "" {
				path := filepath.Join(outDir, cfg.Output.WorkbookFile)
				if err := export.WriteWorkbook(report, path); err != nil {
					return err
				}
				fmt.Fprintf(out, "Workbook saved to: %s\n", path)
			}

			if database != "" {
				store, err := export.OpenStore(database)
				if err != nil {
					return err
				}
				defer store.Close()

				id, err := store.SaveRun(cmd.Context(), &export.Run{
					CellFile:   cellFile,
					NucleiFile: nucleiFile,
					PixelSize:  params.PixelSize,
					Stats:      res.Stats,
					Pairs:      res.Pairs,
				})
				if err != nil {
					return err
				}
				fmt.Fprintf(out, "Run stored as: %s\n", id)
			}

			if render {
				renderOutputs(state, res, outDir)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&cellFile, "cells", "", "cell (reference) mask source")
	cmd.Flags().StringVar(&nucleiFile, "nuclei", "", "nucleus (dependent) mask source")
	cmd.Flags().StringVar(&outDir, "out", "", "output directory (default: config output.dir)")
	cmd.Flags().StringVar(&database, "db", "", "SQLite result store (default: config output.database)")
	cmd.Flags().BoolVar(&render, "render", false, "write overlay and histogram images")
	return cmd
}

// renderOutputs writes the optional images; failures are logged, not fatal
func renderOutputs(state *cliState, res *analysis.Result, outDir string) {
	if res.Cells.Len() > 0 {
		labels := relation.BuildLabelMap(res.Cells)
		viewer := visualization.NewViewer(labels, spatial.ExtractCentroids(res.Nuclei))
		path := filepath.Join(outDir, "overlay.png")
		if err := viewer.SaveOverlay(path, 1); err != nil {
			state.log.Warn().Err(err).Msg("Failed to save overlay")
		} else {
			state.log.Info().Str("file", path).Msg("Overlay saved")
		}
	}

	if len(res.NearestDistances) > 0 {
		path := filepath.Join(outDir, "nnd_histogram.png")
		unit := res.Stats.SpatialStats.DistUnit
		if err := visualization.SaveNNDHistogram(res.NearestDistances, unit, path, 0); err != nil {
			state.log.Warn().Err(err).Msg("Failed to save histogram")
		} else {
			state.log.Info().Str("file", path).Msg("Histogram saved")
		}
	}
}

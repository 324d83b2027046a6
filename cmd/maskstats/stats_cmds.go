package main

import (
	"github.com/spf13/cobra"

	"maskstats/internal/models"
	"maskstats/pkg/morphology"
	"maskstats/pkg/relation"
	"maskstats/pkg/spatial"
)

func newBasicCmd(state *cliState) *cobra.Command {
	return &cobra.Command{
		Use:   "basic <masks>",
		Short: "Object count and area statistics",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			stack := state.loadOrEmpty(args[0])
			basic := morphology.BasicStats(stack, state.scale(cmd))
			printStats(cmd.OutOrStdout(), models.ComprehensiveStats{CellStats: &basic})
			return nil
		},
	}
}

func newSpatialCmd(state *cliState) *cobra.Command {
	return &cobra.Command{
		Use:   "spatial <masks>",
		Short: "Nearest-neighbour distance and density statistics",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			stack := state.loadOrEmpty(args[0])
			spat := spatial.ComputeStats(stack, state.scale(cmd))
			printStats(cmd.OutOrStdout(), models.ComprehensiveStats{SpatialStats: &spat})
			return nil
		},
	}
}

func newRelateCmd(state *cliState) *cobra.Command {
	return &cobra.Command{
		Use:   "relate <cells> <nuclei>",
		Short: "Match nuclei to the cells containing their centroids",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			cells := state.loadOrEmpty(args[0])
			nuclei := state.loadOrEmpty(args[1])

			rel, _, err := relation.Analyze(cells, nuclei)
			if err != nil {
				return err
			}
			printStats(cmd.OutOrStdout(), models.ComprehensiveStats{RelationalStats: &rel})
			return nil
		},
	}
}

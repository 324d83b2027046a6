package main

import (
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"maskstats/internal/logging"
	"maskstats/pkg/config"
)

// cliState is shared by every subcommand of one invocation
type cliState struct {
	configPath string
	pixelSize  float64
	verbose    bool

	cfg *config.Config
	log zerolog.Logger
}

// scale returns the effective pixel size: the flag when given, else the
// config file value, else nil
func (s *cliState) scale(cmd *cobra.Command) *float64 {
	if cmd.Flags().Changed("pixel-size") {
		v := s.pixelSize
		return &v
	}
	return s.cfg.Analysis.PixelSizeMicrons
}

func newRootCmd() *cobra.Command {
	state := &cliState{}

	root := &cobra.Command{
		Use:   "maskstats",
		Short: "Statistics over segmentation mask stacks",
		Long: `maskstats measures segmented objects: object counts and areas,
nearest-neighbour distances and local density, and the area ratio between
cells and the nuclei whose centroids they contain.

Mask sources may be .npz/.npy arrays, label images, or directories holding
one mask image per object.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.LoadConfig(state.configPath)
			if err != nil {
				return err
			}
			state.cfg = cfg
			if cmd.Flags().Changed("pixel-size") && state.pixelSize <= 0 {
				return errPixelSize
			}
			state.log = logging.NewConsole(state.verbose || cfg.Output.Verbose)
			return nil
		},
	}

	root.PersistentFlags().StringVar(&state.configPath, "config", config.DefaultConfigPath, "configuration file")
	root.PersistentFlags().Float64Var(&state.pixelSize, "pixel-size", 0, "pixel edge length in µm (default: config value, else pixel units)")
	root.PersistentFlags().BoolVarP(&state.verbose, "verbose", "v", false, "debug logging")

	root.AddCommand(newBasicCmd(state))
	root.AddCommand(newSpatialCmd(state))
	root.AddCommand(newRelateCmd(state))
	root.AddCommand(newAnalyzeCmd(state))
	root.AddCommand(newRunsCmd(state))
	root.AddCommand(newConfigCmd(state))
	return root
}

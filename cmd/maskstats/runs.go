package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"maskstats/pkg/export"
)

func newRunsCmd(state *cliState) *cobra.Command {
	var database string

	open := func(cmd *cobra.Command) (*export.Store, error) {
		if !cmd.Flags().Changed("db") {
			database = state.cfg.Output.Database
		}
		if database == "" {
			return nil, fmt.Errorf("no database configured; use --db")
		}
		return export.OpenStore(database)
	}

	runs := &cobra.Command{
		Use:   "runs",
		Short: "Inspect stored analysis runs",
	}
	runs.PersistentFlags().StringVar(&database, "db", "", "SQLite result store (default: config output.database)")

	runs.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List stored run IDs, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := open(cmd)
			if err != nil {
				return err
			}
			defer store.Close()

			ids, err := store.ListRuns(cmd.Context())
			if err != nil {
				return err
			}
			for _, id := range ids {
				fmt.Fprintln(cmd.OutOrStdout(), id)
			}
			return nil
		},
	})

	runs.AddCommand(&cobra.Command{
		Use:   "show <run-id>",
		Short: "Print the statistics of a stored run",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := open(cmd)
			if err != nil {
				return err
			}
			defer store.Close()

			run, err := store.LoadRun(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Run %s (%s)\n", run.ID, run.CreatedAt.Format("2006-01-02 15:04:05"))
			printStats(out, run.Stats)
			return nil
		},
	})

	runs.AddCommand(&cobra.Command{
		Use:   "delete <run-id>",
		Short: "Delete a stored run",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := open(cmd)
			if err != nil {
				return err
			}
			defer store.Close()
			return store.DeleteRun(cmd.Context(), args[0])
		},
	})

	return runs
}

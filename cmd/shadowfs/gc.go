package main

import (
	"fmt"

	"github.com/marmos91/shadowfs/pkg/config"
	"github.com/spf13/cobra"
)

func (a *app) gcCommand() *cobra.Command {
	var dryRun bool

	cmd := &cobra.Command{
		Use:   "gc",
		Short: "Sweep the shadow tree once for entries whose primary file is gone",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, _, err := a.openEngine(cmd.Context())
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("dry-run") {
				cfg.GC.DryRun = dryRun
			}

			collector, err := config.CreateCollector(cfg, nil)
			if err != nil {
				return err
			}

			stats, err := collector.RunOnce(cmd.Context())
			if err != nil {
				return err
			}

			fmt.Fprintln(cmd.OutOrStdout(), stats.Summary())
			return nil
		},
	}
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "report stale entries without removing them")

	return cmd
}

package main

import (
	"encoding/json"
	"time"

	"github.com/spf13/cobra"

	"modgraph/internal/output"
)

func newHistoryCmd(root *rootOptions) *cobra.Command {
	var (
		since  time.Duration
		asJSON bool
	)

	cmd := &cobra.Command{
		Use:   "history <sample>",
		Short: "Show recorded diffusion runs for a sample (\"global\" for the whole tree)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			root.cfg.History.Enabled = true
			a, err := root.newApp(cmd)
			if err != nil {
				return err
			}
			defer a.Close(cmd.Context())

			var from time.Time
			if since > 0 {
				from = time.Now().Add(-since)
			}
			report, err := a.AnalysisService().HistoryTrend(cmd.Context(), args[0], from)
			if err != nil {
				return err
			}
			if asJSON {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(report)
			}
			output.ConsoleTrend(cmd.OutOrStdout(), report)
			return nil
		},
	}

	cmd.Flags().DurationVar(&since, "since", 0, "Only show runs newer than this (e.g. 720h)")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the trend report as JSON")
	return cmd
}

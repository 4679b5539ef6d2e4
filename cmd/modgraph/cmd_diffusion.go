package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"modgraph/internal/core/ports"
)

func newDiffusionCmd(root *rootOptions) *cobra.Command {
	var (
		watch       bool
		samples     []string
		version     string
		trackingDir string
		tsv         string
		record      bool
	)

	cmd := &cobra.Command{
		Use:   "diffusion [root]",
		Short: "Measure how far each module's exports spread through the tree",
		Long: `Links every module in the dependents direction and reports the diffusion
indicator for the whole tree and for each sample module. One row per sample
is appended to its tracking file.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := root.cfg
			if cmd.Flags().Changed("tracking-dir") {
				cfg.Diffusion.TrackingDir = trackingDir
			}
			if cmd.Flags().Changed("tsv") {
				cfg.Output.MetricsTSV = tsv
			}
			if cmd.Flags().Changed("history") {
				cfg.History.Enabled = record
			}

			req := ports.DiffusionRequest{Version: version}
			if len(args) == 1 {
				req.Root = args[0]
			}
			if cmd.Flags().Changed("samples") {
				req.Samples = samples
			}

			a, err := root.newApp(cmd)
			if err != nil {
				return err
			}
			defer a.Close(cmd.Context())

			if watch {
				return a.WatchDiffusion(cmd.Context(), req, func(res ports.DiffusionResult, err error) {
					if err == nil {
						reportDiffusion(cmd, res)
					}
				})
			}

			res, err := a.AnalysisService().RunDiffusion(cmd.Context(), req)
			if err != nil {
				return err
			}
			reportDiffusion(cmd, res)
			return nil
		},
	}

	cmd.Flags().BoolVar(&watch, "watch", false, "Re-run whenever object files under the root change")
	cmd.Flags().StringSliceVar(&samples, "samples", nil, "Modules to report individually (overrides config)")
	cmd.Flags().StringVar(&version, "version-label", "", "Label recorded in tracking rows (default: last component of root)")
	cmd.Flags().StringVar(&trackingDir, "tracking-dir", "", "Directory holding the per-sample tracking files")
	cmd.Flags().StringVar(&tsv, "tsv", "", "Write per-module metrics as TSV under the output dir")
	cmd.Flags().BoolVar(&record, "history", false, "Record runs in the history database")
	return cmd
}

func reportDiffusion(cmd *cobra.Command, res ports.DiffusionResult) {
	w := cmd.ErrOrStderr()
	for _, f := range res.Failures {
		fmt.Fprintf(w, "skipped %s: %v\n", f.Name, f.Err)
	}
	if n := len(res.Unresolved); n > 0 {
		fmt.Fprintf(w, "%d modules import symbols no module defines (see --verbose)\n", n)
	}
	for _, path := range res.Tracking {
		fmt.Fprintf(w, "tracking row appended to %s\n", path)
	}
	for _, name := range res.Collisions {
		fmt.Fprintf(w, "no tracking row for %s: file name already in use\n", name)
	}
	for _, path := range res.Written {
		fmt.Fprintf(w, "wrote %s\n", path)
	}
}

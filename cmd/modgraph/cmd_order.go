package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"modgraph/internal/core/ports"
)

func newOrderCmd(root *rootOptions) *cobra.Command {
	var (
		req     ports.OrderRequest
		outDir  string
		dotFile string
		mdFile  string
	)

	cmd := &cobra.Command{
		Use:   "order <root-module> [dir]",
		Short: "Compute a dependency-first initialization order for one module",
		Long: `Links the root module and everything it transitively imports from, then
orders them so every provider precedes its consumers. Writes the profile,
a linker input list and a C init driver. Any cycle aborts the run.`,
		Args: cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := root.cfg
			if cmd.Flags().Changed("out") {
				cfg.Output.Dir = outDir
			}
			if cmd.Flags().Changed("dot") {
				cfg.Output.DOT = dotFile
			}
			if cmd.Flags().Changed("mermaid") {
				cfg.Output.Mermaid = mdFile
			}

			req.Module = args[0]
			if len(args) == 2 {
				req.Dir = args[1]
			}

			a, err := root.newApp(cmd)
			if err != nil {
				return err
			}
			defer a.Close(cmd.Context())

			res, err := a.AnalysisService().RunOrder(cmd.Context(), req)
			if err != nil {
				return err
			}

			w := cmd.ErrOrStderr()
			if len(res.Chain) > 0 {
				fmt.Fprintf(w, "why %s: %s\n", req.Why, strings.Join(res.Chain, " -> "))
			}
			for _, u := range res.Ordering.Unresolved {
				fmt.Fprintf(w, "unresolved in %s: %s\n", u.Module, strings.Join(u.Symbols, ", "))
			}
			for _, path := range res.Written {
				fmt.Fprintf(w, "wrote %s\n", path)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&req.Verify, "verify", false, "Check the ordering against the existing profile instead of rewriting it")
	cmd.Flags().StringVar(&req.Profile, "profile", "", "Profile JSON path (default: <output dir>/<module>.json)")
	cmd.Flags().BoolVar(&req.TolerateUnresolved, "tolerate-unresolved", false, "Do not fail on symbols no module defines")
	cmd.Flags().StringVar(&req.Why, "why", "", "Print the dependency chain from the root to this module")
	cmd.Flags().StringVar(&outDir, "out", "", "Output directory for generated artifacts")
	cmd.Flags().StringVar(&dotFile, "dot", "", "Also write a DOT graph with this file name")
	cmd.Flags().StringVar(&mdFile, "mermaid", "", "Also write a Mermaid markdown file with this name")
	return cmd
}

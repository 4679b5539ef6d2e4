package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"modgraph/internal/core/errors"
	"modgraph/internal/engine/order"
	"modgraph/internal/output"
)

func newDOTCmd(root *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "dot <profile.json> <root> [max-level]",
		Short: "Render a saved profile as a Graphviz digraph",
		Args:  cobra.RangeArgs(2, 3),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := order.LoadProfile(args[0])
			if err != nil {
				return err
			}
			maxLevel := root.cfg.Output.DOTMaxLevel
			if len(args) == 3 {
				maxLevel, err = strconv.Atoi(args[2])
				if err != nil || maxLevel < 0 {
					return errors.AddContext(
						errors.Newf(errors.CodeValidationError, "max-level must be a non-negative integer, got %q", args[2]),
						errors.CtxOperation, "dot")
				}
			}
			dot, err := output.DOT(p, args[1], root.cfg.Linkage.Name, maxLevel)
			if err != nil {
				return err
			}
			_, err = fmt.Fprint(cmd.OutOrStdout(), dot)
			return err
		},
	}
}

func newMermaidCmd(root *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "mermaid <profile.json> <root>",
		Short: "Render a saved profile as a Mermaid flowchart in markdown",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := order.LoadProfile(args[0])
			if err != nil {
				return err
			}
			md, err := output.Mermaid(p, args[1])
			if err != nil {
				return err
			}
			_, err = fmt.Fprint(cmd.OutOrStdout(), md)
			return err
		},
	}
}

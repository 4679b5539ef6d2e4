package main

import (
	"context"
	"io"
	"log/slog"

	"github.com/spf13/cobra"

	"modgraph/internal/core/app"
	"modgraph/internal/core/config"
	"modgraph/internal/core/errors"
	"modgraph/internal/shared/observability"
)

const defaultConfigPath = "modgraph.toml"

type rootOptions struct {
	configPath string
	verbose    bool

	cfg      *config.Config
	shutdown func(context.Context) error
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}

	rootCmd := &cobra.Command{
		Use:   "modgraph",
		Short: "Symbol-level dependency analysis for compiled kernel modules",
		Long: `modgraph reads the symbol tables of compiled modules, links every undefined
symbol to the module that defines it and reports on the resulting graph:
diffusion metrics for the whole tree, or a dependency-first initialization
order for one root module.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			setupLogging(cmd.ErrOrStderr(), opts.verbose)
			return opts.load(cmd)
		},
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			if opts.shutdown == nil {
				return nil
			}
			return opts.shutdown(context.Background())
		},
	}

	rootCmd.PersistentFlags().StringVar(&opts.configPath, "config", defaultConfigPath, "Path to config file")
	rootCmd.PersistentFlags().BoolVar(&opts.verbose, "verbose", false, "Enable verbose logging")

	rootCmd.AddCommand(
		newDiffusionCmd(opts),
		newOrderCmd(opts),
		newDOTCmd(opts),
		newMermaidCmd(opts),
		newHistoryCmd(opts),
	)
	return rootCmd
}

func setupLogging(w io.Writer, verbose bool) {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level})))
}

// load reads the config file. A missing file is only an error when --config
// was given explicitly.
func (o *rootOptions) load(cmd *cobra.Command) error {
	cfg, err := config.Load(o.configPath)
	switch {
	case err == nil:
		slog.Debug("config loaded", "path", o.configPath)
	case errors.IsCode(err, errors.CodeNotFound) && !cmd.Flags().Changed("config"):
		cfg = config.Default()
		config.ApplyEnvOverrides(cfg)
		if err := cfg.Validate(); err != nil {
			return err
		}
	default:
		return err
	}
	o.cfg = cfg

	if cfg.Observability.Tracing {
		shutdown, err := observability.InitTracing(cmd.Context(), cfg.Observability.OTLPEndpoint, cfg.Observability.Insecure())
		if err != nil {
			return errors.Wrap(err, errors.CodeInternal, "init tracing")
		}
		o.shutdown = shutdown
	}
	return nil
}

// newApp builds the application after flag overrides are applied to the
// loaded config.
func (o *rootOptions) newApp(cmd *cobra.Command) (*app.App, error) {
	if err := o.cfg.Validate(); err != nil {
		return nil, err
	}
	a, err := app.New(o.cfg)
	if err != nil {
		return nil, err
	}
	a.SetOutput(cmd.OutOrStdout())
	return a, nil
}

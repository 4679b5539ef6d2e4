package app

import (
	"context"
	"io"
	"log/slog"
	"os"
	"time"

	"modgraph/internal/core/config"
	"modgraph/internal/core/errors"
	"modgraph/internal/core/ports"
	"modgraph/internal/data/history"
)

type App struct {
	Config  *config.Config
	history ports.HistoryStore
	out     io.Writer
	now     func() time.Time
}

// Dependencies lets callers and tests replace the app's collaborators.
type Dependencies struct {
	History ports.HistoryStore
	Out     io.Writer
	Now     func() time.Time
}

// New builds an App from configuration, opening the history store when
// history is enabled.
func New(cfg *config.Config) (*App, error) {
	var deps Dependencies
	if cfg != nil && cfg.History.Enabled {
		path := cfg.Resolve(cfg.History.Path)
		store, err := history.Open(path)
		if err != nil {
			return nil, errors.AddContext(errors.Wrap(err, errors.CodeIO, "open history store"), errors.CtxPath, path)
		}
		slog.Debug("history store opened", "path", store.Path())
		deps.History = store
	}
	return NewWithDependencies(cfg, deps)
}

func NewWithDependencies(cfg *config.Config, deps Dependencies) (*App, error) {
	if cfg == nil {
		return nil, errors.New(errors.CodeValidationError, "config is required")
	}
	a := &App{
		Config:  cfg,
		history: deps.History,
		out:     deps.Out,
		now:     deps.Now,
	}
	if a.out == nil {
		a.out = os.Stdout
	}
	if a.now == nil {
		a.now = time.Now
	}
	return a, nil
}

// SetOutput redirects console reports.
func (a *App) SetOutput(w io.Writer) {
	if w != nil {
		a.out = w
	}
}

func (a *App) AnalysisService() ports.AnalysisService {
	return &analysisService{app: a}
}

// Close releases the history store. It runs even when ctx is already done so
// that a cancelled watch still flushes the database.
func (a *App) Close(ctx context.Context) error {
	_ = ctx
	if a.history == nil {
		return nil
	}
	err := a.history.Close()
	a.history = nil
	return err
}

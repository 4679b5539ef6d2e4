package ports

import (
	"context"
	"time"

	"modgraph/internal/data/discovery"
	"modgraph/internal/data/history"
	"modgraph/internal/engine/diffusion"
	"modgraph/internal/engine/graph"
	"modgraph/internal/engine/order"
)

// HistoryStore abstracts run persistence for trend workflows.
type HistoryStore interface {
	SaveRun(run history.Run) (history.Run, error)
	LoadRuns(sample string, since time.Time) ([]history.Run, error)
	Samples() ([]string, error)
	Close() error
}

// DiffusionRequest overrides configuration for one diffusion run. Zero
// values fall back to the loaded config.
type DiffusionRequest struct {
	Root    string
	Samples []string
	Version string
}

// DiffusionResult is a completed diffusion run.
type DiffusionResult struct {
	Report     *diffusion.Report
	Unresolved []graph.Unresolved
	Failures   []discovery.Failure
	// Tracking lists the tracking files a row was appended to.
	Tracking []string
	// Written lists the other artifacts produced (TSV, metrics textfile).
	Written []string
	Missing []string
	// Collisions lists samples whose tracking file name was already taken
	// by the global series or an earlier sample; no row was written for them.
	Collisions []string
}

// OrderRequest drives one ordering run for a single root module.
type OrderRequest struct {
	Module             string
	Dir                string
	Profile            string
	Verify             bool
	TolerateUnresolved bool
	// Why names a module whose dependency chain from the root is reported.
	Why string
}

type OrderResult struct {
	Ordering *order.Ordering
	Written  []string
	Chain    []string
}

// AnalysisService is the driving port over the two analysis modes.
type AnalysisService interface {
	RunDiffusion(ctx context.Context, req DiffusionRequest) (DiffusionResult, error)
	RunOrder(ctx context.Context, req OrderRequest) (OrderResult, error)
	HistoryTrend(ctx context.Context, sample string, since time.Time) (history.TrendReport, error)
	Close(ctx context.Context) error
}

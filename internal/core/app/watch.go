package app

import (
	"context"
	"log/slog"
	"strings"

	"modgraph/internal/core/ports"
	"modgraph/internal/shared/observability"
	"modgraph/internal/watcher"
)

// WatchDiffusion runs the diffusion analysis once and again whenever object
// files under the root change, until ctx is done. Every run's outcome goes to
// onResult; a failed run does not stop the watch.
func (a *App) WatchDiffusion(ctx context.Context, req ports.DiffusionRequest, onResult func(ports.DiffusionResult, error)) error {
	svc := a.AnalysisService()
	run := func() {
		res, err := svc.RunDiffusion(ctx, req)
		if err != nil {
			slog.Error("diffusion run failed", "error", err)
		}
		if onResult != nil {
			onResult(res, err)
		}
	}

	root := strings.TrimSpace(req.Root)
	if root == "" {
		root = a.Config.Resolve(a.Config.Scan.Root)
	}
	w, err := watcher.New(watcher.Options{
		Debounce:         a.Config.Watch.Debounce,
		Extension:        a.Config.Scan.Extension,
		ExcludeDirs:      a.Config.Watch.ExcludeDirs,
		MaxRunsPerMinute: a.Config.Watch.MaxRunsPerMinute,
	}, func(paths []string) {
		if ctx.Err() != nil {
			return
		}
		observability.WatchRunsTotal.Inc()
		slog.Info("objects changed, re-running diffusion", "root", root, "changed", len(paths))
		run()
	})
	if err != nil {
		return err
	}

	run()
	slog.Info("watching for object changes", "root", root, "extension", a.Config.Scan.Extension)
	return w.Run(ctx, []string{root})
}

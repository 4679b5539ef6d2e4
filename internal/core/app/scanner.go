package app

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"modgraph/internal/core/errors"
	"modgraph/internal/data/discovery"
	"modgraph/internal/engine/graph"
	"modgraph/internal/shared/observability"
)

// loadGraph discovers the modules under root and indexes them into a fresh
// arena. Unreadable objects are kept as broken modules; I/O failures abort.
func (a *App) loadGraph(ctx context.Context, root string) (*graph.Graph, *discovery.Result, error) {
	ctx, span := observability.StartSpan(ctx, "app.loadGraph", trace.WithAttributes(attribute.String("root", root)))
	defer span.End()

	var linkage []string
	if path := a.Config.Resolve(a.Config.Linkage.Config); path != "" {
		syms, err := discovery.LoadLinkage(path)
		if err != nil {
			observability.RecordError(span, err)
			return nil, nil, errors.AddContext(err, errors.CtxOperation, "load_linkage")
		}
		linkage = syms
	}

	start := time.Now()
	res, err := discovery.Scan(ctx, discovery.Options{
		Root:      root,
		Extension: a.Config.Scan.Extension,
		Denylist:  a.Config.Scan.Denylist,
		DenyGlobs: a.Config.Scan.DenyGlobs,
		Sort:      a.Config.Scan.Sorted(),
	})
	observability.ObservePhase("discover", start)
	if err != nil {
		observability.RecordError(span, err)
		return nil, nil, errors.AddContext(err, errors.CtxOperation, "discover")
	}

	g := graph.New(a.Config.Linkage.Name, linkage)
	for _, rec := range res.Records {
		if _, err := g.AddRecord(rec); err != nil {
			observability.RecordError(span, err)
			return nil, nil, err
		}
	}
	for _, f := range res.Failures {
		if errors.IsCode(f.Err, errors.CodeIO) {
			continue
		}
		g.AddBroken(f.Name, f.Path, f.Err)
	}

	conflicts := len(g.Symbols().Conflicts())
	observability.GraphModules.Set(float64(len(res.Records)))
	observability.SymbolConflicts.Set(float64(conflicts))
	span.SetAttributes(
		attribute.Int("modules", len(res.Records)),
		attribute.Int("failures", len(res.Failures)),
		attribute.Int("conflicts", conflicts),
	)
	observability.SetSpanOK(span)
	return g, res, nil
}

func countUnresolved(unresolved []graph.Unresolved) int {
	n := 0
	for _, u := range unresolved {
		n += len(u.Symbols)
	}
	return n
}

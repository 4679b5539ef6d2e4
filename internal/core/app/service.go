package app

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"modgraph/internal/core/errors"
	"modgraph/internal/core/ports"
	"modgraph/internal/data/history"
	"modgraph/internal/engine/diffusion"
	"modgraph/internal/engine/graph"
	"modgraph/internal/engine/order"
	"modgraph/internal/output"
	"modgraph/internal/shared/observability"
	"modgraph/internal/shared/util"
)

type analysisService struct {
	app *App
}

var _ ports.AnalysisService = (*analysisService)(nil)

func (s *analysisService) Close(ctx context.Context) error {
	if s == nil || s.app == nil {
		return nil
	}
	return s.app.Close(ctx)
}

func (s *analysisService) RunDiffusion(ctx context.Context, req ports.DiffusionRequest) (ports.DiffusionResult, error) {
	ctx, span := observability.StartSpan(ctx, "analysisService.RunDiffusion")
	defer span.End()

	if err := ctx.Err(); err != nil {
		return ports.DiffusionResult{}, err
	}
	cfg := s.app.Config

	root := strings.TrimSpace(req.Root)
	if root == "" {
		root = cfg.Resolve(cfg.Scan.Root)
	}
	samples := req.Samples
	if samples == nil {
		samples = cfg.Diffusion.Samples
	}
	version := strings.TrimSpace(req.Version)
	switch {
	case version != "":
	case req.Root != "" && strings.TrimSpace(cfg.Diffusion.Version) == "":
		version = history.LastComponent(root)
	default:
		version = cfg.VersionLabel()
	}
	span.SetAttributes(attribute.String("root", root), attribute.String("version", version))

	g, found, err := s.app.loadGraph(ctx, root)
	if err != nil {
		observability.RecordError(span, err)
		return ports.DiffusionResult{}, err
	}
	if err := found.Fatal(); err != nil {
		observability.RecordError(span, err)
		return ports.DiffusionResult{}, errors.AddContext(err, errors.CtxOperation, "discover")
	}

	start := time.Now()
	unresolved := graph.NewBuilder(g, graph.Reverse).LinkAll()
	observability.ObservePhase("link", start)

	start = time.Now()
	report := diffusion.NewAnalyzer(g).Analyze()
	observability.ObservePhase("diffuse", start)

	observability.GraphEdges.Set(float64(report.Edges))
	observability.UnresolvedSymbols.Set(float64(countUnresolved(unresolved)))
	observability.CycleHits.Set(float64(report.CycleHits))

	output.Console(s.app.out, root, report, samples)

	result := ports.DiffusionResult{
		Report:     report,
		Unresolved: unresolved,
		Failures:   found.Failures,
	}

	start = time.Now()
	records := []diffusion.Record{report.Global}
	for _, name := range samples {
		rec, ok := report.Lookup(name)
		if !ok {
			result.Missing = append(result.Missing, name)
			continue
		}
		records = append(records, rec)
	}

	trackingDir := cfg.Resolve(cfg.Diffusion.TrackingDir)
	owners := make(map[string]string, len(records))
	for _, rec := range records {
		file := history.TrackingName(rec.Name)
		if prev, taken := owners[file]; taken {
			slog.Warn("tracking file already used by another series, skipping",
				"module", rec.Name, "file", file, "owner", prev)
			result.Collisions = append(result.Collisions, rec.Name)
			continue
		}
		owners[file] = rec.Name

		path, err := history.AppendTrackingRow(trackingDir, rec.Name, trackingRow(version, rec))
		if err != nil {
			err = errors.AddContext(errors.Wrap(err, errors.CodeIO, "append tracking row"), errors.CtxModule, rec.Name)
			observability.RecordError(span, err)
			return result, err
		}
		result.Tracking = append(result.Tracking, path)
	}

	if s.app.history != nil {
		ts := s.app.now().UTC()
		for _, rec := range records {
			if _, err := s.app.history.SaveRun(runFromRecord(version, ts, report, rec)); err != nil {
				err = errors.AddContext(errors.Wrap(err, errors.CodeIO, "save history run"), errors.CtxModule, rec.Name)
				observability.RecordError(span, err)
				return result, err
			}
		}
	}

	if path := cfg.OutputPath(cfg.Output.MetricsTSV); path != "" {
		if err := util.WriteArtifact(path, output.MetricsTSV(report)); err != nil {
			observability.RecordError(span, err)
			return result, err
		}
		result.Written = append(result.Written, path)
	}
	if path := cfg.Resolve(cfg.Observability.MetricsTextfile); path != "" {
		if err := observability.WriteTextfile(path); err != nil {
			err = errors.AddContext(errors.Wrap(err, errors.CodeIO, "write metrics textfile"), errors.CtxPath, path)
			observability.RecordError(span, err)
			return result, err
		}
		result.Written = append(result.Written, path)
	}
	observability.ObservePhase("emit", start)

	observability.SetSpanOK(span)
	return result, nil
}

func (s *analysisService) RunOrder(ctx context.Context, req ports.OrderRequest) (ports.OrderResult, error) {
	ctx, span := observability.StartSpan(ctx, "analysisService.RunOrder",
		trace.WithAttributes(attribute.String("module", req.Module)))
	defer span.End()

	if err := ctx.Err(); err != nil {
		return ports.OrderResult{}, err
	}
	cfg := s.app.Config

	module := strings.TrimSpace(req.Module)
	if module == "" {
		module = strings.TrimSpace(cfg.Order.Root)
	}
	if module == "" {
		return ports.OrderResult{}, errors.New(errors.CodeValidationError, "root module is required")
	}
	dir := strings.TrimSpace(req.Dir)
	if dir == "" {
		dir = cfg.Resolve(cfg.Scan.Root)
	}
	profilePath := strings.TrimSpace(req.Profile)
	if profilePath == "" {
		profilePath = cfg.Resolve(cfg.Order.Profile)
	}
	if profilePath == "" {
		profilePath = cfg.OutputPath(history.LastComponent(module) + ".json")
	}
	verify := req.Verify || cfg.Order.Verify

	previous, err := order.LoadProfile(profilePath)
	switch {
	case err == nil:
	case errors.IsCode(err, errors.CodeNotFound) && !verify:
		previous = nil
	default:
		observability.RecordError(span, err)
		return ports.OrderResult{}, err
	}

	g, found, err := s.app.loadGraph(ctx, dir)
	if err != nil {
		observability.RecordError(span, err)
		return ports.OrderResult{}, err
	}
	if err := found.Fatal(); err != nil {
		observability.RecordError(span, err)
		return ports.OrderResult{}, errors.AddContext(err, errors.CtxOperation, "discover")
	}

	opts := order.Options{TolerateUnresolved: req.TolerateUnresolved || cfg.Order.TolerateUnresolved}
	if previous != nil {
		opts.Select = previous.Selections()
	}

	start := time.Now()
	o, err := order.Resolve(g, module, opts)
	observability.ObservePhase("order", start)
	if err != nil {
		observability.RecordError(span, err)
		return ports.OrderResult{}, err
	}
	observability.GraphEdges.Set(float64(g.EdgeCount()))
	observability.UnresolvedSymbols.Set(float64(countUnresolved(o.Unresolved)))

	result := ports.OrderResult{Ordering: o}
	if req.Why != "" {
		chain, err := why(g, module, req.Why)
		if err != nil {
			observability.RecordError(span, err)
			return result, err
		}
		result.Chain = chain
	}

	profile := order.NewProfile(o)
	if verify {
		if err := order.Verify(o, previous); err != nil {
			observability.RecordError(span, err)
			return result, errors.AddContext(err, errors.CtxPath, profilePath)
		}
	} else {
		if err := profile.Save(profilePath); err != nil {
			observability.RecordError(span, err)
			return result, err
		}
		result.Written = append(result.Written, profilePath)
	}

	start = time.Now()
	written, err := s.writeOrderArtifacts(o, profile, dir)
	result.Written = append(result.Written, written...)
	observability.ObservePhase("emit", start)
	if err != nil {
		observability.RecordError(span, err)
		return result, err
	}

	output.ConsoleOrdering(s.app.out, o)
	observability.SetSpanOK(span)
	return result, nil
}

func (s *analysisService) writeOrderArtifacts(o *order.Ordering, profile *order.Profile, dir string) ([]string, error) {
	cfg := s.app.Config
	var written []string

	if path := cfg.OutputPath(cfg.Output.LinkerList); path != "" {
		if err := util.WriteArtifact(path, output.LinkerList(o, dir)); err != nil {
			return written, err
		}
		written = append(written, path)
	}
	if path := cfg.OutputPath(cfg.Output.InitSource); path != "" {
		src, err := output.InitSource(o)
		if err != nil {
			return written, err
		}
		if err := util.WriteArtifact(path, src); err != nil {
			return written, err
		}
		written = append(written, path)
	}
	if path := cfg.OutputPath(cfg.Output.DOT); path != "" {
		dot, err := output.DOT(profile, o.Root, o.Linkage, cfg.Output.DOTMaxLevel)
		if err != nil {
			return written, err
		}
		if err := util.WriteArtifact(path, dot); err != nil {
			return written, err
		}
		written = append(written, path)
	}
	if path := cfg.OutputPath(cfg.Output.Mermaid); path != "" {
		md, err := output.Mermaid(profile, o.Root)
		if err != nil {
			return written, err
		}
		if err := util.WriteArtifact(path, md); err != nil {
			return written, err
		}
		written = append(written, path)
	}
	return written, nil
}

// why explains why target is part of root's ordering: the shortest chain of
// forward edges leading to it.
func why(g *graph.Graph, root, target string) ([]string, error) {
	to, ok := g.Lookup(target)
	if !ok {
		return nil, errors.AddContext(errors.New(errors.CodeNotFound, "module not found"), errors.CtxModule, target)
	}
	from, _ := g.Lookup(root)
	path, ok := g.Chain(from.ID, to.ID)
	if !ok {
		err := errors.Newf(errors.CodeNotFound, "%s is not a dependency of %s", target, root)
		err = errors.AddContext(err, errors.CtxFrom, root)
		return nil, errors.AddContext(err, errors.CtxTo, target)
	}
	return g.Names(path), nil
}

func (s *analysisService) HistoryTrend(ctx context.Context, sample string, since time.Time) (history.TrendReport, error) {
	if err := ctx.Err(); err != nil {
		return history.TrendReport{}, err
	}
	if s.app.history == nil {
		return history.TrendReport{}, errors.New(errors.CodeValidationError, "history is disabled; set [history].enabled")
	}
	runs, err := s.app.history.LoadRuns(sample, since)
	if err != nil {
		return history.TrendReport{}, errors.AddContext(errors.Wrap(err, errors.CodeIO, "load history runs"), errors.CtxModule, sample)
	}
	if len(runs) == 0 {
		return history.TrendReport{}, errors.AddContext(errors.New(errors.CodeNotFound, "no runs recorded"), errors.CtxModule, sample)
	}
	return history.BuildTrendReport(sample, runs, s.app.Config.History.Window)
}

func trackingRow(version string, rec diffusion.Record) history.TrackingRow {
	return history.TrackingRow{
		Version:     version,
		Modules:     rec.ReachedModules,
		Elements:    rec.ReachedElements,
		AvgElements: rec.AvgElements,
		DirectWidth: rec.DirectWidth,
		ChainLength: rec.MaxChainLength,
		Indicator:   rec.DiffusionIndicator,
	}
}

func runFromRecord(version string, ts time.Time, report *diffusion.Report, rec diffusion.Record) history.Run {
	return history.Run{
		Sample:             rec.Name,
		Version:            version,
		Timestamp:          ts,
		Modules:            rec.ReachedModules,
		Elements:           rec.ReachedElements,
		AvgElements:        rec.AvgElements,
		DirectWidth:        rec.DirectWidth,
		ChainLength:        rec.MaxChainLength,
		DiffusionIndicator: rec.DiffusionIndicator,
		Edges:              report.Edges,
		CycleHits:          report.CycleHits,
	}
}

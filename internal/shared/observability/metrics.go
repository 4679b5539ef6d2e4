package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	PhaseDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "modgraph_phase_seconds",
		Help:    "Time spent in one phase of a run (discover, link, diffuse, order, emit).",
		Buckets: prometheus.DefBuckets,
	}, []string{"phase"})

	GraphModules = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "modgraph_modules_total",
		Help: "Number of modules in the last built graph, linkage module excluded.",
	})

	GraphEdges = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "modgraph_edges_total",
		Help: "Number of dependency edges in the last built graph.",
	})

	UnresolvedSymbols = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "modgraph_unresolved_symbols_total",
		Help: "Undefined symbols no module provides.",
	})

	CycleHits = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "modgraph_cycle_hits_total",
		Help: "Cycles met while measuring chain lengths.",
	})

	SymbolConflicts = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "modgraph_symbol_conflicts_total",
		Help: "Symbols defined by more than one module.",
	})

	WatchRunsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "modgraph_watch_runs_total",
		Help: "Analyses triggered by the build tree watcher.",
	})
)

// ObservePhase records the time elapsed since start under phase.
func ObservePhase(phase string, start time.Time) {
	PhaseDuration.WithLabelValues(phase).Observe(time.Since(start).Seconds())
}

// WriteTextfile dumps the default registry in the node_exporter textfile
// format.
func WriteTextfile(path string) error {
	return prometheus.WriteToTextfile(path, prometheus.DefaultGatherer)
}

package config

import (
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"
)

// ApplyEnvOverrides applies environment overrides after the file is decoded.
// Pattern: MODGRAPH_[SECTION]_[KEY], e.g. MODGRAPH_SCAN_ROOT.
func ApplyEnvOverrides(cfg *Config) {
	setEnvString(&cfg.Scan.Root, "MODGRAPH_SCAN_ROOT")
	setEnvString(&cfg.Scan.Extension, "MODGRAPH_SCAN_EXTENSION")

	setEnvString(&cfg.Linkage.Config, "MODGRAPH_LINKAGE_CONFIG")

	setEnvString(&cfg.Diffusion.TrackingDir, "MODGRAPH_DIFFUSION_TRACKING_DIR")
	setEnvString(&cfg.Diffusion.Version, "MODGRAPH_DIFFUSION_VERSION")

	setEnvBool(&cfg.Order.TolerateUnresolved, "MODGRAPH_ORDER_TOLERATE_UNRESOLVED")

	setEnvString(&cfg.Output.Dir, "MODGRAPH_OUTPUT_DIR")

	setEnvBool(&cfg.History.Enabled, "MODGRAPH_HISTORY_ENABLED")
	setEnvString(&cfg.History.Path, "MODGRAPH_HISTORY_PATH")

	setEnvDuration(&cfg.Watch.Debounce, "MODGRAPH_WATCH_DEBOUNCE")
	setEnvInt(&cfg.Watch.MaxRunsPerMinute, "MODGRAPH_WATCH_MAX_RUNS_PER_MINUTE")

	setEnvString(&cfg.Observability.MetricsTextfile, "MODGRAPH_OBSERVABILITY_METRICS_TEXTFILE")
	setEnvBool(&cfg.Observability.Tracing, "MODGRAPH_OBSERVABILITY_TRACING")
	setEnvString(&cfg.Observability.OTLPEndpoint, "MODGRAPH_OBSERVABILITY_OTLP_ENDPOINT")
}

func setEnvString(target *string, key string) {
	if val, ok := os.LookupEnv(key); ok {
		slog.Debug("applying env override", "key", key, "value", val)
		*target = val
	}
}

func setEnvInt(target *int, key string) {
	if val, ok := os.LookupEnv(key); ok {
		if i, err := strconv.Atoi(val); err == nil {
			slog.Debug("applying env override", "key", key, "value", val)
			*target = i
		}
	}
}

func setEnvBool(target *bool, key string) {
	if val, ok := os.LookupEnv(key); ok {
		if b, err := strconv.ParseBool(strings.ToLower(val)); err == nil {
			slog.Debug("applying env override", "key", key, "value", val)
			*target = b
		}
	}
}

func setEnvDuration(target *time.Duration, key string) {
	if val, ok := os.LookupEnv(key); ok {
		if d, err := time.ParseDuration(val); err == nil {
			slog.Debug("applying env override", "key", key, "value", val)
			*target = d
		}
	}
}

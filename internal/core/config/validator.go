package config

import (
	"strings"

	"github.com/gobwas/glob"

	"modgraph/internal/core/errors"
)

func invalid(format string, args ...any) error {
	return errors.Newf(errors.CodeValidationError, format, args...)
}

func validateVersion(cfg *Config) error {
	if cfg.Version != 1 {
		return invalid("unsupported config version %d; supported version is 1", cfg.Version)
	}
	return nil
}

func validateScan(cfg *Config) error {
	switch cfg.Scan.Extension {
	case ".o", ".ko":
	default:
		return invalid("scan.extension must be .o or .ko, got %q", cfg.Scan.Extension)
	}
	for i, pattern := range cfg.Scan.DenyGlobs {
		if strings.TrimSpace(pattern) == "" {
			return invalid("scan.deny_globs[%d] must not be empty", i)
		}
		if _, err := glob.Compile(pattern, '/'); err != nil {
			return invalid("scan.deny_globs[%d] %q: %v", i, pattern, err)
		}
	}
	if strings.TrimSpace(cfg.Linkage.Name) == "" {
		return invalid("linkage.name must not be empty")
	}
	return nil
}

func validateOutput(cfg *Config) error {
	if cfg.Output.DOTMaxLevel < 0 {
		return invalid("output.dot_max_level must be >= 0, got %d", cfg.Output.DOTMaxLevel)
	}
	names := map[string]string{
		"output.dot":         cfg.Output.DOT,
		"output.mermaid":     cfg.Output.Mermaid,
		"output.linker_list": cfg.Output.LinkerList,
		"output.init_source": cfg.Output.InitSource,
		"output.metrics_tsv": cfg.Output.MetricsTSV,
	}
	seen := make(map[string]string, len(names))
	for key, name := range names {
		name = strings.TrimSpace(name)
		if name == "" {
			continue
		}
		if other, ok := seen[name]; ok {
			first, second := other, key
			if second < first {
				first, second = second, first
			}
			return invalid("%s and %s write the same file %q", first, second, name)
		}
		seen[name] = key
	}
	return nil
}

func validateWatch(cfg *Config) error {
	if cfg.Watch.Debounce < 0 {
		return invalid("watch.debounce must be >= 0")
	}
	if cfg.Watch.MaxRunsPerMinute < 0 {
		return invalid("watch.max_runs_per_minute must be >= 0, got %d", cfg.Watch.MaxRunsPerMinute)
	}
	return nil
}

func validateObservability(cfg *Config) error {
	if cfg.Observability.Tracing && strings.TrimSpace(cfg.Observability.OTLPEndpoint) == "" {
		return invalid("observability.otlp_endpoint is required when tracing is enabled")
	}
	return nil
}

package config

import (
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"

	"modgraph/internal/core/errors"
	"modgraph/internal/data/discovery"
	"modgraph/internal/data/history"
)

// Default returns a configuration with every default applied and no file
// behind it.
func Default() *Config {
	cfg := &Config{}
	applyDefaults(cfg)
	return cfg
}

func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		code := errors.CodeIO
		if os.IsNotExist(err) {
			code = errors.CodeNotFound
		}
		return nil, errors.AddContext(errors.Wrap(err, code, "read config"), errors.CtxPath, path)
	}

	var cfg Config
	if _, err := toml.Decode(string(data), &cfg); err != nil {
		return nil, errors.AddContext(errors.Wrap(err, errors.CodeValidationError, "decode config"), errors.CtxPath, path)
	}
	cfg.dir = filepath.Dir(path)

	applyDefaults(&cfg)
	ApplyEnvOverrides(&cfg)
	if err := cfg.Validate(); err != nil {
		return nil, errors.AddContext(err, errors.CtxPath, path)
	}
	return &cfg, nil
}

// Validate runs every section check. Load calls it; callers that override
// values from flags call it again.
func (c *Config) Validate() error {
	for _, check := range []func(*Config) error{
		validateVersion,
		validateScan,
		validateOutput,
		validateWatch,
		validateObservability,
	} {
		if err := check(c); err != nil {
			return err
		}
	}
	return nil
}

func applyDefaults(cfg *Config) {
	if cfg.Version == 0 {
		cfg.Version = 1
	}

	if strings.TrimSpace(cfg.Scan.Root) == "" {
		cfg.Scan.Root = "."
	}
	if strings.TrimSpace(cfg.Scan.Extension) == "" {
		cfg.Scan.Extension = ".o"
	}
	if cfg.Scan.Denylist == nil {
		cfg.Scan.Denylist = append([]string(nil), discovery.DefaultDenylist...)
	}

	if strings.TrimSpace(cfg.Linkage.Name) == "" {
		cfg.Linkage.Name = "lds"
	}
	if strings.TrimSpace(cfg.Linkage.Config) == "" {
		cfg.Linkage.Config = "lds.conf"
	}

	if cfg.Diffusion.Samples == nil {
		cfg.Diffusion.Samples = append([]string(nil), DefaultSamples...)
	}
	if strings.TrimSpace(cfg.Diffusion.TrackingDir) == "" {
		cfg.Diffusion.TrackingDir = os.TempDir()
	}

	if strings.TrimSpace(cfg.Output.Dir) == "" {
		cfg.Output.Dir = "."
	}
	if strings.TrimSpace(cfg.Output.LinkerList) == "" {
		cfg.Output.LinkerList = "modules.list"
	}
	if strings.TrimSpace(cfg.Output.InitSource) == "" {
		cfg.Output.InitSource = "init_modules.c"
	}

	if strings.TrimSpace(cfg.History.Path) == "" {
		cfg.History.Path = "modgraph-history.db"
	}
	if cfg.History.Window <= 0 {
		cfg.History.Window = 30 * 24 * time.Hour
	}

	if cfg.Watch.Debounce == 0 {
		cfg.Watch.Debounce = 500 * time.Millisecond
	}
	if cfg.Watch.MaxRunsPerMinute == 0 {
		cfg.Watch.MaxRunsPerMinute = 6
	}
	if cfg.Watch.ExcludeDirs == nil {
		cfg.Watch.ExcludeDirs = []string{".git", ".tmp_*"}
	}

	if strings.TrimSpace(cfg.Observability.OTLPEndpoint) == "" {
		cfg.Observability.OTLPEndpoint = "localhost:4317"
	}
}

// VersionLabel is the label recorded in tracking rows: the configured
// version, or the last path component of the scan root.
func (c *Config) VersionLabel() string {
	if v := strings.TrimSpace(c.Diffusion.Version); v != "" {
		return v
	}
	return history.LastComponent(c.Resolve(c.Scan.Root))
}

// Resolve makes p absolute relative to the directory of the config file.
// Without a file, p is returned as given.
func (c *Config) Resolve(p string) string {
	p = strings.TrimSpace(p)
	if p == "" || filepath.IsAbs(p) || c.dir == "" {
		return p
	}
	return filepath.Join(c.dir, p)
}

// OutputPath places name under the output directory. An empty name yields
// an empty path, meaning the artifact is disabled.
func (c *Config) OutputPath(name string) string {
	name = strings.TrimSpace(name)
	if name == "" {
		return ""
	}
	if filepath.IsAbs(name) {
		return name
	}
	return filepath.Join(c.Resolve(c.Output.Dir), name)
}

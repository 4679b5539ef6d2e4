package config

import "time"

type Config struct {
	Version       int           `toml:"version"`
	Scan          Scan          `toml:"scan"`
	Linkage       Linkage       `toml:"linkage"`
	Diffusion     Diffusion     `toml:"diffusion"`
	Order         Order         `toml:"order"`
	Output        Output        `toml:"output"`
	History       History       `toml:"history"`
	Watch         Watch         `toml:"watch"`
	Observability Observability `toml:"observability"`

	// dir is the directory of the loaded file; relative paths resolve
	// against it.
	dir string
}

type Scan struct {
	Root      string   `toml:"root"`
	Extension string   `toml:"extension"`
	Denylist  []string `toml:"denylist"`
	DenyGlobs []string `toml:"deny_globs"`
	Sort      *bool    `toml:"sort"`
}

type Linkage struct {
	Name   string `toml:"name"`
	Config string `toml:"config"`
}

type Diffusion struct {
	Samples     []string `toml:"samples"`
	TrackingDir string   `toml:"tracking_dir"`
	Version     string   `toml:"version"`
}

type Order struct {
	Root               string `toml:"root"`
	TolerateUnresolved bool   `toml:"tolerate_unresolved"`
	Profile            string `toml:"profile"`
	Verify             bool   `toml:"verify"`
}

type Output struct {
	Dir         string `toml:"dir"`
	DOT         string `toml:"dot"`
	Mermaid     string `toml:"mermaid"`
	LinkerList  string `toml:"linker_list"`
	InitSource  string `toml:"init_source"`
	MetricsTSV  string `toml:"metrics_tsv"`
	DOTMaxLevel int    `toml:"dot_max_level"`
}

type History struct {
	Enabled bool          `toml:"enabled"`
	Path    string        `toml:"path"`
	Window  time.Duration `toml:"window"`
}

type Watch struct {
	Debounce         time.Duration `toml:"debounce"`
	MaxRunsPerMinute int           `toml:"max_runs_per_minute"`
	ExcludeDirs      []string      `toml:"exclude_dirs"`
}

type Observability struct {
	MetricsTextfile string `toml:"metrics_textfile"`
	Tracing         bool   `toml:"tracing"`
	OTLPEndpoint    string `toml:"otlp_endpoint"`
	OTLPInsecure    *bool  `toml:"otlp_insecure"`
}

// DefaultSamples are the modules the diffusion report breaks out by default.
var DefaultSamples = []string{
	"mm/slab_common",
	"mm/page_alloc",
	"kernel/sched/core",
	"lib/bitmap",
	"block/blk-core",
	"net/socket",
	"fs/ext2/inode",
	"drivers/block/virtio_blk",
}

func (s Scan) Sorted() bool {
	return s.Sort == nil || *s.Sort
}

func (o Observability) Insecure() bool {
	return o.OTLPInsecure == nil || *o.OTLPInsecure
}

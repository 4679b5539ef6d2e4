package app

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"modgraph/internal/core/config"
	"modgraph/internal/core/errors"
	"modgraph/internal/core/ports"
	"modgraph/internal/data/history"
	"modgraph/internal/engine/order"
	"modgraph/internal/testutil"
)

type memoryHistory struct {
	runs   []history.Run
	closed bool
}

func (m *memoryHistory) SaveRun(run history.Run) (history.Run, error) {
	run.ID = run.Sample + "-" + run.Version
	m.runs = append(m.runs, run)
	return run, nil
}

func (m *memoryHistory) LoadRuns(sample string, since time.Time) ([]history.Run, error) {
	var out []history.Run
	for _, r := range m.runs {
		if r.Sample == sample && !r.Timestamp.Before(since) {
			out = append(out, r)
		}
	}
	return out, nil
}

func (m *memoryHistory) Samples() ([]string, error) { return nil, nil }

func (m *memoryHistory) Close() error {
	m.closed = true
	return nil
}

type fixture struct {
	dir  string
	objs string
	cfg  *config.Config
	out  *bytes.Buffer
}

// newFixture lays out a small build tree:
//
//	init/main   -> mm/slab, kernel/printk, lds
//	mm/slab     -> kernel/printk
//	drivers/bad is not an object file
func newFixture(t *testing.T) *fixture {
	t.Helper()
	dir := t.TempDir()
	objs := filepath.Join(dir, "linux-6.1")

	testutil.WriteObject(t, objs, "init/main.o", testutil.Object{
		Functions: []string{"start_kernel"},
		Undefined: []string{"kmalloc", "printk", "_stext"},
	})
	testutil.WriteObject(t, objs, "mm/slab.o", testutil.Object{
		Functions: []string{"kmalloc", "kfree"},
		Data:      []string{"slab_caches"},
		Undefined: []string{"printk"},
	})
	testutil.WriteObject(t, objs, "kernel/printk.o", testutil.Object{
		Functions: []string{"printk"},
	})
	require.NoError(t, os.MkdirAll(filepath.Join(objs, "drivers"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(objs, "drivers", "bad.o"), []byte("garbage"), 0o644))

	cfg := config.Default()
	cfg.Scan.Root = objs
	cfg.Linkage.Config = testutil.WriteLines(t, filepath.Join(dir, "lds.conf"), "_stext", "_etext")
	cfg.Diffusion.TrackingDir = filepath.Join(dir, "tracking")
	cfg.Diffusion.Samples = []string{"mm/slab", "net/socket"}
	cfg.Output.Dir = filepath.Join(dir, "out")

	return &fixture{dir: dir, objs: objs, cfg: cfg, out: &bytes.Buffer{}}
}

func (f *fixture) app(t *testing.T, store ports.HistoryStore) *App {
	t.Helper()
	a, err := NewWithDependencies(f.cfg, Dependencies{
		History: store,
		Out:     f.out,
		Now:     func() time.Time { return time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC) },
	})
	require.NoError(t, err)
	return a
}

func TestRunDiffusion(t *testing.T) {
	f := newFixture(t)
	f.cfg.Output.MetricsTSV = "metrics.tsv"
	store := &memoryHistory{}
	svc := f.app(t, store).AnalysisService()

	res, err := svc.RunDiffusion(context.Background(), ports.DiffusionRequest{})
	require.NoError(t, err)

	assert.Equal(t, 3, res.Report.TotalModules)
	require.Len(t, res.Failures, 1)
	assert.Equal(t, "drivers/bad", res.Failures[0].Name)
	assert.Equal(t, []string{"net/socket"}, res.Missing)
	assert.Empty(t, res.Unresolved)

	slab, ok := res.Report.Lookup("mm/slab")
	require.True(t, ok)
	assert.Equal(t, 3, slab.ExportedElements)
	assert.Equal(t, 1.0, slab.DirectWidth)

	require.Len(t, res.Tracking, 2)
	rows, err := history.ReadTrackingRows(filepath.Join(f.cfg.Diffusion.TrackingDir, "mm_slab"))
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.True(t, strings.HasPrefix(rows[0], "|linux-6.1|"), rows[0])

	_, err = os.Stat(filepath.Join(f.cfg.Diffusion.TrackingDir, "global"))
	assert.NoError(t, err)

	assert.Contains(t, res.Written, filepath.Join(f.cfg.Output.Dir, "metrics.tsv"))

	require.Len(t, store.runs, 2)
	assert.Equal(t, "global", store.runs[0].Sample)
	assert.Equal(t, "mm/slab", store.runs[1].Sample)
	assert.Equal(t, "linux-6.1", store.runs[1].Version)

	console := f.out.String()
	assert.Contains(t, console, "[Global]")
	assert.Contains(t, console, "[mm/slab]")
	assert.Contains(t, console, "sample net/socket not found")
}

func TestRunDiffusion_VersionFromRequestRoot(t *testing.T) {
	f := newFixture(t)
	svc := f.app(t, nil).AnalysisService()

	_, err := svc.RunDiffusion(context.Background(), ports.DiffusionRequest{Root: f.objs, Samples: []string{}})
	require.NoError(t, err)

	rows, err := history.ReadTrackingRows(filepath.Join(f.cfg.Diffusion.TrackingDir, "global"))
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.True(t, strings.HasPrefix(rows[0], "|linux-6.1|3|5|"), rows[0])
}

func TestRunDiffusion_TrackingNameCollision(t *testing.T) {
	f := newFixture(t)
	testutil.WriteObject(t, f.objs, "global.o", testutil.Object{Functions: []string{"global_init"}})
	testutil.WriteObject(t, f.objs, "mm_slab.o", testutil.Object{Functions: []string{"other"}})
	store := &memoryHistory{}

	res, err := f.app(t, store).AnalysisService().RunDiffusion(context.Background(),
		ports.DiffusionRequest{Samples: []string{"mm/slab", "global", "mm_slab"}})
	require.NoError(t, err)

	assert.Equal(t, []string{"global", "mm_slab"}, res.Collisions)
	assert.Len(t, res.Tracking, 2)

	rows, err := history.ReadTrackingRows(filepath.Join(f.cfg.Diffusion.TrackingDir, "global"))
	require.NoError(t, err)
	require.Len(t, rows, 1, "the global series must not receive the sample row")
	assert.True(t, strings.HasPrefix(rows[0], "|linux-6.1|5|"), rows[0])

	rows, err = history.ReadTrackingRows(filepath.Join(f.cfg.Diffusion.TrackingDir, "mm_slab"))
	require.NoError(t, err)
	assert.Len(t, rows, 1)
}

func TestRunDiffusion_MissingLinkageConfig(t *testing.T) {
	f := newFixture(t)
	f.cfg.Linkage.Config = filepath.Join(f.dir, "nope.conf")

	_, err := f.app(t, nil).AnalysisService().RunDiffusion(context.Background(), ports.DiffusionRequest{})
	assert.True(t, errors.IsCode(err, errors.CodeNotFound), err)
}

func TestRunOrder(t *testing.T) {
	f := newFixture(t)
	f.cfg.Output.DOT = "main.dot"
	f.cfg.Output.Mermaid = "main.md"
	svc := f.app(t, nil).AnalysisService()

	res, err := svc.RunOrder(context.Background(), ports.OrderRequest{Module: "init/main", Why: "kernel/printk"})
	require.NoError(t, err)

	assert.Equal(t, []string{"lds", "kernel/printk", "mm/slab", "init/main"}, res.Ordering.Sequence)
	assert.Equal(t, []string{"init/main", "kernel/printk"}, res.Chain)

	out := f.cfg.Output.Dir
	assert.ElementsMatch(t, []string{
		filepath.Join(out, "main.json"),
		filepath.Join(out, "modules.list"),
		filepath.Join(out, "init_modules.c"),
		filepath.Join(out, "main.dot"),
		filepath.Join(out, "main.md"),
	}, res.Written)

	list, err := os.ReadFile(filepath.Join(out, "modules.list"))
	require.NoError(t, err)
	assert.Equal(t, "kernel/printk.o\nmm/slab.o\ninit/main.o\n", string(list))

	profile, err := order.LoadProfile(filepath.Join(out, "main.json"))
	require.NoError(t, err)
	assert.Equal(t, []string{"kernel/printk"}, profile.Dependencies["mm/slab"])

	assert.Contains(t, f.out.String(), "init/main")
}

func TestRunOrder_Verify(t *testing.T) {
	f := newFixture(t)
	svc := f.app(t, nil).AnalysisService()

	_, err := svc.RunOrder(context.Background(), ports.OrderRequest{Module: "init/main", Verify: true})
	assert.True(t, errors.IsCode(err, errors.CodeNotFound), "verify needs an existing profile: %v", err)

	_, err = svc.RunOrder(context.Background(), ports.OrderRequest{Module: "init/main"})
	require.NoError(t, err)

	res, err := svc.RunOrder(context.Background(), ports.OrderRequest{Module: "init/main", Verify: true})
	require.NoError(t, err)
	assert.NotContains(t, res.Written, filepath.Join(f.cfg.Output.Dir, "main.json"))

	profilePath := filepath.Join(f.cfg.Output.Dir, "main.json")
	stale := &order.Profile{Dependencies: map[string][]string{"init/main": {}}}
	require.NoError(t, stale.Save(profilePath))

	_, err = svc.RunOrder(context.Background(), ports.OrderRequest{Module: "init/main", Verify: true})
	assert.True(t, errors.IsCode(err, errors.CodeValidationError), err)
	assert.Equal(t, profilePath, errors.ContextValue(err, errors.CtxPath))
}

func TestRunOrder_Failures(t *testing.T) {
	f := newFixture(t)
	svc := f.app(t, nil).AnalysisService()

	_, err := svc.RunOrder(context.Background(), ports.OrderRequest{Module: "net/socket"})
	assert.True(t, errors.IsCode(err, errors.CodeNotFound))

	_, err = svc.RunOrder(context.Background(), ports.OrderRequest{Module: "drivers/bad"})
	assert.True(t, errors.IsCode(err, errors.CodeMalformedInput))

	_, err = svc.RunOrder(context.Background(), ports.OrderRequest{})
	assert.True(t, errors.IsCode(err, errors.CodeValidationError))

	_, err = svc.RunOrder(context.Background(), ports.OrderRequest{Module: "mm/slab", Why: "init/main"})
	assert.True(t, errors.IsCode(err, errors.CodeNotFound))
}

func TestRunOrder_UnresolvedBlamesUnreadableModule(t *testing.T) {
	f := newFixture(t)
	testutil.WriteObject(t, f.objs, "net/socket.o", testutil.Object{
		Functions: []string{"sock_create"},
		Undefined: []string{"bad_helper"},
	})

	_, err := f.app(t, nil).AnalysisService().RunOrder(context.Background(),
		ports.OrderRequest{Module: "net/socket", TolerateUnresolved: true})
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.CodeMalformedInput), err)
	assert.Equal(t, "drivers/bad", errors.ContextValue(err, errors.CtxModule))
}

func TestRunOrder_Cycle(t *testing.T) {
	f := newFixture(t)
	testutil.WriteObject(t, f.objs, "kernel/printk.o", testutil.Object{
		Functions: []string{"printk"},
		Undefined: []string{"kmalloc"},
	})

	_, err := f.app(t, nil).AnalysisService().RunOrder(context.Background(), ports.OrderRequest{Module: "init/main"})
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.CodeCycle))
	assert.Contains(t, err.Error(), "kernel/printk -> mm/slab")
}

func TestHistoryTrend(t *testing.T) {
	f := newFixture(t)
	svc := f.app(t, nil).AnalysisService()
	_, err := svc.HistoryTrend(context.Background(), "global", time.Time{})
	assert.True(t, errors.IsCode(err, errors.CodeValidationError))

	store := &memoryHistory{}
	a := f.app(t, store)
	svc = a.AnalysisService()
	_, err = svc.RunDiffusion(context.Background(), ports.DiffusionRequest{})
	require.NoError(t, err)

	report, err := svc.HistoryTrend(context.Background(), "mm/slab", time.Time{})
	require.NoError(t, err)
	assert.Equal(t, 1, report.RunCount)

	_, err = svc.HistoryTrend(context.Background(), "net/socket", time.Time{})
	assert.True(t, errors.IsCode(err, errors.CodeNotFound))

	require.NoError(t, svc.Close(context.Background()))
	assert.True(t, store.closed)
}

func TestNewWithDependencies_RequiresConfig(t *testing.T) {
	_, err := NewWithDependencies(nil, Dependencies{})
	assert.True(t, errors.IsCode(err, errors.CodeValidationError))
}

package history

import (
	"database/sql"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestStore_OpenInitializesSchemaAndSaveLoad(t *testing.T) {
	store, err := Open(filepath.Join(t.TempDir(), "history.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	defer store.Close()

	base := time.Date(2026, 2, 13, 10, 0, 0, 0, time.UTC)
	first := Run{Sample: "global", Version: "v6.1", Timestamp: base, Modules: 5, Elements: 40, DiffusionIndicator: 1.2}
	dup := Run{Sample: "global", Version: "v6.1", Timestamp: base, Modules: 8, Elements: 64, DiffusionIndicator: 1.5}
	second := Run{Sample: "global", Version: "v6.2", Timestamp: base.Add(2 * time.Hour), Modules: 6, Elements: 50,
		AvgElements: 8.33, DirectWidth: 1.5, ChainLength: 3.25, DiffusionIndicator: 2.1, Edges: 9, CycleHits: 1}

	saved, err := store.SaveRun(first)
	if err != nil {
		t.Fatalf("save first run: %v", err)
	}
	if saved.ID == "" || saved.SchemaVersion != SchemaVersion {
		t.Fatalf("expected id and schema version to be filled, got %+v", saved)
	}
	if _, err := store.SaveRun(dup); err != nil {
		t.Fatalf("save duplicate run: %v", err)
	}
	if _, err := store.SaveRun(second); err != nil {
		t.Fatalf("save second run: %v", err)
	}

	got, err := store.LoadRuns("global", base.Add(time.Hour))
	if err != nil {
		t.Fatalf("load runs: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("expected 1 run after since filter, got %d", len(got))
	}
	if got[0].Version != "v6.2" || got[0].ChainLength != 3.25 || got[0].CycleHits != 1 || got[0].Edges != 9 {
		t.Fatalf("expected metrics to roundtrip, got %+v", got[0])
	}

	// Same sample, version and timestamp replaces the earlier row.
	all, err := store.LoadRuns("global", time.Time{})
	if err != nil {
		t.Fatalf("load all runs: %v", err)
	}
	if len(all) != 2 {
		t.Fatalf("expected deduplicated 2 runs, got %d", len(all))
	}
	if all[0].Modules != 8 {
		t.Fatalf("expected upserted modules=8, got %d", all[0].Modules)
	}
}

func TestStore_SamplesAreIsolated(t *testing.T) {
	store, err := Open(filepath.Join(t.TempDir(), "history.db"))
	if err != nil {
		t.Fatal(err)
	}
	defer store.Close()

	base := time.Date(2026, 2, 13, 10, 0, 0, 0, time.UTC)
	if _, err := store.SaveRun(Run{Sample: "mm/slab_common", Timestamp: base, Modules: 1}); err != nil {
		t.Fatal(err)
	}
	if _, err := store.SaveRun(Run{Sample: "net/socket", Timestamp: base, Modules: 2}); err != nil {
		t.Fatal(err)
	}

	rows, err := store.LoadRuns("net/socket", time.Time{})
	if err != nil {
		t.Fatal(err)
	}
	if len(rows) != 1 || rows[0].Modules != 2 {
		t.Fatalf("unexpected net/socket rows: %+v", rows)
	}

	samples, err := store.Samples()
	if err != nil {
		t.Fatal(err)
	}
	if strings.Join(samples, ",") != "mm/slab_common,net/socket" {
		t.Fatalf("unexpected samples: %v", samples)
	}
}

func TestStore_SaveRunRequiresSample(t *testing.T) {
	store, err := Open(filepath.Join(t.TempDir(), "history.db"))
	if err != nil {
		t.Fatal(err)
	}
	defer store.Close()

	if _, err := store.SaveRun(Run{Sample: "  "}); err == nil {
		t.Fatal("expected error for empty sample")
	}
}

func TestStore_OpenRejectsDirectoryPath(t *testing.T) {
	_, err := Open(t.TempDir())
	if err == nil {
		t.Fatal("expected open error for directory path")
	}
	if !strings.Contains(err.Error(), "is a directory") {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestStore_OpenCorruptDBPath(t *testing.T) {
	path := filepath.Join(t.TempDir(), "history.db")
	if err := os.WriteFile(path, []byte("this is not sqlite"), 0o644); err != nil {
		t.Fatal(err)
	}
	_, err := Open(path)
	if err == nil {
		t.Fatal("expected sqlite open error")
	}
	lower := strings.ToLower(err.Error())
	if !strings.Contains(lower, "not a database") && !strings.Contains(lower, "schema") {
		t.Fatalf("expected schema/open error, got: %v", err)
	}
}

func TestEnsureSchema_DetectsNewerVersionDrift(t *testing.T) {
	path := filepath.Join(t.TempDir(), "history.db")
	store, err := Open(path)
	if err != nil {
		t.Fatal(err)
	}
	defer store.Close()

	if _, err := store.db.Exec(`INSERT OR REPLACE INTO schema_migrations(version) VALUES (?)`, SchemaVersion+1); err != nil {
		t.Fatal(err)
	}

	db, err := sql.Open(driverName, "file:"+path)
	if err != nil {
		t.Fatal(err)
	}
	defer db.Close()
	err = EnsureSchema(db)
	if err == nil {
		t.Fatal("expected drift error")
	}
	if !strings.Contains(err.Error(), "newer than supported") {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestBuildTrendReport(t *testing.T) {
	base := time.Date(2026, 2, 13, 10, 0, 0, 0, time.UTC)
	runs := []Run{
		{Timestamp: base, Version: "v1", Modules: 4, Elements: 40, DiffusionIndicator: 2},
		{Timestamp: base.Add(2 * time.Hour), Version: "v2", Modules: 6, Elements: 52, DiffusionIndicator: 3},
		{Timestamp: base.Add(25 * time.Hour), Version: "v3", Modules: 7, Elements: 60, DiffusionIndicator: 1.5},
	}

	report, err := BuildTrendReport("global", runs, 24*time.Hour)
	if err != nil {
		t.Fatalf("build report: %v", err)
	}
	if report.RunCount != 3 {
		t.Fatalf("expected run_count=3, got %d", report.RunCount)
	}
	if report.Points[1].DeltaModules != 2 || report.Points[1].DeltaElements != 12 {
		t.Fatalf("unexpected deltas: %+v", report.Points[1])
	}
	if report.Points[1].IndicatorPct != 50 {
		t.Fatalf("expected indicator change 50%%, got %v", report.Points[1].IndicatorPct)
	}
	if report.Points[2].DeltaIndicator != -1.5 {
		t.Fatalf("expected delta -1.5, got %v", report.Points[2].DeltaIndicator)
	}
	// v1 falls outside the 24h window of v3.
	if report.Points[2].AvgIndicator != 2.25 {
		t.Fatalf("expected moving average 2.25, got %v", report.Points[2].AvgIndicator)
	}

	if _, err := BuildTrendReport("global", nil, time.Hour); err == nil {
		t.Fatal("expected error without runs")
	}
}

func TestIsCorruptError(t *testing.T) {
	if !IsCorruptError(errors.New("database disk image is malformed")) {
		t.Fatal("expected malformed sqlite message to be treated as corrupt")
	}
}

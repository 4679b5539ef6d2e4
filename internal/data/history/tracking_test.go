package history

import (
	"os"
	"path/filepath"
	"testing"
)

func TestAppendTrackingRow(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "tracking")
	row := TrackingRow{Version: "linux-6.1", Modules: 12, Elements: 340, AvgElements: 28.333,
		DirectWidth: 3, ChainLength: 4.5, Indicator: 0.126}

	path, err := AppendTrackingRow(dir, "mm/slab_common", row)
	if err != nil {
		t.Fatalf("append: %v", err)
	}
	if filepath.Base(path) != "mm_slab_common" {
		t.Fatalf("expected file named after the full sample, got %s", path)
	}
	row.Version = "linux-6.2"
	if _, err := AppendTrackingRow(dir, "mm/slab_common", row); err != nil {
		t.Fatalf("append second row: %v", err)
	}

	rows, err := ReadTrackingRows(path)
	if err != nil {
		t.Fatal(err)
	}
	if len(rows) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(rows))
	}
	if rows[0] != "|linux-6.1|12|340|28.33|3.00|4.50|0.13|" {
		t.Fatalf("unexpected row format: %q", rows[0])
	}
}

func TestAppendTrackingRow_SameBaseNameKeptApart(t *testing.T) {
	dir := t.TempDir()
	row := TrackingRow{Version: "v1", Modules: 1, Elements: 1}

	mm, err := AppendTrackingRow(dir, "mm/page_alloc", row)
	if err != nil {
		t.Fatal(err)
	}
	lib, err := AppendTrackingRow(dir, "lib/page_alloc", row)
	if err != nil {
		t.Fatal(err)
	}
	if mm == lib {
		t.Fatalf("samples with the same base name share %s", mm)
	}
	for _, path := range []string{mm, lib} {
		rows, err := ReadTrackingRows(path)
		if err != nil {
			t.Fatal(err)
		}
		if len(rows) != 1 {
			t.Fatalf("%s: expected 1 row, got %d", path, len(rows))
		}
	}
}

func TestAppendTrackingRow_UnwritableDir(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "tracking")
	if err := os.WriteFile(dir, []byte("file"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := AppendTrackingRow(dir, "global", TrackingRow{}); err == nil {
		t.Fatal("expected error when the tracking dir is a file")
	}
}

func TestTrackingName(t *testing.T) {
	cases := map[string]string{
		"global":                   "global",
		"drivers/block/virtio_blk": "drivers_block_virtio_blk",
		"/mm/slab/":                "mm_slab",
		"":                         "",
	}
	for in, want := range cases {
		if got := TrackingName(in); got != want {
			t.Errorf("TrackingName(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestLastComponent(t *testing.T) {
	cases := map[string]string{
		"global":                   "global",
		"drivers/block/virtio_blk": "virtio_blk",
		"/build/linux-6.1/":        "linux-6.1",
		"":                         "",
	}
	for in, want := range cases {
		if got := LastComponent(in); got != want {
			t.Errorf("LastComponent(%q) = %q, want %q", in, got, want)
		}
	}
}

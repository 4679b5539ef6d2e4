package util

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"modgraph/internal/core/errors"
)

func TestSortedKeys(t *testing.T) {
	got := SortedKeys(map[string]int{"mm/slab": 1, "block/blk-core": 2, "lib/bitmap": 3})
	want := []string{"block/blk-core", "lib/bitmap", "mm/slab"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("want %v, got %v", want, got)
	}
	if got := SortedKeys(map[string]bool{}); len(got) != 0 {
		t.Fatalf("expected empty keys, got %v", got)
	}
}

func TestWriteArtifact(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out", "nested", "order.list")
	if err := WriteArtifact(path, "mm/slab.o\n"); err != nil {
		t.Fatalf("write: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != "mm/slab.o\n" {
		t.Fatalf("unexpected content %q", data)
	}
}

func TestWriteFileWithDirs_ParentIsFile(t *testing.T) {
	dir := t.TempDir()
	blocker := filepath.Join(dir, "blocker")
	if err := os.WriteFile(blocker, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	err := WriteFileWithDirs(filepath.Join(blocker, "child.txt"), []byte("y"), 0o644)
	if !errors.IsCode(err, errors.CodeIO) {
		t.Fatalf("expected IO_ERROR, got %v", err)
	}
}

package watcher

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func contains(paths []string, want string) bool {
	for _, p := range paths {
		if p == want {
			return true
		}
	}
	return false
}

func TestWatcher(t *testing.T) {
	tmpDir := t.TempDir()

	changed := make(chan []string, 4)
	w, err := New(Options{
		Debounce:    100 * time.Millisecond,
		Extension:   ".o",
		ExcludeDirs: []string{".tmp_*"},
	}, func(paths []string) {
		changed <- paths
	})
	if err != nil {
		t.Fatal(err)
	}
	defer w.Close()

	if err := w.Watch([]string{tmpDir}); err != nil {
		t.Fatal(err)
	}

	obj := filepath.Join(tmpDir, "slab.o")
	if err := os.WriteFile(obj, []byte("obj"), 0o644); err != nil {
		t.Fatal(err)
	}

	select {
	case paths := <-changed:
		if !contains(paths, obj) {
			t.Errorf("expected %s in changed files %v", obj, paths)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for object change")
	}

	// Sources and kbuild command files do not trigger a run.
	for _, name := range []string{"slab.c", ".slab.o.cmd"} {
		if err := os.WriteFile(filepath.Join(tmpDir, name), []byte("x"), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	select {
	case paths := <-changed:
		t.Errorf("unexpected run for %v", paths)
	case <-time.After(400 * time.Millisecond):
	}

	subdir := filepath.Join(tmpDir, "mm")
	if err := os.MkdirAll(subdir, 0o755); err != nil {
		t.Fatal(err)
	}
	nested := filepath.Join(subdir, "page_alloc.o")
	if err := os.WriteFile(nested, []byte("obj"), 0o644); err != nil {
		t.Fatal(err)
	}

	timeout := time.After(2 * time.Second)
	for found := false; !found; {
		select {
		case paths := <-changed:
			found = contains(paths, nested)
		case <-timeout:
			t.Fatal("timed out waiting for nested object in new directory")
		}
	}
}

func TestWatcher_Throttle(t *testing.T) {
	runs := make(chan []string, 4)
	w, err := New(Options{Debounce: 20 * time.Millisecond, Extension: ".ko", MaxRunsPerMinute: 1}, func(paths []string) {
		runs <- paths
	})
	if err != nil {
		t.Fatal(err)
	}
	defer w.Close()

	w.schedule("a.ko")
	select {
	case <-runs:
	case <-time.After(time.Second):
		t.Fatal("first run did not happen")
	}

	w.schedule("b.ko")
	select {
	case paths := <-runs:
		t.Fatalf("second run within the same minute: %v", paths)
	case <-time.After(300 * time.Millisecond):
	}

	w.pendingMu.Lock()
	_, pending := w.pending["b.ko"]
	w.pendingMu.Unlock()
	if !pending {
		t.Fatal("throttled change was dropped")
	}
}

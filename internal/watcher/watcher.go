// Package watcher re-runs an analysis when object files under a build tree
// change.
package watcher

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/gobwas/glob"
	"golang.org/x/time/rate"
)

type Options struct {
	Debounce  time.Duration
	Extension string
	// ExcludeDirs are glob patterns matched against directory base names.
	ExcludeDirs []string
	// MaxRunsPerMinute caps how often onChange fires. Zero means unlimited.
	MaxRunsPerMinute int
}

type Watcher struct {
	fsWatcher   *fsnotify.Watcher
	debounce    time.Duration
	extension   string
	excludeDirs []glob.Glob
	limiter     *rate.Limiter
	onChange    func([]string)
	callbackMu  sync.Mutex

	pending   map[string]struct{}
	pendingMu sync.Mutex
	timer     *time.Timer
	closed    bool
}

func New(opts Options, onChange func([]string)) (*Watcher, error) {
	w := &Watcher{
		debounce:  opts.Debounce,
		extension: opts.Extension,
		onChange:  onChange,
		pending:   make(map[string]struct{}),
	}
	if w.debounce <= 0 {
		w.debounce = 500 * time.Millisecond
	}
	if opts.MaxRunsPerMinute > 0 {
		w.limiter = rate.NewLimiter(rate.Every(time.Minute/time.Duration(opts.MaxRunsPerMinute)), 1)
	}
	for _, pattern := range opts.ExcludeDirs {
		g, err := glob.Compile(pattern)
		if err != nil {
			return nil, err
		}
		w.excludeDirs = append(w.excludeDirs, g)
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	w.fsWatcher = fsw
	return w, nil
}

func (w *Watcher) Watch(paths []string) error {
	for _, path := range paths {
		if err := w.watchRecursive(path); err != nil {
			return err
		}
	}
	go w.run()
	return nil
}

// Run watches paths until ctx is done.
func (w *Watcher) Run(ctx context.Context, paths []string) error {
	if err := w.Watch(paths); err != nil {
		return err
	}
	<-ctx.Done()
	return w.Close()
}

func (w *Watcher) watchRecursive(root string) error {
	return filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if path != root && w.excludedDir(path) {
			return filepath.SkipDir
		}
		return w.fsWatcher.Add(path)
	})
}

func (w *Watcher) run() {
	for {
		select {
		case event, ok := <-w.fsWatcher.Events:
			if !ok {
				return
			}
			if event.Has(fsnotify.Create) {
				if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
					if w.excludedDir(event.Name) {
						continue
					}
					if err := w.watchRecursive(event.Name); err != nil {
						slog.Warn("failed to watch new directory", "path", event.Name, "error", err)
						continue
					}
					w.enqueueExisting(event.Name)
					continue
				}
			}
			if !w.relevant(event.Name) {
				continue
			}
			if event.Has(fsnotify.Write) || event.Has(fsnotify.Create) ||
				event.Has(fsnotify.Remove) || event.Has(fsnotify.Rename) {
				w.schedule(event.Name)
			}

		case err, ok := <-w.fsWatcher.Errors:
			if !ok {
				return
			}
			slog.Error("watcher error", "error", err)
		}
	}
}

func (w *Watcher) schedule(path string) {
	w.pendingMu.Lock()
	defer w.pendingMu.Unlock()
	if w.closed {
		return
	}
	w.pending[path] = struct{}{}
	w.arm(w.debounce)
}

// arm resets the flush timer. Callers hold pendingMu.
func (w *Watcher) arm(d time.Duration) {
	if w.timer != nil {
		w.timer.Stop()
	}
	w.timer = time.AfterFunc(d, w.flush)
}

func (w *Watcher) flush() {
	w.pendingMu.Lock()
	if len(w.pending) == 0 || w.closed {
		w.pendingMu.Unlock()
		return
	}
	if w.limiter != nil {
		r := w.limiter.Reserve()
		if delay := r.Delay(); delay > 0 {
			r.Cancel()
			slog.Debug("analysis run throttled", "retry_in", delay, "pending", len(w.pending))
			w.arm(delay)
			w.pendingMu.Unlock()
			return
		}
	}
	paths := make([]string, 0, len(w.pending))
	for path := range w.pending {
		paths = append(paths, path)
	}
	w.pending = make(map[string]struct{})
	w.pendingMu.Unlock()

	sort.Strings(paths)
	w.callbackMu.Lock()
	defer w.callbackMu.Unlock()
	w.onChange(paths)
}

func (w *Watcher) excludedDir(path string) bool {
	base := filepath.Base(path)
	for _, g := range w.excludeDirs {
		if g.Match(base) {
			return true
		}
	}
	return false
}

// relevant keeps files carrying the module extension. Hidden files such as
// the .o.cmd files kbuild writes next to objects are ignored.
func (w *Watcher) relevant(path string) bool {
	base := filepath.Base(path)
	if strings.HasPrefix(base, ".") {
		return false
	}
	if w.extension == "" {
		return true
	}
	return strings.HasSuffix(base, w.extension)
}

func (w *Watcher) Close() error {
	w.pendingMu.Lock()
	w.closed = true
	if w.timer != nil {
		w.timer.Stop()
	}
	w.pendingMu.Unlock()
	return w.fsWatcher.Close()
}

func (w *Watcher) enqueueExisting(root string) {
	_ = filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return nil
		}
		if w.relevant(path) {
			w.schedule(path)
		}
		return nil
	})
}

// Package discovery finds compiled modules under a build tree and reads their
// symbol tables.
package discovery

import (
	"bufio"
	"context"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/gobwas/glob"

	"modgraph/internal/core/errors"
	"modgraph/internal/engine/elfsym"
)

// DefaultDenylist skips the kernel image and host tools built alongside the
// modules. Entries ending in "/" are prefixes, anything else is an exact name.
var DefaultDenylist = []string{
	"vmlinux",
	".vmlinux.export",
	"scripts/dtc/",
	"scripts/kconfig/",
	"scripts/mod/",
}

type Options struct {
	Root      string
	Extension string
	Denylist  []string
	DenyGlobs []string
	Sort      bool
}

// Failure is a candidate that matched the extension but could not be read.
type Failure struct {
	Name string
	Path string
	Err  error
}

type Result struct {
	Records  []elfsym.Record
	Failures []Failure
	Denied   []string
}

// Fatal returns the first failure caused by I/O rather than by the file's
// contents, or nil.
func (r *Result) Fatal() error {
	for _, f := range r.Failures {
		if errors.IsCode(f.Err, errors.CodeIO) {
			return f.Err
		}
	}
	return nil
}

type Denylist struct {
	prefixes []string
	exact    map[string]bool
	globs    []glob.Glob
}

func NewDenylist(entries, patterns []string) (*Denylist, error) {
	d := &Denylist{exact: make(map[string]bool)}
	for _, e := range entries {
		e = strings.TrimSpace(e)
		switch {
		case e == "":
		case strings.HasSuffix(e, "/"):
			d.prefixes = append(d.prefixes, e)
		default:
			d.exact[e] = true
		}
	}
	for _, p := range patterns {
		g, err := glob.Compile(p, '/')
		if err != nil {
			return nil, errors.AddContext(errors.Wrap(err, errors.CodeValidationError, "invalid deny glob"), "pattern", p)
		}
		d.globs = append(d.globs, g)
	}
	return d, nil
}

func (d *Denylist) Match(name string) bool {
	if d.exact[name] {
		return true
	}
	for _, p := range d.prefixes {
		if strings.HasPrefix(name, p) {
			return true
		}
	}
	for _, g := range d.globs {
		if g.Match(name) {
			return true
		}
	}
	return false
}

// ModuleName derives the module name from a file path: relative to root,
// slash separated, extension stripped.
func ModuleName(root, path, ext string) (string, bool) {
	rel, err := filepath.Rel(root, path)
	if err != nil || strings.HasPrefix(rel, "..") {
		return "", false
	}
	rel = filepath.ToSlash(rel)
	if !strings.HasSuffix(rel, ext) {
		return "", false
	}
	return strings.TrimSuffix(rel, ext), true
}

// Scan walks opts.Root for modules. Unreadable or malformed files are
// collected as failures and do not stop the walk.
func Scan(ctx context.Context, opts Options) (*Result, error) {
	info, err := os.Stat(opts.Root)
	if err != nil {
		code := errors.CodeIO
		if os.IsNotExist(err) {
			code = errors.CodeNotFound
		}
		return nil, errors.AddContext(errors.Wrap(err, code, "module root unavailable"), errors.CtxPath, opts.Root)
	}
	if !info.IsDir() {
		return nil, errors.AddContext(errors.New(errors.CodeValidationError, "module root is not a directory"), errors.CtxPath, opts.Root)
	}

	deny, err := NewDenylist(opts.Denylist, opts.DenyGlobs)
	if err != nil {
		return nil, err
	}

	res := &Result{}
	walkErr := filepath.WalkDir(opts.Root, func(path string, d fs.DirEntry, err error) error {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		if err != nil {
			if d != nil && d.IsDir() && path != opts.Root {
				slog.Warn("skipping unreadable directory", "path", path, "error", err)
				return filepath.SkipDir
			}
			return err
		}
		if d.IsDir() {
			return nil
		}

		name, ok := ModuleName(opts.Root, path, opts.Extension)
		if !ok {
			return nil
		}
		if deny.Match(name) {
			slog.Debug("module denied", "module", name)
			res.Denied = append(res.Denied, name)
			return nil
		}

		rec, err := elfsym.Read(path)
		if err != nil {
			slog.Warn("module unreadable", "module", name, "path", path, "error", err)
			res.Failures = append(res.Failures, Failure{Name: name, Path: path, Err: err})
			return nil
		}
		rec.Name = name
		res.Records = append(res.Records, rec)
		return nil
	})
	if walkErr != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, errors.AddContext(errors.Wrap(walkErr, errors.CodeIO, "walk module root"), errors.CtxPath, opts.Root)
	}

	if opts.Sort {
		sort.Slice(res.Records, func(i, j int) bool { return res.Records[i].Name < res.Records[j].Name })
		sort.Slice(res.Failures, func(i, j int) bool { return res.Failures[i].Name < res.Failures[j].Name })
	}
	slog.Info("modules discovered", "root", opts.Root, "modules", len(res.Records),
		"failures", len(res.Failures), "denied", len(res.Denied))
	return res, nil
}

// LoadLinkage reads the linkage symbol list: one name per non-blank line.
func LoadLinkage(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		code := errors.CodeIO
		if os.IsNotExist(err) {
			code = errors.CodeNotFound
		}
		return nil, errors.AddContext(errors.Wrap(err, code, "open linkage config"), errors.CtxPath, path)
	}
	defer f.Close()

	var symbols []string
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" {
			continue
		}
		symbols = append(symbols, line)
	}
	if err := sc.Err(); err != nil {
		return nil, errors.AddContext(errors.Wrap(err, errors.CodeIO, "read linkage config"), errors.CtxPath, path)
	}
	slog.Debug("linkage symbols loaded", "path", path, "symbols", len(symbols))
	return symbols, nil
}

// Package graph holds the module arena built for one run: every discovered
// module, the synthetic linkage module and the symbol index that links them.
//
// Edges are sets of ModuleIDs rather than pointers, so the same arena serves
// both the dependents view (Reverse) and the dependencies view (Forward).
// A Graph is not safe for concurrent use.
package graph

import (
	"log/slog"

	"modgraph/internal/core/errors"
	"modgraph/internal/engine/elfsym"
)

const DefaultLinkageName = "lds"

type Graph struct {
	modules []*Module
	byName  map[string]ModuleID
	symbols *SymbolIndex
	linkage ModuleID
}

// New creates the arena with the linkage module already defined as owner of
// linkageSymbols, so real modules can resolve against linker-provided names.
func New(linkageName string, linkageSymbols []string) *Graph {
	if linkageName == "" {
		linkageName = DefaultLinkageName
	}
	g := &Graph{
		byName:  make(map[string]ModuleID),
		symbols: NewSymbolIndex(),
	}
	lds := g.add(&Module{Name: linkageName, Linkage: true})
	g.linkage = lds.ID
	for _, sym := range linkageSymbols {
		g.symbols.Define(sym, lds.ID)
	}
	return g
}

func (g *Graph) add(m *Module) *Module {
	m.ID = ModuleID(len(g.modules))
	g.modules = append(g.modules, m)
	g.byName[m.Name] = m.ID
	return m
}

// AddRecord registers a discovered module: its imports become Undefined and
// its exports are defined in the symbol index, overwriting earlier owners.
func (g *Graph) AddRecord(rec elfsym.Record) (ModuleID, error) {
	if _, exists := g.byName[rec.Name]; exists {
		return NoModule, errors.AddContext(
			errors.New(errors.CodeValidationError, "duplicate module name"),
			errors.CtxModule, rec.Name)
	}

	undefined, exported := elfsym.Classify(rec)
	m := g.add(&Module{
		Name:          rec.Name,
		Path:          rec.Path,
		Undefined:     undefined,
		ExportedCount: len(exported),
	})

	for _, sym := range exported {
		prev, overwritten := g.symbols.Define(sym, m.ID)
		if overwritten {
			slog.Warn("symbol defined by more than one module, keeping the latest",
				"symbol", sym, "previous", g.modules[prev].Name, "owner", m.Name)
		}
	}
	slog.Debug("module indexed", "module", m.Name, "exports", m.ExportedCount, "imports", len(m.Undefined))
	return m.ID, nil
}

// AddBroken keeps a module whose object could not be read so that later
// stages can decide whether the failure matters.
func (g *Graph) AddBroken(name, path string, cause error) ModuleID {
	if id, exists := g.byName[name]; exists {
		return id
	}
	return g.add(&Module{Name: name, Path: path, Broken: cause}).ID
}

func (g *Graph) Module(id ModuleID) *Module {
	if id < 0 || int(id) >= len(g.modules) {
		return nil
	}
	return g.modules[id]
}

func (g *Graph) Lookup(name string) (*Module, bool) {
	id, ok := g.byName[name]
	if !ok {
		return nil, false
	}
	return g.modules[id], true
}

// Modules returns the arena in insertion order; the linkage module is first.
func (g *Graph) Modules() []*Module {
	return g.modules
}

func (g *Graph) Linkage() *Module {
	return g.modules[g.linkage]
}

func (g *Graph) Symbols() *SymbolIndex {
	return g.symbols
}

func (g *Graph) Len() int {
	return len(g.modules)
}

func (g *Graph) EdgeCount() int {
	n := 0
	for _, m := range g.modules {
		n += m.Edges.Len()
	}
	return n
}

// Names maps ids to module names.
func (g *Graph) Names(ids []ModuleID) []string {
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		out = append(out, g.modules[id].Name)
	}
	return out
}

// Reset clears traversal state so another analysis can walk the same edges.
func (g *Graph) Reset() {
	for _, m := range g.modules {
		m.Status = Untouched
		m.MaxChainLength = 0
	}
}

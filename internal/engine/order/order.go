// Package order computes a dependency-first initialization sequence for one
// root module and everything it transitively depends on.
package order

import (
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"modgraph/internal/core/errors"
	"modgraph/internal/engine/graph"
	"modgraph/internal/shared/util"
)

type Options struct {
	// TolerateUnresolved keeps going when reachable modules import symbols
	// nobody defines. The symbols are still reported on the Ordering.
	TolerateUnresolved bool
	// Select pins the provider of a symbol by module name, overriding the
	// last-definition-wins owner. Usually read from Profile.Selections.
	Select map[string]string
}

// Ordering is the result of resolving one root. Sequence starts with the
// linkage module and ends with the root.
type Ordering struct {
	Root         string
	Linkage      string
	Sequence     []string
	Dependencies map[string][]string
	Paths        map[string]string
	Unresolved   []graph.Unresolved
	Conflicts    []Fixup
}

// Modules returns the sequence without the linkage module.
func (o *Ordering) Modules() []string {
	out := make([]string, 0, len(o.Sequence))
	for _, name := range o.Sequence {
		if name == o.Linkage {
			continue
		}
		out = append(out, name)
	}
	return out
}

// Position returns the index of name in Sequence, or -1.
func (o *Ordering) Position(name string) int {
	for i, n := range o.Sequence {
		if n == name {
			return i
		}
	}
	return -1
}

// Resolve links g in the forward direction starting from root and orders the
// result. The graph must be freshly built: no edges and no traversal state.
func Resolve(g *graph.Graph, root string, opts Options) (*Ordering, error) {
	top, ok := g.Lookup(root)
	if !ok {
		return nil, errors.AddContext(
			errors.New(errors.CodeNotFound, "root module not found"),
			errors.CtxModule, root)
	}
	if top.Linkage {
		return nil, errors.AddContext(
			errors.New(errors.CodeValidationError, "the linkage module cannot be a root"),
			errors.CtxModule, root)
	}
	if top.Broken != nil {
		return nil, malformed(top)
	}

	if err := pin(g, opts.Select); err != nil {
		return nil, err
	}

	b := graph.NewBuilder(g, graph.Forward)
	unresolved := b.Link(top.ID)
	if len(unresolved) > 0 {
		if err := brokenProviders(g); err != nil {
			return nil, err
		}
		total := 0
		for _, u := range unresolved {
			total += len(u.Symbols)
		}
		slog.Info("unresolved symbols", "root", root, "modules", len(unresolved), "symbols", total)
		if !opts.TolerateUnresolved {
			first := unresolved[0]
			err := errors.Newf(errors.CodeUnresolved, "module has undefined symbols: %s", strings.Join(first.Symbols, ", "))
			err = errors.AddContext(err, errors.CtxModule, first.Module)
			return nil, errors.AddContext(err, errors.CtxSymbol, first.Symbols[0])
		}
	}

	g.Reset()
	seq, err := traverse(g, top.ID)
	if err != nil {
		return nil, err
	}

	o := &Ordering{
		Root:         root,
		Linkage:      g.Linkage().Name,
		Sequence:     make([]string, 0, len(seq)+1),
		Dependencies: make(map[string][]string, len(seq)+1),
		Paths:        make(map[string]string, len(seq)),
		Unresolved:   unresolved,
	}
	o.Sequence = append(o.Sequence, g.Linkage().Name)
	o.Dependencies[g.Linkage().Name] = []string{}
	for _, id := range seq {
		m := g.Module(id)
		o.Sequence = append(o.Sequence, m.Name)
		o.Dependencies[m.Name] = g.Names(m.Edges.IDs())
		o.Paths[m.Name] = m.Path
	}
	o.Conflicts = fixups(g, b, o, opts.Select)

	slog.Info("ordering resolved", "root", root, "modules", len(o.Sequence)-1)
	return o, nil
}

type frame struct {
	id   graph.ModuleID
	next int
}

// traverse is a post-order walk over forward edges. Reaching a module that is
// Touched but not Done closes a cycle and aborts with no partial result. The
// linkage module is left out; Resolve places it first.
func traverse(g *graph.Graph, root graph.ModuleID) ([]graph.ModuleID, error) {
	var seq []graph.ModuleID

	g.Module(root).Touch()
	stack := []*frame{{id: root}}
	for len(stack) > 0 {
		top := stack[len(stack)-1]
		m := g.Module(top.id)

		if top.next < m.Edges.Len() {
			child := g.Module(m.Edges.At(top.next))
			top.next++

			prev := child.Touch()
			if prev.Has(graph.Done) {
				continue
			}
			if prev.Has(graph.Touched) {
				err := errors.Newf(errors.CodeCycle, "cyclic dependency %s -> %s", m.Name, child.Name)
				err = errors.AddContext(err, errors.CtxFrom, m.Name)
				return nil, errors.AddContext(err, errors.CtxTo, child.Name)
			}
			stack = append(stack, &frame{id: child.ID})
			continue
		}

		m.Finish()
		if !m.Linkage {
			seq = append(seq, m.ID)
		}
		stack = stack[:len(stack)-1]
	}
	return seq, nil
}

// brokenProviders names every unreadable module. Their exports are unknown,
// so an unresolved symbol may belong to any of them.
func brokenProviders(g *graph.Graph) error {
	var broken []*graph.Module
	for _, m := range g.Modules() {
		if m.Broken != nil {
			broken = append(broken, m)
		}
	}
	if len(broken) == 0 {
		return nil
	}
	names := make([]string, 0, len(broken))
	for _, m := range broken {
		names = append(names, m.Name)
	}
	err := errors.Wrap(broken[0].Broken, errors.CodeMalformedInput,
		"unresolved symbols with unreadable modules: "+strings.Join(names, ", "))
	err = errors.AddContext(err, errors.CtxModule, broken[0].Name)
	return errors.AddContext(err, errors.CtxPath, broken[0].Path)
}

func malformed(m *graph.Module) error {
	err := errors.Wrap(m.Broken, errors.CodeMalformedInput, "module could not be read")
	err = errors.AddContext(err, errors.CtxModule, m.Name)
	return errors.AddContext(err, errors.CtxPath, m.Path)
}

// fixups lists symbols with more than one defining module that were resolved
// while linking and whose current owner ended up in the ordering. Candidates
// are sorted by name.
func fixups(g *graph.Graph, b *graph.Builder, o *Ordering, selected map[string]string) []Fixup {
	var out []Fixup
	for _, c := range g.Symbols().Conflicts() {
		if !b.Resolved(c.Symbol) {
			continue
		}
		owner := c.Owners[len(c.Owners)-1]
		if _, used := o.Dependencies[g.Module(owner).Name]; !used {
			continue
		}
		candidates := uniqueSorted(g.Names(c.Owners))
		if len(candidates) < 2 {
			continue
		}
		slog.Warn("symbol has several providers", "symbol", c.Symbol, "candidates", strings.Join(candidates, ","))
		out = append(out, Fixup{Symbol: c.Symbol, Candidates: candidates, Select: selected[c.Symbol]})
	}
	return out
}

func pin(g *graph.Graph, selected map[string]string) error {
	for _, sym := range util.SortedKeys(selected) {
		m, ok := g.Lookup(selected[sym])
		if !ok {
			err := errors.New(errors.CodeNotFound, "selected provider not found")
			err = errors.AddContext(err, errors.CtxModule, selected[sym])
			return errors.AddContext(err, errors.CtxSymbol, sym)
		}
		if owner, _ := g.Symbols().Lookup(sym); owner == m.ID {
			continue
		}
		g.Symbols().Define(sym, m.ID)
		slog.Debug("provider pinned", "symbol", sym, "module", m.Name)
	}
	return nil
}

func uniqueSorted(in []string) []string {
	seen := make(map[string]bool, len(in))
	out := make([]string, 0, len(in))
	for _, s := range in {
		if seen[s] {
			continue
		}
		seen[s] = true
		out = append(out, s)
	}
	sort.Strings(out)
	return out
}

func (o *Ordering) String() string {
	return fmt.Sprintf("%s: %s", o.Root, strings.Join(o.Modules(), " "))
}

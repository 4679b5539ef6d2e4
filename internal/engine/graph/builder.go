package graph

import (
	"log/slog"
	"strings"
)

// Direction decides which side of a resolved symbol gains the edge.
type Direction int

const (
	// Forward: the consumer gains an edge to its provider ("depends on").
	Forward Direction = iota
	// Reverse: the provider gains an edge to its consumer ("is used by").
	Reverse
)

func (d Direction) String() string {
	if d == Reverse {
		return "reverse"
	}
	return "forward"
}

// Unresolved lists the imports of one module that no module defines.
type Unresolved struct {
	Module  string
	Symbols []string
}

type Builder struct {
	g        *Graph
	dir      Direction
	resolved map[string]bool
}

func NewBuilder(g *Graph, dir Direction) *Builder {
	return &Builder{g: g, dir: dir, resolved: make(map[string]bool)}
}

// Resolved reports whether sym was looked up and found while linking.
func (b *Builder) Resolved(sym string) bool {
	return b.resolved[sym]
}

type linkFrame struct {
	id       ModuleID
	pending  []string
	next     int
	remained []string
}

// Link resolves the undefined symbols of id and, depth first, of every
// provider it reaches through a newly added edge. Each module's Undefined list
// is drained when the module is entered, so a module is resolved once.
func (b *Builder) Link(id ModuleID) []Unresolved {
	var unresolved []Unresolved

	stack := []*linkFrame{b.enter(id)}
	for len(stack) > 0 {
		top := stack[len(stack)-1]
		if top.next == len(top.pending) {
			if len(top.remained) > 0 {
				name := b.g.modules[top.id].Name
				slog.Debug("remaining undefined", "module", name, "symbols", strings.Join(top.remained, ","))
				unresolved = append(unresolved, Unresolved{Module: name, Symbols: top.remained})
			}
			stack = stack[:len(stack)-1]
			continue
		}

		sym := top.pending[top.next]
		top.next++

		owner, ok := b.g.symbols.Lookup(sym)
		if !ok {
			top.remained = append(top.remained, sym)
			continue
		}
		b.resolved[sym] = true
		if owner == top.id {
			continue
		}

		if !b.addEdge(top.id, owner, sym) {
			continue
		}
		if len(b.g.modules[owner].Undefined) > 0 {
			stack = append(stack, b.enter(owner))
		}
	}
	return unresolved
}

// LinkAll links every module in arena order.
func (b *Builder) LinkAll() []Unresolved {
	var unresolved []Unresolved
	for _, m := range b.g.modules {
		if len(m.Undefined) == 0 {
			continue
		}
		unresolved = append(unresolved, b.Link(m.ID)...)
	}
	return unresolved
}

func (b *Builder) enter(id ModuleID) *linkFrame {
	m := b.g.modules[id]
	pending := m.Undefined
	m.Undefined = nil
	return &linkFrame{id: id, pending: pending}
}

// addEdge reports whether a new edge was recorded. The linkage module never
// gains edges: resolving against it ends the chain in both directions.
func (b *Builder) addEdge(consumer, provider ModuleID, sym string) bool {
	from, to := consumer, provider
	if b.dir == Reverse {
		from, to = provider, consumer
	}
	if b.g.modules[from].Linkage {
		return false
	}
	if !b.g.modules[from].Edges.Add(to) {
		return false
	}
	slog.Debug("edge", "direction", b.dir.String(), "from", b.g.modules[from].Name, "to", b.g.modules[to].Name, "symbol", sym)
	return true
}

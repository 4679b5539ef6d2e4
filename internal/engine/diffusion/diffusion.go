// Package diffusion estimates how far the influence of each module spreads
// through the modules that consume its symbols.
//
// It walks the dependents view of the graph (graph.Reverse). Cycles are
// expected in that view and are folded into an approximate chain length
// instead of failing the run.
package diffusion

import (
	"log/slog"

	"modgraph/internal/engine/graph"
)

// Record is one row of the diffusion table. For a single module the Reached
// fields describe the sector reachable through its dependents; for the global
// row they cover every module and DirectWidth/MaxChainLength are averages.
type Record struct {
	Name               string
	ExportedElements   int
	DirectWidth        float64
	MaxChainLength     float64
	ReachedModules     int
	ReachedElements    int
	AvgElements        float64
	DiffusionIndicator float64
}

func newRecord(name string, exported, reachedModules, reachedElements int) Record {
	r := Record{
		Name:             name,
		ExportedElements: exported,
		ReachedModules:   reachedModules,
		ReachedElements:  reachedElements,
	}
	if reachedModules > 0 {
		r.AvgElements = float64(reachedElements) / float64(reachedModules)
	}
	return r
}

// CycleHit records where a traversal re-entered a module still in progress.
type CycleHit struct {
	Module string
	Level  int
	Value  int
}

type Report struct {
	TotalModules int
	Edges        int
	CycleHits    int
	Global       Record
	Modules      []Record
	Cycles       []CycleHit

	byName map[string]int
}

func (r *Report) Lookup(name string) (Record, bool) {
	i, ok := r.byName[name]
	if !ok {
		return Record{}, false
	}
	return r.Modules[i], true
}

type Analyzer struct {
	g      *graph.Graph
	cycles []CycleHit
}

func NewAnalyzer(g *graph.Graph) *Analyzer {
	return &Analyzer{g: g}
}

// Analyze links g in the dependents direction and measures it.
func Analyze(g *graph.Graph) (*Report, []graph.Unresolved) {
	unresolved := graph.NewBuilder(g, graph.Reverse).LinkAll()
	return NewAnalyzer(g).Analyze(), unresolved
}

// Analyze measures every module. The graph must already hold Reverse edges
// and fresh traversal state.
func (a *Analyzer) Analyze() *Report {
	members := a.members()
	total := len(members)

	sumChain := 0
	for _, m := range members {
		chain := a.measure(m.ID, 0)
		slog.Debug("max dependency chain", "module", m.Name, "length", chain)
		sumChain += chain
	}

	report := &Report{
		TotalModules: total,
		Edges:        a.g.EdgeCount(),
		Modules:      make([]Record, 0, total),
		CycleHits:    len(a.cycles),
		Cycles:       a.cycles,
		byName:       make(map[string]int, total),
	}

	sumWidth, sumElements := 0, 0
	for _, m := range members {
		width := m.Edges.Len()
		sumWidth += width
		sumElements += m.ExportedCount

		reached, elements := a.sector(m.ID)
		rec := newRecord(m.Name, m.ExportedCount, reached, elements)
		rec.DirectWidth = float64(width)
		rec.MaxChainLength = float64(m.MaxChainLength)
		rec.DiffusionIndicator = float64(m.ExportedCount) * rec.DirectWidth * rec.MaxChainLength /
			(float64(reached) * float64(total))

		report.byName[m.Name] = len(report.Modules)
		report.Modules = append(report.Modules, rec)
	}

	report.Global = newRecord("global", sumElements, total, sumElements)
	if total > 0 {
		d := float64(total)
		report.Global.DirectWidth = float64(sumWidth) / d
		report.Global.MaxChainLength = float64(sumChain) / d
		report.Global.DiffusionIndicator = float64(sumElements) * report.Global.DirectWidth *
			report.Global.MaxChainLength / (d * d)
	}
	return report
}

// members are the real, readable modules; the linkage module is synthetic.
func (a *Analyzer) members() []*graph.Module {
	out := make([]*graph.Module, 0, a.g.Len())
	for _, m := range a.g.Modules() {
		if m.Linkage || m.Broken != nil {
			continue
		}
		out = append(out, m)
	}
	return out
}

type measureFrame struct {
	id       graph.ModuleID
	level    int
	next     int
	maxChild int
}

// measure returns the longest dependents chain below id. A Done module
// returns its memo; a module found while still in progress is a cycle and
// yields level*2.
func (a *Analyzer) measure(id graph.ModuleID, level int) int {
	if v, settled := a.visit(id, level); settled {
		return v
	}

	ret := 0
	stack := []*measureFrame{{id: id, level: level}}
	for len(stack) > 0 {
		top := stack[len(stack)-1]
		m := a.g.Module(top.id)

		if top.next < m.Edges.Len() {
			child := m.Edges.At(top.next)
			top.next++
			if v, settled := a.visit(child, top.level+1); settled {
				if v > top.maxChild {
					top.maxChild = v
				}
				continue
			}
			stack = append(stack, &measureFrame{id: child, level: top.level + 1})
			continue
		}

		ret = m.MaxChainLength
		if ret <= top.maxChild {
			ret = top.maxChild + 1
			m.MaxChainLength = ret
		}
		m.Finish()
		stack = stack[:len(stack)-1]

		if len(stack) > 0 {
			parent := stack[len(stack)-1]
			if ret > parent.maxChild {
				parent.maxChild = ret
			}
		}
	}
	return ret
}

func (a *Analyzer) visit(id graph.ModuleID, level int) (int, bool) {
	m := a.g.Module(id)
	prev := m.Touch()
	if !prev.Has(graph.Touched) {
		return 0, false
	}
	if prev.Has(graph.Done) {
		return m.MaxChainLength, true
	}

	v := level * 2
	m.MaxChainLength = v
	a.cycles = append(a.cycles, CycleHit{Module: m.Name, Level: level, Value: v})
	slog.Debug("cyclic dependents chain", "module", m.Name, "level", level)
	return v, true
}

// sector counts the modules reachable from id through dependents edges,
// id included, and the elements they export. Traversal status is ignored.
func (a *Analyzer) sector(id graph.ModuleID) (domains, elements int) {
	seen := map[graph.ModuleID]bool{id: true}
	queue := []graph.ModuleID{id}
	for len(queue) > 0 {
		cur := a.g.Module(queue[0])
		queue = queue[1:]
		elements += cur.ExportedCount
		for i := 0; i < cur.Edges.Len(); i++ {
			next := cur.Edges.At(i)
			if seen[next] {
				continue
			}
			seen[next] = true
			queue = append(queue, next)
		}
	}
	return len(seen), elements
}

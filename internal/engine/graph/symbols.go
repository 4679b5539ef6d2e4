package graph

// SymbolIndex maps a symbol name to the single module that owns it. A later
// definition silently replaces the owner; every replaced owner is remembered
// so callers can surface the ambiguity.
type SymbolIndex struct {
	owners    map[string]ModuleID
	contested map[string][]ModuleID
	order     []string
}

type Conflict struct {
	Symbol string
	// Owners in definition order; the last one is the current owner.
	Owners []ModuleID
}

func NewSymbolIndex() *SymbolIndex {
	return &SymbolIndex{
		owners:    make(map[string]ModuleID),
		contested: make(map[string][]ModuleID),
	}
}

// Define registers id as the owner of name and reports the owner it replaced.
// Redefining a name by its current owner is not an overwrite.
func (x *SymbolIndex) Define(name string, id ModuleID) (prev ModuleID, overwritten bool) {
	prev, ok := x.owners[name]
	x.owners[name] = id
	if !ok {
		return NoModule, false
	}
	if prev == id {
		return prev, false
	}

	owners, seen := x.contested[name]
	if !seen {
		x.order = append(x.order, name)
		owners = []ModuleID{prev}
	}
	x.contested[name] = append(owners, id)
	return prev, true
}

func (x *SymbolIndex) Lookup(name string) (ModuleID, bool) {
	id, ok := x.owners[name]
	return id, ok
}

func (x *SymbolIndex) Len() int {
	return len(x.owners)
}

func (x *SymbolIndex) Conflicts() []Conflict {
	out := make([]Conflict, 0, len(x.order))
	for _, name := range x.order {
		owners := x.contested[name]
		out = append(out, Conflict{Symbol: name, Owners: append([]ModuleID(nil), owners...)})
	}
	return out
}

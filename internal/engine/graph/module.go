package graph

// ModuleID is a stable index into the Graph arena.
type ModuleID int

const NoModule ModuleID = -1

// Status is the tri-state traversal flag set. Done implies Touched.
type Status uint8

const (
	Untouched Status = 0
	Touched   Status = 1 << 0
	Done      Status = 1 << 1
)

func (s Status) Has(flag Status) bool {
	return s&flag == flag
}

func (s Status) String() string {
	switch {
	case s.Has(Done):
		return "done"
	case s.Has(Touched):
		return "touched"
	default:
		return "untouched"
	}
}

type Module struct {
	ID      ModuleID
	Name    string
	Path    string
	Linkage bool

	Status Status

	// Undefined is drained exactly once by the Builder.
	Undefined     []string
	ExportedCount int

	// Edges means "dependents" after a Reverse build and "dependencies"
	// after a Forward build.
	Edges EdgeSet

	MaxChainLength int

	// Broken is set when the module's object file could not be read.
	Broken error
}

// Touch sets Touched and returns the status held before the call.
func (m *Module) Touch() Status {
	prev := m.Status
	m.Status |= Touched
	return prev
}

func (m *Module) Finish() {
	m.Status |= Touched | Done
}

// EdgeSet keeps insertion order and rejects duplicate targets.
type EdgeSet struct {
	ids  []ModuleID
	seen map[ModuleID]struct{}
}

func (s *EdgeSet) Add(id ModuleID) bool {
	if s.seen == nil {
		s.seen = make(map[ModuleID]struct{})
	}
	if _, ok := s.seen[id]; ok {
		return false
	}
	s.seen[id] = struct{}{}
	s.ids = append(s.ids, id)
	return true
}

func (s *EdgeSet) Has(id ModuleID) bool {
	_, ok := s.seen[id]
	return ok
}

func (s *EdgeSet) Len() int {
	return len(s.ids)
}

func (s *EdgeSet) At(i int) ModuleID {
	return s.ids[i]
}

func (s *EdgeSet) IDs() []ModuleID {
	out := make([]ModuleID, len(s.ids))
	copy(out, s.ids)
	return out
}

func (s *EdgeSet) Clear() {
	s.ids = nil
	s.seen = nil
}

package dag

import (
	"errors"
	"fmt"
)

// New creates and returns an initialized, empty Graph.
func New() *Graph {
	return &Graph{
		targets: make(map[string]*Target),
	}
}

// CreateTarget registers a new target under name. It fails with a
// *DuplicateTargetError if the name is taken, in which case the graph is
// left unchanged.
func (g *Graph) CreateTarget(name string) (*Target, error) {
	if name == "" {
		return nil, errors.New("target name must not be empty")
	}

	g.mutex.Lock()
	defer g.mutex.Unlock()

	if g.frozen {
		return nil, fmt.Errorf("cannot create target %q: %w", name, ErrGraphFrozen)
	}
	if _, ok := g.targets[name]; ok {
		return nil, &DuplicateTargetError{Name: name}
	}

	t := &Target{graph: g, name: name, index: len(g.order)}
	g.targets[name] = t
	g.order = append(g.order, t)
	return t, nil
}

// DependsOn makes the target called name depend on each of deps, in order.
// The dependencies complete before the target's own actions start.
func (g *Graph) DependsOn(name string, deps ...string) error {
	return g.addEdges(name, deps, false)
}

// DependsOnAsync is DependsOn for dependencies that may run concurrently
// with each other and with the target's synchronous dependencies.
func (g *Graph) DependsOnAsync(name string, deps ...string) error {
	return g.addEdges(name, deps, true)
}

// addEdges validates the whole batch before touching the graph, then adds
// the edges and rolls them back if they closed a cycle.
func (g *Graph) addEdges(name string, deps []string, async bool) error {
	g.mutex.Lock()
	defer g.mutex.Unlock()

	if g.frozen {
		return fmt.Errorf("cannot add dependencies to %q: %w", name, ErrGraphFrozen)
	}

	t, ok := g.targets[name]
	if !ok {
		return &UnknownTargetError{Name: name}
	}

	var added []*Target
	for _, depName := range deps {
		d, ok := g.targets[depName]
		if !ok {
			return &UnknownTargetError{Name: depName, From: name}
		}
		if d == t {
			return &CycleError{Path: []string{name, name}}
		}
		if t.dependsOn(d) || containsTarget(added, d) {
			continue
		}
		added = append(added, d)
	}
	if len(added) == 0 {
		return nil
	}

	syncLen, asyncLen := len(t.deps), len(t.asyncDeps)
	if async {
		t.asyncDeps = append(t.asyncDeps, added...)
	} else {
		t.deps = append(t.deps, added...)
	}

	// The graph was acyclic before this call, so any new cycle runs
	// through t.
	if path := newCycleSearch().from(t); path != nil {
		t.deps = t.deps[:syncLen]
		t.asyncDeps = t.asyncDeps[:asyncLen]
		return &CycleError{Path: path}
	}
	return nil
}

// Target returns the target registered under name.
func (g *Graph) Target(name string) (*Target, bool) {
	g.mutex.RLock()
	defer g.mutex.RUnlock()
	t, ok := g.targets[name]
	return t, ok
}

// Targets returns every target in declaration order.
func (g *Graph) Targets() []*Target {
	g.mutex.RLock()
	defer g.mutex.RUnlock()
	return append([]*Target(nil), g.order...)
}

// Defaults returns the default targets in declaration order.
func (g *Graph) Defaults() []*Target {
	g.mutex.RLock()
	defer g.mutex.RUnlock()
	var out []*Target
	for _, t := range g.order {
		if t.isDefault {
			out = append(out, t)
		}
	}
	return out
}

// Len returns the number of targets.
func (g *Graph) Len() int {
	g.mutex.RLock()
	defer g.mutex.RUnlock()
	return len(g.order)
}

// Freeze ends the building phase. It is idempotent.
func (g *Graph) Freeze() {
	g.mutex.Lock()
	defer g.mutex.Unlock()
	g.frozen = true
}

// Frozen reports whether Freeze was called.
func (g *Graph) Frozen() bool {
	g.mutex.RLock()
	defer g.mutex.RUnlock()
	return g.frozen
}

// DetectCycles checks the whole graph and returns a *CycleError for the first
// cycle found. Edges are checked as they are added, so this only fails if
// that check was bypassed.
func (g *Graph) DetectCycles() error {
	g.mutex.RLock()
	defer g.mutex.RUnlock()

	search := newCycleSearch()
	for _, t := range g.order {
		if path := search.from(t); path != nil {
			return &CycleError{Path: path}
		}
	}
	return nil
}

func containsTarget(list []*Target, t *Target) bool {
	for _, x := range list {
		if x == t {
			return true
		}
	}
	return false
}

type color int

const (
	white color = iota // unvisited
	gray               // on the current DFS stack
	black              // fully explored, not part of a cycle
)

// cycleSearch is a depth-first search with white/gray/black marks. Marks are
// shared across calls to from, so a whole-graph scan visits each target once.
type cycleSearch struct {
	marks map[*Target]color
	stack []*Target
}

func newCycleSearch() *cycleSearch {
	return &cycleSearch{marks: make(map[*Target]color)}
}

// from explores everything reachable from t along dependency edges and
// returns the names on the first cycle found, or nil.
func (s *cycleSearch) from(t *Target) []string {
	switch s.marks[t] {
	case black:
		return nil
	case gray:
		return s.witness(t)
	}

	s.marks[t] = gray
	s.stack = append(s.stack, t)
	for _, d := range t.edges() {
		if path := s.from(d); path != nil {
			return path
		}
	}
	s.stack = s.stack[:len(s.stack)-1]
	s.marks[t] = black
	return nil
}

// witness slices the cycle that re-enters t out of the current stack.
func (s *cycleSearch) witness(t *Target) []string {
	start := 0
	for i, x := range s.stack {
		if x == t {
			start = i
			break
		}
	}
	path := make([]string, 0, len(s.stack)-start+1)
	for _, x := range s.stack[start:] {
		path = append(path, x.name)
	}
	return append(path, t.name)
}

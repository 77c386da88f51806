package scheduler

import (
	"container/heap"
	"errors"
	"fmt"

	"github.com/vk/buildgridgo/internal/dag"
)

var (
	// ErrNoTargets is returned when nothing was requested and the graph has
	// no default targets.
	ErrNoTargets = errors.New("no targets requested and no default targets defined")
	// ErrHiddenTarget is returned when a hidden target is requested directly.
	ErrHiddenTarget = errors.New("hidden targets can only run as dependencies")
)

// Plan is the resolved, ordered set of targets for one run.
type Plan struct {
	requested []*dag.Target
	order     []*dag.Target
	deferred  map[string]bool
}

// NewPlan resolves names against g and orders their transitive closure. With
// no names the graph's default targets are used. The graph is frozen.
func NewPlan(g *dag.Graph, names ...string) (*Plan, error) {
	g.Freeze()

	roots, err := resolve(g, names)
	if err != nil {
		return nil, err
	}

	closure := closureOf(roots)
	order, err := topoOrder(closure)
	if err != nil {
		return nil, err
	}

	return &Plan{
		requested: roots,
		order:     order,
		deferred:  deferredTargets(roots, closure),
	}, nil
}

// Requested returns the resolved root targets.
func (p *Plan) Requested() []*dag.Target { return append([]*dag.Target(nil), p.requested...) }

// Targets returns every planned target with each dependency before its
// dependents.
func (p *Plan) Targets() []*dag.Target { return append([]*dag.Target(nil), p.order...) }

// Names returns the planned target names in order.
func (p *Plan) Names() []string {
	out := make([]string, len(p.order))
	for i, t := range p.order {
		out[i] = t.Name()
	}
	return out
}

// Len returns the number of planned targets.
func (p *Plan) Len() int { return len(p.order) }

// Deferred reports whether the named target is only reachable through async
// edges and is therefore started by its dependents.
func (p *Plan) Deferred(name string) bool { return p.deferred[name] }

func resolve(g *dag.Graph, names []string) ([]*dag.Target, error) {
	if len(names) == 0 {
		defaults := g.Defaults()
		if len(defaults) == 0 {
			return nil, ErrNoTargets
		}
		return defaults, nil
	}

	seen := make(map[string]bool, len(names))
	roots := make([]*dag.Target, 0, len(names))
	for _, name := range names {
		if seen[name] {
			continue
		}
		seen[name] = true

		t, ok := g.Target(name)
		if !ok {
			return nil, &dag.UnknownTargetError{Name: name}
		}
		if t.Hidden() {
			return nil, fmt.Errorf("target %q: %w", name, ErrHiddenTarget)
		}
		roots = append(roots, t)
	}
	return roots, nil
}

// closureOf collects every target reachable from roots over sync and async
// edges.
func closureOf(roots []*dag.Target) map[*dag.Target]bool {
	closure := make(map[*dag.Target]bool)
	var visit func(t *dag.Target)
	visit = func(t *dag.Target) {
		if closure[t] {
			return
		}
		closure[t] = true
		for _, d := range t.Dependencies() {
			visit(d)
		}
		for _, d := range t.AsyncDependencies() {
			visit(d)
		}
	}
	for _, r := range roots {
		visit(r)
	}
	return closure
}

// deferredTargets returns the closure members not reachable from roots
// through sync edges alone.
func deferredTargets(roots []*dag.Target, closure map[*dag.Target]bool) map[string]bool {
	direct := make(map[*dag.Target]bool)
	var visit func(t *dag.Target)
	visit = func(t *dag.Target) {
		if direct[t] {
			return
		}
		direct[t] = true
		for _, d := range t.Dependencies() {
			visit(d)
		}
	}
	for _, r := range roots {
		visit(r)
	}

	deferred := make(map[string]bool)
	for t := range closure {
		if !direct[t] {
			deferred[t.Name()] = true
		}
	}
	return deferred
}

// targetHeap is a min-heap of targets keyed by declaration index.
type targetHeap []*dag.Target

func (h targetHeap) Len() int           { return len(h) }
func (h targetHeap) Less(i, j int) bool { return h[i].Index() < h[j].Index() }
func (h targetHeap) Swap(i, j int)      { h[i], h[j] = h[j], h[i] }
func (h *targetHeap) Push(x any)        { *h = append(*h, x.(*dag.Target)) }
func (h *targetHeap) Pop() any {
	old := *h
	n := len(old)
	x := old[n-1]
	*h = old[:n-1]
	return x
}

// topoOrder runs Kahn's algorithm over the closure. The ready set is a
// min-heap on declaration index, which makes the order deterministic.
func topoOrder(closure map[*dag.Target]bool) ([]*dag.Target, error) {
	pending := make(map[*dag.Target]int, len(closure))
	dependents := make(map[*dag.Target][]*dag.Target, len(closure))
	for t := range closure {
		deps := append(t.Dependencies(), t.AsyncDependencies()...)
		pending[t] = len(deps)
		for _, d := range deps {
			dependents[d] = append(dependents[d], t)
		}
	}

	ready := &targetHeap{}
	for t, n := range pending {
		if n == 0 {
			heap.Push(ready, t)
		}
	}

	order := make([]*dag.Target, 0, len(closure))
	for ready.Len() > 0 {
		t := heap.Pop(ready).(*dag.Target)
		order = append(order, t)
		for _, dependent := range dependents[t] {
			pending[dependent]--
			if pending[dependent] == 0 {
				heap.Push(ready, dependent)
			}
		}
	}

	if len(order) != len(closure) {
		// Unreachable for graphs built through dag.Graph.
		return nil, fmt.Errorf("cannot order targets: %w", dag.ErrCycle)
	}
	return order, nil
}

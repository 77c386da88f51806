package dag

import (
	"context"
	"sync"

	"github.com/vk/buildgridgo/internal/buildctx"
)

// ActionFunc is the body of an action. It receives the run's context and the
// shared execution context.
type ActionFunc func(ctx context.Context, bc *buildctx.Context) error

// Action is one unit of work inside a target.
type Action struct {
	Name  string
	Async bool
	Run   ActionFunc
}

// Graph is a collection of targets and the edges between them. All
// operations on the graph are concurrency-safe.
type Graph struct {
	mutex sync.RWMutex
	// targets indexes every target by its unique name.
	targets map[string]*Target
	// order keeps targets in declaration order.
	order  []*Target
	frozen bool
}

// Target is a named unit of work. Targets are created through
// Graph.CreateTarget and configured with the fluent setters.
type Target struct {
	graph *Graph
	name  string
	index int

	description string
	hidden      bool
	isDefault   bool

	deps      []*Target
	asyncDeps []*Target
	actions   []*Action
}

// Package dag is the build graph layer. It owns the Target type and the Graph
// that accumulates targets, their actions and the dependency edges between
// them.
//
// Edges are validated the moment they are registered: a dependency on an
// unknown target or one that would close a cycle is rejected and leaves the
// graph untouched. Because of this a Graph is acyclic at every point of its
// life, and the scheduler can order it without re-checking.
//
// Building and running are separate phases. Once a graph is frozen (the
// scheduler does this when it plans a run) no further targets or edges can
// be added.
package dag

// Package scheduler turns a build graph and a list of requested target names
// into an execution Plan.
//
// A plan holds the transitive closure of the requested targets in a
// topological order. Independent targets keep the order they were declared
// in, so the same script and request always produce the same plan. Targets
// that are only reachable through async edges are marked deferred: the
// executor starts them from their dependents rather than from the main loop.
package scheduler

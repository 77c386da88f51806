// Package buildctx holds the per-run execution context shared by every action
// of a build: the property store, the read-only script arguments, the log
// sink and the run identity.
//
// A Context is created fresh for each invocation and passed explicitly to
// actions. Nothing in it is global, and nothing written to it is rolled back
// when a run fails.
package buildctx

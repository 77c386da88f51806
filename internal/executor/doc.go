// Package executor runs a scheduler.Plan.
//
// The main loop runs the requested targets in plan order, and each target
// starts its own dependencies. Every target is run through a
// memoized future keyed by its name, so a target shared by several requested
// targets runs at most once per run. Running a target means:
//
//  1. start its async dependencies as concurrent futures,
//  2. run its sync dependencies in order,
//  3. wait for the async dependencies,
//  4. run its actions: sync ones in order, async ones on a bounded pool,
//     and wait for all of them.
//
// The first failure cancels the run's context. No new targets or actions
// start after that; work already in flight is waited for but cannot change
// the outcome. Run returns the first error, which names the failing target.
package executor

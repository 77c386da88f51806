/*
Package builder turns a format-agnostic config.Model into a dag.Graph whose
actions are backed by registered action handlers.

Construction runs in two passes:

 1. Target creation: every target in the model is created in declaration
    order with its description, hidden and default flags. Each action block
    is resolved against the registry and bound into a dag.ActionFunc. An
    unknown action type fails the build, naming the target and the action.

 2. Dependency linking: depends_on and depends_on_async edges are added once
    every target exists, so scripts may reference targets declared later.
    The dag package rejects unknown targets and cycles as the edges are
    added.

Bound actions evaluate their arguments only when they run. An argument can
therefore read properties written by actions that finished earlier in the
same run.
*/
package builder

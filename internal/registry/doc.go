// Package registry provides the central "glue" for the action module system.
//
// The Registry maps the action type names used in build scripts (e.g.
// `action "exec" { ... }`) to the compiled Go handlers that implement them.
// Modules contribute handlers through the Module interface.
//
// Each handler declares its arguments as a Go struct whose fields carry a
// `bggo:"name"` tag (or `bggo:"name,optional"`). During startup the registry
// is validated so that every input struct can actually be bound, catching
// mistakes in module code before any script runs.
package registry

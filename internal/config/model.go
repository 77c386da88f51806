package config

import (
	"github.com/hashicorp/hcl/v2"
)

// Model is the unified, format-agnostic representation of a build script.
type Model struct {
	// Properties are evaluated in order before any target runs.
	Properties []*Property
	// Targets are kept in declaration order, which the scheduler uses to
	// break ties.
	Targets []*Target
}

// Property is a named value seeded into the run's property store.
type Property struct {
	Name   string
	Expr   hcl.Expression
	Source string
}

// Target is the format-agnostic representation of a `target` block.
type Target struct {
	Name           string
	Description    string
	Hidden         bool
	Default        bool
	DependsOn      []string
	DependsOnAsync []string
	Actions        []*Action
	Source         string
}

// Action is one `action` block inside a target.
type Action struct {
	// Type selects the registered handler.
	Type string
	// Name identifies the action in logs and errors. It defaults to Type.
	Name  string
	Async bool
	// SetProperty, when set, names the property the handler's output is
	// stored under.
	SetProperty string
	// Arguments are evaluated lazily, when the action runs.
	Arguments map[string]hcl.Expression
}

// Target returns the target declared under name, if any.
func (m *Model) Target(name string) (*Target, bool) {
	for _, t := range m.Targets {
		if t.Name == name {
			return t, true
		}
	}
	return nil, false
}

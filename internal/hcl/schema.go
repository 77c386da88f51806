package hcl

import "github.com/hashicorp/hcl/v2"

// fileRoot is a struct used to decode all possible top-level blocks from any
// file. Unknown blocks and attributes are rejected by the decoder.
type fileRoot struct {
	Properties []*propertiesBlock `hcl:"properties,block"`
	Targets    []*targetBlock     `hcl:"target,block"`
}

type propertiesBlock struct {
	Body hcl.Body `hcl:",remain"`
}

type targetBlock struct {
	Name           string         `hcl:"name,label"`
	Description    string         `hcl:"description,optional"`
	Hidden         bool           `hcl:"hidden,optional"`
	Default        bool           `hcl:"default,optional"`
	DependsOn      []string       `hcl:"depends_on,optional"`
	DependsOnAsync []string       `hcl:"depends_on_async,optional"`
	Actions        []*actionBlock `hcl:"action,block"`
}

type actionBlock struct {
	Type        string          `hcl:"type,label"`
	Name        string          `hcl:"name,optional"`
	Async       bool            `hcl:"async,optional"`
	SetProperty string          `hcl:"set_property,optional"`
	Arguments   *argumentsBlock `hcl:"arguments,block"`
}

type argumentsBlock struct {
	Body hcl.Body `hcl:",remain"`
}

package env_vars

import (
	"context"
	"os"
	"strings"

	"github.com/vk/buildgridgo/internal/buildctx"
	"github.com/vk/buildgridgo/internal/registry"
)

// Module implements the registry.Module interface for this package.
type Module struct{}

// Input selects which variables are returned.
type Input struct {
	Prefix string `bggo:"prefix,optional"`
}

// Output defines the data structure returned by the action.
type Output struct {
	All map[string]string `cty:"all" mapstructure:"all"`
}

// EnvVars returns the process environment, restricted to names starting
// with Prefix when one is given.
func EnvVars(_ context.Context, _ *buildctx.Context, input *Input) (*Output, error) {
	envMap := make(map[string]string)
	for _, e := range os.Environ() {
		k, v, ok := strings.Cut(e, "=")
		if !ok || !strings.HasPrefix(k, input.Prefix) {
			continue
		}
		envMap[k] = v
	}
	return &Output{All: envMap}, nil
}

// Register registers the handler with the engine.
func (m *Module) Register(r *registry.Registry) {
	r.RegisterAction("env_vars", registry.Typed("Reads environment variables.", EnvVars))
}

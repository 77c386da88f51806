// Package set_properties stores script values into the run's properties.
package set_properties

import (
	"context"
	"maps"
	"slices"

	"github.com/vk/buildgridgo/internal/buildctx"
	"github.com/vk/buildgridgo/internal/ctxlog"
	"github.com/vk/buildgridgo/internal/registry"
)

// Module implements the registry.Module interface for this package.
type Module struct{}

// Input defines the arguments for the set_properties action.
type Input struct {
	Values map[string]any `bggo:"values"`
}

// Set writes every value into the property store, in key order.
func Set(ctx context.Context, bc *buildctx.Context, input *Input) (any, error) {
	logger := ctxlog.FromContext(ctx)
	for _, k := range slices.Sorted(maps.Keys(input.Values)) {
		bc.Properties.Set(k, input.Values[k])
		logger.Debug("Set property", "property", k)
	}
	return nil, nil
}

// Register registers the handler with the engine.
func (m *Module) Register(r *registry.Registry) {
	r.RegisterAction("set_properties", registry.Typed("Sets build properties.", Set))
}

package print

import (
	"context"
	"fmt"
	"maps"
	"slices"

	"github.com/vk/buildgridgo/internal/buildctx"
	"github.com/vk/buildgridgo/internal/ctxlog"
	"github.com/vk/buildgridgo/internal/registry"
)

// Module implements the registry.Module interface for this package.
type Module struct{}

// Input defines the arguments for the print action.
type Input struct {
	Message string         `bggo:"message"`
	Values  map[string]any `bggo:"values,optional"`
}

// Print writes the message, then each value on its own line, to the run's
// output.
func Print(ctx context.Context, bc *buildctx.Context, input *Input) (any, error) {
	ctxlog.FromContext(ctx).Debug("Printing message", "values", len(input.Values))

	if _, err := fmt.Fprintln(bc.Out, input.Message); err != nil {
		return nil, err
	}
	for _, k := range slices.Sorted(maps.Keys(input.Values)) {
		if _, err := fmt.Fprintf(bc.Out, "      %s = %v\n", k, input.Values[k]); err != nil {
			return nil, err
		}
	}
	return nil, nil
}

// Register registers the handler with the engine.
func (m *Module) Register(r *registry.Registry) {
	r.RegisterAction("print", registry.Typed("Prints a message to the build output.", Print))
}

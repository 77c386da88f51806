package config

import (
	"context"

	"github.com/hashicorp/hcl/v2"
	"github.com/zclconf/go-cty/cty"

	"github.com/vk/buildgridgo/internal/buildctx"
)

// Loader is the interface for a format-specific configuration loader.
type Loader interface {
	// Load reads build scripts from the given paths, translates them into
	// the format-agnostic model, and returns a matching Converter.
	Load(ctx context.Context, paths ...string) (*Model, Converter, error)
}

// Converter is the interface for a format-specific data binding and type
// conversion implementation. It acts as the bridge between the raw script
// and the Go types used by action modules.
type Converter interface {
	// EvalContext exposes the run's properties, script arguments and
	// environment to expressions evaluated on behalf of target.
	EvalContext(bc *buildctx.Context, target string) (*hcl.EvalContext, error)

	// DecodeArguments evaluates args and binds them onto input, a pointer to
	// a struct with `bggo` tags.
	DecodeArguments(ctx context.Context, input any, args map[string]hcl.Expression, evalCtx *hcl.EvalContext) error

	// EvalValue evaluates a single expression into a native Go value.
	EvalValue(ctx context.Context, expr hcl.Expression, evalCtx *hcl.EvalContext) (any, error)

	// ToCtyValue converts a native Go value (like the output of an action)
	// into its equivalent cty.Value.
	ToCtyValue(v any) (cty.Value, error)
}

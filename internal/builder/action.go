package builder

import (
	"context"
	"fmt"

	"github.com/vk/buildgridgo/internal/buildctx"
	"github.com/vk/buildgridgo/internal/config"
	"github.com/vk/buildgridgo/internal/ctxlog"
	"github.com/vk/buildgridgo/internal/dag"
	"github.com/vk/buildgridgo/internal/registry"
)

// bindAction wraps a registered handler into a dag.ActionFunc. Arguments
// are evaluated against the properties present when the action starts.
func bindAction(target string, ac *config.Action, def *registry.RegisteredAction, conv config.Converter) dag.ActionFunc {
	return func(ctx context.Context, bc *buildctx.Context) error {
		ctx, logger := ctxlog.WithAttrs(ctx, "type", ac.Type)

		var input any
		if def.NewInput != nil {
			input = def.NewInput()
			evalCtx, err := conv.EvalContext(bc, target)
			if err != nil {
				return err
			}
			if err := conv.DecodeArguments(ctx, input, ac.Arguments, evalCtx); err != nil {
				return err
			}
		} else if len(ac.Arguments) > 0 {
			return fmt.Errorf("action type %q takes no arguments", ac.Type)
		}

		output, err := def.Fn(ctx, bc, input)
		if err != nil {
			return err
		}

		if ac.SetProperty != "" {
			bc.Properties.Set(ac.SetProperty, output)
			logger.Debug("Stored action output.", "property", ac.SetProperty)
		}
		return nil
	}
}

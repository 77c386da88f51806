package builder

import (
	"context"
	"fmt"

	"github.com/vk/buildgridgo/internal/buildctx"
	"github.com/vk/buildgridgo/internal/config"
	"github.com/vk/buildgridgo/internal/ctxlog"
)

// SeedProperties evaluates the script's properties in declaration order and
// stores them in bc. Each expression sees the ones evaluated before it.
func SeedProperties(ctx context.Context, model *config.Model, bc *buildctx.Context, conv config.Converter) error {
	logger := ctxlog.FromContext(ctx)
	for _, p := range model.Properties {
		evalCtx, err := conv.EvalContext(bc, "")
		if err != nil {
			return err
		}
		v, err := conv.EvalValue(ctx, p.Expr, evalCtx)
		if err != nil {
			return fmt.Errorf("property %q at %s: %w", p.Name, p.Source, err)
		}
		bc.Properties.Set(p.Name, v)
		logger.Debug("Seeded property.", "property", p.Name)
	}
	return nil
}

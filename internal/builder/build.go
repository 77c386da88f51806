package builder

import (
	"context"
	"fmt"

	"github.com/vk/buildgridgo/internal/config"
	"github.com/vk/buildgridgo/internal/ctxlog"
	"github.com/vk/buildgridgo/internal/dag"
	"github.com/vk/buildgridgo/internal/registry"
)

// Build constructs a validated dependency graph from a config model.
func Build(ctx context.Context, model *config.Model, r *registry.Registry, conv config.Converter) (*dag.Graph, error) {
	logger := ctxlog.FromContext(ctx)
	logger.Debug("Build: Starting graph construction.", "targets", len(model.Targets))
	g := dag.New()

	for _, tc := range model.Targets {
		if err := createTarget(g, tc, r, conv); err != nil {
			return nil, err
		}
	}
	logger.Debug("Build: Target creation complete.", "target_count", g.Len())

	for _, tc := range model.Targets {
		if len(tc.DependsOn) > 0 {
			if err := g.DependsOn(tc.Name, tc.DependsOn...); err != nil {
				return nil, fmt.Errorf("linking %s: %w", tc.Source, err)
			}
		}
		if len(tc.DependsOnAsync) > 0 {
			if err := g.DependsOnAsync(tc.Name, tc.DependsOnAsync...); err != nil {
				return nil, fmt.Errorf("linking %s: %w", tc.Source, err)
			}
		}
	}
	logger.Debug("Build: Dependency linking complete.")

	logger.Info("Build: Graph construction successful.", "targets", g.Len())
	return g, nil
}

func createTarget(g *dag.Graph, tc *config.Target, r *registry.Registry, conv config.Converter) error {
	t, err := g.CreateTarget(tc.Name)
	if err != nil {
		return fmt.Errorf("%s: %w", tc.Source, err)
	}
	if tc.Description != "" {
		t.SetDescription(tc.Description)
	}
	if tc.Hidden {
		t.SetAsHidden()
	}
	if tc.Default {
		t.SetAsDefault()
	}

	for _, ac := range tc.Actions {
		def, ok := r.Action(ac.Type)
		if !ok {
			return fmt.Errorf("target %q, action %q: unknown action type %q", tc.Name, ac.Name, ac.Type)
		}
		fn := bindAction(tc.Name, ac, def, conv)
		if ac.Async {
			t.DoAsync(ac.Name, fn)
		} else {
			t.Do(ac.Name, fn)
		}
	}
	return nil
}

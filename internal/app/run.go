package app

import (
	"context"
	"fmt"
	"time"

	"github.com/vk/buildgridgo/internal/buildctx"
	"github.com/vk/buildgridgo/internal/builder"
	"github.com/vk/buildgridgo/internal/ctxlog"
	"github.com/vk/buildgridgo/internal/executor"
	"github.com/vk/buildgridgo/internal/scheduler"
)

// Run executes the configured command.
func (a *App) Run(ctx context.Context) error {
	ctx = ctxlog.WithLogger(ctx, a.logger)
	a.logger.Debug("App.Run method started.", "command", a.config.Command)

	switch a.config.Command {
	case CommandList:
		return a.list()
	case CommandPlan:
		plan, err := scheduler.NewPlan(a.graph, a.config.Targets...)
		if err != nil {
			return fmt.Errorf("failed to plan targets: %w", err)
		}
		_, err = fmt.Fprintln(a.outW, renderPlan(plan))
		return err
	default:
		return a.run(ctx)
	}
}

func (a *App) run(ctx context.Context) error {
	plan, err := scheduler.NewPlan(a.graph, a.config.Targets...)
	if err != nil {
		return fmt.Errorf("failed to plan targets: %w", err)
	}

	bc := buildctx.New(a.config.ScriptArgs, a.logger, buildctx.WithOutput(a.outW))
	if err := builder.SeedProperties(ctx, a.model, bc, a.converter); err != nil {
		return fmt.Errorf("failed to evaluate properties: %w", err)
	}

	exec := executor.New(plan, bc, executor.WithWorkers(a.config.WorkerCount))
	a.mu.Lock()
	a.current = exec
	a.mu.Unlock()

	if a.config.HealthcheckPort > 0 {
		a.startHealthcheckServer(ctx, a.config.HealthcheckPort)
		defer a.closeHealthcheckServer(ctx)
	}

	a.logger.Info("🚀 Starting build.", "run_id", bc.RunID, "targets", plan.Names(), "workers", a.config.WorkerCount)
	start := time.Now()
	runErr := exec.Run(ctx)

	fmt.Fprintln(a.outW, renderSummary(exec.Snapshot()))
	if runErr != nil {
		a.logger.Error("🏁 Build failed.", "duration", time.Since(start).Round(time.Millisecond))
		return fmt.Errorf("build failed: %w", runErr)
	}
	a.logger.Info("🏁 Build finished.", "duration", time.Since(start).Round(time.Millisecond))
	return nil
}

func (a *App) list() error {
	_, err := fmt.Fprintln(a.outW, renderTargets(a.graph.Targets()))
	return err
}

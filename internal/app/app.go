package app

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sync"

	"github.com/vk/buildgridgo/internal/builder"
	"github.com/vk/buildgridgo/internal/config"
	"github.com/vk/buildgridgo/internal/ctxlog"
	"github.com/vk/buildgridgo/internal/dag"
	"github.com/vk/buildgridgo/internal/executor"
	"github.com/vk/buildgridgo/internal/registry"
)

// App encapsulates the application's dependencies, configuration, and lifecycle.
type App struct {
	outW      io.Writer
	logger    *slog.Logger
	config    *Config
	registry  *registry.Registry
	model     *config.Model
	converter config.Converter
	graph     *dag.Graph

	mu         sync.Mutex
	current    *executor.Executor
	httpServer *http.Server
}

// NewApp loads the build script, registers the action modules and builds
// the target graph. With no modules given, the core modules are used.
func NewApp(outW io.Writer, cfg *Config, loader config.Loader, modules ...registry.Module) (*App, error) {
	logger := newLogger(cfg, outW)
	ctx := ctxlog.WithLogger(context.Background(), logger)
	logger.Debug("Logger configured successfully.")

	model, converter, err := loader.Load(ctx, cfg.ScriptPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load build script: %w", err)
	}
	logger.Debug("Build script loaded and translated into unified model.", "targets", len(model.Targets))

	reg := registry.New()
	if len(modules) == 0 {
		modules = coreModules()
	}
	reg.Load(modules...)
	logger.Debug("All Go modules registered.", "count", len(modules))

	if err := reg.ValidateRegistry(ctx); err != nil {
		return nil, err
	}
	logger.Debug("Registry validation passed.")

	graph, err := builder.Build(ctx, model, reg, converter)
	if err != nil {
		return nil, fmt.Errorf("failed to build target graph: %w", err)
	}

	return &App{
		outW:      outW,
		logger:    logger,
		config:    cfg,
		registry:  reg,
		model:     model,
		converter: converter,
		graph:     graph,
	}, nil
}

// Registry returns the application's registry. This is primarily for testing.
func (a *App) Registry() *registry.Registry {
	return a.registry
}

// Graph returns the target graph built from the script.
func (a *App) Graph() *dag.Graph {
	return a.graph
}

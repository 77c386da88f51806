package app

import (
	"errors"
	"fmt"

	"github.com/vk/buildgridgo/internal/buildctx"
	"github.com/vk/buildgridgo/internal/executor"
)

// Command selects what the application does with the loaded script.
type Command string

const (
	CommandRun  Command = "run"
	CommandPlan Command = "plan"
	CommandList Command = "list"
)

// Config holds all the necessary configuration for an App instance to run.
type Config struct {
	ScriptPath string // .hcl file or directory
	Command    Command
	Targets    []string
	ScriptArgs buildctx.ScriptArgs

	LogFormat       string
	LogLevel        string
	HealthcheckPort int
	WorkerCount     int
}

// NewConfig validates cfg and fills in defaults.
func NewConfig(cfg Config) (*Config, error) {
	if cfg.ScriptPath == "" {
		return nil, errors.New("ScriptPath is a required configuration field and cannot be empty")
	}

	switch cfg.Command {
	case "":
		cfg.Command = CommandRun
	case CommandRun, CommandPlan:
	case CommandList:
		if len(cfg.Targets) > 0 {
			return nil, errors.New("list does not take target names")
		}
	default:
		return nil, fmt.Errorf("unknown command %q: expected run, plan or list", cfg.Command)
	}

	if cfg.WorkerCount == 0 {
		cfg.WorkerCount = executor.DefaultWorkers
	}
	if cfg.WorkerCount < 0 {
		return nil, fmt.Errorf("worker count must be positive, got %d", cfg.WorkerCount)
	}
	if cfg.HealthcheckPort < 0 || cfg.HealthcheckPort > 65535 {
		return nil, fmt.Errorf("invalid healthcheck port %d", cfg.HealthcheckPort)
	}
	if cfg.ScriptArgs == nil {
		cfg.ScriptArgs = buildctx.ScriptArgs{}
	}

	return &cfg, nil
}

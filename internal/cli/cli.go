package cli

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/vk/buildgridgo/internal/app"
	"github.com/vk/buildgridgo/internal/buildctx"
	"github.com/vk/buildgridgo/internal/executor"
)

// ExitError is a custom error type that includes a specific exit code.
type ExitError struct {
	Code    int
	Message string
}

// Error implements the error interface for ExitError.
func (e *ExitError) Error() string {
	return e.Message
}

func usageError(format string, args ...any) *ExitError {
	return &ExitError{Code: 2, Message: fmt.Sprintf(format, args...)}
}

// Parse processes command-line arguments. It returns a populated Config,
// a boolean indicating if the program should exit cleanly, or an ExitError.
func Parse(args []string, output io.Writer) (*app.Config, bool, error) {
	slog.Debug("CLI parser started.")
	flagSet := flag.NewFlagSet("buildgridgo", flag.ContinueOnError)
	flagSet.SetOutput(output)

	flagSet.Usage = func() {
		fmt.Fprint(output, `
BuildGridGo - A build target graph orchestrator.

Usage:
  buildgridgo [options] run  [TARGET ...] [-key=value ...]
  buildgridgo [options] plan [TARGET ...] [-key=value ...]
  buildgridgo [options] list

Commands:
  run    Runs the given targets, or the default targets when none are named.
  plan   Prints the execution order without running anything.
  list   Lists the visible targets.

Arguments after the command that start with '-' are script arguments,
readable in scripts as arg.<key>. Everything else is a target name.

Options:
`)
		flagSet.PrintDefaults()
	}

	scriptFlag := flagSet.String("script", "build.hcl", "Path to the build script file or a directory of .hcl files.")
	sFlag := flagSet.String("s", "", "Path to the build script (shorthand).")
	healthPortFlag := flagSet.Int("healthcheck-port", 0, "Port for the HTTP health check server. 0 is disabled.")
	logFormatFlag := flagSet.String("log-format", "text", "Log output format. Options: 'text' or 'json'.")
	logLevelFlag := flagSet.String("log-level", "info", "Set the logging level. Options: 'debug', 'info', 'warn', 'error'.")
	workersFlag := flagSet.Int("workers", executor.DefaultWorkers, "Number of async actions allowed to run at once.")

	if err := flagSet.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return nil, true, nil
		}
		return nil, false, &ExitError{Code: 2, Message: err.Error()}
	}
	slog.Debug("Arguments parsed successfully.")

	path := *scriptFlag
	if *sFlag != "" {
		path = *sFlag
	}

	command := app.CommandRun
	rest := flagSet.Args()
	if len(rest) > 0 {
		command = app.Command(rest[0])
		rest = rest[1:]
		switch command {
		case app.CommandRun, app.CommandPlan, app.CommandList:
		default:
			flagSet.Usage()
			return nil, false, usageError("unknown command %q: expected run, plan or list", string(command))
		}
	}

	var targets, rawArgs []string
	for _, arg := range rest {
		if buildctx.IsScriptArg(arg) {
			rawArgs = append(rawArgs, arg)
		} else {
			targets = append(targets, arg)
		}
	}
	scriptArgs, err := buildctx.ParseScriptArgs(rawArgs)
	if err != nil {
		return nil, false, usageError("%v", err)
	}
	slog.Debug("Command line split.", "command", command, "targets", targets, "script_args", scriptArgs.Keys())

	logFormat := strings.ToLower(*logFormatFlag)
	if logFormat != "text" && logFormat != "json" {
		return nil, false, usageError("invalid log-format: must be 'text' or 'json'")
	}

	logLevel := strings.ToLower(*logLevelFlag)
	switch logLevel {
	case "debug", "info", "warn", "error":
	default:
		return nil, false, usageError("invalid log-level: must be 'debug', 'info', 'warn', or 'error'")
	}
	if *workersFlag < 1 {
		return nil, false, usageError("invalid workers: must be at least 1")
	}

	config, err := app.NewConfig(app.Config{
		ScriptPath:      path,
		Command:         command,
		Targets:         targets,
		ScriptArgs:      scriptArgs,
		HealthcheckPort: *healthPortFlag,
		LogFormat:       logFormat,
		LogLevel:        logLevel,
		WorkerCount:     *workersFlag,
	})
	if err != nil {
		return nil, false, &ExitError{Code: 2, Message: err.Error()}
	}

	slog.Debug("CLI parser finished successfully.", "config", config)
	return config, false, nil
}

// Package exec runs external programs as build actions.
package exec

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"maps"
	"os"
	osexec "os/exec"
	"slices"
	"strings"
	"time"

	"github.com/vk/buildgridgo/internal/buildctx"
	"github.com/vk/buildgridgo/internal/ctxlog"
	"github.com/vk/buildgridgo/internal/registry"
)

// Module implements the registry.Module interface for this package.
type Module struct{}

// Input defines the arguments for the exec action.
type Input struct {
	Command      []string          `bggo:"command"`
	Dir          string            `bggo:"dir,optional"`
	Env          map[string]string `bggo:"env,optional"`
	Timeout      string            `bggo:"timeout,optional"`
	AllowFailure bool              `bggo:"allow_failure,optional"`
}

// Output defines the data structure returned by the action.
type Output struct {
	ExitCode int    `cty:"exit_code" mapstructure:"exit_code"`
	Stdout   string `cty:"stdout" mapstructure:"stdout"`
	Stderr   string `cty:"stderr" mapstructure:"stderr"`
}

// ExitError reports a program that ran but exited non-zero.
type ExitError struct {
	Command  string
	ExitCode int
	Stderr   string
}

func (e *ExitError) Error() string {
	msg := fmt.Sprintf("command %q exited with code %d", e.Command, e.ExitCode)
	if tail := lastLine(e.Stderr); tail != "" {
		msg += ": " + tail
	}
	return msg
}

// Run executes the command, streaming its output to the run's output while
// capturing it for the result.
func Run(ctx context.Context, bc *buildctx.Context, input *Input) (*Output, error) {
	if len(input.Command) == 0 || input.Command[0] == "" {
		return nil, errors.New("command must name a program")
	}
	if input.Timeout != "" {
		timeout, err := time.ParseDuration(input.Timeout)
		if err != nil {
			return nil, fmt.Errorf("invalid timeout: %w", err)
		}
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	display := strings.Join(input.Command, " ")
	logger := ctxlog.FromContext(ctx).With("command", display)

	cmd := osexec.CommandContext(ctx, input.Command[0], input.Command[1:]...)
	cmd.Dir = input.Dir
	cmd.WaitDelay = 5 * time.Second
	if len(input.Env) > 0 {
		cmd.Env = os.Environ()
		for _, k := range slices.Sorted(maps.Keys(input.Env)) {
			cmd.Env = append(cmd.Env, k+"="+input.Env[k])
		}
	}

	var stdout, stderr bytes.Buffer
	out := bc.Out
	if out == nil {
		out = io.Discard
	}
	cmd.Stdout = io.MultiWriter(&stdout, out)
	cmd.Stderr = io.MultiWriter(&stderr, out)

	logger.Info("Running command", "dir", input.Dir)
	start := time.Now()
	runErr := cmd.Run()

	result := &Output{Stdout: stdout.String(), Stderr: stderr.String()}
	var exitErr *osexec.ExitError
	switch {
	case runErr == nil:
	case errors.As(runErr, &exitErr) && ctx.Err() == nil:
		result.ExitCode = exitErr.ExitCode()
	case ctx.Err() != nil:
		return nil, fmt.Errorf("command %q stopped: %w", display, ctx.Err())
	default:
		return nil, fmt.Errorf("failed to start %q: %w", display, runErr)
	}

	logger.Info("Command finished", "exit_code", result.ExitCode, "duration", time.Since(start).Round(time.Millisecond))
	if result.ExitCode != 0 && !input.AllowFailure {
		return result, &ExitError{Command: display, ExitCode: result.ExitCode, Stderr: result.Stderr}
	}
	return result, nil
}

func lastLine(s string) string {
	s = strings.TrimSpace(s)
	if i := strings.LastIndexByte(s, '\n'); i >= 0 {
		return s[i+1:]
	}
	return s
}

// Register registers the handler with the engine.
func (m *Module) Register(r *registry.Registry) {
	r.RegisterAction("exec", registry.Typed("Runs an external program.", Run))
}

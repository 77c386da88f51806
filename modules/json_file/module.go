// Package json_file writes script values to JSON files.
package json_file

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/vk/buildgridgo/internal/buildctx"
	"github.com/vk/buildgridgo/internal/ctxlog"
	"github.com/vk/buildgridgo/internal/registry"
)

// Module implements the registry.Module interface for this package.
type Module struct{}

// Input defines the arguments for the json_file action.
type Input struct {
	Path   string `bggo:"path"`
	Value  any    `bggo:"value"`
	Indent string `bggo:"indent,optional"`
}

// Output defines the data structure returned by the action.
type Output struct {
	Path  string `cty:"path" mapstructure:"path"`
	Bytes int    `cty:"bytes" mapstructure:"bytes"`
}

// Write serializes Value to Path, creating parent directories. Indent
// defaults to two spaces.
func Write(ctx context.Context, _ *buildctx.Context, input *Input) (*Output, error) {
	indent := input.Indent
	if indent == "" {
		indent = "  "
	}
	data, err := json.MarshalIndent(input.Value, "", indent)
	if err != nil {
		return nil, fmt.Errorf("failed to encode value: %w", err)
	}
	data = append(data, '\n')

	if err := os.MkdirAll(filepath.Dir(input.Path), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create directory for %s: %w", input.Path, err)
	}
	if err := os.WriteFile(input.Path, data, 0o644); err != nil {
		return nil, fmt.Errorf("failed to write %s: %w", input.Path, err)
	}

	ctxlog.FromContext(ctx).Info("Wrote JSON file", "path", input.Path, "bytes", len(data))
	return &Output{Path: input.Path, Bytes: len(data)}, nil
}

// Register registers the handler with the engine.
func (m *Module) Register(r *registry.Registry) {
	r.RegisterAction("json_file", registry.Typed("Writes a value to a JSON file.", Write))
}

// Package fetch_version reads a project version from a text file.
//
// The file's first non-empty line holds the version, optionally prefixed
// with "v" or markdown heading marks ("## 1.4.0"). One to four dot-separated
// numeric components are accepted; missing ones are zero.
package fetch_version

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/vk/buildgridgo/internal/buildctx"
	"github.com/vk/buildgridgo/internal/ctxlog"
	"github.com/vk/buildgridgo/internal/registry"
)

// Module implements the registry.Module interface for this package.
type Module struct{}

// Input defines the arguments for the fetch_version action. Build and
// Revision override the values read from the file.
type Input struct {
	File     string `bggo:"file"`
	Build    *int   `bggo:"build,optional"`
	Revision *int   `bggo:"revision,optional"`
}

// Version is the action's output.
type Version struct {
	Version  string `cty:"version" mapstructure:"version"`
	Major    int    `cty:"major" mapstructure:"major"`
	Minor    int    `cty:"minor" mapstructure:"minor"`
	Build    int    `cty:"build" mapstructure:"build"`
	Revision int    `cty:"revision" mapstructure:"revision"`
	Short    string `cty:"short" mapstructure:"short"`
}

// Fetch reads and parses the version file.
func Fetch(ctx context.Context, _ *buildctx.Context, input *Input) (*Version, error) {
	line, err := firstLine(input.File)
	if err != nil {
		return nil, err
	}
	v, err := Parse(line)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", input.File, err)
	}
	if input.Build != nil {
		v.Build = *input.Build
	}
	if input.Revision != nil {
		v.Revision = *input.Revision
	}
	v.format()

	ctxlog.FromContext(ctx).Info("Fetched build version", "file", input.File, "version", v.Version)
	return v, nil
}

// Parse parses a version string such as "1.2", "v1.2.3" or "1.2.3.4".
func Parse(raw string) (*Version, error) {
	s := strings.TrimSpace(strings.TrimLeft(strings.TrimSpace(raw), "#"))
	s = strings.TrimPrefix(strings.TrimPrefix(s, "v"), "V")
	if s == "" {
		return nil, fmt.Errorf("empty version")
	}

	parts := strings.Split(s, ".")
	if len(parts) > 4 {
		return nil, fmt.Errorf("version %q has more than four components", raw)
	}
	var nums [4]int
	for i, p := range parts {
		if p == "" || strings.TrimLeft(p, "0123456789") != "" {
			return nil, fmt.Errorf("version %q: component %q is not a non-negative number", raw, p)
		}
		n, err := strconv.Atoi(p)
		if err != nil {
			return nil, fmt.Errorf("version %q: component %q: %w", raw, p, err)
		}
		nums[i] = n
	}

	v := &Version{Major: nums[0], Minor: nums[1], Build: nums[2], Revision: nums[3]}
	v.format()
	return v, nil
}

func (v *Version) format() {
	v.Short = fmt.Sprintf("%d.%d.%d", v.Major, v.Minor, v.Build)
	v.Version = fmt.Sprintf("%s.%d", v.Short, v.Revision)
}

func firstLine(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("failed to open version file: %w", err)
	}
	defer f.Close()

	sc := bufio.NewScanner(f)
	for sc.Scan() {
		if line := strings.TrimSpace(sc.Text()); line != "" {
			return line, nil
		}
	}
	if err := sc.Err(); err != nil {
		return "", fmt.Errorf("failed to read version file %s: %w", path, err)
	}
	return "", fmt.Errorf("version file %s is empty", path)
}

// Register registers the handler with the engine.
func (m *Module) Register(r *registry.Registry) {
	r.RegisterAction("fetch_version", registry.Typed("Reads the build version from a file.", Fetch))
}

package hcl

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"

	"github.com/vk/buildgridgo/internal/config"
	"github.com/vk/buildgridgo/internal/ctxlog"
	"github.com/vk/buildgridgo/internal/fsutil"
)

// ErrNoScripts is returned when the given paths contain no build scripts.
var ErrNoScripts = errors.New("no .hcl build scripts found")

// Loader is the HCL-specific implementation of the config.Loader interface.
type Loader struct{}

// NewLoader creates a new HCL script loader.
func NewLoader() *Loader {
	return &Loader{}
}

// Load parses every script under paths and merges them into one model.
// Files are read in lexical order; targets keep their order within and
// across files.
func (l *Loader) Load(ctx context.Context, paths ...string) (*config.Model, config.Converter, error) {
	logger := ctxlog.FromContext(ctx)
	logger.Debug("HCL loader started.", "path_count", len(paths))

	files, err := fsutil.CollectFiles(paths, ".hcl")
	if err != nil {
		return nil, nil, err
	}
	if len(files) == 0 {
		return nil, nil, ErrNoScripts
	}
	logger.Debug("Discovered HCL files.", "count", len(files))

	model := &config.Model{}
	parser := hclparse.NewParser()
	propIndex := make(map[string]int)

	for _, file := range files {
		hclFile, diags := parser.ParseHCLFile(file)
		if diags.HasErrors() {
			return nil, nil, fmt.Errorf("failed to parse HCL file %s: %w", file, diags)
		}

		var root fileRoot
		diags = gohcl.DecodeBody(hclFile.Body, nil, &root)
		if diags.HasErrors() {
			return nil, nil, fmt.Errorf("failed to decode HCL file %s: %w", file, diags)
		}

		for _, block := range root.Properties {
			props, err := translateProperties(block, file)
			if err != nil {
				return nil, nil, err
			}
			for _, p := range props {
				if i, dup := propIndex[p.Name]; dup {
					logger.Warn("Property redefined, later definition wins.", "property", p.Name, "previous", model.Properties[i].Source, "current", p.Source)
					model.Properties[i] = p
					continue
				}
				propIndex[p.Name] = len(model.Properties)
				model.Properties = append(model.Properties, p)
			}
		}

		for _, tb := range root.Targets {
			t, err := translateTarget(tb, file)
			if err != nil {
				return nil, nil, err
			}
			model.Targets = append(model.Targets, t)
		}
		logger.Debug("Loaded build script.", "file", file, "targets", len(root.Targets))
	}

	if err := checkReferences(ctx, model); err != nil {
		return nil, nil, err
	}

	logger.Debug("HCL loading complete.", "properties", len(model.Properties), "targets", len(model.Targets))
	return model, NewConverter(), nil
}

// translateProperties turns a properties block into properties ordered as
// written.
func translateProperties(block *propertiesBlock, file string) ([]*config.Property, error) {
	attrs, diags := block.Body.JustAttributes()
	if diags.HasErrors() {
		return nil, fmt.Errorf("invalid properties block in %s: %w", file, diags)
	}

	props := make([]*config.Property, 0, len(attrs))
	for name, attr := range attrs {
		props = append(props, &config.Property{
			Name:   name,
			Expr:   attr.Expr,
			Source: attr.Range.String(),
		})
	}
	sort.Slice(props, func(i, j int) bool {
		return props[i].Expr.Range().Start.Byte < props[j].Expr.Range().Start.Byte
	})
	return props, nil
}

func translateTarget(tb *targetBlock, file string) (*config.Target, error) {
	t := &config.Target{
		Name:           tb.Name,
		Description:    tb.Description,
		Hidden:         tb.Hidden,
		Default:        tb.Default,
		DependsOn:      tb.DependsOn,
		DependsOnAsync: tb.DependsOnAsync,
		Source:         file,
	}

	typeCounts := make(map[string]int)
	for _, ab := range tb.Actions {
		typeCounts[ab.Type]++
	}
	seen := make(map[string]int)
	names := make(map[string]bool)

	for _, ab := range tb.Actions {
		args, err := extractArguments(ab.Arguments)
		if err != nil {
			return nil, fmt.Errorf("target %q in %s, action %q: %w", tb.Name, file, ab.Type, err)
		}

		seen[ab.Type]++
		name := ab.Name
		if name == "" {
			name = ab.Type
			if typeCounts[ab.Type] > 1 {
				name = fmt.Sprintf("%s#%d", ab.Type, seen[ab.Type])
			}
		}
		if names[name] {
			return nil, fmt.Errorf("target %q in %s declares action %q twice", tb.Name, file, name)
		}
		names[name] = true

		t.Actions = append(t.Actions, &config.Action{
			Type:        ab.Type,
			Name:        name,
			Async:       ab.Async,
			SetProperty: ab.SetProperty,
			Arguments:   args,
		})
	}
	return t, nil
}

// extractArguments converts an arguments block into a map of expressions.
func extractArguments(block *argumentsBlock) (map[string]hcl.Expression, error) {
	if block == nil || block.Body == nil {
		return nil, nil
	}
	attrs, diags := block.Body.JustAttributes()
	if diags.HasErrors() {
		return nil, diags
	}
	exprMap := make(map[string]hcl.Expression, len(attrs))
	for name, attr := range attrs {
		exprMap[name] = attr.Expr
	}
	return exprMap, nil
}

package hcl

import (
	"context"
	"fmt"
	"sort"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/hclsyntax"
	"github.com/hashicorp/hcl/v2/hclwrite"

	"github.com/vk/buildgridgo/internal/buildctx"
	"github.com/vk/buildgridgo/internal/config"
	"github.com/vk/buildgridgo/internal/ctxlog"
)

// rootVariables are the names EvalContext defines.
var rootVariables = map[string]bool{
	"prop":   true,
	"arg":    true,
	"env":    true,
	"target": true,
}

// traversalKey renders a traversal as it would be written, e.g. prop.version.
func traversalKey(t hcl.Traversal) string {
	return string(hclwrite.TokensForTraversal(t).Bytes())
}

// analyzeExpressions returns the unique variable traversals and function
// names used by exprs, both sorted.
func analyzeExpressions(exprs ...hcl.Expression) ([]hcl.Traversal, []string) {
	traversals := make(map[string]hcl.Traversal)
	funcs := make(map[string]struct{})

	for _, expr := range exprs {
		if expr == nil {
			continue
		}
		for _, traversal := range expr.Variables() {
			traversals[traversalKey(traversal)] = traversal
		}
		if syntaxExpr, ok := expr.(hclsyntax.Expression); ok {
			walkForFunctions(syntaxExpr, funcs)
		}
	}

	keys := make([]string, 0, len(traversals))
	for k := range traversals {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	refs := make([]hcl.Traversal, 0, len(keys))
	for _, k := range keys {
		refs = append(refs, traversals[k])
	}

	names := make([]string, 0, len(funcs))
	for f := range funcs {
		names = append(names, f)
	}
	sort.Strings(names)
	return refs, names
}

// walkForFunctions collects function calls, which Variables() does not report.
func walkForFunctions(expr hclsyntax.Expression, funcs map[string]struct{}) {
	if expr == nil {
		return
	}
	hclsyntax.VisitAll(expr, func(node hclsyntax.Node) hcl.Diagnostics {
		if call, ok := node.(*hclsyntax.FunctionCallExpr); ok {
			funcs[call.Name] = struct{}{}
		}
		return nil
	})
}

// checkReferences rejects expressions that name unknown variables or
// functions, so such mistakes surface at load time instead of halfway
// through a build. A prop.<key> reference that no property or set_property
// provides only produces a warning: the key may still be set by an action
// the loader cannot see into.
func checkReferences(ctx context.Context, model *config.Model) error {
	logger := ctxlog.FromContext(ctx)

	provided := map[string]bool{
		buildctx.PropRunID:          true,
		buildctx.PropOSPlatform:     true,
		buildctx.PropOSArch:         true,
		buildctx.PropBuildStartedAt: true,
		buildctx.PropWorkDir:        true,
	}
	for _, p := range model.Properties {
		provided[p.Name] = true
	}
	for _, t := range model.Targets {
		for _, a := range t.Actions {
			if a.SetProperty != "" {
				provided[a.SetProperty] = true
			}
		}
	}

	check := func(where string, exprs ...hcl.Expression) error {
		refs, funcs := analyzeExpressions(exprs...)
		for _, ref := range refs {
			root := ref.RootName()
			if !rootVariables[root] {
				return fmt.Errorf("%s: unknown variable %q in %s", where, root, traversalKey(ref))
			}
			if root != "prop" || len(ref) < 2 {
				continue
			}
			if attr, ok := ref[1].(hcl.TraverseAttr); ok && !provided[attr.Name] {
				logger.Warn("Expression reads a property nothing declares.", "where", where, "property", attr.Name)
			}
		}
		for _, name := range funcs {
			if _, ok := functions[name]; !ok {
				return fmt.Errorf("%s: unknown function %q", where, name)
			}
		}
		return nil
	}

	for _, p := range model.Properties {
		if err := check(fmt.Sprintf("property %q", p.Name), p.Expr); err != nil {
			return err
		}
	}
	for _, t := range model.Targets {
		for _, a := range t.Actions {
			names := make([]string, 0, len(a.Arguments))
			for name := range a.Arguments {
				names = append(names, name)
			}
			sort.Strings(names)
			for _, name := range names {
				where := fmt.Sprintf("target %q, action %q, argument %q", t.Name, a.Name, name)
				if err := check(where, a.Arguments[name]); err != nil {
					return err
				}
			}
		}
	}
	return nil
}

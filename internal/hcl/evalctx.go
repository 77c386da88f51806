package hcl

import (
	"fmt"
	"os"
	"strings"

	"github.com/hashicorp/hcl/v2"
	"github.com/zclconf/go-cty/cty"
	"github.com/zclconf/go-cty/cty/function"
	"github.com/zclconf/go-cty/cty/function/stdlib"

	"github.com/vk/buildgridgo/internal/buildctx"
)

// functions is the function table available to every expression.
var functions = map[string]function.Function{
	"abs":           stdlib.AbsoluteFunc,
	"chomp":         stdlib.ChompFunc,
	"coalesce":      stdlib.CoalesceFunc,
	"concat":        stdlib.ConcatFunc,
	"contains":      stdlib.ContainsFunc,
	"distinct":      stdlib.DistinctFunc,
	"element":       stdlib.ElementFunc,
	"flatten":       stdlib.FlattenFunc,
	"format":        stdlib.FormatFunc,
	"formatdate":    stdlib.FormatDateFunc,
	"join":          stdlib.JoinFunc,
	"jsondecode":    stdlib.JSONDecodeFunc,
	"jsonencode":    stdlib.JSONEncodeFunc,
	"keys":          stdlib.KeysFunc,
	"length":        stdlib.LengthFunc,
	"lookup":        stdlib.LookupFunc,
	"lower":         stdlib.LowerFunc,
	"max":           stdlib.MaxFunc,
	"merge":         stdlib.MergeFunc,
	"min":           stdlib.MinFunc,
	"range":         stdlib.RangeFunc,
	"regex_replace": stdlib.RegexReplaceFunc,
	"replace":       stdlib.ReplaceFunc,
	"sort":          stdlib.SortFunc,
	"split":         stdlib.SplitFunc,
	"strlen":        stdlib.StrlenFunc,
	"substr":        stdlib.SubstrFunc,
	"title":         stdlib.TitleFunc,
	"trim":          stdlib.TrimFunc,
	"trimprefix":    stdlib.TrimPrefixFunc,
	"trimspace":     stdlib.TrimSpaceFunc,
	"trimsuffix":    stdlib.TrimSuffixFunc,
	"upper":         stdlib.UpperFunc,
	"values":        stdlib.ValuesFunc,
}

// EvalContext exposes the run's state to expressions:
//
//	prop.<key>   properties set so far
//	arg.<key>    script arguments (use lookup(arg, "key", "default") for optional ones)
//	env.<NAME>   process environment
//	target.name  the target being evaluated, empty for properties
func (c *Converter) EvalContext(bc *buildctx.Context, target string) (*hcl.EvalContext, error) {
	props := make(map[string]cty.Value)
	for key, v := range bc.Properties.Snapshot() {
		cv, err := nativeToCty(v)
		if err != nil {
			return nil, fmt.Errorf("property %q cannot be used in expressions: %w", key, err)
		}
		props[key] = cv
	}

	return &hcl.EvalContext{
		Variables: map[string]cty.Value{
			"prop":   cty.ObjectVal(props),
			"arg":    stringMap(bc.Args),
			"env":    stringMap(environ()),
			"target": cty.ObjectVal(map[string]cty.Value{"name": cty.StringVal(target)}),
		},
		Functions: functions,
	}, nil
}

func stringMap(m map[string]string) cty.Value {
	if len(m) == 0 {
		return cty.MapValEmpty(cty.String)
	}
	vals := make(map[string]cty.Value, len(m))
	for k, v := range m {
		vals[k] = cty.StringVal(v)
	}
	return cty.MapVal(vals)
}

func environ() map[string]string {
	env := make(map[string]string)
	for _, e := range os.Environ() {
		if k, v, ok := strings.Cut(e, "="); ok && k != "" {
			env[k] = v
		}
	}
	return env
}

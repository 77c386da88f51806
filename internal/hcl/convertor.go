package hcl

import (
	"context"
	"fmt"
	"reflect"
	"sort"

	"github.com/hashicorp/hcl/v2"
	"github.com/mitchellh/mapstructure"
	"github.com/zclconf/go-cty/cty"
	"github.com/zclconf/go-cty/cty/convert"
	"github.com/zclconf/go-cty/cty/gocty"

	"github.com/vk/buildgridgo/internal/ctxlog"
	"github.com/vk/buildgridgo/internal/registry"
)

// Converter is the HCL-specific implementation of the config.Converter interface.
type Converter struct{}

// NewConverter creates a new HCL converter.
func NewConverter() *Converter {
	return &Converter{}
}

// DecodeArguments evaluates every argument expression and populates the
// tagged fields of inputStruct. Arguments the struct does not declare and
// required fields without an argument are errors.
func (c *Converter) DecodeArguments(
	ctx context.Context,
	inputStruct any,
	args map[string]hcl.Expression,
	evalCtx *hcl.EvalContext,
) error {
	logger := ctxlog.FromContext(ctx)
	logger.Debug("Starting HCL argument decoding.", "arguments", len(args))

	fields, err := registry.InputFields(inputStruct)
	if err != nil {
		return err
	}

	declared := make(map[string]bool, len(fields))
	for _, f := range fields {
		declared[f.Name] = true
	}
	var unknown []string
	for name := range args {
		if !declared[name] {
			unknown = append(unknown, name)
		}
	}
	if len(unknown) > 0 {
		sort.Strings(unknown)
		return fmt.Errorf("unsupported argument %q", unknown[0])
	}

	structVal := reflect.ValueOf(inputStruct).Elem()
	for _, f := range fields {
		expr, provided := args[f.Name]
		if !provided {
			if !f.Optional {
				return fmt.Errorf("missing required argument %q", f.Name)
			}
			continue
		}

		val, diags := expr.Value(evalCtx)
		if diags.HasErrors() {
			return fmt.Errorf("argument %q: %w", f.Name, diags)
		}
		if val.IsNull() {
			if !f.Optional {
				return fmt.Errorf("argument %q must not be null", f.Name)
			}
			continue
		}
		if !val.IsWhollyKnown() {
			return fmt.Errorf("argument %q has an unknown value", f.Name)
		}

		if err := c.decode(ctx, val, structVal.Field(f.Index).Addr().Interface()); err != nil {
			return fmt.Errorf("failed to decode argument '%s': %w", f.Name, err)
		}
	}

	logger.Debug("Finished HCL argument decoding successfully.")
	return nil
}

// decode handles the conversion and decoding of a cty.Value into a Go pointer.
func (c *Converter) decode(ctx context.Context, val cty.Value, goVal any) error {
	logger := ctxlog.FromContext(ctx)
	valPtr := reflect.ValueOf(goVal)
	if valPtr.Kind() != reflect.Ptr {
		return fmt.Errorf("target for decoding must be a pointer, got %T", goVal)
	}
	target := valPtr.Elem()

	if target.Type() == ctyValueType {
		target.Set(reflect.ValueOf(val))
		return nil
	}

	if needsGenericDecode(target.Type()) {
		native, err := ctyToNative(val)
		if err != nil {
			return err
		}
		logger.Debug("Decoding structured value.", "target_type", target.Type().String())
		return decodeNative(native, goVal)
	}

	impliedType, err := gocty.ImpliedType(target.Interface())
	if err != nil {
		logger.Debug("Could not imply cty.Type from Go type, attempting direct decoding.", "go_type", target.Type().String(), "error", err)
		return gocty.FromCtyValue(val, goVal)
	}

	convertedVal, err := convert.Convert(val, impliedType)
	if err != nil {
		return fmt.Errorf("cannot convert %s to required type %s: %w", val.Type().FriendlyName(), impliedType.FriendlyName(), err)
	}
	if !val.Type().Equals(convertedVal.Type()) {
		logger.Debug("Implicitly converted value type.",
			"from", val.Type().FriendlyName(),
			"to", convertedVal.Type().FriendlyName(),
		)
	}

	return gocty.FromCtyValue(convertedVal, goVal)
}

// decodeNative binds a generic value onto out, matching struct fields by
// their `bggo` tags and rejecting keys the struct does not declare.
func decodeNative(native any, out any) error {
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		TagName:          registry.TagName,
		WeaklyTypedInput: true,
		ErrorUnused:      true,
		Result:           out,
	})
	if err != nil {
		return err
	}
	return dec.Decode(native)
}

// EvalValue evaluates expr and returns its native Go form.
func (c *Converter) EvalValue(ctx context.Context, expr hcl.Expression, evalCtx *hcl.EvalContext) (any, error) {
	val, diags := expr.Value(evalCtx)
	if diags.HasErrors() {
		return nil, diags
	}
	return ctyToNative(val)
}

// ToCtyValue converts a native Go value into its corresponding cty.Value.
func (c *Converter) ToCtyValue(v any) (cty.Value, error) {
	return nativeToCty(v)
}

package hcl

import (
	"fmt"
	"math/big"
	"reflect"
	"sort"
	"time"

	"github.com/mitchellh/mapstructure"
	"github.com/zclconf/go-cty/cty"
	"github.com/zclconf/go-cty/cty/gocty"
)

var ctyValueType = reflect.TypeOf(cty.Value{})

// ctyToNative recursively converts a cty.Value to its most natural Go
// counterpart: string, bool, int or float64, []any and map[string]any.
func ctyToNative(v cty.Value) (any, error) {
	if v.IsNull() || !v.IsKnown() {
		return nil, nil
	}

	ty := v.Type()

	switch {
	case ty == cty.String:
		return v.AsString(), nil

	case ty == cty.Number:
		bf := v.AsBigFloat()
		if bf.IsInt() {
			if i, acc := bf.Int64(); acc == big.Exact {
				return int(i), nil
			}
		}
		f, _ := bf.Float64()
		return f, nil

	case ty == cty.Bool:
		return v.True(), nil

	case ty.IsListType() || ty.IsTupleType() || ty.IsSetType():
		slice := make([]any, 0, v.LengthInt())
		it := v.ElementIterator()
		for it.Next() {
			_, val := it.Element()
			nativeVal, err := ctyToNative(val)
			if err != nil {
				return nil, err
			}
			slice = append(slice, nativeVal)
		}
		return slice, nil

	case ty.IsObjectType() || ty.IsMapType():
		goMap := make(map[string]any)
		it := v.ElementIterator()
		for it.Next() {
			key, val := it.Element()
			keyStr := key.AsString()
			nativeVal, err := ctyToNative(val)
			if err != nil {
				return nil, fmt.Errorf("in attribute '%s': %w", keyStr, err)
			}
			goMap[keyStr] = nativeVal
		}
		return goMap, nil

	default:
		return nil, fmt.Errorf("unsupported cty type for native conversion: %s", ty.FriendlyName())
	}
}

// nativeToCty converts arbitrary Go values, including the map[string]any
// and []any shapes produced by actions, into cty values. Structs are
// converted through their `cty` tags when they have them, otherwise through
// a generic map.
func nativeToCty(v any) (cty.Value, error) {
	if v == nil {
		return cty.NullVal(cty.DynamicPseudoType), nil
	}

	switch x := v.(type) {
	case cty.Value:
		return x, nil
	case string:
		return cty.StringVal(x), nil
	case bool:
		return cty.BoolVal(x), nil
	case time.Time:
		return cty.StringVal(x.UTC().Format(time.RFC3339)), nil
	case time.Duration:
		return cty.StringVal(x.String()), nil
	case []byte:
		return cty.StringVal(string(x)), nil
	}

	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Ptr, reflect.Interface:
		if rv.IsNil() {
			return cty.NullVal(cty.DynamicPseudoType), nil
		}
		return nativeToCty(rv.Elem().Interface())

	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return cty.NumberIntVal(rv.Int()), nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return cty.NumberUIntVal(rv.Uint()), nil
	case reflect.Float32, reflect.Float64:
		return cty.NumberFloatVal(rv.Float()), nil
	case reflect.String:
		return cty.StringVal(rv.String()), nil
	case reflect.Bool:
		return cty.BoolVal(rv.Bool()), nil

	case reflect.Slice, reflect.Array:
		if rv.Len() == 0 {
			return cty.EmptyTupleVal, nil
		}
		elems := make([]cty.Value, rv.Len())
		for i := range elems {
			ev, err := nativeToCty(rv.Index(i).Interface())
			if err != nil {
				return cty.NilVal, fmt.Errorf("index %d: %w", i, err)
			}
			elems[i] = ev
		}
		return cty.TupleVal(elems), nil

	case reflect.Map:
		if rv.Type().Key().Kind() != reflect.String {
			return cty.NilVal, fmt.Errorf("unsupported map key type %s", rv.Type().Key())
		}
		if rv.Len() == 0 {
			return cty.EmptyObjectVal, nil
		}
		attrs := make(map[string]cty.Value, rv.Len())
		keys := rv.MapKeys()
		sort.Slice(keys, func(i, j int) bool { return keys[i].String() < keys[j].String() })
		for _, k := range keys {
			ev, err := nativeToCty(rv.MapIndex(k).Interface())
			if err != nil {
				return cty.NilVal, fmt.Errorf("key %q: %w", k.String(), err)
			}
			attrs[k.String()] = ev
		}
		return cty.ObjectVal(attrs), nil

	case reflect.Struct:
		if ty, err := gocty.ImpliedType(v); err == nil && !ty.Equals(cty.EmptyObject) {
			return gocty.ToCtyValue(v, ty)
		}
		var asMap map[string]any
		if err := mapstructure.Decode(v, &asMap); err != nil {
			return cty.NilVal, fmt.Errorf("converting %T: %w", v, err)
		}
		return nativeToCty(asMap)
	}

	return cty.NilVal, fmt.Errorf("unsupported Go type %T", v)
}

// needsGenericDecode reports whether a Go type has to be bound through the
// generic map path rather than gocty: interfaces and untagged structs,
// directly or inside collections.
func needsGenericDecode(t reflect.Type) bool {
	switch t.Kind() {
	case reflect.Interface, reflect.Struct:
		return t != ctyValueType
	case reflect.Ptr, reflect.Slice, reflect.Array, reflect.Map:
		return needsGenericDecode(t.Elem())
	default:
		return false
	}
}

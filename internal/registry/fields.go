package registry

import (
	"fmt"
	"reflect"
	"strings"
)

// TagName is the struct tag that binds script arguments to input fields.
const TagName = "bggo"

// InputField describes one bindable field of an action's input struct.
type InputField struct {
	Name     string
	Optional bool
	Index    int
	Type     reflect.Type
}

// InputFields lists the tagged fields of input, which must be a pointer to
// a struct. Fields tagged `bggo:"-"` and unexported fields are skipped.
func InputFields(input any) ([]InputField, error) {
	v := reflect.ValueOf(input)
	if v.Kind() != reflect.Ptr || v.IsNil() || v.Elem().Kind() != reflect.Struct {
		return nil, fmt.Errorf("input must be a non-nil pointer to a struct, got %T", input)
	}
	return structFields(v.Elem().Type())
}

func structFields(st reflect.Type) ([]InputField, error) {
	var fields []InputField
	seen := make(map[string]string)
	for i := 0; i < st.NumField(); i++ {
		f := st.Field(i)
		if !f.IsExported() {
			continue
		}
		tag, ok := f.Tag.Lookup(TagName)
		if !ok {
			return nil, fmt.Errorf("field %s has no %q tag", f.Name, TagName)
		}
		name, opts, _ := strings.Cut(tag, ",")
		if name == "-" {
			continue
		}
		if name == "" {
			return nil, fmt.Errorf("field %s has an empty %q tag", f.Name, TagName)
		}
		if other, dup := seen[name]; dup {
			return nil, fmt.Errorf("fields %s and %s both bind argument %q", other, f.Name, name)
		}
		seen[name] = f.Name

		optional := false
		switch opts {
		case "":
		case "optional":
			optional = true
		default:
			return nil, fmt.Errorf("field %s has unknown tag option %q", f.Name, opts)
		}
		fields = append(fields, InputField{Name: name, Optional: optional, Index: i, Type: f.Type})
	}
	return fields, nil
}

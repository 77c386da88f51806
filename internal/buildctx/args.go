package buildctx

import (
	"fmt"
	"maps"
	"slices"
	"strings"
)

// ScriptArgs are the key/value pairs passed on the command line after the
// target names. They are read-only once parsed.
type ScriptArgs map[string]string

// Get returns the value for key, or "" when it was not passed.
func (a ScriptArgs) Get(key string) string {
	return a[key]
}

// Lookup returns the value for key and whether it was passed.
func (a ScriptArgs) Lookup(key string) (string, bool) {
	v, ok := a[key]
	return v, ok
}

// Keys returns the argument names in sorted order.
func (a ScriptArgs) Keys() []string {
	return slices.Sorted(maps.Keys(a))
}

// IsScriptArg reports whether a raw command line token looks like a script
// argument ("-key=value", "--key=value" or a bare "-key").
func IsScriptArg(raw string) bool {
	return strings.HasPrefix(raw, "-") && len(strings.TrimLeft(raw, "-")) > 0
}

// ParseScriptArgs parses tokens of the form -key=value or --key=value. A
// token without a value ("-verbose") is stored as "true". Later tokens
// override earlier ones.
func ParseScriptArgs(raw []string) (ScriptArgs, error) {
	args := make(ScriptArgs, len(raw))
	for _, token := range raw {
		if !IsScriptArg(token) {
			return nil, fmt.Errorf("invalid script argument %q: expected -key=value", token)
		}
		kv := strings.TrimLeft(token, "-")
		key, value, found := strings.Cut(kv, "=")
		if key == "" {
			return nil, fmt.Errorf("invalid script argument %q: empty key", token)
		}
		if !found {
			value = "true"
		}
		args[key] = value
	}
	return args, nil
}

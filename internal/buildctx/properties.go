package buildctx

import (
	"fmt"
	"maps"
	"reflect"
	"slices"
	"sync"

	"github.com/mitchellh/mapstructure"
)

// MissingPropertyError is returned when a property that was never set is read.
type MissingPropertyError struct {
	Key string
}

func (e *MissingPropertyError) Error() string {
	return fmt.Sprintf("property %q is not set", e.Key)
}

// PropertyTypeError is returned by typed accessors when the stored value has
// a different type than requested.
type PropertyTypeError struct {
	Key  string
	Want string
	Got  string
}

func (e *PropertyTypeError) Error() string {
	return fmt.Sprintf("property %q holds %s, not %s", e.Key, e.Got, e.Want)
}

// Properties is a string-keyed store of arbitrary values.
//
// Access is synchronized, so concurrent actions never corrupt the map, but
// writes are not ordered: two async actions setting the same key race and the
// last writer wins.
type Properties struct {
	mu     sync.RWMutex
	values map[string]any
}

// NewProperties returns an empty store.
func NewProperties() *Properties {
	return &Properties{values: make(map[string]any)}
}

// Set stores value under key, replacing any earlier value.
func (p *Properties) Set(key string, value any) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.values[key] = value
}

// Get returns the value stored under key or a *MissingPropertyError.
func (p *Properties) Get(key string) (any, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	v, ok := p.values[key]
	if !ok {
		return nil, &MissingPropertyError{Key: key}
	}
	return v, nil
}

// Has reports whether key was set.
func (p *Properties) Has(key string) bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	_, ok := p.values[key]
	return ok
}

// Keys returns all keys in sorted order.
func (p *Properties) Keys() []string {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return slices.Sorted(maps.Keys(p.values))
}

// Snapshot returns a shallow copy of the store.
func (p *Properties) Snapshot() map[string]any {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return maps.Clone(p.values)
}

// Decode copies a structured property, such as a map produced by an
// action's output, into out. Field names are matched case-insensitively and
// scalar types are converted where possible.
func (p *Properties) Decode(key string, out any) error {
	v, err := p.Get(key)
	if err != nil {
		return err
	}
	if err := mapstructure.WeakDecode(v, out); err != nil {
		return fmt.Errorf("decoding property %q: %w", key, err)
	}
	return nil
}

// GetAs returns the property under key as a T.
func GetAs[T any](p *Properties, key string) (T, error) {
	var zero T
	v, err := p.Get(key)
	if err != nil {
		return zero, err
	}
	if v == nil {
		return zero, nil
	}
	typed, ok := v.(T)
	if !ok {
		return zero, &PropertyTypeError{
			Key:  key,
			Want: reflect.TypeFor[T]().String(),
			Got:  fmt.Sprintf("%T", v),
		}
	}
	return typed, nil
}

// GetOr returns the property under key as a T, or def when it is absent or
// of another type.
func GetOr[T any](p *Properties, key string, def T) T {
	v, err := GetAs[T](p, key)
	if err != nil {
		return def
	}
	return v
}

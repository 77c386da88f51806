package registry

import (
	"context"
	"fmt"
	"log/slog"
	"maps"
	"slices"
	"sync"

	"github.com/vk/buildgridgo/internal/buildctx"
)

// Module is the interface that all action modules must implement to be registered.
type Module interface {
	Register(r *Registry)
}

// Handler is the type-erased form of an action implementation. input is the
// value produced by NewInput after the script's arguments were bound to it.
type Handler func(ctx context.Context, bc *buildctx.Context, input any) (any, error)

// RegisteredAction holds the compiled Go parts of an action type.
type RegisteredAction struct {
	Description string
	// NewInput returns a pointer to a fresh input struct. It is nil for
	// actions that take no arguments.
	NewInput func() any
	Fn       Handler
}

// Registry holds all the registered action types for a single application
// instance.
type Registry struct {
	mu      sync.RWMutex
	actions map[string]*RegisteredAction
}

// New creates and initializes a new Registry instance.
func New() *Registry {
	return &Registry{actions: make(map[string]*RegisteredAction)}
}

// Load registers every module.
func (r *Registry) Load(modules ...Module) {
	for _, m := range modules {
		m.Register(r)
	}
}

// RegisterAction registers the handler for an action type. Registering the
// same name twice is a programming error and panics.
func (r *Registry) RegisterAction(name string, action *RegisteredAction) {
	if action == nil || action.Fn == nil {
		panic(fmt.Sprintf("action '%s' registered without a handler", name))
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.actions[name]; exists {
		panic(fmt.Sprintf("action handler with name '%s' already registered", name))
	}
	slog.Debug("Registering action handler.", "name", name)
	r.actions[name] = action
}

// Action returns the handler registered under name.
func (r *Registry) Action(name string) (*RegisteredAction, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	a, ok := r.actions[name]
	return a, ok
}

// Names returns all registered action types, sorted.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return slices.Sorted(maps.Keys(r.actions))
}

// Typed adapts a strongly typed handler into a RegisteredAction. I is the
// input struct the script's arguments are bound to; O is the handler's
// output, which can be stored into a property.
func Typed[I any, O any](description string, fn func(ctx context.Context, bc *buildctx.Context, input *I) (O, error)) *RegisteredAction {
	return &RegisteredAction{
		Description: description,
		NewInput:    func() any { return new(I) },
		Fn: func(ctx context.Context, bc *buildctx.Context, input any) (any, error) {
			in, ok := input.(*I)
			if !ok {
				var zero I
				return nil, fmt.Errorf("handler expects input %T, got %T", &zero, input)
			}
			return fn(ctx, bc, in)
		},
	}
}

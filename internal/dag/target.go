package dag

import "fmt"

// mutate runs fn under the graph's write lock. Targets belong to exactly one
// graph; changing one after the graph is frozen is a programming error.
func (t *Target) mutate(fn func()) *Target {
	t.graph.mutex.Lock()
	defer t.graph.mutex.Unlock()
	if t.graph.frozen {
		panic(fmt.Sprintf("dag: target %q modified after the graph was frozen", t.name))
	}
	fn()
	return t
}

// SetDescription sets the help text shown by `list`.
func (t *Target) SetDescription(description string) *Target {
	return t.mutate(func() { t.description = description })
}

// SetAsHidden excludes the target from listings and from being requested
// directly. It still runs as a dependency.
func (t *Target) SetAsHidden() *Target {
	return t.mutate(func() { t.hidden = true })
}

// SetAsDefault marks the target to run when no target is requested.
func (t *Target) SetAsDefault() *Target {
	return t.mutate(func() { t.isDefault = true })
}

// Do appends a synchronous action.
func (t *Target) Do(name string, fn ActionFunc) *Target {
	return t.addAction(name, false, fn)
}

// DoAsync appends an action that may run concurrently with the target's
// other async actions. The target completes only after it finishes.
func (t *Target) DoAsync(name string, fn ActionFunc) *Target {
	return t.addAction(name, true, fn)
}

func (t *Target) addAction(name string, async bool, fn ActionFunc) *Target {
	if fn == nil {
		panic(fmt.Sprintf("dag: nil action %q on target %q", name, t.name))
	}
	return t.mutate(func() {
		if name == "" {
			name = fmt.Sprintf("action[%d]", len(t.actions))
		}
		t.actions = append(t.actions, &Action{Name: name, Async: async, Run: fn})
	})
}

// Name returns the target's unique name.
func (t *Target) Name() string { return t.name }

// Index returns the target's declaration position in its graph.
func (t *Target) Index() int { return t.index }

func (t *Target) Description() string {
	t.graph.mutex.RLock()
	defer t.graph.mutex.RUnlock()
	return t.description
}

func (t *Target) Hidden() bool {
	t.graph.mutex.RLock()
	defer t.graph.mutex.RUnlock()
	return t.hidden
}

func (t *Target) IsDefault() bool {
	t.graph.mutex.RLock()
	defer t.graph.mutex.RUnlock()
	return t.isDefault
}

// Dependencies returns the synchronous dependencies in registration order.
func (t *Target) Dependencies() []*Target {
	t.graph.mutex.RLock()
	defer t.graph.mutex.RUnlock()
	return append([]*Target(nil), t.deps...)
}

// AsyncDependencies returns the asynchronous dependencies in registration
// order.
func (t *Target) AsyncDependencies() []*Target {
	t.graph.mutex.RLock()
	defer t.graph.mutex.RUnlock()
	return append([]*Target(nil), t.asyncDeps...)
}

// Actions returns the target's actions in declaration order.
func (t *Target) Actions() []*Action {
	t.graph.mutex.RLock()
	defer t.graph.mutex.RUnlock()
	return append([]*Action(nil), t.actions...)
}

// edges returns every dependency, sync first. Callers hold the graph lock.
func (t *Target) edges() []*Target {
	all := make([]*Target, 0, len(t.deps)+len(t.asyncDeps))
	all = append(all, t.deps...)
	return append(all, t.asyncDeps...)
}

func (t *Target) dependsOn(other *Target) bool {
	for _, d := range t.deps {
		if d == other {
			return true
		}
	}
	for _, d := range t.asyncDeps {
		if d == other {
			return true
		}
	}
	return false
}

package dag

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vk/buildgridgo/internal/buildctx"
)

func noop(context.Context, *buildctx.Context) error { return nil }

// names maps targets to their names for compact assertions.
func names(ts []*Target) []string {
	out := make([]string, 0, len(ts))
	for _, t := range ts {
		out = append(out, t.Name())
	}
	return out
}

// mustGraph creates one target per name, in order.
func mustGraph(t *testing.T, targetNames ...string) *Graph {
	t.Helper()
	g := New()
	for _, n := range targetNames {
		_, err := g.CreateTarget(n)
		require.NoError(t, err)
	}
	return g
}

func TestNew(t *testing.T) {
	g := New()
	require.NotNil(t, g)
	assert.Equal(t, 0, g.Len())
	assert.Empty(t, g.Targets())
	assert.False(t, g.Frozen())
}

func TestCreateTarget(t *testing.T) {
	t.Run("records declaration order", func(t *testing.T) {
		g := mustGraph(t, "compile", "test", "package")

		assert.Equal(t, []string{"compile", "test", "package"}, names(g.Targets()))
		tgt, ok := g.Target("test")
		require.True(t, ok)
		assert.Equal(t, 1, tgt.Index())
	})

	t.Run("duplicate name leaves graph unchanged", func(t *testing.T) {
		g := mustGraph(t, "compile")
		first, _ := g.Target("compile")

		_, err := g.CreateTarget("compile")

		var dup *DuplicateTargetError
		require.True(t, errors.As(err, &dup))
		assert.Equal(t, "compile", dup.Name)
		assert.ErrorIs(t, err, ErrDuplicateTarget)
		assert.Equal(t, 1, g.Len())
		again, _ := g.Target("compile")
		assert.Same(t, first, again)
	})

	t.Run("empty name", func(t *testing.T) {
		g := New()
		_, err := g.CreateTarget("")
		assert.ErrorContains(t, err, "must not be empty")
		assert.Equal(t, 0, g.Len())
	})
}

func TestTargetSetters(t *testing.T) {
	g := New()
	tgt, err := g.CreateTarget("compile")
	require.NoError(t, err)

	ret := tgt.SetDescription("Compiles the solution.").
		SetAsDefault().
		Do("restore", noop).
		DoAsync("lint", noop).
		Do("", noop)

	assert.Same(t, tgt, ret, "setters should be chainable")
	assert.Equal(t, "Compiles the solution.", tgt.Description())
	assert.True(t, tgt.IsDefault())
	assert.False(t, tgt.Hidden())

	actions := tgt.Actions()
	require.Len(t, actions, 3)
	assert.Equal(t, "restore", actions[0].Name)
	assert.False(t, actions[0].Async)
	assert.Equal(t, "lint", actions[1].Name)
	assert.True(t, actions[1].Async)
	assert.Equal(t, "action[2]", actions[2].Name)

	hidden, _ := g.CreateTarget("load.solution")
	hidden.SetAsHidden()
	assert.True(t, hidden.Hidden())
	assert.Equal(t, []string{"compile"}, names(g.Defaults()))
}

func TestDependsOn(t *testing.T) {
	t.Run("appends edges in order", func(t *testing.T) {
		g := mustGraph(t, "a", "b", "c", "d")

		require.NoError(t, g.DependsOn("d", "b", "a"))
		require.NoError(t, g.DependsOnAsync("d", "c"))

		d, _ := g.Target("d")
		assert.Equal(t, []string{"b", "a"}, names(d.Dependencies()))
		assert.Equal(t, []string{"c"}, names(d.AsyncDependencies()))
	})

	t.Run("duplicate edges are ignored", func(t *testing.T) {
		g := mustGraph(t, "a", "b")

		require.NoError(t, g.DependsOn("b", "a", "a"))
		require.NoError(t, g.DependsOnAsync("b", "a"))

		b, _ := g.Target("b")
		assert.Equal(t, []string{"a"}, names(b.Dependencies()))
		assert.Empty(t, b.AsyncDependencies())
	})

	t.Run("unknown dependency", func(t *testing.T) {
		g := mustGraph(t, "a", "b")

		err := g.DependsOn("b", "a", "ghost")

		var unknown *UnknownTargetError
		require.True(t, errors.As(err, &unknown))
		assert.Equal(t, "ghost", unknown.Name)
		assert.Equal(t, "b", unknown.From)
		b, _ := g.Target("b")
		assert.Empty(t, b.Dependencies(), "a failed call must not add any edge")
	})

	t.Run("unknown dependent", func(t *testing.T) {
		g := mustGraph(t, "a")
		err := g.DependsOn("ghost", "a")
		assert.ErrorIs(t, err, ErrUnknownTarget)
	})

	t.Run("self dependency", func(t *testing.T) {
		g := mustGraph(t, "a")

		err := g.DependsOn("a", "a")

		var cycle *CycleError
		require.True(t, errors.As(err, &cycle))
		assert.Equal(t, []string{"a", "a"}, cycle.Path)
	})

	t.Run("two-node cycle is rejected at creation", func(t *testing.T) {
		g := mustGraph(t, "A", "B")
		require.NoError(t, g.DependsOn("B", "A"))

		err := g.DependsOn("A", "B")

		var cycle *CycleError
		require.True(t, errors.As(err, &cycle))
		assert.Equal(t, []string{"A", "B", "A"}, cycle.Path)
		assert.EqualError(t, err, "dependency cycle detected: A -> B -> A")
		a, _ := g.Target("A")
		assert.Empty(t, a.Dependencies(), "rejected edge must be rolled back")
		assert.NoError(t, g.DetectCycles())
	})

	t.Run("cycle through async edge", func(t *testing.T) {
		g := mustGraph(t, "a", "b", "c")
		require.NoError(t, g.DependsOn("b", "a"))
		require.NoError(t, g.DependsOnAsync("c", "b"))

		err := g.DependsOn("a", "c")

		assert.ErrorIs(t, err, ErrCycle)
		assert.NoError(t, g.DetectCycles())
	})

	t.Run("whole batch rolled back", func(t *testing.T) {
		g := mustGraph(t, "a", "b", "c")
		require.NoError(t, g.DependsOn("c", "a"))

		err := g.DependsOn("a", "b", "c")

		assert.ErrorIs(t, err, ErrCycle)
		a, _ := g.Target("a")
		assert.Empty(t, a.Dependencies(), "b must not be kept when c closes a cycle")
	})
}

func TestFreeze(t *testing.T) {
	g := mustGraph(t, "a", "b")
	g.Freeze()
	g.Freeze()

	_, err := g.CreateTarget("c")
	assert.ErrorIs(t, err, ErrGraphFrozen)
	assert.ErrorIs(t, g.DependsOn("b", "a"), ErrGraphFrozen)

	a, _ := g.Target("a")
	assert.Panics(t, func() { a.Do("late", noop) })
}

func TestDetectCycles(t *testing.T) {
	t.Run("empty graph has no cycles", func(t *testing.T) {
		assert.NoError(t, New().DetectCycles())
	})

	t.Run("diamond has no cycles", func(t *testing.T) {
		g := mustGraph(t, "a", "b", "c", "d")
		require.NoError(t, g.DependsOn("b", "a"))
		require.NoError(t, g.DependsOn("c", "a"))
		require.NoError(t, g.DependsOn("d", "b", "c"))
		assert.NoError(t, g.DetectCycles())
	})

	t.Run("finds a cycle planted behind the builder", func(t *testing.T) {
		g := mustGraph(t, "a", "b")
		a, _ := g.Target("a")
		b, _ := g.Target("b")
		a.deps = append(a.deps, b)
		b.deps = append(b.deps, a)

		err := g.DetectCycles()

		var cycle *CycleError
		require.True(t, errors.As(err, &cycle))
		assert.Equal(t, []string{"a", "b", "a"}, cycle.Path)
	})
}

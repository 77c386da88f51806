package builder

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vk/buildgridgo/internal/buildctx"
	"github.com/vk/buildgridgo/internal/config"
	"github.com/vk/buildgridgo/internal/dag"
	"github.com/vk/buildgridgo/internal/executor"
	"github.com/vk/buildgridgo/internal/hcl"
	"github.com/vk/buildgridgo/internal/registry"
	"github.com/vk/buildgridgo/internal/scheduler"
)

type recordInput struct {
	Message string `bggo:"message"`
}

// recorderModule registers a "record" action that appends its message to a
// shared log and returns it.
type recorderModule struct {
	mu   sync.Mutex
	seen []string
}

func (m *recorderModule) Register(r *registry.Registry) {
	r.RegisterAction("record", registry.Typed("Records a message.",
		func(_ context.Context, _ *buildctx.Context, in *recordInput) (string, error) {
			m.mu.Lock()
			defer m.mu.Unlock()
			m.seen = append(m.seen, in.Message)
			return in.Message, nil
		}))
	r.RegisterAction("fail", &registry.RegisteredAction{
		Fn: func(context.Context, *buildctx.Context, any) (any, error) {
			return nil, errors.New("boom")
		},
	})
}

func (m *recorderModule) messages() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.seen...)
}

func loadScript(t *testing.T, src string) (*config.Model, config.Converter) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "build.hcl")
	require.NoError(t, os.WriteFile(path, []byte(src), 0o644))
	model, conv, err := hcl.NewLoader().Load(context.Background(), path)
	require.NoError(t, err)
	return model, conv
}

func runScript(t *testing.T, src string, args buildctx.ScriptArgs, targets ...string) (*recorderModule, *buildctx.Context, error) {
	t.Helper()
	model, conv := loadScript(t, src)
	mod := &recorderModule{}
	reg := registry.New()
	reg.Load(mod)

	bc := buildctx.New(args, nil)
	ctx := context.Background()
	require.NoError(t, SeedProperties(ctx, model, bc, conv))

	g, err := Build(ctx, model, reg, conv)
	require.NoError(t, err)
	plan, err := scheduler.NewPlan(g, targets...)
	require.NoError(t, err)
	return mod, bc, executor.New(plan, bc).Run(ctx)
}

func TestBuild_GraphShape(t *testing.T) {
	// --- Arrange ---
	model, conv := loadScript(t, `
target "package" {
  description      = "Packages the build."
  default          = true
  depends_on       = ["compile"]
  depends_on_async = ["docs"]
  action "record" {
    arguments { message = "package" }
  }
  action "record" {
    name  = "upload"
    async = true
    arguments { message = "upload" }
  }
}
target "compile" {
  hidden = true
}
target "docs" {}
`)
	reg := registry.New()
	reg.Load(&recorderModule{})

	// --- Act ---
	g, err := Build(context.Background(), model, reg, conv)

	// --- Assert ---
	require.NoError(t, err)
	assert.Equal(t, 3, g.Len())

	pkg, ok := g.Target("package")
	require.True(t, ok)
	assert.Equal(t, "Packages the build.", pkg.Description())
	assert.True(t, pkg.IsDefault())
	require.Len(t, pkg.Dependencies(), 1)
	assert.Equal(t, "compile", pkg.Dependencies()[0].Name())
	require.Len(t, pkg.AsyncDependencies(), 1)
	assert.Equal(t, "docs", pkg.AsyncDependencies()[0].Name())

	actions := pkg.Actions()
	require.Len(t, actions, 2)
	assert.Equal(t, "record#1", actions[0].Name)
	assert.False(t, actions[0].Async)
	assert.Equal(t, "upload", actions[1].Name)
	assert.True(t, actions[1].Async)

	compile, _ := g.Target("compile")
	assert.True(t, compile.Hidden())
}

func TestBuild_Errors(t *testing.T) {
	testCases := []struct {
		name    string
		script  string
		wantErr error
		wantMsg string
	}{
		{
			name:    "unknown action type",
			script: `
target "a" {
  action "teleport" {
    name = "beam"
  }
}`,
			wantMsg: `target "a", action "beam": unknown action type "teleport"`,
		},
		{
			name:    "duplicate target",
			script:  "target \"a\" {}\ntarget \"a\" {}",
			wantErr: dag.ErrDuplicateTarget,
		},
		{
			name:    "unknown dependency",
			script:  `target "a" { depends_on = ["ghost"] }`,
			wantErr: dag.ErrUnknownTarget,
		},
		{
			name: "cycle across sync and async edges",
			script: `
target "a" { depends_on = ["b"] }
target "b" { depends_on_async = ["a"] }`,
			wantErr: dag.ErrCycle,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			model, conv := loadScript(t, tc.script)
			reg := registry.New()
			reg.Load(&recorderModule{})

			_, err := Build(context.Background(), model, reg, conv)

			require.Error(t, err)
			if tc.wantErr != nil {
				assert.ErrorIs(t, err, tc.wantErr)
			}
			if tc.wantMsg != "" {
				assert.ErrorContains(t, err, tc.wantMsg)
			}
		})
	}
}

func TestBuild_ForwardReferences(t *testing.T) {
	_, _, err := runScript(t, `
target "b" {
  depends_on = ["a"]
  action "record" {
    arguments { message = "b" }
  }
}
target "a" {
  action "record" {
    arguments { message = "a" }
  }
}
`, nil, "b")
	require.NoError(t, err)
}

func TestBuild_PropertiesFlowBetweenActions(t *testing.T) {
	// --- Arrange ---
	script := `
properties {
  Product = "demo"
  Config  = lookup(arg, "config", "Release")
  Label   = "${prop.Product}-${prop.Config}"
}

target "version" {
  action "record" {
    set_property = "version"
    arguments { message = "1.2.3" }
  }
}

target "package" {
  default    = true
  depends_on = ["version"]
  action "record" {
    set_property = "artifact"
    arguments { message = "${prop.Label}-${prop.version}.zip" }
  }
  action "record" {
    arguments { message = "made by ${target.name}: ${prop.artifact}" }
  }
}
`

	// --- Act ---
	mod, bc, err := runScript(t, script, buildctx.ScriptArgs{"config": "Debug"})

	// --- Assert ---
	require.NoError(t, err)
	assert.Equal(t, []string{
		"1.2.3",
		"demo-Debug-1.2.3.zip",
		"made by package: demo-Debug-1.2.3.zip",
	}, mod.messages())

	artifact, err := buildctx.GetAs[string](bc.Properties, "artifact")
	require.NoError(t, err)
	assert.Equal(t, "demo-Debug-1.2.3.zip", artifact)
}

func TestBuild_ArgumentErrorNamesTargetAndAction(t *testing.T) {
	_, _, err := runScript(t, `
target "a" {
  default = true
  action "record" {
    name = "say"
    arguments { message = prop.missing }
  }
}
`, nil)

	var failure *executor.ActionFailureError
	require.ErrorAs(t, err, &failure)
	assert.Equal(t, "a", failure.Target)
	assert.Equal(t, "say", failure.Action)
	assert.ErrorContains(t, err, `argument "message"`)
}

func TestBuild_FailingActionStopsDependents(t *testing.T) {
	mod, _, err := runScript(t, `
target "a" {
  action "fail" {}
}
target "b" {
  default    = true
  depends_on = ["a"]
  action "record" {
    arguments { message = "b" }
  }
}
`, nil)

	assert.ErrorContains(t, err, "boom")
	assert.Empty(t, mod.messages())
}

func TestBuild_UntypedActionRejectsArguments(t *testing.T) {
	_, _, err := runScript(t, `
target "a" {
  default = true
  action "fail" {
    arguments { x = 1 }
  }
}
`, nil)

	assert.ErrorContains(t, err, `action type "fail" takes no arguments`)
}

func TestSeedProperties_Error(t *testing.T) {
	model, conv := loadScript(t, `
properties {
  Broken = prop.Later
  Later  = "x"
}
`)
	err := SeedProperties(context.Background(), model, buildctx.New(nil, nil), conv)
	assert.ErrorContains(t, err, `property "Broken"`)
}

package app

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vk/buildgridgo/internal/buildctx"
	"github.com/vk/buildgridgo/internal/executor"
	"github.com/vk/buildgridgo/internal/hcl"
	"github.com/vk/buildgridgo/internal/scheduler"
	"github.com/vk/buildgridgo/internal/testutil"
	"github.com/vk/buildgridgo/modules/print"
)

const rebuildScript = `
properties {
  Product = "demo"
  Config  = lookup(arg, "config", "Release")
}

target "fetch" {
  hidden = true
  action "record" {
    set_property = "fetched"
    arguments { id = "fetch" }
  }
}

target "compile" {
  description = "Compiles the solution."
  depends_on  = ["fetch"]
  action "record" {
    arguments { id = "compile-${prop.Config}" }
  }
}

target "test" {
  action "record" {
    name  = "unit"
    async = true
    arguments {
      id    = "unit"
      sleep = "20ms"
    }
  }
  action "record" {
    name  = "integration"
    async = true
    arguments {
      id    = "integration"
      sleep = "20ms"
    }
  }
}

target "docs" {
  action "record" {
    arguments { id = "docs" }
  }
}

target "rebuild" {
  default          = true
  depends_on       = ["compile", "test"]
  depends_on_async = ["docs"]
  action "print" {
    arguments { message = "${prop.Product} rebuilt after ${prop.fetched}" }
  }
}

target "broken" {
  action "record" {
    arguments {
      id   = "broken"
      fail = true
    }
  }
}

target "after.broken" {
  depends_on = ["broken"]
  action "record" {
    arguments { id = "after" }
  }
}
`

func setupApp(t *testing.T, cfg Config) (*App, *testutil.RecorderModule, *testutil.SafeBuffer) {
	t.Helper()
	dir := testutil.WriteFiles(t, map[string]string{"build.hcl": rebuildScript})
	cfg.ScriptPath = dir
	cfg.LogLevel = "debug"
	appCfg, err := NewConfig(cfg)
	require.NoError(t, err)

	rec := testutil.NewRecorderModule()
	out := &testutil.SafeBuffer{}
	testutil.DumpLogs(t, out)
	a, err := NewApp(out, appCfg, hcl.NewLoader(), rec, &print.Module{})
	require.NoError(t, err)
	return a, rec, out
}

func TestApp_RunDefaultTargets(t *testing.T) {
	// --- Arrange ---
	a, rec, out := setupApp(t, Config{ScriptArgs: buildctx.ScriptArgs{"config": "Debug"}})

	// --- Act ---
	err := a.Run(context.Background())

	// --- Assert ---
	require.NoError(t, err)
	order := rec.Order()
	assert.ElementsMatch(t, []string{"fetch", "compile-Debug", "unit", "integration", "docs"}, order)
	assert.Less(t, indexOf(order, "fetch"), indexOf(order, "compile-Debug"))

	unit, _ := rec.Record("unit")
	integration, _ := rec.Record("integration")
	assert.True(t, unit.Start.Before(integration.End) && integration.Start.Before(unit.End), "async actions should overlap")

	assert.Contains(t, out.String(), "demo rebuilt after fetch")
	assert.Contains(t, out.String(), "succeeded")
	assert.Contains(t, out.String(), "🏁 Build finished.")
}

func TestApp_RunFailureStopsDependents(t *testing.T) {
	a, rec, out := setupApp(t, Config{Targets: []string{"after.broken"}})

	err := a.Run(context.Background())

	var failure *executor.ActionFailureError
	require.ErrorAs(t, err, &failure)
	assert.Equal(t, "broken", failure.Target)
	assert.NotContains(t, rec.Order(), "after")
	assert.Contains(t, out.String(), "failed")
	assert.Contains(t, out.String(), "skipped")
}

func TestApp_RunUnknownAndHiddenTargets(t *testing.T) {
	a, _, _ := setupApp(t, Config{Targets: []string{"nope"}})
	assert.ErrorContains(t, a.Run(context.Background()), `unknown target "nope"`)

	a, _, _ = setupApp(t, Config{Targets: []string{"fetch"}})
	assert.ErrorIs(t, a.Run(context.Background()), scheduler.ErrHiddenTarget)
}

func TestApp_List(t *testing.T) {
	a, rec, out := setupApp(t, Config{Command: CommandList})

	require.NoError(t, a.Run(context.Background()))

	listing := out.String()
	assert.Contains(t, listing, "Compiles the solution.")
	assert.Contains(t, listing, "rebuild")
	assert.Contains(t, listing, "docs (async)")
	assert.Empty(t, rec.Order())
}

func TestApp_Plan(t *testing.T) {
	a, rec, out := setupApp(t, Config{Command: CommandPlan, Targets: []string{"rebuild"}})

	require.NoError(t, a.Run(context.Background()))

	plan := out.String()
	require.Contains(t, plan, "╭")
	plan = plan[strings.Index(plan, "╭"):]
	assert.Less(t, strings.Index(plan, "fetch"), strings.Index(plan, "compile"))
	assert.Less(t, strings.Index(plan, "compile"), strings.Index(plan, "rebuild"))
	assert.Contains(t, plan, "deferred")
	assert.Contains(t, plan, "unit (async)")
	assert.Empty(t, rec.Order())
}

func TestApp_StatusEndpoint(t *testing.T) {
	a, _, _ := setupApp(t, Config{})
	server := httptest.NewServer(a.healthcheckMux())
	defer server.Close()

	resp, err := http.Get(server.URL + "/status")
	require.NoError(t, err)
	var before struct {
		Running bool              `json:"running"`
		Targets []json.RawMessage `json:"targets"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&before))
	resp.Body.Close()
	assert.False(t, before.Running)
	assert.Empty(t, before.Targets)

	require.NoError(t, a.Run(context.Background()))

	resp, err = http.Get(server.URL + "/status")
	require.NoError(t, err)
	defer resp.Body.Close()
	var after struct {
		Running bool `json:"running"`
		Targets []struct {
			Name  string `json:"name"`
			State string `json:"state"`
		} `json:"targets"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&after))
	assert.False(t, after.Running)
	require.NotEmpty(t, after.Targets)
	for _, s := range after.Targets {
		assert.Equal(t, "succeeded", s.State, s.Name)
	}

	health, err := http.Get(server.URL + "/health")
	require.NoError(t, err)
	defer health.Body.Close()
	assert.Equal(t, http.StatusOK, health.StatusCode)
}

func TestNewApp_Errors(t *testing.T) {
	cfg, err := NewConfig(Config{ScriptPath: testutil.WriteFiles(t, map[string]string{
		"build.hcl": `
target "a" {
  action "unknown_type" {}
}`,
	})})
	require.NoError(t, err)

	_, err = NewApp(&testutil.SafeBuffer{}, cfg, hcl.NewLoader(), testutil.NewRecorderModule())
	assert.ErrorContains(t, err, `unknown action type "unknown_type"`)

	cfg.ScriptPath = t.TempDir()
	_, err = NewApp(&testutil.SafeBuffer{}, cfg, hcl.NewLoader())
	assert.ErrorIs(t, err, hcl.ErrNoScripts)
}

func TestNewApp_CoreModules(t *testing.T) {
	cfg, err := NewConfig(Config{ScriptPath: testutil.WriteFiles(t, map[string]string{"build.hcl": `target "a" {}`})})
	require.NoError(t, err)

	a, err := NewApp(&testutil.SafeBuffer{}, cfg, hcl.NewLoader())

	require.NoError(t, err)
	assert.Equal(t, []string{
		"env_vars", "exec", "fetch_version", "http_request", "json_file",
		"print", "s3_upload", "set_properties", "socketio_emit", "zip",
	}, a.Registry().Names())
}

func indexOf(list []string, v string) int {
	for i, s := range list {
		if s == v {
			return i
		}
	}
	return -1
}

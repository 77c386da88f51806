package buildctx

import (
	"bytes"
	"fmt"
	"sync"
	"log/slog"
	"runtime"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_PredefinedProperties(t *testing.T) {
	// --- Arrange ---
	fixed := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	out := &bytes.Buffer{}

	// --- Act ---
	c := New(ScriptArgs{"config": "Debug"}, slog.Default(), WithOutput(out), WithClock(func() time.Time { return fixed }))

	// --- Assert ---
	_, err := uuid.Parse(c.RunID)
	require.NoError(t, err, "run id should be a UUID")

	runID, err := GetAs[string](c.Properties, PropRunID)
	require.NoError(t, err)
	assert.Equal(t, c.RunID, runID)
	assert.Equal(t, runtime.GOOS, GetOr(c.Properties, PropOSPlatform, ""))
	assert.Equal(t, runtime.GOARCH, GetOr(c.Properties, PropOSArch, ""))
	assert.Equal(t, "2024-05-01T12:00:00Z", GetOr(c.Properties, PropBuildStartedAt, ""))
	assert.True(t, c.Properties.Has(PropWorkDir))
	_, err = c.Out.Write([]byte("hello"))
	require.NoError(t, err)
	assert.Equal(t, "hello", out.String())
	assert.Equal(t, "Debug", c.Args.Get("config"))
}

func TestNew_FreshPerRun(t *testing.T) {
	a := New(nil, nil)
	b := New(nil, nil)

	a.Properties.Set("x", 1)
	assert.False(t, b.Properties.Has("x"))
	assert.NotEqual(t, a.RunID, b.RunID)
	assert.NotNil(t, a.Args)
	assert.NotNil(t, a.Logger)
}

func TestScriptArgs_Get(t *testing.T) {
	args := ScriptArgs{"exampleArg": "value"}

	assert.Equal(t, "value", args.Get("exampleArg"))
	assert.Equal(t, "", args.Get("argName"), "absent key must yield an empty string")

	_, ok := args.Lookup("argName")
	assert.False(t, ok)

	var nilArgs ScriptArgs
	assert.Equal(t, "", nilArgs.Get("anything"))
}

func TestParseScriptArgs(t *testing.T) {
	testCases := []struct {
		name    string
		raw     []string
		want    ScriptArgs
		wantErr string
	}{
		{
			name: "single and double dash",
			raw:  []string{"-exampleArg=x", "--config=Release"},
			want: ScriptArgs{"exampleArg": "x", "config": "Release"},
		},
		{
			name: "value containing equals",
			raw:  []string{"-query=a=b"},
			want: ScriptArgs{"query": "a=b"},
		},
		{
			name: "bare flag",
			raw:  []string{"-verbose"},
			want: ScriptArgs{"verbose": "true"},
		},
		{
			name: "later wins",
			raw:  []string{"-a=1", "-a=2"},
			want: ScriptArgs{"a": "2"},
		},
		{
			name:    "not a flag",
			raw:     []string{"compile"},
			wantErr: "expected -key=value",
		},
		{
			name:    "empty key",
			raw:     []string{"-=x"},
			wantErr: "empty key",
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := ParseScriptArgs(tc.raw)
			if tc.wantErr != "" {
				assert.ErrorContains(t, err, tc.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestNew_OutputIsSafeForConcurrentActions(t *testing.T) {
	// --- Arrange ---
	out := &bytes.Buffer{}
	c := New(nil, nil, WithOutput(out))

	// --- Act ---
	var wg sync.WaitGroup
	for i := range 20 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := range 50 {
				fmt.Fprintf(c.Out, "w%02d-%02d\n", i, j)
			}
		}()
	}
	wg.Wait()

	// --- Assert ---
	lines := bytes.Split(bytes.TrimSpace(out.Bytes()), []byte("\n"))
	require.Len(t, lines, 20*50)
	for _, line := range lines {
		assert.Len(t, line, len("w00-00"))
	}
}

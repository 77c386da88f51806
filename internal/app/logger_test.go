package app

import (
	"bytes"
	"encoding/json"
	"regexp"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewLogger(t *testing.T) {
	t.Run("text format shortens time and durations", func(t *testing.T) {
		buf := &bytes.Buffer{}
		logger := newLogger(&Config{LogLevel: "info", LogFormat: "text"}, buf)

		logger.Info("done", "duration", 1234567*time.Microsecond)

		assert.Regexp(t, regexp.MustCompile(`^time=\d{2}:\d{2}:\d{2}\.\d{3} level=INFO msg=done duration=1.235s`), buf.String())
	})

	t.Run("json format", func(t *testing.T) {
		buf := &bytes.Buffer{}
		logger := newLogger(&Config{LogLevel: "warn", LogFormat: "json"}, buf)

		logger.Info("hidden")
		logger.Warn("shown", "target", "compile")

		var entry map[string]any
		require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
		assert.Equal(t, "shown", entry["msg"])
		assert.Equal(t, "compile", entry["target"])
	})

	t.Run("level filtering", func(t *testing.T) {
		testCases := []struct {
			level     string
			wantDebug bool
			wantInfo  bool
		}{
			{level: "debug", wantDebug: true, wantInfo: true},
			{level: "info", wantInfo: true},
			{level: "error"},
			{level: "bogus", wantInfo: true},
		}
		for _, tc := range testCases {
			t.Run(tc.level, func(t *testing.T) {
				buf := &bytes.Buffer{}
				logger := newLogger(&Config{LogLevel: tc.level}, buf)

				logger.Debug("dbg")
				logger.Info("inf")

				assert.Equal(t, tc.wantDebug, bytes.Contains(buf.Bytes(), []byte("msg=dbg")))
				assert.Equal(t, tc.wantInfo, bytes.Contains(buf.Bytes(), []byte("msg=inf")))
			})
		}
	})
}

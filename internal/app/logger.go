package app

import (
	"io"
	"log/slog"
	"time"
)

// logTimeFormat is the time layout of text logs.
const logTimeFormat = "15:04:05.000"

// newLogger builds the run's logger from cfg. It never touches the global
// logger, so several apps can coexist in one process.
func newLogger(cfg *Config, outW io.Writer) *slog.Logger {
	var level slog.Level
	if err := level.UnmarshalText([]byte(cfg.LogLevel)); err != nil {
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: level}
	if cfg.LogFormat == "json" {
		return slog.New(slog.NewJSONHandler(outW, opts))
	}

	opts.ReplaceAttr = func(groups []string, a slog.Attr) slog.Attr {
		if len(groups) == 0 && a.Key == slog.TimeKey && a.Value.Kind() == slog.KindTime {
			return slog.String(slog.TimeKey, a.Value.Time().Format(logTimeFormat))
		}
		if a.Value.Kind() == slog.KindDuration {
			return slog.String(a.Key, a.Value.Duration().Round(time.Millisecond).String())
		}
		return a
	}
	return slog.New(slog.NewTextHandler(outW, opts))
}

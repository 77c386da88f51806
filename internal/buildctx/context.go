package buildctx

import (
	"io"
	"log/slog"
	"os"
	"runtime"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Names of the properties every Context starts with.
const (
	PropRunID          = "run_id"
	PropOSPlatform     = "os_platform"
	PropOSArch         = "os_arch"
	PropBuildStartedAt = "build_started_at"
	PropWorkDir        = "work_dir"
)

// Context is the shared state of a single build run.
type Context struct {
	Properties *Properties
	Args       ScriptArgs
	Logger     *slog.Logger
	// Out receives user-facing output of actions such as print.
	Out       io.Writer
	RunID     string
	StartedAt time.Time
}

// syncWriter serialises writes from concurrent actions onto one writer.
type syncWriter struct {
	mu sync.Mutex
	w  io.Writer
}

func (s *syncWriter) Write(p []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.w.Write(p)
}

// Option customises a Context created by New.
type Option func(*Context)

// WithOutput sets the writer actions print to. It defaults to os.Stdout.
func WithOutput(w io.Writer) Option {
	return func(c *Context) { c.Out = w }
}

// WithClock overrides the start time, mostly for tests.
func WithClock(now func() time.Time) Option {
	return func(c *Context) { c.StartedAt = now() }
}

// New builds a fresh Context for one run and seeds the predefined
// properties.
func New(args ScriptArgs, logger *slog.Logger, opts ...Option) *Context {
	if logger == nil {
		logger = slog.Default()
	}
	if args == nil {
		args = ScriptArgs{}
	}

	c := &Context{
		Properties: NewProperties(),
		Args:       args,
		Logger:     logger,
		Out:        os.Stdout,
		RunID:      uuid.NewString(),
		StartedAt:  time.Now(),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.Out == nil {
		c.Out = io.Discard
	}
	c.Out = &syncWriter{w: c.Out}

	c.Properties.Set(PropRunID, c.RunID)
	c.Properties.Set(PropOSPlatform, runtime.GOOS)
	c.Properties.Set(PropOSArch, runtime.GOARCH)
	c.Properties.Set(PropBuildStartedAt, c.StartedAt.UTC().Format(time.RFC3339))
	if wd, err := os.Getwd(); err == nil {
		c.Properties.Set(PropWorkDir, wd)
	} else {
		logger.Warn("Could not resolve working directory.", "error", err)
	}

	return c
}

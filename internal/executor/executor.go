package executor

import (
	"context"
	"errors"
	"sync"
	"time"

	"golang.org/x/sync/semaphore"

	"github.com/vk/buildgridgo/internal/buildctx"
	"github.com/vk/buildgridgo/internal/ctxlog"
	"github.com/vk/buildgridgo/internal/dag"
	"github.com/vk/buildgridgo/internal/scheduler"
)

// DefaultWorkers bounds concurrent async actions when WithWorkers is not
// given.
const DefaultWorkers = 10

// Executor runs one plan against one execution context.
type Executor struct {
	plan    *scheduler.Plan
	bc      *buildctx.Context
	workers int
	pool    *semaphore.Weighted
	now     func() time.Time

	mu      sync.Mutex
	started bool
	runs    map[string]*future
	status  map[string]*TargetStatus
	first   error
	cancel  context.CancelFunc

	// inflight tracks goroutines started for async dependencies.
	inflight sync.WaitGroup
}

// future is the memoized outcome of one target.
type future struct {
	done chan struct{}
	err  error
}

// Option configures an Executor.
type Option func(*Executor)

// WithWorkers bounds how many async actions run at once across the run.
func WithWorkers(n int) Option {
	return func(e *Executor) {
		if n < 1 {
			n = 1
		}
		e.workers = n
	}
}

// WithClock overrides the clock used for status timings.
func WithClock(now func() time.Time) Option {
	return func(e *Executor) { e.now = now }
}

// New creates an executor for plan. bc is shared by every action of the run.
func New(plan *scheduler.Plan, bc *buildctx.Context, opts ...Option) *Executor {
	e := &Executor{
		plan:    plan,
		bc:      bc,
		workers: DefaultWorkers,
		now:     time.Now,
		runs:    make(map[string]*future),
		status:  make(map[string]*TargetStatus),
	}
	for _, opt := range opts {
		opt(e)
	}
	e.pool = semaphore.NewWeighted(int64(e.workers))
	for _, t := range plan.Targets() {
		e.status[t.Name()] = &TargetStatus{Name: t.Name(), State: Pending}
	}
	return e
}

// Run executes the plan. It returns nil when every planned target succeeded,
// otherwise the first error, usually an *ActionFailureError.
func (e *Executor) Run(ctx context.Context) error {
	e.mu.Lock()
	if e.started {
		e.mu.Unlock()
		return errors.New("executor: Run called twice")
	}
	e.started = true
	ctx, cancel := context.WithCancel(ctx)
	e.cancel = cancel
	e.mu.Unlock()
	defer cancel()

	logger := ctxlog.FromContext(ctx)
	logger.Debug("Executor starting run.", "targets", e.plan.Names(), "workers", e.workers)

	// Dependencies are started by their dependents.
	for _, t := range e.roots() {
		if err := e.ensure(ctx, t); err != nil {
			break
		}
	}

	e.inflight.Wait()
	e.markSkipped()

	if err := e.err(); err != nil {
		logger.Debug("Executor run aborted.", "error", err)
		return err
	}
	logger.Debug("Executor run finished.")
	return nil
}

// roots returns the requested targets in plan order.
func (e *Executor) roots() []*dag.Target {
	requested := make(map[string]bool)
	for _, t := range e.plan.Requested() {
		requested[t.Name()] = true
	}
	var out []*dag.Target
	for _, t := range e.plan.Targets() {
		if requested[t.Name()] {
			out = append(out, t)
		}
	}
	return out
}

// fail records err as the run's outcome if it is the first failure and
// cancels everything still running.
func (e *Executor) fail(err error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.first != nil {
		return
	}
	e.first = err
	if e.cancel != nil {
		e.cancel()
	}
}

func (e *Executor) err() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.first
}

package executor

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/vk/buildgridgo/internal/ctxlog"
	"github.com/vk/buildgridgo/internal/dag"
)

// claim returns the future for t and whether the caller owns running it.
func (e *Executor) claim(t *dag.Target) (*future, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if f, ok := e.runs[t.Name()]; ok {
		return f, false
	}
	f := &future{done: make(chan struct{})}
	e.runs[t.Name()] = f
	return f, true
}

func (e *Executor) settle(t *dag.Target, f *future, err error) {
	f.err = err
	e.markDone(t.Name(), err)
	close(f.done)
	if err != nil {
		e.fail(err)
	}
}

// ensure runs t on the calling goroutine unless it already ran or is
// running, and waits for its outcome.
func (e *Executor) ensure(ctx context.Context, t *dag.Target) error {
	f, owner := e.claim(t)
	if owner {
		e.settle(t, f, e.execute(ctx, t))
	}
	<-f.done
	return f.err
}

// spawn starts t on its own goroutine unless it already ran or is running.
func (e *Executor) spawn(ctx context.Context, t *dag.Target) *future {
	f, owner := e.claim(t)
	if owner {
		e.inflight.Add(1)
		go func() {
			defer e.inflight.Done()
			e.settle(t, f, e.execute(ctx, t))
		}()
	}
	return f
}

func (e *Executor) execute(ctx context.Context, t *dag.Target) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("target %q not started: %w", t.Name(), err)
	}

	var pending []*future
	for _, d := range t.AsyncDependencies() {
		pending = append(pending, e.spawn(ctx, d))
	}

	var depErr error
	for _, d := range t.Dependencies() {
		if err := e.ensure(ctx, d); err != nil {
			depErr = err
			break
		}
	}
	for _, f := range pending {
		<-f.done
		if depErr == nil && f.err != nil {
			depErr = f.err
		}
	}
	if depErr != nil {
		return depErr
	}

	if err := ctx.Err(); err != nil {
		return fmt.Errorf("target %q not started: %w", t.Name(), err)
	}
	return e.runActions(ctx, t)
}

func (e *Executor) runActions(ctx context.Context, t *dag.Target) error {
	logger := ctxlog.FromContext(ctx).With("target", t.Name())
	ctx = ctxlog.WithLogger(ctx, logger)

	e.markRunning(t.Name())
	logger.Info("▶️ Starting target")
	start := time.Now()

	var group errgroup.Group
	var err error
	for _, a := range t.Actions() {
		if ctxErr := ctx.Err(); ctxErr != nil {
			err = fmt.Errorf("target %q aborted before action %q: %w", t.Name(), a.Name, ctxErr)
			break
		}
		if !a.Async {
			if err = e.invoke(ctx, t, a); err != nil {
				break
			}
			continue
		}
		if acqErr := e.pool.Acquire(ctx, 1); acqErr != nil {
			err = fmt.Errorf("target %q aborted before action %q: %w", t.Name(), a.Name, acqErr)
			break
		}
		group.Go(func() error {
			defer e.pool.Release(1)
			return e.invoke(ctx, t, a)
		})
	}

	// Async actions already started are always joined.
	if waitErr := group.Wait(); err == nil {
		err = waitErr
	}
	if err != nil {
		return err
	}

	logger.Info("✅ Finished target", "duration", time.Since(start).Round(time.Millisecond))
	return nil
}

// invoke runs one action. Failures are recorded immediately so a failing
// async action stops the rest of the run without waiting for its target.
func (e *Executor) invoke(ctx context.Context, t *dag.Target, a *dag.Action) error {
	logger := ctxlog.FromContext(ctx).With("action", a.Name)
	logger.Debug("Running action.", "async", a.Async)

	err := safeRun(ctxlog.WithLogger(ctx, logger), e, a)
	if err == nil {
		logger.Debug("Action finished.")
		return nil
	}

	failure := &ActionFailureError{Target: t.Name(), Action: a.Name, Err: err}
	if ctx.Err() == nil {
		logger.Error("Action failed.", "error", err)
	} else {
		logger.Debug("Action stopped after run was aborted.", "error", err)
	}
	e.fail(failure)
	return failure
}

func safeRun(ctx context.Context, e *Executor, a *dag.Action) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = &panicError{value: r}
		}
	}()
	return a.Run(ctx, e.bc)
}

package executor

import (
	"fmt"
	"time"
)

// State is the execution state of a planned target.
type State int32

const (
	Pending State = iota
	Running
	Succeeded
	Failed
	// Skipped targets never ran because the run was aborted.
	Skipped
)

func (s State) String() string {
	switch s {
	case Pending:
		return "pending"
	case Running:
		return "running"
	case Succeeded:
		return "succeeded"
	case Failed:
		return "failed"
	case Skipped:
		return "skipped"
	default:
		return fmt.Sprintf("State(%d)", int32(s))
	}
}

// MarshalText renders the state by name in JSON status reports.
func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// TargetStatus is a point-in-time view of one target.
type TargetStatus struct {
	Name     string        `json:"name"`
	State    State         `json:"state"`
	Started  time.Time     `json:"started"`
	Finished time.Time     `json:"finished"`
	Duration time.Duration `json:"duration_ns"`
	Error    string        `json:"error,omitempty"`
}

// Snapshot returns the status of every planned target in plan order.
func (e *Executor) Snapshot() []TargetStatus {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]TargetStatus, 0, len(e.plan.Targets()))
	for _, t := range e.plan.Targets() {
		out = append(out, *e.status[t.Name()])
	}
	return out
}

// Status returns the status of a single planned target.
func (e *Executor) Status(name string) (TargetStatus, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	s, ok := e.status[name]
	if !ok {
		return TargetStatus{}, false
	}
	return *s, true
}

func (e *Executor) markRunning(name string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	s := e.status[name]
	s.State = Running
	s.Started = e.now()
}

// markDone settles a target. A target that failed before its actions
// started is recorded as skipped.
func (e *Executor) markDone(name string, err error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	s := e.status[name]
	switch {
	case err == nil:
		s.State = Succeeded
	case s.State == Running:
		s.State = Failed
		s.Error = err.Error()
	default:
		s.State = Skipped
	}
	if !s.Started.IsZero() {
		s.Finished = e.now()
		s.Duration = s.Finished.Sub(s.Started)
	}
}

// markSkipped settles every target that never started.
func (e *Executor) markSkipped() {
	e.mu.Lock()
	defer e.mu.Unlock()
	for _, s := range e.status {
		if s.State == Pending {
			s.State = Skipped
		}
	}
}

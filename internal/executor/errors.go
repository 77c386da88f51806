package executor

import "fmt"

// ActionFailureError reports the action that failed a run.
type ActionFailureError struct {
	Target string
	Action string
	Err    error
}

func (e *ActionFailureError) Error() string {
	return fmt.Sprintf("target %q failed: action %q: %v", e.Target, e.Action, e.Err)
}

func (e *ActionFailureError) Unwrap() error { return e.Err }

// panicError wraps a value recovered from a panicking action.
type panicError struct {
	value any
}

func (e *panicError) Error() string {
	return fmt.Sprintf("action panicked: %v", e.value)
}

package dag

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrDuplicateTarget is matched by every *DuplicateTargetError.
	ErrDuplicateTarget = errors.New("duplicate target")
	// ErrUnknownTarget is matched by every *UnknownTargetError.
	ErrUnknownTarget = errors.New("unknown target")
	// ErrCycle is matched by every *CycleError.
	ErrCycle = errors.New("dependency cycle")
	// ErrGraphFrozen is returned when a frozen graph is mutated.
	ErrGraphFrozen = errors.New("graph is frozen")
)

// DuplicateTargetError reports a second target registered under a taken name.
type DuplicateTargetError struct {
	Name string
}

func (e *DuplicateTargetError) Error() string {
	return fmt.Sprintf("target %q is already defined", e.Name)
}

func (e *DuplicateTargetError) Unwrap() error { return ErrDuplicateTarget }

// UnknownTargetError reports a reference to a target that was never created.
// From names the referencing target and is empty when the name came from the
// command line.
type UnknownTargetError struct {
	Name string
	From string
}

func (e *UnknownTargetError) Error() string {
	if e.From != "" {
		return fmt.Sprintf("target %q depends on unknown target %q", e.From, e.Name)
	}
	return fmt.Sprintf("unknown target %q", e.Name)
}

func (e *UnknownTargetError) Unwrap() error { return ErrUnknownTarget }

// CycleError reports a dependency cycle. Path lists target names in
// dependency order and repeats the first name at the end.
type CycleError struct {
	Path []string
}

func (e *CycleError) Error() string {
	return fmt.Sprintf("dependency cycle detected: %s", strings.Join(e.Path, " -> "))
}

func (e *CycleError) Unwrap() error { return ErrCycle }

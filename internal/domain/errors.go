package domain

import (
	"errors"
	"fmt"
	"strings"
)

// Error kinds. Every error returned by the schedule core wraps exactly one
// of these, so callers can branch with errors.Is.
var (
	ErrValidation        = errors.New("validation failed")
	ErrNotFound          = errors.New("not found")
	ErrDuplicateEdge     = errors.New("duplicate dependency")
	ErrCycleDetected     = errors.New("dependency cycle detected")
	ErrInvalidTransition = errors.New("invalid workflow transition")
	ErrScheduleLocked    = errors.New("schedule locked")
)

// Invalidf returns an ErrValidation-wrapping error with a formatted detail.
func Invalidf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}

// NotFoundf returns an ErrNotFound-wrapping error with a formatted detail.
func NotFoundf(format string, args ...any) error {
	return fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), ErrNotFound)
}

// CycleError reports the dependency that would have closed a cycle and the
// path it would have closed, origin first and origin last.
type CycleError struct {
	OriginID      string
	DestinationID string
	Type          DependencyType
	Path          []string
}

func (e *CycleError) Error() string {
	return fmt.Sprintf("%s: %s", ErrCycleDetected, strings.Join(e.Path, " -> "))
}

func (e *CycleError) Unwrap() error { return ErrCycleDetected }

// DuplicateEdgeError carries the id of the edge that already expresses the
// same (origin, destination, type) constraint.
type DuplicateEdgeError struct {
	ExistingID    string
	OriginID      string
	DestinationID string
	Type          DependencyType
}

func (e *DuplicateEdgeError) Error() string {
	return fmt.Sprintf("%s: %s %s -> %s already exists as %s",
		ErrDuplicateEdge, e.Type, e.OriginID, e.DestinationID, e.ExistingID)
}

func (e *DuplicateEdgeError) Unwrap() error { return ErrDuplicateEdge }

// TransitionError is returned when a workflow action is attempted from a
// state that does not allow it.
type TransitionError struct {
	Action WorkflowAction
	From   WorkflowState
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("%s: cannot %s while %s", ErrInvalidTransition, e.Action, e.From)
}

func (e *TransitionError) Unwrap() error { return ErrInvalidTransition }

// LockedError is returned when the workflow state (and caller role) does not
// grant the capability a mutation needs.
type LockedError struct {
	State      WorkflowState
	Role       Role
	Capability Capability
}

func (e *LockedError) Error() string {
	return fmt.Sprintf("%s: %s edits not allowed for role %s while %s",
		ErrScheduleLocked, e.Capability, e.Role, e.State)
}

func (e *LockedError) Unwrap() error { return ErrScheduleLocked }

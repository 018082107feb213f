package engine

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrInvalidDimensions  = errors.New("invalid grid dimensions")
	ErrUnplaceableEntity  = errors.New("entity cannot be placed on any free cell")
	ErrDuplicateID        = errors.New("duplicate entity id")
	ErrExecutionAborted   = errors.New("plan execution aborted")
	ErrExecutionCancelled = errors.New("plan execution cancelled")
)

// ActionError reports a plan action whose preconditions did not hold. The
// world is left untouched by the failing action.
type ActionError struct {
	Action Action
	Reason string
}

func (e *ActionError) Error() string {
	return fmt.Sprintf("action %s rejected: %s", e.Action, e.Reason)
}

// StepConflictError reports two or more robots targeting the same cell within
// one parallel execution step. All conflicting actions are rejected.
type StepConflictError struct {
	Step   int
	Zone   Position
	Robots []string
}

func (e *StepConflictError) Error() string {
	return fmt.Sprintf("step %d: robots %s target the same cell (%d,%d)",
		e.Step, strings.Join(e.Robots, ", "), e.Zone.X, e.Zone.Y)
}

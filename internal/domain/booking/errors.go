package booking

import (
	"errors"
	"fmt"
)

var (
	// ErrSlotUnavailable is returned by ClaimSlot when the grid has no
	// available cell for the requested unit. Ordinary control flow, never
	// fatal on its own.
	ErrSlotUnavailable = errors.New("slot unavailable")

	// ErrAllSlotsUnavailable marks the clean empty-result end of a session:
	// every hour-unit across every alternative window failed.
	ErrAllSlotsUnavailable = errors.New("no requested slots available")
)

// AuthError means the session could not be established. Fatal: no later
// stage runs without an authenticated context.
type AuthError struct {
	Reason string
	Err    error
}

func (e *AuthError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("authentication failed: %s: %v", e.Reason, e.Err)
	}
	return fmt.Sprintf("authentication failed: %s", e.Reason)
}

func (e *AuthError) Unwrap() error { return e.Err }

// SearchError means the search surface could not be driven to a rendered
// results grid. Fatal.
type SearchError struct {
	Reason string
	Err    error
}

func (e *SearchError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("search failed: %s: %v", e.Reason, e.Err)
	}
	return fmt.Sprintf("search failed: %s", e.Reason)
}

func (e *SearchError) Unwrap() error { return e.Err }

// ConfirmationStepError names the confirmation step that failed. The claim
// itself is not rolled back; the user can resume manually from this step.
type ConfirmationStepError struct {
	Step ConfirmStep
	Err  error
}

func (e *ConfirmationStepError) Error() string {
	return fmt.Sprintf("confirmation step %q failed: %v", e.Step, e.Err)
}

func (e *ConfirmationStepError) Unwrap() error { return e.Err }

// CriticalError wraps an unanticipated fault caught at the session boundary.
type CriticalError struct {
	Stage Stage
	Err   error
}

func (e *CriticalError) Error() string {
	return fmt.Sprintf("critical error at stage %s: %v", e.Stage, e.Err)
}

func (e *CriticalError) Unwrap() error { return e.Err }

/*
errors.go - Centralized error types for the mission engine

PURPOSE:
  All engine error types in one place for consistency and discoverability.
  Collaborating packages wrap these with additional context.

ERROR CATEGORIES:
  1. Not-found errors - Referenced records that do not exist
  2. Reconcile errors - Per-entity failures during a reconciliation pass,
     carrying the context needed to diagnose (entity, mode, window)
  3. Conflict errors - Writes that lost against concurrent state

PROPAGATION POLICY:
  Reconcilers catch errors per entity, log them, and continue the sweep;
  a transient repository failure skips that entity for the tick and is
  retried naturally on the next one. The confirmation service propagates
  errors to its caller.

USAGE:
    if errors.Is(err, engine.ErrMissionTypeNotFound) {
        // map to a 404
    }

SEE ALSO:
  - repository.go: Returns these errors
  - confirm.go, instance.go: Wrap them
*/
package engine

import (
	"errors"
	"fmt"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// ErrEventNotFound is returned when a referenced event does not exist.
	ErrEventNotFound = errors.New("event not found")

	// ErrMissionTypeNotFound is returned when a referenced mission type
	// does not exist.
	ErrMissionTypeNotFound = errors.New("mission type not found")

	// ErrMissionNotFound is returned when a referenced mission instance
	// does not exist.
	ErrMissionNotFound = errors.New("mission not found")

	// ErrUserNotFound is returned when a referenced user does not exist.
	ErrUserNotFound = errors.New("user not found")

	// ErrInvalidRecurrence is returned for unusable recurrence config
	// (unknown type/mode, missing anchor).
	ErrInvalidRecurrence = errors.New("invalid recurrence configuration")

	// ErrConflict is returned when a write lost against concurrent state,
	// e.g. completing an instance that is no longer pending.
	ErrConflict = errors.New("conflicting concurrent update")
)

// IsNotFound returns true if the error indicates a missing record.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrEventNotFound) ||
		errors.Is(err, ErrMissionTypeNotFound) ||
		errors.Is(err, ErrMissionNotFound) ||
		errors.Is(err, ErrUserNotFound)
}

// IsConflict returns true if the error indicates a lost write race.
func IsConflict(err error) bool {
	return errors.Is(err, ErrConflict)
}

// =============================================================================
// STRUCTURED ERRORS - Carry additional context
// =============================================================================

// ReconcileError wraps a per-entity failure during a reconciliation pass
// with the context needed to diagnose it from logs alone.
type ReconcileError struct {
	Entity string // "event", "mission_type", "mission"
	ID     string
	Mode   RecurrenceMode
	Window Period
	Err    error
}

func (e *ReconcileError) Error() string {
	return fmt.Sprintf("reconcile %s %s (mode=%s window=%s): %v",
		e.Entity, e.ID, e.Mode, e.Window, e.Err)
}

func (e *ReconcileError) Unwrap() error { return e.Err }

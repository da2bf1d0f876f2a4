/*
errors.go - Centralized error taxonomy for the payroll engine

PURPOSE:
  All error categories in one place for consistency and discoverability.
  Domain packages wrap these sentinels with additional context.

ERROR CATEGORIES:
  1. Configuration errors - malformed tax tables, missing rates; fatal,
     block all computation until fixed
  2. Validation errors - negative amounts, unbalanced journal lines,
     mismatched payment splits; rejected at the boundary
  3. State conflicts - duplicate payslips, writes to LOCKED periods or
     VALIDE journal entries; resolved by compensating actions, not edits
  4. Cap exceeded (soft) - a deduction hit a cap and was partially
     applied; surfaced as a flag, not a failure

USAGE:
  Domain packages wrap sentinels:

    if errors.Is(err, engine.ErrStateConflict) {
        // caller must create a compensating action
    }

SEE ALSO:
  - money.go: Amount type used in structured errors
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
	// ErrConfiguration indicates a malformed configuration (tax brackets,
	// missing rates). Fatal: no computation may run until it is fixed.
	ErrConfiguration = errors.New("configuration error")

	// ErrValidation indicates invalid input rejected at the boundary.
	// Inputs are never silently corrected or clamped.
	ErrValidation = errors.New("validation error")

	// ErrStateConflict indicates an operation that conflicts with entity
	// lifecycle state: duplicate payslip, LOCKED period, VALIDE entry.
	ErrStateConflict = errors.New("state conflict")

	// ErrCapExceeded is the soft signal that a deduction was limited by a
	// cap and the remainder rolled forward. Never aborts a payslip.
	ErrCapExceeded = errors.New("deduction cap exceeded")

	// ErrNotFound is returned when a referenced entity does not exist.
	ErrNotFound = errors.New("not found")

	// ErrUnsupported is returned for declared-but-unimplemented variants
	// (compound interest accrual).
	ErrUnsupported = errors.New("unsupported variant")
)

// =============================================================================
// STRUCTURED ERRORS - Carry additional context
// =============================================================================

// ConfigError pinpoints the offending part of a configuration so the
// admin can fix it (which bracket, which rate).
type ConfigError struct {
	Field  string
	Detail string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("configuration error: %s: %s", e.Field, e.Detail)
}

func (e *ConfigError) Unwrap() error { return ErrConfiguration }

// ValidationError identifies the rejected input.
type ValidationError struct {
	Field  string
	Detail string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Detail)
}

func (e *ValidationError) Unwrap() error { return ErrValidation }

// StateConflictError describes a lifecycle conflict: what was attempted
// and the state that forbids it.
type StateConflictError struct {
	Entity  string
	ID      string
	State   string
	Attempt string
}

func (e *StateConflictError) Error() string {
	return fmt.Sprintf("%s %s is %s: cannot %s", e.Entity, e.ID, e.State, e.Attempt)
}

func (e *StateConflictError) Unwrap() error { return ErrStateConflict }

// CapExceededFlag records a partial application: how much was requested,
// how much the cap allowed, and how much rolls to the next period.
type CapExceededFlag struct {
	ObligationID string
	Cap          string // which cap limited the application
	Requested    Amount
	Applied      Amount
	RolledOver   Amount
}

func (e *CapExceededFlag) Error() string {
	return fmt.Sprintf("obligation %s limited by %s cap: requested %s, applied %s, rolled over %s",
		e.ObligationID, e.Cap, e.Requested, e.Applied, e.RolledOver)
}

func (e *CapExceededFlag) Unwrap() error { return ErrCapExceeded }

// NotFoundError names the missing entity.
type NotFoundError struct {
	Entity string
	ID     string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %s not found", e.Entity, e.ID)
}

func (e *NotFoundError) Unwrap() error { return ErrNotFound }

// =============================================================================
// ERROR HELPERS
// =============================================================================

// IsClientError returns true if the error is due to invalid client input.
func IsClientError(err error) bool {
	return errors.Is(err, ErrValidation) || errors.Is(err, ErrConfiguration)
}

// IsConflict returns true for lifecycle conflicts (HTTP 409 territory).
func IsConflict(err error) bool {
	return errors.Is(err, ErrStateConflict)
}

// IsNotFound returns true if the error indicates a missing entity.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

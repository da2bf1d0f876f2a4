/*
Package deduction implements the deduction ledger: every obligation an
employee owes against future pay, and the per-period resolution that
decides how much each obligation may deduct.

PURPOSE:
  Disciplinary penalties, salary advances, uniform costs, contributions
  and loans all become DeductionObligations with a remaining balance and
  a payment schedule. The resolver applies them to one pay period in a
  fixed priority order without ever pushing net pay negative.

KEY CONCEPTS IN THIS FILE (types.go):
  - Obligation: One debt with total / deducted / remaining amounts
  - ScheduleEntry: One planned application of an obligation to one period
  - Priority: disciplinary -> loan -> uniform -> contribution -> other

CRITICAL INVARIANT:
  total == deducted + remaining, with remaining >= 0, after every apply.

SEE ALSO:
  - resolver.go: The per-period resolution algorithm
*/
package deduction

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/warp/payroll-engine/engine"
)

// =============================================================================
// OBLIGATION - One debt against future pay
// =============================================================================

// Type classifies an obligation and fixes its resolution priority.
type Type string

const (
	TypeDisciplinary Type = "DISCIPLINARY"
	TypeLoan         Type = "LOAN"
	TypeUniform      Type = "UNIFORM"
	TypeContribution Type = "CONTRIBUTION"
	TypeOther        Type = "OTHER"
)

// Priority returns the resolution rank: statutory/urgent deductions
// first, so discretionary ones can never starve them.
func (t Type) Priority() int {
	switch t {
	case TypeDisciplinary:
		return 0
	case TypeLoan:
		return 1
	case TypeUniform:
		return 2
	case TypeContribution:
		return 3
	default:
		return 4
	}
}

// ScheduleKind determines how much an obligation deducts per period.
type ScheduleKind string

const (
	ScheduleOneTime      ScheduleKind = "ONE_TIME"
	ScheduleInstallments ScheduleKind = "INSTALLMENTS"
	ScheduleRecurring    ScheduleKind = "RECURRING"
	ScheduleCustom       ScheduleKind = "CUSTOM"
)

// Status is the obligation lifecycle. COMPLETED is reached automatically
// when remaining hits zero; CANCELLED only explicitly. Obligations are
// never deleted.
type Status string

const (
	StatusActive    Status = "ACTIVE"
	StatusSuspended Status = "SUSPENDED"
	StatusCompleted Status = "COMPLETED"
	StatusCancelled Status = "CANCELLED"
)

// Obligation is one debt an employee owes against future pay.
type Obligation struct {
	ID         string
	EmployeeID string
	Type       Type
	Label      string

	Total    engine.Amount
	Deducted engine.Amount

	Schedule ScheduleKind

	// For INSTALLMENTS: fixed amount per period (the final installment
	// absorbs the rounding remainder). For RECURRING: the fixed periodic
	// amount until cancelled.
	InstallmentAmount *engine.Amount
	InstallmentCount  int

	// Optional per-period cap on this single obligation.
	PerPeriodCap *engine.Amount

	Status    Status
	CreatedAt time.Time
}

// Remaining derives the outstanding balance. Never negative by
// construction: applies are clamped to Remaining().
func (o Obligation) Remaining() engine.Amount {
	return o.Total.Sub(o.Deducted)
}

// Apply records an applied amount against the obligation and completes
// it when nothing remains.
func (o *Obligation) Apply(amount engine.Amount) {
	o.Deducted = o.Deducted.Add(amount)
	if !o.Remaining().IsPositive() {
		o.Status = StatusCompleted
	}
}

// Revert undoes a previously applied amount (re-resolution of a
// not-yet-validated period).
func (o *Obligation) Revert(amount engine.Amount) {
	o.Deducted = o.Deducted.Sub(amount)
	if o.Status == StatusCompleted && o.Remaining().IsPositive() {
		o.Status = StatusActive
	}
}

// =============================================================================
// SCHEDULE ENTRY - One application of an obligation to one period
// =============================================================================

// EntryStatus is the schedule entry lifecycle.
type EntryStatus string

const (
	EntryPending EntryStatus = "PENDING"
	EntryApplied EntryStatus = "APPLIED"
	EntrySkipped EntryStatus = "SKIPPED"
	EntryFailed  EntryStatus = "FAILED"
)

// ScheduleEntry records one planned (and possibly applied) deduction of
// one obligation in one pay period. Unique per (obligation, year, month).
// APPLIED entries become immutable once the owning payslip is validated.
type ScheduleEntry struct {
	ID           string
	ObligationID string
	Year         int
	Month        time.Month

	Scheduled engine.Amount
	Applied   engine.Amount
	Status    EntryStatus

	// Why the entry was skipped or limited, for display.
	Note string
}

// =============================================================================
// CAPS - Percentage-of-salary limits declared per deduction type
// =============================================================================

// CapPolicy declares the percentage-of-salary caps per deduction type.
// A missing entry means the type is uncapped (only the global
// no-negative-net guard applies).
type CapPolicy map[Type]decimal.Decimal

// =============================================================================
// STORE CONTRACTS
// =============================================================================

// Store persists obligations and schedule entries. Obligations are
// cancelled, never deleted; entries for validated payslips are immutable.
type Store interface {
	SaveObligation(o Obligation) error
	GetObligation(id string) (Obligation, error)
	// ActiveObligations returns ACTIVE obligations for the employee in
	// resolution order: priority rank, then creation time.
	ActiveObligations(employeeID string) ([]Obligation, error)
	ObligationsByEmployee(employeeID string) ([]Obligation, error)

	SaveScheduleEntry(e ScheduleEntry) error
	// EntriesForPeriod returns entries of the employee's obligations for
	// (year, month), keyed by obligation ID.
	EntriesForPeriod(employeeID string, year int, month time.Month) (map[string]ScheduleEntry, error)
}

package engine

import (
	"fmt"
	"time"
)

// =============================================================================
// PAY PERIOD - One (month, year), unique, with a one-way lifecycle
// =============================================================================

// PeriodStatus is the lifecycle state of a pay period.
// Transitions are one-directional: DRAFT -> COMPUTED -> VALIDATED -> LOCKED.
// Once LOCKED, no payslip in the period may be mutated.
type PeriodStatus string

const (
	PeriodDraft     PeriodStatus = "DRAFT"
	PeriodComputed  PeriodStatus = "COMPUTED"
	PeriodValidated PeriodStatus = "VALIDATED"
	PeriodLocked    PeriodStatus = "LOCKED"
)

// PayPeriod identifies one payroll month. Unique per (Year, Month).
type PayPeriod struct {
	ID     string
	Year   int
	Month  time.Month
	Status PeriodStatus
}

// Key returns the natural key "YYYY-MM" used for uniqueness constraints.
func (p PayPeriod) Key() string {
	return fmt.Sprintf("%04d-%02d", p.Year, int(p.Month))
}

// Start returns the first day of the period.
func (p PayPeriod) Start() time.Time {
	return time.Date(p.Year, p.Month, 1, 0, 0, 0, 0, time.UTC)
}

// End returns the last day of the period.
func (p PayPeriod) End() time.Time {
	return p.Start().AddDate(0, 1, -1)
}

// IsLocked reports whether the period rejects all payslip writes.
func (p PayPeriod) IsLocked() bool {
	return p.Status == PeriodLocked
}

// CanTransitionTo enforces the one-way lifecycle.
func (p PayPeriod) CanTransitionTo(next PeriodStatus) bool {
	order := map[PeriodStatus]int{
		PeriodDraft:     0,
		PeriodComputed:  1,
		PeriodValidated: 2,
		PeriodLocked:    3,
	}
	from, okFrom := order[p.Status]
	to, okTo := order[next]
	return okFrom && okTo && to > from
}

// GuardWritable returns a StateConflictError if the period is LOCKED.
// Every payslip mutation goes through this guard; stores additionally
// enforce it atomically with the write.
func (p PayPeriod) GuardWritable(attempt string) error {
	if p.IsLocked() {
		return &StateConflictError{
			Entity:  "pay period",
			ID:      p.Key(),
			State:   string(PeriodLocked),
			Attempt: attempt,
		}
	}
	return nil
}

/*
Package payroll assembles payslips: it orchestrates the tax calculator
and the deduction resolver per employee per pay period, manages the
payslip lifecycle and the journal entries each transition emits.

PURPOSE:
  One Payslip per (period, employee), with the full line-item breakdown
  retained for audit: gross, each social contribution, taxable base,
  income tax, each deduction category total, net. Lifecycle is
  DRAFT -> VALIDATED -> PAID, one-directional, and a LOCKED period
  rejects every write.

KEY CONCEPTS IN THIS FILE (types.go):
  - Payslip: The full computed record with lifecycle state
  - PaymentRecord: One (possibly partial) salary disbursement
  - UnpaidSalary: The salaire impayé balance left after validation,
    reduced by each payment

SEE ALSO:
  - assembler.go: Compute / Validate / MarkPaid / PaySocialCharges
*/
package payroll

import (
	"time"

	"github.com/warp/payroll-engine/deduction"
	"github.com/warp/payroll-engine/engine"
	"github.com/warp/payroll-engine/tax"
)

// =============================================================================
// EMPLOYEE - Read-only input owned by the HR subsystem
// =============================================================================

// RemunerationMode selects how the base of the gross is derived.
type RemunerationMode string

const (
	ModeMonthly RemunerationMode = "MONTHLY"
	ModeDaily   RemunerationMode = "DAILY"
)

// Employee is the payroll-relevant subset of the HR record.
type Employee struct {
	ID       string
	FullName string

	Mode RemunerationMode

	// BaseSalary for MONTHLY, DailyRate x days worked for DAILY.
	BaseSalary engine.Amount
	DailyRate  engine.Amount

	Currency string
}

// =============================================================================
// PAYSLIP
// =============================================================================

// PayslipStatus is the payslip lifecycle. One-directional; reverting a
// PAID payslip is an explicit reversal event, not a transition.
type PayslipStatus string

const (
	PayslipDraft     PayslipStatus = "DRAFT"
	PayslipValidated PayslipStatus = "VALIDATED"
	PayslipPaid      PayslipStatus = "PAID"
)

// Payslip is the computed record for one employee in one period.
// Every intermediate figure is retained; nothing is recomputable-only.
type Payslip struct {
	ID         string
	PeriodID   string
	EmployeeID string

	BaseSalary engine.Amount
	DaysWorked int
	Bonuses    engine.Amount
	Arrears    engine.Amount
	Gross      engine.Amount

	Contributions map[tax.Scheme]engine.Amount
	TotalSocial   engine.Amount
	TaxableBase   engine.Amount
	IncomeTax     engine.Amount

	DeductionsByType map[deduction.Type]engine.Amount
	TotalDeductions  engine.Amount

	Net      engine.Amount
	Currency string

	// Settings snapshot the figures were computed with. Historical
	// payslips are never recomputed when rates change.
	SettingsVersion int

	Status PayslipStatus

	// PAIE entry posted at validation.
	JournalEntryID string

	ComputedAt  time.Time
	ValidatedAt *time.Time
}

// GuardStatus rejects an operation unless the payslip is in want.
func (p Payslip) GuardStatus(want PayslipStatus, attempt string) error {
	if p.Status == want {
		return nil
	}
	return &engine.StateConflictError{
		Entity:  "payslip",
		ID:      p.ID,
		State:   string(p.Status),
		Attempt: attempt,
	}
}

// =============================================================================
// PAYMENTS AND UNPAID BALANCES
// =============================================================================

// PaymentRecord is one salary disbursement against a validated payslip.
// Payments may be partial; the payslip turns PAID when the unpaid
// balance reaches zero.
type PaymentRecord struct {
	ID        string
	PayslipID string
	Date      time.Time
	Amount    engine.Amount
	Mode      string
	Reference string

	JournalEntryID string
}

// UnpaidSalary is the salaire impayé balance of one validated payslip.
type UnpaidSalary struct {
	ID          string
	PayslipID   string
	EmployeeID  string
	Original    engine.Amount
	Outstanding engine.Amount
}

// =============================================================================
// STORE CONTRACTS
// =============================================================================

// EmployeeStore is the read-only window onto the HR subsystem.
type EmployeeStore interface {
	GetEmployee(id string) (Employee, error)
	ListEmployees() ([]Employee, error)
}

// PeriodStore persists pay periods. One per (year, month).
type PeriodStore interface {
	SavePeriod(p engine.PayPeriod) error
	GetPeriod(id string) (engine.PayPeriod, error)
	GetPeriodByKey(year int, month time.Month) (engine.PayPeriod, error)
	ListPeriods() ([]engine.PayPeriod, error)
}

// PayslipStore persists payslips, payments and unpaid balances.
// Implementations must enforce the (period, employee) uniqueness and
// check the period's LOCKED flag atomically with each payslip write.
type PayslipStore interface {
	SavePayslip(p Payslip) error
	GetPayslip(id string) (Payslip, error)
	PayslipForEmployee(periodID, employeeID string) (Payslip, error)
	PayslipsForPeriod(periodID string) ([]Payslip, error)

	SavePayment(r PaymentRecord) error
	PaymentsForPayslip(payslipID string) ([]PaymentRecord, error)

	SaveUnpaid(u UnpaidSalary) error
	UnpaidForPayslip(payslipID string) (UnpaidSalary, error)
}

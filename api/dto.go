/*
dto.go - Request/response data structures for the REST API

PURPOSE:
  JSON wire types, kept separate from domain types. Monetary figures
  cross the wire as decimal strings ("440100.00"), never as floats: a
  payslip figure must survive a round-trip unchanged.

NAMING:
  JSON field names are snake_case. Dates are "2006-01-02" for business
  dates and RFC3339 for timestamps.

SEE ALSO:
  - handlers.go: Conversion between domain types and these DTOs
*/
package api

import (
	"time"

	"github.com/warp/payroll-engine/debtloan"
	"github.com/warp/payroll-engine/deduction"
	"github.com/warp/payroll-engine/engine"
	"github.com/warp/payroll-engine/journal"
	"github.com/warp/payroll-engine/payroll"
)

// =============================================================================
// ERROR RESPONSE
// =============================================================================

// ErrorResponse is the error format returned to clients.
type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

// =============================================================================
// EMPLOYEES
// =============================================================================

type EmployeeDTO struct {
	ID         string `json:"id"`
	FullName   string `json:"full_name"`
	Mode       string `json:"mode"`
	BaseSalary string `json:"base_salary"`
	DailyRate  string `json:"daily_rate"`
	Currency   string `json:"currency"`
}

type CreateEmployeeRequest struct {
	ID         string `json:"id"`
	FullName   string `json:"full_name"`
	Mode       string `json:"mode"`
	BaseSalary string `json:"base_salary"`
	DailyRate  string `json:"daily_rate"`
	Currency   string `json:"currency"`
}

func toEmployeeDTO(e payroll.Employee) EmployeeDTO {
	return EmployeeDTO{
		ID:         e.ID,
		FullName:   e.FullName,
		Mode:       string(e.Mode),
		BaseSalary: e.BaseSalary.Value.String(),
		DailyRate:  e.DailyRate.Value.String(),
		Currency:   e.Currency,
	}
}

// =============================================================================
// PERIODS
// =============================================================================

type PeriodDTO struct {
	ID     string `json:"id"`
	Year   int    `json:"year"`
	Month  int    `json:"month"`
	Key    string `json:"key"`
	Status string `json:"status"`
}

type OpenPeriodRequest struct {
	Year  int `json:"year"`
	Month int `json:"month"`
}

func toPeriodDTO(p engine.PayPeriod) PeriodDTO {
	return PeriodDTO{
		ID:     p.ID,
		Year:   p.Year,
		Month:  int(p.Month),
		Key:    p.Key(),
		Status: string(p.Status),
	}
}

// =============================================================================
// PAYSLIPS
// =============================================================================

type ComputePayslipRequest struct {
	EmployeeID string `json:"employee_id"`
	PeriodID   string `json:"period_id"`
	DaysWorked int    `json:"days_worked"`
	Bonuses    string `json:"bonuses,omitempty"`
	Arrears    string `json:"arrears,omitempty"`
}

type PayslipDTO struct {
	ID         string `json:"id"`
	PeriodID   string `json:"period_id"`
	EmployeeID string `json:"employee_id"`

	BaseSalary string `json:"base_salary"`
	DaysWorked int    `json:"days_worked"`
	Bonuses    string `json:"bonuses"`
	Arrears    string `json:"arrears"`
	Gross      string `json:"gross"`

	Contributions map[string]string `json:"contributions"`
	TotalSocial   string            `json:"total_social"`
	TaxableBase   string            `json:"taxable_base"`
	IncomeTax     string            `json:"income_tax"`

	Deductions      map[string]string `json:"deductions"`
	TotalDeductions string            `json:"total_deductions"`

	Net      string `json:"net"`
	Currency string `json:"currency"`

	SettingsVersion int     `json:"settings_version"`
	Status          string  `json:"status"`
	JournalEntryID  string  `json:"journal_entry_id,omitempty"`
	ComputedAt      string  `json:"computed_at"`
	ValidatedAt     *string `json:"validated_at,omitempty"`
}

func toPayslipDTO(p payroll.Payslip) PayslipDTO {
	contributions := make(map[string]string, len(p.Contributions))
	for scheme, amount := range p.Contributions {
		contributions[string(scheme)] = amount.Value.String()
	}
	deductions := make(map[string]string, len(p.DeductionsByType))
	for typ, amount := range p.DeductionsByType {
		deductions[string(typ)] = amount.Value.String()
	}

	dto := PayslipDTO{
		ID:              p.ID,
		PeriodID:        p.PeriodID,
		EmployeeID:      p.EmployeeID,
		BaseSalary:      p.BaseSalary.Value.String(),
		DaysWorked:      p.DaysWorked,
		Bonuses:         p.Bonuses.Value.String(),
		Arrears:         p.Arrears.Value.String(),
		Gross:           p.Gross.Value.String(),
		Contributions:   contributions,
		TotalSocial:     p.TotalSocial.Value.String(),
		TaxableBase:     p.TaxableBase.Value.String(),
		IncomeTax:       p.IncomeTax.Value.String(),
		Deductions:      deductions,
		TotalDeductions: p.TotalDeductions.Value.String(),
		Net:             p.Net.Value.String(),
		Currency:        p.Currency,
		SettingsVersion: p.SettingsVersion,
		Status:          string(p.Status),
		JournalEntryID:  p.JournalEntryID,
		ComputedAt:      p.ComputedAt.Format(time.RFC3339),
	}
	if p.ValidatedAt != nil {
		s := p.ValidatedAt.Format(time.RFC3339)
		dto.ValidatedAt = &s
	}
	return dto
}

// =============================================================================
// PAYMENTS
// =============================================================================

type PayRequest struct {
	Date      string `json:"date"`
	Amount    string `json:"amount"`
	Mode      string `json:"mode,omitempty"`
	Reference string `json:"reference,omitempty"`
}

type PaymentDTO struct {
	ID             string `json:"id"`
	PayslipID      string `json:"payslip_id"`
	Date           string `json:"date"`
	Amount         string `json:"amount"`
	Mode           string `json:"mode,omitempty"`
	Reference      string `json:"reference,omitempty"`
	JournalEntryID string `json:"journal_entry_id,omitempty"`
}

type UnpaidDTO struct {
	PayslipID   string `json:"payslip_id"`
	EmployeeID  string `json:"employee_id"`
	Original    string `json:"original"`
	Outstanding string `json:"outstanding"`
}

func toPaymentDTO(r payroll.PaymentRecord) PaymentDTO {
	return PaymentDTO{
		ID:             r.ID,
		PayslipID:      r.PayslipID,
		Date:           r.Date.Format("2006-01-02"),
		Amount:         r.Amount.Value.String(),
		Mode:           r.Mode,
		Reference:      r.Reference,
		JournalEntryID: r.JournalEntryID,
	}
}

// =============================================================================
// OBLIGATIONS
// =============================================================================

type CreateObligationRequest struct {
	EmployeeID        string `json:"employee_id"`
	Type              string `json:"type"`
	Label             string `json:"label,omitempty"`
	Total             string `json:"total"`
	Currency          string `json:"currency"`
	Schedule          string `json:"schedule"`
	InstallmentAmount string `json:"installment_amount,omitempty"`
	InstallmentCount  int    `json:"installment_count,omitempty"`
	PerPeriodCap      string `json:"per_period_cap,omitempty"`

	// Entries carries the per-period plan of a CUSTOM schedule.
	Entries []PlannedEntryRequest `json:"entries,omitempty"`
}

type PlannedEntryRequest struct {
	Year   int    `json:"year"`
	Month  int    `json:"month"`
	Amount string `json:"amount"`
}

type ObligationDTO struct {
	ID                string `json:"id"`
	EmployeeID        string `json:"employee_id"`
	Type              string `json:"type"`
	Label             string `json:"label,omitempty"`
	Total             string `json:"total"`
	Deducted          string `json:"deducted"`
	Remaining         string `json:"remaining"`
	Currency          string `json:"currency"`
	Schedule          string `json:"schedule"`
	InstallmentAmount string `json:"installment_amount,omitempty"`
	InstallmentCount  int    `json:"installment_count,omitempty"`
	PerPeriodCap      string `json:"per_period_cap,omitempty"`
	Status            string `json:"status"`
	CreatedAt         string `json:"created_at"`
}

func toObligationDTO(o deduction.Obligation) ObligationDTO {
	dto := ObligationDTO{
		ID:               o.ID,
		EmployeeID:       o.EmployeeID,
		Type:             string(o.Type),
		Label:            o.Label,
		Total:            o.Total.Value.String(),
		Deducted:         o.Deducted.Value.String(),
		Remaining:        o.Remaining().Value.String(),
		Currency:         o.Total.Currency,
		Schedule:         string(o.Schedule),
		InstallmentCount: o.InstallmentCount,
		Status:           string(o.Status),
		CreatedAt:        o.CreatedAt.Format(time.RFC3339),
	}
	if o.InstallmentAmount != nil {
		dto.InstallmentAmount = o.InstallmentAmount.Value.String()
	}
	if o.PerPeriodCap != nil {
		dto.PerPeriodCap = o.PerPeriodCap.Value.String()
	}
	return dto
}

// =============================================================================
// JOURNAL
// =============================================================================

type PostEntryRequest struct {
	Date      string        `json:"date"`
	Label     string        `json:"label,omitempty"`
	Operation string        `json:"operation"`
	Lines     []LineRequest `json:"lines"`
}

type LineRequest struct {
	AccountCode string `json:"account_code"`
	Direction   string `json:"direction"`
	Amount      string `json:"amount"`
	Currency    string `json:"currency"`
	Reference   string `json:"reference,omitempty"`
}

type EntryDTO struct {
	ID        string    `json:"id"`
	Date      string    `json:"date"`
	Label     string    `json:"label,omitempty"`
	Operation string    `json:"operation"`
	Total     string    `json:"total"`
	Currency  string    `json:"currency"`
	Status    string    `json:"status"`
	Lines     []LineDTO `json:"lines"`
}

type LineDTO struct {
	AccountCode string `json:"account_code"`
	Label       string `json:"account_label,omitempty"`
	Direction   string `json:"direction"`
	Amount      string `json:"amount"`
	Currency    string `json:"currency"`
	Reference   string `json:"reference,omitempty"`
}

func toEntryDTO(e journal.Entry) EntryDTO {
	lines := make([]LineDTO, len(e.Lines))
	for i, l := range e.Lines {
		label, _ := journal.AccountLabel(l.AccountCode)
		lines[i] = LineDTO{
			AccountCode: l.AccountCode,
			Label:       label,
			Direction:   string(l.Direction),
			Amount:      l.Amount.Value.String(),
			Currency:    l.Amount.Currency,
			Reference:   l.Reference,
		}
	}
	return EntryDTO{
		ID:        e.ID,
		Date:      e.Date.Format("2006-01-02"),
		Label:     e.Label,
		Operation: string(e.Operation),
		Total:     e.Total.Value.String(),
		Currency:  e.Total.Currency,
		Status:    string(e.Status),
		Lines:     lines,
	}
}

// =============================================================================
// DEBTS AND LOANS
// =============================================================================

type CreateDebtRequest struct {
	Kind             string `json:"kind"`
	Label            string `json:"label,omitempty"`
	Counterparty     string `json:"counterparty,omitempty"`
	Principal        string `json:"principal"`
	Currency         string `json:"currency"`
	AnnualRate       string `json:"annual_rate"`
	InterestType     string `json:"interest_type"`
	StartDate        string `json:"start_date"`
	Maturity         string `json:"maturity,omitempty"`
	PrincipalAccount string `json:"principal_account"`
	InterestAccount  string `json:"interest_account,omitempty"`
}

type DebtDTO struct {
	ID               string `json:"id"`
	Kind             string `json:"kind"`
	Label            string `json:"label,omitempty"`
	Counterparty     string `json:"counterparty,omitempty"`
	Principal        string `json:"principal"`
	Balance          string `json:"balance"`
	Currency         string `json:"currency"`
	AnnualRate       string `json:"annual_rate"`
	InterestType     string `json:"interest_type"`
	StartDate        string `json:"start_date"`
	Maturity         string `json:"maturity,omitempty"`
	Status           string `json:"status"`
	PrincipalAccount string `json:"principal_account"`
}

type DebtPaymentRequest struct {
	Date      string `json:"date"`
	Amount    string `json:"amount"`
	Principal string `json:"principal"`
	Interest  string `json:"interest"`
}

type DebtPaymentDTO struct {
	ID             string `json:"id"`
	DebtID         string `json:"debt_id"`
	Date           string `json:"date"`
	Amount         string `json:"amount"`
	Principal      string `json:"principal"`
	Interest       string `json:"interest"`
	JournalEntryID string `json:"journal_entry_id,omitempty"`
}

func toDebtDTO(d debtloan.DetteOuPret) DebtDTO {
	dto := DebtDTO{
		ID:               d.ID,
		Kind:             string(d.Kind),
		Label:            d.Label,
		Counterparty:     d.Counterparty,
		Principal:        d.Principal.Value.String(),
		Balance:          d.Balance.Value.String(),
		Currency:         d.Principal.Currency,
		AnnualRate:       d.AnnualRate.String(),
		InterestType:     string(d.InterestType),
		StartDate:        d.StartDate.Format("2006-01-02"),
		Status:           string(d.Status),
		PrincipalAccount: d.PrincipalAccount,
	}
	if d.Maturity != nil {
		dto.Maturity = d.Maturity.Format("2006-01-02")
	}
	return dto
}

func toDebtPaymentDTO(p debtloan.Payment) DebtPaymentDTO {
	return DebtPaymentDTO{
		ID:             p.ID,
		DebtID:         p.DebtID,
		Date:           p.Date.Format("2006-01-02"),
		Amount:         p.Amount.Value.String(),
		Principal:      p.Principal.Value.String(),
		Interest:       p.Interest.Value.String(),
		JournalEntryID: p.JournalEntryID,
	}
}

/*
handlers.go - HTTP API handlers for the payroll engine

PURPOSE:
  Exposes the payroll pipeline via REST API. Handles HTTP
  request/response, JSON serialization, and delegates to domain logic.

ENDPOINTS:
  Employees:
    GET    /api/employees                     List all employees
    POST   /api/employees                     Seed an employee record
    GET    /api/employees/{id}                Get employee details
    GET    /api/employees/{id}/obligations    Deduction obligations

  Periods:
    POST   /api/periods                       Open a pay period
    GET    /api/periods                       List periods
    POST   /api/periods/{id}/validate         Validate every draft payslip
    POST   /api/periods/{id}/lock             Freeze the period
    POST   /api/periods/{id}/charges          Pay the period's social charges
    GET    /api/periods/{id}/payslips         Payslips of the period

  Payslips:
    POST   /api/payslips/compute              Compute or recompute a draft
    GET    /api/payslips/{id}                 Get payslip with breakdown
    POST   /api/payslips/{id}/validate        DRAFT -> VALIDATED
    POST   /api/payslips/{id}/pay             Record a (partial) payment
    GET    /api/payslips/{id}/payments        Disbursement history
    GET    /api/payslips/{id}/unpaid          Outstanding salary balance

  Journal:
    POST   /api/journal/entries               Post a manual entry
    GET    /api/journal/entries/{id}          Get entry with lines
    POST   /api/journal/entries/{id}/confirm  BROUILLON -> VALIDE
    POST   /api/journal/entries/{id}/reverse  Post the offsetting entry
    GET    /api/journal/months/{key}          Entries of one month
    POST   /api/journal/months/{key}/close    Close the accounting month
    GET    /api/journal/accounts/{code}       Chart lookup

  Debts and loans:
    POST   /api/debts                         Register a dette or prêt
    GET    /api/debts                         List all
    GET    /api/debts/{id}                    Get one
    POST   /api/debts/{id}/payments           Apply a repayment
    GET    /api/debts/{id}/payments           Repayment history
    GET    /api/debts/{id}/interest           Accrued interest as of a date
    POST   /api/debts/{id}/cancel             Mark ANNULE

  Admin:
    GET    /api/admin/settings                Current tax rate table
    PUT    /api/admin/settings                Publish a new version
    POST   /api/admin/settings/reset          Reinstate statutory defaults

ERROR HANDLING:
  Domain errors map to HTTP status via the error taxonomy:
  - 400: validation and configuration errors
  - 404: missing entities
  - 409: lifecycle conflicts (LOCKED period, duplicate payslip, ...)
  - 422: declared-but-unsupported variants (COMPOSE interest)
  - 500: everything else

SEE ALSO:
  - dto.go: Request/response data structures
  - server.go: Router setup and middleware
*/
package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/warp/payroll-engine/debtloan"
	"github.com/warp/payroll-engine/deduction"
	"github.com/warp/payroll-engine/engine"
	"github.com/warp/payroll-engine/factory"
	"github.com/warp/payroll-engine/journal"
	"github.com/warp/payroll-engine/payroll"
	"github.com/warp/payroll-engine/tax"
)

// =============================================================================
// HANDLER CONTEXT
// =============================================================================

// EmployeeDirectory is the read store plus the seeding write the API
// needs. Both the memory and SQLite stores satisfy it.
type EmployeeDirectory interface {
	payroll.EmployeeStore
	PutEmployee(e payroll.Employee) error
}

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	Assembler   *payroll.Assembler
	Journal     *journal.Journal
	Tracker     *debtloan.Tracker
	Obligations deduction.Store
	Employees   EmployeeDirectory
	Periods     payroll.PeriodStore
	Settings    tax.SettingsStore

	settingsFactory *factory.SettingsFactory
}

// NewHandler creates a new handler wired to the domain services.
func NewHandler(
	assembler *payroll.Assembler,
	j *journal.Journal,
	tracker *debtloan.Tracker,
	obligations deduction.Store,
	employees EmployeeDirectory,
	periods payroll.PeriodStore,
	settings tax.SettingsStore,
) *Handler {
	return &Handler{
		Assembler:       assembler,
		Journal:         j,
		Tracker:         tracker,
		Obligations:     obligations,
		Employees:       employees,
		Periods:         periods,
		Settings:        settings,
		settingsFactory: factory.NewSettingsFactory(),
	}
}

// =============================================================================
// EMPLOYEE HANDLERS
// =============================================================================

// ListEmployees returns all employees.
func (h *Handler) ListEmployees(w http.ResponseWriter, r *http.Request) {
	employees, err := h.Employees.ListEmployees()
	if err != nil {
		writeDomainError(w, "Failed to list employees", err)
		return
	}

	dtos := make([]EmployeeDTO, len(employees))
	for i, e := range employees {
		dtos[i] = toEmployeeDTO(e)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// GetEmployee returns a single employee.
func (h *Handler) GetEmployee(w http.ResponseWriter, r *http.Request) {
	e, err := h.Employees.GetEmployee(chi.URLParam(r, "id"))
	if err != nil {
		writeDomainError(w, "Failed to get employee", err)
		return
	}
	writeJSON(w, http.StatusOK, toEmployeeDTO(e))
}

// CreateEmployee seeds an employee record.
func (h *Handler) CreateEmployee(w http.ResponseWriter, r *http.Request) {
	var req CreateEmployeeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if req.FullName == "" || req.Currency == "" {
		writeError(w, http.StatusBadRequest, "full_name and currency are required", nil)
		return
	}

	base, err := parseAmountField("base_salary", req.BaseSalary, req.Currency)
	if err != nil {
		writeDomainError(w, "Invalid base salary", err)
		return
	}
	daily, err := parseAmountField("daily_rate", req.DailyRate, req.Currency)
	if err != nil {
		writeDomainError(w, "Invalid daily rate", err)
		return
	}

	e := payroll.Employee{
		ID:         req.ID,
		FullName:   req.FullName,
		Mode:       payroll.RemunerationMode(req.Mode),
		BaseSalary: base,
		DailyRate:  daily,
		Currency:   req.Currency,
	}
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	if e.Mode == "" {
		e.Mode = payroll.ModeMonthly
	}

	if err := h.Employees.PutEmployee(e); err != nil {
		writeDomainError(w, "Failed to create employee", err)
		return
	}
	writeJSON(w, http.StatusCreated, toEmployeeDTO(e))
}

// ListObligations returns the deduction obligations of one employee.
func (h *Handler) ListObligations(w http.ResponseWriter, r *http.Request) {
	obligations, err := h.Obligations.ObligationsByEmployee(chi.URLParam(r, "id"))
	if err != nil {
		writeDomainError(w, "Failed to list obligations", err)
		return
	}

	dtos := make([]ObligationDTO, len(obligations))
	for i, o := range obligations {
		dtos[i] = toObligationDTO(o)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// CreateObligation registers a new deduction obligation.
func (h *Handler) CreateObligation(w http.ResponseWriter, r *http.Request) {
	var req CreateObligationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	total, err := parseAmountField("total", req.Total, req.Currency)
	if err != nil {
		writeDomainError(w, "Invalid total", err)
		return
	}
	if !total.IsPositive() {
		writeError(w, http.StatusBadRequest, "Obligation total must be positive", nil)
		return
	}

	o := deduction.Obligation{
		ID:               uuid.NewString(),
		EmployeeID:       req.EmployeeID,
		Type:             deduction.Type(req.Type),
		Label:            req.Label,
		Total:            total,
		Deducted:         total.Zero(),
		Schedule:         deduction.ScheduleKind(req.Schedule),
		InstallmentCount: req.InstallmentCount,
		Status:           deduction.StatusActive,
		CreatedAt:        time.Now().UTC(),
	}
	if req.InstallmentAmount != "" {
		a, err := parseAmountField("installment_amount", req.InstallmentAmount, req.Currency)
		if err != nil {
			writeDomainError(w, "Invalid installment amount", err)
			return
		}
		o.InstallmentAmount = &a
	}
	if req.PerPeriodCap != "" {
		a, err := parseAmountField("per_period_cap", req.PerPeriodCap, req.Currency)
		if err != nil {
			writeDomainError(w, "Invalid per-period cap", err)
			return
		}
		o.PerPeriodCap = &a
	}

	if len(req.Entries) > 0 && o.Schedule != deduction.ScheduleCustom {
		writeError(w, http.StatusBadRequest, "Planned entries require a CUSTOM schedule", nil)
		return
	}
	plan := make([]deduction.PlannedDeduction, len(req.Entries))
	for i, e := range req.Entries {
		a, err := parseAmountField(fmt.Sprintf("entries[%d].amount", i), e.Amount, req.Currency)
		if err != nil {
			writeDomainError(w, "Invalid planned entry", err)
			return
		}
		plan[i] = deduction.PlannedDeduction{Year: e.Year, Month: time.Month(e.Month), Amount: a}
	}

	if err := h.Obligations.SaveObligation(o); err != nil {
		writeDomainError(w, "Failed to create obligation", err)
		return
	}
	if len(plan) > 0 {
		if _, err := deduction.PlanCustomSchedule(h.Obligations, o.ID, plan); err != nil {
			writeDomainError(w, "Failed to plan schedule", err)
			return
		}
	}
	writeJSON(w, http.StatusCreated, toObligationDTO(o))
}

// =============================================================================
// PERIOD HANDLERS
// =============================================================================

// OpenPeriod creates the DRAFT period for (year, month).
func (h *Handler) OpenPeriod(w http.ResponseWriter, r *http.Request) {
	var req OpenPeriodRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if req.Month < 1 || req.Month > 12 {
		writeError(w, http.StatusBadRequest, "Month must be 1-12", nil)
		return
	}

	p, err := h.Assembler.OpenPeriod(req.Year, time.Month(req.Month))
	if err != nil {
		writeDomainError(w, "Failed to open period", err)
		return
	}
	writeJSON(w, http.StatusCreated, toPeriodDTO(p))
}

// ListPeriods returns all pay periods.
func (h *Handler) ListPeriods(w http.ResponseWriter, r *http.Request) {
	periods, err := h.Periods.ListPeriods()
	if err != nil {
		writeDomainError(w, "Failed to list periods", err)
		return
	}

	dtos := make([]PeriodDTO, len(periods))
	for i, p := range periods {
		dtos[i] = toPeriodDTO(p)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// GetPeriod returns one period.
func (h *Handler) GetPeriod(w http.ResponseWriter, r *http.Request) {
	p, err := h.Periods.GetPeriod(chi.URLParam(r, "id"))
	if err != nil {
		writeDomainError(w, "Failed to get period", err)
		return
	}
	writeJSON(w, http.StatusOK, toPeriodDTO(p))
}

// ValidatePeriod validates every draft payslip in the period.
func (h *Handler) ValidatePeriod(w http.ResponseWriter, r *http.Request) {
	slips, err := h.Assembler.ValidatePeriod(chi.URLParam(r, "id"))
	if err != nil {
		writeDomainError(w, "Failed to validate period", err)
		return
	}

	dtos := make([]PayslipDTO, len(slips))
	for i, s := range slips {
		dtos[i] = toPayslipDTO(s)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// LockPeriod freezes the period against all payslip writes.
func (h *Handler) LockPeriod(w http.ResponseWriter, r *http.Request) {
	p, err := h.Assembler.LockPeriod(chi.URLParam(r, "id"))
	if err != nil {
		writeDomainError(w, "Failed to lock period", err)
		return
	}
	writeJSON(w, http.StatusOK, toPeriodDTO(p))
}

// PayCharges settles the period's social contributions and withheld tax.
func (h *Handler) PayCharges(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Date string `json:"date"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	date, err := parseDate(req.Date)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid date (use YYYY-MM-DD)", err)
		return
	}

	entry, err := h.Assembler.PaySocialCharges(chi.URLParam(r, "id"), date)
	if err != nil {
		writeDomainError(w, "Failed to pay charges", err)
		return
	}
	writeJSON(w, http.StatusCreated, toEntryDTO(entry))
}

// PeriodPayslips returns the payslips of one period.
func (h *Handler) PeriodPayslips(w http.ResponseWriter, r *http.Request) {
	slips, err := h.Assembler.PeriodPayslips(chi.URLParam(r, "id"))
	if err != nil {
		writeDomainError(w, "Failed to list payslips", err)
		return
	}

	dtos := make([]PayslipDTO, len(slips))
	for i, s := range slips {
		dtos[i] = toPayslipDTO(s)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// =============================================================================
// PAYSLIP HANDLERS
// =============================================================================

// ComputePayslip computes or recomputes one draft payslip.
func (h *Handler) ComputePayslip(w http.ResponseWriter, r *http.Request) {
	var req ComputePayslipRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	in := payroll.ComputeInput{
		EmployeeID: req.EmployeeID,
		PeriodID:   req.PeriodID,
		DaysWorked: req.DaysWorked,
	}
	if req.Bonuses != "" {
		a, err := parseAmountField("bonuses", req.Bonuses, "")
		if err != nil {
			writeDomainError(w, "Invalid bonuses", err)
			return
		}
		in.Bonuses = a
	}
	if req.Arrears != "" {
		a, err := parseAmountField("arrears", req.Arrears, "")
		if err != nil {
			writeDomainError(w, "Invalid arrears", err)
			return
		}
		in.Arrears = a
	}

	// Bonuses/arrears arrive without a currency; the assembler stamps
	// the employee's. Look it up here so the amounts carry it.
	if in.Bonuses.Currency == "" || in.Arrears.Currency == "" {
		emp, err := h.Employees.GetEmployee(req.EmployeeID)
		if err != nil {
			writeDomainError(w, "Failed to get employee", err)
			return
		}
		in.Bonuses.Currency = emp.Currency
		in.Arrears.Currency = emp.Currency
	}

	slip, err := h.Assembler.Compute(in)
	if err != nil {
		writeDomainError(w, "Failed to compute payslip", err)
		return
	}
	writeJSON(w, http.StatusCreated, toPayslipDTO(slip))
}

// GetPayslip returns one payslip with its full breakdown.
func (h *Handler) GetPayslip(w http.ResponseWriter, r *http.Request) {
	slip, err := h.Assembler.Payslip(chi.URLParam(r, "id"))
	if err != nil {
		writeDomainError(w, "Failed to get payslip", err)
		return
	}
	writeJSON(w, http.StatusOK, toPayslipDTO(slip))
}

// ValidatePayslip transitions one payslip DRAFT -> VALIDATED.
func (h *Handler) ValidatePayslip(w http.ResponseWriter, r *http.Request) {
	slip, err := h.Assembler.Validate(chi.URLParam(r, "id"))
	if err != nil {
		writeDomainError(w, "Failed to validate payslip", err)
		return
	}
	writeJSON(w, http.StatusOK, toPayslipDTO(slip))
}

// PayPayslip records a (possibly partial) salary disbursement.
func (h *Handler) PayPayslip(w http.ResponseWriter, r *http.Request) {
	var req PayRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	date, err := parseDate(req.Date)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid date (use YYYY-MM-DD)", err)
		return
	}

	slipID := chi.URLParam(r, "id")
	slip, err := h.Assembler.Payslip(slipID)
	if err != nil {
		writeDomainError(w, "Failed to get payslip", err)
		return
	}
	amount, err := parseAmountField("amount", req.Amount, slip.Currency)
	if err != nil {
		writeDomainError(w, "Invalid amount", err)
		return
	}

	slip, record, err := h.Assembler.MarkPaid(slipID, date, amount, req.Mode, req.Reference)
	if err != nil {
		writeDomainError(w, "Failed to record payment", err)
		return
	}

	writeJSON(w, http.StatusCreated, map[string]any{
		"payslip": toPayslipDTO(slip),
		"payment": toPaymentDTO(record),
	})
}

// PayslipPayments returns the disbursement history of one payslip.
func (h *Handler) PayslipPayments(w http.ResponseWriter, r *http.Request) {
	payments, err := h.Assembler.Payments(chi.URLParam(r, "id"))
	if err != nil {
		writeDomainError(w, "Failed to list payments", err)
		return
	}

	dtos := make([]PaymentDTO, len(payments))
	for i, p := range payments {
		dtos[i] = toPaymentDTO(p)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// PayslipUnpaid returns the outstanding salary balance of one payslip.
func (h *Handler) PayslipUnpaid(w http.ResponseWriter, r *http.Request) {
	unpaid, err := h.Assembler.Unpaid(chi.URLParam(r, "id"))
	if err != nil {
		writeDomainError(w, "Failed to get unpaid balance", err)
		return
	}
	writeJSON(w, http.StatusOK, UnpaidDTO{
		PayslipID:   unpaid.PayslipID,
		EmployeeID:  unpaid.EmployeeID,
		Original:    unpaid.Original.Value.String(),
		Outstanding: unpaid.Outstanding.Value.String(),
	})
}

// =============================================================================
// JOURNAL HANDLERS
// =============================================================================

// PostEntry posts a manual journal entry.
func (h *Handler) PostEntry(w http.ResponseWriter, r *http.Request) {
	var req PostEntryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	date, err := parseDate(req.Date)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid date (use YYYY-MM-DD)", err)
		return
	}

	lines := make([]journal.Line, len(req.Lines))
	for i, l := range req.Lines {
		amount, err := parseAmountField(fmt.Sprintf("lines[%d].amount", i), l.Amount, l.Currency)
		if err != nil {
			writeDomainError(w, "Invalid line amount", err)
			return
		}
		lines[i] = journal.Line{
			AccountCode: l.AccountCode,
			Direction:   journal.Direction(l.Direction),
			Amount:      amount,
			Reference:   l.Reference,
		}
	}

	entry, err := h.Journal.Post(journal.Entry{
		Date:      date,
		Label:     req.Label,
		Operation: journal.OperationType(req.Operation),
		Lines:     lines,
	})
	if err != nil {
		writeDomainError(w, "Failed to post entry", err)
		return
	}
	writeJSON(w, http.StatusCreated, toEntryDTO(entry))
}

// GetEntry returns one journal entry with its lines.
func (h *Handler) GetEntry(w http.ResponseWriter, r *http.Request) {
	entry, err := h.Journal.Get(chi.URLParam(r, "id"))
	if err != nil {
		writeDomainError(w, "Failed to get entry", err)
		return
	}
	writeJSON(w, http.StatusOK, toEntryDTO(entry))
}

// ConfirmEntry transitions one entry BROUILLON -> VALIDE.
func (h *Handler) ConfirmEntry(w http.ResponseWriter, r *http.Request) {
	entry, err := h.Journal.Confirm(chi.URLParam(r, "id"))
	if err != nil {
		writeDomainError(w, "Failed to confirm entry", err)
		return
	}
	writeJSON(w, http.StatusOK, toEntryDTO(entry))
}

// ReverseEntry posts the offsetting entry for a confirmed entry.
func (h *Handler) ReverseEntry(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Date string `json:"date"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	date, err := parseDate(req.Date)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid date (use YYYY-MM-DD)", err)
		return
	}

	entry, err := h.Journal.Reverse(chi.URLParam(r, "id"), date)
	if err != nil {
		writeDomainError(w, "Failed to reverse entry", err)
		return
	}
	writeJSON(w, http.StatusCreated, toEntryDTO(entry))
}

// MonthEntries returns the entries of one accounting month ("2026-03").
func (h *Handler) MonthEntries(w http.ResponseWriter, r *http.Request) {
	year, month, err := parseMonthKey(chi.URLParam(r, "key"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid month key (use YYYY-MM)", err)
		return
	}

	entries, err := h.Journal.Month(year, month)
	if err != nil {
		writeDomainError(w, "Failed to list entries", err)
		return
	}

	dtos := make([]EntryDTO, len(entries))
	for i, e := range entries {
		dtos[i] = toEntryDTO(e)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// CloseMonth marks one accounting month CLOTURE.
func (h *Handler) CloseMonth(w http.ResponseWriter, r *http.Request) {
	key := chi.URLParam(r, "key")
	year, month, err := parseMonthKey(key)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid month key (use YYYY-MM)", err)
		return
	}

	if err := h.Journal.CloseMonth(year, month); err != nil {
		writeDomainError(w, "Failed to close month", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "closed", "month": key})
}

// GetAccount resolves one OHADA account code to its label.
func (h *Handler) GetAccount(w http.ResponseWriter, r *http.Request) {
	code := chi.URLParam(r, "code")
	label, err := journal.AccountLabel(code)
	if err != nil {
		writeDomainError(w, "Unknown account", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"code": code, "label": label})
}

// =============================================================================
// DEBT/LOAN HANDLERS
// =============================================================================

// CreateDebt registers a new dette or prêt.
func (h *Handler) CreateDebt(w http.ResponseWriter, r *http.Request) {
	var req CreateDebtRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	principal, err := parseAmountField("principal", req.Principal, req.Currency)
	if err != nil {
		writeDomainError(w, "Invalid principal", err)
		return
	}
	rate, err := decimal.NewFromString(req.AnnualRate)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid annual rate", err)
		return
	}
	startDate, err := parseDate(req.StartDate)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid start date (use YYYY-MM-DD)", err)
		return
	}

	d := debtloan.DetteOuPret{
		Kind:             debtloan.Kind(req.Kind),
		Label:            req.Label,
		Counterparty:     req.Counterparty,
		Principal:        principal,
		AnnualRate:       rate,
		InterestType:     debtloan.InterestType(req.InterestType),
		StartDate:        startDate,
		PrincipalAccount: req.PrincipalAccount,
		InterestAccount:  req.InterestAccount,
	}
	if req.Maturity != "" {
		maturity, err := parseDate(req.Maturity)
		if err != nil {
			writeError(w, http.StatusBadRequest, "Invalid maturity date (use YYYY-MM-DD)", err)
			return
		}
		d.Maturity = &maturity
	}

	created, err := h.Tracker.Create(d)
	if err != nil {
		writeDomainError(w, "Failed to create debt", err)
		return
	}
	writeJSON(w, http.StatusCreated, toDebtDTO(created))
}

// ListDebts returns all debts and loans.
func (h *Handler) ListDebts(w http.ResponseWriter, r *http.Request) {
	debts, err := h.Tracker.List()
	if err != nil {
		writeDomainError(w, "Failed to list debts", err)
		return
	}

	dtos := make([]DebtDTO, len(debts))
	for i, d := range debts {
		dtos[i] = toDebtDTO(d)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// GetDebt returns one debt/loan.
func (h *Handler) GetDebt(w http.ResponseWriter, r *http.Request) {
	d, err := h.Tracker.Get(chi.URLParam(r, "id"))
	if err != nil {
		writeDomainError(w, "Failed to get debt", err)
		return
	}
	writeJSON(w, http.StatusOK, toDebtDTO(d))
}

// PayDebt applies one repayment split into principal and interest.
func (h *Handler) PayDebt(w http.ResponseWriter, r *http.Request) {
	var req DebtPaymentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	date, err := parseDate(req.Date)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid date (use YYYY-MM-DD)", err)
		return
	}

	id := chi.URLParam(r, "id")
	d, err := h.Tracker.Get(id)
	if err != nil {
		writeDomainError(w, "Failed to get debt", err)
		return
	}
	currency := d.Principal.Currency

	amount, err := parseAmountField("amount", req.Amount, currency)
	if err != nil {
		writeDomainError(w, "Invalid amount", err)
		return
	}
	principal, err := parseAmountField("principal", req.Principal, currency)
	if err != nil {
		writeDomainError(w, "Invalid principal portion", err)
		return
	}
	interest, err := parseAmountField("interest", req.Interest, currency)
	if err != nil {
		writeDomainError(w, "Invalid interest portion", err)
		return
	}

	d, payment, err := h.Tracker.ApplyPayment(id, date, amount, principal, interest)
	if err != nil {
		writeDomainError(w, "Failed to apply payment", err)
		return
	}

	writeJSON(w, http.StatusCreated, map[string]any{
		"debt":    toDebtDTO(d),
		"payment": toDebtPaymentDTO(payment),
	})
}

// DebtPayments returns the repayment history of one debt/loan.
func (h *Handler) DebtPayments(w http.ResponseWriter, r *http.Request) {
	payments, err := h.Tracker.Payments(chi.URLParam(r, "id"))
	if err != nil {
		writeDomainError(w, "Failed to list payments", err)
		return
	}

	dtos := make([]DebtPaymentDTO, len(payments))
	for i, p := range payments {
		dtos[i] = toDebtPaymentDTO(p)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// DebtInterest returns the interest accrued as of ?as_of=YYYY-MM-DD
// (today when omitted).
func (h *Handler) DebtInterest(w http.ResponseWriter, r *http.Request) {
	asOf := time.Now().UTC()
	if raw := r.URL.Query().Get("as_of"); raw != "" {
		t, err := parseDate(raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, "Invalid as_of date (use YYYY-MM-DD)", err)
			return
		}
		asOf = t
	}

	interest, err := h.Tracker.AccrueInterest(chi.URLParam(r, "id"), asOf)
	if err != nil {
		writeDomainError(w, "Failed to accrue interest", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"as_of":    asOf.Format("2006-01-02"),
		"interest": interest.Value.String(),
		"currency": interest.Currency,
	})
}

// CancelDebt marks one debt/loan ANNULE.
func (h *Handler) CancelDebt(w http.ResponseWriter, r *http.Request) {
	d, err := h.Tracker.Cancel(chi.URLParam(r, "id"))
	if err != nil {
		writeDomainError(w, "Failed to cancel debt", err)
		return
	}
	writeJSON(w, http.StatusOK, toDebtDTO(d))
}

// =============================================================================
// ADMIN HANDLERS - Tax settings
// =============================================================================

// GetSettings returns the current tax rate table.
func (h *Handler) GetSettings(w http.ResponseWriter, r *http.Request) {
	settings, err := h.Settings.Current()
	if err != nil {
		writeDomainError(w, "Failed to get settings", err)
		return
	}
	writeJSON(w, http.StatusOK, h.settingsFactory.ToJSON(settings))
}

// UpdateSettings publishes a new settings version. The snapshot is
// validated before it is stored; the store assigns the version.
func (h *Handler) UpdateSettings(w http.ResponseWriter, r *http.Request) {
	var req factory.SettingsJSON
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	settings, err := h.settingsFactory.FromJSON(req)
	if err != nil {
		writeDomainError(w, "Invalid settings", err)
		return
	}

	saved, err := h.Settings.Update(settings)
	if err != nil {
		writeDomainError(w, "Failed to update settings", err)
		return
	}
	writeJSON(w, http.StatusCreated, h.settingsFactory.ToJSON(saved))
}

// ResetSettings reinstates the statutory default table as a new version.
func (h *Handler) ResetSettings(w http.ResponseWriter, r *http.Request) {
	saved, err := h.Settings.Update(tax.DefaultSettings())
	if err != nil {
		writeDomainError(w, "Failed to reset settings", err)
		return
	}
	writeJSON(w, http.StatusCreated, h.settingsFactory.ToJSON(saved))
}

// =============================================================================
// HELPERS
// =============================================================================

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string, err error) {
	resp := ErrorResponse{Error: message}
	if err != nil {
		resp.Details = err.Error()
	}
	writeJSON(w, status, resp)
}

// writeDomainError maps the error taxonomy to HTTP status codes.
func writeDomainError(w http.ResponseWriter, message string, err error) {
	switch {
	case engine.IsNotFound(err):
		writeError(w, http.StatusNotFound, message, err)
	case engine.IsConflict(err):
		writeError(w, http.StatusConflict, message, err)
	case engine.IsClientError(err):
		writeError(w, http.StatusBadRequest, message, err)
	case errors.Is(err, engine.ErrUnsupported):
		writeError(w, http.StatusUnprocessableEntity, message, err)
	default:
		writeError(w, http.StatusInternalServerError, message, err)
	}
}

// parseAmountField parses a decimal-string amount. Amounts finer than
// the currency's precision are rejected here, at the boundary; letting
// one through would poison a draft payslip that can then never post.
func parseAmountField(field, raw, currency string) (engine.Amount, error) {
	if raw == "" {
		return engine.NewAmountFromInt(0, currency), nil
	}
	d, err := decimal.NewFromString(raw)
	if err != nil {
		return engine.Amount{}, &engine.ValidationError{
			Field:  field,
			Detail: fmt.Sprintf("not a decimal: %q", raw),
		}
	}
	a := engine.NewAmountFromDecimal(d, currency)
	if !a.Round().Equal(a) {
		return engine.Amount{}, &engine.ValidationError{
			Field:  field,
			Detail: fmt.Sprintf("%q has more precision than %s allows", raw, a.Currency),
		}
	}
	return a, nil
}

func parseDate(raw string) (time.Time, error) {
	return time.Parse("2006-01-02", raw)
}

func parseMonthKey(key string) (int, time.Month, error) {
	parts := strings.SplitN(key, "-", 2)
	if len(parts) != 2 {
		return 0, 0, fmt.Errorf("malformed month key %q", key)
	}
	year, err := strconv.Atoi(parts[0])
	if err != nil {
		return 0, 0, err
	}
	month, err := strconv.Atoi(parts[1])
	if err != nil {
		return 0, 0, err
	}
	if month < 1 || month > 12 {
		return 0, 0, fmt.Errorf("month %d out of range", month)
	}
	return year, time.Month(month), nil
}

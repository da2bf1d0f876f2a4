package payroll

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/warp/payroll-engine/deduction"
	"github.com/warp/payroll-engine/engine"
	"github.com/warp/payroll-engine/journal"
	"github.com/warp/payroll-engine/tax"
)

// =============================================================================
// ASSEMBLER - The payroll orchestrator
// =============================================================================

// Assembler runs the full payslip pipeline: tax calculation, deduction
// resolution, lifecycle transitions and the journal entries they emit.
type Assembler struct {
	employees EmployeeStore
	periods   PeriodStore
	payslips  PayslipStore
	settings  tax.SettingsStore
	resolver  *deduction.Resolver
	journal   *journal.Journal

	// OHADA cash account salary and charge payments settle against.
	cashAccount string

	clock func() time.Time
}

func NewAssembler(
	employees EmployeeStore,
	periods PeriodStore,
	payslips PayslipStore,
	settings tax.SettingsStore,
	resolver *deduction.Resolver,
	j *journal.Journal,
	cashAccount string,
) *Assembler {
	return &Assembler{
		employees:   employees,
		periods:     periods,
		payslips:    payslips,
		settings:    settings,
		resolver:    resolver,
		journal:     j,
		cashAccount: cashAccount,
		clock:       time.Now,
	}
}

// WithClock fixes the time source. Tests use this for deterministic
// output; production keeps time.Now.
func (a *Assembler) WithClock(clock func() time.Time) *Assembler {
	a.clock = clock
	return a
}

// =============================================================================
// PERIOD LIFECYCLE
// =============================================================================

// OpenPeriod creates the DRAFT period for (year, month). A period
// already existing for that month is a conflict, never an overwrite.
func (a *Assembler) OpenPeriod(year int, month time.Month) (engine.PayPeriod, error) {
	if existing, err := a.periods.GetPeriodByKey(year, month); err == nil {
		return engine.PayPeriod{}, &engine.StateConflictError{
			Entity:  "pay period",
			ID:      existing.Key(),
			State:   string(existing.Status),
			Attempt: "open duplicate period",
		}
	} else if !engine.IsNotFound(err) {
		return engine.PayPeriod{}, err
	}

	p := engine.PayPeriod{
		ID:     uuid.NewString(),
		Year:   year,
		Month:  month,
		Status: engine.PeriodDraft,
	}
	if err := a.periods.SavePeriod(p); err != nil {
		return engine.PayPeriod{}, err
	}
	return p, nil
}

// TransitionPeriod moves a period forward in its one-way lifecycle.
func (a *Assembler) TransitionPeriod(periodID string, next engine.PeriodStatus) (engine.PayPeriod, error) {
	p, err := a.periods.GetPeriod(periodID)
	if err != nil {
		return engine.PayPeriod{}, err
	}
	if !p.CanTransitionTo(next) {
		return engine.PayPeriod{}, &engine.StateConflictError{
			Entity:  "pay period",
			ID:      p.Key(),
			State:   string(p.Status),
			Attempt: fmt.Sprintf("transition to %s", next),
		}
	}
	p.Status = next
	if err := a.periods.SavePeriod(p); err != nil {
		return engine.PayPeriod{}, err
	}
	return p, nil
}

// LockPeriod freezes the period. All payslip writes are rejected from
// here on.
func (a *Assembler) LockPeriod(periodID string) (engine.PayPeriod, error) {
	return a.TransitionPeriod(periodID, engine.PeriodLocked)
}

// =============================================================================
// COMPUTE - Build or rebuild one DRAFT payslip
// =============================================================================

// ComputeInput carries the per-run facts the engine does not own:
// attendance and the opaque arrears figure supplied by the caller.
type ComputeInput struct {
	EmployeeID string
	PeriodID   string
	DaysWorked int
	Bonuses    engine.Amount
	Arrears    engine.Amount
}

// Compute runs the tax calculator and the deduction resolver and
// assembles the DRAFT payslip.
//
// Recomputing an existing DRAFT with unchanged inputs is idempotent and
// yields the same figures; a VALIDATED or PAID payslip rejects
// recomputation. Exactly one payslip exists per (period, employee).
func (a *Assembler) Compute(in ComputeInput) (Payslip, error) {
	period, err := a.periods.GetPeriod(in.PeriodID)
	if err != nil {
		return Payslip{}, err
	}
	if err := period.GuardWritable("compute payslip"); err != nil {
		return Payslip{}, err
	}

	emp, err := a.employees.GetEmployee(in.EmployeeID)
	if err != nil {
		return Payslip{}, err
	}
	if in.DaysWorked < 0 {
		return Payslip{}, &engine.ValidationError{
			Field:  "days worked",
			Detail: fmt.Sprintf("must not be negative, got %d", in.DaysWorked),
		}
	}

	slipID := uuid.NewString()
	if existing, err := a.payslips.PayslipForEmployee(period.ID, emp.ID); err == nil {
		if guardErr := existing.GuardStatus(PayslipDraft, "recompute"); guardErr != nil {
			return Payslip{}, guardErr
		}
		slipID = existing.ID
	} else if !engine.IsNotFound(err) {
		return Payslip{}, err
	}

	settings, err := a.settings.Current()
	if err != nil {
		return Payslip{}, err
	}
	calc, err := tax.NewCalculator(settings)
	if err != nil {
		return Payslip{}, err
	}

	base := a.baseSalary(emp, in.DaysWorked)
	bonuses := orZero(in.Bonuses, emp.Currency)
	arrears := orZero(in.Arrears, emp.Currency)
	gross := base.Add(bonuses).Add(arrears).Round()

	bd, err := calc.Compute(gross)
	if err != nil {
		return Payslip{}, err
	}

	res, err := a.resolver.Resolve(emp.ID, period, bd.NetBeforeDeductions)
	if err != nil {
		return Payslip{}, err
	}

	byType := make(map[deduction.Type]engine.Amount)
	for _, item := range res.Items {
		if !item.Entry.Applied.IsPositive() {
			continue
		}
		current, ok := byType[item.Obligation.Type]
		if !ok {
			current = gross.Zero()
		}
		byType[item.Obligation.Type] = current.Add(item.Entry.Applied)
	}

	slip := Payslip{
		ID:         slipID,
		PeriodID:   period.ID,
		EmployeeID: emp.ID,

		BaseSalary: base,
		DaysWorked: in.DaysWorked,
		Bonuses:    bonuses,
		Arrears:    arrears,
		Gross:      gross,

		Contributions: bd.Contributions,
		TotalSocial:   bd.TotalSocial,
		TaxableBase:   bd.TaxableBase,
		IncomeTax:     bd.IncomeTax,

		DeductionsByType: byType,
		TotalDeductions:  res.TotalApplied,

		Net:      bd.NetBeforeDeductions.Sub(res.TotalApplied),
		Currency: emp.Currency,

		SettingsVersion: bd.SettingsVersion,
		Status:          PayslipDraft,
		ComputedAt:      a.clock(),
	}

	if err := a.payslips.SavePayslip(slip); err != nil {
		return Payslip{}, err
	}

	if period.Status == engine.PeriodDraft {
		if _, err := a.TransitionPeriod(period.ID, engine.PeriodComputed); err != nil {
			return Payslip{}, err
		}
	}
	return slip, nil
}

func (a *Assembler) baseSalary(emp Employee, daysWorked int) engine.Amount {
	if emp.Mode == ModeDaily {
		return emp.DailyRate.Mul(decimal.NewFromInt(int64(daysWorked)))
	}
	return emp.BaseSalary
}

func orZero(amount engine.Amount, currency string) engine.Amount {
	if amount.Currency == "" {
		return engine.NewAmountFromInt(0, currency)
	}
	return amount
}

// =============================================================================
// VALIDATE - DRAFT -> VALIDATED, PAIE entry, unpaid balance
// =============================================================================

// Validate transitions one payslip DRAFT -> VALIDATED. The applied
// schedule entries become immutable, the PAIE entry is posted, and the
// net opens a salaire impayé balance.
func (a *Assembler) Validate(payslipID string) (Payslip, error) {
	slip, err := a.payslips.GetPayslip(payslipID)
	if err != nil {
		return Payslip{}, err
	}
	period, err := a.periods.GetPeriod(slip.PeriodID)
	if err != nil {
		return Payslip{}, err
	}
	if err := period.GuardWritable("validate payslip"); err != nil {
		return Payslip{}, err
	}
	if err := slip.GuardStatus(PayslipDraft, "validate"); err != nil {
		return Payslip{}, err
	}
	return a.validate(slip, period)
}

func (a *Assembler) validate(slip Payslip, period engine.PayPeriod) (Payslip, error) {
	now := a.clock()

	posted, err := a.journal.Post(a.payrollEntry(slip, period, now))
	if err != nil {
		return Payslip{}, err
	}

	slip.Status = PayslipValidated
	slip.ValidatedAt = &now
	slip.JournalEntryID = posted.ID
	if err := a.payslips.SavePayslip(slip); err != nil {
		return Payslip{}, err
	}

	unpaid := UnpaidSalary{
		ID:          uuid.NewString(),
		PayslipID:   slip.ID,
		EmployeeID:  slip.EmployeeID,
		Original:    slip.Net,
		Outstanding: slip.Net,
	}
	if err := a.payslips.SaveUnpaid(unpaid); err != nil {
		return Payslip{}, err
	}
	return slip, nil
}

// payrollEntry builds the PAIE posting for one slip.
func (a *Assembler) payrollEntry(slip Payslip, period engine.PayPeriod, date time.Time) journal.Entry {
	return journal.NewPayrollEntry(date,
		fmt.Sprintf("Paie %s", period.Key()), slip.ID,
		journal.PayrollFigures{
			Gross:      slip.Gross,
			Social:     slip.TotalSocial,
			IncomeTax:  slip.IncomeTax,
			Deductions: slip.TotalDeductions,
			Net:        slip.Net,
		})
}

// ValidatePeriod validates every DRAFT payslip in the period as one
// batch. Each draft's PAIE entry is checked up front, so a failing
// slip aborts the batch before any entry posts; a batch never leaves
// the period half validated. On success the period moves to VALIDATED.
func (a *Assembler) ValidatePeriod(periodID string) ([]Payslip, error) {
	period, err := a.periods.GetPeriod(periodID)
	if err != nil {
		return nil, err
	}
	if err := period.GuardWritable("validate period"); err != nil {
		return nil, err
	}

	slips, err := a.payslips.PayslipsForPeriod(periodID)
	if err != nil {
		return nil, err
	}
	if len(slips) == 0 {
		return nil, &engine.ValidationError{
			Field:  "period",
			Detail: "no payslips computed for " + period.Key(),
		}
	}

	var drafts []Payslip
	for _, s := range slips {
		if s.Status == PayslipDraft {
			drafts = append(drafts, s)
		}
	}

	now := a.clock()
	for _, s := range drafts {
		if err := a.journal.Check(a.payrollEntry(s, period, now)); err != nil {
			return nil, fmt.Errorf("payslip %s: %w", s.ID, err)
		}
	}

	validated := make([]Payslip, 0, len(drafts))
	for _, s := range drafts {
		v, err := a.validate(s, period)
		if err != nil {
			return nil, err
		}
		validated = append(validated, v)
	}

	if period.CanTransitionTo(engine.PeriodValidated) {
		if _, err := a.TransitionPeriod(period.ID, engine.PeriodValidated); err != nil {
			return nil, err
		}
	}
	return validated, nil
}

// =============================================================================
// MARK PAID - Partial payments against the unpaid balance
// =============================================================================

// MarkPaid records one salary disbursement. Payments may be partial:
// each posts a PAIEMENT_SALAIRE entry and reduces the salaire impayé
// balance; the payslip turns PAID when the balance reaches zero.
// Overpayment is rejected.
func (a *Assembler) MarkPaid(payslipID string, date time.Time, amount engine.Amount, mode, reference string) (Payslip, PaymentRecord, error) {
	slip, err := a.payslips.GetPayslip(payslipID)
	if err != nil {
		return Payslip{}, PaymentRecord{}, err
	}
	period, err := a.periods.GetPeriod(slip.PeriodID)
	if err != nil {
		return Payslip{}, PaymentRecord{}, err
	}
	if err := period.GuardWritable("pay payslip"); err != nil {
		return Payslip{}, PaymentRecord{}, err
	}
	if err := slip.GuardStatus(PayslipValidated, "pay"); err != nil {
		return Payslip{}, PaymentRecord{}, err
	}

	if !amount.IsPositive() {
		return Payslip{}, PaymentRecord{}, &engine.ValidationError{
			Field:  "amount",
			Detail: "payment must be positive, got " + amount.String(),
		}
	}

	unpaid, err := a.payslips.UnpaidForPayslip(slip.ID)
	if err != nil {
		return Payslip{}, PaymentRecord{}, err
	}
	if amount.GreaterThan(unpaid.Outstanding) {
		return Payslip{}, PaymentRecord{}, &engine.ValidationError{
			Field:  "amount",
			Detail: fmt.Sprintf("payment %s exceeds outstanding salary %s", amount, unpaid.Outstanding),
		}
	}

	entry := journal.NewSalaryPaymentEntry(date,
		fmt.Sprintf("Paiement salaire %s", period.Key()), slip.ID,
		a.cashAccount, amount)
	posted, err := a.journal.Post(entry)
	if err != nil {
		return Payslip{}, PaymentRecord{}, err
	}

	unpaid.Outstanding = unpaid.Outstanding.Sub(amount)
	if err := a.payslips.SaveUnpaid(unpaid); err != nil {
		return Payslip{}, PaymentRecord{}, err
	}

	record := PaymentRecord{
		ID:             uuid.NewString(),
		PayslipID:      slip.ID,
		Date:           date,
		Amount:         amount,
		Mode:           mode,
		Reference:      reference,
		JournalEntryID: posted.ID,
	}
	if err := a.payslips.SavePayment(record); err != nil {
		return Payslip{}, PaymentRecord{}, err
	}

	if unpaid.Outstanding.IsZero() {
		slip.Status = PayslipPaid
		if err := a.payslips.SavePayslip(slip); err != nil {
			return Payslip{}, PaymentRecord{}, err
		}
	}
	return slip, record, nil
}

// =============================================================================
// PAY SOCIAL CHARGES - Settle the period's CNSS/ONEM/INPP and IPR
// =============================================================================

// PaySocialCharges posts the PAIEMENT_CHARGES entry settling the
// period's accumulated social contributions and withheld income tax,
// summed over its VALIDATED and PAID payslips.
func (a *Assembler) PaySocialCharges(periodID string, date time.Time) (journal.Entry, error) {
	period, err := a.periods.GetPeriod(periodID)
	if err != nil {
		return journal.Entry{}, err
	}

	slips, err := a.payslips.PayslipsForPeriod(periodID)
	if err != nil {
		return journal.Entry{}, err
	}

	var social, incomeTax engine.Amount
	seeded := false
	for _, s := range slips {
		if s.Status == PayslipDraft {
			continue
		}
		if !seeded {
			social = s.TotalSocial.Zero()
			incomeTax = s.TotalSocial.Zero()
			seeded = true
		}
		social = social.Add(s.TotalSocial)
		incomeTax = incomeTax.Add(s.IncomeTax)
	}

	if !seeded || (social.IsZero() && incomeTax.IsZero()) {
		return journal.Entry{}, &engine.ValidationError{
			Field:  "period",
			Detail: "no validated payslips with charges to pay in " + period.Key(),
		}
	}

	entry := journal.NewChargesPaymentEntry(date,
		fmt.Sprintf("Paiement charges sociales %s", period.Key()), period.Key(),
		a.cashAccount, social, incomeTax)
	return a.journal.Post(entry)
}

// =============================================================================
// READS
// =============================================================================

// Payslip returns one payslip.
func (a *Assembler) Payslip(id string) (Payslip, error) {
	return a.payslips.GetPayslip(id)
}

// PeriodPayslips returns the payslips of one period.
func (a *Assembler) PeriodPayslips(periodID string) ([]Payslip, error) {
	return a.payslips.PayslipsForPeriod(periodID)
}

// Unpaid returns the salaire impayé balance of one payslip.
func (a *Assembler) Unpaid(payslipID string) (UnpaidSalary, error) {
	return a.payslips.UnpaidForPayslip(payslipID)
}

// Payments returns the disbursement history of one payslip.
func (a *Assembler) Payments(payslipID string) ([]PaymentRecord, error) {
	return a.payslips.PaymentsForPayslip(payslipID)
}

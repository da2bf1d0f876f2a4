package debtloan

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/warp/payroll-engine/engine"
	"github.com/warp/payroll-engine/journal"
)

// =============================================================================
// TRACKER - Create / AccrueInterest / ApplyPayment
// =============================================================================

// Tracker maintains debt/loan balances and posts a journal entry for
// every disbursement and repayment.
type Tracker struct {
	store   Store
	journal *journal.Journal

	// OHADA cash account credited/debited by postings (521 or 571).
	cashAccount string
}

func NewTracker(store Store, j *journal.Journal, cashAccount string) *Tracker {
	return &Tracker{store: store, journal: j, cashAccount: cashAccount}
}

// Create registers a new dette or prêt with its opening balance and
// posts the creation entry: cash in / liability up for a dette, cash
// out / receivable up for a prêt.
func (t *Tracker) Create(d DetteOuPret) (DetteOuPret, error) {
	if !d.Principal.IsPositive() {
		return DetteOuPret{}, &engine.ValidationError{
			Field:  "principal",
			Detail: "must be positive, got " + d.Principal.String(),
		}
	}
	if d.AnnualRate.IsNegative() {
		return DetteOuPret{}, &engine.ValidationError{
			Field:  "annual rate",
			Detail: fmt.Sprintf("must not be negative, got %s", d.AnnualRate),
		}
	}
	if err := t.checkAccount(d.Kind, d.PrincipalAccount); err != nil {
		return DetteOuPret{}, err
	}
	if d.InterestAccount != "" && !journal.KnownAccount(d.InterestAccount) {
		return DetteOuPret{}, &engine.ValidationError{
			Field:  "interest account",
			Detail: fmt.Sprintf("unknown account code %q", d.InterestAccount),
		}
	}

	if d.ID == "" {
		d.ID = uuid.NewString()
	}
	d.Balance = d.Principal
	d.Status = StatusActif

	var entry journal.Entry
	switch d.Kind {
	case KindDette:
		entry = journal.NewDebtCreationEntry(d.StartDate, d.Label, d.ID, t.cashAccount, d.PrincipalAccount, d.Principal)
	case KindPret:
		entry = journal.NewLoanCreationEntry(d.StartDate, d.Label, d.ID, t.cashAccount, d.PrincipalAccount, d.Principal)
	default:
		return DetteOuPret{}, &engine.ValidationError{
			Field:  "kind",
			Detail: fmt.Sprintf("unknown kind %q", d.Kind),
		}
	}

	if _, err := t.journal.Post(entry); err != nil {
		return DetteOuPret{}, err
	}
	if err := t.store.SaveDebt(d); err != nil {
		return DetteOuPret{}, err
	}
	return d, nil
}

func (t *Tracker) checkAccount(kind Kind, account string) error {
	switch kind {
	case KindDette:
		if !journal.IsDebtAccount(account) {
			return &engine.ValidationError{
				Field:  "principal account",
				Detail: fmt.Sprintf("dette requires a liability account 161-168, got %q", account),
			}
		}
	case KindPret:
		if !journal.IsLoanAccount(account) {
			return &engine.ValidationError{
				Field:  "principal account",
				Detail: fmt.Sprintf("prêt requires a receivable account 261-268, got %q", account),
			}
		}
	}
	return nil
}

// AccrueInterest computes the interest accrued from the start date to
// asOf, routed explicitly per interest type:
//
//	SIMPLE:  principal x rate/100 x daysElapsed/365
//	FIXE:    principal x rate/100, flat, independent of time
//	COMPOSE: declared in the vocabulary but unsupported
//
// The balance is not mutated; interest is settled through the interest
// portion of payments.
func (t *Tracker) AccrueInterest(id string, asOf time.Time) (engine.Amount, error) {
	d, err := t.store.GetDebt(id)
	if err != nil {
		return engine.Amount{}, err
	}

	rate := d.AnnualRate.Div(decimal.NewFromInt(100))

	switch d.InterestType {
	case InterestSimple:
		days := int64(asOf.Sub(d.StartDate).Hours() / 24)
		if days < 0 {
			return engine.Amount{}, &engine.ValidationError{
				Field:  "as-of date",
				Detail: "before the start date",
			}
		}
		factor := rate.
			Mul(decimal.NewFromInt(days)).
			Div(decimal.NewFromInt(365))
		return d.Principal.MulRate(factor).Round(), nil

	case InterestFixe:
		return d.Principal.MulRate(rate).Round(), nil

	case InterestCompose:
		return engine.Amount{}, fmt.Errorf("%w: COMPOSE interest accrual", engine.ErrUnsupported)

	default:
		return engine.Amount{}, &engine.ValidationError{
			Field:  "interest type",
			Detail: fmt.Sprintf("unknown type %q", d.InterestType),
		}
	}
}

// ApplyPayment applies one repayment split into principal and interest.
//
// Rules:
//   - principal + interest must equal amount exactly
//   - the principal portion may not exceed the balance (overpayment is
//     rejected, never clamped; the caller must split into a correction)
//   - balance reaching zero transitions to REMBOURSE; a payment landing
//     past maturity with a balance left transitions to EN_RETARD
//   - every successful payment posts a balanced journal entry
func (t *Tracker) ApplyPayment(id string, date time.Time, amount, principal, interest engine.Amount) (DetteOuPret, Payment, error) {
	d, err := t.store.GetDebt(id)
	if err != nil {
		return DetteOuPret{}, Payment{}, err
	}
	if !d.Payable() {
		return DetteOuPret{}, Payment{}, &engine.StateConflictError{
			Entity:  "dette/prêt",
			ID:      d.ID,
			State:   string(d.Status),
			Attempt: "apply payment",
		}
	}

	if !amount.IsPositive() {
		return DetteOuPret{}, Payment{}, &engine.ValidationError{
			Field:  "amount",
			Detail: "payment must be positive, got " + amount.String(),
		}
	}
	if principal.IsNegative() || interest.IsNegative() {
		return DetteOuPret{}, Payment{}, &engine.ValidationError{
			Field:  "split",
			Detail: "principal and interest portions must not be negative",
		}
	}
	if !principal.Add(interest).Equal(amount) {
		return DetteOuPret{}, Payment{}, &engine.ValidationError{
			Field:  "split",
			Detail: fmt.Sprintf("principal %s + interest %s != amount %s", principal, interest, amount),
		}
	}
	if principal.GreaterThan(d.Balance) {
		return DetteOuPret{}, Payment{}, &engine.ValidationError{
			Field:  "principal",
			Detail: fmt.Sprintf("portion %s exceeds outstanding balance %s", principal, d.Balance),
		}
	}

	var entry journal.Entry
	switch d.Kind {
	case KindDette:
		entry = journal.NewDebtPaymentEntry(date, paymentLabel(d), d.ID,
			t.cashAccount, d.PrincipalAccount, interestAccountFor(d), principal, interest)
	case KindPret:
		entry = journal.NewLoanPaymentEntry(date, paymentLabel(d), d.ID,
			t.cashAccount, d.PrincipalAccount, interestAccountFor(d), principal, interest)
	}
	posted, err := t.journal.Post(entry)
	if err != nil {
		return DetteOuPret{}, Payment{}, err
	}

	d.Balance = d.Balance.Sub(principal)
	switch {
	case !d.Balance.IsPositive():
		d.Status = StatusRembourse
	case d.Overdue(date):
		d.Status = StatusEnRetard
	}

	p := Payment{
		ID:             uuid.NewString(),
		DebtID:         d.ID,
		Date:           date,
		Amount:         amount,
		Principal:      principal,
		Interest:       interest,
		JournalEntryID: posted.ID,
	}

	if err := t.store.SaveDebt(d); err != nil {
		return DetteOuPret{}, Payment{}, err
	}
	if err := t.store.SaveDebtPayment(p); err != nil {
		return DetteOuPret{}, Payment{}, err
	}
	return d, p, nil
}

// Cancel marks a debt/loan ANNULE. The balance history stays; nothing
// is deleted.
func (t *Tracker) Cancel(id string) (DetteOuPret, error) {
	d, err := t.store.GetDebt(id)
	if err != nil {
		return DetteOuPret{}, err
	}
	if d.Status == StatusRembourse || d.Status == StatusAnnule {
		return DetteOuPret{}, &engine.StateConflictError{
			Entity:  "dette/prêt",
			ID:      d.ID,
			State:   string(d.Status),
			Attempt: "cancel",
		}
	}
	d.Status = StatusAnnule
	if err := t.store.SaveDebt(d); err != nil {
		return DetteOuPret{}, err
	}
	return d, nil
}

// Get returns one debt/loan.
func (t *Tracker) Get(id string) (DetteOuPret, error) {
	return t.store.GetDebt(id)
}

// List returns every tracked debt and loan.
func (t *Tracker) List() ([]DetteOuPret, error) {
	return t.store.ListDebts()
}

// Payments returns the payment history of one debt/loan.
func (t *Tracker) Payments(id string) ([]Payment, error) {
	return t.store.PaymentsForDebt(id)
}

// interestAccountFor picks the interest account for a payment posting:
// the per-debt override when set, otherwise interest expense for a
// dette and interest income for a prêt.
func interestAccountFor(d DetteOuPret) string {
	if d.InterestAccount != "" {
		return d.InterestAccount
	}
	if d.Kind == KindPret {
		return journal.AccountInterestIncome
	}
	return journal.AccountInterestCost
}

func paymentLabel(d DetteOuPret) string {
	if d.Kind == KindDette {
		return fmt.Sprintf("Remboursement dette: %s", d.Label)
	}
	return fmt.Sprintf("Remboursement prêt: %s", d.Label)
}

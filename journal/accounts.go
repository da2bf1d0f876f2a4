package journal

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/warp/payroll-engine/engine"
)

// =============================================================================
// OHADA CHART OF ACCOUNTS - The subset the engine posts against
// =============================================================================

// Account codes used by the posting builders. The chart below is the
// subset of the OHADA plan the payroll engine touches; postings against
// any other code are rejected by Post.
const (
	AccountSalaryExpense  = "661" // Rémunérations directes versées au personnel
	AccountStaffAdvances  = "421" // Personnel, avances et acomptes
	AccountNetPayPayable  = "422" // Personnel, rémunérations dues
	AccountSocialPayable  = "431" // Sécurité sociale
	AccountTaxWithheld    = "447" // État, impôts retenus à la source
	AccountBank           = "521" // Banques
	AccountCash           = "571" // Caisse
	AccountInterestCost   = "671" // Intérêts des emprunts
	AccountInterestIncome = "771" // Intérêts de prêts
)

// chart maps every postable account code to its display label.
// Debt principal accounts (161-168) and loan receivable accounts
// (261-268) are ranges; both are enumerated below.
var chart = map[string]string{
	AccountSalaryExpense:  "Rémunérations directes versées au personnel",
	AccountStaffAdvances:  "Personnel, avances et acomptes",
	AccountNetPayPayable:  "Personnel, rémunérations dues",
	AccountSocialPayable:  "Sécurité sociale",
	AccountTaxWithheld:    "État, impôts retenus à la source",
	AccountBank:           "Banques",
	AccountCash:           "Caisse",
	AccountInterestCost:   "Intérêts des emprunts",
	AccountInterestIncome: "Intérêts de prêts",

	"161": "Emprunts obligataires",
	"162": "Emprunts et dettes auprès des établissements de crédit",
	"163": "Avances reçues de l'État",
	"164": "Avances reçues et comptes courants bloqués",
	"165": "Dépôts et cautionnements reçus",
	"166": "Intérêts courus",
	"167": "Avances assorties de conditions particulières",
	"168": "Autres emprunts et dettes",

	"261": "Prêts et créances, secteur public",
	"262": "Prêts et créances, établissements financiers",
	"263": "Prêts et créances, entreprises liées",
	"264": "Prêts et créances sur l'État",
	"265": "Prêts aux associés",
	"266": "Prêts au personnel",
	"267": "Créances rattachées à des participations",
	"268": "Autres prêts et créances",
}

// KnownAccount reports whether the code is part of the posting chart.
func KnownAccount(code string) bool {
	_, ok := chart[code]
	return ok
}

// AccountLabel resolves a code to its display label.
func AccountLabel(code string) (string, error) {
	label, ok := chart[code]
	if !ok {
		return "", &engine.NotFoundError{Entity: "account", ID: code}
	}
	return label, nil
}

// IsDebtAccount reports whether the code is a debt principal account
// (161-168, money owed by the company).
func IsDebtAccount(code string) bool {
	return len(code) == 3 && code[0] == '1' && code[1] == '6' && code[2] >= '1' && code[2] <= '8'
}

// IsLoanAccount reports whether the code is a loan receivable account
// (261-268, money owed to the company).
func IsLoanAccount(code string) bool {
	return len(code) == 3 && code[0] == '2' && code[1] == '6' && code[2] >= '1' && code[2] <= '8'
}

// =============================================================================
// POSTING BUILDERS - Event-specific account selection
// =============================================================================

// PayrollFigures carries the per-period totals a PAIE entry posts.
// Gross must equal social + tax + deductions + net; Post rejects the
// entry otherwise via the balance invariant.
type PayrollFigures struct {
	Gross      engine.Amount
	Social     engine.Amount
	IncomeTax  engine.Amount
	Deductions engine.Amount
	Net        engine.Amount
}

// NewPayrollEntry builds the PAIE posting for a validated payroll run:
// debit the salary expense for the gross, credit each payable for where
// the money is owed.
func NewPayrollEntry(date time.Time, label string, reference string, f PayrollFigures) Entry {
	lines := []Line{
		{AccountCode: AccountSalaryExpense, Direction: Debit, Amount: f.Gross, Reference: reference},
		{AccountCode: AccountSocialPayable, Direction: Credit, Amount: f.Social, Reference: reference},
		{AccountCode: AccountTaxWithheld, Direction: Credit, Amount: f.IncomeTax, Reference: reference},
	}
	if f.Deductions.IsPositive() {
		lines = append(lines, Line{AccountCode: AccountStaffAdvances, Direction: Credit, Amount: f.Deductions, Reference: reference})
	}
	lines = append(lines, Line{AccountCode: AccountNetPayPayable, Direction: Credit, Amount: f.Net, Reference: reference})

	return Entry{
		ID:        uuid.NewString(),
		Date:      date,
		Label:     label,
		Operation: OpPaie,
		Lines:     dropZeroLines(lines),
	}
}

// NewSalaryPaymentEntry builds the PAIEMENT_SALAIRE posting: settle the
// net-pay payable from the cash account.
func NewSalaryPaymentEntry(date time.Time, label, reference, cashAccount string, amount engine.Amount) Entry {
	return Entry{
		ID:        uuid.NewString(),
		Date:      date,
		Label:     label,
		Operation: OpPaiementSalaire,
		Lines: []Line{
			{AccountCode: AccountNetPayPayable, Direction: Debit, Amount: amount, Reference: reference},
			{AccountCode: cashAccount, Direction: Credit, Amount: amount, Reference: reference},
		},
	}
}

// NewChargesPaymentEntry builds the PAIEMENT_CHARGES posting: settle the
// social and withheld-tax payables from the cash account.
func NewChargesPaymentEntry(date time.Time, label, reference, cashAccount string, social, tax engine.Amount) Entry {
	lines := []Line{
		{AccountCode: AccountSocialPayable, Direction: Debit, Amount: social, Reference: reference},
		{AccountCode: AccountTaxWithheld, Direction: Debit, Amount: tax, Reference: reference},
		{AccountCode: cashAccount, Direction: Credit, Amount: social.Add(tax), Reference: reference},
	}
	return Entry{
		ID:        uuid.NewString(),
		Date:      date,
		Label:     label,
		Operation: OpPaiementCharges,
		Lines:     dropZeroLines(lines),
	}
}

// NewDebtCreationEntry builds the posting for a new dette: cash in,
// liability up.
func NewDebtCreationEntry(date time.Time, label, reference, cashAccount, principalAccount string, principal engine.Amount) Entry {
	return Entry{
		ID:        uuid.NewString(),
		Date:      date,
		Label:     label,
		Operation: OpRecette,
		Lines: []Line{
			{AccountCode: cashAccount, Direction: Debit, Amount: principal, Reference: reference},
			{AccountCode: principalAccount, Direction: Credit, Amount: principal, Reference: reference},
		},
	}
}

// NewLoanCreationEntry builds the posting for a new prêt: receivable up,
// cash out.
func NewLoanCreationEntry(date time.Time, label, reference, cashAccount, principalAccount string, principal engine.Amount) Entry {
	return Entry{
		ID:        uuid.NewString(),
		Date:      date,
		Label:     label,
		Operation: OpDepense,
		Lines: []Line{
			{AccountCode: principalAccount, Direction: Debit, Amount: principal, Reference: reference},
			{AccountCode: cashAccount, Direction: Credit, Amount: principal, Reference: reference},
		},
	}
}

// NewDebtPaymentEntry builds the posting for repaying a dette: debit
// the liability for the principal and the interest account (671 unless
// overridden) for the interest, credit cash for the full payment.
func NewDebtPaymentEntry(date time.Time, label, reference, cashAccount, principalAccount, interestAccount string, principal, interest engine.Amount) Entry {
	lines := []Line{
		{AccountCode: principalAccount, Direction: Debit, Amount: principal, Reference: reference},
		{AccountCode: interestAccount, Direction: Debit, Amount: interest, Reference: reference},
		{AccountCode: cashAccount, Direction: Credit, Amount: principal.Add(interest), Reference: reference},
	}
	return Entry{
		ID:        uuid.NewString(),
		Date:      date,
		Label:     label,
		Operation: OpDepense,
		Lines:     dropZeroLines(lines),
	}
}

// NewLoanPaymentEntry builds the posting for a prêt repayment received:
// debit cash for the full payment, credit the receivable for the
// principal and the interest account (771 unless overridden) for the
// interest.
func NewLoanPaymentEntry(date time.Time, label, reference, cashAccount, principalAccount, interestAccount string, principal, interest engine.Amount) Entry {
	lines := []Line{
		{AccountCode: cashAccount, Direction: Debit, Amount: principal.Add(interest), Reference: reference},
		{AccountCode: principalAccount, Direction: Credit, Amount: principal, Reference: reference},
		{AccountCode: interestAccount, Direction: Credit, Amount: interest, Reference: reference},
	}
	return Entry{
		ID:        uuid.NewString(),
		Date:      date,
		Label:     label,
		Operation: OpRecette,
		Lines:     dropZeroLines(lines),
	}
}

// dropZeroLines strips zero-amount lines so optional figures (no
// deductions, no interest) do not produce empty postings.
func dropZeroLines(lines []Line) []Line {
	out := lines[:0]
	for _, l := range lines {
		if !l.Amount.IsZero() {
			out = append(out, l)
		}
	}
	return out
}

// ReversalOf builds the offsetting entry that corrects a VALIDE entry:
// same lines, directions flipped.
func ReversalOf(e Entry, date time.Time) Entry {
	lines := make([]Line, len(e.Lines))
	for i, l := range e.Lines {
		flipped := l
		if l.Direction == Debit {
			flipped.Direction = Credit
		} else {
			flipped.Direction = Debit
		}
		lines[i] = flipped
	}
	return Entry{
		ID:        uuid.NewString(),
		Date:      date,
		Label:     fmt.Sprintf("Extourne: %s", e.Label),
		Operation: e.Operation,
		Lines:     lines,
	}
}

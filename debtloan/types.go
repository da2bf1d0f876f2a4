/*
Package debtloan tracks dettes (money the company owes) and prêts
(money owed to the company): outstanding balances, interest accrual,
and the journal postings each payment produces.

PURPOSE:
  A DetteOuPret carries a principal, a live balance and an interest
  model. Payments are split explicitly into principal and interest
  portions; the split must sum to the payment exactly, and a payment
  can never exceed the outstanding balance.

KEY CONCEPTS:
  - Kind: DETTE posts against liability accounts 161-168, PRET against
    receivable accounts 261-268.
  - Interest: SIMPLE is principal x rate/100 x days/365; FIXE is a flat
    principal x rate/100; COMPOSE is declared but unsupported, callers
    get an explicit error rather than a guessed formula.
  - Status: REMBOURSE when the balance reaches zero, EN_RETARD when a
    payment lands past maturity with a balance left.

SEE ALSO:
  - tracker.go: Create / AccrueInterest / ApplyPayment
  - journal/accounts.go: The posting builders the tracker uses
*/
package debtloan

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/warp/payroll-engine/engine"
)

// =============================================================================
// ENUMS
// =============================================================================

// Kind separates liabilities from receivables.
type Kind string

const (
	KindDette Kind = "DETTE"
	KindPret  Kind = "PRET"
)

// InterestType selects the accrual formula. There is no default: every
// accrual routes explicitly per type.
type InterestType string

const (
	InterestSimple  InterestType = "SIMPLE"
	InterestCompose InterestType = "COMPOSE"
	InterestFixe    InterestType = "FIXE"
)

// Status is the debt/loan lifecycle.
type Status string

const (
	StatusActif       Status = "ACTIF"
	StatusRembourse   Status = "REMBOURSE"
	StatusEnRetard    Status = "EN_RETARD"
	StatusProvisionne Status = "PROVISIONNE"
	StatusAnnule      Status = "ANNULE"
)

// =============================================================================
// DETTE OU PRET
// =============================================================================

// DetteOuPret is one tracked debt or loan.
type DetteOuPret struct {
	ID           string
	Kind         Kind
	Label        string
	Counterparty string

	Principal engine.Amount
	Balance   engine.Amount

	// AnnualRate is a percentage: 12 means 12% per year.
	AnnualRate   decimal.Decimal
	InterestType InterestType

	StartDate time.Time
	Maturity  *time.Time

	Status Status

	// OHADA principal account (161-168 for a dette, 261-268 for a prêt)
	// and the optional interest account override.
	PrincipalAccount string
	InterestAccount  string
}

// Payable reports whether the debt/loan still accepts payments.
func (d DetteOuPret) Payable() bool {
	return d.Status == StatusActif || d.Status == StatusEnRetard || d.Status == StatusProvisionne
}

// Overdue reports whether asOf is past maturity with a balance left.
func (d DetteOuPret) Overdue(asOf time.Time) bool {
	return d.Maturity != nil && asOf.After(*d.Maturity) && d.Balance.IsPositive()
}

// =============================================================================
// PAYMENT RECORD
// =============================================================================

// Payment is one applied repayment, linked to its journal entry.
type Payment struct {
	ID        string
	DebtID    string
	Date      time.Time
	Amount    engine.Amount
	Principal engine.Amount
	Interest  engine.Amount

	JournalEntryID string
}

// =============================================================================
// STORE CONTRACT
// =============================================================================

// Store persists debts/loans and their payments. Debts are cancelled,
// never deleted.
type Store interface {
	SaveDebt(d DetteOuPret) error
	GetDebt(id string) (DetteOuPret, error)
	ListDebts() ([]DetteOuPret, error)

	SaveDebtPayment(p Payment) error
	PaymentsForDebt(debtID string) ([]Payment, error)
}

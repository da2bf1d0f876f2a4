package debtloan_test

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/payroll-engine/debtloan"
	"github.com/warp/payroll-engine/engine"
	"github.com/warp/payroll-engine/journal"
	"github.com/warp/payroll-engine/store/memory"
)

// =============================================================================
// TEST HELPERS
// =============================================================================

func cdf(value string) engine.Amount {
	return engine.NewAmount(value, "CDF")
}

var startDate = time.Date(2026, time.January, 1, 0, 0, 0, 0, time.UTC)

type fixture struct {
	tracker *debtloan.Tracker
	journal *journal.Journal
}

func newFixture() fixture {
	j := journal.New(memory.NewJournalStore())
	return fixture{
		tracker: debtloan.NewTracker(memory.NewDebtLoanStore(), j, journal.AccountCash),
		journal: j,
	}
}

func newDette(t *testing.T, f fixture, principal string) debtloan.DetteOuPret {
	t.Helper()
	d, err := f.tracker.Create(debtloan.DetteOuPret{
		Kind:             debtloan.KindDette,
		Label:            "Emprunt équipement",
		Principal:        cdf(principal),
		AnnualRate:       decimal.NewFromInt(12),
		InterestType:     debtloan.InterestSimple,
		StartDate:        startDate,
		PrincipalAccount: "168",
	})
	require.NoError(t, err)
	return d
}

// =============================================================================
// CREATION
// =============================================================================

func TestCreate_Dette_OpensBalanceAndPostsEntry(t *testing.T) {
	// GIVEN: a new dette of 1,000
	// WHEN: creating it
	// THEN: balance equals principal, status ACTIF, and a balanced
	//       cash-in / liability-up entry is posted

	f := newFixture()
	d := newDette(t, f, "1000")

	assert.True(t, d.Balance.Equal(cdf("1000")))
	assert.Equal(t, debtloan.StatusActif, d.Status)

	entries, err := f.journal.Month(2026, time.January)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	require.Len(t, entries[0].Lines, 2)
	assert.Equal(t, journal.AccountCash, entries[0].Lines[0].AccountCode)
	assert.Equal(t, journal.Debit, entries[0].Lines[0].Direction)
	assert.Equal(t, "168", entries[0].Lines[1].AccountCode)
	assert.Equal(t, journal.Credit, entries[0].Lines[1].Direction)
}

func TestCreate_Pret_DebitsReceivable(t *testing.T) {
	f := newFixture()

	_, err := f.tracker.Create(debtloan.DetteOuPret{
		Kind:             debtloan.KindPret,
		Label:            "Prêt au personnel",
		Principal:        cdf("50000"),
		InterestType:     debtloan.InterestSimple,
		StartDate:        startDate,
		PrincipalAccount: "266",
	})
	require.NoError(t, err)

	entries, err := f.journal.Month(2026, time.January)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "266", entries[0].Lines[0].AccountCode)
	assert.Equal(t, journal.Debit, entries[0].Lines[0].Direction)
	assert.Equal(t, journal.AccountCash, entries[0].Lines[1].AccountCode)
}

func TestCreate_WrongAccountRange_Rejected(t *testing.T) {
	// GIVEN: a dette pointed at a receivable account
	// WHEN: creating
	// THEN: rejected, the kind fixes the account range

	f := newFixture()

	_, err := f.tracker.Create(debtloan.DetteOuPret{
		Kind:             debtloan.KindDette,
		Principal:        cdf("1000"),
		InterestType:     debtloan.InterestSimple,
		StartDate:        startDate,
		PrincipalAccount: "266",
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, engine.ErrValidation)
}

// =============================================================================
// PAYMENTS
// =============================================================================

func TestApplyPayment_SplitScenario_BalanceAndPosting(t *testing.T) {
	// GIVEN: a dette with balance 1,000
	// WHEN: paying 300 split as principal 250 / interest 50
	// THEN: balance 750, still ACTIF; entry lines debit liability 250 +
	//       debit interest expense 50, credit cash 300

	f := newFixture()
	d := newDette(t, f, "1000")

	after, payment, err := f.tracker.ApplyPayment(d.ID, startDate.AddDate(0, 1, 0),
		cdf("300"), cdf("250"), cdf("50"))
	require.NoError(t, err)

	assert.True(t, after.Balance.Equal(cdf("750")), "got %s", after.Balance)
	assert.Equal(t, debtloan.StatusActif, after.Status)

	entry, err := f.journal.Get(payment.JournalEntryID)
	require.NoError(t, err)
	require.Len(t, entry.Lines, 3)
	assert.Equal(t, "168", entry.Lines[0].AccountCode)
	assert.True(t, entry.Lines[0].Amount.Equal(cdf("250")))
	assert.Equal(t, journal.AccountInterestCost, entry.Lines[1].AccountCode)
	assert.True(t, entry.Lines[1].Amount.Equal(cdf("50")))
	assert.Equal(t, journal.AccountCash, entry.Lines[2].AccountCode)
	assert.True(t, entry.Lines[2].Amount.Equal(cdf("300")))
}

func TestApplyPayment_InterestAccountOverride_Routed(t *testing.T) {
	// GIVEN: a dette whose interest settles against the accrued-interest
	//        account 166 instead of the default expense account 671
	// WHEN: paying with an interest portion
	// THEN: the interest line debits the override account

	f := newFixture()

	d, err := f.tracker.Create(debtloan.DetteOuPret{
		Kind:             debtloan.KindDette,
		Label:            "Emprunt avec intérêts courus",
		Principal:        cdf("1000"),
		AnnualRate:       decimal.NewFromInt(12),
		InterestType:     debtloan.InterestSimple,
		StartDate:        startDate,
		PrincipalAccount: "168",
		InterestAccount:  "166",
	})
	require.NoError(t, err)

	_, payment, err := f.tracker.ApplyPayment(d.ID, startDate.AddDate(0, 1, 0),
		cdf("300"), cdf("250"), cdf("50"))
	require.NoError(t, err)

	entry, err := f.journal.Get(payment.JournalEntryID)
	require.NoError(t, err)
	require.Len(t, entry.Lines, 3)
	assert.Equal(t, "166", entry.Lines[1].AccountCode)
	assert.Equal(t, journal.Debit, entry.Lines[1].Direction)
	assert.True(t, entry.Lines[1].Amount.Equal(cdf("50")))
}

func TestCreate_UnknownInterestAccount_Rejected(t *testing.T) {
	f := newFixture()

	_, err := f.tracker.Create(debtloan.DetteOuPret{
		Kind:             debtloan.KindDette,
		Principal:        cdf("1000"),
		InterestType:     debtloan.InterestSimple,
		StartDate:        startDate,
		PrincipalAccount: "168",
		InterestAccount:  "9999",
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, engine.ErrValidation)
}

func TestApplyPayment_MismatchedSplit_Rejected(t *testing.T) {
	// GIVEN: principal + interest != amount
	// WHEN: paying
	// THEN: rejected, never silently corrected

	f := newFixture()
	d := newDette(t, f, "1000")

	_, _, err := f.tracker.ApplyPayment(d.ID, startDate, cdf("300"), cdf("250"), cdf("40"))
	require.Error(t, err)
	assert.ErrorIs(t, err, engine.ErrValidation)
}

func TestApplyPayment_Overpayment_Rejected(t *testing.T) {
	// GIVEN: a principal portion above the outstanding balance
	// WHEN: paying
	// THEN: rejected, not clamped; the balance is untouched

	f := newFixture()
	d := newDette(t, f, "1000")

	_, _, err := f.tracker.ApplyPayment(d.ID, startDate, cdf("1200"), cdf("1200"), cdf("0"))
	require.Error(t, err)
	assert.ErrorIs(t, err, engine.ErrValidation)

	after, err := f.tracker.Get(d.ID)
	require.NoError(t, err)
	assert.True(t, after.Balance.Equal(cdf("1000")))
}

func TestApplyPayment_FullRepayment_Rembourse(t *testing.T) {
	f := newFixture()
	d := newDette(t, f, "1000")

	after, _, err := f.tracker.ApplyPayment(d.ID, startDate, cdf("1000"), cdf("1000"), cdf("0"))
	require.NoError(t, err)

	assert.True(t, after.Balance.IsZero())
	assert.Equal(t, debtloan.StatusRembourse, after.Status)

	// A repaid debt accepts no further payments.
	_, _, err = f.tracker.ApplyPayment(d.ID, startDate, cdf("1"), cdf("1"), cdf("0"))
	assert.ErrorIs(t, err, engine.ErrStateConflict)
}

func TestApplyPayment_PastMaturity_EnRetard(t *testing.T) {
	// GIVEN: a dette matured yesterday with a balance left
	// WHEN: a partial payment lands today
	// THEN: status EN_RETARD

	f := newFixture()
	maturity := startDate.AddDate(0, 1, 0)

	d, err := f.tracker.Create(debtloan.DetteOuPret{
		Kind:             debtloan.KindDette,
		Label:            "Emprunt échu",
		Principal:        cdf("1000"),
		InterestType:     debtloan.InterestSimple,
		StartDate:        startDate,
		Maturity:         &maturity,
		PrincipalAccount: "162",
	})
	require.NoError(t, err)

	after, _, err := f.tracker.ApplyPayment(d.ID, maturity.AddDate(0, 0, 1),
		cdf("100"), cdf("100"), cdf("0"))
	require.NoError(t, err)
	assert.Equal(t, debtloan.StatusEnRetard, after.Status)
}

func TestApplyPayment_Pret_CreditsReceivable(t *testing.T) {
	// GIVEN: a prêt of 50,000
	// WHEN: receiving a 5,500 payment (5,000 principal, 500 interest)
	// THEN: debit cash 5,500, credit receivable 5,000, credit interest
	//       income 500

	f := newFixture()

	d, err := f.tracker.Create(debtloan.DetteOuPret{
		Kind:             debtloan.KindPret,
		Label:            "Prêt au personnel",
		Principal:        cdf("50000"),
		InterestType:     debtloan.InterestSimple,
		StartDate:        startDate,
		PrincipalAccount: "266",
	})
	require.NoError(t, err)

	_, payment, err := f.tracker.ApplyPayment(d.ID, startDate.AddDate(0, 2, 0),
		cdf("5500"), cdf("5000"), cdf("500"))
	require.NoError(t, err)

	entry, err := f.journal.Get(payment.JournalEntryID)
	require.NoError(t, err)
	require.Len(t, entry.Lines, 3)
	assert.Equal(t, journal.AccountCash, entry.Lines[0].AccountCode)
	assert.Equal(t, journal.Debit, entry.Lines[0].Direction)
	assert.Equal(t, "266", entry.Lines[1].AccountCode)
	assert.Equal(t, journal.Credit, entry.Lines[1].Direction)
	assert.Equal(t, journal.AccountInterestIncome, entry.Lines[2].AccountCode)
	assert.True(t, entry.Lines[2].Amount.Equal(cdf("500")))
}

// =============================================================================
// INTEREST ACCRUAL
// =============================================================================

func TestAccrueInterest_Simple_DayCountFormula(t *testing.T) {
	// GIVEN: principal 1,000 at 12% annual simple interest
	// WHEN: accruing 73 days after start (73/365 = 0.2 of a year)
	// THEN: 1,000 x 0.12 x 0.2 = 24

	f := newFixture()
	d := newDette(t, f, "1000")

	interest, err := f.tracker.AccrueInterest(d.ID, startDate.AddDate(0, 0, 73))
	require.NoError(t, err)
	assert.True(t, interest.Equal(cdf("24")), "got %s", interest)
}

func TestAccrueInterest_Fixe_FlatRegardlessOfTime(t *testing.T) {
	f := newFixture()

	d, err := f.tracker.Create(debtloan.DetteOuPret{
		Kind:             debtloan.KindDette,
		Label:            "Dette à intérêt fixe",
		Principal:        cdf("1000"),
		AnnualRate:       decimal.NewFromInt(10),
		InterestType:     debtloan.InterestFixe,
		StartDate:        startDate,
		PrincipalAccount: "168",
	})
	require.NoError(t, err)

	early, err := f.tracker.AccrueInterest(d.ID, startDate.AddDate(0, 0, 1))
	require.NoError(t, err)
	late, err := f.tracker.AccrueInterest(d.ID, startDate.AddDate(2, 0, 0))
	require.NoError(t, err)

	assert.True(t, early.Equal(cdf("100")))
	assert.True(t, early.Equal(late), "FIXE does not grow with time")
}

func TestAccrueInterest_Compose_Unsupported(t *testing.T) {
	// GIVEN: a debt declared with COMPOSE interest
	// WHEN: accruing
	// THEN: an explicit unsupported error, no guessed formula

	f := newFixture()

	d, err := f.tracker.Create(debtloan.DetteOuPret{
		Kind:             debtloan.KindDette,
		Label:            "Dette composée",
		Principal:        cdf("1000"),
		AnnualRate:       decimal.NewFromInt(8),
		InterestType:     debtloan.InterestCompose,
		StartDate:        startDate,
		PrincipalAccount: "168",
	})
	require.NoError(t, err)

	_, err = f.tracker.AccrueInterest(d.ID, startDate.AddDate(0, 6, 0))
	require.Error(t, err)
	assert.ErrorIs(t, err, engine.ErrUnsupported)
}

// =============================================================================
// CANCELLATION
// =============================================================================

func TestCancel_KeepsHistory(t *testing.T) {
	f := newFixture()
	d := newDette(t, f, "1000")

	cancelled, err := f.tracker.Cancel(d.ID)
	require.NoError(t, err)
	assert.Equal(t, debtloan.StatusAnnule, cancelled.Status)

	_, _, err = f.tracker.ApplyPayment(d.ID, startDate, cdf("100"), cdf("100"), cdf("0"))
	assert.ErrorIs(t, err, engine.ErrStateConflict)
}

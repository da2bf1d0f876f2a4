package sqlite_test

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/payroll-engine/debtloan"
	"github.com/warp/payroll-engine/deduction"
	"github.com/warp/payroll-engine/engine"
	"github.com/warp/payroll-engine/journal"
	"github.com/warp/payroll-engine/payroll"
	"github.com/warp/payroll-engine/store/sqlite"
	"github.com/warp/payroll-engine/tax"
)

func newStore(t *testing.T) *sqlite.Store {
	t.Helper()
	store, err := sqlite.New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func cdf(value string) engine.Amount {
	return engine.NewAmount(value, "CDF")
}

func savePeriod(t *testing.T, store *sqlite.Store, status engine.PeriodStatus) engine.PayPeriod {
	t.Helper()
	p := engine.PayPeriod{ID: uuid.NewString(), Year: 2026, Month: time.March, Status: status}
	require.NoError(t, store.SavePeriod(p))
	return p
}

// =============================================================================
// PAYSLIPS
// =============================================================================

func TestPayslip_RoundTrip(t *testing.T) {
	// GIVEN: a computed payslip with breakdown maps and a validation timestamp
	// WHEN: saving and reading back
	// THEN: every figure survives exactly, decimals included

	store := newStore(t)
	period := savePeriod(t, store, engine.PeriodComputed)

	validatedAt := time.Date(2026, 3, 31, 10, 0, 0, 0, time.UTC)
	slip := payroll.Payslip{
		ID:         uuid.NewString(),
		PeriodID:   period.ID,
		EmployeeID: "emp-1",
		BaseSalary: cdf("500000"),
		DaysWorked: 0,
		Bonuses:    cdf("0"),
		Arrears:    cdf("0"),
		Gross:      cdf("500000"),
		Contributions: map[tax.Scheme]engine.Amount{
			tax.SchemeCNSS: cdf("25000"),
			tax.SchemeONEM: cdf("7500"),
			tax.SchemeINPP: cdf("2500"),
		},
		TotalSocial: cdf("35000"),
		TaxableBase: cdf("465000"),
		IncomeTax:   cdf("24900"),
		DeductionsByType: map[deduction.Type]engine.Amount{
			deduction.TypeLoan: cdf("10000"),
		},
		TotalDeductions: cdf("10000"),
		Net:             cdf("430100"),
		Currency:        "CDF",
		SettingsVersion: 1,
		Status:          payroll.PayslipValidated,
		JournalEntryID:  uuid.NewString(),
		ComputedAt:      time.Date(2026, 3, 28, 9, 0, 0, 0, time.UTC),
		ValidatedAt:     &validatedAt,
	}
	require.NoError(t, store.SavePayslip(slip))

	got, err := store.GetPayslip(slip.ID)
	require.NoError(t, err)

	assert.True(t, got.Gross.Equal(slip.Gross))
	assert.True(t, got.Net.Equal(slip.Net))
	assert.True(t, got.Contributions[tax.SchemeONEM].Equal(cdf("7500")))
	assert.True(t, got.DeductionsByType[deduction.TypeLoan].Equal(cdf("10000")))
	assert.Equal(t, payroll.PayslipValidated, got.Status)
	assert.Equal(t, slip.JournalEntryID, got.JournalEntryID)
	require.NotNil(t, got.ValidatedAt)
	assert.True(t, got.ValidatedAt.Equal(validatedAt))

	byPair, err := store.PayslipForEmployee(period.ID, "emp-1")
	require.NoError(t, err)
	assert.Equal(t, slip.ID, byPair.ID)
}

func TestPayslip_LockedPeriodRejectsWrite(t *testing.T) {
	// GIVEN: a LOCKED period
	// WHEN: writing a payslip into it
	// THEN: the store itself rejects the write

	store := newStore(t)
	period := savePeriod(t, store, engine.PeriodLocked)

	err := store.SavePayslip(payroll.Payslip{
		ID:         uuid.NewString(),
		PeriodID:   period.ID,
		EmployeeID: "emp-1",
		BaseSalary: cdf("500000"),
		Bonuses:    cdf("0"),
		Arrears:    cdf("0"),
		Gross:      cdf("500000"),
		TotalSocial: cdf("0"), TaxableBase: cdf("0"), IncomeTax: cdf("0"),
		TotalDeductions: cdf("0"), Net: cdf("500000"),
		Currency: "CDF", Status: payroll.PayslipDraft,
		ComputedAt: time.Now().UTC(),
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, engine.ErrStateConflict)
}

func TestPayslip_DuplicatePerPeriodEmployee_Rejected(t *testing.T) {
	store := newStore(t)
	period := savePeriod(t, store, engine.PeriodDraft)

	base := payroll.Payslip{
		PeriodID: period.ID, EmployeeID: "emp-1",
		BaseSalary: cdf("500000"), Bonuses: cdf("0"), Arrears: cdf("0"),
		Gross: cdf("500000"), TotalSocial: cdf("0"), TaxableBase: cdf("0"),
		IncomeTax: cdf("0"), TotalDeductions: cdf("0"), Net: cdf("500000"),
		Currency: "CDF", Status: payroll.PayslipDraft, ComputedAt: time.Now().UTC(),
	}

	first := base
	first.ID = uuid.NewString()
	require.NoError(t, store.SavePayslip(first))

	second := base
	second.ID = uuid.NewString()
	err := store.SavePayslip(second)
	require.Error(t, err)
	assert.ErrorIs(t, err, engine.ErrStateConflict)
}

func TestPeriod_DuplicateMonth_Rejected(t *testing.T) {
	store := newStore(t)
	savePeriod(t, store, engine.PeriodDraft)

	err := store.SavePeriod(engine.PayPeriod{
		ID: uuid.NewString(), Year: 2026, Month: time.March, Status: engine.PeriodDraft,
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, engine.ErrStateConflict)

	got, err := store.GetPeriodByKey(2026, time.March)
	require.NoError(t, err)
	assert.Equal(t, 2026, got.Year)
}

func TestUnpaidSalary_OutstandingUpdates(t *testing.T) {
	store := newStore(t)
	period := savePeriod(t, store, engine.PeriodDraft)

	slip := payroll.Payslip{
		ID: uuid.NewString(), PeriodID: period.ID, EmployeeID: "emp-1",
		BaseSalary: cdf("500000"), Bonuses: cdf("0"), Arrears: cdf("0"),
		Gross: cdf("500000"), TotalSocial: cdf("0"), TaxableBase: cdf("0"),
		IncomeTax: cdf("0"), TotalDeductions: cdf("0"), Net: cdf("440100"),
		Currency: "CDF", Status: payroll.PayslipDraft, ComputedAt: time.Now().UTC(),
	}
	require.NoError(t, store.SavePayslip(slip))

	unpaid := payroll.UnpaidSalary{
		ID: uuid.NewString(), PayslipID: slip.ID, EmployeeID: "emp-1",
		Original: cdf("440100"), Outstanding: cdf("440100"),
	}
	require.NoError(t, store.SaveUnpaid(unpaid))

	unpaid.Outstanding = cdf("200000")
	require.NoError(t, store.SaveUnpaid(unpaid))

	got, err := store.UnpaidForPayslip(slip.ID)
	require.NoError(t, err)
	assert.True(t, got.Original.Equal(cdf("440100")))
	assert.True(t, got.Outstanding.Equal(cdf("200000")))
}

// =============================================================================
// OBLIGATIONS
// =============================================================================

func TestObligations_ActiveOrderedByPriority(t *testing.T) {
	// GIVEN: a loan created before a disciplinary penalty
	// WHEN: listing active obligations
	// THEN: the penalty resolves first regardless of age

	store := newStore(t)

	installment := cdf("50000")
	loan := deduction.Obligation{
		ID: uuid.NewString(), EmployeeID: "emp-1", Type: deduction.TypeLoan,
		Total: cdf("300000"), Deducted: cdf("0"),
		Schedule: deduction.ScheduleInstallments, InstallmentAmount: &installment,
		InstallmentCount: 6, Status: deduction.StatusActive,
		CreatedAt: time.Date(2026, 1, 5, 0, 0, 0, 0, time.UTC),
	}
	penalty := deduction.Obligation{
		ID: uuid.NewString(), EmployeeID: "emp-1", Type: deduction.TypeDisciplinary,
		Total: cdf("20000"), Deducted: cdf("0"),
		Schedule: deduction.ScheduleOneTime, Status: deduction.StatusActive,
		CreatedAt: time.Date(2026, 2, 10, 0, 0, 0, 0, time.UTC),
	}
	suspended := deduction.Obligation{
		ID: uuid.NewString(), EmployeeID: "emp-1", Type: deduction.TypeUniform,
		Total: cdf("15000"), Deducted: cdf("0"),
		Schedule: deduction.ScheduleOneTime, Status: deduction.StatusSuspended,
		CreatedAt: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
	}
	for _, o := range []deduction.Obligation{loan, penalty, suspended} {
		require.NoError(t, store.SaveObligation(o))
	}

	active, err := store.ActiveObligations("emp-1")
	require.NoError(t, err)
	require.Len(t, active, 2)
	assert.Equal(t, penalty.ID, active[0].ID)
	assert.Equal(t, loan.ID, active[1].ID)

	got, err := store.GetObligation(loan.ID)
	require.NoError(t, err)
	require.NotNil(t, got.InstallmentAmount)
	assert.True(t, got.InstallmentAmount.Equal(installment))
	assert.Equal(t, 6, got.InstallmentCount)
}

func TestScheduleEntries_UpsertPerPeriod(t *testing.T) {
	store := newStore(t)

	o := deduction.Obligation{
		ID: uuid.NewString(), EmployeeID: "emp-1", Type: deduction.TypeLoan,
		Total: cdf("300000"), Deducted: cdf("0"),
		Schedule: deduction.ScheduleOneTime, Status: deduction.StatusActive,
		CreatedAt: time.Now().UTC(),
	}
	require.NoError(t, store.SaveObligation(o))

	entry := deduction.ScheduleEntry{
		ID: uuid.NewString(), ObligationID: o.ID, Year: 2026, Month: time.March,
		Scheduled: cdf("100000"), Applied: cdf("60000"),
		Status: deduction.EntryApplied,
	}
	require.NoError(t, store.SaveScheduleEntry(entry))

	// Re-resolution rewrites the same (obligation, period) slot.
	entry.Applied = cdf("100000")
	entry.Note = ""
	require.NoError(t, store.SaveScheduleEntry(entry))

	entries, err := store.EntriesForPeriod("emp-1", 2026, time.March)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.True(t, entries[o.ID].Applied.Equal(cdf("100000")))

	other, err := store.EntriesForPeriod("emp-1", 2026, time.April)
	require.NoError(t, err)
	assert.Empty(t, other)
}

// =============================================================================
// JOURNAL
// =============================================================================

func TestJournal_EntryRoundTripAndMonthFilter(t *testing.T) {
	store := newStore(t)

	e := journal.Entry{
		ID:        uuid.NewString(),
		Date:      time.Date(2026, 3, 28, 0, 0, 0, 0, time.UTC),
		Label:     "Paiement salaire mars",
		Operation: journal.OpPaiementSalaire,
		Total:     cdf("440100"),
		Status:    journal.StatusBrouillon,
		Lines: []journal.Line{
			{AccountCode: journal.AccountNetPayPayable, Direction: journal.Debit, Amount: cdf("440100")},
			{AccountCode: journal.AccountBank, Direction: journal.Credit, Amount: cdf("440100")},
		},
	}
	require.NoError(t, store.SaveEntry(e))

	got, err := store.GetEntry(e.ID)
	require.NoError(t, err)
	require.Len(t, got.Lines, 2)
	assert.Equal(t, journal.AccountNetPayPayable, got.Lines[0].AccountCode)
	assert.Equal(t, journal.Credit, got.Lines[1].Direction)
	assert.True(t, got.Total.Equal(cdf("440100")))

	march, err := store.EntriesForMonth(2026, time.March)
	require.NoError(t, err)
	require.Len(t, march, 1)
	require.Len(t, march[0].Lines, 2)

	april, err := store.EntriesForMonth(2026, time.April)
	require.NoError(t, err)
	assert.Empty(t, april)
}

func TestJournal_ClosedMonths(t *testing.T) {
	store := newStore(t)

	closed, err := store.IsMonthClosed(2026, time.March)
	require.NoError(t, err)
	assert.False(t, closed)

	require.NoError(t, store.MarkMonthClosed(2026, time.March))
	require.NoError(t, store.MarkMonthClosed(2026, time.March))

	closed, err = store.IsMonthClosed(2026, time.March)
	require.NoError(t, err)
	assert.True(t, closed)
}

// =============================================================================
// DEBTS AND LOANS
// =============================================================================

func TestDebt_RoundTripWithPayments(t *testing.T) {
	store := newStore(t)

	maturity := time.Date(2026, 12, 31, 0, 0, 0, 0, time.UTC)
	d := debtloan.DetteOuPret{
		ID: uuid.NewString(), Kind: debtloan.KindDette,
		Label: "Emprunt bancaire", Counterparty: "Rawbank",
		Principal: cdf("1000"), Balance: cdf("750"),
		AnnualRate: engine.MustParseDecimal("12"), InterestType: debtloan.InterestSimple,
		StartDate: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC), Maturity: &maturity,
		Status: debtloan.StatusActif, PrincipalAccount: "168",
	}
	require.NoError(t, store.SaveDebt(d))

	p := debtloan.Payment{
		ID: uuid.NewString(), DebtID: d.ID,
		Date:   time.Date(2026, 3, 15, 0, 0, 0, 0, time.UTC),
		Amount: cdf("300"), Principal: cdf("250"), Interest: cdf("50"),
		JournalEntryID: uuid.NewString(),
	}
	require.NoError(t, store.SaveDebtPayment(p))

	got, err := store.GetDebt(d.ID)
	require.NoError(t, err)
	assert.Equal(t, debtloan.KindDette, got.Kind)
	assert.True(t, got.Balance.Equal(cdf("750")))
	assert.True(t, got.AnnualRate.Equal(engine.MustParseDecimal("12")))
	require.NotNil(t, got.Maturity)
	assert.True(t, got.Maturity.Equal(maturity))

	payments, err := store.PaymentsForDebt(d.ID)
	require.NoError(t, err)
	require.Len(t, payments, 1)
	assert.True(t, payments[0].Interest.Equal(cdf("50")))
	assert.Equal(t, p.JournalEntryID, payments[0].JournalEntryID)

	_, err = store.GetDebt("missing")
	assert.ErrorIs(t, err, engine.ErrNotFound)
}

// =============================================================================
// TAX SETTINGS
// =============================================================================

func TestSettings_SeedsDefaultsAndVersions(t *testing.T) {
	// GIVEN: a fresh database
	// WHEN: reading settings, then updating them
	// THEN: defaults seed at version 1 and the update becomes version 2

	store := newStore(t)

	current, err := store.Current()
	require.NoError(t, err)
	assert.Equal(t, 1, current.Version)
	require.Len(t, current.Brackets, 11)
	assert.True(t, current.ContributionRates[tax.SchemeCNSS].Equal(engine.MustParseDecimal("0.05")))

	next := tax.DefaultSettings()
	next.ContributionRates[tax.SchemeCNSS] = engine.MustParseDecimal("0.06")
	saved, err := store.Update(next)
	require.NoError(t, err)
	assert.Equal(t, 2, saved.Version)

	current, err = store.Current()
	require.NoError(t, err)
	assert.Equal(t, 2, current.Version)
	assert.True(t, current.ContributionRates[tax.SchemeCNSS].Equal(engine.MustParseDecimal("0.06")))
}

func TestSettings_InvalidTableRejected(t *testing.T) {
	store := newStore(t)

	bad := tax.DefaultSettings()
	bad.Brackets = nil
	_, err := store.Update(bad)
	require.Error(t, err)
	assert.ErrorIs(t, err, engine.ErrConfiguration)

	current, err := store.Current()
	require.NoError(t, err)
	assert.Equal(t, 1, current.Version)
}

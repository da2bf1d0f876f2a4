package payroll_test

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/payroll-engine/deduction"
	"github.com/warp/payroll-engine/engine"
	"github.com/warp/payroll-engine/journal"
	"github.com/warp/payroll-engine/payroll"
	"github.com/warp/payroll-engine/store/memory"
)

// =============================================================================
// TEST FIXTURE
// =============================================================================

func cdf(value string) engine.Amount {
	return engine.NewAmount(value, "CDF")
}

var fixedNow = time.Date(2026, time.March, 31, 12, 0, 0, 0, time.UTC)

type fixture struct {
	assembler  *payroll.Assembler
	employees  *memory.EmployeeStore
	deductions *memory.DeductionStore
	journal    *journal.Journal
	period     engine.PayPeriod
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	employees := memory.NewEmployeeStore()
	deductions := memory.NewDeductionStore()
	j := journal.New(memory.NewJournalStore())
	resolver := deduction.NewResolver(deductions, nil)

	a := payroll.NewAssembler(
		employees,
		memory.NewPeriodStore(),
		memory.NewPayslipStore(),
		memory.NewSettingsStore(),
		resolver,
		j,
		journal.AccountBank,
	).WithClock(func() time.Time { return fixedNow })

	period, err := a.OpenPeriod(2026, time.March)
	require.NoError(t, err)

	employees.PutEmployee(payroll.Employee{
		ID:         "emp-1",
		FullName:   "Kabongo Ilunga",
		Mode:       payroll.ModeMonthly,
		BaseSalary: cdf("500000"),
		Currency:   "CDF",
	})

	return &fixture{
		assembler:  a,
		employees:  employees,
		deductions: deductions,
		journal:    j,
		period:     period,
	}
}

func (f *fixture) compute(t *testing.T) payroll.Payslip {
	t.Helper()
	slip, err := f.assembler.Compute(payroll.ComputeInput{
		EmployeeID: "emp-1",
		PeriodID:   f.period.ID,
		DaysWorked: 22,
	})
	require.NoError(t, err)
	return slip
}

// =============================================================================
// COMPUTE
// =============================================================================

func TestCompute_DocumentedScenario_FullBreakdown(t *testing.T) {
	// GIVEN: a monthly employee at 500,000 CDF with no obligations
	// WHEN: computing the March payslip
	// THEN: the full statutory breakdown lands on the DRAFT payslip

	f := newFixture(t)
	slip := f.compute(t)

	assert.Equal(t, payroll.PayslipDraft, slip.Status)
	assert.True(t, slip.Gross.Equal(cdf("500000")))
	assert.True(t, slip.TotalSocial.Equal(cdf("35000")))
	assert.True(t, slip.TaxableBase.Equal(cdf("465000")))
	assert.True(t, slip.IncomeTax.Equal(cdf("24900")))
	assert.True(t, slip.TotalDeductions.IsZero())
	assert.True(t, slip.Net.Equal(cdf("440100")), "got %s", slip.Net)
	assert.Equal(t, 1, slip.SettingsVersion)
}

func TestCompute_DailyMode_GrossFromDaysWorked(t *testing.T) {
	f := newFixture(t)
	f.employees.PutEmployee(payroll.Employee{
		ID:        "emp-2",
		FullName:  "Mbuyi Tshiala",
		Mode:      payroll.ModeDaily,
		DailyRate: cdf("15000"),
		Currency:  "CDF",
	})

	slip, err := f.assembler.Compute(payroll.ComputeInput{
		EmployeeID: "emp-2",
		PeriodID:   f.period.ID,
		DaysWorked: 20,
	})
	require.NoError(t, err)
	assert.True(t, slip.Gross.Equal(cdf("300000")), "got %s", slip.Gross)
}

func TestCompute_BonusesAndArrears_AddedToGross(t *testing.T) {
	f := newFixture(t)

	slip, err := f.assembler.Compute(payroll.ComputeInput{
		EmployeeID: "emp-1",
		PeriodID:   f.period.ID,
		DaysWorked: 22,
		Bonuses:    cdf("20000"),
		Arrears:    cdf("5000"),
	})
	require.NoError(t, err)
	assert.True(t, slip.Gross.Equal(cdf("525000")), "got %s", slip.Gross)
	assert.True(t, slip.Bonuses.Equal(cdf("20000")))
	assert.True(t, slip.Arrears.Equal(cdf("5000")))
}

func TestCompute_Draft_IsIdempotent(t *testing.T) {
	// GIVEN: a DRAFT payslip
	// WHEN: recomputing with unchanged inputs
	// THEN: the result is identical, including the payslip identity

	f := newFixture(t)

	first := f.compute(t)
	second := f.compute(t)

	assert.Equal(t, first, second)
}

func TestCompute_ValidatedPayslip_RejectsRecompute(t *testing.T) {
	f := newFixture(t)
	slip := f.compute(t)

	_, err := f.assembler.Validate(slip.ID)
	require.NoError(t, err)

	_, err = f.assembler.Compute(payroll.ComputeInput{
		EmployeeID: "emp-1",
		PeriodID:   f.period.ID,
		DaysWorked: 22,
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, engine.ErrStateConflict)
}

func TestCompute_WithObligation_DeductionsOnPayslip(t *testing.T) {
	// GIVEN: an active uniform obligation of 30,000
	// WHEN: computing
	// THEN: the deduction lands in its category and reduces the net

	f := newFixture(t)
	require.NoError(t, f.deductions.SaveObligation(deduction.Obligation{
		ID:         uuid.NewString(),
		EmployeeID: "emp-1",
		Type:       deduction.TypeUniform,
		Label:      "Tenue de service",
		Total:      cdf("30000"),
		Deducted:   cdf("0"),
		Schedule:   deduction.ScheduleOneTime,
		Status:     deduction.StatusActive,
		CreatedAt:  fixedNow,
	}))

	slip := f.compute(t)

	assert.True(t, slip.TotalDeductions.Equal(cdf("30000")))
	assert.True(t, slip.DeductionsByType[deduction.TypeUniform].Equal(cdf("30000")))
	assert.True(t, slip.Net.Equal(cdf("410100")), "got %s", slip.Net)
}

func TestCompute_MovesDraftPeriodToComputed(t *testing.T) {
	f := newFixture(t)
	f.compute(t)

	slips, err := f.assembler.PeriodPayslips(f.period.ID)
	require.NoError(t, err)
	require.Len(t, slips, 1)
}

// =============================================================================
// VALIDATE
// =============================================================================

func TestValidate_PostsPaieEntry_OpensUnpaidBalance(t *testing.T) {
	// GIVEN: a DRAFT payslip with the documented figures
	// WHEN: validating
	// THEN: a balanced PAIE entry is posted and the net becomes the
	//       salaire impayé balance

	f := newFixture(t)
	slip := f.compute(t)

	validated, err := f.assembler.Validate(slip.ID)
	require.NoError(t, err)
	assert.Equal(t, payroll.PayslipValidated, validated.Status)
	require.NotEmpty(t, validated.JournalEntryID)

	entry, err := f.journal.Get(validated.JournalEntryID)
	require.NoError(t, err)
	assert.Equal(t, journal.OpPaie, entry.Operation)
	assert.True(t, entry.Total.Equal(cdf("500000")), "gross on the debit side")

	unpaid, err := f.assembler.Unpaid(slip.ID)
	require.NoError(t, err)
	assert.True(t, unpaid.Outstanding.Equal(cdf("440100")))
}

func TestValidatePeriod_Batch_MovesPeriodForward(t *testing.T) {
	f := newFixture(t)
	f.compute(t)

	validated, err := f.assembler.ValidatePeriod(f.period.ID)
	require.NoError(t, err)
	require.Len(t, validated, 1)
	assert.Equal(t, payroll.PayslipValidated, validated[0].Status)
}

func TestValidatePeriod_UnpostableSlip_PostsNothing(t *testing.T) {
	// GIVEN: one clean draft and one whose deduction carries sub-centime
	//        precision, so its PAIE entry can never balance
	// WHEN: validating the period as a batch
	// THEN: the batch aborts before posting; both slips stay DRAFT and
	//       the journal month stays empty

	f := newFixture(t)
	f.compute(t)

	f.employees.PutEmployee(payroll.Employee{
		ID:         "emp-2",
		FullName:   "Mbuyi Tshiala",
		Mode:       payroll.ModeMonthly,
		BaseSalary: cdf("400000"),
		Currency:   "CDF",
	})
	require.NoError(t, f.deductions.SaveObligation(deduction.Obligation{
		ID:         uuid.NewString(),
		EmployeeID: "emp-2",
		Type:       deduction.TypeOther,
		Total:      cdf("100.555"),
		Deducted:   cdf("0"),
		Schedule:   deduction.ScheduleOneTime,
		Status:     deduction.StatusActive,
		CreatedAt:  fixedNow,
	}))
	_, err := f.assembler.Compute(payroll.ComputeInput{
		EmployeeID: "emp-2",
		PeriodID:   f.period.ID,
		DaysWorked: 22,
	})
	require.NoError(t, err)

	_, err = f.assembler.ValidatePeriod(f.period.ID)
	require.Error(t, err)
	assert.ErrorIs(t, err, engine.ErrValidation)

	slips, err := f.assembler.PeriodPayslips(f.period.ID)
	require.NoError(t, err)
	require.Len(t, slips, 2)
	for _, s := range slips {
		assert.Equal(t, payroll.PayslipDraft, s.Status)
	}

	entries, err := f.journal.Month(2026, time.March)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestValidatePeriod_NoPayslips_Rejected(t *testing.T) {
	f := newFixture(t)

	_, err := f.assembler.ValidatePeriod(f.period.ID)
	require.Error(t, err)
	assert.ErrorIs(t, err, engine.ErrValidation)
}

// =============================================================================
// LOCKED PERIOD
// =============================================================================

func TestLockedPeriod_RejectsComputeAndValidate(t *testing.T) {
	// GIVEN: a LOCKED period with a draft payslip inside
	// WHEN: recomputing or validating
	// THEN: both are rejected as state conflicts

	f := newFixture(t)
	slip := f.compute(t)

	_, err := f.assembler.LockPeriod(f.period.ID)
	require.NoError(t, err)

	_, err = f.assembler.Compute(payroll.ComputeInput{
		EmployeeID: "emp-1",
		PeriodID:   f.period.ID,
		DaysWorked: 22,
	})
	assert.ErrorIs(t, err, engine.ErrStateConflict)

	_, err = f.assembler.Validate(slip.ID)
	assert.ErrorIs(t, err, engine.ErrStateConflict)
}

func TestOpenPeriod_Duplicate_Conflict(t *testing.T) {
	f := newFixture(t)

	_, err := f.assembler.OpenPeriod(2026, time.March)
	require.Error(t, err)
	assert.ErrorIs(t, err, engine.ErrStateConflict)
}

// =============================================================================
// MARK PAID
// =============================================================================

func TestMarkPaid_PartialThenFull(t *testing.T) {
	// GIVEN: a validated payslip with net 440,100
	// WHEN: paying 240,100, then 200,000
	// THEN: the first leaves it VALIDATED with 200,000 outstanding, the
	//       second turns it PAID with a zero balance

	f := newFixture(t)
	slip := f.compute(t)
	_, err := f.assembler.Validate(slip.ID)
	require.NoError(t, err)

	after, record, err := f.assembler.MarkPaid(slip.ID, fixedNow, cdf("240100"), "VIREMENT", "pay-1")
	require.NoError(t, err)
	assert.Equal(t, payroll.PayslipValidated, after.Status)

	unpaid, err := f.assembler.Unpaid(slip.ID)
	require.NoError(t, err)
	assert.True(t, unpaid.Outstanding.Equal(cdf("200000")), "got %s", unpaid.Outstanding)

	entry, err := f.journal.Get(record.JournalEntryID)
	require.NoError(t, err)
	assert.Equal(t, journal.OpPaiementSalaire, entry.Operation)

	final, _, err := f.assembler.MarkPaid(slip.ID, fixedNow, cdf("200000"), "VIREMENT", "pay-2")
	require.NoError(t, err)
	assert.Equal(t, payroll.PayslipPaid, final.Status)

	unpaid, err = f.assembler.Unpaid(slip.ID)
	require.NoError(t, err)
	assert.True(t, unpaid.Outstanding.IsZero())

	payments, err := f.assembler.Payments(slip.ID)
	require.NoError(t, err)
	assert.Len(t, payments, 2)
}

func TestMarkPaid_Overpayment_Rejected(t *testing.T) {
	f := newFixture(t)
	slip := f.compute(t)
	_, err := f.assembler.Validate(slip.ID)
	require.NoError(t, err)

	_, _, err = f.assembler.MarkPaid(slip.ID, fixedNow, cdf("500000"), "CASH", "pay-1")
	require.Error(t, err)
	assert.ErrorIs(t, err, engine.ErrValidation)
}

func TestMarkPaid_DraftPayslip_Rejected(t *testing.T) {
	f := newFixture(t)
	slip := f.compute(t)

	_, _, err := f.assembler.MarkPaid(slip.ID, fixedNow, cdf("1000"), "CASH", "pay-1")
	assert.ErrorIs(t, err, engine.ErrStateConflict)
}

// =============================================================================
// SOCIAL CHARGES
// =============================================================================

func TestPaySocialCharges_SettlesPayables(t *testing.T) {
	// GIVEN: a validated payslip with 35,000 social and 24,900 IPR
	// WHEN: paying the period's charges
	// THEN: a balanced PAIEMENT_CHARGES entry settles both payables

	f := newFixture(t)
	slip := f.compute(t)
	_, err := f.assembler.Validate(slip.ID)
	require.NoError(t, err)

	entry, err := f.assembler.PaySocialCharges(f.period.ID, fixedNow)
	require.NoError(t, err)

	assert.Equal(t, journal.OpPaiementCharges, entry.Operation)
	assert.True(t, entry.Total.Equal(cdf("59900")), "got %s", entry.Total)
	require.Len(t, entry.Lines, 3)
	assert.Equal(t, journal.AccountSocialPayable, entry.Lines[0].AccountCode)
	assert.Equal(t, journal.AccountTaxWithheld, entry.Lines[1].AccountCode)
	assert.Equal(t, journal.AccountBank, entry.Lines[2].AccountCode)
}

func TestPaySocialCharges_DraftOnlyPeriod_Rejected(t *testing.T) {
	f := newFixture(t)
	f.compute(t)

	_, err := f.assembler.PaySocialCharges(f.period.ID, fixedNow)
	require.Error(t, err)
	assert.ErrorIs(t, err, engine.ErrValidation)
}

package engine_test

import (
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/payroll-engine/engine"
)

func cdf(value string) engine.Amount {
	return engine.NewAmount(value, "CDF")
}

// =============================================================================
// AMOUNT ARITHMETIC
// =============================================================================

func TestAmount_Arithmetic(t *testing.T) {
	a := cdf("500000")
	b := cdf("35000")

	assert.True(t, a.Sub(b).Equal(cdf("465000")))
	assert.True(t, a.Add(b).Equal(cdf("535000")))
	assert.True(t, b.Neg().Equal(cdf("-35000")))
	assert.True(t, a.Min(b).Equal(b))
	assert.True(t, a.Max(b).Equal(a))
	assert.True(t, a.GreaterThan(b))
	assert.True(t, b.LessThan(a))
	assert.True(t, a.SameCurrency(b))
}

func TestAmount_MulRateAndRound(t *testing.T) {
	// GIVEN: 500,000 CDF at a 5% rate
	// WHEN: multiplying and rounding to currency precision
	// THEN: exactly 25,000.00, no float drift

	got := cdf("500000").MulRate(engine.MustParseDecimal("0.05")).Round()
	assert.True(t, got.Equal(cdf("25000")), "got %s", got)

	// Half-up at the second decimal.
	odd := cdf("333333.33").MulRate(engine.MustParseDecimal("0.05")).Round()
	assert.True(t, odd.Equal(cdf("16666.67")), "got %s", odd)
}

func TestAmount_FloorZero(t *testing.T) {
	assert.True(t, cdf("-10").FloorZero().IsZero())
	assert.True(t, cdf("10").FloorZero().Equal(cdf("10")))
}

// =============================================================================
// MINOR UNITS - The journal balance representation
// =============================================================================

func TestAmount_MinorUnits_RoundTrip(t *testing.T) {
	minor, err := cdf("440100.50").MinorUnits()
	require.NoError(t, err)
	assert.Equal(t, int64(44010050), minor)

	back := engine.FromMinorUnits(minor, "CDF")
	assert.True(t, back.Equal(cdf("440100.50")))
}

func TestAmount_MinorUnits_UnroundedRejected(t *testing.T) {
	// GIVEN: an amount with a sub-centime remainder
	// WHEN: converting to minor units
	// THEN: rejected, because it means rounding was skipped upstream

	_, err := cdf("100.555").MinorUnits()
	require.Error(t, err)
	assert.ErrorIs(t, err, engine.ErrValidation)

	// A sub-centime product of a rate multiplication is the usual source.
	unrounded := cdf("333.33").MulRate(engine.MustParseDecimal("0.015"))
	_, err = unrounded.MinorUnits()
	require.Error(t, err)
	assert.ErrorIs(t, err, engine.ErrValidation)
}

func TestAmount_ZeroKeepsCurrency(t *testing.T) {
	z := cdf("123.45").Zero()
	assert.True(t, z.IsZero())
	assert.Equal(t, "CDF", z.Currency)
}

func TestMustParseDecimal_PanicsOnGarbage(t *testing.T) {
	assert.Panics(t, func() { engine.MustParseDecimal("five percent") })
	assert.NotPanics(t, func() { engine.MustParseDecimal("0.05") })
}

func TestAmount_Mul(t *testing.T) {
	daily := engine.NewAmount("15000", "CDF")
	got := daily.Mul(decimal.NewFromInt(22))
	assert.True(t, got.Equal(cdf("330000")), "got %s", got)
}

// =============================================================================
// PAY PERIOD LIFECYCLE
// =============================================================================

func TestPayPeriod_KeyAndBounds(t *testing.T) {
	p := engine.PayPeriod{Year: 2026, Month: time.March}

	assert.Equal(t, "2026-03", p.Key())
	assert.Equal(t, time.Date(2026, time.March, 1, 0, 0, 0, 0, time.UTC), p.Start())
	assert.Equal(t, time.Date(2026, time.March, 31, 0, 0, 0, 0, time.UTC), p.End())
}

func TestPayPeriod_OneWayLifecycle(t *testing.T) {
	// GIVEN: the DRAFT -> COMPUTED -> VALIDATED -> LOCKED chain
	// WHEN: checking transitions in both directions
	// THEN: only forward moves are allowed

	p := engine.PayPeriod{Status: engine.PeriodComputed}

	assert.True(t, p.CanTransitionTo(engine.PeriodValidated))
	assert.True(t, p.CanTransitionTo(engine.PeriodLocked), "skipping ahead is forward, still allowed")
	assert.False(t, p.CanTransitionTo(engine.PeriodDraft))
	assert.False(t, p.CanTransitionTo(engine.PeriodComputed), "no self-transition")
}

func TestPayPeriod_GuardWritable(t *testing.T) {
	open := engine.PayPeriod{Year: 2026, Month: time.March, Status: engine.PeriodValidated}
	require.NoError(t, open.GuardWritable("write payslip"))

	locked := open
	locked.Status = engine.PeriodLocked
	err := locked.GuardWritable("write payslip")
	require.Error(t, err)
	assert.ErrorIs(t, err, engine.ErrStateConflict)

	var conflict *engine.StateConflictError
	require.ErrorAs(t, err, &conflict)
	assert.Equal(t, "2026-03", conflict.ID)
}

// =============================================================================
// ERROR TAXONOMY
// =============================================================================

func TestErrorHelpers_Classification(t *testing.T) {
	validation := &engine.ValidationError{Field: "amount", Detail: "negative"}
	config := &engine.ConfigError{Field: "brackets", Detail: "gap"}
	conflict := &engine.StateConflictError{Entity: "payslip", ID: "x", State: "PAID", Attempt: "recompute"}
	missing := &engine.NotFoundError{Entity: "employee", ID: "emp-9"}

	assert.True(t, engine.IsClientError(validation))
	assert.True(t, engine.IsClientError(config))
	assert.False(t, engine.IsClientError(conflict))

	assert.True(t, engine.IsConflict(conflict))
	assert.False(t, engine.IsConflict(validation))

	assert.True(t, engine.IsNotFound(missing))
	assert.False(t, engine.IsNotFound(errors.New("opaque")))
}

func TestCapExceededFlag_IsSoft(t *testing.T) {
	// GIVEN: a cap flag from a partially applied deduction
	// WHEN: classifying it
	// THEN: it wraps ErrCapExceeded but is neither a validation error
	// nor a conflict, so no pipeline treats it as fatal

	flag := &engine.CapExceededFlag{
		ObligationID: "obl-1",
		Cap:          "per-obligation",
		Requested:    cdf("50000"),
		Applied:      cdf("30000"),
		RolledOver:   cdf("20000"),
	}

	assert.ErrorIs(t, flag, engine.ErrCapExceeded)
	assert.False(t, engine.IsClientError(flag))
	assert.False(t, engine.IsConflict(flag))
}

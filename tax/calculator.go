package tax

import (
	"github.com/warp/payroll-engine/engine"
)

// =============================================================================
// BREAKDOWN - Full intermediate figures of one calculation
// =============================================================================

// Breakdown carries every intermediate figure of a tax calculation.
// Payslip line items and audit trails need all of them, so the
// calculator never returns a bare net figure.
type Breakdown struct {
	Gross engine.Amount

	// Each contribution rounded independently to currency precision.
	Contributions map[Scheme]engine.Amount
	TotalSocial   engine.Amount

	// Gross minus contributions, floored at zero.
	TaxableBase engine.Amount

	// Progressive IPR on the taxable base.
	IncomeTax engine.Amount

	// Gross - contributions - income tax. Deductions come later.
	NetBeforeDeductions engine.Amount

	// Settings version the figures were computed with.
	SettingsVersion int
}

// =============================================================================
// CALCULATOR - Pure gross -> breakdown pipeline
// =============================================================================

// Calculator computes the statutory breakdown for a gross salary.
// It is pure: the settings snapshot is an explicit input, so the same
// inputs always produce the same breakdown.
type Calculator struct {
	Settings Settings
}

// NewCalculator validates the snapshot once, up front. A malformed
// bracket table is rejected here, before any per-employee work runs.
func NewCalculator(settings Settings) (*Calculator, error) {
	if err := settings.Validate(); err != nil {
		return nil, err
	}
	return &Calculator{Settings: settings}, nil
}

// Compute runs the fixed calculation order:
//  1. each flat contribution, rounded independently
//  2. taxable base = gross - total contributions, floored at 0
//  3. progressive tax by walking the bracket table
//  4. net before deductions
//
// Negative gross is invalid input, rejected rather than clamped.
func (c *Calculator) Compute(gross engine.Amount) (Breakdown, error) {
	if gross.IsNegative() {
		return Breakdown{}, &engine.ValidationError{
			Field:  "gross salary",
			Detail: "must not be negative, got " + gross.String(),
		}
	}

	bd := Breakdown{
		Gross:           gross,
		Contributions:   make(map[Scheme]engine.Amount, len(schemeOrder)),
		TotalSocial:     gross.Zero(),
		SettingsVersion: c.Settings.Version,
	}

	for _, scheme := range schemeOrder {
		contribution := gross.MulRate(c.Settings.ContributionRates[scheme]).Round()
		bd.Contributions[scheme] = contribution
		bd.TotalSocial = bd.TotalSocial.Add(contribution)
	}

	bd.TaxableBase = gross.Sub(bd.TotalSocial).FloorZero()
	bd.IncomeTax = c.progressiveTax(bd.TaxableBase)
	bd.NetBeforeDeductions = gross.Sub(bd.TotalSocial).Sub(bd.IncomeTax)

	return bd, nil
}

// progressiveTax walks the sorted bracket list. Brackets fully below the
// base contribute their whole slice; the bracket containing the base
// contributes a partial slice; the walk stops once the base is covered.
// Equivalent closed form: sum over brackets of
// max(0, min(base, upper) - lower) * rate.
func (c *Calculator) progressiveTax(base engine.Amount) engine.Amount {
	tax := base.Zero()

	for _, bracket := range c.Settings.Brackets {
		if !base.Value.GreaterThan(bracket.Lower) {
			break
		}

		sliceTop := base.Value
		if bracket.Upper != nil && sliceTop.GreaterThan(*bracket.Upper) {
			sliceTop = *bracket.Upper
		}

		slice := sliceTop.Sub(bracket.Lower)
		tax = tax.Add(engine.NewAmountFromDecimal(slice.Mul(bracket.Rate), base.Currency))
	}

	// Accumulated in full precision; rounded once at the end.
	return tax.Round()
}

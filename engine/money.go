/*
Package engine provides the core primitives of the payroll accounting engine.

PURPOSE:
  This package contains the domain-agnostic types shared by every payroll
  component: money amounts, pay periods, and the error taxonomy. Whether
  computing income tax, resolving a deduction schedule, or balancing a
  journal entry, the same Amount arithmetic and the same period lifecycle
  rules apply.

KEY CONCEPTS IN THIS FILE (money.go):
  - Amount: A monetary quantity with a currency (e.g., 500,000 CDF)
  - Currency precision: Each currency rounds to a fixed number of decimals
  - Minor units: Exact integer representation used for balance invariants

DESIGN PRINCIPLES:
  1. Precision: Uses decimal.Decimal to avoid floating-point errors
  2. Exactness: Journal balancing compares integer minor units, never floats
  3. Explicitness: Rounding happens where the statute says it does, not
     implicitly inside arithmetic

USAGE:
  gross := engine.NewAmount("500000", "CDF")
  cnss := gross.MulRate(decimal.NewFromFloat(0.05)).Round()

SEE ALSO:
  - period.go: Pay period lifecycle
  - errors.go: Error taxonomy
*/
package engine

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// =============================================================================
// AMOUNT - Monetary quantity with a currency
// =============================================================================

type Amount struct {
	Value    decimal.Decimal
	Currency string
}

// currencyExponents maps a currency code to its number of decimal places.
// Currencies not listed default to 2.
var currencyExponents = map[string]int32{
	"CDF": 2,
	"USD": 2,
}

// Exponent returns the number of decimal places for the amount's currency.
func (a Amount) Exponent() int32 {
	if exp, ok := currencyExponents[a.Currency]; ok {
		return exp
	}
	return 2
}

func NewAmount(value string, currency string) Amount {
	return Amount{Value: MustParseDecimal(value), Currency: currency}
}

func NewAmountFromInt(value int64, currency string) Amount {
	return Amount{Value: decimal.NewFromInt(value), Currency: currency}
}

func NewAmountFromDecimal(value decimal.Decimal, currency string) Amount {
	return Amount{Value: value, Currency: currency}
}

// FromMinorUnits reconstructs an amount from its minor-unit representation
// (e.g., 50000 centimes -> 500.00).
func FromMinorUnits(minor int64, currency string) Amount {
	a := Amount{Currency: currency}
	a.Value = decimal.NewFromInt(minor).Shift(-a.Exponent())
	return a
}

// MustParseDecimal parses a decimal literal and panics on failure. It
// feeds the statutory rate tables; a typo in a bracket literal must
// surface at startup, not tax silently at zero.
func MustParseDecimal(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(fmt.Sprintf("unparseable decimal literal %q: %v", s, err))
	}
	return d
}

func (a Amount) Zero() Amount                 { return Amount{Value: decimal.Zero, Currency: a.Currency} }
func (a Amount) Add(b Amount) Amount          { return Amount{Value: a.Value.Add(b.Value), Currency: a.Currency} }
func (a Amount) Sub(b Amount) Amount          { return Amount{Value: a.Value.Sub(b.Value), Currency: a.Currency} }
func (a Amount) Mul(s decimal.Decimal) Amount { return Amount{Value: a.Value.Mul(s), Currency: a.Currency} }
func (a Amount) Neg() Amount                  { return Amount{Value: a.Value.Neg(), Currency: a.Currency} }
func (a Amount) IsNegative() bool             { return a.Value.IsNegative() }
func (a Amount) IsZero() bool                 { return a.Value.IsZero() }
func (a Amount) IsPositive() bool             { return a.Value.IsPositive() }
func (a Amount) GreaterThan(b Amount) bool    { return a.Value.GreaterThan(b.Value) }
func (a Amount) LessThan(b Amount) bool       { return a.Value.LessThan(b.Value) }
func (a Amount) Equal(b Amount) bool          { return a.Value.Equal(b.Value) }
func (a Amount) Min(b Amount) Amount {
	if a.LessThan(b) {
		return a
	}
	return b
}

func (a Amount) Max(b Amount) Amount {
	if a.GreaterThan(b) {
		return a
	}
	return b
}

// MulRate multiplies by a rate expressed as a fraction (0.05 for 5%).
func (a Amount) MulRate(rate decimal.Decimal) Amount {
	return Amount{Value: a.Value.Mul(rate), Currency: a.Currency}
}

// Round rounds to the currency's precision (half-up).
func (a Amount) Round() Amount {
	return Amount{Value: a.Value.Round(a.Exponent()), Currency: a.Currency}
}

// FloorZero clamps negative values to zero. Used for the taxable base,
// which never goes below zero.
func (a Amount) FloorZero() Amount {
	if a.Value.IsNegative() {
		return a.Zero()
	}
	return a
}

// MinorUnits returns the amount as an exact integer count of minor units.
// The amount must already be rounded to currency precision; a sub-minor
// remainder indicates a rounding bug upstream and is reported as an error.
func (a Amount) MinorUnits() (int64, error) {
	shifted := a.Value.Shift(a.Exponent())
	if !shifted.IsInteger() {
		return 0, fmt.Errorf("%w: amount %s %s is not rounded to currency precision",
			ErrValidation, a.Value, a.Currency)
	}
	return shifted.IntPart(), nil
}

// SameCurrency reports whether both amounts share one currency.
func (a Amount) SameCurrency(b Amount) bool {
	return a.Currency == b.Currency
}

func (a Amount) String() string {
	return a.Value.StringFixed(a.Exponent()) + " " + a.Currency
}

/*
Package tax implements the statutory tax rate table and the payroll tax
calculator.

PURPOSE:
  Holds the versioned snapshot of flat social-contribution rates (CNSS,
  ONEM, INPP) and the progressive IPR bracket table, and computes the
  full tax breakdown for a gross salary.

KEY CONCEPTS:
  - Settings: A versioned, immutable snapshot of all rates. Calculations
    receive a snapshot explicitly; nothing reads ambient global state, so
    a concurrent settings update never affects an in-flight payslip and
    historical payslips are never retroactively recomputed.
  - Bracket: One slice of the progressive scale. Brackets are contiguous,
    non-overlapping, sorted ascending; the final bracket is unbounded.
  - Breakdown: The full intermediate figures of a calculation. Callers
    always get the breakdown, never a bare scalar, because payslip line
    items and audits need every step.

VALIDATION:
  A discontinuous or unsorted bracket table is a configuration error
  surfaced by Validate() before any calculation runs - fail fast once,
  not per employee.

SEE ALSO:
  - calculator.go: The calculation pipeline
  - factory/settings.go: JSON <-> Settings conversion
*/
package tax

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/warp/payroll-engine/engine"
)

// =============================================================================
// CONTRIBUTION SCHEMES - Flat-rate statutory deductions from gross
// =============================================================================

// Scheme names the flat social-contribution schemes.
type Scheme string

const (
	SchemeCNSS Scheme = "CNSS"
	SchemeONEM Scheme = "ONEM"
	SchemeINPP Scheme = "INPP"
)

// schemeOrder fixes the display and computation order of contributions.
var schemeOrder = []Scheme{SchemeCNSS, SchemeONEM, SchemeINPP}

// =============================================================================
// BRACKETS - Progressive IPR scale
// =============================================================================

// Bracket is one slice of the progressive income-tax scale.
// Lower is the exclusive lower bound of the slice; Upper the inclusive
// upper bound, nil for the final unbounded bracket. The taxed slice for
// a base B is max(0, min(B, Upper) - Lower).
type Bracket struct {
	Lower decimal.Decimal
	Upper *decimal.Decimal
	Rate  decimal.Decimal // fraction: 0.05 for 5%
}

// =============================================================================
// SETTINGS - Versioned rate snapshot
// =============================================================================

// Settings is one effective snapshot of all tax rates. Snapshots are
// immutable: an admin update produces a new snapshot with a bumped
// version, and payslips record the version they were computed with.
type Settings struct {
	Version     int
	EffectiveAt time.Time

	// Flat contribution rates as fractions of gross (0.05 for 5%).
	ContributionRates map[Scheme]decimal.Decimal

	// Progressive IPR scale, sorted ascending and contiguous.
	Brackets []Bracket
}

// SettingsStore provides read and write access to the current snapshot.
// Historical snapshots are append-only: Update saves a new version.
type SettingsStore interface {
	Current() (Settings, error)
	Update(s Settings) (Settings, error)
}

// Validate checks the snapshot before any calculation runs.
// A malformed table blocks all computation (configuration error), so
// errors carry the offending bracket index.
func (s Settings) Validate() error {
	for _, scheme := range schemeOrder {
		rate, ok := s.ContributionRates[scheme]
		if !ok {
			return &engine.ConfigError{
				Field:  string(scheme),
				Detail: "missing contribution rate",
			}
		}
		if rate.IsNegative() || rate.GreaterThan(decimal.NewFromInt(1)) {
			return &engine.ConfigError{
				Field:  string(scheme),
				Detail: fmt.Sprintf("rate %s outside [0, 1]", rate),
			}
		}
	}

	if len(s.Brackets) == 0 {
		return &engine.ConfigError{Field: "brackets", Detail: "empty bracket table"}
	}

	if !s.Brackets[0].Lower.IsZero() {
		return &engine.ConfigError{
			Field:  "brackets[0]",
			Detail: "first bracket must start at 0",
		}
	}

	for i, b := range s.Brackets {
		field := fmt.Sprintf("brackets[%d]", i)

		if b.Rate.IsNegative() || b.Rate.GreaterThan(decimal.NewFromInt(1)) {
			return &engine.ConfigError{Field: field, Detail: fmt.Sprintf("rate %s outside [0, 1]", b.Rate)}
		}

		last := i == len(s.Brackets)-1
		if last {
			if b.Upper != nil {
				return &engine.ConfigError{Field: field, Detail: "final bracket must be unbounded"}
			}
			continue
		}

		if b.Upper == nil {
			return &engine.ConfigError{Field: field, Detail: "only the final bracket may be unbounded"}
		}
		if !b.Upper.GreaterThan(b.Lower) {
			return &engine.ConfigError{Field: field, Detail: "upper bound not above lower bound"}
		}
		// Contiguity: next bracket starts exactly where this one ends.
		if !s.Brackets[i+1].Lower.Equal(*b.Upper) {
			return &engine.ConfigError{
				Field:  field,
				Detail: fmt.Sprintf("gap or overlap: ends at %s, next starts at %s", b.Upper, s.Brackets[i+1].Lower),
			}
		}
	}

	return nil
}

// =============================================================================
// STATUTORY DEFAULTS
// =============================================================================

// DefaultSettings returns the documented statutory table: CNSS 5%,
// ONEM 1.5%, INPP 0.5%, and the 11-bracket progressive IPR scale from
// 0% to 45%. "Reset to defaults" reinstates exactly this table.
func DefaultSettings() Settings {
	return Settings{
		Version:     1,
		EffectiveAt: time.Now().UTC(),
		ContributionRates: map[Scheme]decimal.Decimal{
			SchemeCNSS: engine.MustParseDecimal("0.05"),
			SchemeONEM: engine.MustParseDecimal("0.015"),
			SchemeINPP: engine.MustParseDecimal("0.005"),
		},
		Brackets: defaultBrackets(),
	}
}

func defaultBrackets() []Bracket {
	bounds := []string{
		"0", "72000", "144000", "288000", "576000", "1152000",
		"2304000", "4608000", "9216000", "18432000", "36864000",
	}
	rates := []string{
		"0", "0", "0.05", "0.10", "0.15", "0.20",
		"0.25", "0.30", "0.35", "0.40", "0.45",
	}

	brackets := make([]Bracket, len(bounds))
	for i := range bounds {
		brackets[i] = Bracket{
			Lower: engine.MustParseDecimal(bounds[i]),
			Rate:  engine.MustParseDecimal(rates[i]),
		}
		if i > 0 {
			upper := brackets[i].Lower
			brackets[i-1].Upper = &upper
		}
	}
	return brackets
}

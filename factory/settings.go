/*
Package factory provides JSON to Go tax-settings conversion.

PURPOSE:
  Converts JSON rate-table definitions into tax.Settings snapshots.
  This enables rate configuration without code changes - an accountant
  can submit the statutory table as JSON through the admin API, and the
  factory creates a validated snapshot.

JSON SCHEMA:
  {
    "version": 2,
    "effective_at": "2026-01-01",
    "contribution_rates": {
      "CNSS": "0.05",
      "ONEM": "0.015",
      "INPP": "0.005"
    },
    "brackets": [
      {"lower": "0", "upper": "72000", "rate": "0"},
      {"lower": "72000", "upper": "144000", "rate": "0"},
      {"lower": "36864000", "rate": "0.45"}
    ]
  }

  Rates and bounds are decimal strings, never floats: the figures on a
  payslip must round-trip exactly. A bracket without "upper" is the
  final unbounded one.

USAGE:
  factory := NewSettingsFactory()

  settings, err := factory.ParseSettings(jsonString)
  // settings is already validated; store.Update(settings) assigns the
  // next version

SEE ALSO:
  - tax/settings.go: Settings type and validation rules
*/
package factory

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/warp/payroll-engine/engine"
	"github.com/warp/payroll-engine/tax"
)

// =============================================================================
// JSON SCHEMA TYPES
// =============================================================================

// SettingsJSON is the JSON representation of a tax settings snapshot.
type SettingsJSON struct {
	Version           int               `json:"version,omitempty"`
	EffectiveAt       string            `json:"effective_at,omitempty"`
	ContributionRates map[string]string `json:"contribution_rates"`
	Brackets          []BracketJSON     `json:"brackets"`
}

// BracketJSON is one progressive slice. Bounds and rate are decimal
// strings; a missing upper bound marks the final unbounded bracket.
type BracketJSON struct {
	Lower string `json:"lower"`
	Upper string `json:"upper,omitempty"`
	Rate  string `json:"rate"`
}

// =============================================================================
// SETTINGS FACTORY
// =============================================================================

// SettingsFactory converts JSON rate tables to tax.Settings and back.
type SettingsFactory struct{}

func NewSettingsFactory() *SettingsFactory {
	return &SettingsFactory{}
}

// ParseSettings parses and validates a JSON snapshot.
func (f *SettingsFactory) ParseSettings(jsonStr string) (tax.Settings, error) {
	var sj SettingsJSON
	if err := json.Unmarshal([]byte(jsonStr), &sj); err != nil {
		return tax.Settings{}, &engine.ValidationError{
			Field:  "settings json",
			Detail: err.Error(),
		}
	}
	return f.FromJSON(sj)
}

// FromJSON converts SettingsJSON into a validated tax.Settings.
func (f *SettingsFactory) FromJSON(sj SettingsJSON) (tax.Settings, error) {
	s := tax.Settings{
		Version:           sj.Version,
		ContributionRates: make(map[tax.Scheme]decimal.Decimal, len(sj.ContributionRates)),
	}

	if sj.EffectiveAt != "" {
		at, err := time.Parse("2006-01-02", sj.EffectiveAt)
		if err != nil {
			return tax.Settings{}, &engine.ValidationError{
				Field:  "effective_at",
				Detail: fmt.Sprintf("want YYYY-MM-DD, got %q", sj.EffectiveAt),
			}
		}
		s.EffectiveAt = at
	}

	for scheme, raw := range sj.ContributionRates {
		rate, err := parseDecimal(fmt.Sprintf("contribution_rates.%s", scheme), raw)
		if err != nil {
			return tax.Settings{}, err
		}
		s.ContributionRates[tax.Scheme(scheme)] = rate
	}

	for i, bj := range sj.Brackets {
		bracket, err := parseBracket(i, bj)
		if err != nil {
			return tax.Settings{}, err
		}
		s.Brackets = append(s.Brackets, bracket)
	}

	if err := s.Validate(); err != nil {
		return tax.Settings{}, err
	}
	return s, nil
}

// ToJSON converts a snapshot back to its JSON representation.
func (f *SettingsFactory) ToJSON(s tax.Settings) SettingsJSON {
	sj := SettingsJSON{
		Version:           s.Version,
		ContributionRates: make(map[string]string, len(s.ContributionRates)),
	}
	if !s.EffectiveAt.IsZero() {
		sj.EffectiveAt = s.EffectiveAt.Format("2006-01-02")
	}
	for scheme, rate := range s.ContributionRates {
		sj.ContributionRates[string(scheme)] = rate.String()
	}
	for _, b := range s.Brackets {
		bj := BracketJSON{Lower: b.Lower.String(), Rate: b.Rate.String()}
		if b.Upper != nil {
			bj.Upper = b.Upper.String()
		}
		sj.Brackets = append(sj.Brackets, bj)
	}
	return sj
}

// =============================================================================
// PARSING HELPERS
// =============================================================================

func parseBracket(index int, bj BracketJSON) (tax.Bracket, error) {
	field := fmt.Sprintf("brackets[%d]", index)

	lower, err := parseDecimal(field+".lower", bj.Lower)
	if err != nil {
		return tax.Bracket{}, err
	}
	rate, err := parseDecimal(field+".rate", bj.Rate)
	if err != nil {
		return tax.Bracket{}, err
	}

	bracket := tax.Bracket{Lower: lower, Rate: rate}
	if bj.Upper != "" {
		upper, err := parseDecimal(field+".upper", bj.Upper)
		if err != nil {
			return tax.Bracket{}, err
		}
		bracket.Upper = &upper
	}
	return bracket, nil
}

func parseDecimal(field, raw string) (decimal.Decimal, error) {
	if raw == "" {
		return decimal.Decimal{}, &engine.ValidationError{Field: field, Detail: "missing value"}
	}
	d, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Decimal{}, &engine.ValidationError{
			Field:  field,
			Detail: fmt.Sprintf("not a decimal: %q", raw),
		}
	}
	return d, nil
}

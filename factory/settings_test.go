package factory_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/payroll-engine/engine"
	"github.com/warp/payroll-engine/factory"
	"github.com/warp/payroll-engine/tax"
)

func TestParseSettings_ValidTable(t *testing.T) {
	// GIVEN: a JSON snapshot with string-decimal rates
	// WHEN: parsing
	// THEN: a validated tax.Settings with exact figures

	f := factory.NewSettingsFactory()

	s, err := f.ParseSettings(`{
		"effective_at": "2026-01-01",
		"contribution_rates": {"CNSS": "0.05", "ONEM": "0.015", "INPP": "0.005"},
		"brackets": [
			{"lower": "0", "upper": "100000", "rate": "0"},
			{"lower": "100000", "rate": "0.30"}
		]
	}`)
	require.NoError(t, err)

	assert.True(t, s.ContributionRates[tax.SchemeONEM].Equal(engine.MustParseDecimal("0.015")))
	require.Len(t, s.Brackets, 2)
	assert.Nil(t, s.Brackets[1].Upper)
	assert.True(t, s.Brackets[1].Rate.Equal(engine.MustParseDecimal("0.30")))
	assert.Equal(t, "2026-01-01", s.EffectiveAt.Format("2006-01-02"))
}

func TestParseSettings_MalformedDecimal_Rejected(t *testing.T) {
	f := factory.NewSettingsFactory()

	_, err := f.ParseSettings(`{
		"contribution_rates": {"CNSS": "five percent", "ONEM": "0.015", "INPP": "0.005"},
		"brackets": [{"lower": "0", "rate": "0"}]
	}`)
	require.Error(t, err)
	assert.ErrorIs(t, err, engine.ErrValidation)
}

func TestParseSettings_DiscontinuousTable_Rejected(t *testing.T) {
	// GIVEN: brackets with a gap
	// WHEN: parsing
	// THEN: the table validation fires inside the factory

	f := factory.NewSettingsFactory()

	_, err := f.ParseSettings(`{
		"contribution_rates": {"CNSS": "0.05", "ONEM": "0.015", "INPP": "0.005"},
		"brackets": [
			{"lower": "0", "upper": "100000", "rate": "0"},
			{"lower": "100001", "rate": "0.30"}
		]
	}`)
	require.Error(t, err)
	assert.ErrorIs(t, err, engine.ErrConfiguration)
}

func TestToJSON_RoundTripsDefaults(t *testing.T) {
	// GIVEN: the statutory default table
	// WHEN: converting to JSON and parsing back
	// THEN: the snapshot survives unchanged

	f := factory.NewSettingsFactory()

	original := tax.DefaultSettings()
	parsed, err := f.FromJSON(f.ToJSON(original))
	require.NoError(t, err)

	require.Len(t, parsed.Brackets, len(original.Brackets))
	for i := range original.Brackets {
		assert.True(t, parsed.Brackets[i].Lower.Equal(original.Brackets[i].Lower), "bracket %d lower", i)
		assert.True(t, parsed.Brackets[i].Rate.Equal(original.Brackets[i].Rate), "bracket %d rate", i)
	}
	for scheme, rate := range original.ContributionRates {
		assert.True(t, parsed.ContributionRates[scheme].Equal(rate), "scheme %s", scheme)
	}
}

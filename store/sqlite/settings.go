package sqlite

import (
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/warp/payroll-engine/factory"
	"github.com/warp/payroll-engine/tax"
)

// =============================================================================
// TAX SETTINGS STORE - Append-only snapshots
// =============================================================================

// settingsFactory serializes snapshots through the same JSON schema the
// admin API uses, so a payload read back from the database parses with
// the same validation.
var settingsFactory = factory.NewSettingsFactory()

// Current returns the highest-version snapshot, seeding the statutory
// defaults on first read of an empty database.
func (s *Store) Current() (tax.Settings, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var payload string
	err := s.db.QueryRow(`
		SELECT payload_json FROM tax_settings ORDER BY version DESC LIMIT 1
	`).Scan(&payload)
	if err == sql.ErrNoRows {
		defaults := tax.DefaultSettings()
		if err := s.insertSettings(defaults); err != nil {
			return tax.Settings{}, err
		}
		return defaults, nil
	}
	if err != nil {
		return tax.Settings{}, err
	}

	return settingsFactory.ParseSettings(payload)
}

// Update validates the snapshot, assigns the next version and appends it.
func (s *Store) Update(settings tax.Settings) (tax.Settings, error) {
	if err := settings.Validate(); err != nil {
		return tax.Settings{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	var maxVersion sql.NullInt64
	if err := s.db.QueryRow(`SELECT MAX(version) FROM tax_settings`).Scan(&maxVersion); err != nil {
		return tax.Settings{}, err
	}
	settings.Version = int(maxVersion.Int64) + 1

	if err := s.insertSettings(settings); err != nil {
		return tax.Settings{}, err
	}
	return settings, nil
}

func (s *Store) insertSettings(settings tax.Settings) error {
	payload, err := json.Marshal(settingsFactory.ToJSON(settings))
	if err != nil {
		return err
	}

	_, err = s.db.Exec(`
		INSERT INTO tax_settings (version, effective_at, payload_json)
		VALUES (?, ?, ?)
	`, settings.Version, formatTime(settings.EffectiveAt), string(payload))
	if err != nil {
		return fmt.Errorf("failed to save tax settings: %w", err)
	}
	return nil
}

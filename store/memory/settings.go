package memory

import (
	"sync"
	"time"

	"github.com/warp/payroll-engine/engine"
	"github.com/warp/payroll-engine/tax"
)

// =============================================================================
// SETTINGS STORE
// =============================================================================

// SettingsStore keeps the append-only history of tax settings
// snapshots. Current returns the latest; Update validates, bumps the
// version and appends. In-flight calculations hold their own snapshot,
// so an update never affects them.
type SettingsStore struct {
	mu      sync.RWMutex
	history []tax.Settings
}

// NewSettingsStore seeds the store with the statutory default table.
func NewSettingsStore() *SettingsStore {
	return &SettingsStore{history: []tax.Settings{tax.DefaultSettings()}}
}

func (s *SettingsStore) Current() (tax.Settings, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if len(s.history) == 0 {
		return tax.Settings{}, &engine.ConfigError{Field: "settings", Detail: "no snapshot available"}
	}
	return s.history[len(s.history)-1], nil
}

func (s *SettingsStore) Update(next tax.Settings) (tax.Settings, error) {
	if err := next.Validate(); err != nil {
		return tax.Settings{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	next.Version = len(s.history) + 1
	if next.EffectiveAt.IsZero() {
		next.EffectiveAt = time.Now().UTC()
	}
	s.history = append(s.history, next)
	return next, nil
}

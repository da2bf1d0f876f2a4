package memory

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/warp/payroll-engine/engine"
	"github.com/warp/payroll-engine/journal"
)

// =============================================================================
// JOURNAL STORE
// =============================================================================

// JournalStore keeps entries and the closed-month set in maps.
type JournalStore struct {
	mu      sync.RWMutex
	entries map[string]journal.Entry
	closed  map[string]bool
}

func NewJournalStore() *JournalStore {
	return &JournalStore{
		entries: make(map[string]journal.Entry),
		closed:  make(map[string]bool),
	}
}

func monthKey(year int, month time.Month) string {
	return fmt.Sprintf("%04d-%02d", year, int(month))
}

func (s *JournalStore) SaveEntry(e journal.Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	// Lines are copied so callers cannot mutate stored state.
	stored := e
	stored.Lines = append([]journal.Line(nil), e.Lines...)
	s.entries[e.ID] = stored
	return nil
}

func (s *JournalStore) GetEntry(id string) (journal.Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.entries[id]
	if !ok {
		return journal.Entry{}, &engine.NotFoundError{Entity: "journal entry", ID: id}
	}
	e.Lines = append([]journal.Line(nil), e.Lines...)
	return e, nil
}

func (s *JournalStore) EntriesForMonth(year int, month time.Month) ([]journal.Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []journal.Entry
	for _, e := range s.entries {
		if e.Date.Year() == year && e.Date.Month() == month {
			e.Lines = append([]journal.Line(nil), e.Lines...)
			out = append(out, e)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].Date.Equal(out[j].Date) {
			return out[i].Date.Before(out[j].Date)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (s *JournalStore) IsMonthClosed(year int, month time.Month) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.closed[monthKey(year, month)], nil
}

func (s *JournalStore) MarkMonthClosed(year int, month time.Month) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed[monthKey(year, month)] = true
	return nil
}

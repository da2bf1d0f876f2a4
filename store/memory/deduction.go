/*
Package memory provides in-memory implementations of every store
contract in the engine.

PURPOSE:
  Fast, dependency-free persistence for tests and demos. Each store is
  safe for concurrent use via a sync.RWMutex and stores values, never
  shared pointers, so callers cannot mutate stored state from outside.

SEE ALSO:
  - store/sqlite: The durable implementation with the same contracts
*/
package memory

import (
	"sort"
	"sync"
	"time"

	"github.com/warp/payroll-engine/deduction"
	"github.com/warp/payroll-engine/engine"
)

// =============================================================================
// DEDUCTION STORE
// =============================================================================

// DeductionStore keeps obligations and schedule entries in maps.
type DeductionStore struct {
	mu          sync.RWMutex
	obligations map[string]deduction.Obligation
	entries     map[string]deduction.ScheduleEntry
}

func NewDeductionStore() *DeductionStore {
	return &DeductionStore{
		obligations: make(map[string]deduction.Obligation),
		entries:     make(map[string]deduction.ScheduleEntry),
	}
}

func (s *DeductionStore) SaveObligation(o deduction.Obligation) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.obligations[o.ID] = o
	return nil
}

func (s *DeductionStore) GetObligation(id string) (deduction.Obligation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	o, ok := s.obligations[id]
	if !ok {
		return deduction.Obligation{}, &engine.NotFoundError{Entity: "obligation", ID: id}
	}
	return o, nil
}

func (s *DeductionStore) ActiveObligations(employeeID string) ([]deduction.Obligation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []deduction.Obligation
	for _, o := range s.obligations {
		if o.EmployeeID == employeeID && o.Status == deduction.StatusActive {
			out = append(out, o)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Type.Priority() != out[j].Type.Priority() {
			return out[i].Type.Priority() < out[j].Type.Priority()
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}

func (s *DeductionStore) ObligationsByEmployee(employeeID string) ([]deduction.Obligation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []deduction.Obligation
	for _, o := range s.obligations {
		if o.EmployeeID == employeeID {
			out = append(out, o)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (s *DeductionStore) SaveScheduleEntry(e deduction.ScheduleEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[e.ID] = e
	return nil
}

func (s *DeductionStore) EntriesForPeriod(employeeID string, year int, month time.Month) (map[string]deduction.ScheduleEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make(map[string]deduction.ScheduleEntry)
	for _, e := range s.entries {
		if e.Year != year || e.Month != month {
			continue
		}
		o, ok := s.obligations[e.ObligationID]
		if !ok || o.EmployeeID != employeeID {
			continue
		}
		out[e.ObligationID] = e
	}
	return out, nil
}

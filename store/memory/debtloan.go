package memory

import (
	"sort"
	"sync"

	"github.com/warp/payroll-engine/debtloan"
	"github.com/warp/payroll-engine/engine"
)

// =============================================================================
// DEBT/LOAN STORE
// =============================================================================

// DebtLoanStore keeps debts/loans and payments in maps.
type DebtLoanStore struct {
	mu       sync.RWMutex
	debts    map[string]debtloan.DetteOuPret
	payments map[string][]debtloan.Payment
}

func NewDebtLoanStore() *DebtLoanStore {
	return &DebtLoanStore{
		debts:    make(map[string]debtloan.DetteOuPret),
		payments: make(map[string][]debtloan.Payment),
	}
}

func (s *DebtLoanStore) SaveDebt(d debtloan.DetteOuPret) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.debts[d.ID] = d
	return nil
}

func (s *DebtLoanStore) GetDebt(id string) (debtloan.DetteOuPret, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	d, ok := s.debts[id]
	if !ok {
		return debtloan.DetteOuPret{}, &engine.NotFoundError{Entity: "dette/prêt", ID: id}
	}
	return d, nil
}

func (s *DebtLoanStore) ListDebts() ([]debtloan.DetteOuPret, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]debtloan.DetteOuPret, 0, len(s.debts))
	for _, d := range s.debts {
		out = append(out, d)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].StartDate.Equal(out[j].StartDate) {
			return out[i].StartDate.Before(out[j].StartDate)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (s *DebtLoanStore) SaveDebtPayment(p debtloan.Payment) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.payments[p.DebtID] = append(s.payments[p.DebtID], p)
	return nil
}

func (s *DebtLoanStore) PaymentsForDebt(debtID string) ([]debtloan.Payment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]debtloan.Payment(nil), s.payments[debtID]...), nil
}

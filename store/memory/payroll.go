package memory

import (
	"sort"
	"sync"
	"time"

	"github.com/warp/payroll-engine/engine"
	"github.com/warp/payroll-engine/payroll"
)

// =============================================================================
// EMPLOYEE STORE
// =============================================================================

// EmployeeStore is the in-memory window onto the HR records.
type EmployeeStore struct {
	mu        sync.RWMutex
	employees map[string]payroll.Employee
}

func NewEmployeeStore() *EmployeeStore {
	return &EmployeeStore{employees: make(map[string]payroll.Employee)}
}

// PutEmployee seeds or replaces one record. The payroll core itself
// only reads.
func (s *EmployeeStore) PutEmployee(e payroll.Employee) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.employees[e.ID] = e
	return nil
}

func (s *EmployeeStore) GetEmployee(id string) (payroll.Employee, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.employees[id]
	if !ok {
		return payroll.Employee{}, &engine.NotFoundError{Entity: "employee", ID: id}
	}
	return e, nil
}

func (s *EmployeeStore) ListEmployees() ([]payroll.Employee, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]payroll.Employee, 0, len(s.employees))
	for _, e := range s.employees {
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// =============================================================================
// PERIOD STORE
// =============================================================================

// PeriodStore keeps pay periods, one per (year, month).
type PeriodStore struct {
	mu      sync.RWMutex
	periods map[string]engine.PayPeriod
	byKey   map[string]string
}

func NewPeriodStore() *PeriodStore {
	return &PeriodStore{
		periods: make(map[string]engine.PayPeriod),
		byKey:   make(map[string]string),
	}
}

func (s *PeriodStore) SavePeriod(p engine.PayPeriod) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if existingID, ok := s.byKey[p.Key()]; ok && existingID != p.ID {
		return &engine.StateConflictError{
			Entity:  "pay period",
			ID:      p.Key(),
			State:   string(s.periods[existingID].Status),
			Attempt: "create duplicate period",
		}
	}
	s.periods[p.ID] = p
	s.byKey[p.Key()] = p.ID
	return nil
}

func (s *PeriodStore) GetPeriod(id string) (engine.PayPeriod, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.periods[id]
	if !ok {
		return engine.PayPeriod{}, &engine.NotFoundError{Entity: "pay period", ID: id}
	}
	return p, nil
}

func (s *PeriodStore) GetPeriodByKey(year int, month time.Month) (engine.PayPeriod, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	key := engine.PayPeriod{Year: year, Month: month}.Key()
	id, ok := s.byKey[key]
	if !ok {
		return engine.PayPeriod{}, &engine.NotFoundError{Entity: "pay period", ID: key}
	}
	return s.periods[id], nil
}

func (s *PeriodStore) ListPeriods() ([]engine.PayPeriod, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]engine.PayPeriod, 0, len(s.periods))
	for _, p := range s.periods {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key() < out[j].Key() })
	return out, nil
}

// =============================================================================
// PAYSLIP STORE
// =============================================================================

// PayslipStore keeps payslips, payments and unpaid balances. The
// (period, employee) uniqueness is enforced on save; the LOCKED guard
// is checked against the period store atomically under one lock in the
// SQLite implementation and by the assembler here.
type PayslipStore struct {
	mu       sync.RWMutex
	slips    map[string]payroll.Payslip
	byPair   map[string]string
	payments map[string][]payroll.PaymentRecord
	unpaid   map[string]payroll.UnpaidSalary
}

func NewPayslipStore() *PayslipStore {
	return &PayslipStore{
		slips:    make(map[string]payroll.Payslip),
		byPair:   make(map[string]string),
		payments: make(map[string][]payroll.PaymentRecord),
		unpaid:   make(map[string]payroll.UnpaidSalary),
	}
}

func pairKey(periodID, employeeID string) string {
	return periodID + "/" + employeeID
}

func (s *PayslipStore) SavePayslip(p payroll.Payslip) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := pairKey(p.PeriodID, p.EmployeeID)
	if existingID, ok := s.byPair[key]; ok && existingID != p.ID {
		return &engine.StateConflictError{
			Entity:  "payslip",
			ID:      existingID,
			State:   string(s.slips[existingID].Status),
			Attempt: "create second payslip for period/employee",
		}
	}
	s.slips[p.ID] = p
	s.byPair[key] = p.ID
	return nil
}

func (s *PayslipStore) GetPayslip(id string) (payroll.Payslip, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.slips[id]
	if !ok {
		return payroll.Payslip{}, &engine.NotFoundError{Entity: "payslip", ID: id}
	}
	return p, nil
}

func (s *PayslipStore) PayslipForEmployee(periodID, employeeID string) (payroll.Payslip, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, ok := s.byPair[pairKey(periodID, employeeID)]
	if !ok {
		return payroll.Payslip{}, &engine.NotFoundError{Entity: "payslip", ID: pairKey(periodID, employeeID)}
	}
	return s.slips[id], nil
}

func (s *PayslipStore) PayslipsForPeriod(periodID string) ([]payroll.Payslip, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []payroll.Payslip
	for _, p := range s.slips {
		if p.PeriodID == periodID {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].EmployeeID < out[j].EmployeeID })
	return out, nil
}

func (s *PayslipStore) SavePayment(r payroll.PaymentRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.payments[r.PayslipID] = append(s.payments[r.PayslipID], r)
	return nil
}

func (s *PayslipStore) PaymentsForPayslip(payslipID string) ([]payroll.PaymentRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]payroll.PaymentRecord(nil), s.payments[payslipID]...), nil
}

func (s *PayslipStore) SaveUnpaid(u payroll.UnpaidSalary) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.unpaid[u.PayslipID] = u
	return nil
}

func (s *PayslipStore) UnpaidForPayslip(payslipID string) (payroll.UnpaidSalary, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.unpaid[payslipID]
	if !ok {
		return payroll.UnpaidSalary{}, &engine.NotFoundError{Entity: "unpaid salary", ID: payslipID}
	}
	return u, nil
}

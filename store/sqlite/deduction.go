package sqlite

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/warp/payroll-engine/deduction"
	"github.com/warp/payroll-engine/engine"
)

// =============================================================================
// DEDUCTION STORE - Obligations and schedule entries
// =============================================================================

func (s *Store) SaveObligation(o deduction.Obligation) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var installment, cap sql.NullString
	if o.InstallmentAmount != nil {
		installment = sql.NullString{String: o.InstallmentAmount.Value.String(), Valid: true}
	}
	if o.PerPeriodCap != nil {
		cap = sql.NullString{String: o.PerPeriodCap.Value.String(), Valid: true}
	}

	_, err := s.db.Exec(`
		INSERT INTO obligations (
			id, employee_id, type, label, total, deducted, currency, schedule,
			installment_amount, installment_count, per_period_cap, status, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			label = excluded.label,
			total = excluded.total,
			deducted = excluded.deducted,
			schedule = excluded.schedule,
			installment_amount = excluded.installment_amount,
			installment_count = excluded.installment_count,
			per_period_cap = excluded.per_period_cap,
			status = excluded.status
	`,
		o.ID, o.EmployeeID, string(o.Type), nullString(o.Label),
		o.Total.Value.String(), o.Deducted.Value.String(), o.Total.Currency,
		string(o.Schedule), installment, o.InstallmentCount, cap,
		string(o.Status), formatTime(o.CreatedAt),
	)
	if err != nil {
		return fmt.Errorf("failed to save obligation: %w", err)
	}
	return nil
}

const obligationColumns = `
	id, employee_id, type, label, total, deducted, currency, schedule,
	installment_amount, installment_count, per_period_cap, status, created_at`

func (s *Store) GetObligation(id string) (deduction.Obligation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	row := s.db.QueryRow(`SELECT `+obligationColumns+` FROM obligations WHERE id = ?`, id)
	o, err := scanObligation(row)
	if err == sql.ErrNoRows {
		return deduction.Obligation{}, &engine.NotFoundError{Entity: "obligation", ID: id}
	}
	return o, err
}

// ActiveObligations returns ACTIVE obligations in resolution order.
// The priority ranking lives in Go, so ordering happens here rather
// than in SQL.
func (s *Store) ActiveObligations(employeeID string) ([]deduction.Obligation, error) {
	out, err := s.queryObligations(
		`SELECT `+obligationColumns+` FROM obligations
		 WHERE employee_id = ? AND status = ? ORDER BY created_at`,
		employeeID, string(deduction.StatusActive))
	if err != nil {
		return nil, err
	}
	sortObligations(out)
	return out, nil
}

func (s *Store) ObligationsByEmployee(employeeID string) ([]deduction.Obligation, error) {
	return s.queryObligations(
		`SELECT `+obligationColumns+` FROM obligations WHERE employee_id = ? ORDER BY created_at`,
		employeeID)
}

func (s *Store) queryObligations(query string, args ...any) ([]deduction.Obligation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []deduction.Obligation
	for rows.Next() {
		o, err := scanObligation(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, o)
	}
	return out, rows.Err()
}

func sortObligations(obligations []deduction.Obligation) {
	// Stable insertion keeps creation order within a priority rank.
	for i := 1; i < len(obligations); i++ {
		for j := i; j > 0 && less(obligations[j], obligations[j-1]); j-- {
			obligations[j], obligations[j-1] = obligations[j-1], obligations[j]
		}
	}
}

func less(a, b deduction.Obligation) bool {
	if a.Type.Priority() != b.Type.Priority() {
		return a.Type.Priority() < b.Type.Priority()
	}
	return a.CreatedAt.Before(b.CreatedAt)
}

func scanObligation(row rowScanner) (deduction.Obligation, error) {
	var o deduction.Obligation
	var typ, total, deducted, currency, schedule, status, createdAt string
	var label, installment, cap sql.NullString

	err := row.Scan(&o.ID, &o.EmployeeID, &typ, &label, &total, &deducted,
		&currency, &schedule, &installment, &o.InstallmentCount, &cap, &status, &createdAt)
	if err != nil {
		return deduction.Obligation{}, err
	}

	o.Type = deduction.Type(typ)
	o.Label = label.String
	o.Schedule = deduction.ScheduleKind(schedule)
	o.Status = deduction.Status(status)

	if o.Total, err = parseAmount(total, currency); err != nil {
		return deduction.Obligation{}, err
	}
	if o.Deducted, err = parseAmount(deducted, currency); err != nil {
		return deduction.Obligation{}, err
	}
	if installment.Valid {
		a, err := parseAmount(installment.String, currency)
		if err != nil {
			return deduction.Obligation{}, err
		}
		o.InstallmentAmount = &a
	}
	if cap.Valid {
		a, err := parseAmount(cap.String, currency)
		if err != nil {
			return deduction.Obligation{}, err
		}
		o.PerPeriodCap = &a
	}
	if o.CreatedAt, err = parseTime(createdAt); err != nil {
		return deduction.Obligation{}, err
	}
	return o, nil
}

// =============================================================================
// SCHEDULE ENTRIES
// =============================================================================

func (s *Store) SaveScheduleEntry(e deduction.ScheduleEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.Exec(`
		INSERT INTO schedule_entries (id, obligation_id, year, month, scheduled, applied, currency, status, note)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(obligation_id, year, month) DO UPDATE SET
			scheduled = excluded.scheduled,
			applied = excluded.applied,
			status = excluded.status,
			note = excluded.note
	`, e.ID, e.ObligationID, e.Year, int(e.Month),
		e.Scheduled.Value.String(), e.Applied.Value.String(), e.Scheduled.Currency,
		string(e.Status), nullString(e.Note))
	if err != nil {
		return fmt.Errorf("failed to save schedule entry: %w", err)
	}
	return nil
}

func (s *Store) EntriesForPeriod(employeeID string, year int, month time.Month) (map[string]deduction.ScheduleEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.Query(`
		SELECT e.id, e.obligation_id, e.year, e.month, e.scheduled, e.applied, e.currency, e.status, e.note
		FROM schedule_entries e
		JOIN obligations o ON o.id = e.obligation_id
		WHERE o.employee_id = ? AND e.year = ? AND e.month = ?
	`, employeeID, year, int(month))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make(map[string]deduction.ScheduleEntry)
	for rows.Next() {
		var e deduction.ScheduleEntry
		var month int
		var scheduled, applied, currency, status string
		var note sql.NullString
		if err := rows.Scan(&e.ID, &e.ObligationID, &e.Year, &month,
			&scheduled, &applied, &currency, &status, &note); err != nil {
			return nil, err
		}
		e.Month = time.Month(month)
		e.Status = deduction.EntryStatus(status)
		e.Note = note.String
		if e.Scheduled, err = parseAmount(scheduled, currency); err != nil {
			return nil, err
		}
		if e.Applied, err = parseAmount(applied, currency); err != nil {
			return nil, err
		}
		out[e.ObligationID] = e
	}
	return out, rows.Err()
}

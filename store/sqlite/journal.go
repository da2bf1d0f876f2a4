package sqlite

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/warp/payroll-engine/engine"
	"github.com/warp/payroll-engine/journal"
)

// =============================================================================
// JOURNAL STORE - Entries, lines, closed months
// =============================================================================

// SaveEntry upserts an entry and replaces its lines in one transaction.
// Lines carry no identity of their own, so replacing the full set is
// simpler than diffing.
func (s *Store) SaveEntry(e journal.Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	_, err = tx.Exec(`
		INSERT INTO journal_entries (id, entry_date, label, operation, total, currency, status)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			entry_date = excluded.entry_date,
			label = excluded.label,
			operation = excluded.operation,
			total = excluded.total,
			status = excluded.status
	`, e.ID, formatTime(e.Date), nullString(e.Label), string(e.Operation),
		e.Total.Value.String(), e.Total.Currency, string(e.Status))
	if err != nil {
		return fmt.Errorf("failed to save journal entry: %w", err)
	}

	if _, err := tx.Exec(`DELETE FROM journal_lines WHERE entry_id = ?`, e.ID); err != nil {
		return err
	}
	for i, l := range e.Lines {
		_, err := tx.Exec(`
			INSERT INTO journal_lines (entry_id, line_no, account_code, direction, amount, currency, reference)
			VALUES (?, ?, ?, ?, ?, ?, ?)
		`, e.ID, i, l.AccountCode, string(l.Direction),
			l.Amount.Value.String(), l.Amount.Currency, nullString(l.Reference))
		if err != nil {
			return fmt.Errorf("failed to save journal line: %w", err)
		}
	}

	return tx.Commit()
}

func (s *Store) GetEntry(id string) (journal.Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	row := s.db.QueryRow(`
		SELECT id, entry_date, label, operation, total, currency, status
		FROM journal_entries WHERE id = ?`, id)
	e, err := scanJournalEntry(row)
	if err == sql.ErrNoRows {
		return journal.Entry{}, &engine.NotFoundError{Entity: "journal entry", ID: id}
	}
	if err != nil {
		return journal.Entry{}, err
	}

	if e.Lines, err = s.linesForEntry(e.ID); err != nil {
		return journal.Entry{}, err
	}
	return e, nil
}

// EntriesForMonth returns the entries dated inside (year, month),
// lines included, ordered by date.
func (s *Store) EntriesForMonth(year int, month time.Month) ([]journal.Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	from := time.Date(year, month, 1, 0, 0, 0, 0, time.UTC)
	to := from.AddDate(0, 1, 0)

	rows, err := s.db.Query(`
		SELECT id, entry_date, label, operation, total, currency, status
		FROM journal_entries
		WHERE entry_date >= ? AND entry_date < ?
		ORDER BY entry_date, id
	`, formatTime(from), formatTime(to))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []journal.Entry
	for rows.Next() {
		e, err := scanJournalEntry(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i := range out {
		if out[i].Lines, err = s.linesForEntry(out[i].ID); err != nil {
			return nil, err
		}
	}
	return out, nil
}

func (s *Store) linesForEntry(entryID string) ([]journal.Line, error) {
	rows, err := s.db.Query(`
		SELECT account_code, direction, amount, currency, reference
		FROM journal_lines WHERE entry_id = ? ORDER BY line_no
	`, entryID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var lines []journal.Line
	for rows.Next() {
		var l journal.Line
		var direction, amount, currency string
		var reference sql.NullString
		if err := rows.Scan(&l.AccountCode, &direction, &amount, &currency, &reference); err != nil {
			return nil, err
		}
		l.Direction = journal.Direction(direction)
		l.Reference = reference.String
		if l.Amount, err = parseAmount(amount, currency); err != nil {
			return nil, err
		}
		lines = append(lines, l)
	}
	return lines, rows.Err()
}

func scanJournalEntry(row rowScanner) (journal.Entry, error) {
	var e journal.Entry
	var date, operation, total, currency, status string
	var label sql.NullString

	err := row.Scan(&e.ID, &date, &label, &operation, &total, &currency, &status)
	if err != nil {
		return journal.Entry{}, err
	}

	e.Label = label.String
	e.Operation = journal.OperationType(operation)
	e.Status = journal.EntryStatus(status)
	if e.Date, err = parseTime(date); err != nil {
		return journal.Entry{}, err
	}
	if e.Total, err = parseAmount(total, currency); err != nil {
		return journal.Entry{}, err
	}
	return e, nil
}

// =============================================================================
// CLOSED MONTHS
// =============================================================================

func (s *Store) IsMonthClosed(year int, month time.Month) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var n int
	err := s.db.QueryRow(`
		SELECT COUNT(*) FROM closed_months WHERE year = ? AND month = ?
	`, year, int(month)).Scan(&n)
	return n > 0, err
}

func (s *Store) MarkMonthClosed(year int, month time.Month) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.Exec(`
		INSERT INTO closed_months (year, month) VALUES (?, ?)
		ON CONFLICT(year, month) DO NOTHING
	`, year, int(month))
	return err
}

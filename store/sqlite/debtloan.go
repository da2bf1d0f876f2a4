package sqlite

import (
	"database/sql"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/warp/payroll-engine/debtloan"
	"github.com/warp/payroll-engine/engine"
)

// =============================================================================
// DEBT/LOAN STORE
// =============================================================================

func (s *Store) SaveDebt(d debtloan.DetteOuPret) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.Exec(`
		INSERT INTO debts (
			id, kind, label, counterparty, principal, balance, currency,
			annual_rate, interest_type, start_date, maturity, status,
			principal_account, interest_account
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			label = excluded.label,
			counterparty = excluded.counterparty,
			balance = excluded.balance,
			annual_rate = excluded.annual_rate,
			interest_type = excluded.interest_type,
			maturity = excluded.maturity,
			status = excluded.status,
			interest_account = excluded.interest_account
	`,
		d.ID, string(d.Kind), nullString(d.Label), nullString(d.Counterparty),
		d.Principal.Value.String(), d.Balance.Value.String(), d.Principal.Currency,
		d.AnnualRate.String(), string(d.InterestType),
		formatTime(d.StartDate), nullTime(d.Maturity), string(d.Status),
		d.PrincipalAccount, nullString(d.InterestAccount),
	)
	if err != nil {
		return fmt.Errorf("failed to save debt: %w", err)
	}
	return nil
}

const debtColumns = `
	id, kind, label, counterparty, principal, balance, currency,
	annual_rate, interest_type, start_date, maturity, status,
	principal_account, interest_account`

func (s *Store) GetDebt(id string) (debtloan.DetteOuPret, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	row := s.db.QueryRow(`SELECT `+debtColumns+` FROM debts WHERE id = ?`, id)
	d, err := scanDebt(row)
	if err == sql.ErrNoRows {
		return debtloan.DetteOuPret{}, &engine.NotFoundError{Entity: "debt", ID: id}
	}
	return d, err
}

func (s *Store) ListDebts() ([]debtloan.DetteOuPret, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.Query(`SELECT ` + debtColumns + ` FROM debts ORDER BY start_date, id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []debtloan.DetteOuPret
	for rows.Next() {
		d, err := scanDebt(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

func scanDebt(row rowScanner) (debtloan.DetteOuPret, error) {
	var d debtloan.DetteOuPret
	var kind, principal, balance, currency, rate, interestType, startDate, status string
	var label, counterparty, maturity, interestAccount sql.NullString

	err := row.Scan(&d.ID, &kind, &label, &counterparty, &principal, &balance,
		&currency, &rate, &interestType, &startDate, &maturity, &status,
		&d.PrincipalAccount, &interestAccount)
	if err != nil {
		return debtloan.DetteOuPret{}, err
	}

	d.Kind = debtloan.Kind(kind)
	d.Label = label.String
	d.Counterparty = counterparty.String
	d.InterestType = debtloan.InterestType(interestType)
	d.Status = debtloan.Status(status)
	d.InterestAccount = interestAccount.String

	if d.Principal, err = parseAmount(principal, currency); err != nil {
		return debtloan.DetteOuPret{}, err
	}
	if d.Balance, err = parseAmount(balance, currency); err != nil {
		return debtloan.DetteOuPret{}, err
	}
	if d.AnnualRate, err = decimal.NewFromString(rate); err != nil {
		return debtloan.DetteOuPret{}, fmt.Errorf("corrupt annual rate %q: %w", rate, err)
	}
	if d.StartDate, err = parseTime(startDate); err != nil {
		return debtloan.DetteOuPret{}, err
	}
	if maturity.Valid {
		t, err := parseTime(maturity.String)
		if err != nil {
			return debtloan.DetteOuPret{}, err
		}
		d.Maturity = &t
	}
	return d, nil
}

// =============================================================================
// DEBT PAYMENTS
// =============================================================================

func (s *Store) SaveDebtPayment(p debtloan.Payment) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.Exec(`
		INSERT INTO debt_payments (id, debt_id, paid_at, amount, principal, interest, currency, journal_entry_id)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, p.ID, p.DebtID, formatTime(p.Date),
		p.Amount.Value.String(), p.Principal.Value.String(), p.Interest.Value.String(),
		p.Amount.Currency, nullString(p.JournalEntryID))
	if err != nil {
		return fmt.Errorf("failed to save debt payment: %w", err)
	}
	return nil
}

func (s *Store) PaymentsForDebt(debtID string) ([]debtloan.Payment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.Query(`
		SELECT id, debt_id, paid_at, amount, principal, interest, currency, journal_entry_id
		FROM debt_payments WHERE debt_id = ? ORDER BY paid_at, id
	`, debtID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []debtloan.Payment
	for rows.Next() {
		var p debtloan.Payment
		var paidAt, amount, principal, interest, currency string
		var journalEntryID sql.NullString
		if err := rows.Scan(&p.ID, &p.DebtID, &paidAt, &amount, &principal,
			&interest, &currency, &journalEntryID); err != nil {
			return nil, err
		}
		p.JournalEntryID = journalEntryID.String
		if p.Date, err = parseTime(paidAt); err != nil {
			return nil, err
		}
		if p.Amount, err = parseAmount(amount, currency); err != nil {
			return nil, err
		}
		if p.Principal, err = parseAmount(principal, currency); err != nil {
			return nil, err
		}
		if p.Interest, err = parseAmount(interest, currency); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

/*
Package sqlite provides the SQLite-backed implementation of every
storage contract in the payroll engine.

PURPOSE:
  Durable persistence for payslips, pay periods, deduction obligations,
  journal entries, debts/loans and tax settings. In production the same
  patterns apply to PostgreSQL - only minor SQL dialect differences.

INTERFACES IMPLEMENTED:
  payroll.EmployeeStore   HR records (read side; PutEmployee seeds)
  payroll.PeriodStore     Pay periods, one per (year, month)
  payroll.PayslipStore    Payslips, payments, unpaid balances
  deduction.Store         Obligations and schedule entries
  journal.Store           Journal entries, lines, closed months
  debtloan.Store          Debts/loans and their payments
  tax.SettingsStore       Append-only settings snapshots

LOCKED-PERIOD ENFORCEMENT:
  Payslip writes run inside one transaction with an update-if-not-locked
  guard: the period's status is checked in the same transaction as the
  write, so a read-then-write race on the LOCKED flag cannot slip a
  mutation into a frozen period.

MONEY COLUMNS:
  Amounts are stored as decimal TEXT plus a currency column, never as
  REAL. Per-scheme and per-type breakdowns are JSON objects of decimal
  strings.

CONCURRENCY:
  Uses sync.RWMutex for thread-safety. In production with PostgreSQL,
  database-level concurrency control handles this instead.

WAL MODE:
  SQLite is opened with WAL (Write-Ahead Logging) for better
  concurrency: readers don't block, single writer at a time.

USAGE:
  store, err := sqlite.New("./data/payroll.db")
  if err != nil {
      log.Fatal(err)
  }
  defer store.Close()

MIGRATION:
  Schema is auto-migrated on New(). For production, use a proper
  migration tool (golang-migrate, goose) with versioned migrations.

SEE ALSO:
  - store/memory: In-memory implementation for tests
*/
package sqlite

import (
	"database/sql"
	"fmt"
	"strings"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

// Store implements all storage interfaces using SQLite.
type Store struct {
	db *sql.DB
	mu sync.RWMutex
}

// New creates a new SQLite store with the given database path.
// Use ":memory:" for an in-memory database.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	store := &Store{db: db}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return store, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// migrate creates the database schema.
func (s *Store) migrate() error {
	schema := `
	-- Employees (read-only window onto HR)
	CREATE TABLE IF NOT EXISTS employees (
		id TEXT PRIMARY KEY,
		full_name TEXT NOT NULL,
		mode TEXT NOT NULL,
		base_salary TEXT NOT NULL,
		daily_rate TEXT NOT NULL,
		currency TEXT NOT NULL
	);

	-- Pay periods, one per (year, month)
	CREATE TABLE IF NOT EXISTS pay_periods (
		id TEXT PRIMARY KEY,
		year INTEGER NOT NULL,
		month INTEGER NOT NULL,
		status TEXT NOT NULL,
		UNIQUE(year, month)
	);

	-- Payslips, one per (period, employee)
	CREATE TABLE IF NOT EXISTS payslips (
		id TEXT PRIMARY KEY,
		period_id TEXT NOT NULL REFERENCES pay_periods(id),
		employee_id TEXT NOT NULL,
		base_salary TEXT NOT NULL,
		days_worked INTEGER NOT NULL,
		bonuses TEXT NOT NULL,
		arrears TEXT NOT NULL,
		gross TEXT NOT NULL,
		contributions_json TEXT NOT NULL,
		total_social TEXT NOT NULL,
		taxable_base TEXT NOT NULL,
		income_tax TEXT NOT NULL,
		deductions_json TEXT NOT NULL,
		total_deductions TEXT NOT NULL,
		net TEXT NOT NULL,
		currency TEXT NOT NULL,
		settings_version INTEGER NOT NULL,
		status TEXT NOT NULL,
		journal_entry_id TEXT,
		computed_at TEXT NOT NULL,
		validated_at TEXT,
		UNIQUE(period_id, employee_id)
	);

	CREATE INDEX IF NOT EXISTS idx_payslips_period
		ON payslips(period_id);

	-- Salary disbursements (possibly partial)
	CREATE TABLE IF NOT EXISTS salary_payments (
		id TEXT PRIMARY KEY,
		payslip_id TEXT NOT NULL REFERENCES payslips(id),
		paid_at TEXT NOT NULL,
		amount TEXT NOT NULL,
		currency TEXT NOT NULL,
		mode TEXT,
		reference TEXT,
		journal_entry_id TEXT
	);

	CREATE INDEX IF NOT EXISTS idx_salary_payments_payslip
		ON salary_payments(payslip_id);

	-- Salaire impayé balances
	CREATE TABLE IF NOT EXISTS unpaid_salaries (
		payslip_id TEXT PRIMARY KEY REFERENCES payslips(id),
		id TEXT NOT NULL,
		employee_id TEXT NOT NULL,
		original TEXT NOT NULL,
		outstanding TEXT NOT NULL,
		currency TEXT NOT NULL
	);

	-- Deduction obligations (cancelled, never deleted)
	CREATE TABLE IF NOT EXISTS obligations (
		id TEXT PRIMARY KEY,
		employee_id TEXT NOT NULL,
		type TEXT NOT NULL,
		label TEXT,
		total TEXT NOT NULL,
		deducted TEXT NOT NULL,
		currency TEXT NOT NULL,
		schedule TEXT NOT NULL,
		installment_amount TEXT,
		installment_count INTEGER NOT NULL DEFAULT 0,
		per_period_cap TEXT,
		status TEXT NOT NULL,
		created_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_obligations_employee
		ON obligations(employee_id, status);

	-- One planned application per (obligation, year, month)
	CREATE TABLE IF NOT EXISTS schedule_entries (
		id TEXT PRIMARY KEY,
		obligation_id TEXT NOT NULL REFERENCES obligations(id),
		year INTEGER NOT NULL,
		month INTEGER NOT NULL,
		scheduled TEXT NOT NULL,
		applied TEXT NOT NULL,
		currency TEXT NOT NULL,
		status TEXT NOT NULL,
		note TEXT,
		UNIQUE(obligation_id, year, month)
	);

	-- Journal entries (reversed, never deleted)
	CREATE TABLE IF NOT EXISTS journal_entries (
		id TEXT PRIMARY KEY,
		entry_date TEXT NOT NULL,
		label TEXT,
		operation TEXT NOT NULL,
		total TEXT NOT NULL,
		currency TEXT NOT NULL,
		status TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_journal_entries_date
		ON journal_entries(entry_date);

	CREATE TABLE IF NOT EXISTS journal_lines (
		entry_id TEXT NOT NULL REFERENCES journal_entries(id),
		line_no INTEGER NOT NULL,
		account_code TEXT NOT NULL,
		direction TEXT NOT NULL,
		amount TEXT NOT NULL,
		currency TEXT NOT NULL,
		reference TEXT,
		PRIMARY KEY(entry_id, line_no)
	);

	-- Closed accounting months
	CREATE TABLE IF NOT EXISTS closed_months (
		year INTEGER NOT NULL,
		month INTEGER NOT NULL,
		PRIMARY KEY(year, month)
	);

	-- Dettes and prêts
	CREATE TABLE IF NOT EXISTS debts (
		id TEXT PRIMARY KEY,
		kind TEXT NOT NULL,
		label TEXT,
		counterparty TEXT,
		principal TEXT NOT NULL,
		balance TEXT NOT NULL,
		currency TEXT NOT NULL,
		annual_rate TEXT NOT NULL,
		interest_type TEXT NOT NULL,
		start_date TEXT NOT NULL,
		maturity TEXT,
		status TEXT NOT NULL,
		principal_account TEXT NOT NULL,
		interest_account TEXT
	);

	CREATE TABLE IF NOT EXISTS debt_payments (
		id TEXT PRIMARY KEY,
		debt_id TEXT NOT NULL REFERENCES debts(id),
		paid_at TEXT NOT NULL,
		amount TEXT NOT NULL,
		principal TEXT NOT NULL,
		interest TEXT NOT NULL,
		currency TEXT NOT NULL,
		journal_entry_id TEXT
	);

	CREATE INDEX IF NOT EXISTS idx_debt_payments_debt
		ON debt_payments(debt_id);

	-- Append-only tax settings snapshots
	CREATE TABLE IF NOT EXISTS tax_settings (
		version INTEGER PRIMARY KEY,
		effective_at TEXT NOT NULL,
		payload_json TEXT NOT NULL
	);
	`

	_, err := s.db.Exec(schema)
	return err
}

// =============================================================================
// HELPERS
// =============================================================================

func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

func nullTime(t *time.Time) sql.NullString {
	if t == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: t.UTC().Format(time.RFC3339Nano), Valid: true}
}

func parseTime(s string) (time.Time, error) {
	return time.Parse(time.RFC3339Nano, s)
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func isUniqueConstraintError(err error) bool {
	return err != nil && (strings.Contains(err.Error(), "UNIQUE constraint failed") ||
		strings.Contains(err.Error(), "duplicate key"))
}

package sqlite

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/warp/payroll-engine/deduction"
	"github.com/warp/payroll-engine/engine"
	"github.com/warp/payroll-engine/payroll"
	"github.com/warp/payroll-engine/tax"
)

// =============================================================================
// EMPLOYEE STORE
// =============================================================================

// PutEmployee seeds or replaces one HR record.
func (s *Store) PutEmployee(e payroll.Employee) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.Exec(`
		INSERT INTO employees (id, full_name, mode, base_salary, daily_rate, currency)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			full_name = excluded.full_name,
			mode = excluded.mode,
			base_salary = excluded.base_salary,
			daily_rate = excluded.daily_rate,
			currency = excluded.currency
	`, e.ID, e.FullName, string(e.Mode), e.BaseSalary.Value.String(), e.DailyRate.Value.String(), e.Currency)
	if err != nil {
		return fmt.Errorf("failed to save employee: %w", err)
	}
	return nil
}

func (s *Store) GetEmployee(id string) (payroll.Employee, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	row := s.db.QueryRow(`
		SELECT id, full_name, mode, base_salary, daily_rate, currency
		FROM employees WHERE id = ?
	`, id)

	e, err := scanEmployee(row)
	if err == sql.ErrNoRows {
		return payroll.Employee{}, &engine.NotFoundError{Entity: "employee", ID: id}
	}
	return e, err
}

func (s *Store) ListEmployees() ([]payroll.Employee, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.Query(`
		SELECT id, full_name, mode, base_salary, daily_rate, currency
		FROM employees ORDER BY id
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []payroll.Employee
	for rows.Next() {
		e, err := scanEmployee(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanEmployee(row rowScanner) (payroll.Employee, error) {
	var e payroll.Employee
	var mode, base, daily string
	if err := row.Scan(&e.ID, &e.FullName, &mode, &base, &daily, &e.Currency); err != nil {
		return payroll.Employee{}, err
	}
	e.Mode = payroll.RemunerationMode(mode)

	var err error
	if e.BaseSalary, err = parseAmount(base, e.Currency); err != nil {
		return payroll.Employee{}, err
	}
	if e.DailyRate, err = parseAmount(daily, e.Currency); err != nil {
		return payroll.Employee{}, err
	}
	return e, nil
}

func parseAmount(value, currency string) (engine.Amount, error) {
	d, err := decimal.NewFromString(value)
	if err != nil {
		return engine.Amount{}, fmt.Errorf("corrupt amount column %q: %w", value, err)
	}
	return engine.NewAmountFromDecimal(d, currency), nil
}

// =============================================================================
// PERIOD STORE
// =============================================================================

func (s *Store) SavePeriod(p engine.PayPeriod) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.Exec(`
		INSERT INTO pay_periods (id, year, month, status)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET status = excluded.status
	`, p.ID, p.Year, int(p.Month), string(p.Status))
	if err != nil {
		if isUniqueConstraintError(err) {
			return &engine.StateConflictError{
				Entity:  "pay period",
				ID:      p.Key(),
				State:   string(p.Status),
				Attempt: "create duplicate period",
			}
		}
		return fmt.Errorf("failed to save period: %w", err)
	}
	return nil
}

func (s *Store) GetPeriod(id string) (engine.PayPeriod, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.getPeriod(s.db, `SELECT id, year, month, status FROM pay_periods WHERE id = ?`, id)
}

func (s *Store) GetPeriodByKey(year int, month time.Month) (engine.PayPeriod, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.getPeriod(s.db,
		`SELECT id, year, month, status FROM pay_periods WHERE year = ? AND month = ?`,
		year, int(month))
}

type querier interface {
	QueryRow(query string, args ...any) *sql.Row
}

func (s *Store) getPeriod(db querier, query string, args ...any) (engine.PayPeriod, error) {
	var p engine.PayPeriod
	var month int
	var status string
	err := db.QueryRow(query, args...).Scan(&p.ID, &p.Year, &month, &status)
	if err == sql.ErrNoRows {
		return engine.PayPeriod{}, &engine.NotFoundError{Entity: "pay period", ID: fmt.Sprint(args[0])}
	}
	if err != nil {
		return engine.PayPeriod{}, err
	}
	p.Month = time.Month(month)
	p.Status = engine.PeriodStatus(status)
	return p, nil
}

func (s *Store) ListPeriods() ([]engine.PayPeriod, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.Query(`SELECT id, year, month, status FROM pay_periods ORDER BY year, month`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []engine.PayPeriod
	for rows.Next() {
		var p engine.PayPeriod
		var month int
		var status string
		if err := rows.Scan(&p.ID, &p.Year, &month, &status); err != nil {
			return nil, err
		}
		p.Month = time.Month(month)
		p.Status = engine.PeriodStatus(status)
		out = append(out, p)
	}
	return out, rows.Err()
}

// =============================================================================
// PAYSLIP STORE
// =============================================================================

// SavePayslip writes one payslip inside a transaction that re-checks
// the period's status. A LOCKED period aborts the write; the check and
// the write are atomic, so the lock flag cannot race.
func (s *Store) SavePayslip(p payroll.Payslip) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	var status string
	err = tx.QueryRow(`SELECT status FROM pay_periods WHERE id = ?`, p.PeriodID).Scan(&status)
	if err == sql.ErrNoRows {
		return &engine.NotFoundError{Entity: "pay period", ID: p.PeriodID}
	}
	if err != nil {
		return err
	}
	if engine.PeriodStatus(status) == engine.PeriodLocked {
		return &engine.StateConflictError{
			Entity:  "pay period",
			ID:      p.PeriodID,
			State:   string(engine.PeriodLocked),
			Attempt: "write payslip",
		}
	}

	contributions, err := marshalSchemeAmounts(p.Contributions)
	if err != nil {
		return err
	}
	deductions, err := marshalTypeAmounts(p.DeductionsByType)
	if err != nil {
		return err
	}

	_, err = tx.Exec(`
		INSERT INTO payslips (
			id, period_id, employee_id, base_salary, days_worked, bonuses,
			arrears, gross, contributions_json, total_social, taxable_base,
			income_tax, deductions_json, total_deductions, net, currency,
			settings_version, status, journal_entry_id, computed_at, validated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			base_salary = excluded.base_salary,
			days_worked = excluded.days_worked,
			bonuses = excluded.bonuses,
			arrears = excluded.arrears,
			gross = excluded.gross,
			contributions_json = excluded.contributions_json,
			total_social = excluded.total_social,
			taxable_base = excluded.taxable_base,
			income_tax = excluded.income_tax,
			deductions_json = excluded.deductions_json,
			total_deductions = excluded.total_deductions,
			net = excluded.net,
			settings_version = excluded.settings_version,
			status = excluded.status,
			journal_entry_id = excluded.journal_entry_id,
			computed_at = excluded.computed_at,
			validated_at = excluded.validated_at
	`,
		p.ID, p.PeriodID, p.EmployeeID,
		p.BaseSalary.Value.String(), p.DaysWorked,
		p.Bonuses.Value.String(), p.Arrears.Value.String(), p.Gross.Value.String(),
		contributions, p.TotalSocial.Value.String(), p.TaxableBase.Value.String(),
		p.IncomeTax.Value.String(), deductions, p.TotalDeductions.Value.String(),
		p.Net.Value.String(), p.Currency, p.SettingsVersion, string(p.Status),
		nullString(p.JournalEntryID), formatTime(p.ComputedAt), nullTime(p.ValidatedAt),
	)
	if err != nil {
		if isUniqueConstraintError(err) {
			return &engine.StateConflictError{
				Entity:  "payslip",
				ID:      p.PeriodID + "/" + p.EmployeeID,
				State:   "exists",
				Attempt: "create second payslip for period/employee",
			}
		}
		return fmt.Errorf("failed to save payslip: %w", err)
	}

	return tx.Commit()
}

const payslipColumns = `
	id, period_id, employee_id, base_salary, days_worked, bonuses, arrears,
	gross, contributions_json, total_social, taxable_base, income_tax,
	deductions_json, total_deductions, net, currency, settings_version,
	status, journal_entry_id, computed_at, validated_at`

func (s *Store) GetPayslip(id string) (payroll.Payslip, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	row := s.db.QueryRow(`SELECT `+payslipColumns+` FROM payslips WHERE id = ?`, id)
	p, err := scanPayslip(row)
	if err == sql.ErrNoRows {
		return payroll.Payslip{}, &engine.NotFoundError{Entity: "payslip", ID: id}
	}
	return p, err
}

func (s *Store) PayslipForEmployee(periodID, employeeID string) (payroll.Payslip, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	row := s.db.QueryRow(`SELECT `+payslipColumns+` FROM payslips WHERE period_id = ? AND employee_id = ?`,
		periodID, employeeID)
	p, err := scanPayslip(row)
	if err == sql.ErrNoRows {
		return payroll.Payslip{}, &engine.NotFoundError{Entity: "payslip", ID: periodID + "/" + employeeID}
	}
	return p, err
}

func (s *Store) PayslipsForPeriod(periodID string) ([]payroll.Payslip, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.Query(`SELECT `+payslipColumns+` FROM payslips WHERE period_id = ? ORDER BY employee_id`,
		periodID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []payroll.Payslip
	for rows.Next() {
		p, err := scanPayslip(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func scanPayslip(row rowScanner) (payroll.Payslip, error) {
	var p payroll.Payslip
	var base, bonuses, arrears, gross, contributions, social, taxable string
	var incomeTax, deductions, totalDeductions, net, status string
	var journalEntryID, validatedAt sql.NullString
	var computedAt string

	err := row.Scan(
		&p.ID, &p.PeriodID, &p.EmployeeID, &base, &p.DaysWorked, &bonuses,
		&arrears, &gross, &contributions, &social, &taxable, &incomeTax,
		&deductions, &totalDeductions, &net, &p.Currency, &p.SettingsVersion,
		&status, &journalEntryID, &computedAt, &validatedAt,
	)
	if err != nil {
		return payroll.Payslip{}, err
	}

	p.Status = payroll.PayslipStatus(status)
	p.JournalEntryID = journalEntryID.String

	amounts := []struct {
		raw string
		dst *engine.Amount
	}{
		{base, &p.BaseSalary}, {bonuses, &p.Bonuses}, {arrears, &p.Arrears},
		{gross, &p.Gross}, {social, &p.TotalSocial}, {taxable, &p.TaxableBase},
		{incomeTax, &p.IncomeTax}, {totalDeductions, &p.TotalDeductions}, {net, &p.Net},
	}
	for _, a := range amounts {
		if *a.dst, err = parseAmount(a.raw, p.Currency); err != nil {
			return payroll.Payslip{}, err
		}
	}

	if p.Contributions, err = unmarshalSchemeAmounts(contributions, p.Currency); err != nil {
		return payroll.Payslip{}, err
	}
	if p.DeductionsByType, err = unmarshalTypeAmounts(deductions, p.Currency); err != nil {
		return payroll.Payslip{}, err
	}

	if p.ComputedAt, err = parseTime(computedAt); err != nil {
		return payroll.Payslip{}, err
	}
	if validatedAt.Valid {
		at, err := parseTime(validatedAt.String)
		if err != nil {
			return payroll.Payslip{}, err
		}
		p.ValidatedAt = &at
	}
	return p, nil
}

// =============================================================================
// PAYMENTS AND UNPAID BALANCES
// =============================================================================

func (s *Store) SavePayment(r payroll.PaymentRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.Exec(`
		INSERT INTO salary_payments (id, payslip_id, paid_at, amount, currency, mode, reference, journal_entry_id)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, r.ID, r.PayslipID, formatTime(r.Date), r.Amount.Value.String(), r.Amount.Currency,
		nullString(r.Mode), nullString(r.Reference), nullString(r.JournalEntryID))
	if err != nil {
		return fmt.Errorf("failed to save payment: %w", err)
	}
	return nil
}

func (s *Store) PaymentsForPayslip(payslipID string) ([]payroll.PaymentRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.Query(`
		SELECT id, payslip_id, paid_at, amount, currency, mode, reference, journal_entry_id
		FROM salary_payments WHERE payslip_id = ? ORDER BY paid_at
	`, payslipID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []payroll.PaymentRecord
	for rows.Next() {
		var r payroll.PaymentRecord
		var paidAt, amount, currency string
		var mode, reference, entryID sql.NullString
		if err := rows.Scan(&r.ID, &r.PayslipID, &paidAt, &amount, &currency, &mode, &reference, &entryID); err != nil {
			return nil, err
		}
		if r.Date, err = parseTime(paidAt); err != nil {
			return nil, err
		}
		if r.Amount, err = parseAmount(amount, currency); err != nil {
			return nil, err
		}
		r.Mode = mode.String
		r.Reference = reference.String
		r.JournalEntryID = entryID.String
		out = append(out, r)
	}
	return out, rows.Err()
}

func (s *Store) SaveUnpaid(u payroll.UnpaidSalary) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.Exec(`
		INSERT INTO unpaid_salaries (payslip_id, id, employee_id, original, outstanding, currency)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(payslip_id) DO UPDATE SET outstanding = excluded.outstanding
	`, u.PayslipID, u.ID, u.EmployeeID,
		u.Original.Value.String(), u.Outstanding.Value.String(), u.Original.Currency)
	if err != nil {
		return fmt.Errorf("failed to save unpaid salary: %w", err)
	}
	return nil
}

func (s *Store) UnpaidForPayslip(payslipID string) (payroll.UnpaidSalary, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var u payroll.UnpaidSalary
	var original, outstanding, currency string
	err := s.db.QueryRow(`
		SELECT payslip_id, id, employee_id, original, outstanding, currency
		FROM unpaid_salaries WHERE payslip_id = ?
	`, payslipID).Scan(&u.PayslipID, &u.ID, &u.EmployeeID, &original, &outstanding, &currency)
	if err == sql.ErrNoRows {
		return payroll.UnpaidSalary{}, &engine.NotFoundError{Entity: "unpaid salary", ID: payslipID}
	}
	if err != nil {
		return payroll.UnpaidSalary{}, err
	}
	if u.Original, err = parseAmount(original, currency); err != nil {
		return payroll.UnpaidSalary{}, err
	}
	if u.Outstanding, err = parseAmount(outstanding, currency); err != nil {
		return payroll.UnpaidSalary{}, err
	}
	return u, nil
}

// =============================================================================
// JSON BREAKDOWN COLUMNS
// =============================================================================

func marshalSchemeAmounts(m map[tax.Scheme]engine.Amount) (string, error) {
	out := make(map[string]string, len(m))
	for k, v := range m {
		out[string(k)] = v.Value.String()
	}
	b, err := json.Marshal(out)
	return string(b), err
}

func unmarshalSchemeAmounts(raw, currency string) (map[tax.Scheme]engine.Amount, error) {
	var in map[string]string
	if err := json.Unmarshal([]byte(raw), &in); err != nil {
		return nil, fmt.Errorf("corrupt contributions column: %w", err)
	}
	out := make(map[tax.Scheme]engine.Amount, len(in))
	for k, v := range in {
		a, err := parseAmount(v, currency)
		if err != nil {
			return nil, err
		}
		out[tax.Scheme(k)] = a
	}
	return out, nil
}

func marshalTypeAmounts(m map[deduction.Type]engine.Amount) (string, error) {
	out := make(map[string]string, len(m))
	for k, v := range m {
		out[string(k)] = v.Value.String()
	}
	b, err := json.Marshal(out)
	return string(b), err
}

func unmarshalTypeAmounts(raw, currency string) (map[deduction.Type]engine.Amount, error) {
	var in map[string]string
	if err := json.Unmarshal([]byte(raw), &in); err != nil {
		return nil, fmt.Errorf("corrupt deductions column: %w", err)
	}
	out := make(map[deduction.Type]engine.Amount, len(in))
	for k, v := range in {
		a, err := parseAmount(v, currency)
		if err != nil {
			return nil, err
		}
		out[deduction.Type(k)] = a
	}
	return out, nil
}

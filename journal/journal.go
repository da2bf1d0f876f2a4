package journal

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/warp/payroll-engine/engine"
)

// =============================================================================
// JOURNAL - Post / Confirm / CloseMonth
// =============================================================================

// Journal validates and persists entries against a Store.
type Journal struct {
	store Store
}

func New(store Store) *Journal {
	return &Journal{store: store}
}

// Post validates an entry and persists it as BROUILLON.
//
// Rejections, all before persistence:
//   - unknown operation type or account code
//   - no lines, non-positive line amounts, mixed currencies
//   - the entry's month is already closed
//   - debits and credits differ, checked in integer minor units with
//     zero tolerance
func (j *Journal) Post(e Entry) (Entry, error) {
	debits, err := j.check(e)
	if err != nil {
		return Entry{}, err
	}

	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	e.Status = StatusBrouillon
	e.Total = engine.FromMinorUnits(debits, e.Lines[0].Amount.Currency)

	if err := j.store.SaveEntry(e); err != nil {
		return Entry{}, err
	}
	return e, nil
}

// Check runs every Post rejection against an entry without persisting
// it. Batch operations use it to prove a whole set of entries would
// post before committing any of them.
func (j *Journal) Check(e Entry) error {
	_, err := j.check(e)
	return err
}

func (j *Journal) check(e Entry) (int64, error) {
	if !e.Operation.Valid() {
		return 0, &engine.ValidationError{
			Field:  "operation",
			Detail: fmt.Sprintf("unknown operation type %q", e.Operation),
		}
	}
	if len(e.Lines) == 0 {
		return 0, &engine.ValidationError{Field: "lines", Detail: "entry has no lines"}
	}

	closed, err := j.store.IsMonthClosed(e.Date.Year(), e.Date.Month())
	if err != nil {
		return 0, err
	}
	if closed {
		return 0, &engine.StateConflictError{
			Entity:  "accounting month",
			ID:      fmt.Sprintf("%04d-%02d", e.Date.Year(), int(e.Date.Month())),
			State:   string(StatusCloture),
			Attempt: "post journal entry",
		}
	}

	debits, credits, err := j.balance(e.Lines)
	if err != nil {
		return 0, err
	}
	if debits != credits {
		return 0, &engine.ValidationError{
			Field:  "lines",
			Detail: fmt.Sprintf("unbalanced entry: debits %d != credits %d (minor units)", debits, credits),
		}
	}
	return debits, nil
}

// balance sums both sides in integer minor units. Line amounts must be
// positive, rounded to currency precision, and share one currency.
func (j *Journal) balance(lines []Line) (debits, credits int64, err error) {
	currency := lines[0].Amount.Currency

	for i, l := range lines {
		if !KnownAccount(l.AccountCode) {
			return 0, 0, &engine.ValidationError{
				Field:  fmt.Sprintf("lines[%d].account", i),
				Detail: fmt.Sprintf("unknown account code %q", l.AccountCode),
			}
		}
		if !l.Amount.IsPositive() {
			return 0, 0, &engine.ValidationError{
				Field:  fmt.Sprintf("lines[%d].amount", i),
				Detail: "line amount must be positive, got " + l.Amount.String(),
			}
		}
		if l.Amount.Currency != currency {
			return 0, 0, &engine.ValidationError{
				Field:  fmt.Sprintf("lines[%d].currency", i),
				Detail: fmt.Sprintf("mixed currencies %s and %s in one entry", currency, l.Amount.Currency),
			}
		}

		minor, err := l.Amount.MinorUnits()
		if err != nil {
			return 0, 0, err
		}
		switch l.Direction {
		case Debit:
			debits += minor
		case Credit:
			credits += minor
		default:
			return 0, 0, &engine.ValidationError{
				Field:  fmt.Sprintf("lines[%d].direction", i),
				Detail: fmt.Sprintf("unknown direction %q", l.Direction),
			}
		}
	}
	return debits, credits, nil
}

// Confirm transitions BROUILLON -> VALIDE. Anything past BROUILLON is
// immutable, so confirming twice is a state conflict.
func (j *Journal) Confirm(id string) (Entry, error) {
	e, err := j.store.GetEntry(id)
	if err != nil {
		return Entry{}, err
	}
	if err := e.GuardMutable("confirm"); err != nil {
		return Entry{}, err
	}
	e.Status = StatusValide
	if err := j.store.SaveEntry(e); err != nil {
		return Entry{}, err
	}
	return e, nil
}

// Reverse posts the offsetting entry for a VALIDE entry. The original
// is never edited.
func (j *Journal) Reverse(id string, date time.Time) (Entry, error) {
	e, err := j.store.GetEntry(id)
	if err != nil {
		return Entry{}, err
	}
	if e.Status == StatusBrouillon {
		return Entry{}, &engine.StateConflictError{
			Entity:  "journal entry",
			ID:      e.ID,
			State:   string(StatusBrouillon),
			Attempt: "reverse an unconfirmed entry",
		}
	}
	return j.Post(ReversalOf(e, date))
}

// CloseMonth marks (year, month) CLOTURE. Every entry in the month must
// already be VALIDE; a lingering BROUILLON blocks the close. Closed
// months reject all further postings.
func (j *Journal) CloseMonth(year int, month time.Month) error {
	closed, err := j.store.IsMonthClosed(year, month)
	if err != nil {
		return err
	}
	if closed {
		return &engine.StateConflictError{
			Entity:  "accounting month",
			ID:      fmt.Sprintf("%04d-%02d", year, int(month)),
			State:   string(StatusCloture),
			Attempt: "close month",
		}
	}

	entries, err := j.store.EntriesForMonth(year, month)
	if err != nil {
		return err
	}
	for _, e := range entries {
		if e.Status == StatusBrouillon {
			return &engine.StateConflictError{
				Entity:  "journal entry",
				ID:      e.ID,
				State:   string(StatusBrouillon),
				Attempt: "close month with unconfirmed entries",
			}
		}
	}

	for _, e := range entries {
		e.Status = StatusCloture
		if err := j.store.SaveEntry(e); err != nil {
			return err
		}
	}
	return j.store.MarkMonthClosed(year, month)
}

// Get returns one entry.
func (j *Journal) Get(id string) (Entry, error) {
	return j.store.GetEntry(id)
}

// Month returns the entries of one accounting month.
func (j *Journal) Month(year int, month time.Month) ([]Entry, error) {
	return j.store.EntriesForMonth(year, month)
}

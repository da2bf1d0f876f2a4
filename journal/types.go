/*
Package journal implements the OHADA double-entry journal.

PURPOSE:
  Every money-moving event (payroll run, salary disbursement,
  social-charge payment, debt/loan creation and repayment) becomes one
  JournalEntry with debit/credit lines that balance exactly.

KEY CONCEPTS:
  - Entry: One business event, lifecycle BROUILLON -> VALIDE -> CLOTURE.
    VALIDE entries are immutable: corrections are new offsetting
    entries, never edits.
  - Line: One debit or credit against an OHADA account code.
  - Balance invariant: sum(debits) == sum(credits) in integer minor
    units, zero tolerance. Checked before persistence.

SEE ALSO:
  - accounts.go: The OHADA chart subset and event-specific posting builders
  - journal.go: Post / Confirm / CloseMonth
*/
package journal

import (
	"time"

	"github.com/warp/payroll-engine/engine"
)

// =============================================================================
// ENUMS - Operation types, statuses, directions (OHADA vocabulary)
// =============================================================================

// OperationType classifies the business event behind an entry.
type OperationType string

const (
	OpPaie            OperationType = "PAIE"
	OpPaiementSalaire OperationType = "PAIEMENT_SALAIRE"
	OpPaiementCharges OperationType = "PAIEMENT_CHARGES"
	OpDepense         OperationType = "DEPENSE"
	OpRecette         OperationType = "RECETTE"
	OpAutre           OperationType = "AUTRE"
)

// Valid reports whether the operation type is part of the vocabulary.
func (o OperationType) Valid() bool {
	switch o {
	case OpPaie, OpPaiementSalaire, OpPaiementCharges, OpDepense, OpRecette, OpAutre:
		return true
	}
	return false
}

// EntryStatus is the entry lifecycle. One-directional.
type EntryStatus string

const (
	StatusBrouillon EntryStatus = "BROUILLON"
	StatusValide    EntryStatus = "VALIDE"
	StatusCloture   EntryStatus = "CLOTURE"
)

// Direction is the side of a journal line.
type Direction string

const (
	Debit  Direction = "DEBIT"
	Credit Direction = "CREDIT"
)

// =============================================================================
// ENTRY AND LINE
// =============================================================================

// Line is one debit or credit against an OHADA account.
type Line struct {
	AccountCode string
	Direction   Direction
	Amount      engine.Amount

	// Optional counterparty reference (employee, debt, payment id).
	Reference string
}

// Entry is one balanced business event.
type Entry struct {
	ID        string
	Date      time.Time
	Label     string
	Operation OperationType

	// Total is the debit-side sum, set by Post.
	Total engine.Amount

	Status EntryStatus
	Lines  []Line
}

// GuardMutable rejects writes to entries past BROUILLON.
func (e Entry) GuardMutable(attempt string) error {
	if e.Status == StatusBrouillon {
		return nil
	}
	return &engine.StateConflictError{
		Entity:  "journal entry",
		ID:      e.ID,
		State:   string(e.Status),
		Attempt: attempt,
	}
}

// =============================================================================
// STORE CONTRACT
// =============================================================================

// Store persists entries and the set of closed accounting months.
// Entries are never deleted; reversals are new entries.
type Store interface {
	SaveEntry(e Entry) error
	GetEntry(id string) (Entry, error)
	EntriesForMonth(year int, month time.Month) ([]Entry, error)

	IsMonthClosed(year int, month time.Month) (bool, error)
	MarkMonthClosed(year int, month time.Month) error
}

package deduction

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/warp/payroll-engine/engine"
)

// =============================================================================
// RESOLUTION RESULT
// =============================================================================

// ResolvedItem is one obligation's outcome for the period.
type ResolvedItem struct {
	Obligation Obligation
	Entry      ScheduleEntry
}

// Resolution is the outcome of resolving one employee's deductions for
// one period. Flags carry cap hits that limited an application; they are
// informational, never errors.
type Resolution struct {
	Items        []ResolvedItem
	TotalApplied engine.Amount
	NetAfter     engine.Amount
	Flags        []*engine.CapExceededFlag
}

// =============================================================================
// RESOLVER
// =============================================================================

// Resolver applies an employee's active obligations to one pay period.
//
// The algorithm, in order, for each obligation by priority then age:
//  1. determine the scheduled amount from the schedule kind
//  2. clamp to the obligation's remaining balance
//  3. clamp to the obligation's own per-period cap
//  4. clamp to the type's percent-of-salary cap for the period
//  5. clamp to the net still available (net pay never goes negative)
//
// Whatever cannot be applied stays in the balance and rolls over to the
// next period, surfaced as a CapExceededFlag rather than an error.
//
// An obligation denominated in a different currency than the net is
// skipped and flagged, never converted.
//
// Resolution is idempotent for unvalidated periods: a re-run first
// reverts its own previous applications, so recomputing a draft payslip
// never double-deducts.
type Resolver struct {
	store Store
	caps  CapPolicy
}

func NewResolver(store Store, caps CapPolicy) *Resolver {
	return &Resolver{store: store, caps: caps}
}

// Resolve applies the employee's obligations against availableNet (the
// net salary before deductions) for the given period.
func (r *Resolver) Resolve(employeeID string, period engine.PayPeriod, availableNet engine.Amount) (Resolution, error) {
	if err := period.GuardWritable("resolve deductions"); err != nil {
		return Resolution{}, err
	}
	if availableNet.IsNegative() {
		return Resolution{}, &engine.ValidationError{
			Field:  "available net",
			Detail: "must not be negative, got " + availableNet.String(),
		}
	}

	previous, err := r.store.EntriesForPeriod(employeeID, period.Year, period.Month)
	if err != nil {
		return Resolution{}, err
	}
	if err := r.revertPrevious(previous); err != nil {
		return Resolution{}, err
	}

	obligations, err := r.store.ActiveObligations(employeeID)
	if err != nil {
		return Resolution{}, err
	}

	res := Resolution{
		TotalApplied: availableNet.Zero(),
		NetAfter:     availableNet,
	}
	typeConsumed := make(map[Type]engine.Amount)

	for _, o := range obligations {
		entry := r.entryFor(o, period, previous)

		scheduled, skipNote := r.scheduledAmount(o, previous)
		if !o.Total.SameCurrency(availableNet) {
			skipNote = fmt.Sprintf("obligation in %s cannot deduct from %s net pay",
				o.Total.Currency, availableNet.Currency)
		}
		if skipNote != "" {
			entry.Scheduled = availableNet.Zero()
			entry.Applied = availableNet.Zero()
			entry.Status = EntryFailed
			entry.Note = skipNote
			if err := r.store.SaveScheduleEntry(entry); err != nil {
				return Resolution{}, err
			}
			res.Items = append(res.Items, ResolvedItem{Obligation: o, Entry: entry})
			continue
		}

		entry.Scheduled = scheduled
		applied, flag := r.clamp(o, scheduled, res.NetAfter, availableNet, typeConsumed)

		entry.Applied = applied
		switch {
		case applied.IsPositive():
			entry.Status = EntryApplied
		default:
			entry.Status = EntrySkipped
		}
		if flag != nil {
			entry.Note = fmt.Sprintf("capped at %s of %s scheduled, remainder rolls over", applied, scheduled)
			res.Flags = append(res.Flags, flag)
		}

		if applied.IsPositive() {
			o.Apply(applied)
			if err := r.store.SaveObligation(o); err != nil {
				return Resolution{}, err
			}

			consumed, ok := typeConsumed[o.Type]
			if !ok {
				consumed = availableNet.Zero()
			}
			typeConsumed[o.Type] = consumed.Add(applied)

			res.TotalApplied = res.TotalApplied.Add(applied)
			res.NetAfter = res.NetAfter.Sub(applied)
		}

		if err := r.store.SaveScheduleEntry(entry); err != nil {
			return Resolution{}, err
		}
		res.Items = append(res.Items, ResolvedItem{Obligation: o, Entry: entry})
	}

	return res, nil
}

// revertPrevious undoes this resolver's earlier applications for the
// period so a re-run starts from a clean slate.
func (r *Resolver) revertPrevious(previous map[string]ScheduleEntry) error {
	for _, entry := range previous {
		if entry.Status != EntryApplied || !entry.Applied.IsPositive() {
			continue
		}
		o, err := r.store.GetObligation(entry.ObligationID)
		if err != nil {
			return err
		}
		o.Revert(entry.Applied)
		if err := r.store.SaveObligation(o); err != nil {
			return err
		}
	}
	return nil
}

// entryFor reuses the prior entry for (obligation, period) when one
// exists, keeping the (obligation, year, month) key unique.
func (r *Resolver) entryFor(o Obligation, period engine.PayPeriod, previous map[string]ScheduleEntry) ScheduleEntry {
	if prior, ok := previous[o.ID]; ok {
		prior.Note = ""
		return prior
	}
	return ScheduleEntry{
		ID:           uuid.NewString(),
		ObligationID: o.ID,
		Year:         period.Year,
		Month:        period.Month,
	}
}

// scheduledAmount derives the period's planned deduction from the
// schedule kind. A non-empty note means the obligation is misconfigured
// and must be skipped and flagged, never guessed at.
func (r *Resolver) scheduledAmount(o Obligation, previous map[string]ScheduleEntry) (engine.Amount, string) {
	remaining := o.Remaining()

	switch o.Schedule {
	case ScheduleOneTime:
		return remaining, ""

	case ScheduleInstallments, ScheduleRecurring:
		if o.InstallmentAmount == nil || !o.InstallmentAmount.IsPositive() {
			return remaining.Zero(), fmt.Sprintf("%s schedule without a positive installment amount", o.Schedule)
		}
		// The final installment absorbs any remainder smaller than the
		// fixed amount.
		return o.InstallmentAmount.Min(remaining), ""

	case ScheduleCustom:
		prior, ok := previous[o.ID]
		if !ok {
			return remaining.Zero(), "custom schedule has no entry planned for this period"
		}
		return prior.Scheduled.Min(remaining), ""

	default:
		return remaining.Zero(), fmt.Sprintf("unknown schedule kind %q", o.Schedule)
	}
}

// =============================================================================
// CUSTOM SCHEDULE PLANNING
// =============================================================================

// PlannedDeduction is one period's planned amount in a CUSTOM schedule.
type PlannedDeduction struct {
	Year   int
	Month  time.Month
	Amount engine.Amount
}

// PlanCustomSchedule registers the per-period amounts of a CUSTOM
// obligation as PENDING schedule entries; Resolve picks up the entry
// whose period comes due. Periods left unplanned are skipped and
// flagged at resolution time.
func PlanCustomSchedule(store Store, obligationID string, plan []PlannedDeduction) ([]ScheduleEntry, error) {
	o, err := store.GetObligation(obligationID)
	if err != nil {
		return nil, err
	}
	if o.Schedule != ScheduleCustom {
		return nil, &engine.ValidationError{
			Field:  "schedule",
			Detail: fmt.Sprintf("planned entries require a CUSTOM schedule, got %s", o.Schedule),
		}
	}
	if len(plan) == 0 {
		return nil, &engine.ValidationError{Field: "plan", Detail: "no entries planned"}
	}

	entries := make([]ScheduleEntry, 0, len(plan))
	for i, p := range plan {
		if p.Month < time.January || p.Month > time.December {
			return nil, &engine.ValidationError{
				Field:  fmt.Sprintf("plan[%d].month", i),
				Detail: fmt.Sprintf("month %d out of range", p.Month),
			}
		}
		if !p.Amount.IsPositive() {
			return nil, &engine.ValidationError{
				Field:  fmt.Sprintf("plan[%d].amount", i),
				Detail: "planned amount must be positive, got " + p.Amount.String(),
			}
		}
		if !p.Amount.SameCurrency(o.Total) {
			return nil, &engine.ValidationError{
				Field:  fmt.Sprintf("plan[%d].amount", i),
				Detail: fmt.Sprintf("planned in %s, obligation in %s", p.Amount.Currency, o.Total.Currency),
			}
		}
		entry := ScheduleEntry{
			ID:           uuid.NewString(),
			ObligationID: o.ID,
			Year:         p.Year,
			Month:        p.Month,
			Scheduled:    p.Amount,
			Applied:      o.Total.Zero(),
			Status:       EntryPending,
		}
		if err := store.SaveScheduleEntry(entry); err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}
	return entries, nil
}

// clamp applies the cap chain and reports whether any cap limited the
// application. availableNet is the period's full net before deductions,
// the base for percent-of-salary caps; netLeft is what is still
// unconsumed when this obligation's turn comes.
func (r *Resolver) clamp(o Obligation, scheduled, netLeft, availableNet engine.Amount, typeConsumed map[Type]engine.Amount) (engine.Amount, *engine.CapExceededFlag) {
	applied := scheduled
	limit := ""

	if o.PerPeriodCap != nil && applied.GreaterThan(*o.PerPeriodCap) {
		applied = *o.PerPeriodCap
		limit = "per-obligation"
	}

	if rate, ok := r.caps[o.Type]; ok {
		typeCap := availableNet.MulRate(rate).Round()
		if consumed, ok := typeConsumed[o.Type]; ok {
			typeCap = typeCap.Sub(consumed).FloorZero()
		}
		if applied.GreaterThan(typeCap) {
			applied = typeCap
			limit = fmt.Sprintf("%s percent-of-salary", o.Type)
		}
	}

	if applied.GreaterThan(netLeft) {
		applied = netLeft
		limit = "available net"
	}

	if limit == "" {
		return applied, nil
	}
	return applied, &engine.CapExceededFlag{
		ObligationID: o.ID,
		Cap:          limit,
		Requested:    scheduled,
		Applied:      applied,
		RolledOver:   scheduled.Sub(applied),
	}
}

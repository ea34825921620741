// Package policy holds the pure lifecycle decision functions. Every function
// takes an explicit Clock so decisions are reproducible in tests without
// mocking time.
//
// Two predicates exist per action: a "due" predicate (the schedule says the
// action should happen now) and a "safe" predicate (due, plus proof that a
// warning was recorded at least WarningDays ago). Actions only ever fire on
// the safe predicate.
package policy

import (
	"time"

	"github.com/elC0mpa/aws-reaper/schedule"
)

// WarningDays is the minimum number of days between a recorded warning and a
// destructive action.
const WarningDays = 3

// StoppableState is the only instance state a stop applies to.
const StoppableState = "running"

// Clock carries the dates a policy decision is made against.
type Clock struct {
	Today     time.Time
	IsWeekend bool
}

// NewClock builds a Clock for the given wall time. Friday counts as the
// weekend so resources scheduled "On Weekends" are handled before the weekend
// actually starts.
func NewClock(now time.Time) Clock {
	// Tag dates parse as UTC midnight, so Today must be the same shape for
	// the comparisons to line up.
	year, month, day := now.Date()
	wd := now.Weekday()
	return Clock{
		Today:     time.Date(year, month, day, 0, 0, 0, 0, time.UTC),
		IsWeekend: wd == time.Friday || wd == time.Saturday || wd == time.Sunday,
	}
}

// MinWarningDate is the most recent warning date that still satisfies the
// warning period.
func (c Clock) MinWarningDate() time.Time {
	return c.Today.AddDate(0, 0, -WarningDays)
}

// datePassed reports whether date is set and today is on or after it.
func datePassed(date *time.Time, today time.Time) bool {
	return date != nil && !today.Before(*date)
}

// warnedInTime reports whether a warning was recorded at least WarningDays
// ago.
func warnedInTime(tag schedule.Tag, clock Clock) bool {
	return tag.WarningDate != nil && !tag.WarningDate.After(clock.MinWarningDate())
}

// Stoppable reports whether the stop schedule is due. An unset schedule is
// treated as due now, so untagged running instances get flagged rather than
// ignored.
func Stoppable(state string, tag schedule.Tag, clock Clock) bool {
	if state != StoppableState {
		return false
	}
	return (tag.ExpiryDate == nil && !tag.OnWeekends) ||
		(tag.OnWeekends && clock.IsWeekend) ||
		datePassed(tag.ExpiryDate, clock.Today)
}

// SafeToStop reports whether an instance may actually be stopped: the stop
// schedule is due and a warning was recorded at least WarningDays ago.
func SafeToStop(state string, tag schedule.Tag, clock Clock) bool {
	return Stoppable(state, tag, clock) && warnedInTime(tag, clock)
}

// Terminatable reports whether the terminate schedule is due. Unlike stop, an
// unset expiry date is never due: destroying an untagged resource is too
// risky, so termination always requires an explicit date.
func Terminatable(state, baseState string, tag schedule.Tag, clock Clock) bool {
	return state == baseState && datePassed(tag.ExpiryDate, clock.Today)
}

// SafeToTerminate reports whether a resource may actually be destroyed: the
// terminate schedule is due and a warning was recorded at least WarningDays
// ago. The warning lives in the tag itself, so it survives across runs.
func SafeToTerminate(state, baseState string, tag schedule.Tag, clock Clock) bool {
	return Terminatable(state, baseState, tag, clock) && warnedInTime(tag, clock)
}

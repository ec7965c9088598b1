/*
period.go - Current-window calculation for calendar recurrences

PURPOSE:
  Computes the half-open window [period_start, period_end) that contains
  "now" for a given recurrence type, anchor date, and daily reset time.
  Pure functions, no I/O.

WHY A SINGLE CALCULATOR:
  Every reconciler AND the confirmation service derive windows from this
  one code path. Duplicating this math is the primary correctness risk:
  "what the scheduler considers current" must never drift from "what
  confirmation considers current".

BOUNDARY ANCHORING:
  All comparisons happen after applying the reset time to the relevant
  date, so "day" boundaries are the configured reset hour, not midnight.

MONTH/YEAR WALK:
  Monthly and yearly windows walk forward from the anchor one period at a
  time, clamping short months (Jan 31 + 1 month = Feb 28/29). The walk is
  bounded so a misconfigured anchor cannot loop forever.

SEE ALSO:
  - rule.go: Mode dispatch that feeds this calculator
  - types.go: Period and ResetTime definitions
*/
package engine

import "time"

// maxPeriodWalk bounds the month/year walk. 600 months = 50 years of
// monthly periods from the anchor; anything past that is a config error.
const maxPeriodWalk = 600

// CurrentPeriod returns the half-open window [start, end) containing now
// for the given recurrence type, expressed in the same time base as anchor.
// Deterministic for a given now.
func CurrentPeriod(rt RecurrenceType, anchor time.Time, reset ResetTime, now time.Time) Period {
	switch rt {
	case RecurrenceDaily:
		return dailyPeriod(reset, now)
	case RecurrenceWeekly:
		return weeklyPeriod(anchor, reset, now)
	case RecurrenceMonthly:
		return walkPeriod(anchor, reset, now, addMonthsClamped)
	case RecurrenceYearly:
		return walkPeriod(anchor, reset, now, addYearsClamped)
	default:
		// ONCE and unrecognized types degrade to a single 1-day window
		// at the anchor.
		start := reset.On(anchor)
		return Period{Start: start, End: start.AddDate(0, 0, 1)}
	}
}

// dailyPeriod anchors on today's reset instant: if now precedes it, the
// current period started yesterday at reset time.
func dailyPeriod(reset ResetTime, now time.Time) Period {
	start := reset.On(now)
	if now.Before(start) {
		start = start.AddDate(0, 0, -1)
	}
	return Period{Start: start, End: start.AddDate(0, 0, 1)}
}

// weeklyPeriod advances whole 7-day strides from the anchor's reset
// instant. A now before the anchor clamps to the anchor's first period.
func weeklyPeriod(anchor time.Time, reset ResetTime, now time.Time) Period {
	start := reset.On(anchor)
	if now.After(start) {
		weeks := int(now.Sub(start) / (7 * 24 * time.Hour))
		start = start.AddDate(0, 0, weeks*7)
	}
	return Period{Start: start, End: start.AddDate(0, 0, 7)}
}

// walkPeriod steps forward from the anchor one period at a time until the
// window contains now. Each step is computed from the anchor by index, not
// cumulatively, so short-month clamping does not drift.
func walkPeriod(anchor time.Time, reset ResetTime, now time.Time, step func(time.Time, int) time.Time) Period {
	for i := 0; i < maxPeriodWalk; i++ {
		start := reset.On(step(anchor, i))
		end := reset.On(step(anchor, i+1))
		if now.Before(end) {
			// Also covers a future anchor: the first period is returned.
			return Period{Start: start, End: end}
		}
	}
	// Walk exhausted: anchor is too far in the past to be meaningful.
	// Fall back to a 1-day window so callers still get a valid period.
	start := reset.On(now)
	if now.Before(start) {
		start = start.AddDate(0, 0, -1)
	}
	return Period{Start: start, End: start.AddDate(0, 0, 1)}
}

// addMonthsClamped adds n calendar months, clamping the day to the last
// day of the target month (Jan 31 + 1 month = Feb 28/29, never Mar 3).
func addMonthsClamped(t time.Time, n int) time.Time {
	months := int(t.Month()) - 1 + n
	year := t.Year() + months/12
	month := time.Month(months%12 + 1)

	day := t.Day()
	if last := daysInMonth(year, month); day > last {
		day = last
	}
	return time.Date(year, month, day, t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), t.Location())
}

// addYearsClamped adds n years, clamping Feb 29 to Feb 28 off leap years.
func addYearsClamped(t time.Time, n int) time.Time {
	year := t.Year() + n
	day := t.Day()
	if last := daysInMonth(year, t.Month()); day > last {
		day = last
	}
	return time.Date(year, t.Month(), day, t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), t.Location())
}

func daysInMonth(year int, month time.Month) int {
	// Day 0 of the next month is the last day of this month.
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

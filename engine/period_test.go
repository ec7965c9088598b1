package engine_test

import (
	"testing"
	"time"

	"github.com/warp/mission-engine/engine"
)

// =============================================================================
// TEST HELPERS
// =============================================================================

func day(year int, month time.Month, d int) time.Time {
	return time.Date(year, month, d, 0, 0, 0, 0, time.UTC)
}

func at(year int, month time.Month, d, hour, min int) time.Time {
	return time.Date(year, month, d, hour, min, 0, 0, time.UTC)
}

// =============================================================================
// DAILY PERIODS
// =============================================================================

func TestCurrentPeriod_Daily_MidnightReset(t *testing.T) {
	// GIVEN: Daily recurrence anchored 2025-01-01 with midnight reset
	// WHEN: Now is mid-morning on January 3rd
	// THEN: The window is [Jan 3 00:00, Jan 4 00:00)

	p := engine.CurrentPeriod(engine.RecurrenceDaily, day(2025, time.January, 1), engine.ResetTime{}, at(2025, time.January, 3, 10, 0))

	if !p.Start.Equal(day(2025, time.January, 3)) {
		t.Errorf("start = %v, want Jan 3 midnight", p.Start)
	}
	if !p.End.Equal(day(2025, time.January, 4)) {
		t.Errorf("end = %v, want Jan 4 midnight", p.End)
	}
}

func TestCurrentPeriod_Daily_BeforeResetTime(t *testing.T) {
	// GIVEN: Daily recurrence with a 04:00 reset
	// WHEN: Now is 02:00, before today's reset instant
	// THEN: The current window started yesterday at 04:00

	reset := engine.ResetTime{Hour: 4}
	p := engine.CurrentPeriod(engine.RecurrenceDaily, day(2025, time.January, 1), reset, at(2025, time.January, 3, 2, 0))

	if !p.Start.Equal(at(2025, time.January, 2, 4, 0)) {
		t.Errorf("start = %v, want Jan 2 04:00", p.Start)
	}
	if !p.End.Equal(at(2025, time.January, 3, 4, 0)) {
		t.Errorf("end = %v, want Jan 3 04:00", p.End)
	}
}

func TestCurrentPeriod_Daily_AfterResetTime(t *testing.T) {
	// GIVEN: Daily recurrence with a 04:00 reset
	// WHEN: Now is 10:00, after today's reset instant
	// THEN: The current window started today at 04:00

	reset := engine.ResetTime{Hour: 4}
	p := engine.CurrentPeriod(engine.RecurrenceDaily, day(2025, time.January, 1), reset, at(2025, time.January, 3, 10, 0))

	if !p.Start.Equal(at(2025, time.January, 3, 4, 0)) {
		t.Errorf("start = %v, want Jan 3 04:00", p.Start)
	}
}

// =============================================================================
// WEEKLY PERIODS
// =============================================================================

func TestCurrentPeriod_Weekly_AdvancesWholeStrides(t *testing.T) {
	// GIVEN: Weekly recurrence anchored Wednesday 2025-01-01
	// WHEN: Now is two weeks and a half-day past the anchor
	// THEN: The window is the third stride [Jan 15, Jan 22)

	p := engine.CurrentPeriod(engine.RecurrenceWeekly, day(2025, time.January, 1), engine.ResetTime{}, at(2025, time.January, 15, 12, 0))

	if !p.Start.Equal(day(2025, time.January, 15)) {
		t.Errorf("start = %v, want Jan 15", p.Start)
	}
	if !p.End.Equal(day(2025, time.January, 22)) {
		t.Errorf("end = %v, want Jan 22", p.End)
	}
}

func TestCurrentPeriod_Weekly_BeforeAnchor_ClampsToFirstPeriod(t *testing.T) {
	// GIVEN: Weekly recurrence anchored 2025-06-01
	// WHEN: Now precedes the anchor
	// THEN: The first period is returned unchanged

	p := engine.CurrentPeriod(engine.RecurrenceWeekly, day(2025, time.June, 1), engine.ResetTime{}, day(2025, time.January, 1))

	if !p.Start.Equal(day(2025, time.June, 1)) {
		t.Errorf("start = %v, want the anchor itself", p.Start)
	}
	if !p.End.Equal(day(2025, time.June, 8)) {
		t.Errorf("end = %v, want anchor + 7 days", p.End)
	}
}

// =============================================================================
// MONTHLY / YEARLY PERIODS
// =============================================================================

func TestCurrentPeriod_Monthly_ClampsShortMonths(t *testing.T) {
	// GIVEN: Monthly recurrence anchored January 31st
	// WHEN: Now is in the second period
	// THEN: The boundary clamps to Feb 28, never drifts into March

	anchor := day(2025, time.January, 31)

	first := engine.CurrentPeriod(engine.RecurrenceMonthly, anchor, engine.ResetTime{}, day(2025, time.February, 10))
	if !first.Start.Equal(day(2025, time.January, 31)) || !first.End.Equal(day(2025, time.February, 28)) {
		t.Errorf("first period = %v, want [Jan 31, Feb 28)", first)
	}

	second := engine.CurrentPeriod(engine.RecurrenceMonthly, anchor, engine.ResetTime{}, day(2025, time.March, 1))
	if !second.Start.Equal(day(2025, time.February, 28)) || !second.End.Equal(day(2025, time.March, 31)) {
		t.Errorf("second period = %v, want [Feb 28, Mar 31)", second)
	}
}

func TestCurrentPeriod_Monthly_ContiguousWindows(t *testing.T) {
	// GIVEN: Monthly recurrence with a clamping anchor
	// WHEN: Walking several consecutive periods
	// THEN: Each period's end equals the next period's start (no gaps)

	anchor := day(2025, time.January, 31)
	now := day(2025, time.February, 10)

	for i := 0; i < 6; i++ {
		p := engine.CurrentPeriod(engine.RecurrenceMonthly, anchor, engine.ResetTime{}, now)
		next := engine.CurrentPeriod(engine.RecurrenceMonthly, anchor, engine.ResetTime{}, p.End)
		if !next.Start.Equal(p.End) {
			t.Fatalf("gap between periods: %v then %v", p, next)
		}
		now = p.End
	}
}

func TestCurrentPeriod_Yearly_LeapDayAnchor(t *testing.T) {
	// GIVEN: Yearly recurrence anchored on leap day 2024-02-29
	// WHEN: Now is mid-2025
	// THEN: The window boundary clamps to Feb 28 in non-leap years

	p := engine.CurrentPeriod(engine.RecurrenceYearly, day(2024, time.February, 29), engine.ResetTime{}, day(2025, time.June, 1))

	if !p.Start.Equal(day(2025, time.February, 28)) {
		t.Errorf("start = %v, want 2025-02-28", p.Start)
	}
	if !p.End.Equal(day(2026, time.February, 28)) {
		t.Errorf("end = %v, want 2026-02-28", p.End)
	}
}

// =============================================================================
// ONCE AND GENERAL PROPERTIES
// =============================================================================

func TestCurrentPeriod_Once_SingleDayWindow(t *testing.T) {
	// GIVEN: ONCE recurrence
	// WHEN: Computing the window at any time
	// THEN: A single 1-day window at the anchor is returned

	p := engine.CurrentPeriod(engine.RecurrenceOnce, day(2025, time.March, 15), engine.ResetTime{}, day(2025, time.August, 1))

	if !p.Start.Equal(day(2025, time.March, 15)) || !p.End.Equal(day(2025, time.March, 16)) {
		t.Errorf("period = %v, want [Mar 15, Mar 16)", p)
	}
}

func TestCurrentPeriod_ContainsNow(t *testing.T) {
	// GIVEN: An anchor in the past for each repeating recurrence type
	// WHEN: Computing the current window
	// THEN: Now falls inside [start, end)

	anchor := day(2023, time.May, 17)
	now := at(2025, time.August, 28, 9, 30)

	for _, rt := range []engine.RecurrenceType{
		engine.RecurrenceDaily, engine.RecurrenceWeekly, engine.RecurrenceMonthly, engine.RecurrenceYearly,
	} {
		p := engine.CurrentPeriod(rt, anchor, engine.ResetTime{Hour: 6}, now)
		if !p.Contains(now) {
			t.Errorf("%s: period %v does not contain %v", rt, p, now)
		}
	}
}

func TestCurrentPeriod_Deterministic(t *testing.T) {
	// GIVEN: Identical inputs
	// WHEN: Computing the window twice
	// THEN: The result is identical

	anchor := day(2024, time.November, 30)
	now := at(2025, time.February, 14, 23, 59)

	a := engine.CurrentPeriod(engine.RecurrenceMonthly, anchor, engine.ResetTime{Hour: 4}, now)
	b := engine.CurrentPeriod(engine.RecurrenceMonthly, anchor, engine.ResetTime{Hour: 4}, now)

	if !a.Start.Equal(b.Start) || !a.End.Equal(b.End) {
		t.Errorf("non-deterministic: %v vs %v", a, b)
	}
}

func TestPeriod_Contains_HalfOpen(t *testing.T) {
	// GIVEN: A period [Jan 1, Jan 2)
	// WHEN: Checking the boundaries
	// THEN: Start is included, end is excluded

	p := engine.Period{Start: day(2025, time.January, 1), End: day(2025, time.January, 2)}

	if !p.Contains(p.Start) {
		t.Error("start boundary should be included")
	}
	if p.Contains(p.End) {
		t.Error("end boundary should be excluded")
	}
}

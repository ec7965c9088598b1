/*
rule.go - Recurrence rules and mode dispatch

PURPOSE:
  A Rule is the value type combining a recurrence mode (CALENDAR /
  USER_BASED / EXPIRED_DATE) with its mode-specific parameters, read off
  a MissionType or Event record. Window() dispatches on the mode and
  returns the applicable half-open window.

MODE SEMANTICS:
  CALENDAR      Fixed periodic windows from the anchor (period.go).
  EXPIRED_DATE  One window [start_date, expiration_date). With no
                expiration configured, an event-scoped rule stays open
                (far-future sentinel) while a mission-type-scoped rule
                has no forward window: the end degenerates to "now".
  USER_BASED    No global window. Each instance carries its own:
                [created_at, created_at + relative_days @ reset_time).

SEE ALSO:
  - period.go: The calendar window calculator
  - confirm.go: Re-derives windows through the same rules
*/
package engine

import "time"

// RuleScope distinguishes event-scoped from mission-type-scoped rules.
// The two differ only in how an unset expiration is treated.
type RuleScope int

const (
	ScopeMissionType RuleScope = iota
	ScopeEvent
)

// Rule is the recurrence configuration of a mission type or event.
type Rule struct {
	Type         RecurrenceType
	Mode         RecurrenceMode
	Anchor       time.Time // start_date of the owning record
	Reset        ResetTime
	AutoRenew    bool
	Expiration   *time.Time // EXPIRED_DATE mode
	RelativeDays *int       // USER_BASED mode
	Scope        RuleScope
}

// RuleFor builds the rule for a mission type.
func RuleFor(mt MissionType) Rule {
	return Rule{
		Type:         mt.RecurrenceType,
		Mode:         mt.RecurrenceMode,
		Anchor:       mt.StartDate,
		Reset:        mt.ResetTime,
		AutoRenew:    mt.AutoRenew,
		Expiration:   mt.ExpirationDate,
		RelativeDays: mt.RelativeDays,
		Scope:        ScopeMissionType,
	}
}

// RuleForEvent builds the rule for an event.
func RuleForEvent(ev Event) Rule {
	return Rule{
		Type:       ev.RecurrenceType,
		Mode:       ev.RecurrenceMode,
		Anchor:     ev.StartDate,
		Reset:      ev.ResetTime,
		AutoRenew:  ev.AutoRenew,
		Expiration: ev.ExpiredDate,
		Scope:      ScopeEvent,
	}
}

// Window returns the window applicable at now. For USER_BASED rules there
// is no global window; callers must use InstanceWindow per instance. The
// value returned here spans from the anchor to the far future so that
// generic containment checks do not reject user-anchored instances.
func (r Rule) Window(now time.Time) Period {
	switch r.Mode {
	case ModeCalendar:
		return CurrentPeriod(r.Type, r.Anchor, r.Reset, now)

	case ModeExpiredDate:
		start := r.Reset.On(r.Anchor)
		switch {
		case r.Expiration != nil:
			return Period{Start: start, End: r.Reset.On(*r.Expiration)}
		case r.Scope == ScopeEvent:
			return Period{Start: start, End: FarFuture()}
		default:
			// Mission-type scope with no expiration: no forward-looking
			// period, only the historical cut at now.
			return Period{Start: start, End: now}
		}

	case ModeUserBased:
		return Period{Start: r.Reset.On(r.Anchor), End: FarFuture()}

	default:
		return CurrentPeriod(r.Type, r.Anchor, r.Reset, now)
	}
}

// InstanceWindow returns the personal window of a USER_BASED instance
// anchored at its creation instant. Without relative_days the instance
// never expires on time alone.
func (r Rule) InstanceWindow(createdAt time.Time) Period {
	if r.RelativeDays == nil {
		return Period{Start: createdAt, End: FarFuture()}
	}
	deadline := r.Reset.On(createdAt.AddDate(0, 0, *r.RelativeDays))
	return Period{Start: createdAt, End: deadline}
}

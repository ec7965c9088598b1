/*
Package engine provides the core mission lifecycle and recurrence engine.

PURPOSE:
  This package contains the domain types and algorithms for managing
  recurring missions: events group mission types, mission types spawn
  per-user mission instances, and a periodic reconciliation pass keeps
  all three levels consistent with the current recurrence window.

KEY CONCEPTS IN THIS FILE (types.go):
  - Status: Closed lifecycle vocabulary (pending, active, completed, ...)
  - RecurrenceType/RecurrenceMode: How and when windows repeat
  - ResetTime: Time-of-day anchoring for period boundaries
  - Event/MissionType/Mission: The three levels of the state machine
  - Period: Half-open [start, end) time window
  - Clock: Injectable time source for deterministic tests

DESIGN PRINCIPLES:
  1. Closed enums at the core boundary: persistence may store status ids,
     the engine only ever sees named statuses
  2. One window calculator: every reconciler and the confirmation service
     derive windows from the same code path (see period.go, rule.go)
  3. Convergence: reconciliation is idempotent; re-running a pass produces
     the same end state

SEE ALSO:
  - period.go: Current-window calculation
  - rule.go: Mode dispatch (calendar / fixed-cutoff / user-anchored)
  - repository.go: Persistence contracts
*/
package engine

import (
	"time"

	"github.com/shopspring/decimal"
)

// =============================================================================
// STATUS - Closed lifecycle vocabulary
// =============================================================================

// Status is the lifecycle state of an event, mission type, or mission
// instance. The persistence layer may map these to integer ids; the engine
// only works with the named values.
type Status string

const (
	StatusPending             Status = "pending"
	StatusActive              Status = "active"
	StatusCompleted           Status = "completed"
	StatusPendingConfirmation Status = "pending_confirmation"
	StatusExpired             Status = "expired"
)

// AllStatuses lists every status the engine knows about.
var AllStatuses = []Status{
	StatusPending,
	StatusActive,
	StatusCompleted,
	StatusPendingConfirmation,
	StatusExpired,
}

// Terminal returns true if no further transition is allowed from s.
// Only a freshly created instance can become pending_confirmation.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusExpired
}

// =============================================================================
// RECURRENCE - Cadence and anchoring
// =============================================================================

// RecurrenceType is the cadence of a calendar-driven window.
type RecurrenceType string

const (
	RecurrenceDaily   RecurrenceType = "DAILY"
	RecurrenceWeekly  RecurrenceType = "WEEKLY"
	RecurrenceMonthly RecurrenceType = "MONTHLY"
	RecurrenceYearly  RecurrenceType = "YEARLY"
	RecurrenceOnce    RecurrenceType = "ONCE"
)

// RecurrenceMode determines how a window is anchored.
type RecurrenceMode string

const (
	// ModeCalendar repeats on fixed periodic windows derived from an anchor.
	ModeCalendar RecurrenceMode = "CALENDAR"
	// ModeUserBased anchors the window to each user's own instance creation.
	ModeUserBased RecurrenceMode = "USER_BASED"
	// ModeExpiredDate is a single window with a fixed cutoff.
	ModeExpiredDate RecurrenceMode = "EXPIRED_DATE"
)

// AllModes lists every recurrence mode.
var AllModes = []RecurrenceMode{ModeCalendar, ModeUserBased, ModeExpiredDate}

// ResetTime is the time-of-day applied to period boundaries. A DAILY mission
// with ResetTime 04:00:00 rolls over at 4am, not midnight.
type ResetTime struct {
	Hour   int
	Minute int
	Second int
}

// On returns the instant at this reset time on the same date as d,
// in d's location.
func (rt ResetTime) On(d time.Time) time.Time {
	return time.Date(d.Year(), d.Month(), d.Day(), rt.Hour, rt.Minute, rt.Second, 0, d.Location())
}

// =============================================================================
// PERIOD - Half-open [start, end) time window
// =============================================================================

// Period is the time window a mission instance is valid in. Half-open:
// Start is included, End is not.
type Period struct {
	Start time.Time
	End   time.Time
}

// Contains returns true if t falls inside [Start, End).
func (p Period) Contains(t time.Time) bool {
	return !t.Before(p.Start) && t.Before(p.End)
}

// String returns a string representation of the period.
func (p Period) String() string {
	const layout = "2006-01-02 15:04:05"
	return "[" + p.Start.Format(layout) + ", " + p.End.Format(layout) + ")"
}

// FarFuture is the sentinel window end used when no cutoff applies.
func FarFuture() time.Time {
	return time.Date(9999, time.December, 31, 0, 0, 0, 0, time.UTC)
}

// =============================================================================
// IDENTIFIERS
// =============================================================================

type EventID string
type MissionTypeID string
type MissionID string
type UserID string

// =============================================================================
// GIFT - Reward payload carried by an event
// =============================================================================

// Gift is the reward attached to an event. The engine treats it as an
// opaque payload; granting lives in the rewards package.
type Gift struct {
	Name   string
	Points decimal.Decimal
}

// IsZero returns true if no gift is configured.
func (g Gift) IsZero() bool {
	return g.Name == "" && g.Points.IsZero()
}

// =============================================================================
// EVENT - A grouping of mission types sharing lifecycle and reward
// =============================================================================

// Event groups mission types under one lifecycle. Events are created by
// seed data; only the event reconciler mutates their status.
type Event struct {
	ID       EventID
	Name     string
	Missions []MissionTypeID // Ordered set of mission type ids
	Status   Status          // pending | active | expired

	StartDate   time.Time
	ExpiredDate *time.Time // nil = no fixed cutoff

	Gift      Gift
	UserTypes []string // Allow-list; empty = visible to all

	RecurrenceType RecurrenceType
	RecurrenceMode RecurrenceMode
	AutoRenew      bool
	ResetTime      ResetTime
}

// =============================================================================
// MISSION TYPE - The template for a recurring task
// =============================================================================

// MissionType is the rule describing a recurring task: its cadence, mode,
// and activation window. Created by seed data; mutated by the mission type
// reconciler.
type MissionType struct {
	ID     MissionTypeID
	Name   string
	Status Status // pending | active | expired

	RecurrenceType RecurrenceType
	RecurrenceMode RecurrenceMode
	ResetTime      ResetTime

	StartDate      time.Time
	ExpirationDate *time.Time // EXPIRED_DATE mode; nil = no forward window
	RelativeDays   *int       // USER_BASED mode; offset from instance creation
	AutoRenew      bool
}

// =============================================================================
// MISSION - One per-user occurrence of a mission type
// =============================================================================

// Mission is a concrete per-user instance of a mission type for a specific
// period. CreatedAt acts as the instance's period anchor. Instances are
// never hard-deleted; expired and completed are terminal.
type Mission struct {
	ID            MissionID
	MissionTypeID MissionTypeID
	UserID        UserID
	Status        Status // pending_confirmation | completed | expired
	CreatedAt     time.Time
	UsedAt        *time.Time // Set on completion
}

// =============================================================================
// USER - Minimal user record the engine needs
// =============================================================================

// User is the slice of the user record the engine cares about: identity,
// user type (for event allow-lists), and whether the user is active.
type User struct {
	ID           UserID
	Name         string
	Type         string
	Active       bool
	RegisteredAt time.Time
}

// =============================================================================
// CLOCK - Injectable time source
// =============================================================================

// Clock provides the current instant. Reconcilers take a Clock instead of
// calling time.Now so that period math is testable with a fixed clock.
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

// SystemClock returns a Clock backed by time.Now.
func SystemClock() Clock { return systemClock{} }

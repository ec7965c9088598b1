/*
Package factory provides JSON to Go seed-data conversion.

PURPOSE:
  Converts JSON seed documents into engine records. Events, mission types,
  and users are reference data created outside the engine; this factory
  lets operators define them in JSON, validates the recurrence config,
  and loads them into a repository at startup.

JSON SCHEMA:
  {
    "users": [
      {"id": "u-1", "name": "Ada", "type": "premium", "active": true}
    ],
    "mission_types": [
      {
        "id": "mt-daily-login",
        "name": "Daily login",
        "recurrence_type": "DAILY",
        "recurrence_mode": "CALENDAR",
        "start_date": "2025-01-01T00:00:00",
        "reset_time": "04:00:00",
        "auto_renew": true
      }
    ],
    "events": [
      {
        "id": "ev-january",
        "name": "January challenge",
        "missions": ["mt-daily-login"],
        "start_date": "2025-01-01T00:00:00",
        "expired_date": "2025-02-01T00:00:00",
        "recurrence_type": "MONTHLY",
        "recurrence_mode": "CALENDAR",
        "gift": {"name": "starter badge", "points": "100"}
      }
    ]
  }

KEY FEATURES:
  - Validates recurrence types/modes against the closed enums
  - Sets sensible defaults (status pending, reset 00:00:00)
  - Generates uuids for records without explicit ids

USAGE:
  seed, err := factory.ParseSeed(jsonBytes)
  err = factory.Load(ctx, repo, seed)

SEE ALSO:
  - engine/types.go: Target record types
  - cmd/server/main.go: Loads the -seed file at startup
*/
package factory

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/warp/mission-engine/engine"
)

// =============================================================================
// JSON SCHEMA TYPES
// =============================================================================

// SeedJSON is the top-level seed document.
type SeedJSON struct {
	Users        []UserJSON        `json:"users,omitempty"`
	MissionTypes []MissionTypeJSON `json:"mission_types,omitempty"`
	Events       []EventJSON       `json:"events,omitempty"`
}

// UserJSON seeds a user record.
type UserJSON struct {
	ID           string `json:"id,omitempty"`
	Name         string `json:"name"`
	Type         string `json:"type,omitempty"`
	Active       bool   `json:"active"`
	RegisteredAt string `json:"registered_at,omitempty"`
}

// MissionTypeJSON seeds a mission type record.
type MissionTypeJSON struct {
	ID             string `json:"id,omitempty"`
	Name           string `json:"name"`
	Status         string `json:"status,omitempty"` // default pending
	RecurrenceType string `json:"recurrence_type"`
	RecurrenceMode string `json:"recurrence_mode"`
	ResetTime      string `json:"reset_time,omitempty"` // "15:04:05", default midnight
	StartDate      string `json:"start_date"`
	ExpirationDate string `json:"expiration_date,omitempty"`
	RelativeDays   *int   `json:"relative_days,omitempty"`
	AutoRenew      bool   `json:"auto_renew,omitempty"`
}

// EventJSON seeds an event record.
type EventJSON struct {
	ID             string   `json:"id,omitempty"`
	Name           string   `json:"name"`
	Missions       []string `json:"missions"`
	Status         string   `json:"status,omitempty"` // default pending
	StartDate      string   `json:"start_date"`
	ExpiredDate    string   `json:"expired_date,omitempty"`
	Gift           GiftJSON `json:"gift,omitempty"`
	UserTypes      []string `json:"user_types,omitempty"`
	RecurrenceType string   `json:"recurrence_type"`
	RecurrenceMode string   `json:"recurrence_mode"`
	AutoRenew      bool     `json:"auto_renew,omitempty"`
	ResetTime      string   `json:"reset_time,omitempty"`
}

// GiftJSON seeds an event's reward payload. Points is a decimal string.
type GiftJSON struct {
	Name   string `json:"name,omitempty"`
	Points string `json:"points,omitempty"`
}

// Seed is the parsed, validated form ready for loading.
type Seed struct {
	Users        []engine.User
	MissionTypes []engine.MissionType
	Events       []engine.Event
}

// =============================================================================
// PARSING
// =============================================================================

// dateLayout is the naive local datetime format used in seed documents.
const dateLayout = "2006-01-02T15:04:05"

// ParseSeed parses and validates a JSON seed document.
func ParseSeed(data []byte) (Seed, error) {
	var doc SeedJSON
	if err := json.Unmarshal(data, &doc); err != nil {
		return Seed{}, fmt.Errorf("parse seed: %w", err)
	}

	var seed Seed
	for i, u := range doc.Users {
		parsed, err := parseUser(u)
		if err != nil {
			return Seed{}, fmt.Errorf("users[%d]: %w", i, err)
		}
		seed.Users = append(seed.Users, parsed)
	}
	for i, mt := range doc.MissionTypes {
		parsed, err := parseMissionType(mt)
		if err != nil {
			return Seed{}, fmt.Errorf("mission_types[%d]: %w", i, err)
		}
		seed.MissionTypes = append(seed.MissionTypes, parsed)
	}

	known := make(map[engine.MissionTypeID]bool)
	for _, mt := range seed.MissionTypes {
		known[mt.ID] = true
	}
	for i, ev := range doc.Events {
		parsed, err := parseEvent(ev, known)
		if err != nil {
			return Seed{}, fmt.Errorf("events[%d]: %w", i, err)
		}
		seed.Events = append(seed.Events, parsed)
	}
	return seed, nil
}

func parseUser(u UserJSON) (engine.User, error) {
	if u.Name == "" {
		return engine.User{}, fmt.Errorf("user name is required")
	}
	registered := time.Time{}
	if u.RegisteredAt != "" {
		t, err := time.Parse(dateLayout, u.RegisteredAt)
		if err != nil {
			return engine.User{}, fmt.Errorf("registered_at: %w", err)
		}
		registered = t
	}
	return engine.User{
		ID:           engine.UserID(orUUID(u.ID)),
		Name:         u.Name,
		Type:         u.Type,
		Active:       u.Active,
		RegisteredAt: registered,
	}, nil
}

func parseMissionType(mt MissionTypeJSON) (engine.MissionType, error) {
	rt, err := parseRecurrenceType(mt.RecurrenceType)
	if err != nil {
		return engine.MissionType{}, err
	}
	mode, err := parseRecurrenceMode(mt.RecurrenceMode)
	if err != nil {
		return engine.MissionType{}, err
	}
	status, err := parseStatus(mt.Status)
	if err != nil {
		return engine.MissionType{}, err
	}
	start, err := time.Parse(dateLayout, mt.StartDate)
	if err != nil {
		return engine.MissionType{}, fmt.Errorf("start_date: %w", err)
	}
	reset, err := parseResetTime(mt.ResetTime)
	if err != nil {
		return engine.MissionType{}, err
	}

	var expiration *time.Time
	if mt.ExpirationDate != "" {
		t, err := time.Parse(dateLayout, mt.ExpirationDate)
		if err != nil {
			return engine.MissionType{}, fmt.Errorf("expiration_date: %w", err)
		}
		expiration = &t
	}
	if mode == engine.ModeUserBased && mt.RelativeDays != nil && *mt.RelativeDays <= 0 {
		return engine.MissionType{}, fmt.Errorf("relative_days must be positive")
	}

	return engine.MissionType{
		ID:             engine.MissionTypeID(orUUID(mt.ID)),
		Name:           mt.Name,
		Status:         status,
		RecurrenceType: rt,
		RecurrenceMode: mode,
		ResetTime:      reset,
		StartDate:      start,
		ExpirationDate: expiration,
		RelativeDays:   mt.RelativeDays,
		AutoRenew:      mt.AutoRenew,
	}, nil
}

func parseEvent(ev EventJSON, knownTypes map[engine.MissionTypeID]bool) (engine.Event, error) {
	rt, err := parseRecurrenceType(ev.RecurrenceType)
	if err != nil {
		return engine.Event{}, err
	}
	mode, err := parseRecurrenceMode(ev.RecurrenceMode)
	if err != nil {
		return engine.Event{}, err
	}
	status, err := parseStatus(ev.Status)
	if err != nil {
		return engine.Event{}, err
	}
	start, err := time.Parse(dateLayout, ev.StartDate)
	if err != nil {
		return engine.Event{}, fmt.Errorf("start_date: %w", err)
	}
	reset, err := parseResetTime(ev.ResetTime)
	if err != nil {
		return engine.Event{}, err
	}

	var expired *time.Time
	if ev.ExpiredDate != "" {
		t, err := time.Parse(dateLayout, ev.ExpiredDate)
		if err != nil {
			return engine.Event{}, fmt.Errorf("expired_date: %w", err)
		}
		expired = &t
	}

	var missions []engine.MissionTypeID
	for _, id := range ev.Missions {
		mtID := engine.MissionTypeID(id)
		if !knownTypes[mtID] {
			return engine.Event{}, fmt.Errorf("unknown mission type %q", id)
		}
		missions = append(missions, mtID)
	}

	gift := engine.Gift{Name: ev.Gift.Name}
	if ev.Gift.Points != "" {
		points, err := decimal.NewFromString(ev.Gift.Points)
		if err != nil {
			return engine.Event{}, fmt.Errorf("gift points: %w", err)
		}
		gift.Points = points
	}

	return engine.Event{
		ID:             engine.EventID(orUUID(ev.ID)),
		Name:           ev.Name,
		Missions:       missions,
		Status:         status,
		StartDate:      start,
		ExpiredDate:    expired,
		Gift:           gift,
		UserTypes:      ev.UserTypes,
		RecurrenceType: rt,
		RecurrenceMode: mode,
		AutoRenew:      ev.AutoRenew,
		ResetTime:      reset,
	}, nil
}

// =============================================================================
// LOADING
// =============================================================================

// Load saves the seed into the repository: users, then mission types,
// then the events referencing them.
func Load(ctx context.Context, repo engine.Repository, seed Seed) error {
	for _, u := range seed.Users {
		if err := repo.Users().Save(ctx, u); err != nil {
			return fmt.Errorf("save user %s: %w", u.ID, err)
		}
	}
	for _, mt := range seed.MissionTypes {
		if err := repo.MissionTypes().Save(ctx, mt); err != nil {
			return fmt.Errorf("save mission type %s: %w", mt.ID, err)
		}
	}
	for _, ev := range seed.Events {
		if err := repo.Events().Save(ctx, ev); err != nil {
			return fmt.Errorf("save event %s: %w", ev.ID, err)
		}
	}
	return nil
}

// =============================================================================
// FIELD PARSERS
// =============================================================================

func parseRecurrenceType(s string) (engine.RecurrenceType, error) {
	switch rt := engine.RecurrenceType(s); rt {
	case engine.RecurrenceDaily, engine.RecurrenceWeekly, engine.RecurrenceMonthly,
		engine.RecurrenceYearly, engine.RecurrenceOnce:
		return rt, nil
	default:
		return "", fmt.Errorf("unknown recurrence_type %q", s)
	}
}

func parseRecurrenceMode(s string) (engine.RecurrenceMode, error) {
	switch mode := engine.RecurrenceMode(s); mode {
	case engine.ModeCalendar, engine.ModeUserBased, engine.ModeExpiredDate:
		return mode, nil
	default:
		return "", fmt.Errorf("unknown recurrence_mode %q", s)
	}
}

func parseStatus(s string) (engine.Status, error) {
	if s == "" {
		return engine.StatusPending, nil
	}
	for _, known := range engine.AllStatuses {
		if engine.Status(s) == known {
			return known, nil
		}
	}
	return "", fmt.Errorf("unknown status %q", s)
}

func parseResetTime(s string) (engine.ResetTime, error) {
	if s == "" {
		return engine.ResetTime{}, nil
	}
	t, err := time.Parse("15:04:05", s)
	if err != nil {
		return engine.ResetTime{}, fmt.Errorf("reset_time: %w", err)
	}
	return engine.ResetTime{Hour: t.Hour(), Minute: t.Minute(), Second: t.Second()}, nil
}

func orUUID(id string) string {
	if id != "" {
		return id
	}
	return uuid.NewString()
}

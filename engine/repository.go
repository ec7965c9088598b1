/*
repository.go - Persistence contracts for the mission engine

PURPOSE:
  Defines the interface between the engine and the database. All HTTP/DB
  specifics live behind these contracts; the engine never sees SQL or
  status ids.

KEY INTERFACES:
  EventRepository:       Event rows and their mission-type membership
  MissionTypeRepository: Mission type rows
  MissionRepository:     Per-user mission instances
  UserRepository:        Active-user listing for sweeps
  Repository:            Bundle of the four
  TxRepository:          Repository + atomic unit-of-work

ATOMICITY:
  WithTx wraps read-modify-write blocks (per-event expiry, confirmation)
  so an interrupted pass never leaves a half-migrated state. Reconcilers
  re-check existence inside the block rather than trusting earlier reads.

IMPLEMENTATIONS:
  - store/sqlite: Production SQLite store
  - engine/store: In-memory store for tests and development

SEE ALSO:
  - engine/store/memory.go
  - store/sqlite/sqlite.go
*/
package engine

import (
	"context"
	"time"
)

// =============================================================================
// QUERIES
// =============================================================================

// MissionQuery filters mission instances. Zero-valued fields are ignored,
// so an empty query matches everything.
type MissionQuery struct {
	User          UserID        // "" = any user
	MissionType   MissionTypeID // "" = any type
	Statuses      []Status      // nil = any status
	CreatedBefore *time.Time    // exclusive upper bound on CreatedAt
	Window        *Period       // CreatedAt must fall in [Start, End)
}

// Matches reports whether m satisfies the query. Shared by store
// implementations so filter semantics cannot drift between them.
func (q MissionQuery) Matches(m Mission) bool {
	if q.User != "" && m.UserID != q.User {
		return false
	}
	if q.MissionType != "" && m.MissionTypeID != q.MissionType {
		return false
	}
	if len(q.Statuses) > 0 {
		found := false
		for _, s := range q.Statuses {
			if m.Status == s {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	if q.CreatedBefore != nil && !m.CreatedAt.Before(*q.CreatedBefore) {
		return false
	}
	if q.Window != nil && !q.Window.Contains(m.CreatedAt) {
		return false
	}
	return true
}

// =============================================================================
// REPOSITORIES
// =============================================================================

// EventRepository persists events and their mission-type membership.
type EventRepository interface {
	// ListByStatus returns events whose status is in statuses,
	// in stable (insertion) order.
	ListByStatus(ctx context.Context, statuses ...Status) ([]Event, error)

	// Get returns the event or ErrEventNotFound.
	Get(ctx context.Context, id EventID) (Event, error)

	// Save inserts or replaces an event record (seed/sync data).
	Save(ctx context.Context, ev Event) error

	// SetStatus updates only the event's status.
	SetStatus(ctx context.Context, id EventID, status Status) error

	// SetExpiredDate advances the event's cutoff (auto-renew rollover).
	SetExpiredDate(ctx context.Context, id EventID, expiredAt time.Time) error

	// MissionsOf returns the ordered mission type ids grouped by the event.
	MissionsOf(ctx context.Context, id EventID) ([]MissionTypeID, error)
}

// MissionTypeRepository persists mission type records.
type MissionTypeRepository interface {
	// ListByStatusAndMode returns mission types matching both filters,
	// in stable order. Empty modes = all modes.
	ListByStatusAndMode(ctx context.Context, statuses []Status, modes []RecurrenceMode) ([]MissionType, error)

	// Get returns the mission type or ErrMissionTypeNotFound.
	Get(ctx context.Context, id MissionTypeID) (MissionType, error)

	// Save inserts or replaces a mission type record (seed/sync data).
	Save(ctx context.Context, mt MissionType) error

	// SetStatus updates only the mission type's status.
	SetStatus(ctx context.Context, id MissionTypeID, status Status) error
}

// MissionRepository persists per-user mission instances.
type MissionRepository interface {
	// Find returns instances matching q, ordered by CreatedAt ascending.
	Find(ctx context.Context, q MissionQuery) ([]Mission, error)

	// Create inserts a fresh pending_confirmation instance.
	Create(ctx context.Context, mt MissionTypeID, user UserID, createdAt time.Time) (Mission, error)

	// SetStatus updates only the instance's status.
	SetStatus(ctx context.Context, id MissionID, status Status) error

	// Complete transitions the instance to completed and stamps used_at.
	// Returns ErrConflict if the instance is no longer pending.
	Complete(ctx context.Context, id MissionID, usedAt time.Time) error

	// TouchCreatedAt bumps the instance's period anchor forward
	// (auto-renew reuse of a stale pending instance).
	TouchCreatedAt(ctx context.Context, id MissionID, createdAt time.Time) error
}

// UserRepository exposes the user fleet the sweeps iterate over.
type UserRepository interface {
	// ListActiveIDs returns ids of active users, optionally filtered by
	// user type. Empty userTypes = all active users.
	ListActiveIDs(ctx context.Context, userTypes []string) ([]UserID, error)

	// Save inserts or replaces a user record (seed/sync data).
	Save(ctx context.Context, u User) error
}

// =============================================================================
// BUNDLES
// =============================================================================

// Repository bundles the four aggregate repositories.
type Repository interface {
	Events() EventRepository
	MissionTypes() MissionTypeRepository
	Missions() MissionRepository
	Users() UserRepository
}

// TxRepository adds an atomic unit-of-work. If fn returns an error the
// writes made through its Repository argument are rolled back.
type TxRepository interface {
	Repository

	WithTx(ctx context.Context, fn func(Repository) error) error
}

/*
Package rewards handles event gift payloads and their granting.

PURPOSE:
  When a non-renewing event ends, users who completed every mission of
  the event receive its gift. This package records those grants and
  signals the user. Point amounts use decimal.Decimal so reward math
  never accumulates floating-point error.

KEY CONCEPTS:
  - Grant: An immutable record of one gift handed to one user
  - GrantLog: Append-only persistence for grants
  - Granter: The engine-facing collaborator that writes grants

DESIGN PRINCIPLES:
  1. Granting is fire-and-forget from the engine's view: a failed grant
     is logged, never rolled into the event transition
  2. Grants are append-only; a duplicate grant for the same (event, user)
     is skipped, not duplicated

SEE ALSO:
  - granter.go: The granting service
  - engine/event.go: Where granting is triggered
*/
package rewards

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/warp/mission-engine/engine"
)

// =============================================================================
// GRANT - One gift handed to one user
// =============================================================================

// Grant records a gift delivered to a user for completing an event.
type Grant struct {
	ID        string
	EventID   engine.EventID
	UserID    engine.UserID
	GiftName  string
	Points    decimal.Decimal
	GrantedAt time.Time
}

// GrantLog stores grants. Append-only.
type GrantLog interface {
	// Append persists a grant. Appending an existing (event, user) pair
	// is a no-op so retried event processing cannot double-grant.
	Append(ctx context.Context, g Grant) error

	// ListByUser returns a user's grants, oldest first.
	ListByUser(ctx context.Context, user engine.UserID) ([]Grant, error)
}

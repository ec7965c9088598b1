/*
granter.go - Gift granting service

PURPOSE:
  Implements engine.RewardGranter: writes one grant per completing user
  and notifies them. Also provides the in-memory GrantLog used in tests
  and single-process deployments.

SEE ALSO:
  - types.go: Grant and GrantLog definitions
*/
package rewards

import (
	"context"
	"fmt"
	"log"
	"sync"

	"github.com/google/uuid"

	"github.com/warp/mission-engine/engine"
)

// Granter hands event gifts to completing users.
type Granter struct {
	log      GrantLog
	clock    engine.Clock
	notifier engine.Notifier
}

// NewGranter wires the granting service.
func NewGranter(grants GrantLog, clock engine.Clock, notifier engine.Notifier) *Granter {
	if notifier == nil {
		notifier = engine.NopNotifier{}
	}
	return &Granter{log: grants, clock: clock, notifier: notifier}
}

var _ engine.RewardGranter = (*Granter)(nil)

// Grant records the event's gift for each user and notifies them. A user
// whose grant fails is logged and skipped; the rest still receive theirs.
func (g *Granter) Grant(ctx context.Context, ev engine.Event, users []engine.UserID) error {
	if ev.Gift.IsZero() {
		return nil
	}
	now := g.clock.Now()

	var failed int
	for _, user := range users {
		grant := Grant{
			ID:        uuid.NewString(),
			EventID:   ev.ID,
			UserID:    user,
			GiftName:  ev.Gift.Name,
			Points:    ev.Gift.Points,
			GrantedAt: now,
		}
		if err := g.log.Append(ctx, grant); err != nil {
			log.Printf("[Rewards] grant %s to %s: %v", ev.ID, user, err)
			failed++
			continue
		}
		g.notifier.Notify(user, fmt.Sprintf("reward available: %s (%s points)", ev.Gift.Name, ev.Gift.Points))
	}

	if failed > 0 {
		return fmt.Errorf("granting event %s: %d of %d grants failed", ev.ID, failed, len(users))
	}
	return nil
}

// =============================================================================
// MEMORY GRANT LOG - In-memory implementation (for testing/dev)
// =============================================================================

// MemoryLog is an in-memory GrantLog.
type MemoryLog struct {
	mu     sync.RWMutex
	grants []Grant
	seen   map[string]bool // event/user pairs already granted
}

// NewMemoryLog creates an empty log.
func NewMemoryLog() *MemoryLog {
	return &MemoryLog{seen: make(map[string]bool)}
}

func (m *MemoryLog) Append(_ context.Context, g Grant) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	key := string(g.EventID) + "/" + string(g.UserID)
	if m.seen[key] {
		return nil
	}
	m.seen[key] = true
	m.grants = append(m.grants, g)
	return nil
}

func (m *MemoryLog) ListByUser(_ context.Context, user engine.UserID) ([]Grant, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []Grant
	for _, g := range m.grants {
		if g.UserID == user {
			out = append(out, g)
		}
	}
	return out, nil
}

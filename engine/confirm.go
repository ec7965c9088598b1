/*
confirm.go - User-triggered mission confirmation

PURPOSE:
  The synchronous, request-triggered transition of one pending instance
  to completed. Confirmation re-derives the applicable window through the
  same rules the reconcilers use, so the instance being confirmed is
  guaranteed to be the currently valid one, never a cached notion.

IDEMPOTENCY:
  Confirming twice yields (true, false): the first call transitions, the
  second finds a terminal instance and is a safe no-op. An instance that
  never existed, or whose window closed, is also a no-op, never an error.

ATOMICITY:
  status + used_at are written in one transaction; the Complete contract
  refuses non-pending instances so a racing reconciler cannot cause a
  double completion. Notification fires after commit and never rolls the
  transition back.

SEE ALSO:
  - rule.go: Window derivation shared with the reconcilers
  - instance.go: The background half of the same state machine
*/
package engine

import (
	"context"
	"fmt"
	"time"
)

// ConfirmMissionService completes a user's pending mission instance.
type ConfirmMissionService struct {
	repo     TxRepository
	clock    Clock
	notifier Notifier
}

// NewConfirmMissionService wires the service.
func NewConfirmMissionService(repo TxRepository, clock Clock, notifier Notifier) *ConfirmMissionService {
	if notifier == nil {
		notifier = NopNotifier{}
	}
	return &ConfirmMissionService{repo: repo, clock: clock, notifier: notifier}
}

// Confirm transitions the user's current instance of the mission type
// from pending_confirmation to completed. Returns true only on an actual
// transition; an already-terminal or missing instance is a no-op false.
func (s *ConfirmMissionService) Confirm(ctx context.Context, mtID MissionTypeID, user UserID) (bool, error) {
	now := s.clock.Now()

	mt, err := s.repo.MissionTypes().Get(ctx, mtID)
	if err != nil {
		return false, err
	}
	rule := RuleFor(mt)

	candidates, err := s.repo.Missions().Find(ctx, MissionQuery{
		User:        user,
		MissionType: mtID,
		Statuses:    []Status{StatusPendingConfirmation, StatusCompleted, StatusExpired},
	})
	if err != nil {
		return false, err
	}

	target := currentInstance(rule, candidates, now)
	if target == nil || target.Status != StatusPendingConfirmation {
		// Already handled or never existed. Not an error, and nothing is
		// created here.
		return false, nil
	}

	err = s.repo.WithTx(ctx, func(tx Repository) error {
		return tx.Missions().Complete(ctx, target.ID, now)
	})
	if err != nil {
		if IsConflict(err) {
			// A racing confirmation or reconciler got there first.
			return false, nil
		}
		return false, err
	}

	s.notifier.Notify(user, fmt.Sprintf("mission %q completed", mt.Name))
	return true, nil
}

// currentInstance picks the instance valid at now. Candidates arrive in
// ascending CreatedAt order, so scanning forward keeps the most recent
// match. A pending match outranks terminal ones of any recency.
func currentInstance(rule Rule, candidates []Mission, now time.Time) *Mission {
	var pending, terminal *Mission

	for i := range candidates {
		m := &candidates[i]
		if !instanceValidAt(rule, *m, now) {
			continue
		}
		if m.Status == StatusPendingConfirmation {
			pending = m
		} else {
			terminal = m
		}
	}

	if pending != nil {
		return pending
	}
	return terminal
}

// instanceValidAt reports whether the instance belongs to the window that
// is current at now. USER_BASED instances carry their own window; the
// other modes share the rule's global one.
func instanceValidAt(rule Rule, m Mission, now time.Time) bool {
	if rule.Mode == ModeUserBased {
		w := rule.InstanceWindow(m.CreatedAt)
		return !now.Before(w.Start) && now.Before(w.End)
	}
	return rule.Window(now).Contains(m.CreatedAt)
}

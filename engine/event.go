/*
event.go - Event activation and cycle expiry

PURPOSE:
  The top level of the state machine. Events activate when their start
  instant arrives, and on expiry either roll over into a fresh cycle
  (auto-renew) or terminate.

EXPIRY SEMANTICS:
  auto_renew = true   Every live instance (pending_confirmation AND
                      completed) of the event's mission types is expired:
                      a new cycle starts clean. The event stays active
                      and its cutoff rolls forward by whole recurrence
                      periods so the next tick does not re-expire the
                      fresh cycle.
  auto_renew = false  The event becomes expired. Only completed instances
                      are expired with it; pending ones are left to
                      natural per-type expiry since the event never
                      returns. Users who completed every mission of the
                      event are handed to the reward granter.

ATOMICITY:
  Each event's expiry block runs in a single transaction so an
  interrupted pass never leaves a half-migrated cycle. Reward granting
  and notification happen after commit and never roll the transition
  back.

SEE ALSO:
  - missiontype.go: Reads gating state settled here
  - rewards/: Grant implementation
*/
package engine

import (
	"context"
	"fmt"
	"log"
	"sort"
	"time"
)

// RewardGranter hands out an event's gift to the users who earned it.
// Implemented by the rewards package; nil disables granting.
type RewardGranter interface {
	Grant(ctx context.Context, ev Event, users []UserID) error
}

// EventReconciler advances event status and cycles.
type EventReconciler struct {
	repo     TxRepository
	clock    Clock
	notifier Notifier
	rewards  RewardGranter // optional
}

// NewEventReconciler wires the reconciler. rewards may be nil.
func NewEventReconciler(repo TxRepository, clock Clock, notifier Notifier, rewards RewardGranter) *EventReconciler {
	if notifier == nil {
		notifier = NopNotifier{}
	}
	return &EventReconciler{repo: repo, clock: clock, notifier: notifier, rewards: rewards}
}

// Reconcile runs one full pass: activations first, then expirations.
func (r *EventReconciler) Reconcile(ctx context.Context) error {
	now := r.clock.Now()

	if err := r.activate(ctx, now); err != nil {
		return err
	}
	return r.expire(ctx, now)
}

// activate promotes pending events whose start instant has arrived. The
// user-type allow-list affects visibility, not the state machine, so all
// pending events are scanned.
func (r *EventReconciler) activate(ctx context.Context, now time.Time) error {
	pending, err := r.repo.Events().ListByStatus(ctx, StatusPending)
	if err != nil {
		return err
	}

	for _, ev := range pending {
		startAt := ev.ResetTime.On(ev.StartDate)
		if now.Before(startAt) {
			continue
		}
		if err := r.repo.Events().SetStatus(ctx, ev.ID, StatusActive); err != nil {
			log.Printf("[Reconciler] activate event %s: %v", ev.ID, err)
			continue
		}
		r.notifyAllowed(ctx, ev, fmt.Sprintf("event %q is live", ev.Name))
	}
	return nil
}

// expire processes active events whose cutoff has passed, one transaction
// per event.
func (r *EventReconciler) expire(ctx context.Context, now time.Time) error {
	active, err := r.repo.Events().ListByStatus(ctx, StatusActive)
	if err != nil {
		return err
	}

	for _, ev := range active {
		if ev.ExpiredDate == nil {
			continue
		}
		cutoff := ev.ResetTime.On(*ev.ExpiredDate)
		if now.Before(cutoff) {
			continue
		}

		var completers []UserID
		err := r.repo.WithTx(ctx, func(tx Repository) error {
			if ev.AutoRenew {
				return r.rollover(ctx, tx, ev, cutoff, now)
			}
			var terr error
			completers, terr = r.terminate(ctx, tx, ev)
			return terr
		})
		if err != nil {
			log.Printf("[Reconciler] %v", &ReconcileError{
				Entity: "event", ID: string(ev.ID), Mode: ev.RecurrenceMode,
				Window: Period{Start: ev.ResetTime.On(ev.StartDate), End: cutoff}, Err: err,
			})
			continue
		}

		if !ev.AutoRenew && r.rewards != nil && len(completers) > 0 {
			// Post-commit on purpose: a grant failure must not undo the
			// event transition.
			if err := r.rewards.Grant(ctx, ev, completers); err != nil {
				log.Printf("[Reconciler] grant rewards for event %s: %v", ev.ID, err)
			}
		}
	}
	return nil
}

// rollover clears the old cycle and advances the cutoff. The event stays
// active: it is recurring, not terminal.
func (r *EventReconciler) rollover(ctx context.Context, tx Repository, ev Event, cutoff, now time.Time) error {
	if err := r.expireInstances(ctx, tx, ev, []Status{StatusPendingConfirmation, StatusCompleted}); err != nil {
		return err
	}

	// Roll the cutoff forward by whole recurrence periods until it is in
	// the future; otherwise every tick would re-expire the new cycle.
	next := CurrentPeriod(ev.RecurrenceType, cutoff, ev.ResetTime, now).End
	if !next.After(now) {
		next = now.AddDate(0, 0, 1)
	}
	return tx.Events().SetExpiredDate(ctx, ev.ID, next)
}

// terminate flips the event to expired, retires completed instances, and
// returns the users who completed every mission of the event.
func (r *EventReconciler) terminate(ctx context.Context, tx Repository, ev Event) ([]UserID, error) {
	completers, err := r.collectCompleters(ctx, tx, ev)
	if err != nil {
		return nil, err
	}
	if err := r.expireInstances(ctx, tx, ev, []Status{StatusCompleted}); err != nil {
		return nil, err
	}
	if err := tx.Events().SetStatus(ctx, ev.ID, StatusExpired); err != nil {
		return nil, err
	}
	return completers, nil
}

func (r *EventReconciler) expireInstances(ctx context.Context, tx Repository, ev Event, statuses []Status) error {
	mts, err := tx.Events().MissionsOf(ctx, ev.ID)
	if err != nil {
		return err
	}
	for _, mt := range mts {
		instances, err := tx.Missions().Find(ctx, MissionQuery{MissionType: mt, Statuses: statuses})
		if err != nil {
			return err
		}
		for _, m := range instances {
			if err := tx.Missions().SetStatus(ctx, m.ID, StatusExpired); err != nil {
				return err
			}
		}
	}
	return nil
}

// collectCompleters returns users holding a completed instance for every
// mission type of the event. Must run before completed instances are
// expired.
func (r *EventReconciler) collectCompleters(ctx context.Context, tx Repository, ev Event) ([]UserID, error) {
	mts, err := tx.Events().MissionsOf(ctx, ev.ID)
	if err != nil {
		return nil, err
	}
	if len(mts) == 0 {
		return nil, nil
	}

	counts := make(map[UserID]int)
	for _, mt := range mts {
		completed, err := tx.Missions().Find(ctx, MissionQuery{MissionType: mt, Statuses: []Status{StatusCompleted}})
		if err != nil {
			return nil, err
		}
		seen := make(map[UserID]bool)
		for _, m := range completed {
			if !seen[m.UserID] {
				seen[m.UserID] = true
				counts[m.UserID]++
			}
		}
	}

	var completers []UserID
	for user, n := range counts {
		if n == len(mts) {
			completers = append(completers, user)
		}
	}
	sort.Slice(completers, func(i, j int) bool { return completers[i] < completers[j] })
	return completers, nil
}

// notifyAllowed notifies every active user the event is visible to.
func (r *EventReconciler) notifyAllowed(ctx context.Context, ev Event, message string) {
	users, err := r.repo.Users().ListActiveIDs(ctx, ev.UserTypes)
	if err != nil {
		log.Printf("[Reconciler] notify for event %s: %v", ev.ID, err)
		return
	}
	for _, u := range users {
		r.notifier.Notify(u, message)
	}
}

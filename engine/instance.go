/*
instance.go - Per-user mission instance reconciliation

PURPOSE:
  The bottom level of the state machine: for each (mission type, user)
  pair, create, advance, or retire the single live instance so that the
  invariants hold after every pass:

  - At most one instance per (user, type) is pending_confirmation
  - A live instance's created_at falls inside the current window
  - No live pending instance survives a lapsed funding event
  - completed and expired are terminal

SWEEPS (one per recurrence mode, run in this order by the scheduler):
  Calendar     Stale instances are renewed (auto-renew bumps a pending
               instance's anchor to the new window; a stale completed
               instance makes room for a fresh one) or expired, in-window
               duplicates are collapsed, and a missing instance for the
               current window is created.
  ExpiredDate  One instance per user while the window is open; pending
               instances expire at the cutoff.
  UserBased    Pending instances expire when their personal deadline
               (created_at + relative_days, at reset time) passes.
               Creation is external (e.g. registration), never here.

TIE-BREAKS:
  When collapsing duplicate live instances, most recently created wins;
  a completed instance always outranks any pending sibling.

SELF-HEALING:
  Duplicate or out-of-window instances are not an exception path; the
  collapse/expire logic here IS the remediation. Per-pair failures are
  logged and skipped for the tick.

SEE ALSO:
  - period.go, rule.go: Window derivation
  - confirm.go: The user-triggered transition on the same windows
*/
package engine

import (
	"context"
	"log"
	"time"
)

// liveStatuses are the non-terminal-or-just-terminal states an instance
// can hold inside its window.
var liveStatuses = []Status{StatusPendingConfirmation, StatusCompleted}

// MissionInstanceReconciler enforces the per-(user, type) invariants.
type MissionInstanceReconciler struct {
	types    MissionTypeRepository
	missions MissionRepository
	users    UserRepository
	gate     *EventGate
	clock    Clock
}

// NewMissionInstanceReconciler wires the reconciler.
func NewMissionInstanceReconciler(types MissionTypeRepository, missions MissionRepository, users UserRepository, gate *EventGate, clock Clock) *MissionInstanceReconciler {
	return &MissionInstanceReconciler{types: types, missions: missions, users: users, gate: gate, clock: clock}
}

// =============================================================================
// CALENDAR SWEEP
// =============================================================================

// ReconcileCalendar runs the calendar-mode sweep over every active user.
// Expired types are included: their stale instances still need retiring.
func (r *MissionInstanceReconciler) ReconcileCalendar(ctx context.Context) error {
	now := r.clock.Now()

	types, err := r.types.ListByStatusAndMode(ctx, []Status{StatusActive, StatusExpired}, []RecurrenceMode{ModeCalendar})
	if err != nil {
		return err
	}
	userIDs, err := r.users.ListActiveIDs(ctx, nil)
	if err != nil {
		return err
	}

	for _, mt := range types {
		window := CurrentPeriod(mt.RecurrenceType, mt.StartDate, mt.ResetTime, now)
		gateOpen := r.gate.IsActive(mt.ID)

		for _, user := range userIDs {
			if err := r.reconcileCalendarPair(ctx, mt, user, window, gateOpen, now); err != nil {
				log.Printf("[Reconciler] %v", &ReconcileError{
					Entity: "mission", ID: string(mt.ID) + "/" + string(user),
					Mode: mt.RecurrenceMode, Window: window, Err: err,
				})
			}
		}
	}
	return nil
}

func (r *MissionInstanceReconciler) reconcileCalendarPair(ctx context.Context, mt MissionType, user UserID, window Period, gateOpen bool, now time.Time) error {
	if err := r.retireStale(ctx, mt, user, window, gateOpen); err != nil {
		return err
	}

	// A lapsed funding event or an expired type cannot hold pending
	// instances anywhere, current window included.
	if !gateOpen || mt.Status == StatusExpired {
		return r.expirePendingInWindow(ctx, mt.ID, user, window)
	}

	live, err := r.collapseWindow(ctx, mt.ID, user, window)
	if err != nil {
		return err
	}

	// A stale completed instance from the previous period leaves live
	// empty here, so the next period's instance is created on the same
	// pass.
	if live == 0 && mt.Status == StatusActive && gateOpen {
		if _, err := r.missions.Create(ctx, mt.ID, user, now); err != nil {
			return err
		}
	}
	return nil
}

func (r *MissionInstanceReconciler) expirePendingInWindow(ctx context.Context, mt MissionTypeID, user UserID, window Period) error {
	pending, err := r.missions.Find(ctx, MissionQuery{
		User:        user,
		MissionType: mt,
		Statuses:    []Status{StatusPendingConfirmation},
		Window:      &window,
	})
	if err != nil {
		return err
	}
	for _, m := range pending {
		if err := r.missions.SetStatus(ctx, m.ID, StatusExpired); err != nil {
			return err
		}
	}
	return nil
}

// retireStale handles instances whose created_at precedes the current
// window: renew, expire, or leave for creation depending on type state.
func (r *MissionInstanceReconciler) retireStale(ctx context.Context, mt MissionType, user UserID, window Period, gateOpen bool) error {
	stale, err := r.missions.Find(ctx, MissionQuery{
		User:          user,
		MissionType:   mt.ID,
		Statuses:      liveStatuses,
		CreatedBefore: &window.Start,
	})
	if err != nil {
		return err
	}

	for _, m := range stale {
		switch {
		case !gateOpen || mt.Status == StatusExpired:
			// The whole stale set retires here, completions included: a
			// lapsed event or expired type has no next period to carry
			// them into.
			if err := r.missions.SetStatus(ctx, m.ID, StatusExpired); err != nil {
				return err
			}
		case mt.AutoRenew:
			if m.Status == StatusPendingConfirmation {
				// Reuse the instance: bump its anchor into the new window
				// instead of recreating it.
				if err := r.missions.TouchCreatedAt(ctx, m.ID, window.Start); err != nil {
					return err
				}
			}
			// Stale completed: nothing to mutate, the creation step
			// produces the next period's instance.
		default:
			if m.Status == StatusPendingConfirmation {
				if err := r.missions.SetStatus(ctx, m.ID, StatusExpired); err != nil {
					return err
				}
			}
		}
	}
	return nil
}

// collapseWindow enforces "at most one live instance per window" and
// returns how many remain. Completed outranks pending; among pendings
// the most recently created wins.
func (r *MissionInstanceReconciler) collapseWindow(ctx context.Context, mt MissionTypeID, user UserID, window Period) (int, error) {
	inWindow, err := r.missions.Find(ctx, MissionQuery{
		User:        user,
		MissionType: mt,
		Statuses:    liveStatuses,
		Window:      &window,
	})
	if err != nil {
		return 0, err
	}
	if len(inWindow) <= 1 {
		return len(inWindow), nil
	}

	hasCompleted := false
	for _, m := range inWindow {
		if m.Status == StatusCompleted {
			hasCompleted = true
			break
		}
	}

	if hasCompleted {
		// The user already satisfied the requirement; extra pendings are
		// noise.
		kept := 0
		for _, m := range inWindow {
			if m.Status == StatusCompleted {
				kept++
				continue
			}
			if err := r.missions.SetStatus(ctx, m.ID, StatusExpired); err != nil {
				return 0, err
			}
		}
		return kept, nil
	}

	// All pending: keep the most recently created. Find returns ascending
	// CreatedAt order, so the winner is the last element.
	winner := inWindow[len(inWindow)-1]
	for _, m := range inWindow {
		if m.ID == winner.ID {
			continue
		}
		if err := r.missions.SetStatus(ctx, m.ID, StatusExpired); err != nil {
			return 0, err
		}
	}
	return 1, nil
}

// =============================================================================
// EXPIRED_DATE SWEEP
// =============================================================================

// ReconcileExpiredDate runs the fixed-cutoff sweep: one instance per user
// while the window is open, expiry at the cutoff.
func (r *MissionInstanceReconciler) ReconcileExpiredDate(ctx context.Context) error {
	now := r.clock.Now()

	types, err := r.types.ListByStatusAndMode(ctx, []Status{StatusActive, StatusExpired}, []RecurrenceMode{ModeExpiredDate})
	if err != nil {
		return err
	}

	for _, mt := range types {
		if err := r.reconcileExpiredDateType(ctx, mt, now); err != nil {
			log.Printf("[Reconciler] %v", &ReconcileError{
				Entity: "mission_type", ID: string(mt.ID),
				Mode: mt.RecurrenceMode, Window: RuleFor(mt).Window(now), Err: err,
			})
		}
	}
	return nil
}

func (r *MissionInstanceReconciler) reconcileExpiredDateType(ctx context.Context, mt MissionType, now time.Time) error {
	window := RuleFor(mt).Window(now)
	gateOpen := r.gate.IsActive(mt.ID)
	closed := mt.Status == StatusExpired || !gateOpen || !now.Before(window.End)

	if closed {
		pending, err := r.missions.Find(ctx, MissionQuery{
			MissionType: mt.ID,
			Statuses:    []Status{StatusPendingConfirmation},
		})
		if err != nil {
			return err
		}
		for _, m := range pending {
			if err := r.missions.SetStatus(ctx, m.ID, StatusExpired); err != nil {
				return err
			}
		}
		return nil
	}

	if now.Before(window.Start) {
		return nil
	}

	// Window open: one instance per user, ever. Existence is re-checked
	// per user immediately before insert.
	userIDs, err := r.users.ListActiveIDs(ctx, nil)
	if err != nil {
		return err
	}
	for _, user := range userIDs {
		existing, err := r.missions.Find(ctx, MissionQuery{User: user, MissionType: mt.ID})
		if err != nil {
			return err
		}
		if len(existing) > 0 {
			continue
		}
		if _, err := r.missions.Create(ctx, mt.ID, user, now); err != nil {
			return err
		}
	}
	return nil
}

// =============================================================================
// USER_BASED SWEEP
// =============================================================================

// ReconcileUserBased expires pending instances whose personal deadline
// has passed. Creation for user-anchored missions happens externally.
func (r *MissionInstanceReconciler) ReconcileUserBased(ctx context.Context) error {
	now := r.clock.Now()

	types, err := r.types.ListByStatusAndMode(ctx, []Status{StatusActive, StatusExpired}, []RecurrenceMode{ModeUserBased})
	if err != nil {
		return err
	}

	for _, mt := range types {
		rule := RuleFor(mt)
		gateOpen := r.gate.IsActive(mt.ID)

		pending, err := r.missions.Find(ctx, MissionQuery{
			MissionType: mt.ID,
			Statuses:    []Status{StatusPendingConfirmation},
		})
		if err != nil {
			log.Printf("[Reconciler] list instances of %s: %v", mt.ID, err)
			continue
		}

		for _, m := range pending {
			deadline := rule.InstanceWindow(m.CreatedAt).End
			if mt.Status != StatusExpired && gateOpen && now.Before(deadline) {
				continue
			}
			if err := r.missions.SetStatus(ctx, m.ID, StatusExpired); err != nil {
				log.Printf("[Reconciler] %v", &ReconcileError{
					Entity: "mission", ID: string(m.ID),
					Mode: mt.RecurrenceMode, Window: rule.InstanceWindow(m.CreatedAt), Err: err,
				})
			}
		}
	}
	return nil
}

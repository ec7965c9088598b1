/*
missiontype.go - Mission type activation and expiry

PURPOSE:
  The middle level of the state machine. Two phases per tick:

  Activate:  pending types whose start instant (at reset time) has
             arrived become active. Runs BEFORE the event reconciler so
             a freshly started type is visible to the same tick.

  Expire:    active types are checked against the gate and their window.
             Gate-inactive types get their pending instances expired
             (they are recreated naturally once the event reactivates).
             A type whose cutoff has passed expires unless it auto-renews
             (renewal is implicit: instance reconciliation rolls the
             window forward). Runs AFTER the event reconciler so gating
             never reads stale event state.

ERROR POLICY:
  Per-entity: a failing type is logged and skipped for the tick, never
  fatal to the sweep.

SEE ALSO:
  - gate.go: Gating snapshot
  - instance.go: Per-user consequences of type state
*/
package engine

import (
	"context"
	"log"
	"time"
)

// MissionTypeReconciler advances mission type status.
type MissionTypeReconciler struct {
	types    MissionTypeRepository
	missions MissionRepository
	gate     *EventGate
	clock    Clock
}

// NewMissionTypeReconciler wires the reconciler.
func NewMissionTypeReconciler(types MissionTypeRepository, missions MissionRepository, gate *EventGate, clock Clock) *MissionTypeReconciler {
	return &MissionTypeReconciler{types: types, missions: missions, gate: gate, clock: clock}
}

// Activate promotes pending mission types whose start has arrived.
func (r *MissionTypeReconciler) Activate(ctx context.Context) error {
	now := r.clock.Now()

	pending, err := r.types.ListByStatusAndMode(ctx, []Status{StatusPending}, AllModes)
	if err != nil {
		return err
	}

	for _, mt := range pending {
		startAt := mt.ResetTime.On(mt.StartDate)
		if now.Before(startAt) {
			continue
		}
		if err := r.types.SetStatus(ctx, mt.ID, StatusActive); err != nil {
			log.Printf("[Reconciler] activate mission type %s: %v", mt.ID, err)
			continue
		}
	}
	return nil
}

// Expire retires active mission types whose cutoff has passed, and
// clears pending instances of types whose funding event lapsed.
func (r *MissionTypeReconciler) Expire(ctx context.Context) error {
	now := r.clock.Now()

	active, err := r.types.ListByStatusAndMode(ctx, []Status{StatusActive}, AllModes)
	if err != nil {
		return err
	}

	for _, mt := range active {
		if err := r.expireOne(ctx, mt, now); err != nil {
			log.Printf("[Reconciler] %v", err)
		}
	}
	return nil
}

func (r *MissionTypeReconciler) expireOne(ctx context.Context, mt MissionType, now time.Time) error {
	rule := RuleFor(mt)
	window := rule.Window(now)

	// A type without an active funding event cannot hold live pending
	// instances. The type itself keeps its status: if the event
	// reactivates, instance reconciliation recreates instances.
	if !r.gate.IsActive(mt.ID) {
		if err := r.expirePendingInstances(ctx, mt.ID); err != nil {
			return &ReconcileError{Entity: "mission_type", ID: string(mt.ID), Mode: mt.RecurrenceMode, Window: window, Err: err}
		}
		return nil
	}

	// USER_BASED types have no global window to expire against; their
	// instances carry personal deadlines (instance.go).
	if mt.RecurrenceMode == ModeUserBased {
		return nil
	}

	// CALENDAR windows always contain now, so only fixed cutoffs can
	// trip this. Auto-renew leaves the type active: renewal is implicit.
	if now.Before(window.End) || mt.AutoRenew {
		return nil
	}
	if err := r.types.SetStatus(ctx, mt.ID, StatusExpired); err != nil {
		return &ReconcileError{Entity: "mission_type", ID: string(mt.ID), Mode: mt.RecurrenceMode, Window: window, Err: err}
	}
	return nil
}

func (r *MissionTypeReconciler) expirePendingInstances(ctx context.Context, mt MissionTypeID) error {
	pending, err := r.missions.Find(ctx, MissionQuery{
		MissionType: mt,
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

/*
gate.go - Event gating for mission types

PURPOSE:
  A mission type cannot sustain live instances while its funding event is
  inactive. The gate answers "does this mission type currently have an
  active event?" from a per-tick snapshot, so every reconciler in the
  same tick sees one consistent gating state.

SNAPSHOT SEMANTICS:
  Refresh() is called once per tick, after the event reconciler settles
  event statuses. A mission type referenced by no event at all is
  ungated: the gate only constrains event-funded types.

SEE ALSO:
  - event.go: Settles event statuses before the gate refreshes
  - missiontype.go, instance.go: Consult the gate
*/
package engine

import "context"

// EventGate reports whether a mission type's parent event is active.
type EventGate struct {
	events EventRepository

	gated  map[MissionTypeID]bool // referenced by at least one event
	active map[MissionTypeID]bool // referenced by an active event
}

// NewEventGate creates a gate over the given event repository. The gate
// answers permissively (everything active) until the first Refresh.
func NewEventGate(events EventRepository) *EventGate {
	return &EventGate{events: events}
}

// Refresh rebuilds the snapshot from current event state.
func (g *EventGate) Refresh(ctx context.Context) error {
	evs, err := g.events.ListByStatus(ctx, AllStatuses...)
	if err != nil {
		return err
	}

	gated := make(map[MissionTypeID]bool)
	active := make(map[MissionTypeID]bool)
	for _, ev := range evs {
		mts, err := g.events.MissionsOf(ctx, ev.ID)
		if err != nil {
			return err
		}
		for _, mt := range mts {
			gated[mt] = true
			if ev.Status == StatusActive {
				active[mt] = true
			}
		}
	}

	g.gated = gated
	g.active = active
	return nil
}

// IsActive returns true if the mission type either has an active funding
// event or is not funded by any event.
func (g *EventGate) IsActive(id MissionTypeID) bool {
	if g.gated == nil || !g.gated[id] {
		return true
	}
	return g.active[id]
}

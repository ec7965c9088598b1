package engine_test

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/mission-engine/engine"
)

// =============================================================================
// TEST SETUP
// =============================================================================
// Note: fixture, fakeClock, and captureNotifier are defined in instance_test.go

// captureGranter records reward hand-offs.
type captureGranter struct {
	event engine.Event
	users []engine.UserID
	calls int
}

func (g *captureGranter) Grant(_ context.Context, ev engine.Event, users []engine.UserID) error {
	g.event = ev
	g.users = users
	g.calls++
	return nil
}

func (f *fixture) events(notifier engine.Notifier, granter engine.RewardGranter) *engine.EventReconciler {
	return engine.NewEventReconciler(f.store, f.clock, notifier, granter)
}

func monthlyEvent(id engine.EventID, missions []engine.MissionTypeID, autoRenew bool, expired *time.Time) engine.Event {
	return engine.Event{
		ID:             id,
		Name:           string(id),
		Missions:       missions,
		Status:         engine.StatusActive,
		StartDate:      day(2025, time.January, 1),
		ExpiredDate:    expired,
		RecurrenceType: engine.RecurrenceMonthly,
		RecurrenceMode: engine.ModeCalendar,
		AutoRenew:      autoRenew,
	}
}

// =============================================================================
// ACTIVATION
// =============================================================================

func TestEventReconciler_Activate_StartArrived(t *testing.T) {
	// GIVEN: A pending event whose start instant has passed, and an allowed user
	// WHEN: The reconciler runs
	// THEN: The event becomes active and the user is notified

	f := newFixture(at(2025, time.January, 1, 10, 0))
	f.saveUser(t, "u-1")

	ctx := context.Background()
	ev := monthlyEvent("ev-jan", nil, false, nil)
	ev.Status = engine.StatusPending
	require.NoError(t, f.store.Events().Save(ctx, ev))

	notifier := &captureNotifier{}
	require.NoError(t, f.events(notifier, nil).Reconcile(ctx))

	got, err := f.store.Events().Get(ctx, "ev-jan")
	require.NoError(t, err)
	assert.Equal(t, engine.StatusActive, got.Status)
	assert.Equal(t, []engine.UserID{"u-1"}, notifier.users)
}

func TestEventReconciler_Activate_FutureStartStaysPending(t *testing.T) {
	// GIVEN: A pending event starting next month
	// WHEN: The reconciler runs
	// THEN: The event stays pending

	f := newFixture(day(2025, time.January, 15))

	ctx := context.Background()
	ev := monthlyEvent("ev-feb", nil, false, nil)
	ev.Status = engine.StatusPending
	ev.StartDate = day(2025, time.February, 1)
	require.NoError(t, f.store.Events().Save(ctx, ev))

	require.NoError(t, f.events(nil, nil).Reconcile(ctx))

	got, err := f.store.Events().Get(ctx, "ev-feb")
	require.NoError(t, err)
	assert.Equal(t, engine.StatusPending, got.Status)
}

func TestEventReconciler_Activate_RespectsResetTime(t *testing.T) {
	// GIVEN: A pending event starting today with a 12:00 reset
	// WHEN: The reconciler runs at 08:00
	// THEN: The event stays pending until the reset instant

	f := newFixture(at(2025, time.January, 1, 8, 0))

	ctx := context.Background()
	ev := monthlyEvent("ev-noon", nil, false, nil)
	ev.Status = engine.StatusPending
	ev.ResetTime = engine.ResetTime{Hour: 12}
	require.NoError(t, f.store.Events().Save(ctx, ev))

	require.NoError(t, f.events(nil, nil).Reconcile(ctx))

	got, err := f.store.Events().Get(ctx, "ev-noon")
	require.NoError(t, err)
	assert.Equal(t, engine.StatusPending, got.Status)
}

// =============================================================================
// AUTO-RENEW ROLLOVER
// =============================================================================

func TestEventReconciler_AutoRenew_RollsCycleOver(t *testing.T) {
	// GIVEN: An auto-renewing monthly event past its cutoff, whose mission
	//        type holds a pending and a completed instance
	// WHEN: The reconciler runs
	// THEN: Both instances expire, the event stays active, and the cutoff
	//       rolls forward past now

	f := newFixture(at(2025, time.February, 2, 0, 0))
	f.saveUser(t, "u-1")
	f.saveType(t, dailyType("mt-a", true))

	ctx := context.Background()
	cutoff := day(2025, time.February, 1)
	require.NoError(t, f.store.Events().Save(ctx, monthlyEvent("ev-loop", []engine.MissionTypeID{"mt-a"}, true, &cutoff)))

	pending, err := f.store.Missions().Create(ctx, "mt-a", "u-1", day(2025, time.January, 20))
	require.NoError(t, err)
	done, err := f.store.Missions().Create(ctx, "mt-a", "u-1", day(2025, time.January, 25))
	require.NoError(t, err)
	require.NoError(t, f.store.Missions().SetStatus(ctx, done.ID, engine.StatusCompleted))

	granter := &captureGranter{}
	require.NoError(t, f.events(nil, granter).Reconcile(ctx))

	expired := f.findMissions(t, engine.MissionQuery{MissionType: "mt-a", Statuses: []engine.Status{engine.StatusExpired}})
	require.Len(t, expired, 2)
	assert.ElementsMatch(t, []engine.MissionID{pending.ID, done.ID}, []engine.MissionID{expired[0].ID, expired[1].ID})

	ev, err := f.store.Events().Get(ctx, "ev-loop")
	require.NoError(t, err)
	assert.Equal(t, engine.StatusActive, ev.Status, "auto-renew keeps the event active")
	require.NotNil(t, ev.ExpiredDate)
	assert.True(t, ev.ExpiredDate.After(f.clock.now), "cutoff must land in the future")

	assert.Zero(t, granter.calls, "rollover never grants rewards")
}

func TestEventReconciler_AutoRenew_Converges(t *testing.T) {
	// GIVEN: An auto-renewing event already rolled over this tick
	// WHEN: The reconciler runs again at the same instant
	// THEN: The cutoff does not move and nothing new expires

	f := newFixture(at(2025, time.February, 2, 0, 0))
	f.saveType(t, dailyType("mt-a", true))

	ctx := context.Background()
	cutoff := day(2025, time.February, 1)
	require.NoError(t, f.store.Events().Save(ctx, monthlyEvent("ev-loop", []engine.MissionTypeID{"mt-a"}, true, &cutoff)))

	r := f.events(nil, nil)
	require.NoError(t, r.Reconcile(ctx))

	first, err := f.store.Events().Get(ctx, "ev-loop")
	require.NoError(t, err)

	require.NoError(t, r.Reconcile(ctx))

	second, err := f.store.Events().Get(ctx, "ev-loop")
	require.NoError(t, err)
	assert.True(t, first.ExpiredDate.Equal(*second.ExpiredDate), "cutoff moved on a convergent re-run")
}

// =============================================================================
// TERMINAL EXPIRY AND REWARDS
// =============================================================================

func TestEventReconciler_Terminate_HandsCompletersToGranter(t *testing.T) {
	// GIVEN: A non-renewing event past its cutoff with two mission types;
	//        u-all completed both, u-half completed one
	// WHEN: The reconciler runs
	// THEN: The event expires, only u-all is handed to the reward granter,
	//       completed instances expire, and the pending one is left alone

	f := newFixture(at(2025, time.February, 2, 0, 0))
	f.saveUser(t, "u-all")
	f.saveUser(t, "u-half")
	f.saveType(t, dailyType("mt-a", false))
	f.saveType(t, dailyType("mt-b", false))

	ctx := context.Background()
	cutoff := day(2025, time.February, 1)
	ev := monthlyEvent("ev-final", []engine.MissionTypeID{"mt-a", "mt-b"}, false, &cutoff)
	ev.Gift = engine.Gift{Name: "champion badge", Points: decimal.NewFromInt(500)}
	require.NoError(t, f.store.Events().Save(ctx, ev))

	complete := func(mt engine.MissionTypeID, user engine.UserID) {
		m, err := f.store.Missions().Create(ctx, mt, user, day(2025, time.January, 20))
		require.NoError(t, err)
		require.NoError(t, f.store.Missions().SetStatus(ctx, m.ID, engine.StatusCompleted))
	}
	complete("mt-a", "u-all")
	complete("mt-b", "u-all")
	complete("mt-a", "u-half")
	leftover, err := f.store.Missions().Create(ctx, "mt-b", "u-half", day(2025, time.January, 20))
	require.NoError(t, err)

	granter := &captureGranter{}
	require.NoError(t, f.events(nil, granter).Reconcile(ctx))

	got, err := f.store.Events().Get(ctx, "ev-final")
	require.NoError(t, err)
	assert.Equal(t, engine.StatusExpired, got.Status)

	assert.Equal(t, 1, granter.calls)
	assert.Equal(t, []engine.UserID{"u-all"}, granter.users)
	assert.Equal(t, "champion badge", granter.event.Gift.Name)

	completed := f.findMissions(t, engine.MissionQuery{Statuses: []engine.Status{engine.StatusCompleted}})
	assert.Empty(t, completed, "completed instances retire with the event")

	pendings := f.findMissions(t, engine.MissionQuery{Statuses: []engine.Status{engine.StatusPendingConfirmation}})
	require.Len(t, pendings, 1)
	assert.Equal(t, leftover.ID, pendings[0].ID, "pending instances expire via type reconciliation, not here")
}

func TestEventReconciler_Terminate_NoCompleters_NoGrant(t *testing.T) {
	// GIVEN: A non-renewing event past its cutoff with no completions
	// WHEN: The reconciler runs
	// THEN: The event expires and the granter is never called

	f := newFixture(at(2025, time.February, 2, 0, 0))
	f.saveType(t, dailyType("mt-a", false))

	ctx := context.Background()
	cutoff := day(2025, time.February, 1)
	require.NoError(t, f.store.Events().Save(ctx, monthlyEvent("ev-empty", []engine.MissionTypeID{"mt-a"}, false, &cutoff)))

	granter := &captureGranter{}
	require.NoError(t, f.events(nil, granter).Reconcile(ctx))

	got, err := f.store.Events().Get(ctx, "ev-empty")
	require.NoError(t, err)
	assert.Equal(t, engine.StatusExpired, got.Status)
	assert.Zero(t, granter.calls)
}

func TestEventReconciler_NoCutoff_StaysActive(t *testing.T) {
	// GIVEN: An active event with no expired_date configured
	// WHEN: The reconciler runs far in the future
	// THEN: The event stays active

	f := newFixture(day(2030, time.January, 1))

	ctx := context.Background()
	require.NoError(t, f.store.Events().Save(ctx, monthlyEvent("ev-open", nil, false, nil)))

	require.NoError(t, f.events(nil, nil).Reconcile(ctx))

	got, err := f.store.Events().Get(ctx, "ev-open")
	require.NoError(t, err)
	assert.Equal(t, engine.StatusActive, got.Status)
}

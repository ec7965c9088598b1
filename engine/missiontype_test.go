package engine_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/mission-engine/engine"
)

// Note: fixture, fakeClock, and dailyType are defined in instance_test.go

func (f *fixture) types() *engine.MissionTypeReconciler {
	return engine.NewMissionTypeReconciler(f.store.MissionTypes(), f.store.Missions(), f.gate, f.clock)
}

// =============================================================================
// ACTIVATION
// =============================================================================

func TestMissionTypeReconciler_Activate_StartArrived(t *testing.T) {
	// GIVEN: A pending mission type whose start has passed
	// WHEN: Activation runs
	// THEN: The type becomes active

	f := newFixture(at(2025, time.January, 2, 10, 0))

	mt := dailyType("mt-1", true)
	mt.Status = engine.StatusPending
	f.saveType(t, mt)

	ctx := context.Background()
	require.NoError(t, f.types().Activate(ctx))

	got, err := f.store.MissionTypes().Get(ctx, "mt-1")
	require.NoError(t, err)
	assert.Equal(t, engine.StatusActive, got.Status)
}

func TestMissionTypeReconciler_Activate_BeforeResetInstant(t *testing.T) {
	// GIVEN: A pending type starting today with a 12:00 reset
	// WHEN: Activation runs at 08:00
	// THEN: The type stays pending

	f := newFixture(at(2025, time.January, 1, 8, 0))

	mt := dailyType("mt-noon", true)
	mt.Status = engine.StatusPending
	mt.ResetTime = engine.ResetTime{Hour: 12}
	f.saveType(t, mt)

	ctx := context.Background()
	require.NoError(t, f.types().Activate(ctx))

	got, err := f.store.MissionTypes().Get(ctx, "mt-noon")
	require.NoError(t, err)
	assert.Equal(t, engine.StatusPending, got.Status)
}

// =============================================================================
// EXPIRY
// =============================================================================

func TestMissionTypeReconciler_Expire_FixedCutoffPassed(t *testing.T) {
	// GIVEN: An active fixed-cutoff type whose expiration has passed
	// WHEN: Expiry runs
	// THEN: The type becomes expired

	f := newFixture(day(2025, time.March, 2))

	cutoff := day(2025, time.March, 1)
	f.saveType(t, engine.MissionType{
		ID:             "mt-cut",
		Status:         engine.StatusActive,
		RecurrenceType: engine.RecurrenceOnce,
		RecurrenceMode: engine.ModeExpiredDate,
		StartDate:      day(2025, time.January, 1),
		ExpirationDate: &cutoff,
	})

	ctx := context.Background()
	require.NoError(t, f.types().Expire(ctx))

	got, err := f.store.MissionTypes().Get(ctx, "mt-cut")
	require.NoError(t, err)
	assert.Equal(t, engine.StatusExpired, got.Status)
}

func TestMissionTypeReconciler_Expire_AutoRenewStaysActive(t *testing.T) {
	// GIVEN: An auto-renewing fixed-cutoff type whose expiration has passed
	// WHEN: Expiry runs
	// THEN: The type stays active; renewal is implicit

	f := newFixture(day(2025, time.March, 2))

	cutoff := day(2025, time.March, 1)
	f.saveType(t, engine.MissionType{
		ID:             "mt-renew",
		Status:         engine.StatusActive,
		RecurrenceType: engine.RecurrenceOnce,
		RecurrenceMode: engine.ModeExpiredDate,
		StartDate:      day(2025, time.January, 1),
		ExpirationDate: &cutoff,
		AutoRenew:      true,
	})

	ctx := context.Background()
	require.NoError(t, f.types().Expire(ctx))

	got, err := f.store.MissionTypes().Get(ctx, "mt-renew")
	require.NoError(t, err)
	assert.Equal(t, engine.StatusActive, got.Status)
}

func TestMissionTypeReconciler_Expire_CalendarNeverExpiresOnWindow(t *testing.T) {
	// GIVEN: An active calendar type without auto-renew
	// WHEN: Expiry runs long after the anchor
	// THEN: The type stays active; calendar windows always contain now

	f := newFixture(day(2026, time.June, 15))
	f.saveType(t, dailyType("mt-daily", false))

	ctx := context.Background()
	require.NoError(t, f.types().Expire(ctx))

	got, err := f.store.MissionTypes().Get(ctx, "mt-daily")
	require.NoError(t, err)
	assert.Equal(t, engine.StatusActive, got.Status)
}

func TestMissionTypeReconciler_Expire_GateClosed_ClearsPendingInstances(t *testing.T) {
	// GIVEN: An active type funded by an expired event, holding a pending
	//        instance
	// WHEN: The gate refreshes and expiry runs
	// THEN: The pending instance expires; the type keeps its status so a
	//       reactivated event resumes instance creation

	f := newFixture(day(2025, time.January, 10))
	f.saveType(t, dailyType("mt-gated", true))

	ctx := context.Background()
	require.NoError(t, f.store.Events().Save(ctx, engine.Event{
		ID:             "ev-off",
		Name:           "lapsed",
		Missions:       []engine.MissionTypeID{"mt-gated"},
		Status:         engine.StatusExpired,
		StartDate:      day(2025, time.January, 1),
		RecurrenceType: engine.RecurrenceMonthly,
		RecurrenceMode: engine.ModeCalendar,
	}))
	require.NoError(t, f.gate.Refresh(ctx))

	_, err := f.store.Missions().Create(ctx, "mt-gated", "u-1", day(2025, time.January, 10))
	require.NoError(t, err)

	require.NoError(t, f.types().Expire(ctx))

	got, err := f.store.MissionTypes().Get(ctx, "mt-gated")
	require.NoError(t, err)
	assert.Equal(t, engine.StatusActive, got.Status, "gating does not change type status")

	pending := f.findMissions(t, engine.MissionQuery{MissionType: "mt-gated", Statuses: []engine.Status{engine.StatusPendingConfirmation}})
	assert.Empty(t, pending)
}

func TestMissionTypeReconciler_Expire_UserBasedHasNoGlobalCutoff(t *testing.T) {
	// GIVEN: An active user-anchored type far past its anchor
	// WHEN: Expiry runs
	// THEN: The type stays active; only instances carry deadlines

	f := newFixture(day(2030, time.January, 1))
	f.saveType(t, engine.MissionType{
		ID:             "mt-user",
		Status:         engine.StatusActive,
		RecurrenceMode: engine.ModeUserBased,
		StartDate:      day(2025, time.January, 1),
	})

	ctx := context.Background()
	require.NoError(t, f.types().Expire(ctx))

	got, err := f.store.MissionTypes().Get(ctx, "mt-user")
	require.NoError(t, err)
	assert.Equal(t, engine.StatusActive, got.Status)
}

// =============================================================================
// EVENT GATE
// =============================================================================

func TestEventGate_UnreferencedTypeIsUngated(t *testing.T) {
	// GIVEN: A refreshed gate over events that reference other types
	// WHEN: Asking about a type no event references
	// THEN: The gate answers active

	f := newFixture(day(2025, time.January, 10))

	ctx := context.Background()
	require.NoError(t, f.store.Events().Save(ctx, engine.Event{
		ID:             "ev-1",
		Missions:       []engine.MissionTypeID{"mt-other"},
		Status:         engine.StatusExpired,
		StartDate:      day(2025, time.January, 1),
		RecurrenceType: engine.RecurrenceMonthly,
		RecurrenceMode: engine.ModeCalendar,
	}))
	require.NoError(t, f.gate.Refresh(ctx))

	assert.True(t, f.gate.IsActive("mt-orphan"))
	assert.False(t, f.gate.IsActive("mt-other"))
}

func TestEventGate_AnyActiveEventOpensTheGate(t *testing.T) {
	// GIVEN: A type referenced by one expired and one active event
	// WHEN: The gate refreshes
	// THEN: The type is gated open

	f := newFixture(day(2025, time.January, 10))

	ctx := context.Background()
	for _, ev := range []engine.Event{
		{ID: "ev-dead", Missions: []engine.MissionTypeID{"mt-shared"}, Status: engine.StatusExpired,
			StartDate: day(2025, time.January, 1), RecurrenceType: engine.RecurrenceMonthly, RecurrenceMode: engine.ModeCalendar},
		{ID: "ev-live", Missions: []engine.MissionTypeID{"mt-shared"}, Status: engine.StatusActive,
			StartDate: day(2025, time.January, 1), RecurrenceType: engine.RecurrenceMonthly, RecurrenceMode: engine.ModeCalendar},
	} {
		require.NoError(t, f.store.Events().Save(ctx, ev))
	}
	require.NoError(t, f.gate.Refresh(ctx))

	assert.True(t, f.gate.IsActive("mt-shared"))
}

func TestEventGate_PermissiveBeforeFirstRefresh(t *testing.T) {
	// GIVEN: A gate that has never refreshed
	// WHEN: Asking about any type
	// THEN: The gate answers active

	f := newFixture(day(2025, time.January, 10))
	assert.True(t, f.gate.IsActive("mt-anything"))
}

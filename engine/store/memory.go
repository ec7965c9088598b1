// Package store provides an in-memory Repository implementation
// (for testing/dev).
package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/warp/mission-engine/engine"
)

// =============================================================================
// MEMORY STORE - In-memory implementation (for testing/dev)
// =============================================================================

// Memory holds all records behind one mutex. Listing order is insertion
// order, matching the stable-order contract of the repositories.
type Memory struct {
	mu sync.RWMutex

	events     map[engine.EventID]engine.Event
	eventOrder []engine.EventID

	types     map[engine.MissionTypeID]engine.MissionType
	typeOrder []engine.MissionTypeID

	missions     map[engine.MissionID]engine.Mission
	missionOrder []engine.MissionID

	users     map[engine.UserID]engine.User
	userOrder []engine.UserID
}

// NewMemory creates an empty store.
func NewMemory() *Memory {
	return &Memory{
		events:   make(map[engine.EventID]engine.Event),
		types:    make(map[engine.MissionTypeID]engine.MissionType),
		missions: make(map[engine.MissionID]engine.Mission),
		users:    make(map[engine.UserID]engine.User),
	}
}

// The aggregate repositories share method names (Get, Save, SetStatus),
// so each is a thin facade over the same Memory.

func (m *Memory) Events() engine.EventRepository             { return eventRepo{m} }
func (m *Memory) MissionTypes() engine.MissionTypeRepository { return typeRepo{m} }
func (m *Memory) Missions() engine.MissionRepository         { return missionRepo{m} }
func (m *Memory) Users() engine.UserRepository               { return userRepo{m} }

// WithTx runs fn against the store. A single-process memory store has no
// rollback; the mutex in each operation keeps individual writes atomic,
// which is what the tests exercise.
func (m *Memory) WithTx(_ context.Context, fn func(engine.Repository) error) error {
	return fn(m)
}

// Compile-time checks.
var (
	_ engine.Repository   = (*Memory)(nil)
	_ engine.TxRepository = (*Memory)(nil)
)

// =============================================================================
// EVENTS
// =============================================================================

type eventRepo struct{ m *Memory }

func (r eventRepo) ListByStatus(_ context.Context, statuses ...engine.Status) ([]engine.Event, error) {
	r.m.mu.RLock()
	defer r.m.mu.RUnlock()

	var out []engine.Event
	for _, id := range r.m.eventOrder {
		ev := r.m.events[id]
		if statusIn(ev.Status, statuses) {
			out = append(out, ev)
		}
	}
	return out, nil
}

func (r eventRepo) Get(_ context.Context, id engine.EventID) (engine.Event, error) {
	r.m.mu.RLock()
	defer r.m.mu.RUnlock()

	ev, ok := r.m.events[id]
	if !ok {
		return engine.Event{}, engine.ErrEventNotFound
	}
	return ev, nil
}

func (r eventRepo) Save(_ context.Context, ev engine.Event) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()

	if _, ok := r.m.events[ev.ID]; !ok {
		r.m.eventOrder = append(r.m.eventOrder, ev.ID)
	}
	r.m.events[ev.ID] = ev
	return nil
}

func (r eventRepo) SetStatus(_ context.Context, id engine.EventID, status engine.Status) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()

	ev, ok := r.m.events[id]
	if !ok {
		return engine.ErrEventNotFound
	}
	ev.Status = status
	r.m.events[id] = ev
	return nil
}

func (r eventRepo) SetExpiredDate(_ context.Context, id engine.EventID, expiredAt time.Time) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()

	ev, ok := r.m.events[id]
	if !ok {
		return engine.ErrEventNotFound
	}
	ev.ExpiredDate = &expiredAt
	r.m.events[id] = ev
	return nil
}

func (r eventRepo) MissionsOf(_ context.Context, id engine.EventID) ([]engine.MissionTypeID, error) {
	r.m.mu.RLock()
	defer r.m.mu.RUnlock()

	ev, ok := r.m.events[id]
	if !ok {
		return nil, engine.ErrEventNotFound
	}
	out := make([]engine.MissionTypeID, len(ev.Missions))
	copy(out, ev.Missions)
	return out, nil
}

// =============================================================================
// MISSION TYPES
// =============================================================================

type typeRepo struct{ m *Memory }

func (r typeRepo) ListByStatusAndMode(_ context.Context, statuses []engine.Status, modes []engine.RecurrenceMode) ([]engine.MissionType, error) {
	r.m.mu.RLock()
	defer r.m.mu.RUnlock()

	var out []engine.MissionType
	for _, id := range r.m.typeOrder {
		mt := r.m.types[id]
		if !statusIn(mt.Status, statuses) {
			continue
		}
		if len(modes) > 0 && !modeIn(mt.RecurrenceMode, modes) {
			continue
		}
		out = append(out, mt)
	}
	return out, nil
}

func (r typeRepo) Get(_ context.Context, id engine.MissionTypeID) (engine.MissionType, error) {
	r.m.mu.RLock()
	defer r.m.mu.RUnlock()

	mt, ok := r.m.types[id]
	if !ok {
		return engine.MissionType{}, engine.ErrMissionTypeNotFound
	}
	return mt, nil
}

func (r typeRepo) Save(_ context.Context, mt engine.MissionType) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()

	if _, ok := r.m.types[mt.ID]; !ok {
		r.m.typeOrder = append(r.m.typeOrder, mt.ID)
	}
	r.m.types[mt.ID] = mt
	return nil
}

func (r typeRepo) SetStatus(_ context.Context, id engine.MissionTypeID, status engine.Status) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()

	mt, ok := r.m.types[id]
	if !ok {
		return engine.ErrMissionTypeNotFound
	}
	mt.Status = status
	r.m.types[id] = mt
	return nil
}

// =============================================================================
// MISSIONS
// =============================================================================

type missionRepo struct{ m *Memory }

func (r missionRepo) Find(_ context.Context, q engine.MissionQuery) ([]engine.Mission, error) {
	r.m.mu.RLock()
	defer r.m.mu.RUnlock()

	var out []engine.Mission
	for _, id := range r.m.missionOrder {
		if ms := r.m.missions[id]; q.Matches(ms) {
			out = append(out, ms)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}

func (r missionRepo) Create(_ context.Context, mt engine.MissionTypeID, user engine.UserID, createdAt time.Time) (engine.Mission, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()

	ms := engine.Mission{
		ID:            engine.MissionID(uuid.NewString()),
		MissionTypeID: mt,
		UserID:        user,
		Status:        engine.StatusPendingConfirmation,
		CreatedAt:     createdAt,
	}
	r.m.missions[ms.ID] = ms
	r.m.missionOrder = append(r.m.missionOrder, ms.ID)
	return ms, nil
}

func (r missionRepo) SetStatus(_ context.Context, id engine.MissionID, status engine.Status) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()

	ms, ok := r.m.missions[id]
	if !ok {
		return engine.ErrMissionNotFound
	}
	ms.Status = status
	r.m.missions[id] = ms
	return nil
}

func (r missionRepo) Complete(_ context.Context, id engine.MissionID, usedAt time.Time) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()

	ms, ok := r.m.missions[id]
	if !ok {
		return engine.ErrMissionNotFound
	}
	if ms.Status != engine.StatusPendingConfirmation {
		return engine.ErrConflict
	}
	ms.Status = engine.StatusCompleted
	ms.UsedAt = &usedAt
	r.m.missions[id] = ms
	return nil
}

func (r missionRepo) TouchCreatedAt(_ context.Context, id engine.MissionID, createdAt time.Time) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()

	ms, ok := r.m.missions[id]
	if !ok {
		return engine.ErrMissionNotFound
	}
	ms.CreatedAt = createdAt
	r.m.missions[id] = ms
	return nil
}

// =============================================================================
// USERS
// =============================================================================

type userRepo struct{ m *Memory }

func (r userRepo) ListActiveIDs(_ context.Context, userTypes []string) ([]engine.UserID, error) {
	r.m.mu.RLock()
	defer r.m.mu.RUnlock()

	var out []engine.UserID
	for _, id := range r.m.userOrder {
		u := r.m.users[id]
		if !u.Active {
			continue
		}
		if len(userTypes) > 0 && !typeIn(u.Type, userTypes) {
			continue
		}
		out = append(out, u.ID)
	}
	return out, nil
}

func (r userRepo) Save(_ context.Context, u engine.User) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()

	if _, ok := r.m.users[u.ID]; !ok {
		r.m.userOrder = append(r.m.userOrder, u.ID)
	}
	r.m.users[u.ID] = u
	return nil
}

// =============================================================================
// HELPERS
// =============================================================================

func statusIn(s engine.Status, set []engine.Status) bool {
	for _, c := range set {
		if s == c {
			return true
		}
	}
	return false
}

func modeIn(m engine.RecurrenceMode, set []engine.RecurrenceMode) bool {
	for _, c := range set {
		if m == c {
			return true
		}
	}
	return false
}

func typeIn(t string, set []string) bool {
	for _, c := range set {
		if t == c {
			return true
		}
	}
	return false
}

/*
scheduler.go - Fixed-interval reconciliation driver

PURPOSE:
  Drives the reconciliation engine on a fixed tick so event, mission
  type, and per-user instance state converge to a consistent snapshot.

TICK ORDER (strict):
  1. Housekeeping collaborator (subscription/billing, external)
  2. Mission type activation
  3. Event reconciliation (activation, cycle rollover, terminal expiry)
  4. Event gate refresh + mission type gating/expiry
  5. Instance sweeps: calendar, fixed-cutoff, user-anchored

  Upstream state must settle before downstream state reads it: events
  before gating, gating before instances.

OVERLAP PROTECTION:
  Single-flight. If a tick is still running when the next is due, the
  next tick is skipped; ticks are idempotent and a missed tick is caught
  on the following one.

CONFIGURATION:
  - TickInterval: How often to run (default: 60 seconds)
  - TickTimeout:  Soft per-tick deadline (default: 10 minutes); a stuck
                  repository call cancels the tick, not the process

USAGE:
  scheduler := NewReconciliationScheduler(types, events, instances, gate)
  scheduler.Start()
  // ... later
  scheduler.Stop()

SEE ALSO:
  - engine/missiontype.go, engine/event.go, engine/instance.go
  - handlers.go: Admin endpoint triggering RunNow
*/
package api

import (
	"context"
	"log"
	"sync"
	"sync/atomic"
	"time"

	"github.com/warp/mission-engine/engine"
)

// Housekeeper is the external collaborator run at the top of every tick.
type Housekeeper interface {
	RunHousekeeping(ctx context.Context) error
}

// ReconciliationScheduler runs the ordered reconciliation phases on a
// fixed interval.
type ReconciliationScheduler struct {
	Types     *engine.MissionTypeReconciler
	Events    *engine.EventReconciler
	Instances *engine.MissionInstanceReconciler
	Gate      *engine.EventGate

	Housekeeper Housekeeper // optional

	TickInterval time.Duration
	TickTimeout  time.Duration

	ticker  *time.Ticker
	stop    chan struct{}
	wg      sync.WaitGroup
	mu      sync.Mutex
	ticking atomic.Bool
}

// NewReconciliationScheduler creates a scheduler with default timing.
func NewReconciliationScheduler(types *engine.MissionTypeReconciler, events *engine.EventReconciler, instances *engine.MissionInstanceReconciler, gate *engine.EventGate) *ReconciliationScheduler {
	return &ReconciliationScheduler{
		Types:        types,
		Events:       events,
		Instances:    instances,
		Gate:         gate,
		TickInterval: 60 * time.Second,
		TickTimeout:  10 * time.Minute,
		stop:         make(chan struct{}),
	}
}

// Start begins the scheduler. The first tick runs immediately.
func (rs *ReconciliationScheduler) Start() {
	rs.mu.Lock()
	defer rs.mu.Unlock()

	if rs.ticker != nil {
		return
	}
	rs.ticker = time.NewTicker(rs.TickInterval)
	rs.stop = make(chan struct{})
	rs.wg.Add(1)

	go rs.run()

	log.Printf("[Scheduler] Started with tick interval: %v", rs.TickInterval)
}

// Stop stops the scheduler and waits for an in-flight tick to finish.
func (rs *ReconciliationScheduler) Stop() {
	rs.mu.Lock()
	defer rs.mu.Unlock()

	if rs.ticker != nil {
		rs.ticker.Stop()
		close(rs.stop)
		rs.wg.Wait()
		rs.ticker = nil
		log.Println("[Scheduler] Stopped")
	}
}

func (rs *ReconciliationScheduler) run() {
	defer rs.wg.Done()

	// Run immediately on start
	rs.RunNow()

	for {
		select {
		case <-rs.ticker.C:
			rs.RunNow()
		case <-rs.stop:
			return
		}
	}
}

// RunNow executes one tick (for testing/admin). Single-flight: if a tick
// is already running, this one is skipped.
func (rs *ReconciliationScheduler) RunNow() {
	if !rs.ticking.CompareAndSwap(false, true) {
		log.Println("[Scheduler] Tick still running, skipping this one")
		return
	}
	defer rs.ticking.Store(false)

	ctx := context.Background()
	var cancel context.CancelFunc
	if rs.TickTimeout > 0 {
		ctx, cancel = context.WithTimeout(ctx, rs.TickTimeout)
		defer cancel()
	}

	rs.tick(ctx)
}

// tick runs the phases in their fixed order. A failing phase is logged
// and the remaining phases still run: reconciliation is resumable and
// each phase re-derives its own state.
func (rs *ReconciliationScheduler) tick(ctx context.Context) {
	start := time.Now()

	if rs.Housekeeper != nil {
		if err := rs.Housekeeper.RunHousekeeping(ctx); err != nil {
			log.Printf("[Scheduler] Housekeeping: %v", err)
		}
	}
	if err := rs.Types.Activate(ctx); err != nil {
		log.Printf("[Scheduler] Mission type activation: %v", err)
	}
	if err := rs.Events.Reconcile(ctx); err != nil {
		log.Printf("[Scheduler] Event reconciliation: %v", err)
	}
	if err := rs.Gate.Refresh(ctx); err != nil {
		log.Printf("[Scheduler] Event gate refresh: %v", err)
	}
	if err := rs.Types.Expire(ctx); err != nil {
		log.Printf("[Scheduler] Mission type expiry: %v", err)
	}
	if err := rs.Instances.ReconcileCalendar(ctx); err != nil {
		log.Printf("[Scheduler] Calendar sweep: %v", err)
	}
	if err := rs.Instances.ReconcileExpiredDate(ctx); err != nil {
		log.Printf("[Scheduler] Fixed-cutoff sweep: %v", err)
	}
	if err := rs.Instances.ReconcileUserBased(ctx); err != nil {
		log.Printf("[Scheduler] User-anchored sweep: %v", err)
	}

	log.Printf("[Scheduler] Tick completed in %v", time.Since(start).Round(time.Millisecond))
}

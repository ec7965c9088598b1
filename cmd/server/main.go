/*
main.go - Application entry point

PURPOSE:
  Initializes and starts the mission engine server. Handles configuration,
  dependency injection, the background reconciliation scheduler, and
  graceful shutdown.

STARTUP SEQUENCE:
  1. Parse command-line flags
  2. Initialize SQLite store
  3. Load optional seed file (users, mission types, events)
  4. Wire reconcilers, confirmation service, and scheduler
  5. Configure HTTP router
  6. Start scheduler and server with graceful shutdown

COMMAND-LINE FLAGS:
  -port    HTTP server port (default: 8080)
  -db      SQLite database path (default: missions.db)
           Use ":memory:" for in-memory database
  -seed    Optional JSON seed file loaded at startup
  -tick    Reconciliation tick interval (default: 60s)

GRACEFUL SHUTDOWN:
  On SIGINT/SIGTERM:
  1. Stop accepting new connections
  2. Wait for active requests to complete (30s timeout)
  3. Stop the scheduler, waiting for an in-flight tick
  4. Close database connection
  5. Exit

EXAMPLES:
  # Run with file database and seed data
  ./server -db="./data/missions.db" -seed="./seed.json"

  # Run with in-memory database, fast ticks for local testing
  ./server -db=":memory:" -tick=5s

SEE ALSO:
  - api/server.go: Router configuration
  - api/scheduler.go: Reconciliation tick
  - store/sqlite/sqlite.go: Database implementation
*/
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/warp/mission-engine/api"
	"github.com/warp/mission-engine/engine"
	"github.com/warp/mission-engine/factory"
	"github.com/warp/mission-engine/rewards"
	"github.com/warp/mission-engine/store/sqlite"
)

func main() {
	// Flags
	port := flag.Int("port", 8080, "HTTP server port")
	dbPath := flag.String("db", "missions.db", "SQLite database path")
	seedPath := flag.String("seed", "", "JSON seed file loaded at startup")
	tick := flag.Duration("tick", 60*time.Second, "reconciliation tick interval")
	flag.Parse()

	// Initialize store
	store, err := sqlite.New(*dbPath)
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	defer store.Close()

	// Load seed data
	if *seedPath != "" {
		data, err := os.ReadFile(*seedPath)
		if err != nil {
			log.Fatalf("Failed to read seed file: %v", err)
		}
		seed, err := factory.ParseSeed(data)
		if err != nil {
			log.Fatalf("Failed to parse seed file: %v", err)
		}
		if err := factory.Load(context.Background(), store, seed); err != nil {
			log.Fatalf("Failed to load seed data: %v", err)
		}
		log.Printf("Seeded %d users, %d mission types, %d events",
			len(seed.Users), len(seed.MissionTypes), len(seed.Events))
	}

	// Wire the engine
	clock := engine.SystemClock()
	notifier := engine.LogNotifier{}
	gate := engine.NewEventGate(store.Events())
	granter := rewards.NewGranter(store, clock, notifier)

	types := engine.NewMissionTypeReconciler(store.MissionTypes(), store.Missions(), gate, clock)
	events := engine.NewEventReconciler(store, clock, notifier, granter)
	instances := engine.NewMissionInstanceReconciler(store.MissionTypes(), store.Missions(), store.Users(), gate, clock)
	confirm := engine.NewConfirmMissionService(store, clock, notifier)

	scheduler := api.NewReconciliationScheduler(types, events, instances, gate)
	scheduler.TickInterval = *tick
	scheduler.Start()

	// Initialize handler and router
	handler := api.NewHandler(store, confirm, scheduler)
	router := api.NewRouter(handler)

	// Create server
	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", *port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in goroutine
	go func() {
		log.Printf("🚀 Server starting on http://localhost:%d", *port)
		log.Printf("📊 API available at http://localhost:%d/api", *port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server failed: %v", err)
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Fatalf("Server forced to shutdown: %v", err)
	}

	scheduler.Stop()

	log.Println("Server stopped")
}

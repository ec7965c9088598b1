/*
server.go - HTTP router and middleware configuration

PURPOSE:
  Configures the HTTP router (chi), middleware stack, and route
  definitions. This is the wiring layer that connects URLs to handlers.

MIDDLEWARE STACK:
  1. Logger:     Request logging
  2. Recoverer:  Panic recovery (500 instead of crash)
  3. RequestID:  Unique ID per request for tracing
  4. CORS:       Cross-origin requests for frontend

ROUTE GROUPS:
  /api/missions/*  Mission confirmation
  /api/users/*     Per-user mission listing
  /api/events/*    Event listing
  /api/admin/*     Admin operations

SEE ALSO:
  - handlers.go: Handler implementations
  - cmd/server/main.go: Server startup
*/
package api

import (
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

// NewRouter creates a new router with all routes configured.
func NewRouter(h *Handler) *chi.Mux {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"http://localhost:5173", "http://localhost:8080"},
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
	}))

	// API routes
	r.Route("/api", func(r chi.Router) {
		r.Route("/missions", func(r chi.Router) {
			r.Post("/{missionTypeID}/confirm", h.ConfirmMission)
		})

		r.Route("/users", func(r chi.Router) {
			r.Get("/{id}/missions", h.ListUserMissions)
		})

		r.Route("/events", func(r chi.Router) {
			r.Get("/", h.ListEvents)
		})

		r.Route("/admin", func(r chi.Router) {
			r.Post("/reconcile", h.TriggerReconciliation)
		})
	})

	return r
}

/*
handlers.go - HTTP handlers for the mission API

PURPOSE:
  Thin HTTP layer over the engine. Each handler:
  1. Parses/validates the request
  2. Calls the engine service or repository
  3. Serializes the response

ERROR HANDLING:
  - 400: Validation errors, invalid input
  - 404: Resource not found
  - 500: Internal errors
  Legitimate mission states (already completed, window closed) are NOT
  errors: confirmation returns 200 with confirmed=false.

SECURITY NOTE:
  Currently NO authentication or authorization; user identity arrives in
  the request body. Auth is an external collaborator.

SEE ALSO:
  - dto.go: Request/response data structures
  - server.go: Router setup and middleware
*/
package api

import (
	"encoding/json"
	"log"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/warp/mission-engine/engine"
)

// =============================================================================
// HANDLER CONTEXT
// =============================================================================

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	Repo      engine.TxRepository
	Confirm   *engine.ConfirmMissionService
	Scheduler *ReconciliationScheduler
}

// NewHandler creates a new handler.
func NewHandler(repo engine.TxRepository, confirm *engine.ConfirmMissionService, scheduler *ReconciliationScheduler) *Handler {
	return &Handler{Repo: repo, Confirm: confirm, Scheduler: scheduler}
}

// =============================================================================
// MISSION HANDLERS
// =============================================================================

// ConfirmMission transitions a user's pending instance to completed.
// Idempotent: re-confirming returns confirmed=false, not an error.
func (h *Handler) ConfirmMission(w http.ResponseWriter, r *http.Request) {
	mtID := chi.URLParam(r, "missionTypeID")

	var req ConfirmMissionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if req.UserID == "" {
		writeError(w, http.StatusBadRequest, "user_id is required", nil)
		return
	}

	confirmed, err := h.Confirm.Confirm(r.Context(), engine.MissionTypeID(mtID), engine.UserID(req.UserID))
	if err != nil {
		if engine.IsNotFound(err) {
			writeError(w, http.StatusNotFound, "Mission type not found", err)
			return
		}
		writeError(w, http.StatusInternalServerError, "Failed to confirm mission", err)
		return
	}

	writeJSON(w, http.StatusOK, ConfirmMissionDTO{Confirmed: confirmed})
}

// ListUserMissions returns all mission instances for a user.
func (h *Handler) ListUserMissions(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "id")

	missions, err := h.Repo.Missions().Find(r.Context(), engine.MissionQuery{User: engine.UserID(userID)})
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list missions", err)
		return
	}

	dtos := make([]MissionDTO, len(missions))
	for i, m := range missions {
		dtos[i] = missionToDTO(m)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// =============================================================================
// EVENT HANDLERS
// =============================================================================

// ListEvents returns all events with their current status.
func (h *Handler) ListEvents(w http.ResponseWriter, r *http.Request) {
	events, err := h.Repo.Events().ListByStatus(r.Context(), engine.AllStatuses...)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list events", err)
		return
	}

	dtos := make([]EventDTO, len(events))
	for i, ev := range events {
		dtos[i] = eventToDTO(ev)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// =============================================================================
// ADMIN HANDLERS
// =============================================================================

// TriggerReconciliation runs one reconciliation tick immediately.
func (h *Handler) TriggerReconciliation(w http.ResponseWriter, r *http.Request) {
	h.Scheduler.RunNow()
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// =============================================================================
// RESPONSE HELPERS
// =============================================================================

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		log.Printf("[API] encode response: %v", err)
	}
}

func writeError(w http.ResponseWriter, status int, message string, err error) {
	if err != nil {
		log.Printf("[API] %s: %v", message, err)
	}
	writeJSON(w, status, map[string]string{"error": message})
}

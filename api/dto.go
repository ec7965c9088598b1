/*
dto.go - Data Transfer Objects for API requests and responses

PURPOSE:
  Defines the JSON structures for API communication. These types decouple
  the internal domain model from the external API contract.

NAMING CONVENTION:
  - *DTO: Response types returned to clients
  - *Request: Request body types from clients

VALIDATION:
  Validation is done in handlers, not in DTOs. DTOs are pure data carriers.

SEE ALSO:
  - handlers.go: Uses these types
*/
package api

import (
	"time"

	"github.com/warp/mission-engine/engine"
)

const timeLayout = "2006-01-02T15:04:05"

// =============================================================================
// REQUEST/RESPONSE TYPES
// =============================================================================

// ConfirmMissionRequest is the body of a confirmation call.
type ConfirmMissionRequest struct {
	UserID string `json:"user_id"`
}

// ConfirmMissionDTO is the confirmation outcome. Confirmed is false for
// the idempotent no-op cases (already completed, window closed).
type ConfirmMissionDTO struct {
	Confirmed bool `json:"confirmed"`
}

// MissionDTO represents a mission instance in API responses.
type MissionDTO struct {
	ID            string  `json:"id"`
	MissionTypeID string  `json:"mission_type_id"`
	UserID        string  `json:"user_id"`
	Status        string  `json:"status"`
	CreatedAt     string  `json:"created_at"`
	UsedAt        *string `json:"used_at,omitempty"`
}

// EventDTO represents an event in API responses.
type EventDTO struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	Status      string   `json:"status"`
	Missions    []string `json:"missions"`
	StartDate   string   `json:"start_date"`
	ExpiredDate *string  `json:"expired_date,omitempty"`
	AutoRenew   bool     `json:"auto_renew"`
}

// =============================================================================
// CONVERTERS
// =============================================================================

func missionToDTO(m engine.Mission) MissionDTO {
	dto := MissionDTO{
		ID:            string(m.ID),
		MissionTypeID: string(m.MissionTypeID),
		UserID:        string(m.UserID),
		Status:        string(m.Status),
		CreatedAt:     m.CreatedAt.Format(timeLayout),
	}
	if m.UsedAt != nil {
		dto.UsedAt = formatTime(*m.UsedAt)
	}
	return dto
}

func eventToDTO(ev engine.Event) EventDTO {
	dto := EventDTO{
		ID:        string(ev.ID),
		Name:      ev.Name,
		Status:    string(ev.Status),
		StartDate: ev.StartDate.Format(timeLayout),
		AutoRenew: ev.AutoRenew,
	}
	for _, mt := range ev.Missions {
		dto.Missions = append(dto.Missions, string(mt))
	}
	if ev.ExpiredDate != nil {
		dto.ExpiredDate = formatTime(*ev.ExpiredDate)
	}
	return dto
}

func formatTime(t time.Time) *string {
	s := t.Format(timeLayout)
	return &s
}

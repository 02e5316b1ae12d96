package domain

import (
	"time"

	"github.com/google/uuid"
)

type EmergencyStatus string

const (
	EmergencyPending  EmergencyStatus = "PENDING"
	EmergencyAssigned EmergencyStatus = "ASSIGNED"
	EmergencyResolved EmergencyStatus = "RESOLVED"
	EmergencyCanceled EmergencyStatus = "CANCELED"
)

// Terminal reports whether no further transition may leave the status.
func (s EmergencyStatus) Terminal() bool {
	return s == EmergencyResolved || s == EmergencyCanceled
}

type Position struct {
	Lat  float64 `json:"latitude" validate:"lat"`
	Long float64 `json:"longitude" validate:"lng"`
}

// Emergency is the durable incident record. It is mutated only by the
// emergency service; everything else works on copies.
type Emergency struct {
	ID              uuid.UUID       `json:"id"`
	Info            string          `json:"info"`
	Position        Position        `json:"position"`
	CallCenterID    uuid.UUID       `json:"call_center_id"`
	Status          EmergencyStatus `json:"status"`
	RescuerAssigned *uuid.UUID      `json:"rescuer_assigned,omitempty"`
	RescuerHidden   []uuid.UUID     `json:"rescuer_hidden,omitempty"`
	CreatedAt       time.Time       `json:"created_at"`
}

// HiddenFor reports whether the rescuer previously refused this emergency.
func (em *Emergency) HiddenFor(rescuerID uuid.UUID) bool {
	for _, id := range em.RescuerHidden {
		if id == rescuerID {
			return true
		}
	}
	return false
}

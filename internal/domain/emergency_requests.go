package domain

import "github.com/google/uuid"

type CreateEmergencyRequest struct {
	Info     string   `json:"info" validate:"required"`
	Position Position `json:"position" validate:"required"`
}

type EmergencyInfoResponse struct {
	ID     uuid.UUID       `json:"id"`
	Status EmergencyStatus `json:"status"`
}

// EmergencyHistoryEntry is one line of a rescuer's intervention history.
type EmergencyHistoryEntry struct {
	ID     uuid.UUID       `json:"id"`
	Status EmergencyStatus `json:"status"`
	Info   string          `json:"info"`
}

type PositionRequest struct {
	Latitude  float64 `json:"latitude" validate:"lat"`
	Longitude float64 `json:"longitude" validate:"lng"`
}

type PositionResponse struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

type PositionWithIDResponse struct {
	ID        uuid.UUID `json:"id"`
	Latitude  float64   `json:"latitude"`
	Longitude float64   `json:"longitude"`
}

type SuccessMessage struct {
	Message string `json:"message"`
}

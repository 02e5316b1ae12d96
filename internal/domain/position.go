package domain

import "github.com/google/uuid"

// RescuerPosition is the live location of one rescuer. It is ephemeral: the
// store keeps at most one entry per rescuer and lets it expire after the
// configured staleness window.
type RescuerPosition struct {
	RescuerID uuid.UUID `json:"rescuer_id"`
	Lat       float64   `json:"lat"`
	Lng       float64   `json:"lng"`
}

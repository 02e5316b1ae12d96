package dispatch

import (
	"stayalive/internal/events"
)

// eventPayload is the wire form of a dispatch notification.
type eventPayload struct {
	EventType  string            `json:"eventType"`
	CallCenter callCenterSummary `json:"callCenter"`
	Emergency  emergencySummary  `json:"emergency"`
	Rescuer    *rescuerSummary   `json:"rescuer"`
}

type callCenterSummary struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type emergencySummary struct {
	ID       string          `json:"id"`
	Info     string          `json:"info"`
	Position positionSummary `json:"position"`
	Status   string          `json:"status"`
}

type positionSummary struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

type rescuerSummary struct {
	ID        string `json:"id"`
	Firstname string `json:"firstname"`
	Lastname  string `json:"lastname"`
	Email     string `json:"email"`
	Phone     string `json:"phone"`
}

func newEventPayload(ev events.Event) eventPayload {
	p := eventPayload{
		EventType: string(ev.Type),
		CallCenter: callCenterSummary{
			ID:   ev.CallCenter.ID.String(),
			Name: ev.CallCenter.Name,
		},
		Emergency: emergencySummary{
			ID:   ev.Emergency.ID.String(),
			Info: ev.Emergency.Info,
			Position: positionSummary{
				Latitude:  ev.Emergency.Position.Lat,
				Longitude: ev.Emergency.Position.Long,
			},
			Status: string(ev.Emergency.Status),
		},
	}
	if ev.Rescuer != nil {
		p.Rescuer = &rescuerSummary{
			ID:        ev.Rescuer.ID.String(),
			Firstname: ev.Rescuer.Firstname,
			Lastname:  ev.Rescuer.Lastname,
			Email:     ev.Rescuer.Email,
			Phone:     ev.Rescuer.Phone,
		}
	}
	return p
}

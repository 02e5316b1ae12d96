package events

import "stayalive/internal/domain"

// Type tags the lifecycle transition an Event describes.
type Type string

const (
	EmergencyCreated    Type = "emergency.created"
	EmergencyAskAssign  Type = "emergency.askAssign"
	EmergencyAssigned   Type = "emergency.assigned"
	EmergencyRefused    Type = "emergency.refused"
	EmergencyCanceled   Type = "emergency.canceled"
	EmergencyTerminated Type = "emergency.terminated"
)

// Event is an immutable fact published after a durable lifecycle write.
// Emergency and CallCenter are snapshots taken at publish time; Rescuer is
// nil for variants that involve no rescuer (plain Created).
type Event struct {
	Type       Type
	Emergency  domain.Emergency
	CallCenter domain.CallCenter
	Rescuer    *domain.Rescuer
}

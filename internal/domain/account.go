package domain

import "github.com/google/uuid"

// Role partitions connected accounts. Identity verification happens upstream;
// the dispatch core only ever sees an already-authenticated (id, role) pair.
type Role string

const (
	RoleRescuer    Role = "rescuer"
	RoleCallCenter Role = "call-center"
)

// Rescuer is a read-only directory snapshot embedded into notifications.
type Rescuer struct {
	ID        uuid.UUID `json:"id"`
	Firstname string    `json:"firstname"`
	Lastname  string    `json:"lastname"`
	Email     string    `json:"email"`
	Phone     string    `json:"phone"`
}

// CallCenter is a read-only directory snapshot embedded into notifications.
type CallCenter struct {
	ID   uuid.UUID `json:"id"`
	Name string    `json:"name"`
}

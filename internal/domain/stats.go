package domain

// EmergencyStats aggregates a call center's emergencies by lifecycle status.
type EmergencyStats struct {
	Total           int64 `json:"total"`
	Pending         int64 `json:"pending"`
	Assigned        int64 `json:"assigned"`
	Resolved        int64 `json:"resolved"`
	Canceled        int64 `json:"canceled"`
	CreatedLastHour int64 `json:"created_last_hour"`
}

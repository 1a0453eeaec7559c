package domain

import "time"

type EventType string

const (
	EventDrowsinessAlert  EventType = "drowsiness.alert"
	EventAccidentReported EventType = "accident.reported"
)

// AlertEvent is published after every dispatch for downstream consumers.
type AlertEvent struct {
	ID           string    `json:"id"`
	Type         EventType `json:"type"`
	SessionID    SessionID `json:"session_id,omitempty"`
	SuccessCount int       `json:"success_count"`
	TotalCount   int       `json:"total_count"`
	Message      string    `json:"message"`
	Location     *GeoPoint `json:"location,omitempty"`
	SpeedKmh     float64   `json:"speed_kmh,omitempty"`
	Timestamp    time.Time `json:"timestamp"`
}

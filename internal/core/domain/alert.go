package domain

import (
	"time"
)

// AlertKind distinguishes the two message templates.
type AlertKind string

const (
	AlertKindDrowsiness AlertKind = "drowsiness"
	AlertKindAccident   AlertKind = "accident"
)

// GeoPoint is a WGS84 coordinate pair.
type GeoPoint struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// Known reports whether both coordinates are present and non-zero.
func (g *GeoPoint) Known() bool {
	return g != nil && g.Lat != 0 && g.Lng != 0
}

// AccidentEvent is an externally reported accident. It is processed once and
// not retained.
type AccidentEvent struct {
	Location      *GeoPoint
	SpeedKmh      float64
	IsDrowsy      bool
	IsOversped    bool
	VictimDetails string
	// Recipients overrides the configured emergency contacts when non-empty.
	Recipients []string
}

// Delivery is the result of one send attempt.
type Delivery struct {
	Recipient string `json:"recipient"`
	MessageID string `json:"message_id,omitempty"`
	Error     string `json:"error,omitempty"`
}

// AlertOutcome aggregates one dispatch attempt across recipients.
type AlertOutcome struct {
	Kind         AlertKind
	SuccessCount int
	TotalCount   int
	Message      string
	Success      bool
	Deliveries   []Delivery
	// Err is set when the channel could not be used at all.
	Err         error
	CompletedAt time.Time
}

// Failed returns the number of recipients that were not reached.
func (o AlertOutcome) Failed() int {
	return o.TotalCount - o.SuccessCount
}

package services

import (
	"fmt"
	"strconv"
	"strings"

	"safedrive/internal/core/domain"
)

const (
	DrowsinessAlertMessage = "DROWSINESS ALERT: The driver appears to be drowsy or falling asleep! Please check on them immediately."
	LocationUnavailable    = "Location unavailable"
)

// LocationLink renders a map link, or LocationUnavailable unless both
// coordinates are present and non-zero.
func LocationLink(loc *domain.GeoPoint) string {
	if !loc.Known() {
		return LocationUnavailable
	}
	return "https://maps.google.com/?q=" +
		strconv.FormatFloat(loc.Lat, 'f', -1, 64) + "," +
		strconv.FormatFloat(loc.Lng, 'f', -1, 64)
}

// AccidentMessage formats the accident alert body.
func AccidentMessage(event domain.AccidentEvent) string {
	var b strings.Builder
	b.WriteString("EMERGENCY ALERT: Vehicle accident detected!\n")
	fmt.Fprintf(&b, "Location: %s\n", LocationLink(event.Location))
	fmt.Fprintf(&b, "Speed at impact: %.1f km/h\n", event.SpeedKmh)
	if event.IsDrowsy {
		b.WriteString("Driver was detected as drowsy before the incident.\n")
	}
	if event.IsOversped {
		b.WriteString("Vehicle was exceeding speed limit before the incident.\n")
	}
	b.WriteString("Please respond immediately or contact emergency services!")
	return b.String()
}

package services

import (
	"testing"

	"safedrive/internal/core/domain"

	"github.com/stretchr/testify/assert"
)

func TestLocationLink(t *testing.T) {
	tests := []struct {
		name string
		loc  *domain.GeoPoint
		want string
	}{
		{"absent", nil, LocationUnavailable},
		{"origin", &domain.GeoPoint{Lat: 0, Lng: 0}, LocationUnavailable},
		{"zero latitude", &domain.GeoPoint{Lat: 0, Lng: 77.6}, LocationUnavailable},
		{"zero longitude", &domain.GeoPoint{Lat: 12.9, Lng: 0}, LocationUnavailable},
		{"bangalore", &domain.GeoPoint{Lat: 12.9, Lng: 77.6}, "https://maps.google.com/?q=12.9,77.6"},
		{"southern hemisphere", &domain.GeoPoint{Lat: -33.8688, Lng: 151.2093}, "https://maps.google.com/?q=-33.8688,151.2093"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, LocationLink(tt.loc))
		})
	}
}

func TestAccidentMessage_Minimal(t *testing.T) {
	msg := AccidentMessage(domain.AccidentEvent{
		Location: &domain.GeoPoint{},
		SpeedKmh: 42,
	})

	want := "EMERGENCY ALERT: Vehicle accident detected!\n" +
		"Location: Location unavailable\n" +
		"Speed at impact: 42.0 km/h\n" +
		"Please respond immediately or contact emergency services!"
	assert.Equal(t, want, msg)
}

func TestAccidentMessage_AllClauses(t *testing.T) {
	msg := AccidentMessage(domain.AccidentEvent{
		Location:   &domain.GeoPoint{Lat: 12.9, Lng: 77.6},
		SpeedKmh:   87.46,
		IsDrowsy:   true,
		IsOversped: true,
	})

	want := "EMERGENCY ALERT: Vehicle accident detected!\n" +
		"Location: https://maps.google.com/?q=12.9,77.6\n" +
		"Speed at impact: 87.5 km/h\n" +
		"Driver was detected as drowsy before the incident.\n" +
		"Vehicle was exceeding speed limit before the incident.\n" +
		"Please respond immediately or contact emergency services!"
	assert.Equal(t, want, msg)
}

func TestAccidentMessage_ConditionalClausesIndependent(t *testing.T) {
	drowsyOnly := AccidentMessage(domain.AccidentEvent{IsDrowsy: true})
	assert.Contains(t, drowsyOnly, "drowsy before the incident")
	assert.NotContains(t, drowsyOnly, "exceeding speed limit")

	speedOnly := AccidentMessage(domain.AccidentEvent{IsOversped: true})
	assert.NotContains(t, speedOnly, "drowsy before the incident")
	assert.Contains(t, speedOnly, "exceeding speed limit")
}

package validation

import (
	"fmt"
	"math"
	"regexp"
	"strings"
	"unicode/utf8"
)

var (
	// PhoneNumberRegex validates E.164 phone numbers
	PhoneNumberRegex = regexp.MustCompile(`^\+[1-9][0-9]{7,14}$`)
)

// MaxSpeedKmh is the upper bound accepted for a reported vehicle speed.
const MaxSpeedKmh = 500.0

// ValidatePhoneNumber validates a recipient number in E.164 format
func ValidatePhoneNumber(number string) error {
	number = strings.TrimSpace(number)
	if number == "" {
		return fmt.Errorf("phone number is required")
	}
	if !PhoneNumberRegex.MatchString(number) {
		return fmt.Errorf("invalid phone number %q (expected E.164, e.g. +15551234567)", number)
	}
	return nil
}

// ValidatePhoneNumbers validates every number in the list
func ValidatePhoneNumbers(numbers []string) error {
	for i, n := range numbers {
		if err := ValidatePhoneNumber(n); err != nil {
			return fmt.Errorf("contact %d: %w", i, err)
		}
	}
	return nil
}

// ValidateCoordinates validates a latitude/longitude pair
func ValidateCoordinates(lat, lng float64) error {
	if math.IsNaN(lat) || math.IsNaN(lng) {
		return fmt.Errorf("coordinates must be numbers")
	}
	if lat < -90 || lat > 90 {
		return fmt.Errorf("latitude must be between -90 and 90")
	}
	if lng < -180 || lng > 180 {
		return fmt.Errorf("longitude must be between -180 and 180")
	}
	return nil
}

// ValidateSpeed validates a reported speed in km/h
func ValidateSpeed(speed float64) error {
	if math.IsNaN(speed) || math.IsInf(speed, 0) {
		return fmt.Errorf("speed must be a finite number")
	}
	if speed < 0 {
		return fmt.Errorf("speed must be >= 0")
	}
	if speed > MaxSpeedKmh {
		return fmt.Errorf("speed is too high (max %.0f km/h)", MaxSpeedKmh)
	}
	return nil
}

// ValidateStringLength validates string length
func ValidateStringLength(s string, min, max int, fieldName string) error {
	length := utf8.RuneCountInString(s)
	if length < min {
		return fmt.Errorf("%s must be at least %d characters", fieldName, min)
	}
	if length > max {
		return fmt.Errorf("%s is too long (max %d characters)", fieldName, max)
	}
	return nil
}

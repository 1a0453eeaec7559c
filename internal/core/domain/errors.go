package domain

import "errors"

var (
	ErrDegenerateGeometry    = errors.New("degenerate eye geometry")
	ErrIncompleteLandmarks   = errors.New("incomplete face landmarks")
	ErrDecodeFailure         = errors.New("frame decode failure")
	ErrDeliveryFailure       = errors.New("message delivery failed")
	ErrDispatcherUnavailable = errors.New("alert dispatcher unavailable")
	ErrCapabilityUnavailable = errors.New("landmark capability unavailable")
	ErrNoRecipients          = errors.New("no recipients configured")
	ErrInvalidAccident       = errors.New("invalid accident report")
)

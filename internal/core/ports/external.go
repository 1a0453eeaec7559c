package ports

import (
	"context"

	"safedrive/internal/core/domain"
)

// LandmarkDetector returns the landmarks of the first face in the frame, or
// nil with no error when no face is present.
type LandmarkDetector interface {
	Detect(ctx context.Context, frame *domain.Frame) (*domain.FaceLandmarks, error)
	Health(ctx context.Context) error
}

// MessageSender attempts one delivery per call and returns the provider
// message id.
type MessageSender interface {
	// Ready reports whether the channel can be used at all.
	Ready() error
	Send(ctx context.Context, body, from, to string) (string, error)
}

type EventPublisher interface {
	Publish(ctx context.Context, event domain.AlertEvent) error
	Close() error
}

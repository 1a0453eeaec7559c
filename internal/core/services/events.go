package services

import (
	"context"
	"time"

	"safedrive/internal/core/domain"
	"safedrive/internal/core/ports"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

func newAlertEvent(typ domain.EventType, sessionID domain.SessionID, outcome domain.AlertOutcome, now time.Time) domain.AlertEvent {
	return domain.AlertEvent{
		ID:           uuid.NewString(),
		Type:         typ,
		SessionID:    sessionID,
		SuccessCount: outcome.SuccessCount,
		TotalCount:   outcome.TotalCount,
		Message:      outcome.Message,
		Timestamp:    now,
	}
}

// publishEvent is best effort; a failed publish never affects the alert.
func publishEvent(ctx context.Context, publisher ports.EventPublisher, event domain.AlertEvent, logger *zap.SugaredLogger) {
	if publisher == nil {
		return
	}
	if err := publisher.Publish(ctx, event); err != nil {
		logger.Warnw("Failed to publish alert event",
			"event_id", event.ID,
			"type", event.Type,
			"error", err,
		)
	}
}

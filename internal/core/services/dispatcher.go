package services

import (
	"context"
	"fmt"
	"time"

	"safedrive/internal/core/domain"
	"safedrive/internal/core/ports"
	"safedrive/pkg/tracing"
	"safedrive/pkg/utils"

	"go.uber.org/zap"
)

type alertDispatcher struct {
	sender  ports.MessageSender
	from    string
	metrics ports.MetricsRecorder
	logger  *zap.SugaredLogger
	now     func() time.Time
}

func NewAlertDispatcher(
	sender ports.MessageSender,
	from string,
	metrics ports.MetricsRecorder,
	logger *zap.SugaredLogger,
) ports.AlertDispatcher {
	if metrics == nil {
		metrics = ports.NoopMetrics{}
	}
	return &alertDispatcher{
		sender:  sender,
		from:    from,
		metrics: metrics,
		logger:  logger,
		now:     time.Now,
	}
}

// Dispatch attempts every recipient in order. A failed recipient is logged
// and counted; it never stops the remaining attempts.
func (d *alertDispatcher) Dispatch(ctx context.Context, kind domain.AlertKind, message string, recipients []string) (outcome domain.AlertOutcome) {
	ctx, span := tracing.TraceDispatch(ctx, string(kind), len(recipients))
	defer span.End()

	start := d.now()
	outcome = domain.AlertOutcome{
		Kind:       kind,
		TotalCount: len(recipients),
		Message:    message,
		Deliveries: make([]domain.Delivery, 0, len(recipients)),
	}
	defer func() {
		outcome.CompletedAt = d.now()
		d.metrics.RecordDispatch(outcome, outcome.CompletedAt.Sub(start))
	}()

	if len(recipients) == 0 {
		outcome.Err = domain.ErrNoRecipients
		d.logger.Warnw("No recipients for alert", "kind", kind)
		return outcome
	}

	if err := d.sender.Ready(); err != nil {
		outcome.Err = fmt.Errorf("%w: %v", domain.ErrDispatcherUnavailable, err)
		for _, to := range recipients {
			outcome.Deliveries = append(outcome.Deliveries, domain.Delivery{Recipient: to, Error: outcome.Err.Error()})
		}
		tracing.RecordError(ctx, outcome.Err)
		d.logger.Errorw("Alert channel unavailable",
			"kind", kind,
			"recipients", len(recipients),
			"error", err,
		)
		return outcome
	}

	for _, to := range recipients {
		id, err := d.sender.Send(ctx, message, d.from, to)
		if err != nil {
			failure := fmt.Errorf("%w: %v", domain.ErrDeliveryFailure, err)
			outcome.Deliveries = append(outcome.Deliveries, domain.Delivery{Recipient: to, Error: failure.Error()})
			d.logger.Warnw("Failed to send alert",
				"kind", kind,
				"recipient", utils.MaskPhone(to),
				"error", err,
			)
			continue
		}
		outcome.SuccessCount++
		outcome.Deliveries = append(outcome.Deliveries, domain.Delivery{Recipient: to, MessageID: id})
		d.logger.Infow("Alert sent",
			"kind", kind,
			"recipient", utils.MaskPhone(to),
			"message_id", id,
		)
	}

	outcome.Success = outcome.SuccessCount > 0
	tracing.AddSpanAttributes(ctx, tracing.DeliveredKey.Int(outcome.SuccessCount))
	if !outcome.Success {
		tracing.RecordError(ctx, domain.ErrDeliveryFailure)
	}
	return outcome
}

package ports

import (
	"context"

	"safedrive/internal/core/domain"
)

// AlertDispatcher delivers one message to every recipient and reports the
// aggregate outcome. It never fails fast on a single recipient.
type AlertDispatcher interface {
	Dispatch(ctx context.Context, kind domain.AlertKind, message string, recipients []string) domain.AlertOutcome
}

type AccidentService interface {
	ReportAccident(ctx context.Context, event domain.AccidentEvent) (domain.AlertOutcome, error)
}

package services

import (
	"context"
	"fmt"
	"time"

	"safedrive/internal/core/domain"
	"safedrive/internal/core/ports"
	"safedrive/pkg/utils"
	"safedrive/pkg/validation"

	"go.uber.org/zap"
)

// MaxVictimDetailsLength bounds the free-text victim description.
const MaxVictimDetailsLength = 2000

type accidentService struct {
	dispatcher        ports.AlertDispatcher
	publisher         ports.EventPublisher
	defaultRecipients []string
	logger            *zap.SugaredLogger
	now               func() time.Time
}

func NewAccidentService(
	dispatcher ports.AlertDispatcher,
	publisher ports.EventPublisher,
	defaultRecipients []string,
	logger *zap.SugaredLogger,
) ports.AccidentService {
	return &accidentService{
		dispatcher:        dispatcher,
		publisher:         publisher,
		defaultRecipients: defaultRecipients,
		logger:            logger,
		now:               time.Now,
	}
}

// ReportAccident formats the accident alert and sends it to the event's
// recipients, or to the configured contacts when the event names none.
// Delivery problems are reported in the outcome; only an invalid event
// returns an error.
func (s *accidentService) ReportAccident(ctx context.Context, event domain.AccidentEvent) (domain.AlertOutcome, error) {
	if err := validateAccident(event); err != nil {
		return domain.AlertOutcome{}, err
	}

	recipients := event.Recipients
	if len(recipients) == 0 {
		recipients = s.defaultRecipients
	}

	s.logger.Infow("Accident reported, notifying emergency contacts",
		"recipients", len(recipients),
		"speed_kmh", event.SpeedKmh,
		"drowsy", event.IsDrowsy,
		"oversped", event.IsOversped,
		"has_location", event.Location.Known(),
		"victim_details", utils.TruncateString(utils.SanitizeString(event.VictimDetails), 200),
	)

	outcome := s.dispatcher.Dispatch(ctx, domain.AlertKindAccident, AccidentMessage(event), recipients)

	ev := newAlertEvent(domain.EventAccidentReported, "", outcome, s.now())
	if event.Location.Known() {
		ev.Location = event.Location
	}
	ev.SpeedKmh = event.SpeedKmh
	publishEvent(ctx, s.publisher, ev, s.logger)

	return outcome, nil
}

func validateAccident(event domain.AccidentEvent) error {
	if event.Location != nil {
		if err := validation.ValidateCoordinates(event.Location.Lat, event.Location.Lng); err != nil {
			return fmt.Errorf("%w: %v", domain.ErrInvalidAccident, err)
		}
	}
	if err := validation.ValidateSpeed(event.SpeedKmh); err != nil {
		return fmt.Errorf("%w: %v", domain.ErrInvalidAccident, err)
	}
	if err := validation.ValidateStringLength(event.VictimDetails, 0, MaxVictimDetailsLength, "victimDetails"); err != nil {
		return fmt.Errorf("%w: %v", domain.ErrInvalidAccident, err)
	}
	if err := validation.ValidatePhoneNumbers(event.Recipients); err != nil {
		return fmt.Errorf("%w: %v", domain.ErrInvalidAccident, err)
	}
	return nil
}

package sms

import (
	"context"
	"errors"
	"fmt"

	"github.com/twilio/twilio-go"
	api "github.com/twilio/twilio-go/rest/api/v2010"
	"go.uber.org/zap"
)

var ErrNotConfigured = errors.New("twilio credentials not configured")

// messageAPI is the slice of the Twilio REST client the sender uses.
type messageAPI interface {
	CreateMessage(params *api.CreateMessageParams) (*api.ApiV2010Message, error)
}

type TwilioConfig struct {
	AccountSID string
	AuthToken  string
	FromNumber string
}

// TwilioSender delivers SMS through the Twilio REST API. A sender built
// without credentials is still usable; Ready reports it as unavailable.
type TwilioSender struct {
	api    messageAPI
	cfg    TwilioConfig
	logger *zap.SugaredLogger
}

func NewTwilioSender(cfg TwilioConfig, logger *zap.SugaredLogger) *TwilioSender {
	s := &TwilioSender{cfg: cfg, logger: logger}
	if cfg.AccountSID == "" || cfg.AuthToken == "" {
		logger.Warnw("Twilio credentials missing, SMS alerts will fail")
		return s
	}

	client := twilio.NewRestClientWithParams(twilio.ClientParams{
		Username: cfg.AccountSID,
		Password: cfg.AuthToken,
	})
	s.api = client.Api
	logger.Infow("Twilio SMS sender configured", "from", cfg.FromNumber)
	return s
}

func (s *TwilioSender) Ready() error {
	if s.api == nil {
		return ErrNotConfigured
	}
	if s.cfg.FromNumber == "" {
		return fmt.Errorf("%w: missing sender number", ErrNotConfigured)
	}
	return nil
}

// Send creates one outbound message. The Twilio client has no context
// support, so cancellation is only honoured before the request starts.
func (s *TwilioSender) Send(ctx context.Context, body, from, to string) (string, error) {
	if err := s.Ready(); err != nil {
		return "", err
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if from == "" {
		from = s.cfg.FromNumber
	}

	params := &api.CreateMessageParams{}
	params.SetBody(body)
	params.SetFrom(from)
	params.SetTo(to)

	resp, err := s.api.CreateMessage(params)
	if err != nil {
		return "", fmt.Errorf("twilio create message: %w", err)
	}
	if resp == nil || resp.Sid == nil {
		return "", nil
	}
	return *resp.Sid, nil
}

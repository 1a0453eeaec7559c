package sms

import (
	"context"
	"sync/atomic"

	"safedrive/pkg/utils"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// LogSender writes alerts to the log instead of sending them. Used for local
// development and demos.
type LogSender struct {
	logger *zap.SugaredLogger
	sent   atomic.Int64
}

func NewLogSender(logger *zap.SugaredLogger) *LogSender {
	return &LogSender{logger: logger}
}

func (s *LogSender) Ready() error { return nil }

func (s *LogSender) Send(ctx context.Context, body, from, to string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	id := "LOG" + uuid.NewString()
	s.sent.Add(1)
	s.logger.Infow("SMS alert",
		"message_id", id,
		"from", from,
		"to", utils.MaskPhone(to),
		"body", body,
	)
	return id, nil
}

// Sent returns how many messages have been logged.
func (s *LogSender) Sent() int64 {
	return s.sent.Load()
}

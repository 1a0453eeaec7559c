package ports

import (
	"time"

	"safedrive/internal/core/domain"
)

type MetricsRecorder interface {
	RecordFrame(result domain.FrameResult, duration time.Duration)
	RecordFrameError(reason string)
	RecordAlertSuppressed()
	RecordDispatch(outcome domain.AlertOutcome, duration time.Duration)
	RecordConnectionOpened()
	RecordConnectionClosed(duration time.Duration)
}

// NoopMetrics discards every observation.
type NoopMetrics struct{}

func (NoopMetrics) RecordFrame(domain.FrameResult, time.Duration)     {}
func (NoopMetrics) RecordFrameError(string)                           {}
func (NoopMetrics) RecordAlertSuppressed()                            {}
func (NoopMetrics) RecordDispatch(domain.AlertOutcome, time.Duration) {}
func (NoopMetrics) RecordConnectionOpened()                           {}
func (NoopMetrics) RecordConnectionClosed(time.Duration)              {}

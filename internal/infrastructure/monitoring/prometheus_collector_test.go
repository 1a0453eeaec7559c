package monitoring

import (
	"testing"
	"time"

	"safedrive/internal/core/domain"
	"safedrive/internal/core/ports"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

var _ ports.MetricsRecorder = (*PrometheusCollector)(nil)

func TestPrometheusCollector_Frames(t *testing.T) {
	c := NewPrometheusCollector(prometheus.NewRegistry())

	c.RecordFrame(domain.FrameResult{FaceDetected: true, Openness: 0.31}, 20*time.Millisecond)
	c.RecordFrame(domain.FrameResult{FaceDetected: true, Openness: 0.12, IsDrowsy: true}, 20*time.Millisecond)
	c.RecordFrame(domain.FrameResult{}, 5*time.Millisecond)
	c.RecordFrameError("decode")

	assert.Equal(t, 2.0, testutil.ToFloat64(c.framesProcessed.WithLabelValues("true")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.framesProcessed.WithLabelValues("false")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.drowsyFrames))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.frameErrors.WithLabelValues("decode")))
	assert.Equal(t, 1, testutil.CollectAndCount(c.frameDuration))
}

func TestPrometheusCollector_Dispatch(t *testing.T) {
	c := NewPrometheusCollector(prometheus.NewRegistry())

	c.RecordDispatch(domain.AlertOutcome{
		Kind:         domain.AlertKindAccident,
		SuccessCount: 2,
		TotalCount:   3,
		Success:      true,
	}, time.Second)
	c.RecordAlertSuppressed()

	assert.Equal(t, 1.0, testutil.ToFloat64(c.dispatches.WithLabelValues("accident", "true")))
	assert.Equal(t, 2.0, testutil.ToFloat64(c.deliveries.WithLabelValues("accident", "sent")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.deliveries.WithLabelValues("accident", "failed")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.alertsSuppressed))
}

func TestPrometheusCollector_Connections(t *testing.T) {
	c := NewPrometheusCollector(prometheus.NewRegistry())

	c.RecordConnectionOpened()
	c.RecordConnectionOpened()
	c.RecordConnectionClosed(3 * time.Second)

	assert.Equal(t, 1.0, testutil.ToFloat64(c.connectionsActive))
	assert.Equal(t, 2.0, testutil.ToFloat64(c.connectionsTotal))
}

func TestPrometheusCollector_SeparateRegistries(t *testing.T) {
	assert.NotPanics(t, func() {
		NewPrometheusCollector(prometheus.NewRegistry())
		NewPrometheusCollector(prometheus.NewRegistry())
	})
}

package monitoring

import (
	"strconv"
	"time"

	"safedrive/internal/core/domain"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type PrometheusCollector struct {
	// Frames
	framesProcessed *prometheus.CounterVec
	frameErrors     *prometheus.CounterVec
	drowsyFrames    prometheus.Counter
	frameDuration   prometheus.Histogram
	eyeOpenness     prometheus.Histogram

	// Alerts
	alertsSuppressed prometheus.Counter
	dispatches       *prometheus.CounterVec
	deliveries       *prometheus.CounterVec
	dispatchDuration *prometheus.HistogramVec

	// Connections
	connectionsActive  prometheus.Gauge
	connectionsTotal   prometheus.Counter
	connectionDuration prometheus.Histogram
}

// NewPrometheusCollector registers the service metrics with reg. A nil reg
// uses the default registerer.
func NewPrometheusCollector(reg prometheus.Registerer) *PrometheusCollector {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)

	return &PrometheusCollector{
		framesProcessed: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "safedrive_frames_processed_total",
			Help: "Total number of frames processed",
		}, []string{"face_detected"}),

		frameErrors: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "safedrive_frame_errors_total",
			Help: "Frames degraded by a processing error",
		}, []string{"reason"}),

		drowsyFrames: factory.NewCounter(prometheus.CounterOpts{
			Name: "safedrive_drowsy_frames_total",
			Help: "Frames observed while the driver was in the drowsy state",
		}),

		frameDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "safedrive_frame_processing_duration_seconds",
			Help:    "Time to process one frame end to end",
			Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
		}),

		eyeOpenness: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "safedrive_eye_aspect_ratio",
			Help:    "Combined eye aspect ratio of frames with a face",
			Buckets: prometheus.LinearBuckets(0.05, 0.05, 10),
		}),

		alertsSuppressed: factory.NewCounter(prometheus.CounterOpts{
			Name: "safedrive_alerts_suppressed_total",
			Help: "Drowsy frames that did not dispatch because an alert was active or cooling down",
		}),

		dispatches: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "safedrive_alert_dispatches_total",
			Help: "Alert dispatches by kind and result",
		}, []string{"kind", "success"}),

		deliveries: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "safedrive_alert_deliveries_total",
			Help: "Per-recipient delivery attempts",
		}, []string{"kind", "status"}),

		dispatchDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "safedrive_alert_dispatch_duration_seconds",
			Help:    "Duration of one dispatch across all recipients",
			Buckets: prometheus.ExponentialBuckets(0.05, 2, 10),
		}, []string{"kind"}),

		connectionsActive: factory.NewGauge(prometheus.GaugeOpts{
			Name: "safedrive_connections_active",
			Help: "Open frame streaming connections",
		}),

		connectionsTotal: factory.NewCounter(prometheus.CounterOpts{
			Name: "safedrive_connections_total",
			Help: "Total frame streaming connections accepted",
		}),

		connectionDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "safedrive_connection_duration_seconds",
			Help:    "Lifetime of frame streaming connections",
			Buckets: prometheus.ExponentialBuckets(1, 2, 12),
		}),
	}
}

func (p *PrometheusCollector) RecordFrame(result domain.FrameResult, duration time.Duration) {
	p.framesProcessed.WithLabelValues(strconv.FormatBool(result.FaceDetected)).Inc()
	p.frameDuration.Observe(duration.Seconds())

	if result.FaceDetected && result.Openness > 0 {
		p.eyeOpenness.Observe(result.Openness)
	}
	if result.IsDrowsy {
		p.drowsyFrames.Inc()
	}
}

func (p *PrometheusCollector) RecordFrameError(reason string) {
	p.frameErrors.WithLabelValues(reason).Inc()
}

func (p *PrometheusCollector) RecordAlertSuppressed() {
	p.alertsSuppressed.Inc()
}

func (p *PrometheusCollector) RecordDispatch(outcome domain.AlertOutcome, duration time.Duration) {
	kind := string(outcome.Kind)
	p.dispatches.WithLabelValues(kind, strconv.FormatBool(outcome.Success)).Inc()
	p.dispatchDuration.WithLabelValues(kind).Observe(duration.Seconds())

	if outcome.SuccessCount > 0 {
		p.deliveries.WithLabelValues(kind, "sent").Add(float64(outcome.SuccessCount))
	}
	if failed := outcome.Failed(); failed > 0 {
		p.deliveries.WithLabelValues(kind, "failed").Add(float64(failed))
	}
}

func (p *PrometheusCollector) RecordConnectionOpened() {
	p.connectionsActive.Inc()
	p.connectionsTotal.Inc()
}

func (p *PrometheusCollector) RecordConnectionClosed(duration time.Duration) {
	p.connectionsActive.Dec()
	p.connectionDuration.Observe(duration.Seconds())
}

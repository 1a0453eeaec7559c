package landmarks

import (
	"context"
	"errors"
	"fmt"
	"time"

	"safedrive/internal/core/domain"
	"safedrive/pkg/circuitbreaker"
	"safedrive/pkg/tracing"

	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/keepalive"
	"google.golang.org/grpc/status"
)

type Config struct {
	Address          string
	CallTimeout      time.Duration
	MaxMessageSizeMB int
	FailureThreshold int
	OpenTimeout      time.Duration
}

// GRPCDetector calls an external face mesh service. Calls go through a
// circuit breaker so a dead backend costs one fast failure per frame.
type GRPCDetector struct {
	conn        *grpc.ClientConn
	health      healthpb.HealthClient
	breaker     *circuitbreaker.CircuitBreaker
	callTimeout time.Duration
	logger      *zap.SugaredLogger
}

// NewGRPCDetector creates a lazily connecting client. Extra dial options are
// appended after the defaults.
func NewGRPCDetector(cfg Config, logger *zap.SugaredLogger, extra ...grpc.DialOption) (*GRPCDetector, error) {
	maxMsg := cfg.MaxMessageSizeMB * 1024 * 1024
	if maxMsg <= 0 {
		maxMsg = 50 * 1024 * 1024
	}

	opts := []grpc.DialOption{
		grpc.WithTransportCredentials(insecure.NewCredentials()),
		grpc.WithDefaultCallOptions(
			grpc.MaxCallRecvMsgSize(maxMsg),
			grpc.MaxCallSendMsgSize(maxMsg),
		),
		grpc.WithKeepaliveParams(keepalive.ClientParameters{
			Time:                10 * time.Second,
			Timeout:             3 * time.Second,
			PermitWithoutStream: true,
		}),
	}
	opts = append(opts, extra...)

	conn, err := grpc.NewClient(cfg.Address, opts...)
	if err != nil {
		return nil, fmt.Errorf("could not create landmark client for %s: %w", cfg.Address, err)
	}

	cbCfg := circuitbreaker.DefaultConfig()
	if cfg.FailureThreshold > 0 {
		cbCfg.FailureThreshold = cfg.FailureThreshold
	}
	if cfg.OpenTimeout > 0 {
		cbCfg.Timeout = cfg.OpenTimeout
	}
	cbCfg.IsFailure = isBackendFailure

	breaker := circuitbreaker.New(cbCfg)
	breaker.OnStateChange(func(from, to circuitbreaker.State) {
		logger.Warnw("Landmark detector circuit changed state",
			"from", from.String(),
			"to", to.String(),
		)
	})

	callTimeout := cfg.CallTimeout
	if callTimeout <= 0 {
		callTimeout = 5 * time.Second
	}

	logger.Infow("Landmark detector client created", "address", cfg.Address)

	return &GRPCDetector{
		conn:        conn,
		health:      healthpb.NewHealthClient(conn),
		breaker:     breaker,
		callTimeout: callTimeout,
		logger:      logger,
	}, nil
}

// isBackendFailure counts only errors that say the backend is unhealthy, not
// errors caused by the frame itself or by the caller going away.
func isBackendFailure(err error) bool {
	if err == nil || errors.Is(err, context.Canceled) {
		return false
	}
	switch status.Code(err) {
	case codes.InvalidArgument, codes.Canceled, codes.NotFound:
		return false
	default:
		return true
	}
}

// Detect returns the first face's landmarks, or nil when there is no face.
func (d *GRPCDetector) Detect(ctx context.Context, frame *domain.Frame) (*domain.FaceLandmarks, error) {
	ctx, span := tracing.TraceDetectorCall(ctx, "Detect")
	defer span.End()

	b := frame.Bounds()
	req := &DetectRequest{
		Image:    frame.Data,
		Format:   frame.Format,
		Width:    b.Dx(),
		Height:   b.Dy(),
		MaxFaces: 1,
	}

	resp, err := circuitbreaker.Do(ctx, d.breaker, func(ctx context.Context) (*DetectResponse, error) {
		ctx, cancel := context.WithTimeout(ctx, d.callTimeout)
		defer cancel()

		resp := new(DetectResponse)
		if err := d.conn.Invoke(ctx, detectMethod, req, resp, grpc.CallContentSubtype(codecName)); err != nil {
			return nil, err
		}
		return resp, nil
	})
	if err != nil {
		tracing.RecordError(ctx, err)
		if errors.Is(err, circuitbreaker.ErrOpen) {
			return nil, fmt.Errorf("%w: %v", domain.ErrCapabilityUnavailable, err)
		}
		return nil, fmt.Errorf("detect landmarks: %w", err)
	}

	if len(resp.Faces) == 0 {
		return nil, nil
	}
	return &domain.FaceLandmarks{Points: resp.Faces[0].Landmarks}, nil
}

// Health reports whether the face mesh service is serving.
func (d *GRPCDetector) Health(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, d.callTimeout)
	defer cancel()

	resp, err := d.health.Check(ctx, &healthpb.HealthCheckRequest{Service: ServiceName})
	if err != nil {
		return fmt.Errorf("%w: %v", domain.ErrCapabilityUnavailable, err)
	}
	if resp.GetStatus() != healthpb.HealthCheckResponse_SERVING {
		return fmt.Errorf("%w: status %s", domain.ErrCapabilityUnavailable, resp.GetStatus())
	}
	return nil
}

// WaitReady polls Health until the service is serving or ctx ends.
func (d *GRPCDetector) WaitReady(ctx context.Context, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	var lastErr error
	for {
		if lastErr = d.Health(ctx); lastErr == nil {
			return nil
		}
		select {
		case <-ctx.Done():
			return lastErr
		case <-ticker.C:
		}
	}
}

func (d *GRPCDetector) BreakerState() circuitbreaker.State {
	return d.breaker.GetState()
}

func (d *GRPCDetector) Close() error {
	if d.conn != nil {
		return d.conn.Close()
	}
	return nil
}

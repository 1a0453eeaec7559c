package services

import (
	"context"
	"errors"
	"sync"
	"time"

	"safedrive/internal/core/domain"
	"safedrive/internal/core/ports"
	"safedrive/pkg/clock"
	"safedrive/pkg/tracing"

	"go.uber.org/zap"
)

// SessionDeps are the collaborators shared by every session.
type SessionDeps struct {
	Machine    *StateMachine
	Detector   ports.LandmarkDetector
	Codec      ports.FrameCodec
	Annotator  ports.FrameAnnotator // nil sends frames back unannotated
	Dispatcher ports.AlertDispatcher
	Publisher  ports.EventPublisher // optional
	Metrics    ports.MetricsRecorder
	Clock      clock.Clock
	Logger     *zap.SugaredLogger
}

type SessionConfig struct {
	Recipients      []string
	DispatchTimeout time.Duration
}

// FrameOutcome is what the transport sends back for one frame.
type FrameOutcome struct {
	Result domain.FrameResult
	// ProcessedFrame is a JPEG data URL, empty when the frame could not be
	// decoded or re-encoded.
	ProcessedFrame string
	Decision       Decision
}

// FrameSession owns the state of one connection. HandleFrame, ApplyCompletion
// and State must only be called from the goroutine that owns the connection;
// detached dispatches report back through Completions.
type FrameSession struct {
	id    domain.SessionID
	state *domain.SessionState
	deps  SessionDeps
	cfg   SessionConfig

	completions chan domain.AlertOutcome
	done        chan struct{}
	closeOnce   sync.Once
	inflight    sync.WaitGroup
}

func NewFrameSession(id domain.SessionID, deps SessionDeps, cfg SessionConfig) *FrameSession {
	if deps.Metrics == nil {
		deps.Metrics = ports.NoopMetrics{}
	}
	if deps.Clock == nil {
		deps.Clock = clock.RealClock{}
	}
	return &FrameSession{
		id:          id,
		state:       domain.NewSessionState(),
		deps:        deps,
		cfg:         cfg,
		completions: make(chan domain.AlertOutcome, 4),
		done:        make(chan struct{}),
	}
}

func (s *FrameSession) ID() domain.SessionID {
	return s.id
}

// State returns a snapshot of the session state.
func (s *FrameSession) State() domain.SessionState {
	return *s.state
}

// Completions delivers the outcome of every detached dispatch.
func (s *FrameSession) Completions() <-chan domain.AlertOutcome {
	return s.completions
}

// HandleFrame runs one inbound payload through decode, detection, geometry
// and the state machine. Per-frame failures degrade the result and never
// surface as errors.
func (s *FrameSession) HandleFrame(ctx context.Context, payload string) FrameOutcome {
	ctx, span := tracing.TraceFrame(ctx, string(s.id))
	defer span.End()

	start := s.deps.Clock.Now()
	log := s.deps.Logger.With("session_id", s.id)

	frame, err := s.deps.Codec.Decode(payload)
	if err != nil {
		s.deps.Metrics.RecordFrameError("decode")
		log.Debugw("Dropping undecodable frame", "error", err)
		d := s.deps.Machine.Tick(s.state, NoFace, start)
		s.deps.Metrics.RecordFrame(d.Result, s.deps.Clock.Now().Sub(start))
		return FrameOutcome{Result: d.Result, Decision: d}
	}

	obs, landmarks, skip := s.observe(ctx, log, frame)

	var d Decision
	if skip {
		// Degenerate geometry: the face is there but no ratio can be
		// computed, so the state is left untouched.
		d = Decision{
			Result: domain.FrameResult{FaceDetected: true},
			From:   s.state.State,
			To:     s.state.State,
		}
	} else {
		d = s.deps.Machine.Tick(s.state, obs, start)
	}

	if d.Transitioned() {
		log.Debugw("Drowsiness state changed",
			"from", d.From,
			"to", d.To,
			"closed_frames", s.state.ConsecutiveClosedFrames,
		)
	}
	if d.Suppressed {
		s.deps.Metrics.RecordAlertSuppressed()
	}
	if d.Dispatch {
		log.Infow("Driver drowsy, dispatching alert",
			"closed_frames", s.state.ConsecutiveClosedFrames,
			"ear", d.Result.Openness,
			"recipients", len(s.cfg.Recipients),
		)
		s.dispatchDetached(ctx)
	}

	tracing.AddSpanAttributes(ctx,
		tracing.FaceDetectedKey.Bool(d.Result.FaceDetected),
		tracing.OpennessKey.Float64(d.Result.Openness),
		tracing.DrowsyKey.Bool(d.Result.IsDrowsy),
	)

	out := FrameOutcome{Result: d.Result, Decision: d}
	out.ProcessedFrame = s.render(log, frame, landmarks, d.Result)
	s.deps.Metrics.RecordFrame(d.Result, s.deps.Clock.Now().Sub(start))
	return out
}

// observe returns the state machine input for a decoded frame. skip is set
// when the frame must not tick the state machine at all.
func (s *FrameSession) observe(ctx context.Context, log *zap.SugaredLogger, frame *domain.Frame) (Observation, *domain.FaceLandmarks, bool) {
	landmarks, err := s.deps.Detector.Detect(ctx, frame)
	if err != nil {
		s.deps.Metrics.RecordFrameError("detector")
		log.Warnw("Landmark detection failed", "error", err)
		return NoFace, nil, false
	}
	if landmarks == nil {
		return NoFace, nil, false
	}

	ear, err := CombinedOpenness(landmarks)
	switch {
	case err == nil:
		return Observation{FaceDetected: true, Openness: ear}, landmarks, false
	case errors.Is(err, domain.ErrDegenerateGeometry):
		s.deps.Metrics.RecordFrameError("degenerate_geometry")
		log.Debugw("Skipping frame with degenerate eye geometry", "error", err)
		return NoFace, landmarks, true
	default:
		s.deps.Metrics.RecordFrameError("incomplete_landmarks")
		log.Debugw("Treating partial face as no face", "error", err)
		return NoFace, nil, false
	}
}

func (s *FrameSession) render(log *zap.SugaredLogger, frame *domain.Frame, landmarks *domain.FaceLandmarks, result domain.FrameResult) string {
	img := frame.Image
	if s.deps.Annotator != nil {
		img = s.deps.Annotator.Annotate(frame, landmarks, result)
	}
	if img == nil {
		return ""
	}
	url, err := s.deps.Codec.EncodeDataURL(img)
	if err != nil {
		log.Warnw("Failed to encode processed frame", "error", err)
		return ""
	}
	return url
}

// dispatchDetached sends the drowsiness alert without blocking frame
// ingestion. The outcome is delivered on Completions unless the session has
// been closed by then.
func (s *FrameSession) dispatchDetached(ctx context.Context) {
	s.state.PendingDispatches++
	dctx := context.WithoutCancel(ctx)
	recipients := append([]string(nil), s.cfg.Recipients...)

	s.inflight.Add(1)
	go func() {
		defer s.inflight.Done()

		ctx := dctx
		if s.cfg.DispatchTimeout > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(dctx, s.cfg.DispatchTimeout)
			defer cancel()
		}

		outcome := s.deps.Dispatcher.Dispatch(ctx, domain.AlertKindDrowsiness, DrowsinessAlertMessage, recipients)
		publishEvent(ctx, s.deps.Publisher,
			newAlertEvent(domain.EventDrowsinessAlert, s.id, outcome, s.deps.Clock.Now()),
			s.deps.Logger)

		select {
		case s.completions <- outcome:
		case <-s.done:
		}
	}()
}

// ApplyCompletion merges a finished dispatch back into the session state.
func (s *FrameSession) ApplyCompletion(outcome domain.AlertOutcome) {
	if s.state.PendingDispatches > 0 {
		s.state.PendingDispatches--
	}
	s.state.LastOutcome = &outcome

	s.deps.Logger.Infow("Drowsiness alert dispatch finished",
		"session_id", s.id,
		"success", outcome.Success,
		"sent", outcome.SuccessCount,
		"total", outcome.TotalCount,
	)
}

// Close releases the session. In-flight dispatches run to completion but
// their outcomes are discarded.
func (s *FrameSession) Close() {
	s.closeOnce.Do(func() {
		close(s.done)
	})
}

// Wait blocks until every detached dispatch has returned.
func (s *FrameSession) Wait() {
	s.inflight.Wait()
}

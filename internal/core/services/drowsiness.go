package services

import (
	"math"
	"time"

	"safedrive/internal/core/domain"
)

// DetectionConfig tunes the drowsiness state machine.
type DetectionConfig struct {
	// EyeClosedThreshold is the openness below which a frame counts as closed.
	EyeClosedThreshold float64
	// ConsecutiveFrames is the debounce length, counted in frames rather than
	// wall-clock time.
	ConsecutiveFrames uint
	// AlertCooldown is the minimum time between two dispatches.
	AlertCooldown time.Duration
}

func DefaultDetectionConfig() DetectionConfig {
	return DetectionConfig{
		EyeClosedThreshold: 0.3,
		ConsecutiveFrames:  30,
		AlertCooldown:      300 * time.Second,
	}
}

// Observation is the per-frame input to the state machine.
type Observation struct {
	FaceDetected bool
	Openness     float64
}

// NoFace is the observation for frames without a usable face.
var NoFace = Observation{}

// Decision is the outcome of one tick.
type Decision struct {
	Result domain.FrameResult
	// Dispatch is true when the caller must send a drowsiness alert.
	Dispatch bool
	// Suppressed is true when the alert condition held but the cooldown
	// blocked a dispatch.
	Suppressed bool
	From, To   domain.DrowsinessState
}

// Transitioned reports whether the tick changed the debounced state.
func (d Decision) Transitioned() bool {
	return d.From != d.To
}

// StateMachine is stateless; every tick operates on a caller-owned
// SessionState, so one machine can serve any number of sessions.
type StateMachine struct {
	cfg DetectionConfig
}

func NewStateMachine(cfg DetectionConfig) *StateMachine {
	if cfg.ConsecutiveFrames == 0 {
		cfg.ConsecutiveFrames = 1
	}
	return &StateMachine{cfg: cfg}
}

func (m *StateMachine) Config() DetectionConfig {
	return m.cfg
}

// Tick applies one observation taken at now to state and returns the frame
// decision. It is deterministic in (state, obs, now).
func (m *StateMachine) Tick(state *domain.SessionState, obs Observation, now time.Time) Decision {
	d := Decision{From: state.State}
	state.FramesProcessed++

	if !obs.FaceDetected {
		state.ConsecutiveClosedFrames = 0
		state.State = domain.StateAwake
		d.To = state.State
		return d
	}

	d.Result.FaceDetected = true
	d.Result.Openness = obs.Openness

	if obs.Openness >= m.cfg.EyeClosedThreshold {
		state.ConsecutiveClosedFrames = 0
		state.AlertActive = false
		state.State = domain.StateAwake
		d.To = state.State
		return d
	}

	if state.ConsecutiveClosedFrames < math.MaxUint32 {
		state.ConsecutiveClosedFrames++
	}
	d.Result.DrowsinessPercentage = m.percentage(state.ConsecutiveClosedFrames)

	if state.ConsecutiveClosedFrames < m.cfg.ConsecutiveFrames {
		state.State = domain.StateClosing
		d.To = state.State
		return d
	}

	state.State = domain.StateAlert
	d.To = state.State
	d.Result.IsDrowsy = true

	if state.AlertActive {
		return d
	}
	if m.cooledDown(state, now) {
		state.AlertActive = true
		state.LastAlertAt = now
		d.Dispatch = true
		d.Result.AlertSent = true
	} else {
		d.Suppressed = true
	}
	return d
}

func (m *StateMachine) percentage(counter uint) float64 {
	return math.Min(100, 100*float64(counter)/float64(m.cfg.ConsecutiveFrames))
}

func (m *StateMachine) cooledDown(state *domain.SessionState, now time.Time) bool {
	if state.LastAlertAt.IsZero() {
		return true
	}
	return now.Sub(state.LastAlertAt) > m.cfg.AlertCooldown
}

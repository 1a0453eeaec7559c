package domain

import "time"

type SessionID string

// DrowsinessState is the debounced state of one session.
type DrowsinessState string

const (
	StateAwake   DrowsinessState = "AWAKE"
	StateClosing DrowsinessState = "CLOSING"
	StateAlert   DrowsinessState = "ALERT"
)

// SessionState is owned by exactly one connection and mutated once per frame.
type SessionState struct {
	ConsecutiveClosedFrames uint
	AlertActive             bool
	// LastAlertAt is zero until the first dispatch.
	LastAlertAt time.Time
	State       DrowsinessState

	FramesProcessed   uint64
	PendingDispatches int
	LastOutcome       *AlertOutcome
}

// NewSessionState returns the state of a freshly opened connection.
func NewSessionState() *SessionState {
	return &SessionState{State: StateAwake}
}

// FrameResult is the immutable outcome of processing one frame.
type FrameResult struct {
	FaceDetected         bool    `json:"face_detected"`
	Openness             float64 `json:"ear"`
	DrowsinessPercentage float64 `json:"drowsiness_percentage"`
	IsDrowsy             bool    `json:"is_drowsy"`
	AlertSent            bool    `json:"alert_sent"`
}

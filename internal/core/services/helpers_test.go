package services

import (
	"context"
	"errors"
	"image"
	"image/color"
	"sync"
	"time"

	"safedrive/internal/core/domain"
)

var testEpoch = time.Date(2024, 6, 1, 9, 0, 0, 0, time.UTC)

// eyeWithOpenness builds a six point eye whose aspect ratio is exactly ratio.
func eyeWithOpenness(cx, cy, ratio float64) []domain.LandmarkPoint {
	const width = 0.1
	half := ratio * width / 2
	return []domain.LandmarkPoint{
		{X: cx - width/2, Y: cy},
		{X: cx - width/4, Y: cy - half},
		{X: cx + width/4, Y: cy - half},
		{X: cx + width/2, Y: cy},
		{X: cx + width/4, Y: cy + half},
		{X: cx - width/4, Y: cy + half},
	}
}

// faceWithOpenness returns a full face mesh with both eyes at ratio.
func faceWithOpenness(ratio float64) *domain.FaceLandmarks {
	points := make([]domain.LandmarkPoint, 478)
	for i := range points {
		points[i] = domain.LandmarkPoint{X: 0.5, Y: 0.5}
	}
	place := func(indexes [domain.EyePointCount]int, eye []domain.LandmarkPoint) {
		for i, idx := range indexes {
			points[idx] = eye[i]
		}
	}
	place(domain.LeftEyeIndexes, eyeWithOpenness(0.65, 0.4, ratio))
	place(domain.RightEyeIndexes, eyeWithOpenness(0.35, 0.4, ratio))
	return &domain.FaceLandmarks{Points: points}
}

// fakeCodec treats the payload as a frame label; "corrupt" fails to decode.
type fakeCodec struct{}

func (fakeCodec) Decode(payload string) (*domain.Frame, error) {
	if payload == "corrupt" {
		return nil, domain.ErrDecodeFailure
	}
	img := image.NewRGBA(image.Rect(0, 0, 4, 4))
	img.Set(0, 0, color.White)
	return &domain.Frame{Data: []byte(payload), Format: "label", Image: img}, nil
}

func (fakeCodec) EncodeDataURL(image.Image) (string, error) {
	return "data:image/jpeg;base64,AAAA", nil
}

// labelDetector maps frame labels to landmark sets.
type labelDetector struct{}

var errDetectorDown = errors.New("detector down")

func (labelDetector) Detect(_ context.Context, frame *domain.Frame) (*domain.FaceLandmarks, error) {
	switch string(frame.Data) {
	case "closed":
		return faceWithOpenness(0.1), nil
	case "open":
		return faceWithOpenness(0.5), nil
	case "noface":
		return nil, nil
	case "degenerate":
		face := faceWithOpenness(0.1)
		for _, idx := range domain.LeftEyeIndexes {
			face.Points[idx] = domain.LandmarkPoint{X: 0.2, Y: 0.2}
		}
		return face, nil
	case "oneeye":
		face := faceWithOpenness(0.1)
		face.Points = face.Points[:200]
		return face, nil
	case "error":
		return nil, errDetectorDown
	}
	return nil, nil
}

func (labelDetector) Health(context.Context) error { return nil }

// recordingDispatcher records every dispatch and optionally blocks until
// released.
type recordingDispatcher struct {
	mu       sync.Mutex
	calls    []dispatchCall
	release  chan struct{}
	outcome  func(recipients []string) domain.AlertOutcome
	returned chan struct{}
}

type dispatchCall struct {
	kind       domain.AlertKind
	message    string
	recipients []string
}

func newRecordingDispatcher() *recordingDispatcher {
	return &recordingDispatcher{returned: make(chan struct{}, 16)}
}

func (r *recordingDispatcher) Dispatch(ctx context.Context, kind domain.AlertKind, message string, recipients []string) domain.AlertOutcome {
	r.mu.Lock()
	r.calls = append(r.calls, dispatchCall{kind: kind, message: message, recipients: recipients})
	release := r.release
	r.mu.Unlock()

	if release != nil {
		<-release
	}
	defer func() { r.returned <- struct{}{} }()

	if r.outcome != nil {
		return r.outcome(recipients)
	}
	return domain.AlertOutcome{
		Kind:         kind,
		SuccessCount: len(recipients),
		TotalCount:   len(recipients),
		Message:      message,
		Success:      len(recipients) > 0,
	}
}

func (r *recordingDispatcher) Calls() []dispatchCall {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]dispatchCall(nil), r.calls...)
}

type capturingPublisher struct {
	mu     sync.Mutex
	events []domain.AlertEvent
	err    error
}

func (p *capturingPublisher) Publish(_ context.Context, event domain.AlertEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event)
	return p.err
}

func (p *capturingPublisher) Close() error { return nil }

func (p *capturingPublisher) Events() []domain.AlertEvent {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]domain.AlertEvent(nil), p.events...)
}

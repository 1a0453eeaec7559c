package ports

import (
	"image"

	"safedrive/internal/core/domain"
)

// FrameCodec turns inbound payloads into frames and rendered images back into
// outbound payloads.
type FrameCodec interface {
	Decode(payload string) (*domain.Frame, error)
	EncodeDataURL(img image.Image) (string, error)
}

// FrameAnnotator draws the detection overlay onto a copy of the frame.
type FrameAnnotator interface {
	Annotate(frame *domain.Frame, landmarks *domain.FaceLandmarks, result domain.FrameResult) image.Image
}

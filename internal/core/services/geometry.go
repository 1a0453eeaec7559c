package services

import (
	"fmt"
	"math"

	"safedrive/internal/core/domain"

	"gonum.org/v1/gonum/spatial/r2"
)

func toVec(p domain.LandmarkPoint) r2.Vec {
	return r2.Vec{X: p.X, Y: p.Y}
}

func distance(a, b domain.LandmarkPoint) float64 {
	return r2.Norm(r2.Sub(toVec(a), toVec(b)))
}

// ComputeOpenness returns the eye aspect ratio of one eye: the sum of the two
// lid-to-lid spans over twice the corner-to-corner span.
func ComputeOpenness(eye domain.EyeSample) (float64, error) {
	if len(eye) < domain.EyePointCount {
		return 0, fmt.Errorf("%w: %d of %d points", domain.ErrDegenerateGeometry, len(eye), domain.EyePointCount)
	}

	horizontal := distance(eye[0], eye[3])
	if horizontal == 0 || math.IsNaN(horizontal) || math.IsInf(horizontal, 0) {
		return 0, fmt.Errorf("%w: zero horizontal span", domain.ErrDegenerateGeometry)
	}

	a := distance(eye[1], eye[5])
	b := distance(eye[2], eye[4])
	ratio := (a + b) / (2 * horizontal)
	if math.IsNaN(ratio) || math.IsInf(ratio, 0) {
		return 0, fmt.Errorf("%w: non-finite lid span", domain.ErrDegenerateGeometry)
	}
	return ratio, nil
}

// CombinedOpenness averages both eyes. A face missing either eye is an
// incomplete detection.
func CombinedOpenness(face *domain.FaceLandmarks) (float64, error) {
	left, ok := face.Eye(domain.LeftEyeIndexes)
	if !ok {
		return 0, fmt.Errorf("%w: left eye", domain.ErrIncompleteLandmarks)
	}
	right, ok := face.Eye(domain.RightEyeIndexes)
	if !ok {
		return 0, fmt.Errorf("%w: right eye", domain.ErrIncompleteLandmarks)
	}

	l, err := ComputeOpenness(left)
	if err != nil {
		return 0, fmt.Errorf("left eye: %w", err)
	}
	r, err := ComputeOpenness(right)
	if err != nil {
		return 0, fmt.Errorf("right eye: %w", err)
	}
	return (l + r) / 2, nil
}

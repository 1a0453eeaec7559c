package domain

import (
	"image"
	"time"
)

// EyePointCount is the number of landmarks that describe one eye.
const EyePointCount = 6

// Face mesh landmark indexes for each eye, ordered outer corner, two upper-lid
// points, inner corner, two lower-lid points.
var (
	LeftEyeIndexes  = [EyePointCount]int{362, 385, 387, 263, 373, 380}
	RightEyeIndexes = [EyePointCount]int{33, 160, 158, 133, 153, 144}
)

// LandmarkPoint is a normalized position in [0,1]x[0,1] image space.
type LandmarkPoint struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// EyeSample holds the six landmarks of one eye in anatomical order.
type EyeSample []LandmarkPoint

// FaceLandmarks is the landmark set of the first detected face.
type FaceLandmarks struct {
	Points []LandmarkPoint
}

// Eye returns the sample for the given index table, or false if any index is
// missing from the landmark set.
func (f *FaceLandmarks) Eye(indexes [EyePointCount]int) (EyeSample, bool) {
	if f == nil {
		return nil, false
	}
	sample := make(EyeSample, 0, EyePointCount)
	for _, idx := range indexes {
		if idx < 0 || idx >= len(f.Points) {
			return nil, false
		}
		sample = append(sample, f.Points[idx])
	}
	return sample, true
}

// Frame is one decoded inbound image.
type Frame struct {
	Data       []byte
	Format     string
	Image      image.Image
	ReceivedAt time.Time
}

// Bounds returns the pixel size of the frame.
func (f *Frame) Bounds() image.Rectangle {
	if f == nil || f.Image == nil {
		return image.Rectangle{}
	}
	return f.Image.Bounds()
}

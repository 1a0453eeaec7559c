package annotate

import (
	"image"
	"image/color"
	"math"
	"testing"
	"time"

	"safedrive/internal/core/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func grayFrame(w, h int) *domain.Frame {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.RGBA{R: 50, G: 50, B: 50, A: 255})
		}
	}
	return &domain.Frame{Image: img}
}

func faceAt(w, h int) *domain.FaceLandmarks {
	points := make([]domain.LandmarkPoint, 478)
	for i, idx := range domain.LeftEyeIndexes {
		points[idx] = domain.LandmarkPoint{X: 0.6 + 0.02*float64(i%4), Y: 0.5 + 0.01*float64(i%3)}
	}
	for i, idx := range domain.RightEyeIndexes {
		points[idx] = domain.LandmarkPoint{X: 0.3 + 0.02*float64(i%4), Y: 0.5 + 0.01*float64(i%3)}
	}
	return &domain.FaceLandmarks{Points: points}
}

func countColor(img *image.RGBA, r image.Rectangle, c color.RGBA) int {
	n := 0
	for y := r.Min.Y; y < r.Max.Y; y++ {
		for x := r.Min.X; x < r.Max.X; x++ {
			if img.RGBAAt(x, y) == c {
				n++
			}
		}
	}
	return n
}

func TestAnnotate_DoesNotModifySource(t *testing.T) {
	frame := grayFrame(320, 240)
	before := append([]uint8(nil), frame.Image.(*image.RGBA).Pix...)

	out := NewAnnotator().Annotate(frame, faceAt(320, 240), domain.FrameResult{FaceDetected: true, Openness: 0.2})

	require.NotNil(t, out)
	assert.Equal(t, before, frame.Image.(*image.RGBA).Pix)
	assert.Equal(t, frame.Image.Bounds(), out.Bounds())
}

func TestAnnotate_DrawsLandmarksAndStatus(t *testing.T) {
	frame := grayFrame(320, 240)
	result := domain.FrameResult{FaceDetected: true, Openness: 0.12, DrowsinessPercentage: 100, IsDrowsy: true}

	out := NewAnnotator().Annotate(frame, faceAt(320, 240), result).(*image.RGBA)

	// Eye landmark dot around the first left-eye point.
	p := image.Pt(int(0.6*320), int(0.5*240))
	assert.Equal(t, green, out.RGBAAt(p.X, p.Y))

	// EAR text line, drowsiness line and alert line.
	assert.Positive(t, countColor(out, image.Rect(0, 15, 120, 32), blue))
	assert.Positive(t, countColor(out, image.Rect(0, 45, 160, 62), red))
	assert.Positive(t, countColor(out, image.Rect(0, 75, 160, 92), red))
	// "Face Detected" in the top right corner.
	assert.Positive(t, countColor(out, image.Rect(120, 15, 320, 32), green))
}

func TestAnnotate_NoFace(t *testing.T) {
	frame := grayFrame(320, 240)

	out := NewAnnotator().Annotate(frame, nil, domain.FrameResult{}).(*image.RGBA)

	assert.Zero(t, countColor(out, image.Rect(0, 0, 120, 100), blue))
	assert.Positive(t, countColor(out, image.Rect(120, 15, 320, 32), red))
}

func TestAnnotate_NilFrame(t *testing.T) {
	assert.Nil(t, NewAnnotator().Annotate(nil, nil, domain.FrameResult{}))
}

func TestDrawLine_ClipsToBounds(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 10, 10))
	drawLine(img, image.Pt(-5, -5), image.Pt(20, 20), green)

	assert.Equal(t, green, img.RGBAAt(0, 0))
	assert.Equal(t, green, img.RGBAAt(9, 9))
}

func TestAnnotate_SkipsEyesOutsideFrame(t *testing.T) {
	tests := map[string]domain.LandmarkPoint{
		"huge x":       {X: 2e6, Y: 0.5},
		"pixel coords": {X: 412, Y: 230},
		"negative":     {X: -3, Y: 0.5},
		"nan":          {X: math.NaN(), Y: 0.5},
		"inf":          {X: 0.5, Y: math.Inf(1)},
	}

	for name, bad := range tests {
		t.Run(name, func(t *testing.T) {
			face := faceAt(640, 480)
			face.Points[domain.LeftEyeIndexes[1]] = bad
			frame := grayFrame(640, 480)

			start := time.Now()
			out := NewAnnotator().Annotate(frame, face, domain.FrameResult{FaceDetected: true, Openness: 0.25}).(*image.RGBA)
			assert.Less(t, time.Since(start), 500*time.Millisecond)

			// Left eye is skipped, right eye is still drawn.
			assert.Zero(t, countColor(out, image.Rect(int(0.55*640), int(0.45*480), int(0.7*640), int(0.55*480)), green))
			assert.Equal(t, green, out.RGBAAt(int(0.3*640), int(0.5*480)))
		})
	}
}

func TestDrawLine_FarOffCanvasIsCheap(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 640, 480))

	start := time.Now()
	drawLine(img, image.Pt(-2_000_000_000, 240), image.Pt(2_000_000_000, 240), green)
	drawLine(img, image.Pt(-50, -50), image.Pt(-10, -90), green)
	assert.Less(t, time.Since(start), 100*time.Millisecond)

	assert.Equal(t, green, img.RGBAAt(0, 240))
	assert.Equal(t, green, img.RGBAAt(639, 240))
	assert.Zero(t, countColor(img, image.Rect(0, 0, 640, 200), green))
}

func TestClipLine(t *testing.T) {
	r := image.Rect(0, 0, 10, 10)

	from, to, ok := clipLine(r, image.Pt(-5, 5), image.Pt(15, 5))
	require.True(t, ok)
	assert.Equal(t, image.Pt(0, 5), from)
	assert.Equal(t, image.Pt(9, 5), to)

	_, _, ok = clipLine(r, image.Pt(-5, -1), image.Pt(15, -1))
	assert.False(t, ok)

	from, to, ok = clipLine(r, image.Pt(2, 3), image.Pt(4, 6))
	require.True(t, ok)
	assert.Equal(t, image.Pt(2, 3), from)
	assert.Equal(t, image.Pt(4, 6), to)
}

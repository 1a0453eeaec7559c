package annotate

import (
	"fmt"
	"image"
	"image/color"
	"math"

	"safedrive/internal/core/domain"

	"golang.org/x/image/draw"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
)

var (
	green = color.RGBA{R: 0, G: 255, B: 0, A: 255}
	red   = color.RGBA{R: 255, G: 0, B: 0, A: 255}
	blue  = color.RGBA{R: 0, G: 0, B: 255, A: 255}
)

const (
	textLeft     = 10
	lineHeight   = 30
	statusWidth  = 200
	landmarkSize = 2
)

// Annotator draws eye landmarks and detection status onto frames.
type Annotator struct {
	face font.Face
}

func NewAnnotator() *Annotator {
	return &Annotator{face: basicfont.Face7x13}
}

// Annotate returns an RGBA copy of the frame with the overlay drawn on it.
// The source frame is never modified.
func (a *Annotator) Annotate(frame *domain.Frame, landmarks *domain.FaceLandmarks, result domain.FrameResult) image.Image {
	if frame == nil || frame.Image == nil {
		return nil
	}
	bounds := frame.Image.Bounds()
	dst := image.NewRGBA(image.Rect(0, 0, bounds.Dx(), bounds.Dy()))
	draw.Draw(dst, dst.Bounds(), frame.Image, bounds.Min, draw.Src)

	if result.FaceDetected {
		if landmarks != nil {
			for _, indexes := range [][domain.EyePointCount]int{domain.LeftEyeIndexes, domain.RightEyeIndexes} {
				if eye, ok := landmarks.Eye(indexes); ok && onCanvas(eye) {
					a.drawEye(dst, eye)
				}
			}
		}

		a.drawText(dst, textLeft, lineHeight, blue, fmt.Sprintf("EAR: %.2f", result.Openness))
		if result.DrowsinessPercentage > 0 {
			a.drawText(dst, textLeft, 2*lineHeight, red, fmt.Sprintf("Drowsiness: %.0f%%", result.DrowsinessPercentage))
		}
		if result.IsDrowsy {
			a.drawText(dst, textLeft, 3*lineHeight, red, "DROWSINESS ALERT!")
		}
	}

	status, c := "No Face Detected", red
	if result.FaceDetected {
		status, c = "Face Detected", green
	}
	a.drawText(dst, dst.Bounds().Dx()-statusWidth, lineHeight, c, status)

	return dst
}

// onCanvas reports whether every point is finite and inside the normalized
// [0,1] image square. Anything else is a detector fault and is not drawn.
func onCanvas(eye domain.EyeSample) bool {
	for _, p := range eye {
		// NaN fails every comparison.
		if !(p.X >= 0 && p.X <= 1 && p.Y >= 0 && p.Y <= 1) {
			return false
		}
	}
	return true
}

func (a *Annotator) drawEye(dst *image.RGBA, eye domain.EyeSample) {
	w, h := dst.Bounds().Dx(), dst.Bounds().Dy()
	pts := make([]image.Point, len(eye))
	for i, p := range eye {
		pts[i] = image.Pt(int(p.X*float64(w)), int(p.Y*float64(h)))
	}

	// Closed contour through the six points.
	for i := range pts {
		drawLine(dst, pts[i], pts[(i+1)%len(pts)], green)
	}
	for _, p := range pts {
		r := image.Rect(p.X-landmarkSize, p.Y-landmarkSize, p.X+landmarkSize+1, p.Y+landmarkSize+1)
		draw.Draw(dst, r.Intersect(dst.Bounds()), image.NewUniform(green), image.Point{}, draw.Src)
	}
}

func (a *Annotator) drawText(dst *image.RGBA, x, y int, c color.Color, text string) {
	if x < 0 {
		x = 0
	}
	d := &font.Drawer{
		Dst:  dst,
		Src:  image.NewUniform(c),
		Face: a.face,
		Dot:  fixed.P(x, y),
	}
	d.DrawString(text)
}

// drawLine rasterizes a line with Bresenham's algorithm, clipping to dst.
func drawLine(dst *image.RGBA, from, to image.Point, c color.Color) {
	from, to, ok := clipLine(dst.Bounds(), from, to)
	if !ok {
		return
	}

	dx := abs(to.X - from.X)
	dy := -abs(to.Y - from.Y)
	sx, sy := 1, 1
	if from.X > to.X {
		sx = -1
	}
	if from.Y > to.Y {
		sy = -1
	}
	err := dx + dy
	x, y := from.X, from.Y
	for {
		if (image.Point{X: x, Y: y}).In(dst.Bounds()) {
			dst.Set(x, y, c)
		}
		if x == to.X && y == to.Y {
			return
		}
		e2 := 2 * err
		if e2 >= dy {
			err += dy
			x += sx
		}
		if e2 <= dx {
			err += dx
			y += sy
		}
	}
}

// clipLine clips the segment to r (Liang-Barsky) so rasterizing never walks
// off-canvas pixels.
func clipLine(r image.Rectangle, from, to image.Point) (image.Point, image.Point, bool) {
	if r.Empty() {
		return from, to, false
	}
	x0, y0 := float64(from.X), float64(from.Y)
	dx, dy := float64(to.X-from.X), float64(to.Y-from.Y)
	xmin, xmax := float64(r.Min.X), float64(r.Max.X-1)
	ymin, ymax := float64(r.Min.Y), float64(r.Max.Y-1)

	t0, t1 := 0.0, 1.0
	for _, edge := range [4][2]float64{
		{-dx, x0 - xmin},
		{dx, xmax - x0},
		{-dy, y0 - ymin},
		{dy, ymax - y0},
	} {
		p, q := edge[0], edge[1]
		if p == 0 {
			if q < 0 {
				return from, to, false
			}
			continue
		}
		t := q / p
		if p < 0 {
			if t > t1 {
				return from, to, false
			}
			if t > t0 {
				t0 = t
			}
		} else {
			if t < t0 {
				return from, to, false
			}
			if t < t1 {
				t1 = t
			}
		}
	}

	clipped := func(t float64) image.Point {
		return image.Pt(int(math.Round(x0+t*dx)), int(math.Round(y0+t*dy)))
	}
	return clipped(t0), clipped(t1), true
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}

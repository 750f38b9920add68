package render

import (
	"image"

	"gocv.io/x/gocv"
)

// MatCanvas draws onto a gocv Mat in place.
//
// Translucent primitives are drawn on a copy of the affected region and
// blended back with AddWeighted, so only the pixels near the primitive are
// touched.
type MatCanvas struct {
	mat *gocv.Mat
}

// NewMatCanvas wraps mat. The caller keeps ownership.
func NewMatCanvas(mat *gocv.Mat) *MatCanvas {
	return &MatCanvas{mat: mat}
}

// Size returns the Mat's width and height.
func (c *MatCanvas) Size() image.Point {
	if c.mat == nil || c.mat.Empty() {
		return image.Point{}
	}
	return image.Point{X: c.mat.Cols(), Y: c.mat.Rows()}
}

// Line strokes a segment.
func (c *MatCanvas) Line(from, to image.Point, s Style) {
	pad := s.Width + 1
	rect := image.Rectangle{Min: from, Max: to}.Canon().Inset(-pad)

	c.blend(rect, s, func(layer *gocv.Mat, origin image.Point) {
		gocv.Line(layer, from.Sub(origin), to.Sub(origin), s.Color, s.Width)
	})
}

// Circle fills a disc.
func (c *MatCanvas) Circle(center image.Point, radius int, s Style) {
	rect := image.Rectangle{Min: center, Max: center}.Inset(-(radius + 1))

	c.blend(rect, s, func(layer *gocv.Mat, origin image.Point) {
		gocv.Circle(layer, center.Sub(origin), radius, s.Color, -1)
	})
}

// blend runs draw on the part of the Mat inside rect, mixing the result in
// with the style's opacity.
func (c *MatCanvas) blend(rect image.Rectangle, s Style, draw func(layer *gocv.Mat, origin image.Point)) {
	size := c.Size()
	rect = rect.Intersect(image.Rectangle{Max: size})
	if rect.Empty() {
		return
	}

	roi := c.mat.Region(rect)
	defer roi.Close()

	if s.Color.A == 255 {
		draw(&roi, rect.Min)
		return
	}

	layer := roi.Clone()
	defer layer.Close()

	draw(&layer, rect.Min)

	alpha := float64(s.Color.A) / 255
	gocv.AddWeighted(layer, alpha, roi, 1-alpha, 0, &roi)
}

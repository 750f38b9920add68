// Package render draws hand skeleton overlays on top of video frames.
package render

import (
	"image"
	"image/color"
	"math"

	"github.com/ayusman/fingerspell/internal/detector"
)

// Default overlay styling.
const (
	JointRadius = 4
	BoneWidth   = 3
)

// Style describes how a primitive is drawn. Color.A is the opacity.
type Style struct {
	Color color.RGBA
	Width int
}

// Canvas is a drawing surface sized in pixels.
type Canvas interface {
	// Size returns the current surface dimensions.
	Size() image.Point
	// Line strokes a segment.
	Line(from, to image.Point, s Style)
	// Circle fills a disc.
	Circle(center image.Point, radius int, s Style)
}

// Renderer draws hand skeletons with a fixed topology.
type Renderer struct {
	Bone   Style
	Joint  Style
	Radius int
}

// NewRenderer returns a Renderer with translucent black bones and joints.
func NewRenderer() *Renderer {
	return &Renderer{
		Bone:   Style{Color: color.RGBA{R: 0, G: 0, B: 0, A: 102}, Width: BoneWidth},
		Joint:  Style{Color: color.RGBA{R: 0, G: 0, B: 0, A: 153}},
		Radius: JointRadius,
	}
}

// Render draws every bone of every hand, then every joint, so joints sit on
// top of the lines. Coordinates are scaled by the canvas size at call time.
func (r *Renderer) Render(c Canvas, hands []detector.HandLandmarks) {
	if len(hands) == 0 {
		return
	}

	size := c.Size()
	for i := range hands {
		r.drawBones(c, size, hands[i].Points[:])
	}
	for i := range hands {
		r.drawJoints(c, size, hands[i].Points[:])
	}
}

// drawBones strokes each topology edge. Edges whose endpoints are not in
// points are skipped.
func (r *Renderer) drawBones(c Canvas, size image.Point, points []detector.Point3D) {
	for _, edge := range detector.HandConnections {
		start, end := edge[0], edge[1]
		if start >= len(points) || end >= len(points) {
			continue
		}
		c.Line(toPixel(points[start], size), toPixel(points[end], size), r.Bone)
	}
}

func (r *Renderer) drawJoints(c Canvas, size image.Point, points []detector.Point3D) {
	for _, p := range points {
		c.Circle(toPixel(p, size), r.Radius, r.Joint)
	}
}

// toPixel maps a normalized landmark onto the canvas.
func toPixel(p detector.Point3D, size image.Point) image.Point {
	return image.Point{
		X: int(math.Round(p.X * float64(size.X))),
		Y: int(math.Round(p.Y * float64(size.Y))),
	}
}

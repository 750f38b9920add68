package session

import (
	"image"

	"gocv.io/x/gocv"

	"github.com/ayusman/fingerspell/internal/render"
)

// Surface is the drawing target the camera frame and the overlay are
// composed on. It is not safe for concurrent use; Session guards it.
type Surface struct {
	mat gocv.Mat
}

// NewSurface creates an empty surface.
func NewSurface() *Surface {
	return &Surface{mat: gocv.NewMat()}
}

// Draw replaces the surface contents with frame, resizing the surface to
// the frame dimensions.
func (s *Surface) Draw(frame *gocv.Mat) {
	frame.CopyTo(&s.mat)
}

// Size returns the surface dimensions in pixels.
func (s *Surface) Size() image.Point {
	if s.mat.Empty() {
		return image.Point{}
	}
	return image.Pt(s.mat.Cols(), s.mat.Rows())
}

// Empty reports whether nothing has been drawn.
func (s *Surface) Empty() bool {
	return s.mat.Empty()
}

// Canvas returns a render target backed by the surface.
func (s *Surface) Canvas() render.Canvas {
	return render.NewMatCanvas(&s.mat)
}

// Pixels returns a copy of the current pixel buffer. The caller owns it.
func (s *Surface) Pixels() gocv.Mat {
	return s.mat.Clone()
}

// Close releases the pixel buffer.
func (s *Surface) Close() error {
	return s.mat.Close()
}

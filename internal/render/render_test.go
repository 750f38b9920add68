package render

import (
	"image"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gocv.io/x/gocv"

	"github.com/ayusman/fingerspell/internal/detector"
)

type call struct {
	kind   string
	from   image.Point
	to     image.Point
	radius int
	style  Style
}

// recordingCanvas records drawing calls instead of drawing.
type recordingCanvas struct {
	size  image.Point
	calls []call
}

func (c *recordingCanvas) Size() image.Point { return c.size }

func (c *recordingCanvas) Line(from, to image.Point, s Style) {
	c.calls = append(c.calls, call{kind: "line", from: from, to: to, style: s})
}

func (c *recordingCanvas) Circle(center image.Point, radius int, s Style) {
	c.calls = append(c.calls, call{kind: "circle", from: center, radius: radius, style: s})
}

func (c *recordingCanvas) count(kind string) int {
	n := 0
	for _, cl := range c.calls {
		if cl.kind == kind {
			n++
		}
	}
	return n
}

func TestRender_NoHands(t *testing.T) {
	r := NewRenderer()

	for _, hands := range [][]detector.HandLandmarks{nil, {}} {
		c := &recordingCanvas{size: image.Pt(640, 480)}
		r.Render(c, hands)
		assert.Empty(t, c.calls)
	}
}

func TestRender_OneHand(t *testing.T) {
	r := NewRenderer()
	c := &recordingCanvas{size: image.Pt(640, 480)}

	r.Render(c, []detector.HandLandmarks{detector.OpenPalmLandmarks()})

	assert.Equal(t, 20, c.count("line"))
	assert.Equal(t, 21, c.count("circle"))

	for i, cl := range c.calls {
		if i < 20 {
			assert.Equal(t, "line", cl.kind, "call %d", i)
			assert.Equal(t, r.Bone, cl.style)
		} else {
			assert.Equal(t, "circle", cl.kind, "call %d", i)
			assert.Equal(t, JointRadius, cl.radius)
			assert.Equal(t, r.Joint, cl.style)
		}
	}
}

func TestRender_TwoHands_JointsAfterAllBones(t *testing.T) {
	r := NewRenderer()
	c := &recordingCanvas{size: image.Pt(640, 480)}

	r.Render(c, []detector.HandLandmarks{detector.OpenPalmLandmarks(), detector.FistLandmarks()})

	require.Len(t, c.calls, 82)
	for i := 0; i < 40; i++ {
		assert.Equal(t, "line", c.calls[i].kind)
	}
	for i := 40; i < 82; i++ {
		assert.Equal(t, "circle", c.calls[i].kind)
	}
}

func TestRender_ScalesToCanvasSize(t *testing.T) {
	r := NewRenderer()
	hand := detector.OpenPalmLandmarks()

	small := &recordingCanvas{size: image.Pt(100, 100)}
	r.Render(small, []detector.HandLandmarks{hand})

	large := &recordingCanvas{size: image.Pt(1920, 1440)}
	r.Render(large, []detector.HandLandmarks{hand})

	// First line is wrist -> thumb CMC; wrist is at (0.5, 0.8).
	assert.Equal(t, image.Pt(50, 80), small.calls[0].from)
	assert.Equal(t, image.Pt(960, 1152), large.calls[0].from)

	// Last circle is the pinky tip at (0.34, 0.42).
	last := large.calls[len(large.calls)-1]
	assert.Equal(t, image.Pt(653, 605), last.from)
}

func TestDrawBones_SkipsMissingEndpoints(t *testing.T) {
	r := NewRenderer()
	c := &recordingCanvas{size: image.Pt(640, 480)}
	hand := detector.OpenPalmLandmarks()

	// Only wrist and thumb present: edges 0-1..3-4 are drawable.
	r.drawBones(c, c.size, hand.Points[:5])

	assert.Equal(t, 4, c.count("line"))
}

func TestToPixel(t *testing.T) {
	tests := []struct {
		name string
		p    detector.Point3D
		size image.Point
		want image.Point
	}{
		{name: "origin", p: detector.Point3D{}, size: image.Pt(640, 480), want: image.Pt(0, 0)},
		{name: "far corner", p: detector.Point3D{X: 1, Y: 1}, size: image.Pt(640, 480), want: image.Pt(640, 480)},
		{name: "rounds", p: detector.Point3D{X: 0.3333, Y: 0.6667}, size: image.Pt(3, 3), want: image.Pt(1, 2)},
		{name: "ignores depth", p: detector.Point3D{X: 0.5, Y: 0.5, Z: -3}, size: image.Pt(10, 10), want: image.Pt(5, 5)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, toPixel(tt.p, tt.size))
		})
	}
}

func TestMatCanvas_Blend(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping test that requires GoCV Mat creation")
	}

	mat := gocv.NewMatWithSize(480, 640, gocv.MatTypeCV8UC3)
	defer mat.Close()
	mat.SetTo(gocv.NewScalar(255, 255, 255, 0))

	c := NewMatCanvas(&mat)
	assert.Equal(t, image.Pt(640, 480), c.Size())

	r := NewRenderer()
	c.Circle(image.Pt(100, 100), r.Radius, r.Joint)

	// 60% black over white leaves 40% of 255.
	center := mat.GetVecbAt(100, 100)
	assert.InDelta(t, 102, int(center[0]), 2)

	// Pixels outside the circle are untouched.
	outside := mat.GetVecbAt(200, 200)
	assert.Equal(t, uint8(255), outside[0])
}

func TestMatCanvas_ClipsOutsidePrimitives(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping test that requires GoCV Mat creation")
	}

	mat := gocv.NewMatWithSize(10, 10, gocv.MatTypeCV8UC3)
	defer mat.Close()

	c := NewMatCanvas(&mat)
	r := NewRenderer()

	assert.NotPanics(t, func() {
		c.Circle(image.Pt(-50, -50), r.Radius, r.Joint)
		c.Line(image.Pt(-20, 5), image.Pt(30, 5), r.Bone)
	})
}

func TestMatCanvas_EmptyMat(t *testing.T) {
	mat := gocv.NewMat()
	defer mat.Close()

	c := NewMatCanvas(&mat)
	assert.Equal(t, image.Point{}, c.Size())
	assert.NotPanics(t, func() { c.Line(image.Pt(0, 0), image.Pt(5, 5), NewRenderer().Bone) })
}

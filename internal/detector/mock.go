package detector

import (
	"sync"

	"gocv.io/x/gocv"
)

// MockDetector is a test implementation of the Detector interface.
// It allows tests to control the detection results.
type MockDetector struct {
	mu     sync.Mutex
	result *Result
	err    error
	calls  int
}

// NewMockDetector creates a new MockDetector instance.
func NewMockDetector() *MockDetector {
	return &MockDetector{}
}

// SetHands sets the image-space hands returned by Detect. World landmarks
// are derived with WorldFromImage.
func (m *MockDetector) SetHands(hands []HandLandmarks) {
	result := &Result{Landmarks: hands}
	for _, h := range hands {
		result.WorldLandmarks = append(result.WorldLandmarks, WorldFromImage(h))
	}
	m.SetResult(result)
}

// SetResult sets the exact result returned by Detect.
func (m *MockDetector) SetResult(result *Result) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.result = result
}

// SetError sets the error that will be returned by Detect.
func (m *MockDetector) SetError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.err = err
}

// Calls returns how many times Detect has been called.
func (m *MockDetector) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

// Detect returns the pre-configured result or error.
func (m *MockDetector) Detect(frame *gocv.Mat) (*Result, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.calls++
	if m.err != nil {
		return nil, m.err
	}
	if m.result == nil {
		return &Result{}, nil
	}
	return m.result, nil
}

// Close is a no-op for the mock detector.
func (m *MockDetector) Close() error {
	return nil
}

// WorldFromImage approximates world landmarks for an image-space hand:
// coordinates centered on the middle finger MCP and scaled to meters for a
// hand spanning roughly a fifth of the frame.
func WorldFromImage(h HandLandmarks) HandLandmarks {
	const metersPerUnit = 0.4

	world := HandLandmarks{Handedness: h.Handedness, Score: h.Score}
	center := h.Points[MiddleMCP]
	for i, p := range h.Points {
		world.Points[i] = Point3D{
			X: (p.X - center.X) * metersPerUnit,
			Y: (p.Y - center.Y) * metersPerUnit,
			Z: (p.Z - center.Z) * metersPerUnit,
		}
	}
	return world
}

// FistLandmarks returns a closed fist with the thumb resting against the side
// of the index finger, the handshape of the letter A.
func FistLandmarks() HandLandmarks {
	landmarks := HandLandmarks{
		Handedness: "Right",
		Score:      0.95,
	}

	landmarks.Points[Wrist] = Point3D{X: 0.5, Y: 0.8, Z: 0.0}

	// Thumb alongside the index knuckle
	landmarks.Points[ThumbCMC] = Point3D{X: 0.55, Y: 0.76, Z: -0.01}
	landmarks.Points[ThumbMCP] = Point3D{X: 0.59, Y: 0.71, Z: -0.02}
	landmarks.Points[ThumbIP] = Point3D{X: 0.60, Y: 0.66, Z: -0.03}
	landmarks.Points[ThumbTip] = Point3D{X: 0.60, Y: 0.62, Z: -0.03}

	// Fingers curled into the palm
	landmarks.Points[IndexMCP] = Point3D{X: 0.55, Y: 0.66, Z: -0.02}
	landmarks.Points[IndexPIP] = Point3D{X: 0.56, Y: 0.62, Z: -0.06}
	landmarks.Points[IndexDIP] = Point3D{X: 0.55, Y: 0.66, Z: -0.07}
	landmarks.Points[IndexTip] = Point3D{X: 0.54, Y: 0.69, Z: -0.05}

	landmarks.Points[MiddleMCP] = Point3D{X: 0.50, Y: 0.65, Z: -0.02}
	landmarks.Points[MiddlePIP] = Point3D{X: 0.50, Y: 0.61, Z: -0.06}
	landmarks.Points[MiddleDIP] = Point3D{X: 0.50, Y: 0.65, Z: -0.07}
	landmarks.Points[MiddleTip] = Point3D{X: 0.50, Y: 0.68, Z: -0.05}

	landmarks.Points[RingMCP] = Point3D{X: 0.45, Y: 0.66, Z: -0.02}
	landmarks.Points[RingPIP] = Point3D{X: 0.45, Y: 0.62, Z: -0.06}
	landmarks.Points[RingDIP] = Point3D{X: 0.45, Y: 0.66, Z: -0.07}
	landmarks.Points[RingTip] = Point3D{X: 0.46, Y: 0.69, Z: -0.05}

	landmarks.Points[PinkyMCP] = Point3D{X: 0.41, Y: 0.69, Z: -0.02}
	landmarks.Points[PinkyPIP] = Point3D{X: 0.41, Y: 0.66, Z: -0.05}
	landmarks.Points[PinkyDIP] = Point3D{X: 0.41, Y: 0.69, Z: -0.06}
	landmarks.Points[PinkyTip] = Point3D{X: 0.42, Y: 0.71, Z: -0.04}

	return landmarks
}

// OpenPalmLandmarks returns a flat hand with all fingers extended, the
// handshape of the letter B with the thumb out.
func OpenPalmLandmarks() HandLandmarks {
	landmarks := HandLandmarks{
		Handedness: "Right",
		Score:      0.95,
	}

	landmarks.Points[Wrist] = Point3D{X: 0.5, Y: 0.8, Z: 0.0}

	landmarks.Points[ThumbCMC] = Point3D{X: 0.55, Y: 0.75, Z: 0.02}
	landmarks.Points[ThumbMCP] = Point3D{X: 0.62, Y: 0.70, Z: 0.03}
	landmarks.Points[ThumbIP] = Point3D{X: 0.68, Y: 0.65, Z: 0.03}
	landmarks.Points[ThumbTip] = Point3D{X: 0.73, Y: 0.60, Z: 0.03}

	landmarks.Points[IndexMCP] = Point3D{X: 0.55, Y: 0.68, Z: 0.0}
	landmarks.Points[IndexPIP] = Point3D{X: 0.57, Y: 0.55, Z: 0.0}
	landmarks.Points[IndexDIP] = Point3D{X: 0.58, Y: 0.45, Z: 0.0}
	landmarks.Points[IndexTip] = Point3D{X: 0.58, Y: 0.35, Z: 0.0}

	landmarks.Points[MiddleMCP] = Point3D{X: 0.50, Y: 0.66, Z: 0.0}
	landmarks.Points[MiddlePIP] = Point3D{X: 0.50, Y: 0.52, Z: 0.0}
	landmarks.Points[MiddleDIP] = Point3D{X: 0.50, Y: 0.40, Z: 0.0}
	landmarks.Points[MiddleTip] = Point3D{X: 0.50, Y: 0.28, Z: 0.0}

	landmarks.Points[RingMCP] = Point3D{X: 0.45, Y: 0.68, Z: 0.0}
	landmarks.Points[RingPIP] = Point3D{X: 0.43, Y: 0.55, Z: 0.0}
	landmarks.Points[RingDIP] = Point3D{X: 0.42, Y: 0.45, Z: 0.0}
	landmarks.Points[RingTip] = Point3D{X: 0.42, Y: 0.35, Z: 0.0}

	landmarks.Points[PinkyMCP] = Point3D{X: 0.40, Y: 0.70, Z: 0.0}
	landmarks.Points[PinkyPIP] = Point3D{X: 0.37, Y: 0.60, Z: 0.0}
	landmarks.Points[PinkyDIP] = Point3D{X: 0.35, Y: 0.50, Z: 0.0}
	landmarks.Points[PinkyTip] = Point3D{X: 0.34, Y: 0.42, Z: 0.0}

	return landmarks
}

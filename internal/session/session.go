// Package session runs one fingerspelling demo: it ticks the camera at a
// fixed cadence, detects hands, draws the overlay, scores the letter and
// publishes the result.
package session

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"
	"gocv.io/x/gocv"

	"github.com/ayusman/fingerspell/internal/capture"
	"github.com/ayusman/fingerspell/internal/detector"
	"github.com/ayusman/fingerspell/internal/display"
	"github.com/ayusman/fingerspell/internal/encoder"
	"github.com/ayusman/fingerspell/internal/prediction"
	"github.com/ayusman/fingerspell/internal/render"
)

var (
	// ErrClosed is returned when using a session after Close.
	ErrClosed = errors.New("session is closed")

	// ErrNoCamera is returned when a session is created without a camera.
	ErrNoCamera = errors.New("session requires a camera")
)

// Config holds the collaborators of a session.
type Config struct {
	Camera   capture.Camera
	Detector detector.Detector
	Scorer   *prediction.Scorer
	Renderer *render.Renderer
	Sink     display.Sink
	Interval time.Duration
}

// Stats summarizes a session.
type Stats struct {
	ID        uuid.UUID `json:"id"`
	StartedAt time.Time `json:"started_at"`
	Ticks     int64     `json:"ticks"`
	Skipped   int64     `json:"skipped"`
	Running   bool      `json:"running"`
}

// Session owns the camera, the drawing surface and the frame cycle for one
// demo run. After Close nothing it owns is touched again.
type Session struct {
	id      uuid.UUID
	config  Config
	cycle   *Cycle
	started time.Time

	mu      sync.Mutex
	surface *Surface
	closed  bool
}

// New creates a session. The camera is opened by Start.
func New(config Config) (*Session, error) {
	if config.Camera == nil {
		return nil, ErrNoCamera
	}
	if config.Scorer == nil {
		config.Scorer = prediction.NewScorer(nil)
	}
	if config.Renderer == nil {
		config.Renderer = render.NewRenderer()
	}
	if config.Sink == nil {
		config.Sink = display.Multi()
	}

	s := &Session{
		id:      uuid.New(),
		config:  config,
		surface: NewSurface(),
		started: time.Now(),
	}
	s.cycle = NewCycle(config.Interval, s.tick)
	return s, nil
}

// ID returns the session identifier.
func (s *Session) ID() uuid.UUID {
	return s.id
}

// Start opens the camera if needed and starts the frame cycle. Calling
// Start on a running session restarts the cycle.
func (s *Session) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrClosed
	}

	if !s.config.Camera.IsOpen() {
		if err := s.config.Camera.Open(); err != nil {
			return fmt.Errorf("opening camera: %w", err)
		}
	}

	s.cycle.Start(ctx)
	log.Printf("Session %s started", s.id)
	return nil
}

// Close stops the cycle, releases the camera and the surface, and resets
// the displays to the placeholder. It is safe to call more than once.
func (s *Session) Close() error {
	s.cycle.Stop()

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}
	s.closed = true

	var err error
	if cerr := s.config.Camera.Close(); cerr != nil {
		err = fmt.Errorf("closing camera: %w", cerr)
	}
	s.surface.Close()
	s.config.Sink.Show(display.Placeholder())

	log.Printf("Session %s stopped after %d ticks (%d skipped)", s.id, s.cycle.Ticks(), s.cycle.Skipped())
	return err
}

// Closed reports whether Close has been called.
func (s *Session) Closed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

// Stats returns the current counters.
func (s *Session) Stats() Stats {
	return Stats{
		ID:        s.id,
		StartedAt: s.started,
		Ticks:     s.cycle.Ticks(),
		Skipped:   s.cycle.Skipped(),
		Running:   s.cycle.Running(),
	}
}

// Snapshot returns a copy of the annotated surface. The caller owns the
// Mat. ok is false before the first frame and after Close.
func (s *Session) Snapshot() (mat gocv.Mat, ok bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed || s.surface.Empty() {
		return gocv.Mat{}, false
	}
	return s.surface.Pixels(), true
}

// tick processes one camera frame.
func (s *Session) tick(ctx context.Context) {
	if !s.ready() {
		return
	}

	frame, err := s.config.Camera.ReadFrame()
	if err != nil {
		return
	}
	defer frame.Close()

	pixels, ok := s.drawFrame(frame)
	if !ok {
		return
	}
	defer pixels.Close()

	result, err := s.config.Detector.Detect(&pixels)
	if err != nil {
		log.Printf("Error detecting hands: %v", err)
		s.publish(display.Failure())
		return
	}

	if !s.drawOverlay(frame, result) {
		return
	}

	if ctx.Err() != nil {
		return
	}
	s.publish(s.score(result))
}

// ready checks the tick precondition: camera delivering frames and a
// detector loaded.
func (s *Session) ready() bool {
	return s.config.Detector != nil && s.config.Camera.Ready()
}

// drawFrame paints frame on the surface and returns a copy of the pixels
// for detection.
func (s *Session) drawFrame(frame *gocv.Mat) (gocv.Mat, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return gocv.Mat{}, false
	}
	s.surface.Draw(frame)
	return s.surface.Pixels(), true
}

// drawOverlay repaints the frame and draws the detected skeletons on top.
func (s *Session) drawOverlay(frame *gocv.Mat, result *detector.Result) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return false
	}
	s.surface.Draw(frame)
	if result.NumHands() > 0 {
		s.config.Renderer.Render(s.surface.Canvas(), result.Landmarks)
	}
	return true
}

// score classifies the world landmarks of result.
func (s *Session) score(result *detector.Result) display.Update {
	if result == nil || len(result.WorldLandmarks) == 0 {
		return display.Placeholder()
	}

	hands := encoder.FromSlice(result.WorldLandmarks)
	p := s.config.Scorer.Score(encoder.Encode(hands))
	return display.FromPrediction(p, encoder.Count(hands))
}

// publish sends u to the sink unless the session has been closed.
func (s *Session) publish(u display.Update) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return
	}
	s.config.Sink.Show(u)
}

// Package app wires the fingerspelling demo together: model loading,
// session lifecycle, display state and history.
package app

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"gocv.io/x/gocv"
	"golang.org/x/sync/errgroup"

	"github.com/ayusman/fingerspell/internal/capture"
	"github.com/ayusman/fingerspell/internal/classifier"
	"github.com/ayusman/fingerspell/internal/config"
	"github.com/ayusman/fingerspell/internal/detector"
	"github.com/ayusman/fingerspell/internal/display"
	"github.com/ayusman/fingerspell/internal/prediction"
	"github.com/ayusman/fingerspell/internal/render"
	"github.com/ayusman/fingerspell/internal/session"
	"github.com/ayusman/fingerspell/internal/store"
)

// ErrNotReady is returned when starting the demo before the hand model has
// loaded.
var ErrNotReady = errors.New("hand landmark model is not loaded")

// DetectorLoader opens the hand landmark provider.
type DetectorLoader func(config detector.Config) (detector.Detector, error)

// ClassifierLoader opens the letter model from the first usable path.
type ClassifierLoader func(paths []string) (classifier.Classifier, error)

// Config holds configuration options for the application.
type Config struct {
	Settings config.Config
	Store    *store.Store
	Board    *display.Board

	// Camera overrides the capture device built from Settings.
	Camera capture.Camera

	LoadDetector   DetectorLoader
	LoadClassifier ClassifierLoader
}

// Status describes the application for the UI.
type Status struct {
	Ready    bool           `json:"ready"`
	HasModel bool           `json:"has_model"`
	Display  display.State  `json:"display"`
	Session  *session.Stats `json:"session,omitempty"`
}

// App owns the loaded models and at most one running demo session.
type App struct {
	config   Config
	board    *display.Board
	camera   capture.Camera
	renderer *render.Renderer

	ctx    context.Context
	cancel context.CancelFunc

	mu         sync.RWMutex
	detector   detector.Detector
	classifier classifier.Classifier
	scorer     *prediction.Scorer
	ready      bool
	session    *session.Session
	history    *historySink
}

// New creates a new App instance with the given configuration. Models are
// loaded by Init.
func New(config Config) *App {
	if config.Board == nil {
		config.Board = display.NewBoard()
	}
	if config.LoadDetector == nil {
		config.LoadDetector = loadMediaPipe
	}
	if config.LoadClassifier == nil {
		config.LoadClassifier = loadDNN
	}

	camera := config.Camera
	if camera == nil {
		cam := config.Settings.Camera
		camera = capture.NewCameraWithSize(cam.Device, cam.Width, cam.Height)
	}
	camera.SetFPS(config.Settings.Camera.FPS)

	ctx, cancel := context.WithCancel(context.Background())
	return &App{
		config:   config,
		board:    config.Board,
		camera:   camera,
		renderer: render.NewRenderer(),
		ctx:      ctx,
		cancel:   cancel,
		scorer:   prediction.NewScorer(nil),
	}
}

func loadMediaPipe(config detector.Config) (detector.Detector, error) {
	d, err := detector.LoadMediaPipe(config)
	if err != nil {
		return nil, err
	}
	return d, nil
}

func loadDNN(paths []string) (classifier.Classifier, error) {
	c, err := classifier.Load(paths)
	if err != nil {
		return nil, err
	}
	return c, nil
}

// Init loads the hand landmark model and the letter classifier in
// parallel. A missing hand model is fatal; a missing classifier only means
// every prediction reads "No Model".
func (a *App) Init() error {
	a.board.Status(display.StatusInitializing)
	a.board.Status(display.StatusLoading)

	var (
		g   errgroup.Group
		det detector.Detector
		cls classifier.Classifier
	)

	g.Go(func() error {
		d, err := a.config.LoadDetector(a.config.Settings.DetectorSettings())
		if err != nil {
			return fmt.Errorf("loading hand landmarker: %w", err)
		}
		det = d
		return nil
	})

	g.Go(func() error {
		c, err := a.config.LoadClassifier(a.config.Settings.Classifier.ModelPaths)
		if err != nil {
			log.Printf("Warning: letter classifier not loaded: %v", err)
			return nil
		}
		cls = c
		return nil
	})

	if err := g.Wait(); err != nil {
		if cls != nil {
			cls.Close()
		}
		a.board.Status(display.StatusError(err.Error()))
		log.Printf("Initialization failed: %v", err)
		return err
	}

	a.mu.Lock()
	a.detector = det
	a.classifier = cls
	a.scorer = prediction.NewScorer(cls)
	a.ready = true
	a.mu.Unlock()

	a.board.Status(display.StatusReadyToStart)
	log.Printf("Models loaded (classifier available: %t)", cls != nil)
	return nil
}

// SetClassifier replaces the letter classifier.
func (a *App) SetClassifier(c classifier.Classifier) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.classifier = c
	a.scorer = prediction.NewScorer(c)
}

// Ready reports whether the demo can be started.
func (a *App) Ready() bool {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.ready
}

// Running reports whether a demo session is active.
func (a *App) Running() bool {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.session != nil
}

// StartDemo opens the camera and starts the frame cycle. If a session is
// already running its cycle is restarted.
func (a *App) StartDemo() error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if !a.ready {
		return ErrNotReady
	}

	if a.session != nil {
		return a.session.Start(a.ctx)
	}

	a.board.Status(display.StatusWebcam)

	history := newHistorySink(a.config.Store)
	sess, err := session.New(session.Config{
		Camera:   a.camera,
		Detector: a.detector,
		Scorer:   a.scorer,
		Renderer: a.renderer,
		Sink:     display.Multi(a.board, history),
		Interval: a.config.Settings.Interval,
	})
	if err != nil {
		a.board.Status(display.StatusError(err.Error()))
		return err
	}

	history.begin(sess.ID().String(), time.Now())

	if err := sess.Start(a.ctx); err != nil {
		sess.Close()
		history.end(sess.Stats())
		a.board.Status(display.StatusError(err.Error()))
		return fmt.Errorf("starting demo: %w", err)
	}

	a.session = sess
	a.history = history
	a.board.SetRunning(true)
	a.board.Status(display.StatusReady)
	return nil
}

// ExitDemo stops the running session, releases the camera and resets the
// displays. It is a no-op when nothing is running.
func (a *App) ExitDemo() error {
	a.mu.Lock()
	defer a.mu.Unlock()

	sess := a.session
	if sess == nil {
		return nil
	}
	a.session = nil

	err := sess.Close()
	if err != nil {
		log.Printf("Error closing session: %v", err)
	}
	a.history.end(sess.Stats())
	a.history = nil

	a.board.SetRunning(false)
	a.board.Status(display.StatusReadyToStart)
	return err
}

// Close stops the demo and releases the models.
func (a *App) Close() error {
	err := a.ExitDemo()
	a.cancel()

	a.mu.Lock()
	defer a.mu.Unlock()

	if a.detector != nil {
		if derr := a.detector.Close(); derr != nil {
			log.Printf("Error closing detector: %v", derr)
		}
		a.detector = nil
	}
	if a.classifier != nil {
		if cerr := a.classifier.Close(); cerr != nil {
			log.Printf("Error closing classifier: %v", cerr)
		}
		a.classifier = nil
	}
	a.ready = false

	return err
}

// Snapshot returns a copy of the annotated frame of the running session.
// The caller owns the Mat.
func (a *App) Snapshot() (gocv.Mat, bool) {
	a.mu.RLock()
	sess := a.session
	a.mu.RUnlock()

	if sess == nil {
		return gocv.Mat{}, false
	}
	return sess.Snapshot()
}

// Status reports readiness, display state and session counters.
func (a *App) Status() Status {
	a.mu.RLock()
	defer a.mu.RUnlock()

	st := Status{
		Ready:    a.ready,
		HasModel: a.scorer.HasModel(),
		Display:  a.board.State(),
	}
	if a.session != nil {
		stats := a.session.Stats()
		st.Session = &stats
	}
	return st
}

// Board returns the display state shared with the UI.
func (a *App) Board() *display.Board {
	return a.board
}

// Store returns the history store, which may be nil.
func (a *App) Store() *store.Store {
	return a.config.Store
}

// Camera returns the capture device.
func (a *App) Camera() capture.Camera {
	return a.camera
}

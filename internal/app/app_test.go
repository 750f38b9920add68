package app

import (
	"errors"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gocv.io/x/gocv"

	"github.com/ayusman/fingerspell/internal/capture"
	"github.com/ayusman/fingerspell/internal/classifier"
	"github.com/ayusman/fingerspell/internal/config"
	"github.com/ayusman/fingerspell/internal/detector"
	"github.com/ayusman/fingerspell/internal/display"
	"github.com/ayusman/fingerspell/internal/prediction"
	"github.com/ayusman/fingerspell/internal/store"
	"github.com/ayusman/fingerspell/internal/tensor"
)

const (
	waitFor   = 2 * time.Second
	pollEvery = 5 * time.Millisecond
)

// closeTracker wraps a classifier and records Close.
type closeTracker struct {
	classifier.Classifier
	closed atomic.Bool
}

func (c *closeTracker) Close() error {
	c.closed.Store(true)
	return nil
}

func letterA() classifier.Classifier {
	scores := make([]float32, len(prediction.Alphabet))
	scores[0] = 8
	return classifier.Constant(scores...)
}

type harness struct {
	app      *App
	detector *detector.MockDetector
	camera   *capture.MockCamera
	store    *store.Store
}

func newHarness(t *testing.T, cls classifier.Classifier, clsErr, detErr error) *harness {
	t.Helper()

	frame := gocv.NewMatWithSize(480, 640, gocv.MatTypeCV8UC3)
	t.Cleanup(func() { frame.Close() })

	st, err := store.New(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })

	settings := config.Default()
	settings.Interval = 5 * time.Millisecond
	settings.Camera.FPS = 24

	det := detector.NewMockDetector()
	cam := capture.NewMockCamera([]*gocv.Mat{&frame}, true)

	a := New(Config{
		Settings: settings,
		Store:    st,
		Camera:   cam,
		LoadDetector: func(detector.Config) (detector.Detector, error) {
			if detErr != nil {
				return nil, detErr
			}
			return det, nil
		},
		LoadClassifier: func([]string) (classifier.Classifier, error) {
			if clsErr != nil {
				return nil, clsErr
			}
			return cls, nil
		},
	})
	t.Cleanup(func() { a.Close() })

	return &harness{app: a, detector: det, camera: cam, store: st}
}

func TestNew_AppliesCameraFPS(t *testing.T) {
	h := newHarness(t, letterA(), nil, nil)
	assert.Equal(t, 24, h.camera.FPS())
}

func TestInit_LoadsBothModels(t *testing.T) {
	h := newHarness(t, letterA(), nil, nil)

	require.NoError(t, h.app.Init())

	st := h.app.Status()
	assert.True(t, st.Ready)
	assert.True(t, st.HasModel)
	assert.Equal(t, display.StatusReadyToStart, st.Display.Status)
	assert.Nil(t, st.Session)
}

func TestInit_MissingClassifierIsNotFatal(t *testing.T) {
	h := newHarness(t, nil, classifier.ErrNoModel, nil)

	require.NoError(t, h.app.Init())

	assert.True(t, h.app.Ready())
	assert.False(t, h.app.Status().HasModel)
	assert.Equal(t, display.StatusReadyToStart, h.app.Board().State().Status)
}

func TestInit_MissingHandModelHaltsReadiness(t *testing.T) {
	tracker := &closeTracker{Classifier: letterA()}
	h := newHarness(t, tracker, nil, detector.ErrModelUnavailable)

	err := h.app.Init()
	require.ErrorIs(t, err, detector.ErrModelUnavailable)

	assert.False(t, h.app.Ready())
	assert.Contains(t, h.app.Board().State().Status, "Error: ")
	assert.True(t, tracker.closed.Load(), "classifier loaded alongside a failed detector is released")

	assert.ErrorIs(t, h.app.StartDemo(), ErrNotReady)
	assert.False(t, h.app.Running())
}

func TestStartAndExitDemo(t *testing.T) {
	h := newHarness(t, letterA(), nil, nil)
	require.NoError(t, h.app.Init())
	h.detector.SetHands([]detector.HandLandmarks{detector.FistLandmarks()})

	require.NoError(t, h.app.StartDemo())
	assert.True(t, h.app.Running())
	assert.True(t, h.camera.IsOpen())

	board := h.app.Board()
	assert.Equal(t, display.StatusReady, board.State().Status)
	assert.True(t, board.State().Running)

	assert.Eventually(t, func() bool { return board.State().Label == "A" }, waitFor, pollEvery)
	assert.Equal(t, "99.2%", board.State().Confidence)

	first := h.app.Status().Session
	require.NotNil(t, first)

	// Starting again restarts the cycle of the same session.
	require.NoError(t, h.app.StartDemo())
	assert.Equal(t, first.ID, h.app.Status().Session.ID)

	snap, ok := h.app.Snapshot()
	require.True(t, ok)
	assert.Equal(t, 640, snap.Cols())
	snap.Close()

	require.NoError(t, h.app.ExitDemo())
	assert.False(t, h.app.Running())
	assert.False(t, h.camera.IsOpen())

	state := board.State()
	assert.True(t, state.IsPlaceholder())
	assert.False(t, state.Running)
	assert.Equal(t, display.StatusReadyToStart, state.Status)

	_, ok = h.app.Snapshot()
	assert.False(t, ok)

	sessions, err := h.store.Sessions().List(0)
	require.NoError(t, err)
	require.Len(t, sessions, 1)
	assert.Equal(t, first.ID.String(), sessions[0].ID)
	assert.NotNil(t, sessions[0].EndedAt)
	assert.Positive(t, sessions[0].Ticks)

	transcript, err := h.store.Predictions().Transcript(sessions[0].ID)
	require.NoError(t, err)
	assert.Equal(t, "A", transcript, "a steady letter is recorded once")
}

func TestStartDemo_CameraFailure(t *testing.T) {
	h := newHarness(t, letterA(), nil, nil)
	require.NoError(t, h.app.Init())

	failing := &failingCamera{MockCamera: h.camera}
	h.app.camera = failing

	err := h.app.StartDemo()
	require.Error(t, err)
	assert.False(t, h.app.Running())
	assert.Contains(t, h.app.Board().State().Status, "Error: ")
}

type failingCamera struct {
	*capture.MockCamera
}

func (c *failingCamera) Open() error { return errors.New("device busy") }

func TestExitDemo_NotRunning(t *testing.T) {
	h := newHarness(t, letterA(), nil, nil)
	assert.NoError(t, h.app.ExitDemo())
}

func TestClose_ReleasesModels(t *testing.T) {
	tracker := &closeTracker{Classifier: letterA()}
	h := newHarness(t, tracker, nil, nil)
	require.NoError(t, h.app.Init())
	require.NoError(t, h.app.StartDemo())

	require.NoError(t, h.app.Close())

	assert.True(t, tracker.closed.Load())
	assert.False(t, h.app.Ready())
	assert.False(t, h.app.Running())
}

func TestSetClassifier(t *testing.T) {
	h := newHarness(t, nil, classifier.ErrNoModel, nil)
	require.NoError(t, h.app.Init())
	assert.False(t, h.app.Status().HasModel)

	h.app.SetClassifier(classifier.Func(func(in tensor.Tensor) (tensor.Tensor, error) {
		return tensor.New(1, 26), nil
	}))
	assert.True(t, h.app.Status().HasModel)
}

func TestHistorySink_RecordsLetterChanges(t *testing.T) {
	st, err := store.New(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	defer st.Close()

	h := newHistorySink(st)
	h.begin("run-1", time.Now())

	letter := func(l string) display.Update {
		return display.FromPrediction(prediction.Prediction{Label: l, Confidence: 0.9, DisplayConfidence: "90.0"}, 1)
	}

	for _, u := range []display.Update{
		letter("H"),
		letter("H"),
		display.Placeholder(),
		letter("H"),
		letter("I"),
		display.FromPrediction(prediction.NoModel(), 1),
		display.Failure(),
		letter("I"),
	} {
		h.Show(u)
	}

	transcript, err := st.Predictions().Transcript("run-1")
	require.NoError(t, err)
	assert.Equal(t, "HHII", transcript)
}

func TestHistorySink_NilStore(t *testing.T) {
	h := newHistorySink(nil)
	h.begin("run-1", time.Now())

	assert.NotPanics(t, func() {
		h.Show(display.Placeholder())
		h.Status(display.StatusReady)
	})
}

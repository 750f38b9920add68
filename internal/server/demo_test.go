package server

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"image"
	_ "image/jpeg"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/chai2010/webp"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gocv.io/x/gocv"

	"github.com/ayusman/fingerspell/internal/app"
	"github.com/ayusman/fingerspell/internal/display"
	"github.com/ayusman/fingerspell/internal/prediction"
)

// fakeDemo records control calls and serves a fixed frame.
type fakeDemo struct {
	mu       sync.Mutex
	board    *display.Board
	frame    *gocv.Mat
	startErr error
	started  int
	exited   int
}

func newFakeDemo(t *testing.T, withFrame bool) *fakeDemo {
	d := &fakeDemo{board: display.NewBoard()}
	if withFrame {
		frame := gocv.NewMatWithSize(480, 640, gocv.MatTypeCV8UC3)
		t.Cleanup(func() { frame.Close() })
		d.frame = &frame
	}
	return d
}

func (d *fakeDemo) StartDemo() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.startErr != nil {
		return d.startErr
	}
	d.started++
	d.board.SetRunning(true)
	return nil
}

func (d *fakeDemo) ExitDemo() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.exited++
	d.board.SetRunning(false)
	return nil
}

func (d *fakeDemo) Status() app.Status {
	return app.Status{Ready: true, Display: d.board.State()}
}

func (d *fakeDemo) Snapshot() (gocv.Mat, bool) {
	if d.frame == nil {
		return gocv.Mat{}, false
	}
	return d.frame.Clone(), true
}

func (d *fakeDemo) Board() *display.Board {
	return d.board
}

func TestStatusHandler(t *testing.T) {
	s := New(Config{Demo: newFakeDemo(t, false)})

	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/status", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var status app.Status
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&status))
	assert.True(t, status.Ready)
	assert.Equal(t, display.PlaceholderLabel, status.Display.Label)
	assert.Equal(t, display.PlaceholderConfidence, status.Display.Confidence)

	rec = httptest.NewRecorder()
	s.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/status", nil))
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestControlHandler(t *testing.T) {
	tests := []struct {
		name        string
		method      string
		origin      string
		startErr    error
		wantCode    int
		wantStarted int
		wantExited  int
	}{
		{name: "start", method: http.MethodPost, wantCode: http.StatusOK, wantStarted: 1},
		{name: "start before models load", method: http.MethodPost, startErr: app.ErrNotReady, wantCode: http.StatusConflict},
		{name: "start fails", method: http.MethodPost, startErr: errors.New("camera busy"), wantCode: http.StatusInternalServerError},
		{name: "exit", method: http.MethodDelete, wantCode: http.StatusOK, wantExited: 1},
		{name: "wrong method", method: http.MethodPut, wantCode: http.StatusMethodNotAllowed},
		{name: "start from own page", method: http.MethodPost, origin: "http://example.com", wantCode: http.StatusOK, wantStarted: 1},
		{name: "start from foreign page", method: http.MethodPost, origin: "http://evil.test", wantCode: http.StatusForbidden},
		{name: "exit from foreign page", method: http.MethodDelete, origin: "http://evil.test", wantCode: http.StatusForbidden},
		{name: "malformed origin", method: http.MethodPost, origin: "://bad", wantCode: http.StatusForbidden},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			demo := newFakeDemo(t, false)
			demo.startErr = tt.startErr
			s := New(Config{Demo: demo})

			req := httptest.NewRequest(tt.method, "/api/session", nil)
			if tt.origin != "" {
				req.Header.Set("Origin", tt.origin)
			}

			rec := httptest.NewRecorder()
			s.ServeHTTP(rec, req)

			assert.Equal(t, tt.wantCode, rec.Code)
			assert.Equal(t, tt.wantStarted, demo.started)
			assert.Equal(t, tt.wantExited, demo.exited)
		})
	}
}

func TestSnapshotHandler(t *testing.T) {
	s := New(Config{Demo: newFakeDemo(t, true)})

	tests := []struct {
		name       string
		query      string
		wantType   string
		wantW      int
		wantH      int
		decodeWebP bool
	}{
		{name: "default jpeg", query: "", wantType: "image/jpeg", wantW: 640, wantH: 480},
		{name: "scaled by width", query: "?width=320", wantType: "image/jpeg", wantW: 320, wantH: 240},
		{name: "fit in box", query: "?width=200&height=200", wantType: "image/jpeg", wantW: 200, wantH: 150},
		{name: "no upscaling", query: "?width=1280", wantType: "image/jpeg", wantW: 640, wantH: 480},
		{name: "webp", query: "?format=webp&width=160", wantType: "image/webp", wantW: 160, wantH: 120, decodeWebP: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			s.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/snapshot"+tt.query, nil))

			require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
			assert.Equal(t, tt.wantType, rec.Header().Get("Content-Type"))

			var cfg image.Config
			var err error
			if tt.decodeWebP {
				cfg, err = webp.DecodeConfig(bytes.NewReader(rec.Body.Bytes()))
			} else {
				cfg, _, err = image.DecodeConfig(bytes.NewReader(rec.Body.Bytes()))
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantW, cfg.Width)
			assert.Equal(t, tt.wantH, cfg.Height)
		})
	}
}

func TestSnapshotHandler_Errors(t *testing.T) {
	withFrame := New(Config{Demo: newFakeDemo(t, true)})
	noFrame := New(Config{Demo: newFakeDemo(t, false)})

	tests := []struct {
		name   string
		srv    *Server
		method string
		query  string
		want   int
	}{
		{"no frame yet", noFrame, http.MethodGet, "", http.StatusServiceUnavailable},
		{"bad width", withFrame, http.MethodGet, "?width=wide", http.StatusBadRequest},
		{"negative height", withFrame, http.MethodGet, "?height=-1", http.StatusBadRequest},
		{"unknown format", withFrame, http.MethodGet, "?format=gif", http.StatusBadRequest},
		{"wrong method", withFrame, http.MethodPost, "", http.StatusMethodNotAllowed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			tt.srv.ServeHTTP(rec, httptest.NewRequest(tt.method, "/api/snapshot"+tt.query, nil))
			assert.Equal(t, tt.want, rec.Code)
		})
	}
}

func TestStreamHandler(t *testing.T) {
	ts := httptest.NewServer(New(Config{Demo: newFakeDemo(t, true)}))
	defer ts.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, ts.URL+"/api/stream", nil)
	require.NoError(t, err)

	resp, err := ts.Client().Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.True(t, strings.HasPrefix(resp.Header.Get("Content-Type"), "multipart/x-mixed-replace"))

	reader := bufio.NewReader(resp.Body)
	boundary, err := reader.ReadString('\n')
	require.NoError(t, err)
	assert.Equal(t, "--frame\r\n", boundary)

	partType, err := reader.ReadString('\n')
	require.NoError(t, err)
	assert.Equal(t, "Content-Type: image/jpeg\r\n", partType)
}

func TestPredictionsHandler(t *testing.T) {
	demo := newFakeDemo(t, false)
	ts := httptest.NewServer(New(Config{Demo: demo}))
	defer ts.Close()

	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/api/predictions"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()

	conn.SetReadDeadline(time.Now().Add(5 * time.Second))

	var state display.State
	require.NoError(t, conn.ReadJSON(&state))
	assert.Equal(t, display.PlaceholderLabel, state.Label)

	demo.board.Show(display.FromPrediction(prediction.Prediction{Label: "Q", Confidence: 0.75, DisplayConfidence: "75.0"}, 1))

	require.NoError(t, conn.ReadJSON(&state))
	assert.Equal(t, "Q", state.Label)
	assert.Equal(t, "75.0%", state.Confidence)
	assert.Equal(t, 1, state.Hands)

	conn.Close()
	assert.Eventually(t, func() bool { return demo.board.Subscribers() == 0 }, 2*time.Second, 10*time.Millisecond)
}

func TestPredictionsHandler_RejectsForeignOrigin(t *testing.T) {
	demo := newFakeDemo(t, false)
	ts := httptest.NewServer(New(Config{Demo: demo}))
	defer ts.Close()

	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/api/predictions"

	header := http.Header{}
	header.Set("Origin", "http://evil.test")
	_, resp, err := websocket.DefaultDialer.Dial(url, header)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	assert.Zero(t, demo.board.Subscribers())

	// A page served by this host may connect.
	header.Set("Origin", ts.URL)
	conn, _, err := websocket.DefaultDialer.Dial(url, header)
	require.NoError(t, err)
	conn.Close()
}

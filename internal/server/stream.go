package server

import (
	"fmt"
	"net/http"
	"time"

	"gocv.io/x/gocv"
)

// FrameSource supplies annotated frames.
type FrameSource interface {
	Snapshot() (gocv.Mat, bool)
}

// StreamHandler serves MJPEG frames of the annotated surface.
type StreamHandler struct {
	source   FrameSource
	interval time.Duration
}

// NewStreamHandler creates a new StreamHandler with the given frame source.
func NewStreamHandler(source FrameSource) *StreamHandler {
	return &StreamHandler{
		source:   source,
		interval: 66 * time.Millisecond, // ~15 FPS
	}
}

// ServeHTTP streams MJPEG frames to connected clients.
func (h *StreamHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	w.Header().Set("Content-Type", "multipart/x-mixed-replace; boundary=frame")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	ticker := time.NewTicker(h.interval)
	defer ticker.Stop()

	for {
		select {
		case <-r.Context().Done():
			return
		case <-ticker.C:
		}

		frame, ok := h.source.Snapshot()
		if !ok {
			continue
		}

		buf, err := gocv.IMEncode(gocv.JPEGFileExt, frame)
		frame.Close()
		if err != nil {
			continue
		}

		fmt.Fprintf(w, "--frame\r\n")
		fmt.Fprintf(w, "Content-Type: image/jpeg\r\n")
		fmt.Fprintf(w, "Content-Length: %d\r\n\r\n", buf.Len())
		_, werr := w.Write(buf.GetBytes())
		fmt.Fprintf(w, "\r\n")
		buf.Close()
		if werr != nil {
			return
		}

		if f, ok := w.(http.Flusher); ok {
			f.Flush()
		}
	}
}

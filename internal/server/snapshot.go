package server

import (
	"bytes"
	"log"
	"net/http"
	"strconv"

	"github.com/chai2010/webp"
	"github.com/disintegration/imaging"

	"github.com/ayusman/fingerspell/internal/server/api"
)

const snapshotQuality = 85

// SnapshotHandler serves a single annotated frame as JPEG or WebP,
// optionally scaled down.
type SnapshotHandler struct {
	source FrameSource
}

// NewSnapshotHandler creates a new SnapshotHandler.
func NewSnapshotHandler(source FrameSource) *SnapshotHandler {
	return &SnapshotHandler{source: source}
}

// ServeHTTP handles GET /api/snapshot?width=&height=&format=jpeg|webp.
func (h *SnapshotHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	q := r.URL.Query()
	width, err := dimension(q.Get("width"))
	if err != nil {
		api.WriteError(w, http.StatusBadRequest, "Invalid width")
		return
	}
	height, err := dimension(q.Get("height"))
	if err != nil {
		api.WriteError(w, http.StatusBadRequest, "Invalid height")
		return
	}

	format := q.Get("format")
	if format == "" {
		format = "jpeg"
	}
	if format != "jpeg" && format != "webp" {
		api.WriteError(w, http.StatusBadRequest, "Unsupported format")
		return
	}

	frame, ok := h.source.Snapshot()
	if !ok {
		api.WriteError(w, http.StatusServiceUnavailable, "No frame available")
		return
	}
	img, err := frame.ToImage()
	frame.Close()
	if err != nil {
		log.Printf("Error converting frame: %v", err)
		api.WriteError(w, http.StatusInternalServerError, "Failed to convert frame")
		return
	}

	if width > 0 || height > 0 {
		b := img.Bounds()
		if width == 0 {
			width = b.Dx()
		}
		if height == 0 {
			height = b.Dy()
		}
		img = imaging.Fit(img, width, height, imaging.Lanczos)
	}

	var buf bytes.Buffer
	switch format {
	case "webp":
		err = webp.Encode(&buf, img, &webp.Options{Quality: snapshotQuality})
		w.Header().Set("Content-Type", "image/webp")
	default:
		err = imaging.Encode(&buf, img, imaging.JPEG, imaging.JPEGQuality(snapshotQuality))
		w.Header().Set("Content-Type", "image/jpeg")
	}
	if err != nil {
		w.Header().Del("Content-Type")
		log.Printf("Error encoding snapshot: %v", err)
		api.WriteError(w, http.StatusInternalServerError, "Failed to encode snapshot")
		return
	}

	w.Header().Set("Cache-Control", "no-cache")
	w.Write(buf.Bytes())
}

// dimension parses an optional non-negative pixel count.
func dimension(v string) (int, error) {
	if v == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, err
	}
	if n < 0 {
		return 0, strconv.ErrRange
	}
	return n, nil
}

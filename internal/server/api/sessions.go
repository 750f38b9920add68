package api

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/ayusman/fingerspell/internal/store"
)

// SessionHandler serves the recorded session history.
type SessionHandler struct {
	store *store.Store
}

// NewSessionHandler creates a new SessionHandler with the given store.
func NewSessionHandler(s *store.Store) *SessionHandler {
	return &SessionHandler{store: s}
}

// ServeHTTP routes /api/sessions, /api/sessions/{id} and
// /api/sessions/{id}/predictions.
func (h *SessionHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	path := strings.TrimPrefix(r.URL.Path, "/api/sessions")
	path = strings.Trim(path, "/")

	if path == "" {
		if r.Method != http.MethodGet {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}
		h.list(w, r)
		return
	}

	id, rest, _ := strings.Cut(path, "/")
	switch {
	case rest == "" && r.Method == http.MethodGet:
		h.get(w, r, id)
	case rest == "" && r.Method == http.MethodDelete:
		h.delete(w, r, id)
	case rest == "predictions" && r.Method == http.MethodGet:
		h.predictions(w, r, id)
	case rest == "" || rest == "predictions":
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	default:
		http.NotFound(w, r)
	}
}

type sessionResponse struct {
	ID        string `json:"id"`
	StartedAt string `json:"started_at"`
	EndedAt   string `json:"ended_at,omitempty"`
	Ticks     int64  `json:"ticks"`
	Skipped   int64  `json:"skipped"`
	Letters   int    `json:"letters"`
}

type sessionDetailResponse struct {
	sessionResponse
	Transcript string         `json:"transcript"`
	Counts     map[string]int `json:"counts"`
}

type listSessionsResponse struct {
	Sessions []sessionResponse `json:"sessions"`
}

type predictionResponse struct {
	Label      string  `json:"label"`
	Confidence float64 `json:"confidence"`
	Hands      int     `json:"hands"`
	CreatedAt  string  `json:"created_at"`
}

type listPredictionsResponse struct {
	Predictions []predictionResponse `json:"predictions"`
}

func toSessionResponse(s *store.Session) sessionResponse {
	resp := sessionResponse{
		ID:        s.ID,
		StartedAt: s.StartedAt.Format(timeFormat),
		Ticks:     s.Ticks,
		Skipped:   s.Skipped,
		Letters:   s.Letters,
	}
	if s.EndedAt != nil {
		resp.EndedAt = s.EndedAt.Format(timeFormat)
	}
	return resp
}

// list handles GET /api/sessions?limit=N.
func (h *SessionHandler) list(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			writeError(w, http.StatusBadRequest, "Invalid limit")
			return
		}
		limit = n
	}

	sessions, err := h.store.Sessions().List(limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list sessions")
		return
	}

	response := listSessionsResponse{
		Sessions: make([]sessionResponse, 0, len(sessions)),
	}
	for _, s := range sessions {
		response.Sessions = append(response.Sessions, toSessionResponse(s))
	}

	writeJSON(w, http.StatusOK, response)
}

// get handles GET /api/sessions/{id}.
func (h *SessionHandler) get(w http.ResponseWriter, r *http.Request, id string) {
	sess, err := h.store.Sessions().GetByID(id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "Session not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "Failed to get session")
		return
	}

	transcript, err := h.store.Predictions().Transcript(id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to load transcript")
		return
	}

	counts, err := h.store.Predictions().LetterCounts(id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to count letters")
		return
	}

	writeJSON(w, http.StatusOK, sessionDetailResponse{
		sessionResponse: toSessionResponse(sess),
		Transcript:      transcript,
		Counts:          counts,
	})
}

// predictions handles GET /api/sessions/{id}/predictions.
func (h *SessionHandler) predictions(w http.ResponseWriter, r *http.Request, id string) {
	if _, err := h.store.Sessions().GetByID(id); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "Session not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "Failed to get session")
		return
	}

	predictions, err := h.store.Predictions().ListBySession(id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list predictions")
		return
	}

	response := listPredictionsResponse{
		Predictions: make([]predictionResponse, 0, len(predictions)),
	}
	for _, p := range predictions {
		response.Predictions = append(response.Predictions, predictionResponse{
			Label:      p.Label,
			Confidence: p.Confidence,
			Hands:      p.Hands,
			CreatedAt:  p.CreatedAt.Format(timeFormat),
		})
	}

	writeJSON(w, http.StatusOK, response)
}

// delete handles DELETE /api/sessions/{id}.
func (h *SessionHandler) delete(w http.ResponseWriter, r *http.Request, id string) {
	if err := h.store.Sessions().Delete(id); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "Session not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "Failed to delete session")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

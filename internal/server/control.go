package server

import (
	"errors"
	"log"
	"net/http"

	"github.com/ayusman/fingerspell/internal/app"
	"github.com/ayusman/fingerspell/internal/server/api"
)

// StatusHandler reports readiness and the current display.
type StatusHandler struct {
	demo Demo
}

// NewStatusHandler creates a new StatusHandler.
func NewStatusHandler(demo Demo) *StatusHandler {
	return &StatusHandler{demo: demo}
}

// ServeHTTP handles GET /api/status.
func (h *StatusHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	api.WriteJSON(w, http.StatusOK, h.demo.Status())
}

// ControlHandler starts and exits the demo.
type ControlHandler struct {
	demo Demo
}

// NewControlHandler creates a new ControlHandler.
func NewControlHandler(demo Demo) *ControlHandler {
	return &ControlHandler{demo: demo}
}

// ServeHTTP handles POST /api/session (start) and DELETE /api/session
// (exit).
func (h *ControlHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if !sameOrigin(r) {
		api.WriteError(w, http.StatusForbidden, "Cross-origin request refused")
		return
	}

	switch r.Method {
	case http.MethodPost:
		if err := h.demo.StartDemo(); err != nil {
			if errors.Is(err, app.ErrNotReady) {
				api.WriteError(w, http.StatusConflict, err.Error())
				return
			}
			log.Printf("Error starting demo: %v", err)
			api.WriteError(w, http.StatusInternalServerError, "Failed to start demo")
			return
		}
	case http.MethodDelete:
		if err := h.demo.ExitDemo(); err != nil {
			log.Printf("Error exiting demo: %v", err)
		}
	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	api.WriteJSON(w, http.StatusOK, h.demo.Status())
}

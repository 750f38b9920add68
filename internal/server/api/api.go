// Package api provides HTTP API handlers for the fingerspell history.
package api

import (
	"encoding/json"
	"net/http"
	"time"
)

const timeFormat = time.RFC3339

type errorResponse struct {
	Error string `json:"error"`
}

// writeJSON writes a JSON response with the given status code.
func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		json.NewEncoder(w).Encode(data)
	}
}

// writeError writes a JSON error response.
func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, errorResponse{Error: message})
}

// WriteJSON is writeJSON for handlers outside this package.
func WriteJSON(w http.ResponseWriter, status int, data interface{}) {
	writeJSON(w, status, data)
}

// WriteError is writeError for handlers outside this package.
func WriteError(w http.ResponseWriter, status int, message string) {
	writeError(w, status, message)
}

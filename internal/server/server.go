// Package server provides the HTTP server for the fingerspell demo.
package server

import (
	"encoding/json"
	"net/http"
	"time"

	"gocv.io/x/gocv"

	"github.com/ayusman/fingerspell/internal/app"
	"github.com/ayusman/fingerspell/internal/display"
	"github.com/ayusman/fingerspell/internal/server/api"
	"github.com/ayusman/fingerspell/internal/store"
)

// Demo is the part of the application the server drives.
type Demo interface {
	StartDemo() error
	ExitDemo() error
	Status() app.Status
	Snapshot() (gocv.Mat, bool)
	Board() *display.Board
}

// Config holds the server configuration.
type Config struct {
	StaticDir string
	Store     *store.Store
	Demo      Demo
}

// Server represents the HTTP server for the fingerspell application.
type Server struct {
	config Config
	mux    *http.ServeMux
	start  time.Time
}

// New creates a new Server with the given configuration.
func New(config Config) *Server {
	s := &Server{
		config: config,
		mux:    http.NewServeMux(),
		start:  time.Now(),
	}
	s.setupRoutes()
	return s
}

// setupRoutes configures all HTTP routes for the server.
func (s *Server) setupRoutes() {
	s.mux.HandleFunc("/api/health", s.handleHealth)

	// Session history is available whenever a store is configured
	if s.config.Store != nil {
		sessions := api.NewSessionHandler(s.config.Store)
		s.mux.Handle("/api/sessions", sessions)
		s.mux.Handle("/api/sessions/", sessions)
	}

	// Demo control, video and the prediction feed need the application
	if s.config.Demo != nil {
		s.mux.Handle("/api/status", NewStatusHandler(s.config.Demo))
		s.mux.Handle("/api/session", NewControlHandler(s.config.Demo))
		s.mux.Handle("/api/stream", NewStreamHandler(s.config.Demo))
		s.mux.Handle("/api/snapshot", NewSnapshotHandler(s.config.Demo))
		s.mux.Handle("/api/predictions", NewPredictionsHandler(s.config.Demo.Board()))
	}

	// Serve static files if StaticDir is configured
	if s.config.StaticDir != "" {
		fs := http.FileServer(http.Dir(s.config.StaticDir))
		s.mux.Handle("/", fs)
	}
}

// ServeHTTP implements the http.Handler interface.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

// handleHealth handles GET requests to /api/health.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	response := map[string]interface{}{
		"status": "ok",
		"uptime": time.Since(s.start).String(),
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(response); err != nil {
		http.Error(w, "Failed to encode response", http.StatusInternalServerError)
		return
	}
}

// ListenAndServe starts the HTTP server on the given address.
func (s *Server) ListenAndServe(addr string) error {
	return s.HTTPServer(addr).ListenAndServe()
}

// HTTPServer returns an http.Server for addr so callers can shut it down.
func (s *Server) HTTPServer(addr string) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           s,
		ReadHeaderTimeout: 10 * time.Second,
	}
}

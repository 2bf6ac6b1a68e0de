// Package server provides the HTTP server for the hearttree viewer: the
// manual control API, the websocket frame feed and the camera preview.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/ayusman/hearttree/internal/app"
	"github.com/ayusman/hearttree/internal/log"
	"github.com/ayusman/hearttree/internal/server/api"
)

// shutdownTimeout bounds how long Run waits for open requests on exit.
const shutdownTimeout = 5 * time.Second

// Config holds the server configuration.
type Config struct {
	StaticDir string
	App       *app.App

	// FrameInterval is the websocket frame feed period. Zero uses
	// DefaultFrameInterval.
	FrameInterval time.Duration
}

// Server represents the HTTP server for the hearttree application.
type Server struct {
	config Config
	mux    *http.ServeMux
	start  time.Time
	frames *FramesHandler
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

	if a := s.config.App; a != nil {
		sceneHandler := api.NewSceneHandler(a)
		s.mux.Handle("/api/scene", sceneHandler)
		s.mux.Handle("/api/scene/", sceneHandler)

		photoHandler := api.NewPhotoHandler(a)
		s.mux.Handle("/api/photos", photoHandler)
		s.mux.Handle("/api/photos/", photoHandler)

		s.mux.Handle("/api/particles", api.NewParticleHandler(a))
		s.mux.Handle("/api/gestures", api.NewGestureHandler(a))

		s.frames = NewFramesHandler(a, s.config.FrameInterval)
		s.mux.Handle("/api/frames", s.frames)
		s.mux.HandleFunc("/api/frame", s.handleFrame)

		s.mux.Handle("/api/stream", NewStreamHandler(a))
	}

	if s.config.StaticDir != "" {
		fs := http.FileServer(http.Dir(s.config.StaticDir))
		s.mux.Handle("/", fs)
	}
}

// ServeHTTP implements the http.Handler interface.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

// Close stops the frame feed and disconnects its clients.
func (s *Server) Close() {
	if s.frames != nil {
		s.frames.Close()
	}
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
	if s.config.App != nil {
		response["gestures"] = s.config.App.Status().Gestures
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(response); err != nil {
		http.Error(w, "Failed to encode response", http.StatusInternalServerError)
		return
	}
}

// handleFrame handles GET /api/frame and returns the latest rendered frame.
func (s *Server) handleFrame(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	frame := s.config.App.LatestFrame()
	if frame == nil {
		http.Error(w, "No frame rendered yet", http.StatusServiceUnavailable)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(frame); err != nil {
		log.Debug("frame encode failed", "error", err)
	}
}

// Run serves on addr until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("http server listening", "addr", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		s.Close()
		return err
	case <-ctx.Done():
	}

	s.Close()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	log.Info("http server stopped")
	return nil
}

// Package server provides the HTTP server the renderer talks to.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/ayusman/gesturetree/internal/capture"
	"github.com/ayusman/gesturetree/internal/hook"
	"github.com/ayusman/gesturetree/internal/scene"
	"github.com/ayusman/gesturetree/internal/server/api"
	"github.com/ayusman/gesturetree/internal/store"
)

// Config holds the server configuration. Routes whose dependencies are nil
// are not registered.
type Config struct {
	StaticDir string
	Store     *store.Store
	Library   api.Library
	State     *scene.State
	Machine   *scene.Machine
	Camera    api.CameraControl
	Preview   *capture.Preview
	Hub       *Hub
	Hooks     *hook.Manager
}

// Server represents the HTTP server.
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

	if s.config.Store != nil && s.config.Library != nil {
		photos := api.NewPhotoHandler(s.config.Store, s.config.Library)
		s.mux.Handle("/api/photos", photos)
		s.mux.Handle("/api/photos/", photos)
	}

	if s.config.State != nil && s.config.Machine != nil {
		sceneHandler := api.NewSceneHandler(s.config.State, s.config.Machine)
		s.mux.Handle("/api/state", sceneHandler)
		s.mux.Handle("/api/mode", sceneHandler)
	}

	if s.config.Camera != nil {
		s.mux.Handle("/api/camera", api.NewCameraHandler(s.config.Camera))
	}

	if s.config.Preview != nil {
		s.mux.Handle("/api/stream", NewStreamHandler(s.config.Preview))
	}

	if s.config.Hub != nil {
		s.mux.Handle("/api/frames", s.config.Hub)
	}

	if s.config.Hooks != nil {
		hooks := api.NewHookHandler(s.config.Hooks)
		s.mux.Handle("/api/hooks", hooks)
		s.mux.Handle("/api/hooks/", hooks)
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
	if s.config.State != nil {
		response["tracker"] = s.config.State.Tracker()
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(response); err != nil {
		http.Error(w, "Failed to encode response", http.StatusInternalServerError)
		return
	}
}

// Run serves on addr until ctx is cancelled, then shuts down gracefully.
// Request contexts derive from ctx so MJPEG streams end with it; websocket
// clients are disconnected by the hub.
func (s *Server) Run(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s,
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	if s.config.Hub != nil {
		s.config.Hub.Close()
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Package server provides the HTTP server for the AccuRead capture engine.
package server

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/ayusman/accuread/internal/app"
	"github.com/ayusman/accuread/internal/frame"
	"github.com/ayusman/accuread/internal/server/api"
	"github.com/ayusman/accuread/internal/store"
)

// Config holds the server configuration.
type Config struct {
	StaticDir string
	Store     *store.Store
	App       *app.App
	// MaxDimension bounds uploaded images; zero selects frame.DefaultMaxDimension.
	MaxDimension int
}

// Server represents the HTTP server for the AccuRead application.
type Server struct {
	config Config
	router chi.Router
	start  time.Time
}

// New creates a new Server with the given configuration.
func New(config Config) *Server {
	if config.MaxDimension <= 0 {
		config.MaxDimension = frame.DefaultMaxDimension
	}
	s := &Server{
		config: config,
		router: chi.NewRouter(),
		start:  time.Now(),
	}
	s.setupRoutes()
	return s
}

// setupRoutes configures all HTTP routes for the server.
func (s *Server) setupRoutes() {
	r := s.router
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	r.Get("/api/health", s.handleHealth)

	if s.config.Store != nil {
		r.Mount("/api/readings", api.NewReadingHandler(s.config.Store).Routes())
	}

	if a := s.config.App; a != nil {
		analyze := api.NewAnalyzeHandler(a, s.config.MaxDimension)
		r.Post("/api/analyze", analyze.Analyze)
		r.Get("/api/config", analyze.GetConfig)
		r.Put("/api/config", analyze.PutConfig)

		r.Mount("/api/sessions", api.NewSessionHandler(a, s.config.Store, s.config.MaxDimension).Routes())

		r.Handle("/api/decisions", NewDecisionsHandler(a))
		r.Handle("/api/stream", NewStreamHandler(a))
	}

	if s.config.StaticDir != "" {
		r.Handle("/*", http.FileServer(http.Dir(s.config.StaticDir)))
	}
}

// ServeHTTP implements the http.Handler interface.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// handleHealth handles GET requests to /api/health.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	response := map[string]any{
		"status": "ok",
		"uptime": time.Since(s.start).String(),
	}
	if a := s.config.App; a != nil {
		response["capturing"] = a.IsRunning() && a.IsEnabled()
		response["session"] = a.SessionStatus().ID
		response["dropped_frames"] = a.DroppedFrames()
	}
	api.WriteJSON(w, http.StatusOK, response)
}

// ListenAndServe starts the HTTP server on the given address.
func (s *Server) ListenAndServe(addr string) error {
	return http.ListenAndServe(addr, s)
}

// HTTPServer returns an http.Server for addr so callers can shut it down.
func (s *Server) HTTPServer(addr string) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           s,
		ReadHeaderTimeout: 10 * time.Second,
	}
}

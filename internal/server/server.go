// Package server provides the HTTP server of the zen garden controller.
package server

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/ayusman/zengarden/internal/app"
	"github.com/ayusman/zengarden/internal/audio"
	"github.com/ayusman/zengarden/internal/config"
	"github.com/ayusman/zengarden/internal/server/api"
	"github.com/ayusman/zengarden/internal/store"
)

// Config holds the server configuration.
type Config struct {
	StaticDir string
	Store     *store.Store
	App       *app.App
	// BaseTuning is the tuning loaded at startup, before operator overrides.
	BaseTuning *config.Tuning
}

// Server represents the HTTP server of the controller.
type Server struct {
	config Config
	mux    *http.ServeMux
	hub    *Hub
	start  time.Time
}

// New creates a new Server with the given configuration. When an App is
// configured, the server's WebSocket hub is registered with it as update
// publisher and audio sink.
func New(config Config) *Server {
	s := &Server{
		config: config,
		mux:    http.NewServeMux(),
		hub:    NewHub(),
		start:  time.Now(),
	}
	if config.App != nil {
		config.App.AddPublisher(s.hub)
		config.App.AddSink(s.hub)
	}
	s.setupRoutes()
	return s
}

// setupRoutes configures all HTTP routes for the server.
func (s *Server) setupRoutes() {
	s.mux.HandleFunc("/api/health", s.handleHealth)
	s.mux.Handle("/api/ws", s.hub)

	if s.config.App != nil {
		s.mux.HandleFunc("/api/status", s.handleStatus)
		s.mux.HandleFunc("/api/enabled", s.handleEnabled)
		s.mux.HandleFunc("/api/sounds/", s.handleSound)
		s.mux.Handle("/api/stream", NewStreamHandler(s.config.App))
	}

	if s.config.Store != nil {
		s.mux.Handle("/api/sessions", api.NewSessionsHandler(s.config.Store))
		if s.config.App != nil {
			s.mux.Handle("/api/tuning", api.NewTuningHandler(s.config.Store, s.config.BaseTuning, s.config.App))
		}
	}

	// Serve static files if StaticDir is configured
	if s.config.StaticDir != "" {
		fs := http.FileServer(http.Dir(s.config.StaticDir))
		s.mux.Handle("/", fs)
	}
}

// Hub returns the WebSocket hub.
func (s *Server) Hub() *Hub {
	return s.hub
}

// ServeHTTP implements the http.Handler interface.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		http.Error(w, "Failed to encode response", http.StatusInternalServerError)
	}
}

// handleHealth handles GET requests to /api/health.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"status":  "ok",
		"uptime":  time.Since(s.start).String(),
		"clients": s.hub.Clients(),
	})
}

// handleStatus handles GET /api/status with the last control cycle.
func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	writeJSON(w, http.StatusOK, s.config.App.Snapshot())
}

type enabledRequest struct {
	Enabled *bool `json:"enabled"`
}

// handleEnabled handles GET and POST /api/enabled.
func (s *Server) handleEnabled(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
	case http.MethodPost:
		var req enabledRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Enabled == nil {
			http.Error(w, `expected {"enabled": true|false}`, http.StatusBadRequest)
			return
		}
		s.config.App.SetEnabled(*req.Enabled)
	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"enabled": s.config.App.IsEnabled()})
}

// handleSound handles GET /api/sounds/{cue} from the preloaded bank.
func (s *Server) handleSound(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	cue, ok := audio.ParseCue(strings.TrimPrefix(r.URL.Path, "/api/sounds/"))
	if !ok {
		http.NotFound(w, r)
		return
	}
	sound, ok := s.config.App.Bank().Get(cue)
	if !ok {
		http.NotFound(w, r)
		return
	}

	w.Header().Set("Content-Type", sound.ContentType)
	w.Header().Set("Content-Length", strconv.Itoa(len(sound.Data)))
	w.Header().Set("Cache-Control", "public, max-age=3600")
	w.WriteHeader(http.StatusOK)
	if r.Method == http.MethodGet {
		w.Write(sound.Data)
	}
}

// ListenAndServe starts the HTTP server on the given address.
func (s *Server) ListenAndServe(addr string) error {
	return http.ListenAndServe(addr, s)
}

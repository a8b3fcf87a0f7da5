package api

import (
	"net/http"
	"strconv"
	"time"

	"github.com/ayusman/zengarden/internal/store"
)

const (
	defaultSessionLimit = 20
	maxSessionLimit     = 500
)

// SessionsHandler lists recorded runs of the control loop.
type SessionsHandler struct {
	store *store.Store
}

// NewSessionsHandler creates a new SessionsHandler with the given store.
func NewSessionsHandler(s *store.Store) *SessionsHandler {
	return &SessionsHandler{store: s}
}

type sessionResponse struct {
	ID         string `json:"id"`
	StartedAt  string `json:"started_at"`
	StoppedAt  string `json:"stopped_at,omitempty"`
	Cycles     int64  `json:"cycles"`
	HandsFound int64  `json:"hands_found"`
	Cues       int64  `json:"cues"`
}

type listSessionsResponse struct {
	Sessions []sessionResponse `json:"sessions"`
}

func toSessionResponse(s *store.Session) sessionResponse {
	resp := sessionResponse{
		ID:         s.ID,
		StartedAt:  s.StartedAt.Format(time.RFC3339),
		Cycles:     s.Cycles,
		HandsFound: s.HandsFound,
		Cues:       s.Cues,
	}
	if s.StoppedAt != nil {
		resp.StoppedAt = s.StoppedAt.Format(time.RFC3339)
	}
	return resp
}

// ServeHTTP handles GET /api/sessions?limit=N, newest first.
func (h *SessionsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	limit := defaultSessionLimit
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 || n > maxSessionLimit {
			writeError(w, http.StatusBadRequest, "limit must be between 1 and 500")
			return
		}
		limit = n
	}

	sessions, err := h.store.Sessions().List(limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list sessions")
		return
	}

	resp := listSessionsResponse{Sessions: make([]sessionResponse, 0, len(sessions))}
	for _, s := range sessions {
		resp.Sessions = append(resp.Sessions, toSessionResponse(s))
	}
	writeJSON(w, http.StatusOK, resp)
}

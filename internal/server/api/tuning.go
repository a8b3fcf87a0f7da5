package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"

	"github.com/ayusman/zengarden/internal/config"
	"github.com/ayusman/zengarden/internal/store"
)

const maxTuningBody = 1 << 20

// TuningApplier swaps the tuning of the running controller.
type TuningApplier interface {
	Tuning() *config.Tuning
	SetTuning(t *config.Tuning) error
}

// TuningHandler serves /api/tuning. The effective tuning is the startup
// file overlaid with the operator override stored under store.TuningKey.
type TuningHandler struct {
	store *store.Store
	base  *config.Tuning
	app   TuningApplier
}

// NewTuningHandler creates a TuningHandler. base is the tuning loaded at
// startup and may be nil.
func NewTuningHandler(s *store.Store, base *config.Tuning, app TuningApplier) *TuningHandler {
	if base == nil {
		base = &config.Tuning{}
	}
	return &TuningHandler{store: s, base: base, app: app}
}

type tuningResponse struct {
	Effective *config.Tuning `json:"effective"`
	Override  *config.Tuning `json:"override,omitempty"`
}

// ServeHTTP handles GET, PUT and DELETE on /api/tuning.
func (h *TuningHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		h.get(w)
	case http.MethodPut:
		h.put(w, r)
	case http.MethodDelete:
		h.reset(w)
	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

func (h *TuningHandler) get(w http.ResponseWriter) {
	override, err := LoadOverride(h.store)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to load tuning override")
		return
	}
	writeJSON(w, http.StatusOK, tuningResponse{Effective: h.app.Tuning(), Override: override})
}

// put replaces the stored override and applies it on top of the base.
func (h *TuningHandler) put(w http.ResponseWriter, r *http.Request) {
	data, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxTuningBody))
	if err != nil {
		writeError(w, http.StatusRequestEntityTooLarge, "Request body too large")
		return
	}

	override, err := config.ParseTuning(data)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	merged, err := h.base.Merge(override)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to merge tuning")
		return
	}
	if err := h.app.SetTuning(merged); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid tuning: %v", err))
		return
	}

	stored, err := json.Marshal(override)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to encode tuning")
		return
	}
	if err := h.store.Settings().Set(store.TuningKey, string(stored)); err != nil {
		log.Printf("failed to persist tuning override: %v", err)
		writeError(w, http.StatusInternalServerError, "Failed to save tuning")
		return
	}

	writeJSON(w, http.StatusOK, tuningResponse{Effective: merged, Override: override})
}

// reset drops the override and returns to the base tuning.
func (h *TuningHandler) reset(w http.ResponseWriter) {
	if err := h.store.Settings().Delete(store.TuningKey); err != nil && !errors.Is(err, store.ErrNotFound) {
		writeError(w, http.StatusInternalServerError, "Failed to delete tuning override")
		return
	}
	if err := h.app.SetTuning(h.base); err != nil {
		writeError(w, http.StatusInternalServerError, fmt.Sprintf("invalid base tuning: %v", err))
		return
	}
	writeJSON(w, http.StatusOK, tuningResponse{Effective: h.base})
}

// LoadOverride returns the stored tuning override, or nil when none is
// stored.
func LoadOverride(s *store.Store) (*config.Tuning, error) {
	raw, err := s.Settings().Get(store.TuningKey)
	if errors.Is(err, store.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return config.ParseTuning([]byte(raw))
}

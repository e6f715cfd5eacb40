package server

import (
	"errors"
	"net/http"
	"strings"

	"github.com/ayusman/abhinaya/internal/expression"
	"github.com/ayusman/abhinaya/internal/store"
)

// SessionsHandler serves the session journal read-only.
type SessionsHandler struct {
	store *store.Store
}

// NewSessionsHandler creates a SessionsHandler over s.
func NewSessionsHandler(s *store.Store) *SessionsHandler {
	return &SessionsHandler{store: s}
}

type sessionResponse struct {
	*store.Session
	Labels map[expression.Label]int `json:"labels,omitempty"`
}

// ServeHTTP routes /api/sessions and /api/sessions/{id}.
func (h *SessionsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	id := strings.TrimPrefix(strings.TrimPrefix(r.URL.Path, "/api/sessions"), "/")
	if id == "" {
		h.list(w)
		return
	}
	h.get(w, id)
}

func (h *SessionsHandler) list(w http.ResponseWriter) {
	sessions, err := h.store.Sessions().List()
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to list sessions")
		return
	}
	if sessions == nil {
		sessions = []*store.Session{}
	}

	writeJSON(w, http.StatusOK, map[string]any{"sessions": sessions})
}

func (h *SessionsHandler) get(w http.ResponseWriter, id string) {
	sess, err := h.store.Sessions().GetByID(id)
	if errors.Is(err, store.ErrNotFound) {
		writeError(w, http.StatusNotFound, "session not found")
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to get session")
		return
	}

	labels, err := h.store.Expressions().CountByLabel(id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to count expressions")
		return
	}

	writeJSON(w, http.StatusOK, sessionResponse{Session: sess, Labels: labels})
}

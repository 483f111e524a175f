// Package server exposes sessions over HTTP and pushes cache snapshots over
// WebSocket.
package server

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"lrusim/internal/apperr"
	"lrusim/internal/session"
)

// Handler serves the session API.
type Handler struct {
	manager         *session.Manager
	hub             *Hub
	defaultCapacity int
	logger          *slog.Logger
}

// NewHandler wires the API. defaultCapacity is used when a client
// initializes a session without one.
func NewHandler(manager *session.Manager, hub *Hub, defaultCapacity int, logger *slog.Logger) *Handler {
	return &Handler{
		manager:         manager,
		hub:             hub,
		defaultCapacity: defaultCapacity,
		logger:          logger,
	}
}

// Routes sets up the router.
func (h *Handler) Routes() http.Handler {
	mux := http.NewServeMux()

	wrap := func(fn http.HandlerFunc) http.HandlerFunc {
		return h.recoverer(h.logRequests(fn))
	}

	mux.HandleFunc("POST /api/v1/sessions", wrap(h.initialize))
	mux.HandleFunc("DELETE /api/v1/sessions/{id}", wrap(h.discard))
	mux.HandleFunc("POST /api/v1/sessions/{id}/put", wrap(h.put))
	mux.HandleFunc("GET /api/v1/sessions/{id}/get", wrap(h.get))
	mux.HandleFunc("GET /api/v1/sessions/{id}/snapshot", wrap(h.snapshot))
	mux.HandleFunc("GET /health", wrap(h.health))

	// The upgrade needs the raw ResponseWriter, so only panics are caught.
	mux.HandleFunc("GET /ws/sessions/{id}", h.recoverer(h.hub.ServeWS))

	return mux
}

type initializeRequest struct {
	Capacity *int `json:"capacity"`
}

type initializeResponse struct {
	SessionID string `json:"session_id"`
	Capacity  int    `json:"capacity"`
}

type putRequest struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

type putResponse struct {
	Message string `json:"message"`
	session.View
}

type getResponse struct {
	Found   bool   `json:"found"`
	Value   *string `json:"value,omitempty"`
	Message string  `json:"message,omitempty"`
	session.View
}

func (h *Handler) initialize(w http.ResponseWriter, r *http.Request) {
	var req initializeRequest
	if r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, apperr.Wrap(err, apperr.CodeInvalidInput, "invalid request body"))
			return
		}
	}

	capacity := h.defaultCapacity
	if req.Capacity != nil {
		capacity = *req.Capacity
	}

	s, err := h.manager.Initialize(capacity)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, initializeResponse{
		SessionID: s.ID.String(),
		Capacity:  s.Capacity(),
	})
}

func (h *Handler) discard(w http.ResponseWriter, r *http.Request) {
	if err := h.manager.Discard(r.PathValue("id")); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) put(w http.ResponseWriter, r *http.Request) {
	s, err := h.manager.Session(r.PathValue("id"))
	if err != nil {
		writeError(w, err)
		return
	}

	var req putRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, apperr.Wrap(err, apperr.CodeInvalidInput, "invalid request body"))
		return
	}

	view := s.Put(req.Key, req.Value)
	writeJSON(w, http.StatusOK, putResponse{
		Message: fmt.Sprintf("Added (%s, %s)", req.Key, req.Value),
		View:    view,
	})
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	s, err := h.manager.Session(r.PathValue("id"))
	if err != nil {
		writeError(w, err)
		return
	}

	query := r.URL.Query()
	if !query.Has("key") {
		writeError(w, apperr.New(apperr.CodeInvalidInput, "key query parameter required"))
		return
	}

	// A miss is an ordinary outcome, not an error status.
	value, found, view := s.Get(query.Get("key"))
	resp := getResponse{Found: found, View: view}
	if found {
		// Set on every hit so an empty stored value is still reported.
		resp.Value = &value
	} else {
		resp.Message = "Key not found!"
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) snapshot(w http.ResponseWriter, r *http.Request) {
	s, err := h.manager.Session(r.PathValue("id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, s.Snapshot())
}

func (h *Handler) health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":   "ok",
		"sessions": h.manager.Len(),
	})
}

// statusRecorder captures the status code for request logging.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (rec *statusRecorder) WriteHeader(code int) {
	rec.status = code
	rec.ResponseWriter.WriteHeader(code)
}

func (h *Handler) logRequests(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

		next(rec, r)

		h.logger.Info("http request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", rec.status,
			"duration", time.Since(start))
	}
}

func (h *Handler) recoverer(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rv := recover(); rv != nil {
				h.logger.Error("panic recovered", "panic", rv, "path", r.URL.Path)
				writeError(w, apperr.New(apperr.CodeInternal, "internal error"))
			}
		}()
		next(w, r)
	}
}

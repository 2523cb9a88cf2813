package handlers

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/kozaktomas/face-attendance/internal/camera"
	"github.com/kozaktomas/face-attendance/internal/config"
	"github.com/kozaktomas/face-attendance/internal/faceid"
	"github.com/kozaktomas/face-attendance/internal/session"
)

// SessionHandler controls the recognition session over HTTP.
type SessionHandler struct {
	config *config.Config
	engine *session.Engine
}

// NewSessionHandler creates a session handler.
func NewSessionHandler(cfg *config.Config, engine *session.Engine) *SessionHandler {
	return &SessionHandler{config: cfg, engine: engine}
}

type startSessionRequest struct {
	DurationSeconds int   `json:"duration_seconds,omitempty"`
	StopOnSuccess   *bool `json:"stop_on_success,omitempty"`
}

// Start begins a recognition session. The body may override the
// configured duration and stop-on-success behavior for this run.
func (h *SessionHandler) Start(w http.ResponseWriter, r *http.Request) {
	var req startSessionRequest
	if r.Body != nil && r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			respondError(w, http.StatusBadRequest, errInvalidRequestBody)
			return
		}
	}

	opts := session.Options{
		Duration:          time.Duration(h.config.SessionSeconds) * time.Second,
		DistanceThreshold: h.config.DistanceThreshold,
		DuplicateWindow:   time.Duration(h.config.DuplicateWindowMinutes) * time.Minute,
		StableFrames:      h.config.StableFrames,
		StableWindow:      h.config.StableWindow,
		StopOnSuccess:     h.config.StopOnSuccess,
	}
	if req.DurationSeconds > 0 {
		opts.Duration = time.Duration(req.DurationSeconds) * time.Second
	}
	if req.StopOnSuccess != nil {
		opts.StopOnSuccess = *req.StopOnSuccess
	}

	source, err := camera.FromConfig(h.config)
	if err != nil {
		respondError(w, http.StatusServiceUnavailable, err.Error())
		return
	}

	id, err := h.engine.Start(r.Context(), source, opts)
	switch {
	case err == nil:
	case errors.Is(err, session.ErrSessionActive), errors.Is(err, session.ErrTrainingActive):
		respondError(w, http.StatusConflict, err.Error())
		return
	case errors.Is(err, faceid.ErrModelNotLoaded):
		respondError(w, http.StatusPreconditionFailed, "no trained model, run training first")
		return
	case errors.Is(err, camera.ErrCameraUnavailable):
		respondError(w, http.StatusServiceUnavailable, err.Error())
		return
	default:
		log.Printf("starting session: %v", err)
		respondError(w, http.StatusInternalServerError, "failed to start session")
		return
	}

	respondJSON(w, http.StatusAccepted, map[string]string{"session_id": id})
}

// Status reports the engine state and the most recent event.
func (h *SessionHandler) Status(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]any{
		"status":     h.engine.Status(),
		"last_event": h.engine.Events().Last(),
	})
}

// Stop requests the running session to end.
func (h *SessionHandler) Stop(w http.ResponseWriter, r *http.Request) {
	h.engine.Stop()
	respondJSON(w, http.StatusOK, map[string]string{"status": "stopping"})
}

// Events streams session status updates over SSE.
func (h *SessionHandler) Events(w http.ResponseWriter, r *http.Request) {
	streamSessionEvents(w, r, h.engine)
}

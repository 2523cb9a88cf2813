package handlers

import (
	"errors"
	"log"
	"net/http"

	"github.com/kozaktomas/face-attendance/internal/config"
	"github.com/kozaktomas/face-attendance/internal/enroll"
	"github.com/kozaktomas/face-attendance/internal/faceid"
	"github.com/kozaktomas/face-attendance/internal/samples"
	"github.com/kozaktomas/face-attendance/internal/session"
)

// TrainHandler rebuilds the recognition model from stored samples.
type TrainHandler struct {
	config     *config.Config
	guard      *session.Guard
	samples    *samples.Store
	recognizer *faceid.Recognizer
}

// NewTrainHandler creates a train handler.
func NewTrainHandler(cfg *config.Config, guard *session.Guard, sampleStore *samples.Store, recognizer *faceid.Recognizer) *TrainHandler {
	return &TrainHandler{config: cfg, guard: guard, samples: sampleStore, recognizer: recognizer}
}

// Start runs a training pass synchronously. Training a few thousand
// small grayscale samples finishes in seconds, so no job machinery is
// needed here.
func (h *TrainHandler) Start(w http.ResponseWriter, r *http.Request) {
	if h.config.PrivacyMode {
		respondError(w, http.StatusForbidden, "privacy mode enabled, training is disabled")
		return
	}

	result, err := enroll.TrainModel(r.Context(), h.guard, h.samples, h.recognizer)
	switch {
	case err == nil:
	case errors.Is(err, session.ErrSessionActive), errors.Is(err, session.ErrTrainingActive):
		respondError(w, http.StatusConflict, err.Error())
		return
	case errors.Is(err, faceid.ErrInsufficientData):
		respondError(w, http.StatusPreconditionFailed, "no samples to train on, enroll users first")
		return
	default:
		log.Printf("training model: %v", err)
		respondError(w, http.StatusInternalServerError, "training failed")
		return
	}
	respondJSON(w, http.StatusOK, result)
}

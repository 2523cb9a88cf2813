package handlers

import (
	"log"
	"net/http"
	"time"

	"github.com/kozaktomas/face-attendance/internal/faceid"
	"github.com/kozaktomas/face-attendance/internal/ledger"
)

// StatsHandler reports database counts and model freshness.
type StatsHandler struct {
	store      *ledger.Store
	recognizer *faceid.Recognizer
}

// NewStatsHandler creates a stats handler.
func NewStatsHandler(store *ledger.Store, recognizer *faceid.Recognizer) *StatsHandler {
	return &StatsHandler{store: store, recognizer: recognizer}
}

// Get returns row counts plus model metadata. TrainedAt lets operators
// spot a stale model after enrollment changes.
func (h *StatsHandler) Get(w http.ResponseWriter, r *http.Request) {
	counts, err := h.store.CountAll(r.Context())
	if err != nil {
		log.Printf("counting rows: %v", err)
		respondError(w, http.StatusInternalServerError, "failed to count rows")
		return
	}

	model := map[string]any{"loaded": h.recognizer.Loaded()}
	if h.recognizer.Loaded() {
		samples, users := h.recognizer.Counts()
		model["samples"] = samples
		model["users"] = users
		model["trained_at"] = h.recognizer.TrainedAt().Format(time.RFC3339)
	}

	respondJSON(w, http.StatusOK, map[string]any{
		"counts": counts,
		"model":  model,
	})
}

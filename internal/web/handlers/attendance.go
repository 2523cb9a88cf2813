package handlers

import (
	"log"
	"net/http"
	"time"

	"github.com/kozaktomas/face-attendance/internal/ledger"
)

// AttendanceHandler serves attendance queries.
type AttendanceHandler struct {
	store *ledger.Store
}

// NewAttendanceHandler creates an attendance handler.
func NewAttendanceHandler(store *ledger.Store) *AttendanceHandler {
	return &AttendanceHandler{store: store}
}

// ByDate returns events for one day. The date query parameter is
// YYYY-MM-DD and defaults to today.
func (h *AttendanceHandler) ByDate(w http.ResponseWriter, r *http.Request) {
	date := r.URL.Query().Get("date")
	if date == "" {
		date = time.Now().Format(ledger.DateLayout)
	} else if _, err := time.Parse(ledger.DateLayout, date); err != nil {
		respondError(w, http.StatusBadRequest, "date must be YYYY-MM-DD")
		return
	}

	events, err := h.store.QueryByDate(r.Context(), date)
	if err != nil {
		log.Printf("querying attendance for %s: %v", sanitizeForLog(date), err)
		respondError(w, http.StatusInternalServerError, "failed to query attendance")
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"date": date, "events": events})
}

// Range returns events between the from and to query parameters
// (YYYY-MM-DD, inclusive).
func (h *AttendanceHandler) Range(w http.ResponseWriter, r *http.Request) {
	from, err := time.ParseInLocation(ledger.DateLayout, r.URL.Query().Get("from"), time.Local)
	if err != nil {
		respondError(w, http.StatusBadRequest, "from must be YYYY-MM-DD")
		return
	}
	to, err := time.ParseInLocation(ledger.DateLayout, r.URL.Query().Get("to"), time.Local)
	if err != nil {
		respondError(w, http.StatusBadRequest, "to must be YYYY-MM-DD")
		return
	}
	if to.Before(from) {
		respondError(w, http.StatusBadRequest, "to must not precede from")
		return
	}

	end := to.AddDate(0, 0, 1).Add(-time.Second)
	events, err := h.store.QueryRange(r.Context(), from, end)
	if err != nil {
		log.Printf("querying attendance range: %v", err)
		respondError(w, http.StatusInternalServerError, "failed to query attendance")
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"events": events})
}

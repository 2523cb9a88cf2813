package handlers

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/kozaktomas/face-attendance/internal/camera"
	"github.com/kozaktomas/face-attendance/internal/config"
	"github.com/kozaktomas/face-attendance/internal/enroll"
	"github.com/kozaktomas/face-attendance/internal/ledger"
	"github.com/kozaktomas/face-attendance/internal/samples"
)

// UsersHandler manages the user roster and enrollment.
type UsersHandler struct {
	config   *config.Config
	store    *ledger.Store
	samples  *samples.Store
	enroller *enroll.Enroller
}

// NewUsersHandler creates a users handler.
func NewUsersHandler(cfg *config.Config, store *ledger.Store, sampleStore *samples.Store, enroller *enroll.Enroller) *UsersHandler {
	return &UsersHandler{config: cfg, store: store, samples: sampleStore, enroller: enroller}
}

// List returns all enrolled users with their stored sample counts.
func (h *UsersHandler) List(w http.ResponseWriter, r *http.Request) {
	users, err := h.store.ListUsers(r.Context())
	if err != nil {
		log.Printf("listing users: %v", err)
		respondError(w, http.StatusInternalServerError, "failed to list users")
		return
	}
	counts, err := h.samples.CountByUser()
	if err != nil {
		log.Printf("counting samples: %v", err)
		respondError(w, http.StatusInternalServerError, "failed to count samples")
		return
	}

	type userInfo struct {
		ID      int    `json:"id"`
		Name    string `json:"name"`
		Samples int    `json:"samples"`
	}
	out := make([]userInfo, 0, len(users))
	for _, u := range users {
		out = append(out, userInfo{ID: u.ID, Name: u.Name, Samples: counts[u.ID]})
	}
	respondJSON(w, http.StatusOK, map[string]any{"users": out})
}

// Get returns one user.
func (h *UsersHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := userIDParam(w, r)
	if !ok {
		return
	}
	user, err := h.store.GetUser(r.Context(), id)
	if errors.Is(err, ledger.ErrUserNotFound) {
		respondError(w, http.StatusNotFound, "user not found")
		return
	}
	if err != nil {
		log.Printf("getting user %d: %v", id, err)
		respondError(w, http.StatusInternalServerError, "failed to get user")
		return
	}
	stored, err := h.samples.ListByUser(id)
	if err != nil {
		log.Printf("listing samples for user %d: %v", id, err)
		respondError(w, http.StatusInternalServerError, "failed to list samples")
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"id":      user.ID,
		"name":    user.Name,
		"samples": len(stored),
	})
}

type enrollRequest struct {
	ID      int    `json:"id"`
	Name    string `json:"name"`
	Samples int    `json:"samples,omitempty"`
}

// Enroll captures face samples for a user from the configured camera.
// The request blocks until capture finishes, so it is meant for the
// admin surface, not kiosks.
func (h *UsersHandler) Enroll(w http.ResponseWriter, r *http.Request) {
	var req enrollRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, errInvalidRequestBody)
		return
	}
	if req.ID <= 0 || req.Name == "" {
		respondError(w, http.StatusBadRequest, "id and name are required")
		return
	}
	target := req.Samples
	if target <= 0 {
		target = h.config.SamplesPerUser
	}

	duplicates, err := h.enroller.SameNameUsers(r.Context(), req.Name)
	if err != nil {
		log.Printf("checking duplicate names: %v", err)
	}

	source, err := camera.FromConfig(h.config)
	if err != nil {
		respondError(w, http.StatusServiceUnavailable, err.Error())
		return
	}

	captured, err := h.enroller.Capture(r.Context(), source, req.ID, req.Name, target, nil)
	if errors.Is(err, enroll.ErrPrivacyMode) {
		respondError(w, http.StatusForbidden, err.Error())
		return
	}
	if err != nil {
		log.Printf("enrolling user %d (%s): %v", req.ID, sanitizeForLog(req.Name), err)
		respondError(w, http.StatusInternalServerError, "enrollment capture failed")
		return
	}

	warnings := make([]string, 0, len(duplicates))
	for _, d := range duplicates {
		if d.ID != req.ID {
			warnings = append(warnings, "name already enrolled as user "+strconv.Itoa(d.ID))
		}
	}
	respondJSON(w, http.StatusCreated, map[string]any{
		"id":       req.ID,
		"name":     req.Name,
		"captured": captured,
		"warnings": warnings,
	})
}

// Retire removes a user and their samples. Attendance history stays.
func (h *UsersHandler) Retire(w http.ResponseWriter, r *http.Request) {
	id, ok := userIDParam(w, r)
	if !ok {
		return
	}
	err := h.enroller.Retire(r.Context(), id)
	if errors.Is(err, ledger.ErrUserNotFound) {
		respondError(w, http.StatusNotFound, "user not found")
		return
	}
	if err != nil {
		log.Printf("retiring user %d: %v", id, err)
		respondError(w, http.StatusInternalServerError, "failed to retire user")
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"status": "retired"})
}

func userIDParam(w http.ResponseWriter, r *http.Request) (int, bool) {
	id, err := strconv.Atoi(chi.URLParam(r, "id"))
	if err != nil || id <= 0 {
		respondError(w, http.StatusBadRequest, "invalid user id")
		return 0, false
	}
	return id, true
}

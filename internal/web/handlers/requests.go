package handlers

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/kozaktomas/face-attendance/internal/ledger"
)

// RequestsHandler manages enrollment requests submitted by visitors.
type RequestsHandler struct {
	store *ledger.Store
}

// NewRequestsHandler creates a requests handler.
func NewRequestsHandler(store *ledger.Store) *RequestsHandler {
	return &RequestsHandler{store: store}
}

type submitRequest struct {
	Name    string `json:"name"`
	Contact string `json:"contact"`
	Message string `json:"message"`
}

// Submit records a new enrollment request. This is the one mutating
// endpoint exposed on kiosks.
func (h *RequestsHandler) Submit(w http.ResponseWriter, r *http.Request) {
	var req submitRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, errInvalidRequestBody)
		return
	}

	id, err := h.store.SubmitRequest(r.Context(), req.Name, req.Contact, req.Message)
	if err != nil {
		if errors.Is(err, ledger.ErrInvalidStatus) {
			respondError(w, http.StatusBadRequest, err.Error())
			return
		}
		log.Printf("submitting enrollment request: %v", err)
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	respondJSON(w, http.StatusCreated, map[string]int64{"request_id": id})
}

// List returns all requests, or only pending ones with ?pending=true.
func (h *RequestsHandler) List(w http.ResponseWriter, r *http.Request) {
	var (
		requests []ledger.Request
		err      error
	)
	if r.URL.Query().Get("pending") == "true" {
		requests, err = h.store.ListPending(r.Context())
	} else {
		requests, err = h.store.ListRequests(r.Context())
	}
	if err != nil {
		log.Printf("listing enrollment requests: %v", err)
		respondError(w, http.StatusInternalServerError, "failed to list requests")
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"requests": requests})
}

type decideRequest struct {
	Status string `json:"status"`
}

// Decide approves or rejects a pending request.
func (h *RequestsHandler) Decide(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		respondError(w, http.StatusBadRequest, "invalid request id")
		return
	}

	var req decideRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, errInvalidRequestBody)
		return
	}
	status, err := ledger.ParseRequestStatus(req.Status)
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	err = h.store.SetRequestStatus(r.Context(), id, status)
	switch {
	case err == nil:
	case errors.Is(err, ledger.ErrRequestNotFound):
		respondError(w, http.StatusNotFound, "request not found")
		return
	case errors.Is(err, ledger.ErrInvalidStatus):
		respondError(w, http.StatusBadRequest, err.Error())
		return
	case errors.Is(err, ledger.ErrRequestDecided):
		respondError(w, http.StatusConflict, err.Error())
		return
	default:
		log.Printf("deciding request %d: %v", id, err)
		respondError(w, http.StatusInternalServerError, "failed to update request")
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"request_id": id, "status": status})
}

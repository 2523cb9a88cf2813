package handlers

import (
	"context"
	"net/http"
	"testing"

	"github.com/go-chi/chi/v5"

	"github.com/kozaktomas/face-attendance/internal/ledger"
)

func requestsRouter(env *testEnv) chi.Router {
	h := NewRequestsHandler(env.store)
	r := chi.NewRouter()
	r.Post("/requests", h.Submit)
	r.Get("/requests", h.List)
	r.Put("/requests/{id}", h.Decide)
	return r
}

func TestSubmitRequest(t *testing.T) {
	env := newTestEnv(t)
	router := requestsRouter(env)

	rec := doJSON(t, router, http.MethodPost, "/requests", map[string]string{
		"name":    "Carol",
		"contact": "carol@example.com",
		"message": "please enroll me",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, want 201: %s", rec.Code, rec.Body.String())
	}

	var body map[string]int64
	decodeBody(t, rec, &body)
	if body["request_id"] == 0 {
		t.Error("request_id missing from response")
	}
}

func TestSubmitRequestValidation(t *testing.T) {
	env := newTestEnv(t)
	router := requestsRouter(env)

	rec := doJSON(t, router, http.MethodPost, "/requests", map[string]string{
		"name": "", "contact": "c", "message": "m",
	})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

func TestDecideRequest(t *testing.T) {
	env := newTestEnv(t)
	router := requestsRouter(env)

	id, err := env.store.SubmitRequest(context.Background(), "Carol", "carol@example.com", "msg")
	if err != nil {
		t.Fatalf("seeding request: %v", err)
	}

	rec := doJSON(t, router, http.MethodPut, "/requests/1", map[string]string{"status": "approved"})
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", rec.Code, rec.Body.String())
	}

	// Already decided requests conflict.
	rec = doJSON(t, router, http.MethodPut, "/requests/1", map[string]string{"status": "rejected"})
	if rec.Code != http.StatusConflict {
		t.Fatalf("second decide status = %d, want 409", rec.Code)
	}

	request, err := env.store.ListRequests(context.Background())
	if err != nil {
		t.Fatalf("listing requests: %v", err)
	}
	if request[0].ID != id || request[0].Status != ledger.StatusApproved {
		t.Errorf("request = %+v, want approved", request[0])
	}
}

func TestDecideRequestErrors(t *testing.T) {
	env := newTestEnv(t)
	router := requestsRouter(env)

	rec := doJSON(t, router, http.MethodPut, "/requests/99", map[string]string{"status": "approved"})
	if rec.Code != http.StatusNotFound {
		t.Errorf("unknown request status = %d, want 404", rec.Code)
	}

	rec = doJSON(t, router, http.MethodPut, "/requests/abc", map[string]string{"status": "approved"})
	if rec.Code != http.StatusBadRequest {
		t.Errorf("bad id status = %d, want 400", rec.Code)
	}

	if _, err := env.store.SubmitRequest(context.Background(), "Carol", "c", "m"); err != nil {
		t.Fatalf("seeding request: %v", err)
	}
	rec = doJSON(t, router, http.MethodPut, "/requests/1", map[string]string{"status": "pending"})
	if rec.Code != http.StatusBadRequest {
		t.Errorf("invalid status = %d, want 400", rec.Code)
	}
}

func TestListRequestsPendingFilter(t *testing.T) {
	env := newTestEnv(t)
	router := requestsRouter(env)
	ctx := context.Background()

	first, err := env.store.SubmitRequest(ctx, "A", "a@example.com", "m")
	if err != nil {
		t.Fatalf("seeding request: %v", err)
	}
	if _, err := env.store.SubmitRequest(ctx, "B", "b@example.com", "m"); err != nil {
		t.Fatalf("seeding request: %v", err)
	}
	if err := env.store.SetRequestStatus(ctx, first, ledger.StatusRejected); err != nil {
		t.Fatalf("rejecting request: %v", err)
	}

	rec := doJSON(t, router, http.MethodGet, "/requests?pending=true", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	var body struct {
		Requests []ledger.Request `json:"requests"`
	}
	decodeBody(t, rec, &body)
	if len(body.Requests) != 1 || body.Requests[0].Name != "B" {
		t.Errorf("pending = %+v, want only B", body.Requests)
	}
}

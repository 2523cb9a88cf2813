package handlers

import (
	"net/http"
	"testing"

	"github.com/go-chi/chi/v5"

	"github.com/kozaktomas/face-attendance/internal/session"
)

func sessionRouter(env *testEnv) chi.Router {
	h := NewSessionHandler(env.cfg, env.engine)
	r := chi.NewRouter()
	r.Post("/session", h.Start)
	r.Get("/session", h.Status)
	r.Delete("/session", h.Stop)
	return r
}

func TestSessionStatusIdle(t *testing.T) {
	env := newTestEnv(t)
	router := sessionRouter(env)

	rec := doJSON(t, router, http.MethodGet, "/session", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	var body struct {
		Status session.Status `json:"status"`
	}
	decodeBody(t, rec, &body)
	if body.Status.State != session.StateIdle {
		t.Errorf("state = %s, want idle", body.Status.State)
	}
}

func TestSessionStartWithoutModel(t *testing.T) {
	env := newTestEnv(t)
	router := sessionRouter(env)

	rec := doJSON(t, router, http.MethodPost, "/session", nil)
	if rec.Code != http.StatusPreconditionFailed {
		t.Fatalf("status = %d, want 412: %s", rec.Code, rec.Body.String())
	}
}

func TestSessionStartDuringTraining(t *testing.T) {
	env := newTestEnv(t)
	router := sessionRouter(env)

	if err := env.guard.BeginTraining(); err != nil {
		t.Fatalf("claiming training: %v", err)
	}
	defer env.guard.EndTraining()

	rec := doJSON(t, router, http.MethodPost, "/session", nil)
	if rec.Code != http.StatusConflict {
		t.Fatalf("status = %d, want 409: %s", rec.Code, rec.Body.String())
	}
}

func TestSessionStop(t *testing.T) {
	env := newTestEnv(t)
	router := sessionRouter(env)

	// Stopping with no session running is a no-op.
	rec := doJSON(t, router, http.MethodDelete, "/session", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
}

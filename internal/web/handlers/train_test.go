package handlers

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestTrainWithoutSamples(t *testing.T) {
	env := newTestEnv(t)
	h := NewTrainHandler(env.cfg, env.guard, env.samples, env.recognizer)

	rec := httptest.NewRecorder()
	h.Start(rec, httptest.NewRequest(http.MethodPost, "/train", nil))
	if rec.Code != http.StatusPreconditionFailed {
		t.Fatalf("status = %d, want 412: %s", rec.Code, rec.Body.String())
	}
}

func TestTrainInPrivacyMode(t *testing.T) {
	env := newTestEnv(t)
	env.cfg.PrivacyMode = true
	h := NewTrainHandler(env.cfg, env.guard, env.samples, env.recognizer)

	rec := httptest.NewRecorder()
	h.Start(rec, httptest.NewRequest(http.MethodPost, "/train", nil))
	if rec.Code != http.StatusForbidden {
		t.Fatalf("status = %d, want 403: %s", rec.Code, rec.Body.String())
	}
}

func TestTrainBlockedDuringSession(t *testing.T) {
	env := newTestEnv(t)
	h := NewTrainHandler(env.cfg, env.guard, env.samples, env.recognizer)

	if err := env.guard.BeginSession(); err != nil {
		t.Fatalf("claiming session: %v", err)
	}
	defer env.guard.EndSession()

	rec := httptest.NewRecorder()
	h.Start(rec, httptest.NewRequest(http.MethodPost, "/train", nil))
	if rec.Code != http.StatusConflict {
		t.Fatalf("status = %d, want 409: %s", rec.Code, rec.Body.String())
	}
}

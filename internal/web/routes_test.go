package web

import (
	"context"
	"image"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/kozaktomas/face-attendance/internal/config"
	"github.com/kozaktomas/face-attendance/internal/enroll"
	"github.com/kozaktomas/face-attendance/internal/faceid"
	"github.com/kozaktomas/face-attendance/internal/ledger"
	"github.com/kozaktomas/face-attendance/internal/report"
	"github.com/kozaktomas/face-attendance/internal/samples"
	"github.com/kozaktomas/face-attendance/internal/session"
)

type stubDetector struct{}

func (stubDetector) Detect(frame *image.Gray) []image.Rectangle { return nil }

func newTestServer(t *testing.T, kiosk bool) *Server {
	t.Helper()
	cfg := config.Load(t.TempDir())
	cfg.KioskMode = kiosk

	store, err := ledger.Open(cfg.DatabasePath())
	if err != nil {
		t.Fatalf("opening ledger: %v", err)
	}
	t.Cleanup(func() { store.Close() })

	sampleStore, err := samples.NewStore(cfg.SamplesDir())
	if err != nil {
		t.Fatalf("opening sample store: %v", err)
	}

	recognizer := faceid.NewRecognizer(cfg.ModelPath())
	guard := session.NewGuard()

	return NewServer(cfg, Deps{
		Store:      store,
		Samples:    sampleStore,
		Recognizer: recognizer,
		Engine:     session.NewEngine(store, stubDetector{}, recognizer, guard),
		Guard:      guard,
		Enroller:   enroll.NewEnroller(store, sampleStore, stubDetector{}, false),
		Exporter:   report.NewExporter(store),
	}, "127.0.0.1", 0)
}

func get(t *testing.T, s *Server, path string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, req)
	return rec
}

func TestAdminRoutesMounted(t *testing.T) {
	s := newTestServer(t, false)

	for _, path := range []string{
		"/api/v1/health",
		"/api/v1/session",
		"/api/v1/users",
		"/api/v1/attendance",
		"/api/v1/requests",
		"/api/v1/stats",
		"/api/v1/config",
		"/api/v1/report",
	} {
		if rec := get(t, s, path); rec.Code == http.StatusNotFound {
			t.Errorf("%s not mounted", path)
		}
	}
}

func TestKioskModeHidesAdminRoutes(t *testing.T) {
	s := newTestServer(t, true)

	// Public subset stays available.
	for _, path := range []string{"/api/v1/health", "/api/v1/session"} {
		if rec := get(t, s, path); rec.Code != http.StatusOK {
			t.Errorf("%s status = %d, want 200", path, rec.Code)
		}
	}
	req := httptest.NewRequest(http.MethodPost, "/api/v1/requests", strings.NewReader(`{"name":"C","contact":"c","message":"m"}`))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, req)
	if rec.Code != http.StatusCreated {
		t.Errorf("kiosk request submission status = %d, want 201", rec.Code)
	}

	// Admin surface is gone.
	for _, path := range []string{
		"/api/v1/users",
		"/api/v1/attendance",
		"/api/v1/stats",
		"/api/v1/config",
		"/api/v1/report",
	} {
		if rec := get(t, s, path); rec.Code != http.StatusNotFound {
			t.Errorf("%s status = %d, want 404 in kiosk mode", path, rec.Code)
		}
	}
}

func TestSessionEventsStreamHeaders(t *testing.T) {
	s := newTestServer(t, false)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/session/events", nil)
	ctx, cancel := context.WithTimeout(req.Context(), 100*time.Millisecond)
	defer cancel()
	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, req.WithContext(ctx))

	if got := rec.Header().Get("Content-Type"); got != "text/event-stream" {
		t.Errorf("content type = %q, want text/event-stream", got)
	}
	if !strings.Contains(rec.Body.String(), "event: status") {
		t.Errorf("stream missing initial status event: %q", rec.Body.String())
	}
}

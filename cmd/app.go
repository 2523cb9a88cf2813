package cmd

import (
	"errors"
	"fmt"
	"time"

	"github.com/kozaktomas/face-attendance/internal/config"
	"github.com/kozaktomas/face-attendance/internal/enroll"
	"github.com/kozaktomas/face-attendance/internal/faceid"
	"github.com/kozaktomas/face-attendance/internal/ledger"
	"github.com/kozaktomas/face-attendance/internal/report"
	"github.com/kozaktomas/face-attendance/internal/samples"
	"github.com/kozaktomas/face-attendance/internal/session"
)

// app bundles the wired services every command works with.
type app struct {
	cfg        *config.Config
	store      *ledger.Store
	samples    *samples.Store
	detector   *faceid.Detector
	recognizer *faceid.Recognizer
	guard      *session.Guard
	engine     *session.Engine
	enroller   *enroll.Enroller
	exporter   *report.Exporter
}

// newApp loads configuration and opens the stores. A missing model
// file is not an error here; commands that need it surface
// faceid.ErrModelNotLoaded themselves.
func newApp() (*app, error) {
	cfg := config.Load(dataDir)

	store, err := ledger.Open(cfg.DatabasePath())
	if err != nil {
		return nil, fmt.Errorf("opening attendance database: %w", err)
	}

	sampleStore, err := samples.NewStore(cfg.SamplesDir())
	if err != nil {
		store.Close()
		return nil, fmt.Errorf("opening sample store: %w", err)
	}

	detector, err := faceid.NewDetector(cfg.CascadePath)
	if err != nil {
		store.Close()
		return nil, fmt.Errorf("loading detection cascade: %w", err)
	}

	recognizer := faceid.NewRecognizer(cfg.ModelPath())
	if err := recognizer.Load(); err != nil && !errors.Is(err, faceid.ErrModelNotLoaded) {
		store.Close()
		return nil, fmt.Errorf("loading recognition model: %w", err)
	}

	guard := session.NewGuard()
	return &app{
		cfg:        cfg,
		store:      store,
		samples:    sampleStore,
		detector:   detector,
		recognizer: recognizer,
		guard:      guard,
		engine:     session.NewEngine(store, detector, recognizer, guard),
		enroller:   enroll.NewEnroller(store, sampleStore, detector, cfg.PrivacyMode),
		exporter:   report.NewExporter(store),
	}, nil
}

func (a *app) close() {
	if err := a.store.Close(); err != nil {
		fmt.Printf("Warning: closing database: %v\n", err)
	}
}

// sessionOptions maps the station configuration onto a session run.
func (a *app) sessionOptions() session.Options {
	return session.Options{
		Duration:          time.Duration(a.cfg.SessionSeconds) * time.Second,
		DistanceThreshold: a.cfg.DistanceThreshold,
		DuplicateWindow:   time.Duration(a.cfg.DuplicateWindowMinutes) * time.Minute,
		StableFrames:      a.cfg.StableFrames,
		StableWindow:      a.cfg.StableWindow,
		StopOnSuccess:     a.cfg.StopOnSuccess,
	}
}

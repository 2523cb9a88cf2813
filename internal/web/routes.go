package web

import (
	"github.com/go-chi/chi/v5"

	"github.com/kozaktomas/face-attendance/internal/web/handlers"
)

func (s *Server) setupRoutes() {
	sessionHandler := handlers.NewSessionHandler(s.config, s.deps.Engine)
	usersHandler := handlers.NewUsersHandler(s.config, s.deps.Store, s.deps.Samples, s.deps.Enroller)
	attendanceHandler := handlers.NewAttendanceHandler(s.deps.Store)
	requestsHandler := handlers.NewRequestsHandler(s.deps.Store)
	statsHandler := handlers.NewStatsHandler(s.deps.Store, s.deps.Recognizer)
	reportHandler := handlers.NewReportHandler(s.deps.Exporter)
	configHandler := handlers.NewConfigHandler(s.config)
	trainHandler := handlers.NewTrainHandler(s.config, s.deps.Guard, s.deps.Samples, s.deps.Recognizer)

	// Health check
	s.router.Get("/api/v1/health", handlers.HealthCheck)

	s.router.Route("/api/v1", func(r chi.Router) {
		// Public routes, safe for unattended kiosk stations: watch the
		// session and ask to be enrolled.
		r.Get("/session", sessionHandler.Status)
		r.Get("/session/events", sessionHandler.Events)
		r.Post("/requests", requestsHandler.Submit)

		if s.config.KioskMode {
			return
		}

		// Admin surface
		r.Post("/session", sessionHandler.Start)
		r.Delete("/session", sessionHandler.Stop)

		r.Get("/users", usersHandler.List)
		r.Get("/users/{id}", usersHandler.Get)
		r.Post("/users", usersHandler.Enroll)
		r.Delete("/users/{id}", usersHandler.Retire)

		r.Get("/attendance", attendanceHandler.ByDate)
		r.Get("/attendance/range", attendanceHandler.Range)

		r.Get("/requests", requestsHandler.List)
		r.Put("/requests/{id}", requestsHandler.Decide)

		r.Post("/train", trainHandler.Start)

		r.Get("/report", reportHandler.Get)
		r.Get("/stats", statsHandler.Get)
		r.Get("/config", configHandler.Get)
	})
}

package handlers

import (
	"errors"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/kozaktomas/face-attendance/internal/ledger"
	"github.com/kozaktomas/face-attendance/internal/report"
)

// ReportHandler exports attendance CSV reports.
type ReportHandler struct {
	exporter *report.Exporter
}

// NewReportHandler creates a report handler.
func NewReportHandler(exporter *report.Exporter) *ReportHandler {
	return &ReportHandler{exporter: exporter}
}

// Get streams a CSV report. Query parameters: period (daily, weekly,
// monthly; default daily) and date (YYYY-MM-DD anchor; default today).
func (h *ReportHandler) Get(w http.ResponseWriter, r *http.Request) {
	periodName := r.URL.Query().Get("period")
	if periodName == "" {
		periodName = string(report.PeriodDaily)
	}
	period, err := report.ParsePeriod(periodName)
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	anchor := time.Now()
	if date := r.URL.Query().Get("date"); date != "" {
		anchor, err = time.ParseInLocation(ledger.DateLayout, date, time.Local)
		if err != nil {
			respondError(w, http.StatusBadRequest, "date must be YYYY-MM-DD")
			return
		}
	}

	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition",
		fmt.Sprintf("attachment; filename=attendance-%s-%s.csv", period, anchor.Format(ledger.DateLayout)))

	if _, err := h.exporter.ExportPeriod(r.Context(), w, period, anchor); err != nil {
		if errors.Is(err, report.ErrUnknownPeriod) {
			respondError(w, http.StatusBadRequest, err.Error())
			return
		}
		// Headers are out; log and abort the stream.
		log.Printf("exporting %s report: %v", period, err)
	}
}

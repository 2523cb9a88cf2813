// Package report exports attendance events as CSV over calendar
// periods.
package report

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/kozaktomas/face-attendance/internal/ledger"
)

// Period names a calendar export range anchored at a reference day.
type Period string

const (
	PeriodDaily   Period = "daily"
	PeriodWeekly  Period = "weekly"
	PeriodMonthly Period = "monthly"
)

// ErrUnknownPeriod is returned for a period name outside the supported
// set.
var ErrUnknownPeriod = errors.New("unknown report period")

// ParsePeriod validates a period name.
func ParsePeriod(s string) (Period, error) {
	switch Period(s) {
	case PeriodDaily, PeriodWeekly, PeriodMonthly:
		return Period(s), nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownPeriod, s)
}

// Range resolves the period around the anchor day to an inclusive
// timestamp range. Weeks start on Monday.
func (p Period) Range(anchor time.Time) (start, end time.Time, err error) {
	y, m, d := anchor.Date()
	day := time.Date(y, m, d, 0, 0, 0, 0, anchor.Location())

	switch p {
	case PeriodDaily:
		start = day
		end = day.AddDate(0, 0, 1)
	case PeriodWeekly:
		offset := (int(day.Weekday()) + 6) % 7
		start = day.AddDate(0, 0, -offset)
		end = start.AddDate(0, 0, 7)
	case PeriodMonthly:
		start = time.Date(y, m, 1, 0, 0, 0, 0, anchor.Location())
		end = start.AddDate(0, 1, 0)
	default:
		return time.Time{}, time.Time{}, fmt.Errorf("%w: %q", ErrUnknownPeriod, p)
	}
	return start, end.Add(-time.Second), nil
}

// Exporter writes attendance reports from the ledger.
type Exporter struct {
	store *ledger.Store
}

// NewExporter creates an exporter over the given ledger.
func NewExporter(store *ledger.Store) *Exporter {
	return &Exporter{store: store}
}

// WriteCSV renders events in the legacy report layout.
func WriteCSV(w io.Writer, events []ledger.Event) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"Id", "Name", "Date", "Time"}); err != nil {
		return fmt.Errorf("writing report header: %w", err)
	}
	for _, e := range events {
		row := []string{strconv.Itoa(e.UserID), e.Name, e.Date, e.Time}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("writing report row: %w", err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// ExportRange writes all events between start and end inclusive.
// An empty range still produces the header row.
func (e *Exporter) ExportRange(ctx context.Context, w io.Writer, start, end time.Time) (int, error) {
	events, err := e.store.QueryRange(ctx, start, end)
	if err != nil {
		return 0, err
	}
	if err := WriteCSV(w, events); err != nil {
		return 0, err
	}
	return len(events), nil
}

// ExportPeriod writes the daily, weekly or monthly report around the
// anchor day.
func (e *Exporter) ExportPeriod(ctx context.Context, w io.Writer, period Period, anchor time.Time) (int, error) {
	start, end, err := period.Range(anchor)
	if err != nil {
		return 0, err
	}
	return e.ExportRange(ctx, w, start, end)
}

package ledger

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// ImportStats summarizes a legacy CSV import run.
type ImportStats struct {
	Users      int
	Attendance int
	Requests   int
	Skipped    int
}

// ImportLegacyCSV performs a one-time import from the old CSV files
// (UserDetails.csv, Attendance.csv, EnrollmentRequests.csv) located in
// dir. Each table is only populated when it is currently empty, and
// malformed rows are skipped rather than aborting the import.
func (s *Store) ImportLegacyCSV(ctx context.Context, dir string) (ImportStats, error) {
	var stats ImportStats

	counts, err := s.CountAll(ctx)
	if err != nil {
		return stats, err
	}

	if counts.Users == 0 {
		n, skipped := s.importUsersCSV(ctx, filepath.Join(dir, "UserDetails.csv"))
		stats.Users, stats.Skipped = n, stats.Skipped+skipped
	}
	if counts.Attendance == 0 {
		n, skipped := s.importAttendanceCSV(ctx, filepath.Join(dir, "Attendance.csv"))
		stats.Attendance, stats.Skipped = n, stats.Skipped+skipped
	}
	if counts.Requests == 0 {
		n, skipped := s.importRequestsCSV(ctx, filepath.Join(dir, "EnrollmentRequests.csv"))
		stats.Requests, stats.Skipped = n, stats.Skipped+skipped
	}
	return stats, nil
}

// readCSV loads a CSV file and returns a column index plus data rows.
// A missing file yields no rows, which the callers treat as "nothing
// to import".
func readCSV(path string) (map[string]int, [][]string) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1

	header, err := r.Read()
	if err != nil {
		return nil, nil
	}
	cols := make(map[string]int, len(header))
	for i, name := range header {
		cols[strings.TrimSpace(name)] = i
	}

	var rows [][]string
	for {
		record, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			continue
		}
		rows = append(rows, record)
	}
	return cols, rows
}

func field(cols map[string]int, row []string, name string) (string, bool) {
	idx, ok := cols[name]
	if !ok || idx >= len(row) {
		return "", false
	}
	return strings.TrimSpace(row[idx]), true
}

func (s *Store) importUsersCSV(ctx context.Context, path string) (imported, skipped int) {
	cols, rows := readCSV(path)
	for _, row := range rows {
		rawID, okID := field(cols, row, "Id")
		name, okName := field(cols, row, "Name")
		if !okID || !okName {
			skipped++
			continue
		}
		id, err := strconv.Atoi(rawID)
		if err != nil {
			skipped++
			continue
		}
		if err := s.UpsertUser(ctx, id, name); err != nil {
			skipped++
			continue
		}
		imported++
	}
	return imported, skipped
}

func (s *Store) importAttendanceCSV(ctx context.Context, path string) (imported, skipped int) {
	cols, rows := readCSV(path)
	for _, row := range rows {
		rawID, okID := field(cols, row, "Id")
		name, okName := field(cols, row, "Name")
		date, okDate := field(cols, row, "Date")
		tm, okTime := field(cols, row, "Time")
		if !okID || !okName || !okDate || !okTime {
			skipped++
			continue
		}
		id, err := strconv.Atoi(rawID)
		if err != nil {
			skipped++
			continue
		}
		ts := fmt.Sprintf("%s %s", date, tm)
		res, err := s.db.ExecContext(ctx,
			`INSERT OR IGNORE INTO attendance(user_id, name, ts, date, time)
			 VALUES(?, ?, ?, ?, ?)`,
			id, name, ts, date, tm,
		)
		if err != nil {
			skipped++
			continue
		}
		if n, err := res.RowsAffected(); err != nil || n == 0 {
			skipped++
			continue
		}
		imported++
	}
	return imported, skipped
}

func (s *Store) importRequestsCSV(ctx context.Context, path string) (imported, skipped int) {
	cols, rows := readCSV(path)
	for _, row := range rows {
		name, okName := field(cols, row, "Name")
		contact, okContact := field(cols, row, "Contact")
		message, okMessage := field(cols, row, "Message")
		timestamp, okTS := field(cols, row, "Timestamp")
		rawStatus, okStatus := field(cols, row, "Status")
		if !okName || !okContact || !okMessage || !okTS || !okStatus {
			skipped++
			continue
		}
		status, err := ParseRequestStatus(rawStatus)
		if err != nil {
			status = StatusPending
		}
		_, err = s.db.ExecContext(ctx,
			`INSERT INTO enrollment_requests(name, contact, message, timestamp, status)
			 VALUES(?, ?, ?, ?, ?)`,
			name, contact, message, timestamp, string(status),
		)
		if err != nil {
			skipped++
			continue
		}
		imported++
	}
	return imported, skipped
}

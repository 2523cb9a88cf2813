package ledger

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// LogOutcome reports what happened to a log attempt. Deduplicated is a
// normal decision outcome, not an error.
type LogOutcome int

const (
	// Inserted means a new attendance row was written.
	Inserted LogOutcome = iota
	// Deduplicated means the (user_id, ts) pair already existed and
	// nothing was written.
	Deduplicated
)

func (o LogOutcome) String() string {
	if o == Inserted {
		return "inserted"
	}
	return "deduplicated"
}

// Event is a single attendance record. Name is a snapshot of the
// user's name at logging time so historical display survives renames
// and retirements.
type Event struct {
	ID     int64  `json:"id"`
	UserID int    `json:"user_id"`
	Name   string `json:"name"`
	TS     string `json:"ts"`
	Date   string `json:"date"`
	Time   string `json:"time"`
}

// LogAttendance appends one attendance event. The unique (user_id, ts)
// index is the mechanical duplicate guard: an exact-timestamp collision
// is silently ignored and reported as Deduplicated, with no partial
// write. The wider policy window is the session engine's job.
func (s *Store) LogAttendance(ctx context.Context, userID int, name string, ts time.Time) (LogOutcome, error) {
	res, err := s.db.ExecContext(ctx,
		`INSERT OR IGNORE INTO attendance(user_id, name, ts, date, time)
		 VALUES(?, ?, ?, ?, ?)`,
		userID, name,
		ts.Format(TimestampLayout), ts.Format(DateLayout), ts.Format(TimeLayout),
	)
	if err != nil {
		return Deduplicated, fmt.Errorf("inserting attendance for user %d: %w", userID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return Deduplicated, fmt.Errorf("checking insert result: %w", err)
	}
	if n == 0 {
		return Deduplicated, nil
	}
	return Inserted, nil
}

// LastEventTime returns the timestamp of the most recent attendance
// event for the user. The second return value is false when the user
// has no events yet.
func (s *Store) LastEventTime(ctx context.Context, userID int) (time.Time, bool, error) {
	var raw string
	err := s.db.QueryRowContext(ctx,
		"SELECT ts FROM attendance WHERE user_id = ? ORDER BY ts DESC LIMIT 1",
		userID,
	).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return time.Time{}, false, nil
	}
	if err != nil {
		return time.Time{}, false, fmt.Errorf("querying last event for user %d: %w", userID, err)
	}
	ts, err := time.ParseInLocation(TimestampLayout, raw, time.Local)
	if err != nil {
		// An unparseable row must not wedge the session loop; treat it
		// as no usable prior event.
		return time.Time{}, false, nil
	}
	return ts, true, nil
}

// QueryByDate returns all events on a YYYY-MM-DD date, ordered by
// timestamp ascending.
func (s *Store) QueryByDate(ctx context.Context, date string) ([]Event, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, user_id, name, ts, date, time FROM attendance
		 WHERE date = ? ORDER BY ts`,
		date,
	)
	if err != nil {
		return nil, fmt.Errorf("querying attendance by date: %w", err)
	}
	defer rows.Close()
	return scanEvents(rows)
}

// QueryRange returns all events with start <= ts <= end, ordered by
// timestamp ascending.
func (s *Store) QueryRange(ctx context.Context, start, end time.Time) ([]Event, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, user_id, name, ts, date, time FROM attendance
		 WHERE ts >= ? AND ts <= ? ORDER BY ts`,
		start.Format(TimestampLayout), end.Format(TimestampLayout),
	)
	if err != nil {
		return nil, fmt.Errorf("querying attendance range: %w", err)
	}
	defer rows.Close()
	return scanEvents(rows)
}

func scanEvents(rows *sql.Rows) ([]Event, error) {
	var events []Event
	for rows.Next() {
		var e Event
		if err := rows.Scan(&e.ID, &e.UserID, &e.Name, &e.TS, &e.Date, &e.Time); err != nil {
			return nil, fmt.Errorf("scanning attendance row: %w", err)
		}
		events = append(events, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating attendance rows: %w", err)
	}
	return events, nil
}

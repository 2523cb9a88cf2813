package ledger

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

// Timestamp layouts used across the ledger. The canonical ordering key
// is ts; date and time are redundant projections kept for queries.
const (
	TimestampLayout = "2006-01-02 15:04:05"
	DateLayout      = "2006-01-02"
	TimeLayout      = "15:04:05"
)

// Store wraps the single-file attendance ledger. All operations are
// atomic at the single-statement level; composite flows (approve a
// request, then create a user) are sequential calls by design and are
// not rollback-safe.
type Store struct {
	db *sql.DB
}

// Open creates or opens the ledger database file. WAL keeps dashboard
// reads from blocking on session writes; foreign keys are enforced but
// never cascade, so retired users leave their attendance rows behind.
func Open(path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("creating database dir: %w", err)
		}
	}

	dsn := "file:" + path +
		"?_pragma=journal_mode(WAL)" +
		"&_pragma=foreign_keys(1)" +
		"&_pragma=busy_timeout(5000)"

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	// A single writer at a time; the sqlite driver serializes anyway
	// and a larger pool just produces SQLITE_BUSY churn.
	db.SetMaxOpenConns(1)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("pinging database: %w", err)
	}

	s := &Store{db: db}
	if err := s.migrate(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}
	return s, nil
}

// Close closes the underlying database handle.
func (s *Store) Close() error {
	if s.db != nil {
		if err := s.db.Close(); err != nil {
			return fmt.Errorf("closing database: %w", err)
		}
	}
	return nil
}

// DB returns the underlying sql.DB for direct access in tests.
func (s *Store) DB() *sql.DB {
	return s.db
}

func (s *Store) migrate(ctx context.Context) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS users (
			id   INTEGER PRIMARY KEY,
			name TEXT NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS attendance (
			id      INTEGER PRIMARY KEY AUTOINCREMENT,
			user_id INTEGER NOT NULL,
			name    TEXT NOT NULL,
			ts      TEXT NOT NULL,
			date    TEXT NOT NULL,
			time    TEXT NOT NULL,
			UNIQUE(user_id, ts)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_attendance_user_date ON attendance(user_id, date)`,
		`CREATE INDEX IF NOT EXISTS idx_attendance_ts ON attendance(ts)`,
		`CREATE TABLE IF NOT EXISTS enrollment_requests (
			request_id INTEGER PRIMARY KEY AUTOINCREMENT,
			name       TEXT NOT NULL,
			contact    TEXT NOT NULL,
			message    TEXT NOT NULL,
			timestamp  TEXT NOT NULL,
			status     TEXT NOT NULL
		)`,
	}

	for _, stmt := range stmts {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("executing migration: %w", err)
		}
	}
	return nil
}

// Counts is a dashboard snapshot. The three counts come from separate
// statements and are not transactionally consistent with each other.
type Counts struct {
	Users      int `json:"users"`
	Attendance int `json:"attendance"`
	Requests   int `json:"requests"`
}

// CountAll returns row counts for the three ledger tables.
func (s *Store) CountAll(ctx context.Context) (Counts, error) {
	var c Counts
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM users").Scan(&c.Users); err != nil {
		return c, fmt.Errorf("counting users: %w", err)
	}
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM attendance").Scan(&c.Attendance); err != nil {
		return c, fmt.Errorf("counting attendance: %w", err)
	}
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM enrollment_requests").Scan(&c.Requests); err != nil {
		return c, fmt.Errorf("counting requests: %w", err)
	}
	return c, nil
}

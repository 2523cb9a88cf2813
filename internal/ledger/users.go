package ledger

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
)

// ErrUserNotFound is returned when an operation references a user ID
// that is not present in the ledger.
var ErrUserNotFound = errors.New("user not found")

// User is an enrolled identity. IDs are assigned at enrollment and
// immutable afterwards.
type User struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}

// UpsertUser inserts a user or updates the display name of an existing
// one. Attendance rows keep their own name snapshot, so renames never
// rewrite history.
func (s *Store) UpsertUser(ctx context.Context, id int, name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return errors.New("user name cannot be empty")
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO users(id, name) VALUES(?, ?)
		 ON CONFLICT(id) DO UPDATE SET name = excluded.name`,
		id, name,
	)
	if err != nil {
		return fmt.Errorf("upserting user %d: %w", id, err)
	}
	return nil
}

// ListUsers returns all enrolled users ordered by ID.
func (s *Store) ListUsers(ctx context.Context) ([]User, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT id, name FROM users ORDER BY id")
	if err != nil {
		return nil, fmt.Errorf("querying users: %w", err)
	}
	defer rows.Close()

	var users []User
	for rows.Next() {
		var u User
		if err := rows.Scan(&u.ID, &u.Name); err != nil {
			return nil, fmt.Errorf("scanning user: %w", err)
		}
		users = append(users, u)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating users: %w", err)
	}
	return users, nil
}

// GetUser returns a single user by ID.
func (s *Store) GetUser(ctx context.Context, id int) (User, error) {
	var u User
	err := s.db.QueryRowContext(ctx, "SELECT id, name FROM users WHERE id = ?", id).
		Scan(&u.ID, &u.Name)
	if errors.Is(err, sql.ErrNoRows) {
		return User{}, ErrUserNotFound
	}
	if err != nil {
		return User{}, fmt.Errorf("querying user %d: %w", id, err)
	}
	return u, nil
}

// RetireUser removes the user row. Historical attendance rows remain
// queryable with an orphaned user_id; the caller is responsible for
// deleting the user's face samples alongside this call.
func (s *Store) RetireUser(ctx context.Context, id int) error {
	res, err := s.db.ExecContext(ctx, "DELETE FROM users WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("deleting user %d: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking delete result: %w", err)
	}
	if n == 0 {
		return ErrUserNotFound
	}
	return nil
}

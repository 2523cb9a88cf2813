package ledger

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"
)

// RequestStatus is the three-state enrollment request lifecycle.
type RequestStatus string

const (
	StatusPending  RequestStatus = "pending"
	StatusApproved RequestStatus = "approved"
	StatusRejected RequestStatus = "rejected"
)

var (
	// ErrRequestNotFound is returned for unknown request IDs.
	ErrRequestNotFound = errors.New("enrollment request not found")
	// ErrInvalidStatus is returned for a status outside the enum.
	ErrInvalidStatus = errors.New("invalid request status")
	// ErrRequestDecided is returned when trying to change a request
	// that has already left the pending state.
	ErrRequestDecided = errors.New("request already decided")
)

// ParseRequestStatus validates a status string against the enum.
func ParseRequestStatus(s string) (RequestStatus, error) {
	switch RequestStatus(strings.ToLower(strings.TrimSpace(s))) {
	case StatusPending:
		return StatusPending, nil
	case StatusApproved:
		return StatusApproved, nil
	case StatusRejected:
		return StatusRejected, nil
	}
	return "", ErrInvalidStatus
}

// Request is a self-service enrollment request awaiting an admin
// decision.
type Request struct {
	ID        int64         `json:"request_id"`
	Name      string        `json:"name"`
	Contact   string        `json:"contact"`
	Message   string        `json:"message"`
	Timestamp string        `json:"timestamp"`
	Status    RequestStatus `json:"status"`
}

// SubmitRequest records a new pending enrollment request and returns
// its assigned ID.
func (s *Store) SubmitRequest(ctx context.Context, name, contact, message string) (int64, error) {
	name = strings.TrimSpace(name)
	contact = strings.TrimSpace(contact)
	message = strings.TrimSpace(message)
	if name == "" {
		return 0, errors.New("name is required")
	}
	if contact == "" {
		return 0, errors.New("contact info is required")
	}
	if message == "" {
		return 0, errors.New("message is required")
	}

	res, err := s.db.ExecContext(ctx,
		`INSERT INTO enrollment_requests(name, contact, message, timestamp, status)
		 VALUES(?, ?, ?, ?, ?)`,
		name, contact, message, time.Now().Format(TimestampLayout), string(StatusPending),
	)
	if err != nil {
		return 0, fmt.Errorf("inserting enrollment request: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("reading request id: %w", err)
	}
	return id, nil
}

// ListRequests returns all enrollment requests ordered by ID.
func (s *Store) ListRequests(ctx context.Context) ([]Request, error) {
	return s.listRequests(ctx,
		`SELECT request_id, name, contact, message, timestamp, status
		 FROM enrollment_requests ORDER BY request_id`)
}

// ListPending returns only requests still awaiting a decision.
func (s *Store) ListPending(ctx context.Context) ([]Request, error) {
	return s.listRequests(ctx,
		`SELECT request_id, name, contact, message, timestamp, status
		 FROM enrollment_requests WHERE status = 'pending' ORDER BY request_id`)
}

func (s *Store) listRequests(ctx context.Context, query string) ([]Request, error) {
	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("querying enrollment requests: %w", err)
	}
	defer rows.Close()

	var requests []Request
	for rows.Next() {
		var r Request
		var status string
		if err := rows.Scan(&r.ID, &r.Name, &r.Contact, &r.Message, &r.Timestamp, &status); err != nil {
			return nil, fmt.Errorf("scanning enrollment request: %w", err)
		}
		r.Status = RequestStatus(strings.ToLower(status))
		requests = append(requests, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating enrollment requests: %w", err)
	}
	return requests, nil
}

// SetRequestStatus transitions a request. Only pending requests may be
// approved or rejected; a decided request never changes again.
func (s *Store) SetRequestStatus(ctx context.Context, id int64, status RequestStatus) error {
	if status != StatusApproved && status != StatusRejected {
		return ErrInvalidStatus
	}

	var current string
	err := s.db.QueryRowContext(ctx,
		"SELECT status FROM enrollment_requests WHERE request_id = ?", id,
	).Scan(&current)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrRequestNotFound
	}
	if err != nil {
		return fmt.Errorf("querying request %d: %w", id, err)
	}
	if RequestStatus(strings.ToLower(current)) != StatusPending {
		return ErrRequestDecided
	}

	// The WHERE clause re-checks pending so a concurrent decision
	// loses cleanly instead of overwriting.
	res, err := s.db.ExecContext(ctx,
		"UPDATE enrollment_requests SET status = ? WHERE request_id = ? AND status = 'pending'",
		string(status), id,
	)
	if err != nil {
		return fmt.Errorf("updating request %d: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking update result: %w", err)
	}
	if n == 0 {
		return ErrRequestDecided
	}
	return nil
}

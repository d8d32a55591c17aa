package store

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/leadgrid/leadgrid/internal/domain"
)

// TicketStore persists support tickets.
type TicketStore struct {
	db *DB
}

// NewTicketStore creates a ticket store using the given database.
func NewTicketStore(db *DB) *TicketStore {
	return &TicketStore{db: db}
}

// Create inserts a new ticket in open state.
func (s *TicketStore) Create(t *domain.Ticket) error {
	if t.ID == "" {
		t.ID = uuid.New().String()
	}
	if t.Status == "" {
		t.Status = domain.TicketStatusOpen
	}
	now := time.Now().UTC()
	t.CreatedAt = now
	t.UpdatedAt = now

	_, err := s.db.sql.Exec(
		`INSERT INTO tickets (id, user_id, subject, body, status, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		t.ID, t.UserID, t.Subject, t.Body, t.Status,
		now.Format(time.DateTime), now.Format(time.DateTime),
	)
	if err != nil {
		return fmt.Errorf("inserting ticket: %w", err)
	}
	return nil
}

// Get returns a ticket by ID.
func (s *TicketStore) Get(id string) (*domain.Ticket, error) {
	row := s.db.sql.QueryRow(
		`SELECT id, user_id, subject, body, status, created_at, updated_at
		 FROM tickets WHERE id = ?`, id,
	)
	return scanTicket(row)
}

// ListByUser returns a user's tickets, newest first.
func (s *TicketStore) ListByUser(userID string) ([]*domain.Ticket, error) {
	rows, err := s.db.sql.Query(
		`SELECT id, user_id, subject, body, status, created_at, updated_at
		 FROM tickets WHERE user_id = ? ORDER BY created_at DESC`, userID,
	)
	if err != nil {
		return nil, fmt.Errorf("listing tickets: %w", err)
	}
	defer rows.Close()

	var out []*domain.Ticket
	for rows.Next() {
		t, err := scanTicket(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

// UpdateStatus moves a ticket to a new workflow state.
func (s *TicketStore) UpdateStatus(id string, status domain.TicketStatus) error {
	res, err := s.db.sql.Exec(
		`UPDATE tickets SET status = ?, updated_at = ? WHERE id = ?`,
		status, time.Now().UTC().Format(time.DateTime), id,
	)
	if err != nil {
		return fmt.Errorf("updating ticket status: %w", err)
	}
	return requireRow(res)
}

func scanTicket(row rowScanner) (*domain.Ticket, error) {
	var t domain.Ticket
	var createdAt, updatedAt string
	err := row.Scan(&t.ID, &t.UserID, &t.Subject, &t.Body, &t.Status, &createdAt, &updatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scanning ticket: %w", err)
	}
	t.CreatedAt, _ = time.Parse(time.DateTime, createdAt)
	t.UpdatedAt, _ = time.Parse(time.DateTime, updatedAt)
	return &t, nil
}

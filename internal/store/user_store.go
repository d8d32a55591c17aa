package store

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/leadgrid/leadgrid/internal/domain"
)

// UserStore persists account holders.
type UserStore struct {
	db *DB
}

// NewUserStore creates a user store using the given database.
func NewUserStore(db *DB) *UserStore {
	return &UserStore{db: db}
}

// Create inserts a new user. Emails are unique, case-insensitively.
func (s *UserStore) Create(u *domain.User) error {
	if u.ID == "" {
		u.ID = uuid.New().String()
	}
	now := time.Now().UTC()
	u.CreatedAt = now
	u.UpdatedAt = now

	_, err := s.db.sql.Exec(
		`INSERT INTO users (id, email, name, company, approved, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		u.ID, strings.ToLower(u.Email), u.Name, u.Company, boolToInt(u.Approved),
		now.Format(time.DateTime), now.Format(time.DateTime),
	)
	if err != nil {
		return fmt.Errorf("inserting user: %w", err)
	}
	return nil
}

// Get returns a user by ID.
func (s *UserStore) Get(id string) (*domain.User, error) {
	return s.getBy("id", id)
}

// GetByEmail returns a user by email address.
func (s *UserStore) GetByEmail(email string) (*domain.User, error) {
	return s.getBy("email", strings.ToLower(email))
}

// SetApproved flips the account approval flag.
func (s *UserStore) SetApproved(id string, approved bool) error {
	res, err := s.db.sql.Exec(
		`UPDATE users SET approved = ?, updated_at = ? WHERE id = ?`,
		boolToInt(approved), time.Now().UTC().Format(time.DateTime), id,
	)
	if err != nil {
		return fmt.Errorf("updating user approval: %w", err)
	}
	return requireRow(res)
}

func (s *UserStore) getBy(column, value string) (*domain.User, error) {
	var u domain.User
	var approved int
	var createdAt, updatedAt string
	err := s.db.sql.QueryRow(
		`SELECT id, email, name, company, approved, created_at, updated_at
		 FROM users WHERE `+column+` = ?`, value,
	).Scan(&u.ID, &u.Email, &u.Name, &u.Company, &approved, &createdAt, &updatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scanning user: %w", err)
	}
	u.Approved = approved != 0
	u.CreatedAt, _ = time.Parse(time.DateTime, createdAt)
	u.UpdatedAt, _ = time.Parse(time.DateTime, updatedAt)
	return &u, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

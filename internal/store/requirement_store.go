package store

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/leadgrid/leadgrid/internal/domain"
)

// ErrNotFound is returned when a requested row does not exist.
var ErrNotFound = errors.New("not found")

// RequirementStore persists requirements.
type RequirementStore struct {
	db *DB
}

// NewRequirementStore creates a requirement store using the given database.
func NewRequirementStore(db *DB) *RequirementStore {
	return &RequirementStore{db: db}
}

// Create inserts a new requirement, filling in ID and timestamps.
func (s *RequirementStore) Create(r *domain.Requirement) error {
	if r.ID == "" {
		r.ID = uuid.New().String()
	}
	if r.Status == "" {
		r.Status = domain.RequirementStatusNew
	}
	now := time.Now().UTC()
	r.CreatedAt = now
	r.UpdatedAt = now

	_, err := s.db.sql.Exec(
		`INSERT INTO requirements
			(id, user_id, free_text, industry, product_service, target_location, target_market, primary_industry, status, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		r.ID, r.UserID, r.FreeText, r.Industry, r.ProductService,
		r.TargetLocation, r.TargetMarket, r.PrimaryIndustry, r.Status,
		now.Format(time.DateTime), now.Format(time.DateTime),
	)
	if err != nil {
		return fmt.Errorf("inserting requirement: %w", err)
	}
	return nil
}

// Get returns a requirement by ID.
func (s *RequirementStore) Get(id string) (*domain.Requirement, error) {
	row := s.db.sql.QueryRow(
		`SELECT id, user_id, free_text, industry, product_service, target_location, target_market, primary_industry, status, created_at, updated_at
		 FROM requirements WHERE id = ?`, id,
	)
	return scanRequirement(row)
}

// ListByUser returns a user's requirements, newest first.
func (s *RequirementStore) ListByUser(userID string) ([]*domain.Requirement, error) {
	rows, err := s.db.sql.Query(
		`SELECT id, user_id, free_text, industry, product_service, target_location, target_market, primary_industry, status, created_at, updated_at
		 FROM requirements WHERE user_id = ? ORDER BY created_at DESC`, userID,
	)
	if err != nil {
		return nil, fmt.Errorf("listing requirements: %w", err)
	}
	defer rows.Close()

	var out []*domain.Requirement
	for rows.Next() {
		r, err := scanRequirement(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// UpdateStatus moves a requirement to a new pipeline state.
func (s *RequirementStore) UpdateStatus(id string, status domain.RequirementStatus) error {
	res, err := s.db.sql.Exec(
		`UPDATE requirements SET status = ?, updated_at = ? WHERE id = ?`,
		status, time.Now().UTC().Format(time.DateTime), id,
	)
	if err != nil {
		return fmt.Errorf("updating requirement status: %w", err)
	}
	return requireRow(res)
}

// SetPrimaryIndustry records the classified primary industry.
func (s *RequirementStore) SetPrimaryIndustry(id, industry string) error {
	res, err := s.db.sql.Exec(
		`UPDATE requirements SET primary_industry = ?, updated_at = ? WHERE id = ?`,
		industry, time.Now().UTC().Format(time.DateTime), id,
	)
	if err != nil {
		return fmt.Errorf("setting primary industry: %w", err)
	}
	return requireRow(res)
}

// Delete removes a requirement and, via cascade, its roles and leads.
func (s *RequirementStore) Delete(id string) error {
	res, err := s.db.sql.Exec(`DELETE FROM requirements WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("deleting requirement: %w", err)
	}
	return requireRow(res)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRequirement(row rowScanner) (*domain.Requirement, error) {
	var r domain.Requirement
	var createdAt, updatedAt string
	err := row.Scan(
		&r.ID, &r.UserID, &r.FreeText, &r.Industry, &r.ProductService,
		&r.TargetLocation, &r.TargetMarket, &r.PrimaryIndustry, &r.Status,
		&createdAt, &updatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scanning requirement: %w", err)
	}
	r.CreatedAt, _ = time.Parse(time.DateTime, createdAt)
	r.UpdatedAt, _ = time.Parse(time.DateTime, updatedAt)
	return &r, nil
}

// requireRow converts a zero-rows-affected update into ErrNotFound.
func requireRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

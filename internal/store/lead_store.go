package store

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/leadgrid/leadgrid/internal/domain"
)

// LeadStore persists leads found through people search.
type LeadStore struct {
	db *DB
}

// NewLeadStore creates a lead store using the given database.
func NewLeadStore(db *DB) *LeadStore {
	return &LeadStore{db: db}
}

// Upsert inserts a lead, deduplicating on (requirement, apollo_id) so a
// re-run of a search does not duplicate contacts. Leads without an Apollo ID
// are always inserted. On a duplicate the existing row is updated and l.ID is
// rewritten to the stored row's id.
func (s *LeadStore) Upsert(l *domain.Lead) error {
	if l.ID == "" {
		l.ID = uuid.New().String()
	}
	if l.Status == "" {
		l.Status = domain.LeadStatusFound
	}
	now := time.Now().UTC()

	row := s.db.sql.QueryRow(
		`INSERT INTO leads
			(id, requirement_id, apollo_id, first_name, last_name, title, company, company_domain, email, linkedin_url, location, status, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT (requirement_id, apollo_id) WHERE apollo_id != '' DO UPDATE SET
			first_name = excluded.first_name,
			last_name = excluded.last_name,
			title = excluded.title,
			company = excluded.company,
			company_domain = excluded.company_domain,
			linkedin_url = excluded.linkedin_url,
			location = excluded.location,
			updated_at = excluded.updated_at
		 RETURNING id`,
		l.ID, l.RequirementID, l.ApolloID, l.FirstName, l.LastName, l.Title,
		l.Company, l.CompanyDomain, l.Email, l.LinkedInURL, l.Location, l.Status,
		now.Format(time.DateTime), now.Format(time.DateTime),
	)
	if err := row.Scan(&l.ID); err != nil {
		return fmt.Errorf("upserting lead: %w", err)
	}
	return nil
}

// Get returns a lead by ID.
func (s *LeadStore) Get(id string) (*domain.Lead, error) {
	row := s.db.sql.QueryRow(
		`SELECT id, requirement_id, apollo_id, first_name, last_name, title, company, company_domain, email, linkedin_url, location, status, created_at, updated_at
		 FROM leads WHERE id = ?`, id,
	)
	return scanLead(row)
}

// ListByRequirement returns a requirement's leads, newest first.
func (s *LeadStore) ListByRequirement(requirementID string) ([]*domain.Lead, error) {
	rows, err := s.db.sql.Query(
		`SELECT id, requirement_id, apollo_id, first_name, last_name, title, company, company_domain, email, linkedin_url, location, status, created_at, updated_at
		 FROM leads WHERE requirement_id = ? ORDER BY created_at DESC, id`, requirementID,
	)
	if err != nil {
		return nil, fmt.Errorf("listing leads: %w", err)
	}
	defer rows.Close()

	var out []*domain.Lead
	for rows.Next() {
		l, err := scanLead(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, l)
	}
	return out, rows.Err()
}

// SetEnriched records a verified email from enrichment and advances status.
func (s *LeadStore) SetEnriched(id, email string) error {
	res, err := s.db.sql.Exec(
		`UPDATE leads SET email = ?, status = ?, updated_at = ? WHERE id = ?`,
		email, domain.LeadStatusEnriched, time.Now().UTC().Format(time.DateTime), id,
	)
	if err != nil {
		return fmt.Errorf("enriching lead: %w", err)
	}
	return requireRow(res)
}

// UpdateStatus moves a lead to a new outreach state.
func (s *LeadStore) UpdateStatus(id string, status domain.LeadStatus) error {
	res, err := s.db.sql.Exec(
		`UPDATE leads SET status = ?, updated_at = ? WHERE id = ?`,
		status, time.Now().UTC().Format(time.DateTime), id,
	)
	if err != nil {
		return fmt.Errorf("updating lead status: %w", err)
	}
	return requireRow(res)
}

func scanLead(row rowScanner) (*domain.Lead, error) {
	var l domain.Lead
	var createdAt, updatedAt string
	err := row.Scan(
		&l.ID, &l.RequirementID, &l.ApolloID, &l.FirstName, &l.LastName,
		&l.Title, &l.Company, &l.CompanyDomain, &l.Email, &l.LinkedInURL,
		&l.Location, &l.Status, &createdAt, &updatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scanning lead: %w", err)
	}
	l.CreatedAt, _ = time.Parse(time.DateTime, createdAt)
	l.UpdatedAt, _ = time.Parse(time.DateTime, updatedAt)
	return &l, nil
}

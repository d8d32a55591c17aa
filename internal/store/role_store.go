package store

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/leadgrid/leadgrid/internal/domain"
)

// RoleStore persists ranked decision-maker roles per requirement.
type RoleStore struct {
	db *DB
}

// NewRoleStore creates a role store using the given database.
func NewRoleStore(db *DB) *RoleStore {
	return &RoleStore{db: db}
}

// UpsertByKey inserts a role or, if the requirement already has a role with
// the same case-insensitive title, updates it in place. Re-running a
// classification therefore refreshes priorities instead of duplicating rows.
func (s *RoleStore) UpsertByKey(r *domain.DecisionMakerRole) error {
	if r.ID == "" {
		r.ID = uuid.New().String()
	}
	now := time.Now().UTC()
	_, err := s.db.sql.Exec(
		`INSERT INTO decision_maker_roles
			(id, requirement_id, role, role_key, priority, reasoning, industry_relevance, confidence, provider, model, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT (requirement_id, role_key) DO UPDATE SET
			role = excluded.role,
			priority = excluded.priority,
			reasoning = excluded.reasoning,
			industry_relevance = excluded.industry_relevance,
			confidence = excluded.confidence,
			provider = excluded.provider,
			model = excluded.model,
			updated_at = excluded.updated_at`,
		r.ID, r.RequirementID, r.Role, strings.ToLower(r.Role),
		r.Priority, r.Reasoning, r.Relevance, r.Confidence, r.Provider, r.Model,
		now.Format(time.DateTime), now.Format(time.DateTime),
	)
	if err != nil {
		return fmt.Errorf("upserting role: %w", err)
	}
	return nil
}

// ReplaceForRequirement replaces the requirement's role list atomically.
// Roles absent from the new list are removed.
func (s *RoleStore) ReplaceForRequirement(requirementID string, roles []*domain.DecisionMakerRole) error {
	tx, err := s.db.sql.Begin()
	if err != nil {
		return fmt.Errorf("begin role replace: %w", err)
	}
	defer tx.Rollback()

	keys := make([]string, 0, len(roles))
	now := time.Now().UTC().Format(time.DateTime)
	for _, r := range roles {
		if r.ID == "" {
			r.ID = uuid.New().String()
		}
		key := strings.ToLower(r.Role)
		keys = append(keys, key)
		if _, err := tx.Exec(
			`INSERT INTO decision_maker_roles
				(id, requirement_id, role, role_key, priority, reasoning, industry_relevance, confidence, provider, model, created_at, updated_at)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
			 ON CONFLICT (requirement_id, role_key) DO UPDATE SET
				role = excluded.role,
				priority = excluded.priority,
				reasoning = excluded.reasoning,
				industry_relevance = excluded.industry_relevance,
				confidence = excluded.confidence,
				provider = excluded.provider,
				model = excluded.model,
				updated_at = excluded.updated_at`,
			r.ID, requirementID, r.Role, key,
			r.Priority, r.Reasoning, r.Relevance, r.Confidence, r.Provider, r.Model,
			now, now,
		); err != nil {
			return fmt.Errorf("upserting role %q: %w", r.Role, err)
		}
	}

	// Drop roles not present in the new ranking.
	query := `DELETE FROM decision_maker_roles WHERE requirement_id = ?`
	args := []any{requirementID}
	if len(keys) > 0 {
		query += ` AND role_key NOT IN (?` + strings.Repeat(",?", len(keys)-1) + `)`
		for _, k := range keys {
			args = append(args, k)
		}
	}
	if _, err := tx.Exec(query, args...); err != nil {
		return fmt.Errorf("pruning stale roles: %w", err)
	}

	return tx.Commit()
}

// ListByRequirement returns a requirement's roles in priority order.
func (s *RoleStore) ListByRequirement(requirementID string) ([]*domain.DecisionMakerRole, error) {
	rows, err := s.db.sql.Query(
		`SELECT id, requirement_id, role, priority, reasoning, industry_relevance, confidence, provider, model, created_at, updated_at
		 FROM decision_maker_roles WHERE requirement_id = ? ORDER BY priority`, requirementID,
	)
	if err != nil {
		return nil, fmt.Errorf("listing roles: %w", err)
	}
	defer rows.Close()

	var out []*domain.DecisionMakerRole
	for rows.Next() {
		var r domain.DecisionMakerRole
		var createdAt, updatedAt string
		if err := rows.Scan(
			&r.ID, &r.RequirementID, &r.Role, &r.Priority, &r.Reasoning,
			&r.Relevance, &r.Confidence, &r.Provider, &r.Model,
			&createdAt, &updatedAt,
		); err != nil {
			return nil, fmt.Errorf("scanning role: %w", err)
		}
		r.CreatedAt, _ = time.Parse(time.DateTime, createdAt)
		r.UpdatedAt, _ = time.Parse(time.DateTime, updatedAt)
		out = append(out, &r)
	}
	return out, rows.Err()
}

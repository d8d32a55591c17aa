package store

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/leadgrid/leadgrid/internal/domain"
)

// CampaignStore persists outreach campaigns, sent messages, and replies.
type CampaignStore struct {
	db *DB
}

// NewCampaignStore creates a campaign store using the given database.
func NewCampaignStore(db *DB) *CampaignStore {
	return &CampaignStore{db: db}
}

// Create inserts a new campaign in draft state.
func (s *CampaignStore) Create(c *domain.Campaign) error {
	if c.ID == "" {
		c.ID = uuid.New().String()
	}
	if c.Status == "" {
		c.Status = domain.CampaignStatusDraft
	}
	now := time.Now().UTC()
	c.CreatedAt = now
	c.UpdatedAt = now

	_, err := s.db.sql.Exec(
		`INSERT INTO campaigns
			(id, requirement_id, user_id, name, subject, body_template, status, sent_count, reply_count, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		c.ID, c.RequirementID, c.UserID, c.Name, c.Subject, c.BodyTemplate,
		c.Status, c.SentCount, c.ReplyCount,
		now.Format(time.DateTime), now.Format(time.DateTime),
	)
	if err != nil {
		return fmt.Errorf("inserting campaign: %w", err)
	}
	return nil
}

// Get returns a campaign by ID.
func (s *CampaignStore) Get(id string) (*domain.Campaign, error) {
	row := s.db.sql.QueryRow(
		`SELECT id, requirement_id, user_id, name, subject, body_template, status, sent_count, reply_count, created_at, updated_at
		 FROM campaigns WHERE id = ?`, id,
	)
	return scanCampaign(row)
}

// ListByRequirement returns a requirement's campaigns, newest first.
func (s *CampaignStore) ListByRequirement(requirementID string) ([]*domain.Campaign, error) {
	rows, err := s.db.sql.Query(
		`SELECT id, requirement_id, user_id, name, subject, body_template, status, sent_count, reply_count, created_at, updated_at
		 FROM campaigns WHERE requirement_id = ? ORDER BY created_at DESC`, requirementID,
	)
	if err != nil {
		return nil, fmt.Errorf("listing campaigns: %w", err)
	}
	defer rows.Close()

	var out []*domain.Campaign
	for rows.Next() {
		c, err := scanCampaign(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// UpdateStatus moves a campaign to a new lifecycle state.
func (s *CampaignStore) UpdateStatus(id string, status domain.CampaignStatus) error {
	res, err := s.db.sql.Exec(
		`UPDATE campaigns SET status = ?, updated_at = ? WHERE id = ?`,
		status, time.Now().UTC().Format(time.DateTime), id,
	)
	if err != nil {
		return fmt.Errorf("updating campaign status: %w", err)
	}
	return requireRow(res)
}

// RecordSent logs one sent message and bumps the campaign's sent counter.
func (s *CampaignStore) RecordSent(m *domain.CampaignMessage) error {
	if m.ID == "" {
		m.ID = uuid.New().String()
	}
	if m.SentAt.IsZero() {
		m.SentAt = time.Now().UTC()
	}

	tx, err := s.db.sql.Begin()
	if err != nil {
		return fmt.Errorf("begin record sent: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(
		`INSERT INTO campaign_messages (id, campaign_id, lead_id, message_id, subject, sent_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		m.ID, m.CampaignID, m.LeadID, m.MessageID, m.Subject,
		m.SentAt.Format(time.DateTime),
	); err != nil {
		return fmt.Errorf("inserting campaign message: %w", err)
	}

	if _, err := tx.Exec(
		`UPDATE campaigns SET sent_count = sent_count + 1, updated_at = ? WHERE id = ?`,
		time.Now().UTC().Format(time.DateTime), m.CampaignID,
	); err != nil {
		return fmt.Errorf("bumping sent count: %w", err)
	}

	return tx.Commit()
}

// RecordReply stores an inbound reply and, when matched to a campaign,
// bumps its reply counter.
func (s *CampaignStore) RecordReply(r *domain.ReplyEvent) error {
	if r.ID == "" {
		r.ID = uuid.New().String()
	}
	if r.ReceivedAt.IsZero() {
		r.ReceivedAt = time.Now().UTC()
	}

	tx, err := s.db.sql.Begin()
	if err != nil {
		return fmt.Errorf("begin record reply: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(
		`INSERT INTO replies (id, campaign_id, lead_id, from_address, subject, snippet, received_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		r.ID, r.CampaignID, r.LeadID, r.FromAddress, r.Subject, r.Snippet,
		r.ReceivedAt.Format(time.DateTime),
	); err != nil {
		return fmt.Errorf("inserting reply: %w", err)
	}

	if r.CampaignID != "" {
		if _, err := tx.Exec(
			`UPDATE campaigns SET reply_count = reply_count + 1, updated_at = ? WHERE id = ?`,
			time.Now().UTC().Format(time.DateTime), r.CampaignID,
		); err != nil {
			return fmt.Errorf("bumping reply count: %w", err)
		}
	}

	return tx.Commit()
}

// MatchMessageID resolves an In-Reply-To header back to the campaign and
// lead the original message was sent to. Returns ErrNotFound for mail that
// is not a reply to anything we sent.
func (s *CampaignStore) MatchMessageID(messageID string) (campaignID, leadID string, err error) {
	err = s.db.sql.QueryRow(
		`SELECT campaign_id, lead_id FROM campaign_messages WHERE message_id = ?`, messageID,
	).Scan(&campaignID, &leadID)
	if errors.Is(err, sql.ErrNoRows) {
		return "", "", ErrNotFound
	}
	if err != nil {
		return "", "", fmt.Errorf("matching message id: %w", err)
	}
	return campaignID, leadID, nil
}

func scanCampaign(row rowScanner) (*domain.Campaign, error) {
	var c domain.Campaign
	var createdAt, updatedAt string
	err := row.Scan(
		&c.ID, &c.RequirementID, &c.UserID, &c.Name, &c.Subject, &c.BodyTemplate,
		&c.Status, &c.SentCount, &c.ReplyCount, &createdAt, &updatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scanning campaign: %w", err)
	}
	c.CreatedAt, _ = time.Parse(time.DateTime, createdAt)
	c.UpdatedAt, _ = time.Parse(time.DateTime, updatedAt)
	return &c, nil
}

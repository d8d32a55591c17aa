// Package jobs is a SQLite-backed background job queue. Jobs survive
// restarts, are claimed with a lease so a crashed worker's job comes back,
// and retry a bounded number of times before being marked failed.
package jobs

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/leadgrid/leadgrid/internal/store"
)

// Job statuses.
const (
	StatusQueued  = "queued"
	StatusRunning = "running"
	StatusDone    = "done"
	StatusFailed  = "failed"
)

// Well-known job kinds.
const (
	KindScrapeLeads  = "scrape_leads"
	KindEnrichLead   = "enrich_lead"
	KindSendCampaign = "send_campaign"
)

// leaseDuration is how long a claimed job stays invisible to other workers.
const leaseDuration = 5 * time.Minute

// Job is one unit of queued background work.
type Job struct {
	ID          int64
	Kind        string
	Payload     json.RawMessage
	Status      string
	Attempts    int
	MaxAttempts int
	LastError   string
	CreatedAt   time.Time
}

// ErrNoJob is returned by Claim when nothing is ready to run.
var ErrNoJob = errors.New("no job available")

// Queue persists and hands out jobs.
type Queue struct {
	db *store.DB
}

// NewQueue creates a queue over the given database. The jobs table is part
// of the store's migrations.
func NewQueue(db *store.DB) *Queue {
	return &Queue{db: db}
}

// Enqueue adds a job. payload must marshal to JSON.
func (q *Queue) Enqueue(kind string, payload any, maxAttempts int) (int64, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return 0, fmt.Errorf("marshaling job payload: %w", err)
	}
	if maxAttempts < 1 {
		maxAttempts = 1
	}

	res, err := q.db.SQL().Exec(
		`INSERT INTO jobs (kind, payload, status, max_attempts, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		kind, string(data), StatusQueued, maxAttempts,
		time.Now().UTC().Format(time.DateTime), time.Now().UTC().Format(time.DateTime),
	)
	if err != nil {
		return 0, fmt.Errorf("enqueueing job: %w", err)
	}
	return res.LastInsertId()
}

// Claim atomically takes the oldest runnable job: either queued, or running
// with an expired lease (its worker died). Returns ErrNoJob when idle.
func (q *Queue) Claim() (*Job, error) {
	now := time.Now().UTC().Format(time.DateTime)
	lease := time.Now().UTC().Add(leaseDuration).Format(time.DateTime)

	tx, err := q.db.SQL().Begin()
	if err != nil {
		return nil, fmt.Errorf("begin claim: %w", err)
	}
	defer tx.Rollback()

	var j Job
	var payload, createdAt string
	err = tx.QueryRow(
		`SELECT id, kind, payload, attempts, max_attempts, last_error, created_at
		 FROM jobs
		 WHERE status = ? OR (status = ? AND lease_until < ?)
		 ORDER BY id LIMIT 1`,
		StatusQueued, StatusRunning, now,
	).Scan(&j.ID, &j.Kind, &payload, &j.Attempts, &j.MaxAttempts, &j.LastError, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNoJob
	}
	if err != nil {
		return nil, fmt.Errorf("selecting job: %w", err)
	}

	if _, err := tx.Exec(
		`UPDATE jobs SET status = ?, attempts = attempts + 1, lease_until = ?, updated_at = ? WHERE id = ?`,
		StatusRunning, lease, now, j.ID,
	); err != nil {
		return nil, fmt.Errorf("claiming job %d: %w", j.ID, err)
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit claim: %w", err)
	}

	j.Status = StatusRunning
	j.Attempts++
	j.Payload = json.RawMessage(payload)
	j.CreatedAt, _ = time.Parse(time.DateTime, createdAt)
	return &j, nil
}

// Complete marks a job done.
func (q *Queue) Complete(id int64) error {
	_, err := q.db.SQL().Exec(
		`UPDATE jobs SET status = ?, lease_until = '', updated_at = ? WHERE id = ?`,
		StatusDone, time.Now().UTC().Format(time.DateTime), id,
	)
	if err != nil {
		return fmt.Errorf("completing job %d: %w", id, err)
	}
	return nil
}

// Fail records a failed attempt. The job goes back to queued until its
// attempt budget runs out, then it is marked failed for good.
func (q *Queue) Fail(j *Job, cause error) error {
	status := StatusQueued
	if j.Attempts >= j.MaxAttempts {
		status = StatusFailed
	}
	msg := ""
	if cause != nil {
		msg = cause.Error()
	}

	_, err := q.db.SQL().Exec(
		`UPDATE jobs SET status = ?, lease_until = '', last_error = ?, updated_at = ? WHERE id = ?`,
		status, msg, time.Now().UTC().Format(time.DateTime), j.ID,
	)
	if err != nil {
		return fmt.Errorf("failing job %d: %w", j.ID, err)
	}
	return nil
}

// Counts returns the number of jobs per status, for the status endpoint.
func (q *Queue) Counts() (map[string]int, error) {
	rows, err := q.db.SQL().Query(`SELECT status, COUNT(*) FROM jobs GROUP BY status`)
	if err != nil {
		return nil, fmt.Errorf("counting jobs: %w", err)
	}
	defer rows.Close()

	counts := map[string]int{}
	for rows.Next() {
		var status string
		var n int
		if err := rows.Scan(&status, &n); err != nil {
			return nil, err
		}
		counts[status] = n
	}
	return counts, rows.Err()
}

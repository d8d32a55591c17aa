// Package pipeline wires the classification core to storage, background
// jobs, and lifecycle hooks. It owns the requirement lifecycle from free
// text to a ranked role list with leads on the way.
package pipeline

import (
	"context"
	"fmt"

	"github.com/leadgrid/leadgrid/internal/domain"
	"github.com/leadgrid/leadgrid/internal/hooks"
	"github.com/leadgrid/leadgrid/internal/jobs"
	"github.com/leadgrid/leadgrid/internal/logging"
	"github.com/leadgrid/leadgrid/internal/orchestrate"
	"github.com/leadgrid/leadgrid/internal/store"
)

// Classifier runs requirement classification end to end: roles, industry,
// persistence, status transitions, hooks, and the follow-up scrape job.
type Classifier struct {
	orch         *orchestrate.Orchestrator
	requirements *store.RequirementStore
	roles        *store.RoleStore
	queue        *jobs.Queue
	hooks        *hooks.Manager
	log          *logging.Logger
}

// NewClassifier assembles a classifier. queue and hooks may be nil in
// tests; the corresponding side effects are skipped.
func NewClassifier(
	orch *orchestrate.Orchestrator,
	requirements *store.RequirementStore,
	roles *store.RoleStore,
	queue *jobs.Queue,
	hookMgr *hooks.Manager,
	log *logging.Logger,
) *Classifier {
	return &Classifier{
		orch:         orch,
		requirements: requirements,
		roles:        roles,
		queue:        queue,
		hooks:        hookMgr,
		log:          log.Sub("pipeline"),
	}
}

// ClassificationResult is what a successful classification produced.
type ClassificationResult struct {
	Requirement *domain.Requirement         `json:"requirement"`
	Roles       []*domain.DecisionMakerRole `json:"roles"`
	Industries  []string                    `json:"industries"`
	Provider    string                      `json:"provider"`
	Model       string                      `json:"model"`
	Attempts    int                         `json:"attempts"`
}

// Classify runs the full classification for a stored requirement. On
// success the requirement is marked classified, its roles are replaced
// with the new ranking, and a lead-scrape job is queued. On failure the
// requirement is marked failed and the orchestration error is returned
// for the API layer to map to a status code.
func (c *Classifier) Classify(ctx context.Context, requirementID string) (*ClassificationResult, error) {
	req, err := c.requirements.Get(requirementID)
	if err != nil {
		return nil, err
	}

	rc := req.Context()

	ranking, err := c.orch.RankRoles(ctx, rolePromptFor(rc))
	if err != nil {
		c.markFailed(ctx, req, err)
		return nil, err
	}

	industries, err := c.orch.ClassifyIndustry(ctx, industryPromptFor(rc))
	if err != nil {
		c.markFailed(ctx, req, err)
		return nil, err
	}

	stored := make([]*domain.DecisionMakerRole, 0, len(ranking.Roles))
	for _, r := range ranking.Roles {
		stored = append(stored, &domain.DecisionMakerRole{
			RequirementID: req.ID,
			Role:          r.Role,
			Priority:      r.Priority,
			Reasoning:     r.Reasoning,
			Relevance:     domain.IndustryRelevance(r.Relevance),
			Confidence:    r.Confidence,
			Provider:      ranking.Provider,
			Model:         ranking.Model,
		})
	}
	if err := c.roles.ReplaceForRequirement(req.ID, stored); err != nil {
		return nil, fmt.Errorf("storing roles: %w", err)
	}

	if err := c.requirements.SetPrimaryIndustry(req.ID, industries.Primary()); err != nil {
		return nil, fmt.Errorf("storing industry: %w", err)
	}
	if err := c.requirements.UpdateStatus(req.ID, domain.RequirementStatusClassified); err != nil {
		return nil, fmt.Errorf("updating status: %w", err)
	}

	c.log.Info().
		Str("requirement", req.ID).
		Str("provider", ranking.Provider).
		Int("roles", len(stored)).
		Str("industry", industries.Primary()).
		Msg("requirement classified")

	if c.hooks != nil {
		c.hooks.EmitAsync(ctx, hooks.EventRequirementClassified, map[string]any{
			"requirementId": req.ID,
			"industry":      industries.Primary(),
			"roleCount":     len(stored),
			"provider":      ranking.Provider,
		})
	}

	if c.queue != nil {
		if _, err := c.queue.Enqueue(jobs.KindScrapeLeads, map[string]string{"requirementId": req.ID}, 3); err != nil {
			// Classification already succeeded; a lost scrape job is
			// recoverable by re-running it, so log and keep the result.
			c.log.Error().Err(err).Str("requirement", req.ID).Msg("enqueueing scrape job failed")
		}
	}

	req, err = c.requirements.Get(req.ID)
	if err != nil {
		return nil, err
	}

	return &ClassificationResult{
		Requirement: req,
		Roles:       stored,
		Industries:  industries.Industries,
		Provider:    ranking.Provider,
		Model:       ranking.Model,
		Attempts:    ranking.Attempts,
	}, nil
}

// IndustryResult is what a standalone industry re-classification produced.
type IndustryResult struct {
	RequirementID string   `json:"requirementId"`
	Industries    []string `json:"industries"`
	Provider      string   `json:"provider"`
	Model         string   `json:"model"`
	Attempts      int      `json:"attempts"`
}

// ClassifyIndustry re-runs only the industry classification for a stored
// requirement and persists the new primary label. Role rankings, the
// requirement status, and queued jobs are untouched, so a failed rerun
// leaves the prior classification intact.
func (c *Classifier) ClassifyIndustry(ctx context.Context, requirementID string) (*IndustryResult, error) {
	req, err := c.requirements.Get(requirementID)
	if err != nil {
		return nil, err
	}

	industries, err := c.orch.ClassifyIndustry(ctx, industryPromptFor(req.Context()))
	if err != nil {
		c.log.Warn().Err(err).Str("requirement", req.ID).Msg("industry classification failed")
		return nil, err
	}

	if err := c.requirements.SetPrimaryIndustry(req.ID, industries.Primary()); err != nil {
		return nil, fmt.Errorf("storing industry: %w", err)
	}

	c.log.Info().
		Str("requirement", req.ID).
		Str("industry", industries.Primary()).
		Msg("industry reclassified")

	return &IndustryResult{
		RequirementID: req.ID,
		Industries:    industries.Industries,
		Provider:      industries.Provider,
		Model:         industries.Model,
		Attempts:      industries.Attempts,
	}, nil
}

func (c *Classifier) markFailed(ctx context.Context, req *domain.Requirement, cause error) {
	if err := c.requirements.UpdateStatus(req.ID, domain.RequirementStatusFailed); err != nil {
		c.log.Error().Err(err).Str("requirement", req.ID).Msg("marking requirement failed")
	}
	c.log.Warn().Err(cause).Str("requirement", req.ID).Msg("classification failed")

	if c.hooks != nil {
		c.hooks.EmitAsync(ctx, hooks.EventClassificationFailed, map[string]any{
			"requirementId": req.ID,
			"error":         cause.Error(),
		})
	}
}

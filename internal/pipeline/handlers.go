package pipeline

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/leadgrid/leadgrid/internal/apollo"
	"github.com/leadgrid/leadgrid/internal/domain"
	"github.com/leadgrid/leadgrid/internal/hooks"
	"github.com/leadgrid/leadgrid/internal/jobs"
	"github.com/leadgrid/leadgrid/internal/logging"
	"github.com/leadgrid/leadgrid/internal/notify"
	"github.com/leadgrid/leadgrid/internal/store"
)

// PeopleSearcher is the slice of the Apollo client the handlers need.
type PeopleSearcher interface {
	SearchPeople(ctx context.Context, q apollo.SearchQuery) (*apollo.SearchResult, error)
	EnrichPerson(ctx context.Context, personID string) (*apollo.Person, error)
}

// Jobs executes the background work queued by the classifier and the API:
// lead scraping, enrichment, and campaign sending.
type Jobs struct {
	searcher     PeopleSearcher
	sender       notify.Sender
	queue        *jobs.Queue
	requirements *store.RequirementStore
	roles        *store.RoleStore
	leads        *store.LeadStore
	campaigns    *store.CampaignStore
	hooks        *hooks.Manager
	log          *logging.Logger

	// topRoles caps how many ranked roles feed the people search.
	topRoles int
}

// NewJobs assembles the job handlers. sender may be nil when the mailer is
// disabled; send_campaign jobs then fail. queue may be nil in tests; scraped
// leads then get no follow-up enrichment jobs.
func NewJobs(
	searcher PeopleSearcher,
	sender notify.Sender,
	queue *jobs.Queue,
	requirements *store.RequirementStore,
	roles *store.RoleStore,
	leads *store.LeadStore,
	campaigns *store.CampaignStore,
	hookMgr *hooks.Manager,
	log *logging.Logger,
) *Jobs {
	return &Jobs{
		searcher:     searcher,
		sender:       sender,
		queue:        queue,
		requirements: requirements,
		roles:        roles,
		leads:        leads,
		campaigns:    campaigns,
		hooks:        hookMgr,
		log:          log.Sub("pipeline"),
		topRoles:     5,
	}
}

// Register binds all handlers to their job kinds.
func (j *Jobs) Register(pool *jobs.Pool) {
	pool.Register(jobs.KindScrapeLeads, j.ScrapeLeads)
	pool.Register(jobs.KindEnrichLead, j.EnrichLead)
	pool.Register(jobs.KindSendCampaign, j.SendCampaign)
}

type scrapePayload struct {
	RequirementID string `json:"requirementId"`
}

// ScrapeLeads searches Apollo for people matching the requirement's top
// ranked roles and stores them as leads. Each found lead gets its own
// enrichment job.
func (j *Jobs) ScrapeLeads(ctx context.Context, job *jobs.Job) error {
	if j.searcher == nil {
		return fmt.Errorf("people search is not configured")
	}

	var p scrapePayload
	if err := json.Unmarshal(job.Payload, &p); err != nil {
		return fmt.Errorf("bad scrape payload: %w", err)
	}

	req, err := j.requirements.Get(p.RequirementID)
	if err != nil {
		return fmt.Errorf("loading requirement: %w", err)
	}

	ranked, err := j.roles.ListByRequirement(req.ID)
	if err != nil {
		return fmt.Errorf("loading roles: %w", err)
	}
	if len(ranked) == 0 {
		return fmt.Errorf("requirement %s has no classified roles", req.ID)
	}

	titles := make([]string, 0, j.topRoles)
	for _, r := range ranked {
		titles = append(titles, r.Role)
		if len(titles) == j.topRoles {
			break
		}
	}

	query := apollo.SearchQuery{Titles: titles, Keywords: req.PrimaryIndustry}
	if req.TargetLocation != "" {
		query.Locations = []string{req.TargetLocation}
	}

	if err := j.requirements.UpdateStatus(req.ID, domain.RequirementStatusScraping); err != nil {
		return err
	}

	result, err := j.searcher.SearchPeople(ctx, query)
	if err != nil {
		return fmt.Errorf("people search: %w", err)
	}

	for _, person := range result.People {
		lead := &domain.Lead{
			RequirementID: req.ID,
			ApolloID:      person.ID,
			FirstName:     person.FirstName,
			LastName:      person.LastName,
			Title:         person.Title,
			Company:       person.Organization.Name,
			CompanyDomain: person.Organization.PrimaryDomain,
			LinkedInURL:   person.LinkedInURL,
			Location:      person.Location(),
		}
		if err := j.leads.Upsert(lead); err != nil {
			return fmt.Errorf("storing lead: %w", err)
		}
		if j.queue != nil {
			if _, err := j.queue.Enqueue(jobs.KindEnrichLead, map[string]string{"leadId": lead.ID}, 3); err != nil {
				// The lead is stored; enrichment can still be triggered by hand.
				j.log.Error().Err(err).Str("lead", lead.ID).Msg("enqueueing enrich job failed")
			}
		}
	}

	if err := j.requirements.UpdateStatus(req.ID, domain.RequirementStatusReady); err != nil {
		return err
	}

	j.log.Info().
		Str("requirement", req.ID).
		Int("found", len(result.People)).
		Int("total", result.Total).
		Msg("lead scrape finished")

	if j.hooks != nil {
		j.hooks.EmitAsync(ctx, hooks.EventJobCompleted, map[string]any{
			"kind":          jobs.KindScrapeLeads,
			"requirementId": req.ID,
			"leads":         len(result.People),
		})
	}
	return nil
}

type enrichPayload struct {
	LeadID string `json:"leadId"`
}

// EnrichLead reveals a lead's verified email through Apollo enrichment.
func (j *Jobs) EnrichLead(ctx context.Context, job *jobs.Job) error {
	if j.searcher == nil {
		return fmt.Errorf("people search is not configured")
	}

	var p enrichPayload
	if err := json.Unmarshal(job.Payload, &p); err != nil {
		return fmt.Errorf("bad enrich payload: %w", err)
	}

	lead, err := j.leads.Get(p.LeadID)
	if err != nil {
		return fmt.Errorf("loading lead: %w", err)
	}
	if lead.ApolloID == "" {
		return fmt.Errorf("lead %s has no apollo id", lead.ID)
	}

	person, err := j.searcher.EnrichPerson(ctx, lead.ApolloID)
	if err != nil {
		return fmt.Errorf("enrichment: %w", err)
	}
	if person.Email == "" {
		return fmt.Errorf("no email available for lead %s", lead.ID)
	}

	if err := j.leads.SetEnriched(lead.ID, person.Email); err != nil {
		return err
	}

	if j.hooks != nil {
		j.hooks.EmitAsync(ctx, hooks.EventLeadEnriched, map[string]any{
			"leadId":        lead.ID,
			"requirementId": lead.RequirementID,
		})
	}
	return nil
}

type campaignPayload struct {
	CampaignID string `json:"campaignId"`
}

// SendCampaign sends the campaign mail to every enriched lead of the
// campaign's requirement, recording each sent message for reply matching.
func (j *Jobs) SendCampaign(ctx context.Context, job *jobs.Job) error {
	if j.sender == nil {
		return fmt.Errorf("mailer is not configured")
	}

	var p campaignPayload
	if err := json.Unmarshal(job.Payload, &p); err != nil {
		return fmt.Errorf("bad campaign payload: %w", err)
	}

	campaign, err := j.campaigns.Get(p.CampaignID)
	if err != nil {
		return fmt.Errorf("loading campaign: %w", err)
	}

	leads, err := j.leads.ListByRequirement(campaign.RequirementID)
	if err != nil {
		return fmt.Errorf("loading leads: %w", err)
	}

	if err := j.campaigns.UpdateStatus(campaign.ID, domain.CampaignStatusRunning); err != nil {
		return err
	}

	sent := 0
	for _, lead := range leads {
		if lead.Email == "" || lead.Status == domain.LeadStatusContacted {
			continue
		}

		body := notify.RenderTemplate(campaign.BodyTemplate, map[string]string{
			"firstName": lead.FirstName,
			"lastName":  lead.LastName,
			"fullName":  lead.FullName(),
			"title":     lead.Title,
			"company":   lead.Company,
		})

		messageID, err := j.sender.Send(ctx, notify.Mail{
			To:      lead.Email,
			Subject: campaign.Subject,
			Body:    body,
		})
		if err != nil {
			// Partial sends are fine: already-contacted leads are skipped
			// on the retry.
			j.log.Warn().Err(err).Str("lead", lead.ID).Msg("send failed")
			continue
		}

		if err := j.campaigns.RecordSent(&domain.CampaignMessage{
			CampaignID: campaign.ID,
			LeadID:     lead.ID,
			MessageID:  messageID,
			Subject:    campaign.Subject,
		}); err != nil {
			return err
		}
		if err := j.leads.UpdateStatus(lead.ID, domain.LeadStatusContacted); err != nil {
			return err
		}
		sent++
	}

	if err := j.campaigns.UpdateStatus(campaign.ID, domain.CampaignStatusDone); err != nil {
		return err
	}

	j.log.Info().Str("campaign", campaign.ID).Int("sent", sent).Msg("campaign sent")

	if j.hooks != nil {
		j.hooks.EmitAsync(ctx, hooks.EventCampaignSent, map[string]any{
			"campaignId": campaign.ID,
			"sent":       sent,
		})
	}
	return nil
}

// HandleReply persists an inbound reply and advances the matched lead.
// Plugged into the inbox watcher as its ReplyHandler.
func (j *Jobs) HandleReply(reply domain.ReplyEvent, matched bool) {
	if notify.IsAutoReply(reply.Subject) {
		j.log.Debug().Str("from", reply.FromAddress).Msg("ignoring auto-reply")
		return
	}

	if err := j.campaigns.RecordReply(&reply); err != nil {
		j.log.Error().Err(err).Str("from", reply.FromAddress).Msg("storing reply")
		return
	}

	if matched && reply.LeadID != "" {
		if err := j.leads.UpdateStatus(reply.LeadID, domain.LeadStatusReplied); err != nil {
			j.log.Error().Err(err).Str("lead", reply.LeadID).Msg("updating lead status")
		}
	}

	if j.hooks != nil {
		j.hooks.EmitAsync(context.Background(), hooks.EventReplyReceived, map[string]any{
			"campaignId": reply.CampaignID,
			"leadId":     reply.LeadID,
			"from":       reply.FromAddress,
			"matched":    matched,
		})
	}
}

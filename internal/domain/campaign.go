package domain

import "time"

// CampaignStatus is the lifecycle state of an outreach campaign.
type CampaignStatus string

const (
	CampaignStatusDraft   CampaignStatus = "draft"
	CampaignStatusRunning CampaignStatus = "running"
	CampaignStatusPaused  CampaignStatus = "paused"
	CampaignStatusDone    CampaignStatus = "done"
)

// Campaign is an email outreach campaign over the leads of one requirement.
type Campaign struct {
	ID            string         `json:"id"`
	RequirementID string         `json:"requirementId"`
	UserID        string         `json:"userId"`
	Name          string         `json:"name"`
	Subject       string         `json:"subject"`
	BodyTemplate  string         `json:"bodyTemplate"`
	Status        CampaignStatus `json:"status"`
	SentCount     int            `json:"sentCount"`
	ReplyCount    int            `json:"replyCount"`
	CreatedAt     time.Time      `json:"createdAt"`
	UpdatedAt     time.Time      `json:"updatedAt"`
}

// CampaignMessage records one email sent to a lead as part of a campaign.
type CampaignMessage struct {
	ID         string    `json:"id"`
	CampaignID string    `json:"campaignId"`
	LeadID     string    `json:"leadId"`
	MessageID  string    `json:"messageId,omitempty"` // RFC 5322 Message-ID of the sent mail
	Subject    string    `json:"subject"`
	SentAt     time.Time `json:"sentAt"`
}

// ReplyEvent is an inbound reply detected by the mailbox watcher, matched
// back to a campaign message when possible.
type ReplyEvent struct {
	ID          string    `json:"id"`
	CampaignID  string    `json:"campaignId,omitempty"`
	LeadID      string    `json:"leadId,omitempty"`
	FromAddress string    `json:"fromAddress"`
	Subject     string    `json:"subject"`
	Snippet     string    `json:"snippet,omitempty"`
	ReceivedAt  time.Time `json:"receivedAt"`
}

package domain

import "time"

// LeadStatus tracks a lead through enrichment and outreach.
type LeadStatus string

const (
	LeadStatusFound     LeadStatus = "found"
	LeadStatusEnriched  LeadStatus = "enriched"
	LeadStatusContacted LeadStatus = "contacted"
	LeadStatusReplied   LeadStatus = "replied"
	LeadStatusBounced   LeadStatus = "bounced"
)

// Lead is a contact found via Apollo search and, once enriched, carries a
// verified email address.
type Lead struct {
	ID            string     `json:"id"`
	RequirementID string     `json:"requirementId"`
	ApolloID      string     `json:"apolloId,omitempty"`
	FirstName     string     `json:"firstName"`
	LastName      string     `json:"lastName"`
	Title         string     `json:"title"`
	Company       string     `json:"company"`
	CompanyDomain string     `json:"companyDomain,omitempty"`
	Email         string     `json:"email,omitempty"`
	LinkedInURL   string     `json:"linkedinUrl,omitempty"`
	Location      string     `json:"location,omitempty"`
	Status        LeadStatus `json:"status"`
	CreatedAt     time.Time  `json:"createdAt"`
	UpdatedAt     time.Time  `json:"updatedAt"`
}

// FullName joins the lead's first and last names.
func (l *Lead) FullName() string {
	if l.FirstName == "" {
		return l.LastName
	}
	if l.LastName == "" {
		return l.FirstName
	}
	return l.FirstName + " " + l.LastName
}

package domain

import "time"

// IndustryRelevance grades how strongly a role matters in the target industry.
type IndustryRelevance string

const (
	RelevanceHigh   IndustryRelevance = "high"
	RelevanceMedium IndustryRelevance = "medium"
	RelevanceLow    IndustryRelevance = "low"
)

// Valid reports whether the relevance is one of the known grades.
func (r IndustryRelevance) Valid() bool {
	switch r {
	case RelevanceHigh, RelevanceMedium, RelevanceLow:
		return true
	}
	return false
}

// DecisionMakerRole is a ranked decision-maker title produced by
// classification for a requirement. Priority 1 is the highest rank and
// priorities within a requirement form a dense 1..N sequence.
type DecisionMakerRole struct {
	ID            string            `json:"id"`
	RequirementID string            `json:"requirementId"`
	Role          string            `json:"role"`
	Priority      int               `json:"priority"`
	Reasoning     string            `json:"reasoning"`
	Relevance     IndustryRelevance `json:"industryRelevance"`
	Confidence    float64           `json:"confidence"`
	Provider      string            `json:"provider,omitempty"`
	Model         string            `json:"model,omitempty"`
	CreatedAt     time.Time         `json:"createdAt"`
	UpdatedAt     time.Time         `json:"updatedAt"`
}

package domain

import "time"

// RequirementStatus tracks where a requirement is in the pipeline.
type RequirementStatus string

const (
	RequirementStatusNew        RequirementStatus = "new"
	RequirementStatusClassified RequirementStatus = "classified"
	RequirementStatusScraping   RequirementStatus = "scraping"
	RequirementStatusReady      RequirementStatus = "ready"
	RequirementStatusFailed     RequirementStatus = "failed"
)

// Requirement is a customer's free-text business requirement, the unit of
// work for the classification and lead-search pipeline.
type Requirement struct {
	ID              string            `json:"id"`
	UserID          string            `json:"userId"`
	FreeText        string            `json:"freeText"`
	Industry        string            `json:"industry,omitempty"`
	ProductService  string            `json:"productService,omitempty"`
	TargetLocation  string            `json:"targetLocation,omitempty"`
	TargetMarket    string            `json:"targetMarket,omitempty"`
	PrimaryIndustry string            `json:"primaryIndustry,omitempty"`
	Status          RequirementStatus `json:"status"`
	CreatedAt       time.Time         `json:"createdAt"`
	UpdatedAt       time.Time         `json:"updatedAt"`
}

// Context returns the immutable classification input for this requirement.
func (r *Requirement) Context() RequirementContext {
	return RequirementContext{
		FreeText:       r.FreeText,
		Industry:       r.Industry,
		ProductService: r.ProductService,
		TargetLocation: r.TargetLocation,
		TargetMarket:   r.TargetMarket,
	}
}

// RequirementContext is the read-only input handed to the orchestration core.
type RequirementContext struct {
	FreeText       string `json:"freeText"`
	Industry       string `json:"industry,omitempty"`
	ProductService string `json:"productService,omitempty"`
	TargetLocation string `json:"targetLocation,omitempty"`
	TargetMarket   string `json:"targetMarket,omitempty"`
}

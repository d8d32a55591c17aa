package pipeline

import (
	"fmt"
	"strings"

	"github.com/leadgrid/leadgrid/internal/domain"
)

// rolePromptFor builds the decision-maker ranking prompt for one attempt.
// Later attempts use progressively stricter wording: a model that returned
// prose or a malformed list gets told, more bluntly each time, to emit JSON
// only.
func rolePromptFor(rc domain.RequirementContext) func(attempt int) string {
	context := describeRequirement(rc)
	return func(attempt int) string {
		switch {
		case attempt <= 1:
			return fmt.Sprintf(`You are a B2B sales strategist. Given the business requirement below, identify the 3 to 10 job titles most likely to be the decision makers for purchasing this product or service, ranked by priority (1 = highest).

%s

Respond with a JSON array only. Each entry must have exactly these fields:
- "role": the job title
- "priority": integer rank starting at 1
- "reasoning": one or two sentences on why this role decides
- "industry_relevance": "high", "medium", or "low"
- "confidence": number between 0 and 1

No markdown, no commentary, just the JSON array.`, context)
		case attempt == 2:
			return fmt.Sprintf(`Identify 3-10 decision-maker job titles for this requirement, ranked by priority.

%s

Output ONLY a JSON array of objects with fields: role, priority (int, 1 = top), reasoning (a full sentence), industry_relevance (high/medium/low), confidence (0-1). No prose, no code fences.`, context)
		default:
			return fmt.Sprintf(`%s

Return a raw JSON array of 3-10 objects: {"role": string, "priority": int, "reasoning": string, "industry_relevance": "high"|"medium"|"low", "confidence": number}. Output must start with [ and end with ].`, context)
		}
	}
}

// industryPromptFor builds the industry classification prompt for one attempt.
func industryPromptFor(rc domain.RequirementContext) func(attempt int) string {
	context := describeRequirement(rc)
	return func(attempt int) string {
		if attempt <= 1 {
			return fmt.Sprintf(`Classify the industry of the business described below.

%s

Answer with the industry name only (e.g. "Healthcare", "Fintech"). Up to three industries as a JSON array is acceptable, primary industry first. No explanation.`, context)
		}
		return fmt.Sprintf(`%s

What industry is this? Reply with a single industry name, nothing else.`, context)
	}
}

// describeRequirement flattens the requirement context into prompt lines,
// skipping empty fields.
func describeRequirement(rc domain.RequirementContext) string {
	var b strings.Builder
	b.WriteString("Requirement: " + rc.FreeText)
	if rc.Industry != "" {
		b.WriteString("\nStated industry: " + rc.Industry)
	}
	if rc.ProductService != "" {
		b.WriteString("\nProduct/service: " + rc.ProductService)
	}
	if rc.TargetLocation != "" {
		b.WriteString("\nTarget location: " + rc.TargetLocation)
	}
	if rc.TargetMarket != "" {
		b.WriteString("\nTarget market: " + rc.TargetMarket)
	}
	return b.String()
}

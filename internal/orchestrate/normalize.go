package orchestrate

import (
	"encoding/json"
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/leadgrid/leadgrid/internal/domain"
)

// RoleCandidate is one decision-maker entry as extracted from provider
// output, before it has been persisted.
type RoleCandidate struct {
	Role       string  `json:"role"`
	Priority   int     `json:"priority"`
	Reasoning  string  `json:"reasoning"`
	Relevance  string  `json:"industry_relevance"`
	Confidence float64 `json:"confidence"`
}

const (
	minRoles         = 3
	maxRoles         = 10
	minReasoningLen  = 10
	maxIndustryCount = 3
)

var parentheticalPattern = regexp.MustCompile(`\([^)]*\)`)
var whitespacePattern = regexp.MustCompile(`\s+`)
var industryLabelPattern = regexp.MustCompile(`(?i)^\s*((primary\s+)?industry|answer|label)\s*:\s*`)

// NormalizeRoles validates and cleans an extracted decision-maker list.
// It returns the cleaned, priority-ordered entries, or the list of
// violations when the input cannot be accepted. There is no partial
// acceptance: any structural violation rejects the whole list.
// The function never mutates its input and is idempotent over its output.
func NormalizeRoles(v any) ([]RoleCandidate, []string) {
	arr, ok := v.([]any)
	if !ok {
		// A re-normalization pass hands us the typed slice directly.
		if typed, isTyped := v.([]RoleCandidate); isTyped {
			arr = make([]any, len(typed))
			for i, rc := range typed {
				arr[i] = rc
			}
		} else {
			return nil, []string{"response is not an array"}
		}
	}

	if len(arr) == 0 {
		return nil, []string{"response contains no entries"}
	}
	if len(arr) < minRoles || len(arr) > maxRoles {
		return nil, []string{fmt.Sprintf("expected %d-%d entries, got %d", minRoles, maxRoles, len(arr))}
	}

	var errs []string
	cleaned := make([]RoleCandidate, 0, len(arr))
	seen := make(map[string]bool, len(arr))

	for i, item := range arr {
		rc, err := decodeCandidate(item)
		if err != nil {
			errs = append(errs, fmt.Sprintf("entry %d: %v", i, err))
			continue
		}

		rc.Role = CleanRoleTitle(rc.Role)

		switch {
		case rc.Role == "":
			errs = append(errs, fmt.Sprintf("entry %d: missing role", i))
		case rc.Priority < 1:
			errs = append(errs, fmt.Sprintf("entry %d: missing or invalid priority", i))
		case len(rc.Reasoning) < minReasoningLen:
			errs = append(errs, fmt.Sprintf("entry %d: reasoning too short", i))
		case !domain.IndustryRelevance(rc.Relevance).Valid():
			errs = append(errs, fmt.Sprintf("entry %d: industry_relevance must be high/medium/low, got %q", i, rc.Relevance))
		case rc.Confidence < 0 || rc.Confidence > 1:
			errs = append(errs, fmt.Sprintf("entry %d: confidence %v outside [0,1]", i, rc.Confidence))
		case seen[strings.ToLower(rc.Role)]:
			errs = append(errs, fmt.Sprintf("entry %d: duplicate role %q", i, rc.Role))
		default:
			seen[strings.ToLower(rc.Role)] = true
			cleaned = append(cleaned, rc)
		}
	}

	if len(errs) > 0 {
		return nil, errs
	}
	if len(cleaned) < minRoles {
		return nil, []string{fmt.Sprintf("only %d valid entries after cleanup, need %d", len(cleaned), minRoles)}
	}

	// Re-sequence priorities densely as 1..N, keeping relative order.
	sort.SliceStable(cleaned, func(a, b int) bool {
		return cleaned[a].Priority < cleaned[b].Priority
	})
	for i := range cleaned {
		cleaned[i].Priority = i + 1
	}

	return cleaned, nil
}

func decodeCandidate(item any) (RoleCandidate, error) {
	if rc, ok := item.(RoleCandidate); ok {
		return rc, nil
	}

	m, ok := item.(map[string]any)
	if !ok {
		return RoleCandidate{}, fmt.Errorf("entry is not an object")
	}

	raw, err := json.Marshal(m)
	if err != nil {
		return RoleCandidate{}, err
	}
	var rc RoleCandidate
	if err := json.Unmarshal(raw, &rc); err != nil {
		return RoleCandidate{}, fmt.Errorf("malformed entry: %v", err)
	}
	return rc, nil
}

// CleanRoleTitle repairs a role title that names several roles at once
// ("CEO / Chief Executive Officer", "CTO or VP Engineering") by keeping only
// the first, then strips parenthetical asides and collapses whitespace.
func CleanRoleTitle(role string) string {
	role = strings.TrimSpace(role)

	if i := strings.Index(role, "/"); i >= 0 {
		role = role[:i]
	}
	if i := strings.Index(strings.ToLower(role), " or "); i >= 0 {
		role = role[:i]
	}

	role = parentheticalPattern.ReplaceAllString(role, "")
	role = whitespacePattern.ReplaceAllString(role, " ")
	return strings.TrimSpace(role)
}

// NormalizeIndustries cleans an extracted industry answer into an ordered,
// deduplicated list of at most three names, primary first. When fewer than
// three distinct names survive, the last valid entry is repeated to pad the
// list to three.
//
// The padding is a compatibility quirk rather than a product decision:
// downstream consumers index into a fixed-size list. Returning fewer entries
// when fewer are confidently known may be preferable; confirm before fixing.
func NormalizeIndustries(v any) []string {
	var candidates []string

	switch val := v.(type) {
	case string:
		candidates = []string{val}
	case []any:
		for _, item := range val {
			if s, ok := item.(string); ok {
				candidates = append(candidates, s)
			}
		}
	case []string:
		candidates = val
	case map[string]any:
		// Some models answer {"industry": "..."} or {"industries": [...]}.
		if s, ok := val["industry"].(string); ok {
			candidates = []string{s}
		} else if arr, ok := val["industries"].([]any); ok {
			for _, item := range arr {
				if s, ok := item.(string); ok {
					candidates = append(candidates, s)
				}
			}
		}
	}

	var out []string
	seen := make(map[string]bool)
	for _, c := range candidates {
		name := CleanIndustryName(c)
		if name == "" || seen[strings.ToLower(name)] {
			continue
		}
		seen[strings.ToLower(name)] = true
		out = append(out, name)
		if len(out) == maxIndustryCount {
			break
		}
	}

	// Pad by repeating the last valid entry.
	for len(out) > 0 && len(out) < maxIndustryCount {
		out = append(out, out[len(out)-1])
	}

	return out
}

// CleanIndustryName strips markdown fencing, leading labels, quotes, and
// trailing punctuation from one industry candidate, keeping only its first
// line.
func CleanIndustryName(s string) string {
	s = strings.ReplaceAll(s, "```", "")
	s = strings.TrimSpace(s)

	if i := strings.IndexAny(s, "\r\n"); i >= 0 {
		s = s[:i]
	}

	s = industryLabelPattern.ReplaceAllString(s, "")
	s = strings.TrimRight(s, ".,;:! ")
	s = strings.Trim(s, `"'`)
	s = strings.TrimRight(s, ".,;:!")
	return strings.TrimSpace(s)
}

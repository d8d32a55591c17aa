package domain

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// --- Lead tests ---

func TestLeadFullName(t *testing.T) {
	tests := []struct {
		name  string
		first string
		last  string
		want  string
	}{
		{"both names", "Jane", "Doe", "Jane Doe"},
		{"first only", "Jane", "", "Jane"},
		{"last only", "", "Doe", "Doe"},
		{"empty", "", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l := Lead{FirstName: tt.first, LastName: tt.last}
			assert.Equal(t, tt.want, l.FullName())
		})
	}
}

func TestLeadJSONOmitsEmptyOptionalFields(t *testing.T) {
	l := Lead{
		ID:            "lead-1",
		RequirementID: "req-1",
		FirstName:     "Jane",
		LastName:      "Doe",
		Title:         "CTO",
		Company:       "MedCorp",
		Status:        LeadStatusFound,
	}

	data, err := json.Marshal(l)
	require.NoError(t, err)
	assert.NotContains(t, string(data), "apolloId")
	assert.NotContains(t, string(data), "email")
	assert.NotContains(t, string(data), "linkedinUrl")
}

// --- Requirement tests ---

func TestRequirementContext(t *testing.T) {
	r := Requirement{
		ID:              "req-1",
		UserID:          "user-1",
		FreeText:        "We sell compliance software to hospitals",
		Industry:        "Healthcare",
		ProductService:  "Compliance SaaS",
		TargetLocation:  "Germany",
		TargetMarket:    "mid-size hospitals",
		PrimaryIndustry: "Healthcare",
		Status:          RequirementStatusClassified,
	}

	ctx := r.Context()
	assert.Equal(t, r.FreeText, ctx.FreeText)
	assert.Equal(t, r.Industry, ctx.Industry)
	assert.Equal(t, r.ProductService, ctx.ProductService)
	assert.Equal(t, r.TargetLocation, ctx.TargetLocation)
	assert.Equal(t, r.TargetMarket, ctx.TargetMarket)
}

// --- IndustryRelevance tests ---

func TestIndustryRelevanceValid(t *testing.T) {
	assert.True(t, RelevanceHigh.Valid())
	assert.True(t, RelevanceMedium.Valid())
	assert.True(t, RelevanceLow.Valid())
	assert.False(t, IndustryRelevance("critical").Valid())
	assert.False(t, IndustryRelevance("").Valid())
}

// --- TicketStatus tests ---

func TestTicketStatusValid(t *testing.T) {
	assert.True(t, TicketStatusOpen.Valid())
	assert.True(t, TicketStatusPending.Valid())
	assert.True(t, TicketStatusResolved.Valid())
	assert.True(t, TicketStatusClosed.Valid())
	assert.False(t, TicketStatus("archived").Valid())
	assert.False(t, TicketStatus("").Valid())
}

// --- ReplyEvent tests ---

func TestReplyEventJSONRoundTrip(t *testing.T) {
	ev := ReplyEvent{
		ID:          "reply-1",
		CampaignID:  "camp-1",
		LeadID:      "lead-1",
		FromAddress: "jane@medcorp.example",
		Subject:     "Re: Quick question",
		Snippet:     "Sounds interesting, can we talk?",
	}

	data, err := json.Marshal(ev)
	require.NoError(t, err)

	var decoded ReplyEvent
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, ev, decoded)
}

package notify

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leadgrid/leadgrid/internal/config"
	"github.com/leadgrid/leadgrid/internal/domain"
	"github.com/leadgrid/leadgrid/internal/logging"
)

type fakeMatcher struct {
	campaignID string
	leadID     string
	err        error
}

func (f *fakeMatcher) MatchMessageID(messageID string) (string, string, error) {
	return f.campaignID, f.leadID, f.err
}

func TestWatcherMatchesReplies(t *testing.T) {
	var got []domain.ReplyEvent
	var matchFlags []bool

	w := NewWatcher(
		config.InboxConfig{},
		&fakeMatcher{campaignID: "c1", leadID: "l1"},
		func(r domain.ReplyEvent, matched bool) {
			got = append(got, r)
			matchFlags = append(matchFlags, matched)
		},
		logging.New(nil, "silent"),
	)
	w.fetch = func() ([]InboundMail, error) {
		return []InboundMail{
			{
				From: "eva@example.com", Subject: "Re: Hello",
				InReplyTo: "<abc@leadgrid>", Date: time.Now(),
			},
			{From: "random@example.com", Subject: "Newsletter"},
		}, nil
	}

	w.poll()

	require.Len(t, got, 2)
	assert.True(t, matchFlags[0])
	assert.Equal(t, "c1", got[0].CampaignID)
	assert.Equal(t, "l1", got[0].LeadID)

	// Mail without In-Reply-To is reported but unmatched.
	assert.False(t, matchFlags[1])
	assert.Empty(t, got[1].CampaignID)
}

func TestWatcherUnmatchedMessageID(t *testing.T) {
	var matched bool
	w := NewWatcher(
		config.InboxConfig{},
		&fakeMatcher{err: errors.New("not found")},
		func(r domain.ReplyEvent, m bool) { matched = m },
		logging.New(nil, "silent"),
	)
	w.fetch = func() ([]InboundMail, error) {
		return []InboundMail{{From: "x@y.z", InReplyTo: "<unknown@elsewhere>"}}, nil
	}

	w.poll()
	assert.False(t, matched)
}

func TestWatcherFetchErrorDoesNotDispatch(t *testing.T) {
	called := false
	w := NewWatcher(config.InboxConfig{}, nil,
		func(r domain.ReplyEvent, m bool) { called = true },
		logging.New(nil, "silent"),
	)
	w.fetch = func() ([]InboundMail, error) { return nil, errors.New("connection refused") }

	w.poll()
	assert.False(t, called)
}

func TestRenderTemplate(t *testing.T) {
	out := RenderTemplate(
		"Hi {{firstName}}, greetings from {{company}}. {{unknown}} stays.",
		map[string]string{"firstName": "Jane", "company": "LeadGrid"},
	)
	assert.Equal(t, "Hi Jane, greetings from LeadGrid. {{unknown}} stays.", out)
}

func TestIsAutoReply(t *testing.T) {
	assert.True(t, IsAutoReply("Automatic Reply: Re: Hello"))
	assert.True(t, IsAutoReply("Undeliverable: Your message"))
	assert.False(t, IsAutoReply("Re: Hello"))
}

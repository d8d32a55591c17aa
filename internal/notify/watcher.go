package notify

import (
	"context"
	"crypto/tls"
	"fmt"
	"strings"
	"time"

	"github.com/emersion/go-imap"
	"github.com/emersion/go-imap/client"

	"github.com/leadgrid/leadgrid/internal/config"
	"github.com/leadgrid/leadgrid/internal/domain"
	"github.com/leadgrid/leadgrid/internal/logging"
)

// InboundMail is one message pulled from the watched mailbox.
type InboundMail struct {
	From      string
	Subject   string
	MessageID string
	InReplyTo string
	Date      time.Time
}

// ReplyHandler receives matched replies. campaignID and leadID are empty
// when the mail could not be tied to anything we sent.
type ReplyHandler func(reply domain.ReplyEvent, matched bool)

// MessageMatcher resolves an In-Reply-To Message-ID back to the campaign
// and lead the original mail went to. Implemented by store.CampaignStore.
type MessageMatcher interface {
	MatchMessageID(messageID string) (campaignID, leadID string, err error)
}

// Watcher polls an IMAP mailbox for unseen mail and reports replies to
// campaign messages.
type Watcher struct {
	cfg     config.InboxConfig
	matcher MessageMatcher
	handler ReplyHandler
	log     *logging.Logger

	// fetch is swapped out in tests to avoid a live IMAP server.
	fetch func() ([]InboundMail, error)
}

// NewWatcher creates a mailbox watcher. handler is called for every unseen
// message, matched or not.
func NewWatcher(cfg config.InboxConfig, matcher MessageMatcher, handler ReplyHandler, log *logging.Logger) *Watcher {
	w := &Watcher{
		cfg:     cfg,
		matcher: matcher,
		handler: handler,
		log:     log.Sub("inbox"),
	}
	w.fetch = w.fetchUnseen
	return w
}

// Run polls until ctx is canceled. A failed poll is logged and retried on
// the next tick; the watcher never gives up on its own.
func (w *Watcher) Run(ctx context.Context) {
	interval := w.cfg.PollInterval
	if interval <= 0 {
		interval = 2 * time.Minute
	}

	w.log.Info().Str("host", w.cfg.Host).Str("mailbox", w.cfg.Mailbox).Dur("interval", interval).Msg("inbox watcher started")

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		w.poll()
		select {
		case <-ctx.Done():
			w.log.Info().Msg("inbox watcher stopped")
			return
		case <-ticker.C:
		}
	}
}

// poll fetches unseen mail once and dispatches each message.
func (w *Watcher) poll() {
	mails, err := w.fetch()
	if err != nil {
		w.log.Warn().Err(err).Msg("inbox poll failed")
		return
	}

	for _, m := range mails {
		reply := domain.ReplyEvent{
			FromAddress: m.From,
			Subject:     m.Subject,
			ReceivedAt:  m.Date,
		}

		matched := false
		if m.InReplyTo != "" && w.matcher != nil {
			campaignID, leadID, err := w.matcher.MatchMessageID(m.InReplyTo)
			if err == nil {
				reply.CampaignID = campaignID
				reply.LeadID = leadID
				matched = true
			}
		}

		w.log.Info().
			Str("from", m.From).
			Str("subject", m.Subject).
			Bool("matched", matched).
			Msg("inbound mail")

		if w.handler != nil {
			w.handler(reply, matched)
		}
	}
}

// fetchUnseen connects, pulls UNSEEN messages from the configured mailbox,
// and marks them seen so the next poll starts fresh.
func (w *Watcher) fetchUnseen() ([]InboundMail, error) {
	addr := fmt.Sprintf("%s:%d", w.cfg.Host, w.cfg.Port)
	c, err := client.DialTLS(addr, &tls.Config{})
	if err != nil {
		return nil, fmt.Errorf("failed to connect: %w", err)
	}
	defer c.Logout()

	if err := c.Login(w.cfg.Username, w.cfg.Password); err != nil {
		return nil, fmt.Errorf("login failed: %w", err)
	}

	mailbox := w.cfg.Mailbox
	if mailbox == "" {
		mailbox = "INBOX"
	}
	if _, err := c.Select(mailbox, false); err != nil {
		return nil, fmt.Errorf("failed to select mailbox: %w", err)
	}

	criteria := imap.NewSearchCriteria()
	criteria.WithoutFlags = []string{imap.SeenFlag}
	ids, err := c.Search(criteria)
	if err != nil {
		return nil, fmt.Errorf("search failed: %w", err)
	}
	if len(ids) == 0 {
		return nil, nil
	}

	seqset := new(imap.SeqSet)
	seqset.AddNum(ids...)

	messages := make(chan *imap.Message, 10)
	done := make(chan error, 1)
	items := []imap.FetchItem{imap.FetchEnvelope, imap.FetchUid}
	go func() {
		done <- c.Fetch(seqset, items, messages)
	}()

	var out []InboundMail
	for msg := range messages {
		if msg.Envelope == nil {
			continue
		}
		m := InboundMail{
			Subject:   msg.Envelope.Subject,
			MessageID: msg.Envelope.MessageId,
			InReplyTo: msg.Envelope.InReplyTo,
			Date:      msg.Envelope.Date,
		}
		if len(msg.Envelope.From) > 0 {
			m.From = msg.Envelope.From[0].Address()
		}
		out = append(out, m)
	}
	if err := <-done; err != nil {
		return nil, fmt.Errorf("fetch failed: %w", err)
	}

	// Mark processed messages seen.
	flags := []interface{}{imap.SeenFlag}
	if err := c.Store(seqset, imap.FormatFlagsOp(imap.AddFlags, true), flags, nil); err != nil {
		w.log.Warn().Err(err).Msg("marking messages seen failed")
	}

	return out, nil
}

// IsAutoReply reports whether a subject looks like an out-of-office or
// delivery notification rather than a human reply.
func IsAutoReply(subject string) bool {
	lower := strings.ToLower(subject)
	for _, marker := range []string{
		"out of office", "auto-reply", "automatic reply",
		"delivery status notification", "undeliverable",
	} {
		if strings.Contains(lower, marker) {
			return true
		}
	}
	return false
}

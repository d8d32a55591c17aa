// Package notify handles outbound campaign mail and inbound reply
// detection.
package notify

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/google/uuid"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	gmail "google.golang.org/api/gmail/v1"
	"google.golang.org/api/option"

	"github.com/leadgrid/leadgrid/internal/config"
	"github.com/leadgrid/leadgrid/internal/logging"
)

// Mail is one outbound message.
type Mail struct {
	To      string
	Subject string
	Body    string
	HTML    bool
}

// Sender delivers outbound mail. The Gmail implementation is the default;
// tests substitute their own.
type Sender interface {
	Send(ctx context.Context, m Mail) (messageID string, err error)
}

// GmailSender sends mail through the Gmail API using a cached OAuth token.
type GmailSender struct {
	svc  *gmail.Service
	from string
	log  *logging.Logger
}

// NewGmailSender builds a sender from the configured credentials and token
// files. The token must have been obtained beforehand (leadgrid config has
// the paths; the OAuth dance is a one-time manual step).
func NewGmailSender(ctx context.Context, cfg config.MailerConfig, log *logging.Logger) (*GmailSender, error) {
	b, err := os.ReadFile(cfg.CredentialsFile)
	if err != nil {
		return nil, fmt.Errorf("reading gmail credentials: %w", err)
	}

	oauthCfg, err := google.ConfigFromJSON(b, gmail.GmailSendScope)
	if err != nil {
		return nil, fmt.Errorf("parsing gmail credentials: %w", err)
	}

	token, err := tokenFromFile(cfg.TokenFile)
	if err != nil {
		return nil, fmt.Errorf("no auth token at %s - run 'leadgrid mail auth' first: %w", cfg.TokenFile, err)
	}

	svc, err := gmail.NewService(ctx, option.WithHTTPClient(oauthCfg.Client(ctx, token)))
	if err != nil {
		return nil, fmt.Errorf("creating gmail service: %w", err)
	}

	return &GmailSender{svc: svc, from: cfg.FromAddress, log: log.Sub("mailer")}, nil
}

// Send delivers one message and returns its RFC 5322 Message-ID, which the
// reply watcher later uses to match In-Reply-To headers.
func (g *GmailSender) Send(ctx context.Context, m Mail) (string, error) {
	messageID := fmt.Sprintf("<%s@leadgrid>", uuid.New().String())

	var msg strings.Builder
	if g.from != "" {
		msg.WriteString(fmt.Sprintf("From: %s\r\n", g.from))
	}
	msg.WriteString(fmt.Sprintf("To: %s\r\n", m.To))
	msg.WriteString(fmt.Sprintf("Subject: %s\r\n", m.Subject))
	msg.WriteString(fmt.Sprintf("Message-ID: %s\r\n", messageID))
	if m.HTML {
		msg.WriteString("MIME-Version: 1.0\r\n")
		msg.WriteString("Content-Type: text/html; charset=UTF-8\r\n")
	} else {
		msg.WriteString("Content-Type: text/plain; charset=UTF-8\r\n")
	}
	msg.WriteString("\r\n")
	msg.WriteString(m.Body)

	raw := base64.URLEncoding.EncodeToString([]byte(msg.String()))
	_, err := g.svc.Users.Messages.Send("me", &gmail.Message{Raw: raw}).Context(ctx).Do()
	if err != nil {
		return "", fmt.Errorf("sending mail to %s: %w", m.To, err)
	}

	g.log.Info().Str("to", m.To).Str("subject", m.Subject).Msg("mail sent")
	return messageID, nil
}

func tokenFromFile(file string) (*oauth2.Token, error) {
	f, err := os.Open(file)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	tok := &oauth2.Token{}
	return tok, json.NewDecoder(f).Decode(tok)
}

// RenderTemplate fills {{name}}-style placeholders in a campaign body.
// Unknown placeholders are left alone so a typo is visible in the preview
// rather than silently blanked.
func RenderTemplate(tmpl string, vars map[string]string) string {
	out := tmpl
	for k, v := range vars {
		out = strings.ReplaceAll(out, "{{"+k+"}}", v)
	}
	return out
}

// NotifyOperator emails the operator when something needs human attention.
// Failures here are logged and dropped: notification mail must never take
// the pipeline down.
func NotifyOperator(ctx context.Context, sender Sender, operator, subject, body string, log *logging.Logger) {
	if sender == nil || operator == "" {
		return
	}
	if _, err := sender.Send(ctx, Mail{To: operator, Subject: subject, Body: body}); err != nil {
		log.Warn().Err(err).Str("to", operator).Msg("operator notification failed")
	}
}

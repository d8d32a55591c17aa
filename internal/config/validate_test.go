package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidate_ValidDefaults(t *testing.T) {
	cfg := Defaults()
	issues := Validate(&cfg)
	assert.Empty(t, issues)
}

func TestValidate_InvalidPort(t *testing.T) {
	cfg := Defaults()

	cfg.Server.Port = -1
	issues := Validate(&cfg)
	assert.NotEmpty(t, issues)
	assert.Contains(t, issues[0].Path, "server.port")

	cfg.Server.Port = 70000
	issues = Validate(&cfg)
	assert.NotEmpty(t, issues)
}

func TestValidate_ValidPort(t *testing.T) {
	cfg := Defaults()
	cfg.Server.Port = 0
	assert.Empty(t, Validate(&cfg))

	cfg.Server.Port = 65535
	assert.Empty(t, Validate(&cfg))
}

func TestValidate_InvalidBind(t *testing.T) {
	cfg := Defaults()
	cfg.Server.Bind = "tailnet"
	issues := Validate(&cfg)
	require.Len(t, issues, 1)
	assert.Equal(t, "server.bind", issues[0].Path)
}

func TestValidate_InvalidAuthMode(t *testing.T) {
	cfg := Defaults()
	cfg.Server.Auth.Mode = "oauth"
	issues := Validate(&cfg)
	require.Len(t, issues, 1)
	assert.Equal(t, "server.auth.mode", issues[0].Path)
}

func TestValidate_InvalidProvider(t *testing.T) {
	cfg := Defaults()
	cfg.Providers.Primary = "claude"
	issues := Validate(&cfg)
	require.Len(t, issues, 1)
	assert.Equal(t, "providers.primary", issues[0].Path)
}

func TestValidate_SecondaryEqualsPrimary(t *testing.T) {
	cfg := Defaults()
	cfg.Providers.Secondary = cfg.Providers.Primary
	issues := Validate(&cfg)
	require.Len(t, issues, 1)
	assert.Equal(t, "providers.secondary", issues[0].Path)
}

func TestValidate_SecondaryDisabled(t *testing.T) {
	cfg := Defaults()
	cfg.Providers.Secondary = ""
	assert.Empty(t, Validate(&cfg))
}

func TestValidate_RetryBudgets(t *testing.T) {
	cfg := Defaults()
	cfg.Retry.MaxAttempts = 4
	cfg.Retry.MaxAttemptsExtended = 2
	issues := Validate(&cfg)
	require.Len(t, issues, 1)
	assert.Equal(t, "retry.maxAttemptsExtended", issues[0].Path)
}

func TestValidate_InboxRequiresHostAndUsername(t *testing.T) {
	cfg := Defaults()
	cfg.Inbox.Enabled = true
	issues := Validate(&cfg)
	require.Len(t, issues, 2)
	assert.Equal(t, "inbox.host", issues[0].Path)
	assert.Equal(t, "inbox.username", issues[1].Path)

	cfg.Inbox.Host = "imap.example.com"
	cfg.Inbox.Username = "outreach@example.com"
	assert.Empty(t, Validate(&cfg))
}

func TestValidate_MailerRequiresFromAddress(t *testing.T) {
	cfg := Defaults()
	cfg.Mailer.Enabled = true
	issues := Validate(&cfg)
	require.Len(t, issues, 1)
	assert.Equal(t, "mailer.fromAddress", issues[0].Path)
}

func TestValidate_InvalidLogLevel(t *testing.T) {
	cfg := Defaults()
	cfg.Logging.Level = "verbose"
	issues := Validate(&cfg)
	require.Len(t, issues, 1)
	assert.Equal(t, "logging.level", issues[0].Path)
}

func TestValidate_MultipleIssues(t *testing.T) {
	cfg := Defaults()
	cfg.Server.Port = -1
	cfg.Server.Bind = "everywhere"
	cfg.Logging.Level = "loud"
	issues := Validate(&cfg)
	assert.Len(t, issues, 3)
}

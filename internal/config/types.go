package config

import "time"

// Config is the root configuration for LeadGrid.
type Config struct {
	Server    ServerConfig    `yaml:"server,omitempty"`
	Database  DatabaseConfig  `yaml:"database,omitempty"`
	Providers ProvidersConfig `yaml:"providers,omitempty"`
	Retry     RetryConfig     `yaml:"retry,omitempty"`
	Apollo    ApolloConfig    `yaml:"apollo,omitempty"`
	Mailer    MailerConfig    `yaml:"mailer,omitempty"`
	Inbox     InboxConfig     `yaml:"inbox,omitempty"`
	Jobs      JobsConfig      `yaml:"jobs,omitempty"`
	Logging   LoggingConfig   `yaml:"logging,omitempty"`
}

// ServerConfig controls the HTTP/WebSocket API server.
type ServerConfig struct {
	Port           int        `yaml:"port,omitempty"`
	Bind           string     `yaml:"bind,omitempty"` // "loopback" | "lan" | "custom"
	CustomBindHost string     `yaml:"customBindHost,omitempty"`
	Auth           ServerAuth `yaml:"auth,omitempty"`
	AllowedOrigins []string   `yaml:"allowedOrigins,omitempty"`
}

// ServerAuth configures API authentication.
type ServerAuth struct {
	Mode     string `yaml:"mode,omitempty"` // "token" | "password"
	Token    string `yaml:"token,omitempty"`
	Password string `yaml:"password,omitempty"`
}

// DatabaseConfig locates the SQLite database.
type DatabaseConfig struct {
	Path string `yaml:"path,omitempty"`
}

// ProvidersConfig configures the AI providers used for classification.
type ProvidersConfig struct {
	Primary   string        `yaml:"primary,omitempty"`   // "openai" | "gemini"
	Secondary string        `yaml:"secondary,omitempty"` // fallback provider, "" disables fallback
	OpenAI    ProviderEntry `yaml:"openai,omitempty"`
	Gemini    ProviderEntry `yaml:"gemini,omitempty"`
}

// ProviderEntry holds one provider's credentials and default model.
type ProviderEntry struct {
	APIKey string `yaml:"apiKey,omitempty"`
	Model  string `yaml:"model,omitempty"`
}

// RetryConfig tunes the orchestration retry policy. Zero values fall back
// to the built-in policy constants.
type RetryConfig struct {
	MaxAttempts         int           `yaml:"maxAttempts,omitempty"`
	MaxAttemptsExtended int           `yaml:"maxAttemptsExtended,omitempty"`
	RequestTimeout      time.Duration `yaml:"requestTimeout,omitempty"`
}

// ApolloConfig configures the Apollo.io contact-search client.
type ApolloConfig struct {
	APIKey   string `yaml:"apiKey,omitempty"`
	PageSize int    `yaml:"pageSize,omitempty"`
}

// MailerConfig configures the Gmail API sender for campaign and operator mail.
type MailerConfig struct {
	Enabled         bool   `yaml:"enabled,omitempty"`
	CredentialsFile string `yaml:"credentialsFile,omitempty"` // OAuth client secret JSON
	TokenFile       string `yaml:"tokenFile,omitempty"`       // cached OAuth token
	FromAddress     string `yaml:"fromAddress,omitempty"`
	OperatorAddress string `yaml:"operatorAddress,omitempty"` // receives failure notifications
}

// InboxConfig configures the IMAP reply watcher.
type InboxConfig struct {
	Enabled      bool          `yaml:"enabled,omitempty"`
	Host         string        `yaml:"host,omitempty"`
	Port         int           `yaml:"port,omitempty"`
	Username     string        `yaml:"username,omitempty"`
	Password     string        `yaml:"password,omitempty"`
	Mailbox      string        `yaml:"mailbox,omitempty"`
	PollInterval time.Duration `yaml:"pollInterval,omitempty"`
}

// JobsConfig tunes the background job worker.
type JobsConfig struct {
	Workers      int           `yaml:"workers,omitempty"`
	PollInterval time.Duration `yaml:"pollInterval,omitempty"`
	MaxRetries   int           `yaml:"maxRetries,omitempty"`
}

// LoggingConfig controls log output.
type LoggingConfig struct {
	Level string `yaml:"level,omitempty"`
}

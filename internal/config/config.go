package config

import (
	"fmt"
	"time"
)

// ConfigError represents a configuration error.
type ConfigError struct {
	Message string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("config: %s", e.Message)
}

// Defaults returns a Config with sensible defaults applied.
func Defaults() Config {
	return Config{
		Server: ServerConfig{
			Port: 18600,
			Bind: "loopback",
			Auth: ServerAuth{
				Mode: "token",
			},
		},
		Providers: ProvidersConfig{
			Primary:   "openai",
			Secondary: "gemini",
		},
		Apollo: ApolloConfig{
			PageSize: 25,
		},
		Inbox: InboxConfig{
			Port:         993,
			Mailbox:      "INBOX",
			PollInterval: 2 * time.Minute,
		},
		Jobs: JobsConfig{
			Workers:      2,
			PollInterval: 5 * time.Second,
			MaxRetries:   3,
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

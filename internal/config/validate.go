package config

import (
	"fmt"
	"slices"
)

// ValidationIssue describes a problem with a config value.
type ValidationIssue struct {
	Path    string
	Message string
}

func (v ValidationIssue) String() string {
	return fmt.Sprintf("%s: %s", v.Path, v.Message)
}

// Validate checks a Config for issues. Returns nil if valid.
func Validate(cfg *Config) []ValidationIssue {
	var issues []ValidationIssue

	if cfg.Server.Port < 0 || cfg.Server.Port > 65535 {
		issues = append(issues, ValidationIssue{
			Path:    "server.port",
			Message: fmt.Sprintf("port must be 0-65535, got %d", cfg.Server.Port),
		})
	}

	validBinds := []string{"loopback", "lan", "custom"}
	if cfg.Server.Bind != "" && !slices.Contains(validBinds, cfg.Server.Bind) {
		issues = append(issues, ValidationIssue{
			Path:    "server.bind",
			Message: fmt.Sprintf("must be one of %v, got %q", validBinds, cfg.Server.Bind),
		})
	}

	validAuthModes := []string{"token", "password"}
	if cfg.Server.Auth.Mode != "" && !slices.Contains(validAuthModes, cfg.Server.Auth.Mode) {
		issues = append(issues, ValidationIssue{
			Path:    "server.auth.mode",
			Message: fmt.Sprintf("must be one of %v, got %q", validAuthModes, cfg.Server.Auth.Mode),
		})
	}

	validProviders := []string{"openai", "gemini"}
	if cfg.Providers.Primary != "" && !slices.Contains(validProviders, cfg.Providers.Primary) {
		issues = append(issues, ValidationIssue{
			Path:    "providers.primary",
			Message: fmt.Sprintf("must be one of %v, got %q", validProviders, cfg.Providers.Primary),
		})
	}
	if cfg.Providers.Secondary != "" && !slices.Contains(validProviders, cfg.Providers.Secondary) {
		issues = append(issues, ValidationIssue{
			Path:    "providers.secondary",
			Message: fmt.Sprintf("must be one of %v, got %q", validProviders, cfg.Providers.Secondary),
		})
	}
	if cfg.Providers.Secondary != "" && cfg.Providers.Secondary == cfg.Providers.Primary {
		issues = append(issues, ValidationIssue{
			Path:    "providers.secondary",
			Message: "secondary provider must differ from primary",
		})
	}

	if cfg.Retry.MaxAttempts < 0 {
		issues = append(issues, ValidationIssue{
			Path:    "retry.maxAttempts",
			Message: fmt.Sprintf("must be >= 0, got %d", cfg.Retry.MaxAttempts),
		})
	}
	if cfg.Retry.MaxAttemptsExtended != 0 && cfg.Retry.MaxAttemptsExtended < cfg.Retry.MaxAttempts {
		issues = append(issues, ValidationIssue{
			Path:    "retry.maxAttemptsExtended",
			Message: "extended attempt budget must be >= maxAttempts",
		})
	}

	if cfg.Inbox.Enabled {
		if cfg.Inbox.Host == "" {
			issues = append(issues, ValidationIssue{
				Path:    "inbox.host",
				Message: "host is required when inbox watching is enabled",
			})
		}
		if cfg.Inbox.Username == "" {
			issues = append(issues, ValidationIssue{
				Path:    "inbox.username",
				Message: "username is required when inbox watching is enabled",
			})
		}
	}

	if cfg.Mailer.Enabled && cfg.Mailer.FromAddress == "" {
		issues = append(issues, ValidationIssue{
			Path:    "mailer.fromAddress",
			Message: "fromAddress is required when the mailer is enabled",
		})
	}

	validLogLevels := []string{"silent", "fatal", "error", "warn", "info", "debug", "trace"}
	if cfg.Logging.Level != "" && !slices.Contains(validLogLevels, cfg.Logging.Level) {
		issues = append(issues, ValidationIssue{
			Path:    "logging.level",
			Message: fmt.Sprintf("must be one of %v, got %q", validLogLevels, cfg.Logging.Level),
		})
	}

	return issues
}

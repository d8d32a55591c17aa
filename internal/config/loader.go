package config

import (
	"os"
	"regexp"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// envVarPattern matches ${VAR_NAME} patterns in strings.
var envVarPattern = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)\}`)

// expandEnvVars replaces ${VAR} patterns with environment variable values.
// Unset variables are left unchanged.
func expandEnvVars(s string) string {
	return envVarPattern.ReplaceAllStringFunc(s, func(match string) string {
		varName := match[2 : len(match)-1]
		if val, ok := os.LookupEnv(varName); ok {
			return val
		}
		return match
	})
}

// expandSensitiveFields processes environment variable references in
// credential fields so API keys and tokens can be stored as ${ENV_VAR}.
func expandSensitiveFields(cfg *Config) {
	cfg.Server.Auth.Token = expandEnvVars(cfg.Server.Auth.Token)
	cfg.Server.Auth.Password = expandEnvVars(cfg.Server.Auth.Password)
	cfg.Providers.OpenAI.APIKey = expandEnvVars(cfg.Providers.OpenAI.APIKey)
	cfg.Providers.Gemini.APIKey = expandEnvVars(cfg.Providers.Gemini.APIKey)
	cfg.Apollo.APIKey = expandEnvVars(cfg.Apollo.APIKey)
	cfg.Inbox.Password = expandEnvVars(cfg.Inbox.Password)
}

// Load reads the config file, applies environment overrides, and returns
// a merged Config. Missing files produce defaults only.
func Load(path string) (Config, error) {
	cfg := Defaults()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			applyEnvOverrides(&cfg)
			return cfg, nil
		}
		return cfg, err
	}

	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, &ConfigError{Message: "failed to parse config: " + err.Error()}
	}

	applyDefaults(&cfg)
	applyEnvOverrides(&cfg)
	expandSensitiveFields(&cfg)
	return cfg, nil
}

// applyDefaults fills zero-value fields with sensible defaults.
func applyDefaults(cfg *Config) {
	def := Defaults()

	if cfg.Server.Port == 0 {
		cfg.Server.Port = def.Server.Port
	}
	if cfg.Server.Bind == "" {
		cfg.Server.Bind = def.Server.Bind
	}
	if cfg.Server.Auth.Mode == "" {
		cfg.Server.Auth.Mode = def.Server.Auth.Mode
	}
	if cfg.Providers.Primary == "" {
		cfg.Providers.Primary = def.Providers.Primary
	}
	if cfg.Apollo.PageSize == 0 {
		cfg.Apollo.PageSize = def.Apollo.PageSize
	}
	if cfg.Inbox.Port == 0 {
		cfg.Inbox.Port = def.Inbox.Port
	}
	if cfg.Inbox.Mailbox == "" {
		cfg.Inbox.Mailbox = def.Inbox.Mailbox
	}
	if cfg.Inbox.PollInterval == 0 {
		cfg.Inbox.PollInterval = def.Inbox.PollInterval
	}
	if cfg.Jobs.Workers == 0 {
		cfg.Jobs.Workers = def.Jobs.Workers
	}
	if cfg.Jobs.PollInterval == 0 {
		cfg.Jobs.PollInterval = def.Jobs.PollInterval
	}
	if cfg.Jobs.MaxRetries == 0 {
		cfg.Jobs.MaxRetries = def.Jobs.MaxRetries
	}
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = def.Logging.Level
	}
}

// applyEnvOverrides reads LEADGRID_* environment variables and overrides config values.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("LEADGRID_SERVER_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Server.Port = port
		}
	}
	if v := os.Getenv("LEADGRID_DB_PATH"); v != "" {
		cfg.Database.Path = v
	}
	if v := os.Getenv("LEADGRID_LOG_LEVEL"); v != "" {
		cfg.Logging.Level = strings.ToLower(v)
	}
	if v := os.Getenv("OPENAI_API_KEY"); v != "" && cfg.Providers.OpenAI.APIKey == "" {
		cfg.Providers.OpenAI.APIKey = v
	}
	if v := os.Getenv("GEMINI_API_KEY"); v != "" && cfg.Providers.Gemini.APIKey == "" {
		cfg.Providers.Gemini.APIKey = v
	}
	if v := os.Getenv("APOLLO_API_KEY"); v != "" && cfg.Apollo.APIKey == "" {
		cfg.Apollo.APIKey = v
	}
}

// LoadRaw reads the config file into a generic map for path-based access.
func LoadRaw(path string) (map[string]any, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return map[string]any{}, nil
		}
		return nil, err
	}

	var raw map[string]any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, &ConfigError{Message: "failed to parse config: " + err.Error()}
	}
	return raw, nil
}

// SaveRaw writes a generic map back to a YAML config file.
func SaveRaw(path string, raw map[string]any) error {
	data, err := yaml.Marshal(raw)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o600)
}

// Package config loads the bot configuration from a JSON file with
// environment-variable substitution, applies defaults and validates the
// result.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
)

// Config is the root configuration.
type Config struct {
	General  GeneralConfig  `json:"general"`
	Provider ProviderConfig `json:"provider"`
	Session  SessionConfig  `json:"session"`
	Gateways GatewaysConfig `json:"gateways"`
	Retry    RetryConfig    `json:"retry"`
	Audit    AuditConfig    `json:"audit"`
	Intents  IntentsConfig  `json:"intents"`
}

type GeneralConfig struct {
	LogLevel string `json:"logLevel"`
	LogFile  string `json:"logFile,omitempty"` // optional log file path
}

// ProviderConfig selects and configures the messaging provider. The name
// decides both the webhook payload format and the reply mode: wppconnect
// delivers sequentially, digisac consolidates.
type ProviderConfig struct {
	Name          string `json:"name"` // "wppconnect" | "digisac"
	APIBase       string `json:"apiBase"`
	Token         string `json:"token"`
	Session       string `json:"session,omitempty"`   // wppconnect session name
	ServiceID     string `json:"serviceId,omitempty"` // digisac service id
	WebhookPort   int    `json:"webhookPort"`
	WebhookPath   string `json:"webhookPath"`
	WebhookSecret string `json:"webhookSecret,omitempty"`
	SendDelayMs   int    `json:"sendDelayMs"` // pacing between sequential sends
}

type SessionConfig struct {
	TimeoutMinutes int         `json:"timeoutMinutes"`
	Store          string      `json:"store"` // "memory" | "redis"
	Redis          RedisConfig `json:"redis"`
}

type RedisConfig struct {
	Addr     string `json:"addr"`
	Password string `json:"password,omitempty"`
	DB       int    `json:"db"`
}

type GatewaysConfig struct {
	Entitlement EndpointConfig `json:"entitlement"`
	Documents   EndpointConfig `json:"documents"`
}

// EndpointConfig points at one upstream REST service.
type EndpointConfig struct {
	BaseURL string `json:"baseUrl"`
	Token   string `json:"token,omitempty"`
}

type RetryConfig struct {
	Attempts int `json:"attempts"`
	DelayMs  int `json:"delayMs"`
}

type AuditConfig struct {
	DBPath string `json:"dbPath"`
}

type IntentsConfig struct {
	AliasPath string `json:"aliasPath,omitempty"` // overrides the embedded alias table
}

// DefaultConfigDir returns the default config directory (~/.billbot).
func DefaultConfigDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".billbot"
	}
	return filepath.Join(home, ".billbot")
}

func DefaultConfigPath() string {
	return filepath.Join(DefaultConfigDir(), "config.json")
}

func Load(path string) (*Config, error) {
	path = ExpandPath(path)

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("cannot read config file %s: %w", path, err)
	}

	// Substitute environment variables: ${VAR} and ${VAR:-default}
	data = []byte(ExpandEnvVars(string(data)))

	cfg := Defaults()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("cannot parse config file %s: %w", path, err)
	}

	cfg.Audit.DBPath = ExpandPath(cfg.Audit.DBPath)
	cfg.General.LogFile = ExpandPath(cfg.General.LogFile)
	cfg.Intents.AliasPath = ExpandPath(cfg.Intents.AliasPath)

	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("config validation: %w", err)
	}

	return cfg, nil
}

// envVarPattern matches ${VAR} and ${VAR:-default} patterns in config strings.
var envVarPattern = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)(?::-(.*?))?\}`)

// ExpandEnvVars replaces ${VAR} with the environment variable value.
// Supports default values: ${VAR:-default} uses "default" when VAR is unset or empty.
func ExpandEnvVars(input string) string {
	return envVarPattern.ReplaceAllStringFunc(input, func(match string) string {
		groups := envVarPattern.FindStringSubmatch(match)
		if len(groups) < 2 {
			return match
		}
		varName := groups[1]
		defaultVal := ""
		hasDefault := len(groups) >= 3 && groups[2] != ""
		if hasDefault {
			defaultVal = groups[2]
		}

		val, exists := os.LookupEnv(varName)
		if !exists || val == "" {
			if hasDefault {
				return defaultVal
			}
			return match // Keep original if no env var and no default
		}
		return val
	})
}

func Save(path string, cfg *Config) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("cannot create config directory: %w", err)
	}

	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return fmt.Errorf("cannot marshal config: %w", err)
	}

	return os.WriteFile(path, data, 0o644)
}

// Validate checks that the config has valid values.
func Validate(cfg *Config) error {
	var errs []string

	switch cfg.Provider.Name {
	case "wppconnect", "digisac":
		// valid
	default:
		errs = append(errs, "provider.name must be one of: wppconnect, digisac")
	}
	if cfg.Provider.APIBase == "" {
		errs = append(errs, "provider.apiBase is required")
	}
	if cfg.Provider.Name == "wppconnect" && cfg.Provider.Session == "" {
		errs = append(errs, "provider.session is required for wppconnect")
	}
	if cfg.Provider.WebhookPort < 1 || cfg.Provider.WebhookPort > 65535 {
		errs = append(errs, "provider.webhookPort must be between 1 and 65535")
	}
	if cfg.Provider.SendDelayMs < 0 {
		errs = append(errs, "provider.sendDelayMs must be >= 0")
	}

	if cfg.Session.TimeoutMinutes < 1 {
		errs = append(errs, "session.timeoutMinutes must be >= 1")
	}
	switch cfg.Session.Store {
	case "memory", "redis":
		// valid
	default:
		errs = append(errs, "session.store must be one of: memory, redis")
	}
	if cfg.Session.Store == "redis" && cfg.Session.Redis.Addr == "" {
		errs = append(errs, "session.redis.addr is required when session.store is redis")
	}

	if cfg.Gateways.Entitlement.BaseURL == "" {
		errs = append(errs, "gateways.entitlement.baseUrl is required")
	}
	if cfg.Gateways.Documents.BaseURL == "" {
		errs = append(errs, "gateways.documents.baseUrl is required")
	}

	if cfg.Retry.Attempts < 1 || cfg.Retry.Attempts > 10 {
		errs = append(errs, "retry.attempts must be between 1 and 10")
	}
	if cfg.Retry.DelayMs < 0 {
		errs = append(errs, "retry.delayMs must be >= 0")
	}

	if cfg.Audit.DBPath == "" {
		errs = append(errs, "audit.dbPath is required")
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation errors:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}

// ExpandPath resolves ~/ to the user's home directory.
func ExpandPath(path string) string {
	if strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return path
		}
		return filepath.Join(home, path[2:])
	}
	return path
}

package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.json")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

const validConfig = `{
	"provider": {
		"name": "digisac",
		"apiBase": "https://api.digisac.example",
		"token": "tok-1"
	},
	"gateways": {
		"entitlement": {"baseUrl": "https://erp.example/entitlement"},
		"documents": {"baseUrl": "https://erp.example/documents"}
	}
}`

func TestLoad_AppliesDefaults(t *testing.T) {
	cfg, err := Load(writeConfig(t, validConfig))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Session.TimeoutMinutes != 30 {
		t.Errorf("timeoutMinutes = %d, want default 30", cfg.Session.TimeoutMinutes)
	}
	if cfg.Session.Store != "memory" {
		t.Errorf("store = %s, want default memory", cfg.Session.Store)
	}
	if cfg.Retry.Attempts != 3 || cfg.Retry.DelayMs != 1000 {
		t.Errorf("retry = %+v", cfg.Retry)
	}
	if cfg.Provider.WebhookPath != "/webhook" {
		t.Errorf("webhookPath = %s", cfg.Provider.WebhookPath)
	}
}

func TestLoad_EnvExpansion(t *testing.T) {
	t.Setenv("BILLBOT_TOKEN", "secret-token")
	body := strings.Replace(validConfig, `"token": "tok-1"`, `"token": "${BILLBOT_TOKEN}"`, 1)

	cfg, err := Load(writeConfig(t, body))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Provider.Token != "secret-token" {
		t.Errorf("token = %q", cfg.Provider.Token)
	}
}

func TestExpandEnvVars_Defaults(t *testing.T) {
	os.Unsetenv("BILLBOT_UNSET_VAR")
	cases := []struct {
		in, want string
	}{
		{"${BILLBOT_UNSET_VAR:-fallback}", "fallback"},
		{"${BILLBOT_UNSET_VAR}", "${BILLBOT_UNSET_VAR}"},
		{"plain text", "plain text"},
	}
	for _, tc := range cases {
		if got := ExpandEnvVars(tc.in); got != tc.want {
			t.Errorf("ExpandEnvVars(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestValidate_Errors(t *testing.T) {
	cases := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{
			name:    "unknown provider",
			mutate:  func(c *Config) { c.Provider.Name = "telegram" },
			wantErr: "provider.name",
		},
		{
			name:    "wppconnect without session",
			mutate:  func(c *Config) { c.Provider.Name = "wppconnect"; c.Provider.Session = "" },
			wantErr: "provider.session",
		},
		{
			name:    "redis store without addr",
			mutate:  func(c *Config) { c.Session.Store = "redis"; c.Session.Redis.Addr = "" },
			wantErr: "session.redis.addr",
		},
		{
			name:    "missing entitlement gateway",
			mutate:  func(c *Config) { c.Gateways.Entitlement.BaseURL = "" },
			wantErr: "gateways.entitlement",
		},
		{
			name:    "zero timeout",
			mutate:  func(c *Config) { c.Session.TimeoutMinutes = 0 },
			wantErr: "session.timeoutMinutes",
		},
		{
			name:    "retry attempts out of range",
			mutate:  func(c *Config) { c.Retry.Attempts = 0 },
			wantErr: "retry.attempts",
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := Defaults()
			cfg.Provider.Name = "digisac"
			cfg.Provider.APIBase = "https://api.example"
			cfg.Gateways.Entitlement.BaseURL = "https://erp.example/e"
			cfg.Gateways.Documents.BaseURL = "https://erp.example/d"
			tc.mutate(cfg)

			err := Validate(cfg)
			if err == nil {
				t.Fatal("expected validation error")
			}
			if !strings.Contains(err.Error(), tc.wantErr) {
				t.Errorf("err = %v, want mention of %s", err, tc.wantErr)
			}
		})
	}
}

func TestLoad_MissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.json")); err == nil {
		t.Error("expected error for missing file")
	}
}

package config

func Defaults() *Config {
	return &Config{
		General: GeneralConfig{
			LogLevel: "info",
		},
		Provider: ProviderConfig{
			Name:        "wppconnect",
			WebhookPort: 9090,
			WebhookPath: "/webhook",
			SendDelayMs: 800,
		},
		Session: SessionConfig{
			TimeoutMinutes: 30,
			Store:          "memory",
			Redis: RedisConfig{
				Addr: "localhost:6379",
			},
		},
		Retry: RetryConfig{
			Attempts: 3,
			DelayMs:  1000,
		},
		Audit: AuditConfig{
			DBPath: "~/.billbot/audit.db",
		},
	}
}

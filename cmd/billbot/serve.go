package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"billbot/internal/audit"
	"billbot/internal/channel"
	"billbot/internal/config"
	"billbot/internal/conversation"
	"billbot/internal/domain"
	"billbot/internal/gateway"
	"billbot/internal/intent"
	"billbot/internal/render"
	"billbot/internal/session"

	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
)

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the webhook server and conversation engine",
		Long:  "Starts the provider webhook, the conversation engine and the outbound channel. Press Ctrl+C to stop.",
		RunE:  runServe,
	}
}

func runServe(cmd *cobra.Command, args []string) error {
	cfgPath := resolveConfigPath()
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if err := setupLogger(cfg); err != nil {
		return fmt.Errorf("setup logger: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	timeout := time.Duration(cfg.Session.TimeoutMinutes) * time.Minute
	sessions, err := buildSessionRepo(ctx, cfg, timeout)
	if err != nil {
		return err
	}

	auditStore, err := audit.NewSQLiteStore(cfg.Audit.DBPath, logger)
	if err != nil {
		return fmt.Errorf("audit store: %w", err)
	}
	defer auditStore.Close()

	caller := gateway.NewCaller(cfg.Retry.Attempts, time.Duration(cfg.Retry.DelayMs)*time.Millisecond, logger)

	entitlements := gateway.NewEntitlementClient(gateway.EntitlementConfig{
		BaseURL: cfg.Gateways.Entitlement.BaseURL,
		APIKey:  cfg.Gateways.Entitlement.Token,
	}, caller, logger)

	documents := gateway.NewDocumentClient(gateway.DocumentConfig{
		BaseURL: cfg.Gateways.Documents.BaseURL,
		APIKey:  cfg.Gateways.Documents.Token,
	}, caller, logger)

	intents, err := buildResolver(cfg)
	if err != nil {
		return err
	}

	engine := conversation.New(conversation.Config{
		Sessions:     sessions,
		Entitlements: entitlements,
		Documents:    documents,
		Audit:        auditStore,
		Caller:       caller,
		Intents:      intents,
		Logger:       logger,
	})

	outbound, err := buildChannel(cfg)
	if err != nil {
		return err
	}

	webhook := channel.NewWebhook(channel.WebhookConfig{
		Port:     cfg.Provider.WebhookPort,
		Path:     cfg.Provider.WebhookPath,
		Provider: cfg.Provider.Name,
		Secret:   cfg.Provider.WebhookSecret,
		Engine:   engine,
		Channel:  outbound,
		Logger:   logger,
	})

	logger.Info("billbot starting",
		"version", version,
		"provider", cfg.Provider.Name,
		"channel", outbound.Name(),
		"session_store", cfg.Session.Store,
		"session_timeout", timeout,
	)

	return webhook.Start(ctx)
}

func buildSessionRepo(ctx context.Context, cfg *config.Config, timeout time.Duration) (domain.SessionRepository, error) {
	switch cfg.Session.Store {
	case "redis":
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.Session.Redis.Addr,
			Password: cfg.Session.Redis.Password,
			DB:       cfg.Session.Redis.DB,
		})
		pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		if err := rdb.Ping(pingCtx).Err(); err != nil {
			return nil, fmt.Errorf("redis ping %s: %w", cfg.Session.Redis.Addr, err)
		}
		return session.NewRedisRepository(rdb, timeout), nil
	default:
		return session.NewMemoryRepository(timeout), nil
	}
}

func buildResolver(cfg *config.Config) (*intent.Resolver, error) {
	if cfg.Intents.AliasPath == "" {
		return intent.NewResolver(), nil
	}
	r, err := intent.NewResolverFromFile(cfg.Intents.AliasPath)
	if err != nil {
		return nil, fmt.Errorf("intent aliases %s: %w", cfg.Intents.AliasPath, err)
	}
	return r, nil
}

// buildChannel wires the provider transport to its reply mode: wppconnect
// sends item by item, digisac sends one consolidated payload.
func buildChannel(cfg *config.Config) (domain.Channel, error) {
	switch cfg.Provider.Name {
	case "wppconnect":
		sender := channel.NewWppConnectSender(cfg.Provider.APIBase, cfg.Provider.Session, cfg.Provider.Token, logger)
		pace := time.Duration(cfg.Provider.SendDelayMs) * time.Millisecond
		return render.NewSequentialChannel(sender, pace, logger), nil
	case "digisac":
		sender := channel.NewDigisacSender(cfg.Provider.APIBase, cfg.Provider.Token, cfg.Provider.ServiceID, logger)
		return render.NewConsolidatedChannel(sender, logger), nil
	default:
		return nil, fmt.Errorf("unknown provider: %s", cfg.Provider.Name)
	}
}

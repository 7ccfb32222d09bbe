// Package channel hosts the inbound webhook server and the outbound provider
// transports. The webhook accepts provider callbacks, normalizes them and
// hands each message to the conversation engine; the transports carry replies
// back through the provider's REST API.
package channel

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"billbot/internal/domain"
	"billbot/internal/normalize"
)

// Processor runs one conversation turn for a normalized inbound message.
type Processor interface {
	Process(ctx context.Context, msg domain.Inbound) *domain.Reply
}

// WebhookConfig configures the webhook server.
type WebhookConfig struct {
	Port     int
	Path     string // webhook URL path (default: /webhook)
	Provider string // payload format; empty means detect per request
	Secret   string // HMAC secret for verifying webhook signatures
	Engine   Processor
	Channel  domain.Channel
	Logger   *slog.Logger
}

// Webhook receives provider callbacks over HTTP POST.
type Webhook struct {
	port     int
	path     string
	provider string
	secret   string
	engine   Processor
	channel  domain.Channel
	logger   *slog.Logger
	server   *http.Server
}

// NewWebhook creates a webhook server.
func NewWebhook(cfg WebhookConfig) *Webhook {
	if cfg.Path == "" {
		cfg.Path = "/webhook"
	}
	if cfg.Port == 0 {
		cfg.Port = 9090
	}
	return &Webhook{
		port:     cfg.Port,
		path:     cfg.Path,
		provider: cfg.Provider,
		secret:   cfg.Secret,
		engine:   cfg.Engine,
		channel:  cfg.Channel,
		logger:   cfg.Logger,
	}
}

// Start runs the HTTP server until ctx is canceled.
func (w *Webhook) Start(ctx context.Context) error {
	w.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", w.port),
		Handler:           w.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	w.logger.Info("webhook server starting", "port", w.port, "path", w.path)

	errCh := make(chan error, 1)
	go func() {
		if err := w.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		w.logger.Info("webhook server shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return w.server.Shutdown(shutdownCtx)
	case err := <-errCh:
		return fmt.Errorf("webhook server: %w", err)
	}
}

// Handler returns the webhook HTTP handler (for mounting or tests).
func (w *Webhook) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc(w.path, func(rw http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(rw, "Method Not Allowed", http.StatusMethodNotAllowed)
			return
		}
		w.handleWebhook(rw, r)
	})
	mux.HandleFunc("/healthz", func(rw http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			http.Error(rw, "Method Not Allowed", http.StatusMethodNotAllowed)
			return
		}
		rw.WriteHeader(http.StatusOK)
		fmt.Fprint(rw, "ok")
	})
	return mux
}

// handleWebhook acknowledges every provider callback with 200 so the provider
// never re-delivers: a malformed body is logged and dropped, never bounced.
// Only a failed signature check is refused.
func (w *Webhook) handleWebhook(rw http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, 4<<20))
	if err != nil {
		rw.WriteHeader(http.StatusOK)
		return
	}
	defer r.Body.Close()

	if w.secret != "" {
		sig := r.Header.Get("X-Signature-256")
		if !verifyHMAC(body, w.secret, sig) {
			w.logger.Warn("webhook signature rejected", "path", r.URL.Path)
			http.Error(rw, "Forbidden", http.StatusForbidden)
			return
		}
	}

	provider := w.provider
	if provider == "" {
		provider = normalize.Detect(body)
	}

	messages := normalize.Parse(provider, body)
	if len(messages) == 0 {
		w.logger.Warn("webhook payload yielded no messages", "provider", provider, "body_len", len(body))
		rw.WriteHeader(http.StatusOK)
		return
	}

	w.logger.Info("webhook received", "provider", provider, "messages", len(messages))

	// The provider is acknowledged before processing finishes; turns run in
	// the background so a slow upstream never stalls the callback.
	for _, msg := range messages {
		go w.processOne(msg)
	}

	rw.WriteHeader(http.StatusOK)
}

func (w *Webhook) processOne(msg domain.Inbound) {
	defer func() {
		if r := recover(); r != nil {
			w.logger.Error("turn processing panicked", "identity", msg.Identity, "panic", r)
		}
	}()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	reply := w.engine.Process(ctx, msg)
	if reply == nil || reply.Empty() {
		return
	}
	if err := w.channel.Deliver(ctx, msg.Identity, reply); err != nil {
		w.logger.Warn("reply delivery incomplete", "identity", msg.Identity, "err", err)
	}
}

// verifyHMAC verifies the HMAC-SHA256 signature of the body.
func verifyHMAC(body []byte, secret, signature string) bool {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	expected := "sha256=" + hex.EncodeToString(mac.Sum(nil))
	return hmac.Equal([]byte(expected), []byte(signature))
}

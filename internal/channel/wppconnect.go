package channel

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"billbot/internal/domain"
	"billbot/internal/gateway"
)

// WppConnectSender sends replies through a WPPConnect session API, one HTTP
// call per item.
type WppConnectSender struct {
	baseURL string
	session string
	token   string
	client  *http.Client
	logger  *slog.Logger
}

func NewWppConnectSender(baseURL, session, token string, logger *slog.Logger) *WppConnectSender {
	return &WppConnectSender{
		baseURL: baseURL,
		session: session,
		token:   token,
		client:  &http.Client{Timeout: 30 * time.Second},
		logger:  logger,
	}
}

func (s *WppConnectSender) SendText(ctx context.Context, to domain.Identity, text string) error {
	return s.post(ctx, "send-message", map[string]any{
		"phone":   string(to),
		"message": text,
	})
}

func (s *WppConnectSender) SendDocument(ctx context.Context, to domain.Identity, caption string, bin domain.Binary) error {
	return s.post(ctx, "send-file-base64", map[string]any{
		"phone":    string(to),
		"filename": bin.Filename,
		"caption":  caption,
		"base64":   fmt.Sprintf("data:%s;base64,%s", bin.MimeType, bin.Base64),
	})
}

func (s *WppConnectSender) post(ctx context.Context, endpoint string, payload map[string]any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal: %w", err)
	}

	url := fmt.Sprintf("%s/api/%s/%s", s.baseURL, s.session, endpoint)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+s.token)

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("send: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusMultipleChoices {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		s.logger.Warn("wppconnect send rejected", "endpoint", endpoint, "status", resp.StatusCode)
		return &gateway.StatusError{Code: resp.StatusCode, Body: string(respBody)}
	}
	return nil
}

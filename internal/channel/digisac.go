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

// DigisacSender sends a whole reply as one Digisac message: batched text plus
// an optional attachments array.
type DigisacSender struct {
	baseURL   string
	token     string
	serviceID string
	client    *http.Client
	logger    *slog.Logger
}

func NewDigisacSender(baseURL, token, serviceID string, logger *slog.Logger) *DigisacSender {
	return &DigisacSender{
		baseURL:   baseURL,
		token:     token,
		serviceID: serviceID,
		client:    &http.Client{Timeout: 30 * time.Second},
		logger:    logger,
	}
}

type digisacFile struct {
	Base64   string `json:"base64"`
	MimeType string `json:"mimetype"`
	Name     string `json:"name"`
}

type digisacMessage struct {
	Number    string        `json:"number"`
	ServiceID string        `json:"serviceId,omitempty"`
	Text      string        `json:"text"`
	Files     []digisacFile `json:"files,omitempty"`
}

func (s *DigisacSender) SendBatch(ctx context.Context, to domain.Identity, text string, attachments []domain.Binary) error {
	msg := digisacMessage{
		Number:    string(to),
		ServiceID: s.serviceID,
		Text:      text,
	}
	for _, bin := range attachments {
		msg.Files = append(msg.Files, digisacFile{
			Base64:   bin.Base64,
			MimeType: bin.MimeType,
			Name:     bin.Filename,
		})
	}

	body, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("marshal: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.baseURL+"/v1/messages", bytes.NewReader(body))
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
		s.logger.Warn("digisac send rejected", "status", resp.StatusCode, "attachments", len(attachments))
		return &gateway.StatusError{Code: resp.StatusCode, Body: string(respBody)}
	}
	return nil
}

// Package render delivers a turn's reply through the active channel mode:
// sequential providers get one outbound call per item, consolidated providers
// get a single payload with batched text and attachments.
package render

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"billbot/internal/domain"
)

// Sender is a provider transport that accepts independent outbound calls.
type Sender interface {
	SendText(ctx context.Context, to domain.Identity, text string) error
	SendDocument(ctx context.Context, to domain.Identity, caption string, bin domain.Binary) error
}

// BatchSender is a provider transport that accepts exactly one reply per
// inbound message.
type BatchSender interface {
	SendBatch(ctx context.Context, to domain.Identity, text string, attachments []domain.Binary) error
}

// SequentialChannel emits ordered independent sends with pacing before each
// document upload. A failed send is logged and the remaining items still go
// out: partial delivery is accepted.
type SequentialChannel struct {
	sender Sender
	pace   time.Duration
	logger *slog.Logger
}

func NewSequentialChannel(sender Sender, pace time.Duration, logger *slog.Logger) *SequentialChannel {
	return &SequentialChannel{sender: sender, pace: pace, logger: logger}
}

func (c *SequentialChannel) Name() string { return "sequential" }

func (c *SequentialChannel) Deliver(ctx context.Context, to domain.Identity, reply *domain.Reply) error {
	var failed []error
	for i, item := range reply.Items {
		var err error
		switch item.Kind {
		case domain.ItemText:
			err = c.sender.SendText(ctx, to, item.Text)
		case domain.ItemMenu:
			err = c.sender.SendText(ctx, to, MenuText(item))
		case domain.ItemDocument:
			// The caption travels with the binary; sending it as a separate
			// text message too would show the user the notice twice.
			c.wait(ctx)
			bin := *item.Document
			bin.Base64 = NormalizeBase64(bin.Base64)
			err = c.sender.SendDocument(ctx, to, item.Text, bin)
		}
		if err != nil {
			c.logger.Warn("partial delivery: send failed", "to", to, "item", i, "kind", item.Kind, "err", err)
			failed = append(failed, fmt.Errorf("item %d (%s): %w", i, item.Kind, err))
		}
	}
	if len(failed) > 0 {
		return fmt.Errorf("delivered %d/%d items: %w",
			len(reply.Items)-len(failed), len(reply.Items), errors.Join(failed...))
	}
	return nil
}

func (c *SequentialChannel) wait(ctx context.Context) {
	if c.pace <= 0 {
		return
	}
	select {
	case <-ctx.Done():
	case <-time.After(c.pace):
	}
}

// ConsolidatedChannel accumulates all text into one ordered body and all
// binaries into one attachments array, delivered in a single call. With zero
// attachments it degrades to a text-only payload rather than sending an
// empty array.
type ConsolidatedChannel struct {
	sender BatchSender
	logger *slog.Logger
}

func NewConsolidatedChannel(sender BatchSender, logger *slog.Logger) *ConsolidatedChannel {
	return &ConsolidatedChannel{sender: sender, logger: logger}
}

func (c *ConsolidatedChannel) Name() string { return "consolidated" }

func (c *ConsolidatedChannel) Deliver(ctx context.Context, to domain.Identity, reply *domain.Reply) error {
	var (
		blocks      []string
		attachments []domain.Binary
	)
	for _, item := range reply.Items {
		switch item.Kind {
		case domain.ItemText:
			blocks = append(blocks, item.Text)
		case domain.ItemMenu:
			blocks = append(blocks, MenuText(item))
		case domain.ItemDocument:
			if item.Text != "" {
				blocks = append(blocks, item.Text)
			}
			if item.Document != nil && item.Document.Base64 != "" {
				bin := *item.Document
				bin.Base64 = NormalizeBase64(bin.Base64)
				attachments = append(attachments, bin)
			}
		}
	}

	body := strings.Join(blocks, "\n\n")
	if err := c.sender.SendBatch(ctx, to, body, attachments); err != nil {
		c.logger.Warn("consolidated delivery failed", "to", to, "attachments", len(attachments), "err", err)
		return err
	}
	return nil
}

// MenuText renders a menu item as numbered lines.
func MenuText(item domain.ReplyItem) string {
	var b strings.Builder
	b.WriteString(item.Text)
	for _, opt := range item.Options {
		b.WriteString("\n")
		b.WriteString(opt.Code)
		b.WriteString(" - ")
		b.WriteString(opt.Label)
	}
	return b.String()
}

// NormalizeBase64 strips data-URI prefixes, line breaks and whitespace from a
// base64 payload. Both channel modes apply it before inclusion.
func NormalizeBase64(s string) string {
	if idx := strings.Index(s, ";base64,"); idx >= 0 && strings.HasPrefix(s, "data:") {
		s = s[idx+len(";base64,"):]
	}
	return strings.Map(func(r rune) rune {
		switch r {
		case '\n', '\r', ' ', '\t':
			return -1
		}
		return r
	}, s)
}

package gateway

import (
	"context"
	"errors"
	"log/slog"
	"net/url"
	"time"

	"billbot/internal/domain"
)

// EntitlementClient answers "who is this phone or identifier, and are they
// blocked or authorized" against the ERP entitlement gateway.
type EntitlementClient struct {
	client
}

// EntitlementConfig configures the entitlement gateway client.
type EntitlementConfig struct {
	BaseURL string
	APIKey  string
	Timeout time.Duration
}

func NewEntitlementClient(cfg EntitlementConfig, caller *Caller, logger *slog.Logger) *EntitlementClient {
	return &EntitlementClient{client: newClient(cfg.BaseURL, cfg.APIKey, cfg.Timeout, caller, logger)}
}

// LookupByPhone returns the 0..n accounts linked to a phone, each with its
// nested contacts. An unknown phone is a success with an empty list.
func (c *EntitlementClient) LookupByPhone(ctx context.Context, phone string) domain.Result[[]domain.Account] {
	var payload struct {
		Accounts []domain.Account `json:"accounts"`
	}
	q := url.Values{"phone": {phone}}
	err := c.getJSON(ctx, "entitlement.lookupByPhone", "/accounts/by-phone", q, &payload)
	if errors.Is(err, errNotFound) {
		return domain.Ok[[]domain.Account](nil)
	}
	if err != nil {
		return domain.Fail[[]domain.Account](err)
	}
	return domain.Ok(payload.Accounts)
}

// LookupByLegalID returns exactly one account, or a successful nil when the
// identifier is unknown — not-found is a conversation branch, not a failure.
func (c *EntitlementClient) LookupByLegalID(ctx context.Context, legalID string) domain.Result[*domain.Account] {
	var payload struct {
		Account *domain.Account `json:"account"`
	}
	q := url.Values{"legalId": {legalID}}
	err := c.getJSON(ctx, "entitlement.lookupByLegalId", "/accounts/by-legal-id", q, &payload)
	if errors.Is(err, errNotFound) {
		return domain.Ok[*domain.Account](nil)
	}
	if err != nil {
		return domain.Fail[*domain.Account](err)
	}
	return domain.Ok(payload.Account)
}

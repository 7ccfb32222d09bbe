package gateway

import (
	"context"
	"log/slog"
	"net/url"
	"time"

	"billbot/internal/domain"
)

// DocumentClient lists open billing documents and fetches their binary
// renditions from the ERP document gateway.
type DocumentClient struct {
	client
}

// DocumentConfig configures the document gateway client.
type DocumentConfig struct {
	BaseURL string
	APIKey  string
	Timeout time.Duration
}

func NewDocumentClient(cfg DocumentConfig, caller *Caller, logger *slog.Logger) *DocumentClient {
	return &DocumentClient{client: newClient(cfg.BaseURL, cfg.APIKey, cfg.Timeout, caller, logger)}
}

// ListOpen returns the account's open documents. No documents is a success
// with an empty list.
func (c *DocumentClient) ListOpen(ctx context.Context, accountID string) domain.Result[[]domain.Document] {
	var payload struct {
		Documents []domain.Document `json:"documents"`
	}
	err := c.getJSON(ctx, "documents.listOpen", "/accounts/"+url.PathEscape(accountID)+"/documents/open", nil, &payload)
	if err != nil {
		return domain.Fail[[]domain.Document](err)
	}
	return domain.Ok(payload.Documents)
}

// Fetch retrieves one document's binary rendition (PDF or XML container,
// base64-encoded).
func (c *DocumentClient) Fetch(ctx context.Context, accountID, documentID string) domain.Result[*domain.Binary] {
	var payload struct {
		Filename string `json:"filename"`
		MimeType string `json:"mimeType"`
		Content  string `json:"content"`
	}
	path := "/accounts/" + url.PathEscape(accountID) + "/documents/" + url.PathEscape(documentID)
	err := c.getJSON(ctx, "documents.fetch", path, nil, &payload)
	if err != nil {
		return domain.Fail[*domain.Binary](err)
	}
	return domain.Ok(&domain.Binary{
		Filename: payload.Filename,
		MimeType: payload.MimeType,
		Base64:   payload.Content,
	})
}

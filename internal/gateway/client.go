package gateway

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"
)

// client is the shared HTTP plumbing for the ERP-facing gateways: one REST
// call per attempt, executed under the resilient caller.
type client struct {
	base   string
	apiKey string
	http   *http.Client
	caller *Caller
	logger *slog.Logger
}

func newClient(base, apiKey string, timeout time.Duration, caller *Caller, logger *slog.Logger) client {
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return client{
		base:   base,
		apiKey: apiKey,
		http:   &http.Client{Timeout: timeout},
		caller: caller,
		logger: logger,
	}
}

// getJSON performs a GET under retry and decodes the 2xx body into out.
// A 404 returns errNotFound without retrying; other non-2xx statuses surface
// as StatusError so the predicate can separate 5xx from 4xx.
func (c client) getJSON(ctx context.Context, op, path string, query url.Values, out any) error {
	u := c.base + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	// Kept for the exhausted-retries diagnostic log, secrets redacted.
	var lastReq *http.Request

	return c.caller.Do(ctx, op, func(ctx context.Context) error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
		if err != nil {
			return fmt.Errorf("build request: %w", err)
		}
		req.Header.Set("Accept", "application/json")
		if c.apiKey != "" {
			req.Header.Set("Authorization", "Bearer "+c.apiKey)
		}
		lastReq = req

		resp, err := c.http.Do(req)
		if err != nil {
			return err
		}
		defer resp.Body.Close()

		if resp.StatusCode == http.StatusNotFound {
			return errNotFound
		}
		if resp.StatusCode < 200 || resp.StatusCode > 299 {
			body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
			return &StatusError{Code: resp.StatusCode, Body: string(body)}
		}

		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("decode response: %w", err)
		}
		return nil
	}, func() string {
		return RenderRequest(lastReq)
	})
}

// errNotFound marks a 404: a normal outcome for lookups, never retried.
var errNotFound = &StatusError{Code: http.StatusNotFound, Body: "not found"}

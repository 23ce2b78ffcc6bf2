// Package feed implements the payment feed against the bank's settlement
// portal. The portal sits behind a session proxy and is known to answer
// with an HTML login page once the session expires, so the client
// classifies response bodies before handing anything to the ledger.
package feed

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/postrack/backend/internal/domain/ledger"
	"github.com/postrack/backend/internal/infrastructure/config"
	"go.uber.org/zap"
)

const (
	defaultMaxBodySize = 8 * 1024 * 1024

	// bodySampleLength bounds the body excerpt quoted in format errors
	bodySampleLength = 200
)

// Client pulls payment batches from the settlement portal over HTTP
type Client struct {
	url        string
	authToken  string
	maxBody    int64
	httpClient *http.Client
	logger     *zap.Logger
}

// NewClient creates a feed client from configuration
func NewClient(cfg *config.FeedConfig, logger *zap.Logger) *Client {
	maxBody := cfg.MaxBodySize
	if maxBody <= 0 {
		maxBody = defaultMaxBodySize
	}

	return &Client{
		url:       cfg.URL,
		authToken: cfg.AuthToken,
		maxBody:   maxBody,
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
		logger: logger.Named("feed"),
	}
}

// FetchPayments retrieves the current batch of loosely-typed payment objects
// from the settlement portal. Any failure returns an error and no items.
func (c *Client) FetchPayments(ctx context.Context) ([]map[string]any, error) {
	if c.url == "" {
		return nil, fmt.Errorf("%w: feed URL is not configured", ledger.ErrFeedUnreachable)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.url, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ledger.ErrFeedUnreachable, err)
	}
	req.Header.Set("Accept", "application/json")
	if c.authToken != "" {
		req.Header.Set("Authorization", "Bearer "+c.authToken)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ledger.ErrFeedUnreachable, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, c.maxBody))
	if err != nil {
		return nil, fmt.Errorf("%w: failed to read response: %v", ledger.ErrFeedUnreachable, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("%w: upstream returned HTTP %d", ledger.ErrFeedUnreachable, resp.StatusCode)
	}

	items, err := classifyBody(body)
	if err != nil {
		return nil, err
	}

	c.logger.Debug("Feed batch fetched", zap.Int("items", len(items)))
	return items, nil
}

// classifyBody turns a 2xx response body into payment items or a format
// error explaining what the portal actually sent.
func classifyBody(body []byte) ([]map[string]any, error) {
	trimmed := strings.TrimSpace(string(body))

	if looksLikeHTML(trimmed) {
		lower := strings.ToLower(trimmed)
		if strings.Contains(lower, "login") || strings.Contains(lower, "sign in") || strings.Contains(lower, "sign-in") {
			return nil, fmt.Errorf("%w: feed returned a login page; the proxy session or API key has expired",
				ledger.ErrFeedInvalidFormat)
		}
		if title := htmlTitle(trimmed); title != "" {
			return nil, fmt.Errorf("%w: feed returned an HTML error page: %s", ledger.ErrFeedInvalidFormat, title)
		}
		return nil, fmt.Errorf("%w: feed returned an HTML error page", ledger.ErrFeedInvalidFormat)
	}

	var items []map[string]any
	if err := json.Unmarshal(body, &items); err == nil {
		return items, nil
	}

	// Distinguish valid JSON of the wrong shape from junk
	var probe any
	if err := json.Unmarshal(body, &probe); err != nil {
		return nil, fmt.Errorf("%w: malformed JSON: %s", ledger.ErrFeedInvalidFormat, bodySample(trimmed))
	}
	return nil, fmt.Errorf("%w: expected a JSON array, got %T", ledger.ErrFeedInvalidFormat, probe)
}

func looksLikeHTML(body string) bool {
	lower := strings.ToLower(body)
	return strings.HasPrefix(lower, "<!doctype") || strings.HasPrefix(lower, "<html")
}

// htmlTitle pulls the <title> text out of an HTML page, if any
func htmlTitle(body string) string {
	lower := strings.ToLower(body)
	start := strings.Index(lower, "<title>")
	if start < 0 {
		return ""
	}
	start += len("<title>")
	end := strings.Index(lower[start:], "</title>")
	if end < 0 {
		return ""
	}
	return strings.TrimSpace(body[start : start+end])
}

func bodySample(body string) string {
	if len(body) > bodySampleLength {
		return body[:bodySampleLength] + "..."
	}
	return body
}

// Ensure Client implements the ledger feed port
var _ ledger.Feed = (*Client)(nil)

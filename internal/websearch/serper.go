// Package websearch provides the external search fallback used when the
// knowledge base cannot answer a question. Results are snippet-only; pages
// are never fetched or scraped.
package websearch

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"
)

// ErrUnavailable indicates the search provider could not be reached or
// returned an unusable response. Callers treat this as a soft failure.
var ErrUnavailable = errors.New("web search unavailable")

// maxSnippets caps how many organic results feed into answer synthesis.
const maxSnippets = 3

// maxResponseBytes bounds how much of the provider response is read.
const maxResponseBytes = 1 << 20

// Snippet is one search result fragment with its source label.
type Snippet struct {
	Title   string
	Source  string
	Content string
}

// Client queries the Serper.dev search API.
// Construct with NewClient; the zero value is not usable.
type Client struct {
	baseURL string
	apiKey  string
	http    *http.Client
	logger  *slog.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient overrides the underlying HTTP client, mainly for tests.
func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) { c.http = h }
}

// NewClient creates a search client. baseURL is the provider endpoint
// (e.g. https://google.serper.dev) and apiKey authenticates requests.
// A nil logger falls back to slog.Default().
func NewClient(baseURL, apiKey string, logger *slog.Logger, opts ...Option) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		logger:  logger,
		http: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type searchRequest struct {
	Query string `json:"q"`
	Num   int    `json:"num"`
}

type searchResponse struct {
	Organic []struct {
		Title   string `json:"title"`
		Link    string `json:"link"`
		Snippet string `json:"snippet"`
	} `json:"organic"`
}

// Search returns up to three organic result snippets for query. A provider
// failure returns ErrUnavailable; an empty result set returns (nil, nil).
func (c *Client) Search(ctx context.Context, query string) ([]Snippet, error) {
	body, err := json.Marshal(searchRequest{Query: query, Num: maxSnippets})
	if err != nil {
		return nil, fmt.Errorf("marshal search request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/search", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build search request: %w", err)
	}
	req.Header.Set("X-API-KEY", c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		c.logger.Warn("search provider returned non-200", "status", resp.StatusCode)
		return nil, fmt.Errorf("%w: status %d", ErrUnavailable, resp.StatusCode)
	}

	var parsed searchResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxResponseBytes)).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("%w: decode response: %v", ErrUnavailable, err)
	}

	snippets := make([]Snippet, 0, maxSnippets)
	for _, r := range parsed.Organic {
		if strings.TrimSpace(r.Snippet) == "" {
			continue
		}
		snippets = append(snippets, Snippet{
			Title:   r.Title,
			Source:  r.Link,
			Content: r.Snippet,
		})
		if len(snippets) == maxSnippets {
			break
		}
	}

	c.logger.Debug("web search completed", "query_len", len(query), "snippets", len(snippets))
	return snippets, nil
}

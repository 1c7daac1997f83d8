// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package search

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"golang.org/x/time/rate"

	"github.com/pdiddy/research-agent/internal/httputil"
	"github.com/pdiddy/research-agent/pkg/types"
)

// tavilyAPIURL is the Tavily search endpoint. Declared as a var so tests
// can substitute an httptest server.
var tavilyAPIURL = "https://api.tavily.com/search"

// Tavily is the live provider backed by the Tavily search API.
type Tavily struct {
	client    *http.Client
	apiKey    string
	userAgent string
	limiter   *rate.Limiter
}

// NewTavily constructs the live provider. A missing apiKey is a
// configuration error. cfg.SearchRPS > 0 limits outgoing requests.
func NewTavily(apiKey string, cfg types.ResearchConfig) (*Tavily, error) {
	if strings.TrimSpace(apiKey) == "" {
		return nil, types.MissingCredential("SearchAPIKey", "tavily")
	}
	limiter := rate.NewLimiter(rate.Inf, 0)
	if cfg.SearchRPS > 0 {
		limiter = rate.NewLimiter(rate.Limit(cfg.SearchRPS), 1)
	}
	return &Tavily{
		client:    &http.Client{Timeout: cfg.Timeout},
		apiKey:    apiKey,
		userAgent: cfg.UserAgent,
		limiter:   limiter,
	}, nil
}

// WithClient replaces the HTTP client, e.g. with an httptest server client.
func (t *Tavily) WithClient(c *http.Client) *Tavily {
	t.client = c
	return t
}

// Name returns the provider identifier.
func (t *Tavily) Name() string { return string(types.ProviderLive) }

type tavilyRequest struct {
	Query             string `json:"query"`
	MaxResults        int    `json:"max_results"`
	SearchDepth       string `json:"search_depth"`
	IncludeRawContent bool   `json:"include_raw_content"`
}

type tavilyResponse struct {
	Results []struct {
		Title      string  `json:"title"`
		URL        string  `json:"url"`
		Content    string  `json:"content"`
		RawContent string  `json:"raw_content"`
		Score      float64 `json:"score"`
	} `json:"results"`
}

// Search posts query to Tavily and returns its results in rank order.
func (t *Tavily) Search(ctx context.Context, query string, maxResults int) ([]types.RawResult, error) {
	if err := t.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	payload, err := json.Marshal(tavilyRequest{
		Query:       query,
		MaxResults:  maxResults,
		SearchDepth: "basic",
	})
	if err != nil {
		return nil, fmt.Errorf("encoding Tavily request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, tavilyAPIURL, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+t.apiKey)
	if t.userAgent != "" {
		req.Header.Set("User-Agent", t.userAgent)
	}

	resp, err := httputil.DoWithRetry(ctx, t.client, req, 0)
	if err != nil {
		return nil, fmt.Errorf("Tavily API request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("Tavily API returned HTTP %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var tr tavilyResponse
	if err := json.NewDecoder(resp.Body).Decode(&tr); err != nil {
		return nil, fmt.Errorf("parsing Tavily response: %w", err)
	}

	results := make([]types.RawResult, 0, len(tr.Results))
	for _, r := range tr.Results {
		results = append(results, types.RawResult{
			URL:        r.URL,
			Title:      r.Title,
			Content:    r.Content,
			RawContent: r.RawContent,
			Score:      r.Score,
		})
	}
	return results, nil
}

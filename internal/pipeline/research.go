// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package pipeline

import (
	"context"
	"net/http"

	"github.com/pdiddy/research-agent/internal/llm"
	"github.com/pdiddy/research-agent/internal/search"
	"github.com/pdiddy/research-agent/pkg/types"
)

// RunResearch builds the model clients and search provider named by cfg,
// using creds for the live ones, and runs one research query. Configuration
// errors are returned before any stage runs and with a nil state.
func RunResearch(ctx context.Context, query string, cfg types.ResearchConfig, creds types.Credentials, opts ...Option) (*types.ResearchState, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	// Options are applied once here to learn the logger, recorder and HTTP
	// client, and again by New.
	pre := &Pipeline{}
	for _, opt := range opts {
		opt(pre)
	}
	client := pre.httpClient
	if client == nil {
		client = &http.Client{Timeout: cfg.Timeout}
	}

	deps, err := buildDeps(cfg, creds, client)
	if err != nil {
		return nil, err
	}
	deps.Search = search.Instrument(deps.Search, pre.rec, pre.log)

	p, err := New(cfg, deps, opts...)
	if err != nil {
		return nil, err
	}
	return p.Run(ctx, query)
}

func buildDeps(cfg types.ResearchConfig, creds types.Credentials, client *http.Client) (Deps, error) {
	var deps Deps
	var err error

	deps.Search, err = search.NewProvider(cfg.SearchProvider, creds, cfg)
	if err != nil {
		return Deps{}, err
	}
	deps.DraftModel, err = llm.New(cfg.DraftModel, creds.LLMAPIKey, cfg.MaxRetries, client)
	if err != nil {
		return Deps{}, err
	}
	if cfg.EnableVerification {
		deps.VerifyModel, err = llm.New(cfg.VerifyModel, creds.LLMAPIKey, cfg.MaxRetries, client)
		if err != nil {
			return Deps{}, err
		}
	}
	return deps, nil
}

// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package search is the search gateway. Each Provider (live Tavily or the
// deterministic stub) implements one capability, Search; FanOut dispatches
// one call per sub-question and returns results in input order. The gateway
// never ranks or filters; that is the source selector's job.
package search

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/pdiddy/research-agent/internal/metrics"
	"github.com/pdiddy/research-agent/pkg/types"
)

// DefaultMaxResults is the per-sub-question result count requested by the
// pipeline.
const DefaultMaxResults = 5

// Provider searches the web. Implementations must be safe for concurrent use.
type Provider interface {
	Name() string
	Search(ctx context.Context, query string, maxResults int) ([]types.RawResult, error)
}

// NewProvider returns the provider selected by name. The live provider
// requires creds.SearchAPIKey; its absence and unknown names are
// *types.ConfigError values.
func NewProvider(name types.SearchProviderName, creds types.Credentials, cfg types.ResearchConfig) (Provider, error) {
	switch name {
	case types.ProviderStub:
		return Stub{}, nil
	case types.ProviderLive:
		return NewTavily(creds.SearchAPIKey, cfg)
	default:
		return nil, &types.ConfigError{
			Field:  "SearchProvider",
			Value:  string(name),
			Reason: "must be one of: live stub",
		}
	}
}

// Run performs one search and wraps the records with the query that
// produced them. A provider returning no records yields an empty, non-nil
// result list.
func Run(ctx context.Context, p Provider, query string, maxResults int) (types.SearchResult, error) {
	results, err := p.Search(ctx, query, maxResults)
	if err != nil {
		return types.SearchResult{}, fmt.Errorf("searching %q with %s: %w", query, p.Name(), err)
	}
	if results == nil {
		results = []types.RawResult{}
	}
	return types.SearchResult{Query: query, Results: results}, nil
}

// FanOut runs one search per query with at most concurrency calls in
// flight (0 means unbounded) and returns the results in query order. The
// first failure cancels the remaining calls and fails the fan-out.
func FanOut(ctx context.Context, p Provider, queries []string, maxResults, concurrency int) ([]types.SearchResult, error) {
	out := make([]types.SearchResult, len(queries))

	g, gctx := errgroup.WithContext(ctx)
	if concurrency > 0 {
		g.SetLimit(concurrency)
	}
	for i, q := range queries {
		g.Go(func() error {
			r, err := Run(gctx, p, q, maxResults)
			if err != nil {
				return err
			}
			out[i] = r
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

type instrumented struct {
	next Provider
	rec  *metrics.Recorder
	log  *zap.Logger
}

// Instrument wraps p so every call is counted in rec and logged at debug
// level. Either argument may be nil.
func Instrument(p Provider, rec *metrics.Recorder, log *zap.Logger) Provider {
	if log == nil {
		log = zap.NewNop()
	}
	return &instrumented{next: p, rec: rec, log: log.With(zap.String("provider", p.Name()))}
}

func (i *instrumented) Name() string { return i.next.Name() }

func (i *instrumented) Search(ctx context.Context, query string, maxResults int) ([]types.RawResult, error) {
	start := time.Now()
	results, err := i.next.Search(ctx, query, maxResults)
	i.rec.SearchRequest(i.next.Name(), err)
	i.log.Debug("search",
		zap.String("query", query),
		zap.Int("results", len(results)),
		zap.Duration("duration", time.Since(start)),
		zap.Error(err),
	)
	return results, err
}

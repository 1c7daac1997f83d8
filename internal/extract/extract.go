// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package extract distills each selected source into a structured Note:
// 3-5 factual bullets, an optional short quote and a relevance sentence.
// Every source yields exactly one Note, in source order; a completion that
// cannot be parsed becomes a degraded Note instead of failing the run.
package extract

import (
	"context"
	"fmt"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/pdiddy/research-agent/internal/llm"
	"github.com/pdiddy/research-agent/internal/metrics"
	"github.com/pdiddy/research-agent/internal/parse"
	"github.com/pdiddy/research-agent/internal/prompts"
	"github.com/pdiddy/research-agent/pkg/types"
)

const (
	// StageName labels this stage in logs and metrics.
	StageName = "extract"

	// FallbackRelevance marks a degraded note.
	FallbackRelevance = "Extraction parsing failed"

	fallbackLimit = 500
)

// Extractor calls the draft model once per source.
type Extractor struct {
	Model llm.Model

	// Concurrency bounds in-flight model calls; 0 means unbounded and 1
	// processes sources strictly in order.
	Concurrency int

	Log     *zap.Logger
	Metrics *metrics.Recorder
}

// modelNote is the JSON shape requested from the model.
type modelNote struct {
	Bullets   []string `json:"bullets"`
	Quote     *string  `json:"quote"`
	Relevance string   `json:"relevance"`
}

// Extract returns one Note per source with notes[i].SourceURL ==
// sources[i].URL. A model invocation error fails the whole call.
func (e *Extractor) Extract(ctx context.Context, query string, sources []types.Source) ([]types.Note, error) {
	notes := make([]types.Note, len(sources))

	g, gctx := errgroup.WithContext(ctx)
	if e.Concurrency > 0 {
		g.SetLimit(e.Concurrency)
	}
	for i, src := range sources {
		g.Go(func() error {
			n, err := e.ExtractOne(gctx, query, src)
			if err != nil {
				return err
			}
			notes[i] = n
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return notes, nil
}

// ExtractOne produces the Note for a single source.
func (e *Extractor) ExtractOne(ctx context.Context, query string, src types.Source) (types.Note, error) {
	user, err := prompts.ExtractorUser(prompts.ExtractorInput{
		Query:   query,
		URL:     src.URL,
		Title:   src.Title,
		Content: src.Snippet,
	})
	if err != nil {
		return types.Note{}, fmt.Errorf("rendering extractor prompt: %w", err)
	}

	raw, err := e.Model.Invoke(ctx, prompts.ExtractorSystem, user)
	if err != nil {
		return types.Note{}, fmt.Errorf("extracting notes from %s: %w", src.URL, err)
	}

	parsed, err := parse.JSON[modelNote](raw)
	if err != nil {
		e.logger().Warn("extractor output not parseable, using degraded note",
			zap.String("url", src.URL), zap.Error(err))
		e.Metrics.ParseFallback(StageName)
		return Degraded(src.URL, parse.StripFences(raw)), nil
	}

	note := types.Note{
		SourceURL: src.URL,
		Bullets:   parsed.Bullets,
		Relevance: parsed.Relevance,
	}
	if note.Bullets == nil {
		note.Bullets = []string{}
	}
	if parsed.Quote != nil {
		note.Quote = *parsed.Quote
	}
	return note, nil
}

// Degraded returns the fallback Note for a completion that could not be
// parsed: its single bullet is the first 500 characters of content.
func Degraded(url, content string) types.Note {
	return types.Note{
		SourceURL: url,
		Bullets:   []string{parse.Truncate(content, fallbackLimit)},
		Relevance: FallbackRelevance,
	}
}

func (e *Extractor) logger() *zap.Logger {
	if e.Log == nil {
		return zap.NewNop()
	}
	return e.Log
}

// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package plan decomposes a research query into searchable sub-questions
// and an optional report outline.
package plan

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/pdiddy/research-agent/internal/llm"
	"github.com/pdiddy/research-agent/internal/metrics"
	"github.com/pdiddy/research-agent/internal/parse"
	"github.com/pdiddy/research-agent/internal/prompts"
)

// StageName labels this stage in logs and metrics.
const StageName = "plan"

// minLineLength is the length a fallback line must exceed to count as a
// sub-question.
const minLineLength = 10

// Result is the planner output. A nil Outline means no outline was produced.
type Result struct {
	Subquestions []string
	Outline      []string
}

// Planner invokes the draft model once per query.
type Planner struct {
	Model       llm.Model
	MaxSearches int
	Log         *zap.Logger
	Metrics     *metrics.Recorder
}

type modelPlan struct {
	Subquestions []string `json:"subquestions"`
	Outline      []string `json:"outline"`
}

// Plan returns at most MaxSearches sub-questions in model order. When the
// completion is not valid JSON every trimmed line longer than 10 characters
// becomes a sub-question and the outline is absent.
func (p *Planner) Plan(ctx context.Context, query string) (Result, error) {
	user, err := prompts.PlannerUser(prompts.PlannerInput{Query: query})
	if err != nil {
		return Result{}, fmt.Errorf("rendering planner prompt: %w", err)
	}

	raw, err := p.Model.Invoke(ctx, prompts.PlannerSystem, user)
	if err != nil {
		return Result{}, fmt.Errorf("planning research: %w", err)
	}

	var res Result
	parsed, err := parse.JSON[modelPlan](raw)
	if err != nil {
		log := p.Log
		if log == nil {
			log = zap.NewNop()
		}
		log.Warn("planner output not parseable, falling back to lines", zap.Error(err))
		p.Metrics.ParseFallback(StageName)
		res.Subquestions = FallbackLines(parse.StripFences(raw))
	} else {
		res.Subquestions = parsed.Subquestions
		res.Outline = parsed.Outline
		if res.Outline == nil {
			res.Outline = []string{}
		}
	}

	if res.Subquestions == nil {
		res.Subquestions = []string{}
	}
	if p.MaxSearches > 0 && len(res.Subquestions) > p.MaxSearches {
		res.Subquestions = res.Subquestions[:p.MaxSearches]
	}
	return res, nil
}

// FallbackLines splits text into lines and keeps each trimmed line longer
// than 10 characters.
func FallbackLines(text string) []string {
	lines := []string{}
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if utf8.RuneCountInString(line) > minLineLength {
			lines = append(lines, line)
		}
	}
	return lines
}

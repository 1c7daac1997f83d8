// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package pipeline

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/pdiddy/research-agent/internal/draft"
	"github.com/pdiddy/research-agent/internal/extract"
	"github.com/pdiddy/research-agent/internal/plan"
	"github.com/pdiddy/research-agent/internal/search"
	"github.com/pdiddy/research-agent/internal/sources"
	"github.com/pdiddy/research-agent/internal/verify"
	"github.com/pdiddy/research-agent/pkg/types"
)

// buildStages returns the static stage sequence for the configuration.
func (p *Pipeline) buildStages() []stage {
	stages := []stage{
		{StagePlan, types.StatusPlanning, p.planStage},
		{StageSearch, types.StatusSearching, p.searchStage},
		{StageExtract, types.StatusExtracting, p.extractStage},
		{StageDraft, types.StatusDrafting, p.draftStage},
	}
	if p.cfg.EnableVerification {
		stages = append(stages,
			stage{StageCompile, types.StatusVerifying, p.compileStage},
			stage{StageVerify, types.StatusVerifying, p.verifyStage},
			stage{StageRevise, types.StatusRevising, p.reviseStage},
		)
	}
	return stages
}

func (p *Pipeline) planStage(ctx context.Context, s types.ResearchState) (Update, error) {
	planner := &plan.Planner{
		Model:       p.deps.DraftModel,
		MaxSearches: p.cfg.MaxSearches,
		Log:         p.log,
		Metrics:     p.rec,
	}
	res, err := planner.Plan(ctx, s.Query)
	if err != nil {
		return Update{}, err
	}
	return Update{
		Plan:     res.Subquestions,
		Outline:  res.Outline,
		Messages: assistant(fmt.Sprintf("Planned %d subquestions.", len(res.Subquestions))),
	}, nil
}

func (p *Pipeline) searchStage(ctx context.Context, s types.ResearchState) (Update, error) {
	results, err := search.FanOut(ctx, p.deps.Search, s.Plan, search.DefaultMaxResults, p.cfg.Concurrency)
	if err != nil {
		return Update{}, err
	}
	return Update{
		SearchResults: results,
		Messages:      assistant(fmt.Sprintf("Ran %d searches.", len(results))),
	}, nil
}

func (p *Pipeline) extractStage(ctx context.Context, s types.ResearchState) (Update, error) {
	selected := sources.Select(s.SearchResults, p.cfg.MaxSources, p.cfg.MinUniqueDomains)

	extractor := &extract.Extractor{
		Model:       p.deps.DraftModel,
		Concurrency: p.cfg.Concurrency,
		Log:         p.log,
		Metrics:     p.rec,
	}
	notes, err := extractor.Extract(ctx, s.Query, selected)
	if err != nil {
		return Update{Sources: selected}, err
	}
	return Update{
		Sources:  selected,
		Notes:    notes,
		Messages: assistant(fmt.Sprintf("Extracted notes from %d sources.", len(selected))),
	}, nil
}

func (p *Pipeline) draftStage(ctx context.Context, s types.ResearchState) (Update, error) {
	writer := &draft.Writer{Model: p.deps.DraftModel, Style: s.ReportStyle}
	text, err := writer.Write(ctx, draft.Input{
		Query:   s.Query,
		Outline: s.Outline,
		Notes:   s.Notes,
		Sources: s.Sources,
	})
	if err != nil {
		return Update{}, err
	}
	if unknown := draft.UnknownCitations(text, len(s.Sources)); len(unknown) > 0 {
		p.log.Warn("report cites unknown sources", zap.Ints("citations", unknown), zap.Int("sources", len(s.Sources)))
	}

	upd := Update{ReportDraft: &text}
	if !p.cfg.EnableVerification {
		upd.Report = &text
		upd.Messages = assistant(text)
	}
	return upd, nil
}

func (p *Pipeline) compileStage(ctx context.Context, s types.ResearchState) (Update, error) {
	compiler := &verify.Compiler{Model: p.deps.VerifyModel, Log: p.log, Metrics: p.rec}
	spec, err := compiler.Compile(ctx, s.Query, s.ReportDraft)
	if err != nil {
		return Update{}, err
	}
	return Update{VerificationSpec: spec}, nil
}

func (p *Pipeline) verifyStage(ctx context.Context, s types.ResearchState) (Update, error) {
	verifier := &verify.Verifier{Provider: p.deps.Search, Concurrency: p.cfg.Concurrency, Metrics: p.rec}
	results, err := verifier.Verify(ctx, s.VerificationSpec)
	if err != nil {
		return Update{}, err
	}
	return Update{VerificationResults: results}, nil
}

func (p *Pipeline) reviseStage(ctx context.Context, s types.ResearchState) (Update, error) {
	reviser := &verify.Reviser{Model: p.deps.DraftModel}
	report, err := reviser.Revise(ctx, s.Query, s.ReportDraft, s.VerificationResults)
	if err != nil {
		return Update{}, err
	}
	return Update{Report: &report, Messages: assistant(report)}, nil
}

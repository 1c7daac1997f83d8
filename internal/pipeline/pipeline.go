// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package pipeline drives a research run through its fixed stage sequence:
// plan, search, extract, draft and, when verification is enabled, compile,
// verify and revise. Each stage reads a snapshot of the run state and
// returns an Update that the controller merges. The first stage failure
// marks the run as errored and halts it; the partial state stays
// inspectable.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/pdiddy/research-agent/internal/draft"
	"github.com/pdiddy/research-agent/internal/extract"
	"github.com/pdiddy/research-agent/internal/llm"
	"github.com/pdiddy/research-agent/internal/metrics"
	"github.com/pdiddy/research-agent/internal/plan"
	"github.com/pdiddy/research-agent/internal/search"
	"github.com/pdiddy/research-agent/internal/verify"
	"github.com/pdiddy/research-agent/pkg/types"
)

// Stage names, in execution order.
const (
	StagePlan    = plan.StageName
	StageSearch  = "search"
	StageExtract = extract.StageName
	StageDraft   = draft.StageName
	StageCompile = verify.CompileStage
	StageVerify  = verify.VerifyStage
	StageRevise  = verify.ReviseStage
)

// Deps are the external collaborators of a pipeline. VerifyModel is only
// required when verification is enabled.
type Deps struct {
	DraftModel  llm.Model
	VerifyModel llm.Model
	Search      search.Provider
}

// ProgressFunc is called before each stage starts.
type ProgressFunc func(stage string, status types.Status)

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithLogger sets the logger. The default discards everything.
func WithLogger(l *zap.Logger) Option {
	return func(p *Pipeline) { p.log = l }
}

// WithMetrics sets the metrics recorder.
func WithMetrics(r *metrics.Recorder) Option {
	return func(p *Pipeline) { p.rec = r }
}

// WithProgress registers a callback invoked as each stage begins.
func WithProgress(f ProgressFunc) Option {
	return func(p *Pipeline) { p.progress = f }
}

// WithHTTPClient sets the HTTP client used by RunResearch to build the
// live model. It has no effect on New.
func WithHTTPClient(c *http.Client) Option {
	return func(p *Pipeline) { p.httpClient = c }
}

type stageFunc func(ctx context.Context, s types.ResearchState) (Update, error)

type stage struct {
	name   string
	status types.Status
	run    stageFunc
}

// Pipeline runs research queries. A Pipeline holds no per-run state and
// may serve concurrent runs.
type Pipeline struct {
	cfg    types.ResearchConfig
	deps   Deps
	stages []stage

	log        *zap.Logger
	rec        *metrics.Recorder
	progress   ProgressFunc
	httpClient *http.Client
}

// New validates cfg and builds the stage list. Configuration problems are
// returned as *types.ConfigError.
func New(cfg types.ResearchConfig, deps Deps, opts ...Option) (*Pipeline, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	switch {
	case deps.DraftModel == nil:
		return nil, &types.ConfigError{Field: "DraftModel", Reason: "has no model client"}
	case deps.Search == nil:
		return nil, &types.ConfigError{Field: "SearchProvider", Reason: "has no search provider"}
	case cfg.EnableVerification && deps.VerifyModel == nil:
		return nil, &types.ConfigError{Field: "VerifyModel", Reason: "has no model client"}
	}

	p := &Pipeline{cfg: cfg, deps: deps, log: zap.NewNop()}
	for _, opt := range opts {
		opt(p)
	}
	if p.log == nil {
		p.log = zap.NewNop()
	}
	p.stages = p.buildStages()
	return p, nil
}

// Stages returns the stage names in execution order.
func (p *Pipeline) Stages() []string {
	names := make([]string, len(p.stages))
	for i, st := range p.stages {
		names[i] = st.name
	}
	return names
}

// Run executes every stage in order for query and returns the final state.
// On failure the returned state has status error, its Error field set and
// every field produced before the failure intact; the error is returned
// alongside it.
func (p *Pipeline) Run(ctx context.Context, query string) (*types.ResearchState, error) {
	if strings.TrimSpace(query) == "" {
		return nil, &types.ConfigError{Field: "Query", Reason: "must be set"}
	}

	state := &types.ResearchState{
		ID:            uuid.NewString(),
		Query:         query,
		ReportStyle:   p.cfg.ReportStyle,
		Plan:          []string{},
		SearchResults: []types.SearchResult{},
		Sources:       []types.Source{},
		Notes:         []types.Note{},
		Status:        types.StatusPlanning,
		Messages:      []types.Message{{Role: "user", Content: query}},
		StartedAt:     time.Now().UTC(),
	}
	log := p.log.With(zap.String("run_id", state.ID))
	log.Info("research started",
		zap.String("query", query),
		zap.Bool("verification", p.cfg.EnableVerification),
		zap.String("style", string(p.cfg.ReportStyle)),
	)

	for _, st := range p.stages {
		if err := ctx.Err(); err != nil {
			return p.fail(log, state, st.name, err)
		}
		advance(state, st.status)
		if p.progress != nil {
			p.progress(st.name, state.Status)
		}

		stageCtx, cancel := ctx, context.CancelFunc(func() {})
		if p.cfg.StageTimeout > 0 {
			stageCtx, cancel = context.WithTimeout(ctx, p.cfg.StageTimeout)
		}
		start := time.Now()
		upd, err := st.run(stageCtx, snapshot(state))
		cancel()
		elapsed := time.Since(start)
		p.rec.StageObserved(st.name, err, elapsed)

		if err != nil {
			if errors.Is(err, context.DeadlineExceeded) && ctx.Err() == nil {
				err = fmt.Errorf("timed out after %s: %w", p.cfg.StageTimeout, err)
			}
			// Keep whatever the stage gathered before failing.
			upd.apply(state)
			return p.fail(log, state, st.name, err)
		}
		upd.apply(state)
		log.Info("stage finished", zap.String("stage", st.name), zap.Duration("duration", elapsed))
	}

	advance(state, types.StatusComplete)
	state.CompletedAt = time.Now().UTC()
	p.rec.RunFinished(state.Status)
	log.Info("research complete",
		zap.Int("sources", len(state.Sources)),
		zap.Int("claims", len(state.VerificationResults)),
		zap.Duration("duration", state.CompletedAt.Sub(state.StartedAt)),
	)
	return state, nil
}

func (p *Pipeline) fail(log *zap.Logger, state *types.ResearchState, stageName string, err error) (*types.ResearchState, error) {
	err = fmt.Errorf("%s stage: %w", stageName, err)
	state.Status = types.StatusError
	state.Error = err.Error()
	state.CompletedAt = time.Now().UTC()
	p.rec.RunFinished(state.Status)
	log.Error("research failed", zap.String("stage", stageName), zap.Error(err))
	return state, err
}

// advance moves s forward to next. Statuses never regress.
func advance(s *types.ResearchState, next types.Status) {
	if s.Status.Before(next) {
		s.Status = next
	}
}

// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package pipeline

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"go.uber.org/zap/zaptest"

	"github.com/pdiddy/research-agent/internal/llm"
	"github.com/pdiddy/research-agent/internal/metrics"
	"github.com/pdiddy/research-agent/internal/prompts"
	"github.com/pdiddy/research-agent/internal/search"
	"github.com/pdiddy/research-agent/pkg/types"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func stubConfig() types.ResearchConfig {
	cfg := types.DefaultResearchConfig()
	cfg.DraftModel = llm.StubModelName
	cfg.VerifyModel = llm.StubModelName
	cfg.SearchProvider = types.ProviderStub
	return cfg
}

func stubDeps() Deps {
	return Deps{DraftModel: llm.Stub{}, VerifyModel: llm.Stub{}, Search: search.Stub{}}
}

// failingSearch fails every call.
type failingSearch struct{ err error }

func (failingSearch) Name() string { return "failing" }
func (f failingSearch) Search(context.Context, string, int) ([]types.RawResult, error) {
	return nil, f.err
}

// progressLog records progress callbacks.
type progressLog struct {
	mu       sync.Mutex
	stages   []string
	statuses []types.Status
}

func (l *progressLog) record(stage string, status types.Status) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.stages = append(l.stages, stage)
	l.statuses = append(l.statuses, status)
}

func TestRunWithoutVerification(t *testing.T) {
	p, err := New(stubConfig(), stubDeps(), WithLogger(zaptest.NewLogger(t)))
	require.NoError(t, err)

	state, err := p.Run(context.Background(), "What is the capital of France?")
	require.NoError(t, err)

	assert.Equal(t, types.StatusComplete, state.Status)
	assert.NotEmpty(t, state.ID)
	assert.NotEmpty(t, state.Report)
	assert.Equal(t, state.ReportDraft, state.Report)
	assert.NotEmpty(t, state.Sources)
	assert.Len(t, state.Notes, len(state.Sources))
	assert.Len(t, state.Plan, types.DefaultMaxSearches)
	assert.Len(t, state.SearchResults, len(state.Plan))
	assert.Empty(t, state.Error)
	assert.Nil(t, state.VerificationSpec)
	assert.Empty(t, state.VerificationResults)
	assert.False(t, state.CompletedAt.Before(state.StartedAt))

	for i, r := range state.SearchResults {
		assert.Equal(t, state.Plan[i], r.Query, "search results follow plan order")
	}
	for _, n := range state.Notes {
		assert.NotEmpty(t, n.Bullets)
	}
}

func TestRunWithVerification(t *testing.T) {
	cfg := stubConfig()
	cfg.EnableVerification = true
	p, err := New(cfg, stubDeps(), WithLogger(zaptest.NewLogger(t)))
	require.NoError(t, err)

	state, err := p.Run(context.Background(), "What is the capital of France?")
	require.NoError(t, err)

	assert.Equal(t, types.StatusComplete, state.Status)
	require.NotNil(t, state.VerificationSpec)
	require.NotEmpty(t, state.VerificationResults)
	assert.LessOrEqual(t, len(state.VerificationResults), 5)
	for _, c := range state.VerificationResults {
		assert.True(t, c.Status.Resolved(), "claim %q left %s", c.Claim, c.Status)
	}
	assert.NotEqual(t, state.ReportDraft, state.Report)
	assert.True(t, strings.HasPrefix(state.Report, strings.TrimSpace(state.ReportDraft)))
	assert.Contains(t, state.Report, "## Verification Checklist")
}

func TestRunEveryStyle(t *testing.T) {
	for _, style := range types.ReportStyles {
		t.Run(string(style), func(t *testing.T) {
			cfg := stubConfig()
			cfg.ReportStyle = style
			p, err := New(cfg, stubDeps())
			require.NoError(t, err)

			state, err := p.Run(context.Background(), "How do vaccines work?")
			require.NoError(t, err)
			assert.Equal(t, types.StatusComplete, state.Status)
			assert.Equal(t, style, state.ReportStyle)
			assert.NotEmpty(t, state.Report)
		})
	}
}

func TestRunStatusOrder(t *testing.T) {
	tests := []struct {
		name         string
		verification bool
		wantStages   []string
		wantStatuses []types.Status
	}{
		{
			name:       "draft only",
			wantStages: []string{StagePlan, StageSearch, StageExtract, StageDraft},
			wantStatuses: []types.Status{
				types.StatusPlanning, types.StatusSearching, types.StatusExtracting, types.StatusDrafting,
			},
		},
		{
			name:         "with verification",
			verification: true,
			wantStages:   []string{StagePlan, StageSearch, StageExtract, StageDraft, StageCompile, StageVerify, StageRevise},
			wantStatuses: []types.Status{
				types.StatusPlanning, types.StatusSearching, types.StatusExtracting, types.StatusDrafting,
				types.StatusVerifying, types.StatusVerifying, types.StatusRevising,
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := stubConfig()
			cfg.EnableVerification = tt.verification
			var got progressLog
			p, err := New(cfg, stubDeps(), WithProgress(got.record))
			require.NoError(t, err)
			assert.Equal(t, tt.wantStages, p.Stages())

			_, err = p.Run(context.Background(), "q?")
			require.NoError(t, err)
			assert.Equal(t, tt.wantStages, got.stages)
			assert.Equal(t, tt.wantStatuses, got.statuses)
		})
	}
}

func TestRunMessages(t *testing.T) {
	p, err := New(stubConfig(), stubDeps())
	require.NoError(t, err)

	state, err := p.Run(context.Background(), "What is Go?")
	require.NoError(t, err)

	require.Len(t, state.Messages, 5)
	assert.Equal(t, types.Message{Role: "user", Content: "What is Go?"}, state.Messages[0])
	assert.Equal(t, "Planned 6 subquestions.", state.Messages[1].Content)
	assert.Equal(t, "Ran 6 searches.", state.Messages[2].Content)
	assert.Regexp(t, `^Extracted notes from \d+ sources\.$`, state.Messages[3].Content)
	assert.Equal(t, state.Report, state.Messages[4].Content)
	for _, m := range state.Messages[1:] {
		assert.Equal(t, "assistant", m.Role)
	}
}

func TestRunSearchFailureHalts(t *testing.T) {
	var extracted bool
	model := llm.ModelFunc(func(ctx context.Context, system, user string) (string, error) {
		if prompts.Classify(system) == prompts.RoleExtract {
			extracted = true
		}
		return llm.Stub{}.Invoke(ctx, system, user)
	})
	deps := Deps{DraftModel: model, Search: failingSearch{err: errors.New("quota exceeded")}}
	p, err := New(stubConfig(), deps, WithLogger(zaptest.NewLogger(t)))
	require.NoError(t, err)

	state, err := p.Run(context.Background(), "q")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "search stage")
	assert.Contains(t, err.Error(), "quota exceeded")

	require.NotNil(t, state)
	assert.Equal(t, types.StatusError, state.Status)
	assert.Equal(t, err.Error(), state.Error)
	assert.NotEmpty(t, state.Plan, "plan survives the failure")
	assert.Empty(t, state.SearchResults)
	assert.Empty(t, state.Report)
	assert.False(t, extracted, "later stages do not run")
}

func TestRunModelFailure(t *testing.T) {
	model := llm.ModelFunc(func(ctx context.Context, system, user string) (string, error) {
		if prompts.Classify(system) == prompts.RoleWriter {
			return "", errors.New("rate limited")
		}
		return llm.Stub{}.Invoke(ctx, system, user)
	})
	p, err := New(stubConfig(), Deps{DraftModel: model, Search: search.Stub{}})
	require.NoError(t, err)

	state, err := p.Run(context.Background(), "q")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "draft stage")
	assert.Equal(t, types.StatusError, state.Status)
	assert.NotEmpty(t, state.Notes)
	assert.Empty(t, state.ReportDraft)
}

func TestRunExtractFailureKeepsSources(t *testing.T) {
	model := llm.ModelFunc(func(ctx context.Context, system, user string) (string, error) {
		if prompts.Classify(system) == prompts.RoleExtract {
			return "", errors.New("upstream unavailable")
		}
		return llm.Stub{}.Invoke(ctx, system, user)
	})
	p, err := New(stubConfig(), Deps{DraftModel: model, Search: search.Stub{}})
	require.NoError(t, err)

	state, err := p.Run(context.Background(), "q")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "extract stage")
	assert.Equal(t, types.StatusError, state.Status)
	assert.NotEmpty(t, state.SearchResults)
	assert.NotEmpty(t, state.Sources)
	assert.Empty(t, state.Notes)
	assert.Empty(t, state.ReportDraft)
}

func TestRunCancelledBeforeStart(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	p, err := New(stubConfig(), stubDeps())
	require.NoError(t, err)

	state, err := p.Run(ctx, "q")
	require.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, types.StatusError, state.Status)
	assert.Empty(t, state.Plan)
}

func TestRunCancelledBetweenStages(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var searched bool
	p, err := New(stubConfig(), stubDeps(), WithProgress(func(stage string, _ types.Status) {
		if stage == StageSearch {
			searched = true
		}
		if stage == StagePlan {
			// Cancels once planning is under way; the plan call itself
			// checks ctx first and fails.
			cancel()
		}
	}))
	require.NoError(t, err)

	state, err := p.Run(ctx, "q")
	require.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, types.StatusError, state.Status)
	assert.False(t, searched)
}

func TestRunStageTimeout(t *testing.T) {
	slow := llm.ModelFunc(func(ctx context.Context, _, _ string) (string, error) {
		<-ctx.Done()
		return "", ctx.Err()
	})
	cfg := stubConfig()
	cfg.StageTimeout = 20 * time.Millisecond
	p, err := New(cfg, Deps{DraftModel: slow, Search: search.Stub{}})
	require.NoError(t, err)

	state, err := p.Run(context.Background(), "q")
	require.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Contains(t, err.Error(), "plan stage: timed out after 20ms")
	assert.Equal(t, types.StatusError, state.Status)
}

func TestRunEmptyQuery(t *testing.T) {
	p, err := New(stubConfig(), stubDeps())
	require.NoError(t, err)

	for _, q := range []string{"", "   "} {
		state, err := p.Run(context.Background(), q)
		var cfgErr *types.ConfigError
		require.ErrorAs(t, err, &cfgErr)
		assert.Equal(t, "Query", cfgErr.Field)
		assert.Nil(t, state)
	}
}

func TestNewRejectsBadConfig(t *testing.T) {
	tests := []struct {
		name      string
		mutate    func(*types.ResearchConfig, *Deps)
		wantField string
	}{
		{"max searches", func(c *types.ResearchConfig, _ *Deps) { c.MaxSearches = 0 }, "MaxSearches"},
		{"style", func(c *types.ResearchConfig, _ *Deps) { c.ReportStyle = "poem" }, "ReportStyle"},
		{"no draft model", func(_ *types.ResearchConfig, d *Deps) { d.DraftModel = nil }, "DraftModel"},
		{"no search", func(_ *types.ResearchConfig, d *Deps) { d.Search = nil }, "SearchProvider"},
		{"no verify model", func(c *types.ResearchConfig, d *Deps) {
			c.EnableVerification = true
			d.VerifyModel = nil
		}, "VerifyModel"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, deps := stubConfig(), stubDeps()
			tt.mutate(&cfg, &deps)
			_, err := New(cfg, deps)
			var cfgErr *types.ConfigError
			require.ErrorAs(t, err, &cfgErr)
			assert.Equal(t, tt.wantField, cfgErr.Field)
		})
	}
}

func TestRunRecordsMetrics(t *testing.T) {
	rec := metrics.New()
	cfg := stubConfig()
	cfg.EnableVerification = true
	p, err := New(cfg, stubDeps(), WithMetrics(rec))
	require.NoError(t, err)

	_, err = p.Run(context.Background(), "q")
	require.NoError(t, err)

	n, err := testutil.GatherAndCount(rec.Registry(), "research_runs_total")
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	n, err = testutil.GatherAndCount(rec.Registry(), "research_stage_duration_seconds")
	require.NoError(t, err)
	assert.Equal(t, 7, n, "one series per stage")
}

func TestConcurrentRunsAreIndependent(t *testing.T) {
	p, err := New(stubConfig(), stubDeps())
	require.NoError(t, err)

	queries := []string{"alpha?", "beta?", "gamma?"}
	states := make([]*types.ResearchState, len(queries))
	var wg sync.WaitGroup
	for i, q := range queries {
		wg.Add(1)
		go func() {
			defer wg.Done()
			states[i], _ = p.Run(context.Background(), q)
		}()
	}
	wg.Wait()

	for i, s := range states {
		require.NotNil(t, s)
		assert.Equal(t, queries[i], s.Query)
		assert.Equal(t, types.StatusComplete, s.Status)
	}
	assert.NotEqual(t, states[0].ID, states[1].ID)
}

func TestRunResearchStubEndToEnd(t *testing.T) {
	cfg := stubConfig()
	cfg.EnableVerification = true
	state, err := RunResearch(context.Background(), "What is the capital of France?", cfg, types.Credentials{},
		WithLogger(zaptest.NewLogger(t)))
	require.NoError(t, err)
	assert.Equal(t, types.StatusComplete, state.Status)
	assert.NotEmpty(t, state.Report)
}

func TestRunResearchMissingCredentials(t *testing.T) {
	tests := []struct {
		name      string
		cfg       func() types.ResearchConfig
		wantField string
	}{
		{"live search", func() types.ResearchConfig {
			c := stubConfig()
			c.SearchProvider = types.ProviderLive
			return c
		}, "SearchAPIKey"},
		{"live model", func() types.ResearchConfig {
			c := stubConfig()
			c.DraftModel = "gpt-4o"
			return c
		}, "LLMAPIKey"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			state, err := RunResearch(context.Background(), "q", tt.cfg(), types.Credentials{})
			require.ErrorIs(t, err, types.ErrMissingCredential)
			var cfgErr *types.ConfigError
			require.ErrorAs(t, err, &cfgErr)
			assert.Equal(t, tt.wantField, cfgErr.Field)
			assert.Nil(t, state)
		})
	}
}

func TestRunResearchVerifyModelOnlyWhenEnabled(t *testing.T) {
	cfg := stubConfig()
	cfg.VerifyModel = "gpt-4o-mini"
	_, err := RunResearch(context.Background(), "q", cfg, types.Credentials{})
	require.NoError(t, err, "verify model is not built when verification is off")
}

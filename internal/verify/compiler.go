// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package verify implements the verify-then-revise branch: the compiler
// picks fact-checkable claims from the draft, the verifier searches for
// evidence and grades each claim with a lexical-overlap heuristic, and the
// reviser folds the results back into the report.
package verify

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/pdiddy/research-agent/internal/llm"
	"github.com/pdiddy/research-agent/internal/metrics"
	"github.com/pdiddy/research-agent/internal/parse"
	"github.com/pdiddy/research-agent/internal/prompts"
	"github.com/pdiddy/research-agent/pkg/types"
)

// Stage names for logs and metrics.
const (
	CompileStage = "compile"
	VerifyStage  = "verify"
	ReviseStage  = "revise"
)

// FallbackFocus is the verification focus recorded when the compiler output
// cannot be parsed.
const FallbackFocus = "Parsing failed"

// Compiler asks the verify model which claims of a draft to fact-check.
type Compiler struct {
	Model   llm.Model
	Log     *zap.Logger
	Metrics *metrics.Recorder
}

type modelSpec struct {
	Claims []struct {
		Claim             string `json:"claim"`
		SourceInDraft     string `json:"source_in_draft"`
		VerificationQuery string `json:"verification_query"`
	} `json:"claims"`
	Focus string `json:"verification_focus"`
}

// Compile returns the verification spec for draft. Every claim starts
// pending. A completion that cannot be parsed yields an empty claim list
// with focus "Parsing failed"; only a model invocation error is returned.
func (c *Compiler) Compile(ctx context.Context, query, draft string) (*types.VerificationSpec, error) {
	user, err := prompts.CompilerUser(prompts.CompilerInput{Query: query, Draft: draft})
	if err != nil {
		return nil, fmt.Errorf("rendering compiler prompt: %w", err)
	}

	raw, err := c.Model.Invoke(ctx, prompts.CompilerSystem, user)
	if err != nil {
		return nil, fmt.Errorf("compiling verification claims: %w", err)
	}

	spec := &types.VerificationSpec{Claims: []types.VerificationClaim{}}

	parsed, err := parse.JSON[modelSpec](raw)
	if err != nil {
		if c.Log != nil {
			c.Log.Warn("compiler output not parseable, verifying no claims", zap.Error(err))
		}
		c.Metrics.ParseFallback(CompileStage)
		spec.Focus = FallbackFocus
		return spec, nil
	}

	spec.Focus = parsed.Focus
	for _, pc := range parsed.Claims {
		if strings.TrimSpace(pc.Claim) == "" {
			continue
		}
		spec.Claims = append(spec.Claims, types.VerificationClaim{
			Claim:             pc.Claim,
			SourceInDraft:     pc.SourceInDraft,
			VerificationQuery: pc.VerificationQuery,
			Status:            types.ClaimPending,
		})
	}
	return spec, nil
}

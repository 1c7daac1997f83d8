// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package verify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/pdiddy/research-agent/internal/llm"
	"github.com/pdiddy/research-agent/internal/prompts"
	"github.com/pdiddy/research-agent/pkg/types"
)

// reviserEvidence is the number of evidence snippets shown per claim.
const reviserEvidence = 2

// Reviser asks the draft model for the final report given the draft and
// the verification results.
type Reviser struct {
	Model llm.Model
}

type resultView struct {
	Claim    string   `json:"claim"`
	Status   string   `json:"status"`
	Evidence []string `json:"evidence_snippets"`
}

// Revise returns the model's final report verbatim.
func (r *Reviser) Revise(ctx context.Context, query, draft string, results []types.VerificationClaim) (string, error) {
	rendered, err := FormatResults(results)
	if err != nil {
		return "", err
	}

	user, err := prompts.ReviserUser(prompts.ReviserInput{Query: query, Draft: draft, Results: rendered})
	if err != nil {
		return "", fmt.Errorf("rendering reviser prompt: %w", err)
	}

	report, err := r.Model.Invoke(ctx, prompts.ReviserSystem, user)
	if err != nil {
		return "", fmt.Errorf("revising report: %w", err)
	}
	return report, nil
}

// FormatResults renders results as a JSON array (two-space indent) of
// {claim, status, evidence_snippets} objects, keeping at most two snippets
// per claim.
func FormatResults(results []types.VerificationClaim) (string, error) {
	views := make([]resultView, len(results))
	for i, c := range results {
		ev := c.Evidence
		if len(ev) > reviserEvidence {
			ev = ev[:reviserEvidence]
		}
		if ev == nil {
			ev = []string{}
		}
		views[i] = resultView{Claim: c.Claim, Status: string(c.Status), Evidence: ev}
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(views); err != nil {
		return "", fmt.Errorf("encoding verification results: %w", err)
	}
	return strings.TrimSuffix(buf.String(), "\n"), nil
}

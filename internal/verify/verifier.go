// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package verify

import (
	"context"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/pdiddy/research-agent/internal/metrics"
	"github.com/pdiddy/research-agent/internal/parse"
	"github.com/pdiddy/research-agent/internal/search"
	"github.com/pdiddy/research-agent/pkg/types"
)

const (
	// MaxClaims is the number of claims checked per run.
	MaxClaims = 5

	// EvidenceResults is the number of search results requested per claim.
	EvidenceResults = 3

	// EvidenceLimit is the maximum evidence snippet length in characters.
	EvidenceLimit = 200

	// keywordCount is the number of leading claim words matched against
	// evidence.
	keywordCount = 5
)

// Verifier re-searches each claim and grades it against the evidence found.
type Verifier struct {
	Provider    search.Provider
	Concurrency int
	Metrics     *metrics.Recorder
}

// Verify resolves the first MaxClaims claims of spec, in claim order. A nil
// spec yields an empty, non-nil result. A search failure fails the call.
func (v *Verifier) Verify(ctx context.Context, spec *types.VerificationSpec) ([]types.VerificationClaim, error) {
	if spec == nil {
		return []types.VerificationClaim{}, nil
	}
	claims := spec.Claims
	if len(claims) > MaxClaims {
		claims = claims[:MaxClaims]
	}

	out := make([]types.VerificationClaim, len(claims))
	g, gctx := errgroup.WithContext(ctx)
	if v.Concurrency > 0 {
		g.SetLimit(v.Concurrency)
	}
	for i, c := range claims {
		g.Go(func() error {
			res, err := search.Run(gctx, v.Provider, c.VerificationQuery, EvidenceResults)
			if err != nil {
				return err
			}

			evidence := make([]string, len(res.Results))
			for j, r := range res.Results {
				evidence[j] = parse.Truncate(r.Content, EvidenceLimit)
			}

			resolved := c
			resolved.Evidence = evidence
			resolved.Status = Assess(c.Claim, evidence)
			out[i] = resolved
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	for _, c := range out {
		v.Metrics.ClaimResolved(c.Status)
	}
	return out, nil
}

// Assess grades claim against evidence. The first five whitespace-separated
// words of the case-folded claim are the keywords; an evidence snippet
// matches when it contains any keyword as a case-insensitive substring.
// Two or more matching snippets confirm the claim, one makes it mixed and
// none leaves it insufficient.
func Assess(claim string, evidence []string) types.ClaimStatus {
	words := strings.Fields(strings.ToLower(claim))
	if len(words) > keywordCount {
		words = words[:keywordCount]
	}

	matches := 0
	for _, e := range evidence {
		e = strings.ToLower(e)
		for _, w := range words {
			if strings.Contains(e, w) {
				matches++
				break
			}
		}
	}

	switch {
	case matches >= 2:
		return types.ClaimConfirmed
	case matches == 1:
		return types.ClaimMixed
	default:
		return types.ClaimInsufficient
	}
}

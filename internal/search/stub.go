// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package search

import (
	"context"
	"fmt"

	"github.com/pdiddy/research-agent/internal/parse"
	"github.com/pdiddy/research-agent/pkg/types"
)

// stubLimit is the most records the stub returns for any query.
const stubLimit = 3

// Stub returns min(maxResults, 3) synthetic records whose content embeds
// the query. It never fails and needs no credential.
type Stub struct{}

// Name returns the provider identifier.
func (Stub) Name() string { return string(types.ProviderStub) }

// Search returns the synthetic records for query.
func (Stub) Search(ctx context.Context, query string, maxResults int) ([]types.RawResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	n := min(maxResults, stubLimit)
	results := make([]types.RawResult, 0, max(n, 0))
	for i := 1; i <= n; i++ {
		results = append(results, types.RawResult{
			URL:   fmt.Sprintf("https://example.com/result-%d", i),
			Title: fmt.Sprintf("Stub Result %d for: %s", i, parse.Truncate(query, 30)),
			Content: fmt.Sprintf("This is stub content for result %d. It contains information about %s. "+
				"In a real search this would be real content.", i, query),
			RawContent: fmt.Sprintf("Extended stub content for %s...", query),
		})
	}
	return results, nil
}

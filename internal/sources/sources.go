// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package sources selects the citation sources of a run from the raw search
// results: exact-URL deduplication, a per-domain cap that holds until enough
// distinct domains are represented, and a total cap.
package sources

import (
	"net/url"
	"strings"

	"github.com/pdiddy/research-agent/internal/parse"
	"github.com/pdiddy/research-agent/pkg/types"
)

const (
	// SnippetLimit is the maximum snippet length in characters.
	SnippetLimit = 500

	// perDomainCap is the number of picks a domain may hold while fewer
	// than minUniqueDomains distinct domains are selected.
	perDomainCap = 2

	defaultTitle = "Untitled"
)

// Select makes a single forward pass over results (sub-question order, then
// returned-rank order) and returns at most maxSources sources with distinct
// URLs, in discovery order.
//
// A result is skipped when its URL is empty or already selected, or when its
// domain already has two picks while fewer than minUniqueDomains distinct
// domains have been selected. When the pool runs out first the selection may
// end with fewer distinct domains than requested.
func Select(results []types.SearchResult, maxSources, minUniqueDomains int) []types.Source {
	selected := []types.Source{}
	if maxSources <= 0 {
		return selected
	}

	seenURLs := make(map[string]bool)
	domainPicks := make(map[string]int)

	for _, sr := range results {
		for _, r := range sr.Results {
			if r.URL == "" || seenURLs[r.URL] {
				continue
			}

			domain := Domain(r.URL)
			picks := domainPicks[domain]
			if picks >= perDomainCap && len(domainPicks) < minUniqueDomains {
				continue
			}

			seenURLs[r.URL] = true
			domainPicks[domain] = picks + 1

			title := r.Title
			if title == "" {
				title = defaultTitle
			}
			selected = append(selected, types.Source{
				URL:     r.URL,
				Title:   title,
				Domain:  domain,
				Snippet: parse.Truncate(r.Content, SnippetLimit),
			})
			if len(selected) >= maxSources {
				return selected
			}
		}
	}
	return selected
}

// Domain returns the host component of rawURL (including any port) with a
// leading "www." removed. Unparseable URLs yield the empty domain.
func Domain(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}
	return strings.TrimPrefix(u.Host, "www.")
}

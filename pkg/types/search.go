// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package types defines shared data structures for the research-agent pipeline:
// the research state threaded through every stage, the search, source, note
// and claim records it accumulates, and the run configuration.
package types

// RawResult is a single record returned by a search provider. Providers fill
// URL, Title and Content; the remaining fields are provider-defined and may be
// empty.
type RawResult struct {
	// URL is the address of the result page.
	URL string `json:"url" yaml:"url"`

	// Title is the page title as returned by the provider.
	Title string `json:"title" yaml:"title"`

	// Content is the provider's excerpt of the page.
	Content string `json:"content" yaml:"content"`

	// RawContent is the extended page text when the provider supplies it.
	RawContent string `json:"raw_content,omitempty" yaml:"raw_content,omitempty"`

	// Score is the provider's relevance score, if any.
	Score float64 `json:"score,omitempty" yaml:"score,omitempty"`
}

// SearchResult holds the raw results for one planned sub-question.
type SearchResult struct {
	// Query is the sub-question that was searched.
	Query string `json:"query" yaml:"query"`

	// Results are the provider records in returned-rank order.
	Results []RawResult `json:"results" yaml:"results"`
}

// Source is a deduplicated, selected search result used as citation input.
// The URL is unique within a run.
type Source struct {
	URL     string `json:"url" yaml:"url"`
	Title   string `json:"title" yaml:"title"`
	Domain  string `json:"domain" yaml:"domain"`
	Snippet string `json:"snippet" yaml:"snippet"`
}

// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package sources

import (
	"fmt"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/research-agent/pkg/types"
)

func result(url, title, content string) types.RawResult {
	return types.RawResult{URL: url, Title: title, Content: content}
}

func urls(srcs []types.Source) []string {
	out := make([]string, len(srcs))
	for i, s := range srcs {
		out[i] = s.URL
	}
	return out
}

func TestDomain(t *testing.T) {
	tests := []struct {
		url  string
		want string
	}{
		{"https://www.example.com/a", "example.com"},
		{"https://example.com/a", "example.com"},
		{"https://news.bbc.co.uk/x?y=1", "news.bbc.co.uk"},
		{"http://localhost:8080/p", "localhost:8080"},
		{"https://www.www.example.com", "www.example.com"},
		{"not a url", ""},
		{"://bad", ""},
	}
	for _, tt := range tests {
		t.Run(tt.url, func(t *testing.T) {
			assert.Equal(t, tt.want, Domain(tt.url))
		})
	}
}

func TestSelectDeduplicatesAndPreservesOrder(t *testing.T) {
	results := []types.SearchResult{
		{Query: "q1", Results: []types.RawResult{
			result("https://a.com/1", "A1", "a1"),
			result("https://b.com/1", "B1", "b1"),
		}},
		{Query: "q2", Results: []types.RawResult{
			result("https://a.com/1", "A1 again", "dup"),
			result("", "no url", "x"),
			result("https://c.com/1", "", "c1"),
		}},
	}

	got := Select(results, 8, 4)
	want := []types.Source{
		{URL: "https://a.com/1", Title: "A1", Domain: "a.com", Snippet: "a1"},
		{URL: "https://b.com/1", Title: "B1", Domain: "b.com", Snippet: "b1"},
		{URL: "https://c.com/1", Title: "Untitled", Domain: "c.com", Snippet: "c1"},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Select() mismatch (-want +got):\n%s", diff)
	}
}

func TestSelectCapsTotal(t *testing.T) {
	var rs []types.RawResult
	for i := 0; i < 20; i++ {
		rs = append(rs, result(fmt.Sprintf("https://d%d.com/x", i), "t", "c"))
	}
	got := Select([]types.SearchResult{{Query: "q", Results: rs}}, 5, 4)
	assert.Len(t, got, 5)
	assert.Equal(t, "https://d4.com/x", got[4].URL)
}

func TestSelectTruncatesSnippet(t *testing.T) {
	long := strings.Repeat("é", 800)
	got := Select([]types.SearchResult{{Results: []types.RawResult{result("https://a.com", "t", long)}}}, 8, 4)
	require.Len(t, got, 1)
	assert.Equal(t, 500, len([]rune(got[0].Snippet)))
}

func TestSelectDomainDiversity(t *testing.T) {
	tests := []struct {
		name             string
		urls             []string
		maxSources       int
		minUniqueDomains int
		want             []string
	}{
		{
			name: "third pick from a domain rejected while below minimum",
			urls: []string{
				"https://a.com/1", "https://a.com/2", "https://a.com/3",
				"https://b.com/1", "https://c.com/1",
			},
			maxSources:       8,
			minUniqueDomains: 4,
			want:             []string{"https://a.com/1", "https://a.com/2", "https://b.com/1", "https://c.com/1"},
		},
		{
			name: "cap lifts once minimum distinct domains reached",
			urls: []string{
				"https://a.com/1", "https://a.com/2", "https://b.com/1", "https://c.com/1",
				"https://a.com/3", "https://a.com/4",
			},
			maxSources:       8,
			minUniqueDomains: 3,
			want: []string{
				"https://a.com/1", "https://a.com/2", "https://b.com/1", "https://c.com/1",
				"https://a.com/3", "https://a.com/4",
			},
		},
		{
			name:             "www prefix counts as the same domain",
			urls:             []string{"https://www.a.com/1", "https://a.com/2", "https://www.a.com/3"},
			maxSources:       8,
			minUniqueDomains: 4,
			want:             []string{"https://www.a.com/1", "https://a.com/2"},
		},
		{
			name:             "pathological pool ends below the minimum",
			urls:             []string{"https://a.com/1", "https://a.com/2", "https://a.com/3", "https://b.com/1"},
			maxSources:       8,
			minUniqueDomains: 4,
			want:             []string{"https://a.com/1", "https://a.com/2", "https://b.com/1"},
		},
		{
			name:             "zero minimum never rejects by domain",
			urls:             []string{"https://a.com/1", "https://a.com/2", "https://a.com/3"},
			maxSources:       8,
			minUniqueDomains: 0,
			want:             []string{"https://a.com/1", "https://a.com/2", "https://a.com/3"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var rs []types.RawResult
			for _, u := range tt.urls {
				rs = append(rs, result(u, "t", "c"))
			}
			got := Select([]types.SearchResult{{Query: "q", Results: rs}}, tt.maxSources, tt.minUniqueDomains)
			assert.Equal(t, tt.want, urls(got))
		})
	}
}

// The selection invariants hold for every prefix of a mixed pool.
func TestSelectProperties(t *testing.T) {
	var results []types.SearchResult
	for q := 0; q < 6; q++ {
		var rs []types.RawResult
		for i := 0; i < 5; i++ {
			rs = append(rs, result(fmt.Sprintf("https://d%d.com/%d", (q*i)%4, i%3), "t", "c"))
		}
		results = append(results, types.SearchResult{Query: fmt.Sprintf("q%d", q), Results: rs})
	}

	for maxSources := 1; maxSources <= 10; maxSources++ {
		for minDomains := 0; minDomains <= 5; minDomains++ {
			got := Select(results, maxSources, minDomains)
			assert.LessOrEqual(t, len(got), maxSources)

			seen := map[string]bool{}
			perDomain := map[string]int{}
			for _, s := range got {
				assert.False(t, seen[s.URL], "duplicate URL %s", s.URL)
				seen[s.URL] = true
				perDomain[s.Domain]++
			}
			if len(perDomain) < minDomains {
				for d, n := range perDomain {
					assert.LessOrEqual(t, n, 2, "domain %s over cap with %d distinct domains", d, len(perDomain))
				}
			}

			again := Select(results, maxSources, minDomains)
			assert.Equal(t, got, again, "selection is deterministic")
		}
	}
}

func TestSelectEmpty(t *testing.T) {
	got := Select(nil, 8, 4)
	assert.NotNil(t, got)
	assert.Empty(t, got)
}

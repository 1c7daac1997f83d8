// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package draft

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/pdiddy/research-agent/pkg/types"
)

// NoOutline is the writer's outline text when the planner produced none.
const NoOutline = "Use your judgment"

// FormatNotes renders notes for the writer prompt. Each note becomes a block
// headed by the 1-based index of its source ("?" when the source is not in
// sources), followed by its relevance, bullets and optional quote. Blocks
// are separated by a blank line.
func FormatNotes(notes []types.Note, sources []types.Source) string {
	index := make(map[string]int, len(sources))
	for i, s := range sources {
		index[s.URL] = i + 1
	}

	blocks := make([]string, 0, len(notes))
	for _, n := range notes {
		idx := "?"
		if i, ok := index[n.SourceURL]; ok {
			idx = strconv.Itoa(i)
		}

		bullets := make([]string, len(n.Bullets))
		for i, b := range n.Bullets {
			bullets[i] = "  - " + b
		}

		quote := ""
		if n.Quote != "" {
			quote = `  Quote: "` + n.Quote + `"`
		}

		blocks = append(blocks, fmt.Sprintf("[%s] %s\n  Relevance: %s\n%s\n%s",
			idx, n.SourceURL, n.Relevance, strings.Join(bullets, "\n"), quote))
	}
	return strings.Join(blocks, "\n\n")
}

// FormatSources renders the numbered source list: one "[n] title - url"
// line per source.
func FormatSources(sources []types.Source) string {
	lines := make([]string, len(sources))
	for i, s := range sources {
		lines[i] = fmt.Sprintf("[%d] %s - %s", i+1, s.Title, s.URL)
	}
	return strings.Join(lines, "\n")
}

// FormatOutline joins outline sections with newlines, or returns NoOutline
// when the outline is empty or absent.
func FormatOutline(outline []string) string {
	if len(outline) == 0 {
		return NoOutline
	}
	return strings.Join(outline, "\n")
}

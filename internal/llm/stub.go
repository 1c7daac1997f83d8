// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"github.com/pdiddy/research-agent/internal/prompts"
)

// Stub is a deterministic offline model. It recognizes each stage's system
// instruction and answers with well-formed output derived from the user
// message, so the whole pipeline runs without network access.
type Stub struct{}

// Invoke answers according to the stage that system belongs to. Unknown
// instructions echo the user message.
func (Stub) Invoke(ctx context.Context, system, user string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	switch prompts.Classify(system) {
	case prompts.RolePlanner:
		return stubPlan(user), nil
	case prompts.RoleExtract:
		return stubExtract(user), nil
	case prompts.RoleWriter:
		return stubWrite(user), nil
	case prompts.RoleCompiler:
		return stubCompile(user), nil
	case prompts.RoleReviser:
		return stubRevise(user), nil
	default:
		return user, nil
	}
}

func stubPlan(user string) string {
	q := strings.TrimRight(lineAfter(user, "Research query: "), "?. ")
	out := struct {
		Subquestions []string `json:"subquestions"`
		Outline      []string `json:"outline"`
	}{
		Subquestions: []string{
			"Background and definitions: " + q,
			"Key facts and figures about " + q,
			"Historical timeline of " + q,
			"Recent developments regarding " + q,
			"Expert opinions on " + q,
			"Open questions and controversies about " + q,
		},
		Outline: []string{"Overview", "Key Facts", "Recent Developments", "Expert Perspectives"},
	}
	data, _ := json.MarshalIndent(out, "", "  ")
	return "```json\n" + string(data) + "\n```"
}

var sentenceEnd = regexp.MustCompile(`[.!?]\s+`)

func stubExtract(user string) string {
	query := lineAfter(user, "Research query: ")
	content := strings.TrimSpace(between(user, "Source content:\n", "\n\nExtract factual notes"))

	var bullets []string
	for _, s := range sentenceEnd.Split(content, -1) {
		s = strings.TrimSpace(s)
		if s == "" {
			continue
		}
		if !strings.HasSuffix(s, ".") {
			s += "."
		}
		bullets = append(bullets, s)
		if len(bullets) == 5 {
			break
		}
	}
	if len(bullets) == 0 {
		bullets = []string{"The source provides no extractable content."}
	}

	out := struct {
		Bullets   []string `json:"bullets"`
		Quote     *string  `json:"quote"`
		Relevance string   `json:"relevance"`
	}{
		Bullets:   bullets,
		Relevance: fmt.Sprintf("Provides background relevant to: %s", query),
	}
	if words := strings.Fields(bullets[0]); len(words) > 0 {
		if len(words) > 20 {
			words = words[:20]
		}
		q := strings.Join(words, " ")
		out.Quote = &q
	}
	data, _ := json.Marshal(out)
	return string(data)
}

var noteHeader = regexp.MustCompile(`^\[(\d+|\?)\] `)

func stubWrite(user string) string {
	query := lineAfter(user, "Research query: ")
	notes := between(user, "Research notes by source:\n", "\n\nSources list:")
	sources := strings.TrimSpace(between(user, "Sources list:\n", "\n\nWrite the research report."))

	// First bullet of each note, keyed by its citation index.
	var findings []string
	current := ""
	taken := false
	for _, line := range strings.Split(notes, "\n") {
		if m := noteHeader.FindStringSubmatch(line); m != nil {
			current, taken = m[1], false
			continue
		}
		if current == "" || taken || !strings.HasPrefix(line, "  - ") {
			continue
		}
		bullet := strings.TrimSuffix(strings.TrimSpace(strings.TrimPrefix(line, "  - ")), ".")
		findings = append(findings, fmt.Sprintf("- %s [%s].", bullet, current))
		taken = true
	}

	var b strings.Builder
	fmt.Fprintf(&b, "# Research Report: %s\n\n", query)
	b.WriteString("## TL;DR\n\n")
	if len(findings) == 0 {
		b.WriteString("No sources were available, so no findings could be established.\n\n")
	} else {
		fmt.Fprintf(&b, "This report summarizes %d source(s) on the question [1].\n\n", len(findings))
	}
	b.WriteString("## Key Findings\n\n")
	for _, f := range findings {
		b.WriteString(f + "\n")
	}
	b.WriteString("\n## Limitations\n\nThis draft was produced by the offline stub model from search snippets only.\n\n")
	b.WriteString("## Sources\n\n")
	if sources != "" {
		b.WriteString(sources + "\n")
	}
	return b.String()
}

var citationMarks = regexp.MustCompile(`\s*\[\d+\]`)

func stubCompile(user string) string {
	draft := between(user, "Draft report:\n", "\n\nIdentify claims to verify.")

	type claim struct {
		Claim             string `json:"claim"`
		SourceInDraft     string `json:"source_in_draft"`
		VerificationQuery string `json:"verification_query"`
	}
	var claims []claim
	section := ""
	for _, line := range strings.Split(draft, "\n") {
		if strings.HasPrefix(line, "## ") {
			section = strings.TrimPrefix(line, "## ")
			continue
		}
		if !strings.HasPrefix(line, "- ") || !citationMarks.MatchString(line) {
			continue
		}
		text := strings.TrimSpace(citationMarks.ReplaceAllString(strings.TrimPrefix(line, "- "), ""))
		claims = append(claims, claim{Claim: text, SourceInDraft: section, VerificationQuery: strings.TrimSuffix(text, ".")})
	}

	out := struct {
		Claims []claim `json:"claims"`
		Focus  string  `json:"verification_focus"`
	}{Claims: claims, Focus: "Check cited facts against independent sources"}
	if out.Claims == nil {
		out.Claims = []claim{}
	}
	data, _ := json.Marshal(out)
	return string(data)
}

func stubRevise(user string) string {
	draft := strings.TrimSpace(between(user, "Draft report:\n", "\n\nVerification results:"))
	raw := between(user, "Verification results:\n", "\n\nProduce the final revised report")

	var results []struct {
		Claim    string   `json:"claim"`
		Status   string   `json:"status"`
		Evidence []string `json:"evidence_snippets"`
	}
	decodeErr := json.Unmarshal([]byte(strings.TrimSpace(raw)), &results)

	var b strings.Builder
	b.WriteString(draft)
	b.WriteString("\n\n## Verification Checklist\n\n")
	switch {
	case decodeErr != nil:
		// Unreadable results are kept verbatim rather than reported as none.
		fmt.Fprintf(&b, "Verification results could not be read (%v):\n\n%s\n", decodeErr, strings.TrimSpace(raw))
		return b.String()
	case len(results) == 0:
		b.WriteString("No claims were verified.\n")
	}
	for _, r := range results {
		fmt.Fprintf(&b, "- %s (%s)\n", r.Claim, r.Status)
		for _, e := range r.Evidence {
			fmt.Fprintf(&b, "  - Evidence: %s\n", e)
		}
	}
	return b.String()
}

// lineAfter returns the rest of the first line that starts with prefix.
func lineAfter(text, prefix string) string {
	for _, line := range strings.Split(text, "\n") {
		if strings.HasPrefix(line, prefix) {
			return strings.TrimSpace(strings.TrimPrefix(line, prefix))
		}
	}
	return ""
}

// between returns the text after start and before the last occurrence of
// end. A missing end marker returns everything after start.
func between(text, start, end string) string {
	i := strings.Index(text, start)
	if i < 0 {
		return ""
	}
	rest := text[i+len(start):]
	if j := strings.LastIndex(rest, end); j >= 0 {
		return rest[:j]
	}
	return rest
}

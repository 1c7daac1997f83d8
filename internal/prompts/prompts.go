// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package prompts holds the instruction templates sent to the language model
// by each pipeline stage. System instructions are fixed strings; user
// messages are rendered from text/template templates.
package prompts

import (
	"bytes"
	"strings"
	"text/template"

	"github.com/pdiddy/research-agent/pkg/types"
)

// Role identifies the pipeline stage a system instruction belongs to.
type Role string

const (
	RoleUnknown  Role = ""
	RolePlanner  Role = "planner"
	RoleExtract  Role = "extractor"
	RoleWriter   Role = "writer"
	RoleCompiler Role = "compiler"
	RoleReviser  Role = "reviser"
)

// PlannerSystem instructs the model to decompose a query.
const PlannerSystem = `You are a research planning assistant. Given a user's research query,
break it down into 4-8 specific subquestions that, when answered, will provide
comprehensive coverage of the topic.

Guidelines:
- Each subquestion should be searchable (can be typed into a search engine)
- Cover different angles: facts, causes, effects, comparisons, timeline, expert opinions
- Order from foundational to advanced
- Avoid redundant questions

Respond in JSON format:
{
    "subquestions": ["question1", "question2", ...],
    "outline": ["Section 1 title", "Section 2 title", ...]
}`

// ExtractorSystem instructs the model to extract factual notes from one source.
const ExtractorSystem = `You are a research assistant extracting factual information from sources.

Given a source's content, extract:
- 3-5 key factual bullets (specific, citable facts)
- One short quote if particularly relevant (max 20 words)
- Brief relevance assessment

Be precise. Only extract what's actually stated, not inferences.

Respond in JSON format:
{
    "bullets": ["fact 1", "fact 2", ...],
    "quote": "exact quote or null",
    "relevance": "one sentence on how this source helps answer the research query"
}`

// writerPreamble opens every writer system instruction regardless of style.
const writerPreamble = `You are a research report writer. Given research notes from multiple sources,
write a well-structured, source-grounded report.`

const writerGuidelines = `Guidelines:
- Every factual claim needs a citation
- Use [1], [2] etc. for inline citations that match the numbered sources list
- Be direct and concrete, avoid fluff
- If sources conflict, say so explicitly
- End with a "Sources" section listing the numbered sources`

// styleHeaders adjust section emphasis and verbosity per report style.
var styleHeaders = map[types.ReportStyle]string{
	types.StyleDefault: `Report structure:
1. **Title**: Clear, descriptive title
2. **TL;DR**: 2-3 sentence summary
3. **Key Findings**: 4-6 bullet points with inline citations [1], [2], etc.
4. **Detailed Analysis**: Sections covering the research systematically
5. **Contradictions & Uncertainty**: Note any conflicting information
6. **Limitations**: What couldn't be determined, gaps in sources
7. **Sources**: Numbered list matching your citations`,

	types.StyleExecutive: `Report structure (executive briefing):
1. **Title**: Short, decision-oriented title
2. **Executive Summary**: 3-4 sentences a busy reader can act on
3. **Key Takeaways**: 3-5 bullets, each with an inline citation
4. **Implications & Recommendations**: What this means and what to do next
5. **Risks & Open Questions**: Brief, cited where possible
6. **Sources**: Numbered list matching your citations

Keep it concise: favor short paragraphs and plain language over detail.`,

	types.StyleAcademic: `Report structure (academic review):
1. **Title**
2. **Abstract**: One paragraph summarizing scope, evidence and conclusions
3. **Introduction**: Context and the research question
4. **Background & Literature**: What the sources establish, with citations
5. **Analysis & Discussion**: Systematic treatment, comparing sources
6. **Contradictions & Uncertainty**: Explicit treatment of conflicting evidence
7. **Limitations**: Gaps in the evidence and methodological caveats
8. **Conclusion**
9. **Sources**: Numbered list matching your citations

Use a formal register and precise, hedged language where evidence is thin.`,

	types.StyleBullet: `Report structure (bullet digest):
1. **Title**
2. **TL;DR**: One sentence
3. **Findings**: Bulleted facts grouped under short headings, every bullet cited
4. **Caveats**: Bulleted conflicts and gaps
5. **Sources**: Numbered list matching your citations

Use bullets throughout; avoid long prose paragraphs.`,
}

// StyleHeader returns the structure guidance for style, falling back to the
// default style for unknown values.
func StyleHeader(style types.ReportStyle) string {
	if h, ok := styleHeaders[style]; ok {
		return h
	}
	return styleHeaders[types.StyleDefault]
}

// WriterSystem returns the writer instruction for style.
func WriterSystem(style types.ReportStyle) string {
	return writerPreamble + "\n\n" + StyleHeader(style) + "\n\n" + writerGuidelines
}

// CompilerSystem instructs the verify model to pick fact-checkable claims.
const CompilerSystem = `You are a verification specialist. Given a draft research report,
identify claims that should be fact-checked.

Focus on:
- Specific statistics or numbers
- Causal claims ("X causes Y")
- Comparative claims ("X is better/worse than Y")
- Recent events or developments
- Claims that seem surprising or counterintuitive

For each claim, suggest a verification search query.

Respond in JSON format:
{
    "claims": [
        {
            "claim": "the specific claim text",
            "source_in_draft": "which section it appears in",
            "verification_query": "search query to verify this"
        }
    ],
    "verification_focus": "what aspect of accuracy to prioritize"
}`

// ReviserSystem instructs the model to fold verification results into the draft.
const ReviserSystem = `You are a research report editor. Given a draft report and verification results,
produce a final revised report.

Your tasks:
1. Correct any claims that verification showed to be wrong
2. Add nuance where verification showed mixed results
3. Add a "Verification Checklist" section at the end showing:
   - Each verified claim
   - Status (confirmed/mixed/insufficient)
   - Supporting evidence

Keep the original structure but improve accuracy based on verification.`

// Classify reports which stage a system instruction belongs to.
func Classify(system string) Role {
	switch {
	case system == PlannerSystem:
		return RolePlanner
	case system == ExtractorSystem:
		return RoleExtract
	case strings.HasPrefix(system, writerPreamble):
		return RoleWriter
	case system == CompilerSystem:
		return RoleCompiler
	case system == ReviserSystem:
		return RoleReviser
	default:
		return RoleUnknown
	}
}

var (
	plannerUserTmpl = template.Must(template.New("planner").Parse(`Research query: {{.Query}}

Generate subquestions and a report outline.`))

	extractorUserTmpl = template.Must(template.New("extractor").Parse(`Research query: {{.Query}}

Source URL: {{.URL}}
Source title: {{.Title}}
Source content:
{{.Content}}

Extract factual notes from this source.`))

	writerUserTmpl = template.Must(template.New("writer").Parse(`Research query: {{.Query}}

Outline to follow:
{{.Outline}}

Research notes by source:
{{.Notes}}

Sources list:
{{.Sources}}

Write the research report.`))

	compilerUserTmpl = template.Must(template.New("compiler").Parse(`Research query: {{.Query}}

Draft report:
{{.Draft}}

Identify claims to verify.`))

	reviserUserTmpl = template.Must(template.New("reviser").Parse(`Original query: {{.Query}}

Draft report:
{{.Draft}}

Verification results:
{{.Results}}

Produce the final revised report with verification checklist.`))
)

// PlannerInput feeds the planner user message.
type PlannerInput struct {
	Query string
}

// ExtractorInput feeds the extractor user message.
type ExtractorInput struct {
	Query   string
	URL     string
	Title   string
	Content string
}

// WriterInput feeds the writer user message.
type WriterInput struct {
	Query   string
	Outline string
	Notes   string
	Sources string
}

// CompilerInput feeds the verification compiler user message.
type CompilerInput struct {
	Query string
	Draft string
}

// ReviserInput feeds the reviser user message.
type ReviserInput struct {
	Query   string
	Draft   string
	Results string
}

// PlannerUser renders the planner user message.
func PlannerUser(in PlannerInput) (string, error) { return render(plannerUserTmpl, in) }

// ExtractorUser renders the extractor user message.
func ExtractorUser(in ExtractorInput) (string, error) { return render(extractorUserTmpl, in) }

// WriterUser renders the writer user message.
func WriterUser(in WriterInput) (string, error) { return render(writerUserTmpl, in) }

// CompilerUser renders the verification compiler user message.
func CompilerUser(in CompilerInput) (string, error) { return render(compilerUserTmpl, in) }

// ReviserUser renders the reviser user message.
func ReviserUser(in ReviserInput) (string, error) { return render(reviserUserTmpl, in) }

func render(t *template.Template, data any) (string, error) {
	var buf bytes.Buffer
	if err := t.Execute(&buf, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package draft writes the source-grounded research report from the notes
// and sources of a run, and checks the bracketed numeric citations in it.
package draft

import (
	"context"
	"fmt"

	"github.com/pdiddy/research-agent/internal/llm"
	"github.com/pdiddy/research-agent/internal/prompts"
	"github.com/pdiddy/research-agent/pkg/types"
)

// StageName labels this stage in logs and metrics.
const StageName = "draft"

// Writer invokes the draft model once with the style-specific writer
// instruction.
type Writer struct {
	Model llm.Model
	Style types.ReportStyle
}

// Input is everything the writer reads from the research state.
type Input struct {
	Query   string
	Outline []string
	Notes   []types.Note
	Sources []types.Source
}

// Write returns the model's report text verbatim.
func (w *Writer) Write(ctx context.Context, in Input) (string, error) {
	user, err := prompts.WriterUser(prompts.WriterInput{
		Query:   in.Query,
		Outline: FormatOutline(in.Outline),
		Notes:   FormatNotes(in.Notes, in.Sources),
		Sources: FormatSources(in.Sources),
	})
	if err != nil {
		return "", fmt.Errorf("rendering writer prompt: %w", err)
	}

	report, err := w.Model.Invoke(ctx, prompts.WriterSystem(w.Style), user)
	if err != nil {
		return "", fmt.Errorf("writing report: %w", err)
	}
	return report, nil
}

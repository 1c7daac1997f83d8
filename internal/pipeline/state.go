// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package pipeline

import (
	"slices"

	"github.com/pdiddy/research-agent/pkg/types"
)

// Update is the partial result of one stage. The controller merges it into
// the run state; nil fields leave the corresponding state field untouched
// and Messages are appended.
type Update struct {
	Plan          []string
	Outline       []string
	SearchResults []types.SearchResult
	Sources       []types.Source
	Notes         []types.Note

	ReportDraft *string
	Report      *string

	VerificationSpec    *types.VerificationSpec
	VerificationResults []types.VerificationClaim

	Messages []types.Message
}

// apply merges u into s.
func (u Update) apply(s *types.ResearchState) {
	if u.Plan != nil {
		s.Plan = u.Plan
	}
	if u.Outline != nil {
		s.Outline = u.Outline
	}
	if u.SearchResults != nil {
		s.SearchResults = u.SearchResults
	}
	if u.Sources != nil {
		s.Sources = u.Sources
	}
	if u.Notes != nil {
		s.Notes = u.Notes
	}
	if u.ReportDraft != nil {
		s.ReportDraft = *u.ReportDraft
	}
	if u.Report != nil {
		s.Report = *u.Report
	}
	if u.VerificationSpec != nil {
		s.VerificationSpec = u.VerificationSpec
	}
	if u.VerificationResults != nil {
		s.VerificationResults = u.VerificationResults
	}
	s.Messages = append(s.Messages, u.Messages...)
}

// snapshot returns a copy of s whose slices a stage may read without
// observing later merges.
func snapshot(s *types.ResearchState) types.ResearchState {
	c := *s
	c.Plan = slices.Clone(s.Plan)
	c.Outline = slices.Clone(s.Outline)
	c.SearchResults = slices.Clone(s.SearchResults)
	c.Sources = slices.Clone(s.Sources)
	c.Notes = slices.Clone(s.Notes)
	c.VerificationResults = slices.Clone(s.VerificationResults)
	c.Messages = slices.Clone(s.Messages)
	if s.VerificationSpec != nil {
		spec := *s.VerificationSpec
		spec.Claims = slices.Clone(s.VerificationSpec.Claims)
		c.VerificationSpec = &spec
	}
	return c
}

func assistant(content string) []types.Message {
	return []types.Message{{Role: "assistant", Content: content}}
}

// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import "time"

// Status is the pipeline position of a research run. Statuses advance in
// declaration order and never regress; StatusError is terminal and may be
// entered from any non-terminal status.
type Status string

const (
	StatusPlanning   Status = "planning"
	StatusSearching  Status = "searching"
	StatusExtracting Status = "extracting"
	StatusDrafting   Status = "drafting"
	StatusVerifying  Status = "verifying"
	StatusRevising   Status = "revising"
	StatusComplete   Status = "complete"
	StatusError      Status = "error"
)

var statusRank = map[Status]int{
	StatusPlanning:   0,
	StatusSearching:  1,
	StatusExtracting: 2,
	StatusDrafting:   3,
	StatusVerifying:  4,
	StatusRevising:   5,
	StatusComplete:   6,
	StatusError:      7,
}

// Terminal reports whether no further stage runs after this status.
func (s Status) Terminal() bool {
	return s == StatusComplete || s == StatusError
}

// Before reports whether s precedes next in the pipeline order. Unknown
// statuses never precede anything.
func (s Status) Before(next Status) bool {
	a, ok := statusRank[s]
	if !ok {
		return false
	}
	b, ok := statusRank[next]
	if !ok {
		return false
	}
	return a < b
}

// ReportStyle selects the presentation of the written report. Styles change
// section emphasis and verbosity but never the citation contract.
type ReportStyle string

const (
	StyleDefault   ReportStyle = "default"
	StyleExecutive ReportStyle = "executive"
	StyleAcademic  ReportStyle = "academic"
	StyleBullet    ReportStyle = "bullet"
)

// ReportStyles lists every supported style in display order.
var ReportStyles = []ReportStyle{StyleDefault, StyleExecutive, StyleAcademic, StyleBullet}

// ClaimStatus is the verification outcome of a claim.
type ClaimStatus string

const (
	ClaimPending      ClaimStatus = "pending"
	ClaimConfirmed    ClaimStatus = "confirmed"
	ClaimMixed        ClaimStatus = "mixed"
	ClaimInsufficient ClaimStatus = "insufficient"
)

// Resolved reports whether the claim has reached a terminal status.
func (c ClaimStatus) Resolved() bool {
	return c == ClaimConfirmed || c == ClaimMixed || c == ClaimInsufficient
}

// Note is the structured factual extraction produced from one source.
type Note struct {
	// SourceURL links the note to Source.URL.
	SourceURL string `json:"source_url" yaml:"source_url"`

	// Bullets are the extracted facts. A degraded note carries one bullet
	// holding the raw model output.
	Bullets []string `json:"bullets" yaml:"bullets"`

	// Quote is an optional verbatim quote; empty when absent.
	Quote string `json:"quote,omitempty" yaml:"quote,omitempty"`

	// Relevance is a one-sentence statement of how the source helps.
	Relevance string `json:"relevance" yaml:"relevance"`
}

// VerificationClaim is a fact-checkable assertion from the draft report.
// It is created pending by the verification compiler and resolved exactly
// once by the claim verifier.
type VerificationClaim struct {
	Claim             string      `json:"claim" yaml:"claim"`
	SourceInDraft     string      `json:"source_in_draft" yaml:"source_in_draft"`
	VerificationQuery string      `json:"verification_query" yaml:"verification_query"`
	Evidence          []string    `json:"evidence,omitempty" yaml:"evidence,omitempty"`
	Status            ClaimStatus `json:"status" yaml:"status"`
}

// VerificationSpec is the output of the verification compiler.
type VerificationSpec struct {
	Claims []VerificationClaim `json:"claims" yaml:"claims"`
	Focus  string              `json:"verification_focus" yaml:"verification_focus"`
}

// Message is one entry of the run's progress log.
type Message struct {
	Role    string `json:"role" yaml:"role"`
	Content string `json:"content" yaml:"content"`
}

// ResearchState is the record threaded through every pipeline stage. One
// run owns one state exclusively; it is never shared across runs.
type ResearchState struct {
	ID          string      `json:"id" yaml:"id"`
	Query       string      `json:"query" yaml:"query"`
	ReportStyle ReportStyle `json:"report_style" yaml:"report_style"`

	Plan    []string `json:"plan" yaml:"plan"`
	Outline []string `json:"outline,omitempty" yaml:"outline,omitempty"`

	SearchResults []SearchResult `json:"search_results" yaml:"search_results"`
	Sources       []Source       `json:"sources" yaml:"sources"`
	Notes         []Note         `json:"notes" yaml:"notes"`

	ReportDraft string `json:"report_draft,omitempty" yaml:"report_draft,omitempty"`
	Report      string `json:"report,omitempty" yaml:"report,omitempty"`

	VerificationSpec    *VerificationSpec   `json:"verification_spec,omitempty" yaml:"verification_spec,omitempty"`
	VerificationResults []VerificationClaim `json:"verification_results,omitempty" yaml:"verification_results,omitempty"`

	Status Status `json:"status" yaml:"status"`
	Error  string `json:"error,omitempty" yaml:"error,omitempty"`

	Messages []Message `json:"messages" yaml:"messages"`

	StartedAt   time.Time `json:"started_at" yaml:"started_at"`
	CompletedAt time.Time `json:"completed_at,omitempty" yaml:"completed_at,omitempty"`
}

// FinalReport returns the externally visible report: the final report when
// set, otherwise the draft, otherwise the empty string.
func (s *ResearchState) FinalReport() string {
	if s.Report != "" {
		return s.Report
	}
	return s.ReportDraft
}

// ConfirmedClaims counts verification results with status confirmed.
func (s *ResearchState) ConfirmedClaims() int {
	n := 0
	for _, c := range s.VerificationResults {
		if c.Status == ClaimConfirmed {
			n++
		}
	}
	return n
}

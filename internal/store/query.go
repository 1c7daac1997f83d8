// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/pdiddy/research-agent/pkg/types"
)

// DefaultListLimit caps List when ListOptions.Limit is zero.
const DefaultListLimit = 20

// ListOptions filters the run history.
type ListOptions struct {
	// Query matches runs whose query or report contains the text.
	Query string

	// Status keeps runs in this status only.
	Status types.Status

	// Limit caps the result count. Zero uses DefaultListLimit.
	Limit int
}

// RunSummary is one row of the run history.
type RunSummary struct {
	ID          string       `json:"id" yaml:"id"`
	Query       string       `json:"query" yaml:"query"`
	Status      types.Status `json:"status" yaml:"status"`
	Sources     int          `json:"sources" yaml:"sources"`
	Claims      int          `json:"claims" yaml:"claims"`
	Confirmed   int          `json:"confirmed" yaml:"confirmed"`
	StartedAt   time.Time    `json:"started_at" yaml:"started_at"`
	CompletedAt time.Time    `json:"completed_at,omitempty" yaml:"completed_at,omitempty"`
}

// List returns run summaries, newest first.
func (s *Store) List(ctx context.Context, opts ListOptions) ([]RunSummary, error) {
	limit := opts.Limit
	if limit <= 0 {
		limit = DefaultListLimit
	}

	var (
		qb   strings.Builder
		args []any
	)
	qb.WriteString(
		`SELECT r.id, r.query, r.status, r.started_at, COALESCE(r.completed_at, ''),
			(SELECT count(*) FROM sources WHERE run_id = r.id),
			(SELECT count(*) FROM claims WHERE run_id = r.id),
			(SELECT count(*) FROM claims WHERE run_id = r.id AND status = ?)
		FROM runs r
		WHERE 1=1`)
	args = append(args, string(types.ClaimConfirmed))

	if opts.Query != "" {
		pattern := "%" + escapeLike(opts.Query) + "%"
		qb.WriteString(` AND (r.query LIKE ? ESCAPE '\' OR r.report LIKE ? ESCAPE '\')`)
		args = append(args, pattern, pattern)
	}
	if opts.Status != "" {
		qb.WriteString(` AND r.status = ?`)
		args = append(args, string(opts.Status))
	}
	qb.WriteString(` ORDER BY r.started_at DESC, r.id LIMIT ?`)
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx, qb.String(), args...)
	if err != nil {
		return nil, fmt.Errorf("listing runs: %w", err)
	}
	defer rows.Close()

	var out []RunSummary
	for rows.Next() {
		var (
			r                  RunSummary
			status             string
			started, completed string
		)
		if err := rows.Scan(&r.ID, &r.Query, &status, &started, &completed, &r.Sources, &r.Claims, &r.Confirmed); err != nil {
			return nil, fmt.Errorf("scanning run: %w", err)
		}
		r.Status = types.Status(status)
		r.StartedAt = parseTime(started)
		r.CompletedAt = parseTime(completed)
		out = append(out, r)
	}
	return out, rows.Err()
}

// Get loads the full state of run id. An unknown id returns ErrNotFound.
func (s *Store) Get(ctx context.Context, id string) (*types.ResearchState, error) {
	var (
		state                                  types.ResearchState
		style, status                          string
		plan, outline, results, spec, messages sql.NullString
		errText, draft, report                 sql.NullString
		started                                string
		completed                              sql.NullString
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT id, query, report_style, status, error, plan, outline, search_results,
			report_draft, report, verification_spec, messages, started_at, completed_at
		 FROM runs WHERE id = ?`, id,
	).Scan(&state.ID, &state.Query, &style, &status, &errText, &plan, &outline, &results,
		&draft, &report, &spec, &messages, &started, &completed)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("loading run %s: %w", id, err)
	}

	state.ReportStyle = types.ReportStyle(style)
	state.Status = types.Status(status)
	state.Error = errText.String
	state.ReportDraft = draft.String
	state.Report = report.String
	state.StartedAt = parseTime(started)
	state.CompletedAt = parseTime(completed.String)

	for _, col := range []struct {
		name string
		raw  sql.NullString
		dst  any
	}{
		{"plan", plan, &state.Plan},
		{"outline", outline, &state.Outline},
		{"search_results", results, &state.SearchResults},
		{"messages", messages, &state.Messages},
	} {
		if err := decodeColumn(col.raw, col.dst); err != nil {
			return nil, fmt.Errorf("decoding %s of run %s: %w", col.name, id, err)
		}
	}
	if spec.String != "" {
		state.VerificationSpec = &types.VerificationSpec{}
		if err := json.Unmarshal([]byte(spec.String), state.VerificationSpec); err != nil {
			return nil, fmt.Errorf("decoding verification spec of run %s: %w", id, err)
		}
	}

	if state.Sources, err = s.loadSources(ctx, id); err != nil {
		return nil, err
	}
	if state.Notes, err = s.loadNotes(ctx, id); err != nil {
		return nil, err
	}
	if state.VerificationResults, err = s.loadClaims(ctx, id); err != nil {
		return nil, err
	}
	return &state, nil
}

func (s *Store) loadSources(ctx context.Context, runID string) ([]types.Source, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT url, title, domain, snippet FROM sources WHERE run_id = ? ORDER BY position`, runID)
	if err != nil {
		return nil, fmt.Errorf("loading sources: %w", err)
	}
	defer rows.Close()

	out := []types.Source{}
	for rows.Next() {
		var src types.Source
		if err := rows.Scan(&src.URL, &src.Title, &src.Domain, &src.Snippet); err != nil {
			return nil, fmt.Errorf("scanning source: %w", err)
		}
		out = append(out, src)
	}
	return out, rows.Err()
}

func (s *Store) loadNotes(ctx context.Context, runID string) ([]types.Note, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT source_url, bullets, quote, relevance FROM notes WHERE run_id = ? ORDER BY position`, runID)
	if err != nil {
		return nil, fmt.Errorf("loading notes: %w", err)
	}
	defer rows.Close()

	out := []types.Note{}
	for rows.Next() {
		var (
			n       types.Note
			bullets sql.NullString
		)
		if err := rows.Scan(&n.SourceURL, &bullets, &n.Quote, &n.Relevance); err != nil {
			return nil, fmt.Errorf("scanning note: %w", err)
		}
		if err := decodeColumn(bullets, &n.Bullets); err != nil {
			return nil, fmt.Errorf("decoding note bullets: %w", err)
		}
		out = append(out, n)
	}
	return out, rows.Err()
}

func (s *Store) loadClaims(ctx context.Context, runID string) ([]types.VerificationClaim, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT claim, source_in_draft, verification_query, evidence, status
		 FROM claims WHERE run_id = ? ORDER BY position`, runID)
	if err != nil {
		return nil, fmt.Errorf("loading claims: %w", err)
	}
	defer rows.Close()

	var out []types.VerificationClaim
	for rows.Next() {
		var (
			c        types.VerificationClaim
			evidence sql.NullString
			status   string
		)
		if err := rows.Scan(&c.Claim, &c.SourceInDraft, &c.VerificationQuery, &evidence, &status); err != nil {
			return nil, fmt.Errorf("scanning claim: %w", err)
		}
		if err := decodeColumn(evidence, &c.Evidence); err != nil {
			return nil, fmt.Errorf("decoding claim evidence: %w", err)
		}
		c.Status = types.ClaimStatus(status)
		out = append(out, c)
	}
	return out, rows.Err()
}

func decodeColumn(raw sql.NullString, dst any) error {
	if !raw.Valid || raw.String == "" {
		return nil
	}
	return json.Unmarshal([]byte(raw.String), dst)
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}

// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package store keeps a history of research runs in SQLite and moves run
// state in and out of YAML and JSON files.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/pdiddy/research-agent/pkg/types"
)

// DefaultPath is the history database used when none is configured.
const DefaultPath = "output/research.db"

// timeLayout is fixed width so stored timestamps sort lexically.
const timeLayout = "2006-01-02T15:04:05.000000000Z"

// ErrNotFound is returned by Get for an unknown run ID.
var ErrNotFound = errors.New("run not found")

// Store manages the run history database.
type Store struct {
	db *sql.DB
}

// Open opens or creates the history database at path, creating parent
// directories and the schema as needed.
func Open(path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("creating database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_foreign_keys=on&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	s := &Store{db: db}
	if err := s.createSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}
	return s, nil
}

// Close releases the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) createSchema() error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS runs (
			id TEXT PRIMARY KEY,
			query TEXT NOT NULL,
			report_style TEXT,
			status TEXT NOT NULL,
			error TEXT,
			plan TEXT,
			outline TEXT,
			search_results TEXT,
			report_draft TEXT,
			report TEXT,
			verification_spec TEXT,
			messages TEXT,
			started_at TEXT NOT NULL,
			completed_at TEXT
		)`,
		`CREATE INDEX IF NOT EXISTS idx_runs_started_at ON runs(started_at)`,
		`CREATE TABLE IF NOT EXISTS sources (
			run_id TEXT NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
			position INTEGER NOT NULL,
			url TEXT NOT NULL,
			title TEXT,
			domain TEXT,
			snippet TEXT,
			PRIMARY KEY (run_id, position)
		)`,
		`CREATE TABLE IF NOT EXISTS notes (
			run_id TEXT NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
			position INTEGER NOT NULL,
			source_url TEXT NOT NULL,
			bullets TEXT,
			quote TEXT,
			relevance TEXT,
			PRIMARY KEY (run_id, position)
		)`,
		`CREATE TABLE IF NOT EXISTS claims (
			run_id TEXT NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
			position INTEGER NOT NULL,
			claim TEXT NOT NULL,
			source_in_draft TEXT,
			verification_query TEXT,
			evidence TEXT,
			status TEXT NOT NULL,
			PRIMARY KEY (run_id, position)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_claims_status ON claims(status)`,
	}

	for _, stmt := range statements {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("executing schema statement: %w", err)
		}
	}
	return nil
}

// Save writes state to the history. Saving a run that already exists
// replaces it, including its sources, notes and claims.
func (s *Store) Save(ctx context.Context, state *types.ResearchState) error {
	if state == nil || state.ID == "" {
		return errors.New("saving run: state has no ID")
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	var spec string
	if state.VerificationSpec != nil {
		spec = jsonText(state.VerificationSpec)
	}
	var completed sql.NullString
	if !state.CompletedAt.IsZero() {
		completed = sql.NullString{String: formatTime(state.CompletedAt), Valid: true}
	}

	_, err = tx.ExecContext(ctx,
		`INSERT INTO runs (id, query, report_style, status, error, plan, outline, search_results,
			report_draft, report, verification_spec, messages, started_at, completed_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET
			query=excluded.query, report_style=excluded.report_style, status=excluded.status,
			error=excluded.error, plan=excluded.plan, outline=excluded.outline,
			search_results=excluded.search_results, report_draft=excluded.report_draft,
			report=excluded.report, verification_spec=excluded.verification_spec,
			messages=excluded.messages, started_at=excluded.started_at,
			completed_at=excluded.completed_at`,
		state.ID, state.Query, string(state.ReportStyle), string(state.Status), state.Error,
		jsonText(state.Plan), jsonText(state.Outline), jsonText(state.SearchResults),
		state.ReportDraft, state.Report, spec, jsonText(state.Messages),
		formatTime(state.StartedAt), completed,
	)
	if err != nil {
		return fmt.Errorf("upserting run: %w", err)
	}

	for _, table := range []string{"sources", "notes", "claims"} {
		if _, err := tx.ExecContext(ctx, `DELETE FROM `+table+` WHERE run_id = ?`, state.ID); err != nil {
			return fmt.Errorf("clearing %s: %w", table, err)
		}
	}

	if err := insertSources(ctx, tx, state.ID, state.Sources); err != nil {
		return err
	}
	if err := insertNotes(ctx, tx, state.ID, state.Notes); err != nil {
		return err
	}
	if err := insertClaims(ctx, tx, state.ID, state.VerificationResults); err != nil {
		return err
	}

	return tx.Commit()
}

func insertSources(ctx context.Context, tx *sql.Tx, runID string, sources []types.Source) error {
	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO sources (run_id, position, url, title, domain, snippet) VALUES (?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("preparing source insert: %w", err)
	}
	defer stmt.Close()

	for i, src := range sources {
		if _, err := stmt.ExecContext(ctx, runID, i, src.URL, src.Title, src.Domain, src.Snippet); err != nil {
			return fmt.Errorf("inserting source %s: %w", src.URL, err)
		}
	}
	return nil
}

func insertNotes(ctx context.Context, tx *sql.Tx, runID string, notes []types.Note) error {
	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO notes (run_id, position, source_url, bullets, quote, relevance) VALUES (?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("preparing note insert: %w", err)
	}
	defer stmt.Close()

	for i, n := range notes {
		if _, err := stmt.ExecContext(ctx, runID, i, n.SourceURL, jsonText(n.Bullets), n.Quote, n.Relevance); err != nil {
			return fmt.Errorf("inserting note for %s: %w", n.SourceURL, err)
		}
	}
	return nil
}

func insertClaims(ctx context.Context, tx *sql.Tx, runID string, claims []types.VerificationClaim) error {
	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO claims (run_id, position, claim, source_in_draft, verification_query, evidence, status)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("preparing claim insert: %w", err)
	}
	defer stmt.Close()

	for i, c := range claims {
		_, err := stmt.ExecContext(ctx, runID, i, c.Claim, c.SourceInDraft, c.VerificationQuery,
			jsonText(c.Evidence), string(c.Status))
		if err != nil {
			return fmt.Errorf("inserting claim %d: %w", i, err)
		}
	}
	return nil
}

// jsonText encodes v for a TEXT column. Nil slices are stored as "null" so
// they read back as nil.
func jsonText(v any) string {
	data, _ := json.Marshal(v)
	return string(data)
}

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func parseTime(s string) time.Time {
	t, err := time.Parse(timeLayout, s)
	if err != nil {
		return time.Time{}
	}
	return t
}

// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package store

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/research-agent/pkg/types"
)

// StateFile is the on-disk representation of one run. A run saved to a
// file can be inspected or imported into the history without re-running it.
type StateFile struct {
	Summary StateSummary         `yaml:"summary"`
	State   *types.ResearchState `yaml:"state"`
}

// StateSummary repeats the headline numbers of a run for quick reading.
type StateSummary struct {
	Status          types.Status `yaml:"status"`
	SearchesRun     int          `yaml:"searches_run"`
	SourcesUsed     int          `yaml:"sources_used"`
	ClaimsVerified  int          `yaml:"claims_verified"`
	ClaimsConfirmed int          `yaml:"claims_confirmed"`
	Written         time.Time    `yaml:"written"`
}

// WriteStateFile saves state to path as YAML, creating parent directories.
func WriteStateFile(path string, state *types.ResearchState) error {
	if state == nil {
		return errors.New("writing state file: nil state")
	}
	sf := StateFile{
		Summary: StateSummary{
			Status:          state.Status,
			SearchesRun:     len(state.SearchResults),
			SourcesUsed:     len(state.Sources),
			ClaimsVerified:  len(state.VerificationResults),
			ClaimsConfirmed: state.ConfirmedClaims(),
			Written:         time.Now().UTC(),
		},
		State: state,
	}

	data, err := yaml.Marshal(&sf)
	if err != nil {
		return fmt.Errorf("marshaling state file: %w", err)
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("creating state directory: %w", err)
		}
	}
	return os.WriteFile(path, data, 0o644)
}

// ReadStateFile loads a run previously saved with WriteStateFile.
func ReadStateFile(path string) (*types.ResearchState, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading state file: %w", err)
	}
	var sf StateFile
	if err := yaml.Unmarshal(data, &sf); err != nil {
		return nil, fmt.Errorf("parsing state file: %w", err)
	}
	if sf.State == nil || sf.State.ID == "" {
		return nil, fmt.Errorf("parsing state file %s: no run state", path)
	}
	return sf.State, nil
}

// ExportJSON writes state to w as indented JSON.
func ExportJSON(w io.Writer, state *types.ResearchState) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(state); err != nil {
		return fmt.Errorf("encoding run %s: %w", state.ID, err)
	}
	return nil
}

//go:build mage

package main

import (
	"fmt"
	"path/filepath"
	"time"

	"github.com/magefile/mage/mg"
	"github.com/magefile/mage/sh"
)

const smokeQuery = "What is the capital of France?"

// Smoke runs the CLI offline with the stub model and stub search, once as a
// plain draft and once with claim verification, and checks the run history.
func Smoke() error {
	mg.Deps(Build, Init)

	db := filepath.Join("output", "smoke.db")
	offline := []string{"run", "--model", "stub", "--verify-model", "stub", "--search-provider", "stub", "--db", db, "--save"}

	runs := []struct {
		name string
		args []string
	}{
		{"draft", []string{"-o", filepath.Join("output", "reports", "smoke.md")}},
		{"cove", []string{"--cove", "--report-style", "academic",
			"--state-file", filepath.Join("output", "state", "smoke.yaml"),
			"-o", filepath.Join("output", "reports", "smoke-cove.md")}},
	}
	for _, r := range runs {
		fmt.Printf("[smoke] %s\n", r.name)
		args := append(append(append([]string{}, offline...), r.args...), smokeQuery)
		if err := sh.RunV(binPath(), args...); err != nil {
			return fmt.Errorf("smoke %s: %w", r.name, err)
		}
	}
	return sh.RunV(binPath(), "history", "list", "--db", db)
}

// Research runs a live research query with verification, saving the report,
// the run state and the history entry under output/.
func Research(query string) error {
	mg.Deps(Build, Init)

	stamp := time.Now().Format("20060102-150405")
	return sh.RunV(binPath(), "run", "--cove", "--save",
		"-o", filepath.Join("output", "reports", stamp+".md"),
		"--state-file", filepath.Join("output", "state", stamp+".yaml"),
		"--metrics-file", filepath.Join("output", "state", stamp+".prom"),
		query,
	)
}

// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/research-agent/internal/store"
	"github.com/pdiddy/research-agent/pkg/types"
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Inspect saved research runs (list, show, export, import)",
	Long: `History manages the local SQLite database of research runs saved with
run --save. Use subcommands to list runs, print a report, export a run's full
state, or import a state file written with run --state-file.`,
}

// --- list subcommand ---

var historyListCmd = &cobra.Command{
	Use:   "list",
	Short: "List saved runs, newest first",
	Args:  cobra.NoArgs,
	RunE:  runHistoryList,
}

func runHistoryList(cmd *cobra.Command, args []string) error {
	s, err := store.Open(viper.GetString("db"))
	if err != nil {
		return err
	}
	defer s.Close()

	query, _ := cmd.Flags().GetString("query")
	status, _ := cmd.Flags().GetString("status")
	limit, _ := cmd.Flags().GetInt("limit")
	runs, err := s.List(cmd.Context(), store.ListOptions{
		Query:  query,
		Status: types.Status(status),
		Limit:  limit,
	})
	if err != nil {
		return err
	}

	jsonOutput, _ := cmd.Flags().GetBool("json")
	return formatRunList(cmd.OutOrStdout(), runs, jsonOutput)
}

func formatRunList(w io.Writer, runs []store.RunSummary, jsonOutput bool) error {
	if jsonOutput {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		if runs == nil {
			runs = []store.RunSummary{}
		}
		return enc.Encode(runs)
	}

	if len(runs) == 0 {
		fmt.Fprintln(w, "No runs found.")
		return nil
	}

	fmt.Fprintf(w, "%-36s  %-10s  %-16s  %-7s  %-7s  %s\n",
		"ID", "Status", "Started", "Sources", "Claims", "Query")
	fmt.Fprintln(w, strings.Repeat("-", 120))
	for _, r := range runs {
		query := r.Query
		if len([]rune(query)) > 40 {
			query = string([]rune(query)[:37]) + "..."
		}
		claims := "-"
		if r.Claims > 0 {
			claims = fmt.Sprintf("%d/%d", r.Confirmed, r.Claims)
		}
		fmt.Fprintf(w, "%-36s  %-10s  %-16s  %-7d  %-7s  %s\n",
			r.ID, r.Status, r.StartedAt.Local().Format("2006-01-02 15:04"), r.Sources, claims, query)
	}
	fmt.Fprintf(w, "\n%d runs\n", len(runs))
	return nil
}

// --- show subcommand ---

var historyShowCmd = &cobra.Command{
	Use:   "show <run-id>",
	Short: "Print the report of a saved run",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		state, err := loadRun(cmd, args[0])
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "\nResearching: %s\n\n", state.Query)
		fmt.Fprintln(out, rule)
		render, _ := cmd.Flags().GetBool("render")
		if err := writeReport(out, state, "", render); err != nil {
			return err
		}
		printSummary(out, state)
		if state.Error != "" {
			fmt.Fprintf(out, "Error: %s\n", state.Error)
		}
		return nil
	},
}

// --- export subcommand ---

var historyExportCmd = &cobra.Command{
	Use:   "export <run-id>",
	Short: "Export the full state of a saved run as JSON or YAML",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		state, err := loadRun(cmd, args[0])
		if err != nil {
			return err
		}

		format, _ := cmd.Flags().GetString("format")
		outputPath, _ := cmd.Flags().GetString("output")
		if outputPath != "" && format == "yaml" {
			return store.WriteStateFile(outputPath, state)
		}

		w := cmd.OutOrStdout()
		if outputPath != "" {
			f, err := os.Create(outputPath)
			if err != nil {
				return fmt.Errorf("creating export file: %w", err)
			}
			defer f.Close()
			w = f
		}

		switch format {
		case "json":
			return store.ExportJSON(w, state)
		case "yaml":
			enc := yaml.NewEncoder(w)
			enc.SetIndent(2)
			if err := enc.Encode(state); err != nil {
				return fmt.Errorf("encoding run %s: %w", state.ID, err)
			}
			return enc.Close()
		default:
			return fmt.Errorf("invalid --format %q: must be json or yaml", format)
		}
	},
}

// --- import subcommand ---

var historyImportCmd = &cobra.Command{
	Use:   "import <state-file>",
	Short: "Save a run state file into the history",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		state, err := store.ReadStateFile(args[0])
		if err != nil {
			return err
		}
		s, err := store.Open(viper.GetString("db"))
		if err != nil {
			return err
		}
		defer s.Close()
		if err := s.Save(cmd.Context(), state); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "imported %s\n", state.ID)
		return nil
	},
}

func loadRun(cmd *cobra.Command, id string) (*types.ResearchState, error) {
	s, err := store.Open(viper.GetString("db"))
	if err != nil {
		return nil, err
	}
	defer s.Close()
	return s.Get(cmd.Context(), id)
}

func init() {
	historyListCmd.Flags().String("query", "", "only runs whose query or report contains this text")
	historyListCmd.Flags().String("status", "", "only runs in this status (complete, error)")
	historyListCmd.Flags().Int("limit", store.DefaultListLimit, "maximum runs to list")
	historyListCmd.Flags().Bool("json", false, "output as JSON")

	historyShowCmd.Flags().Bool("render", false, "render the report for the terminal")

	historyExportCmd.Flags().String("format", "json", "export format (json, yaml)")
	historyExportCmd.Flags().StringP("output", "o", "", "write to this file instead of stdout")

	historyCmd.AddCommand(historyListCmd, historyShowCmd, historyExportCmd, historyImportCmd)
	rootCmd.AddCommand(historyCmd)
}

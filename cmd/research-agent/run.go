// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"

	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/huh"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/pdiddy/research-agent/internal/metrics"
	"github.com/pdiddy/research-agent/internal/pipeline"
	"github.com/pdiddy/research-agent/internal/store"
	"github.com/pdiddy/research-agent/pkg/types"
)

const (
	rule        = "============================================================"
	noReport    = "No report generated"
	renderWidth = 100
)

var runCmd = &cobra.Command{
	Use:   "run [query]",
	Short: "Research a question and print a cited report",
	Long: `Run researches a question end to end: it plans sub-questions, searches
for each, selects sources across distinct domains, extracts notes and writes
a markdown report citing the sources as [n].

With --cove the report's claims are checked against independent searches and
the report is revised with a verification checklist.

Use --search-provider stub and --model stub to run offline.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runResearch,
}

func init() {
	defaults := types.DefaultResearchConfig()
	f := runCmd.Flags()

	f.BoolP("interactive", "i", false, "prompt for the research query")
	f.String("model", defaults.DraftModel, "model for planning, extraction and drafting (\"stub\" runs offline)")
	f.String("verify-model", defaults.VerifyModel, "model for claim compilation")
	f.String("search-provider", string(defaults.SearchProvider), "search provider (live, stub)")
	f.Int("max-searches", defaults.MaxSearches, "maximum sub-questions to search")
	f.Int("max-sources", defaults.MaxSources, "maximum sources to read")
	f.Int("min-unique-domains", defaults.MinUniqueDomains, "distinct domains to cover before repeating one")
	f.Bool("cove", false, "verify claims and revise the report (runs extra searches)")
	f.String("report-style", string(defaults.ReportStyle), "report style (default, executive, academic, bullet)")
	f.Duration("stage-timeout", defaults.StageTimeout, "time limit for each pipeline stage (0 disables)")
	f.Int("concurrency", defaults.Concurrency, "parallel searches and extractions (1 is sequential)")
	f.Float64("search-rps", defaults.SearchRPS, "live search requests per second (0 is unlimited)")
	f.Int("max-retries", defaults.MaxRetries, "model call retries on transient failures")
	f.Duration("timeout", defaults.Timeout, "HTTP timeout for model calls")

	f.StringP("output", "o", "", "write the report to this file instead of stdout")
	f.Bool("render", false, "render the report for the terminal")
	f.String("state-file", "", "write the full run state to this YAML file")
	f.Bool("save", false, "save the run to the history database")
	f.String("metrics-file", "", "write run metrics to this Prometheus textfile")

	for key, flag := range map[string]string{
		"draft_model":         "model",
		"verify_model":        "verify-model",
		"search_provider":     "search-provider",
		"max_searches":        "max-searches",
		"max_sources":         "max-sources",
		"min_unique_domains":  "min-unique-domains",
		"enable_verification": "cove",
		"report_style":        "report-style",
		"stage_timeout":       "stage-timeout",
		"concurrency":         "concurrency",
		"search_rps":          "search-rps",
		"max_retries":         "max-retries",
		"timeout":             "timeout",
	} {
		viper.BindPFlag(key, f.Lookup(flag))
	}

	rootCmd.AddCommand(runCmd)
}

// researchConfig assembles the pipeline configuration from flags, config
// file and environment.
func researchConfig() types.ResearchConfig {
	cfg := types.DefaultResearchConfig()
	cfg.DraftModel = viper.GetString("draft_model")
	cfg.VerifyModel = viper.GetString("verify_model")
	cfg.SearchProvider = searchProvider(viper.GetString("search_provider"))
	cfg.MaxSearches = viper.GetInt("max_searches")
	cfg.MaxSources = viper.GetInt("max_sources")
	cfg.MinUniqueDomains = viper.GetInt("min_unique_domains")
	cfg.EnableVerification = viper.GetBool("enable_verification")
	cfg.ReportStyle = types.ReportStyle(viper.GetString("report_style"))
	cfg.StageTimeout = viper.GetDuration("stage_timeout")
	cfg.Concurrency = viper.GetInt("concurrency")
	cfg.SearchRPS = viper.GetFloat64("search_rps")
	cfg.MaxRetries = viper.GetInt("max_retries")
	cfg.Timeout = viper.GetDuration("timeout")
	if ua := viper.GetString("user_agent"); ua != "" {
		cfg.UserAgent = ua
	}
	return cfg
}

// searchProvider maps a provider flag value to its name. "tavily" is
// accepted for the live provider.
func searchProvider(name string) types.SearchProviderName {
	name = strings.ToLower(strings.TrimSpace(name))
	if name == "tavily" {
		return types.ProviderLive
	}
	return types.SearchProviderName(name)
}

func runResearch(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
	defer stop()

	interactive, _ := cmd.Flags().GetBool("interactive")
	var query string
	switch {
	case interactive:
		fmt.Fprintln(out, "Research Agent (interactive mode)")
		q, err := promptQuery(ctx)
		if errors.Is(err, huh.ErrUserAborted) {
			fmt.Fprintln(out, "\nExiting.")
			return nil
		}
		if err != nil {
			return err
		}
		query = q
	case len(args) == 1:
		query = args[0]
	default:
		_ = cmd.Help()
		return errors.New("a research query or --interactive is required")
	}

	cfg := researchConfig()
	if err := cfg.Validate(); err != nil {
		return err
	}
	creds, err := credentials()
	if err != nil {
		return err
	}

	fmt.Fprintf(out, "\nResearching: %s\n\n", query)
	fmt.Fprintln(out, rule)

	rec := metrics.New()
	log := zap.L()
	state, runErr := pipeline.RunResearch(ctx, query, cfg, creds,
		pipeline.WithLogger(log),
		pipeline.WithMetrics(rec),
		pipeline.WithProgress(func(stage string, status types.Status) {
			log.Info("stage starting", zap.String("stage", stage), zap.String("status", string(status)))
		}),
	)

	// Partial state from a failed run is still worth keeping.
	if state != nil {
		if err := persist(ctx, cmd, state, rec); err != nil {
			log.Warn("saving run artifacts", zap.Error(err))
		}
	}
	if runErr != nil {
		return runErr
	}

	outputPath, _ := cmd.Flags().GetString("output")
	render, _ := cmd.Flags().GetBool("render")
	if err := writeReport(out, state, outputPath, render); err != nil {
		return err
	}
	printSummary(out, state)
	return nil
}

// persist writes the optional run artifacts named by flags.
func persist(ctx context.Context, cmd *cobra.Command, state *types.ResearchState, rec *metrics.Recorder) error {
	var errs []error
	if path, _ := cmd.Flags().GetString("state-file"); path != "" {
		errs = append(errs, store.WriteStateFile(path, state))
	}
	if save, _ := cmd.Flags().GetBool("save"); save {
		errs = append(errs, saveRun(ctx, state))
	}
	if path, _ := cmd.Flags().GetString("metrics-file"); path != "" {
		errs = append(errs, rec.WriteTextfile(path))
	}
	return errors.Join(errs...)
}

func saveRun(ctx context.Context, state *types.ResearchState) error {
	s, err := store.Open(viper.GetString("db"))
	if err != nil {
		return err
	}
	defer s.Close()
	return s.Save(ctx, state)
}

func promptQuery(ctx context.Context) (string, error) {
	var query string
	input := huh.NewInput().
		Title("Research query").
		Placeholder("What would you like to research?").
		Value(&query).
		Validate(func(s string) error {
			if strings.TrimSpace(s) == "" {
				return errors.New("enter a question")
			}
			return nil
		})
	if err := huh.NewForm(huh.NewGroup(input)).RunWithContext(ctx); err != nil {
		return "", err
	}
	return strings.TrimSpace(query), nil
}

// reportText returns the revised report, else the draft, else a
// placeholder.
func reportText(state *types.ResearchState) string {
	if r := state.FinalReport(); r != "" {
		return r
	}
	return noReport
}

// writeReport prints the report or saves it to path.
func writeReport(w io.Writer, state *types.ResearchState, path string, render bool) error {
	report := reportText(state)
	if path != "" {
		if err := os.WriteFile(path, []byte(report), 0o644); err != nil {
			return fmt.Errorf("writing report: %w", err)
		}
		fmt.Fprintf(w, "\nReport saved to: %s\n", path)
		return nil
	}

	if render {
		rendered, err := renderMarkdown(report)
		if err != nil {
			zap.L().Warn("rendering report, printing raw markdown", zap.Error(err))
		} else {
			report = rendered
		}
	}
	fmt.Fprintln(w, report)
	return nil
}

func renderMarkdown(md string) (string, error) {
	r, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(renderWidth),
	)
	if err != nil {
		return "", err
	}
	return r.Render(md)
}

// printSummary prints the run statistics that follow the report.
func printSummary(w io.Writer, state *types.ResearchState) {
	fmt.Fprintln(w, "\n"+rule)
	fmt.Fprintf(w, "Sources used: %d\n", len(state.Sources))
	fmt.Fprintf(w, "Searches run: %d\n", len(state.SearchResults))
	if n := len(state.VerificationResults); n > 0 {
		fmt.Fprintf(w, "Claims verified: %d/%d\n", state.ConfirmedClaims(), n)
	}
}

// Package cmd provides CLI commands for the autostat application.
// This file implements the score command for ranking candidate kernels.
package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/adalundhe/autostat/core/config"
	"github.com/adalundhe/autostat/core/dataset"
	"github.com/adalundhe/autostat/core/kernelspec"
	"github.com/adalundhe/autostat/core/search"
)

// ANSI color codes for terminal output.
const (
	colorReset  = "\033[0m"
	colorRed    = "\033[31m"
	colorGreen  = "\033[32m"
	colorYellow = "\033[33m"
	colorCyan   = "\033[36m"
	colorGray   = "\033[90m"
	colorBold   = "\033[1m"
)

// =============================================================================
// Score Command Flags
// =============================================================================

var (
	scoreTrainPath  string
	scoreTestPath   string
	scoreSpecsPath  string
	scoreConfigPath string
	scoreRestarts   int
	scoreWorkers    int
	scoreJSON       bool
)

// =============================================================================
// Score Command
// =============================================================================

var scoreCmd = &cobra.Command{
	Use:   "score",
	Short: "Fit and rank candidate kernels",
	Long: `Fit a Gaussian process for every candidate kernel and rank the results by BIC.

Data files are numeric CSV with the target in the last column. Candidate
kernels are read from a YAML file with a top-level "candidates" list.

When test data is given, two held-out scores are reported: test_ll uses the
full posterior covariance between test points, log_prob treats them as
independent.

Examples:
  autostat score --train train.csv --specs specs.yaml
  autostat score --train train.csv --test test.csv --specs specs.yaml --restarts 5
  autostat score --train train.csv --specs specs.yaml --json | jq '.results[0]'`,
	Args: cobra.NoArgs,
	RunE: runScore,
}

func init() {
	rootCmd.AddCommand(scoreCmd)

	scoreCmd.Flags().StringVar(&scoreTrainPath, "train", "", "Training data CSV")
	scoreCmd.Flags().StringVar(&scoreTestPath, "test", "", "Held-out data CSV")
	scoreCmd.Flags().StringVarP(&scoreSpecsPath, "specs", "s", "", "Candidate kernel YAML file")
	scoreCmd.Flags().StringVarP(&scoreConfigPath, "config", "c", "", "Settings YAML file (default $XDG_CONFIG_HOME/autostat/settings.yaml)")
	scoreCmd.Flags().IntVarP(&scoreRestarts, "restarts", "r", 0, "Optimizer restarts (overrides settings)")
	scoreCmd.Flags().IntVarP(&scoreWorkers, "workers", "w", 0, "Concurrent fits (overrides settings)")
	scoreCmd.Flags().BoolVar(&scoreJSON, "json", false, "Output results as JSON")

	_ = scoreCmd.MarkFlagRequired("train")
	_ = scoreCmd.MarkFlagRequired("specs")
}

// =============================================================================
// Score Execution
// =============================================================================

func runScore(cmd *cobra.Command, args []string) error {
	settings, err := loadScoreSettings(cmd)
	if err != nil {
		return err
	}

	data, err := dataset.LoadCSV(scoreTrainPath, scoreTestPath)
	if err != nil {
		return fmt.Errorf("load data: %w", err)
	}

	specs, err := loadCandidates(scoreSpecsPath)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	evaluator, err := search.NewEvaluator(data, settings,
		search.WithRegisterer(prometheus.NewRegistry()))
	if err != nil {
		return err
	}
	defer evaluator.Close()

	results, err := evaluator.Evaluate(ctx, specs)
	if err != nil {
		return fmt.Errorf("score failed: %w", err)
	}

	return outputScoreResults(cmd.OutOrStdout(), search.Rank(results), evaluator.CacheStats())
}

// loadScoreSettings loads the settings file and applies flags that were set
// explicitly on the command line.
func loadScoreSettings(cmd *cobra.Command) (*config.KernelSearchSettings, error) {
	settings, err := config.Load(config.ResolvePath(scoreConfigPath))
	if err != nil {
		return nil, err
	}

	flags := cmd.Flags()
	if flags.Changed("restarts") {
		settings.RestartCount = scoreRestarts
	}
	if flags.Changed("workers") {
		settings.Workers = scoreWorkers
	}
	if err := settings.Validate(); err != nil {
		return nil, err
	}
	return settings, nil
}

func loadCandidates(path string) ([]kernelspec.TopLevelKernelSpec, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read specs: %w", err)
	}
	specs, err := kernelspec.DecodeCandidates(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return specs, nil
}

// =============================================================================
// Output Formatting
// =============================================================================

// scoreOutput is the JSON output structure.
type scoreOutput struct {
	Results []search.Result     `json:"results"`
	Cache   search.StatsSnapshot `json:"cache"`
}

func outputScoreResults(w io.Writer, ranked []search.Result, stats search.StatsSnapshot) error {
	if scoreJSON {
		encoder := json.NewEncoder(w)
		encoder.SetIndent("", "  ")
		return encoder.Encode(scoreOutput{Results: ranked, Cache: stats})
	}
	outputScoreTable(w, ranked, newPalette(isTerminal(w)))
	return nil
}

// palette holds ANSI codes, or empty strings when color is disabled.
type palette struct {
	reset, bold, red, green, yellow, cyan, gray string
}

func newPalette(color bool) palette {
	if !color {
		return palette{}
	}
	return palette{
		reset:  colorReset,
		bold:   colorBold,
		red:    colorRed,
		green:  colorGreen,
		yellow: colorYellow,
		cyan:   colorCyan,
		gray:   colorGray,
	}
}

func outputScoreTable(w io.Writer, ranked []search.Result, p palette) {
	fmt.Fprintf(w, "%s%sCandidate Kernels%s\n", p.bold, p.cyan, p.reset)
	fmt.Fprintf(w, "%s%-4s %12s %12s %12s %12s  %s%s\n", p.gray,
		"#", "bic", "ll", "test_ll", "log_prob", "kernel", p.reset)

	for i, r := range ranked {
		if r.Skipped {
			fmt.Fprintf(w, "%s%-4d %12s %12s %12s %12s  %s%s\n", p.red,
				i+1, "skipped", "-", "-", "-", r.Spec, p.reset)
			fmt.Fprintf(w, "     %s%s%s\n", p.gray, r.Error, p.reset)
			continue
		}

		rank := p.yellow
		if i == 0 {
			rank = p.green
		}
		fmt.Fprintf(w, "%s%-4d%s %12.4f %12.4f %12s %12s  %s\n",
			rank, i+1, p.reset,
			r.BIC, r.LogLikelihood,
			formatOptional(r.TestLogLikelihood), formatOptional(r.LogProbScore),
			r.Spec)
		fmt.Fprintf(w, "     %s-> %s%s\n", p.gray, r.OptimizedSpec, p.reset)
	}
}

func formatOptional(v *float64) string {
	if v == nil {
		return "-"
	}
	return fmt.Sprintf("%.4f", *v)
}

// isTerminal returns true if the given writer is a terminal.
func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

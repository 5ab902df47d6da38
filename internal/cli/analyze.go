package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/aqasim81/animals/internal/analyzer"
)

// Output formats accepted by analyze --format.
const (
	analyzeFormatText          = "text"
	analyzeFormatJSON          = "json"
	analyzeFormatGitHubActions = "github-actions"
)

var analyzeCmd = &cobra.Command{ //nolint:gochecknoglobals // standard Cobra pattern
	Use:   "analyze [migration-dir]",
	Short: "Analyze migrations for dangerous operations",
	Long: `Analyze SQL migration files for DDL that could lock the animals table,
lose data, or leave a polymorphic reference unindexed. Without an argument
the configured migrations directory is used, or the built-in migrations.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runAnalyze,
}

func init() { //nolint:gochecknoinits // standard Cobra pattern for flag registration
	analyzeCmd.Flags().String("format", analyzeFormatText, "output format (text, json, github-actions)")
	analyzeCmd.Flags().Bool("fail-on-high", false, "exit with non-zero code if high/critical findings exist")
	rootCmd.AddCommand(analyzeCmd)
}

// errHighSeverityFindings is returned when --fail-on-high is set and high/critical findings exist.
var errHighSeverityFindings = errors.New("high or critical severity findings detected")

var errUnknownFormat = errors.New("unknown output format")

func runAnalyze(cmd *cobra.Command, args []string) error {
	dir := AppConfig.MigrationsDir
	if len(args) > 0 {
		dir = args[0]
	}

	format, _ := cmd.Flags().GetString("format")
	if format == "" {
		format = analyzeFormatText
	}

	sorted, err := loadAndSortMigrations(dir, cmd.OutOrStdout())
	if err != nil || sorted == nil {
		return err
	}

	results, err := newAnalyzer(AppConfig).AnalyzeAll(sorted)
	if err != nil {
		return fmt.Errorf("analyzing migrations: %w", err)
	}

	var hasHighOrCritical bool

	switch format {
	case analyzeFormatText:
		hasHighOrCritical = printAnalysisResults(cmd, results)
	case analyzeFormatJSON:
		hasHighOrCritical, err = printAnalysisJSON(cmd.OutOrStdout(), results)
	case analyzeFormatGitHubActions:
		hasHighOrCritical = printGitHubAnnotations(cmd.OutOrStdout(), results)
	default:
		return fmt.Errorf("%w: %q", errUnknownFormat, format)
	}

	if err != nil {
		return err
	}

	failOnHigh, _ := cmd.Flags().GetBool("fail-on-high")
	if failOnHigh && hasHighOrCritical {
		return errHighSeverityFindings
	}

	return nil
}

func printAnalysisResults(cmd *cobra.Command, results []analyzer.AnalysisResult) bool {
	out := cmd.OutOrStdout()
	totalFindings := 0
	hasHighOrCritical := false

	for _, r := range results {
		if len(r.Findings) == 0 {
			continue
		}

		fmt.Fprintf(out, "\n=== %s ===\n", r.Migration.ID())

		for _, f := range r.Findings {
			fmt.Fprintf(out, "  [%s] %s\n", f.Severity, f.Message)
			fmt.Fprintf(out, "    Table: %s\n", f.Table)
			fmt.Fprintf(out, "    Rule:  %s\n", f.Rule)

			if f.Statement != "" {
				fmt.Fprintf(out, "    SQL:   %s\n", f.Statement)
			}

			fmt.Fprintf(out, "    Fix:   %s\n\n", f.Suggestion)
		}

		totalFindings += len(r.Findings)

		if r.HasHighOrCritical() {
			hasHighOrCritical = true
		}
	}

	if totalFindings == 0 {
		fmt.Fprintln(out, "No dangerous operations detected.")
	} else {
		fmt.Fprintf(out, "Found %d finding(s) across %d migration(s).\n", totalFindings, countMigrationsWithFindings(results))
	}

	return hasHighOrCritical
}

// analysisReport is the JSON shape of one migration's analysis.
type analysisReport struct {
	Version     string             `json:"version"`
	Name        string             `json:"name"`
	MaxSeverity analyzer.Severity  `json:"max_severity"`
	Findings    []analyzer.Finding `json:"findings"`
}

func printAnalysisJSON(out io.Writer, results []analyzer.AnalysisResult) (bool, error) {
	reports := make([]analysisReport, 0, len(results))
	hasHighOrCritical := false

	for _, r := range results {
		findings := r.Findings
		if findings == nil {
			findings = []analyzer.Finding{}
		}

		reports = append(reports, analysisReport{
			Version:     r.Migration.Version,
			Name:        r.Migration.Name,
			MaxSeverity: r.MaxSeverity,
			Findings:    findings,
		})

		if r.HasHighOrCritical() {
			hasHighOrCritical = true
		}
	}

	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")

	if err := enc.Encode(reports); err != nil {
		return false, fmt.Errorf("encoding analysis: %w", err)
	}

	return hasHighOrCritical, nil
}

// printGitHubAnnotations emits workflow commands so findings show up on
// the pull request diff. High and Critical become errors.
func printGitHubAnnotations(out io.Writer, results []analyzer.AnalysisResult) bool {
	hasHighOrCritical := false

	for _, r := range results {
		for _, f := range r.Findings {
			level := "warning"
			if f.Severity >= analyzer.High {
				level = "error"
				hasHighOrCritical = true
			}

			fmt.Fprintf(out, "::%s file=%s,title=%s [%s]::%s. %s\n",
				level, r.Migration.FilePath, f.Rule, f.Severity, f.Message, f.Suggestion)
		}
	}

	return hasHighOrCritical
}

func countMigrationsWithFindings(results []analyzer.AnalysisResult) int {
	count := 0

	for _, r := range results {
		if len(r.Findings) > 0 {
			count++
		}
	}

	return count
}

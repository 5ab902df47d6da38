package cli

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/aqasim81/animals/internal/analyzer"
	"github.com/aqasim81/animals/internal/config"
	"github.com/aqasim81/animals/internal/migration"
	"github.com/aqasim81/animals/internal/tracker"
)

var planCmd = &cobra.Command{ //nolint:gochecknoglobals // standard Cobra pattern
	Use:   "plan",
	Short: "Show execution plan for pending migrations",
	Long: `Display pending migrations in the order apply would run them, each
with its highest finding severity and whether it can be rolled back.
Without a database URL every migration is treated as pending.`,
	RunE: runPlan,
}

func init() { //nolint:gochecknoinits // standard Cobra pattern for flag registration
	rootCmd.AddCommand(planCmd)
}

func runPlan(cmd *cobra.Command, _ []string) error {
	cfg := AppConfig
	out := cmd.OutOrStdout()

	sorted, err := loadAndSortMigrations(cfg.MigrationsDir, out)
	if err != nil || sorted == nil {
		return err
	}

	applied, err := appliedVersions(commandContext(cmd), cfg, out)
	if err != nil {
		return err
	}

	pending := migration.Pending(sorted, applied)

	results, err := newAnalyzer(cfg).AnalyzeAll(pending)
	if err != nil {
		return fmt.Errorf("analyzing migrations: %w", err)
	}

	printPlan(out, results)

	return nil
}

// appliedVersions returns nil (nothing applied) when no database is configured.
func appliedVersions(ctx context.Context, cfg *config.Config, out io.Writer) (map[string]bool, error) {
	if cfg.DatabaseURL == "" {
		fmt.Fprintln(out, "No database configured; treating every migration as pending.")
		return nil, nil //nolint:nilnil // nil set means nothing applied
	}

	pool, err := connectDB(ctx, cfg, out)
	if err != nil {
		return nil, err
	}
	defer pool.Close()

	applied, err := readApplied(ctx, tracker.New(pool))
	if err != nil {
		return nil, err
	}

	set := make(map[string]bool, len(applied))
	for _, a := range applied {
		set[a.Version] = true
	}

	return set, nil
}

func printPlan(out io.Writer, results []analyzer.AnalysisResult) {
	if len(results) == 0 {
		fmt.Fprintln(out, "Nothing to apply; the schema is up to date.")
		return
	}

	fmt.Fprintf(out, "Execution plan (%d migration(s)):\n", len(results))

	blocked := 0

	for i, r := range results {
		reversible := "reversible"
		if !r.Migration.Reversible() {
			reversible = "irreversible"
		}

		fmt.Fprintf(out, "  %d. %s  [%s]  %s, %d finding(s)\n",
			i+1, r.Migration.ID(), r.MaxSeverity, reversible, len(r.Findings))

		for _, f := range r.AtLeast(analyzer.Medium) {
			fmt.Fprintf(out, "       - [%s] %s\n", f.Severity, f.Message)
		}

		if r.HasHighOrCritical() {
			blocked++
		}
	}

	if blocked > 0 {
		fmt.Fprintf(out, "\n%d migration(s) would block apply without --force.\n", blocked)
	}
}

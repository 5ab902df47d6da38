package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/spf13/cobra"

	"github.com/aqasim81/animals/internal/analyzer"
	"github.com/aqasim81/animals/internal/analyzer/rules"
	"github.com/aqasim81/animals/internal/config"
	"github.com/aqasim81/animals/internal/executor"
	"github.com/aqasim81/animals/internal/migration"
	"github.com/aqasim81/animals/internal/tracker"
)

// errDangerousMigrations is returned when apply is blocked by high/critical findings.
var errDangerousMigrations = errors.New("apply aborted: dangerous migrations detected (use --force to override)")

var applyCmd = &cobra.Command{ //nolint:gochecknoglobals // standard Cobra pattern
	Use:   "apply",
	Short: "Apply pending migrations",
	Long: `Apply pending migrations in version order with configurable lock and
statement timeouts. Migrations with high or critical findings are refused
unless --force is given.`,
	RunE: runApply,
}

func init() { //nolint:gochecknoinits // standard Cobra pattern for flag registration
	applyCmd.Flags().Bool("dry-run", false, "show what would be applied without executing")
	applyCmd.Flags().Bool("force", false, "apply even when the analyzer reports high or critical findings")
	applyCmd.Flags().Duration("lock-timeout", 0, "override lock timeout (e.g., 10s, 1m)")
	applyCmd.Flags().Duration("statement-timeout", 0, "override statement timeout (e.g., 30s, 5m)")
	rootCmd.AddCommand(applyCmd)
}

func runApply(cmd *cobra.Command, _ []string) error {
	cfg := AppConfig

	if err := requireDatabaseURL(cfg); err != nil {
		return err
	}

	dryRun, _ := cmd.Flags().GetBool("dry-run")
	force, _ := cmd.Flags().GetBool("force")

	lockTimeout := cfg.LockTimeout
	if cmd.Flags().Changed("lock-timeout") {
		lockTimeout, _ = cmd.Flags().GetDuration("lock-timeout")
	}

	stmtTimeout := cfg.StatementTimeout
	if cmd.Flags().Changed("statement-timeout") {
		stmtTimeout, _ = cmd.Flags().GetDuration("statement-timeout")
	}

	sorted, err := loadAndSortMigrations(cfg.MigrationsDir, cmd.OutOrStdout())
	if err != nil || sorted == nil {
		return err
	}

	if !force && !dryRun {
		if blocked, analyzeErr := checkDangerousMigrations(cmd, sorted, cfg); analyzeErr != nil {
			return analyzeErr
		} else if blocked {
			return errDangerousMigrations
		}
	}

	ctx := commandContext(cmd)

	pool, err := connectDB(ctx, cfg, cmd.OutOrStdout())
	if err != nil {
		return err
	}
	defer pool.Close()

	return executeMigrations(ctx, cmd.OutOrStdout(), pool, sorted, applyOpts{
		lockTimeout: lockTimeout,
		stmtTimeout: stmtTimeout,
		dryRun:      dryRun,
	})
}

type applyOpts struct {
	lockTimeout time.Duration
	stmtTimeout time.Duration
	dryRun      bool
}

// applyProgress counts executor events and echoes them to out. skipped
// counts migrations already applied; pending counts what a dry run would
// have executed.
type applyProgress struct {
	out     io.Writer
	verb    string
	done    int
	skipped int
	pending int
}

func (p *applyProgress) handle(event executor.ProgressEvent) {
	switch event.Status {
	case executor.StatusStarting:
		fmt.Fprintf(p.out, "  %s %s ... ", p.verb, event.Migration.ID())
	case executor.StatusCompleted, executor.StatusRolledBack:
		fmt.Fprintf(p.out, "done (%s)\n", event.Duration.Truncate(time.Millisecond))
		p.done++
	case executor.StatusSkipped:
		p.skipped++
	case executor.StatusPending:
		fmt.Fprintf(p.out, "  %s %s ... dry run\n", p.verb, event.Migration.ID())
		p.pending++
	case executor.StatusFailed:
		fmt.Fprintf(p.out, "FAILED\n")
		fmt.Fprintf(p.out, "    Error: %v\n", event.Error)
	}
}

func executeMigrations(
	ctx context.Context,
	out io.Writer,
	pool *pgxpool.Pool,
	sorted []migration.Migration,
	opts applyOpts,
) error {
	progress := &applyProgress{out: out, verb: "Applying"}

	exec := executor.New(pool, tracker.New(pool),
		executor.WithLockTimeout(opts.lockTimeout),
		executor.WithStatementTimeout(opts.stmtTimeout),
		executor.WithDryRun(opts.dryRun),
		executor.WithLogger(logger),
		executor.WithProgressCallback(progress.handle),
	)

	if opts.dryRun {
		fmt.Fprintln(out, "\n--- DRY RUN (no changes will be made) ---")
	}

	if err := exec.Apply(ctx, sorted); err != nil {
		return err
	}

	if opts.dryRun {
		fmt.Fprintf(out, "\nDry run complete: %d migration(s) would be applied, %d already applied.\n",
			progress.pending, progress.skipped)
	} else {
		fmt.Fprintf(out, "\nApply complete: %d applied, %d skipped.\n", progress.done, progress.skipped)
	}

	return nil
}

// checkDangerousMigrations runs the analyzer and returns true if
// HIGH/CRITICAL findings were found (blocking apply).
func checkDangerousMigrations(cmd *cobra.Command, sorted []migration.Migration, cfg *config.Config) (bool, error) {
	results, err := newAnalyzer(cfg).AnalyzeAll(sorted)
	if err != nil {
		return false, fmt.Errorf("analyzing migrations: %w", err)
	}

	return printAnalysisResults(cmd, results), nil
}

func newAnalyzer(cfg *config.Config) *analyzer.Analyzer {
	return analyzer.New(
		analyzer.WithRegistry(rules.NewDefaultRegistry()),
		analyzer.WithPGVersion(cfg.TargetPGVersion),
	)
}

package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/aqasim81/animals/internal/executor"
	"github.com/aqasim81/animals/internal/tracker"
)

var errStepsAndTarget = errors.New("--steps and --target cannot be used together")

var rollbackCmd = &cobra.Command{ //nolint:gochecknoglobals // standard Cobra pattern
	Use:   "rollback",
	Short: "Roll back applied migrations",
	Long: `Roll back the most recent applied migrations using their down SQL,
newest first. --target rolls back everything applied after that version;
--target 0 rolls back every migration and drops the animals table.`,
	RunE: runRollback,
}

func init() { //nolint:gochecknoinits // standard Cobra pattern for flag registration
	rollbackCmd.Flags().Int("steps", 1, "number of migrations to roll back")
	rollbackCmd.Flags().String("target", "", "roll back to this version (0 for all)")
	rollbackCmd.Flags().Bool("dry-run", false, "show what would be rolled back without executing")
	rootCmd.AddCommand(rollbackCmd)
}

func runRollback(cmd *cobra.Command, _ []string) error {
	cfg := AppConfig

	steps, _ := cmd.Flags().GetInt("steps")
	target, _ := cmd.Flags().GetString("target")
	dryRun, _ := cmd.Flags().GetBool("dry-run")

	if cmd.Flags().Changed("steps") && cmd.Flags().Changed("target") {
		return errStepsAndTarget
	}

	if target == "" && steps < 1 {
		return fmt.Errorf("%w: got %d", executor.ErrInvalidSteps, steps)
	}

	if err := requireDatabaseURL(cfg); err != nil {
		return err
	}

	sorted, err := loadAndSortMigrations(cfg.MigrationsDir, cmd.OutOrStdout())
	if err != nil || sorted == nil {
		return err
	}

	ctx := commandContext(cmd)
	out := cmd.OutOrStdout()

	pool, err := connectDB(ctx, cfg, out)
	if err != nil {
		return err
	}
	defer pool.Close()

	progress := &applyProgress{out: out, verb: "Rolling back"}

	exec := executor.New(pool, tracker.New(pool),
		executor.WithLockTimeout(cfg.LockTimeout),
		executor.WithStatementTimeout(cfg.StatementTimeout),
		executor.WithDryRun(dryRun),
		executor.WithLogger(logger),
		executor.WithProgressCallback(progress.handle),
	)

	if target != "" {
		err = exec.RollbackToVersion(ctx, sorted, target)
	} else {
		err = exec.Rollback(ctx, sorted, steps)
	}

	if err != nil {
		return err
	}

	if dryRun {
		fmt.Fprintf(out, "\nDry run complete: %d migration(s) would be rolled back.\n", progress.pending)
	} else {
		fmt.Fprintf(out, "\nRollback complete: %d rolled back.\n", progress.done)
	}

	return nil
}

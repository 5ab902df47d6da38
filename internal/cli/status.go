package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/aqasim81/animals/internal/config"
	"github.com/aqasim81/animals/internal/migration"
	"github.com/aqasim81/animals/internal/tracker"
)

var statusCmd = &cobra.Command{ //nolint:gochecknoglobals // standard Cobra pattern
	Use:   "status",
	Short: "Show migration status",
	Long: `Display applied and pending migrations. Applied versions that no
longer have a migration file are listed as unknown.`,
	RunE: runStatus,
}

func init() { //nolint:gochecknoinits // standard Cobra pattern for flag registration
	statusCmd.Flags().String("format", "", "output format (text, json); defaults to the configured format")
	rootCmd.AddCommand(statusCmd)
}

type pendingMigration struct {
	Version    string `json:"version"`
	Name       string `json:"name"`
	Reversible bool   `json:"reversible"`
}

type statusReport struct {
	Applied []tracker.AppliedMigration `json:"applied"`
	Pending []pendingMigration         `json:"pending"`
	Unknown []string                   `json:"unknown,omitempty"`
}

func runStatus(cmd *cobra.Command, _ []string) error {
	cfg := AppConfig

	format, _ := cmd.Flags().GetString("format")
	if format == "" {
		format = cfg.Format
	}

	if format != config.FormatText && format != config.FormatJSON {
		return fmt.Errorf("%w: %q", errUnknownFormat, format)
	}

	if err := requireDatabaseURL(cfg); err != nil {
		return err
	}

	// JSON output must stay parseable, so progress chatter is discarded.
	chatter := cmd.OutOrStdout()
	if format == config.FormatJSON {
		chatter = io.Discard
	}

	sorted, err := loadAndSortMigrations(cfg.MigrationsDir, chatter)
	if err != nil {
		return err
	}

	ctx := commandContext(cmd)

	pool, err := connectDB(ctx, cfg, chatter)
	if err != nil {
		return err
	}
	defer pool.Close()

	applied, err := readApplied(ctx, tracker.New(pool))
	if err != nil {
		return err
	}

	return printStatus(cmd.OutOrStdout(), buildStatusReport(sorted, applied), format)
}

// appliedReader is the read-only slice of the tracker status and plan use.
type appliedReader interface {
	Exists(ctx context.Context) (bool, error)
	GetApplied(ctx context.Context) ([]tracker.AppliedMigration, error)
}

// readApplied lists applied migrations without creating schema_migrations.
// A database that was never migrated has none.
func readApplied(ctx context.Context, t appliedReader) ([]tracker.AppliedMigration, error) {
	exists, err := t.Exists(ctx)
	if err != nil || !exists {
		return nil, err
	}

	return t.GetApplied(ctx)
}

func buildStatusReport(sorted []migration.Migration, applied []tracker.AppliedMigration) statusReport {
	appliedSet := make(map[string]bool, len(applied))
	for _, a := range applied {
		appliedSet[a.Version] = true
	}

	known := migration.Index(sorted)

	report := statusReport{
		Applied: applied,
		Pending: []pendingMigration{},
	}

	if report.Applied == nil {
		report.Applied = []tracker.AppliedMigration{}
	}

	for _, m := range migration.Pending(sorted, appliedSet) {
		report.Pending = append(report.Pending, pendingMigration{
			Version:    m.Version,
			Name:       m.Name,
			Reversible: m.Reversible(),
		})
	}

	for _, a := range applied {
		if _, ok := known[a.Version]; !ok {
			report.Unknown = append(report.Unknown, a.Version)
		}
	}

	return report
}

func printStatus(out io.Writer, report statusReport, format string) error {
	if format == config.FormatJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")

		if err := enc.Encode(report); err != nil {
			return fmt.Errorf("encoding status: %w", err)
		}

		return nil
	}

	fmt.Fprintf(out, "Applied (%d):\n", len(report.Applied))

	for _, a := range report.Applied {
		fmt.Fprintf(out, "  %s  %s  applied %s (%dms)\n",
			a.Version, a.Filename, a.AppliedAt.UTC().Format(time.RFC3339), a.DurationMs)
	}

	fmt.Fprintf(out, "Pending (%d):\n", len(report.Pending))

	for _, p := range report.Pending {
		fmt.Fprintf(out, "  %s  %s\n", p.Version, p.Name)
	}

	if len(report.Unknown) > 0 {
		fmt.Fprintf(out, "Unknown (%d): applied but missing from the migration set\n", len(report.Unknown))

		for _, v := range report.Unknown {
			fmt.Fprintf(out, "  %s\n", v)
		}
	}

	return nil
}

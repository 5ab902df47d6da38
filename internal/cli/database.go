package cli

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/spf13/cobra"

	"github.com/aqasim81/animals/internal/config"
	"github.com/aqasim81/animals/internal/database"
	"github.com/aqasim81/animals/internal/migration"
)

// errDatabaseURLRequired is returned when no database URL is configured.
var errDatabaseURLRequired = errors.New( //nolint:gochecknoglobals // sentinel error
	"database URL is required (set --database-url, " + config.EnvPrefix + "DATABASE_URL, or database_url in config)",
)

func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}

	return context.Background()
}

func requireDatabaseURL(cfg *config.Config) error {
	if cfg.DatabaseURL == "" {
		return errDatabaseURLRequired
	}

	return nil
}

func connectDB(ctx context.Context, cfg *config.Config, out io.Writer) (*pgxpool.Pool, error) {
	fmt.Fprintf(out, "Connecting to %s\n", config.RedactURL(cfg.DatabaseURL))

	pool, err := database.NewPool(ctx, cfg.DatabaseURL, database.WithLogger(logger))
	if err != nil {
		return nil, fmt.Errorf("connecting to database: %w", err)
	}

	return pool, nil
}

// loadAndSortMigrations reads dir, or the built-in migrations when dir is
// empty. A nil slice with a nil error means there was nothing to load.
func loadAndSortMigrations(dir string, out io.Writer) ([]migration.Migration, error) {
	var (
		migrations []migration.Migration
		err        error
	)

	if dir == "" {
		migrations, err = migration.LoadEmbedded()
	} else {
		migrations, err = migration.LoadFromDir(dir)
	}

	if err != nil {
		return nil, fmt.Errorf("loading migrations: %w", err)
	}

	if len(migrations) == 0 {
		fmt.Fprintln(out, "No migration files found.")
		return nil, nil //nolint:nilnil // nil,nil signals "no migrations, no error"
	}

	logger.Debug().Int("count", len(migrations)).Str("dir", migrationSource(dir)).Msg("loaded migrations")

	return migration.Sort(migrations), nil
}

func migrationSource(dir string) string {
	if dir == "" {
		return "(embedded)"
	}

	return dir
}

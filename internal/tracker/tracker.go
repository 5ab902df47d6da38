package tracker

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// AppliedMigration is one row of schema_migrations.
type AppliedMigration struct {
	Version    string    `json:"version"`
	Filename   string    `json:"filename"`
	Checksum   string    `json:"checksum"`
	AppliedAt  time.Time `json:"applied_at"`
	DurationMs int       `json:"duration_ms"`
	Status     string    `json:"status"`
}

// RecordParams contains the fields needed to record a migration as applied.
type RecordParams struct {
	Version    string
	Filename   string
	Checksum   string
	DurationMs int
}

// Querier is the subset of pgxpool.Pool, pgx.Conn and pgx.Tx the tracker needs.
// Passing a pgx.Tx records bookkeeping in the same transaction as the migration.
type Querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Tracker manages the schema_migrations table.
type Tracker struct {
	db Querier
}

// New creates a Tracker backed by db.
func New(db Querier) *Tracker {
	return &Tracker{db: db}
}

// WithQuerier returns a Tracker that runs against q, typically an open transaction.
func (t *Tracker) WithQuerier(q Querier) *Tracker {
	return &Tracker{db: q}
}

// EnsureTable creates the schema_migrations table if it does not exist.
func (t *Tracker) EnsureTable(ctx context.Context) error {
	if _, err := t.db.Exec(ctx, createSchemaSQL); err != nil {
		return fmt.Errorf("%w: %w", ErrTableCreation, err)
	}

	return nil
}

// Exists reports whether schema_migrations has been created. Read-only
// callers use it instead of EnsureTable so they never write to the database.
func (t *Tracker) Exists(ctx context.Context) (bool, error) {
	var exists bool

	if err := t.db.QueryRow(ctx, `SELECT to_regclass('schema_migrations') IS NOT NULL`).Scan(&exists); err != nil {
		return false, fmt.Errorf("checking for schema_migrations: %w", err)
	}

	return exists, nil
}

// IsApplied checks whether a migration version is currently applied.
func (t *Tracker) IsApplied(ctx context.Context, version string) (bool, error) {
	var exists bool

	err := t.db.QueryRow(ctx,
		`SELECT EXISTS(SELECT 1 FROM schema_migrations WHERE version = $1 AND status = $2)`,
		version, StatusApplied,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("checking if migration %s is applied: %w", version, err)
	}

	return exists, nil
}

// GetApplied returns all applied migrations ordered by version.
func (t *Tracker) GetApplied(ctx context.Context) ([]AppliedMigration, error) {
	rows, err := t.db.Query(ctx,
		`SELECT version, filename, checksum, applied_at, duration_ms, status
		 FROM schema_migrations
		 WHERE status = $1
		 ORDER BY version`,
		StatusApplied,
	)
	if err != nil {
		return nil, fmt.Errorf("querying applied migrations: %w", err)
	}
	defer rows.Close()

	applied, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (AppliedMigration, error) {
		var m AppliedMigration
		if scanErr := row.Scan(&m.Version, &m.Filename, &m.Checksum, &m.AppliedAt, &m.DurationMs, &m.Status); scanErr != nil {
			return AppliedMigration{}, fmt.Errorf("scanning migration row: %w", scanErr)
		}

		return m, nil
	})
	if err != nil {
		return nil, fmt.Errorf("scanning applied migrations: %w", err)
	}

	return applied, nil
}

// RecordApplied inserts or updates a migration record with status 'applied'.
// The upsert covers re-applying a previously rolled-back migration.
func (t *Tracker) RecordApplied(ctx context.Context, p RecordParams) error {
	_, err := t.db.Exec(ctx,
		`INSERT INTO schema_migrations (version, filename, checksum, duration_ms, status)
		 VALUES ($1, $2, $3, $4, $5)
		 ON CONFLICT (version) DO UPDATE SET
		     filename = EXCLUDED.filename,
		     checksum = EXCLUDED.checksum,
		     applied_at = NOW(),
		     duration_ms = EXCLUDED.duration_ms,
		     status = EXCLUDED.status`,
		p.Version, p.Filename, p.Checksum, p.DurationMs, StatusApplied,
	)
	if err != nil {
		return fmt.Errorf("recording migration %s as applied: %w", p.Version, err)
	}

	return nil
}

// RecordRolledBack updates a migration's status to 'rolled_back'.
func (t *Tracker) RecordRolledBack(ctx context.Context, version string) error {
	tag, err := t.db.Exec(ctx,
		`UPDATE schema_migrations SET status = $2 WHERE version = $1`,
		version, StatusRolledBack,
	)
	if err != nil {
		return fmt.Errorf("recording migration %s as rolled back: %w", version, err)
	}

	if tag.RowsAffected() == 0 {
		return fmt.Errorf("migration %s: %w", version, ErrMigrationNotFound)
	}

	return nil
}

// GetChecksum returns the recorded checksum for a migration version.
func (t *Tracker) GetChecksum(ctx context.Context, version string) (string, error) {
	var checksum string

	err := t.db.QueryRow(ctx,
		`SELECT checksum FROM schema_migrations WHERE version = $1`,
		version,
	).Scan(&checksum)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", fmt.Errorf("migration %s: %w", version, ErrMigrationNotFound)
		}

		return "", fmt.Errorf("getting checksum for migration %s: %w", version, err)
	}

	return checksum, nil
}

package executor

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"

	"github.com/aqasim81/animals/internal/database"
	"github.com/aqasim81/animals/internal/migration"
	"github.com/aqasim81/animals/internal/tracker"
)

// Progress status constants reported via ProgressEvent. StatusSkipped
// marks a migration that is already applied; StatusPending marks one a dry
// run would have executed.
const (
	StatusStarting   = "starting"
	StatusCompleted  = "completed"
	StatusFailed     = "failed"
	StatusSkipped    = "skipped"
	StatusPending    = "pending"
	StatusRolledBack = "rolled_back"
)

// RollbackAll is the RollbackToVersion target that reverts every migration.
const RollbackAll = "0"

// ProgressEvent is emitted by the executor for each migration processed.
type ProgressEvent struct {
	Migration *migration.Migration
	Status    string
	Duration  time.Duration
	Error     error
}

// MigrationTracker abstracts schema_migrations operations for testability.
type MigrationTracker interface {
	Exists(ctx context.Context) (bool, error)
	EnsureTable(ctx context.Context) error
	IsApplied(ctx context.Context, version string) (bool, error)
	GetApplied(ctx context.Context) ([]tracker.AppliedMigration, error)
	GetChecksum(ctx context.Context, version string) (string, error)
	RecordApplied(ctx context.Context, p tracker.RecordParams) error
	RecordRolledBack(ctx context.Context, version string) error
}

// lockReleaser is returned by lockFn and must be released when done.
type lockReleaser interface {
	Release(ctx context.Context) error
}

// lockFunc acquires an advisory lock and returns a releaser.
type lockFunc func(ctx context.Context) (lockReleaser, error)

// recordFunc writes the schema_migrations row for a script through t.
type recordFunc func(ctx context.Context, t MigrationTracker) error

// sqlExecFunc executes one migration script, up or down, then calls record.
// When the script runs in a transaction, record runs in the same one.
type sqlExecFunc func(ctx context.Context, sql string, record recordFunc) error

// txDB is what executeSQL needs from the pool.
type txDB interface {
	Beginner
	Execer
}

// txBinder is a tracker that can write through an open transaction.
type txBinder interface {
	WithQuerier(q tracker.Querier) *tracker.Tracker
}

// Executor applies and reverts migrations with transaction safety,
// timeouts, and an advisory lock against concurrent runs.
type Executor struct {
	pool             *pgxpool.Pool
	db               txDB
	tracker          MigrationTracker
	lockTimeout      time.Duration
	statementTimeout time.Duration
	dryRun           bool
	onProgress       func(ProgressEvent)
	logger           zerolog.Logger
	acquireLock      lockFunc
	execSQL          sqlExecFunc
}

// Option configures an Executor.
type Option func(*Executor)

// WithLockTimeout sets the per-transaction lock_timeout.
func WithLockTimeout(d time.Duration) Option {
	return func(e *Executor) { e.lockTimeout = d }
}

// WithStatementTimeout sets the per-transaction statement_timeout.
func WithStatementTimeout(d time.Duration) Option {
	return func(e *Executor) { e.statementTimeout = d }
}

// WithDryRun enables dry-run mode where no SQL is executed.
func WithDryRun(b bool) Option {
	return func(e *Executor) { e.dryRun = b }
}

// WithProgressCallback sets a function called for each migration processed.
func WithProgressCallback(fn func(ProgressEvent)) Option {
	return func(e *Executor) { e.onProgress = fn }
}

// WithLogger sets the structured logger. The default discards output.
func WithLogger(l zerolog.Logger) Option {
	return func(e *Executor) { e.logger = l }
}

// New creates an Executor with the given pool, tracker, and options.
func New(pool *pgxpool.Pool, t MigrationTracker, opts ...Option) *Executor {
	e := &Executor{
		pool:    pool,
		tracker: t,
		logger:  zerolog.Nop(),
	}

	for _, opt := range opts {
		opt(e)
	}

	// Defaults for the injectable functions go after options so tests
	// can replace them.
	if e.acquireLock == nil {
		e.acquireLock = func(ctx context.Context) (lockReleaser, error) {
			return database.TryAcquireLock(ctx, e.pool)
		}
	}

	if e.db == nil && pool != nil {
		e.db = pool
	}

	if e.execSQL == nil {
		e.execSQL = e.executeSQL
	}

	return e
}

// Apply executes pending migrations in order. Already-applied migrations
// are skipped after verifying their checksum.
func (e *Executor) Apply(ctx context.Context, migrations []migration.Migration) error {
	lock, err := e.acquireLock(ctx)
	if err != nil {
		return fmt.Errorf("acquiring migration lock: %w", err)
	}
	defer lock.Release(ctx) //nolint:errcheck // best-effort release on return

	tracked, err := e.prepareTracker(ctx)
	if err != nil {
		return err
	}

	for i := range migrations {
		if err := e.applyOne(ctx, &migrations[i], tracked); err != nil {
			return err
		}
	}

	return nil
}

// Rollback reverts the most recent steps applied migrations, newest
// first. Asking for more steps than are applied reverts all of them.
func (e *Executor) Rollback(ctx context.Context, migrations []migration.Migration, steps int) error {
	if steps < 1 {
		return fmt.Errorf("%w: got %d", ErrInvalidSteps, steps)
	}

	return e.rollback(ctx, migrations, func(applied []tracker.AppliedMigration) ([]tracker.AppliedMigration, error) {
		if steps > len(applied) {
			steps = len(applied)
		}

		return applied[len(applied)-steps:], nil
	})
}

// RollbackToVersion reverts every applied migration newer than target.
// target must itself be applied, or RollbackAll.
func (e *Executor) RollbackToVersion(ctx context.Context, migrations []migration.Migration, target string) error {
	return e.rollback(ctx, migrations, func(applied []tracker.AppliedMigration) ([]tracker.AppliedMigration, error) {
		if target == RollbackAll {
			return applied, nil
		}

		for i, a := range applied {
			if a.Version == target {
				return applied[i+1:], nil
			}
		}

		return nil, fmt.Errorf("%w: %s", ErrTargetNotApplied, target)
	})
}

// rollback holds the lock, picks versions from the applied list (ordered
// oldest first) and reverts them newest first. Every selected version is
// checked for a down script before any SQL runs.
func (e *Executor) rollback(
	ctx context.Context,
	migrations []migration.Migration,
	selectFn func([]tracker.AppliedMigration) ([]tracker.AppliedMigration, error),
) error {
	lock, err := e.acquireLock(ctx)
	if err != nil {
		return fmt.Errorf("acquiring migration lock: %w", err)
	}
	defer lock.Release(ctx) //nolint:errcheck // best-effort release on return

	tracked, err := e.prepareTracker(ctx)
	if err != nil {
		return err
	}

	var applied []tracker.AppliedMigration

	if tracked {
		applied, err = e.tracker.GetApplied(ctx)
		if err != nil {
			return fmt.Errorf("loading applied migrations: %w", err)
		}
	}

	selected, err := selectFn(applied)
	if err != nil {
		return err
	}

	plan, err := rollbackPlan(migrations, selected)
	if err != nil {
		return err
	}

	for _, m := range plan {
		if err := e.rollbackOne(ctx, m); err != nil {
			return err
		}
	}

	return nil
}

// prepareTracker makes schema_migrations ready and reports whether it
// exists. A dry run only looks, so on a fresh database it reports false and
// every migration counts as unapplied.
func (e *Executor) prepareTracker(ctx context.Context) (bool, error) {
	if e.dryRun {
		return e.tracker.Exists(ctx)
	}

	if err := e.tracker.EnsureTable(ctx); err != nil {
		return false, err
	}

	return true, nil
}

// rollbackPlan maps selected versions to their migrations, newest first.
func rollbackPlan(migrations []migration.Migration, selected []tracker.AppliedMigration) ([]*migration.Migration, error) {
	index := migration.Index(migrations)
	plan := make([]*migration.Migration, 0, len(selected))

	for i := len(selected) - 1; i >= 0; i-- {
		version := selected[i].Version

		m, ok := index[version]
		if !ok {
			return nil, fmt.Errorf("%w: %s", ErrMigrationUnknown, version)
		}

		if !m.Reversible() {
			return nil, fmt.Errorf("migration %s: %w", m.ID(), ErrNoDownMigration)
		}

		plan = append(plan, m)
	}

	return plan, nil
}

// applyOne handles a single migration: skip if applied, dry-run check,
// then execute and record together, firing progress along the way.
// tracked is false only on a dry run against a database without
// schema_migrations, where nothing can be applied yet.
func (e *Executor) applyOne(ctx context.Context, m *migration.Migration, tracked bool) error {
	if tracked {
		skip, err := e.shouldSkip(ctx, m)
		if err != nil {
			return err
		}

		if skip {
			e.logger.Debug().Str("version", m.Version).Msg("migration already applied")
			e.fireProgress(ProgressEvent{Migration: m, Status: StatusSkipped})

			return nil
		}
	}

	if e.dryRun {
		e.logger.Info().Str("version", m.Version).Str("name", m.Name).Msg("dry run: would apply")
		e.fireProgress(ProgressEvent{Migration: m, Status: StatusPending})

		return nil
	}

	e.fireProgress(ProgressEvent{Migration: m, Status: StatusStarting})

	var (
		duration  time.Duration
		recordErr error
	)

	start := time.Now()
	execErr := e.execSQL(ctx, m.UpSQL, func(ctx context.Context, t MigrationTracker) error {
		duration = time.Since(start)
		recordErr = t.RecordApplied(ctx, tracker.RecordParams{
			Version:    m.Version,
			Filename:   filepath.Base(m.FilePath),
			Checksum:   m.Checksum,
			DurationMs: int(duration.Milliseconds()),
		})

		return recordErr
	})

	if execErr != nil {
		duration = time.Since(start)

		e.logger.Error().Err(execErr).Str("version", m.Version).Msg("migration failed")
		e.fireProgress(ProgressEvent{
			Migration: m,
			Status:    StatusFailed,
			Duration:  duration,
			Error:     execErr,
		})

		if recordErr != nil {
			return fmt.Errorf("recording migration %s: %w", m.Version, recordErr)
		}

		return fmt.Errorf("executing migration %s: %w: %w", m.Version, ErrExecutionFailed, execErr)
	}

	e.logger.Info().
		Str("version", m.Version).
		Str("name", m.Name).
		Dur("duration", duration).
		Msg("migration applied")
	e.fireProgress(ProgressEvent{
		Migration: m,
		Status:    StatusCompleted,
		Duration:  duration,
	})

	return nil
}

// rollbackOne runs the down script of an applied migration and marks it
// rolled back in the same transaction.
func (e *Executor) rollbackOne(ctx context.Context, m *migration.Migration) error {
	if e.dryRun {
		e.logger.Info().Str("version", m.Version).Str("name", m.Name).Msg("dry run: would roll back")
		e.fireProgress(ProgressEvent{Migration: m, Status: StatusPending})

		return nil
	}

	e.fireProgress(ProgressEvent{Migration: m, Status: StatusStarting})

	var recordErr error

	start := time.Now()
	execErr := e.execSQL(ctx, m.DownSQL, func(ctx context.Context, t MigrationTracker) error {
		recordErr = t.RecordRolledBack(ctx, m.Version)
		return recordErr
	})
	duration := time.Since(start)

	if execErr != nil {
		e.logger.Error().Err(execErr).Str("version", m.Version).Msg("rollback failed")
		e.fireProgress(ProgressEvent{
			Migration: m,
			Status:    StatusFailed,
			Duration:  duration,
			Error:     execErr,
		})

		if recordErr != nil {
			return fmt.Errorf("recording rollback of %s: %w", m.Version, recordErr)
		}

		return fmt.Errorf("rolling back migration %s: %w: %w", m.Version, ErrExecutionFailed, execErr)
	}

	e.logger.Info().
		Str("version", m.Version).
		Str("name", m.Name).
		Dur("duration", duration).
		Msg("migration rolled back")
	e.fireProgress(ProgressEvent{
		Migration: m,
		Status:    StatusRolledBack,
		Duration:  duration,
	})

	return nil
}

// shouldSkip returns true if the migration is already applied.
// Applied migrations must still match their recorded checksum.
func (e *Executor) shouldSkip(ctx context.Context, m *migration.Migration) (bool, error) {
	applied, err := e.tracker.IsApplied(ctx, m.Version)
	if err != nil {
		return false, fmt.Errorf("checking migration %s: %w", m.Version, err)
	}

	if !applied {
		return false, nil
	}

	storedChecksum, err := e.tracker.GetChecksum(ctx, m.Version)
	if err != nil {
		return false, fmt.Errorf("getting checksum for %s: %w", m.Version, err)
	}

	if storedChecksum != m.Checksum {
		return false, fmt.Errorf(
			"migration %s: %w: stored=%s computed=%s",
			m.Version, tracker.ErrChecksumMismatch, storedChecksum, m.Checksum,
		)
	}

	return true, nil
}

// executeSQL runs one script inside a transaction with the configured
// timeouts and records it through a tracker bound to that transaction, so
// the DDL and its schema_migrations row commit or roll back together.
// Scripts with CREATE INDEX CONCURRENTLY run directly on the pool and are
// recorded afterwards.
func (e *Executor) executeSQL(ctx context.Context, sql string, record recordFunc) error {
	indexes, err := concurrentIndexes(sql)
	if err != nil {
		return err
	}

	if len(indexes) > 0 {
		for _, idx := range indexes {
			e.logger.Debug().
				Str("index", idx.indexLabel()).
				Str("table", idx.Table).
				Msg("building index concurrently outside a transaction")
		}

		if err := ExecWithoutTransaction(ctx, e.db, sql); err != nil {
			return err
		}

		return record(ctx, e.tracker)
	}

	return ExecInTransaction(ctx, e.db, func(tx pgx.Tx) error {
		if e.lockTimeout > 0 {
			if err := SetLockTimeout(ctx, tx, e.lockTimeout); err != nil {
				return err
			}
		}

		if e.statementTimeout > 0 {
			if err := SetStatementTimeout(ctx, tx, e.statementTimeout); err != nil {
				return err
			}
		}

		if _, err := tx.Exec(ctx, sql); err != nil {
			return fmt.Errorf("executing SQL: %w", err)
		}

		return record(ctx, e.trackerIn(tx))
	})
}

// trackerIn returns the tracker writing through tx when it supports that.
func (e *Executor) trackerIn(tx pgx.Tx) MigrationTracker {
	if b, ok := e.tracker.(txBinder); ok {
		return b.WithQuerier(tx)
	}

	return e.tracker
}

func (e *Executor) fireProgress(event ProgressEvent) {
	if e.onProgress != nil {
		e.onProgress(event)
	}
}

package executor

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// Beginner starts transactions. *pgxpool.Pool and *pgx.Conn satisfy it.
type Beginner interface {
	Begin(ctx context.Context) (pgx.Tx, error)
}

// Execer runs SQL outside a transaction.
type Execer interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// ExecInTransaction runs fn in a transaction on db, committing on success
// and rolling back on error.
func ExecInTransaction(ctx context.Context, db Beginner, fn func(tx pgx.Tx) error) error {
	tx, err := db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}

	defer tx.Rollback(ctx) //nolint:errcheck // rollback on committed tx returns ErrTxClosed

	if err := fn(tx); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}

	return nil
}

// ExecWithoutTransaction runs sql in autocommit mode. CREATE INDEX
// CONCURRENTLY refuses to run inside a transaction block.
func ExecWithoutTransaction(ctx context.Context, db Execer, sql string) error {
	if _, err := db.Exec(ctx, sql); err != nil {
		return fmt.Errorf("executing outside transaction: %w", err)
	}

	return nil
}

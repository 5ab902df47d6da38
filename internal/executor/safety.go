package executor

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
)

// SetLockTimeout makes DDL in tx fail fast instead of queueing behind
// other sessions' locks on the animals table.
func SetLockTimeout(ctx context.Context, tx pgx.Tx, timeout time.Duration) error {
	return setLocal(ctx, tx, "lock_timeout", timeout)
}

// SetStatementTimeout bounds how long any single statement in tx may run.
func SetStatementTimeout(ctx context.Context, tx pgx.Tx, timeout time.Duration) error {
	return setLocal(ctx, tx, "statement_timeout", timeout)
}

// setLocal scopes the setting to tx so pooled connections come back clean.
func setLocal(ctx context.Context, tx pgx.Tx, name string, timeout time.Duration) error {
	sql := fmt.Sprintf("SET LOCAL %s = '%dms'", name, timeout.Milliseconds())

	if _, err := tx.Exec(ctx, sql); err != nil {
		return fmt.Errorf("setting %s: %w", name, err)
	}

	return nil
}

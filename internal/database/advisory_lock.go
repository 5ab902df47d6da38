package database

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// MigrationLockID is the advisory lock key held while migrations run.
// It spells "animals" in ASCII.
const MigrationLockID int64 = 0x616e696d616c73

// pg_locks splits a bigint advisory key into classid (high 32 bits) and
// objid (low 32 bits) and sets objsubid to 1.
const lockHolderSQL = `SELECT pid FROM pg_locks
 WHERE locktype = 'advisory' AND granted AND objsubid = 1
   AND classid::bigint = $1 AND objid::bigint = $2
 LIMIT 1`

// rowQuerier is satisfied by pgx.Conn, pgxpool.Conn and pgx.Tx.
type rowQuerier interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// LockHandle owns the pooled connection holding the session-level
// advisory lock. The lock lives as long as that connection does.
type LockHandle struct {
	conn *pgxpool.Conn
}

// TryAcquireLock takes the migration lock without waiting. When another
// session holds it the error wraps ErrLockNotAcquired and names that
// session's backend pid, so an operator can find it in pg_stat_activity.
func TryAcquireLock(ctx context.Context, pool *pgxpool.Pool) (*LockHandle, error) {
	conn, err := pool.Acquire(ctx)
	if err != nil {
		return nil, fmt.Errorf("acquiring connection for advisory lock: %w", err)
	}

	var acquired bool

	err = conn.QueryRow(ctx, "SELECT pg_try_advisory_lock($1)", MigrationLockID).Scan(&acquired)
	if err != nil {
		conn.Release()

		return nil, fmt.Errorf("executing pg_try_advisory_lock: %w", err)
	}

	if !acquired {
		pid := lockHolder(ctx, conn)
		conn.Release()

		return nil, lockHeldError(pid)
	}

	return &LockHandle{conn: conn}, nil
}

func lockKeyParts(key int64) (classID, objID int64) {
	return key >> 32, key & 0xffffffff
}

// lockHolder returns the backend pid holding the migration lock. Zero means
// the holder let go in the meantime or could not be looked up.
func lockHolder(ctx context.Context, q rowQuerier) int32 {
	classID, objID := lockKeyParts(MigrationLockID)

	var pid int32
	if err := q.QueryRow(ctx, lockHolderSQL, classID, objID).Scan(&pid); err != nil {
		return 0
	}

	return pid
}

func lockHeldError(pid int32) error {
	if pid == 0 {
		return ErrLockNotAcquired
	}

	return fmt.Errorf("%w: animals migrations are running in backend pid %d", ErrLockNotAcquired, pid)
}

// Release unlocks and returns the connection to the pool. Calling it
// again, or on a nil handle, does nothing.
func (h *LockHandle) Release(ctx context.Context) error {
	if h == nil || h.conn == nil {
		return nil
	}

	_, err := h.conn.Exec(ctx, "SELECT pg_advisory_unlock($1)", MigrationLockID)
	h.conn.Release()
	h.conn = nil

	if err != nil {
		return fmt.Errorf("releasing advisory lock: %w", err)
	}

	return nil
}

package db

import (
	"context"
	"fmt"
)

// WithAdvisoryLock runs fn while holding a session-level advisory lock on a
// dedicated connection. It returns acquired=false without running fn when
// another session holds the lock.
func (db *DB) WithAdvisoryLock(ctx context.Context, lockID int64, fn func(ctx context.Context) error) (bool, error) {
	conn, err := db.Pool.Acquire(ctx)
	if err != nil {
		return false, fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	var acquired bool
	if err := conn.QueryRow(ctx, "SELECT pg_try_advisory_lock($1)", lockID).Scan(&acquired); err != nil {
		return false, fmt.Errorf("try acquire advisory lock: %w", err)
	}

	if !acquired {
		return false, nil
	}

	defer func() {
		// Context may already be canceled; unlock on a fresh one.
		//nolint:errcheck,contextcheck // best-effort, lock is released with the session anyway
		_, _ = conn.Exec(context.Background(), "SELECT pg_advisory_unlock($1)", lockID)
	}()

	return true, fn(ctx)
}

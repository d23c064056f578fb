package repository

import (
	"context"
	"fmt"
)

// AdvisoryLock acquires a transaction-scoped PostgreSQL advisory lock keyed
// by the hash of key. The lock is released when the enclosing transaction
// commits or rolls back, so e should be a *sql.Tx.
func AdvisoryLock(ctx context.Context, e Executor, key string) error {
	if _, err := e.ExecContext(ctx, "SELECT pg_advisory_xact_lock(hashtext($1))", key); err != nil {
		return fmt.Errorf("advisory lock %s: %w", key, err)
	}
	return nil
}

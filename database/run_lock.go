package database

import (
	"context"
	"fmt"
)

// runLockKey is the advisory lock key guarding batch runs. Two runs must
// never execute concurrently against the same account store.
const runLockKey = 874291

// TryAcquireRunLock attempts to take the session-level advisory lock that
// serializes batch runs. Returns false without blocking when another run
// holds the lock.
func (db *DB) TryAcquireRunLock(ctx context.Context) (bool, error) {
	var acquired bool
	err := db.QueryRow(ctx, "SELECT pg_try_advisory_lock($1)", runLockKey).Scan(&acquired)
	if err != nil {
		return false, fmt.Errorf("failed to acquire run lock: %w", err)
	}
	return acquired, nil
}

// ReleaseRunLock releases the run advisory lock
func (db *DB) ReleaseRunLock(ctx context.Context) error {
	var released bool
	err := db.QueryRow(ctx, "SELECT pg_advisory_unlock($1)", runLockKey).Scan(&released)
	if err != nil {
		return fmt.Errorf("failed to release run lock: %w", err)
	}
	if !released {
		return fmt.Errorf("run lock was not held by this session")
	}
	return nil
}

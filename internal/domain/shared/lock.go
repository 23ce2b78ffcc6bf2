package shared

import (
	"context"
	"time"
)

// SyncLock is a coarse mutual-exclusion lock for operations that must not
// overlap across process instances, such as the periodic ledger-feed pull
type SyncLock interface {
	// Acquire attempts to take the named lock with a TTL
	// Returns true if the lock was taken, false if another holder has it
	Acquire(ctx context.Context, name string, ttl time.Duration) (bool, error)

	// Release frees the named lock; releasing an unheld lock is not an error
	Release(ctx context.Context, name string) error

	// Close closes the lock backend and releases resources
	Close() error
}

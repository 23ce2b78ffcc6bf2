package cache

import (
	"context"
	"sync"
	"time"

	"github.com/postrack/backend/internal/domain/shared"
)

// lockEntry tracks when a held lock lapses
type lockEntry struct {
	expiresAt time.Time
}

// LocalSyncLock implements SyncLock with an in-process map
// This is suitable for single-instance deployments and testing
type LocalSyncLock struct {
	mu        sync.Mutex
	held      map[string]lockEntry
	stopChan  chan struct{}
	wg        sync.WaitGroup
	closeOnce sync.Once
}

// NewLocalSyncLock creates a new in-process sync lock
// It starts a background goroutine to clean up lapsed locks
func NewLocalSyncLock() *LocalSyncLock {
	lock := &LocalSyncLock{
		held:     make(map[string]lockEntry),
		stopChan: make(chan struct{}),
	}

	lock.wg.Add(1)
	go lock.cleanupLoop()

	return lock
}

// Acquire attempts to take the named lock with a TTL
// Returns true if the lock was taken, false if another holder has it
func (l *LocalSyncLock) Acquire(ctx context.Context, name string, ttl time.Duration) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if e, exists := l.held[name]; exists {
		if time.Now().Before(e.expiresAt) {
			return false, nil // Another holder has it
		}
		// Lock exists but lapsed, will be overwritten
	}

	l.held[name] = lockEntry{
		expiresAt: time.Now().Add(ttl),
	}

	return true, nil
}

// Release frees the named lock; releasing an unheld lock is not an error
func (l *LocalSyncLock) Release(ctx context.Context, name string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	delete(l.held, name)
	return nil
}

// Close stops the cleanup goroutine and releases resources
// Safe to call multiple times
func (l *LocalSyncLock) Close() error {
	l.closeOnce.Do(func() {
		close(l.stopChan)
		l.wg.Wait()
	})
	return nil
}

// cleanupLoop periodically removes lapsed locks
func (l *LocalSyncLock) cleanupLoop() {
	defer l.wg.Done()

	ticker := time.NewTicker(5 * time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-l.stopChan:
			return
		case <-ticker.C:
			l.cleanup()
		}
	}
}

// cleanup removes lapsed locks from the map
func (l *LocalSyncLock) cleanup() {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := time.Now()
	for name, e := range l.held {
		if now.After(e.expiresAt) {
			delete(l.held, name)
		}
	}
}

// Size returns the number of held locks (for testing/monitoring)
func (l *LocalSyncLock) Size() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.held)
}

// Ensure LocalSyncLock implements SyncLock
var _ shared.SyncLock = (*LocalSyncLock)(nil)

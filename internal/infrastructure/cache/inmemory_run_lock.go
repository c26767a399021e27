package cache

import (
	"context"
	gosync "sync"
	"time"

	"github.com/google/uuid"

	"github.com/promosync/backend/internal/domain/sync"
)

// lockEntry represents a held lock with expiration
type lockEntry struct {
	expiresAt time.Time
}

// InMemoryRunLock implements RunLock using an in-memory map
// This is suitable for single-instance deployments and testing
type InMemoryRunLock struct {
	mu        gosync.Mutex
	locks     map[uuid.UUID]lockEntry
	stopChan  chan struct{}
	wg        gosync.WaitGroup
	closeOnce gosync.Once
}

// NewInMemoryRunLock creates a new in-memory run lock
// It starts a background goroutine to clean up expired locks
func NewInMemoryRunLock() *InMemoryRunLock {
	lock := &InMemoryRunLock{
		locks:    make(map[uuid.UUID]lockEntry),
		stopChan: make(chan struct{}),
	}

	lock.wg.Add(1)
	go lock.cleanupLoop()

	return lock
}

// Acquire attempts to take the lock for a configuration
// Returns true if the lock was taken, false if it is already held
func (l *InMemoryRunLock) Acquire(ctx context.Context, configurationID uuid.UUID, ttl time.Duration) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if e, held := l.locks[configurationID]; held {
		if time.Now().Before(e.expiresAt) {
			return false, nil // Already held
		}
		// Lock exists but expired, will be overwritten
	}

	l.locks[configurationID] = lockEntry{
		expiresAt: time.Now().Add(ttl),
	}

	return true, nil
}

// Release frees the lock for a configuration
func (l *InMemoryRunLock) Release(ctx context.Context, configurationID uuid.UUID) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	delete(l.locks, configurationID)
	return nil
}

// Close stops the cleanup goroutine and releases resources
// Safe to call multiple times
func (l *InMemoryRunLock) Close() error {
	l.closeOnce.Do(func() {
		close(l.stopChan)
		l.wg.Wait()
	})
	return nil
}

// cleanupLoop periodically removes expired locks
func (l *InMemoryRunLock) cleanupLoop() {
	defer l.wg.Done()

	ticker := time.NewTicker(time.Minute)
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

// cleanup removes expired locks from the map
func (l *InMemoryRunLock) cleanup() {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := time.Now()
	for id, e := range l.locks {
		if now.After(e.expiresAt) {
			delete(l.locks, id)
		}
	}
}

// Size returns the number of held locks (for testing/monitoring)
func (l *InMemoryRunLock) Size() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.locks)
}

// Ensure InMemoryRunLock implements RunLock
var _ sync.RunLock = (*InMemoryRunLock)(nil)

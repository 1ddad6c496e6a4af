package cache

import (
	"context"
	"sync"
	"time"

	"github.com/erp/connector/internal/domain/command"
)

// entry represents a recorded nonce with expiration
type entry struct {
	expiresAt time.Time
}

// InMemoryNonceStore implements command.NonceStore with an in-process map.
// Suitable for single-instance deployments and tests only: its state is not
// visible to other worker processes.
type InMemoryNonceStore struct {
	mu        sync.Mutex
	entries   map[string]entry
	stopChan  chan struct{}
	wg        sync.WaitGroup
	closeOnce sync.Once
}

// NewInMemoryNonceStore creates an in-memory nonce store and starts its
// cleanup goroutine.
func NewInMemoryNonceStore() *InMemoryNonceStore {
	store := &InMemoryNonceStore{
		entries:  make(map[string]entry),
		stopChan: make(chan struct{}),
	}

	store.wg.Add(1)
	go store.cleanupLoop()

	return store
}

// CheckAndRecord records the (instance, nonce) pair under a single lock, so
// of two concurrent calls with the same pair exactly one succeeds.
func (s *InMemoryNonceStore) CheckAndRecord(ctx context.Context, instanceID, nonce string, window time.Duration) error {
	key := instanceID + ":" + nonce

	s.mu.Lock()
	defer s.mu.Unlock()

	if e, exists := s.entries[key]; exists && time.Now().Before(e.expiresAt) {
		return command.ErrNonceReplayed
	}
	s.entries[key] = entry{expiresAt: time.Now().Add(window)}
	return nil
}

// Close stops the cleanup goroutine. Safe to call multiple times.
func (s *InMemoryNonceStore) Close() error {
	s.closeOnce.Do(func() {
		close(s.stopChan)
		s.wg.Wait()
	})
	return nil
}

// cleanupLoop periodically removes expired entries
func (s *InMemoryNonceStore) cleanupLoop() {
	defer s.wg.Done()

	ticker := time.NewTicker(5 * time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-s.stopChan:
			return
		case <-ticker.C:
			s.cleanup()
		}
	}
}

// cleanup removes expired entries from the store
func (s *InMemoryNonceStore) cleanup() {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	for key, e := range s.entries {
		if now.After(e.expiresAt) {
			delete(s.entries, key)
		}
	}
}

// Size returns the number of entries in the store (for testing/monitoring)
func (s *InMemoryNonceStore) Size() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

// Ensure InMemoryNonceStore implements NonceStore
var _ command.NonceStore = (*InMemoryNonceStore)(nil)

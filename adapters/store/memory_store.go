package store

import (
	"context"
	"sync"
	"time"

	"github.com/layer-3/subkit/ports"
)

// MemoryStore is an in-memory implementation of the Store interface
type MemoryStore struct {
	consumed map[string]time.Time
	mu       sync.Mutex
	now      func() time.Time
}

// NewMemoryStore creates a new in-memory store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		consumed: make(map[string]time.Time),
		now:      time.Now,
	}
}

var _ ports.Store = (*MemoryStore)(nil)

// ConsumeOnce marks key as consumed until ttl elapses
func (s *MemoryStore) ConsumeOnce(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	s.sweep(now)

	if expiry, exists := s.consumed[key]; exists && now.Before(expiry) {
		return false, nil
	}
	s.consumed[key] = now.Add(ttl)
	return true, nil
}

// sweep drops expired keys. Callers hold mu.
func (s *MemoryStore) sweep(now time.Time) {
	for key, expiry := range s.consumed {
		if !now.Before(expiry) {
			delete(s.consumed, key)
		}
	}
}

package store

import (
	"context"
	"fmt"
	"sync"

	"github.com/heysubinoy/pyazkv/pkg/kv"
)

// MemStore is an in-memory implementation of the kv.Store interface.
// It uses a map protected by a RWMutex for thread-safe operations.
// Contents do not survive a restart.
type MemStore struct {
	mu   sync.RWMutex
	data map[string]string
}

// Compile-time check to ensure MemStore implements kv.Store.
var (
	_ kv.Store = (*MemStore)(nil)
	_ kv.Taker = (*MemStore)(nil)
)

// NewMemStore creates and returns a new MemStore instance.
func NewMemStore() *MemStore {
	return &MemStore{
		data: make(map[string]string),
	}
}

// Save stores a key-value pair in the store.
// Always returns nil for in-memory operations.
func (s *MemStore) Save(_ context.Context, key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.data[key] = value
	return nil
}

// Get retrieves a value by key from the store.
func (s *MemStore) Get(_ context.Context, key string) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	val, ok := s.data[key]
	if !ok {
		return "", fmt.Errorf("get %q: %w", key, kv.ErrNotFound)
	}
	return val, nil
}

// Delete removes a key from the store.
func (s *MemStore) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.data[key]; !ok {
		return fmt.Errorf("delete %q: %w", key, kv.ErrNotFound)
	}
	delete(s.data, key)
	return nil
}

// Take removes a key and returns its value under a single lock.
func (s *MemStore) Take(_ context.Context, key string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	val, ok := s.data[key]
	if !ok {
		return "", fmt.Errorf("take %q: %w", key, kv.ErrNotFound)
	}
	delete(s.data, key)
	return val, nil
}

// Len returns the number of stored keys.
func (s *MemStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.data)
}

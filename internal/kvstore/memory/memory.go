// Package memory is the in-process store backend used by tests and the
// memory run mode.
package memory

import (
	"context"
	"sync"

	"github.com/anchored-notes/anchored-sync-service/internal/domain"
)

type entry struct {
	data    []byte
	version int64
}

// Store keeps all buckets in a map.
type Store struct {
	mu      sync.RWMutex
	entries map[string]entry
}

// NewStore creates an empty in-memory store.
func NewStore() *Store {
	return &Store{
		entries: make(map[string]entry),
	}
}

func (s *Store) Get(ctx context.Context, keys ...string) (map[string]domain.BucketValue, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make(map[string]domain.BucketValue)
	if len(keys) == 0 {
		for k, e := range s.entries {
			out[k] = domain.BucketValue{Data: cloneBytes(e.data), Version: e.version}
		}
		return out, nil
	}
	for _, k := range keys {
		if e, ok := s.entries[k]; ok {
			out[k] = domain.BucketValue{Data: cloneBytes(e.data), Version: e.version}
		}
	}
	return out, nil
}

func (s *Store) Set(ctx context.Context, key string, data []byte) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	next := s.entries[key].version + 1
	s.entries[key] = entry{data: cloneBytes(data), version: next}
	return next, nil
}

func (s *Store) CompareAndSwap(ctx context.Context, key string, data []byte, expect int64) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	current := s.entries[key].version
	if current != expect {
		return 0, domain.ErrVersionConflict
	}
	next := current + 1
	s.entries[key] = entry{data: cloneBytes(data), version: next}
	return next, nil
}

func (s *Store) Remove(ctx context.Context, keys ...string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, k := range keys {
		delete(s.entries, k)
	}
	return nil
}

func (s *Store) Keys(ctx context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	keys := make([]string, 0, len(s.entries))
	for k := range s.entries {
		keys = append(keys, k)
	}
	return keys, nil
}

func (s *Store) Clear(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.entries = make(map[string]entry)
	return nil
}

func (s *Store) Close() error {
	return nil
}

func cloneBytes(b []byte) []byte {
	if b == nil {
		return nil
	}
	c := make([]byte, len(b))
	copy(c, b)
	return c
}

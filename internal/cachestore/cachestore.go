// Package cachestore defines the pluggable cache store contract used by the
// built-in cache middleware, plus a default in-memory, FIFO-bounded
// implementation.
package cachestore

import (
	"container/list"
	"context"
	"sync"
	"time"
)

// Store is the contract a cache backend must satisfy. All three operations
// are asynchronous (context-aware) so a custom store may be network-backed
// (Redis, memcached, ...) without changing call sites.
type Store interface {
	Get(ctx context.Context, key string) (value any, ok bool, err error)
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
}

// DefaultMaxSize is used when a non-positive MaxSize is supplied to New.
const DefaultMaxSize = 1000

type entry struct {
	key       string
	value     any
	expiresAt time.Time
	elem      *list.Element
}

// MemoryStore is the default in-memory Store: an insertion-ordered map of
// key to (value, expiry). It evicts the oldest entry (FIFO, not LRU) when a
// new key would push it over MaxSize; updating an existing key never
// triggers eviction. A read of an expired entry lazily deletes it.
type MemoryStore struct {
	mu      sync.Mutex
	maxSize int
	order   *list.List // of *entry, oldest at Front
	entries map[string]*entry
	now     func() time.Time
}

// NewMemoryStore builds a MemoryStore bounded to maxSize entries. A
// non-positive maxSize is replaced with DefaultMaxSize.
func NewMemoryStore(maxSize int) *MemoryStore {
	if maxSize <= 0 {
		maxSize = DefaultMaxSize
	}
	return &MemoryStore{
		maxSize: maxSize,
		order:   list.New(),
		entries: make(map[string]*entry),
		now:     time.Now,
	}
}

// Get returns the stored value for key. An absent or expired entry is
// reported as ok=false; an expired entry is purged as a side effect.
func (s *MemoryStore) Get(_ context.Context, key string) (any, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, found := s.entries[key]
	if !found {
		return nil, false, nil
	}
	if !e.expiresAt.After(s.now()) {
		s.removeLocked(e)
		return nil, false, nil
	}
	return e.value, true, nil
}

// Set stores value under key with the given ttl. ttl<=0 means "already
// expired": the entry is stored but unusable by any subsequent Get once the
// clock advances past now, matching the "ttl=0" contract.
func (s *MemoryStore) Set(_ context.Context, key string, value any, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	expiresAt := s.now().Add(ttl)

	if e, exists := s.entries[key]; exists {
		e.value = value
		e.expiresAt = expiresAt
		return nil
	}

	if len(s.entries) >= s.maxSize {
		if oldest := s.order.Front(); oldest != nil {
			s.removeLocked(oldest.Value.(*entry))
		}
	}

	e := &entry{key: key, value: value, expiresAt: expiresAt}
	e.elem = s.order.PushBack(e)
	s.entries[key] = e
	return nil
}

// Delete removes key unconditionally; deleting an absent key is a no-op.
func (s *MemoryStore) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if e, exists := s.entries[key]; exists {
		s.removeLocked(e)
	}
	return nil
}

// Len reports the current number of stored entries, including any not yet
// lazily purged as expired. Used by tests to assert eviction behavior.
func (s *MemoryStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

func (s *MemoryStore) removeLocked(e *entry) {
	s.order.Remove(e.elem)
	delete(s.entries, e.key)
}

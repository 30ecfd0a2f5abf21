// Package cache provides the freshness cache: a bounded key→entry store
// with per-entry absolute expiry and single-flight read-through. The key
// space is small (a handful of categories and limits), so there is no
// LRU or size eviction.
package cache

import (
	"context"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
)

// entry stores one payload with its insertion time and time-to-live.
// Entries are replaced wholesale on every successful fetch, never merged.
type entry[T any] struct {
	payload    T
	insertedAt time.Time
	ttl        time.Duration
}

func (e entry[T]) expired(now time.Time) bool {
	return !now.Before(e.insertedAt.Add(e.ttl))
}

// Store is a freshness cache for payloads of type T.
type Store[T any] struct {
	mu      sync.RWMutex
	entries map[string]entry[T]
	group   singleflight.Group

	now func() time.Time // injectable for tests
}

// New creates an empty Store.
func New[T any]() *Store[T] {
	return &Store[T]{
		entries: make(map[string]entry[T]),
		now:     time.Now,
	}
}

// Get returns the payload for key if present and fresh. A read at or after
// insertedAt+ttl is a miss.
func (s *Store[T]) Get(key string) (T, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	e, ok := s.entries[key]
	if !ok || e.expired(s.now()) {
		var zero T
		return zero, false
	}
	return e.payload, true
}

// Last returns the payload for key regardless of expiry. It backs the
// stale-but-available fallback when all live sources fail.
func (s *Store[T]) Last(key string) (T, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	e, ok := s.entries[key]
	if !ok {
		var zero T
		return zero, false
	}
	return e.payload, true
}

// Put stores payload under key with the given ttl, replacing any previous
// entry wholesale.
func (s *Store[T]) Put(key string, payload T, ttl time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.entries[key] = entry[T]{payload: payload, insertedAt: s.now(), ttl: ttl}
}

// Invalidate removes the entry for key, if any.
func (s *Store[T]) Invalidate(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.entries, key)
}

// GetOrFetch returns the fresh payload for key, fetching on a miss.
// Concurrent callers missing on the same key rendezvous on a single
// in-flight fetch and all observe its result; no fetch storm can occur.
//
// When the fetch fails, the last known value is served if one exists
// (stale-but-available); the error propagates only when there is nothing
// to fall back to. The first caller's context governs the shared fetch.
func (s *Store[T]) GetOrFetch(ctx context.Context, key string, ttl time.Duration, fetch func(context.Context) (T, error)) (T, error) {
	if v, ok := s.Get(key); ok {
		return v, nil
	}

	v, err, _ := s.group.Do(key, func() (any, error) {
		// A caller that queued behind the flight may find the entry
		// already refreshed.
		if v, ok := s.Get(key); ok {
			return v, nil
		}

		payload, err := fetch(ctx)
		if err != nil {
			if prev, ok := s.Last(key); ok {
				return prev, nil
			}
			return nil, err
		}

		s.Put(key, payload, ttl)
		return payload, nil
	})
	if err != nil {
		var zero T
		return zero, err
	}
	return v.(T), nil
}

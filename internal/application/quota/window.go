// Package quota bounds upload abuse with per-identity sliding windows and
// a durable storage ceiling, and offers a generic request limiter for the
// read/delete endpoints.
package quota

import (
	"sync"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
)

const defaultStoreCapacity = 10_000

type window struct {
	mu    sync.Mutex
	start time.Time
	count int
	bytes int64
}

func (w *window) resetAt(length time.Duration) time.Time { return w.start.Add(length) }

// WindowStore keeps one window per key in process memory. It is
// best-effort: entries are evicted when the store is full or the window
// has elapsed, and everything is lost on restart.
type WindowStore struct {
	length time.Duration

	mu    sync.Mutex
	cache *expirable.LRU[string, *window]
}

func NewWindowStore(capacity int, length time.Duration) *WindowStore {
	if capacity <= 0 {
		capacity = defaultStoreCapacity
	}
	return &WindowStore{
		length: length,
		cache:  expirable.NewLRU[string, *window](capacity, nil, length),
	}
}

func (s *WindowStore) Length() time.Duration { return s.length }

// With runs fn while holding the key's window exclusively. The window has
// already been rolled over against now when fn sees it.
func (s *WindowStore) With(key string, now time.Time, fn func(w *window)) {
	s.mu.Lock()
	w, ok := s.cache.Get(key)
	if !ok {
		w = &window{start: now}
		s.cache.Add(key, w)
	}
	s.mu.Unlock()

	w.mu.Lock()
	defer w.mu.Unlock()

	if now.Sub(w.start) >= s.length {
		w.start = now
		w.count = 0
		w.bytes = 0

		// re-adding refreshes the entry ttl to the new window
		s.mu.Lock()
		s.cache.Add(key, w)
		s.mu.Unlock()
	}

	fn(w)
}

func (s *WindowStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cache.Len()
}

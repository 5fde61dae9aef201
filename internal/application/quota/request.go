package quota

import (
	"context"
	"time"
)

type Decision struct {
	Allowed   bool
	Remaining int
	ResetAt   time.Time
}

// Counter is a fixed-window hit counter shared by a RequestLimiter.
type Counter interface {
	Take(ctx context.Context, key string, limit int) (Decision, error)
}

// MemoryCounter counts in process memory; a rejected hit does not count.
type MemoryCounter struct {
	store *WindowStore
	now   func() time.Time
}

func NewMemoryCounter(capacity int, window time.Duration) *MemoryCounter {
	return &MemoryCounter{
		store: NewWindowStore(capacity, window),
		now:   time.Now,
	}
}

func (m *MemoryCounter) Take(_ context.Context, key string, limit int) (Decision, error) {
	var d Decision
	m.store.With(key, m.now(), func(w *window) {
		d.ResetAt = w.resetAt(m.store.Length())
		if w.count >= limit {
			return
		}
		w.count++
		d.Allowed = true
		d.Remaining = limit - w.count
	})
	return d, nil
}

// RequestLimiter bounds request counts independent of payload size.
type RequestLimiter struct {
	counter Counter
	limit   int
}

func NewRequestLimiter(counter Counter, limit int) *RequestLimiter {
	return &RequestLimiter{counter: counter, limit: limit}
}

func (l *RequestLimiter) Allow(ctx context.Context, key string) (Decision, error) {
	return l.counter.Take(ctx, key, l.limit)
}

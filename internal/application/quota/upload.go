package quota

import (
	"context"
	"fmt"
	"time"

	"file-manager-api/internal/domain/apperror"
	"file-manager-api/internal/domain/file"
)

type (
	Limits struct {
		Window          time.Duration
		MaxRequests     int
		MaxBytes        int64
		MaxStorageBytes int64
		// StoreCapacity bounds how many owners are tracked in memory.
		StoreCapacity int
	}
	Reservation struct {
		Allowed           bool
		RemainingInWindow int
		ResetAt           time.Time
	}

	// StorageUsage reads committed state; it is the only layer that
	// survives a restart.
	StorageUsage interface {
		SumSizeMB(ctx context.Context, ownerID string, status file.Status) (float64, error)
	}
)

func DefaultLimits() Limits {
	return Limits{
		Window:          time.Hour,
		MaxRequests:     20,
		MaxBytes:        100 << 20,
		MaxStorageBytes: 500 << 20,
		StoreCapacity:   defaultStoreCapacity,
	}
}

type UploadLimiter struct {
	limits Limits
	usage  StorageUsage
	store  *WindowStore
	now    func() time.Time
}

type Option func(*UploadLimiter)

func WithClock(now func() time.Time) Option {
	return func(l *UploadLimiter) { l.now = now }
}

func NewUploadLimiter(limits Limits, usage StorageUsage, opts ...Option) *UploadLimiter {
	l := &UploadLimiter{
		limits: limits,
		usage:  usage,
		store:  NewWindowStore(limits.StoreCapacity, limits.Window),
		now:    time.Now,
	}
	for _, o := range opts {
		o(l)
	}
	return l
}

// CheckAndReserve admits one upload of size bytes for ownerID. Counters
// are only incremented when every layer passes.
func (l *UploadLimiter) CheckAndReserve(ctx context.Context, ownerID string, size int64) (Reservation, error) {
	now := l.now()

	var (
		res Reservation
		err error
	)
	l.store.With(ownerID, now, func(w *window) {
		resetAt := w.resetAt(l.limits.Window)
		res.ResetAt = resetAt

		if w.count >= l.limits.MaxRequests {
			err = apperror.Quota(fmt.Sprintf(
				"upload limit exceeded: maximum %d uploads per %s, try again after %s",
				l.limits.MaxRequests, l.limits.Window, resetAt.UTC().Format(time.RFC3339),
			), resetAt)
			return
		}
		if w.bytes+size > l.limits.MaxBytes {
			err = apperror.Quota(fmt.Sprintf(
				"upload volume exceeded: maximum %.2fMB per %s, try again after %s",
				mb(l.limits.MaxBytes), l.limits.Window, resetAt.UTC().Format(time.RFC3339),
			), resetAt)
			return
		}

		usedMB, uerr := l.usage.SumSizeMB(ctx, ownerID, file.StatusCompleted)
		if uerr != nil {
			err = apperror.Classify(uerr, apperror.KindInternal, "failed to read storage usage")
			return
		}
		used := file.BytesFromMB(usedMB)
		if used+size > l.limits.MaxStorageBytes {
			err = apperror.Quota(fmt.Sprintf(
				"storage quota exceeded: maximum %.2fMB per user, current usage %.2fMB",
				mb(l.limits.MaxStorageBytes), usedMB,
			), time.Time{})
			return
		}

		w.count++
		w.bytes += size

		res.Allowed = true
		res.RemainingInWindow = l.limits.MaxRequests - w.count
	})

	return res, err
}

func mb(n int64) float64 { return float64(n) / (1 << 20) }

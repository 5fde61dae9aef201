// Package objectstore wraps a raw backend with retries, typed errors and a
// fixed presign expiry.
package objectstore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"file-manager-api/internal/application/ports"
)

const PresignExpiry = time.Hour

type Config struct {
	Attempts    int
	BaseBackoff time.Duration
	MaxBackoff  time.Duration
}

func DefaultConfig() Config {
	return Config{Attempts: 3, BaseBackoff: 100 * time.Millisecond, MaxBackoff: 2 * time.Second}
}

type Adapter struct {
	backend ports.ObjectBackend
	logger  *zap.Logger
	cfg     Config
	wait    func(ctx context.Context, d time.Duration) error
}

func New(backend ports.ObjectBackend, logger *zap.Logger, cfg Config) ports.ObjectStore {
	def := DefaultConfig()
	if cfg.Attempts <= 0 {
		cfg.Attempts = def.Attempts
	}
	if cfg.BaseBackoff <= 0 {
		cfg.BaseBackoff = def.BaseBackoff
	}
	if cfg.MaxBackoff <= 0 {
		cfg.MaxBackoff = def.MaxBackoff
	}

	return &Adapter{backend: backend, logger: logger, cfg: cfg, wait: sleep}
}

func sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()

	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (a *Adapter) Bucket() string { return a.backend.Bucket() }

// Put retries transient failures with exponential backoff. A missing
// bucket and caller cancellation end the loop immediately.
func (a *Adapter) Put(ctx context.Context, key string, data []byte, contentType string, metadata map[string]string) error {
	delay := a.cfg.BaseBackoff

	var err error
	for attempt := 1; attempt <= a.cfg.Attempts; attempt++ {
		err = a.backend.PutObject(ctx, key, data, contentType, metadata)
		if err == nil {
			return nil
		}
		if errors.Is(err, ports.ErrBucketNotFound) {
			return fmt.Errorf("put %s: %w", key, err)
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return fmt.Errorf("put %s: %w", key, ctxErr)
		}
		if attempt == a.cfg.Attempts {
			break
		}

		a.logger.Warn("object put failed, retrying",
			zap.String("storage_key", key),
			zap.Int("attempt", attempt),
			zap.Duration("backoff", delay),
			zap.Error(err),
		)
		if werr := a.wait(ctx, delay); werr != nil {
			return fmt.Errorf("put %s: %w", key, werr)
		}
		delay = min(delay*2, a.cfg.MaxBackoff)
	}

	return fmt.Errorf("put %s failed after %d attempts: %w", key, a.cfg.Attempts, err)
}

func (a *Adapter) Get(ctx context.Context, key string) ([]byte, error) {
	b, err := a.backend.GetObject(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("get %s: %w", key, err)
	}

	return b, nil
}

// Delete treats an already missing object as deleted.
func (a *Adapter) Delete(ctx context.Context, key string) error {
	if err := a.backend.DeleteObject(ctx, key); err != nil && !errors.Is(err, ports.ErrObjectNotFound) {
		return fmt.Errorf("delete %s: %w", key, err)
	}

	return nil
}

// Exists never fails; any probe error reads as "not there".
func (a *Adapter) Exists(ctx context.Context, key string) bool {
	err := a.backend.StatObject(ctx, key)
	if err == nil {
		return true
	}
	if !errors.Is(err, ports.ErrObjectNotFound) {
		a.logger.Debug("object probe failed", zap.String("storage_key", key), zap.Error(err))
	}

	return false
}

func (a *Adapter) PresignGet(ctx context.Context, key string) (string, time.Duration, error) {
	url, err := a.backend.PresignGetObject(ctx, key, PresignExpiry)
	if err != nil {
		return "", 0, fmt.Errorf("presign %s: %w", key, err)
	}

	return url, PresignExpiry, nil
}

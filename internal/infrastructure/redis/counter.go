// Package redis holds the shared fixed-window request counter used when
// several processes must agree on one limit.
package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"file-manager-api/config"
	"file-manager-api/internal/application/quota"
)

const keyPrefix = "filemanager:ratelimit:"

func New(ctx context.Context, logger *zap.Logger, cfg config.Redis) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis ping %s: %w", cfg.Addr, err)
	}
	logger.Info("connected to redis", zap.String("addr", cfg.Addr))

	return client, nil
}

// Counter is a quota.Counter backed by INCR with a window-long expiry set
// on the first hit.
type Counter struct {
	client redis.Cmdable
	window time.Duration
	now    func() time.Time
}

func NewCounter(client redis.Cmdable, window time.Duration) *Counter {
	return &Counter{client: client, window: window, now: time.Now}
}

func (c *Counter) Take(ctx context.Context, key string, limit int) (quota.Decision, error) {
	k := keyPrefix + key

	n, err := c.client.Incr(ctx, k).Result()
	if err != nil {
		return quota.Decision{}, fmt.Errorf("incr %s: %w", k, err)
	}
	if n == 1 {
		if err = c.client.PExpire(ctx, k, c.window).Err(); err != nil {
			return quota.Decision{}, fmt.Errorf("pexpire %s: %w", k, err)
		}
	}

	ttl, err := c.client.PTTL(ctx, k).Result()
	if err != nil {
		return quota.Decision{}, fmt.Errorf("pttl %s: %w", k, err)
	}
	// A key left without expiry by a failed PEXPIRE would never reset.
	if ttl < 0 {
		ttl = c.window
		if err = c.client.PExpire(ctx, k, c.window).Err(); err != nil {
			return quota.Decision{}, fmt.Errorf("pexpire %s: %w", k, err)
		}
	}

	d := quota.Decision{ResetAt: c.now().Add(ttl)}
	if n > int64(limit) {
		return d, nil
	}
	d.Allowed = true
	d.Remaining = limit - int(n)

	return d, nil
}

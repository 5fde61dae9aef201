package ports

import (
	"context"

	"file-manager-api/internal/application/quota"
)

type UploadLimiter interface {
	CheckAndReserve(ctx context.Context, ownerID string, size int64) (quota.Reservation, error)
}

type RequestLimiter interface {
	Allow(ctx context.Context, key string) (quota.Decision, error)
}

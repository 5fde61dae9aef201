package ports

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrBucketNotFound is a configuration error and is never retried.
	ErrBucketNotFound = errors.New("object store bucket does not exist")
	ErrObjectNotFound = errors.New("object not found")
)

// ObjectBackend is a raw S3-compatible driver.
type ObjectBackend interface {
	Bucket() string
	PutObject(ctx context.Context, key string, data []byte, contentType string, metadata map[string]string) error
	GetObject(ctx context.Context, key string) ([]byte, error)
	DeleteObject(ctx context.Context, key string) error
	// StatObject returns ErrObjectNotFound when the key is absent.
	StatObject(ctx context.Context, key string) error
	PresignGetObject(ctx context.Context, key string, expires time.Duration) (string, error)
}

// ObjectStore is what the orchestrators talk to.
type ObjectStore interface {
	Bucket() string
	Put(ctx context.Context, key string, data []byte, contentType string, metadata map[string]string) error
	Get(ctx context.Context, key string) ([]byte, error)
	Delete(ctx context.Context, key string) error
	Exists(ctx context.Context, key string) bool
	PresignGet(ctx context.Context, key string) (string, time.Duration, error)
}

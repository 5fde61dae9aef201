package file

import (
	"context"
	"errors"
)

// ErrDuplicateName is returned when the store's uniqueness constraint on
// live (owner, name) pairs rejects a write.
var ErrDuplicateName = errors.New("a live file with this name already exists for the owner")

// Repository reads committed state. Fetch methods return (nil, nil) when
// nothing matches.
type Repository interface {
	Begin(ctx context.Context) (Tx, error)

	FetchFile(ctx context.Context, id ID, ownerID string) (*File, error)
	FetchFileByStatus(ctx context.Context, id ID, ownerID string, status Status) (*File, error)
	FetchFiles(ctx context.Context, ownerID string) (Files, error)
	FetchFileByName(ctx context.Context, ownerID, name string, status Status) (*File, error)
	SumSizeMB(ctx context.Context, ownerID string, status Status) (float64, error)

	// CreateFile writes outside any saga transaction (diagnostic FAILED rows).
	CreateFile(ctx context.Context, f *File) (*File, error)
	// RestoreFile upserts f back to COMPLETED.
	RestoreFile(ctx context.Context, f *File) error
	MarkFailed(ctx context.Context, id ID, ownerID, message string) error
}

// Tx is one metadata transaction. Every write is scoped by owner.
type Tx interface {
	CreateFile(ctx context.Context, f *File) (*File, error)
	UpdateStatus(ctx context.Context, id ID, ownerID string, status Status) (*File, error)
	RemoveFile(ctx context.Context, id ID, ownerID string) error

	Commit(ctx context.Context) error
	Rollback(ctx context.Context) error
}

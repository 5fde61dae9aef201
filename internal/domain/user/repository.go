package user

import (
	"context"
)

type Repository interface {
	// FetchUserByID returns (nil, nil) for an identity that was never provisioned.
	FetchUserByID(ctx context.Context, id ID) (*User, error)
	UpsertUser(ctx context.Context, req User) (*User, error)
}

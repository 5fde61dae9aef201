package ports

import (
	"context"

	"file-manager-api/internal/domain/user"
)

type UserService interface {
	SyncUser(ctx context.Context, u user.User) (*user.User, error)
	FindUser(ctx context.Context, id user.ID) (*user.User, error)
}

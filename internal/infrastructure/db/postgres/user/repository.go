package user

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"

	"file-manager-api/internal/domain/user"
	"file-manager-api/internal/infrastructure/db/postgres"
)

type Repository struct {
	db postgres.DB
}

func NewRepository(db postgres.DB) user.Repository {
	return &Repository{db: db}
}

func (r *Repository) FetchUserByID(ctx context.Context, id user.ID) (*user.User, error) {
	u := new(User)
	err := r.db.QueryRow(ctx, SelectUserByID, id).Scan(
		&u.ID,
		&u.Email,
		&u.FirstName,
		&u.LastName,

		&u.CreatedAt,
		&u.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}

	return fromDBModel(u), nil
}

func (r *Repository) UpsertUser(ctx context.Context, req user.User) (*user.User, error) {
	u := new(User)

	err := r.db.QueryRow(
		ctx,
		UpsertUser,
		req.ID, req.Email, req.FirstName, req.LastName,
	).Scan(
		&u.ID,
		&u.Email,
		&u.FirstName,
		&u.LastName,

		&u.CreatedAt,
		&u.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	return fromDBModel(u), nil
}

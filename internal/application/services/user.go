package services

import (
	"context"
	"strings"

	"github.com/prometheus/client_golang/prometheus"

	"file-manager-api/internal/application/ports"
	"file-manager-api/internal/domain/apperror"
	domain "file-manager-api/internal/domain/user"
)

type UserService struct {
	userRepository domain.Repository
	mCounter       *prometheus.CounterVec
}

func NewUserService(
	userRepository domain.Repository,
	mCounter *prometheus.CounterVec,
) ports.UserService {
	return &UserService{
		userRepository: userRepository,
		mCounter:       mCounter,
	}
}

// SyncUser provisions the caller on first sight and refreshes the profile
// afterwards. Empty profile fields keep what is stored.
func (us *UserService) SyncUser(ctx context.Context, u domain.User) (*domain.User, error) {
	if strings.TrimSpace(u.ID) == "" {
		return nil, apperror.Validation("user id is required")
	}

	uRet, err := us.userRepository.UpsertUser(ctx, u)
	if err != nil {
		return nil, apperror.Classify(err, apperror.KindInternal, "failed to sync user")
	}

	us.mCounter.WithLabelValues("user_synced_total").Inc()

	return uRet, nil
}

func (us *UserService) FindUser(ctx context.Context, id domain.ID) (*domain.User, error) {
	u, err := us.userRepository.FetchUserByID(ctx, id)
	if err != nil {
		return nil, apperror.Classify(err, apperror.KindInternal, "failed to fetch user")
	}
	if u == nil {
		return nil, apperror.NotFound("user not found")
	}

	return u, nil
}

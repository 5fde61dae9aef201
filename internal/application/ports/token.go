package ports

import (
	"file-manager-api/internal/infrastructure/jwt"
)

type TokenVerifier interface {
	ValidateToken(tokenStr string) (*jwt.Claims, error)
}

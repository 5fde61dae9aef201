package jwt

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/MicahParks/keyfunc/v3"
	"github.com/golang-jwt/jwt/v5"
)

// Service verifies bearer tokens issued by the identity provider, either
// with a shared HMAC secret or against a remote JWKS.
type Service struct {
	jwtSecret string
	keyFunc   jwt.Keyfunc
	methods   []string
}

func New(jwtSecret string) *Service {
	s := &Service{jwtSecret: jwtSecret, methods: []string{jwt.SigningMethodHS256.Alg()}}
	s.keyFunc = func(*jwt.Token) (interface{}, error) { return []byte(s.jwtSecret), nil }
	return s
}

// NewJWKS refreshes keys from jwksURL in the background until ctx ends.
func NewJWKS(ctx context.Context, jwksURL string) (*Service, error) {
	k, err := keyfunc.NewDefaultCtx(ctx, []string{jwksURL})
	if err != nil {
		return nil, fmt.Errorf("jwks %s: %w", jwksURL, err)
	}

	return &Service{
		keyFunc: k.Keyfunc,
		methods: []string{"RS256", "RS384", "RS512", "ES256", "ES384", "PS256"},
	}, nil
}

type Claims struct {
	Email     string `json:"email,omitempty"`
	FirstName string `json:"given_name,omitempty"`
	LastName  string `json:"family_name,omitempty"`
	jwt.RegisteredClaims
}

// UserID is the opaque owner identity, taken from sub.
func (c *Claims) UserID() string { return c.Subject }

func (s *Service) GenerateJWT(userID, email string, expiresIn time.Duration) (string, error) {
	if s.jwtSecret == "" {
		return "", errors.New("signing requires a secret")
	}
	claims := Claims{
		Email: email,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(expiresIn)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)

	return token.SignedString([]byte(s.jwtSecret))
}

func (s *Service) ValidateToken(tokenStr string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenStr, &Claims{}, s.keyFunc, jwt.WithValidMethods(s.methods))
	if err != nil || !token.Valid {
		return nil, errors.New("invalid token")
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || claims.Subject == "" {
		return nil, errors.New("invalid claims")
	}
	return claims, nil
}

package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"file-manager-api/internal/application/ports"
	"file-manager-api/internal/domain/apperror"
	"file-manager-api/internal/domain/user"
)

const (
	CtxUserID    = "userID"
	CtxUserEmail = "userEmail"
)

func AuthMiddleware(verifier ports.TokenVerifier) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			c.AbortWithStatusJSON(
				http.StatusUnauthorized,
				gin.H{"error": "missing Authorization header"},
			)
			return
		}

		tokenStr := strings.TrimPrefix(authHeader, "Bearer ")
		if tokenStr == authHeader {
			c.AbortWithStatusJSON(
				http.StatusUnauthorized,
				gin.H{"error": "invalid token format"},
			)
			return
		}

		claims, err := verifier.ValidateToken(tokenStr)
		if err != nil {
			c.AbortWithStatusJSON(
				http.StatusUnauthorized,
				gin.H{"error": "invalid token"},
			)
			return
		}

		c.Set(CtxUserID, claims.UserID())
		c.Set(CtxUserEmail, claims.Email)

		c.Next()
	}
}

// UserID returns the authenticated owner, if any.
func UserID(c *gin.Context) (string, bool) {
	id := c.GetString(CtxUserID)
	return id, id != ""
}

// ProvisionUser makes sure the authenticated caller has a user row,
// creating it from the token claims on first sight.
func ProvisionUser(users ports.UserService, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := UserID(c)
		if !ok {
			c.Next()
			return
		}

		_, err := users.FindUser(c.Request.Context(), id)
		if err == nil {
			c.Next()
			return
		}
		if !apperror.Is(err, apperror.KindNotFound) {
			logger.Error("FindUser() error", zap.Error(err))
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
			return
		}

		if _, err = users.SyncUser(c.Request.Context(), user.User{ID: id, Email: c.GetString(CtxUserEmail)}); err != nil {
			logger.Error("SyncUser() error", zap.Error(err))
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
			return
		}

		c.Next()
	}
}

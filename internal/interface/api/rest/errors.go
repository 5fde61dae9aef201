package rest

import (
	"errors"
	"math"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"file-manager-api/internal/domain/apperror"
)

// writeError maps the error taxonomy onto HTTP. Only caller-recoverable
// kinds expose their message; the rest are logged and answered generically.
func writeError(c *gin.Context, logger *zap.Logger, op string, err error) {
	ae, ok := apperror.As(err)
	if !ok {
		ae = &apperror.Error{Kind: apperror.KindOf(err), Err: err}
	}

	switch ae.Kind {
	case apperror.KindValidation:
		c.JSON(http.StatusBadRequest, gin.H{"error": ae.Message})
	case apperror.KindNotFound:
		c.JSON(http.StatusNotFound, gin.H{"error": ae.Message})
	case apperror.KindConflict:
		c.JSON(http.StatusConflict, gin.H{"error": ae.Message})
	case apperror.KindQuota:
		writeTooManyRequests(c, ae.Message, ae.ResetAt)
	case apperror.KindStorage:
		logger.Error(op+"() error", zap.Error(err))
		c.JSON(http.StatusBadGateway, gin.H{"error": "storage unavailable"})
	case apperror.KindTimeout:
		logger.Error(op+"() error", zap.Error(err))
		c.JSON(http.StatusGatewayTimeout, gin.H{"error": "request timed out"})
	default:
		logger.Error(op+"() error", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}

func writeTooManyRequests(c *gin.Context, msg string, resetAt time.Time) {
	body := gin.H{"error": msg}
	if !resetAt.IsZero() {
		c.Header("Retry-After", strconv.Itoa(retryAfterSeconds(resetAt, time.Now())))
		body["reset_at"] = resetAt.UTC().Format(time.RFC3339)
	}
	c.AbortWithStatusJSON(http.StatusTooManyRequests, body)
}

func retryAfterSeconds(resetAt, now time.Time) int {
	s := int(math.Ceil(resetAt.Sub(now).Seconds()))
	if s < 1 {
		return 1
	}
	return s
}

var errNoIdentity = errors.New("authenticated user missing from context")

package middleware

import (
	"math"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"file-manager-api/internal/application/ports"
)

// RateLimit bounds request counts per caller, keyed by user id when
// authenticated and by client ip otherwise. Limiter failures let the
// request through.
func RateLimit(limiter ports.RequestLimiter, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		if limiter == nil {
			c.Next()
			return
		}

		key := "ip:" + c.ClientIP()
		if id, ok := UserID(c); ok {
			key = "user:" + id
		}

		d, err := limiter.Allow(c.Request.Context(), key)
		if err != nil {
			logger.Error("rate limiter unavailable, allowing request", zap.String("key", key), zap.Error(err))
			c.Next()
			return
		}

		c.Header("X-RateLimit-Remaining", strconv.Itoa(d.Remaining))
		if !d.Allowed {
			logger.Warn("rate limit exceeded", zap.String("key", key), zap.Time("reset_at", d.ResetAt))

			retry := int(math.Ceil(time.Until(d.ResetAt).Seconds()))
			if retry < 1 {
				retry = 1
			}
			c.Header("Retry-After", strconv.Itoa(retry))
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"error":    "too many requests, please try again later",
				"reset_at": d.ResetAt.UTC().Format(time.RFC3339),
			})
			return
		}

		c.Next()
	}
}

package middleware

import (
	"bytes"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

const maxLogBodySize = 1 << 12 // 4 KB

var quietPaths = map[string]struct{}{
	"/favicon.ico": {},
	"/healthz":     {},
	"/metrics":     {},
}

func RequestLogGin(logger *zap.Logger, mCounter *prometheus.CounterVec) gin.HandlerFunc {
	return func(c *gin.Context) {
		if _, quiet := quietPaths[c.Request.URL.Path]; quiet || c.Request.Method == http.MethodOptions {
			c.Next()
			return
		}

		start := time.Now()
		body := peekBody(c.Request)

		c.Next()

		status := c.Writer.Status()
		failed := status >= http.StatusInternalServerError
		if mCounter != nil {
			mCounter.WithLabelValues("app_requests_total").Inc()
			if failed {
				mCounter.WithLabelValues("app_requests_failed_total").Inc()
			}
		}

		route := c.FullPath()
		if route == "" {
			route = c.Request.URL.Path
		}

		level := zapcore.InfoLevel
		if failed {
			level = zapcore.WarnLevel
		}

		logger.Log(level, "HTTP request",
			zap.String("method", c.Request.Method),
			zap.String("route", route),
			zap.Int("status", status),
			zap.Duration("duration", time.Since(start)),
			zap.String("body", body),
			zap.String("user_id", c.GetString(CtxUserID)),
			zap.String("client_ip", c.ClientIP()),
			zap.String("user_agent", c.Request.UserAgent()),
		)
	}
}

// peekBody returns up to maxLogBodySize bytes of the body and leaves the
// full body readable for the handler. Uploads are never buffered.
func peekBody(r *http.Request) string {
	if r.Body == nil || r.Body == http.NoBody {
		return ""
	}
	if strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data") {
		return "<multipart/form-data omitted>"
	}

	head := make([]byte, maxLogBodySize)
	n, _ := io.ReadFull(r.Body, head)
	head = head[:n]

	r.Body = struct {
		io.Reader
		io.Closer
	}{io.MultiReader(bytes.NewReader(head), r.Body), r.Body}

	return string(head)
}

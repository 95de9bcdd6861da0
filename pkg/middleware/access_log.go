package middleware

import (
	"strconv"
	"time"

	"github.com/devconnector/devconnector/backend/go-services/pkg/logger"
	"github.com/devconnector/devconnector/backend/go-services/pkg/metrics"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const (
	RequestIDHeader = "X-Request-ID"
	// RequestIDKey holds the request id in the gin context.
	RequestIDKey = "requestID"
)

// AccessLog assigns a request id, records HTTP metrics and writes one log
// line per request.
func AccessLog() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		rid := c.GetHeader(RequestIDHeader)
		if rid == "" {
			rid = uuid.NewString()
		}
		c.Set(RequestIDKey, rid)
		c.Header(RequestIDHeader, rid)

		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		status := c.Writer.Status()
		dur := time.Since(start)

		metrics.HTTPRequests.WithLabelValues(c.Request.Method, route, strconv.Itoa(status)).Inc()
		metrics.HTTPDuration.WithLabelValues(c.Request.Method, route).Observe(dur.Seconds())

		entry := logger.WithFields(logger.Fields{
			"rid":     rid,
			"method":  c.Request.Method,
			"path":    c.Request.URL.Path,
			"status":  status,
			"latency": dur,
			"ip":      c.ClientIP(),
		})
		switch {
		case status >= 500:
			entry.Errorf("HTTP access")
		case status >= 400:
			entry.Warnf("HTTP access")
		default:
			entry.Infof("HTTP access")
		}
	}
}

package middleware

import (
	"time"

	"spiresync/internal/logger"

	"github.com/gin-gonic/gin"
)

// Logger writes one access line per request. Server errors are logged at
// error level, client errors at warn.
func Logger(log *logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		if raw := c.Request.URL.RawQuery; raw != "" {
			path += "?" + raw
		}

		c.Next()

		status := c.Writer.Status()
		entry := log.
			WithField("status", status).
			WithField("latency", time.Since(start).String()).
			WithField("client_ip", c.ClientIP())

		switch {
		case status >= 500:
			entry.Error("%s %s", c.Request.Method, path)
		case status >= 400:
			entry.Warn("%s %s", c.Request.Method, path)
		default:
			entry.Debug("%s %s", c.Request.Method, path)
		}
	}
}

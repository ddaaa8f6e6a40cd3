package middleware

import (
	"errors"
	"net/http"
	"runtime/debug"
	"syscall"

	"spiresync/internal/logger"

	"github.com/gin-gonic/gin"
)

// Recovery turns a handler panic into a JSON 500. Panics caused by a client
// that went away are dropped without a response.
func Recovery(log *logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			recovered := recover()
			if recovered == nil {
				return
			}

			entry := log.
				WithField("method", c.Request.Method).
				WithField("path", c.Request.URL.Path)

			if err, ok := recovered.(error); ok && clientGone(err) {
				entry.Debug("Client disconnected: %v", err)
				c.Abort()
				return
			}

			entry.Error("Handler panicked: %v", recovered)
			entry.Debug("%s", debug.Stack())
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		}()

		c.Next()
	}
}

func clientGone(err error) bool {
	return errors.Is(err, syscall.EPIPE) ||
		errors.Is(err, syscall.ECONNRESET) ||
		errors.Is(err, http.ErrAbortHandler)
}

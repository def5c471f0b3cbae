package middleware

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/claritydx/feesched-api/pkg/logger"
)

// Logger logs every request after it completes, keyed by the request ID set
// by the RequestID middleware.
func Logger(log *logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		if raw := c.Request.URL.RawQuery; raw != "" {
			path = path + "?" + raw
		}

		c.Next()

		status := c.Writer.Status()
		event := log.ZL.Info()
		if status >= 500 {
			event = log.ZL.Error()
		} else if status >= 400 {
			event = log.ZL.Warn()
		}

		event.
			Str("request_id", c.GetString(ContextRequestID)).
			Str("method", c.Request.Method).
			Str("path", path).
			Str("client_ip", c.ClientIP()).
			Int("status", status).
			Dur("latency", time.Since(start)).
			Msg("request processed")
	}
}

package middleware

import (
	"time"

	"flightbook/internal/utils"

	"github.com/gin-gonic/gin"
)

// Logger writes one structured access line per request.
func Logger(log utils.Logger) gin.HandlerFunc {
	if log == nil {
		log = utils.NewNopLogger()
	}
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		latency := time.Since(start)

		status := c.Writer.Status()
		fields := []interface{}{
			"request_id", GetRequestID(c),
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", status,
			"latency_ms", float64(latency.Microseconds()) / 1000.0,
			"ip", c.ClientIP(),
		}
		switch {
		case status >= 500:
			log.Error("http request", fields...)
		case status >= 400:
			log.Warn("http request", fields...)
		default:
			log.Info("http request", fields...)
		}
	}
}

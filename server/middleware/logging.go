package middleware

import (
	"slices"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/kbukum/apikit/logger"
)

var healthPaths = []string{"/health", "/alive", "/ready", "/metrics"}

// RequestLogger returns a Gin middleware that logs every request with method,
// path, status code, and duration. Health-check paths are silently skipped.
func RequestLogger(log *logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		if isHealthEndpoint(c.Request.URL.Path) {
			c.Next()
			return
		}

		start := time.Now()
		c.Next()

		latency := time.Since(start)
		status := c.Writer.Status()
		path := c.Request.URL.Path
		if q := c.Request.URL.RawQuery; q != "" {
			path = path + "?" + q
		}

		fields := map[string]interface{}{
			"method":             c.Request.Method,
			"path":               path,
			logger.FieldStatus:   status,
			logger.FieldDuration: latency.Milliseconds(),
			"client":             c.ClientIP(),
		}
		if latency > 500*time.Millisecond {
			fields["slow"] = true
		}
		logByStatus(log.WithContext(c.Request.Context()), fields, status)
	}
}

func isHealthEndpoint(path string) bool {
	return slices.Contains(healthPaths, path)
}

func logByStatus(log *logger.Logger, fields map[string]interface{}, status int) {
	switch {
	case status >= 500:
		log.Error("Request completed", fields)
	case status >= 400:
		log.Warn("Request completed", fields)
	default:
		log.Debug("Request completed", fields)
	}
}

package middleware

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/kbukum/apikit/logger"
)

// Header names propagated by RequestID.
const (
	HeaderRequestID     = "X-Request-Id"
	HeaderCorrelationID = "X-Correlation-Id"
)

// RequestID injects a unique X-Request-Id header into every request/response
// and stores it in the request context. The correlation id defaults to the
// request id, so downstream calls made by the handler share it.
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(HeaderRequestID)
		if id == "" {
			id = uuid.New().String()
		}
		corr := c.GetHeader(HeaderCorrelationID)
		if corr == "" {
			corr = id
		}

		ctx := logger.ContextWithRequestID(c.Request.Context(), id)
		ctx = logger.ContextWithCorrelationID(ctx, corr)
		c.Request = c.Request.WithContext(ctx)

		c.Set("request_id", id)
		c.Header(HeaderRequestID, id)
		c.Header(HeaderCorrelationID, corr)
		c.Next()
	}
}

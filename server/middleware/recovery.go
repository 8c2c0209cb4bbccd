package middleware

import (
	"fmt"
	"net/http"
	"runtime/debug"

	"github.com/gin-gonic/gin"

	apperrors "github.com/kbukum/apikit/errors"
	"github.com/kbukum/apikit/logger"
)

// Recovery returns a Gin middleware that recovers from panics and logs the stack.
func Recovery(log *logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if err := recover(); err != nil {
				log.WithContext(c.Request.Context()).Error("Panic recovered", map[string]interface{}{
					"error":     fmt.Sprintf("%v", err),
					"stack":     string(debug.Stack()),
					"path":      c.Request.URL.Path,
					"method":    c.Request.Method,
					"client_ip": c.ClientIP(),
				})
				c.AbortWithStatusJSON(http.StatusInternalServerError,
					apperrors.Internal(fmt.Errorf("panic: %v", err)).ToResponse())
			}
		}()
		c.Next()
	}
}

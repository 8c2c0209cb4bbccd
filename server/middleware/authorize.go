package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/kbukum/apikit/auth/authctx"
	"github.com/kbukum/apikit/authz"
	apperrors "github.com/kbukum/apikit/errors"
	"github.com/kbukum/apikit/logger"
)

// Authorize rejects gateway requests whose caller holds no grant for the
// target service. It runs after Principal. Anonymous callers get 401, known
// principals 403.
func Authorize(checker authz.Checker, log *logger.Logger) gin.HandlerFunc {
	if log == nil {
		log = logger.Nop()
	}
	return func(c *gin.Context) {
		p, _ := authctx.Principal(c.Request.Context())
		permission := authz.Permission(c.Param("service"), c.Request.Method)
		if authz.Allowed(checker, authz.Subjects(p), permission) {
			c.Next()
			return
		}

		log.WithContext(c.Request.Context()).Debug("gateway access denied", logger.Fields("permission", permission))
		if p == nil {
			unauthorized(c, "Authorization header required")
			return
		}
		c.AbortWithStatusJSON(http.StatusForbidden, apperrors.Forbidden("Access to "+permission+" is not granted.").ToResponse())
	}
}

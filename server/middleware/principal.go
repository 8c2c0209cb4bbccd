package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/kbukum/apikit/auth"
	"github.com/kbukum/apikit/auth/authctx"
	"github.com/kbukum/apikit/auth/jwt"
	apperrors "github.com/kbukum/apikit/errors"
	"github.com/kbukum/apikit/logger"
)

// TokenParser turns a bearer token into the principal it was issued to.
type TokenParser func(token string) (*auth.Principal, error)

// JWTParser parses tokens with svc and converts their claims.
func JWTParser(svc *jwt.Service[*jwt.Claims]) TokenParser {
	return func(token string) (*auth.Principal, error) {
		claims, err := svc.Parse(token)
		if err != nil {
			return nil, err
		}
		return claims.Principal(), nil
	}
}

// PrincipalConfig configures the Principal middleware.
type PrincipalConfig struct {
	Parser TokenParser
	// Optional lets requests without an Authorization header through
	// anonymously. Invalid tokens are always rejected.
	Optional bool
	// SkipPaths are URL path prefixes that bypass authentication.
	SkipPaths []string
	Log       *logger.Logger
}

// Principal returns a Gin middleware that validates bearer tokens and stores
// the resulting principal in the request context (see authctx), where the
// user flow of downstream calls picks it up.
func Principal(cfg PrincipalConfig) gin.HandlerFunc {
	log := cfg.Log
	if log == nil {
		log = logger.Nop()
	}
	return func(c *gin.Context) {
		path := c.Request.URL.Path
		for _, skip := range cfg.SkipPaths {
			if strings.HasPrefix(path, skip) {
				c.Next()
				return
			}
		}

		header := c.GetHeader("Authorization")
		if header == "" {
			if cfg.Optional {
				c.Next()
				return
			}
			unauthorized(c, "Authorization header required")
			return
		}

		token, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || token == "" {
			unauthorized(c, "Invalid authorization header format")
			return
		}

		p, err := cfg.Parser(token)
		if err != nil {
			log.WithContext(c.Request.Context()).Debug("bearer token rejected", logger.Fields(logger.FieldError, err.Error()))
			unauthorized(c, "Invalid token")
			return
		}

		ctx := authctx.WithPrincipal(c.Request.Context(), p)
		ctx = logger.ContextWithUserID(ctx, p.ID())
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}

func unauthorized(c *gin.Context, msg string) {
	c.AbortWithStatusJSON(http.StatusUnauthorized, apperrors.Unauthorized(msg).ToResponse())
}

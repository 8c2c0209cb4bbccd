package server

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/kbukum/apikit/auth/authctx"
	"github.com/kbukum/apikit/downstream"
	apperrors "github.com/kbukum/apikit/errors"
	"github.com/kbukum/apikit/httpclient"
)

// Gateway forwards /:service/*path to the named downstream API. Requests
// carrying a principal use the user flow on its behalf; others use the flow
// configured for the service. Method, query and body are passed through and
// the response content is streamed back.
func Gateway(api *downstream.API) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()
		service := c.Param("service")

		var in downstream.Input = downstream.None
		if c.Request.Body != nil && c.Request.ContentLength != 0 {
			in = downstream.Stream{Reader: c.Request.Body}
		}

		opts := []downstream.CallOption{downstream.WithOptions(forwardOptions(c.Request, c.Param("path")))}
		if p, ok := authctx.Principal(ctx); ok {
			opts = append(opts, downstream.ForUser(p))
		}

		resp, err := api.CallRaw(ctx, service, in, opts...)
		if err != nil {
			RespondWithError(c, gatewayError(ctx, service, err))
			return
		}
		status := resp.StatusCode
		content, err := downstream.DeserializeOutput[*downstream.Content](resp, nil, nil)
		if err != nil {
			RespondWithError(c, gatewayError(ctx, service, err))
			return
		}
		defer content.Close()

		for k, v := range content.Header() {
			if k == "Content-Length" {
				continue
			}
			c.Writer.Header()[k] = v
		}
		c.Status(status)
		_, _ = io.Copy(c.Writer, content.Reader())
	}
}

func forwardOptions(r *http.Request, path string) func(*downstream.Options) {
	contentType := r.Header.Get("Content-Type")
	query := r.URL.Query()
	return func(o *downstream.Options) {
		o.HTTPMethod = r.Method
		if path != "" && path != "/" {
			o.RelativePath = strings.TrimRight(o.RelativePath, "/") + path
		}
		if len(query) > 0 && o.Query == nil {
			o.Query = make(map[string]string, len(query))
		}
		for k := range query {
			o.Query[k] = query.Get(k)
		}
		if contentType != "" {
			prev := o.CustomizeRequest
			o.CustomizeRequest = func(req *http.Request) {
				req.Header.Set("Content-Type", contentType)
				if prev != nil {
					prev(req)
				}
			}
		}
	}
}

// gatewayError maps a downstream failure onto the inbound response.
// Provider errors are opaque, so anything unclassified is reported as an
// authorization failure.
func gatewayError(ctx context.Context, service string, err error) error {
	var de *downstream.Error
	switch {
	case errors.As(err, &de):
		return de.AppError(service)
	case errors.Is(err, downstream.ErrUnknownService):
		return apperrors.NotFound("downstream service " + service)
	case errors.Is(err, authctx.ErrNoPrincipal):
		return apperrors.Unauthorized("A signed-in user is required.")
	case httpclient.IsTimeout(err):
		return apperrors.New(apperrors.ErrCodeTimeout, "The "+service+" API timed out.", http.StatusGatewayTimeout).WithCause(err)
	case httpclient.IsCircuitOpen(err):
		return apperrors.New(apperrors.ErrCodeServiceUnavailable, "The "+service+" API is unavailable.", http.StatusServiceUnavailable).WithCause(err)
	case httpclient.IsConnection(err):
		return apperrors.ExternalServiceError(service, err)
	case ctx.Err() != nil:
		return apperrors.Internal(ctx.Err())
	default:
		return apperrors.Authorization(err)
	}
}

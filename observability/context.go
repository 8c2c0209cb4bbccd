package observability

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// CallContext tracks one downstream call for tracing and metrics.
type CallContext struct {
	Service       string
	Method        string
	URL           string
	TokenFlow     string
	CorrelationID string
	StartTime     time.Time
	Metrics       *Metrics

	span trace.Span
}

// NewCallContext creates a call context. If metrics is nil, metric recording
// is skipped.
func NewCallContext(service, method, url, flow, correlationID string, metrics *Metrics) *CallContext {
	return &CallContext{
		Service:       service,
		Method:        method,
		URL:           url,
		TokenFlow:     flow,
		CorrelationID: correlationID,
		StartTime:     time.Now(),
		Metrics:       metrics,
	}
}

type callContextKey struct{}

// WithCallContext stores a CallContext in the context.
func WithCallContext(ctx context.Context, cc *CallContext) context.Context {
	return context.WithValue(ctx, callContextKey{}, cc)
}

// CallContextFromContext retrieves the CallContext from context, or nil.
func CallContextFromContext(ctx context.Context) *CallContext {
	if cc, ok := ctx.Value(callContextKey{}).(*CallContext); ok {
		return cc
	}
	return nil
}

// Start opens a client span for the call and records the call start.
func (cc *CallContext) Start(ctx context.Context) context.Context {
	ctx, cc.span = StartSpan(ctx, SpanDownstreamCall, trace.WithSpanKind(trace.SpanKindClient))
	cc.span.SetAttributes(
		attribute.String(AttrDownstream, cc.Service),
		attribute.String(AttrHTTPMethod, cc.Method),
		attribute.String(AttrURL, cc.URL),
		attribute.String(AttrTokenFlow, cc.TokenFlow),
	)
	if cc.CorrelationID != "" {
		cc.span.SetAttributes(attribute.String(AttrCorrelationID, cc.CorrelationID))
	}
	if cc.Metrics != nil {
		cc.Metrics.RecordCallStart(ctx, cc.Service)
	}
	return WithCallContext(ctx, cc)
}

// End closes the span and records the call end. statusCode is 0 when no
// response was received.
func (cc *CallContext) End(ctx context.Context, statusCode int, err error) {
	duration := time.Since(cc.StartTime)
	if cc.span != nil {
		if statusCode > 0 {
			cc.span.SetAttributes(attribute.Int(AttrStatusCode, statusCode))
		}
		cc.span.SetAttributes(attribute.Int64(AttrDurationMs, duration.Milliseconds()))
		if err != nil {
			SetSpanError(trace.ContextWithSpan(ctx, cc.span), err)
		}
		cc.span.End()
	}
	if cc.Metrics != nil {
		cc.Metrics.RecordCallEnd(ctx, cc.Service, cc.Method, statusCode, duration)
	}
}

// Duration returns the elapsed time since the call started.
func (cc *CallContext) Duration() time.Duration {
	return time.Since(cc.StartTime)
}

// Package observability provides OpenTelemetry tracing and metrics for
// downstream API calls.
//
// Tracing:
//
//	cfg := observability.DefaultTracerConfig("my-service")
//	tp, err := observability.InitTracer(ctx, &cfg)
//	defer tp.Shutdown(ctx)
//
// Metrics:
//
//	mp, err := observability.InitMeter(ctx, &cfg)
//	defer mp.Shutdown(ctx)
//	metrics, err := observability.NewMetrics(observability.Meter("my-service"))
//
// Each call made through downstream.API is wrapped in a CallContext, which
// opens a client span and records downstream.call.* instruments.
package observability

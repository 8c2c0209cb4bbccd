package observability

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetrichttp"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"

	"github.com/kbukum/apikit/logger"
)

// MeterConfig configures the OpenTelemetry meter provider.
type MeterConfig struct {
	ServiceName    string        `yaml:"service_name" mapstructure:"service_name"`
	ServiceVersion string        `yaml:"service_version" mapstructure:"service_version"`
	Environment    string        `yaml:"environment" mapstructure:"environment"`
	Endpoint       string        `yaml:"endpoint" mapstructure:"endpoint"`
	Insecure       bool          `yaml:"insecure" mapstructure:"insecure"`
	Interval       time.Duration `yaml:"interval" mapstructure:"interval"`
}

// DefaultMeterConfig returns sensible defaults for development.
func DefaultMeterConfig(serviceName string) MeterConfig {
	return MeterConfig{
		ServiceName:    serviceName,
		ServiceVersion: "1.0.0",
		Environment:    "development",
		Endpoint:       "localhost:4318",
		Insecure:       true,
		Interval:       15 * time.Second,
	}
}

// InitMeter initializes the OpenTelemetry meter provider and installs it
// globally. The returned provider should be shut down on exit.
func InitMeter(ctx context.Context, config *MeterConfig) (*sdkmetric.MeterProvider, error) {
	opts := []otlpmetrichttp.Option{
		otlpmetrichttp.WithEndpoint(config.Endpoint),
	}
	if config.Insecure {
		opts = append(opts, otlpmetrichttp.WithInsecure())
	}

	exporter, err := otlpmetrichttp.New(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("creating metric exporter: %w", err)
	}

	res, err := newResource(config.ServiceName, config.ServiceVersion, config.Environment)
	if err != nil {
		return nil, fmt.Errorf("creating resource: %w", err)
	}

	var readerOpts []sdkmetric.PeriodicReaderOption
	if config.Interval > 0 {
		readerOpts = append(readerOpts, sdkmetric.WithInterval(config.Interval))
	}

	mp := sdkmetric.NewMeterProvider(
		sdkmetric.WithReader(sdkmetric.NewPeriodicReader(exporter, readerOpts...)),
		sdkmetric.WithResource(res),
	)
	otel.SetMeterProvider(mp)

	logger.Info("meter initialized", logger.Fields(
		logger.FieldService, config.ServiceName,
		"endpoint", config.Endpoint,
		"interval", config.Interval.String(),
	))

	return mp, nil
}

// Meter returns a named meter from the global provider.
func Meter(name string) metric.Meter {
	return otel.Meter(name)
}

// Metrics holds the instruments recorded for downstream calls.
type Metrics struct {
	callTotal     metric.Int64Counter
	callDuration  metric.Float64Histogram
	callActive    metric.Int64UpDownCounter
	tokenFailures metric.Int64Counter
}

// NewMetrics creates metric instruments on the given meter.
func NewMetrics(meter metric.Meter) (*Metrics, error) {
	callTotal, err := meter.Int64Counter("downstream.call.total",
		metric.WithDescription("Total number of downstream calls"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating downstream.call.total counter: %w", err)
	}

	callDuration, err := meter.Float64Histogram("downstream.call.duration",
		metric.WithDescription("Duration of downstream calls in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating downstream.call.duration histogram: %w", err)
	}

	callActive, err := meter.Int64UpDownCounter("downstream.call.active",
		metric.WithDescription("Number of in-flight downstream calls"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating downstream.call.active gauge: %w", err)
	}

	tokenFailures, err := meter.Int64Counter("downstream.token.failures",
		metric.WithDescription("Authorization header acquisitions that failed"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating downstream.token.failures counter: %w", err)
	}

	return &Metrics{
		callTotal:     callTotal,
		callDuration:  callDuration,
		callActive:    callActive,
		tokenFailures: tokenFailures,
	}, nil
}

// RecordCallStart increments the in-flight call count.
func (m *Metrics) RecordCallStart(ctx context.Context, service string) {
	m.callActive.Add(ctx, 1, metric.WithAttributes(attribute.String("service", service)))
}

// RecordCallEnd decrements in-flight calls and records the completed call.
// statusCode is 0 when no response was received.
func (m *Metrics) RecordCallEnd(ctx context.Context, service, method string, statusCode int, duration time.Duration) {
	m.callActive.Add(ctx, -1, metric.WithAttributes(attribute.String("service", service)))
	m.callTotal.Add(ctx, 1, metric.WithAttributes(
		attribute.String("service", service),
		attribute.String("method", method),
		attribute.String("status", statusClass(statusCode)),
	))
	m.callDuration.Record(ctx, duration.Seconds(), metric.WithAttributes(
		attribute.String("service", service),
		attribute.String("method", method),
	))
}

// RecordTokenFailure counts a failed authorization header acquisition.
func (m *Metrics) RecordTokenFailure(ctx context.Context, service, flow string) {
	m.tokenFailures.Add(ctx, 1, metric.WithAttributes(
		attribute.String("service", service),
		attribute.String("flow", flow),
	))
}

// statusClass buckets a status code as "2xx", "4xx" etc, or "error" when no
// response was received.
func statusClass(code int) string {
	if code <= 0 {
		return "error"
	}
	return strconv.Itoa(code/100) + "xx"
}

package telemetry

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

const (
	defaultTracingEnabled  = false
	defaultSamplingRatio   = 0.1
	defaultSpanIntervalMs  = 5000
	defaultSpanExportBatch = 512
)

// TracingConfig resolves trace-signal settings.
type TracingConfig struct {
	opts TracingOptions
}

// Enabled reports whether the trace signal should be set up.
func (c TracingConfig) Enabled() bool {
	return resolveBool(c.opts.Enabled, defaultTracingEnabled, "OTEL_TRACING_ENABLED")
}

// OTLPEndpoint resolves the collector endpoint, preferring the
// trace-specific variable over the generic one.
func (c TracingConfig) OTLPEndpoint() string {
	return resolveString(c.opts.OTLPEndpoint, DefaultOTLPEndpoint,
		"OTEL_EXPORTER_OTLP_TRACES_ENDPOINT", envOTLPEndpoint)
}

// SamplingRatio resolves the head-sampling ratio, clamped to [0, 1].
func (c TracingConfig) SamplingRatio() float64 {
	ratio := resolveFloat64(c.opts.SamplingRatio, defaultSamplingRatio, "OTEL_TRACES_SAMPLER_ARG")
	if ratio < 0 {
		return 0
	}
	if ratio > 1 {
		return 1
	}
	return ratio
}

// ExportInterval resolves the batch span processor's schedule delay.
func (c TracingConfig) ExportInterval() time.Duration {
	ms := resolveInt64(c.opts.ExportIntervalMs, defaultSpanIntervalMs, "OTEL_BSP_SCHEDULE_DELAY")
	return time.Duration(ms) * time.Millisecond
}

// MaxExportBatchSize resolves the batch span processor's batch size.
func (c TracingConfig) MaxExportBatchSize() int {
	return resolveInt(c.opts.MaxExportBatch, defaultSpanExportBatch, "OTEL_BSP_MAX_EXPORT_BATCH_SIZE")
}

// ExportTimeout resolves the exporter timeout, preferring the
// trace-specific variable over the generic one.
func (c TracingConfig) ExportTimeout() time.Duration {
	ms := resolveInt64(c.opts.ExportTimeoutMs, defaultExportTimeoutMs,
		"OTEL_EXPORTER_OTLP_TRACES_TIMEOUT", envOTLPTimeout)
	return time.Duration(ms) * time.Millisecond
}

// newTracerProvider builds the tracer provider for an enabled trace
// signal: an OTLP gRPC exporter behind a batch processor, sampled by a
// parent-based ratio sampler. Returns nil when the signal is disabled.
func newTracerProvider(ctx context.Context, cfg TracingConfig, res *resource.Resource) (*sdktrace.TracerProvider, error) {
	if !cfg.Enabled() {
		return nil, nil
	}
	exporter, err := otlptracegrpc.New(ctx,
		otlptracegrpc.WithEndpointURL(cfg.OTLPEndpoint()),
		otlptracegrpc.WithTimeout(cfg.ExportTimeout()),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create trace exporter: %w", err)
	}
	return sdktrace.NewTracerProvider(
		sdktrace.WithResource(res),
		sdktrace.WithSampler(sdktrace.ParentBased(sdktrace.TraceIDRatioBased(cfg.SamplingRatio()))),
		sdktrace.WithBatcher(exporter,
			sdktrace.WithBatchTimeout(cfg.ExportInterval()),
			sdktrace.WithMaxExportBatchSize(cfg.MaxExportBatchSize()),
			sdktrace.WithExportTimeout(cfg.ExportTimeout()),
		),
	), nil
}

package telemetry

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
	"go.opentelemetry.io/otel/sdk/resource"
)

const (
	defaultMetricsEnabled   = true
	defaultMetricIntervalMs = 15000
)

// MetricsConfig resolves metric-signal settings.
type MetricsConfig struct {
	opts MetricsOptions
}

// Enabled reports whether the metric signal should be set up.
func (c MetricsConfig) Enabled() bool {
	return resolveBool(c.opts.Enabled, defaultMetricsEnabled, "OTEL_METRICS_ENABLED")
}

// OTLPEndpoint resolves the collector endpoint, preferring the
// metric-specific variable over the generic one.
func (c MetricsConfig) OTLPEndpoint() string {
	return resolveString(c.opts.OTLPEndpoint, DefaultOTLPEndpoint,
		"OTEL_EXPORTER_OTLP_METRICS_ENDPOINT", envOTLPEndpoint)
}

// ExportInterval resolves the periodic reader's export interval.
func (c MetricsConfig) ExportInterval() time.Duration {
	ms := resolveInt64(c.opts.ExportIntervalMs, defaultMetricIntervalMs, "OTEL_METRIC_EXPORT_INTERVAL")
	return time.Duration(ms) * time.Millisecond
}

// ExportTimeout resolves the exporter timeout, preferring the
// metric-specific variable over the generic one.
func (c MetricsConfig) ExportTimeout() time.Duration {
	ms := resolveInt64(c.opts.ExportTimeoutMs, defaultExportTimeoutMs,
		"OTEL_EXPORTER_OTLP_METRICS_TIMEOUT", envOTLPTimeout)
	return time.Duration(ms) * time.Millisecond
}

// newMeterProvider builds the meter provider for an enabled metric
// signal: an OTLP gRPC exporter with delta temporality behind a periodic
// reader. Returns nil when the signal is disabled.
func newMeterProvider(ctx context.Context, cfg MetricsConfig, res *resource.Resource) (*sdkmetric.MeterProvider, error) {
	if !cfg.Enabled() {
		return nil, nil
	}
	exporter, err := otlpmetricgrpc.New(ctx,
		otlpmetricgrpc.WithEndpointURL(cfg.OTLPEndpoint()),
		otlpmetricgrpc.WithTimeout(cfg.ExportTimeout()),
		otlpmetricgrpc.WithTemporalitySelector(deltaTemporality),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create metric exporter: %w", err)
	}
	return sdkmetric.NewMeterProvider(
		sdkmetric.WithResource(res),
		sdkmetric.WithReader(sdkmetric.NewPeriodicReader(exporter,
			sdkmetric.WithInterval(cfg.ExportInterval()),
		)),
	), nil
}

func deltaTemporality(sdkmetric.InstrumentKind) metricdata.Temporality {
	return metricdata.DeltaTemporality
}

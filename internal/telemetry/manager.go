package telemetry

import (
	"context"
	"fmt"
	"sync/atomic"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/propagation"
	sdklog "go.opentelemetry.io/otel/sdk/log"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.24.0"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// tracingEnabled gates trace extraction and SQL comment injection
// process-wide. Written once during Init, read on every request.
var tracingEnabled atomic.Bool

// IsTracingEnabled reports whether the trace signal was set up.
func IsTracingEnabled() bool {
	return tracingEnabled.Load()
}

// Provider constructors, swappable in tests.
var (
	buildLoggerProvider = newLoggerProvider
	buildTracerProvider = newTracerProvider
	buildMeterProvider  = newMeterProvider
)

// Manager owns the lifecycle of every configured signal. Build one with
// Init at startup and call Shutdown exactly once on the way out.
type Manager struct {
	tracerProvider *sdktrace.TracerProvider
	meterProvider  *sdkmetric.MeterProvider
	loggerProvider *sdklog.LoggerProvider

	logger        *zap.Logger
	consoleSyncer *zapcore.BufferedWriteSyncer

	shutdown bool
}

// Init sets up the enabled signals and installs their providers as the
// process globals. Disabled signals are skipped entirely; when nothing
// is enabled the returned manager is inert and its logger is a no-op.
// extraAttrs is appended to the resource after the service identity and
// OTEL_RESOURCE_ATTRIBUTES.
func Init(ctx context.Context, cfg *Config, extraAttrs ...attribute.KeyValue) (*Manager, error) {
	attrs := []attribute.KeyValue{
		semconv.ServiceName(cfg.ServiceName()),
		semconv.ServiceVersion(cfg.ServiceVersion()),
	}
	attrs = append(attrs, ResourceAttributes()...)
	attrs = append(attrs, extraAttrs...)
	res := resource.NewWithAttributes(semconv.SchemaURL, attrs...)

	loggerProvider, err := buildLoggerProvider(ctx, cfg.Logging(), res)
	if err != nil {
		return nil, fmt.Errorf("failed to init logging: %w", err)
	}
	tracerProvider, err := buildTracerProvider(ctx, cfg.Tracing(), res)
	if err != nil {
		if loggerProvider != nil {
			_ = loggerProvider.Shutdown(ctx)
		}
		return nil, fmt.Errorf("failed to init tracing: %w", err)
	}
	meterProvider, err := buildMeterProvider(ctx, cfg.Metrics(), res)
	if err != nil {
		if tracerProvider != nil {
			_ = tracerProvider.Shutdown(ctx)
		}
		if loggerProvider != nil {
			_ = loggerProvider.Shutdown(ctx)
		}
		return nil, fmt.Errorf("failed to init metrics: %w", err)
	}

	logger, syncer := newLogger(cfg.Logging(), loggerProvider)
	zap.ReplaceGlobals(logger)

	if tracerProvider != nil {
		otel.SetTracerProvider(tracerProvider)
		otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
			propagation.TraceContext{}, propagation.Baggage{}))
		tracingEnabled.Store(true)
	}
	if meterProvider != nil {
		otel.SetMeterProvider(meterProvider)
	}

	return &Manager{
		tracerProvider: tracerProvider,
		meterProvider:  meterProvider,
		loggerProvider: loggerProvider,
		logger:         logger,
		consoleSyncer:  syncer,
	}, nil
}

// Logger returns the gateway logger built during Init.
func (m *Manager) Logger() *zap.Logger { return m.logger }

// Shutdown flushes and stops every live provider in trace, metric, log
// order. The first failure becomes the returned error; later failures
// are logged and dropped so every provider still gets its shutdown
// attempt. The console buffer is stopped last, after the log provider
// has flushed through it. Repeat calls are no-ops.
func (m *Manager) Shutdown(ctx context.Context) error {
	if m.shutdown {
		return nil
	}
	m.shutdown = true

	var firstErr error
	report := func(signal string, err error) {
		if err == nil {
			return
		}
		if firstErr == nil {
			firstErr = fmt.Errorf("failed to shut down %s: %w", signal, err)
			return
		}
		m.logger.Warn("telemetry shutdown failure", zap.String("signal", signal), zap.Error(err))
	}

	if m.tracerProvider != nil {
		report("tracer provider", m.tracerProvider.Shutdown(ctx))
		tracingEnabled.Store(false)
	}
	if m.meterProvider != nil {
		report("meter provider", m.meterProvider.Shutdown(ctx))
	}
	if m.loggerProvider != nil {
		report("logger provider", m.loggerProvider.Shutdown(ctx))
	}
	if m.consoleSyncer != nil {
		report("console writer", m.consoleSyncer.Stop())
	}
	return firstErr
}

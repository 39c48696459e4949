package telemetry

import (
	"context"
	"fmt"
	"os"
	"time"

	"go.opentelemetry.io/contrib/bridges/otelzap"
	"go.opentelemetry.io/otel/exporters/otlp/otlplog/otlploggrpc"
	sdklog "go.opentelemetry.io/otel/sdk/log"
	"go.opentelemetry.io/otel/sdk/resource"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

const (
	defaultLoggingEnabled = true
	defaultLogLevel       = "info"
	defaultConsoleEnabled = false
	defaultLogQueueSize   = 4096
	defaultLogExportBatch = 256
	defaultLogIntervalMs  = 5000

	otelzapScopeName = "github.com/fyrsmithlabs/docgateway"
)

// LoggingConfig resolves log-signal settings.
type LoggingConfig struct {
	opts LoggingOptions
}

// Enabled reports whether the log signal should be set up.
func (c LoggingConfig) Enabled() bool {
	return resolveBool(c.opts.Enabled, defaultLoggingEnabled, "OTEL_LOGGING_ENABLED")
}

// OTLPEndpoint resolves the collector endpoint, preferring the
// log-specific variable over the generic one.
func (c LoggingConfig) OTLPEndpoint() string {
	return resolveString(c.opts.OTLPEndpoint, DefaultOTLPEndpoint,
		"OTEL_EXPORTER_OTLP_LOGS_ENDPOINT", envOTLPEndpoint)
}

// Level resolves the minimum level emitted by the gateway logger.
func (c LoggingConfig) Level() zapcore.Level {
	raw := resolveString(c.opts.Level, defaultLogLevel, "GATEWAY_LOG")
	level, err := zapcore.ParseLevel(raw)
	if err != nil {
		return zapcore.InfoLevel
	}
	return level
}

// ConsoleEnabled reports whether records are mirrored to stdout.
func (c LoggingConfig) ConsoleEnabled() bool {
	return resolveBool(c.opts.ConsoleEnabled, defaultConsoleEnabled, "OTEL_LOGS_CONSOLE_ENABLED")
}

// MaxQueueSize resolves the batch log processor's queue capacity.
func (c LoggingConfig) MaxQueueSize() int {
	return resolveInt(c.opts.MaxQueueSize, defaultLogQueueSize, "OTEL_BLRP_MAX_QUEUE_SIZE")
}

// MaxExportBatchSize resolves the batch log processor's batch size.
func (c LoggingConfig) MaxExportBatchSize() int {
	return resolveInt(c.opts.MaxExportBatch, defaultLogExportBatch, "OTEL_BLRP_MAX_EXPORT_BATCH_SIZE")
}

// ExportInterval resolves the batch log processor's schedule delay.
func (c LoggingConfig) ExportInterval() time.Duration {
	ms := resolveInt64(c.opts.ExportIntervalMs, defaultLogIntervalMs, "OTEL_BLRP_SCHEDULE_DELAY")
	return time.Duration(ms) * time.Millisecond
}

// ExportTimeout resolves the exporter timeout, preferring the
// log-specific variable over the generic one.
func (c LoggingConfig) ExportTimeout() time.Duration {
	ms := resolveInt64(c.opts.ExportTimeoutMs, defaultExportTimeoutMs,
		"OTEL_EXPORTER_OTLP_LOGS_TIMEOUT", envOTLPTimeout)
	return time.Duration(ms) * time.Millisecond
}

// newLoggerProvider builds the logger provider for an enabled log
// signal: an OTLP gRPC exporter behind a batch processor. Returns nil
// when the signal is disabled.
func newLoggerProvider(ctx context.Context, cfg LoggingConfig, res *resource.Resource) (*sdklog.LoggerProvider, error) {
	if !cfg.Enabled() {
		return nil, nil
	}
	exporter, err := otlploggrpc.New(ctx,
		otlploggrpc.WithEndpointURL(cfg.OTLPEndpoint()),
		otlploggrpc.WithTimeout(cfg.ExportTimeout()),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create log exporter: %w", err)
	}
	return sdklog.NewLoggerProvider(
		sdklog.WithResource(res),
		sdklog.WithProcessor(sdklog.NewBatchProcessor(exporter,
			sdklog.WithMaxQueueSize(cfg.MaxQueueSize()),
			sdklog.WithExportMaxBatchSize(cfg.MaxExportBatchSize()),
			sdklog.WithExportInterval(cfg.ExportInterval()),
			sdklog.WithExportTimeout(cfg.ExportTimeout()),
		)),
	), nil
}

// newLogger composes the gateway zap logger from up to two cores: the
// OTLP bridge core when the provider is live, and a buffered console
// core when mirroring is on. The returned syncer, if non-nil, must be
// stopped after the providers shut down so buffered records flush.
func newLogger(cfg LoggingConfig, provider *sdklog.LoggerProvider) (*zap.Logger, *zapcore.BufferedWriteSyncer) {
	var cores []zapcore.Core
	var syncer *zapcore.BufferedWriteSyncer

	if provider != nil {
		cores = append(cores, otelzap.NewCore(otelzapScopeName,
			otelzap.WithLoggerProvider(provider)))
	}
	if cfg.ConsoleEnabled() {
		syncer = &zapcore.BufferedWriteSyncer{WS: zapcore.Lock(os.Stdout)}
		encoderCfg := zap.NewProductionEncoderConfig()
		encoderCfg.EncodeTime = zapcore.ISO8601TimeEncoder
		cores = append(cores, zapcore.NewCore(
			zapcore.NewJSONEncoder(encoderCfg), syncer, cfg.Level()))
	}
	if len(cores) == 0 {
		return zap.NewNop(), nil
	}
	logger := zap.New(zapcore.NewTee(cores...)).
		WithOptions(zap.IncreaseLevel(cfg.Level()))
	return logger, syncer
}

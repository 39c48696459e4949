// Package telemetry owns the gateway's observability surface: cascading
// signal configuration, the provider lifecycle for traces, metrics, and
// logs, trace-context transcoding between command comments and SQL, and
// the per-request metrics recorder.
package telemetry

import (
	"os"
	"strings"

	"github.com/spf13/cast"
	"go.opentelemetry.io/otel/attribute"
)

// Shared defaults. Signal-specific endpoint variables fall back to the
// generic OTLP ones, then to these.
const (
	DefaultOTLPEndpoint    = "http://localhost:4317"
	defaultExportTimeoutMs = 10000

	defaultServiceName    = "docgateway"
	defaultServiceVersion = "0.0.0"

	envOTLPEndpoint = "OTEL_EXPORTER_OTLP_ENDPOINT"
	envOTLPTimeout  = "OTEL_EXPORTER_OTLP_TIMEOUT"
)

// Options is the explicit (file- or caller-provided) telemetry
// configuration. Every field is optional; nil defers to the environment
// and then to the built-in default. See ParseOptions for the JSON form.
type Options struct {
	ServiceName    *string `koanf:"service_name"`
	ServiceVersion *string `koanf:"service_version"`

	Tracing TracingOptions `koanf:"tracing"`
	Metrics MetricsOptions `koanf:"metrics"`
	Logging LoggingOptions `koanf:"logging"`
}

// TracingOptions are the explicit settings for the trace signal.
type TracingOptions struct {
	Enabled          *bool    `koanf:"enabled"`
	OTLPEndpoint     *string  `koanf:"otlp_endpoint"`
	SamplingRatio    *float64 `koanf:"sampling_ratio"`
	ExportIntervalMs *int64   `koanf:"export_interval_ms"`
	MaxExportBatch   *int     `koanf:"max_export_batch_size"`
	ExportTimeoutMs  *int64   `koanf:"export_timeout_ms"`
}

// MetricsOptions are the explicit settings for the metric signal.
type MetricsOptions struct {
	Enabled          *bool   `koanf:"enabled"`
	OTLPEndpoint     *string `koanf:"otlp_endpoint"`
	ExportIntervalMs *int64  `koanf:"export_interval_ms"`
	ExportTimeoutMs  *int64  `koanf:"export_timeout_ms"`
}

// LoggingOptions are the explicit settings for the log signal.
type LoggingOptions struct {
	Enabled          *bool   `koanf:"enabled"`
	OTLPEndpoint     *string `koanf:"otlp_endpoint"`
	Level            *string `koanf:"level"`
	ConsoleEnabled   *bool   `koanf:"console_enabled"`
	MaxQueueSize     *int    `koanf:"max_queue_size"`
	MaxExportBatch   *int    `koanf:"max_export_batch_size"`
	ExportIntervalMs *int64  `koanf:"export_interval_ms"`
	ExportTimeoutMs  *int64  `koanf:"export_timeout_ms"`
}

// Config resolves effective telemetry settings with a fixed precedence:
// explicit option, then environment variable, then default. Resolution
// happens per accessor call so each setting cascades independently.
type Config struct {
	opts Options
}

// NewConfig wraps explicit options. A nil opts means everything resolves
// from the environment and defaults.
func NewConfig(opts *Options) *Config {
	if opts == nil {
		return &Config{}
	}
	return &Config{opts: *opts}
}

// ServiceName resolves the reporting service name.
func (c *Config) ServiceName() string {
	return resolveString(c.opts.ServiceName, defaultServiceName, "OTEL_SERVICE_NAME")
}

// ServiceVersion resolves the reporting service version.
func (c *Config) ServiceVersion() string {
	return resolveString(c.opts.ServiceVersion, defaultServiceVersion, "OTEL_SERVICE_VERSION")
}

// Tracing returns the trace-signal view of the configuration.
func (c *Config) Tracing() TracingConfig { return TracingConfig{opts: c.opts.Tracing} }

// Metrics returns the metric-signal view of the configuration.
func (c *Config) Metrics() MetricsConfig { return MetricsConfig{opts: c.opts.Metrics} }

// Logging returns the log-signal view of the configuration.
func (c *Config) Logging() LoggingConfig { return LoggingConfig{opts: c.opts.Logging} }

// AnySignalEnabled reports whether at least one signal would be set up.
func (c *Config) AnySignalEnabled() bool {
	return c.Tracing().Enabled() || c.Metrics().Enabled() || c.Logging().Enabled()
}

// ResourceAttributes parses OTEL_RESOURCE_ATTRIBUTES as comma-separated
// key=value pairs. Pairs without an equals sign are skipped, keys and
// values are trimmed, and empty keys are dropped.
func ResourceAttributes() []attribute.KeyValue {
	raw := os.Getenv("OTEL_RESOURCE_ATTRIBUTES")
	if raw == "" {
		return nil
	}
	var attrs []attribute.KeyValue
	for _, pair := range strings.Split(raw, ",") {
		key, value, found := strings.Cut(pair, "=")
		if !found {
			continue
		}
		key = strings.TrimSpace(key)
		if key == "" {
			continue
		}
		attrs = append(attrs, attribute.String(key, strings.TrimSpace(value)))
	}
	return attrs
}

// resolve walks the explicit-env-default cascade. Environment variables
// are consulted in order; unset or unparsable values fall through.
func resolve[T any](explicit *T, parse func(string) (T, error), def T, envKeys ...string) T {
	if explicit != nil {
		return *explicit
	}
	for _, key := range envKeys {
		raw, ok := os.LookupEnv(key)
		if !ok {
			continue
		}
		v, err := parse(raw)
		if err != nil {
			continue
		}
		return v
	}
	return def
}

func resolveString(explicit *string, def string, envKeys ...string) string {
	return resolve(explicit, func(s string) (string, error) { return s, nil }, def, envKeys...)
}

func resolveBool(explicit *bool, def bool, envKeys ...string) bool {
	return resolve(explicit, func(s string) (bool, error) { return cast.ToBoolE(s) }, def, envKeys...)
}

func resolveInt(explicit *int, def int, envKeys ...string) int {
	return resolve(explicit, func(s string) (int, error) { return cast.ToIntE(s) }, def, envKeys...)
}

func resolveInt64(explicit *int64, def int64, envKeys ...string) int64 {
	return resolve(explicit, func(s string) (int64, error) { return cast.ToInt64E(s) }, def, envKeys...)
}

func resolveFloat64(explicit *float64, def float64, envKeys ...string) float64 {
	return resolve(explicit, func(s string) (float64, error) { return cast.ToFloat64E(s) }, def, envKeys...)
}

package telemetry

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/docgateway/internal/errcode"
	"github.com/fyrsmithlabs/docgateway/internal/protocol"
	"github.com/fyrsmithlabs/docgateway/internal/request"
	"github.com/fyrsmithlabs/docgateway/internal/response"
	"github.com/fyrsmithlabs/docgateway/internal/session"
)

// Outcome is the terminal state of one request: either a response on the
// way back to the client or the error it was converted from. ErrSize
// carries the serialized error document length since the error itself no
// longer knows it.
type Outcome struct {
	Response *response.Response
	Err      *errcode.Error
	ErrSize  int
}

// SuccessOutcome wraps a response headed back to the client.
func SuccessOutcome(resp *response.Response) Outcome {
	return Outcome{Response: resp}
}

// ErrorOutcome wraps a request-terminating error and the size of the
// error document that was sent in its place.
func ErrorOutcome(err *errcode.Error, size int) Outcome {
	return Outcome{Err: err, ErrSize: size}
}

// Provider receives one event per completed request and fans it out to
// whatever signals it backs.
type Provider interface {
	EmitRequestEvent(ctx context.Context, connCtx *session.ConnectionContext, header *protocol.Header, reqCtx *request.RequestContext, collection string, outcome Outcome)
}

const (
	meterScopeName = "github.com/fyrsmithlabs/docgateway"

	attrDBSystem = "documentdb"
)

// phaseLabels maps backend phase intervals to their metric label. Only
// these three intervals surface as phase sub-metrics.
var phaseLabels = []struct {
	kind  request.IntervalKind
	label string
}{
	{request.IntervalPostgresBeginTransaction, "postgres_begin_transaction"},
	{request.IntervalProcessRequest, "postgres_execution"},
	{request.IntervalPostgresCommitTransaction, "postgres_commit"},
}

// OtelProvider records per-request metrics on the global meter provider
// and annotates the active span with correlation attributes.
type OtelProvider struct {
	operationDuration metric.Float64Counter
	operationCount    metric.Int64Counter
	requestSize       metric.Int64Counter
	responseSize      metric.Int64Counter
}

// NewOtelProvider builds the recorder against the installed global
// meter provider.
func NewOtelProvider() (*OtelProvider, error) {
	return NewOtelProviderWithMeter(otel.Meter(meterScopeName))
}

// NewOtelProviderWithMeter builds the recorder against an explicit
// meter, letting tests read back through a manual reader.
func NewOtelProviderWithMeter(meter metric.Meter) (*OtelProvider, error) {
	operationDuration, err := meter.Float64Counter("db.client.operation.duration.total",
		metric.WithUnit("s"),
		metric.WithDescription("Cumulative duration of operations handled by the gateway."))
	if err != nil {
		return nil, err
	}
	operationCount, err := meter.Int64Counter("db.client.operations",
		metric.WithUnit("{operation}"),
		metric.WithDescription("Number of operations handled by the gateway."))
	if err != nil {
		return nil, err
	}
	requestSize, err := meter.Int64Counter("db.client.request.size.total",
		metric.WithUnit("By"),
		metric.WithDescription("Cumulative request bytes declared by wire headers."))
	if err != nil {
		return nil, err
	}
	responseSize, err := meter.Int64Counter("db.client.response.size.total",
		metric.WithUnit("By"),
		metric.WithDescription("Cumulative response bytes returned to clients."))
	if err != nil {
		return nil, err
	}
	return &OtelProvider{
		operationDuration: operationDuration,
		operationCount:    operationCount,
		requestSize:       requestSize,
		responseSize:      responseSize,
	}, nil
}

// EmitRequestEvent records the four base counters for the request plus a
// phase-labelled duration for each backend phase that actually ran.
func (p *OtelProvider) EmitRequestEvent(ctx context.Context, connCtx *session.ConnectionContext, header *protocol.Header, reqCtx *request.RequestContext, collection string, outcome Outcome) {
	attrs := requestAttributes(reqCtx, collection, outcome)
	set := metric.WithAttributeSet(attribute.NewSet(attrs...))

	var tracker *request.Tracker
	if reqCtx != nil {
		tracker = reqCtx.Tracker
		annotateSpan(ctx, connCtx, reqCtx)
	}

	p.operationDuration.Add(ctx, durationSecs(tracker.Elapsed(request.IntervalHandleRequest)), set)
	p.operationCount.Add(ctx, 1, set)
	p.requestSize.Add(ctx, int64(header.Length), set)
	p.responseSize.Add(ctx, int64(responseSizeBytes(outcome)), set)

	for _, phase := range phaseLabels {
		elapsed := tracker.Elapsed(phase.kind)
		if elapsed <= 0 {
			continue
		}
		phaseAttrs := append(append([]attribute.KeyValue{}, attrs...),
			attribute.String("db.operation.phase", phase.label))
		p.operationDuration.Add(ctx, durationSecs(elapsed),
			metric.WithAttributeSet(attribute.NewSet(phaseAttrs...)))
	}
}

// requestAttributes derives the shared attribute set. A nil reqCtx means
// the failure happened before command parsing, so operation and
// namespace degrade to "unknown".
func requestAttributes(reqCtx *request.RequestContext, collection string, outcome Outcome) []attribute.KeyValue {
	operation := "unknown"
	namespace := "unknown"
	if reqCtx != nil && reqCtx.Info != nil {
		if name := reqCtx.Info.CommandName(); name != "" {
			operation = name
		}
		if db, err := reqCtx.Info.DB(); err == nil {
			namespace = db
		}
	}
	attrs := []attribute.KeyValue{
		attribute.String("db.system.name", attrDBSystem),
		attribute.String("db.operation.name", operation),
		attribute.String("db.collection.name", collection),
		attribute.String("db.namespace", namespace),
	}
	if outcome.Err != nil {
		attrs = append(attrs, attribute.String("error.type", outcome.Err.Code.String()))
	}
	return attrs
}

// annotateSpan ties the active span to the gateway's correlation id and
// the client's self-reported identity.
func annotateSpan(ctx context.Context, connCtx *session.ConnectionContext, reqCtx *request.RequestContext) {
	span := trace.SpanFromContext(ctx)
	if !span.IsRecording() {
		return
	}
	span.SetAttributes(attribute.String("activity_id", reqCtx.ActivityID))
	if connCtx != nil && connCtx.ClientInfo != "" {
		span.SetAttributes(attribute.String("user_agent.original", connCtx.ClientInfo))
	}
}

func durationSecs(d time.Duration) float64 {
	if d < 0 {
		return 0
	}
	return d.Seconds()
}

func responseSizeBytes(outcome Outcome) int {
	if outcome.Err != nil {
		return outcome.ErrSize
	}
	if outcome.Response == nil {
		return 0
	}
	doc, ok := outcome.Response.RawDocument()
	if !ok {
		return 0
	}
	return len(doc)
}

// LogProvider is the degraded recorder used when the metric signal is
// off: it emits the same per-request facts as a structured log line.
type LogProvider struct {
	logger *zap.Logger
}

// NewLogProvider builds a log-backed recorder.
func NewLogProvider(logger *zap.Logger) *LogProvider {
	return &LogProvider{logger: logger}
}

// EmitRequestEvent logs one completion line per request.
func (p *LogProvider) EmitRequestEvent(ctx context.Context, connCtx *session.ConnectionContext, header *protocol.Header, reqCtx *request.RequestContext, collection string, outcome Outcome) {
	operation := "unknown"
	activityID := ""
	var tracker *request.Tracker
	if reqCtx != nil {
		if reqCtx.Info != nil && reqCtx.Info.CommandName() != "" {
			operation = reqCtx.Info.CommandName()
		}
		activityID = reqCtx.ActivityID
		tracker = reqCtx.Tracker
	}
	status := 200
	fields := []zap.Field{
		zap.String("operation", operation),
		zap.String("collection", collection),
		zap.String("activity_id", activityID),
		zap.Int32("request_bytes", header.Length),
		zap.Int("response_bytes", responseSizeBytes(outcome)),
		zap.Duration("duration", tracker.Elapsed(request.IntervalHandleRequest)),
	}
	if connCtx != nil && connCtx.ClientInfo != "" {
		fields = append(fields, zap.String("user_agent", connCtx.ClientInfo))
	}
	if outcome.Err != nil {
		status = errcode.StatusCode(outcome.Err.Code)
		fields = append(fields, zap.String("error_type", outcome.Err.Code.String()))
	}
	fields = append(fields, zap.Int("status", status))
	for _, phase := range phaseLabels {
		if elapsed := tracker.Elapsed(phase.kind); elapsed > 0 {
			fields = append(fields, zap.Duration(phase.label, elapsed))
		}
	}
	p.logger.Info("request completed", fields...)
}

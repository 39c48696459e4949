package telemetry

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	jsoniter "github.com/json-iterator/go"
	"go.opentelemetry.io/otel/trace"
)

var jsonAPI = jsoniter.ConfigCompatibleWithStandardLibrary

// traceparentVersion is the only W3C trace-context version we accept.
const traceparentVersion = "00"

// ExtractContextFromComment parses a command comment carrying a W3C
// traceparent and returns the remote span context it names. The comment
// must be a JSON object of the form {"traceparent": "00-<trace>-<span>-<flags>"}.
// Any failure, from malformed JSON to an all-zero trace id, yields an
// invalid (zero) span context; extraction never errors.
func ExtractContextFromComment(comment string) trace.SpanContext {
	var payload struct {
		Traceparent string `json:"traceparent"`
	}
	if err := jsonAPI.Unmarshal([]byte(comment), &payload); err != nil {
		return trace.SpanContext{}
	}
	if payload.Traceparent == "" {
		return trace.SpanContext{}
	}
	return ParseTraceparent(payload.Traceparent)
}

// ParseTraceparent parses a W3C traceparent header value. It accepts only
// version 00 with non-zero trace and span ids; anything else returns an
// invalid span context.
func ParseTraceparent(tp string) trace.SpanContext {
	parts := strings.Split(tp, "-")
	if len(parts) != 4 || parts[0] != traceparentVersion {
		return trace.SpanContext{}
	}
	traceID, err := trace.TraceIDFromHex(parts[1])
	if err != nil {
		return trace.SpanContext{}
	}
	spanID, err := trace.SpanIDFromHex(parts[2])
	if err != nil {
		return trace.SpanContext{}
	}
	flags, err := strconv.ParseUint(parts[3], 16, 8)
	if err != nil {
		return trace.SpanContext{}
	}
	return trace.NewSpanContext(trace.SpanContextConfig{
		TraceID:    traceID,
		SpanID:     spanID,
		TraceFlags: trace.TraceFlags(flags),
		Remote:     true,
	})
}

// FormatTraceComment prefixes sql with a sqlcommenter-style traceparent
// block so the backend can correlate its own spans with the gateway's.
// The input is returned unchanged when the span context is invalid or
// unsampled.
func FormatTraceComment(sc trace.SpanContext, sql string) string {
	if !sc.IsValid() || !sc.IsSampled() {
		return sql
	}
	return fmt.Sprintf("/* traceparent='%s-%s-%s-%02x' */ %s",
		traceparentVersion, sc.TraceID(), sc.SpanID(), byte(sc.TraceFlags()), sql)
}

// TraceCommentFromContext annotates sql with the current span's trace
// context. It is the hot-path injection point, so it bails out on the
// process-wide tracing flag before touching the context at all.
func TraceCommentFromContext(ctx context.Context, sql string) string {
	if !IsTracingEnabled() {
		return sql
	}
	return FormatTraceComment(trace.SpanContextFromContext(ctx), sql)
}

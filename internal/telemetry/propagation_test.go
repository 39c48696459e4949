package telemetry

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/trace"
	"pgregory.net/rapid"
)

func TestExtractContextFromComment(t *testing.T) {
	comment := `{"traceparent": "00-0af7651916cd43dd8448eb211c80319c-b7ad6b7169203331-01"}`

	sc := ExtractContextFromComment(comment)
	require.True(t, sc.IsValid())
	assert.Equal(t, "0af7651916cd43dd8448eb211c80319c", sc.TraceID().String())
	assert.Equal(t, "b7ad6b7169203331", sc.SpanID().String())
	assert.True(t, sc.IsSampled())
	assert.True(t, sc.IsRemote())
}

func TestExtractContextFromComment_Malformed(t *testing.T) {
	tests := []struct {
		name    string
		comment string
	}{
		{"empty string", ""},
		{"not json", "just a comment"},
		{"json scalar", `"00-0af7651916cd43dd8448eb211c80319c-b7ad6b7169203331-01"`},
		{"missing field", `{"other": "value"}`},
		{"empty traceparent", `{"traceparent": ""}`},
		{"wrong part count", `{"traceparent": "00-0af7651916cd43dd8448eb211c80319c-01"}`},
		{"wrong version", `{"traceparent": "01-0af7651916cd43dd8448eb211c80319c-b7ad6b7169203331-01"}`},
		{"invalid trace hex", `{"traceparent": "00-zzf7651916cd43dd8448eb211c80319c-b7ad6b7169203331-01"}`},
		{"short trace id", `{"traceparent": "00-0af765-b7ad6b7169203331-01"}`},
		{"invalid span hex", `{"traceparent": "00-0af7651916cd43dd8448eb211c80319c-zzad6b7169203331-01"}`},
		{"all-zero trace id", `{"traceparent": "00-00000000000000000000000000000000-b7ad6b7169203331-01"}`},
		{"all-zero span id", `{"traceparent": "00-0af7651916cd43dd8448eb211c80319c-0000000000000000-01"}`},
		{"invalid flags", `{"traceparent": "00-0af7651916cd43dd8448eb211c80319c-b7ad6b7169203331-xx"}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sc := ExtractContextFromComment(tt.comment)
			assert.False(t, sc.IsValid())
		})
	}
}

func TestFormatTraceComment(t *testing.T) {
	traceID, err := trace.TraceIDFromHex("0af7651916cd43dd8448eb211c80319c")
	require.NoError(t, err)
	spanID, err := trace.SpanIDFromHex("b7ad6b7169203331")
	require.NoError(t, err)

	t.Run("sampled context prefixes the query", func(t *testing.T) {
		sc := trace.NewSpanContext(trace.SpanContextConfig{
			TraceID:    traceID,
			SpanID:     spanID,
			TraceFlags: trace.FlagsSampled,
		})
		got := FormatTraceComment(sc, "SELECT 1")
		assert.Equal(t, "/* traceparent='00-0af7651916cd43dd8448eb211c80319c-b7ad6b7169203331-01' */ SELECT 1", got)
	})

	t.Run("unsampled context returns the query unchanged", func(t *testing.T) {
		sc := trace.NewSpanContext(trace.SpanContextConfig{TraceID: traceID, SpanID: spanID})
		sql := "SELECT 1"
		assert.Equal(t, sql, FormatTraceComment(sc, sql))
	})

	t.Run("invalid context returns the query unchanged", func(t *testing.T) {
		sql := "SELECT 1"
		assert.Equal(t, sql, FormatTraceComment(trace.SpanContext{}, sql))
	})
}

func TestTraceparentRoundTrip(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		traceHex := rapid.StringMatching(`[0-9a-f]{32}`).
			Filter(func(s string) bool { return s != strings.Repeat("0", 32) }).
			Draw(t, "traceID")
		spanHex := rapid.StringMatching(`[0-9a-f]{16}`).
			Filter(func(s string) bool { return s != strings.Repeat("0", 16) }).
			Draw(t, "spanID")
		flags := rapid.Uint8().Draw(t, "flags") | uint8(trace.FlagsSampled)

		tp := fmt.Sprintf("00-%s-%s-%02x", traceHex, spanHex, flags)
		sc := ExtractContextFromComment(fmt.Sprintf(`{"traceparent": %q}`, tp))
		if !sc.IsValid() {
			t.Fatalf("extraction failed for %q", tp)
		}

		got := FormatTraceComment(sc, "SELECT 1")
		want := fmt.Sprintf("/* traceparent='%s' */ SELECT 1", tp)
		if got != want {
			t.Fatalf("round trip mismatch: got %q want %q", got, want)
		}
	})
}

package instrumentation

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"

	"github.com/giantswarm/mcp-tomcat/internal/logging"
)

const (
	tracingTestUser  = "deployer"
	tracingTestAlias = "prod-eu-1"
	tracingTestPath  = "/shop"
)

// recordSpans installs an in-memory tracer provider for the test.
func recordSpans(t *testing.T) *tracetest.InMemoryExporter {
	t.Helper()
	exporter := tracetest.NewInMemoryExporter()
	otel.SetTracerProvider(sdktrace.NewTracerProvider(sdktrace.WithSyncer(exporter)))
	t.Cleanup(func() { otel.SetTracerProvider(noop.NewTracerProvider()) })
	return exporter
}

func attrsToMap(attrs []attribute.KeyValue) map[attribute.Key]attribute.Value {
	m := make(map[attribute.Key]attribute.Value, len(attrs))
	for _, attr := range attrs {
		m[attr.Key] = attr.Value
	}
	return m
}

func TestSpanAttributeBuilder(t *testing.T) {
	tests := []struct {
		name  string
		build func(*SpanAttributeBuilder) *SpanAttributeBuilder
		want  map[attribute.Key]attribute.Value
	}{
		{
			name:  "empty",
			build: func(b *SpanAttributeBuilder) *SpanAttributeBuilder { return b },
			want:  map[attribute.Key]attribute.Value{},
		},
		{
			name:  "named connection",
			build: func(b *SpanAttributeBuilder) *SpanAttributeBuilder { return b.WithConnection(tracingTestAlias) },
			want: map[attribute.Key]attribute.Value{
				SpanAttrAlias:       attribute.StringValue(tracingTestAlias),
				SpanAttrEnvironment: attribute.StringValue("production"),
			},
		},
		{
			name:  "current connection",
			build: func(b *SpanAttributeBuilder) *SpanAttributeBuilder { return b.WithConnection("") },
			want: map[attribute.Key]attribute.Value{
				SpanAttrEnvironment: attribute.StringValue("current"),
			},
		},
		{
			name:  "user is hashed",
			build: func(b *SpanAttributeBuilder) *SpanAttributeBuilder { return b.WithUser(tracingTestUser) },
			want: map[attribute.Key]attribute.Value{
				SpanAttrUserHash: attribute.StringValue(logging.AnonymizeUser(tracingTestUser)),
			},
		},
		{
			name: "empty optional values are skipped",
			build: func(b *SpanAttributeBuilder) *SpanAttributeBuilder {
				return b.WithUser("").WithAppPath("").WithServerAddress("")
			},
			want: map[attribute.Key]attribute.Value{},
		},
		{
			name: "chained",
			build: func(b *SpanAttributeBuilder) *SpanAttributeBuilder {
				return b.WithTool("tomcat_stop").
					WithConnection("stage").
					WithServerAddress("tomcat.example.com").
					WithAppPath(tracingTestPath).
					WithOperation("stop").
					WithDryRun(true)
			},
			want: map[attribute.Key]attribute.Value{
				SpanAttrTool:          attribute.StringValue("tomcat_stop"),
				SpanAttrAlias:         attribute.StringValue("stage"),
				SpanAttrEnvironment:   attribute.StringValue("staging"),
				SpanAttrServerAddress: attribute.StringValue("tomcat.example.com"),
				SpanAttrAppPath:       attribute.StringValue(tracingTestPath),
				SpanAttrOperation:     attribute.StringValue("stop"),
				SpanAttrDryRun:        attribute.BoolValue(true),
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			attrs := tt.build(NewSpanAttributeBuilder()).Build()
			assert.Len(t, attrs, len(tt.want))
			assert.Equal(t, tt.want, attrsToMap(attrs))
		})
	}
}

func TestStartToolSpan(t *testing.T) {
	exporter := recordSpans(t)

	_, span := StartToolSpan(context.Background(), "tomcat_list_applications", attribute.String("extra", "attr"))
	span.End()

	spans := exporter.GetSpans()
	require.Len(t, spans, 1)
	assert.Equal(t, "tool.tomcat_list_applications", spans[0].Name)
	assert.Equal(t, trace.SpanKindServer, spans[0].SpanKind)

	attrs := attrsToMap(spans[0].Attributes)
	assert.Equal(t, "tomcat_list_applications", attrs[SpanAttrTool].AsString())
	assert.Equal(t, "attr", attrs["extra"].AsString())
}

func TestStartConnectionSpan(t *testing.T) {
	exporter := recordSpans(t)

	_, span := StartConnectionSpan(context.Background(), "switch", tracingTestAlias)
	span.End()

	spans := exporter.GetSpans()
	require.Len(t, spans, 1)
	assert.Equal(t, "connection.switch", spans[0].Name)
	assert.Equal(t, trace.SpanKindInternal, spans[0].SpanKind)

	attrs := attrsToMap(spans[0].Attributes)
	assert.Equal(t, "switch", attrs[SpanAttrOperation].AsString())
	assert.Equal(t, tracingTestAlias, attrs[SpanAttrAlias].AsString())
}

func TestSpanStatus(t *testing.T) {
	tests := []struct {
		name       string
		finish     func(trace.Span)
		wantCode   codes.Code
		wantEvents []string
	}{
		{
			name:       "error",
			finish:     func(s trace.Span) { SetSpanError(s, errors.New("FAIL - No context exists")) },
			wantCode:   codes.Error,
			wantEvents: []string{"exception"},
		},
		{
			name:     "nil error leaves status unset",
			finish:   func(s trace.Span) { SetSpanError(s, nil) },
			wantCode: codes.Unset,
		},
		{
			name:     "success",
			finish:   SetSpanSuccess,
			wantCode: codes.Ok,
		},
		{
			name: "event",
			finish: func(s trace.Span) {
				AddSpanEvent(s, "unreachable", attribute.String(SpanAttrAlias, tracingTestAlias))
			},
			wantCode:   codes.Unset,
			wantEvents: []string{"unreachable"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			exporter := recordSpans(t)

			_, span := StartToolSpan(context.Background(), "tomcat_stop")
			tt.finish(span)
			span.End()

			spans := exporter.GetSpans()
			require.Len(t, spans, 1)
			assert.Equal(t, tt.wantCode, spans[0].Status.Code)

			var events []string
			for _, e := range spans[0].Events {
				events = append(events, e.Name)
			}
			assert.Equal(t, tt.wantEvents, events)
		})
	}
}

func TestTraceAndSpanIDs(t *testing.T) {
	assert.Empty(t, GetTraceID(context.Background()))
	assert.Empty(t, GetSpanID(context.Background()))

	recordSpans(t)
	ctx, span := StartToolSpan(context.Background(), "tomcat_serverinfo")
	defer span.End()

	assert.Len(t, GetTraceID(ctx), 32)
	assert.Len(t, GetSpanID(ctx), 16)
	assert.Equal(t, span.SpanContext().TraceID().String(), GetTraceID(ctx))
}

func TestTracerName(t *testing.T) {
	assert.Equal(t, "github.com/giantswarm/mcp-tomcat", TracerName)
}

// createTestSpanContext creates a recording span and its context.
func createTestSpanContext() (context.Context, trace.Span, *tracetest.InMemoryExporter) {
	exporter := tracetest.NewInMemoryExporter()
	tp := sdktrace.NewTracerProvider(
		sdktrace.WithSyncer(exporter),
	)

	tracer := tp.Tracer(TracerName)
	ctx, span := tracer.Start(context.Background(), "test-span")

	return ctx, span, exporter
}

package instrumentation

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/giantswarm/mcp-tomcat/internal/logging"
)

// TracerName is the default tracer name for the mcp-tomcat package.
const TracerName = "github.com/giantswarm/mcp-tomcat"

// Span attribute keys.
const (
	// SpanAttrTool is the MCP tool name.
	SpanAttrTool = "mcp.tool"

	// SpanAttrDryRun marks mutating tool calls that were not executed.
	SpanAttrDryRun = "mcp.dry_run"

	// SpanAttrUserHash is the hashed Manager username.
	SpanAttrUserHash = "tomcat.user.hash"

	// SpanAttrAlias is the Tomcat connection alias.
	SpanAttrAlias = "tomcat.alias"

	// SpanAttrEnvironment is the classified environment of the alias.
	SpanAttrEnvironment = "tomcat.environment"

	// SpanAttrAppPath is the application context path.
	SpanAttrAppPath = "tomcat.app_path"

	// SpanAttrOperation is the Manager operation (list, start, deploy, ...).
	SpanAttrOperation = "tomcat.operation"

	// SpanAttrServerAddress is the Tomcat host.
	SpanAttrServerAddress = "server.address"
)

// SpanAttributeBuilder helps construct OpenTelemetry span attributes
// with consistent naming and cardinality controls.
type SpanAttributeBuilder struct {
	attrs []attribute.KeyValue
}

// NewSpanAttributeBuilder creates a new SpanAttributeBuilder.
func NewSpanAttributeBuilder() *SpanAttributeBuilder {
	return &SpanAttributeBuilder{
		attrs: make([]attribute.KeyValue, 0, 8),
	}
}

// WithTool adds the MCP tool name attribute.
func (b *SpanAttributeBuilder) WithTool(tool string) *SpanAttributeBuilder {
	b.attrs = append(b.attrs, attribute.String(SpanAttrTool, tool))
	return b
}

// WithConnection adds the alias and its classified environment. An empty
// alias (current connection) only records the environment.
func (b *SpanAttributeBuilder) WithConnection(alias string) *SpanAttributeBuilder {
	if alias != "" {
		b.attrs = append(b.attrs, attribute.String(SpanAttrAlias, alias))
	}
	b.attrs = append(b.attrs, attribute.String(SpanAttrEnvironment, ClassifyAlias(alias)))
	return b
}

// WithServerAddress adds the Tomcat host attribute.
func (b *SpanAttributeBuilder) WithServerAddress(host string) *SpanAttributeBuilder {
	if host != "" {
		b.attrs = append(b.attrs, attribute.String(SpanAttrServerAddress, host))
	}
	return b
}

// WithAppPath adds the application context path attribute.
func (b *SpanAttributeBuilder) WithAppPath(path string) *SpanAttributeBuilder {
	if path != "" {
		b.attrs = append(b.attrs, attribute.String(SpanAttrAppPath, path))
	}
	return b
}

// WithUser adds the hashed Manager username.
func (b *SpanAttributeBuilder) WithUser(username string) *SpanAttributeBuilder {
	if username != "" {
		b.attrs = append(b.attrs, attribute.String(SpanAttrUserHash, logging.AnonymizeUser(username)))
	}
	return b
}

// WithOperation adds the operation type attribute.
func (b *SpanAttributeBuilder) WithOperation(operation string) *SpanAttributeBuilder {
	b.attrs = append(b.attrs, attribute.String(SpanAttrOperation, operation))
	return b
}

// WithDryRun adds the dry-run indicator attribute.
func (b *SpanAttributeBuilder) WithDryRun(dryRun bool) *SpanAttributeBuilder {
	b.attrs = append(b.attrs, attribute.Bool(SpanAttrDryRun, dryRun))
	return b
}

// Build returns the constructed attributes.
func (b *SpanAttributeBuilder) Build() []attribute.KeyValue {
	return b.attrs
}

// StartToolSpan starts a server span for an MCP tool invocation.
func StartToolSpan(ctx context.Context, toolName string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	allAttrs := make([]attribute.KeyValue, 0, len(attrs)+1)
	allAttrs = append(allAttrs, attribute.String(SpanAttrTool, toolName))
	allAttrs = append(allAttrs, attrs...)

	tracer := otel.GetTracerProvider().Tracer(TracerName)
	return tracer.Start(ctx, "tool."+toolName,
		trace.WithAttributes(allAttrs...),
		trace.WithSpanKind(trace.SpanKindServer),
	)
}

// StartConnectionSpan starts an internal span for registry operations
// (connect, switch, close, check).
func StartConnectionSpan(ctx context.Context, operation, alias string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	allAttrs := NewSpanAttributeBuilder().
		WithOperation(operation).
		WithConnection(alias).
		Build()
	allAttrs = append(allAttrs, attrs...)

	tracer := otel.GetTracerProvider().Tracer(TracerName)
	return tracer.Start(ctx, "connection."+operation,
		trace.WithAttributes(allAttrs...),
		trace.WithSpanKind(trace.SpanKindInternal),
	)
}

// SetSpanError records an error on the span and sets the status to error.
func SetSpanError(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
}

// SetSpanSuccess sets the span status to OK.
func SetSpanSuccess(span trace.Span) {
	span.SetStatus(codes.Ok, "")
}

// AddSpanEvent adds an event to the span with optional attributes.
func AddSpanEvent(span trace.Span, name string, attrs ...attribute.KeyValue) {
	span.AddEvent(name, trace.WithAttributes(attrs...))
}

// GetTraceID returns the trace ID from the current span in context.
// Returns empty string if no valid span is present.
func GetTraceID(ctx context.Context) string {
	span := trace.SpanFromContext(ctx)
	if span.SpanContext().IsValid() {
		return span.SpanContext().TraceID().String()
	}
	return ""
}

// GetSpanID returns the span ID from the current span in context.
// Returns empty string if no valid span is present.
func GetSpanID(ctx context.Context) string {
	span := trace.SpanFromContext(ctx)
	if span.SpanContext().IsValid() {
		return span.SpanContext().SpanID().String()
	}
	return ""
}

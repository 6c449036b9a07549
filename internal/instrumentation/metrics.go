package instrumentation

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Metric attribute keys
const (
	attrMethod      = "method"
	attrPath        = "path"
	attrStatus      = "status"
	attrOperation   = "operation"
	attrTool        = "tool"
	attrEnvironment = "environment"
	attrAlias       = "alias"
)

var durationBuckets = []float64{0.001, 0.01, 0.1, 0.5, 1.0, 2.5, 5.0, 10.0}

// Metrics provides methods for recording observability metrics.
type Metrics struct {
	// HTTP metrics (MCP transport)
	httpRequestsTotal   metric.Int64Counter
	httpRequestDuration metric.Float64Histogram

	// Tomcat Manager metrics
	managerRequestsTotal   metric.Int64Counter
	managerRequestDuration metric.Float64Histogram
	activeConnections      metric.Int64UpDownCounter

	// MCP tool metrics
	toolInvocationsTotal   metric.Int64Counter
	toolInvocationDuration metric.Float64Histogram

	// detailedLabels adds the raw connection alias to Manager request
	// metrics. The classified environment is always recorded.
	detailedLabels bool
}

// NewMetrics creates a new Metrics instance with all metrics initialized.
func NewMetrics(meter metric.Meter, detailedLabels bool) (*Metrics, error) {
	m := &Metrics{
		detailedLabels: detailedLabels,
	}

	var err error

	m.httpRequestsTotal, err = meter.Int64Counter(
		"http_requests_total",
		metric.WithDescription("Total number of HTTP requests"),
		metric.WithUnit("{request}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create http_requests_total counter: %w", err)
	}

	m.httpRequestDuration, err = meter.Float64Histogram(
		"http_request_duration_seconds",
		metric.WithDescription("HTTP request duration in seconds"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(durationBuckets...),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create http_request_duration_seconds histogram: %w", err)
	}

	m.managerRequestsTotal, err = meter.Int64Counter(
		"tomcat_manager_requests_total",
		metric.WithDescription("Total number of requests sent to Tomcat Manager applications"),
		metric.WithUnit("{request}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create tomcat_manager_requests_total counter: %w", err)
	}

	m.managerRequestDuration, err = meter.Float64Histogram(
		"tomcat_manager_request_duration_seconds",
		metric.WithDescription("Tomcat Manager request duration in seconds"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(durationBuckets...),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create tomcat_manager_request_duration_seconds histogram: %w", err)
	}

	m.activeConnections, err = meter.Int64UpDownCounter(
		"tomcat_active_connections",
		metric.WithDescription("Number of registered Tomcat Manager connections"),
		metric.WithUnit("{connection}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create tomcat_active_connections gauge: %w", err)
	}

	m.toolInvocationsTotal, err = meter.Int64Counter(
		"mcp_tool_invocations_total",
		metric.WithDescription("Total number of MCP tool invocations"),
		metric.WithUnit("{invocation}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create mcp_tool_invocations_total counter: %w", err)
	}

	m.toolInvocationDuration, err = meter.Float64Histogram(
		"mcp_tool_invocation_duration_seconds",
		metric.WithDescription("MCP tool invocation duration in seconds"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(durationBuckets...),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create mcp_tool_invocation_duration_seconds histogram: %w", err)
	}

	return m, nil
}

// RecordHTTPRequest records an HTTP request with method, path, status code, and duration.
func (m *Metrics) RecordHTTPRequest(ctx context.Context, method, path string, statusCode int, duration time.Duration) {
	if m == nil || m.httpRequestsTotal == nil || m.httpRequestDuration == nil {
		return
	}

	attrs := []attribute.KeyValue{
		attribute.String(attrMethod, method),
		attribute.String(attrPath, path),
		attribute.String(attrStatus, strconv.Itoa(statusCode)),
	}

	m.httpRequestsTotal.Add(ctx, 1, metric.WithAttributes(attrs...))
	m.httpRequestDuration.Record(ctx, duration.Seconds(), metric.WithAttributes(attrs...))
}

// RecordTomcatRequest records one Manager request. The connection alias is
// taken from ctx (see ContextWithAlias).
//
// CARDINALITY NOTE: only the classified environment of the alias is recorded
// unless detailed labels are enabled.
func (m *Metrics) RecordTomcatRequest(ctx context.Context, operation, status string, duration time.Duration) {
	if m == nil || m.managerRequestsTotal == nil || m.managerRequestDuration == nil {
		return
	}

	alias := AliasFromContext(ctx)
	attrs := []attribute.KeyValue{
		attribute.String(attrOperation, operation),
		attribute.String(attrStatus, status),
		attribute.String(attrEnvironment, ClassifyAlias(alias)),
	}
	if m.detailedLabels && alias != "" {
		attrs = append(attrs, attribute.String(attrAlias, alias))
	}

	m.managerRequestsTotal.Add(ctx, 1, metric.WithAttributes(attrs...))
	m.managerRequestDuration.Record(ctx, duration.Seconds(), metric.WithAttributes(attrs...))
}

// RecordConnectionDelta adjusts the active connection gauge by delta.
func (m *Metrics) RecordConnectionDelta(ctx context.Context, delta int) {
	if m == nil || m.activeConnections == nil {
		return
	}
	m.activeConnections.Add(ctx, int64(delta))
}

// RecordToolInvocation records an MCP tool call.
func (m *Metrics) RecordToolInvocation(ctx context.Context, tool, status string, duration time.Duration) {
	if m == nil || m.toolInvocationsTotal == nil || m.toolInvocationDuration == nil {
		return
	}

	attrs := []attribute.KeyValue{
		attribute.String(attrTool, tool),
		attribute.String(attrStatus, status),
	}

	m.toolInvocationsTotal.Add(ctx, 1, metric.WithAttributes(attrs...))
	m.toolInvocationDuration.Record(ctx, duration.Seconds(), metric.WithAttributes(attrs...))
}

type aliasKey struct{}

// ContextWithAlias returns a context carrying the connection alias used for
// Manager requests made with it.
func ContextWithAlias(ctx context.Context, alias string) context.Context {
	return context.WithValue(ctx, aliasKey{}, alias)
}

// AliasFromContext returns the alias stored by ContextWithAlias, or "".
func AliasFromContext(ctx context.Context) string {
	alias, _ := ctx.Value(aliasKey{}).(string)
	return alias
}

type callerKey struct{}

// ContextWithCaller stores the authenticated MCP caller, the OAuth email
// when the HTTP transport requires a login.
func ContextWithCaller(ctx context.Context, caller string) context.Context {
	return context.WithValue(ctx, callerKey{}, caller)
}

// CallerFromContext returns the caller stored by ContextWithCaller, or "".
func CallerFromContext(ctx context.Context) string {
	caller, _ := ctx.Value(callerKey{}).(string)
	return caller
}

// Package instrumentation provides OpenTelemetry instrumentation for the
// mcp-tomcat server.
//
// # Metrics
//
// Server/HTTP Metrics:
//   - http_requests_total: Counter of HTTP requests by method, path, and status
//   - http_request_duration_seconds: Histogram of HTTP request durations
//
// Tomcat Manager Metrics:
//   - tomcat_manager_requests_total: Counter of Manager requests by operation, status and environment
//   - tomcat_manager_request_duration_seconds: Histogram of Manager request durations
//   - tomcat_active_connections: Gauge of registered connections
//
// Tool Metrics:
//   - mcp_tool_invocations_total: Counter of tool calls by tool and status
//   - mcp_tool_invocation_duration_seconds: Histogram of tool call durations
//
// # Cardinality Considerations
//
// Connection aliases are chosen by the caller of tomcat_connect and are
// unbounded. Manager metrics carry the classified environment of the alias
// (see ClassifyAlias); the raw alias is added only with
// METRICS_DETAILED_LABELS=true. The alias reaches the Manager client through
// the request context (ContextWithAlias).
//
// # Tracing
//
// Spans are created for MCP tool invocations (StartToolSpan), registry
// operations (StartConnectionSpan) and every Manager HTTP request.
//
// # Configuration
//
// Instrumentation is configured via environment variables:
//   - INSTRUMENTATION_ENABLED: Enable/disable instrumentation (default: false)
//   - METRICS_EXPORTER: prometheus, otlp or stdout (default: prometheus)
//   - TRACING_EXPORTER: otlp, stdout or none (default: none)
//   - OTEL_EXPORTER_OTLP_ENDPOINT: OTLP endpoint for traces/metrics
//   - OTEL_EXPORTER_OTLP_INSECURE: Use plain HTTP for OTLP
//   - OTEL_TRACES_SAMPLER_ARG: Sampling rate (0.0 to 1.0, default: 0.1)
//   - OTEL_SERVICE_NAME: Service name (default: mcp-tomcat)
//   - METRICS_DETAILED_LABELS: Add raw aliases to Manager metrics
//
// # Example Usage
//
//	provider, err := instrumentation.NewProvider(ctx, instrumentation.DefaultConfig())
//	if err != nil {
//		return err
//	}
//	defer provider.Shutdown(ctx)
//
//	registry := tomcat.NewRegistry(
//		tomcat.WithClientOptions(tomcat.WithRecorder(provider.Metrics())),
//	)
package instrumentation

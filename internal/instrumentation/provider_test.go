package instrumentation

import (
	"bytes"
	"context"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace/noop"
)

func newPrometheusProvider(t *testing.T, detailedLabels bool) *Provider {
	t.Helper()
	provider, err := NewProvider(context.Background(), Config{
		ServiceName:     "mcp-tomcat-test",
		ServiceVersion:  "1.0.0",
		Enabled:         true,
		MetricsExporter: ExporterPrometheus,
		TracingExporter: ExporterNone,
		DetailedLabels:  detailedLabels,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = provider.Shutdown(context.Background()) })
	return provider
}

func scrape(t *testing.T, provider *Provider) string {
	t.Helper()
	handler := provider.PrometheusHandler()
	require.NotNil(t, handler)

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	return rec.Body.String()
}

// hasMetric reports whether a sample or TYPE line for name is present.
func hasMetric(body, name string) bool {
	for _, line := range strings.Split(body, "\n") {
		if strings.HasPrefix(line, "# TYPE "+name+" ") ||
			strings.HasPrefix(line, name+"{") ||
			strings.HasPrefix(line, name+" ") {
			return true
		}
	}
	return false
}

func TestProvider_PrometheusExposesEveryMetric(t *testing.T) {
	provider := newPrometheusProvider(t, false)
	m := provider.Metrics()
	ctx := context.Background()
	prod := ContextWithAlias(ctx, "prod-eu-1")

	m.RecordHTTPRequest(ctx, http.MethodPost, "/mcp", http.StatusOK, 100*time.Millisecond)
	m.RecordTomcatRequest(prod, "list", StatusSuccess, 20*time.Millisecond)
	m.RecordTomcatRequest(prod, "deploy", StatusError, 2*time.Second)
	m.RecordConnectionDelta(ctx, 2)
	m.RecordConnectionDelta(ctx, -1)
	m.RecordToolInvocation(ctx, "tomcat_deploy", StatusError, 2*time.Second)

	body := scrape(t, provider)

	for _, name := range []string{
		"http_requests_total",
		"http_request_duration_seconds_bucket",
		"tomcat_manager_requests_total",
		"tomcat_manager_request_duration_seconds_bucket",
		"tomcat_active_connections",
		"mcp_tool_invocations_total",
		"mcp_tool_invocation_duration_seconds_bucket",
		"go_goroutines",
	} {
		assert.True(t, hasMetric(body, name), "missing %s", name)
	}
	assert.Contains(t, body, `operation="deploy"`)
	assert.Contains(t, body, `status="error"`)
}

func TestProvider_LabelCardinality(t *testing.T) {
	tests := []struct {
		name     string
		detailed bool
		present  []string
		absent   []string
	}{
		{
			name:    "environment only",
			present: []string{`environment="production"`, `tool="tomcat_start"`, `path="/mcp"`},
			absent:  []string{`alias="prod-eu-1"`},
		},
		{
			name:     "detailed",
			detailed: true,
			present:  []string{`environment="production"`, `alias="prod-eu-1"`},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			provider := newPrometheusProvider(t, tt.detailed)
			ctx := ContextWithAlias(context.Background(), "prod-eu-1")

			provider.Metrics().RecordHTTPRequest(ctx, http.MethodPost, "/mcp", http.StatusCreated, time.Millisecond)
			provider.Metrics().RecordTomcatRequest(ctx, "list", StatusSuccess, time.Millisecond)
			provider.Metrics().RecordToolInvocation(ctx, "tomcat_start", StatusSuccess, time.Millisecond)

			body := scrape(t, provider)
			for _, want := range tt.present {
				assert.Contains(t, body, want)
			}
			for _, unwanted := range tt.absent {
				assert.NotContains(t, body, unwanted)
			}
		})
	}
}

func TestProvider_Disabled(t *testing.T) {
	ctx := context.Background()
	provider, err := NewProvider(ctx, Config{Enabled: false, MetricsExporter: "bogus"})
	require.NoError(t, err, "a disabled provider does not validate exporters")

	assert.False(t, provider.Enabled())
	assert.NotNil(t, provider.Metrics())
	assert.NotNil(t, provider.AuditLogger())
	assert.Nil(t, provider.PrometheusHandler())

	provider.Metrics().RecordTomcatRequest(ctx, "list", StatusSuccess, time.Millisecond)
	assert.NoError(t, provider.Shutdown(ctx))
}

func TestProvider_NilSafe(t *testing.T) {
	var provider *Provider
	assert.False(t, provider.Enabled())
	assert.NotNil(t, provider.Metrics())
	assert.NotNil(t, provider.AuditLogger())
	assert.Nil(t, provider.PrometheusHandler())
	assert.NoError(t, provider.Shutdown(context.Background()))
}

func TestProvider_InvalidConfig(t *testing.T) {
	_, err := NewProvider(context.Background(), Config{Enabled: true, MetricsExporter: "graphite"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid instrumentation config")
}

func TestProvider_StdoutTracing(t *testing.T) {
	t.Cleanup(func() { otel.SetTracerProvider(noop.NewTracerProvider()) })

	provider, err := NewProvider(context.Background(), Config{
		Enabled:           true,
		MetricsExporter:   ExporterStdout,
		TracingExporter:   ExporterStdout,
		TraceSamplingRate: 1,
	})
	require.NoError(t, err)

	assert.Nil(t, provider.PrometheusHandler())
	ctx, span := StartToolSpan(context.Background(), "tomcat_serverinfo")
	assert.NotEmpty(t, GetTraceID(ctx))
	span.End()

	assert.NoError(t, provider.Shutdown(context.Background()))
}

func TestProvider_SetAuditLogger(t *testing.T) {
	var buf bytes.Buffer
	provider := newPrometheusProvider(t, false)
	provider.SetAuditLogger(slog.New(slog.NewTextHandler(&buf, nil)))

	provider.AuditLogger().LogToolInvocation(NewToolInvocation("tomcat_list_applications").CompleteSuccess())

	assert.Contains(t, buf.String(), "tool=tomcat_list_applications")
}

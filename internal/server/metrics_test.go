package server

import (
	"context"
	"errors"
	"net"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/giantswarm/mcp-tomcat/internal/instrumentation"
)

func TestNewMetricsServer(t *testing.T) {
	tests := []struct {
		name     string
		config   MetricsServerConfig
		wantErr  string
		wantAddr string
		wantPath string
	}{
		{
			name:    "nil provider",
			config:  MetricsServerConfig{Addr: ":9090"},
			wantErr: "instrumentation provider is required",
		},
		{
			name:    "disabled provider",
			config:  MetricsServerConfig{InstrumentationProvider: createDisabledProvider(t)},
			wantErr: "no prometheus exporter",
		},
		{
			name:     "defaults",
			config:   MetricsServerConfig{InstrumentationProvider: createTestProvider(t)},
			wantAddr: DefaultMetricsAddr,
			wantPath: "/metrics",
		},
		{
			name: "custom address and path",
			config: MetricsServerConfig{
				Addr:                    "127.0.0.1:9191",
				InstrumentationProvider: createTestProviderWithPath(t, "/prometheus"),
			},
			wantAddr: "127.0.0.1:9191",
			wantPath: "/prometheus",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv, err := NewMetricsServer(tt.config)
			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantAddr, srv.Addr())
			assert.Equal(t, tt.wantPath, srv.Path())
		})
	}
}

func TestMetricsServer_Routes(t *testing.T) {
	provider := createTestProvider(t)
	provider.Metrics().RecordTomcatRequest(context.Background(), "list", instrumentation.StatusSuccess, 20*time.Millisecond)

	srv, err := NewMetricsServer(MetricsServerConfig{InstrumentationProvider: provider})
	require.NoError(t, err)

	rec := httptest.NewRecorder()
	srv.httpServer.Handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "tomcat_manager_requests_total")

	rec = httptest.NewRecorder()
	srv.httpServer.Handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", rec.Body.String())

	rec = httptest.NewRecorder()
	srv.httpServer.Handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/mcp", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestMetricsServer_StartAndShutdown(t *testing.T) {
	addr := freeAddr(t)
	srv, err := NewMetricsServer(MetricsServerConfig{Addr: addr, InstrumentationProvider: createTestProvider(t)})
	require.NoError(t, err)

	serverErr := make(chan error, 1)
	go func() { serverErr <- srv.Start() }()

	require.Eventually(t, func() bool {
		resp, err := http.Get("http://" + addr + "/healthz")
		if err != nil {
			return false
		}
		_ = resp.Body.Close()
		return resp.StatusCode == http.StatusOK
	}, 2*time.Second, 20*time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, srv.Shutdown(ctx))

	select {
	case err := <-serverErr:
		assert.True(t, errors.Is(err, http.ErrServerClosed), "unexpected error: %v", err)
	case <-time.After(2 * time.Second):
		t.Fatal("metrics server did not stop")
	}
}

func TestMetricsServer_ShutdownWithoutStart(t *testing.T) {
	srv, err := NewMetricsServer(MetricsServerConfig{Addr: freeAddr(t), InstrumentationProvider: createTestProvider(t)})
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	assert.NoError(t, srv.Shutdown(ctx))
}

func freeAddr(t *testing.T) string {
	t.Helper()
	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := l.Addr().String()
	require.NoError(t, l.Close())
	return addr
}

func createTestProvider(t *testing.T) *instrumentation.Provider {
	return createTestProviderWithPath(t, "")
}

func createTestProviderWithPath(t *testing.T, path string) *instrumentation.Provider {
	t.Helper()
	provider, err := instrumentation.NewProvider(context.Background(), instrumentation.Config{
		Enabled:            true,
		MetricsExporter:    instrumentation.ExporterPrometheus,
		TracingExporter:    instrumentation.ExporterNone,
		PrometheusEndpoint: path,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = provider.Shutdown(context.Background()) })
	return provider
}

func createDisabledProvider(t *testing.T) *instrumentation.Provider {
	t.Helper()
	provider, err := instrumentation.NewProvider(context.Background(), instrumentation.Config{Enabled: false})
	require.NoError(t, err)
	return provider
}

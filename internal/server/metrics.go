package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/giantswarm/mcp-tomcat/internal/instrumentation"
)

const (
	// DefaultMetricsAddr is the listen address of the dedicated metrics server.
	DefaultMetricsAddr = ":9090"

	// DefaultShutdownTimeout bounds graceful shutdown of HTTP servers.
	DefaultShutdownTimeout = 30 * time.Second
)

// MetricsServerConfig configures the dedicated metrics server.
type MetricsServerConfig struct {
	// Addr is the listen address (default: DefaultMetricsAddr).
	Addr string

	InstrumentationProvider *instrumentation.Provider
}

// MetricsServer serves Prometheus metrics on its own port, away from MCP traffic.
type MetricsServer struct {
	addr       string
	path       string
	httpServer *http.Server
}

// NewMetricsServer creates a MetricsServer. The provider must use the
// prometheus exporter.
func NewMetricsServer(config MetricsServerConfig) (*MetricsServer, error) {
	if config.InstrumentationProvider == nil {
		return nil, errors.New("instrumentation provider is required")
	}

	handler := config.InstrumentationProvider.PrometheusHandler()
	if handler == nil {
		return nil, errors.New("instrumentation provider has no prometheus exporter")
	}

	addr := config.Addr
	if addr == "" {
		addr = DefaultMetricsAddr
	}

	path := config.InstrumentationProvider.Config().PrometheusEndpoint
	if path == "" {
		path = "/metrics"
	}

	mux := http.NewServeMux()
	mux.Handle(path, handler)
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	return &MetricsServer{
		addr: addr,
		path: path,
		httpServer: &http.Server{
			Addr:              addr,
			Handler:           mux,
			ReadHeaderTimeout: 10 * time.Second,
			WriteTimeout:      30 * time.Second,
			IdleTimeout:       60 * time.Second,
		},
	}, nil
}

// Addr returns the listen address.
func (s *MetricsServer) Addr() string {
	return s.addr
}

// Path returns the metrics endpoint path.
func (s *MetricsServer) Path() string {
	return s.path
}

// Start listens and serves until Shutdown. It returns http.ErrServerClosed
// after a graceful shutdown.
func (s *MetricsServer) Start() error {
	if err := s.httpServer.ListenAndServe(); err != nil {
		if errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return fmt.Errorf("metrics server: %w", err)
	}
	return nil
}

// Shutdown gracefully stops the server.
func (s *MetricsServer) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/giantswarm/mcp-tomcat/internal/instrumentation"
	"github.com/giantswarm/mcp-tomcat/internal/server"
	"github.com/giantswarm/mcp-tomcat/internal/server/middleware"
)

// newStreamableHTTPHandler builds the MCP endpoint, health endpoints and the
// middleware chain served by the streamable HTTP transport. With oauthSrv
// set, the MCP endpoint requires a bearer token and the OAuth endpoints are
// served alongside.
func newStreamableHTTPHandler(mcpSrv *mcpserver.MCPServer, config ServeConfig, provider *instrumentation.Provider, health *server.HealthChecker, oauthSrv *server.OAuthHTTPServer) (http.Handler, error) {
	mux := http.NewServeMux()
	var mcpHandler http.Handler = mcpserver.NewStreamableHTTPServer(mcpSrv,
		mcpserver.WithEndpointPath(config.HTTPEndpoint),
	)
	if oauthSrv != nil {
		oauthSrv.RegisterRoutes(mux)
		mcpHandler = oauthSrv.Protect(mcpHandler)
	}
	mux.Handle(config.HTTPEndpoint, mcpHandler)

	health.RegisterHealthEndpoints(mux)

	return wrapHTTPHandler(mux, config, provider, oauthSrv != nil, config.HTTPEndpoint)
}

// wrapHTTPHandler applies the request size limit, CORS, security headers
// and HTTP metrics shared by both HTTP transports.
func wrapHTTPHandler(mux *http.ServeMux, config ServeConfig, provider *instrumentation.Provider, withOAuth bool, endpoints ...string) (http.Handler, error) {
	allowedOrigins, err := middleware.ValidateAllowedOrigins(config.AllowedOrigins)
	if err != nil {
		return nil, fmt.Errorf("invalid ALLOWED_ORIGINS: %w", err)
	}

	var handler http.Handler = mux
	handler = middleware.MaxRequestSize(config.MaxRequestBytes)(handler)
	if len(allowedOrigins) > 0 {
		handler = middleware.CORS(allowedOrigins)(handler)
	}
	handler = middleware.SecurityHeaders(middleware.SecurityHeadersConfig{EnableHSTS: config.EnableHSTS})(handler)

	routes := append(endpoints, server.HealthEndpoints...)
	if withOAuth {
		routes = append(routes, server.OAuthRoutes...)
	}
	handler = middleware.HTTPMetrics(provider, routes...)(handler)
	return handler, nil
}

// newOAuthFrontDoor creates the OAuth server when --oauth is set and
// returns nil otherwise.
func newOAuthFrontDoor(config ServeConfig, provider *instrumentation.Provider, logger *slog.Logger) (*server.OAuthHTTPServer, error) {
	if !config.OAuth.Enabled {
		return nil, nil
	}
	cfg := config.OAuth
	cfg.Metrics = provider.Enabled()
	cfg.ServiceVersion = rootCmd.Version
	oauthSrv, err := server.NewOAuthHTTPServer(cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create OAuth front door: %w", err)
	}
	return oauthSrv, nil
}

// runStreamableHTTPServer runs the server with Streamable HTTP transport
func runStreamableHTTPServer(ctx context.Context, mcpSrv *mcpserver.MCPServer, config ServeConfig, provider *instrumentation.Provider, sc *server.ServerContext) error {
	oauthSrv, err := newOAuthFrontDoor(config, provider, slog.Default())
	if err != nil {
		return err
	}

	health := server.NewHealthChecker(sc)
	handler, err := newStreamableHTTPHandler(mcpSrv, config, provider, health, oauthSrv)
	if err != nil {
		return err
	}

	slog.Info("streamable HTTP server starting",
		"addr", config.HTTPAddr,
		"endpoint", config.HTTPEndpoint,
		"health_endpoints", server.HealthEndpoints,
		"oauth", oauthSrv != nil)

	// Metrics live on their own port, away from MCP traffic
	var metricsServer *server.MetricsServer
	if config.Metrics.Enabled && provider != nil && provider.Enabled() {
		metricsServer, err = startMetricsServer(config.Metrics, provider)
		if err != nil {
			return fmt.Errorf("failed to start metrics server: %w", err)
		}
	}

	httpServer := &http.Server{
		Addr:              config.HTTPAddr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      120 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	serverDone := make(chan error, 1)
	go func() {
		defer close(serverDone)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverDone <- err
		}
	}()

	// Wait for either shutdown signal or server completion
	select {
	case <-ctx.Done():
		slog.Info("shutdown signal received, stopping HTTP server")
		health.SetReady(false)
		shutdownCtx, cancel := context.WithTimeout(context.Background(), server.DefaultShutdownTimeout)
		defer cancel()

		if metricsServer != nil {
			if err := metricsServer.Shutdown(shutdownCtx); err != nil {
				slog.Error("error shutting down metrics server", "error", err)
			}
		}
		if err := oauthSrv.Shutdown(shutdownCtx); err != nil {
			slog.Error("error shutting down OAuth server", "error", err)
		}

		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("error shutting down HTTP server: %w", err)
		}
	case err := <-serverDone:
		if err != nil {
			return fmt.Errorf("HTTP server stopped with error: %w", err)
		}
		slog.Info("HTTP server stopped normally")
	}

	slog.Info("HTTP server gracefully stopped")
	return nil
}

// startMetricsServer starts the dedicated metrics server on a separate port.
func startMetricsServer(config MetricsServeConfig, provider *instrumentation.Provider) (*server.MetricsServer, error) {
	metricsServer, err := server.NewMetricsServer(server.MetricsServerConfig{
		Addr:                    config.Addr,
		InstrumentationProvider: provider,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create metrics server: %w", err)
	}

	go func() {
		if err := metricsServer.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("metrics server error", "error", err)
		}
	}()

	slog.Info("metrics server started", "addr", metricsServer.Addr(), "endpoint", metricsServer.Path())
	return metricsServer, nil
}

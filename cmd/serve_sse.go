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
)

// newSSEHandler mounts the SSE and message endpoints of sseServer. With
// oauthSrv set, both require a bearer token and the OAuth endpoints are
// served alongside.
func newSSEHandler(sseServer *mcpserver.SSEServer, config ServeConfig, provider *instrumentation.Provider, oauthSrv *server.OAuthHTTPServer) (http.Handler, error) {
	mux := http.NewServeMux()
	var sseHandler, messageHandler http.Handler = sseServer.SSEHandler(), sseServer.MessageHandler()
	if oauthSrv != nil {
		oauthSrv.RegisterRoutes(mux)
		sseHandler = oauthSrv.Protect(sseHandler)
		messageHandler = oauthSrv.Protect(messageHandler)
	}
	mux.Handle(config.SSEEndpoint, sseHandler)
	mux.Handle(config.MessageEndpoint, messageHandler)

	return wrapHTTPHandler(mux, config, provider, oauthSrv != nil, config.SSEEndpoint, config.MessageEndpoint)
}

// runSSEServer runs the server with SSE transport
func runSSEServer(ctx context.Context, mcpSrv *mcpserver.MCPServer, config ServeConfig, provider *instrumentation.Provider) error {
	slog.Debug("initializing SSE server",
		"addr", config.HTTPAddr,
		"sse_endpoint", config.SSEEndpoint,
		"message_endpoint", config.MessageEndpoint)

	oauthSrv, err := newOAuthFrontDoor(config, provider, slog.Default())
	if err != nil {
		return err
	}

	sseServer := mcpserver.NewSSEServer(mcpSrv,
		mcpserver.WithSSEEndpoint(config.SSEEndpoint),
		mcpserver.WithMessageEndpoint(config.MessageEndpoint),
	)
	handler, err := newSSEHandler(sseServer, config, provider, oauthSrv)
	if err != nil {
		return err
	}

	httpServer := &http.Server{
		Addr:              config.HTTPAddr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	slog.Info("SSE server starting",
		"addr", config.HTTPAddr,
		"sse_endpoint", config.SSEEndpoint,
		"message_endpoint", config.MessageEndpoint,
		"oauth", oauthSrv != nil)

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
		slog.Info("shutdown signal received, stopping SSE server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), server.DefaultShutdownTimeout)
		defer cancel()
		if err := sseServer.Shutdown(shutdownCtx); err != nil {
			slog.Error("error closing SSE sessions", "error", err)
		}
		if err := oauthSrv.Shutdown(shutdownCtx); err != nil {
			slog.Error("error shutting down OAuth server", "error", err)
		}
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("error shutting down SSE server: %w", err)
		}
	case err := <-serverDone:
		if err != nil {
			return fmt.Errorf("SSE server stopped with error: %w", err)
		}
		slog.Info("SSE server stopped normally")
	}

	slog.Info("SSE server gracefully stopped")
	return nil
}

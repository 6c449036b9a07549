// Package server provides the ServerContext pattern and related infrastructure
// for the mcp-tomcat server.
//
// The ServerContext struct encapsulates the dependencies shared by all MCP
// tools:
//
//   - the Tomcat connection registry (aliases, current connection)
//   - Logger interface
//   - Configuration settings (non-destructive mode, dry-run, logging)
//   - the OpenTelemetry instrumentation provider
//   - Context for cancellation and lifecycle management
//
// All dependencies are injected using functional options:
//
//	serverCtx, err := NewServerContext(ctx,
//		WithRegistry(registry),
//		WithLogger(NewSlogLogger(slog.Default())),
//		WithNonDestructiveMode(true),
//		WithInstrumentationProvider(provider),
//	)
//	if err != nil {
//		return err
//	}
//	defer serverCtx.Shutdown()
//
// Shutdown closes every registered Tomcat connection and cancels the
// context returned by Context.
//
// The package also provides the HTTP health endpoints (/healthz, /readyz and
// /healthz/detailed, which checks every registered Tomcat server) and the
// dedicated Prometheus metrics server.
package server

package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	mcpserver "github.com/mark3labs/mcp-go/server"
	"github.com/spf13/cobra"

	"github.com/giantswarm/mcp-tomcat/internal/instrumentation"
	"github.com/giantswarm/mcp-tomcat/internal/logging"
	"github.com/giantswarm/mcp-tomcat/internal/server"
	"github.com/giantswarm/mcp-tomcat/internal/server/middleware"
	"github.com/giantswarm/mcp-tomcat/internal/tomcat"
	"github.com/giantswarm/mcp-tomcat/internal/tools/application"
	"github.com/giantswarm/mcp-tomcat/internal/tools/connection"
	"github.com/giantswarm/mcp-tomcat/internal/tools/jmx"
	"github.com/giantswarm/mcp-tomcat/internal/tools/output"
	"github.com/giantswarm/mcp-tomcat/internal/tools/status"
)

// Transport type constants for the MCP server.
const (
	transportStdio          = "stdio"
	transportSSE            = "sse"
	transportStreamableHTTP = "streamable-http"
)

// envValueTrue is the string value used to enable boolean environment variables.
const envValueTrue = "true"

// Environment variables for connection defaults.
const (
	envTomcatUsername = "TOMCAT_USERNAME"
	envTomcatPassword = "TOMCAT_PASSWORD"
	envTomcatTimeout  = "TOMCAT_TIMEOUT"
)

// Environment variables for OAuth secrets, never taken as flags.
const (
	envOAuthClientSecret      = "OAUTH_CLIENT_SECRET"
	envOAuthRegistrationToken = "OAUTH_REGISTRATION_TOKEN"
	envOAuthEncryptionKey     = "OAUTH_ENCRYPTION_KEY"
	envValkeyPassword         = "VALKEY_PASSWORD"
)

// newServeCmd creates the Cobra command for starting the MCP server.
func newServeCmd() *cobra.Command {
	var (
		config ServeConfig

		// Transport options
		transport       string
		httpAddr        string
		sseEndpoint     string
		messageEndpoint string
		httpEndpoint    string

		// Output options
		maxItems         int
		maxResponseBytes int
		outputFormat     string
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the MCP Tomcat server",
		Long: `Start the MCP Tomcat server to provide tools for managing Apache Tomcat
servers through the Tomcat Manager application via the Model Context Protocol.

Supports multiple transport types:
  - stdio: Standard input/output (default)
  - sse: Server-Sent Events over HTTP
  - streamable-http: Streamable HTTP transport

Connection defaults:
  The username, password and timeout used by tomcat_connect when the caller
  leaves them out come from --default-username, TOMCAT_PASSWORD and
  --default-timeout. TOMCAT_USERNAME and TOMCAT_TIMEOUT apply when the
  matching flag is not set. Connections listed in --connections-file are
  registered at start-up.

Safety:
  With --non-destructive (the default) deploy, undeploy, start, stop and
  reload are refused unless listed in --allowed-operations. --dry-run reports
  the Manager command that would be sent without sending it. tomcat_deploy
  only uploads local WAR files from --war-dir.

OAuth (--oauth):
  The sse and streamable-http transports can require an OAuth 2.1 login
  through Dex or Google. The client secret, registration token, encryption
  key and Valkey password are read from OAUTH_CLIENT_SECRET,
  OAUTH_REGISTRATION_TOKEN, OAUTH_ENCRYPTION_KEY and VALKEY_PASSWORD.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			config.Transport = transport
			config.HTTPAddr = httpAddr
			config.SSEEndpoint = sseEndpoint
			config.MessageEndpoint = messageEndpoint
			config.HTTPEndpoint = httpEndpoint
			config.Output = output.Config{
				MaxItems:         maxItems,
				MaxResponseBytes: maxResponseBytes,
				Format:           outputFormat,
			}

			// Load env vars only for flags not explicitly set by user
			loadTomcatEnvVars(cmd, &config)
			config.EnableHSTS = os.Getenv("ENABLE_HSTS") == envValueTrue
			loadEnvIfEmpty(&config.AllowedOrigins, "ALLOWED_ORIGINS")
			loadOAuthEnvVars(&config.OAuth)

			if err := config.Validate(); err != nil {
				return err
			}
			return runServe(config)
		},
	}

	// Safety and logging flags
	cmd.Flags().BoolVar(&config.NonDestructiveMode, "non-destructive", true, "Refuse mutating Manager commands unless allowed (default: true)")
	cmd.Flags().BoolVar(&config.DryRun, "dry-run", false, "Report mutating Manager commands instead of sending them (default: false)")
	cmd.Flags().StringSliceVar(&config.AllowedOperations, "allowed-operations", nil, "Mutating operations permitted in non-destructive mode (deploy, undeploy, start, stop, reload)")
	cmd.Flags().BoolVar(&config.DebugMode, "debug", false, "Enable debug logging (default: false)")
	cmd.Flags().StringVar(&config.LogFormat, "log-format", logging.FormatText, "Log format: text or json")

	// Connection flags
	cmd.Flags().StringVar(&config.ConnectionDefaults.Username, "default-username", "", "Manager username when tomcat_connect omits it (can also be set via TOMCAT_USERNAME env var, default: tomcat)")
	cmd.Flags().DurationVar(&config.ConnectionDefaults.Timeout, "default-timeout", tomcat.DefaultTimeout, "Manager request timeout when tomcat_connect omits it (can also be set via TOMCAT_TIMEOUT env var)")
	cmd.Flags().StringVar(&config.ConnectionsFile, "connections-file", "", "YAML file of Tomcat connections to register at start-up")
	cmd.Flags().StringVar(&config.WarDir, "war-dir", "", "Directory tomcat_deploy may upload local WAR files from (uploads are disabled when unset)")

	// Output flags
	cmd.Flags().IntVar(&maxItems, "max-items", output.DefaultMaxItems, fmt.Sprintf("Maximum items returned by list tools (at most %d)", output.AbsoluteMaxItems))
	cmd.Flags().IntVar(&maxResponseBytes, "max-response-bytes", output.DefaultMaxResponseBytes, fmt.Sprintf("Maximum size of a tool result in bytes (at most %d)", output.AbsoluteMaxResponseBytes))
	cmd.Flags().StringVar(&outputFormat, "output", output.FormatJSON, "Default result format: json or table")

	// Transport flags
	cmd.Flags().StringVar(&transport, "transport", transportStdio, "Transport type: stdio, sse, or streamable-http")
	cmd.Flags().StringVar(&httpAddr, "http-addr", ":8080", "HTTP server address (for sse and streamable-http transports)")
	cmd.Flags().StringVar(&sseEndpoint, "sse-endpoint", "/sse", "SSE endpoint path (for sse transport)")
	cmd.Flags().StringVar(&messageEndpoint, "message-endpoint", "/message", "Message endpoint path (for sse transport)")
	cmd.Flags().StringVar(&httpEndpoint, "http-endpoint", "/mcp", "HTTP endpoint path (for streamable-http transport)")
	cmd.Flags().Int64Var(&config.MaxRequestBytes, "max-request-bytes", middleware.DefaultMaxRequestBytes, "Maximum MCP request body size in bytes (for streamable-http transport)")

	// OAuth flags
	cmd.Flags().BoolVar(&config.OAuth.Enabled, "oauth", false, "Require an OAuth 2.1 login on the HTTP transports (default: false)")
	cmd.Flags().StringVar(&config.OAuth.BaseURL, "oauth-base-url", "", "Public base URL of this server, the OAuth issuer (e.g. https://tomcat-mcp.example.com)")
	cmd.Flags().StringVar(&config.OAuth.Provider, "oauth-provider", server.OAuthProviderDex, fmt.Sprintf("OAuth identity provider: %s or %s", server.OAuthProviderDex, server.OAuthProviderGoogle))
	cmd.Flags().StringVar(&config.OAuth.ClientID, "oauth-client-id", "", "OAuth client ID at the identity provider (secret via OAUTH_CLIENT_SECRET)")
	cmd.Flags().StringVar(&config.OAuth.DexIssuerURL, "oauth-dex-issuer-url", "", "Dex issuer URL (for the dex provider)")
	cmd.Flags().StringVar(&config.OAuth.DexConnectorID, "oauth-dex-connector-id", "", "Dex connector to skip the connector selection screen")
	cmd.Flags().BoolVar(&config.OAuth.AllowPublicClientRegistration, "oauth-allow-public-registration", false, "Allow dynamic client registration without OAUTH_REGISTRATION_TOKEN")
	cmd.Flags().StringVar(&config.OAuth.Storage, "oauth-storage-type", server.OAuthStorageMemory, "OAuth token storage: memory or valkey")
	cmd.Flags().StringVar(&config.OAuth.ValkeyURL, "oauth-valkey-url", "", "Valkey address for valkey storage (password via VALKEY_PASSWORD)")
	cmd.Flags().BoolVar(&config.OAuth.ValkeyTLS, "oauth-valkey-tls", false, "Connect to Valkey over TLS")

	// Metrics server flags
	cmd.Flags().BoolVar(&config.Metrics.Enabled, "metrics-enabled", true, "Serve Prometheus metrics on a dedicated port when instrumentation is enabled")
	cmd.Flags().StringVar(&config.Metrics.Addr, "metrics-addr", server.DefaultMetricsAddr, "Metrics server address")

	return cmd
}

// loadTomcatEnvVars fills connection defaults from the environment.
// Environment variables only apply when the matching flag was not set.
func loadTomcatEnvVars(cmd *cobra.Command, config *ServeConfig) {
	if !cmd.Flags().Changed("default-username") {
		loadEnvIfEmpty(&config.ConnectionDefaults.Username, envTomcatUsername)
	}
	// There is no password flag: command lines show up in process listings.
	loadEnvIfEmpty(&config.ConnectionDefaults.Password, envTomcatPassword)

	if !cmd.Flags().Changed("default-timeout") {
		if d, ok := parseDurationEnv(os.Getenv(envTomcatTimeout), envTomcatTimeout); ok {
			config.ConnectionDefaults.Timeout = d
		}
	}
}

// loadOAuthEnvVars reads the OAuth secrets from the environment.
func loadOAuthEnvVars(config *server.OAuthConfig) {
	loadEnvIfEmpty(&config.ClientSecret, envOAuthClientSecret)
	loadEnvIfEmpty(&config.RegistrationToken, envOAuthRegistrationToken)
	loadEnvIfEmpty(&config.EncryptionKey, envOAuthEncryptionKey)
	loadEnvIfEmpty(&config.ValkeyPassword, envValkeyPassword)
}

// runServe contains the main server logic with support for multiple transports
func runServe(config ServeConfig) error {
	logger, err := logging.New(os.Stderr, config.LogFormat, config.DebugMode)
	if err != nil {
		return err
	}
	slog.SetDefault(logger)

	// Setup graceful shutdown - listen for both SIGINT and SIGTERM
	shutdownCtx, cancel := signal.NotifyContext(context.Background(),
		os.Interrupt, syscall.SIGTERM)
	defer cancel()

	// Initialize OpenTelemetry instrumentation provider
	instrumentationConfig := instrumentation.DefaultConfig()
	instrumentationConfig.ServiceVersion = rootCmd.Version
	instrumentationProvider, err := instrumentation.NewProvider(shutdownCtx, instrumentationConfig)
	if err != nil {
		return fmt.Errorf("failed to create instrumentation provider: %w", err)
	}
	defer func() {
		if shutdownErr := instrumentationProvider.Shutdown(context.Background()); shutdownErr != nil {
			logger.Error("error during instrumentation shutdown", logging.Err(shutdownErr))
		}
	}()

	if instrumentationProvider.Enabled() {
		logger.Info("OpenTelemetry instrumentation enabled",
			"metrics", instrumentationConfig.MetricsExporter,
			"tracing", instrumentationConfig.TracingExporter)
	}

	registry := newRegistry(shutdownCtx, instrumentationProvider, logger)

	serverContext, err := server.NewServerContext(shutdownCtx,
		server.WithRegistry(registry),
		server.WithLogger(server.NewSlogLogger(logger)),
		server.WithNonDestructiveMode(config.NonDestructiveMode),
		server.WithDryRun(config.DryRun),
		server.WithAllowedOperations(config.AllowedOperations),
		server.WithLogLevel(logLevel(config.DebugMode)),
		server.WithConnectionDefaults(config.ConnectionDefaults),
		server.WithWarDir(config.WarDir),
		server.WithOutputConfig(&config.Output),
		server.WithInstrumentationProvider(instrumentationProvider),
	)
	if err != nil {
		return fmt.Errorf("failed to create server context: %w", err)
	}
	defer func() {
		if err := serverContext.Shutdown(); err != nil {
			logger.Error("error during server context shutdown", logging.Err(err))
		}
	}()

	if config.ConnectionsFile != "" {
		entries, err := loadConnectionsFile(config.ConnectionsFile)
		if err != nil {
			return err
		}
		if err := connectConfiguredServers(registry, entries, config.ConnectionDefaults, logger); err != nil {
			return err
		}
	}

	mcpSrv := mcpserver.NewMCPServer("mcp-tomcat", rootCmd.Version,
		mcpserver.WithToolCapabilities(true),
	)
	if err := registerTools(mcpSrv, serverContext); err != nil {
		return err
	}

	switch config.Transport {
	case transportStdio:
		return runStdioServer(mcpSrv)
	case transportSSE:
		logger.Info("starting MCP Tomcat server", "transport", config.Transport)
		return runSSEServer(shutdownCtx, mcpSrv, config, instrumentationProvider)
	case transportStreamableHTTP:
		logger.Info("starting MCP Tomcat server", "transport", config.Transport)
		return runStreamableHTTPServer(shutdownCtx, mcpSrv, config, instrumentationProvider, serverContext)
	default:
		return fmt.Errorf("unsupported transport type: %s (supported: stdio, sse, streamable-http)", config.Transport)
	}
}

// newRegistry builds the connection registry with every client reporting
// Manager request metrics and the active connection gauge kept current.
func newRegistry(ctx context.Context, provider *instrumentation.Provider, logger *slog.Logger) *tomcat.Registry {
	metrics := provider.Metrics()
	return tomcat.NewRegistry(
		tomcat.WithConnectionHook(func(delta int) {
			metrics.RecordConnectionDelta(ctx, delta)
		}),
		tomcat.WithClientOptions(
			tomcat.WithRecorder(metrics),
			tomcat.WithLogger(logger),
		),
	)
}

// registerTools registers every tool category.
func registerTools(mcpSrv *mcpserver.MCPServer, sc *server.ServerContext) error {
	if err := connection.RegisterConnectionTools(mcpSrv, sc); err != nil {
		return fmt.Errorf("failed to register connection tools: %w", err)
	}
	if err := application.RegisterApplicationTools(mcpSrv, sc); err != nil {
		return fmt.Errorf("failed to register application tools: %w", err)
	}
	if err := status.RegisterStatusTools(mcpSrv, sc); err != nil {
		return fmt.Errorf("failed to register status tools: %w", err)
	}
	if err := jmx.RegisterJMXTools(mcpSrv, sc); err != nil {
		return fmt.Errorf("failed to register jmx tools: %w", err)
	}
	return nil
}

func logLevel(debug bool) string {
	if debug {
		return "debug"
	}
	return "info"
}

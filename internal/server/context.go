package server

import (
	"context"
	"sync"

	"github.com/giantswarm/mcp-tomcat/internal/instrumentation"
	"github.com/giantswarm/mcp-tomcat/internal/logging"
	"github.com/giantswarm/mcp-tomcat/internal/tomcat"
	"github.com/giantswarm/mcp-tomcat/internal/tools/output"
)

// ServerContext carries what every tool handler needs: the Tomcat
// connection registry, the configuration, logging and instrumentation.
type ServerContext struct {
	registry *tomcat.Registry
	logger   Logger
	config   *Config

	instrumentationProvider *instrumentation.Provider

	// ctx is cancelled by Shutdown.
	ctx    context.Context
	cancel context.CancelFunc

	mu       sync.RWMutex
	shutdown bool
}

// NewServerContext creates a new ServerContext with the given options.
func NewServerContext(ctx context.Context, opts ...Option) (*ServerContext, error) {
	ctx, cancel := context.WithCancel(ctx)

	sc := &ServerContext{
		ctx:    ctx,
		cancel: cancel,
	}

	for _, opt := range opts {
		if err := opt(sc); err != nil {
			cancel()
			return nil, err
		}
	}

	if sc.config == nil {
		sc.config = NewDefaultConfig()
	}
	if sc.logger == nil {
		sc.logger = NewSlogLogger(nil)
	}
	if sc.registry == nil {
		sc.registry = tomcat.NewRegistry()
	}

	if err := sc.validate(); err != nil {
		cancel()
		return nil, err
	}

	return sc, nil
}

// Context returns the server context, cancelled on Shutdown.
func (sc *ServerContext) Context() context.Context {
	return sc.ctx
}

// Registry returns the Tomcat connection registry.
func (sc *ServerContext) Registry() *tomcat.Registry {
	return sc.registry
}

// Logger returns the logger.
func (sc *ServerContext) Logger() Logger {
	return sc.logger
}

// Config returns the server configuration.
func (sc *ServerContext) Config() *Config {
	return sc.config
}

// InstrumentationProvider returns the instrumentation provider, or nil.
func (sc *ServerContext) InstrumentationProvider() *instrumentation.Provider {
	return sc.instrumentationProvider
}

// Shutdown closes every Tomcat connection and cancels the server context.
// Calling it more than once is a no-op.
func (sc *ServerContext) Shutdown() error {
	sc.mu.Lock()
	defer sc.mu.Unlock()

	if sc.shutdown {
		return nil
	}

	if n := sc.registry.CloseAll(); n > 0 {
		sc.logger.Info("Closed Tomcat connections", "count", n)
	}

	sc.cancel()
	sc.shutdown = true
	return nil
}

// IsShutdown reports whether Shutdown has been called.
func (sc *ServerContext) IsShutdown() bool {
	sc.mu.RLock()
	defer sc.mu.RUnlock()
	return sc.shutdown
}

func (sc *ServerContext) validate() error {
	if sc.registry == nil {
		return ErrMissingRegistry
	}
	if sc.logger == nil {
		return ErrMissingLogger
	}
	if sc.config == nil {
		return ErrMissingConfig
	}
	if sc.config.Output == nil {
		sc.config.Output = output.DefaultConfig()
	}
	return nil
}

// Logger is logging.Logger plus With, used by the server and the tools.
type Logger interface {
	logging.Logger
	With(args ...interface{}) Logger
}

// Config holds the server configuration.
type Config struct {
	// Server settings
	ServerName string `json:"serverName"`
	Version    string `json:"version"`

	// Non-destructive mode settings
	NonDestructiveMode bool `json:"nonDestructiveMode"`
	DryRun             bool `json:"dryRun"`

	// AllowedOperations lists mutating operations (deploy, undeploy, start,
	// stop, reload) permitted in non-destructive mode.
	AllowedOperations []string `json:"allowedOperations"`

	// Logging settings
	LogLevel  string `json:"logLevel"`
	LogFormat string `json:"logFormat"`

	// Output limits and default format of tool results.
	Output *output.Config `json:"output"`

	// ConnectionDefaults fills fields tomcat_connect was called without.
	// Host is ignored.
	ConnectionDefaults tomcat.ClientConfig `json:"connectionDefaults"`

	// WarDir is the only directory tomcat_deploy uploads local WAR files
	// from. Uploads are disabled when empty.
	WarDir string `json:"warDir"`
}

// NewDefaultConfig creates a configuration with sensible defaults.
func NewDefaultConfig() *Config {
	return &Config{
		ServerName:         "mcp-tomcat",
		Version:            "0.1.0",
		NonDestructiveMode: false,
		DryRun:             false,
		LogLevel:           "info",
		LogFormat:          "text",
		Output:             output.DefaultConfig(),
	}
}

// Clone creates a deep copy of the configuration.
func (c *Config) Clone() *Config {
	if c == nil {
		return nil
	}

	clone := *c
	if c.AllowedOperations != nil {
		clone.AllowedOperations = make([]string, len(c.AllowedOperations))
		copy(clone.AllowedOperations, c.AllowedOperations)
	}
	clone.Output = c.Output.Clone()
	return &clone
}

// IsOperationAllowed reports whether op may run in non-destructive mode.
func (c *Config) IsOperationAllowed(op string) bool {
	for _, allowed := range c.AllowedOperations {
		if allowed == op {
			return true
		}
	}
	return false
}

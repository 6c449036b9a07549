package server

import (
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"

	"github.com/giantswarm/mcp-tomcat/internal/instrumentation"
	"github.com/giantswarm/mcp-tomcat/internal/logging"
	"github.com/giantswarm/mcp-tomcat/internal/tomcat"
	"github.com/giantswarm/mcp-tomcat/internal/tools/output"
)

// Option is a functional option for configuring ServerContext.
type Option func(*ServerContext) error

// WithRegistry sets the Tomcat connection registry.
func WithRegistry(registry *tomcat.Registry) Option {
	return func(sc *ServerContext) error {
		if registry == nil {
			return ErrMissingRegistry
		}
		sc.registry = registry
		return nil
	}
}

// WithLogger sets the logger for the ServerContext.
func WithLogger(logger Logger) Option {
	return func(sc *ServerContext) error {
		if logger == nil {
			return ErrMissingLogger
		}
		sc.logger = logger
		return nil
	}
}

// WithConfig sets the configuration for the ServerContext.
func WithConfig(config *Config) Option {
	return func(sc *ServerContext) error {
		if config == nil {
			return ErrMissingConfig
		}
		sc.config = config.Clone()
		return nil
	}
}

// WithServerName sets the server name in the configuration.
func WithServerName(name string) Option {
	return func(sc *ServerContext) error {
		if sc.config == nil {
			sc.config = NewDefaultConfig()
		}
		sc.config.ServerName = name
		return nil
	}
}

// WithNonDestructiveMode enables or disables non-destructive mode.
func WithNonDestructiveMode(enabled bool) Option {
	return func(sc *ServerContext) error {
		if sc.config == nil {
			sc.config = NewDefaultConfig()
		}
		sc.config.NonDestructiveMode = enabled
		return nil
	}
}

// WithDryRun enables or disables dry-run mode.
func WithDryRun(enabled bool) Option {
	return func(sc *ServerContext) error {
		if sc.config == nil {
			sc.config = NewDefaultConfig()
		}
		sc.config.DryRun = enabled
		return nil
	}
}

// WithAllowedOperations sets the mutating operations permitted in
// non-destructive mode.
func WithAllowedOperations(ops []string) Option {
	return func(sc *ServerContext) error {
		if sc.config == nil {
			sc.config = NewDefaultConfig()
		}
		sc.config.AllowedOperations = make([]string, len(ops))
		copy(sc.config.AllowedOperations, ops)
		return nil
	}
}

// WithLogLevel sets the logging level.
func WithLogLevel(level string) Option {
	return func(sc *ServerContext) error {
		if sc.config == nil {
			sc.config = NewDefaultConfig()
		}
		sc.config.LogLevel = level
		return nil
	}
}

// WithConnectionDefaults sets the username, password, timeout and other
// fields used when tomcat_connect does not specify them.
func WithConnectionDefaults(defaults tomcat.ClientConfig) Option {
	return func(sc *ServerContext) error {
		if sc.config == nil {
			sc.config = NewDefaultConfig()
		}
		defaults.Host = ""
		sc.config.ConnectionDefaults = defaults
		return nil
	}
}

// WithWarDir sets the directory local WAR uploads are confined to.
func WithWarDir(dir string) Option {
	return func(sc *ServerContext) error {
		if sc.config == nil {
			sc.config = NewDefaultConfig()
		}
		if dir == "" {
			sc.config.WarDir = ""
			return nil
		}
		abs, err := filepath.Abs(dir)
		if err != nil {
			return fmt.Errorf("invalid WAR directory %q: %w", dir, err)
		}
		sc.config.WarDir = abs
		return nil
	}
}

// WithOutputConfig sets the limits applied to tool results. Out-of-range
// values are replaced by defaults.
func WithOutputConfig(cfg *output.Config) Option {
	return func(sc *ServerContext) error {
		if sc.config == nil {
			sc.config = NewDefaultConfig()
		}
		if cfg == nil {
			cfg = output.DefaultConfig()
		}
		sc.config.Output = cfg.Validate()
		return nil
	}
}

// WithInstrumentationProvider sets the OpenTelemetry instrumentation provider.
func WithInstrumentationProvider(provider *instrumentation.Provider) Option {
	return func(sc *ServerContext) error {
		sc.instrumentationProvider = provider
		return nil
	}
}

// Error definitions for ServerContext validation and operations.
var (
	ErrMissingRegistry = errors.New("tomcat connection registry is required")
	ErrMissingLogger   = errors.New("logger is required")
	ErrMissingConfig   = errors.New("configuration is required")
)

// slogLogger adds With to logging.SlogAdapter.
type slogLogger struct {
	*logging.SlogAdapter
}

// NewSlogLogger returns a Logger backed by a structured slog logger.
// A nil logger selects slog.Default().
func NewSlogLogger(logger *slog.Logger) Logger {
	return slogLogger{SlogAdapter: logging.NewSlogAdapter(logger)}
}

// With returns a logger that adds args to every record.
func (l slogLogger) With(args ...interface{}) Logger {
	return slogLogger{SlogAdapter: logging.NewSlogAdapter(l.Logger().With(args...))}
}

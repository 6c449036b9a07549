package cmd

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/giantswarm/mcp-tomcat/internal/logging"
	"github.com/giantswarm/mcp-tomcat/internal/server"
	"github.com/giantswarm/mcp-tomcat/internal/tomcat"
	"github.com/giantswarm/mcp-tomcat/internal/tools/output"
)

// ServeConfig holds all configuration for the serve command.
type ServeConfig struct {
	// Transport settings
	Transport string
	HTTPAddr  string

	// Endpoint paths
	SSEEndpoint     string
	MessageEndpoint string
	HTTPEndpoint    string

	// Safety settings
	NonDestructiveMode bool
	DryRun             bool
	AllowedOperations  []string

	// Logging
	DebugMode bool
	LogFormat string

	// ConnectionDefaults fills in what tomcat_connect and the connections
	// file leave out. Host is never used.
	ConnectionDefaults tomcat.ClientConfig

	// ConnectionsFile is a YAML file of connections opened at start-up.
	ConnectionsFile string

	// WarDir confines tomcat_deploy uploads of local WAR files.
	WarDir string

	// Output limits for tool results
	Output output.Config

	// HTTP transport hardening
	MaxRequestBytes int64
	EnableHSTS      bool
	AllowedOrigins  string

	// Metrics server configuration
	Metrics MetricsServeConfig

	// OAuth front door for the HTTP transports
	OAuth server.OAuthConfig
}

// MetricsServeConfig configures the dedicated Prometheus metrics server.
type MetricsServeConfig struct {
	Enabled bool
	Addr    string
}

// Validate checks the values that can't be checked by flag parsing.
func (c *ServeConfig) Validate() error {
	switch c.Transport {
	case transportStdio, transportSSE, transportStreamableHTTP:
	default:
		return fmt.Errorf("unsupported transport type: %s (supported: stdio, sse, streamable-http)", c.Transport)
	}

	switch strings.ToLower(c.LogFormat) {
	case "", logging.FormatText, logging.FormatJSON:
	default:
		return fmt.Errorf("unsupported log format: %s (supported: %s, %s)", c.LogFormat, logging.FormatText, logging.FormatJSON)
	}

	if _, err := output.ParseFormat(c.Output.Format); err != nil {
		return fmt.Errorf("--output: %w", err)
	}

	if c.Transport != transportStdio {
		for name, path := range map[string]string{
			"--sse-endpoint":     c.SSEEndpoint,
			"--message-endpoint": c.MessageEndpoint,
			"--http-endpoint":    c.HTTPEndpoint,
		} {
			if !strings.HasPrefix(path, "/") {
				return fmt.Errorf("%s must start with '/' (got %q)", name, path)
			}
		}
	}

	if c.ConnectionDefaults.Timeout < 0 {
		return fmt.Errorf("--default-timeout must not be negative (got %s)", c.ConnectionDefaults.Timeout)
	}

	if c.WarDir != "" {
		info, err := os.Stat(c.WarDir)
		if err != nil {
			return fmt.Errorf("--war-dir: %w", err)
		}
		if !info.IsDir() {
			return fmt.Errorf("--war-dir %s is not a directory", c.WarDir)
		}
	}

	if c.OAuth.Enabled {
		if c.Transport == transportStdio {
			return errors.New("--oauth requires the sse or streamable-http transport")
		}
		if err := c.OAuth.Validate(); err != nil {
			return fmt.Errorf("--oauth: %w", err)
		}
	}

	if c.Metrics.Enabled && c.Metrics.Addr == "" {
		return errors.New("--metrics-addr is required when --metrics-enabled is set")
	}

	for _, op := range c.AllowedOperations {
		if !isKnownOperation(op) {
			return fmt.Errorf("unknown operation %q in --allowed-operations (supported: %s)", op, strings.Join(mutatingOperations, ", "))
		}
	}

	return nil
}

// mutatingOperations lists the operations --allowed-operations accepts.
var mutatingOperations = []string{"deploy", "undeploy", "start", "stop", "reload"}

func isKnownOperation(op string) bool {
	for _, known := range mutatingOperations {
		if op == known {
			return true
		}
	}
	return false
}

// ConnectionEntry is one connection in the connections file.
type ConnectionEntry struct {
	Alias    string `yaml:"alias"`
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Scheme   string `yaml:"scheme"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`

	// PasswordEnv names an environment variable holding the password.
	PasswordEnv string `yaml:"password_env"`

	Timeout            time.Duration `yaml:"timeout"`
	ManagerPath        string        `yaml:"manager_path"`
	InsecureSkipVerify bool          `yaml:"insecure_skip_verify"`
}

type connectionsFile struct {
	Connections []ConnectionEntry `yaml:"connections"`
}

// loadConnectionsFile reads and checks a connections file. Unknown keys
// are rejected so typos don't silently drop settings.
func loadConnectionsFile(path string) ([]ConnectionEntry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read connections file: %w", err)
	}

	var file connectionsFile
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&file); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("failed to parse connections file %s: %w", path, err)
	}

	seen := make(map[string]bool, len(file.Connections))
	for i, entry := range file.Connections {
		if strings.TrimSpace(entry.Host) == "" {
			return nil, fmt.Errorf("connections file %s: entry %d has no host", path, i+1)
		}
		if entry.Password != "" && entry.PasswordEnv != "" {
			return nil, fmt.Errorf("connections file %s: entry %d sets both password and password_env", path, i+1)
		}
		if entry.Alias == "" {
			continue
		}
		if seen[entry.Alias] {
			return nil, fmt.Errorf("connections file %s: duplicate alias %q", path, entry.Alias)
		}
		seen[entry.Alias] = true
	}
	return file.Connections, nil
}

// ClientConfig layers the entry over defaults.
func (e ConnectionEntry) ClientConfig(defaults tomcat.ClientConfig) (tomcat.ClientConfig, error) {
	cfg := defaults
	cfg.Host = e.Host
	if e.Port != 0 {
		cfg.Port = e.Port
	}
	if e.Scheme != "" {
		cfg.Scheme = e.Scheme
	}
	if e.Username != "" {
		cfg.Username = e.Username
	}
	if e.Password != "" {
		cfg.Password = e.Password
	}
	if e.PasswordEnv != "" {
		password, ok := os.LookupEnv(e.PasswordEnv)
		if !ok {
			return tomcat.ClientConfig{}, fmt.Errorf("environment variable %s (password_env for %s) is not set", e.PasswordEnv, e.Host)
		}
		cfg.Password = password
	}
	if e.Timeout > 0 {
		cfg.Timeout = e.Timeout
	}
	if e.ManagerPath != "" {
		cfg.ManagerPath = e.ManagerPath
	}
	if e.InsecureSkipVerify {
		cfg.InsecureSkipVerify = true
	}
	return cfg, nil
}

// connectConfiguredServers registers every entry with the registry. The
// first failure stops the loop; connections made so far stay registered.
func connectConfiguredServers(registry *tomcat.Registry, entries []ConnectionEntry, defaults tomcat.ClientConfig, logger *slog.Logger) error {
	for _, entry := range entries {
		cfg, err := entry.ClientConfig(defaults)
		if err != nil {
			return err
		}
		index, err := registry.Connect(entry.Alias, cfg)
		if err != nil {
			return fmt.Errorf("failed to connect %s: %w", logging.SanitizeHost(entry.Host), err)
		}
		logger.Info("registered tomcat connection",
			logging.Alias(entry.Alias),
			slog.String(logging.KeyHost, logging.SanitizeHost(entry.Host)),
			logging.UserHash(cfg.Username),
			slog.Int("index", index))
	}
	return nil
}

// loadEnvIfEmpty loads an environment variable into a string pointer if it's empty.
func loadEnvIfEmpty(target *string, envKey string) {
	if *target == "" {
		*target = os.Getenv(envKey)
	}
}

// parseDurationEnv parses a duration from an environment variable value.
// A bare number is read as seconds. Invalid values are logged and ignored.
func parseDurationEnv(value, envName string) (time.Duration, bool) {
	if value == "" {
		return 0, false
	}
	if secs, err := strconv.ParseFloat(value, 64); err == nil && secs > 0 {
		return time.Duration(secs * float64(time.Second)), true
	}
	d, err := time.ParseDuration(value)
	if err != nil || d <= 0 {
		slog.Warn("ignoring invalid duration", "env", envName, "value", value)
		return 0, false
	}
	return d, true
}

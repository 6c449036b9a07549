package tomcat

import (
	"fmt"
	"net"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// ClientConfig holds the settings for one Tomcat Manager connection.
type ClientConfig struct {
	// Scheme is "http" or "https" (default: http).
	Scheme string `json:"scheme" yaml:"scheme"`

	// Host is the Tomcat host name or address. Required.
	Host string `json:"host" yaml:"host"`

	// Port is the HTTP connector port (default: 8080).
	Port int `json:"port" yaml:"port"`

	// Username and Password are sent with HTTP Basic auth on every request.
	// The user needs the manager-script, manager-jmx and manager-status roles.
	Username string `json:"username" yaml:"username"`
	Password string `json:"-" yaml:"password"`

	// Timeout bounds connecting and reading a reply (default: 15s).
	Timeout time.Duration `json:"timeout" yaml:"timeout"`

	// ManagerPath is where the Manager application is mounted (default: /manager).
	ManagerPath string `json:"managerPath" yaml:"manager_path"`

	// UserAgent is sent with every request (default: mcp-tomcat).
	UserAgent string `json:"-" yaml:"-"`

	// InsecureSkipVerify disables TLS certificate verification for https.
	InsecureSkipVerify bool `json:"insecureSkipVerify" yaml:"insecure_skip_verify"`
}

// WithDefaults returns a copy of the configuration with empty fields set to
// their default values.
func (c ClientConfig) WithDefaults() ClientConfig {
	if strings.HasPrefix(c.Host, "[") && strings.HasSuffix(c.Host, "]") {
		c.Host = c.Host[1 : len(c.Host)-1]
	}
	if c.Scheme == "" {
		c.Scheme = DefaultScheme
	}
	if c.Port == 0 {
		c.Port = DefaultPort
	}
	if c.Username == "" {
		c.Username = DefaultUsername
	}
	if c.Password == "" {
		c.Password = DefaultPassword
	}
	if c.Timeout <= 0 {
		c.Timeout = DefaultTimeout
	}
	if c.ManagerPath == "" {
		c.ManagerPath = DefaultManagerPath
	}
	if c.UserAgent == "" {
		c.UserAgent = DefaultUserAgent
	}
	return c
}

// Validate checks that the configuration can be used to build a client.
func (c ClientConfig) Validate() error {
	if strings.TrimSpace(c.Host) == "" {
		return fmt.Errorf("%w: host is required", ErrInvalidConfig)
	}
	if strings.ContainsAny(c.Host, "/?#@ ") {
		return fmt.Errorf("%w: host %q must not contain a scheme, path or credentials", ErrInvalidConfig, c.Host)
	}
	if c.Port < 0 || c.Port > 65535 {
		return fmt.Errorf("%w: port %d out of range", ErrInvalidConfig, c.Port)
	}
	switch c.Scheme {
	case "", "http", "https":
	default:
		return fmt.Errorf("%w: unsupported scheme %q", ErrInvalidConfig, c.Scheme)
	}
	if c.ManagerPath != "" && !strings.HasPrefix(c.ManagerPath, "/") {
		return fmt.Errorf("%w: manager path %q must start with /", ErrInvalidConfig, c.ManagerPath)
	}
	return nil
}

// Address returns host:port.
func (c ClientConfig) Address() string {
	return net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
}

// BaseURL returns the Manager base URL, e.g. http://host:8080/manager.
func (c ClientConfig) BaseURL() *url.URL {
	return &url.URL{
		Scheme: c.Scheme,
		Host:   c.Address(),
		Path:   c.ManagerPath,
	}
}

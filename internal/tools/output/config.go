package output

import (
	"fmt"
	"strings"
)

// Default limits for tool output.
const (
	// DefaultMaxItems is the default maximum number of rows (applications,
	// MBeans, connectors) returned by one tool call.
	DefaultMaxItems = 200

	// DefaultMaxResponseBytes is the default hard limit on response size (512KB).
	DefaultMaxResponseBytes = 512 * 1024

	// AbsoluteMaxItems is the absolute maximum items that can be requested.
	AbsoluteMaxItems = 2000

	// AbsoluteMaxResponseBytes is the absolute maximum response size (2MB).
	AbsoluteMaxResponseBytes = 2 * 1024 * 1024
)

// Output formats accepted by the "output" tool argument.
const (
	FormatJSON  = "json"
	FormatTable = "table"
)

// Config holds configuration for output processing.
type Config struct {
	// MaxItems limits the number of rows returned per tool call.
	MaxItems int `json:"maxItems" yaml:"maxItems"`

	// MaxResponseBytes is a hard limit on response size in bytes.
	MaxResponseBytes int `json:"maxResponseBytes" yaml:"maxResponseBytes"`

	// Format is used when a tool call does not ask for one.
	Format string `json:"format" yaml:"format"`
}

// DefaultConfig returns a Config with the default limits and JSON output.
func DefaultConfig() *Config {
	return &Config{
		MaxItems:         DefaultMaxItems,
		MaxResponseBytes: DefaultMaxResponseBytes,
		Format:           FormatJSON,
	}
}

// Validate returns a copy with out-of-range values replaced or capped.
func (c *Config) Validate() *Config {
	validated := *c

	if validated.MaxItems <= 0 {
		validated.MaxItems = DefaultMaxItems
	}
	if validated.MaxResponseBytes <= 0 {
		validated.MaxResponseBytes = DefaultMaxResponseBytes
	}

	if validated.MaxItems > AbsoluteMaxItems {
		validated.MaxItems = AbsoluteMaxItems
	}
	if validated.MaxResponseBytes > AbsoluteMaxResponseBytes {
		validated.MaxResponseBytes = AbsoluteMaxResponseBytes
	}

	if f, err := ParseFormat(validated.Format); err == nil {
		validated.Format = f
	} else {
		validated.Format = FormatJSON
	}

	return &validated
}

// Clone creates a copy of the configuration.
func (c *Config) Clone() *Config {
	if c == nil {
		return nil
	}
	clone := *c
	return &clone
}

// ParseFormat normalises an output format name. The empty string selects JSON.
func ParseFormat(format string) (string, error) {
	switch strings.ToLower(strings.TrimSpace(format)) {
	case "", FormatJSON:
		return FormatJSON, nil
	case FormatTable:
		return FormatTable, nil
	default:
		return "", fmt.Errorf("unsupported output format %q (expected %s or %s)", format, FormatJSON, FormatTable)
	}
}

// TruncationWarning contains information about response truncation.
type TruncationWarning struct {
	// Shown is the number of items returned
	Shown int `json:"shown"`

	// Total is the total number of items before truncation
	Total int `json:"total"`

	// Message is a human-readable warning message
	Message string `json:"message"`
}

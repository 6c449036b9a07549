package logging

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"log/slog"
	"net"
	"net/url"
	"regexp"
	"strings"
)

// Common log attribute keys for consistent naming across the codebase.
const (
	KeyOperation  = "operation"
	KeyAlias      = "alias"
	KeyEndpoint   = "endpoint"
	KeyAppPath    = "app_path"
	KeyStatusCode = "status_code"
	KeyUserHash   = "user_hash"
	KeyDuration   = "duration"
	KeyStatus     = "status"
	KeyError      = "error"
	KeyHost       = "host"
	KeyTool       = "tool"
)

// Status values for consistent logging.
const (
	StatusSuccess = "success"
	StatusError   = "error"
)

// ipv4Regex matches IPv4 addresses for sanitization.
var ipv4Regex = regexp.MustCompile(`\d{1,3}\.\d{1,3}\.\d{1,3}\.\d{1,3}`)

// ipv6Candidate matches anything shaped like an IPv6 address, optionally
// bracketed. Matches are confirmed with net.ParseIP so "host:8080:" in a
// dial error is left alone.
var ipv6Candidate = regexp.MustCompile(`\[?[0-9a-fA-F.]*:[0-9a-fA-F:.]*:[0-9a-fA-F.]*\]?`)

const redactedIP = "<redacted-ip>"

func redactIPs(s string) string {
	s = ipv4Regex.ReplaceAllString(s, redactedIP)
	return ipv6Candidate.ReplaceAllStringFunc(s, func(m string) string {
		if net.ParseIP(strings.Trim(m, "[]")) != nil {
			return redactedIP
		}
		return m
	})
}

// WithAlias returns a logger with the connection alias attribute set.
func WithAlias(logger *slog.Logger, alias string) *slog.Logger {
	return logger.With(Alias(alias))
}

// Operation returns a slog attribute for the operation name.
func Operation(op string) slog.Attr {
	return slog.String(KeyOperation, op)
}

// Alias returns a slog attribute for a connection alias. The current
// connection is logged as "<current>".
func Alias(alias string) slog.Attr {
	if alias == "" {
		alias = "<current>"
	}
	return slog.String(KeyAlias, alias)
}

// Endpoint returns a slog attribute for a Manager endpoint path.
func Endpoint(path string) slog.Attr {
	return slog.String(KeyEndpoint, path)
}

// AppPath returns a slog attribute for an application context path.
func AppPath(path string) slog.Attr {
	return slog.String(KeyAppPath, path)
}

// StatusCode returns a slog attribute for an HTTP status code.
func StatusCode(code int) slog.Attr {
	return slog.Int(KeyStatusCode, code)
}

// Status returns a slog attribute for the status.
func Status(status string) slog.Attr {
	return slog.String(KeyStatus, status)
}

// Err returns a slog attribute for an error.
func Err(err error) slog.Attr {
	if err == nil {
		return slog.String(KeyError, "")
	}
	return slog.String(KeyError, err.Error())
}

// SanitizedErr returns a slog attribute for an error with IP addresses
// redacted. Transport errors from the Manager client embed the dialed
// address.
func SanitizedErr(err error) slog.Attr {
	if err == nil {
		return slog.String(KeyError, "")
	}
	return slog.String(KeyError, SanitizeHost(err.Error()))
}

// Host returns a slog attribute for a host with IP addresses sanitized.
func Host(host string) slog.Attr {
	return slog.String(KeyHost, SanitizeHost(host))
}

// AnonymizeUser returns a stable hash of a Manager username so that log
// entries can be correlated without naming the account.
func AnonymizeUser(username string) string {
	if username == "" {
		return ""
	}
	hash := sha256.Sum256([]byte(username))
	return "user:" + hex.EncodeToString(hash[:8])
}

// UserHash returns a slog attribute with the anonymized Manager username.
func UserHash(username string) slog.Attr {
	return slog.String(KeyUserHash, AnonymizeUser(username))
}

// SanitizeHost redacts IPv4 and IPv6 addresses in a host, host:port or URL.
//
// Examples:
//   - "http://192.168.1.100:8080/manager" -> "http://<redacted-ip>:8080/manager"
//   - "http://tomcat.example.com:8080" -> "http://tomcat.example.com:8080"
//   - "10.0.0.1:8080" -> "<redacted-ip>:8080"
//   - "" -> "<empty>"
func SanitizeHost(host string) string {
	if host == "" {
		return "<empty>"
	}

	if !strings.Contains(host, "://") {
		return redactIPs(host)
	}

	parsed, err := url.Parse(host)
	if err != nil {
		return redactIPs(host)
	}

	if redacted := redactIPs(parsed.Host); redacted != parsed.Host {
		parsed.Host = redacted
		return parsed.String()
	}

	return host
}

// SanitizeURL removes user info from a URL so Manager credentials are never
// logged. Unparseable input is returned with IP addresses redacted.
func SanitizeURL(raw string) string {
	if raw == "" {
		return "<empty>"
	}
	parsed, err := url.Parse(raw)
	if err != nil {
		return SanitizeHost(raw)
	}
	parsed.User = nil
	return parsed.String()
}

// MaskPassword returns a length indicator for a password without exposing
// any of its characters.
func MaskPassword(password string) string {
	if password == "" {
		return "<empty>"
	}
	return fmt.Sprintf("[password:%d chars]", len(password))
}

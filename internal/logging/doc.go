// Package logging provides structured logging utilities for mcp-tomcat.
//
// Everything logs through log/slog. This package holds the shared attribute
// keys, the handler setup used by the serve command and helpers that keep
// Manager credentials and server addresses out of log output.
//
// # Usage Patterns
//
// Build the process logger from the command line flags:
//
//	logger, err := logging.New(os.Stderr, "json", debug)
//
// Attach standard attributes:
//
//	logger := logging.WithAlias(slog.Default(), "prod")
//	logger.Info("application reloaded",
//	    logging.AppPath("/shop"),
//	    logging.Host(baseURL))
//
// # Security Considerations
//
//   - Passwords are never logged; MaskPassword only reports the length
//   - SanitizeURL strips user info from Manager URLs
//   - IP addresses are redacted from hosts and transport errors
//   - User emails are hashed to allow correlation without PII
package logging

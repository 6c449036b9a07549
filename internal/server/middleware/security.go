package middleware

import (
	"fmt"
	"net/http"
	"net/url"
	"strings"
)

// DefaultMaxRequestBytes limits MCP request bodies on the HTTP transports.
const DefaultMaxRequestBytes int64 = 4 << 20

// hstsValue is sent when the request arrived over TLS or HSTS is forced.
const hstsValue = "max-age=31536000; includeSubDomains"

// securityHeaders are set on every response. The server only returns JSON
// and event streams, so nothing may be framed, scripted or embedded.
var securityHeaders = map[string]string{
	"X-Content-Type-Options":       "nosniff",
	"X-Frame-Options":              "DENY",
	"Referrer-Policy":              "no-referrer",
	"Content-Security-Policy":      "default-src 'none'; frame-ancestors 'none'",
	"Cross-Origin-Resource-Policy": "same-origin",
	"Cache-Control":                "no-store",
}

// SecurityHeadersConfig holds configuration for security headers middleware
type SecurityHeadersConfig struct {
	// EnableHSTS sends Strict-Transport-Security on plain HTTP requests,
	// for deployments where a proxy in front terminates TLS.
	EnableHSTS bool
}

// SecurityHeaders sets securityHeaders and, where appropriate, HSTS.
func SecurityHeaders(config SecurityHeadersConfig) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			h := w.Header()
			for name, value := range securityHeaders {
				h.Set(name, value)
			}
			if r.TLS != nil || config.EnableHSTS {
				h.Set("Strict-Transport-Security", hstsValue)
			}
			next.ServeHTTP(w, r)
		})
	}
}

// CORS lets browser-based MCP clients from allowedOrigins call the server.
// Preflights from other origins are refused with 403; their simple
// requests pass through without CORS headers, which the browser rejects.
func CORS(allowedOrigins []string) func(http.Handler) http.Handler {
	allowed := make(map[string]bool, len(allowedOrigins))
	for _, origin := range allowedOrigins {
		allowed[origin] = true
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			origin := r.Header.Get("Origin")
			if origin == "" {
				next.ServeHTTP(w, r)
				return
			}

			h := w.Header()
			h.Add("Vary", "Origin")
			preflight := r.Method == http.MethodOptions && r.Header.Get("Access-Control-Request-Method") != ""

			if !allowed[origin] {
				if preflight {
					w.WriteHeader(http.StatusForbidden)
					return
				}
				next.ServeHTTP(w, r)
				return
			}

			h.Set("Access-Control-Allow-Origin", origin)
			h.Set("Access-Control-Expose-Headers", "Mcp-Session-Id")
			if r.Method == http.MethodOptions {
				h.Set("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")
				h.Set("Access-Control-Allow-Headers", "Authorization, Content-Type, Accept, Last-Event-ID, Mcp-Session-Id, Mcp-Protocol-Version")
				h.Set("Access-Control-Max-Age", "3600")
				w.WriteHeader(http.StatusNoContent)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// ValidateAllowedOrigins parses a comma-separated ALLOWED_ORIGINS value into
// scheme://host[:port] origins. Duplicates are dropped.
func ValidateAllowedOrigins(originsEnv string) ([]string, error) {
	var origins []string
	seen := make(map[string]bool)

	for _, raw := range strings.Split(originsEnv, ",") {
		raw = strings.TrimSpace(raw)
		if raw == "" {
			continue
		}
		origin, err := normalizeOrigin(raw)
		if err != nil {
			return nil, err
		}
		if !seen[origin] {
			seen[origin] = true
			origins = append(origins, origin)
		}
	}
	return origins, nil
}

func normalizeOrigin(raw string) (string, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return "", fmt.Errorf("invalid origin URL %q: %w", raw, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return "", fmt.Errorf("origin %q must use http or https scheme", raw)
	}
	if u.Host == "" {
		return "", fmt.Errorf("origin %q must include a host (e.g., https://example.com)", raw)
	}
	if (u.Path != "" && u.Path != "/") || u.RawQuery != "" || u.Fragment != "" || u.User != nil {
		return "", fmt.Errorf("origin %q must be scheme and host only", raw)
	}
	return strings.ToLower(u.Scheme + "://" + u.Host), nil
}

// MaxRequestSize caps the request body at maxBytes. A declared length over
// the limit is refused with 413 before the handler runs; otherwise reading
// past the limit fails. A non-positive limit disables the check.
func MaxRequestSize(maxBytes int64) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if maxBytes <= 0 {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.ContentLength > maxBytes {
				http.Error(w, "request body too large", http.StatusRequestEntityTooLarge)
				return
			}
			if r.Body != nil {
				r.Body = http.MaxBytesReader(w, r.Body, maxBytes)
			}
			next.ServeHTTP(w, r)
		})
	}
}

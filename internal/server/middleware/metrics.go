package middleware

import (
	"net/http"
	"strings"
	"time"

	"github.com/giantswarm/mcp-tomcat/internal/instrumentation"
)

// responseWriter records the status code written by the next handler.
type responseWriter struct {
	http.ResponseWriter
	statusCode int
	written    bool
}

func newResponseWriter(w http.ResponseWriter) *responseWriter {
	return &responseWriter{
		ResponseWriter: w,
		statusCode:     http.StatusOK,
	}
}

func (rw *responseWriter) WriteHeader(code int) {
	if !rw.written {
		rw.statusCode = code
		rw.written = true
	}
	rw.ResponseWriter.WriteHeader(code)
}

func (rw *responseWriter) Write(b []byte) (int, error) {
	rw.written = true
	return rw.ResponseWriter.Write(b)
}

// Unwrap lets http.ResponseController reach the underlying writer.
func (rw *responseWriter) Unwrap() http.ResponseWriter {
	return rw.ResponseWriter
}

// Flush keeps SSE and streamable HTTP responses streaming.
func (rw *responseWriter) Flush() {
	if f, ok := rw.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

// otherRoute labels requests that match no known route.
const otherRoute = "other"

// HTTPMetrics records request count and duration per method, route and
// status. Paths are reported as the first route they match, either exactly
// or as a parent (/mcp matches /mcp/anything); all other paths are reported
// as "other" so scanners can't grow the label set. A nil or disabled
// provider turns the middleware into a pass-through.
func HTTPMetrics(provider *instrumentation.Provider, routes ...string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if provider == nil || !provider.Enabled() {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			wrapped := newResponseWriter(w)
			next.ServeHTTP(wrapped, r)

			provider.Metrics().RecordHTTPRequest(
				r.Context(),
				r.Method,
				routeLabel(r.URL.Path, routes),
				wrapped.statusCode,
				time.Since(start),
			)
		})
	}
}

// routeLabel picks the longest route covering path.
func routeLabel(path string, routes []string) string {
	best := ""
	for _, route := range routes {
		if route == "" || len(route) <= len(best) {
			continue
		}
		if path == route || strings.HasPrefix(path, strings.TrimSuffix(route, "/")+"/") {
			best = route
		}
	}
	if best == "" {
		return otherRoute
	}
	return best
}

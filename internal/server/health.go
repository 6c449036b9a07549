package server

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"sync/atomic"
	"time"
)

// checkTimeout bounds the connection check of the detailed health endpoint.
const checkTimeout = 5 * time.Second

const (
	statusOK           = "ok"
	statusNotReady     = "not ready"
	statusShuttingDown = "shutting down"
)

// HealthChecker provides health check endpoints for liveness and readiness checks.
type HealthChecker struct {
	ready         atomic.Bool
	serverContext *ServerContext
	startTime     time.Time
}

// NewHealthChecker creates a new HealthChecker.
func NewHealthChecker(sc *ServerContext) *HealthChecker {
	h := &HealthChecker{
		serverContext: sc,
		startTime:     time.Now(),
	}
	h.ready.Store(true)
	return h
}

// SetReady sets the readiness state of the server.
func (h *HealthChecker) SetReady(ready bool) {
	h.ready.Store(ready)
}

// IsReady returns whether the server is ready to receive traffic.
func (h *HealthChecker) IsReady() bool {
	return h.ready.Load()
}

// HealthResponse represents the JSON response for health endpoints.
type HealthResponse struct {
	Status  string            `json:"status"`
	Checks  map[string]string `json:"checks,omitempty"`
	Version string            `json:"version,omitempty"`
}

// DetailedHealthResponse provides comprehensive health information including
// the reachability of every registered Tomcat connection.
type DetailedHealthResponse struct {
	Status          string                      `json:"status"`
	Version         string                      `json:"version,omitempty"`
	Uptime          string                      `json:"uptime"`
	Connections     *ConnectionsHealthStatus    `json:"connections,omitempty"`
	Instrumentation *InstrumentationHealthCheck `json:"instrumentation,omitempty"`
}

// ConnectionsHealthStatus summarises the registered Tomcat connections.
type ConnectionsHealthStatus struct {
	Total     int               `json:"total"`
	Reachable int               `json:"reachable"`
	Errors    map[string]string `json:"errors,omitempty"`
}

// InstrumentationHealthCheck provides health information about instrumentation.
type InstrumentationHealthCheck struct {
	Enabled         bool   `json:"enabled"`
	MetricsExporter string `json:"metrics_exporter,omitempty"`
	TracingExporter string `json:"tracing_exporter,omitempty"`
}

// LivenessHandler returns an HTTP handler for the /healthz endpoint. It
// answers as long as the process can serve requests.
func (h *HealthChecker) LivenessHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, HealthResponse{Status: statusOK, Version: h.version()})
	})
}

// ReadinessHandler returns an HTTP handler for the /readyz endpoint. It
// does not contact any Tomcat server.
func (h *HealthChecker) ReadinessHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		checks := map[string]string{
			"ready":    statusOK,
			"shutdown": statusOK,
		}
		if !h.ready.Load() {
			checks["ready"] = statusNotReady
		}
		if h.shuttingDown() {
			checks["shutdown"] = statusShuttingDown
		}
		if sc := h.serverContext; sc != nil {
			if provider := sc.InstrumentationProvider(); provider != nil {
				checks["instrumentation"] = "disabled"
				if provider.Enabled() {
					checks["instrumentation"] = statusOK
				}
			}
			if registry := sc.Registry(); registry != nil {
				checks["connections"] = strconv.Itoa(registry.Len())
			}
		}

		status, code := h.state()
		if code != http.StatusOK {
			status = statusNotReady
		}
		writeJSON(w, code, HealthResponse{Status: status, Checks: checks})
	})
}

// Health endpoint paths.
const (
	LivenessPath       = "/healthz"
	ReadinessPath      = "/readyz"
	DetailedHealthPath = "/healthz/detailed"
)

// HealthEndpoints lists the paths RegisterHealthEndpoints serves.
var HealthEndpoints = []string{LivenessPath, ReadinessPath, DetailedHealthPath}

// RegisterHealthEndpoints registers health check endpoints on the given mux.
func (h *HealthChecker) RegisterHealthEndpoints(mux *http.ServeMux) {
	mux.Handle(LivenessPath, h.LivenessHandler())
	mux.Handle(ReadinessPath, h.ReadinessHandler())
	mux.Handle(DetailedHealthPath, h.DetailedHealthHandler())
}

// DetailedHealthHandler returns an HTTP handler for the /healthz/detailed endpoint.
// It asks every registered Tomcat server for its server info. Unreachable
// servers are reported but do not change the HTTP status.
func (h *HealthChecker) DetailedHealthHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		status, code := h.state()
		response := DetailedHealthResponse{
			Status:  status,
			Version: h.version(),
			Uptime:  time.Since(h.startTime).Truncate(time.Second).String(),
		}
		if h.serverContext != nil {
			response.Connections = h.getConnectionsStatus(r.Context())
			response.Instrumentation = h.getInstrumentationStatus()
		}
		writeJSON(w, code, response)
	})
}

// state reports the overall status and the HTTP code that goes with it.
func (h *HealthChecker) state() (string, int) {
	switch {
	case !h.ready.Load():
		return statusNotReady, http.StatusServiceUnavailable
	case h.shuttingDown():
		return statusShuttingDown, http.StatusServiceUnavailable
	default:
		return statusOK, http.StatusOK
	}
}

func (h *HealthChecker) shuttingDown() bool {
	return h.serverContext != nil && h.serverContext.IsShutdown()
}

func (h *HealthChecker) version() string {
	if h.serverContext == nil || h.serverContext.Config() == nil {
		return ""
	}
	return h.serverContext.Config().Version
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

// getConnectionsStatus checks the registered Tomcat connections.
func (h *HealthChecker) getConnectionsStatus(ctx context.Context) *ConnectionsHealthStatus {
	registry := h.serverContext.Registry()
	if registry == nil {
		return nil
	}

	ctx, cancel := context.WithTimeout(ctx, checkTimeout)
	defer cancel()

	results := registry.CheckAll(ctx)
	status := &ConnectionsHealthStatus{Total: len(results)}
	for key, err := range results {
		if err == nil {
			status.Reachable++
			continue
		}
		if status.Errors == nil {
			status.Errors = make(map[string]string)
		}
		status.Errors[key] = err.Error()
	}
	return status
}

// getInstrumentationStatus returns instrumentation health status.
func (h *HealthChecker) getInstrumentationStatus() *InstrumentationHealthCheck {
	provider := h.serverContext.InstrumentationProvider()
	if provider == nil {
		return &InstrumentationHealthCheck{
			Enabled: false,
		}
	}

	cfg := provider.Config()
	check := &InstrumentationHealthCheck{Enabled: provider.Enabled()}
	if check.Enabled {
		check.MetricsExporter = cfg.MetricsExporter
		check.TracingExporter = cfg.TracingExporter
	}
	return check
}

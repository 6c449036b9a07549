package instrumentation

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds the configuration for OpenTelemetry instrumentation.
type Config struct {
	ServiceName    string
	ServiceVersion string

	// Enabled turns on metrics and tracing. Off by default so an idle
	// server pays nothing for instrumentation.
	Enabled bool

	// MetricsExporter is prometheus, otlp or stdout.
	MetricsExporter string

	// TracingExporter is otlp, stdout or none.
	TracingExporter string

	// OTLPEndpoint is the collector address, e.g. http://localhost:4318.
	OTLPEndpoint string

	// OTLPInsecure sends OTLP over plain HTTP. Spans carry connection
	// aliases and Tomcat host names, so only use it for local collectors.
	OTLPInsecure bool

	// TraceSamplingRate is the fraction of traces kept, 0 to 1.
	TraceSamplingRate float64

	// PrometheusEndpoint is the path the metrics server serves.
	PrometheusEndpoint string

	// DetailedLabels adds the connection alias and application path to
	// Manager request metrics.
	DetailedLabels bool
}

// DefaultConfig reads the configuration from the environment.
func DefaultConfig() Config {
	return Config{
		ServiceName:        envOr("OTEL_SERVICE_NAME", "mcp-tomcat", parseString),
		ServiceVersion:     "unknown",
		Enabled:            envOr("INSTRUMENTATION_ENABLED", false, strconv.ParseBool),
		MetricsExporter:    envOr("METRICS_EXPORTER", ExporterPrometheus, parseString),
		TracingExporter:    envOr("TRACING_EXPORTER", ExporterNone, parseString),
		OTLPEndpoint:       envOr("OTEL_EXPORTER_OTLP_ENDPOINT", "", parseString),
		OTLPInsecure:       envOr("OTEL_EXPORTER_OTLP_INSECURE", false, strconv.ParseBool),
		TraceSamplingRate:  envOr("OTEL_TRACES_SAMPLER_ARG", 0.1, parseFloat),
		PrometheusEndpoint: envOr("PROMETHEUS_ENDPOINT", "/metrics", parseString),
		DetailedLabels:     envOr("METRICS_DETAILED_LABELS", false, strconv.ParseBool),
	}
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	switch c.MetricsExporter {
	case "", ExporterPrometheus, ExporterOTLP, ExporterStdout:
	default:
		return fmt.Errorf("unsupported metrics exporter %q", c.MetricsExporter)
	}
	switch c.TracingExporter {
	case "", ExporterNone, ExporterOTLP, ExporterStdout:
	default:
		return fmt.Errorf("unsupported tracing exporter %q", c.TracingExporter)
	}
	if (c.MetricsExporter == ExporterOTLP || c.TracingExporter == ExporterOTLP) && c.OTLPEndpoint == "" {
		return fmt.Errorf("otlp exporter requires OTEL_EXPORTER_OTLP_ENDPOINT")
	}
	if c.TraceSamplingRate < 0 || c.TraceSamplingRate > 1 {
		return fmt.Errorf("trace sampling rate %v must be between 0 and 1", c.TraceSamplingRate)
	}
	if c.PrometheusEndpoint != "" && !strings.HasPrefix(c.PrometheusEndpoint, "/") {
		return fmt.Errorf("prometheus endpoint %q must start with '/'", c.PrometheusEndpoint)
	}
	return nil
}

// envOr parses the environment variable key, falling back to def when it
// is unset or does not parse.
func envOr[T any](key string, def T, parse func(string) (T, error)) T {
	raw := os.Getenv(key)
	if raw == "" {
		return def
	}
	v, err := parse(raw)
	if err != nil {
		return def
	}
	return v
}

func parseString(s string) (string, error) { return s, nil }

func parseFloat(s string) (float64, error) { return strconv.ParseFloat(s, 64) }

// Exporter names accepted in Config.
const (
	ExporterPrometheus = "prometheus"
	ExporterOTLP       = "otlp"
	ExporterStdout     = "stdout"
	ExporterNone       = "none"
)

// Status label values.
const (
	StatusSuccess = "success"
	StatusError   = "error"
)

// DefaultMetricInterval is the push interval of the otlp and stdout
// metric exporters.
const DefaultMetricInterval = 10 * time.Second

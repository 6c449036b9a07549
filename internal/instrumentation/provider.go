package instrumentation

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetrichttp"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	otelprom "go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/exporters/stdout/stdoutmetric"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/propagation"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

// Provider owns the OpenTelemetry meter and tracer providers, the metric
// instruments and the audit logger.
//
// A disabled Provider is valid: Metrics() returns no-op instruments and
// Shutdown does nothing.
type Provider struct {
	config Config

	meterProvider  *sdkmetric.MeterProvider
	tracerProvider *sdktrace.TracerProvider
	registry       *prometheus.Registry

	metrics     *Metrics
	auditLogger *AuditLogger
}

// NewProvider creates a Provider for config. When config.Enabled is false
// no exporters are created.
func NewProvider(ctx context.Context, config Config) (*Provider, error) {
	p := &Provider{
		config:      config,
		metrics:     &Metrics{},
		auditLogger: NewAuditLogger(nil),
	}

	if !config.Enabled {
		return p, nil
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid instrumentation config: %w", err)
	}

	res, err := resource.New(ctx,
		resource.WithAttributes(
			attribute.String("service.name", config.ServiceName),
			attribute.String("service.version", config.ServiceVersion),
		),
		resource.WithFromEnv(),
		resource.WithTelemetrySDK(),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create resource: %w", err)
	}

	if err := p.initMetrics(ctx, res); err != nil {
		return nil, err
	}

	if err := p.initTracing(ctx, res); err != nil {
		_ = p.meterProvider.Shutdown(ctx)
		return nil, err
	}

	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))

	return p, nil
}

func (p *Provider) initMetrics(ctx context.Context, res *resource.Resource) error {
	var reader sdkmetric.Reader

	switch p.config.MetricsExporter {
	case "", ExporterPrometheus:
		p.registry = prometheus.NewRegistry()
		p.registry.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
		exporter, err := otelprom.New(otelprom.WithRegisterer(p.registry))
		if err != nil {
			return fmt.Errorf("failed to create prometheus exporter: %w", err)
		}
		reader = exporter

	case ExporterOTLP:
		opts := []otlpmetrichttp.Option{otlpmetrichttp.WithEndpointURL(p.config.OTLPEndpoint)}
		if p.config.OTLPInsecure {
			opts = append(opts, otlpmetrichttp.WithInsecure())
		}
		exporter, err := otlpmetrichttp.New(ctx, opts...)
		if err != nil {
			return fmt.Errorf("failed to create OTLP metrics exporter: %w", err)
		}
		reader = sdkmetric.NewPeriodicReader(exporter, sdkmetric.WithInterval(DefaultMetricInterval))

	case ExporterStdout:
		// stdout carries the stdio transport.
		exporter, err := stdoutmetric.New(stdoutmetric.WithWriter(os.Stderr))
		if err != nil {
			return fmt.Errorf("failed to create stdout metrics exporter: %w", err)
		}
		reader = sdkmetric.NewPeriodicReader(exporter, sdkmetric.WithInterval(DefaultMetricInterval))

	default:
		return fmt.Errorf("unsupported metrics exporter %q", p.config.MetricsExporter)
	}

	p.meterProvider = sdkmetric.NewMeterProvider(
		sdkmetric.WithResource(res),
		sdkmetric.WithReader(reader),
	)
	otel.SetMeterProvider(p.meterProvider)

	metrics, err := NewMetrics(p.meterProvider.Meter(TracerName), p.config.DetailedLabels)
	if err != nil {
		return err
	}
	p.metrics = metrics
	return nil
}

func (p *Provider) initTracing(ctx context.Context, res *resource.Resource) error {
	var exporter sdktrace.SpanExporter
	var err error

	switch p.config.TracingExporter {
	case "", ExporterNone:
		return nil
	case ExporterOTLP:
		opts := []otlptracehttp.Option{otlptracehttp.WithEndpointURL(p.config.OTLPEndpoint)}
		if p.config.OTLPInsecure {
			opts = append(opts, otlptracehttp.WithInsecure())
		}
		exporter, err = otlptracehttp.New(ctx, opts...)
	case ExporterStdout:
		exporter, err = stdouttrace.New(stdouttrace.WithWriter(os.Stderr))
	default:
		return fmt.Errorf("unsupported tracing exporter %q", p.config.TracingExporter)
	}
	if err != nil {
		return fmt.Errorf("failed to create %s trace exporter: %w", p.config.TracingExporter, err)
	}

	p.tracerProvider = sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
		sdktrace.WithSampler(sdktrace.ParentBased(sdktrace.TraceIDRatioBased(p.config.TraceSamplingRate))),
	)
	otel.SetTracerProvider(p.tracerProvider)
	return nil
}

// Enabled reports whether exporters are active.
func (p *Provider) Enabled() bool {
	return p != nil && p.config.Enabled
}

// Config returns the instrumentation configuration.
func (p *Provider) Config() Config {
	return p.config
}

// Metrics returns the metric recorder. It is never nil.
func (p *Provider) Metrics() *Metrics {
	if p == nil || p.metrics == nil {
		return &Metrics{}
	}
	return p.metrics
}

// AuditLogger returns the audit logger for tool invocations.
func (p *Provider) AuditLogger() *AuditLogger {
	if p == nil || p.auditLogger == nil {
		return NewAuditLogger(nil)
	}
	return p.auditLogger
}

// SetAuditLogger replaces the audit logger's slog destination.
func (p *Provider) SetAuditLogger(logger *slog.Logger) {
	p.auditLogger = NewAuditLogger(logger)
}

// PrometheusHandler serves the Prometheus registry. It returns nil unless
// the prometheus exporter is active.
func (p *Provider) PrometheusHandler() http.Handler {
	if p == nil || p.registry == nil {
		return nil
	}
	return promhttp.HandlerFor(p.registry, promhttp.HandlerOpts{Registry: p.registry})
}

// Shutdown flushes and stops the meter and tracer providers.
func (p *Provider) Shutdown(ctx context.Context) error {
	if p == nil {
		return nil
	}
	var errs []error
	if p.tracerProvider != nil {
		if err := p.tracerProvider.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("tracer provider: %w", err))
		}
	}
	if p.meterProvider != nil {
		if err := p.meterProvider.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("meter provider: %w", err))
		}
	}
	return errors.Join(errs...)
}

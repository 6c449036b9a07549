package tomcat

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/giantswarm/mcp-tomcat/internal/logging"
)

const tracerName = "github.com/giantswarm/mcp-tomcat/internal/tomcat"

// Recorder receives one observation per Manager request.
type Recorder interface {
	RecordTomcatRequest(ctx context.Context, operation, status string, duration time.Duration)
}

// ClientOption customises a Client.
type ClientOption func(*Client)

// WithHTTPClient replaces the HTTP client built from the configuration.
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) {
		if hc != nil {
			c.httpClient = hc
		}
	}
}

// WithLogger sets the logger used for request debugging.
func WithLogger(logger *slog.Logger) ClientOption {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithRecorder sets the metrics recorder for Manager requests.
func WithRecorder(r Recorder) ClientOption {
	return func(c *Client) {
		c.recorder = r
	}
}

// Client talks to one Tomcat Manager application.
type Client struct {
	config     ClientConfig
	baseURL    *url.URL
	httpClient *http.Client
	logger     *slog.Logger
	recorder   Recorder
}

// NewClient creates a Client. Empty configuration fields get their defaults.
func NewClient(cfg ClientConfig, opts ...ClientOption) (*Client, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	cfg = cfg.WithDefaults()

	c := &Client{
		config:     cfg,
		baseURL:    cfg.BaseURL(),
		httpClient: newHTTPClient(cfg),
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

func newHTTPClient(cfg ClientConfig) *http.Client {
	d := &net.Dialer{Timeout: cfg.Timeout}

	transport := &http.Transport{
		Proxy:               http.ProxyFromEnvironment,
		DialContext:         d.DialContext,
		TLSHandshakeTimeout: cfg.Timeout,
		TLSClientConfig: &tls.Config{
			InsecureSkipVerify: cfg.InsecureSkipVerify, //nolint:gosec // opt-in for self-signed test servers
		},
	}

	return &http.Client{
		Timeout:   cfg.Timeout,
		Transport: transport,
	}
}

// Config returns the effective configuration.
func (c *Client) Config() ClientConfig {
	return c.config
}

// BaseURL returns the Manager base URL without credentials.
func (c *Client) BaseURL() string {
	return c.baseURL.String()
}

// Close releases idle connections held by the underlying transport.
func (c *Client) Close() {
	c.httpClient.CloseIdleConnections()
}

func (c *Client) newRequest(ctx context.Context, method, endpoint string, query url.Values, body io.Reader) (*http.Request, error) {
	u := *c.baseURL
	u.Path = strings.TrimSuffix(u.Path, "/") + endpoint
	if len(query) > 0 {
		u.RawQuery = query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, method, u.String(), body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request for %s: %w", endpoint, err)
	}

	req.SetBasicAuth(c.config.Username, c.config.Password)
	req.Header.Set("User-Agent", c.config.UserAgent)
	if body == nil {
		req.Header.Set("Content-Type", "text/plain")
	} else {
		req.Header.Set("Content-Type", "application/octet-stream")
	}
	return req, nil
}

// get sends a GET request and returns the reply body.
func (c *Client) get(ctx context.Context, operation, endpoint string, query url.Values) (string, error) {
	return c.send(ctx, operation, http.MethodGet, endpoint, query, nil)
}

// send issues exactly one request. Transport failures and non-2xx statuses
// are returned as *RequestError.
func (c *Client) send(ctx context.Context, operation, method, endpoint string, query url.Values, body io.Reader) (string, error) {
	path := c.endpointPath(endpoint)

	ctx, span := otel.GetTracerProvider().Tracer(tracerName).Start(ctx, "tomcat."+operation,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("http.request.method", method),
			attribute.String("server.address", c.config.Host),
			attribute.Int("server.port", c.config.Port),
			attribute.String("url.path", path),
		),
	)
	defer span.End()

	start := time.Now()
	text, err := c.roundTrip(ctx, method, endpoint, path, query, body, span)
	duration := time.Since(start)

	status := logging.StatusSuccess
	if err != nil {
		status = logging.StatusError
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	} else {
		span.SetStatus(codes.Ok, "")
	}
	if c.recorder != nil {
		c.recorder.RecordTomcatRequest(ctx, operation, status, duration)
	}

	attrs := []any{
		logging.Operation(operation),
		slog.String("method", method),
		logging.Endpoint(path),
		logging.Status(status),
		slog.Duration(logging.KeyDuration, duration),
	}
	var reqErr *RequestError
	if errors.As(err, &reqErr) && reqErr.StatusCode != 0 {
		attrs = append(attrs, logging.StatusCode(reqErr.StatusCode))
	}
	if err != nil {
		attrs = append(attrs, logging.SanitizedErr(err))
	}
	c.logger.Debug("tomcat manager request", attrs...)

	return text, err
}

func (c *Client) roundTrip(ctx context.Context, method, endpoint, path string, query url.Values, body io.Reader, span trace.Span) (string, error) {
	req, err := c.newRequest(ctx, method, endpoint, query, body)
	if err != nil {
		return "", &RequestError{Endpoint: path, Err: err}
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", &RequestError{Endpoint: path, Err: err}
	}
	defer closeBody(resp)

	span.SetAttributes(attribute.Int("http.response.status_code", resp.StatusCode))

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize+1))
	if err != nil {
		return "", &RequestError{Endpoint: path, StatusCode: resp.StatusCode, Err: fmt.Errorf("failed to read response body: %w", err)}
	}

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return "", &RequestError{
			Endpoint:   path,
			StatusCode: resp.StatusCode,
			Message:    resp.Status,
		}
	}

	// A cut reply would parse into a partial result.
	if len(data) > maxResponseSize {
		return "", newFormatError(path, "response exceeds %d bytes", maxResponseSize)
	}

	return string(data), nil
}

func (c *Client) endpointPath(endpoint string) string {
	return strings.TrimSuffix(c.baseURL.Path, "/") + endpoint
}

func closeBody(resp *http.Response) {
	if resp != nil && resp.Body != nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		_ = resp.Body.Close()
	}
}

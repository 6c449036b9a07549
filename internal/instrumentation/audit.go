package instrumentation

import (
	"context"
	"log/slog"
	"time"

	"github.com/giantswarm/mcp-tomcat/internal/logging"
)

// ToolInvocation captures one MCP tool call for audit logging and metrics.
type ToolInvocation struct {
	Tool      string
	StartTime time.Time
	Duration  time.Duration
	Success   bool
	Error     string

	// Connection
	Alias string
	Host  string

	// UserHash is the anonymized Manager username.
	UserHash string

	// CallerHash is the anonymized OAuth identity of the MCP client.
	CallerHash string

	// Target application, if any.
	AppPath string

	// DryRun is set when a mutating tool was short-circuited.
	DryRun bool

	TraceID string
	SpanID  string
}

// NewToolInvocation starts tracking a call of tool.
func NewToolInvocation(tool string) *ToolInvocation {
	return &ToolInvocation{
		Tool:      tool,
		StartTime: time.Now(),
	}
}

// WithConnection records the connection alias and Tomcat host.
func (ti *ToolInvocation) WithConnection(alias, host string) *ToolInvocation {
	ti.Alias = alias
	ti.Host = host
	return ti
}

// WithUser records the Manager username, hashed.
func (ti *ToolInvocation) WithUser(username string) *ToolInvocation {
	ti.UserHash = logging.AnonymizeUser(username)
	return ti
}

// WithCaller records the authenticated MCP caller, hashed. An empty
// caller is not recorded.
func (ti *ToolInvocation) WithCaller(caller string) *ToolInvocation {
	if caller != "" {
		ti.CallerHash = logging.AnonymizeUser(caller)
	}
	return ti
}

// WithApp records the application context path.
func (ti *ToolInvocation) WithApp(path string) *ToolInvocation {
	ti.AppPath = path
	return ti
}

// WithDryRun marks the invocation as not executed.
func (ti *ToolInvocation) WithDryRun(dryRun bool) *ToolInvocation {
	ti.DryRun = dryRun
	return ti
}

// WithSpanContext copies trace and span IDs from ctx.
func (ti *ToolInvocation) WithSpanContext(ctx context.Context) *ToolInvocation {
	ti.TraceID = GetTraceID(ctx)
	ti.SpanID = GetSpanID(ctx)
	return ti
}

// Complete finishes the invocation.
func (ti *ToolInvocation) Complete(success bool, err error) *ToolInvocation {
	ti.Duration = time.Since(ti.StartTime)
	ti.Success = success
	if err != nil {
		ti.Error = err.Error()
	}
	return ti
}

// CompleteSuccess finishes a successful invocation.
func (ti *ToolInvocation) CompleteSuccess() *ToolInvocation {
	return ti.Complete(true, nil)
}

// CompleteWithError finishes a failed invocation.
func (ti *ToolInvocation) CompleteWithError(err error) *ToolInvocation {
	return ti.Complete(false, err)
}

// Environment returns the classified environment of the alias.
func (ti *ToolInvocation) Environment() string {
	return ClassifyAlias(ti.Alias)
}

// Status returns StatusSuccess or StatusError.
func (ti *ToolInvocation) Status() string {
	if ti.Success {
		return StatusSuccess
	}
	return StatusError
}

// LogAttrs returns low-cardinality attributes for operational logs.
func (ti *ToolInvocation) LogAttrs() []slog.Attr {
	attrs := []slog.Attr{
		slog.String(logging.KeyTool, ti.Tool),
		slog.String("environment", ti.Environment()),
		slog.Duration("duration", ti.Duration),
		slog.Bool("success", ti.Success),
	}
	if ti.DryRun {
		attrs = append(attrs, slog.Bool("dry_run", true))
	}
	return attrs
}

// LogAuditAttrs returns the full attribute set for the audit trail.
func (ti *ToolInvocation) LogAuditAttrs() []slog.Attr {
	attrs := []slog.Attr{
		slog.String(logging.KeyTool, ti.Tool),
		slog.String("alias", ti.Alias),
		slog.String("host", ti.Host),
		slog.String("environment", ti.Environment()),
		slog.Duration("duration", ti.Duration),
		slog.Bool("success", ti.Success),
		slog.Bool("dry_run", ti.DryRun),
	}
	if ti.UserHash != "" {
		attrs = append(attrs, slog.String(logging.KeyUserHash, ti.UserHash))
	}
	if ti.CallerHash != "" {
		attrs = append(attrs, slog.String("caller_hash", ti.CallerHash))
	}
	if ti.AppPath != "" {
		attrs = append(attrs, slog.String("app_path", ti.AppPath))
	}
	if ti.Error != "" {
		attrs = append(attrs, slog.String("error", ti.Error))
	}
	if ti.TraceID != "" {
		attrs = append(attrs, slog.String("trace_id", ti.TraceID))
	}
	if ti.SpanID != "" {
		attrs = append(attrs, slog.String("span_id", ti.SpanID))
	}
	return attrs
}

// AuditLogger writes one structured record per tool invocation.
type AuditLogger struct {
	logger *slog.Logger
}

// NewAuditLogger creates an AuditLogger. A nil logger selects slog.Default().
func NewAuditLogger(logger *slog.Logger) *AuditLogger {
	if logger == nil {
		logger = slog.Default()
	}
	return &AuditLogger{logger: logger}
}

// LogToolInvocation writes the audit record for ti. Failed calls are logged
// at warn level.
func (a *AuditLogger) LogToolInvocation(ti *ToolInvocation) {
	level := slog.LevelInfo
	if !ti.Success {
		level = slog.LevelWarn
	}
	a.logger.LogAttrs(context.Background(), level, "tool_invocation",
		append([]slog.Attr{slog.String("audit", "true")}, ti.LogAuditAttrs()...)...)
}

// TraceIDFromContext returns the trace ID of the span in ctx, or "".
func TraceIDFromContext(ctx context.Context) string {
	return GetTraceID(ctx)
}

package tools

import (
	"context"
	"errors"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/giantswarm/mcp-tomcat/internal/instrumentation"
	"github.com/giantswarm/mcp-tomcat/internal/server"
)

// ToolHandler is the signature for MCP tool handler functions that take ServerContext.
type ToolHandler func(ctx context.Context, request mcp.CallToolRequest, sc *server.ServerContext) (*mcp.CallToolResult, error)

// WrapWithAuditLogging wraps a tool handler with audit logging.
// This function creates a wrapper that automatically captures:
//   - Tool invocation timing
//   - Connection alias and Tomcat host from request arguments
//   - The OAuth caller, when the HTTP transport authenticated one
//   - Application context path from request arguments
//   - Success/error status from the handler result
//   - OpenTelemetry trace context for correlation
//
// The alias is stored in the handler context so that Manager request
// metrics are labelled with it. Tool call metrics and the audit record are
// only written when an instrumentation provider is available.
func WrapWithAuditLogging(
	toolName string,
	handler ToolHandler,
	sc *server.ServerContext,
) func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		args := request.GetArguments()
		target := connectionFromArgs(sc, toolName, args)
		alias := target.alias
		ctx = instrumentation.ContextWithAlias(ctx, alias)

		provider := sc.InstrumentationProvider()
		if provider == nil {
			// No instrumentation available, just call the handler
			return handler(ctx, request, sc)
		}

		spanAttrs := instrumentation.NewSpanAttributeBuilder().
			WithConnection(alias).
			WithServerAddress(target.host).
			WithUser(target.username).
			WithAppPath(StringArg(args, ArgPath))
		dryRun := sc.Config().DryRun && IsMutatingTool(toolName)
		if dryRun {
			spanAttrs.WithDryRun(true)
		}
		ctx, span := instrumentation.StartToolSpan(ctx, toolName, spanAttrs.Build()...)
		defer span.End()

		invocation := instrumentation.NewToolInvocation(toolName).
			WithSpanContext(ctx).
			WithConnection(alias, target.host).
			WithUser(target.username).
			WithCaller(instrumentation.CallerFromContext(ctx)).
			WithApp(StringArg(args, ArgPath)).
			WithDryRun(dryRun)

		// Execute the actual handler
		result, err := handler(ctx, request, sc)

		// Determine success/error status
		if err != nil {
			invocation.CompleteWithError(err)
			instrumentation.SetSpanError(span, err)
		} else if result != nil && result.IsError {
			// MCP tool errors are returned in the result, not as Go errors
			invocation.Complete(false, nil)
			if len(result.Content) > 0 {
				if textContent, ok := result.Content[0].(mcp.TextContent); ok {
					invocation.Error = textContent.Text
				}
			}
			instrumentation.SetSpanError(span, errors.New(invocation.Error))
		} else {
			invocation.CompleteSuccess()
			instrumentation.SetSpanSuccess(span)
		}

		provider.Metrics().RecordToolInvocation(ctx, toolName, invocation.Status(), invocation.Duration)
		provider.AuditLogger().LogToolInvocation(invocation)

		return result, err
	}
}

// callTarget is the connection a tool call is aimed at.
type callTarget struct {
	alias    string
	host     string
	username string
}

// connectionFromArgs determines the connection a tool call targets.
// tomcat_connect names it in its arguments; other tools use the alias
// argument or the current connection.
func connectionFromArgs(sc *server.ServerContext, toolName string, args map[string]interface{}) callTarget {
	alias := StringArg(args, ArgAlias)
	if toolName == "tomcat_connect" {
		username := StringArg(args, "username")
		if username == "" {
			username = sc.Config().ConnectionDefaults.WithDefaults().Username
		}
		return callTarget{alias: alias, host: StringArg(args, "host"), username: username}
	}
	if toolName == "tomcat_switch_connection" {
		alias = StringArg(args, "indexOrAlias")
	}

	conn, err := sc.Registry().Get(alias)
	if err != nil {
		return callTarget{alias: alias}
	}
	cfg := conn.Client.Config()
	return callTarget{alias: conn.Alias, host: cfg.Host, username: cfg.Username}
}

// Package tools provides the shared plumbing for MCP tool handlers: the
// handler signature, connection lookup, argument parsing, result helpers,
// the non-destructive and dry-run safety checks, and audit logging.
//
// Each tool category lives in its own subpackage (connection, application,
// status, jmx) and registers its tools with WrapWithAuditLogging.
package tools

import (
	"errors"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/giantswarm/mcp-tomcat/internal/server"
	"github.com/giantswarm/mcp-tomcat/internal/tomcat"
	"github.com/giantswarm/mcp-tomcat/internal/tools/output"
)

// GetConnection returns the connection identified by alias or numeric
// index. An empty alias selects the current connection.
//
// Tool handlers should use this function instead of calling
// sc.Registry().Get directly so that a missing connection is always
// reported as "connection not found".
func GetConnection(sc *server.ServerContext, alias string) (*tomcat.Connection, error) {
	conn, err := sc.Registry().Get(alias)
	if errors.Is(err, tomcat.ErrNoConnection) {
		return nil, fmt.Errorf("%w: no current connection, use tomcat_connect first", tomcat.ErrConnectionNotFound)
	}
	return conn, err
}

// ErrorResult turns err into an MCP error result. Tomcat errors already
// carry their kind ("manager request failed", "unexpected response format",
// "connection not found") as message prefix; action is prepended to
// everything else.
func ErrorResult(action string, err error) *mcp.CallToolResult {
	switch {
	case tomcat.IsRequestError(err), tomcat.IsFormatError(err), tomcat.IsConnectionNotFound(err):
		return mcp.NewToolResultError(err.Error())
	case errors.Is(err, tomcat.ErrNoConnection):
		return mcp.NewToolResultError(tomcat.ErrConnectionNotFound.Error() + ": " + err.Error())
	default:
		return mcp.NewToolResultError(fmt.Sprintf("Failed to %s: %v", action, err))
	}
}

// JSONResult renders v as JSON within the configured response size.
func JSONResult(sc *server.ServerContext, v interface{}) (*mcp.CallToolResult, error) {
	text, err := output.JSON(v, OutputConfig(sc).MaxResponseBytes)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(text), nil
}

// ListResult renders items under key with their count and total, dropping
// trailing items when the JSON would exceed the configured response size.
func ListResult[T any](sc *server.ServerContext, key string, items []T, total int, warnings []output.TruncationWarning) (*mcp.CallToolResult, error) {
	text, err := output.ListJSON(key, items, total, warnings, OutputConfig(sc).MaxResponseBytes)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(text), nil
}

// TextResult returns text cut to the configured response size.
func TextResult(sc *server.ServerContext, text string) *mcp.CallToolResult {
	text, _ = output.TruncateText(text, OutputConfig(sc).MaxResponseBytes)
	return mcp.NewToolResultText(text)
}

// OutputConfig returns the output limits of sc, never nil.
func OutputConfig(sc *server.ServerContext) *output.Config {
	if cfg := sc.Config().Output; cfg != nil {
		return cfg
	}
	return output.DefaultConfig()
}

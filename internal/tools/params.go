// Package tools provides shared utilities and types for MCP tool implementations.
package tools

import (
	"fmt"
	"math"

	mcp "github.com/mark3labs/mcp-go/mcp"

	"github.com/giantswarm/mcp-tomcat/internal/server"
	"github.com/giantswarm/mcp-tomcat/internal/tools/output"
)

// Common argument names.
const (
	ArgAlias  = "alias"
	ArgPath   = "path"
	ArgOutput = "output"
)

// AliasParam returns the optional connection alias parameter shared by all
// tools that talk to Tomcat.
//
// Usage in tool registration:
//
//	tool := mcp.NewTool("tomcat_start",
//	    mcp.WithDescription("..."),
//	    tools.AliasParam(),
//	    tools.PathParam("Context path of the application to start"),
//	)
func AliasParam() mcp.ToolOption {
	return mcp.WithString(ArgAlias,
		mcp.Description("Connection alias or index (optional, uses the current connection if not specified)"),
	)
}

// PathParam returns the required application context path parameter.
func PathParam(description string) mcp.ToolOption {
	return mcp.WithString(ArgPath,
		mcp.Required(),
		mcp.Description(description),
	)
}

// OutputParam returns the optional output format parameter.
func OutputParam() mcp.ToolOption {
	return mcp.WithString(ArgOutput,
		mcp.Description("Output format: json (default) or table"),
		mcp.Enum(output.FormatJSON, output.FormatTable),
	)
}

// StringArg returns args[key] if it is a string, or "".
func StringArg(args map[string]interface{}, key string) string {
	s, _ := args[key].(string)
	return s
}

// RequiredStringArg returns args[key] or an error if it is missing or empty.
func RequiredStringArg(args map[string]interface{}, key string) (string, error) {
	s, ok := args[key].(string)
	if !ok || s == "" {
		return "", fmt.Errorf("%s is required", key)
	}
	return s, nil
}

// BoolArg returns args[key] if it is a bool, or false.
func BoolArg(args map[string]interface{}, key string) bool {
	b, _ := args[key].(bool)
	return b
}

// IntArg returns args[key] as an int. JSON numbers arrive as float64;
// fractional values are rejected. The second result is false if the
// argument is absent.
func IntArg(args map[string]interface{}, key string) (int, bool, error) {
	v, ok := args[key]
	if !ok || v == nil {
		return 0, false, nil
	}
	switch n := v.(type) {
	case float64:
		if n != math.Trunc(n) {
			return 0, true, fmt.Errorf("%s must be an integer", key)
		}
		return int(n), true, nil
	case int:
		return n, true, nil
	case int64:
		return int(n), true, nil
	default:
		return 0, true, fmt.Errorf("%s must be a number", key)
	}
}

// OutputFormat returns the requested output format, falling back to the
// server default.
func OutputFormat(args map[string]interface{}, sc *server.ServerContext) (string, error) {
	if requested := StringArg(args, ArgOutput); requested != "" {
		return output.ParseFormat(requested)
	}
	return output.ParseFormat(OutputConfig(sc).Format)
}

package jmx

import (
	"context"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/giantswarm/mcp-tomcat/internal/server"
	"github.com/giantswarm/mcp-tomcat/internal/tools"
	"github.com/giantswarm/mcp-tomcat/internal/tools/output"
)

// GetResponse is returned by tomcat_jmx_get.
type GetResponse struct {
	Bean      string `json:"bean"`
	Attribute string `json:"attribute"`
	Value     string `json:"value"`
}

// HandleQuery handles tomcat_jmx_query.
func HandleQuery(ctx context.Context, request mcp.CallToolRequest, sc *server.ServerContext) (*mcp.CallToolResult, error) {
	args := request.GetArguments()

	query, err := tools.RequiredStringArg(args, "query")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	format, err := tools.OutputFormat(args, sc)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	limit, _, err := tools.IntArg(args, "limit")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	conn, err := tools.GetConnection(sc, tools.StringArg(args, tools.ArgAlias))
	if err != nil {
		return tools.ErrorResult("query MBeans", err), nil
	}

	beans, err := conn.Client.JMXQuery(ctx, query)
	if err != nil {
		return tools.ErrorResult("query MBeans", err), nil
	}

	total := len(beans)
	beans, warning := output.TruncateGeneric(beans, output.EffectiveLimit(limit, tools.OutputConfig(sc).MaxItems))

	if format == output.FormatTable {
		text := output.JMXBeansTable(beans)
		if warning != nil {
			text += "\n" + warning.Message
		}
		return tools.TextResult(sc, text), nil
	}

	var warnings []output.TruncationWarning
	if warning != nil {
		warnings = append(warnings, *warning)
	}
	return tools.ListResult(sc, "beans", beans, total, warnings)
}

// HandleGet handles tomcat_jmx_get.
func HandleGet(ctx context.Context, request mcp.CallToolRequest, sc *server.ServerContext) (*mcp.CallToolResult, error) {
	args := request.GetArguments()

	bean, err := tools.RequiredStringArg(args, "bean")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	attribute, err := tools.RequiredStringArg(args, "attribute")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	conn, err := tools.GetConnection(sc, tools.StringArg(args, tools.ArgAlias))
	if err != nil {
		return tools.ErrorResult("read MBean attribute", err), nil
	}

	value, err := conn.Client.JMXGet(ctx, bean, attribute)
	if err != nil {
		return tools.ErrorResult("read MBean attribute", err), nil
	}

	return tools.JSONResult(sc, GetResponse{Bean: bean, Attribute: attribute, Value: value})
}

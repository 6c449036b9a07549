package status

import (
	"context"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/giantswarm/mcp-tomcat/internal/server"
	"github.com/giantswarm/mcp-tomcat/internal/tomcat"
	"github.com/giantswarm/mcp-tomcat/internal/tools"
	"github.com/giantswarm/mcp-tomcat/internal/tools/output"
)

// handleServerInfo handles tomcat_serverinfo
func handleServerInfo(ctx context.Context, request mcp.CallToolRequest, sc *server.ServerContext) (*mcp.CallToolResult, error) {
	args := request.GetArguments()

	format, err := tools.OutputFormat(args, sc)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	conn, err := tools.GetConnection(sc, tools.StringArg(args, tools.ArgAlias))
	if err != nil {
		return tools.ErrorResult("get server info", err), nil
	}

	info, err := conn.Client.ServerInfo(ctx)
	if err != nil {
		return tools.ErrorResult("get server info", err), nil
	}

	if format == output.FormatTable {
		return tools.TextResult(sc, output.ServerInfoTable(info)), nil
	}
	return tools.JSONResult(sc, info)
}

// handleThreadPoolStatistics handles tomcat_thread_pool_statistics
func handleThreadPoolStatistics(ctx context.Context, request mcp.CallToolRequest, sc *server.ServerContext) (*mcp.CallToolResult, error) {
	args := request.GetArguments()

	format, err := tools.OutputFormat(args, sc)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	connector := tools.StringArg(args, "connector")

	conn, err := tools.GetConnection(sc, tools.StringArg(args, tools.ArgAlias))
	if err != nil {
		return tools.ErrorResult("get thread pool statistics", err), nil
	}

	pools, err := conn.Client.ThreadPools(ctx)
	if err != nil {
		return tools.ErrorResult("get thread pool statistics", err), nil
	}

	if connector != "" {
		pools = filterConnector(pools, connector)
		if len(pools) == 0 {
			return mcp.NewToolResultError(fmt.Sprintf("connector %q not found", connector)), nil
		}
	}

	if format == output.FormatTable {
		return tools.TextResult(sc, output.ThreadPoolsTable(pools)), nil
	}
	return tools.JSONResult(sc, output.FormatResult("threadPools", pools, len(pools), nil))
}

func filterConnector(pools []tomcat.ThreadPool, name string) []tomcat.ThreadPool {
	var out []tomcat.ThreadPool
	for _, p := range pools {
		if p.Connector == name {
			out = append(out, p)
		}
	}
	return out
}

// handleServerStatus handles tomcat_server_status
func handleServerStatus(ctx context.Context, request mcp.CallToolRequest, sc *server.ServerContext) (*mcp.CallToolResult, error) {
	args := request.GetArguments()

	format, err := tools.OutputFormat(args, sc)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	conn, err := tools.GetConnection(sc, tools.StringArg(args, tools.ArgAlias))
	if err != nil {
		return tools.ErrorResult("get server status", err), nil
	}

	status, err := conn.Client.Status(ctx)
	if err != nil {
		return tools.ErrorResult("get server status", err), nil
	}

	if format == output.FormatTable {
		return tools.TextResult(sc, output.MemoryTable(status)+"\n"+output.ThreadPoolsTable(status.ThreadPools())), nil
	}
	return tools.JSONResult(sc, status)
}

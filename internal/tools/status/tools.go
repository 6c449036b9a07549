// Package status provides the read-only tools that report Tomcat server
// facts: server info, connector thread pools and the full server status.
package status

import (
	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/giantswarm/mcp-tomcat/internal/server"
	"github.com/giantswarm/mcp-tomcat/internal/tools"
)

// RegisterStatusTools registers the server status tools with the MCP server
func RegisterStatusTools(s *mcpserver.MCPServer, sc *server.ServerContext) error {
	// tomcat_serverinfo tool
	serverInfoTool := mcp.NewTool("tomcat_serverinfo",
		mcp.WithDescription("Get Tomcat, JVM and operating system version information"),
		tools.AliasParam(),
		tools.OutputParam(),
	)

	s.AddTool(serverInfoTool, tools.WrapWithAuditLogging("tomcat_serverinfo", handleServerInfo, sc))

	// tomcat_thread_pool_statistics tool
	threadPoolTool := mcp.NewTool("tomcat_thread_pool_statistics",
		mcp.WithDescription("Get thread and request statistics of each connector"),
		tools.AliasParam(),
		mcp.WithString("connector",
			mcp.Description(`Only report this connector, e.g. http-nio-8080 (optional)`),
		),
		tools.OutputParam(),
	)

	s.AddTool(threadPoolTool, tools.WrapWithAuditLogging("tomcat_thread_pool_statistics", handleThreadPoolStatistics, sc))

	// tomcat_server_status tool
	serverStatusTool := mcp.NewTool("tomcat_server_status",
		mcp.WithDescription("Get the full server status: JVM memory, memory pools and connectors"),
		tools.AliasParam(),
		tools.OutputParam(),
	)

	s.AddTool(serverStatusTool, tools.WrapWithAuditLogging("tomcat_server_status", handleServerStatus, sc))

	return nil
}

// Package connection provides the tools that manage named Tomcat Manager
// connections: connect, switch, close and inspect.
package connection

import (
	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/giantswarm/mcp-tomcat/internal/server"
	"github.com/giantswarm/mcp-tomcat/internal/tools"
)

// RegisterConnectionTools registers all connection management tools with the MCP server
func RegisterConnectionTools(s *mcpserver.MCPServer, sc *server.ServerContext) error {
	// tomcat_connect tool
	connectTool := mcp.NewTool("tomcat_connect",
		mcp.WithDescription("Open a connection to a Tomcat Manager application and make it the current connection. No request is sent until another tool uses it."),
		mcp.WithString("host",
			mcp.Required(),
			mcp.Description("Tomcat host name or IP address"),
		),
		mcp.WithNumber("port",
			mcp.Description("Tomcat HTTP port (default: 8080)"),
		),
		mcp.WithString("username",
			mcp.Description("Manager user with the manager-script and manager-jmx roles (default: server setting or 'tomcat')"),
		),
		mcp.WithString("password",
			mcp.Description("Manager password (default: server setting or 'tomcat')"),
		),
		mcp.WithNumber("timeout",
			mcp.Description("Request timeout in seconds (default: 15)"),
		),
		mcp.WithString("alias",
			mcp.Description("Name for this connection. Connecting an existing alias replaces it."),
		),
		mcp.WithString("scheme",
			mcp.Description("URL scheme (default: http)"),
			mcp.Enum("http", "https"),
		),
	)

	s.AddTool(connectTool, tools.WrapWithAuditLogging("tomcat_connect", handleConnect, sc))

	// tomcat_switch_connection tool
	switchTool := mcp.NewTool("tomcat_switch_connection",
		mcp.WithDescription("Make another registered connection current. Returns the index of the previously current connection."),
		mcp.WithString("indexOrAlias",
			mcp.Required(),
			mcp.Description("Alias or 1-based index of the connection"),
		),
	)

	s.AddTool(switchTool, tools.WrapWithAuditLogging("tomcat_switch_connection", handleSwitch, sc))

	// tomcat_close_connection tool
	closeTool := mcp.NewTool("tomcat_close_connection",
		mcp.WithDescription("Close a connection. Without an alias the current connection is closed."),
		mcp.WithString(tools.ArgAlias,
			mcp.Description("Alias or index of the connection to close (optional, closes the current connection if not specified)"),
		),
	)

	s.AddTool(closeTool, tools.WrapWithAuditLogging("tomcat_close_connection", handleClose, sc))

	// tomcat_close_all_connections tool
	closeAllTool := mcp.NewTool("tomcat_close_all_connections",
		mcp.WithDescription("Close every connection. The next connection gets index 1 again."),
	)

	s.AddTool(closeAllTool, tools.WrapWithAuditLogging("tomcat_close_all_connections", handleCloseAll, sc))

	// tomcat_list_connections tool
	listTool := mcp.NewTool("tomcat_list_connections",
		mcp.WithDescription("List registered connections. Passwords are never shown."),
		tools.OutputParam(),
	)

	s.AddTool(listTool, tools.WrapWithAuditLogging("tomcat_list_connections", handleList, sc))

	// tomcat_check_connections tool
	checkTool := mcp.NewTool("tomcat_check_connections",
		mcp.WithDescription("Check that every registered Tomcat Manager answers with valid server info"),
	)

	s.AddTool(checkTool, tools.WrapWithAuditLogging("tomcat_check_connections", handleCheck, sc))

	return nil
}

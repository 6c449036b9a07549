package application

import (
	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/giantswarm/mcp-tomcat/internal/server"
	"github.com/giantswarm/mcp-tomcat/internal/tools"
)

// RegisterApplicationTools registers the application lifecycle and
// inspection tools with the MCP server.
func RegisterApplicationTools(s *mcpserver.MCPServer, sc *server.ServerContext) error {
	// tomcat_list_applications tool
	listTool := mcp.NewTool("tomcat_list_applications",
		mcp.WithDescription("List the applications deployed on the Tomcat virtual host with their status and session count"),
		tools.AliasParam(),
		tools.OutputParam(),
		mcp.WithNumber("limit",
			mcp.Description("Maximum number of applications to return (default: server setting)"),
		),
	)

	s.AddTool(listTool, tools.WrapWithAuditLogging("tomcat_list_applications", handleListApplications, sc))

	// tomcat_application_status tool
	statusTool := mcp.NewTool("tomcat_application_status",
		mcp.WithDescription("Get the status (running or stopped) of one application"),
		tools.AliasParam(),
		tools.PathParam("Context path of the application, e.g. /shop"),
	)

	s.AddTool(statusTool, tools.WrapWithAuditLogging("tomcat_application_status", handleApplicationStatus, sc))

	// tomcat_session_statistics tool
	sessionsTool := mcp.NewTool("tomcat_session_statistics",
		mcp.WithDescription("Get the session idle-time histogram of an application"),
		tools.AliasParam(),
		tools.PathParam("Context path of the application, e.g. /shop"),
		tools.OutputParam(),
	)

	s.AddTool(sessionsTool, tools.WrapWithAuditLogging("tomcat_session_statistics", handleSessionStatistics, sc))

	// tomcat_start, tomcat_stop and tomcat_reload tools
	for _, cmd := range lifecycleCommands {
		tool := mcp.NewTool(cmd.tool,
			mcp.WithDescription(cmd.description),
			tools.AliasParam(),
			tools.PathParam("Context path of the application, e.g. /shop"),
		)
		s.AddTool(tool, tools.WrapWithAuditLogging(cmd.tool, cmd.handler(), sc))
	}

	// tomcat_deploy tool
	deployTool := mcp.NewTool("tomcat_deploy",
		mcp.WithDescription(`Deploy an application.
Either deploy a WAR or directory that already exists on the Tomcat host ("war"), upload a local WAR file ("warFile"), or redeploy a tagged application ("tag" without "war").`),
		tools.AliasParam(),
		tools.PathParam("Context path to deploy to, e.g. /shop"),
		mcp.WithString("war",
			mcp.Description("URL of a WAR or directory on the Tomcat host, e.g. file:/opt/wars/shop.war"),
		),
		mcp.WithString("warFile",
			mcp.Description("Local WAR file to upload, relative to the server's --war-dir (mutually exclusive with war)"),
		),
		mcp.WithString("config",
			mcp.Description("URL of a context configuration file on the Tomcat host"),
		),
		mcp.WithString("tag",
			mcp.Description("Tag to associate with the deployment"),
		),
		mcp.WithBoolean("update",
			mcp.Description("Undeploy an existing application at the path first (default: false)"),
		),
		mcp.WithString("version",
			mcp.Description("Version for parallel deployment"),
		),
	)

	s.AddTool(deployTool, tools.WrapWithAuditLogging("tomcat_deploy", handleDeploy, sc))

	// tomcat_undeploy tool
	undeployTool := mcp.NewTool("tomcat_undeploy",
		mcp.WithDescription("Undeploy an application and delete its files"),
		tools.AliasParam(),
		tools.PathParam("Context path of the application, e.g. /shop"),
		mcp.WithString("version",
			mcp.Description("Version of a parallel deployment to undeploy"),
		),
	)

	s.AddTool(undeployTool, tools.WrapWithAuditLogging("tomcat_undeploy", handleUndeploy, sc))

	return nil
}

// Package jmx provides tools for reading MBeans through the Tomcat Manager
// JMX proxy (/manager/jmxproxy).
//
// The Manager user needs the manager-jmx role.
//
// # Usage Examples
//
// Query all thread pools:
//
//	{
//	  "query": "Catalina:type=ThreadPool,*"
//	}
//
// Read the heap usage:
//
//	{
//	  "bean": "java.lang:type=Memory",
//	  "attribute": "HeapMemoryUsage"
//	}
package jmx

import (
	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/giantswarm/mcp-tomcat/internal/server"
	"github.com/giantswarm/mcp-tomcat/internal/tools"
)

// QueryTool runs a JMX MBean query.
var QueryTool = mcp.NewTool("tomcat_jmx_query",
	mcp.WithDescription("Query MBeans through the Manager JMX proxy and return their attributes"),
	tools.AliasParam(),
	mcp.WithString("query",
		mcp.Required(),
		mcp.Description("MBean name pattern, e.g. Catalina:type=ThreadPool,*"),
	),
	mcp.WithNumber("limit",
		mcp.Description("Maximum number of MBeans to return (default: server setting)"),
	),
	tools.OutputParam(),
)

// GetTool reads one MBean attribute.
var GetTool = mcp.NewTool("tomcat_jmx_get",
	mcp.WithDescription("Read a single MBean attribute through the Manager JMX proxy"),
	tools.AliasParam(),
	mcp.WithString("bean",
		mcp.Required(),
		mcp.Description("MBean name, e.g. java.lang:type=Memory"),
	),
	mcp.WithString("attribute",
		mcp.Required(),
		mcp.Description("Attribute name, e.g. HeapMemoryUsage"),
	),
)

// RegisterJMXTools registers the JMX tools with the MCP server.
func RegisterJMXTools(s *mcpserver.MCPServer, sc *server.ServerContext) error {
	s.AddTool(QueryTool, tools.WrapWithAuditLogging("tomcat_jmx_query", HandleQuery, sc))
	s.AddTool(GetTool, tools.WrapWithAuditLogging("tomcat_jmx_get", HandleGet, sc))
	return nil
}

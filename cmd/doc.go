// Package cmd provides the command-line interface for mcp-tomcat.
//
// This package implements a Cobra-based CLI with multiple subcommands:
//   - serve: Starts the MCP server (default behavior when no subcommand is provided)
//   - version: Displays the application version
//   - self-update: Updates the binary to the latest version from GitHub releases
//
// Command Structure:
//
//	mcp-tomcat [flags]                 # Starts the MCP server (default)
//	mcp-tomcat serve [flags]           # Explicitly starts the MCP server
//	mcp-tomcat version                 # Shows version information
//	mcp-tomcat self-update             # Updates to latest release
//	mcp-tomcat help [command]          # Shows help information
//
// The serve command supports multiple transport options:
//   - stdio: Standard input/output (default) - for command-line integration
//   - sse: Server-Sent Events over HTTP - for web-based clients
//   - streamable-http: Streamable HTTP transport - for HTTP-based integration
//
// Examples:
//
//	mcp-tomcat serve --transport stdio
//	mcp-tomcat serve --transport streamable-http --http-addr :9000 --http-endpoint /mcp
//	TOMCAT_PASSWORD=... mcp-tomcat serve --connections-file connections.yaml --allowed-operations reload
//
// A connections file registers Tomcat servers at start-up:
//
//	connections:
//	  - alias: prod
//	    host: tomcat-prod.example.com
//	    port: 8443
//	    scheme: https
//	    username: deployer
//	    password_env: PROD_TOMCAT_PASSWORD
//	    timeout: 30s
package cmd

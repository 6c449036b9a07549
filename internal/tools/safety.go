// Package tools provides shared utilities for MCP tool handlers.
package tools

import (
	"fmt"
	"sort"

	"github.com/mark3labs/mcp-go/mcp"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/giantswarm/mcp-tomcat/internal/server"
	"github.com/giantswarm/mcp-tomcat/internal/tomcat"
)

// mutatingTools maps the tools that change Tomcat state to their operation.
var mutatingTools = map[string]string{
	"tomcat_deploy":   tomcat.OperationDeploy,
	"tomcat_undeploy": tomcat.OperationUndeploy,
	"tomcat_start":    tomcat.OperationStart,
	"tomcat_stop":     tomcat.OperationStop,
	"tomcat_reload":   tomcat.OperationReload,
}

// IsMutatingTool reports whether toolName changes application state.
func IsMutatingTool(toolName string) bool {
	_, ok := mutatingTools[toolName]
	return ok
}

// CheckMutatingOperation verifies if a mutating operation is allowed given the current
// server configuration. Returns an error result if blocked, nil if allowed.
//
// Operations are allowed if:
//   - NonDestructiveMode is disabled, OR
//   - DryRun mode is enabled (nothing is sent to Tomcat), OR
//   - The operation is explicitly listed in AllowedOperations
//
// Protected operations: deploy, undeploy, start, stop, reload
func CheckMutatingOperation(sc *server.ServerContext, operation string) *mcp.CallToolResult {
	config := sc.Config()
	if !config.NonDestructiveMode || config.DryRun {
		return nil
	}

	if config.IsOperationAllowed(operation) {
		return nil
	}

	return mcp.NewToolResultError(fmt.Sprintf(
		"%s operations are not allowed in non-destructive mode (use --dry-run to see what would be sent)",
		cases.Title(language.English).String(operation),
	))
}

// DryRunResult returns the result reported instead of running operation
// when dry-run mode is on, or nil when the operation should run.
func DryRunResult(sc *server.ServerContext, operation, target string, details map[string]interface{}) *mcp.CallToolResult {
	if !sc.Config().DryRun {
		return nil
	}

	msg := fmt.Sprintf("[dry-run] would %s application at context path [%s]", operation, target)
	for _, k := range sortedKeys(details) {
		msg += fmt.Sprintf("\n  %s: %v", k, details[k])
	}
	return mcp.NewToolResultText(msg)
}

func sortedKeys(m map[string]interface{}) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

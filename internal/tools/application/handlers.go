// Package application provides the tools that list, inspect, deploy and
// control web applications through the Tomcat Manager.
package application

import (
	"context"
	"fmt"
	"os"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/giantswarm/mcp-tomcat/internal/logging"
	"github.com/giantswarm/mcp-tomcat/internal/server"
	"github.com/giantswarm/mcp-tomcat/internal/tomcat"
	"github.com/giantswarm/mcp-tomcat/internal/tools"
	"github.com/giantswarm/mcp-tomcat/internal/tools/output"
)

// lifecycleCommand describes one of the start/stop/reload tools.
type lifecycleCommand struct {
	tool        string
	operation   string
	description string
	run         func(c *tomcat.Client, ctx context.Context, path string) error
}

var lifecycleCommands = []lifecycleCommand{
	{
		tool:        "tomcat_start",
		operation:   tomcat.OperationStart,
		description: "Start a stopped application",
		run:         (*tomcat.Client).Start,
	},
	{
		tool:        "tomcat_stop",
		operation:   tomcat.OperationStop,
		description: "Stop a running application without undeploying it",
		run:         (*tomcat.Client).Stop,
	},
	{
		tool:        "tomcat_reload",
		operation:   tomcat.OperationReload,
		description: "Reload an application so it picks up changed classes or libraries",
		run:         (*tomcat.Client).Reload,
	},
}

// handler returns the tool handler for the command.
func (cmd lifecycleCommand) handler() tools.ToolHandler {
	return func(ctx context.Context, request mcp.CallToolRequest, sc *server.ServerContext) (*mcp.CallToolResult, error) {
		if result := tools.CheckMutatingOperation(sc, cmd.operation); result != nil {
			return result, nil
		}

		args := request.GetArguments()
		path, err := tools.RequiredStringArg(args, tools.ArgPath)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}

		conn, err := tools.GetConnection(sc, tools.StringArg(args, tools.ArgAlias))
		if err != nil {
			return tools.ErrorResult(cmd.operation, err), nil
		}

		if result := tools.DryRunResult(sc, cmd.operation, path, map[string]interface{}{
			"manager": conn.Client.BaseURL(),
		}); result != nil {
			return result, nil
		}

		if err := cmd.run(conn.Client, ctx, path); err != nil {
			return tools.ErrorResult(cmd.operation+" application", err), nil
		}

		sc.Logger().Info("Application "+cmd.operation+" completed",
			logging.KeyAlias, conn.Alias,
			logging.KeyAppPath, path,
		)
		return mcp.NewToolResultText(fmt.Sprintf("OK - %s application at context path [%s]", cmd.operation, path)), nil
	}
}

// handleListApplications handles tomcat_list_applications
func handleListApplications(ctx context.Context, request mcp.CallToolRequest, sc *server.ServerContext) (*mcp.CallToolResult, error) {
	args := request.GetArguments()

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
		return tools.ErrorResult("list applications", err), nil
	}

	apps, err := conn.Client.List(ctx)
	if err != nil {
		return tools.ErrorResult("list applications", err), nil
	}

	total := len(apps)
	apps, warning := output.TruncateGeneric(apps, output.EffectiveLimit(limit, tools.OutputConfig(sc).MaxItems))

	if format == output.FormatTable {
		text := output.ApplicationsTable(apps)
		if warning != nil {
			text += "\n" + warning.Message
		}
		return tools.TextResult(sc, text), nil
	}

	var warnings []output.TruncationWarning
	if warning != nil {
		warnings = append(warnings, *warning)
	}
	return tools.ListResult(sc, "applications", apps, total, warnings)
}

// handleApplicationStatus handles tomcat_application_status
func handleApplicationStatus(ctx context.Context, request mcp.CallToolRequest, sc *server.ServerContext) (*mcp.CallToolResult, error) {
	args := request.GetArguments()

	path, err := tools.RequiredStringArg(args, tools.ArgPath)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	conn, err := tools.GetConnection(sc, tools.StringArg(args, tools.ArgAlias))
	if err != nil {
		return tools.ErrorResult("get application status", err), nil
	}

	status, err := conn.Client.ApplicationStatus(ctx, path)
	if err != nil {
		return tools.ErrorResult("get application status", err), nil
	}

	return tools.JSONResult(sc, map[string]string{
		"path":   path,
		"status": status,
	})
}

// handleSessionStatistics handles tomcat_session_statistics
func handleSessionStatistics(ctx context.Context, request mcp.CallToolRequest, sc *server.ServerContext) (*mcp.CallToolResult, error) {
	args := request.GetArguments()

	path, err := tools.RequiredStringArg(args, tools.ArgPath)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	format, err := tools.OutputFormat(args, sc)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	conn, err := tools.GetConnection(sc, tools.StringArg(args, tools.ArgAlias))
	if err != nil {
		return tools.ErrorResult("get session statistics", err), nil
	}

	stats, err := conn.Client.Sessions(ctx, path)
	if err != nil {
		return tools.ErrorResult("get session statistics", err), nil
	}

	if format == output.FormatTable {
		return tools.TextResult(sc, output.SessionsTable(stats)), nil
	}
	return tools.JSONResult(sc, stats)
}

// handleDeploy handles tomcat_deploy
func handleDeploy(ctx context.Context, request mcp.CallToolRequest, sc *server.ServerContext) (*mcp.CallToolResult, error) {
	if result := tools.CheckMutatingOperation(sc, tomcat.OperationDeploy); result != nil {
		return result, nil
	}

	args := request.GetArguments()
	path, err := tools.RequiredStringArg(args, tools.ArgPath)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	opts := tomcat.DeployOptions{
		Path:    path,
		WAR:     tools.StringArg(args, "war"),
		Config:  tools.StringArg(args, "config"),
		Tag:     tools.StringArg(args, "tag"),
		Update:  tools.BoolArg(args, "update"),
		Version: tools.StringArg(args, "version"),
	}
	warFile := tools.StringArg(args, "warFile")
	if warFile != "" && opts.WAR != "" {
		return mcp.NewToolResultError("war and warFile are mutually exclusive"), nil
	}
	if warFile == "" && opts.WAR == "" && opts.Tag == "" && opts.Config == "" {
		return mcp.NewToolResultError("one of war, warFile, config or tag is required"), nil
	}

	if warFile != "" {
		if warFile, err = tools.ResolveWarFile(sc, warFile); err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
	}

	conn, err := tools.GetConnection(sc, tools.StringArg(args, tools.ArgAlias))
	if err != nil {
		return tools.ErrorResult("deploy", err), nil
	}

	if result := tools.DryRunResult(sc, tomcat.OperationDeploy, path, deployDetails(conn, opts, warFile)); result != nil {
		return result, nil
	}

	if warFile != "" {
		f, err := os.Open(warFile)
		if err != nil {
			return tools.ErrorResult("deploy", err), nil
		}
		defer f.Close()
		opts.Body = f
	}

	if err := conn.Client.Deploy(ctx, opts); err != nil {
		return tools.ErrorResult("deploy", err), nil
	}

	sc.Logger().Info("Application deployed",
		logging.KeyAlias, conn.Alias,
		logging.KeyAppPath, path,
	)
	return mcp.NewToolResultText(fmt.Sprintf("OK - deploy application at context path [%s]", path)), nil
}

func deployDetails(conn *tomcat.Connection, opts tomcat.DeployOptions, warFile string) map[string]interface{} {
	details := map[string]interface{}{
		"manager": conn.Client.BaseURL(),
	}
	for k, v := range map[string]string{
		"war":     opts.WAR,
		"warFile": warFile,
		"config":  opts.Config,
		"tag":     opts.Tag,
		"version": opts.Version,
	} {
		if v != "" {
			details[k] = v
		}
	}
	if opts.Update {
		details["update"] = true
	}
	return details
}

// handleUndeploy handles tomcat_undeploy
func handleUndeploy(ctx context.Context, request mcp.CallToolRequest, sc *server.ServerContext) (*mcp.CallToolResult, error) {
	if result := tools.CheckMutatingOperation(sc, tomcat.OperationUndeploy); result != nil {
		return result, nil
	}

	args := request.GetArguments()
	path, err := tools.RequiredStringArg(args, tools.ArgPath)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	version := tools.StringArg(args, "version")

	conn, err := tools.GetConnection(sc, tools.StringArg(args, tools.ArgAlias))
	if err != nil {
		return tools.ErrorResult("undeploy", err), nil
	}

	details := map[string]interface{}{"manager": conn.Client.BaseURL()}
	if version != "" {
		details["version"] = version
	}
	if result := tools.DryRunResult(sc, tomcat.OperationUndeploy, path, details); result != nil {
		return result, nil
	}

	if err := conn.Client.Undeploy(ctx, path, version); err != nil {
		return tools.ErrorResult("undeploy", err), nil
	}

	sc.Logger().Info("Application undeployed",
		logging.KeyAlias, conn.Alias,
		logging.KeyAppPath, path,
	)
	return mcp.NewToolResultText(fmt.Sprintf("OK - undeploy application at context path [%s]", path)), nil
}

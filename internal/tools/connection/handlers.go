package connection

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"go.opentelemetry.io/otel/attribute"

	"github.com/giantswarm/mcp-tomcat/internal/instrumentation"
	"github.com/giantswarm/mcp-tomcat/internal/logging"
	"github.com/giantswarm/mcp-tomcat/internal/server"
	"github.com/giantswarm/mcp-tomcat/internal/tomcat"
	"github.com/giantswarm/mcp-tomcat/internal/tools"
	"github.com/giantswarm/mcp-tomcat/internal/tools/output"
)

// checkTimeout bounds tomcat_check_connections as a whole.
const checkTimeout = 30 * time.Second

// ConnectResponse is returned by tomcat_connect.
type ConnectResponse struct {
	Index   int    `json:"index"`
	Alias   string `json:"alias,omitempty"`
	BaseURL string `json:"baseUrl"`
	Message string `json:"message"`
}

// SwitchResponse is returned by tomcat_switch_connection.
type SwitchResponse struct {
	// PreviousIndex is 0 when no connection was current.
	PreviousIndex int    `json:"previousIndex"`
	Current       string `json:"current"`
}

// ConnectionCheck is the check result of one connection.
type ConnectionCheck struct {
	Connection string `json:"connection"`
	Reachable  bool   `json:"reachable"`
	Error      string `json:"error,omitempty"`
}

// handleConnect handles tomcat_connect
func handleConnect(ctx context.Context, request mcp.CallToolRequest, sc *server.ServerContext) (*mcp.CallToolResult, error) {
	args := request.GetArguments()

	cfg, err := clientConfigFromArgs(args, sc.Config().ConnectionDefaults)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	alias := tools.StringArg(args, "alias")

	_, span := instrumentation.StartConnectionSpan(ctx, "connect", alias)
	defer span.End()

	index, err := sc.Registry().Connect(alias, cfg)
	if err != nil {
		instrumentation.SetSpanError(span, err)
		return tools.ErrorResult("connect", err), nil
	}
	instrumentation.AddSpanEvent(span, "registered", attribute.Int("tomcat.index", index))

	conn, err := sc.Registry().Current()
	if err != nil {
		return tools.ErrorResult("connect", err), nil
	}

	sc.Logger().Info("Connected to Tomcat Manager",
		logging.Alias(alias),
		logging.Host(cfg.Host),
		logging.UserHash(cfg.Username),
		"index", index,
	)
	sc.Logger().Debug("Tomcat Manager connection settings",
		logging.Alias(alias),
		"url", logging.SanitizeURL(conn.Client.BaseURL()),
		"password", logging.MaskPassword(cfg.Password),
		"timeout", cfg.Timeout,
	)

	return tools.JSONResult(sc, ConnectResponse{
		Index:   index,
		Alias:   alias,
		BaseURL: conn.Client.BaseURL(),
		Message: fmt.Sprintf("Connected to %s as user %s", conn.Client.BaseURL(), conn.Client.Config().Username),
	})
}

// clientConfigFromArgs layers the tool arguments over the server defaults.
func clientConfigFromArgs(args map[string]interface{}, defaults tomcat.ClientConfig) (tomcat.ClientConfig, error) {
	cfg := defaults

	host, err := tools.RequiredStringArg(args, "host")
	if err != nil {
		return cfg, err
	}
	cfg.Host = host

	port, ok, err := tools.IntArg(args, "port")
	if err != nil {
		return cfg, err
	}
	if ok {
		cfg.Port = port
	}

	if username := tools.StringArg(args, "username"); username != "" {
		cfg.Username = username
	}
	if password := tools.StringArg(args, "password"); password != "" {
		cfg.Password = password
	}
	if scheme := tools.StringArg(args, "scheme"); scheme != "" {
		cfg.Scheme = scheme
	}

	if v, present := args["timeout"]; present && v != nil {
		seconds, ok := v.(float64)
		if !ok || seconds <= 0 {
			return cfg, fmt.Errorf("timeout must be a positive number of seconds")
		}
		cfg.Timeout = time.Duration(seconds * float64(time.Second))
	}

	return cfg, nil
}

// handleSwitch handles tomcat_switch_connection
func handleSwitch(ctx context.Context, request mcp.CallToolRequest, sc *server.ServerContext) (*mcp.CallToolResult, error) {
	target, err := request.RequireString("indexOrAlias")
	if err != nil || target == "" {
		return mcp.NewToolResultError("indexOrAlias is required"), nil
	}

	_, span := instrumentation.StartConnectionSpan(ctx, "switch", "")
	defer span.End()
	span.SetAttributes(attribute.String("tomcat.target", target))

	previous, err := sc.Registry().Switch(target)
	if err != nil {
		instrumentation.SetSpanError(span, err)
		return tools.ErrorResult("switch connection", err), nil
	}

	sc.Logger().Debug("Switched Tomcat connection", "target", target, "previous_index", previous)

	return tools.JSONResult(sc, SwitchResponse{PreviousIndex: previous, Current: target})
}

// handleClose handles tomcat_close_connection
func handleClose(ctx context.Context, request mcp.CallToolRequest, sc *server.ServerContext) (*mcp.CallToolResult, error) {
	alias := tools.StringArg(request.GetArguments(), tools.ArgAlias)

	_, span := instrumentation.StartConnectionSpan(ctx, "close", alias)
	defer span.End()

	var err error
	if alias == "" {
		err = sc.Registry().CloseCurrent()
	} else {
		err = sc.Registry().Close(alias)
	}
	if err != nil {
		instrumentation.SetSpanError(span, err)
		return tools.ErrorResult("close connection", err), nil
	}

	if alias == "" {
		return mcp.NewToolResultText("Closed the current connection"), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("Closed connection %s", alias)), nil
}

// handleCloseAll handles tomcat_close_all_connections
func handleCloseAll(ctx context.Context, request mcp.CallToolRequest, sc *server.ServerContext) (*mcp.CallToolResult, error) {
	_, span := instrumentation.StartConnectionSpan(ctx, "close_all", "")
	defer span.End()

	n := sc.Registry().CloseAll()
	span.SetAttributes(attribute.Int("tomcat.closed", n))
	sc.Logger().Info("Closed all Tomcat connections", "count", n)
	return mcp.NewToolResultText(fmt.Sprintf("Closed %d connection(s)", n)), nil
}

// handleList handles tomcat_list_connections
func handleList(ctx context.Context, request mcp.CallToolRequest, sc *server.ServerContext) (*mcp.CallToolResult, error) {
	format, err := tools.OutputFormat(request.GetArguments(), sc)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	conns := sc.Registry().List()
	if format == output.FormatTable {
		if len(conns) == 0 {
			return mcp.NewToolResultText("No connections"), nil
		}
		return tools.TextResult(sc, output.ConnectionsTable(conns)), nil
	}

	return tools.JSONResult(sc, output.FormatResult("connections", conns, len(conns), nil))
}

// handleCheck handles tomcat_check_connections
func handleCheck(ctx context.Context, request mcp.CallToolRequest, sc *server.ServerContext) (*mcp.CallToolResult, error) {
	ctx, cancel := context.WithTimeout(ctx, checkTimeout)
	defer cancel()

	ctx, span := instrumentation.StartConnectionSpan(ctx, "check", "")
	defer span.End()

	results := sc.Registry().CheckAll(ctx)

	checks := make([]ConnectionCheck, 0, len(results))
	reachable := 0
	for name, checkErr := range results {
		check := ConnectionCheck{Connection: name, Reachable: checkErr == nil}
		if checkErr != nil {
			check.Error = checkErr.Error()
			instrumentation.AddSpanEvent(span, "unreachable",
				attribute.String("tomcat.connection", name),
				attribute.String("error", logging.SanitizeHost(checkErr.Error())))
		} else {
			reachable++
		}
		checks = append(checks, check)
	}
	sort.Slice(checks, func(i, j int) bool { return checks[i].Connection < checks[j].Connection })

	return tools.JSONResult(sc, map[string]interface{}{
		"total":       len(checks),
		"reachable":   reachable,
		"connections": checks,
	})
}

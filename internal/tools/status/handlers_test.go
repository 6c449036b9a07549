package status

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/giantswarm/mcp-tomcat/internal/server"
	"github.com/giantswarm/mcp-tomcat/internal/tomcat"
	"github.com/giantswarm/mcp-tomcat/internal/tomcat/tomcattest"
	"github.com/giantswarm/mcp-tomcat/internal/tools"
)

func setup(t *testing.T) (*server.ServerContext, *tomcattest.Server) {
	t.Helper()
	sc, err := server.NewServerContext(context.Background())
	require.NoError(t, err)
	t.Cleanup(func() { _ = sc.Shutdown() })

	fake := tomcattest.NewServer(t)
	_, err = sc.Registry().Connect("prod", fake.Config())
	require.NoError(t, err)
	return sc, fake
}

func call(t *testing.T, handler tools.ToolHandler, sc *server.ServerContext, args map[string]interface{}) (*mcp.CallToolResult, string) {
	t.Helper()
	request := mcp.CallToolRequest{}
	request.Params.Arguments = args
	result, err := handler(context.Background(), request, sc)
	require.NoError(t, err)
	require.NotEmpty(t, result.Content)
	text, ok := result.Content[0].(mcp.TextContent)
	require.True(t, ok)
	return result, text.Text
}

func TestRegisterStatusTools(t *testing.T) {
	sc, err := server.NewServerContext(context.Background())
	require.NoError(t, err)

	mcpSrv := mcpserver.NewMCPServer("test", "0.0.1", mcpserver.WithToolCapabilities(true))
	require.NoError(t, RegisterStatusTools(mcpSrv, sc))

	registered := mcpSrv.ListTools()
	for _, name := range []string{"tomcat_serverinfo", "tomcat_thread_pool_statistics", "tomcat_server_status"} {
		assert.Contains(t, registered, name)
	}
}

func TestHandleServerInfo(t *testing.T) {
	sc, fake := setup(t)

	result, text := call(t, handleServerInfo, sc, map[string]interface{}{})
	require.False(t, result.IsError, text)

	var info map[string]string
	require.NoError(t, json.Unmarshal([]byte(text), &info))
	assert.Equal(t, map[string]string{
		"Tomcat Version":  "Apache Tomcat/9.0.80",
		"OS Name":         "Linux",
		"OS Version":      "6.1.0",
		"OS Architecture": "amd64",
		"JVM Version":     "17.0.8+7",
		"JVM Vendor":      "Eclipse Adoptium",
	}, info)
	assert.Equal(t, "/manager/text/serverinfo", fake.LastRequest().URL.Path)
}

func TestHandleServerInfo_Table(t *testing.T) {
	sc, _ := setup(t)

	result, text := call(t, handleServerInfo, sc, map[string]interface{}{"output": "table"})
	require.False(t, result.IsError, text)
	assert.Contains(t, text, "Tomcat Version")
	assert.Contains(t, text, "Apache Tomcat/9.0.80")
}

func TestHandleServerInfo_NotTomcat(t *testing.T) {
	sc, fake := setup(t)
	fake.Reply("/manager/text/serverinfo", "<html><body>It works!</body></html>")

	result, text := call(t, handleServerInfo, sc, map[string]interface{}{})
	assert.True(t, result.IsError)
	assert.Contains(t, text, "unexpected response format")
}

func TestHandleThreadPoolStatistics(t *testing.T) {
	sc, fake := setup(t)

	result, text := call(t, handleThreadPoolStatistics, sc, map[string]interface{}{})
	require.False(t, result.IsError, text)

	var resp struct {
		ThreadPools []tomcat.ThreadPool `json:"threadPools"`
		Count       int                 `json:"count"`
	}
	require.NoError(t, json.Unmarshal([]byte(text), &resp))
	require.Equal(t, 2, resp.Count)
	assert.Equal(t, "http-nio-8080", resp.ThreadPools[0].Connector)
	assert.Equal(t, int64(7), resp.ThreadPools[0].CurrentThreadsIdle)
	assert.Equal(t, "true", fake.LastRequest().URL.Query().Get("XML"))
}

func TestHandleThreadPoolStatistics_ConnectorFilter(t *testing.T) {
	sc, _ := setup(t)

	result, text := call(t, handleThreadPoolStatistics, sc, map[string]interface{}{"connector": "ajp-nio-8009", "output": "table"})
	require.False(t, result.IsError, text)
	assert.Contains(t, text, "ajp-nio-8009")
	assert.NotContains(t, text, "http-nio-8080")

	result, text = call(t, handleThreadPoolStatistics, sc, map[string]interface{}{"connector": "https-nio-8443"})
	assert.True(t, result.IsError)
	assert.Contains(t, text, `connector "https-nio-8443" not found`)
}

func TestFilterConnector(t *testing.T) {
	pools := []tomcat.ThreadPool{{Connector: "a"}, {Connector: "b"}}
	assert.Equal(t, []tomcat.ThreadPool{{Connector: "b"}}, filterConnector(pools, "b"))
	assert.Empty(t, filterConnector(pools, "c"))
}

func TestHandleServerStatus(t *testing.T) {
	sc, _ := setup(t)

	result, text := call(t, handleServerStatus, sc, map[string]interface{}{})
	require.False(t, result.IsError, text)

	var status tomcat.ServerStatus
	require.NoError(t, json.Unmarshal([]byte(text), &status))
	assert.Equal(t, int64(300), status.JVM.Memory.Used)
	assert.Len(t, status.Connectors, 2)

	result, text = call(t, handleServerStatus, sc, map[string]interface{}{"output": "table"})
	require.False(t, result.IsError, text)
	assert.Contains(t, text, "USED (MiB)")
	assert.Contains(t, text, "http-nio-8080")
}

func TestHandleServerStatus_RoutesByAliasOrIndex(t *testing.T) {
	sc, prod := setup(t)
	stage := tomcattest.NewServer(t)
	_, err := sc.Registry().Connect("stage", stage.Config())
	require.NoError(t, err)

	for _, target := range []string{"prod", "1"} {
		before := prod.RequestCount()
		result, text := call(t, handleServerStatus, sc, map[string]interface{}{"alias": target})
		require.False(t, result.IsError, text)
		assert.Greater(t, prod.RequestCount(), before, "alias %q should reach prod", target)
	}
	assert.Zero(t, stage.RequestCount(), "the current connection is not used when an alias is given")
}

func TestHandleServerStatus_UnknownAlias(t *testing.T) {
	sc, _ := setup(t)

	result, text := call(t, handleServerStatus, sc, map[string]interface{}{"alias": "qa"})
	assert.True(t, result.IsError)
	assert.Contains(t, text, "connection not found")
}

package application

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/giantswarm/mcp-tomcat/internal/server"
	"github.com/giantswarm/mcp-tomcat/internal/tomcat"
	"github.com/giantswarm/mcp-tomcat/internal/tomcat/tomcattest"
	"github.com/giantswarm/mcp-tomcat/internal/tools"
	"github.com/giantswarm/mcp-tomcat/internal/tools/output"
)

// setup returns a server context with the fake registered as "prod".
func setup(t *testing.T, opts ...server.Option) (*server.ServerContext, *tomcattest.Server) {
	t.Helper()
	sc, err := server.NewServerContext(context.Background(), opts...)
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
	require.NotNil(t, result)
	require.NotEmpty(t, result.Content)
	text, ok := result.Content[0].(mcp.TextContent)
	require.True(t, ok)
	return result, text.Text
}

func lifecycle(t *testing.T, tool string) tools.ToolHandler {
	t.Helper()
	for _, cmd := range lifecycleCommands {
		if cmd.tool == tool {
			return cmd.handler()
		}
	}
	t.Fatalf("no lifecycle command %s", tool)
	return nil
}

func TestHandleListApplications(t *testing.T) {
	sc, _ := setup(t)

	result, text := call(t, handleListApplications, sc, map[string]interface{}{})
	require.False(t, result.IsError, text)

	var resp struct {
		Applications []tomcat.Application `json:"applications"`
		Count        int                  `json:"count"`
		Total        int                  `json:"total"`
	}
	require.NoError(t, json.Unmarshal([]byte(text), &resp))
	assert.Equal(t, 4, resp.Count)
	assert.Equal(t, 4, resp.Total)
	assert.Contains(t, resp.Applications, tomcat.Application{Path: "/shop", Status: tomcat.StatusRunning, Sessions: 12, Name: "shop"})
}

func TestHandleListApplications_Limit(t *testing.T) {
	sc, _ := setup(t)

	result, text := call(t, handleListApplications, sc, map[string]interface{}{"limit": 2.0})
	require.False(t, result.IsError, text)
	assert.Contains(t, text, `"_truncated": true`)
	assert.Contains(t, text, "Showing 2 of 4 items")
	assert.Contains(t, text, `"count": 2`)
}

func TestHandleListApplications_Table(t *testing.T) {
	sc, _ := setup(t)

	result, text := call(t, handleListApplications, sc, map[string]interface{}{"output": "table"})
	require.False(t, result.IsError, text)
	assert.Contains(t, text, "PATH")
	assert.Contains(t, text, "/docs")
	assert.Contains(t, text, "stopped")
}

func TestHandleListApplications_UnknownAlias(t *testing.T) {
	sc, _ := setup(t)

	result, text := call(t, handleListApplications, sc, map[string]interface{}{"alias": "stage"})
	assert.True(t, result.IsError)
	assert.Contains(t, text, "connection not found")
}

func TestHandleListApplications_MalformedReply(t *testing.T) {
	sc, fake := setup(t)
	fake.Reply("/manager/text/list", "")

	result, text := call(t, handleListApplications, sc, map[string]interface{}{})
	assert.True(t, result.IsError)
	assert.Contains(t, text, "unexpected response format")
}

func TestHandleListApplications_Unauthorized(t *testing.T) {
	sc, fake := setup(t)
	cfg := fake.Config()
	cfg.Password = "wrong"
	_, err := sc.Registry().Connect("bad-creds", cfg)
	require.NoError(t, err)

	result, text := call(t, handleListApplications, sc, map[string]interface{}{"alias": "bad-creds"})
	assert.True(t, result.IsError)
	assert.Contains(t, text, "manager request failed")
	assert.Contains(t, text, "401")
}

func TestHandleApplicationStatus(t *testing.T) {
	sc, _ := setup(t)

	result, text := call(t, handleApplicationStatus, sc, map[string]interface{}{"path": "/docs"})
	require.False(t, result.IsError, text)
	assert.JSONEq(t, `{"path":"/docs","status":"stopped"}`, text)

	result, text = call(t, handleApplicationStatus, sc, map[string]interface{}{"path": "/missing"})
	assert.True(t, result.IsError)
	assert.Contains(t, text, "application not found")

	result, text = call(t, handleApplicationStatus, sc, map[string]interface{}{})
	assert.True(t, result.IsError)
	assert.Equal(t, "path is required", text)
}

func TestHandleSessionStatistics(t *testing.T) {
	sc, fake := setup(t)

	result, text := call(t, handleSessionStatistics, sc, map[string]interface{}{"path": "/shop"})
	require.False(t, result.IsError, text)

	var stats tomcat.SessionStats
	require.NoError(t, json.Unmarshal([]byte(text), &stats))
	assert.Equal(t, "/shop", stats.Path)
	assert.Equal(t, 30, stats.DefaultMaxInactiveMinutes)
	assert.Equal(t, 5, stats.TotalSessions)
	assert.Equal(t, "/shop", fake.LastRequest().URL.Query().Get("path"))

	result, text = call(t, handleSessionStatistics, sc, map[string]interface{}{"path": "/shop", "output": output.FormatTable})
	require.False(t, result.IsError, text)
	assert.Contains(t, text, "IDLE (minutes)")
}

func TestLifecycleCommands(t *testing.T) {
	tests := []struct {
		tool     string
		endpoint string
	}{
		{tool: "tomcat_start", endpoint: "/manager/text/start"},
		{tool: "tomcat_stop", endpoint: "/manager/text/stop"},
		{tool: "tomcat_reload", endpoint: "/manager/text/reload"},
	}

	for _, tt := range tests {
		t.Run(tt.tool, func(t *testing.T) {
			sc, fake := setup(t)

			result, text := call(t, lifecycle(t, tt.tool), sc, map[string]interface{}{"path": "/shop"})
			require.False(t, result.IsError, text)

			req := fake.LastRequest()
			require.NotNil(t, req)
			assert.Equal(t, tt.endpoint, req.URL.Path)
			assert.Equal(t, "/shop", req.URL.Query().Get("path"))
		})
	}
}

func TestLifecycleCommands_FailReply(t *testing.T) {
	sc, fake := setup(t)
	fake.Reply("/manager/text/stop", "FAIL - No context exists named [/nope]\n")

	result, text := call(t, lifecycle(t, "tomcat_stop"), sc, map[string]interface{}{"path": "/nope"})
	assert.True(t, result.IsError)
	assert.Contains(t, text, "manager request failed")
	assert.Contains(t, text, "No context exists")
}

func TestLifecycleCommands_NonDestructiveMode(t *testing.T) {
	sc, fake := setup(t, server.WithNonDestructiveMode(true))

	result, text := call(t, lifecycle(t, "tomcat_reload"), sc, map[string]interface{}{"path": "/shop"})
	assert.True(t, result.IsError)
	assert.Contains(t, text, "non-destructive mode")
	assert.Equal(t, 0, fake.RequestCount())
}

func TestLifecycleCommands_DryRun(t *testing.T) {
	sc, fake := setup(t, server.WithNonDestructiveMode(true), server.WithDryRun(true))

	result, text := call(t, lifecycle(t, "tomcat_stop"), sc, map[string]interface{}{"path": "/shop"})
	require.False(t, result.IsError, text)
	assert.Contains(t, text, "[dry-run] would stop application at context path [/shop]")
	assert.Contains(t, text, fake.URL+"/manager")
	assert.Equal(t, 0, fake.RequestCount())
}

func TestHandleDeploy_ServerSideWAR(t *testing.T) {
	sc, fake := setup(t)

	result, text := call(t, handleDeploy, sc, map[string]interface{}{
		"path":   "/shop",
		"war":    "file:/opt/wars/shop.war",
		"update": true,
		"tag":    "v2",
	})
	require.False(t, result.IsError, text)

	req := fake.LastRequest()
	require.NotNil(t, req)
	assert.Equal(t, http.MethodGet, req.Method)
	q := req.URL.Query()
	assert.Equal(t, "/shop", q.Get("path"))
	assert.Equal(t, "file:/opt/wars/shop.war", q.Get("war"))
	assert.Equal(t, "true", q.Get("update"))
	assert.Equal(t, "v2", q.Get("tag"))
}

func TestHandleDeploy_UploadsLocalWAR(t *testing.T) {
	warDir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(warDir, "release"), 0o700))
	require.NoError(t, os.WriteFile(filepath.Join(warDir, "release", "shop.war"), []byte("PK\x03\x04war"), 0o600))
	sc, fake := setup(t, server.WithWarDir(warDir))

	var uploaded []byte
	fake.Handle("/manager/text/deploy", func(w http.ResponseWriter, r *http.Request) {
		uploaded, _ = io.ReadAll(r.Body)
		_, _ = w.Write([]byte("OK - Deployed application at context path [/shop]\n"))
	})

	result, text := call(t, handleDeploy, sc, map[string]interface{}{"path": "/shop", "warFile": "release/shop.war"})
	require.False(t, result.IsError, text)
	assert.Equal(t, http.MethodPut, fake.LastRequest().Method)
	assert.Equal(t, []byte("PK\x03\x04war"), uploaded)
}

func TestHandleDeploy_ConfinesLocalWAR(t *testing.T) {
	warDir := t.TempDir()
	outside := t.TempDir()
	secret := filepath.Join(outside, "id_rsa")
	require.NoError(t, os.WriteFile(secret, []byte("private"), 0o600))
	require.NoError(t, os.Mkdir(filepath.Join(warDir, "sub"), 0o700))
	linked := filepath.Join(warDir, "linked.war")
	require.NoError(t, os.Symlink(secret, linked))

	tests := []struct {
		name    string
		opts    []server.Option
		warFile string
		want    string
	}{
		{name: "uploads disabled", warFile: "shop.war", want: "local WAR uploads are disabled"},
		{name: "parent traversal", opts: []server.Option{server.WithWarDir(warDir)}, warFile: "../" + filepath.Base(outside) + "/id_rsa", want: "outside the WAR directory"},
		{name: "absolute path outside", opts: []server.Option{server.WithWarDir(warDir)}, warFile: secret, want: "outside the WAR directory"},
		{name: "symlink leaving the directory", opts: []server.Option{server.WithWarDir(warDir)}, warFile: "linked.war", want: "outside the WAR directory"},
		{name: "the directory itself", opts: []server.Option{server.WithWarDir(warDir)}, warFile: ".", want: "outside the WAR directory"},
		{name: "not a file", opts: []server.Option{server.WithWarDir(warDir)}, warFile: "sub", want: "not a regular file"},
		{name: "missing file", opts: []server.Option{server.WithWarDir(warDir)}, warFile: "none.war", want: "none.war"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sc, fake := setup(t, tt.opts...)

			result, text := call(t, handleDeploy, sc, map[string]interface{}{"path": "/shop", "warFile": tt.warFile})
			assert.True(t, result.IsError)
			assert.Contains(t, text, tt.want)
			assert.Equal(t, 0, fake.RequestCount())
		})
	}
}

func TestHandleDeploy_InvalidArguments(t *testing.T) {
	sc, fake := setup(t)

	tests := []struct {
		name string
		args map[string]interface{}
		want string
	}{
		{name: "missing path", args: map[string]interface{}{"war": "file:/a.war"}, want: "path is required"},
		{name: "no source", args: map[string]interface{}{"path": "/shop"}, want: "one of war, warFile, config or tag is required"},
		{name: "both sources", args: map[string]interface{}{"path": "/shop", "war": "file:/a.war", "warFile": "/tmp/a.war"}, want: "mutually exclusive"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, text := call(t, handleDeploy, sc, tt.args)
			assert.True(t, result.IsError)
			assert.Contains(t, text, tt.want)
		})
	}
	assert.Equal(t, 0, fake.RequestCount())
}

func TestHandleDeploy_DryRun(t *testing.T) {
	sc, fake := setup(t, server.WithDryRun(true))

	result, text := call(t, handleDeploy, sc, map[string]interface{}{
		"path":   "/shop",
		"war":    "file:/opt/wars/shop.war",
		"update": true,
	})
	require.False(t, result.IsError, text)
	assert.Contains(t, text, "[dry-run] would deploy application at context path [/shop]")
	assert.Contains(t, text, "war: file:/opt/wars/shop.war")
	assert.Contains(t, text, "update: true")
	assert.Equal(t, 0, fake.RequestCount())
}

func TestHandleUndeploy(t *testing.T) {
	sc, fake := setup(t)

	result, text := call(t, handleUndeploy, sc, map[string]interface{}{"path": "/shop"})
	require.False(t, result.IsError, text)
	assert.Equal(t, "/manager/text/undeploy", fake.LastRequest().URL.Path)

	fake.Handle("/manager/text/undeploy", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("OK - Undeployed application at context path [/shop##2]\n"))
	})
	result, text = call(t, handleUndeploy, sc, map[string]interface{}{"path": "/shop", "version": "2"})
	require.False(t, result.IsError, text)
	assert.Equal(t, "2", fake.LastRequest().URL.Query().Get("version"))
}

func TestHandleUndeploy_AllowedOperation(t *testing.T) {
	sc, fake := setup(t,
		server.WithNonDestructiveMode(true),
		server.WithAllowedOperations([]string{tomcat.OperationUndeploy}),
	)

	result, text := call(t, handleUndeploy, sc, map[string]interface{}{"path": "/shop"})
	require.False(t, result.IsError, text)
	assert.Equal(t, 1, fake.RequestCount())

	result, _ = call(t, handleDeploy, sc, map[string]interface{}{"path": "/shop", "war": "file:/a.war"})
	assert.True(t, result.IsError)
	assert.Equal(t, 1, fake.RequestCount())
}

func TestHandlers_NoConnection(t *testing.T) {
	sc, err := server.NewServerContext(context.Background())
	require.NoError(t, err)

	result, text := call(t, handleListApplications, sc, map[string]interface{}{})
	assert.True(t, result.IsError)
	assert.Contains(t, text, "connection not found")
}

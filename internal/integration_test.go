package internal_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/mark3labs/mcp-go/server"
	"github.com/mcpagent/mcpagent/client"
	"github.com/mcpagent/mcpagent/internal/api"
	"github.com/mcpagent/mcpagent/internal/sandbox"
	"github.com/mcpagent/mcpagent/internal/service/dispatch"
	mcpService "github.com/mcpagent/mcpagent/internal/service/mcp"
	"github.com/mcpagent/mcpagent/internal/telemetry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestTransportsShareCatalog writes a file through the HTTP API and reads it back through MCP.
func TestTransportsShareCatalog(t *testing.T) {
	root, err := filepath.EvalSymlinks(t.TempDir())
	require.NoError(t, err)
	sb, err := sandbox.New([]string{root}, root)
	require.NoError(t, err)

	metrics := telemetry.NewNoopCustomMetrics()
	d, err := dispatch.NewDispatcher(&dispatch.Config{Sandbox: sb, Metrics: metrics})
	require.NoError(t, err)

	mcpServer := server.NewMCPServer("mcpagent", "test", server.WithToolCapabilities(true))
	_, err = mcpService.NewMCPService(&mcpService.ServiceConfig{McpServer: mcpServer, Dispatcher: d})
	require.NoError(t, err)

	s, err := api.NewServer(&api.ServerOptions{Dispatcher: d, Sandbox: sb, McpServer: mcpServer, Metrics: metrics})
	require.NoError(t, err)
	ts := httptest.NewServer(s.Handler())
	defer ts.Close()

	c := client.NewClient(ts.URL, "", &http.Client{})

	tools, err := c.ListTools()
	require.NoError(t, err)
	assert.Len(t, tools, len(d.Tools()))

	// write over HTTP
	target := filepath.Join(root, "shared.txt")
	res, err := c.Execute("filesystem_write_file", map[string]any{"path": target, "content": "from http"})
	require.NoError(t, err)
	require.True(t, res.Success, res.Error)

	// read over MCP
	ctx := context.Background()
	initMsg := `{"jsonrpc":"2.0","id":1,"method":"initialize","params":{"protocolVersion":"2025-03-26","capabilities":{},"clientInfo":{"name":"test","version":"0.1"}}}`
	mcpServer.HandleMessage(ctx, json.RawMessage(initMsg))

	callMsg, err := json.Marshal(map[string]any{
		"jsonrpc": "2.0",
		"id":      2,
		"method":  "tools/call",
		"params": map[string]any{
			"name":      "filesystem_read_file",
			"arguments": map[string]any{"path": target},
		},
	})
	require.NoError(t, err)

	raw, err := json.Marshal(mcpServer.HandleMessage(ctx, callMsg))
	require.NoError(t, err)

	var resp struct {
		Result struct {
			Content []struct {
				Type string `json:"type"`
				Text string `json:"text"`
			} `json:"content"`
			IsError bool `json:"isError"`
		} `json:"result"`
	}
	require.NoError(t, json.Unmarshal(raw, &resp))
	require.Len(t, resp.Result.Content, 1, string(raw))
	assert.False(t, resp.Result.IsError)

	var result map[string]any
	require.NoError(t, json.Unmarshal([]byte(resp.Result.Content[0].Text), &result))
	assert.Equal(t, true, result["success"])
	assert.Equal(t, "from http", result["content"])

	// denials look the same on both transports
	res, err = c.Execute("filesystem_read_file", map[string]any{"path": "/etc/passwd"})
	require.NoError(t, err)
	assert.False(t, res.Success)
	assert.Equal(t, "Path not allowed: /etc/passwd", res.Error)
}

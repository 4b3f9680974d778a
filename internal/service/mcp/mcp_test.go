package mcp

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/mcpagent/mcpagent/internal/model"
	"github.com/mcpagent/mcpagent/internal/sandbox"
	"github.com/mcpagent/mcpagent/internal/service/dispatch"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestService(t *testing.T) (*MCPService, *server.MCPServer, afero.Fs) {
	t.Helper()
	sb, err := sandbox.New([]string{"/tmp"}, "/tmp")
	require.NoError(t, err)
	fs := afero.NewMemMapFs()
	d, err := dispatch.NewDispatcher(&dispatch.Config{Sandbox: sb, Fs: fs})
	require.NoError(t, err)

	srv := server.NewMCPServer("mcpagent-test", "0.0.1", server.WithToolCapabilities(true))
	m, err := NewMCPService(&ServiceConfig{McpServer: srv, Dispatcher: d})
	require.NoError(t, err)
	return m, srv, fs
}

func TestNewMCPService(t *testing.T) {
	sb, err := sandbox.New([]string{"/tmp"}, "/tmp")
	require.NoError(t, err)
	d, err := dispatch.NewDispatcher(&dispatch.Config{Sandbox: sb})
	require.NoError(t, err)

	tests := []struct {
		name    string
		conf    *ServiceConfig
		wantErr bool
	}{
		{"missing server", &ServiceConfig{Dispatcher: d}, true},
		{"missing dispatcher", &ServiceConfig{McpServer: server.NewMCPServer("x", "0")}, true},
		{"valid", &ServiceConfig{McpServer: server.NewMCPServer("x", "0"), Dispatcher: d}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, err := NewMCPService(tt.conf)
			if tt.wantErr {
				assert.Error(t, err)
				assert.Nil(t, m)
				return
			}
			require.NoError(t, err)
			assert.NotNil(t, m)
		})
	}
}

func TestRegisteredTools(t *testing.T) {
	_, srv, _ := newTestService(t)

	tools := srv.ListTools()
	assert.Len(t, tools, 14)

	del, ok := tools["filesystem_delete"]
	require.True(t, ok)
	require.NotNil(t, del.Tool.Annotations.DestructiveHint)
	assert.True(t, *del.Tool.Annotations.DestructiveHint)
	assert.Equal(t, []string{"path"}, del.Tool.InputSchema.Required)

	read := tools["filesystem_read_file"]
	assert.False(t, *read.Tool.Annotations.DestructiveHint)
	assert.Contains(t, read.Tool.InputSchema.Properties, "encoding")
}

func callTool(t *testing.T, m *MCPService, name string, args map[string]any) (*mcp.CallToolResult, map[string]any) {
	t.Helper()
	req := mcp.CallToolRequest{}
	req.Params.Name = name
	req.Params.Arguments = args

	res, err := m.ToolCallHandler(context.Background(), req)
	require.NoError(t, err)
	require.Len(t, res.Content, 1)
	text, ok := res.Content[0].(mcp.TextContent)
	require.True(t, ok, "content has type %T", res.Content[0])

	var body map[string]any
	require.NoError(t, json.Unmarshal([]byte(text.Text), &body))
	return res, body
}

func TestToolCallHandler(t *testing.T) {
	m, _, fs := newTestService(t)
	require.NoError(t, afero.WriteFile(fs, "/tmp/hello.txt", []byte("hello"), 0o644))

	res, body := callTool(t, m, "filesystem_read_file", map[string]any{"path": "/tmp/hello.txt"})
	assert.False(t, res.IsError)
	assert.Equal(t, true, body["success"])
	assert.Equal(t, "hello", body["content"])

	res, body = callTool(t, m, "filesystem_read_file", map[string]any{"path": "/etc/passwd"})
	assert.True(t, res.IsError)
	assert.Equal(t, map[string]any{"success": false, "error": "Path not allowed: /etc/passwd"}, body)

	res, body = callTool(t, m, "no_such_tool", nil)
	assert.True(t, res.IsError)
	assert.Equal(t, "Unknown tool: no_such_tool", body["error"])
}

func TestConvertDescriptorToMcpTool(t *testing.T) {
	tool := convertDescriptorToMcpTool(model.ToolDescriptor{
		Name:        "x",
		Description: "does x",
		Params: []model.Param{
			{Name: "a", ParamSpec: model.ParamSpec{Type: "string", Required: true}},
			{Name: "b", ParamSpec: model.ParamSpec{Type: "number", Default: 3}},
		},
		Dangerous: true,
	})
	assert.Equal(t, "x", tool.Name)
	assert.Equal(t, "does x", tool.Description)
	assert.Equal(t, "object", tool.InputSchema.Type)
	assert.Equal(t, []string{"a"}, tool.InputSchema.Required)
	assert.Equal(t, map[string]any{"type": "number", "description": "", "default": 3}, tool.InputSchema.Properties["b"])
	assert.True(t, *tool.Annotations.DestructiveHint)
}

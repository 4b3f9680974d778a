package mcp

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"go.uber.org/zap"
)

// ToolCallHandler runs an MCP tool call through the dispatcher.
// The tool result is returned as JSON text content. Failed results set IsError,
// so tool failures never surface as protocol errors.
func (m *MCPService) ToolCallHandler(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	name := request.Params.Name
	m.logger.Debug("MCP tool call", zap.String("tool", name))

	res := m.dispatcher.Execute(ctx, name, request.GetArguments())

	body, err := json.Marshal(res)
	if err != nil {
		return nil, fmt.Errorf("failed to encode result of tool %s: %w", name, err)
	}
	out := mcp.NewToolResultText(string(body))
	out.IsError = !res.Success
	return out, nil
}

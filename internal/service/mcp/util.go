package mcp

import (
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mcpagent/mcpagent/internal/model"
)

// convertDescriptorToMcpTool converts a tool descriptor into an mcp.Tool.
// Dangerous tools carry the destructive hint.
func convertDescriptorToMcpTool(t model.ToolDescriptor) mcp.Tool {
	schema := t.InputSchema()
	return mcp.Tool{
		Name:        t.Name,
		Description: t.Description,
		InputSchema: mcp.ToolInputSchema{
			Type:       schema.Type,
			Properties: schema.Properties,
			Required:   schema.Required,
		},
		Annotations: mcp.ToolAnnotation{
			Title:           t.Name,
			DestructiveHint: mcp.ToBoolPtr(t.Dangerous),
			OpenWorldHint:   mcp.ToBoolPtr(false),
		},
	}
}

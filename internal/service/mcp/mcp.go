// Package mcp exposes the agent's tool catalog over the Model Context Protocol.
package mcp

import (
	"errors"
	"fmt"

	"github.com/mark3labs/mcp-go/server"
	"github.com/mcpagent/mcpagent/internal/service/dispatch"
	"go.uber.org/zap"
)

// ServiceConfig holds the configuration parameters for initializing the MCPService.
type ServiceConfig struct {
	// McpServer is the mcp-go server the catalog is registered on.
	McpServer  *server.MCPServer
	Dispatcher *dispatch.Dispatcher

	Logger *zap.Logger
}

// MCPService bridges MCP tool calls to the dispatcher.
type MCPService struct {
	mcpServer  *server.MCPServer
	dispatcher *dispatch.Dispatcher
	logger     *zap.Logger
}

// NewMCPService creates the service and registers every tool of the dispatcher's catalog
// on the MCP server.
func NewMCPService(c *ServiceConfig) (*MCPService, error) {
	if c.McpServer == nil {
		return nil, errors.New("mcp server is required")
	}
	if c.Dispatcher == nil {
		return nil, errors.New("dispatcher is required")
	}
	m := &MCPService{
		mcpServer:  c.McpServer,
		dispatcher: c.Dispatcher,
		logger:     c.Logger,
	}
	if m.logger == nil {
		m.logger = zap.NewNop()
	}
	if err := m.registerTools(); err != nil {
		return nil, fmt.Errorf("failed to register tools on MCP server: %w", err)
	}
	return m, nil
}

func (m *MCPService) registerTools() error {
	tools := m.dispatcher.Tools()
	serverTools := make([]server.ServerTool, 0, len(tools))
	for _, t := range tools {
		serverTools = append(serverTools, server.ServerTool{
			Tool:    convertDescriptorToMcpTool(t),
			Handler: m.ToolCallHandler,
		})
	}
	m.mcpServer.AddTools(serverTools...)
	m.logger.Debug("registered tools on MCP server", zap.Int("count", len(serverTools)))
	return nil
}

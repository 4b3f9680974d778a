package api

import (
	"net/http"
	"runtime"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/mcpagent/mcpagent/internal/model"
	"github.com/mcpagent/mcpagent/pkg/types"
	"github.com/mcpagent/mcpagent/pkg/version"
	"go.uber.org/zap"
)

const serverDescription = "Remote agent exposing filesystem, shell and system tools"

func (s *Server) healthHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, &types.HealthResponse{
			Status:   "healthy",
			Version:  version.GetVersion(),
			Platform: runtime.GOOS,
			Arch:     runtime.GOARCH,
			Tools:    len(s.dispatcher.Tools()),
		})
	}
}

func (s *Server) listToolsHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, &types.ListToolsResponse{Tools: model.ToolsToAPI(s.dispatcher.Tools())})
	}
}

func (s *Server) executeHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var req types.ExecuteRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, model.Failure("invalid request body: "+err.Error()))
			return
		}
		s.logger.Debug("executing tool over http", zap.String("tool", req.Tool))

		result := s.dispatcher.Execute(c.Request.Context(), req.Tool, req.Params)
		c.JSON(http.StatusOK, result)
	}
}

func (s *Server) serverInfoHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, &types.ServerInfo{
			Name:        "mcpagent",
			Version:     version.GetVersion(),
			Description: serverDescription,
			Tools:       model.ToolsToAPI(s.dispatcher.Tools()),
		})
	}
}

// rootHandler upgrades WebSocket handshakes on / and describes the agent otherwise.
func (s *Server) rootHandler() gin.HandlerFunc {
	stream := s.streamHandler()
	info := s.serverInfoHandler()
	return func(c *gin.Context) {
		if websocket.IsWebSocketUpgrade(c.Request) {
			stream(c)
			return
		}
		info(c)
	}
}

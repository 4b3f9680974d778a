// Package api provides the HTTP, WebSocket and MCP transports of the mcpagent server.
package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/mark3labs/mcp-go/server"
	"github.com/mcpagent/mcpagent/internal/sandbox"
	"github.com/mcpagent/mcpagent/internal/service/dispatch"
	"github.com/mcpagent/mcpagent/internal/service/executor"
	"github.com/mcpagent/mcpagent/internal/telemetry"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.uber.org/zap"
)

const (
	V0PathPrefix = "/v0"

	shutdownTimeout   = 5 * time.Second
	readHeaderTimeout = 10 * time.Second
)

type ServerOptions struct {
	// Addr is the host:port the HTTP listener binds to
	Addr string

	Dispatcher *dispatch.Dispatcher
	Sandbox    *sandbox.Sandbox
	// Runner executes streaming commands started over the WebSocket channel
	Runner *executor.Runner

	// McpServer is the mcp-go server holding the tool catalog, served over streamable HTTP
	McpServer *server.MCPServer

	OtelProviders *telemetry.Providers
	Metrics       telemetry.CustomMetrics
	Logger        *zap.Logger
}

// Server is the mcpagent transport server.
// It serves the REST endpoints, the WebSocket streaming channel and the MCP endpoint on one router.
type Server struct {
	addr   string
	router *gin.Engine

	dispatcher *dispatch.Dispatcher
	sandbox    *sandbox.Sandbox
	runner     *executor.Runner
	mcpServer  *server.MCPServer

	otelProviders *telemetry.Providers
	metrics       telemetry.CustomMetrics
	logger        *zap.Logger

	upgrader websocket.Upgrader

	// conns tracks the live streaming connections so shutdown can close them
	mu     sync.Mutex
	conns  map[*streamConn]struct{}
	closed bool
}

// NewServer initializes a new Gin server for the agent
func NewServer(opts *ServerOptions) (*Server, error) {
	if opts.Dispatcher == nil {
		return nil, errors.New("dispatcher is required")
	}
	if opts.Sandbox == nil {
		return nil, errors.New("sandbox is required")
	}
	s := &Server{
		addr:          opts.Addr,
		dispatcher:    opts.Dispatcher,
		sandbox:       opts.Sandbox,
		runner:        opts.Runner,
		mcpServer:     opts.McpServer,
		otelProviders: opts.OtelProviders,
		metrics:       opts.Metrics,
		logger:        opts.Logger,
		conns:         make(map[*streamConn]struct{}),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			// the agent answers every origin, like its CORS policy
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}
	if s.runner == nil {
		s.runner = executor.NewRunner(nil)
	}
	if s.metrics == nil {
		s.metrics = telemetry.NewNoopCustomMetrics()
	}
	if s.logger == nil {
		s.logger = zap.NewNop()
	}

	r, err := s.setupRouter()
	if err != nil {
		return nil, err
	}
	s.router = r

	return s, nil
}

// Handler returns the HTTP handler serving every route of the agent.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start runs the server until ctx is done (blocking call).
// On shutdown it closes every streaming connection, which kills the processes they started,
// and then drains in-flight HTTP requests.
func (s *Server) Start(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.addr,
		Handler:           s.router,
		ReadHeaderTimeout: readHeaderTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("mcpagent server listening", zap.String("addr", s.addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err, ok := <-errCh:
		s.closeAllConns()
		if ok {
			return fmt.Errorf("failed to run the server: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	s.logger.Info("shutting down mcpagent server")
	s.closeAllConns()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("failed to shut down the server: %w", err)
	}
	return nil
}

// setupRouter sets up the Gin router with the agent endpoints, the streaming channel and the MCP server.
func (s *Server) setupRouter() (*gin.Engine, error) {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery(), s.requestLogger(), corsMiddleware())

	// if otel is enabled, setup prometheus metrics endpoint
	if s.otelProviders != nil && s.otelProviders.IsEnabled() {
		r.Use(otelgin.Middleware(s.otelProviders.ServiceName()))
		r.GET("/metrics", gin.WrapH(promhttp.Handler()))
	}

	r.GET("/health", s.healthHandler())
	r.GET("/tools", s.listToolsHandler())
	r.POST("/execute", s.executeHandler())
	r.GET("/mcp", s.serverInfoHandler())

	if s.mcpServer != nil {
		streamableHTTPServer := server.NewStreamableHTTPServer(s.mcpServer)
		r.Any(V0PathPrefix+"/mcp", gin.WrapH(streamableHTTPServer))
	}

	r.GET("/ws", s.streamHandler())
	r.GET("/", s.rootHandler())

	r.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Not found"})
	})

	return r, nil
}

func (s *Server) track(sc *streamConn) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return false
	}
	s.conns[sc] = struct{}{}
	return true
}

func (s *Server) untrack(sc *streamConn) {
	s.mu.Lock()
	delete(s.conns, sc)
	s.mu.Unlock()
}

func (s *Server) closeAllConns() {
	s.mu.Lock()
	s.closed = true
	conns := make([]*streamConn, 0, len(s.conns))
	for sc := range s.conns {
		conns = append(conns, sc)
	}
	s.mu.Unlock()

	for _, sc := range conns {
		sc.shutdown()
	}
}

package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/mcpagent/mcpagent/internal"
	"github.com/mcpagent/mcpagent/internal/model"
	"github.com/mcpagent/mcpagent/internal/service/dispatch"
	"github.com/mcpagent/mcpagent/internal/service/session"
	"github.com/mcpagent/mcpagent/pkg/types"
	"go.uber.org/zap"
)

const (
	// maxFrameBytes bounds a single inbound frame. write_file content travels inline.
	maxFrameBytes = 32 * 1024 * 1024

	writeTimeout = 10 * time.Second
)

var errMissingData = errors.New("missing message data")

// streamConn is one WebSocket client. It is the sink of the client's session.
type streamConn struct {
	conn    *websocket.Conn
	session *session.Session

	// mu serializes writes; gorilla connections support one concurrent writer
	mu        sync.Mutex
	closeOnce sync.Once

	// calls tracks in-flight execute requests
	calls sync.WaitGroup
}

var _ session.Sink = (*streamConn)(nil)

// Send writes msg as a single JSON text frame.
func (sc *streamConn) Send(msg types.StreamResponse) error {
	sc.mu.Lock()
	defer sc.mu.Unlock()

	if err := sc.conn.SetWriteDeadline(time.Now().Add(writeTimeout)); err != nil {
		return err
	}
	return sc.conn.WriteJSON(msg)
}

func (sc *streamConn) sendError(id, msg string) {
	_ = sc.Send(types.StreamResponse{ID: id, Error: msg})
}

// shutdown closes the socket and kills every command of the session.
func (sc *streamConn) shutdown() {
	sc.closeOnce.Do(func() {
		_ = sc.conn.Close()
	})
	if sc.session != nil {
		sc.session.Close()
	}
}

// streamHandler upgrades the request to a WebSocket and serves the streaming protocol
// until the client disconnects or the server shuts down.
func (s *Server) streamHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		conn, err := s.upgrader.Upgrade(c.Writer, c.Request, nil)
		if err != nil {
			// the upgrader has already replied with an HTTP error
			s.logger.Warn("websocket upgrade failed", zap.Error(err))
			return
		}

		id, err := internal.GenerateSessionID()
		if err != nil {
			s.logger.Error("failed to create streaming session", zap.Error(err))
			_ = conn.Close()
			return
		}
		logger := s.logger.With(zap.String("session", id))

		ctx, cancel := context.WithCancel(context.Background())
		sc := &streamConn{conn: conn}
		sc.session = session.New(ctx, &session.Config{
			ID:      id,
			Sink:    sc,
			Runner:  s.runner,
			Sandbox: s.sandbox,
			Logger:  s.logger,
			Metrics: s.metrics,
		})
		if !s.track(sc) {
			cancel()
			sc.shutdown()
			return
		}
		s.metrics.StreamSessionOpened(ctx)
		logger.Info("streaming client connected", zap.String("remote", c.Request.RemoteAddr))

		defer func() {
			cancel()
			sc.shutdown()
			sc.calls.Wait()
			s.untrack(sc)
			s.metrics.StreamSessionClosed(context.Background())
			logger.Info("streaming client disconnected")
		}()

		if err := sc.Send(types.StreamResponse{Tools: model.ToolsToAPI(s.dispatcher.Tools())}); err != nil {
			logger.Warn("failed to send tool catalog", zap.Error(err))
			return
		}

		conn.SetReadLimit(maxFrameBytes)
		for {
			_, frame, err := conn.ReadMessage()
			if err != nil {
				if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
					logger.Warn("websocket read error", zap.Error(err))
				}
				return
			}
			s.handleFrame(ctx, sc, frame, logger)
		}
	}
}

// handleFrame decodes one inbound frame and acts on it. A malformed frame is answered
// with an error message and otherwise ignored.
func (s *Server) handleFrame(ctx context.Context, sc *streamConn, frame []byte, logger *zap.Logger) {
	var req types.StreamRequest
	if err := json.Unmarshal(frame, &req); err != nil {
		sc.sendError("", "invalid message: "+err.Error())
		return
	}
	if err := internal.ValidateRequestID(req.ID); err != nil {
		sc.sendError("", err.Error())
		return
	}

	switch req.Type {
	case types.StreamMessageExecute:
		var msg types.ExecuteMessage
		if err := decodeData(req.Data, &msg); err != nil {
			sc.sendError(req.ID, "invalid execute message: "+err.Error())
			return
		}
		if msg.Tool == "" {
			sc.sendError(req.ID, "invalid execute message: missing tool name")
			return
		}
		logger.Debug("executing tool over websocket", zap.String("tool", msg.Tool))

		sc.calls.Add(1)
		go func() {
			defer sc.calls.Done()
			result := s.dispatcher.Execute(dispatch.WithCommandStarter(ctx, sc.session), msg.Tool, msg.Params)
			if err := sc.Send(types.StreamResponse{Result: result, Tool: msg.Tool, ID: req.ID}); err != nil {
				logger.Warn("failed to deliver tool result", zap.String("tool", msg.Tool), zap.Error(err))
			}
		}()

	case types.StreamMessageCommand:
		var cmd types.CommandRequest
		if err := decodeData(req.Data, &cmd); err != nil {
			sc.sendError(req.ID, "invalid command message: "+err.Error())
			return
		}
		if cmd.Command == "" {
			sc.sendError(req.ID, "invalid command message: missing command")
			return
		}
		if cmd.ID == "" {
			cmd.ID = req.ID
		}
		sc.session.StartCommand(cmd)

	default:
		sc.sendError(req.ID, fmt.Sprintf("unknown message type: %q", req.Type))
	}
}

func decodeData(raw json.RawMessage, v any) error {
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return errMissingData
	}
	return json.Unmarshal(raw, v)
}

package api

import (
	"encoding/json"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/mcpagent/mcpagent/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// streamMessage mirrors types.StreamResponse with the result kept as a generic object.
type streamMessage struct {
	Tools         []types.Tool         `json:"tools"`
	Result        map[string]any       `json:"result"`
	Tool          string               `json:"tool"`
	ID            string               `json:"id"`
	CommandOutput *types.CommandOutput `json:"command_output"`
	Error         string               `json:"error"`
}

func requirePosixShell(t *testing.T) {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("streaming tests use a POSIX shell")
	}
	if _, err := exec.LookPath("sh"); err != nil {
		t.Skip("sh not available")
	}
}

// dial connects to path and consumes the tool catalog pushed on connect.
func (e *testEnv) dial(t *testing.T, path string) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(e.http.URL, "http") + path
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })

	first := readMessage(t, conn)
	require.Len(t, first.Tools, 14)
	return conn
}

func readMessage(t *testing.T, conn *websocket.Conn) streamMessage {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(10*time.Second)))
	var msg streamMessage
	require.NoError(t, conn.ReadJSON(&msg))
	return msg
}

func send(t *testing.T, conn *websocket.Conn, msgType, id string, data any) {
	t.Helper()
	raw, err := json.Marshal(data)
	require.NoError(t, err)
	require.NoError(t, conn.WriteJSON(types.StreamRequest{Type: msgType, ID: id, Data: raw}))
}

// readCommand collects the command_output events of one command up to and including its terminal event.
func readCommand(t *testing.T, conn *websocket.Conn) []types.CommandOutput {
	t.Helper()
	var events []types.CommandOutput
	for {
		msg := readMessage(t, conn)
		require.NotNil(t, msg.CommandOutput, "unexpected message %+v", msg)
		events = append(events, *msg.CommandOutput)
		if msg.CommandOutput.IsTerminal() {
			return events
		}
	}
}

func TestStreamCatalogOnConnect(t *testing.T) {
	env := newTestEnv(t)

	for _, path := range []string{"/ws", "/"} {
		conn := env.dial(t, path)
		require.NoError(t, conn.Close())
	}
}

func TestStreamCommand(t *testing.T) {
	requirePosixShell(t)
	env := newTestEnv(t)
	conn := env.dial(t, "/ws")

	send(t, conn, types.StreamMessageCommand, "c1", types.CommandRequest{Command: "echo a && echo b"})
	events := readCommand(t, conn)

	var stdout strings.Builder
	for _, ev := range events[:len(events)-1] {
		assert.Equal(t, types.OutputStdout, ev.Type)
		assert.Equal(t, "c1", ev.ID)
		stdout.WriteString(ev.Data)
	}
	assert.Equal(t, "a\nb\n", stdout.String())

	last := events[len(events)-1]
	assert.Equal(t, types.OutputClose, last.Type)
	require.NotNil(t, last.ExitCode)
	assert.Equal(t, 0, *last.ExitCode)
}

func TestStreamCommandStderrAndExitCode(t *testing.T) {
	requirePosixShell(t)
	env := newTestEnv(t)
	conn := env.dial(t, "/ws")

	send(t, conn, types.StreamMessageCommand, "", types.CommandRequest{ID: "c2", Command: "echo oops >&2; exit 3"})
	events := readCommand(t, conn)
	require.Len(t, events, 2)

	assert.Equal(t, types.OutputStderr, events[0].Type)
	assert.Equal(t, "oops\n", events[0].Data)
	assert.Equal(t, "c2", events[0].ID)
	require.NotNil(t, events[1].ExitCode)
	assert.Equal(t, 3, *events[1].ExitCode)
}

func TestStreamCommandCwd(t *testing.T) {
	requirePosixShell(t)
	env := newTestEnv(t)
	conn := env.dial(t, "/ws")

	send(t, conn, types.StreamMessageCommand, "", types.CommandRequest{Command: "pwd"})
	events := readCommand(t, conn)
	require.Len(t, events, 2)
	assert.Equal(t, env.root+"\n", events[0].Data)

	send(t, conn, types.StreamMessageCommand, "denied", types.CommandRequest{Command: "pwd", Cwd: "/etc"})
	events = readCommand(t, conn)
	require.Len(t, events, 1)
	assert.Equal(t, types.OutputError, events[0].Type)
	assert.Equal(t, "denied", events[0].ID)
	assert.Contains(t, events[0].Message, "Path not allowed")
}

func TestStreamExecute(t *testing.T) {
	env := newTestEnv(t)
	conn := env.dial(t, "/ws")

	send(t, conn, types.StreamMessageExecute, "1", types.ExecuteMessage{Tool: "system_get_info"})
	msg := readMessage(t, conn)
	assert.Equal(t, "system_get_info", msg.Tool)
	assert.Equal(t, "1", msg.ID)
	require.NotNil(t, msg.Result)
	assert.Equal(t, true, msg.Result["success"])
	assert.Equal(t, runtime.GOOS, msg.Result["platform"])

	send(t, conn, types.StreamMessageExecute, "2", types.ExecuteMessage{
		Tool:   "filesystem_list_directory",
		Params: map[string]any{"path": "/etc"},
	})
	msg = readMessage(t, conn)
	assert.Equal(t, "2", msg.ID)
	assert.Equal(t, false, msg.Result["success"])
	assert.Equal(t, "Path not allowed: /etc", msg.Result["error"])
}

func TestStreamExecuteInteractive(t *testing.T) {
	requirePosixShell(t)
	env := newTestEnv(t)
	conn := env.dial(t, "/ws")

	send(t, conn, types.StreamMessageExecute, "x", types.ExecuteMessage{
		Tool:   "shell_execute_interactive",
		Params: map[string]any{"command": "echo hi", "id": "run-1"},
	})

	// the tool result and the command events race; collect until both have arrived
	var result map[string]any
	var stdout strings.Builder
	closed := false
	for result == nil || !closed {
		msg := readMessage(t, conn)
		switch {
		case msg.Result != nil:
			result = msg.Result
		case msg.CommandOutput != nil:
			assert.Equal(t, "run-1", msg.CommandOutput.ID)
			if msg.CommandOutput.Type == types.OutputStdout {
				stdout.WriteString(msg.CommandOutput.Data)
			}
			if msg.CommandOutput.IsTerminal() {
				assert.Equal(t, types.OutputClose, msg.CommandOutput.Type)
				closed = true
			}
		default:
			t.Fatalf("unexpected message %+v", msg)
		}
	}

	assert.Equal(t, true, result["success"])
	assert.Equal(t, true, result["started"])
	assert.Equal(t, "echo hi", result["command"])
	assert.Equal(t, env.root, result["cwd"])
	assert.Equal(t, "hi\n", stdout.String())
}

func TestStreamMalformedFrames(t *testing.T) {
	env := newTestEnv(t)
	conn := env.dial(t, "/ws")

	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte("not json")))
	msg := readMessage(t, conn)
	assert.Contains(t, msg.Error, "invalid message")

	send(t, conn, "launch", "9", map[string]any{})
	msg = readMessage(t, conn)
	assert.Equal(t, "9", msg.ID)
	assert.Contains(t, msg.Error, "unknown message type")

	require.NoError(t, conn.WriteJSON(map[string]any{"type": types.StreamMessageExecute}))
	msg = readMessage(t, conn)
	assert.Contains(t, msg.Error, "missing message data")

	send(t, conn, types.StreamMessageExecute, "", map[string]any{"params": map[string]any{}})
	msg = readMessage(t, conn)
	assert.Contains(t, msg.Error, "missing tool name")

	send(t, conn, types.StreamMessageCommand, "", map[string]any{"cwd": env.root})
	msg = readMessage(t, conn)
	assert.Contains(t, msg.Error, "missing command")

	send(t, conn, types.StreamMessageExecute, "has space", types.ExecuteMessage{Tool: "system_get_info"})
	msg = readMessage(t, conn)
	assert.Contains(t, msg.Error, "whitespace")

	// the connection is still usable
	send(t, conn, types.StreamMessageExecute, "ok", types.ExecuteMessage{Tool: "system_get_info"})
	msg = readMessage(t, conn)
	assert.Equal(t, "ok", msg.ID)
	assert.Equal(t, true, msg.Result["success"])
}

func TestStreamDisconnectKillsCommands(t *testing.T) {
	requirePosixShell(t)
	env := newTestEnv(t)
	conn := env.dial(t, "/ws")

	marker := filepath.Join(env.root, "survived")
	send(t, conn, types.StreamMessageCommand, "", types.CommandRequest{
		Command: "echo started; sleep 2; touch " + marker,
	})
	msg := readMessage(t, conn)
	require.NotNil(t, msg.CommandOutput)
	assert.Equal(t, "started\n", msg.CommandOutput.Data)

	require.NoError(t, conn.Close())
	require.Eventually(t, func() bool {
		env.server.mu.Lock()
		defer env.server.mu.Unlock()
		return len(env.server.conns) == 0
	}, 5*time.Second, 20*time.Millisecond)

	time.Sleep(2500 * time.Millisecond)
	assert.NoFileExists(t, marker)
}

func TestServerShutdownClosesConnections(t *testing.T) {
	requirePosixShell(t)
	env := newTestEnv(t)
	conn := env.dial(t, "/ws")

	send(t, conn, types.StreamMessageCommand, "", types.CommandRequest{Command: "echo started; sleep 30"})
	msg := readMessage(t, conn)
	require.NotNil(t, msg.CommandOutput)

	done := make(chan struct{})
	go func() {
		env.server.closeAllConns()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("closing connections did not kill the running command")
	}

	// the client sees a dead connection rather than more output
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			break
		}
	}

	// new connections are refused once the server is shutting down
	url := "ws" + strings.TrimPrefix(env.http.URL, "http") + "/ws"
	late, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer late.Close()
	require.NoError(t, late.SetReadDeadline(time.Now().Add(5*time.Second)))
	_, _, err = late.ReadMessage()
	assert.Error(t, err)
}

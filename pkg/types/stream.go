package types

import "encoding/json"

// Inbound message types accepted on the streaming channel.
const (
	StreamMessageExecute = "execute"
	StreamMessageCommand = "command"
)

// StreamRequest is the envelope of every message a client sends over the streaming channel.
// Data is decoded according to Type.
type StreamRequest struct {
	Type string          `json:"type"`
	ID   string          `json:"id,omitempty"`
	Data json.RawMessage `json:"data"`
}

// ExecuteMessage is the payload of an "execute" stream request.
type ExecuteMessage struct {
	Tool   string         `json:"tool"`
	Params map[string]any `json:"params"`
}

// CommandRequest is the payload of a "command" stream request.
// Timeout is in seconds; zero means the server default.
type CommandRequest struct {
	ID      string  `json:"id,omitempty"`
	Command string  `json:"command"`
	Cwd     string  `json:"cwd,omitempty"`
	Timeout float64 `json:"timeout,omitempty"`
}

// Command output event types.
const (
	OutputStdout = "stdout"
	OutputStderr = "stderr"
	OutputClose  = "close"
	OutputError  = "error"
)

// CommandOutput is a single event of a streaming command.
// A command emits any number of stdout/stderr events followed by exactly one close or error event.
type CommandOutput struct {
	Type     string `json:"type"`
	ID       string `json:"id,omitempty"`
	Data     string `json:"data,omitempty"`
	ExitCode *int   `json:"exitCode,omitempty"`
	Signal   string `json:"signal,omitempty"`
	Message  string `json:"message,omitempty"`
}

// IsTerminal reports whether this event ends its command.
func (o CommandOutput) IsTerminal() bool {
	return o.Type == OutputClose || o.Type == OutputError
}

// StreamResponse is the envelope of every message the server pushes over the streaming channel.
// Exactly one of the fields is set.
type StreamResponse struct {
	Tools         []Tool         `json:"tools,omitempty"`
	Result        any            `json:"result,omitempty"`
	Tool          string         `json:"tool,omitempty"`
	ID            string         `json:"id,omitempty"`
	CommandOutput *CommandOutput `json:"command_output,omitempty"`
	Error         string         `json:"error,omitempty"`
}

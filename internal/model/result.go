package model

import "encoding/json"

// Payload holds the operation-specific fields of a successful tool result.
type Payload map[string]any

// ToolResult is the outcome of a single tool invocation.
// It is either a success carrying a Payload or a failure carrying an error message.
type ToolResult struct {
	Success bool
	Payload Payload
	Error   string
}

// Success returns a successful result with the given payload.
func Success(p Payload) *ToolResult {
	if p == nil {
		p = Payload{}
	}
	return &ToolResult{Success: true, Payload: p}
}

// Failure returns a failed result with the given message.
func Failure(msg string) *ToolResult {
	return &ToolResult{Success: false, Error: msg}
}

// MarshalJSON flattens the payload next to the success flag:
// {"success": true, ...payload} or {"success": false, "error": "..."}.
func (r *ToolResult) MarshalJSON() ([]byte, error) {
	if !r.Success {
		return json.Marshal(struct {
			Success bool   `json:"success"`
			Error   string `json:"error"`
		}{false, r.Error})
	}
	out := make(map[string]any, len(r.Payload)+1)
	for k, v := range r.Payload {
		out[k] = v
	}
	out["success"] = true
	return json.Marshal(out)
}

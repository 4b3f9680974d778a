package types

import "encoding/json"

// ToolInputSchema defines the schema for the input parameters of a tool
type ToolInputSchema struct {
	Type       string         `json:"type"`
	Properties map[string]any `json:"properties"`
	Required   []string       `json:"required,omitempty"`
}

// Tool is the wire form of a tool descriptor advertised to clients.
type Tool struct {
	Name        string          `json:"name"`
	Description string          `json:"description"`
	InputSchema ToolInputSchema `json:"inputSchema"`
	Dangerous   bool            `json:"dangerous,omitempty"`
}

// ListToolsResponse is returned by GET /tools.
type ListToolsResponse struct {
	Tools []Tool `json:"tools"`
}

// ExecuteRequest is the body of POST /execute.
type ExecuteRequest struct {
	Tool   string         `json:"tool" binding:"required"`
	Params map[string]any `json:"params"`
}

// ExecuteResult is the decoded form of a tool result.
// Fields holds every operation-specific field, including "success" and "error".
type ExecuteResult struct {
	Success bool
	Error   string
	Fields  map[string]any
}

// UnmarshalJSON keeps every field of the flat result object in Fields.
func (r *ExecuteResult) UnmarshalJSON(data []byte) error {
	var fields map[string]any
	if err := json.Unmarshal(data, &fields); err != nil {
		return err
	}
	r.Fields = fields
	r.Success, _ = fields["success"].(bool)
	r.Error, _ = fields["error"].(string)
	return nil
}

// HealthResponse is returned by the liveness probe.
type HealthResponse struct {
	Status   string `json:"status"`
	Version  string `json:"version"`
	Platform string `json:"platform"`
	Arch     string `json:"arch"`
	Tools    int    `json:"tools"`
}

// ServerInfo is returned by GET /mcp and describes this agent.
type ServerInfo struct {
	Name        string `json:"name"`
	Version     string `json:"version"`
	Description string `json:"description"`
	Tools       []Tool `json:"tools"`
}

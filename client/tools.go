package client

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/mcpagent/mcpagent/pkg/types"
)

// Health returns the liveness report of the server.
func (c *Client) Health() (*types.HealthResponse, error) {
	var health types.HealthResponse
	if err := c.getJSON("/health", &health); err != nil {
		return nil, err
	}
	return &health, nil
}

// ListTools returns the tool catalog of the server, in catalog order.
func (c *Client) ListTools() ([]types.Tool, error) {
	var list types.ListToolsResponse
	if err := c.getJSON("/tools", &list); err != nil {
		return nil, err
	}
	return list.Tools, nil
}

// GetTool returns the descriptor of the named tool.
func (c *Client) GetTool(name string) (*types.Tool, error) {
	tools, err := c.ListTools()
	if err != nil {
		return nil, err
	}
	for _, t := range tools {
		if t.Name == name {
			return &t, nil
		}
	}
	return nil, fmt.Errorf("tool %s not found", name)
}

// Execute invokes a tool on the server.
// A tool failure is not an error: it is reported through the returned result.
func (c *Client) Execute(tool string, params map[string]any) (*types.ExecuteResult, error) {
	u, _ := c.constructAPIEndpoint("/execute")

	body, err := json.Marshal(&types.ExecuteRequest{Tool: tool, Params: params})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := c.newRequest(http.MethodPost, u, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to send request to %s: %w", u, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, c.parseErrorResponse(resp)
	}

	var result types.ExecuteResult
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}
	return &result, nil
}

func (c *Client) getJSON(path string, v any) error {
	u, _ := c.constructAPIEndpoint(path)

	req, err := c.newRequest(http.MethodGet, u, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send request to %s: %w", u, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return c.parseErrorResponse(resp)
	}

	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

// Package client provides a Go client for the mcpagent HTTP API.
package client

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
)

// Client talks to a running mcpagent server.
type Client struct {
	baseURL     string
	accessToken string
	httpClient  *http.Client
}

// NewClient creates a client for the server at baseURL.
// accessToken is sent as a bearer token when non-empty, for servers deployed behind an
// authenticating proxy. A nil httpClient selects http.DefaultClient.
func NewClient(baseURL string, accessToken string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &Client{
		baseURL:     strings.TrimRight(baseURL, "/"),
		accessToken: accessToken,
		httpClient:  httpClient,
	}
}

// BaseURL returns the server URL this client talks to.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// constructAPIEndpoint joins the base URL with the given path.
func (c *Client) constructAPIEndpoint(suffixPath string) (string, error) {
	return url.JoinPath(c.baseURL, suffixPath)
}

// newRequest builds a request with the authorization header set, if a token is configured.
func (c *Client) newRequest(method, u string, body io.Reader) (*http.Request, error) {
	req, err := http.NewRequest(method, u, body)
	if err != nil {
		return nil, err
	}
	if c.accessToken != "" {
		req.Header.Set("Authorization", "Bearer "+c.accessToken)
	}
	return req, nil
}

// parseErrorResponse turns a non-success response into an error, preferring the server's
// {"error": "..."} message over the raw body.
func (c *Client) parseErrorResponse(resp *http.Response) error {
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("request failed with status: %d", resp.StatusCode)
	}

	var errResp struct {
		Error string `json:"error"`
	}
	if json.Unmarshal(body, &errResp) == nil && errResp.Error != "" {
		return fmt.Errorf("request failed with status: %d, message: %s", resp.StatusCode, errResp.Error)
	}
	return fmt.Errorf("request failed with status: %d, message: %s", resp.StatusCode, strings.TrimSpace(string(body)))
}

package toolserver

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/user/taskchat/internal/tools"
)

// Client is the chat gateway's view of the tool server.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

func NewClient(baseURL string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: httpClient,
	}
}

// Tools fetches the tool catalog from GET /tools.
func (c *Client) Tools(ctx context.Context) ([]tools.Definition, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/tools", nil)
	if err != nil {
		return nil, err
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
		return nil, fmt.Errorf("tool server status=%d body=%s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var out toolsResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, 1<<20)).Decode(&out); err != nil {
		return nil, fmt.Errorf("decode tool catalog: %w", err)
	}
	return out.Tools, nil
}

// Execute posts a tool call to POST /tools/execute. The bearer token, when
// present, is forwarded for the backend to authorize the underlying task
// operation.
func (c *Client) Execute(ctx context.Context, call tools.CallRequest, token string) (tools.CallResult, error) {
	buf, err := json.Marshal(call)
	if err != nil {
		return tools.CallResult{}, fmt.Errorf("marshal tool call: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/tools/execute", bytes.NewReader(buf))
	if err != nil {
		return tools.CallResult{}, err
	}
	req.Header.Set("Content-Type", "application/json")
	if strings.TrimSpace(token) != "" {
		req.Header.Set("Authorization", "Bearer "+strings.TrimSpace(token))
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return tools.CallResult{}, err
	}
	defer resp.Body.Close()

	var result tools.CallResult
	if err := json.NewDecoder(io.LimitReader(resp.Body, 1<<20)).Decode(&result); err != nil {
		return tools.CallResult{}, fmt.Errorf("decode tool result: %w", err)
	}
	return result, nil
}

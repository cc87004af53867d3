// Package mcp holds the HTTP JSON-RPC 2.0 clients for the downstream MCP
// search servers (flight, hotel, destination, budget). Every server exposes
// POST /messages with a tools/call envelope; results may come wrapped in a
// JSON-RPC "result" member or as a plain object.
package mcp

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const maxResponseSizeBytes = 2 << 20

// Config carries the endpoints of the four MCP servers.
type Config struct {
	FlightURL      string        `envconfig:"FLIGHT_URL" split_words:"true" default:"http://127.0.0.1:8771"`
	HotelURL       string        `envconfig:"HOTEL_URL" split_words:"true" default:"http://127.0.0.1:8772"`
	DestinationURL string        `envconfig:"DESTINATION_URL" split_words:"true" default:"http://127.0.0.1:8773"`
	CalcURL        string        `envconfig:"CALC_URL" split_words:"true" default:"http://127.0.0.1:8774"`
	Timeout        time.Duration `envconfig:"TIMEOUT" split_words:"true" default:"10s"`
}

// Client speaks JSON-RPC 2.0 to one MCP server.
type Client struct {
	name       string
	endpoint   string
	httpClient *http.Client
}

type rpcRequest struct {
	JSONRPC string    `json:"jsonrpc"`
	ID      int       `json:"id"`
	Method  string    `json:"method"`
	Params  rpcParams `json:"params"`
}

type rpcParams struct {
	Name      string         `json:"name"`
	Arguments map[string]any `json:"arguments"`
}

type rpcResponse struct {
	Result json.RawMessage `json:"result"`
	Error  json.RawMessage `json:"error"`
}

func NewClient(name, endpoint string, timeout time.Duration) (*Client, error) {
	endpoint = strings.TrimRight(strings.TrimSpace(endpoint), "/")
	if endpoint == "" {
		return nil, fmt.Errorf("mcp %s: endpoint is required", name)
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		name:     name,
		endpoint: endpoint,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}, nil
}

// CallTool posts one tools/call request and returns the raw result object.
func (c *Client) CallTool(ctx context.Context, tool string, args map[string]any) (json.RawMessage, error) {
	body, err := json.Marshal(rpcRequest{
		JSONRPC: "2.0",
		ID:      1,
		Method:  "tools/call",
		Params:  rpcParams{Name: tool, Arguments: args},
	})
	if err != nil {
		return nil, fmt.Errorf("%s: marshal rpc request: %w", c.name, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint+"/messages", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("%s: build rpc request: %w", c.name, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s call failed: %w", c.name, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSizeBytes))
	if err != nil {
		return nil, fmt.Errorf("%s: read rpc response: %w", c.name, err)
	}
	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusAccepted {
		return nil, fmt.Errorf("%s: http status=%d body=%s", c.name, resp.StatusCode, truncate(raw, 200))
	}

	var parsed rpcResponse
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return nil, fmt.Errorf("%s: decode rpc response: %w", c.name, err)
	}
	if len(parsed.Error) > 0 && !bytes.Equal(bytes.TrimSpace(parsed.Error), []byte("null")) {
		return nil, fmt.Errorf("%s: rpc error: %s", c.name, truncate(parsed.Error, 200))
	}
	if len(parsed.Result) > 0 && !bytes.Equal(bytes.TrimSpace(parsed.Result), []byte("null")) {
		return parsed.Result, nil
	}
	// Some servers answer with a plain data object instead of an envelope.
	if json.Valid(raw) {
		return raw, nil
	}
	return nil, errors.New(c.name + ": empty rpc result")
}

func truncate(b []byte, n int) string {
	s := string(b)
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}

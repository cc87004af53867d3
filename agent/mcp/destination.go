package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	contractx "viajero/agent/contract"
)

// DestinationAgent asks the destination MCP server for a summary, points of
// interest and a suggested day-by-day plan.
type DestinationAgent struct {
	client *Client
}

func NewDestinationAgent(endpoint string, timeout time.Duration) (*DestinationAgent, error) {
	c, err := NewClient("destination", endpoint, timeout)
	if err != nil {
		return nil, err
	}
	return &DestinationAgent{client: c}, nil
}

func (a *DestinationAgent) Summarize(ctx context.Context, city string, days int) (contractx.DestinationResult, error) {
	raw, err := a.client.CallTool(ctx, "destination.get_summary", map[string]any{
		"city": city,
		"days": days,
	})
	if err != nil {
		return contractx.DestinationResult{}, err
	}

	var out contractx.DestinationResult
	if err := json.Unmarshal(raw, &out); err != nil {
		return contractx.DestinationResult{}, fmt.Errorf("destination: decode result: %w", err)
	}
	return out, nil
}

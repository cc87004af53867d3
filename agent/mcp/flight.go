package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	contractx "viajero/agent/contract"
)

// FlightAgent asks the flight MCP server for one-way offers.
type FlightAgent struct {
	client *Client
}

func NewFlightAgent(endpoint string, timeout time.Duration) (*FlightAgent, error) {
	c, err := NewClient("flight", endpoint, timeout)
	if err != nil {
		return nil, err
	}
	return &FlightAgent{client: c}, nil
}

func (a *FlightAgent) SearchFlights(ctx context.Context, origin, destination, date string, adults int) (contractx.FlightResult, error) {
	raw, err := a.client.CallTool(ctx, "flight.search_flights", map[string]any{
		"origin":      origin,
		"destination": destination,
		"date":        date,
		"adults":      adults,
	})
	if err != nil {
		return contractx.FlightResult{}, err
	}

	var out contractx.FlightResult
	if err := json.Unmarshal(raw, &out); err != nil {
		return contractx.FlightResult{}, fmt.Errorf("flight: decode result: %w", err)
	}
	return out, nil
}

package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	contractx "viajero/agent/contract"
)

// HotelAgent asks the hotel MCP server for stays in a check-in/check-out window.
type HotelAgent struct {
	client *Client
}

func NewHotelAgent(endpoint string, timeout time.Duration) (*HotelAgent, error) {
	c, err := NewClient("hotel", endpoint, timeout)
	if err != nil {
		return nil, err
	}
	return &HotelAgent{client: c}, nil
}

func (a *HotelAgent) SearchHotels(ctx context.Context, city, checkin, checkout string, adults int) (contractx.HotelResult, error) {
	raw, err := a.client.CallTool(ctx, "hotel.search_hotels", map[string]any{
		"city":     city,
		"checkin":  checkin,
		"checkout": checkout,
		"adults":   adults,
	})
	if err != nil {
		return contractx.HotelResult{}, err
	}

	var out contractx.HotelResult
	if err := json.Unmarshal(raw, &out); err != nil {
		return contractx.HotelResult{}, fmt.Errorf("hotel: decode result: %w", err)
	}
	return out, nil
}

package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	contractx "viajero/agent/contract"
)

// BudgetAgent asks the calc MCP server to price the gathered offers. It runs
// after the search fan-in because it consumes the other providers' output.
type BudgetAgent struct {
	client *Client
}

func NewBudgetAgent(endpoint string, timeout time.Duration) (*BudgetAgent, error) {
	c, err := NewClient("budget", endpoint, timeout)
	if err != nil {
		return nil, err
	}
	return &BudgetAgent{client: c}, nil
}

func (a *BudgetAgent) Estimate(ctx context.Context, flights []contractx.FlightInfo, hotels []contractx.HotelInfo, checkin, checkout string, adults int) (contractx.BudgetResult, error) {
	raw, err := a.client.CallTool(ctx, "calc.estimate_budget", map[string]any{
		"flights":  flights,
		"hotels":   hotels,
		"checkin":  checkin,
		"checkout": checkout,
		"adults":   adults,
	})
	if err != nil {
		return contractx.BudgetResult{}, err
	}

	// The calc server reports the grand total under total_eur; a bare total
	// covers older responses.
	var body struct {
		Total    float64 `json:"total"`
		TotalEUR float64 `json:"total_eur"`
		Currency string  `json:"currency"`
		Error    string  `json:"error"`
	}
	if err := json.Unmarshal(raw, &body); err != nil {
		return contractx.BudgetResult{}, fmt.Errorf("budget: decode result: %w", err)
	}

	out := contractx.BudgetResult{Total: body.Total, Currency: body.Currency, Error: body.Error}
	if body.TotalEUR != 0 {
		out.Total = body.TotalEUR
	}
	if out.Currency == "" {
		out.Currency = "EUR"
	}
	return out, nil
}

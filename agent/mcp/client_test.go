package mcp

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func TestCallToolSendsJSONRPCEnvelope(t *testing.T) {
	t.Parallel()

	var gotPath string
	var gotBody map[string]any

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer r.Body.Close()
		gotPath = r.URL.Path
		if err := json.NewDecoder(r.Body).Decode(&gotBody); err != nil {
			t.Errorf("decode body: %v", err)
		}
		w.Write([]byte(`{"jsonrpc":"2.0","id":1,"result":{"flights":[]}}`))
	}))
	t.Cleanup(server.Close)

	client, err := NewClient("flight", server.URL, time.Second)
	if err != nil {
		t.Fatalf("NewClient() error = %v", err)
	}

	if _, err := client.CallTool(context.Background(), "flight.search_flights", map[string]any{"origin": "MAD"}); err != nil {
		t.Fatalf("CallTool() error = %v", err)
	}

	if gotPath != "/messages" {
		t.Fatalf("path = %q, want /messages", gotPath)
	}
	if gotBody["jsonrpc"] != "2.0" || gotBody["method"] != "tools/call" {
		t.Fatalf("envelope = %#v", gotBody)
	}
	params, _ := gotBody["params"].(map[string]any)
	if params["name"] != "flight.search_flights" {
		t.Fatalf("params = %#v", params)
	}
}

func TestCallToolUnwrapsResult(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"jsonrpc":"2.0","id":1,"result":{"total":640,"total_eur":640}}`))
	}))
	t.Cleanup(server.Close)

	client, err := NewClient("budget", server.URL, time.Second)
	if err != nil {
		t.Fatalf("NewClient() error = %v", err)
	}

	raw, err := client.CallTool(context.Background(), "calc.estimate_budget", nil)
	if err != nil {
		t.Fatalf("CallTool() error = %v", err)
	}
	var out map[string]float64
	if err := json.Unmarshal(raw, &out); err != nil {
		t.Fatalf("unmarshal result: %v", err)
	}
	if out["total_eur"] != 640 {
		t.Fatalf("result = %v", out)
	}
}

func TestCallToolAcceptsPlainObject(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"hotels":[{"name":"Gran Vía"}]}`))
	}))
	t.Cleanup(server.Close)

	client, err := NewClient("hotel", server.URL, time.Second)
	if err != nil {
		t.Fatalf("NewClient() error = %v", err)
	}

	raw, err := client.CallTool(context.Background(), "hotel.search_hotels", nil)
	if err != nil {
		t.Fatalf("CallTool() error = %v", err)
	}
	if !strings.Contains(string(raw), "Gran Vía") {
		t.Fatalf("result = %s", raw)
	}
}

func TestCallToolSurfacesRPCError(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"jsonrpc":"2.0","id":1,"error":"ciudad desconocida"}`))
	}))
	t.Cleanup(server.Close)

	client, err := NewClient("destination", server.URL, time.Second)
	if err != nil {
		t.Fatalf("NewClient() error = %v", err)
	}

	if _, err := client.CallTool(context.Background(), "destination.get_summary", nil); err == nil {
		t.Fatal("CallTool() error = nil, want rpc error")
	}
}

func TestCallToolRejectsHTTPError(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	t.Cleanup(server.Close)

	client, err := NewClient("flight", server.URL, time.Second)
	if err != nil {
		t.Fatalf("NewClient() error = %v", err)
	}

	if _, err := client.CallTool(context.Background(), "flight.search_flights", nil); err == nil {
		t.Fatal("CallTool() error = nil, want http error")
	}
}

func TestCallToolAcceptsAccepted(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusAccepted)
		w.Write([]byte(`{"jsonrpc":"2.0","id":1,"result":{"ok":true}}`))
	}))
	t.Cleanup(server.Close)

	client, err := NewClient("flight", server.URL, time.Second)
	if err != nil {
		t.Fatalf("NewClient() error = %v", err)
	}

	if _, err := client.CallTool(context.Background(), "flight.search_flights", nil); err != nil {
		t.Fatalf("CallTool() error = %v", err)
	}
}

func TestBudgetAgentPrefersTotalEUR(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"jsonrpc":"2.0","id":1,"result":{"total":700,"total_eur":640.5}}`))
	}))
	t.Cleanup(server.Close)

	agent, err := NewBudgetAgent(server.URL, time.Second)
	if err != nil {
		t.Fatalf("NewBudgetAgent() error = %v", err)
	}

	got, err := agent.Estimate(context.Background(), nil, nil, "2026-09-04", "2026-09-07", 2)
	if err != nil {
		t.Fatalf("Estimate() error = %v", err)
	}
	if got.Total != 640.5 {
		t.Fatalf("Total = %v, want total_eur value", got.Total)
	}
	if got.Currency != "EUR" {
		t.Fatalf("Currency = %q, want EUR", got.Currency)
	}
}

func TestNewClientRequiresEndpoint(t *testing.T) {
	t.Parallel()

	if _, err := NewClient("flight", "   ", time.Second); err == nil {
		t.Fatal("NewClient() error = nil, want endpoint error")
	}
}

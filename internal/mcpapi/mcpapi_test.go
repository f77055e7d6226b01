package mcpapi

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/algomatic/strategy-compiler/internal/catalog"
	"github.com/algomatic/strategy-compiler/internal/httpapi"
	"github.com/algomatic/strategy-compiler/internal/service"
	"github.com/algomatic/strategy-compiler/internal/store/memory"
)

func newTestMux(t *testing.T) *http.ServeMux {
	t.Helper()
	cat := catalog.New(catalog.Source{})
	svc := service.New(cat, memory.NewCards(), memory.NewStrategies(), nil)
	srv := NewServer(svc, nil)
	mux := http.NewServeMux()
	srv.RegisterRoutes(mux, httpapi.AuthMiddleware(""))
	return mux
}

const toolsetArchetypeDocs = `{"archetypes": [
	{"id":"entry.trend_pullback","version":1,"title":"Trend Pullback","summary":"s","tags":[],"required_slots":[],"schema_etag":"etag-1","deprecated":false,"hints":{},"updated_at":"2026-01-01T00:00:00Z"}
]}`

const toolsetSchemaDocs = `{"schemas": [
	{
		"type_id": "entry.trend_pullback",
		"schema_version": 1,
		"etag": "etag-1",
		"json_schema": {"type": "object", "required": ["context"], "properties": {"context": {"type": "object", "required": ["symbol", "tf"], "properties": {"symbol": {"type": "string"}, "tf": {"type": "string"}}}}},
		"constraints": {},
		"examples": [{"human": "basic", "slots": {"context": {"symbol": "BTC-USD", "tf": "1h"}}}],
		"updated_at": "2026-01-01T00:00:00Z"
	}
]}`

func newSeededTestMux(t *testing.T) *http.ServeMux {
	t.Helper()
	cat := catalog.New(catalog.Source{
		ArchetypesByKind: map[string]json.RawMessage{"entry": json.RawMessage(toolsetArchetypeDocs)},
		SchemasByKind:    map[string]json.RawMessage{"entry": json.RawMessage(toolsetSchemaDocs)},
	})
	svc := service.New(cat, memory.NewCards(), memory.NewStrategies(), nil)
	srv := NewServer(svc, nil)
	mux := http.NewServeMux()
	srv.RegisterRoutes(mux, httpapi.AuthMiddleware(""))
	return mux
}

func call(t *testing.T, mux *http.ServeMux, req jsonRPCRequest) jsonRPCResponse {
	t.Helper()
	body, err := json.Marshal(req)
	if err != nil {
		t.Fatalf("marshal request: %v", err)
	}
	httpReq := httptest.NewRequest(http.MethodPost, "/mcp", bytes.NewReader(body))
	w := httptest.NewRecorder()
	mux.ServeHTTP(w, httpReq)

	var resp jsonRPCResponse
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return resp
}

func TestToolsList_EnumeratesEveryNonHTTPOperation(t *testing.T) {
	mux := newTestMux(t)
	resp := call(t, mux, jsonRPCRequest{JSONRPC: "2.0", ID: float64(1), Method: "tools/list"})
	if resp.Error != nil {
		t.Fatalf("unexpected error: %+v", resp.Error)
	}
	raw, err := json.Marshal(resp.Result)
	if err != nil {
		t.Fatalf("marshal result: %v", err)
	}
	var result toolsListResult
	if err := json.Unmarshal(raw, &result); err != nil {
		t.Fatalf("unmarshal result: %v", err)
	}
	if len(result.Tools) != 16 {
		t.Fatalf("expected 16 tools, got %d", len(result.Tools))
	}
	names := map[string]bool{}
	for _, tl := range result.Tools {
		names[tl.Name] = true
	}
	for _, want := range []string{"create_strategy", "add_card", "compile_strategy", "validate_strategy", "delete_card"} {
		if !names[want] {
			t.Fatalf("missing expected tool %q", want)
		}
	}
}

func TestToolsCall_UnknownToolIsMethodNotFound(t *testing.T) {
	mux := newTestMux(t)
	params, _ := json.Marshal(toolCallParams{Name: "nonexistent_tool"})
	resp := call(t, mux, jsonRPCRequest{JSONRPC: "2.0", ID: float64(2), Method: "tools/call", Params: params})
	if resp.Error == nil || resp.Error.Code != -32601 {
		t.Fatalf("expected -32601 for unknown tool, got %+v", resp.Error)
	}
}

func TestToolsCall_CreateStrategyThenGetStrategyRoundTrips(t *testing.T) {
	mux := newTestMux(t)

	createParams, _ := json.Marshal(toolCallParams{
		Name:      "create_strategy",
		Arguments: map[string]any{"name": "My Strategy", "universe": []any{"BTC-USD"}},
	})
	createResp := call(t, mux, jsonRPCRequest{JSONRPC: "2.0", ID: float64(3), Method: "tools/call", Params: createParams})
	if createResp.Error != nil {
		t.Fatalf("unexpected error: %+v", createResp.Error)
	}
	created, ok := createResp.Result.(map[string]any)
	if !ok {
		t.Fatalf("expected object result, got %T", createResp.Result)
	}
	id, _ := created["id"].(string)
	if id == "" {
		t.Fatalf("expected a created strategy id, got %+v", created)
	}

	getParams, _ := json.Marshal(toolCallParams{Name: "get_strategy", Arguments: map[string]any{"id": id}})
	getResp := call(t, mux, jsonRPCRequest{JSONRPC: "2.0", ID: float64(4), Method: "tools/call", Params: getParams})
	if getResp.Error != nil {
		t.Fatalf("unexpected error: %+v", getResp.Error)
	}
	fetched, ok := getResp.Result.(map[string]any)
	if !ok || fetched["id"] != id {
		t.Fatalf("expected to fetch back the same strategy, got %+v", getResp.Result)
	}
}

func TestToolsCall_NotFoundSurfacesAsToolErrorNotProtocolError(t *testing.T) {
	mux := newTestMux(t)
	params, _ := json.Marshal(toolCallParams{Name: "get_card", Arguments: map[string]any{"id": "missing"}})
	resp := call(t, mux, jsonRPCRequest{JSONRPC: "2.0", ID: float64(5), Method: "tools/call", Params: params})
	if resp.Error != nil {
		t.Fatalf("expected a tool-level error, not a protocol error: %+v", resp.Error)
	}
	result, ok := resp.Result.(map[string]any)
	if !ok || result["isError"] != true {
		t.Fatalf("expected isError result, got %+v", resp.Result)
	}
}

func TestToolsCall_GetArchetypesReturnsTypesAndAsOf(t *testing.T) {
	mux := newSeededTestMux(t)
	params, _ := json.Marshal(toolCallParams{Name: "get_archetypes"})
	resp := call(t, mux, jsonRPCRequest{JSONRPC: "2.0", ID: float64(7), Method: "tools/call", Params: params})
	if resp.Error != nil {
		t.Fatalf("unexpected error: %+v", resp.Error)
	}
	result, ok := resp.Result.(map[string]any)
	if !ok {
		t.Fatalf("expected object result, got %T", resp.Result)
	}
	if _, ok := result["as_of"].(string); !ok {
		t.Fatalf("expected an as_of string, got %+v", result)
	}
	types, ok := result["types"].([]any)
	if !ok || len(types) != 1 {
		t.Fatalf("expected one archetype under types, got %+v", result)
	}
}

func TestToolsCall_GetSchemaExampleReturnsTypeIDAndEtag(t *testing.T) {
	mux := newSeededTestMux(t)
	params, _ := json.Marshal(toolCallParams{Name: "get_schema_example", Arguments: map[string]any{"type": "entry.trend_pullback"}})
	resp := call(t, mux, jsonRPCRequest{JSONRPC: "2.0", ID: float64(8), Method: "tools/call", Params: params})
	if resp.Error != nil {
		t.Fatalf("unexpected error: %+v", resp.Error)
	}
	result, ok := resp.Result.(map[string]any)
	if !ok {
		t.Fatalf("expected object result, got %T", resp.Result)
	}
	if result["type_id"] != "entry.trend_pullback" {
		t.Fatalf("expected type_id, got %+v", result)
	}
	if result["schema_etag"] != "etag-1" {
		t.Fatalf("expected schema_etag, got %+v", result)
	}
	if _, ok := result["example_slots"].(map[string]any); !ok {
		t.Fatalf("expected example_slots, got %+v", result)
	}
}

func TestToolsCall_AddCardCreatesThenAttaches(t *testing.T) {
	mux := newSeededTestMux(t)

	createParams, _ := json.Marshal(toolCallParams{
		Name:      "create_strategy",
		Arguments: map[string]any{"name": "My Strategy", "universe": []any{"BTC-USD"}},
	})
	createResp := call(t, mux, jsonRPCRequest{JSONRPC: "2.0", ID: float64(9), Method: "tools/call", Params: createParams})
	strat, ok := createResp.Result.(map[string]any)
	if !ok {
		t.Fatalf("expected object result, got %T", createResp.Result)
	}
	strategyID, _ := strat["id"].(string)
	if strategyID == "" {
		t.Fatalf("expected a created strategy id, got %+v", strat)
	}

	addParams, _ := json.Marshal(toolCallParams{
		Name: "add_card",
		Arguments: map[string]any{
			"strategy_id":   strategyID,
			"type":          "entry.trend_pullback",
			"slots":         map[string]any{"context": map[string]any{"symbol": "BTC-USD", "tf": "1h"}},
			"follow_latest": true,
		},
	})
	addResp := call(t, mux, jsonRPCRequest{JSONRPC: "2.0", ID: float64(10), Method: "tools/call", Params: addParams})
	if addResp.Error != nil {
		t.Fatalf("unexpected error: %+v", addResp.Error)
	}
	updated, ok := addResp.Result.(map[string]any)
	if !ok {
		t.Fatalf("expected object result, got %T", addResp.Result)
	}
	attachments, ok := updated["attachments"].([]any)
	if !ok || len(attachments) != 1 {
		t.Fatalf("expected one attachment created in the same call, got %+v", updated)
	}
	attachment, ok := attachments[0].(map[string]any)
	if !ok || attachment["role"] != "entry" {
		t.Fatalf("expected inferred role entry, got %+v", attachments[0])
	}
}

func TestUnknownMethodIsMethodNotFound(t *testing.T) {
	mux := newTestMux(t)
	resp := call(t, mux, jsonRPCRequest{JSONRPC: "2.0", ID: float64(6), Method: "bogus/method"})
	if resp.Error == nil || resp.Error.Code != -32601 {
		t.Fatalf("expected -32601, got %+v", resp.Error)
	}
}

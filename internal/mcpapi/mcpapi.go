// Package mcpapi exposes the service's tool surface as a JSON-RPC/MCP-shaped
// dispatcher over a single HTTP endpoint: "tools/list" enumerates the named
// tools and their JSON-Schema input shapes, "tools/call" invokes one by
// name. Framing follows the jsonRPCRequest/jsonRPCResponse/tools-list/
// tools-call shape used by the pack's MCP servers, reduced to this facade's
// in-scope subset — no resource browsing, no stdio transport loop.
package mcpapi

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/algomatic/strategy-compiler/internal/apierr"
	"github.com/algomatic/strategy-compiler/internal/service"
)

type jsonRPCRequest struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      any             `json:"id"`
	Method  string          `json:"method"`
	Params  json.RawMessage `json:"params,omitempty"`
}

type jsonRPCResponse struct {
	JSONRPC string    `json:"jsonrpc"`
	ID      any       `json:"id,omitempty"`
	Result  any       `json:"result,omitempty"`
	Error   *rpcError `json:"error,omitempty"`
}

type rpcError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Data    any    `json:"data,omitempty"`
}

type tool struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	InputSchema map[string]any `json:"inputSchema"`
}

type toolsListResult struct {
	Tools []tool `json:"tools"`
}

type toolCallParams struct {
	Name      string         `json:"name"`
	Arguments map[string]any `json:"arguments"`
}

// toolHandler invokes one named tool against its raw argument map and
// returns the result value to place in a successful tools/call response.
type toolHandler func(s *Server, r *http.Request, args map[string]any) (any, error)

// Server dispatches the tool surface named in spec.md's EXTERNAL INTERFACES
// section, minus GET /api/strategies/{id} (served directly by internal/httpapi).
type Server struct {
	svc      *service.Service
	logger   *slog.Logger
	handlers map[string]toolHandler
	tools    []tool
}

// NewServer builds a tool dispatcher over svc.
func NewServer(svc *service.Service, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Server{svc: svc, logger: logger}
	s.handlers, s.tools = s.buildToolset()
	return s
}

// RegisterRoutes registers the single JSON-RPC endpoint, wrapped in
// authMiddleware when it is non-nil (httpapi.AuthMiddleware with an empty
// token passes every request through).
func (s *Server) RegisterRoutes(mux *http.ServeMux, authMiddleware func(http.Handler) http.Handler) {
	handler := http.Handler(http.HandlerFunc(s.handleRPC))
	if authMiddleware != nil {
		handler = authMiddleware(handler)
	}
	mux.Handle("POST /mcp", handler)
}

func (s *Server) handleRPC(w http.ResponseWriter, r *http.Request) {
	var req jsonRPCRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeRPC(w, jsonRPCResponse{
			JSONRPC: "2.0",
			Error:   &rpcError{Code: -32700, Message: "Parse error", Data: err.Error()},
		})
		return
	}

	writeRPC(w, s.dispatch(r, req))
}

func (s *Server) dispatch(r *http.Request, req jsonRPCRequest) jsonRPCResponse {
	switch req.Method {
	case "tools/list":
		return jsonRPCResponse{JSONRPC: "2.0", ID: req.ID, Result: toolsListResult{Tools: s.tools}}

	case "tools/call":
		var params toolCallParams
		if err := json.Unmarshal(req.Params, &params); err != nil {
			return jsonRPCResponse{
				JSONRPC: "2.0",
				ID:      req.ID,
				Error:   &rpcError{Code: -32602, Message: "Invalid params", Data: err.Error()},
			}
		}
		handler, ok := s.handlers[params.Name]
		if !ok {
			return jsonRPCResponse{
				JSONRPC: "2.0",
				ID:      req.ID,
				Error:   &rpcError{Code: -32601, Message: "Unknown tool: " + params.Name},
			}
		}
		result, err := handler(s, r, params.Arguments)
		if err != nil {
			return jsonRPCResponse{JSONRPC: "2.0", ID: req.ID, Result: errorToolResult(err)}
		}
		return jsonRPCResponse{JSONRPC: "2.0", ID: req.ID, Result: result}

	default:
		return jsonRPCResponse{
			JSONRPC: "2.0",
			ID:      req.ID,
			Error:   &rpcError{Code: -32601, Message: "Unknown method: " + req.Method},
		}
	}
}

// errorToolResult turns a service error into a tools/call result carrying
// isError rather than a JSON-RPC protocol-level error, so a caller always
// gets the structured apierr fields back on the same channel as a success.
func errorToolResult(err error) map[string]any {
	if apiErr, ok := err.(*apierr.Error); ok {
		return map[string]any{
			"isError": true,
			"error": map[string]any{
				"code":          apiErr.Code,
				"message":       apiErr.Message,
				"recovery_hint": apiErr.RecoveryHint,
				"details":       apiErr.Details,
			},
		}
	}
	return map[string]any{
		"isError": true,
		"error":   map[string]any{"code": apierr.InternalError, "message": err.Error()},
	}
}

func writeRPC(w http.ResponseWriter, resp jsonRPCResponse) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		slog.Warn("failed to encode JSON-RPC response", "error", err)
	}
}

func argString(args map[string]any, key string) string {
	v, _ := args[key].(string)
	return v
}

func argBool(args map[string]any, key string) bool {
	v, _ := args[key].(bool)
	return v
}

// argBoolDefault is for boolean tool arguments the spec gives a non-false
// default, such as add_card/create_card's enabled=true.
func argBoolDefault(args map[string]any, key string, def bool) bool {
	v, ok := args[key].(bool)
	if !ok {
		return def
	}
	return v
}

func argInt(args map[string]any, key string, def int) int {
	v, ok := args[key].(float64)
	if !ok {
		return def
	}
	return int(v)
}

func argObject(args map[string]any, key string) map[string]any {
	v, _ := args[key].(map[string]any)
	return v
}

func argStringSlice(args map[string]any, key string) []string {
	raw, ok := args[key].([]any)
	if !ok {
		return nil
	}
	out := make([]string, 0, len(raw))
	for _, v := range raw {
		if s, ok := v.(string); ok {
			out = append(out, s)
		}
	}
	return out
}

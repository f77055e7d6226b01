// Package httpapi is the HTTP transport (component H): a health/ready pair
// and GET /api/strategies/{id}, behind an optional static bearer-token
// middleware. Routing follows go-strats/pkg/api/handlers.go's Go 1.22+
// net/http.ServeMux pattern matching; the auth middleware mirrors
// original_source/src/api/middleware.py's create_auth_middleware.
package httpapi

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"

	"github.com/algomatic/strategy-compiler/internal/apierr"
	"github.com/algomatic/strategy-compiler/internal/service"
)

// Server holds the dependencies for the HTTP handlers.
type Server struct {
	svc    *service.Service
	logger *slog.Logger
}

// NewServer creates a new Server.
func NewServer(svc *service.Service, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{svc: svc, logger: logger}
}

// RegisterRoutes registers every route on mux, wrapping the ones that
// require auth with authToken's middleware (a no-op when authToken is
// empty).
func (s *Server) RegisterRoutes(mux *http.ServeMux, authToken string) {
	mux.HandleFunc("GET /", s.HandleRoot)
	mux.HandleFunc("GET /health", s.HandleHealth)
	mux.HandleFunc("GET /ready", s.HandleReady)
	mux.Handle("GET /api/strategies/{id}", AuthMiddleware(authToken)(http.HandlerFunc(s.HandleGetStrategy)))
}

// AuthMiddleware builds static bearer-token auth middleware, shared with
// internal/mcpapi so both transports enforce the same rule. A nil/empty
// authToken disables auth entirely. Requests to "/", "/health", "/ready",
// and OPTIONS requests are exempt wherever this wrapper is applied.
func AuthMiddleware(authToken string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if authToken == "" {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Path == "/" || r.URL.Path == "/health" || r.URL.Path == "/ready" || r.Method == http.MethodOptions {
				next.ServeHTTP(w, r)
				return
			}

			header := r.Header.Get("Authorization")
			if !strings.HasPrefix(header, "Bearer ") {
				writeJSON(w, http.StatusUnauthorized, errorResponse{Error: "Missing or invalid Authorization header"})
				return
			}
			token := strings.TrimSpace(strings.TrimPrefix(header, "Bearer "))
			if token != authToken {
				writeJSON(w, http.StatusForbidden, errorResponse{Error: "Invalid authentication token"})
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

type errorResponse struct {
	Error string `json:"error"`
}

type healthResponse struct {
	Status string `json:"status"`
}

// HandleRoot answers a bare liveness probe.
func (s *Server) HandleRoot(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, healthResponse{Status: "ok"})
}

// HandleHealth answers a liveness probe.
func (s *Server) HandleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, healthResponse{Status: "healthy"})
}

// HandleReady answers a readiness probe.
func (s *Server) HandleReady(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, healthResponse{Status: "ready"})
}

type cardView struct {
	ID             string         `json:"id"`
	Type           string         `json:"type"`
	Slots          map[string]any `json:"slots"`
	SchemaEtag     string         `json:"schema_etag"`
	Role           string         `json:"role"`
	Enabled        bool           `json:"enabled"`
	Overrides      map[string]any `json:"overrides,omitempty"`
	FollowLatest   bool           `json:"follow_latest"`
	CardRevisionID string         `json:"card_revision_id,omitempty"`
	CreatedAt      string         `json:"created_at"`
	UpdatedAt      string         `json:"updated_at"`
}

type strategyView struct {
	ID        string   `json:"id"`
	OwnerID   string   `json:"owner_id,omitempty"`
	Name      string   `json:"name"`
	Status    string   `json:"status"`
	Universe  []string `json:"universe"`
	Version   int      `json:"version"`
	CreatedAt string   `json:"created_at"`
	UpdatedAt string   `json:"updated_at"`
}

type getStrategyResponse struct {
	Strategy  strategyView `json:"strategy"`
	Cards     []cardView   `json:"cards"`
	CardCount int          `json:"card_count"`
}

// HandleGetStrategy implements GET /api/strategies/{id}: the strategy plus
// every attached card, joined in attachment order. An attachment whose card
// was deleted is silently skipped, matching
// original_source/src/api/routes.py's get_strategy_with_cards.
func (s *Server) HandleGetStrategy(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	strat, err := s.svc.GetStrategy(r.Context(), id)
	if err != nil {
		if apiErr, ok := err.(*apierr.Error); ok && apiErr.Code == apierr.StrategyNotFound {
			writeJSON(w, http.StatusNotFound, errorResponse{Error: "Strategy not found: " + id})
			return
		}
		s.logger.Error("get_strategy failed", "id", id, "error", err)
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "internal error"})
		return
	}

	cards := make([]cardView, 0, len(strat.Attachments))
	for _, att := range strat.Attachments {
		card, err := s.svc.GetCard(r.Context(), att.CardID)
		if err != nil {
			continue
		}
		cards = append(cards, cardView{
			ID:             card.ID,
			Type:           card.Type,
			Slots:          card.Slots,
			SchemaEtag:     card.SchemaEtag,
			Role:           string(att.Role),
			Enabled:        att.Enabled,
			Overrides:      att.Overrides,
			FollowLatest:   att.FollowLatest,
			CardRevisionID: att.CardRevisionID,
			CreatedAt:      card.CreatedAt,
			UpdatedAt:      card.UpdatedAt,
		})
	}

	writeJSON(w, http.StatusOK, getStrategyResponse{
		Strategy: strategyView{
			ID:        strat.ID,
			OwnerID:   strat.OwnerID,
			Name:      strat.Name,
			Status:    string(strat.Status),
			Universe:  strat.Universe,
			Version:   strat.Version,
			CreatedAt: strat.CreatedAt,
			UpdatedAt: strat.UpdatedAt,
		},
		Cards:     cards,
		CardCount: len(cards),
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Warn("failed to encode JSON response", "error", err)
	}
}

package httpapi

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/algomatic/strategy-compiler/internal/catalog"
	"github.com/algomatic/strategy-compiler/internal/service"
	"github.com/algomatic/strategy-compiler/internal/store/memory"
)

func newTestServer(t *testing.T) (*http.ServeMux, *service.Service) {
	t.Helper()
	cat := catalog.New(catalog.Source{})
	svc := service.New(cat, memory.NewCards(), memory.NewStrategies(), nil)
	srv := NewServer(svc, nil)
	mux := http.NewServeMux()
	srv.RegisterRoutes(mux, "t")
	return mux, svc
}

func TestGetStrategy_MissingAuthHeaderIs401(t *testing.T) {
	mux, _ := newTestServer(t)
	req := httptest.NewRequest(http.MethodGet, "/api/strategies/x", nil)
	w := httptest.NewRecorder()
	mux.ServeHTTP(w, req)
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", w.Code)
	}
}

func TestGetStrategy_WrongTokenIs403(t *testing.T) {
	mux, _ := newTestServer(t)
	req := httptest.NewRequest(http.MethodGet, "/api/strategies/x", nil)
	req.Header.Set("Authorization", "Bearer wrong")
	w := httptest.NewRecorder()
	mux.ServeHTTP(w, req)
	if w.Code != http.StatusForbidden {
		t.Fatalf("expected 403, got %d", w.Code)
	}
}

func TestGetStrategy_CorrectTokenUnknownIdIs404(t *testing.T) {
	mux, _ := newTestServer(t)
	req := httptest.NewRequest(http.MethodGet, "/api/strategies/x", nil)
	req.Header.Set("Authorization", "Bearer t")
	w := httptest.NewRecorder()
	mux.ServeHTTP(w, req)
	if w.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", w.Code)
	}
	var resp errorResponse
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp.Error != "Strategy not found: x" {
		t.Fatalf("unexpected error body: %q", resp.Error)
	}
}

func TestGetStrategy_CorrectTokenKnownIdReturnsStrategy(t *testing.T) {
	mux, svc := newTestServer(t)
	strat, err := svc.CreateStrategy(context.Background(), "owner1", "", "S", []string{"BTC-USD"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	req := httptest.NewRequest(http.MethodGet, "/api/strategies/"+strat.ID, nil)
	req.Header.Set("Authorization", "Bearer t")
	w := httptest.NewRecorder()
	mux.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}

	var resp getStrategyResponse
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp.Strategy.ID != strat.ID {
		t.Fatalf("unexpected strategy id: %q", resp.Strategy.ID)
	}
	if resp.CardCount != 0 {
		t.Fatalf("expected zero cards, got %d", resp.CardCount)
	}
}

func TestHealthAndReady_NeverRequireAuth(t *testing.T) {
	mux, _ := newTestServer(t)
	for _, path := range []string{"/health", "/ready", "/"} {
		req := httptest.NewRequest(http.MethodGet, path, nil)
		w := httptest.NewRecorder()
		mux.ServeHTTP(w, req)
		if w.Code != http.StatusOK {
			t.Fatalf("expected 200 for %s, got %d", path, w.Code)
		}
	}
}

package memory

import (
	"context"
	"testing"

	"github.com/algomatic/strategy-compiler/internal/apierr"
	"github.com/algomatic/strategy-compiler/internal/model"
)

func TestCards_CreateAssignsIDAndTimestamps(t *testing.T) {
	cards := NewCards()
	card, err := cards.Create(context.Background(), "entry.trend_pullback", map[string]any{"x": 1}, "etag1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if card.ID == "" {
		t.Fatal("expected a non-empty id")
	}
	if card.CreatedAt == "" || card.UpdatedAt == "" {
		t.Fatalf("expected timestamps, got %+v", card)
	}
	if card.CreatedAt != card.UpdatedAt {
		t.Fatalf("expected created_at == updated_at on create, got %+v", card)
	}
}

func TestCards_UpdatePreservesCreatedAtAndRefreshesUpdatedAt(t *testing.T) {
	cards := NewCards()
	created, _ := cards.Create(context.Background(), "entry.trend_pullback", map[string]any{"x": 1}, "etag1")

	updated, err := cards.Update(context.Background(), created.ID, map[string]any{"x": 2}, "etag2")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if updated.CreatedAt != created.CreatedAt {
		t.Fatalf("expected created_at preserved: before=%s after=%s", created.CreatedAt, updated.CreatedAt)
	}
	if updated.SchemaEtag != "etag2" {
		t.Fatalf("expected schema_etag refreshed, got %s", updated.SchemaEtag)
	}
}

func TestCards_GetUnknownIDIsCardNotFound(t *testing.T) {
	cards := NewCards()
	_, err := cards.Get(context.Background(), "missing")
	assertCode(t, err, apierr.CardNotFound)
}

func TestCards_DeleteThenGetIsNotFound(t *testing.T) {
	cards := NewCards()
	card, _ := cards.Create(context.Background(), "entry.trend_pullback", map[string]any{}, "etag1")
	if err := cards.Delete(context.Background(), card.ID); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	_, err := cards.Get(context.Background(), card.ID)
	assertCode(t, err, apierr.CardNotFound)
}

func TestStrategies_CreateStartsAtVersionOneAndDraft(t *testing.T) {
	strats := NewStrategies()
	strat, err := strats.Create(context.Background(), "owner1", "thread1", "My Strategy", []string{"AAPL"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if strat.Version != 1 {
		t.Fatalf("expected version 1, got %d", strat.Version)
	}
	if strat.Status != model.StatusDraft {
		t.Fatalf("expected draft status, got %s", strat.Status)
	}
}

func TestStrategies_UpdateIncrementsVersionByExactlyOne(t *testing.T) {
	strats := NewStrategies()
	strat, _ := strats.Create(context.Background(), "owner1", "", "My Strategy", []string{"AAPL"})

	updated, err := strats.Update(context.Background(), strat.ID, func(s *model.Strategy) error {
		s.Name = "Renamed"
		return nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if updated.Version != strat.Version+1 {
		t.Fatalf("expected version %d, got %d", strat.Version+1, updated.Version)
	}
	if updated.CreatedAt != strat.CreatedAt {
		t.Fatalf("expected created_at preserved")
	}
	if updated.Name != "Renamed" {
		t.Fatalf("expected mutate to apply, got %+v", updated)
	}
}

func TestStrategies_UpdateMutateErrorAbortsWithoutBumpingVersion(t *testing.T) {
	strats := NewStrategies()
	strat, _ := strats.Create(context.Background(), "owner1", "", "My Strategy", []string{"AAPL"})

	_, err := strats.Update(context.Background(), strat.ID, func(s *model.Strategy) error {
		return apierr.InvalidRoleErr("bogus")
	})
	if err == nil {
		t.Fatal("expected an error")
	}

	reloaded, getErr := strats.Get(context.Background(), strat.ID)
	if getErr != nil {
		t.Fatalf("unexpected error: %v", getErr)
	}
	if reloaded.Version != 1 {
		t.Fatalf("expected version unchanged at 1, got %d", reloaded.Version)
	}
}

func TestStrategies_FindByThreadAndOwner(t *testing.T) {
	strats := NewStrategies()
	a, _ := strats.Create(context.Background(), "owner1", "thread1", "A", []string{"AAPL"})
	_, _ = strats.Create(context.Background(), "owner2", "thread2", "B", []string{"MSFT"})

	byThread, err := strats.FindByThread(context.Background(), "thread1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(byThread) != 1 || byThread[0].ID != a.ID {
		t.Fatalf("expected exactly strategy A, got %+v", byThread)
	}

	byOwner, err := strats.FindByOwner(context.Background(), "owner2")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(byOwner) != 1 || byOwner[0].Name != "B" {
		t.Fatalf("expected exactly strategy B, got %+v", byOwner)
	}
}

func TestStrategies_GetUnknownIDIsStrategyNotFound(t *testing.T) {
	strats := NewStrategies()
	_, err := strats.Get(context.Background(), "missing")
	assertCode(t, err, apierr.StrategyNotFound)
}

func assertCode(t *testing.T, err error, code apierr.Code) {
	t.Helper()
	if err == nil {
		t.Fatal("expected an error")
	}
	apiErr, ok := err.(*apierr.Error)
	if !ok {
		t.Fatalf("expected *apierr.Error, got %T", err)
	}
	if apiErr.Code != code {
		t.Fatalf("expected code %s, got %s", code, apiErr.Code)
	}
}

// Package memory is the in-process implementation of store.Cards and
// store.Strategies: the one persistence layer this repo owns end to end. A
// real document-store driver (Firestore, per spec.md's configuration
// surface) is an external collaborator and is not implemented here — see
// DESIGN.md.
package memory

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/algomatic/strategy-compiler/internal/apierr"
	"github.com/algomatic/strategy-compiler/internal/model"
)

// nowFunc is overridable in tests; production always uses time.Now.
var nowFunc = func() time.Time { return time.Now().UTC() }

func timestamp() string {
	return nowFunc().Format(time.RFC3339Nano)
}

// Cards is an in-memory, mutex-guarded store.Cards.
type Cards struct {
	mu   sync.Mutex
	byID map[string]model.Card
}

// NewCards returns an empty Cards store.
func NewCards() *Cards {
	return &Cards{byID: make(map[string]model.Card)}
}

func (c *Cards) Create(ctx context.Context, typeID string, slots map[string]any, schemaEtag string) (model.Card, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := timestamp()
	card := model.Card{
		ID:         uuid.NewString(),
		Type:       typeID,
		Slots:      slots,
		SchemaEtag: schemaEtag,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	c.byID[card.ID] = card
	return card, nil
}

func (c *Cards) Get(ctx context.Context, id string) (model.Card, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	card, ok := c.byID[id]
	if !ok {
		return model.Card{}, apierr.NotFoundErr("Card", id, "Call list_cards to see existing card ids.")
	}
	return card, nil
}

func (c *Cards) List(ctx context.Context) ([]model.Card, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	out := make([]model.Card, 0, len(c.byID))
	for _, card := range c.byID {
		out = append(out, card)
	}
	return out, nil
}

func (c *Cards) Update(ctx context.Context, id string, slots map[string]any, schemaEtag string) (model.Card, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	card, ok := c.byID[id]
	if !ok {
		return model.Card{}, apierr.NotFoundErr("Card", id, "Call list_cards to see existing card ids.")
	}
	card.Slots = slots
	card.SchemaEtag = schemaEtag
	card.UpdatedAt = timestamp()
	c.byID[id] = card
	return card, nil
}

func (c *Cards) Delete(ctx context.Context, id string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, ok := c.byID[id]; !ok {
		return apierr.NotFoundErr("Card", id, "Call list_cards to see existing card ids.")
	}
	delete(c.byID, id)
	return nil
}

// Strategies is an in-memory, mutex-guarded store.Strategies.
type Strategies struct {
	mu   sync.Mutex
	byID map[string]model.Strategy
}

// NewStrategies returns an empty Strategies store.
func NewStrategies() *Strategies {
	return &Strategies{byID: make(map[string]model.Strategy)}
}

func (s *Strategies) Create(ctx context.Context, ownerID, threadID, name string, universe []string) (model.Strategy, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := timestamp()
	strat := model.Strategy{
		ID:          uuid.NewString(),
		OwnerID:     ownerID,
		ThreadID:    threadID,
		Name:        name,
		Status:      model.StatusDraft,
		Universe:    universe,
		Attachments: nil,
		Version:     1,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	s.byID[strat.ID] = strat
	return strat, nil
}

func (s *Strategies) Get(ctx context.Context, id string) (model.Strategy, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	strat, ok := s.byID[id]
	if !ok {
		return model.Strategy{}, apierr.NotFoundErr("Strategy", id, "Call list_strategies to see existing strategy ids.")
	}
	return strat, nil
}

func (s *Strategies) List(ctx context.Context) ([]model.Strategy, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]model.Strategy, 0, len(s.byID))
	for _, strat := range s.byID {
		out = append(out, strat)
	}
	return out, nil
}

// Update applies mutate to the stored strategy and persists the result,
// bumping version by exactly 1 and refreshing updated_at. created_at is
// never touched. Single-document last-writer-wins: there is no
// compare-and-swap against a caller-observed version.
func (s *Strategies) Update(ctx context.Context, id string, mutate func(*model.Strategy) error) (model.Strategy, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	strat, ok := s.byID[id]
	if !ok {
		return model.Strategy{}, apierr.NotFoundErr("Strategy", id, "Call list_strategies to see existing strategy ids.")
	}
	if err := mutate(&strat); err != nil {
		return model.Strategy{}, err
	}
	strat.Version++
	strat.UpdatedAt = timestamp()
	s.byID[id] = strat
	return strat, nil
}

func (s *Strategies) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.byID[id]; !ok {
		return apierr.NotFoundErr("Strategy", id, "Call list_strategies to see existing strategy ids.")
	}
	delete(s.byID, id)
	return nil
}

func (s *Strategies) FindByThread(ctx context.Context, threadID string) ([]model.Strategy, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []model.Strategy
	for _, strat := range s.byID {
		if strat.ThreadID == threadID {
			out = append(out, strat)
		}
	}
	return out, nil
}

func (s *Strategies) FindByOwner(ctx context.Context, ownerID string) ([]model.Strategy, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []model.Strategy
	for _, strat := range s.byID {
		if strat.OwnerID == ownerID {
			out = append(out, strat)
		}
	}
	return out, nil
}

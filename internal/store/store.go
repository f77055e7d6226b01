// Package store defines the persistence interfaces for cards and strategies
// (component B). The shape mirrors a document store (one collection per
// aggregate, documents keyed by id) so that a Firestore-backed
// implementation — the external collaborator this repo does not own, per
// spec.md §1 — can be swapped in as a constructor change only; see
// store/memory for the in-process implementation this repo owns end to end.
package store

import (
	"context"

	"github.com/algomatic/strategy-compiler/internal/model"
)

// Cards persists and retrieves Card aggregates.
type Cards interface {
	Create(ctx context.Context, typeID string, slots map[string]any, schemaEtag string) (model.Card, error)
	Get(ctx context.Context, id string) (model.Card, error)
	List(ctx context.Context) ([]model.Card, error)
	Update(ctx context.Context, id string, slots map[string]any, schemaEtag string) (model.Card, error)
	Delete(ctx context.Context, id string) error
}

// Strategies persists and retrieves Strategy aggregates.
type Strategies interface {
	Create(ctx context.Context, ownerID, threadID, name string, universe []string) (model.Strategy, error)
	Get(ctx context.Context, id string) (model.Strategy, error)
	List(ctx context.Context) ([]model.Strategy, error)
	Update(ctx context.Context, id string, mutate func(*model.Strategy) error) (model.Strategy, error)
	Delete(ctx context.Context, id string) error
	FindByThread(ctx context.Context, threadID string) ([]model.Strategy, error)
	FindByOwner(ctx context.Context, ownerID string) ([]model.Strategy, error)
}

// Package service wires the catalog, card/strategy stores, and compiler
// into the single struct that implements every operation of the tool
// surface (component H). It is constructed once in main and holds no
// package-level state, replacing the module-level singleton pattern the
// teacher corpus uses for its persistence client.
package service

import (
	"context"
	"log/slog"

	"github.com/algomatic/strategy-compiler/internal/apierr"
	"github.com/algomatic/strategy-compiler/internal/catalog"
	"github.com/algomatic/strategy-compiler/internal/compiler"
	"github.com/algomatic/strategy-compiler/internal/model"
	"github.com/algomatic/strategy-compiler/internal/store"
	"github.com/algomatic/strategy-compiler/internal/validate"
)

// Service is the single entry point for every archetype/card/strategy
// operation. Transports (internal/httpapi, internal/mcpapi) are thin
// wrappers around it and add no semantics of their own.
type Service struct {
	catalog    *catalog.Catalog
	cards      store.Cards
	strategies store.Strategies
	compiler   *compiler.Compiler
	logger     *slog.Logger
}

// New builds a Service from its dependencies. The compiler is built here
// from cards and catalog so callers only need to supply the two stores.
func New(cat *catalog.Catalog, cards store.Cards, strategies store.Strategies, logger *slog.Logger) *Service {
	return &Service{
		catalog:    cat,
		cards:      cards,
		strategies: strategies,
		compiler:   compiler.New(cards, cat),
		logger:     logger,
	}
}

// GetArchetypes lists archetypes, optionally filtered by kind.
func (s *Service) GetArchetypes(ctx context.Context, kind string) ([]model.Archetype, error) {
	return s.catalog.ListArchetypes(kind)
}

// GetArchetypeSchema returns an archetype's schema. ifNoneMatch is accepted
// for interface parity with a conditional-GET caller but never short-
// circuits: the full schema is always returned.
func (s *Service) GetArchetypeSchema(ctx context.Context, typeID, ifNoneMatch string) (model.ArchetypeSchema, error) {
	return s.catalog.GetSchema(typeID, ifNoneMatch)
}

// GetSchemaExample returns one worked example for an archetype.
func (s *Service) GetSchemaExample(ctx context.Context, typeID string, exampleIndex int) (model.SchemaExample, error) {
	return s.catalog.GetExample(typeID, exampleIndex)
}

// ValidateSlotsDraft runs the slot validator directly against a draft slot
// tree for typeID, without requiring a card to already exist.
func (s *Service) ValidateSlotsDraft(ctx context.Context, typeID string, slots map[string]any) (valid bool, errs []validate.Error, schemaEtag string, err error) {
	schema, err := s.catalog.GetSchema(typeID, "")
	if err != nil {
		return false, nil, "", err
	}
	commonDefs, err := s.catalog.CommonDefs()
	if err != nil {
		return false, nil, "", err
	}
	validationErrs, err := validate.Validate(slots, schema.JSONSchema, commonDefs)
	if err != nil {
		return false, nil, "", apierr.Internal(err.Error())
	}
	return len(validationErrs) == 0, validationErrs, schema.Etag, nil
}

// CreateCardInput is the request shape for CreateCard. StrategyID is
// optional: when set, the created card is also attached to that strategy in
// the same call, using Role/Overrides/FollowLatest/Enabled exactly as
// AddCardInput does.
type CreateCardInput struct {
	Type         string
	Slots        map[string]any
	StrategyID   string
	Role         string
	Overrides    map[string]any
	FollowLatest bool
	Enabled      bool
}

// CreateCard validates slots against the archetype's current schema and
// persists a new card. The schema_etag is always the catalog's current
// value for the type — a client-supplied etag is never trusted. When
// in.StrategyID is set, the new card is attached before it is returned; an
// attach failure (e.g. INVALID_ROLE, unknown strategy) is returned in place
// of the created card, though the card itself remains persisted.
func (s *Service) CreateCard(ctx context.Context, in CreateCardInput) (model.Card, error) {
	card, err := s.createCard(ctx, in.Type, in.Slots)
	if err != nil {
		return model.Card{}, err
	}
	if in.StrategyID != "" {
		if _, err := s.attachCard(ctx, in.StrategyID, card, in.Role, in.Overrides, in.FollowLatest, in.Enabled); err != nil {
			return model.Card{}, err
		}
	}
	return card, nil
}

func (s *Service) createCard(ctx context.Context, typeID string, slots map[string]any) (model.Card, error) {
	schema, err := s.catalog.GetSchema(typeID, "")
	if err != nil {
		return model.Card{}, err
	}
	if err := s.validateOrReject(typeID, slots, schema); err != nil {
		return model.Card{}, err
	}
	return s.cards.Create(ctx, typeID, slots, schema.Etag)
}

// GetCard fetches a card by id.
func (s *Service) GetCard(ctx context.Context, id string) (model.Card, error) {
	return s.cards.Get(ctx, id)
}

// ListCards lists all cards.
func (s *Service) ListCards(ctx context.Context) ([]model.Card, error) {
	return s.cards.List(ctx)
}

// UpdateCard re-validates slots against the card's archetype schema and
// persists the new slots, re-stamping schema_etag from the catalog.
func (s *Service) UpdateCard(ctx context.Context, id string, slots map[string]any) (model.Card, error) {
	existing, err := s.cards.Get(ctx, id)
	if err != nil {
		return model.Card{}, err
	}
	schema, err := s.catalog.GetSchema(existing.Type, "")
	if err != nil {
		return model.Card{}, err
	}
	if err := s.validateOrReject(existing.Type, slots, schema); err != nil {
		return model.Card{}, err
	}
	return s.cards.Update(ctx, id, slots, schema.Etag)
}

// DeleteCard removes a card. Attachments referencing it are not cascaded;
// the next compile of a strategy that still references it will surface
// CARD_NOT_FOUND for that attachment.
func (s *Service) DeleteCard(ctx context.Context, id string) error {
	return s.cards.Delete(ctx, id)
}

func (s *Service) validateOrReject(typeID string, slots map[string]any, schema model.ArchetypeSchema) error {
	commonDefs, err := s.catalog.CommonDefs()
	if err != nil {
		return err
	}
	errs, err := validate.Validate(slots, schema.JSONSchema, commonDefs)
	if err != nil {
		return apierr.Internal(err.Error())
	}
	if len(errs) > 0 {
		return apierr.SchemaValidationErr(typeID, validate.Strings(errs), "")
	}
	return nil
}

// CreateStrategy creates a new strategy in draft status.
func (s *Service) CreateStrategy(ctx context.Context, ownerID, threadID, name string, universe []string) (model.Strategy, error) {
	return s.strategies.Create(ctx, ownerID, threadID, name, universe)
}

// GetStrategy fetches a strategy by id.
func (s *Service) GetStrategy(ctx context.Context, id string) (model.Strategy, error) {
	return s.strategies.Get(ctx, id)
}

// ListStrategies lists all strategies.
func (s *Service) ListStrategies(ctx context.Context) ([]model.Strategy, error) {
	return s.strategies.List(ctx)
}

// DeleteStrategy removes a strategy. Its attachments are embedded and are
// removed with it; referenced cards are independent aggregates and are
// untouched.
func (s *Service) DeleteStrategy(ctx context.Context, id string) error {
	return s.strategies.Delete(ctx, id)
}

// FindStrategiesByThread returns every strategy sharing threadID.
func (s *Service) FindStrategiesByThread(ctx context.Context, threadID string) ([]model.Strategy, error) {
	return s.strategies.FindByThread(ctx, threadID)
}

// FindStrategiesByOwner returns every strategy owned by ownerID.
func (s *Service) FindStrategiesByOwner(ctx context.Context, ownerID string) ([]model.Strategy, error) {
	return s.strategies.FindByOwner(ctx, ownerID)
}

// UpdateStrategyMeta updates a strategy's name/status/universe. An empty
// name or status leaves the corresponding field untouched; an invalid
// status is rejected with VALIDATION_ERROR before the store is touched.
func (s *Service) UpdateStrategyMeta(ctx context.Context, id string, name string, status string, universe []string) (model.Strategy, error) {
	if status != "" && !model.ValidStatus(status) {
		return model.Strategy{}, apierr.ValidationErr(
			"invalid status",
			"Pass one of draft, ready, running, paused, stopped, error.",
			map[string]any{"status": status},
		)
	}
	return s.strategies.Update(ctx, id, func(strat *model.Strategy) error {
		if name != "" {
			strat.Name = name
		}
		if status != "" {
			strat.Status = model.Status(status)
		}
		if universe != nil {
			strat.Universe = universe
		}
		return nil
	})
}

// AddCardInput is the request shape for AddCard: role is inferred from the
// new card's archetype kind when empty.
type AddCardInput struct {
	Type         string
	Slots        map[string]any
	Role         string
	Overrides    map[string]any
	FollowLatest bool
	Enabled      bool
}

// AddCard is the composite create-card-then-attach operation: it persists a
// new card from (type, slots) exactly as CreateCard would, then attaches it
// to strategyID. When role is empty it is inferred from the card's
// archetype kind prefix (entry./exit./gate./overlay.); a supplied role
// outside the four-role set is rejected with INVALID_ROLE. follow_latest=
// false pins the attachment to the just-created card's own updated_at, so
// the pin can never mismatch on the same call.
func (s *Service) AddCard(ctx context.Context, strategyID string, in AddCardInput) (model.Strategy, error) {
	card, err := s.createCard(ctx, in.Type, in.Slots)
	if err != nil {
		return model.Strategy{}, err
	}
	return s.attachCard(ctx, strategyID, card, in.Role, in.Overrides, in.FollowLatest, in.Enabled)
}

// attachCard appends an attachment for card to strategyID, inferring role
// from the card's archetype kind when role is empty and pinning
// card_revision_id to the card's current updated_at unless followLatest.
func (s *Service) attachCard(ctx context.Context, strategyID string, card model.Card, role string, overrides map[string]any, followLatest, enabled bool) (model.Strategy, error) {
	if role == "" {
		archetype, err := s.catalog.GetArchetype(card.Type)
		if err != nil {
			role = string(kindFromTypeID(card.Type))
		} else {
			role = string(archetype.Kind())
		}
	}
	if !model.ValidRole(role) {
		return model.Strategy{}, apierr.InvalidRoleErr(role)
	}

	var revisionID string
	if !followLatest {
		revisionID = card.UpdatedAt
	}

	att := model.Attachment{
		CardID:         card.ID,
		Role:           model.Role(role),
		Enabled:        enabled,
		Overrides:      overrides,
		FollowLatest:   followLatest,
		CardRevisionID: revisionID,
	}

	return s.strategies.Update(ctx, strategyID, func(strat *model.Strategy) error {
		strat.Attachments = append(strat.Attachments, att)
		return nil
	})
}

func kindFromTypeID(typeID string) model.Kind {
	for i := 0; i < len(typeID); i++ {
		if typeID[i] == '.' {
			return model.Kind(typeID[:i])
		}
	}
	return model.Kind(typeID)
}

// ValidateStrategy runs the compiler pipeline but never returns a populated
// Compiled plan, matching spec.md's treatment of validate_strategy as a dry
// run over the same pipeline as CompileStrategy.
func (s *Service) ValidateStrategy(ctx context.Context, id string) (model.CompileResult, error) {
	strat, err := s.strategies.Get(ctx, id)
	if err != nil {
		return model.CompileResult{}, err
	}
	return s.compiler.Compile(ctx, strat, false)
}

// CompileStrategy runs the compiler pipeline and, when the result is ready,
// returns the full CompiledStrategy plan.
func (s *Service) CompileStrategy(ctx context.Context, id string) (model.CompileResult, error) {
	strat, err := s.strategies.Get(ctx, id)
	if err != nil {
		return model.CompileResult{}, err
	}
	return s.compiler.Compile(ctx, strat, true)
}

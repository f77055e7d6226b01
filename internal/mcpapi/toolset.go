package mcpapi

import (
	"net/http"
	"time"

	"github.com/algomatic/strategy-compiler/internal/model"
	"github.com/algomatic/strategy-compiler/internal/service"
	"github.com/algomatic/strategy-compiler/internal/validate"
)

func svcCreateCardInput(args map[string]any) service.CreateCardInput {
	return service.CreateCardInput{
		Type:         argString(args, "type"),
		Slots:        argObject(args, "slots"),
		StrategyID:   argString(args, "strategy_id"),
		Role:         argString(args, "role"),
		Overrides:    argObject(args, "overrides"),
		FollowLatest: argBool(args, "follow_latest"),
		Enabled:      argBoolDefault(args, "enabled", true),
	}
}

func svcAddCardInput(args map[string]any) service.AddCardInput {
	return service.AddCardInput{
		Type:         argString(args, "type"),
		Slots:        argObject(args, "slots"),
		Role:         argString(args, "role"),
		Overrides:    argObject(args, "overrides"),
		FollowLatest: argBool(args, "follow_latest"),
		Enabled:      argBoolDefault(args, "enabled", true),
	}
}

// archetypesResponse is the documented get_archetypes return shape: the
// listing plus the instant it was produced.
type archetypesResponse struct {
	Types []model.Archetype `json:"types"`
	AsOf  string            `json:"as_of"`
}

// schemaExampleResponse is the documented get_schema_example return shape.
type schemaExampleResponse struct {
	TypeID           string         `json:"type_id"`
	ExampleSlots     map[string]any `json:"example_slots"`
	HumanDescription string         `json:"human_description,omitempty"`
	SchemaEtag       string         `json:"schema_etag"`
}

// buildToolset enumerates every spec.md EXTERNAL INTERFACES tool surface
// operation except GET /api/strategies/{id}, which internal/httpapi serves
// directly. Each entry pairs a JSON-Schema input shape (for tools/list) with
// a handler (for tools/call); both read from the same args map so the two
// never drift apart.
func (s *Server) buildToolset() (map[string]toolHandler, []tool) {
	defs := []struct {
		name        string
		description string
		schema      map[string]any
		handler     toolHandler
	}{
		{
			"get_archetypes",
			"List archetypes, optionally filtered by kind (entry, exit, gate, overlay).",
			objectSchema(map[string]any{"kind": stringProp()}, nil),
			handleGetArchetypes,
		},
		{
			"get_archetype_schema",
			"Fetch an archetype's JSON Schema and constraints.",
			objectSchema(map[string]any{
				"type":           stringProp(),
				"if_none_match":  stringProp(),
			}, []string{"type"}),
			handleGetArchetypeSchema,
		},
		{
			"get_schema_example",
			"Fetch one worked slot example for an archetype.",
			objectSchema(map[string]any{
				"type":          stringProp(),
				"example_index": map[string]any{"type": "integer"},
			}, []string{"type"}),
			handleGetSchemaExample,
		},
		{
			"validate_slots_draft",
			"Validate a draft slot tree against an archetype's schema without creating a card.",
			objectSchema(map[string]any{
				"type":  stringProp(),
				"slots": map[string]any{"type": "object"},
			}, []string{"type", "slots"}),
			handleValidateSlotsDraft,
		},
		{
			"create_card",
			"Create a new card instance of an archetype with filled slots. When strategy_id is given, also attaches it.",
			objectSchema(map[string]any{
				"type":          stringProp(),
				"slots":         map[string]any{"type": "object"},
				"strategy_id":   stringProp(),
				"role":          stringProp(),
				"overrides":     map[string]any{"type": "object"},
				"follow_latest": map[string]any{"type": "boolean"},
				"enabled":       map[string]any{"type": "boolean"},
			}, []string{"type", "slots"}),
			handleCreateCard,
		},
		{
			"get_card",
			"Fetch a card by id.",
			objectSchema(map[string]any{"id": stringProp()}, []string{"id"}),
			handleGetCard,
		},
		{
			"list_cards",
			"List every card.",
			objectSchema(map[string]any{}, nil),
			handleListCards,
		},
		{
			"update_card",
			"Re-validate and replace a card's slots.",
			objectSchema(map[string]any{
				"id":    stringProp(),
				"slots": map[string]any{"type": "object"},
			}, []string{"id", "slots"}),
			handleUpdateCard,
		},
		{
			"delete_card",
			"Delete a card by id. Does not cascade to strategies that reference it.",
			objectSchema(map[string]any{"id": stringProp()}, []string{"id"}),
			handleDeleteCard,
		},
		{
			"create_strategy",
			"Create a new strategy in draft status.",
			objectSchema(map[string]any{
				"owner_id":  stringProp(),
				"thread_id": stringProp(),
				"name":      stringProp(),
				"universe":  stringArraySchema(),
			}, []string{"name"}),
			handleCreateStrategy,
		},
		{
			"get_strategy",
			"Fetch a strategy by id (without its joined cards; use the HTTP endpoint for that).",
			objectSchema(map[string]any{"id": stringProp()}, []string{"id"}),
			handleGetStrategy,
		},
		{
			"list_strategies",
			"List strategies, optionally filtered by thread_id or owner_id.",
			objectSchema(map[string]any{
				"thread_id": stringProp(),
				"owner_id":  stringProp(),
			}, nil),
			handleListStrategies,
		},
		{
			"update_strategy_meta",
			"Update a strategy's name, status, and/or universe.",
			objectSchema(map[string]any{
				"id":       stringProp(),
				"name":     stringProp(),
				"status":   stringProp(),
				"universe": stringArraySchema(),
			}, []string{"id"}),
			handleUpdateStrategyMeta,
		},
		{
			"add_card",
			"Create a new card instance of an archetype and attach it to a strategy in one call.",
			objectSchema(map[string]any{
				"strategy_id":   stringProp(),
				"type":          stringProp(),
				"slots":         map[string]any{"type": "object"},
				"role":          stringProp(),
				"overrides":     map[string]any{"type": "object"},
				"follow_latest": map[string]any{"type": "boolean"},
				"enabled":       map[string]any{"type": "boolean"},
			}, []string{"strategy_id", "type", "slots"}),
			handleAddCard,
		},
		{
			"validate_strategy",
			"Run the compiler pipeline over a strategy without materializing the compiled plan.",
			objectSchema(map[string]any{"id": stringProp()}, []string{"id"}),
			handleValidateStrategy,
		},
		{
			"compile_strategy",
			"Run the compiler pipeline and, when ready, return the full compiled plan.",
			objectSchema(map[string]any{"id": stringProp()}, []string{"id"}),
			handleCompileStrategy,
		},
	}

	handlers := make(map[string]toolHandler, len(defs))
	tools := make([]tool, 0, len(defs))
	for _, d := range defs {
		handlers[d.name] = d.handler
		tools = append(tools, tool{Name: d.name, Description: d.description, InputSchema: d.schema})
	}
	return handlers, tools
}

func stringProp() map[string]any {
	return map[string]any{"type": "string"}
}

func stringArraySchema() map[string]any {
	return map[string]any{"type": "array", "items": map[string]any{"type": "string"}}
}

func objectSchema(properties map[string]any, required []string) map[string]any {
	schema := map[string]any{"type": "object", "properties": properties}
	if len(required) > 0 {
		schema["required"] = required
	}
	return schema
}

func handleGetArchetypes(s *Server, r *http.Request, args map[string]any) (any, error) {
	types, err := s.svc.GetArchetypes(r.Context(), argString(args, "kind"))
	if err != nil {
		return nil, err
	}
	return archetypesResponse{Types: types, AsOf: time.Now().UTC().Format(time.RFC3339)}, nil
}

func handleGetArchetypeSchema(s *Server, r *http.Request, args map[string]any) (any, error) {
	return s.svc.GetArchetypeSchema(r.Context(), argString(args, "type"), argString(args, "if_none_match"))
}

func handleGetSchemaExample(s *Server, r *http.Request, args map[string]any) (any, error) {
	typeID := argString(args, "type")
	example, err := s.svc.GetSchemaExample(r.Context(), typeID, argInt(args, "example_index", 0))
	if err != nil {
		return nil, err
	}
	schema, err := s.svc.GetArchetypeSchema(r.Context(), typeID, "")
	if err != nil {
		return nil, err
	}
	return schemaExampleResponse{
		TypeID:           typeID,
		ExampleSlots:     example.Slots,
		HumanDescription: example.Human,
		SchemaEtag:       schema.Etag,
	}, nil
}

func handleValidateSlotsDraft(s *Server, r *http.Request, args map[string]any) (any, error) {
	typeID := argString(args, "type")
	valid, errs, schemaEtag, err := s.svc.ValidateSlotsDraft(r.Context(), typeID, argObject(args, "slots"))
	if err != nil {
		return nil, err
	}
	return map[string]any{"type_id": typeID, "valid": valid, "errors": validate.Strings(errs), "schema_etag": schemaEtag}, nil
}

func handleCreateCard(s *Server, r *http.Request, args map[string]any) (any, error) {
	return s.svc.CreateCard(r.Context(), svcCreateCardInput(args))
}

func handleGetCard(s *Server, r *http.Request, args map[string]any) (any, error) {
	return s.svc.GetCard(r.Context(), argString(args, "id"))
}

func handleListCards(s *Server, r *http.Request, args map[string]any) (any, error) {
	return s.svc.ListCards(r.Context())
}

func handleUpdateCard(s *Server, r *http.Request, args map[string]any) (any, error) {
	return s.svc.UpdateCard(r.Context(), argString(args, "id"), argObject(args, "slots"))
}

func handleDeleteCard(s *Server, r *http.Request, args map[string]any) (any, error) {
	if err := s.svc.DeleteCard(r.Context(), argString(args, "id")); err != nil {
		return nil, err
	}
	return map[string]any{"deleted": true}, nil
}

func handleCreateStrategy(s *Server, r *http.Request, args map[string]any) (any, error) {
	return s.svc.CreateStrategy(r.Context(),
		argString(args, "owner_id"), argString(args, "thread_id"), argString(args, "name"), argStringSlice(args, "universe"))
}

func handleGetStrategy(s *Server, r *http.Request, args map[string]any) (any, error) {
	return s.svc.GetStrategy(r.Context(), argString(args, "id"))
}

func handleListStrategies(s *Server, r *http.Request, args map[string]any) (any, error) {
	threadID := argString(args, "thread_id")
	ownerID := argString(args, "owner_id")
	switch {
	case threadID != "":
		return s.svc.FindStrategiesByThread(r.Context(), threadID)
	case ownerID != "":
		return s.svc.FindStrategiesByOwner(r.Context(), ownerID)
	default:
		return s.svc.ListStrategies(r.Context())
	}
}

func handleUpdateStrategyMeta(s *Server, r *http.Request, args map[string]any) (any, error) {
	var universe []string
	if _, ok := args["universe"]; ok {
		universe = argStringSlice(args, "universe")
	}
	return s.svc.UpdateStrategyMeta(r.Context(), argString(args, "id"), argString(args, "name"), argString(args, "status"), universe)
}

func handleAddCard(s *Server, r *http.Request, args map[string]any) (any, error) {
	in := svcAddCardInput(args)
	return s.svc.AddCard(r.Context(), argString(args, "strategy_id"), in)
}

func handleValidateStrategy(s *Server, r *http.Request, args map[string]any) (any, error) {
	return s.svc.ValidateStrategy(r.Context(), argString(args, "id"))
}

func handleCompileStrategy(s *Server, r *http.Request, args map[string]any) (any, error) {
	return s.svc.CompileStrategy(r.Context(), argString(args, "id"))
}

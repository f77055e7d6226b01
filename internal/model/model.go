// Package model defines the core archetype/card/strategy data model shared
// by the catalog, the store, and the compiler.
package model

import "github.com/algomatic/strategy-compiler/internal/slottree"

// Kind is the archetype family derived from the prefix of an Archetype.ID.
type Kind string

const (
	KindEntry   Kind = "entry"
	KindExit    Kind = "exit"
	KindGate    Kind = "gate"
	KindOverlay Kind = "overlay"
)

// ValidKind reports whether k is one of the four archetype kinds.
func ValidKind(k string) bool {
	switch Kind(k) {
	case KindEntry, KindExit, KindGate, KindOverlay:
		return true
	}
	return false
}

// Role is the composition role a card plays when attached to a strategy.
// This specification commits to the four-role set; a source that also
// admits "sizing"/"risk" roles is rejected with INVALID_ROLE.
type Role string

const (
	RoleEntry   Role = "entry"
	RoleGate    Role = "gate"
	RoleExit    Role = "exit"
	RoleOverlay Role = "overlay"
)

// ValidRole reports whether r is one of the four composition roles.
func ValidRole(r string) bool {
	switch Role(r) {
	case RoleEntry, RoleGate, RoleExit, RoleOverlay:
		return true
	}
	return false
}

// ArchetypeHints carries lightweight usage hints for an archetype.
type ArchetypeHints struct {
	PreferredTFs []string `json:"preferred_tfs,omitempty"`
}

// Archetype is an immutable, catalog-owned strategy template descriptor.
type Archetype struct {
	ID            string         `json:"id"`
	Version       int            `json:"version"`
	Title         string         `json:"title"`
	Summary       string         `json:"summary"`
	Tags          []string       `json:"tags"`
	RequiredSlots []string       `json:"required_slots"`
	SchemaEtag    string         `json:"schema_etag"`
	Deprecated    bool           `json:"deprecated"`
	Hints         ArchetypeHints `json:"hints"`
	UpdatedAt     string         `json:"updated_at"`
}

// Kind derives the archetype kind from the id's "<kind>.<name>" prefix.
func (a Archetype) Kind() Kind {
	for i := 0; i < len(a.ID); i++ {
		if a.ID[i] == '.' {
			return Kind(a.ID[:i])
		}
	}
	return Kind(a.ID)
}

// SchemaConstraints bounds how much history a card needs and whether it is
// point-in-time safe.
type SchemaConstraints struct {
	MinHistoryBars *int    `json:"min_history_bars,omitempty"`
	PITSafe        *bool   `json:"pit_safe,omitempty"`
	WarmupHint     *string `json:"warmup_hint,omitempty"`
}

// SchemaExample is one worked example of slots for an archetype.
type SchemaExample struct {
	Human string         `json:"human"`
	Slots map[string]any `json:"slots"`
}

// ArchetypeSchema is the immutable, catalog-owned JSON Schema plus metadata
// for one archetype.
type ArchetypeSchema struct {
	TypeID        string            `json:"type_id"`
	SchemaVersion int               `json:"schema_version"`
	Etag          string            `json:"etag"`
	JSONSchema    map[string]any    `json:"json_schema"`
	Constraints   SchemaConstraints `json:"constraints"`
	SlotHints     map[string]any    `json:"slot_hints,omitempty"`
	Examples      []SchemaExample   `json:"examples"`
	Notes         []string          `json:"notes,omitempty"`
	UpdatedAt     string            `json:"updated_at"`
}

// MinHistoryBarsOr returns the schema's configured minimum history or the
// given default if unset.
func (s ArchetypeSchema) MinHistoryBarsOr(def int) int {
	if s.Constraints.MinHistoryBars == nil {
		return def
	}
	return *s.Constraints.MinHistoryBars
}

// Card is a mutable, persisted instance of an archetype with filled slots.
type Card struct {
	ID         string              `json:"id"`
	Type       string              `json:"type"`
	Slots      slottree.SlotTree   `json:"slots"`
	SchemaEtag string              `json:"schema_etag"`
	CreatedAt  string              `json:"created_at"`
	UpdatedAt  string              `json:"updated_at"`
}

// Attachment references a card from a strategy with a role and optional
// per-attachment overrides. Attachments are owned exclusively by their
// Strategy: they are embedded and have no independent identity.
type Attachment struct {
	CardID         string            `json:"card_id"`
	Role           Role              `json:"role"`
	Enabled        bool              `json:"enabled"`
	Overrides      slottree.SlotTree `json:"overrides,omitempty"`
	FollowLatest   bool              `json:"follow_latest"`
	CardRevisionID string            `json:"card_revision_id,omitempty"`
}

// Status is a Strategy's user-driven lifecycle state. The compiler does not
// enforce transitions between these.
type Status string

const (
	StatusDraft   Status = "draft"
	StatusReady   Status = "ready"
	StatusRunning Status = "running"
	StatusPaused  Status = "paused"
	StatusStopped Status = "stopped"
	StatusError   Status = "error"
)

// ValidStatus reports whether s is one of the six lifecycle states.
func ValidStatus(s string) bool {
	switch Status(s) {
	case StatusDraft, StatusReady, StatusRunning, StatusPaused, StatusStopped, StatusError:
		return true
	}
	return false
}

// Strategy is a mutable, persisted ordered set of attachments plus a
// universe and status.
type Strategy struct {
	ID          string       `json:"id"`
	OwnerID     string       `json:"owner_id,omitempty"`
	ThreadID    string       `json:"thread_id,omitempty"`
	Name        string       `json:"name"`
	Status      Status       `json:"status"`
	Universe    []string     `json:"universe"`
	Attachments []Attachment `json:"attachments"`
	Version     int          `json:"version"`
	CreatedAt   string       `json:"created_at"`
	UpdatedAt   string       `json:"updated_at"`
}

// Severity classifies an Issue as blocking compilation or merely advisory.
type Severity string

const (
	SeverityError   Severity = "error"
	SeverityWarning Severity = "warning"
)

// Issue is one compiler-reported problem with a strategy.
type Issue struct {
	Severity Severity `json:"severity"`
	Code     string   `json:"code"`
	Message  string   `json:"message"`
	Path     string   `json:"path,omitempty"`
}

// DataRequirement describes how much history the runtime must load for one
// (symbol, timeframe) pair.
type DataRequirement struct {
	Symbol        string  `json:"symbol"`
	TF            string  `json:"tf"`
	MinBars       int     `json:"min_bars"`
	LookbackHours float64 `json:"lookback_hours"`
}

// CompiledCard is the ephemeral, per-attachment output of the compiler.
type CompiledCard struct {
	Role              Role              `json:"role"`
	CardID            string            `json:"card_id"`
	CardRevisionID    string            `json:"card_revision_id,omitempty"`
	Type              string            `json:"type"`
	EffectiveSlots    slottree.SlotTree `json:"effective_slots"`
	CompiledCondition map[string]any    `json:"compiled_condition,omitempty"`
	ExecutionSpec     map[string]any    `json:"execution_spec,omitempty"`
	SizingSpec        map[string]any    `json:"sizing_spec,omitempty"`
}

// CompiledStrategy is the ephemeral runnable plan emitted when a strategy
// compiles with zero errors.
type CompiledStrategy struct {
	StrategyID       string            `json:"strategy_id"`
	Universe         []string          `json:"universe"`
	Cards            []CompiledCard    `json:"cards"`
	DataRequirements []DataRequirement `json:"data_requirements"`
}

// ValidationSummary tallies the issues raised by one compile/validate pass.
type ValidationSummary struct {
	Errors         int `json:"errors"`
	Warnings       int `json:"warnings"`
	CardsValidated int `json:"cards_validated"`
}

// StatusHint is the coarse-grained compile outcome.
type StatusHint string

const (
	StatusHintReady       StatusHint = "ready"
	StatusHintFixRequired StatusHint = "fix_required"
)

// CompileResult is the full output of compile_strategy/validate_strategy.
type CompileResult struct {
	StatusHint        StatusHint         `json:"status_hint"`
	Compiled          *CompiledStrategy  `json:"compiled,omitempty"`
	Issues            []Issue            `json:"issues"`
	ValidationSummary ValidationSummary  `json:"validation_summary"`
}

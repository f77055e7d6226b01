// Package catalog is the read-only archetype/schema store (component A). It
// loads per-kind archetype and schema documents plus a shared
// common-definitions pool once, normalizes the two accepted source shapes,
// and serves lookups from the in-memory result for the remainder of the
// process lifetime.
//
// The loader is invoked exactly once per Catalog, following the
// sync.Once-guarded cache pattern in
// volaticloud-volaticloud/internal/graph/schema_validator.go: callers never
// see a partially loaded catalog, and a load failure is remembered rather
// than retried on every lookup.
package catalog

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/algomatic/strategy-compiler/internal/apierr"
	"github.com/algomatic/strategy-compiler/internal/model"
)

// kinds is the fixed set of archetype kinds the catalog directory layout
// expects one archetype file and one schema file for.
var kinds = []string{"entry", "exit", "gate", "overlay"}

// LoadSourceFromDir reads a Source from dir, following the layout
// dir/archetypes/<kind>.json, dir/schemas/<kind>.json, and
// dir/common_defs.json. A missing per-kind file is skipped rather than
// treated as an error, since not every deployment ships all four kinds; a
// missing common_defs.json leaves CommonDefs unset.
func LoadSourceFromDir(dir string) (Source, error) {
	src := Source{
		ArchetypesByKind: map[string]json.RawMessage{},
		SchemasByKind:    map[string]json.RawMessage{},
	}

	for _, kind := range kinds {
		if raw, ok, err := readIfExists(filepath.Join(dir, "archetypes", kind+".json")); err != nil {
			return Source{}, err
		} else if ok {
			src.ArchetypesByKind[kind] = raw
		}

		if raw, ok, err := readIfExists(filepath.Join(dir, "schemas", kind+".json")); err != nil {
			return Source{}, err
		} else if ok {
			src.SchemasByKind[kind] = raw
		}
	}

	if raw, ok, err := readIfExists(filepath.Join(dir, "common_defs.json")); err != nil {
		return Source{}, err
	} else if ok {
		src.CommonDefs = raw
	}

	return src, nil
}

func readIfExists(path string) (json.RawMessage, bool, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("catalog: reading %s: %w", path, err)
	}
	return json.RawMessage(raw), true, nil
}

// Source is raw, unparsed catalog documents as read from disk or a remote
// object store: one archetype document and one schema document per kind,
// plus a single common-definitions document. Each archetype/schema document
// may be a bare JSON array or an object wrapping one (the two shapes this
// package normalizes).
type Source struct {
	ArchetypesByKind map[string]json.RawMessage
	SchemasByKind    map[string]json.RawMessage
	CommonDefs       json.RawMessage
}

// Catalog is the loaded, immutable archetype/schema lookup.
type Catalog struct {
	once sync.Once
	src  Source

	archetypes map[string]model.Archetype
	schemas    map[string]model.ArchetypeSchema
	commonDefs map[string]any
	loadErr    error
}

// New returns a Catalog that will lazily load src on first use.
func New(src Source) *Catalog {
	return &Catalog{src: src}
}

func (c *Catalog) ensureLoaded() error {
	c.once.Do(func() {
		c.loadErr = c.load()
	})
	return c.loadErr
}

func (c *Catalog) load() error {
	archetypes := make(map[string]model.Archetype)
	for kind, raw := range c.src.ArchetypesByKind {
		list, err := normalizeArchetypeDoc(raw)
		if err != nil {
			return fmt.Errorf("catalog: archetypes for kind %q: %w", kind, err)
		}
		for _, a := range list {
			archetypes[a.ID] = a
		}
	}

	schemas := make(map[string]model.ArchetypeSchema)
	for kind, raw := range c.src.SchemasByKind {
		list, err := normalizeSchemaDoc(raw)
		if err != nil {
			return fmt.Errorf("catalog: schemas for kind %q: %w", kind, err)
		}
		for _, s := range list {
			schemas[s.TypeID] = s
		}
	}

	var commonDefs map[string]any
	if len(c.src.CommonDefs) > 0 {
		if err := json.Unmarshal(c.src.CommonDefs, &commonDefs); err != nil {
			return fmt.Errorf("catalog: common definitions: %w", err)
		}
	}

	for typeID := range archetypes {
		schema, ok := schemas[typeID]
		if !ok {
			return fmt.Errorf("catalog: archetype %q has no schema", typeID)
		}
		if len(schema.Examples) == 0 {
			return fmt.Errorf("catalog: schema %q has no examples", typeID)
		}
	}

	c.archetypes = archetypes
	c.schemas = schemas
	c.commonDefs = commonDefs
	return nil
}

// normalizeArchetypeDoc accepts either a bare JSON array of archetypes or an
// object of the shape {"archetypes": [...]}.
func normalizeArchetypeDoc(raw json.RawMessage) ([]model.Archetype, error) {
	var asArray []model.Archetype
	if err := json.Unmarshal(raw, &asArray); err == nil {
		return asArray, nil
	}
	var wrapped struct {
		Archetypes []model.Archetype `json:"archetypes"`
	}
	if err := json.Unmarshal(raw, &wrapped); err != nil {
		return nil, fmt.Errorf("neither a bare array nor {archetypes: [...]}: %w", err)
	}
	return wrapped.Archetypes, nil
}

// normalizeSchemaDoc accepts either a bare JSON array of schemas or an
// object of the shape {"schemas": [...]}.
func normalizeSchemaDoc(raw json.RawMessage) ([]model.ArchetypeSchema, error) {
	var asArray []model.ArchetypeSchema
	if err := json.Unmarshal(raw, &asArray); err == nil {
		return asArray, nil
	}
	var wrapped struct {
		Schemas []model.ArchetypeSchema `json:"schemas"`
	}
	if err := json.Unmarshal(raw, &wrapped); err != nil {
		return nil, fmt.Errorf("neither a bare array nor {schemas: [...]}: %w", err)
	}
	return wrapped.Schemas, nil
}

// ListArchetypes returns non-deprecated archetypes, optionally filtered by
// kind, sorted by id for a stable listing order. A non-empty kind outside
// {entry,exit,gate,overlay} is rejected with a VALIDATION_ERROR.
func (c *Catalog) ListArchetypes(kind string) ([]model.Archetype, error) {
	if kind != "" && !model.ValidKind(kind) {
		return nil, apierr.ValidationErr(
			fmt.Sprintf("invalid kind %q", kind),
			"Pass one of entry, exit, gate, overlay, or omit kind to list every archetype.",
			map[string]any{"kind": kind},
		)
	}
	if err := c.ensureLoaded(); err != nil {
		return nil, apierr.Internal(fmt.Sprintf("catalog failed to load: %v", err))
	}
	out := make([]model.Archetype, 0, len(c.archetypes))
	for _, a := range c.archetypes {
		if a.Deprecated {
			continue
		}
		if kind != "" && string(a.Kind()) != kind {
			continue
		}
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// GetArchetype looks up one archetype by id.
func (c *Catalog) GetArchetype(typeID string) (model.Archetype, error) {
	if err := c.ensureLoaded(); err != nil {
		return model.Archetype{}, apierr.Internal(fmt.Sprintf("catalog failed to load: %v", err))
	}
	a, ok := c.archetypes[typeID]
	if !ok {
		return model.Archetype{}, apierr.NotFoundErr("Archetype", typeID, "Call get_archetypes to list valid archetype ids.")
	}
	return a, nil
}

// GetSchema looks up one schema by type id. ifNoneMatch is accepted for
// interface symmetry with a real HTTP-conditional caller but never produces
// a 304-equivalent short-circuit at this layer: the caller always gets the
// full schema back.
func (c *Catalog) GetSchema(typeID string, ifNoneMatch string) (model.ArchetypeSchema, error) {
	_ = ifNoneMatch
	if err := c.ensureLoaded(); err != nil {
		return model.ArchetypeSchema{}, apierr.Internal(fmt.Sprintf("catalog failed to load: %v", err))
	}
	s, ok := c.schemas[typeID]
	if !ok {
		return model.ArchetypeSchema{}, apierr.NotFoundErr("Schema", typeID, "Call get_archetypes to list valid archetype ids.")
	}
	return s, nil
}

// GetExample returns the schema example at index (default 0). An
// out-of-range index is a VALIDATION_ERROR, not a panic.
func (c *Catalog) GetExample(typeID string, index int) (model.SchemaExample, error) {
	schema, err := c.GetSchema(typeID, "")
	if err != nil {
		return model.SchemaExample{}, err
	}
	if index < 0 || index >= len(schema.Examples) {
		return model.SchemaExample{}, apierr.ValidationErr(
			fmt.Sprintf("example_index %d out of range for %q: has %d example(s)", index, typeID, len(schema.Examples)),
			"Pass an example_index between 0 and the schema's example count minus one.",
			map[string]any{"type_id": typeID, "example_index": index, "example_count": len(schema.Examples)},
		)
	}
	return schema.Examples[index], nil
}

// CommonDefs returns the shared common-definitions pool, or nil if none was
// configured. A nil pool is tolerated by the validator: any $ref that would
// have resolved against it simply fails as a validation error instead.
func (c *Catalog) CommonDefs() (map[string]any, error) {
	if err := c.ensureLoaded(); err != nil {
		return nil, apierr.Internal(fmt.Sprintf("catalog failed to load: %v", err))
	}
	return c.commonDefs, nil
}

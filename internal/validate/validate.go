// Package validate implements the slot validator (component C): deciding
// whether a slot tree satisfies an archetype's JSON-Schema-draft-07 document
// and, if not, producing human-readable, path-qualified reasons.
//
// Validation is delegated to github.com/xeipuuv/gojsonschema, the draft-07
// validator already in the retrieval pack (volaticloud-volaticloud's
// internal/freqtrade and internal/graph packages). $ref resolution against
// the shared common-definitions pool is wired through gojsonschema's
// SchemaLoader, which lets additional named schemas be registered before
// compiling the archetype's own schema document.
package validate

import (
	"fmt"
	"sort"

	"github.com/xeipuuv/gojsonschema"
)

// CommonDefsURI is the external $ref URI archetype schemas use to reach the
// shared common-definitions pool.
const CommonDefsURI = "common_defs.schema.json"

// Error is one path-qualified validation failure.
type Error struct {
	Path    string
	Message string
}

// String renders the error the way it is reported to callers: the path, a
// colon, then the message (which Validate has already suffixed with a
// parenthesized hint for whichever of enum/minimum/maximum applied at that
// point in the schema).
func (e Error) String() string {
	return fmt.Sprintf("%s: %s", e.Path, e.Message)
}

// Validate checks slots against jsonSchema (an archetype's json_schema
// field), resolving $ref both internally and against commonDefs (the
// common-definitions pool; nil is tolerated — any $ref that would have
// resolved against it simply fails as an ordinary validation error instead
// of panicking). It never returns a Go error for a missing external
// definition; that failure mode is surfaced as a validation Error.
func Validate(slots map[string]any, jsonSchema map[string]any, commonDefs map[string]any) ([]Error, error) {
	loader := gojsonschema.NewSchemaLoader()
	if commonDefs != nil {
		if err := loader.AddSchema(CommonDefsURI, gojsonschema.NewGoLoader(commonDefs)); err != nil {
			return []Error{{Path: "root", Message: fmt.Sprintf("common definitions pool is malformed: %v", err)}}, nil
		}
	}

	schema, err := loader.Compile(gojsonschema.NewGoLoader(jsonSchema))
	if err != nil {
		// A schema that references the (absent) common-definitions pool, or
		// that is otherwise malformed, fails validation rather than the
		// caller's request.
		return []Error{{Path: "root", Message: fmt.Sprintf("schema could not be compiled: %v", err)}}, nil
	}

	result, err := schema.Validate(gojsonschema.NewGoLoader(slots))
	if err != nil {
		return []Error{{Path: "root", Message: fmt.Sprintf("slots could not be validated: %v", err)}}, nil
	}

	if result.Valid() {
		return nil, nil
	}

	errs := make([]Error, 0, len(result.Errors()))
	for _, re := range result.Errors() {
		errs = append(errs, Error{
			Path:    normalizePath(re.Field()),
			Message: re.Description() + hintFor(re),
		})
	}
	// gojsonschema's ordering is already deterministic per its internal
	// traversal, but sort for stability across schema-library versions.
	sort.SliceStable(errs, func(i, j int) bool { return errs[i].Path < errs[j].Path })
	return errs, nil
}

func normalizePath(field string) string {
	if field == "" || field == "(root)" {
		return "root"
	}
	return field
}

// hintFor appends a parenthesized hint for whichever of enum/minimum/maximum
// applied at the failing node, matching spec.md §4.C.
func hintFor(re gojsonschema.ResultError) string {
	details := re.Details()
	if allowed, ok := details["allowed"]; ok {
		return fmt.Sprintf(" (enum: %v)", allowed)
	}
	if min, ok := details["min"]; ok {
		return fmt.Sprintf(" (minimum: %v)", min)
	}
	if max, ok := details["max"]; ok {
		return fmt.Sprintf(" (maximum: %v)", max)
	}
	return ""
}

// Strings renders errs as plain ordered messages, the shape compile_strategy
// and validate_slots_draft return to callers.
func Strings(errs []Error) []string {
	out := make([]string, len(errs))
	for i, e := range errs {
		out[i] = e.String()
	}
	return out
}


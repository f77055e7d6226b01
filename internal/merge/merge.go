// Package merge implements the deep-merge engine used to compute a card's
// effective slots: base card slots with a per-attachment override object
// applied on top.
//
// The source this is ported from merges by iterating override's keys and
// assigning unconditionally, which happens to preserve "override with null"
// semantics in a dynamically-typed language. A straightforward Go port using
// map[string]any is tempting to "simplify" by skipping nil values, which
// would silently break that contract. Value makes the three states a key can
// be in explicit: present-and-object (recurse), present-and-something-else
// including null (replace), or absent (leave base alone).
package merge

// Kind distinguishes how a merge key was observed in the override tree.
type Kind int

const (
	// Absent means the key was not present in the override object at all.
	Absent Kind = iota
	// Null means the key was present with a JSON null value.
	Null
	// Scalar means the key held a string, number, bool, or array.
	Scalar
	// Object means the key held a nested JSON object, eligible for recursive merge.
	Object
)

// Value is a tagged view of a single map entry, used internally to keep the
// Absent/Null distinction explicit while merging.
type Value struct {
	Kind   Kind
	Object map[string]any
	Scalar any
}

func classify(m map[string]any, key string) Value {
	v, ok := m[key]
	if !ok {
		return Value{Kind: Absent}
	}
	if v == nil {
		return Value{Kind: Null}
	}
	if obj, ok := v.(map[string]any); ok {
		return Value{Kind: Object, Object: obj}
	}
	return Value{Kind: Scalar, Scalar: v}
}

// Merge recursively merges override onto base: object-valued keys present in
// both recurse, any other override value (including null) replaces base's,
// arrays are replaced wholesale rather than concatenated, and base is never
// mutated.
func Merge(base, override map[string]any) map[string]any {
	result := make(map[string]any, len(base)+len(override))
	for k, v := range base {
		result[k] = v
	}

	for key := range override {
		ov := classify(override, key)
		switch ov.Kind {
		case Null:
			result[key] = nil
		case Object:
			bv := classify(base, key)
			if bv.Kind == Object {
				result[key] = Merge(bv.Object, ov.Object)
			} else {
				result[key] = deepCopyObject(ov.Object)
			}
		case Scalar:
			result[key] = ov.Scalar
		}
	}

	return result
}

func deepCopyObject(m map[string]any) map[string]any {
	out := make(map[string]any, len(m))
	for k, v := range m {
		if nested, ok := v.(map[string]any); ok {
			out[k] = deepCopyObject(nested)
		} else {
			out[k] = v
		}
	}
	return out
}

// Package slottree provides the opaque "any JSON" value used for card and
// attachment slot trees, plus ergonomic accessors for the handful of fixed
// paths the compiler cares about.
//
// Slot shapes are governed entirely by each archetype's JSON Schema; the
// validator is the authority, not the Go type system. Modeling each
// archetype's slots as a distinct struct would mean a type per archetype and
// a migration every time a schema gains a field. Instead a SlotTree is just
// decoded JSON (map[string]any / []any / string / float64 / bool / nil) with
// accessors for the paths the compiler reads directly.
package slottree

// SlotTree is a decoded JSON object: arbitrary nesting of maps, slices, and
// scalars. It is always the result of json.Unmarshal into map[string]any.
type SlotTree map[string]any

// Clone returns a deep copy of the tree so callers can merge into it without
// mutating the original.
func (t SlotTree) Clone() SlotTree {
	return cloneAny(map[string]any(t)).(map[string]any)
}

func cloneAny(v any) any {
	switch val := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(val))
		for k, v := range val {
			out[k] = cloneAny(v)
		}
		return out
	case []any:
		out := make([]any, len(val))
		for i, v := range val {
			out[i] = cloneAny(v)
		}
		return out
	default:
		return val
	}
}

// get walks a dotted sequence of object keys, returning the terminal value
// and whether every step along the way existed and was an object.
func get(tree map[string]any, path ...string) (any, bool) {
	var cur any = map[string]any(tree)
	for _, key := range path {
		m, ok := cur.(map[string]any)
		if !ok {
			return nil, false
		}
		cur, ok = m[key]
		if !ok {
			return nil, false
		}
	}
	return cur, true
}

func getString(tree map[string]any, path ...string) (string, bool) {
	v, ok := get(tree, path...)
	if !ok {
		return "", false
	}
	s, ok := v.(string)
	if !ok || s == "" {
		return "", false
	}
	return s, true
}

func getObject(tree map[string]any, path ...string) (map[string]any, bool) {
	v, ok := get(tree, path...)
	if !ok {
		return nil, false
	}
	m, ok := v.(map[string]any)
	return m, ok
}

// Symbol returns context.symbol.
func (t SlotTree) Symbol() (string, bool) {
	return getString(t, "context", "symbol")
}

// Timeframe returns context.tf.
func (t SlotTree) Timeframe() (string, bool) {
	return getString(t, "context", "tf")
}

// Condition returns the raw event.condition object, if present.
func (t SlotTree) Condition() (map[string]any, bool) {
	return getObject(t, "event", "condition")
}

// Regime returns the raw event.regime object, if present.
func (t SlotTree) Regime() (map[string]any, bool) {
	return getObject(t, "event", "regime")
}

// Execution returns action.execution, if present.
func (t SlotTree) Execution() (map[string]any, bool) {
	return getObject(t, "action", "execution")
}

// Sizing returns action.sizing, if present.
func (t SlotTree) Sizing() (map[string]any, bool) {
	return getObject(t, "action", "sizing")
}

// FollowerSymbol returns event.lead_follow.follower_symbol, used by the
// entry.intermarket_trigger single-asset carve-out.
func (t SlotTree) FollowerSymbol() (string, bool) {
	return getString(t, "event", "lead_follow", "follower_symbol")
}

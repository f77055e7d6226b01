// Package extract pulls and normalizes the event.condition, action.execution,
// and action.sizing sub-trees from a card's effective slots (component E).
// These are attached to each CompiledCard for downstream execution; they
// never cause compilation to fail on their own.
package extract

import "github.com/algomatic/strategy-compiler/internal/slottree"

// Condition returns the compiled_condition sub-spec, in order of
// precedence: event.condition verbatim if it carries a "type" field;
// event.condition wrapped as {type: "regime", regime: <it>} if it is a
// legacy "metric"-shaped RegimeSpec instead; the same two checks against
// event.regime; or nil if none apply.
func Condition(slots slottree.SlotTree) map[string]any {
	if cond, ok := slots.Condition(); ok {
		if _, hasType := cond["type"]; hasType {
			return cond
		}
		if _, legacyRegime := cond["metric"]; legacyRegime {
			return map[string]any{"type": "regime", "regime": cond}
		}
	}
	if regime, ok := slots.Regime(); ok {
		if _, hasType := regime["type"]; hasType {
			return regime
		}
		if _, legacyRegime := regime["metric"]; legacyRegime {
			return map[string]any{"type": "regime", "regime": regime}
		}
	}
	return nil
}

// Execution returns action.execution, or nil.
func Execution(slots slottree.SlotTree) map[string]any {
	exec, _ := slots.Execution()
	return exec
}

// Sizing returns action.sizing, or nil.
func Sizing(slots slottree.SlotTree) map[string]any {
	sizing, _ := slots.Sizing()
	return sizing
}

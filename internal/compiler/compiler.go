// Package compiler implements the strategy compiler (component F): it
// resolves each attachment's card, deep-merges overrides, validates the
// effective slots, extracts a runnable sub-spec per card, and checks
// strategy-wide composition and single-asset invariants.
package compiler

import (
	"context"
	"fmt"
	"sort"

	"github.com/algomatic/strategy-compiler/internal/catalog"
	"github.com/algomatic/strategy-compiler/internal/extract"
	"github.com/algomatic/strategy-compiler/internal/merge"
	"github.com/algomatic/strategy-compiler/internal/model"
	"github.com/algomatic/strategy-compiler/internal/slottree"
	"github.com/algomatic/strategy-compiler/internal/store"
	"github.com/algomatic/strategy-compiler/internal/validate"
)

// hoursPerBar maps a timeframe string to the number of wall-clock hours one
// bar covers. A timeframe absent from this table is treated as 1 hour with
// no additional issue.
var hoursPerBar = map[string]float64{
	"1m":  1.0 / 60.0,
	"5m":  5.0 / 60.0,
	"15m": 15.0 / 60.0,
	"1h":  1.0,
	"4h":  4.0,
	"1d":  24.0,
}

const defaultMinHistoryBars = 100

// Compiler resolves cards and schemas to turn a persisted Strategy into a
// CompiledStrategy plus any Issues found along the way.
type Compiler struct {
	cards   store.Cards
	catalog *catalog.Catalog
}

// New returns a Compiler backed by the given card store and catalog.
func New(cards store.Cards, cat *catalog.Catalog) *Compiler {
	return &Compiler{cards: cards, catalog: cat}
}

// Compile runs the full pipeline against an already-loaded strategy.
// includeCompiled controls whether a populated CompiledStrategy is returned
// when the result is otherwise ready: compile_strategy passes true,
// validate_strategy passes false so a would-be-ready compile never leaks
// the compiled plan from what is meant to be a dry run.
func (c *Compiler) Compile(ctx context.Context, strat model.Strategy, includeCompiled bool) (model.CompileResult, error) {
	var issues []model.Issue
	var compiledCards []model.CompiledCard
	dataReqs := make(map[symbolTF]int) // (symbol, tf) -> max min_bars

	for _, att := range strat.Attachments {
		if !att.Enabled {
			continue
		}

		card, issue, ok := c.resolveCard(ctx, att)
		if !ok {
			issues = append(issues, issue)
			continue
		}

		effective := slottree.SlotTree(merge.Merge(card.Slots, att.Overrides))

		schema, err := c.catalog.GetSchema(card.Type, "")
		if err != nil {
			issues = append(issues, model.Issue{
				Severity: model.SeverityError,
				Code:     "SCHEMA_NOT_FOUND",
				Message:  fmt.Sprintf("no schema registered for card type %q", card.Type),
				Path:     attachmentPath(att.CardID),
			})
			continue
		}

		commonDefs, err := c.catalog.CommonDefs()
		if err != nil {
			issues = append(issues, model.Issue{
				Severity: model.SeverityError,
				Code:     "SCHEMA_NOT_FOUND",
				Message:  err.Error(),
				Path:     attachmentPath(att.CardID),
			})
			continue
		}

		validationErrs, err := validate.Validate(effective, schema.JSONSchema, commonDefs)
		if err != nil {
			return model.CompileResult{}, fmt.Errorf("compiler: validating card %s: %w", att.CardID, err)
		}
		if len(validationErrs) > 0 {
			path := attachmentPath(att.CardID) + ".effective_slots"
			for _, ve := range validationErrs {
				issues = append(issues, model.Issue{
					Severity: model.SeverityError,
					Code:     "SLOT_VALIDATION_ERROR",
					Message:  ve.String(),
					Path:     path,
				})
			}
			continue
		}

		symbol, hasSymbol := effective.Symbol()
		tf, hasTF := effective.Timeframe()
		if !hasSymbol || !hasTF {
			issues = append(issues, model.Issue{
				Severity: model.SeverityError,
				Code:     "MISSING_CONTEXT",
				Message:  fmt.Sprintf("card %s is missing context.symbol or context.tf", att.CardID),
				Path:     attachmentPath(att.CardID),
			})
			continue
		}

		minBars := schema.MinHistoryBarsOr(defaultMinHistoryBars)
		key := symbolTF{symbol: symbol, tf: tf}
		if cur, ok := dataReqs[key]; !ok || minBars > cur {
			dataReqs[key] = minBars
		}

		compiledCards = append(compiledCards, model.CompiledCard{
			Role:              att.Role,
			CardID:            att.CardID,
			CardRevisionID:    att.CardRevisionID,
			Type:              card.Type,
			EffectiveSlots:    effective,
			CompiledCondition: extract.Condition(effective),
			ExecutionSpec:     extract.Execution(effective),
			SizingSpec:        extract.Sizing(effective),
		})
	}

	if len(strat.Universe) == 0 {
		issues = append(issues, model.Issue{
			Severity: model.SeverityError,
			Code:     "EMPTY_UNIVERSE",
			Message:  "strategy universe is empty",
		})
	}

	issues = append(issues, compositionIssues(compiledCards)...)
	issues = append(issues, singleAssetIssues(compiledCards, strat.Universe)...)

	summary := model.ValidationSummary{CardsValidated: len(compiledCards)}
	for _, iss := range issues {
		if iss.Severity == model.SeverityError {
			summary.Errors++
		} else {
			summary.Warnings++
		}
	}

	result := model.CompileResult{
		StatusHint:        model.StatusHintFixRequired,
		Issues:            issues,
		ValidationSummary: summary,
	}
	if summary.Errors == 0 {
		result.StatusHint = model.StatusHintReady
		if includeCompiled {
			result.Compiled = &model.CompiledStrategy{
				StrategyID:       strat.ID,
				Universe:         strat.Universe,
				Cards:            compiledCards,
				DataRequirements: flattenDataRequirements(dataReqs),
			}
		}
	}
	return result, nil
}

type symbolTF struct {
	symbol string
	tf     string
}

func attachmentPath(cardID string) string {
	return fmt.Sprintf("attachments[%s]", cardID)
}

// resolveCard resolves an attachment's card per follow_latest/pin rules. A
// false second return means resolution failed and issue carries the reason;
// the caller should record it and move to the next attachment.
func (c *Compiler) resolveCard(ctx context.Context, att model.Attachment) (model.Card, model.Issue, bool) {
	card, err := c.cards.Get(ctx, att.CardID)
	if err != nil {
		return model.Card{}, model.Issue{
			Severity: model.SeverityError,
			Code:     "CARD_NOT_FOUND",
			Message:  fmt.Sprintf("card %s not found", att.CardID),
			Path:     attachmentPath(att.CardID),
		}, false
	}
	if att.FollowLatest {
		return card, model.Issue{}, true
	}
	if att.CardRevisionID == "" || att.CardRevisionID != card.UpdatedAt {
		return model.Card{}, model.Issue{
			Severity: model.SeverityError,
			Code:     "CARD_REVISION_NOT_FOUND",
			Message:  fmt.Sprintf("card %s has no revision %q (current: %q)", att.CardID, att.CardRevisionID, card.UpdatedAt),
			Path:     attachmentPath(att.CardID),
		}, false
	}
	return card, model.Issue{}, true
}

func compositionIssues(cards []model.CompiledCard) []model.Issue {
	var entries, exits int
	for _, cc := range cards {
		switch cc.Role {
		case model.RoleEntry:
			entries++
		case model.RoleExit:
			exits++
		}
	}
	var issues []model.Issue
	if entries == 0 {
		issues = append(issues, model.Issue{Severity: model.SeverityError, Code: "NO_ENTRIES", Message: "strategy has no enabled entry cards"})
	}
	if exits == 0 {
		issues = append(issues, model.Issue{Severity: model.SeverityError, Code: "NO_EXITS", Message: "strategy has no enabled exit cards"})
	}
	if exits > 1 {
		issues = append(issues, model.Issue{Severity: model.SeverityError, Code: "MULTIPLE_EXITS", Message: fmt.Sprintf("strategy has %d enabled exit cards, expected at most 1", exits)})
	}
	return issues
}

// singleAssetIssues enforces the MVP single-asset invariant over entry
// cards only: a gate or overlay is permitted to reference a different
// context.symbol (a cross-asset regime filter, say) without counting as a
// second traded asset. An entry.intermarket_trigger card trades
// event.lead_follow.follower_symbol rather than its own context.symbol;
// every other entry card trades context.symbol. If that differs from the
// card's own context.symbol, the mismatch is reported but the follower
// symbol is still the one carried forward into the traded-symbol set.
func singleAssetIssues(cards []model.CompiledCard, universe []string) []model.Issue {
	var issues []model.Issue
	traded := make(map[string]bool)

	for _, cc := range cards {
		if cc.Role != model.RoleEntry {
			continue
		}
		symbol, _ := cc.EffectiveSlots.Symbol()
		tradedSymbol := symbol

		if cc.Type == "entry.intermarket_trigger" {
			if follower, ok := cc.EffectiveSlots.FollowerSymbol(); ok {
				if follower != symbol {
					issues = append(issues, model.Issue{
						Severity: model.SeverityError,
						Code:     "MVP_SINGLE_ASSET_VIOLATION",
						Message:  fmt.Sprintf("card %s trades follower symbol %q but context.symbol is %q", cc.CardID, follower, symbol),
						Path:     attachmentPath(cc.CardID),
					})
				}
				tradedSymbol = follower
			}
		}
		if tradedSymbol != "" {
			traded[tradedSymbol] = true
		}
	}

	if len(traded) > 1 {
		issues = append(issues, model.Issue{
			Severity: model.SeverityError,
			Code:     "MVP_MULTIPLE_ASSETS",
			Message:  fmt.Sprintf("strategy trades %d distinct symbols, this MVP supports exactly 1", len(traded)),
		})
		return issues
	}

	for symbol := range traded {
		if len(universe) != 1 || universe[0] != symbol {
			issues = append(issues, model.Issue{
				Severity: model.SeverityError,
				Code:     "MVP_UNIVERSE_MISMATCH",
				Message:  fmt.Sprintf("traded symbol %q does not match the strategy's singleton universe %v", symbol, universe),
			})
		}
	}
	return issues
}

func flattenDataRequirements(reqs map[symbolTF]int) []model.DataRequirement {
	out := make([]model.DataRequirement, 0, len(reqs))
	for key, minBars := range reqs {
		hours, ok := hoursPerBar[key.tf]
		if !ok {
			hours = 1.0
		}
		out = append(out, model.DataRequirement{
			Symbol:        key.symbol,
			TF:            key.tf,
			MinBars:       minBars,
			LookbackHours: float64(minBars) * hours,
		})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Symbol != out[j].Symbol {
			return out[i].Symbol < out[j].Symbol
		}
		return out[i].TF < out[j].TF
	})
	return out
}

// Package ledger derives views from a transaction snapshot: categories,
// merchant keys, recurring entries, card balances and dashboard aggregates.
// Everything here is pure; callers own I/O and state.
package ledger

import (
	"strings"

	"fintrack/internal/core"
)

// Classify returns the first category, in rule order, with a keyword
// contained in text. Matching is case-insensitive. Uncategorized is never
// matched by keyword and is returned when nothing else matches.
func Classify(text string, rules core.Rules) string {
	t := strings.ToLower(strings.TrimSpace(text))
	if t == "" {
		return core.Uncategorized
	}
	for _, rule := range rules {
		if rule.Category == core.Uncategorized {
			continue
		}
		for _, kw := range rule.Keywords {
			kw = strings.ToLower(strings.TrimSpace(kw))
			if kw != "" && strings.Contains(t, kw) {
				return rule.Category
			}
		}
	}
	return core.Uncategorized
}

// EntryTag returns the provenance tag of a manual entry: a rule tag when the
// chosen category is what the rules would pick for non-empty notes, manual
// otherwise.
func EntryTag(notes, category string, rules core.Rules) string {
	if strings.TrimSpace(notes) == "" {
		return core.ManualTag
	}
	auto := Classify(notes, rules)
	if auto != core.Uncategorized && auto == category {
		return core.RuleTag(category)
	}
	return core.ManualTag
}

package core

import "strings"

// Provenance tells how an entry's category was decided.
type Provenance int

const (
	ProvenanceNone Provenance = iota
	ProvenanceRule
	ProvenanceRecurring
	ProvenanceManual
)

const (
	rulePrefix      = "RULE:"
	recurringPrefix = "AUTO:"
	manualPrefix    = "MANUAL:"
)

// ManualTag marks a user-chosen category.
const ManualTag = manualPrefix + "1"

// RuleTag marks a category decided by keyword rules.
func RuleTag(category string) string { return rulePrefix + category }

// RecurringTag identifies the materialized entry of merchant key mk in month.
func RecurringTag(mk string, m Month) string {
	return recurringPrefix + mk + ":" + m.String()
}

// IsRecurringTag reports whether tag was written by the recurring materializer.
func IsRecurringTag(tag string) bool {
	return strings.HasPrefix(tag, recurringPrefix)
}

// ProvenanceOf classifies an AutoTag value.
func ProvenanceOf(tag string) Provenance {
	switch {
	case strings.HasPrefix(tag, recurringPrefix):
		return ProvenanceRecurring
	case strings.HasPrefix(tag, rulePrefix):
		return ProvenanceRule
	case strings.HasPrefix(tag, manualPrefix):
		return ProvenanceManual
	}
	return ProvenanceNone
}

func (p Provenance) String() string {
	switch p {
	case ProvenanceRule:
		return "rule"
	case ProvenanceRecurring:
		return "recurring"
	case ProvenanceManual:
		return "manual"
	}
	return "none"
}

// Label is the short display text for the provenance.
func (p Provenance) Label() string {
	switch p {
	case ProvenanceRecurring:
		return "🔁 Auto-recurring"
	case ProvenanceRule:
		return "🧠 Auto-categorized"
	case ProvenanceManual:
		return "✍️ Manual"
	}
	return "—"
}

package core

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// Admin table keys.
const (
	AdminKeyLockedMonths         = "locked_months"
	AdminKeyRulesText            = "rules_text"
	AdminKeyRulesLocked          = "rules_locked"
	AdminKeyRecurringPrefs       = "recurring_prefs"
	AdminKeyLegacyRecurringPrefs = "recurring_prefs_json"
)

// AdminConfig is the typed view of the admin key/value table.
type AdminConfig struct {
	LockedMonths   map[Month]bool
	Rules          Rules
	RulesLocked    bool
	RecurringPrefs []RecurringPreference
}

// DefaultAdminConfig is written on first access to an empty admin table.
func DefaultAdminConfig() AdminConfig {
	return AdminConfig{
		LockedMonths: map[Month]bool{},
		Rules:        DefaultRules(),
	}
}

// IsLocked reports whether m is closed for edits.
func (c AdminConfig) IsLocked(m Month) bool {
	return c.LockedMonths[m]
}

// SortedLockedMonths returns the locked months in ascending order.
func (c AdminConfig) SortedLockedMonths() []Month {
	out := make([]Month, 0, len(c.LockedMonths))
	for m, locked := range c.LockedMonths {
		if locked {
			out = append(out, m)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Before(out[j]) })
	return out
}

// ParseLockedMonths reads a comma separated month list; invalid entries are
// returned as warnings and skipped.
func ParseLockedMonths(s string) (map[Month]bool, []string) {
	locked := map[Month]bool{}
	var warnings []string
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		m, err := ParseMonth(part)
		if err != nil {
			warnings = append(warnings, fmt.Sprintf("ignoring locked month %q", part))
			continue
		}
		locked[m] = true
	}
	return locked, warnings
}

// FormatLockedMonths is the inverse of ParseLockedMonths.
func FormatLockedMonths(locked map[Month]bool) string {
	c := AdminConfig{LockedMonths: locked}
	months := c.SortedLockedMonths()
	parts := make([]string, len(months))
	for i, m := range months {
		parts[i] = m.String()
	}
	return strings.Join(parts, ",")
}

// DecodeAdminConfig builds the typed config from raw key/values. Missing keys
// take defaults; malformed values fall back to defaults and are reported as
// warnings rather than errors, so a damaged admin table never blocks reads.
func DecodeAdminConfig(values map[string]string) (AdminConfig, []string) {
	cfg := DefaultAdminConfig()
	var warnings []string

	if raw, ok := values[AdminKeyLockedMonths]; ok {
		locked, w := ParseLockedMonths(raw)
		cfg.LockedMonths = locked
		warnings = append(warnings, w...)
	}

	if raw, ok := values[AdminKeyRulesText]; ok && strings.TrimSpace(raw) != "" {
		rules, err := ParseRules(raw)
		if err != nil {
			warnings = append(warnings, fmt.Sprintf("stored rules are invalid, using defaults: %v", err))
		} else {
			cfg.Rules = rules
		}
	}

	cfg.RulesLocked = strings.EqualFold(strings.TrimSpace(values[AdminKeyRulesLocked]), "true")

	raw, ok := values[AdminKeyRecurringPrefs]
	if !ok || strings.TrimSpace(raw) == "" {
		raw = values[AdminKeyLegacyRecurringPrefs]
	}
	prefs, err := DecodePreferences(raw)
	if err != nil {
		warnings = append(warnings, fmt.Sprintf("stored recurring preferences are invalid, ignoring: %v", err))
	} else {
		cfg.RecurringPrefs = prefs
	}

	return cfg, warnings
}

// Encode renders the config as admin key/values.
func (c AdminConfig) Encode() (map[string]string, error) {
	prefs, err := EncodePreferences(c.RecurringPrefs)
	if err != nil {
		return nil, err
	}
	return map[string]string{
		AdminKeyLockedMonths:   FormatLockedMonths(c.LockedMonths),
		AdminKeyRulesText:      c.Rules.String(),
		AdminKeyRulesLocked:    fmt.Sprintf("%t", c.RulesLocked),
		AdminKeyRecurringPrefs: prefs,
	}, nil
}

// MissingAdminKeys returns the default values of keys absent from values.
func MissingAdminKeys(values map[string]string) (map[string]string, error) {
	defaults, err := DefaultAdminConfig().Encode()
	if err != nil {
		return nil, err
	}
	missing := map[string]string{}
	for k, v := range defaults {
		if _, ok := values[k]; ok {
			continue
		}
		if k == AdminKeyRecurringPrefs {
			if _, ok := values[AdminKeyLegacyRecurringPrefs]; ok {
				continue
			}
		}
		missing[k] = v
	}
	return missing, nil
}

// IsRulesParseError reports whether err came from ParseRules.
func IsRulesParseError(err error) bool {
	var pe *ParseError
	return errors.As(err, &pe)
}

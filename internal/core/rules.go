package core

import (
	"fmt"
	"strings"
)

// Uncategorized is the fallback category; it never matches by keyword.
const Uncategorized = "Uncategorized"

// Rule maps a category to the keywords that select it.
type Rule struct {
	Category string
	Keywords []string
}

// Rules is an ordered rule list: the first matching rule wins.
type Rules []Rule

// ParseError reports a malformed line of rules text.
type ParseError struct {
	Line   int
	Text   string
	Reason string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("rules line %d: %s (%q)", e.Line, e.Reason, e.Text)
}

var defaultRules = Rules{
	{"Salary", []string{"salary", "payroll", "pay", "direct deposit", "fis"}},
	{"Investment", []string{"tfsa", "fhsa", "rrsp", "investment", "contribution", "brokerage", "wealthsimple", "questrade"}},
	{"Rent", []string{"rent", "lease"}},
	{"Groceries", []string{"grocery", "superstore", "walmart", "costco", "freshco", "save on", "saveon", "no frills", "nofrills"}},
	{"Food/Coffee", []string{"restaurant", "pizza", "ubereats", "doordash", "tim hortons", "tims", "starbucks", "coffee", "cafe", "food"}},
	{"Fuel", []string{"fuel", "gas", "petro", "shell", "esso", "co-op", "coop", "costco gas"}},
	{"Car", []string{"lanpro", "service", "oil", "tire", "tyre", "alignment", "repair", "mercedes", "insurance"}},
	{"Utilities", []string{"hydro", "electric", "water", "internet", "wifi", "phone", "mobile", "bell", "rogers", "telus", "shaw"}},
	{"Shopping", []string{"amazon", "ikea", "bestbuy", "best buy", "mall", "shopping"}},
	{"Medical", []string{"pharmacy", "doctor", "clinic", "dental", "dentist", "hospital"}},
	{"Travel", []string{"flight", "hotel", "airbnb", "uber", "lyft", "taxi"}},
	{"India Transfer", []string{"wise", "remitly", "remit", "remittance", "money transfer", "india"}},
	{"Banking/Fees", []string{"fee", "charges", "interest", "bank fee", "nsf", "overdraft"}},
	{"Entertainment", []string{"netflix", "prime", "spotify", "movie", "theatre"}},
	{Uncategorized, nil},
}

// DefaultRules returns a fresh copy of the built-in rule list.
func DefaultRules() Rules {
	out := make(Rules, len(defaultRules))
	for i, r := range defaultRules {
		out[i] = Rule{Category: r.Category, Keywords: append([]string(nil), r.Keywords...)}
	}
	return out
}

// ParseRules parses "Category: kw1, kw2" lines. Blank lines and lines starting
// with '#' are skipped. Text with no rules yields DefaultRules, and
// Uncategorized is appended when absent.
func ParseRules(text string) (Rules, error) {
	var rules Rules
	seen := make(map[string]bool)
	for i, raw := range strings.Split(text, "\n") {
		line := strings.TrimSpace(raw)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		cat, kws, ok := strings.Cut(line, ":")
		if !ok {
			return nil, &ParseError{Line: i + 1, Text: line, Reason: "missing ':'"}
		}
		cat = strings.TrimSpace(cat)
		if cat == "" {
			return nil, &ParseError{Line: i + 1, Text: line, Reason: "empty category"}
		}
		key := strings.ToLower(cat)
		if seen[key] {
			return nil, &ParseError{Line: i + 1, Text: line, Reason: "duplicate category"}
		}
		seen[key] = true

		var keywords []string
		for _, k := range strings.Split(kws, ",") {
			if k = strings.TrimSpace(k); k != "" {
				keywords = append(keywords, k)
			}
		}
		rules = append(rules, Rule{Category: cat, Keywords: keywords})
	}
	if len(rules) == 0 {
		return DefaultRules(), nil
	}
	if !seen[strings.ToLower(Uncategorized)] {
		rules = append(rules, Rule{Category: Uncategorized})
	}
	return rules, nil
}

// Categories lists category names in rule order.
func (r Rules) Categories() []string {
	out := make([]string, 0, len(r))
	for _, rule := range r {
		out = append(out, rule.Category)
	}
	return out
}

// Has reports whether category is one of the rule categories.
func (r Rules) Has(category string) bool {
	for _, rule := range r {
		if rule.Category == category {
			return true
		}
	}
	return false
}

// String serializes the rules back to editable text, one rule per line.
func (r Rules) String() string {
	var b strings.Builder
	for i, rule := range r {
		if i > 0 {
			b.WriteByte('\n')
		}
		b.WriteString(rule.Category)
		b.WriteString(":")
		if len(rule.Keywords) > 0 {
			b.WriteString(" ")
			b.WriteString(strings.Join(rule.Keywords, ", "))
		}
	}
	return b.String()
}

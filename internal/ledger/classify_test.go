package ledger

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"fintrack/internal/core"
)

func TestClassifyEmptyIsUncategorized(t *testing.T) {
	for _, rules := range []core.Rules{nil, core.DefaultRules(), {{Category: "Any", Keywords: []string{"a", "e"}}}} {
		assert.Equal(t, core.Uncategorized, Classify("", rules))
		assert.Equal(t, core.Uncategorized, Classify("   ", rules))
	}
}

func TestClassifyFirstRuleWins(t *testing.T) {
	rules := core.DefaultRules()
	tests := []struct {
		text string
		want string
	}{
		{"COSTCO WHOLESALE #123", "Groceries"},
		{"Costco gas station", "Groceries"},
		{"Shell Canada", "Fuel"},
		{"Netflix.com", "Entertainment"},
		{"Tim Hortons 0042", "Food/Coffee"},
		{"wise transfer", "India Transfer"},
		{"random thing", core.Uncategorized},
		// "pay" is a Salary keyword and wins over later rules.
		{"PayPal purchase", "Salary"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Classify(tt.text, rules), tt.text)
	}
}

func TestClassifyNeverMatchesUncategorizedKeywords(t *testing.T) {
	rules := core.Rules{
		{Category: core.Uncategorized, Keywords: []string{"misc"}},
		{Category: "Misc", Keywords: []string{"misc"}},
	}
	assert.Equal(t, "Misc", Classify("misc stuff", rules))
}

func TestClassifyOrderMatters(t *testing.T) {
	a := core.Rules{{Category: "A", Keywords: []string{"shop"}}, {Category: "B", Keywords: []string{"shopping"}}}
	b := core.Rules{{Category: "B", Keywords: []string{"shopping"}}, {Category: "A", Keywords: []string{"shop"}}}
	assert.Equal(t, "A", Classify("Shopping mall", a))
	assert.Equal(t, "B", Classify("Shopping mall", b))
}

func TestEntryTag(t *testing.T) {
	rules := core.DefaultRules()
	assert.Equal(t, "RULE:Fuel", EntryTag("Shell station", "Fuel", rules))
	assert.Equal(t, core.ManualTag, EntryTag("Shell station", "Car", rules))
	assert.Equal(t, core.ManualTag, EntryTag("", "Fuel", rules))
	assert.Equal(t, core.ManualTag, EntryTag("unknown shop", core.Uncategorized, rules))
}

func TestMerchantKey(t *testing.T) {
	tests := []struct {
		text string
		want string
	}{
		{"NETFLIX.COM 866-579-7172", "netflix com"},
		{"Netflix", "netflix"},
		{"The Home Depot #4521", "home depot"},
		{"UBER *TRIP 12ab", "uber trip"},
		{"a to be", ""},
		{"", ""},
		{"12345 !!!", ""},
		{"Tim Hortons on Main St", "tim hortons"},
		{"Payment to my landlord for rent", "payment landlord"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, MerchantKey(tt.text), tt.text)
	}
}

func TestMerchantKeyIdempotent(t *testing.T) {
	for _, in := range []string{"netflix com", "home depot", "tim hortons", "spotify"} {
		assert.Equal(t, in, MerchantKey(in))
		assert.Equal(t, MerchantKey(in), MerchantKey(MerchantKey(in)))
	}
}

func TestTitle(t *testing.T) {
	assert.Equal(t, "Home Depot", Title("home depot"))
	assert.Equal(t, "", Title(""))
}

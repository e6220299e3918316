package ledger

import (
	"fmt"
	"sort"
	"strings"

	"fintrack/internal/core"
)

// MerchantCount is a merchant key with its row count.
type MerchantCount struct {
	Merchant string
	Count    int
}

// Insights is the ledger health report.
type Insights struct {
	Score                 int
	MissingLimits         []string
	EmptyNotes            int
	Uncategorized         int
	FrequentUncategorized []MerchantCount
	Recommendations       []string
}

const frequentUncategorizedN = 8

// ComputeInsights scores data quality out of 100: 7 points per account
// without a limit, 2 per row with empty notes (at most 30) and 10 when any
// row is uncategorized.
func ComputeInsights(txs []core.Transaction, accounts []core.Account) Insights {
	var in Insights
	for _, a := range accounts {
		if !a.HasLimit() {
			in.MissingLimits = append(in.MissingLimits, a.Name)
		}
	}

	counts := map[string]int{}
	var order []string
	for _, tx := range txs {
		if strings.TrimSpace(tx.Notes) == "" {
			in.EmptyNotes++
		}
		if tx.Category != "" && tx.Category != core.Uncategorized {
			continue
		}
		in.Uncategorized++
		mk := MerchantKey(tx.Notes)
		if mk == "" {
			continue
		}
		if counts[mk] == 0 {
			order = append(order, mk)
		}
		counts[mk]++
	}
	sort.SliceStable(order, func(i, j int) bool { return counts[order[i]] > counts[order[j]] })
	for _, mk := range order {
		if len(in.FrequentUncategorized) == frequentUncategorizedN {
			break
		}
		in.FrequentUncategorized = append(in.FrequentUncategorized, MerchantCount{Merchant: Title(mk), Count: counts[mk]})
	}

	score := 100 - 7*len(in.MissingLimits) - min(30, 2*in.EmptyNotes)
	if in.Uncategorized > 0 {
		score -= 10
	}
	in.Score = max(0, score)

	if len(in.MissingLimits) > 0 {
		in.Recommendations = append(in.Recommendations, "Set limits for: "+strings.Join(in.MissingLimits, ", "))
	}
	if len(in.FrequentUncategorized) > 0 {
		parts := make([]string, len(in.FrequentUncategorized))
		for i, mc := range in.FrequentUncategorized {
			parts[i] = fmt.Sprintf("%s (%d)", mc.Merchant, mc.Count)
		}
		in.Recommendations = append(in.Recommendations, "Frequently uncategorized merchants: "+strings.Join(parts, ", "))
	}
	if in.EmptyNotes > 0 {
		in.Recommendations = append(in.Recommendations, fmt.Sprintf("%d transaction(s) have empty notes (harder to auto-categorize).", in.EmptyNotes))
	}
	return in
}

package ledger

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"fintrack/internal/core"
)

// Income token lists. The type list reclassifies rows for totals; the
// income-like list also excludes rows from spending views.
var (
	incomeTypeTokens = []string{"salary", "payroll", "pay cheque", "paycheck", "paycheque", "wages", "bonus"}
	incomeLikeTokens = []string{"salary", "payroll", "paycheck", "pay cheque", "paycheque", "wages", "bonus", "income"}
)

// searchText is the normalized Category + Notes text the income heuristic
// matches against: lowercase letters separated by single spaces.
func searchText(tx core.Transaction) string {
	return strings.TrimSpace(normalizeLetters(tx.Category) + " " + normalizeLetters(tx.Notes))
}

func containsWord(text string, tokens []string) bool {
	padded := " " + text + " "
	for _, tok := range tokens {
		if strings.Contains(padded, " "+tok+" ") {
			return true
		}
	}
	return false
}

// DashboardType is the type a row is reported under. Rows whose category or
// notes mention salary-like words count as Income whatever their stored type.
// The stored row is never changed.
func DashboardType(tx core.Transaction) core.TxType {
	if containsWord(searchText(tx), incomeTypeTokens) {
		return core.TypeIncome
	}
	return tx.Type
}

// IsIncomeLike reports whether a row looks like income and must be left out
// of spending views.
func IsIncomeLike(tx core.Transaction) bool {
	return containsWord(searchText(tx), incomeLikeTokens)
}

// IsSpend selects rows shown in expense-only views.
func IsSpend(tx core.Transaction) bool {
	return DashboardType(tx) == core.TypeExpense && !IsIncomeLike(tx)
}

// InMonth returns the rows dated in month, in ledger order.
func InMonth(txs []core.Transaction, month core.Month) []core.Transaction {
	var out []core.Transaction
	for _, tx := range txs {
		if tx.Month() == month {
			out = append(out, tx)
		}
	}
	return out
}

// Summary totals a set of rows by dashboard type.
type Summary struct {
	Income        decimal.Decimal
	Expense       decimal.Decimal
	Invest        decimal.Decimal
	CardPayment   decimal.Decimal
	International decimal.Decimal
}

// Outflow is everything that leaves the household.
func (s Summary) Outflow() decimal.Decimal {
	return s.Expense.Add(s.Invest).Add(s.CardPayment).Add(s.International)
}

func (s Summary) Net() decimal.Decimal {
	return s.Income.Sub(s.Outflow())
}

// MonthlySummary totals rows by DashboardType.
func MonthlySummary(txs []core.Transaction) Summary {
	s := Summary{
		Income: decimal.Zero, Expense: decimal.Zero, Invest: decimal.Zero,
		CardPayment: decimal.Zero, International: decimal.Zero,
	}
	for _, tx := range txs {
		switch DashboardType(tx) {
		case core.TypeIncome:
			s.Income = s.Income.Add(tx.Amount)
		case core.TypeExpense:
			s.Expense = s.Expense.Add(tx.Amount)
		case core.TypeInvest:
			s.Invest = s.Invest.Add(tx.Amount)
		case core.TypeCardPayment:
			s.CardPayment = s.CardPayment.Add(tx.Amount)
		case core.TypeInternationalRemit:
			s.International = s.International.Add(tx.Amount)
		}
	}
	return s
}

// Metric is a monthly figure with its change against the previous month.
type Metric struct {
	Value decimal.Decimal
	Delta decimal.Decimal
}

func newMetric(cur, prev decimal.Decimal) Metric {
	return Metric{Value: cur, Delta: cur.Sub(prev)}
}

// Overview is the headline KPI block of the dashboard.
type Overview struct {
	Month    core.Month
	Current  Summary
	Previous Summary
	Net      Metric
	Incoming Metric
	Outflow  Metric
	Invest   Metric
}

// MonthOverview compares month against the month before it.
func MonthOverview(txs []core.Transaction, month core.Month) Overview {
	cur := MonthlySummary(InMonth(txs, month))
	prev := MonthlySummary(InMonth(txs, month.Prev()))
	return Overview{
		Month:    month,
		Current:  cur,
		Previous: prev,
		Net:      newMetric(cur.Net(), prev.Net()),
		Incoming: newMetric(cur.Income, prev.Income),
		Outflow:  newMetric(cur.Outflow(), prev.Outflow()),
		Invest:   newMetric(cur.Invest, prev.Invest),
	}
}

// Hero is the one-line highlight of a month.
type Hero struct {
	Category string
	Amount   decimal.Decimal
	Count    int
	Text     string
}

// HeroInsight names the top spending category of month, falling back to the
// number of rows captured.
func HeroInsight(txs []core.Transaction, month core.Month) Hero {
	rows := InMonth(txs, month)
	if len(rows) == 0 {
		return Hero{Text: "No transactions yet. Add your first one ✨"}
	}
	var spend []core.Transaction
	for _, tx := range rows {
		if IsSpend(tx) {
			spend = append(spend, tx)
		}
	}
	if cats := SumByCategory(spend); len(cats) > 0 {
		top := cats[0]
		return Hero{
			Category: top.Key,
			Amount:   top.Amount,
			Count:    len(rows),
			Text:     fmt.Sprintf("Highest debit spend: %s (%s)", top.Key, core.FormatMoney(top.Amount)),
		}
	}
	return Hero{Count: len(rows), Text: fmt.Sprintf("Transactions captured: %d", len(rows))}
}

// Total is one bucket of a grouping.
type Total struct {
	Key    string
	Amount decimal.Decimal
	Count  int
}

func groupBy(txs []core.Transaction, key func(core.Transaction) string) []Total {
	idx := map[string]int{}
	var out []Total
	for _, tx := range txs {
		k := key(tx)
		if k == "" {
			continue
		}
		i, ok := idx[k]
		if !ok {
			i = len(out)
			idx[k] = i
			out = append(out, Total{Key: k, Amount: decimal.Zero})
		}
		out[i].Amount = out[i].Amount.Add(tx.Amount)
		out[i].Count++
	}
	return out
}

// byAmountDesc sorts largest first; equal amounts keep first-seen order.
func byAmountDesc(totals []Total) []Total {
	sort.SliceStable(totals, func(i, j int) bool {
		return totals[i].Amount.GreaterThan(totals[j].Amount)
	})
	return totals
}

// Top keeps the first n totals.
func Top(totals []Total, n int) []Total {
	if len(totals) > n {
		return totals[:n]
	}
	return totals
}

// SumByCategory groups by category, largest first.
func SumByCategory(txs []core.Transaction) []Total {
	return byAmountDesc(groupBy(txs, func(tx core.Transaction) string { return tx.Category }))
}

// SumByMerchant groups by merchant key of the notes, largest first. Rows
// without a merchant key are skipped.
func SumByMerchant(txs []core.Transaction) []Total {
	return byAmountDesc(groupBy(txs, func(tx core.Transaction) string { return MerchantKey(tx.Notes) }))
}

// SumByMonth groups by month, oldest first.
func SumByMonth(txs []core.Transaction) []Total {
	totals := groupBy(txs, func(tx core.Transaction) string { return tx.Month().String() })
	sort.Slice(totals, func(i, j int) bool { return totals[i].Key < totals[j].Key })
	return totals
}

var weekdays = []time.Weekday{time.Monday, time.Tuesday, time.Wednesday, time.Thursday, time.Friday, time.Saturday, time.Sunday}

// SumByWeekday returns seven buckets, Monday to Sunday.
func SumByWeekday(txs []core.Transaction) []Total {
	out := make([]Total, len(weekdays))
	pos := map[time.Weekday]int{}
	for i, d := range weekdays {
		out[i] = Total{Key: d.String(), Amount: decimal.Zero}
		pos[d] = i
	}
	for _, tx := range txs {
		i := pos[tx.Date.Weekday()]
		out[i].Amount = out[i].Amount.Add(tx.Amount)
		out[i].Count++
	}
	return out
}

// SumByType groups by dashboard type in presentation order, omitting empty
// types.
func SumByType(txs []core.Transaction) []Total {
	totals := groupBy(txs, func(tx core.Transaction) string { return string(DashboardType(tx)) })
	var out []Total
	for _, t := range core.TxTypes {
		for _, tot := range totals {
			if tot.Key == string(t) {
				out = append(out, tot)
			}
		}
	}
	return out
}

// Trends is the all-time spending picture.
type Trends struct {
	Monthly       []Total
	TopCategories []Total
	TopMerchants  []Total
	Weekday       []Total
}

const trendTopN = 12

// ComputeTrends aggregates spending rows across the whole ledger.
func ComputeTrends(txs []core.Transaction) Trends {
	var spend []core.Transaction
	for _, tx := range txs {
		if IsSpend(tx) {
			spend = append(spend, tx)
		}
	}
	merchants := Top(SumByMerchant(spend), trendTopN)
	for i := range merchants {
		merchants[i].Key = Title(merchants[i].Key)
	}
	return Trends{
		Monthly:       SumByMonth(spend),
		TopCategories: Top(SumByCategory(spend), trendTopN),
		TopMerchants:  merchants,
		Weekday:       SumByWeekday(spend),
	}
}

// Search filters month rows by category set and a case-insensitive notes
// substring, newest first. An empty category set or query matches all.
func Search(txs []core.Transaction, month core.Month, categories []string, query string) []core.Transaction {
	allowed := map[string]bool{}
	for _, c := range categories {
		allowed[c] = true
	}
	q := strings.ToLower(strings.TrimSpace(query))
	var out []core.Transaction
	for _, tx := range InMonth(txs, month) {
		if len(allowed) > 0 && !allowed[tx.Category] {
			continue
		}
		if q != "" && !strings.Contains(strings.ToLower(tx.Notes), q) {
			continue
		}
		out = append(out, tx)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Date.After(out[j].Date) })
	return out
}

package ledger

import (
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"fintrack/internal/core"
)

type EventKind string

const (
	KindCharge  EventKind = "Charge"
	KindPayment EventKind = "Payment"
)

// BalanceEvent is one charge or payment on a card account together with the
// running balance after it.
type BalanceEvent struct {
	Date      time.Time
	CreatedAt time.Time
	Month     core.Month
	Account   string
	Kind      EventKind
	Delta     decimal.Decimal
	Balance   decimal.Decimal
}

// ComputeBalanceEvents replays card charges (Expense paid by Card) and card
// payments on known accounts in (Date, CreatedAt) order. Each account's
// balance starts at zero and is clamped at zero after every event, so an
// overpayment never produces a credit balance.
func ComputeBalanceEvents(txs []core.Transaction, accounts []core.Account) []BalanceEvent {
	known := make(map[string]bool, len(accounts))
	for _, a := range accounts {
		known[a.Name] = true
	}

	var events []BalanceEvent
	for _, tx := range txs {
		if !known[tx.Account] {
			continue
		}
		var kind EventKind
		var delta decimal.Decimal
		switch {
		case tx.Type == core.TypeExpense && tx.PayMethod == core.PayCard:
			kind, delta = KindCharge, tx.Amount
		case tx.Type == core.TypeCardPayment:
			kind, delta = KindPayment, tx.Amount.Neg()
		default:
			continue
		}
		events = append(events, BalanceEvent{
			Date:      tx.Date,
			CreatedAt: tx.CreatedAt,
			Month:     tx.Month(),
			Account:   tx.Account,
			Kind:      kind,
			Delta:     delta,
		})
	}

	sort.SliceStable(events, func(i, j int) bool {
		if !events[i].Date.Equal(events[j].Date) {
			return events[i].Date.Before(events[j].Date)
		}
		return events[i].CreatedAt.Before(events[j].CreatedAt)
	})

	balances := make(map[string]decimal.Decimal, len(accounts))
	for i := range events {
		b := balances[events[i].Account].Add(events[i].Delta)
		if b.IsNegative() {
			b = decimal.Zero
		}
		balances[events[i].Account] = b
		events[i].Balance = b
	}
	return events
}

// CycleBounds returns the billing cycle ending in month: from the previous
// month's clamped billing day (inclusive) to this month's (exclusive).
func CycleBounds(month core.Month, billingDay int) (start, end time.Time) {
	return month.Prev().Date(billingDay), month.Date(billingDay)
}

// NextBillDate is the clamped billing date in month.
func NextBillDate(month core.Month, billingDay int) time.Time {
	return month.Date(billingDay)
}

// UpcomingRecurringToBill sums recurring amounts charged to account whose due
// date in month falls between today and the bill date, both inclusive.
func UpcomingRecurringToBill(month core.Month, billingDay int, account string, prefs []core.RecurringPreference, today time.Time) decimal.Decimal {
	bill := NextBillDate(month, billingDay)
	today = core.DateOnly(today)
	total := decimal.Zero
	for _, p := range prefs {
		if !p.IsRecurring || strings.TrimSpace(p.Account) != account || !p.Amount.Valid {
			continue
		}
		day := p.DayOfMonth
		if day == 0 {
			day = 1
		}
		due := month.Date(day)
		if !due.Before(today) && !due.After(bill) {
			total = total.Add(p.Amount.Decimal)
		}
	}
	return total
}

// Utilization thresholds, in percent of limit.
var (
	moderateThreshold = decimal.NewFromInt(30)
	highThreshold     = decimal.NewFromInt(50)
	riskThreshold     = decimal.NewFromInt(70)
	hundred           = decimal.NewFromInt(100)
)

// Utilization summarizes one card account for a month.
type Utilization struct {
	Account    string
	Emoji      string
	BillingDay int
	BillDate   time.Time
	Limit      decimal.Decimal

	Opening       decimal.Decimal
	Closing       decimal.Decimal
	MonthPeak     decimal.Decimal
	MonthCharges  decimal.Decimal
	MonthPayments decimal.Decimal

	CycleStart    time.Time
	CycleEnd      time.Time
	CycleCharges  decimal.Decimal
	CyclePayments decimal.Decimal
	CyclePeak     decimal.Decimal

	UpcomingRecurring decimal.Decimal
	// UtilPct and SafeToSpend are invalid when no limit is set.
	UtilPct     decimal.NullDecimal
	SafeToSpend decimal.NullDecimal
	Status      string
}

// UtilizationStatus labels a utilization percentage.
func UtilizationStatus(pct decimal.NullDecimal) string {
	switch {
	case !pct.Valid:
		return "Set limit in Admin"
	case pct.Decimal.LessThan(moderateThreshold):
		return "Healthy"
	case pct.Decimal.LessThan(highThreshold):
		return "Moderate"
	case pct.Decimal.LessThan(riskThreshold):
		return "High"
	}
	return "Risk"
}

// UtilizationTable builds the per-account summary for month from events
// produced by ComputeBalanceEvents. Rows follow account order.
func UtilizationTable(events []BalanceEvent, month core.Month, accounts []core.Account, prefs []core.RecurringPreference, today time.Time) []Utilization {
	byAccount := make(map[string][]BalanceEvent, len(accounts))
	for _, ev := range events {
		byAccount[ev.Account] = append(byAccount[ev.Account], ev)
	}

	out := make([]Utilization, 0, len(accounts))
	for _, acct := range accounts {
		u := Utilization{
			Account:       acct.Name,
			Emoji:         acct.Emoji,
			BillingDay:    acct.BillingDay,
			BillDate:      NextBillDate(month, acct.BillingDay),
			Limit:         acct.Limit,
			MonthCharges:  decimal.Zero,
			MonthPayments: decimal.Zero,
			CycleCharges:  decimal.Zero,
			CyclePayments: decimal.Zero,
		}
		if u.Emoji == "" {
			u.Emoji = core.DefaultAccountEmoji
		}

		evs := byAccount[acct.Name]
		var inMonth int
		for _, ev := range evs {
			if ev.Month.Before(month) {
				u.Opening = ev.Balance
			}
		}
		u.Closing, u.MonthPeak = u.Opening, u.Opening
		for _, ev := range evs {
			if ev.Month != month {
				continue
			}
			if inMonth == 0 || ev.Balance.GreaterThan(u.MonthPeak) {
				u.MonthPeak = ev.Balance
			}
			inMonth++
			u.Closing = ev.Balance
			switch ev.Kind {
			case KindCharge:
				u.MonthCharges = u.MonthCharges.Add(ev.Delta)
			case KindPayment:
				u.MonthPayments = u.MonthPayments.Sub(ev.Delta)
			}
		}

		u.CycleStart, u.CycleEnd = CycleBounds(month, acct.BillingDay)
		var inCycle int
		u.CyclePeak = u.Closing
		for _, ev := range evs {
			if ev.Date.Before(u.CycleStart) || !ev.Date.Before(u.CycleEnd) {
				continue
			}
			if inCycle == 0 || ev.Balance.GreaterThan(u.CyclePeak) {
				u.CyclePeak = ev.Balance
			}
			inCycle++
			switch ev.Kind {
			case KindCharge:
				u.CycleCharges = u.CycleCharges.Add(ev.Delta)
			case KindPayment:
				u.CyclePayments = u.CyclePayments.Sub(ev.Delta)
			}
		}

		u.UpcomingRecurring = UpcomingRecurringToBill(month, acct.BillingDay, acct.Name, prefs, today)
		if acct.HasLimit() {
			u.UtilPct = decimal.NewNullDecimal(u.Closing.Mul(hundred).Div(acct.Limit).Round(2))
			safe := acct.Limit.Sub(u.Closing).Sub(u.UpcomingRecurring)
			if safe.IsNegative() {
				safe = decimal.Zero
			}
			u.SafeToSpend = decimal.NewNullDecimal(safe)
		}
		u.Status = UtilizationStatus(u.UtilPct)
		out = append(out, u)
	}
	return out
}

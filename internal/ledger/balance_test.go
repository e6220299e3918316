package ledger

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fintrack/internal/core"
)

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func charge(acct string, date time.Time, amt string) core.Transaction {
	return core.Transaction{Date: date, Type: core.TypeExpense, PayMethod: core.PayCard, Account: acct, Amount: dec(amt)}
}

func payment(acct string, date time.Time, amt string) core.Transaction {
	return core.Transaction{Date: date, Type: core.TypeCardPayment, PayMethod: core.PayBank, Account: acct, Amount: dec(amt)}
}

func accountA() core.Account {
	return core.Account{Name: "A", Emoji: "💳", Limit: dec("1000"), BillingDay: 15}
}

func TestBalanceNeverNegative(t *testing.T) {
	d := core.NewDate(2026, time.March, 1)
	txs := []core.Transaction{
		charge("A", d, "100"),
		payment("A", d.AddDate(0, 0, 1), "500"),
		payment("A", d.AddDate(0, 0, 2), "20"),
		charge("A", d.AddDate(0, 0, 3), "30"),
	}
	events := ComputeBalanceEvents(txs, []core.Account{accountA()})
	require.Len(t, events, 4)
	for _, ev := range events {
		assert.False(t, ev.Balance.IsNegative())
	}
	assert.True(t, events[1].Balance.IsZero(), "overpayment caps at zero")
	assert.True(t, events[3].Balance.Equal(dec("30")))
}

func TestBalanceEventsOrderAndFilter(t *testing.T) {
	d := core.NewDate(2026, time.March, 10)
	early := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)
	late := time.Date(2026, 3, 10, 18, 0, 0, 0, time.UTC)

	pay := payment("A", d, "50")
	pay.CreatedAt = late
	ch := charge("A", d, "50")
	ch.CreatedAt = early
	txs := []core.Transaction{
		pay,
		ch,
		charge("Unknown", d, "999"),
		{Date: d, Type: core.TypeExpense, PayMethod: core.PayCash, Amount: dec("10")},
		{Date: d, Type: core.TypeIncome, PayMethod: core.PayBank, Account: "A", Amount: dec("10")},
	}
	events := ComputeBalanceEvents(txs, []core.Account{accountA()})
	require.Len(t, events, 2)
	assert.Equal(t, KindCharge, events[0].Kind, "same-day events are ordered by CreatedAt")
	assert.True(t, events[0].Balance.Equal(dec("50")))
	assert.Equal(t, KindPayment, events[1].Kind)
	assert.True(t, events[1].Balance.IsZero())
}

func TestUtilizationScenario(t *testing.T) {
	march := core.Month{Year: 2026, Month: time.March}
	txs := []core.Transaction{
		charge("A", core.NewDate(2026, time.March, 1), "300"),
		charge("A", core.NewDate(2026, time.March, 10), "200"),
		payment("A", core.NewDate(2026, time.March, 20), "100"),
	}
	accounts := []core.Account{accountA()}
	events := ComputeBalanceEvents(txs, accounts)
	table := UtilizationTable(events, march, accounts, nil, core.NewDate(2026, time.March, 25))

	require.Len(t, table, 1)
	u := table[0]
	assert.True(t, u.Closing.Equal(dec("400")), "closing %s", u.Closing)
	require.True(t, u.UtilPct.Valid)
	assert.True(t, u.UtilPct.Decimal.Equal(dec("40")), "util %s", u.UtilPct.Decimal)
	assert.True(t, u.Opening.IsZero())
	assert.True(t, u.MonthPeak.Equal(dec("500")))
	assert.True(t, u.MonthCharges.Equal(dec("500")))
	assert.True(t, u.MonthPayments.Equal(dec("100")))
	require.True(t, u.SafeToSpend.Valid)
	assert.True(t, u.SafeToSpend.Decimal.Equal(dec("600")))
	assert.Equal(t, "Moderate", u.Status)
	assert.Equal(t, core.NewDate(2026, time.March, 15), u.BillDate)

	// Cycle [Feb 15, Mar 15): both March charges, not the payment.
	assert.Equal(t, core.NewDate(2026, time.February, 15), u.CycleStart)
	assert.Equal(t, core.NewDate(2026, time.March, 15), u.CycleEnd)
	assert.True(t, u.CycleCharges.Equal(dec("500")))
	assert.True(t, u.CyclePayments.IsZero())
	assert.True(t, u.CyclePeak.Equal(dec("500")))
}

func TestUtilizationUndefinedWithoutLimit(t *testing.T) {
	acct := core.Account{Name: "B", BillingDay: 1}
	march := core.Month{Year: 2026, Month: time.March}
	events := ComputeBalanceEvents([]core.Transaction{charge("B", core.NewDate(2026, time.March, 3), "80")}, []core.Account{acct})
	table := UtilizationTable(events, march, []core.Account{acct}, nil, core.NewDate(2026, time.March, 3))

	require.Len(t, table, 1)
	assert.False(t, table[0].UtilPct.Valid, "no limit means undefined, not zero")
	assert.False(t, table[0].SafeToSpend.Valid)
	assert.Equal(t, "Set limit in Admin", table[0].Status)
	assert.True(t, table[0].Closing.Equal(dec("80")))
}

func TestUtilizationOpeningCarriesForward(t *testing.T) {
	acct := accountA()
	txs := []core.Transaction{charge("A", core.NewDate(2026, time.January, 20), "250")}
	events := ComputeBalanceEvents(txs, []core.Account{acct})

	march := core.Month{Year: 2026, Month: time.March}
	u := UtilizationTable(events, march, []core.Account{acct}, nil, core.NewDate(2026, time.March, 1))[0]
	assert.True(t, u.Opening.Equal(dec("250")))
	assert.True(t, u.Closing.Equal(dec("250")))
	assert.True(t, u.MonthPeak.Equal(dec("250")))
	assert.True(t, u.MonthCharges.IsZero())
	assert.True(t, u.CyclePeak.Equal(dec("250")), "empty cycle peaks at closing")
	assert.Equal(t, "Healthy", u.Status)
}

func TestUpcomingRecurringToBill(t *testing.T) {
	march := core.Month{Year: 2026, Month: time.March}
	prefs := []core.RecurringPreference{
		{MerchantKey: "netflix", IsRecurring: true, DayOfMonth: 5, Account: "A", Amount: amount("15.99")},
		{MerchantKey: "spotify", IsRecurring: true, DayOfMonth: 15, Account: "A", Amount: amount("10")},
		{MerchantKey: "late", IsRecurring: true, DayOfMonth: 20, Account: "A", Amount: amount("99")},
		{MerchantKey: "other", IsRecurring: true, DayOfMonth: 6, Account: "B", Amount: amount("50")},
		{MerchantKey: "off", IsRecurring: false, DayOfMonth: 6, Account: "A", Amount: amount("50")},
	}

	got := UpcomingRecurringToBill(march, 15, "A", prefs, core.NewDate(2026, time.March, 1))
	assert.True(t, got.Equal(dec("25.99")), "got %s", got)

	got = UpcomingRecurringToBill(march, 15, "A", prefs, core.NewDate(2026, time.March, 6))
	assert.True(t, got.Equal(dec("10")), "due date equal to bill date is included, got %s", got)

	got = UpcomingRecurringToBill(march, 15, "A", prefs, core.NewDate(2026, time.March, 16))
	assert.True(t, got.IsZero())
}

func TestSafeToSpendFloorsAtZero(t *testing.T) {
	acct := core.Account{Name: "A", Limit: dec("100"), BillingDay: 28}
	march := core.Month{Year: 2026, Month: time.March}
	events := ComputeBalanceEvents([]core.Transaction{charge("A", core.NewDate(2026, time.March, 2), "90")}, []core.Account{acct})
	prefs := []core.RecurringPreference{{MerchantKey: "gym", IsRecurring: true, DayOfMonth: 20, Account: "A", Amount: amount("40")}}

	u := UtilizationTable(events, march, []core.Account{acct}, prefs, core.NewDate(2026, time.March, 10))[0]
	assert.True(t, u.UpcomingRecurring.Equal(dec("40")))
	assert.True(t, u.SafeToSpend.Decimal.IsZero())
	assert.Equal(t, "Risk", u.Status)
}

func TestCycleBoundsClamp(t *testing.T) {
	start, end := CycleBounds(core.Month{Year: 2026, Month: time.March}, 31)
	assert.Equal(t, core.NewDate(2026, time.February, 28), start)
	assert.Equal(t, core.NewDate(2026, time.March, 31), end)
}

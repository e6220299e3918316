package core

import (
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

func TestParseTxType(t *testing.T) {
	cases := map[string]TxType{
		"Debit":       TypeExpense,
		"expense":     TypeExpense,
		"CC Repay":    TypeCardPayment,
		"CardPayment": TypeCardPayment,
		" credit ":    TypeIncome,
		"Investment":  TypeInvest,
		"remit":       TypeInternationalRemit,
	}
	for in, want := range cases {
		got, err := ParseTxType(in)
		if err != nil || got != want {
			t.Fatalf("%q expected %s, got %s (err=%v)", in, want, got, err)
		}
	}
	if _, err := ParseTxType("Transfer"); !errors.Is(err, ErrInvalidType) {
		t.Fatalf("expected ErrInvalidType, got %v", err)
	}
}

func TestTransactionNormalize(t *testing.T) {
	tx := Transaction{
		Date:      time.Date(2026, 3, 4, 15, 30, 0, 0, time.UTC),
		Type:      TypeCardPayment,
		Amount:    decimal.NewFromInt(100),
		PayMethod: PayCard,
		Account:   "💳 Visa",
		Notes:     "  payment  ",
	}.Normalize()

	if tx.PayMethod != PayBank {
		t.Fatalf("expected card payment forced to Bank, got %s", tx.PayMethod)
	}
	if tx.Account != "Visa" {
		t.Fatalf("expected normalized account, got %q", tx.Account)
	}
	if tx.Category != Uncategorized {
		t.Fatalf("expected Uncategorized, got %q", tx.Category)
	}
	if tx.Notes != "payment" {
		t.Fatalf("expected trimmed notes, got %q", tx.Notes)
	}
	if !tx.Date.Equal(NewDate(2026, 3, 4)) {
		t.Fatalf("expected date-only, got %v", tx.Date)
	}

	cash := Transaction{Type: TypeExpense, PayMethod: PayCash, Account: "Visa"}.Normalize()
	if cash.Account != "" {
		t.Fatalf("expected account cleared for cash expense, got %q", cash.Account)
	}
}

func TestTransactionValidate(t *testing.T) {
	good := Transaction{
		Date:      NewDate(2026, 1, 1),
		Type:      TypeExpense,
		Amount:    decimal.NewFromInt(10),
		PayMethod: PayCard,
		Account:   "Visa",
		Category:  "Groceries",
	}
	if err := good.Validate(); err != nil {
		t.Fatalf("expected ok, got %v", err)
	}

	bads := []struct {
		mutate func(*Transaction)
		want   error
	}{
		{func(t *Transaction) { t.Date = time.Time{} }, ErrInvalidDate},
		{func(t *Transaction) { t.Amount = decimal.Zero }, ErrInvalidAmount},
		{func(t *Transaction) { t.Amount = decimal.NewFromInt(-5) }, ErrInvalidAmount},
		{func(t *Transaction) { t.Account = "" }, ErrAccountRequired},
		{func(t *Transaction) { t.Type = "Transfer" }, ErrInvalidType},
		{func(t *Transaction) { t.PayMethod = "Cheque" }, ErrInvalidPayMethod},
		{func(t *Transaction) { t.Type = TypeIncome }, ErrInvalidPayMethod},
		{func(t *Transaction) { t.PayMethod = PayCash }, ErrInvalidAccount},
	}
	for i, tc := range bads {
		tx := good
		tc.mutate(&tx)
		if err := tx.Validate(); !errors.Is(err, tc.want) {
			t.Fatalf("case %d expected %v, got %v", i, tc.want, err)
		}
	}
}

func TestParseDate(t *testing.T) {
	for _, in := range []string{"2026-03-04", "2026/03/04", "3/4/2026", "2026-03-04T10:00:00"} {
		got, err := ParseDate(in)
		if err != nil || !got.Equal(NewDate(2026, 3, 4)) {
			t.Fatalf("%q expected 2026-03-04, got %v (err=%v)", in, got, err)
		}
	}
	if _, err := ParseDate("yesterday"); !errors.Is(err, ErrInvalidDate) {
		t.Fatalf("expected ErrInvalidDate, got %v", err)
	}
}

func TestParseCreatedAt(t *testing.T) {
	ts := time.Date(2026, 3, 4, 10, 11, 12, 0, time.UTC)
	if got := ParseCreatedAt(FormatCreatedAt(ts)); !got.Equal(ts) {
		t.Fatalf("expected %v, got %v", ts, got)
	}
	if got := ParseCreatedAt("not a time"); !got.IsZero() {
		t.Fatalf("expected zero time, got %v", got)
	}
}

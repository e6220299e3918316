package google

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"fintrack/internal/core"
)

func TestNewFromEnv_MissingSpreadsheetID(t *testing.T) {
	old := os.Getenv("GOOGLE_SPREADSHEET_ID")
	defer os.Setenv("GOOGLE_SPREADSHEET_ID", old)
	os.Unsetenv("GOOGLE_SPREADSHEET_ID")

	_, err := NewFromEnv(context.Background())
	if err == nil {
		t.Fatal("expected error for missing GOOGLE_SPREADSHEET_ID")
	}
	if err.Error() != "missing GOOGLE_SPREADSHEET_ID" {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestClient_NilServiceFails(t *testing.T) {
	c := &Client{spreadsheetID: "test"}
	if _, err := c.ListTransactions(context.Background()); err == nil {
		t.Fatal("expected error with nil service")
	}
}

func TestTransactionRoundTrip(t *testing.T) {
	tx := core.Transaction{
		ID:        "abc-123",
		Date:      core.NewDate(2026, time.March, 5),
		Owner:     core.DefaultOwner,
		Type:      core.TypeCardPayment,
		Amount:    decimal.RequireFromString("1250.5"),
		PayMethod: core.PayBank,
		Account:   "Visa",
		Category:  "Banking/Fees",
		Notes:     "statement",
		CreatedAt: time.Date(2026, 3, 5, 10, 11, 12, 0, time.UTC),
		AutoTag:   core.ManualTag,
	}
	row := toStrings(encodeTransaction(tx))
	if row[4] != "1250.50" || row[3] != "CC Repay" || row[1] != "2026-03-05" {
		t.Fatalf("unexpected encoded row: %v", row)
	}

	got, ok := decodeTransaction(newHeaderIndex(TransactionHeaders, TransactionHeaders), row)
	if !ok {
		t.Fatal("expected row to decode")
	}
	if got.ID != tx.ID || got.Type != tx.Type || !got.Amount.Equal(tx.Amount) || !got.Date.Equal(tx.Date) ||
		!got.CreatedAt.Equal(tx.CreatedAt) || got.Account != tx.Account || got.AutoTag != tx.AutoTag {
		t.Fatalf("round trip mismatch:\n got %+v\nwant %+v", got, tx)
	}
}

func TestDecodeTransaction_Lenient(t *testing.T) {
	header := []string{"Date", "TxId", "Type", "Amount", "Pay", "Account", "Category", "Notes"}
	h := newHeaderIndex(header, TransactionHeaders)

	tx, ok := decodeTransaction(h, []string{"3/5/2026", "id1", "Debit", "$1,200.00", "Card", "💳 Visa", "", "Costco"})
	if !ok {
		t.Fatal("expected reordered columns to decode")
	}
	if !tx.Amount.Equal(decimal.NewFromInt(1200)) || tx.Account != "Visa" || tx.Category != core.Uncategorized {
		t.Fatalf("unexpected decode: %+v", tx)
	}
	if !tx.CreatedAt.IsZero() {
		t.Fatalf("missing CreatedAt column should decode as zero, got %v", tx.CreatedAt)
	}

	if _, ok := decodeTransaction(h, []string{"not a date", "id2", "Debit", "1"}); ok {
		t.Fatal("row with bad date should be skipped")
	}
	if _, ok := decodeTransaction(h, []string{"2026-03-05", "", "Debit", "1"}); ok {
		t.Fatal("row without id should be skipped")
	}
}

func TestDecodeAccount(t *testing.T) {
	h := newHeaderIndex(AccountHeaders, AccountHeaders)
	a, ok := decodeAccount(h, []string{"Amex", "", "2,000", "45"})
	if !ok {
		t.Fatal("expected account")
	}
	if a.BillingDay != 31 || !a.Limit.Equal(decimal.NewFromInt(2000)) || a.Emoji != core.DefaultAccountEmoji {
		t.Fatalf("unexpected account: %+v", a)
	}
	a, _ = decodeAccount(h, []string{"Visa", "💳", "", "15.0"})
	if a.BillingDay != 15 || !a.Limit.IsZero() {
		t.Fatalf("unexpected account: %+v", a)
	}
	if _, ok := decodeAccount(h, []string{"", "💳", "100", "1"}); ok {
		t.Fatal("nameless account should be skipped")
	}
}

func TestHeadersMatch(t *testing.T) {
	if !headersMatch(append([]string{}, TransactionHeaders...), TransactionHeaders) {
		t.Fatal("identical headers should match")
	}
	if headersMatch([]string{"TxId", "Date"}, TransactionHeaders) {
		t.Fatal("short header should not match")
	}
	if headersMatch([]string{"Key", "Val"}, AdminHeaders) {
		t.Fatal("renamed header should not match")
	}
	if lastColumn(TransactionHeaders) != "K" || lastColumn(AccountHeaders) != "D" || lastColumn(AdminHeaders) != "B" {
		t.Fatal("unexpected last columns")
	}
}

func TestFindAndRestoreRow(t *testing.T) {
	values := [][]string{
		{"TxId", "Date"},
		{"a", "2026-01-01"},
		{"b", "2026-01-02"},
		{},
		{"c", "2026-01-03"},
	}
	if got := findRow(values, "b"); got != 3 {
		t.Fatalf("findRow b: got %d", got)
	}
	if got := findRow(values, "c"); got != 5 {
		t.Fatalf("findRow c: got %d", got)
	}
	if got := findRow(values, "TxId"); got != 0 {
		t.Fatalf("header must not match, got %d", got)
	}
	cases := []struct{ index, rows, want int }{
		{0, 3, 2},
		{1, 3, 3},
		{10, 3, 5},
		{-1, 3, 2},
	}
	for _, tc := range cases {
		if got := restoreRow(tc.index, tc.rows); got != tc.want {
			t.Fatalf("restoreRow(%d,%d) = %d, want %d", tc.index, tc.rows, got, tc.want)
		}
	}
}

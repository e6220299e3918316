package google

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"fintrack/internal/core"
)

// Tab names and header rows of the spreadsheet.
const (
	TransactionsTab = "transactions"
	AccountsTab     = "cards"
	AdminTab        = "admin"
)

var (
	TransactionHeaders = []string{"TxId", "Date", "Owner", "Type", "Amount", "Pay", "Account", "Category", "Notes", "CreatedAt", "AutoTag"}
	AccountHeaders     = []string{"Account", "Emoji", "Limit", "BillingDay"}
	AdminHeaders       = []string{"Key", "Value"}
)

// lastColumn returns the A1 column letter of the last header (tables stay
// well under 26 columns).
func lastColumn(headers []string) string {
	return string(rune('A' + len(headers) - 1))
}

// headerIndex maps header names to column positions so reordered columns in
// a hand-edited sheet still decode.
type headerIndex map[string]int

func newHeaderIndex(header []string, want []string) headerIndex {
	idx := headerIndex{}
	for _, name := range want {
		idx[name] = indexOf(header, name)
	}
	return idx
}

func (h headerIndex) get(row []string, name string) string {
	return strings.TrimSpace(safeGet(row, h[name]))
}

// headersMatch reports whether row starts with the expected headers.
func headersMatch(row []string, want []string) bool {
	if len(row) < len(want) {
		return false
	}
	for i, name := range want {
		if strings.TrimSpace(row[i]) != name {
			return false
		}
	}
	return true
}

func encodeTransaction(tx core.Transaction) []any {
	return []any{
		tx.ID,
		tx.Date.Format("2006-01-02"),
		tx.Owner,
		string(tx.Type),
		tx.Amount.StringFixed(2),
		string(tx.PayMethod),
		tx.Account,
		tx.Category,
		tx.Notes,
		core.FormatCreatedAt(tx.CreatedAt),
		tx.AutoTag,
	}
}

// decodeTransaction reads one data row leniently. Rows without an id or with
// an unreadable date are reported as not ok.
func decodeTransaction(h headerIndex, row []string) (core.Transaction, bool) {
	id := h.get(row, "TxId")
	if id == "" {
		return core.Transaction{}, false
	}
	date, err := core.ParseDate(h.get(row, "Date"))
	if err != nil {
		return core.Transaction{}, false
	}
	typ, err := core.ParseTxType(h.get(row, "Type"))
	if err != nil {
		typ = core.TxType(h.get(row, "Type"))
	}
	pay, err := core.ParsePayMethod(h.get(row, "Pay"))
	if err != nil {
		pay = core.PayMethod(h.get(row, "Pay"))
	}
	category := h.get(row, "Category")
	if category == "" {
		category = core.Uncategorized
	}
	return core.Transaction{
		ID:        id,
		Date:      date,
		Owner:     h.get(row, "Owner"),
		Type:      typ,
		Amount:    core.ParseStoredAmount(h.get(row, "Amount")),
		PayMethod: pay,
		Account:   core.NormalizeAccountName(h.get(row, "Account")),
		Category:  category,
		Notes:     h.get(row, "Notes"),
		CreatedAt: core.ParseCreatedAt(h.get(row, "CreatedAt")),
		AutoTag:   h.get(row, "AutoTag"),
	}, true
}

func encodeAccount(a core.Account) []any {
	return []any{a.Name, a.Emoji, a.Limit.StringFixed(2), strconv.Itoa(a.BillingDay)}
}

func decodeAccount(h headerIndex, row []string) (core.Account, bool) {
	name := core.NormalizeAccountName(h.get(row, "Account"))
	if name == "" {
		return core.Account{}, false
	}
	limit := core.ParseStoredAmount(h.get(row, "Limit"))
	if limit.IsNegative() {
		limit = decimal.Zero
	}
	day := 1
	if raw := h.get(row, "BillingDay"); raw != "" {
		if f, err := strconv.ParseFloat(raw, 64); err == nil {
			day = int(f)
		}
	}
	day = max(1, min(31, day))
	return core.Account{
		Name:       name,
		Emoji:      h.get(row, "Emoji"),
		Limit:      limit,
		BillingDay: day,
	}.Normalize(), true
}

// findRow returns the 1-based sheet row whose first column equals key, or 0.
// values[0] is the header row.
func findRow(values [][]string, key string) int {
	for i := 1; i < len(values); i++ {
		if len(values[i]) > 0 && strings.TrimSpace(values[i][0]) == key {
			return i + 1
		}
	}
	return 0
}

// restoreRow maps a data index to the 1-based sheet row it is re-inserted
// at, clamped to the current table.
func restoreRow(index, dataRows int) int {
	if index < 0 {
		index = 0
	}
	if index > dataRows {
		index = dataRows
	}
	return index + 2
}

func toStrings(in []interface{}) []string {
	out := make([]string, len(in))
	for i, v := range in {
		out[i] = strings.TrimSpace(fmt.Sprint(v))
	}
	return out
}

func toStringMatrix(in [][]interface{}) [][]string {
	out := make([][]string, len(in))
	for i, row := range in {
		out[i] = toStrings(row)
	}
	return out
}

func indexOf(arr []string, target string) int {
	for i, v := range arr {
		if strings.EqualFold(strings.TrimSpace(v), strings.TrimSpace(target)) {
			return i
		}
	}
	return -1
}

func safeGet(arr []string, idx int) string {
	if idx < 0 || idx >= len(arr) {
		return ""
	}
	return arr[idx]
}

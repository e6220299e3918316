// Package export serializes ledger snapshots for backup and download.
package export

import (
	"encoding/csv"
	"fmt"
	"io"

	"fintrack/internal/core"
)

// Headers is the CSV header row; it matches the transactions tab.
var Headers = []string{"TxId", "Date", "Owner", "Type", "Amount", "Pay", "Account", "Category", "Notes", "CreatedAt", "AutoTag"}

const dateFormat = "2006-01-02"

// Scope selects the rows of one export: a single month or everything.
type Scope struct {
	Month core.Month
	All   bool
}

func AllMonths() Scope { return Scope{All: true} }

func ForMonth(m core.Month) Scope { return Scope{Month: m} }

// ParseScope reads "all" (or an empty string) and "YYYY-MM".
func ParseScope(s string) (Scope, error) {
	if s == "" || s == "all" {
		return AllMonths(), nil
	}
	m, err := core.ParseMonth(s)
	if err != nil {
		return Scope{}, err
	}
	return ForMonth(m), nil
}

func (s Scope) String() string {
	if s.All {
		return "all"
	}
	return s.Month.String()
}

// FileName is the download name, e.g. fintrack_2026-03.csv.
func (s Scope) FileName() string {
	return "fintrack_" + s.String() + ".csv"
}

// Filter keeps the rows in scope, in ledger order.
func (s Scope) Filter(txs []core.Transaction) []core.Transaction {
	if s.All {
		return append([]core.Transaction(nil), txs...)
	}
	var out []core.Transaction
	for _, tx := range txs {
		if s.Month.Contains(tx.Date) {
			out = append(out, tx)
		}
	}
	return out
}

// Record renders one transaction as a CSV row.
func Record(tx core.Transaction) []string {
	return []string{
		tx.ID,
		tx.Date.Format(dateFormat),
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

// WriteCSV writes the header and one row per transaction.
func WriteCSV(w io.Writer, txs []core.Transaction) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(Headers); err != nil {
		return fmt.Errorf("writing header: %w", err)
	}
	for i, tx := range txs {
		if err := cw.Write(Record(tx)); err != nil {
			return fmt.Errorf("writing row %d: %w", i+2, err)
		}
	}
	cw.Flush()
	return cw.Error()
}

package core

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Stored type labels. The spreadsheet keeps the historical names, the Go
// identifiers carry the meaning.
const (
	TypeExpense            TxType = "Debit"
	TypeIncome             TxType = "Credit"
	TypeInvest             TxType = "Investment"
	TypeCardPayment        TxType = "CC Repay"
	TypeInternationalRemit TxType = "International"
)

const (
	PayCard PayMethod = "Card"
	PayBank PayMethod = "Bank"
	PayCash PayMethod = "Cash"
)

// DefaultOwner is written to the Owner column when nothing else is configured.
const DefaultOwner = "Family"

type (
	TxType    string
	PayMethod string

	Transaction struct {
		ID        string
		Date      time.Time
		Owner     string
		Type      TxType
		Amount    decimal.Decimal
		PayMethod PayMethod
		Account   string
		Category  string
		Notes     string
		CreatedAt time.Time
		AutoTag   string
	}
)

// TxTypes lists the entry types in presentation order.
var TxTypes = []TxType{TypeExpense, TypeIncome, TypeInvest, TypeCardPayment, TypeInternationalRemit}

// PayMethods lists the accepted pay methods.
var PayMethods = []PayMethod{PayCard, PayBank, PayCash}

var txTypeAliases = map[string]TxType{
	"debit":              TypeExpense,
	"expense":            TypeExpense,
	"credit":             TypeIncome,
	"income":             TypeIncome,
	"investment":         TypeInvest,
	"invest":             TypeInvest,
	"cc repay":           TypeCardPayment,
	"cardpayment":        TypeCardPayment,
	"card payment":       TypeCardPayment,
	"international":      TypeInternationalRemit,
	"internationalremit": TypeInternationalRemit,
	"remit":              TypeInternationalRemit,
}

// ParseTxType accepts both the stored labels ("Debit", "CC Repay", ...) and the
// canonical names ("Expense", "CardPayment", ...), case-insensitively.
func ParseTxType(s string) (TxType, error) {
	if t, ok := txTypeAliases[strings.ToLower(strings.TrimSpace(s))]; ok {
		return t, nil
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidType, s)
}

// Canonical returns the domain name of the type.
func (t TxType) Canonical() string {
	switch t {
	case TypeExpense:
		return "Expense"
	case TypeIncome:
		return "Income"
	case TypeInvest:
		return "Invest"
	case TypeCardPayment:
		return "CardPayment"
	case TypeInternationalRemit:
		return "InternationalRemit"
	}
	return string(t)
}

func (t TxType) Valid() bool {
	switch t {
	case TypeExpense, TypeIncome, TypeInvest, TypeCardPayment, TypeInternationalRemit:
		return true
	}
	return false
}

// ParsePayMethod is case-insensitive.
func ParsePayMethod(s string) (PayMethod, error) {
	for _, p := range PayMethods {
		if strings.EqualFold(strings.TrimSpace(s), string(p)) {
			return p, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidPayMethod, s)
}

// BankOnly reports whether the type is always settled from the bank account.
func (t TxType) BankOnly() bool {
	switch t {
	case TypeIncome, TypeInvest, TypeInternationalRemit, TypeCardPayment:
		return true
	}
	return false
}

// RequiresAccount reports whether a row of this type and pay method must name
// a credit account.
func RequiresAccount(t TxType, p PayMethod) bool {
	return t == TypeCardPayment || (t == TypeExpense && p == PayCard)
}

// Month returns the year-month bucket of the transaction date.
func (t Transaction) Month() Month {
	return MonthOf(t.Date)
}

// Normalize applies the Type x PayMethod constraints: bank-only types are
// forced to Bank and Account is cleared where none is expected.
func (t Transaction) Normalize() Transaction {
	if t.Type.BankOnly() {
		t.PayMethod = PayBank
	}
	t.Account = NormalizeAccountName(t.Account)
	if !RequiresAccount(t.Type, t.PayMethod) {
		t.Account = ""
	}
	t.Category = strings.TrimSpace(t.Category)
	if t.Category == "" {
		t.Category = Uncategorized
	}
	t.Notes = strings.TrimSpace(t.Notes)
	t.Date = DateOnly(t.Date)
	return t
}

func (t Transaction) Validate() error {
	if t.Date.IsZero() {
		return ErrInvalidDate
	}
	if !t.Type.Valid() {
		return fmt.Errorf("%w: %q", ErrInvalidType, t.Type)
	}
	if _, err := ParsePayMethod(string(t.PayMethod)); err != nil {
		return err
	}
	if t.Type.BankOnly() && t.PayMethod != PayBank {
		return fmt.Errorf("%w: %s must be paid from Bank", ErrInvalidPayMethod, t.Type.Canonical())
	}
	if !t.Amount.IsPositive() {
		return ErrInvalidAmount
	}
	if RequiresAccount(t.Type, t.PayMethod) && strings.TrimSpace(t.Account) == "" {
		return ErrAccountRequired
	}
	if !RequiresAccount(t.Type, t.PayMethod) && t.Account != "" {
		return fmt.Errorf("%w: account only allowed for card expenses and card payments", ErrInvalidAccount)
	}
	if len(t.Notes) > 500 {
		return ErrNotesTooLong
	}
	return nil
}

// DateOnly truncates a timestamp to its calendar date in UTC.
func DateOnly(t time.Time) time.Time {
	if t.IsZero() {
		return t
	}
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// NewDate creates a calendar date from year, month, day.
func NewDate(year int, month time.Month, day int) time.Time {
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}

var dateLayouts = []string{"2006-01-02", "2006-01-02T15:04:05", "2006/01/02", "1/2/2006", "01/02/2006", time.RFC3339}

// ParseDate accepts ISO dates plus the formats a spreadsheet may render them in.
func ParseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return DateOnly(t), nil
		}
	}
	return time.Time{}, fmt.Errorf("%w: %q", ErrInvalidDate, s)
}

// CreatedAtLayout is the write-time stamp format of the transactions table.
const CreatedAtLayout = "2006-01-02T15:04:05"

// ParseCreatedAt is lenient: an unparseable stamp yields the zero time, which
// sorts first among same-day entries.
func ParseCreatedAt(s string) time.Time {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}
	}
	for _, layout := range []string{CreatedAtLayout, time.RFC3339, time.RFC3339Nano, "2006-01-02 15:04:05"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC()
		}
	}
	return time.Time{}
}

// FormatCreatedAt renders a write-time stamp with second precision.
func FormatCreatedAt(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(CreatedAtLayout)
}

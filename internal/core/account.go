package core

import (
	"fmt"
	"strings"
	"unicode"

	"github.com/shopspring/decimal"
)

// DefaultAccountEmoji is used when an account is saved without a glyph.
const DefaultAccountEmoji = "💳"

// Account is a credit card account. A zero Limit means the limit is unset and
// utilization is undefined; BillingDay is the statement day in 1..31.
type Account struct {
	Name       string
	Emoji      string
	Limit      decimal.Decimal
	BillingDay int
}

// HasLimit reports whether a usable credit limit is configured.
func (a Account) HasLimit() bool {
	return a.Limit.IsPositive()
}

// Label renders the account for display, e.g. "💳 Visa".
func (a Account) Label() string {
	if a.Emoji == "" {
		return a.Name
	}
	return a.Emoji + " " + a.Name
}

func (a Account) Validate() error {
	if strings.TrimSpace(a.Name) == "" {
		return ErrEmptyAccountName
	}
	if a.Limit.IsNegative() {
		return ErrInvalidLimit
	}
	if a.BillingDay < 1 || a.BillingDay > 31 {
		return fmt.Errorf("%w: got %d", ErrInvalidBilling, a.BillingDay)
	}
	return nil
}

// Normalize trims the name and fills in the default emoji.
func (a Account) Normalize() Account {
	a.Name = NormalizeAccountName(a.Name)
	a.Emoji = strings.TrimSpace(a.Emoji)
	if a.Emoji == "" {
		a.Emoji = DefaultAccountEmoji
	}
	return a
}

// NormalizeAccountName strips a leading glyph token such as "💳 " that a
// display label may carry, so "💳 Visa" and "Visa" name the same account.
func NormalizeAccountName(name string) string {
	name = strings.TrimSpace(name)
	first, rest, ok := strings.Cut(name, " ")
	if !ok || first == "" {
		return name
	}
	for _, r := range first {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			return name
		}
	}
	return strings.TrimSpace(rest)
}

// AccountNames returns the names in order.
func AccountNames(accounts []Account) []string {
	names := make([]string, 0, len(accounts))
	for _, a := range accounts {
		names = append(names, a.Name)
	}
	return names
}

// FindAccount looks an account up by (normalized) name.
func FindAccount(accounts []Account, name string) (Account, bool) {
	name = NormalizeAccountName(name)
	for _, a := range accounts {
		if a.Name == name {
			return a, true
		}
	}
	return Account{}, false
}

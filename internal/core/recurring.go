package core

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// RecurringPreference describes an expected monthly expense for a merchant.
// The JSON shape is the one persisted in the admin table.
type RecurringPreference struct {
	MerchantKey string              `json:"MerchantKey"`
	Nickname    string              `json:"Nickname"`
	IsRecurring bool                `json:"IsRecurring"`
	DayOfMonth  int                 `json:"DayOfMonth"`
	Category    string              `json:"Category"`
	Pay         PayMethod           `json:"Pay"`
	Account     string              `json:"Account"`
	Amount      decimal.NullDecimal `json:"Amount"`
}

// Active reports whether the preference should produce an entry: it must be
// flagged recurring, carry a merchant key and a positive amount.
func (p RecurringPreference) Active() bool {
	return p.IsRecurring &&
		strings.TrimSpace(p.MerchantKey) != "" &&
		p.Amount.Valid && p.Amount.Decimal.IsPositive()
}

// UpsertPreference replaces the preference with the same merchant key or
// appends it. A preference with an empty key is ignored.
func UpsertPreference(prefs []RecurringPreference, p RecurringPreference) []RecurringPreference {
	p.MerchantKey = strings.TrimSpace(p.MerchantKey)
	if p.MerchantKey == "" {
		return prefs
	}
	out := make([]RecurringPreference, 0, len(prefs)+1)
	replaced := false
	for _, existing := range prefs {
		if existing.MerchantKey == p.MerchantKey {
			out = append(out, p)
			replaced = true
			continue
		}
		out = append(out, existing)
	}
	if !replaced {
		out = append(out, p)
	}
	return out
}

// DecodePreferences parses the persisted JSON array. Amounts may be stored as
// numbers, numeric strings or null.
func DecodePreferences(raw string) ([]RecurringPreference, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}
	var prefs []RecurringPreference
	if err := json.Unmarshal([]byte(raw), &prefs); err != nil {
		return nil, fmt.Errorf("decode recurring preferences: %w", err)
	}
	return prefs, nil
}

// EncodePreferences serializes preferences for the admin table.
func EncodePreferences(prefs []RecurringPreference) (string, error) {
	if prefs == nil {
		prefs = []RecurringPreference{}
	}
	b, err := json.Marshal(prefs)
	if err != nil {
		return "", fmt.Errorf("encode recurring preferences: %w", err)
	}
	return string(b), nil
}

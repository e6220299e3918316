package ledger

import (
	"strings"

	"fintrack/internal/core"
)

// TagSet is the set of recurring tags already recorded for a month.
type TagSet map[string]struct{}

func (s TagSet) Has(tag string) bool {
	_, ok := s[tag]
	return ok
}

// ExistingAutoTags collects the recurring tags of month in one pass over the
// ledger, for use by MaterializeRecurring.
func ExistingAutoTags(txs []core.Transaction, month core.Month) TagSet {
	tags := TagSet{}
	for _, tx := range txs {
		if tx.Month() == month && core.IsRecurringTag(tx.AutoTag) {
			tags[tx.AutoTag] = struct{}{}
		}
	}
	return tags
}

// MaterializeRecurring returns the expense entries due in month for active
// preferences whose tag is not yet in existing. The due day is clamped to
// the month length. Entries carry no ID or CreatedAt; the caller assigns
// them on write. Calling it again with the tags of the written entries
// yields nothing.
func MaterializeRecurring(month core.Month, prefs []core.RecurringPreference, existing TagSet) []core.Transaction {
	var out []core.Transaction
	emitted := TagSet{}
	for _, p := range prefs {
		if !p.Active() {
			continue
		}
		mk := strings.TrimSpace(p.MerchantKey)
		tag := core.RecurringTag(mk, month)
		if existing.Has(tag) || emitted.Has(tag) {
			continue
		}
		emitted[tag] = struct{}{}

		day := p.DayOfMonth
		if day == 0 {
			day = 1
		}
		category := strings.TrimSpace(p.Category)
		if category == "" {
			category = core.Uncategorized
		}
		pay := p.Pay
		if pm, err := core.ParsePayMethod(string(pay)); err == nil {
			pay = pm
		} else {
			pay = core.PayBank
		}
		nick := strings.TrimSpace(p.Nickname)
		if nick == "" {
			nick = Title(mk)
		}

		out = append(out, core.Transaction{
			Date:      month.Date(day),
			Owner:     core.DefaultOwner,
			Type:      core.TypeExpense,
			Amount:    p.Amount.Decimal,
			PayMethod: pay,
			Account:   strings.TrimSpace(p.Account),
			Category:  category,
			Notes:     "[AUTO] " + nick,
			AutoTag:   tag,
		}.Normalize())
	}
	return out
}

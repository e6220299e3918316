package services

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"fintrack/internal/core"
)

// Accounts returns the accounts in table order.
func (s *LedgerService) Accounts(ctx context.Context) ([]core.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.refreshDirtyLocked(ctx); err != nil {
		return nil, err
	}
	return append([]core.Account(nil), s.accounts...), nil
}

// AddAccount appends a new account; names must be unique.
func (s *LedgerService) AddAccount(ctx context.Context, a core.Account) (core.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.refreshDirtyLocked(ctx); err != nil {
		return core.Account{}, err
	}

	a = a.Normalize()
	if err := a.Validate(); err != nil {
		return core.Account{}, err
	}
	if _, ok := core.FindAccount(s.accounts, a.Name); ok {
		return core.Account{}, fmt.Errorf("%w: %s", core.ErrDuplicateAccount, a.Name)
	}
	next := append(append([]core.Account(nil), s.accounts...), a)
	if err := s.replaceAccountsLocked(ctx, next); err != nil {
		return core.Account{}, err
	}
	slog.InfoContext(ctx, "Account added", "component", "ledger", "account", a.Name)
	return a, nil
}

// SaveAccount replaces the account called name with a, keeping its
// position. Renaming onto another existing account is rejected.
func (s *LedgerService) SaveAccount(ctx context.Context, name string, a core.Account) (core.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.refreshDirtyLocked(ctx); err != nil {
		return core.Account{}, err
	}

	name = core.NormalizeAccountName(name)
	a = a.Normalize()
	if err := a.Validate(); err != nil {
		return core.Account{}, err
	}
	idx := -1
	for i, existing := range s.accounts {
		if existing.Name == name {
			idx = i
		} else if existing.Name == a.Name {
			return core.Account{}, fmt.Errorf("%w: %s", core.ErrDuplicateAccount, a.Name)
		}
	}
	if idx < 0 {
		return core.Account{}, fmt.Errorf("account %s: %w", name, core.ErrNotFound)
	}
	next := append([]core.Account(nil), s.accounts...)
	next[idx] = a
	if err := s.replaceAccountsLocked(ctx, next); err != nil {
		return core.Account{}, err
	}
	slog.InfoContext(ctx, "Account saved", "component", "ledger", "account", a.Name)
	return a, nil
}

// RemoveAccount deletes the account called name. The last account cannot be
// removed.
func (s *LedgerService) RemoveAccount(ctx context.Context, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.refreshDirtyLocked(ctx); err != nil {
		return err
	}

	name = core.NormalizeAccountName(name)
	if _, ok := core.FindAccount(s.accounts, name); !ok {
		return fmt.Errorf("account %s: %w", name, core.ErrNotFound)
	}
	if len(s.accounts) <= 1 {
		return core.ErrLastAccount
	}
	next := make([]core.Account, 0, len(s.accounts)-1)
	for _, a := range s.accounts {
		if a.Name != name {
			next = append(next, a)
		}
	}
	if err := s.replaceAccountsLocked(ctx, next); err != nil {
		return err
	}
	slog.InfoContext(ctx, "Account removed", "component", "ledger", "account", name)
	return nil
}

func (s *LedgerService) replaceAccountsLocked(ctx context.Context, accounts []core.Account) error {
	if err := s.store.ReplaceAccounts(ctx, accounts); err != nil {
		return fmt.Errorf("save accounts: %w", err)
	}
	s.afterWriteLocked(ctx, dirtyFlags{accounts: true})
	return nil
}

// Admin returns a copy of the typed admin configuration.
func (s *LedgerService) Admin(ctx context.Context) (core.AdminConfig, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.refreshDirtyLocked(ctx); err != nil {
		return core.AdminConfig{}, err
	}
	return copyAdmin(s.admin), nil
}

// SetLockedMonths replaces the set of months closed for edits.
func (s *LedgerService) SetLockedMonths(ctx context.Context, months []core.Month) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.refreshDirtyLocked(ctx); err != nil {
		return err
	}

	cfg := copyAdmin(s.admin)
	cfg.LockedMonths = make(map[core.Month]bool, len(months))
	for _, m := range months {
		cfg.LockedMonths[m] = true
	}
	if err := s.saveAdminLocked(ctx, cfg); err != nil {
		return err
	}
	s.afterWriteLocked(ctx, dirtyFlags{admin: true})
	slog.InfoContext(ctx, "Locked months saved", "component", "ledger", "count", len(months))
	return nil
}

// SaveRules parses text and stores the rules in canonical form. Locked rules
// and malformed text are rejected before any write.
func (s *LedgerService) SaveRules(ctx context.Context, text string) (core.Rules, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.refreshDirtyLocked(ctx); err != nil {
		return nil, err
	}

	if s.admin.RulesLocked {
		return nil, core.ErrRulesLocked
	}
	rules, err := core.ParseRules(text)
	if err != nil {
		return nil, err
	}
	cfg := copyAdmin(s.admin)
	cfg.Rules = rules
	if err := s.saveAdminLocked(ctx, cfg); err != nil {
		return nil, err
	}
	s.afterWriteLocked(ctx, dirtyFlags{admin: true})
	slog.InfoContext(ctx, "Rules saved", "component", "ledger", "count", len(rules))
	return rules, nil
}

// SetRulesLocked toggles the rules lock.
func (s *LedgerService) SetRulesLocked(ctx context.Context, locked bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.refreshDirtyLocked(ctx); err != nil {
		return err
	}

	cfg := copyAdmin(s.admin)
	cfg.RulesLocked = locked
	if err := s.saveAdminLocked(ctx, cfg); err != nil {
		return err
	}
	s.afterWriteLocked(ctx, dirtyFlags{admin: true})
	return nil
}

// SaveRecurringPreference inserts or replaces the preference for its
// merchant key.
func (s *LedgerService) SaveRecurringPreference(ctx context.Context, p core.RecurringPreference) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.refreshDirtyLocked(ctx); err != nil {
		return err
	}

	p.MerchantKey = strings.ToLower(strings.TrimSpace(p.MerchantKey))
	if p.MerchantKey == "" {
		return core.ErrEmptyMerchantKey
	}
	if p.DayOfMonth < 0 || p.DayOfMonth > 31 {
		return fmt.Errorf("%w: day of month %d", core.ErrInvalidDate, p.DayOfMonth)
	}
	if p.Amount.Valid && p.Amount.Decimal.IsNegative() {
		return core.ErrInvalidAmount
	}
	if p.Pay != "" {
		pay, err := core.ParsePayMethod(string(p.Pay))
		if err != nil {
			return err
		}
		p.Pay = pay
	}
	p.Account = core.NormalizeAccountName(p.Account)
	if core.RequiresAccount(core.TypeExpense, p.Pay) && p.Account == "" {
		return core.ErrAccountRequired
	}
	if p.Account != "" {
		if _, ok := core.FindAccount(s.accounts, p.Account); !ok {
			return fmt.Errorf("%w: %q", core.ErrUnknownAccount, p.Account)
		}
	}

	cfg := copyAdmin(s.admin)
	cfg.RecurringPrefs = core.UpsertPreference(cfg.RecurringPrefs, p)
	if err := s.saveAdminLocked(ctx, cfg); err != nil {
		return err
	}
	s.afterWriteLocked(ctx, dirtyFlags{admin: true})
	slog.InfoContext(ctx, "Recurring preference saved",
		"component", "recurring",
		"merchant", p.MerchantKey,
		"active", p.Active())
	return nil
}

// saveAdminLocked writes cfg as a unit: every key whose encoding differs
// from the current config is upserted.
func (s *LedgerService) saveAdminLocked(ctx context.Context, cfg core.AdminConfig) error {
	next, err := cfg.Encode()
	if err != nil {
		return err
	}
	current, err := s.admin.Encode()
	if err != nil {
		return err
	}
	for _, key := range sortedKeys(next) {
		if current[key] == next[key] {
			continue
		}
		if err := s.store.SetAdminValue(ctx, key, next[key]); err != nil {
			return fmt.Errorf("save admin %s: %w", key, err)
		}
	}
	return nil
}

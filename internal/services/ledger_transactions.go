package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/shopspring/decimal"

	"fintrack/internal/core"
	"fintrack/internal/ledger"
)

type undoKind int

const (
	undoAdd undoKind = iota + 1
	undoEdit
	undoDelete
)

// undoEntry is the one-slot undo buffer: the last add, edit or delete and
// what is needed to revert it.
type undoEntry struct {
	kind  undoKind
	tx    core.Transaction // the added row, or the row before the edit/delete
	index int              // former position of a deleted row
}

// RecurringMark asks AddTransaction to also save a recurring preference for
// the merchant named in the notes.
type RecurringMark struct {
	DayOfMonth int
	Nickname   string
}

// AddTransaction validates and appends tx. An empty category is filled by
// the rules; the provenance tag records whether the rules picked it. With a
// non-nil mark a recurring preference keyed by the notes' merchant is saved
// too; when no merchant key can be derived nothing is written.
func (s *LedgerService) AddTransaction(ctx context.Context, tx core.Transaction, mark *RecurringMark) (core.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.refreshDirtyLocked(ctx); err != nil {
		return core.Transaction{}, err
	}

	if strings.TrimSpace(tx.Category) == "" {
		tx.Category = ledger.Classify(tx.Notes, s.admin.Rules)
	}
	tx = tx.Normalize()
	tx.ID = s.newID()
	tx.CreatedAt = s.now()
	if tx.Owner == "" {
		tx.Owner = s.owner
	}
	tx.AutoTag = ledger.EntryTag(tx.Notes, tx.Category, s.admin.Rules)
	if err := s.checkWritableLocked(tx); err != nil {
		return core.Transaction{}, err
	}

	var pref core.RecurringPreference
	if mark != nil {
		mk := ledger.MerchantKey(tx.Notes)
		if mk == "" {
			return core.Transaction{}, core.ErrEmptyMerchantKey
		}
		day := mark.DayOfMonth
		if day < 1 || day > 31 {
			day = tx.Date.Day()
		}
		pref = core.RecurringPreference{
			MerchantKey: mk,
			Nickname:    strings.TrimSpace(mark.Nickname),
			IsRecurring: true,
			DayOfMonth:  day,
			Category:    tx.Category,
			Pay:         tx.PayMethod,
			Account:     tx.Account,
			Amount:      decimal.NewNullDecimal(tx.Amount),
		}
	}

	if err := s.store.AppendTransaction(ctx, tx); err != nil {
		return core.Transaction{}, fmt.Errorf("append transaction: %w", err)
	}
	written := dirtyFlags{transactions: true}

	if mark != nil {
		cfg := copyAdmin(s.admin)
		cfg.RecurringPrefs = core.UpsertPreference(cfg.RecurringPrefs, pref)
		if err := s.saveAdminLocked(ctx, cfg); err != nil {
			return core.Transaction{}, s.rollbackAddLocked(ctx, tx, fmt.Errorf("save recurring preference: %w", err))
		}
		written.admin = true
	}

	s.undo = &undoEntry{kind: undoAdd, tx: tx}
	s.afterWriteLocked(ctx, written)
	slog.InfoContext(ctx, "Transaction added",
		"component", "ledger",
		"tx_id", tx.ID,
		"tx_type", tx.Type,
		"amount", tx.Amount.StringFixed(2),
		"category", tx.Category,
		"auto_tag", tx.AutoTag,
		"month", tx.Month().String())
	return tx, nil
}

// rollbackAddLocked removes a row appended by an add whose follow-up write
// failed, so the add fails as a whole. When the removal fails too the row
// stays, undoable, and both errors are returned.
func (s *LedgerService) rollbackAddLocked(ctx context.Context, tx core.Transaction, cause error) error {
	if _, err := s.store.DeleteTransaction(ctx, tx.ID); err != nil {
		slog.ErrorContext(ctx, "Rollback of added transaction failed",
			"component", "ledger", "tx_id", tx.ID, "error", err)
		s.undo = &undoEntry{kind: undoAdd, tx: tx}
		s.afterWriteLocked(ctx, dirtyFlags{transactions: true})
		return errors.Join(cause, fmt.Errorf("remove %s: %w", tx.ID, err))
	}
	slog.WarnContext(ctx, "Added transaction rolled back",
		"component", "ledger", "tx_id", tx.ID, "error", cause)
	return cause
}

// EditTransaction overwrites the row with tx.ID. ID, CreatedAt, Owner and
// the provenance tag of the stored row are kept. Both the stored and the new
// month must be unlocked.
func (s *LedgerService) EditTransaction(ctx context.Context, tx core.Transaction) (core.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.refreshDirtyLocked(ctx); err != nil {
		return core.Transaction{}, err
	}

	prior, _, ok := s.findLocked(tx.ID)
	if !ok {
		return core.Transaction{}, fmt.Errorf("transaction %s: %w", tx.ID, core.ErrNotFound)
	}
	if err := s.checkMonthLocked(prior.Month()); err != nil {
		return core.Transaction{}, err
	}

	if strings.TrimSpace(tx.Category) == "" {
		tx.Category = ledger.Classify(tx.Notes, s.admin.Rules)
	}
	tx = tx.Normalize()
	tx.ID = prior.ID
	tx.CreatedAt = prior.CreatedAt
	tx.Owner = prior.Owner
	tx.AutoTag = prior.AutoTag
	if err := s.checkWritableLocked(tx); err != nil {
		return core.Transaction{}, err
	}

	if err := s.store.UpdateTransaction(ctx, tx); err != nil {
		return core.Transaction{}, fmt.Errorf("update transaction: %w", err)
	}
	s.undo = &undoEntry{kind: undoEdit, tx: prior}
	s.afterWriteLocked(ctx, dirtyFlags{transactions: true})
	slog.InfoContext(ctx, "Transaction edited",
		"component", "ledger",
		"tx_id", tx.ID,
		"amount", tx.Amount.StringFixed(2),
		"month", tx.Month().String())
	return tx, nil
}

// DeleteTransaction removes the row with id.
func (s *LedgerService) DeleteTransaction(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.refreshDirtyLocked(ctx); err != nil {
		return err
	}

	prior, _, ok := s.findLocked(id)
	if !ok {
		return fmt.Errorf("transaction %s: %w", id, core.ErrNotFound)
	}
	if err := s.checkMonthLocked(prior.Month()); err != nil {
		return err
	}

	index, err := s.store.DeleteTransaction(ctx, id)
	if err != nil {
		return fmt.Errorf("delete transaction: %w", err)
	}
	s.undo = &undoEntry{kind: undoDelete, tx: prior, index: index}
	s.afterWriteLocked(ctx, dirtyFlags{transactions: true})
	slog.InfoContext(ctx, "Transaction deleted", "component", "ledger", "tx_id", id, "index", index)
	return nil
}

// CanUndo reports whether the undo slot holds an action.
func (s *LedgerService) CanUndo() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.undo != nil
}

// Undo reverts the last add, edit or delete. The slot is cleared only when
// the revert succeeds.
func (s *LedgerService) Undo(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.undo == nil {
		return core.ErrNothingToUndo
	}
	if err := s.refreshDirtyLocked(ctx); err != nil {
		return err
	}
	u := s.undo

	if err := s.checkMonthLocked(u.tx.Month()); err != nil {
		return err
	}
	switch u.kind {
	case undoAdd:
		if _, _, ok := s.findLocked(u.tx.ID); ok {
			if _, err := s.store.DeleteTransaction(ctx, u.tx.ID); err != nil {
				return fmt.Errorf("undo add: %w", err)
			}
		}
	case undoEdit:
		current, _, ok := s.findLocked(u.tx.ID)
		if !ok {
			return fmt.Errorf("undo edit of %s: %w", u.tx.ID, core.ErrNotFound)
		}
		if err := s.checkMonthLocked(current.Month()); err != nil {
			return err
		}
		if err := s.store.UpdateTransaction(ctx, u.tx); err != nil {
			return fmt.Errorf("undo edit: %w", err)
		}
	case undoDelete:
		if err := s.store.RestoreTransaction(ctx, u.tx, u.index); err != nil {
			return fmt.Errorf("undo delete: %w", err)
		}
	}

	s.undo = nil
	s.afterWriteLocked(ctx, dirtyFlags{transactions: true})
	slog.InfoContext(ctx, "Undo applied", "component", "ledger", "tx_id", u.tx.ID)
	return nil
}

// EnsureRecurring writes the recurring entries of month that are not in the
// ledger yet and returns how many were written. Locked months are skipped.
func (s *LedgerService) EnsureRecurring(ctx context.Context, month core.Month) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ensureRecurringLocked(ctx, month)
}

// SelectMonth makes month the active month. Materialization runs when the
// selection changes; the number of entries written is returned.
func (s *LedgerService) SelectMonth(ctx context.Context, month core.Month) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if month == s.selected {
		return 0, nil
	}
	n, err := s.ensureRecurringLocked(ctx, month)
	if err != nil {
		return n, err
	}
	s.selected = month
	return n, nil
}

// ensureRecurringLocked re-reads the store first: another process (the
// worker or a second server) may have materialized the month already.
func (s *LedgerService) ensureRecurringLocked(ctx context.Context, month core.Month) (int, error) {
	s.dirty.transactions = true
	s.dirty.admin = true
	if err := s.refreshDirtyLocked(ctx); err != nil {
		return 0, err
	}
	if s.admin.IsLocked(month) {
		slog.InfoContext(ctx, "Skipping recurring materialization for locked month",
			"component", "recurring", "month", month.String())
		return 0, nil
	}

	existing := ledger.ExistingAutoTags(s.txs, month)
	pending := ledger.MaterializeRecurring(month, s.admin.RecurringPrefs, existing)

	written, raced := 0, false
	for _, tx := range pending {
		tx.ID = s.newID()
		tx.CreatedAt = s.now()
		tx.Owner = s.owner
		if err := s.checkWritableLocked(tx); err != nil {
			slog.WarnContext(ctx, "Skipping invalid recurring entry",
				"component", "recurring", "auto_tag", tx.AutoTag, "error", err)
			continue
		}
		if err := s.store.AppendTransaction(ctx, tx); err != nil {
			if errors.Is(err, core.ErrRecurringExists) {
				slog.InfoContext(ctx, "Recurring entry already written by another process",
					"component", "recurring", "auto_tag", tx.AutoTag)
				raced = true
				continue
			}
			if written > 0 || raced {
				s.afterWriteLocked(ctx, dirtyFlags{transactions: true})
			}
			return written, fmt.Errorf("materialize %s: %w", tx.AutoTag, err)
		}
		written++
	}
	if written > 0 || raced {
		s.afterWriteLocked(ctx, dirtyFlags{transactions: true})
	}
	s.lastRecurring = month
	slog.InfoContext(ctx, "Recurring entries materialized",
		"component", "recurring",
		"month", month.String(),
		"count", written)
	return written, nil
}

func (s *LedgerService) findLocked(id string) (core.Transaction, int, bool) {
	for i, tx := range s.txs {
		if tx.ID == id {
			return tx, i, true
		}
	}
	return core.Transaction{}, -1, false
}

func (s *LedgerService) checkMonthLocked(m core.Month) error {
	if s.admin.IsLocked(m) {
		return fmt.Errorf("%s: %w", m, core.ErrMonthLocked)
	}
	return nil
}

// checkWritableLocked validates a normalized row against the snapshot: field
// rules, the locked-month guard on its own date and a known account.
func (s *LedgerService) checkWritableLocked(tx core.Transaction) error {
	if err := tx.Validate(); err != nil {
		return err
	}
	if err := s.checkMonthLocked(tx.Month()); err != nil {
		return err
	}
	if tx.Account != "" {
		if _, ok := core.FindAccount(s.accounts, tx.Account); !ok {
			return fmt.Errorf("%w: %q", core.ErrUnknownAccount, tx.Account)
		}
	}
	return nil
}

package memory

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"fintrack/internal/core"
)

func TestMemoryStoreTransactionLifecycle(t *testing.T) {
	ctx := context.Background()
	s := New(nil)
	for _, id := range []string{"a", "b", "c"} {
		if err := s.AppendTransaction(ctx, core.Transaction{ID: id, Notes: id}); err != nil {
			t.Fatalf("append %s: %v", id, err)
		}
	}

	if err := s.UpdateTransaction(ctx, core.Transaction{ID: "b", Notes: "edited"}); err != nil {
		t.Fatalf("update: %v", err)
	}
	if err := s.UpdateTransaction(ctx, core.Transaction{ID: "zzz"}); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	idx, err := s.DeleteTransaction(ctx, "b")
	if err != nil || idx != 1 {
		t.Fatalf("unexpected delete: idx=%d err=%v", idx, err)
	}
	txs, _ := s.ListTransactions(ctx)
	if len(txs) != 2 || txs[0].ID != "a" || txs[1].ID != "c" {
		t.Fatalf("unexpected rows after delete: %v", txs)
	}

	if err := s.RestoreTransaction(ctx, core.Transaction{ID: "b", Notes: "edited"}, idx); err != nil {
		t.Fatalf("restore: %v", err)
	}
	txs, _ = s.ListTransactions(ctx)
	if len(txs) != 3 || txs[1].ID != "b" || txs[1].Notes != "edited" {
		t.Fatalf("restore should put the row back in place: %v", txs)
	}
}

func TestMemoryStoreMirror(t *testing.T) {
	ctx := context.Background()
	s := New(nil)
	_ = s.UpsertTransaction(ctx, core.Transaction{ID: "a", Notes: "one"})
	_ = s.UpsertTransaction(ctx, core.Transaction{ID: "a", Notes: "two"})
	txs, _ := s.ListTransactions(ctx)
	if len(txs) != 1 || txs[0].Notes != "two" {
		t.Fatalf("upsert should replace: %v", txs)
	}
	if err := s.RemoveTransaction(ctx, "missing"); err != nil {
		t.Fatalf("removing a missing row should be a no-op: %v", err)
	}
	_ = s.RemoveTransaction(ctx, "a")
	txs, _ = s.ListTransactions(ctx)
	if len(txs) != 0 {
		t.Fatalf("expected empty table, got %v", txs)
	}
}

func TestMemoryStoreAdminAndAccounts(t *testing.T) {
	ctx := context.Background()
	s := New([]core.Account{{Name: "Visa", BillingDay: 1}})
	_ = s.SetAdminValue(ctx, core.AdminKeyRulesLocked, "true")
	vals, _ := s.AdminValues(ctx)
	vals[core.AdminKeyRulesLocked] = "mutated"
	again, _ := s.AdminValues(ctx)
	if again[core.AdminKeyRulesLocked] != "true" {
		t.Fatalf("admin values must be copied, got %q", again[core.AdminKeyRulesLocked])
	}

	_ = s.ReplaceAccounts(ctx, []core.Account{{Name: "Amex", BillingDay: 5}, {Name: "Visa", BillingDay: 1}})
	accts, _ := s.ListAccounts(ctx)
	if len(accts) != 2 || accts[0].Name != "Amex" {
		t.Fatalf("unexpected accounts: %v", accts)
	}
}

func TestNewFromFilesSeedsAccounts(t *testing.T) {
	dir := t.TempDir()
	s := NewFromFiles(dir)
	accts, _ := s.ListAccounts(context.Background())
	if len(accts) != 1 {
		t.Fatalf("expected a default account when the seed file is missing, got %v", accts)
	}

	content := "# name, limit, billing day\nVisa, 5000, 15\nAmex,,\n, 100, 1\nBad, 10, 40\n"
	if err := os.WriteFile(filepath.Join(dir, "seed_accounts.txt"), []byte(content), 0o644); err != nil {
		t.Fatalf("write seed: %v", err)
	}
	s = NewFromFiles(dir)
	accts, _ = s.ListAccounts(context.Background())
	if len(accts) != 2 || accts[0].Name != "Visa" || accts[0].BillingDay != 15 || accts[1].Name != "Amex" {
		t.Fatalf("unexpected seeded accounts: %v", accts)
	}
	if !accts[1].Limit.IsZero() {
		t.Fatalf("missing limit should be zero, got %s", accts[1].Limit)
	}
}

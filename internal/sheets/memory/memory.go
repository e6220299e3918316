package memory

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"

	"github.com/shopspring/decimal"

	"fintrack/internal/core"
	ports "fintrack/internal/sheets"
)

var (
	_ ports.Store             = (*Store)(nil)
	_ ports.TransactionMirror = (*Store)(nil)
)

// Store keeps the three tables in process memory.
type Store struct {
	mu       sync.Mutex
	txs      []core.Transaction
	accounts []core.Account
	admin    map[string]string
}

func New(accounts []core.Account) *Store {
	return &Store{accounts: append([]core.Account(nil), accounts...), admin: map[string]string{}}
}

// NewFromFiles seeds accounts from base/seed_accounts.txt, one
// "Name, Limit, BillingDay" per line.
func NewFromFiles(base string) *Store {
	var accounts []core.Account
	for _, line := range readLines(filepath.Join(base, "seed_accounts.txt")) {
		if a, ok := parseSeedAccount(line); ok {
			accounts = append(accounts, a)
		}
	}
	if len(accounts) == 0 {
		accounts = []core.Account{{Name: "Credit Card", Emoji: core.DefaultAccountEmoji, BillingDay: 1}}
	}
	return New(accounts)
}

func parseSeedAccount(line string) (core.Account, bool) {
	parts := strings.Split(line, ",")
	a := core.Account{Name: strings.TrimSpace(parts[0]), BillingDay: 1}
	if len(parts) > 1 {
		if d, err := decimal.NewFromString(strings.TrimSpace(parts[1])); err == nil {
			a.Limit = d
		}
	}
	if len(parts) > 2 {
		if day, err := strconv.Atoi(strings.TrimSpace(parts[2])); err == nil {
			a.BillingDay = day
		}
	}
	a = a.Normalize()
	return a, a.Validate() == nil
}

// Seed replaces the transaction table; used by tests and demos.
func (s *Store) Seed(txs []core.Transaction) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.txs = append([]core.Transaction(nil), txs...)
}

func (s *Store) ListTransactions(_ context.Context) ([]core.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]core.Transaction(nil), s.txs...), nil
}

func (s *Store) AppendTransaction(_ context.Context, tx core.Transaction) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.txs = append(s.txs, tx)
	return nil
}

func (s *Store) UpdateTransaction(_ context.Context, tx core.Transaction) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.indexOf(tx.ID)
	if i < 0 {
		return fmt.Errorf("transaction %s: %w", tx.ID, core.ErrNotFound)
	}
	s.txs[i] = tx
	return nil
}

func (s *Store) DeleteTransaction(_ context.Context, id string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.indexOf(id)
	if i < 0 {
		return 0, fmt.Errorf("transaction %s: %w", id, core.ErrNotFound)
	}
	s.txs = append(s.txs[:i], s.txs[i+1:]...)
	return i, nil
}

func (s *Store) RestoreTransaction(_ context.Context, tx core.Transaction, index int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	index = max(0, min(index, len(s.txs)))
	s.txs = append(s.txs, core.Transaction{})
	copy(s.txs[index+1:], s.txs[index:])
	s.txs[index] = tx
	return nil
}

func (s *Store) UpsertTransaction(_ context.Context, tx core.Transaction) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if i := s.indexOf(tx.ID); i >= 0 {
		s.txs[i] = tx
		return nil
	}
	s.txs = append(s.txs, tx)
	return nil
}

func (s *Store) RemoveTransaction(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if i := s.indexOf(id); i >= 0 {
		s.txs = append(s.txs[:i], s.txs[i+1:]...)
	}
	return nil
}

func (s *Store) indexOf(id string) int {
	for i, tx := range s.txs {
		if tx.ID == id {
			return i
		}
	}
	return -1
}

func (s *Store) ListAccounts(_ context.Context) ([]core.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]core.Account(nil), s.accounts...), nil
}

func (s *Store) ReplaceAccounts(_ context.Context, accounts []core.Account) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.accounts = append([]core.Account(nil), accounts...)
	return nil
}

func (s *Store) AdminValues(_ context.Context) (map[string]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[string]string, len(s.admin))
	for k, v := range s.admin {
		out[k] = v
	}
	return out, nil
}

func (s *Store) SetAdminValue(_ context.Context, key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.admin[key] = value
	return nil
}

func readLines(path string) []string {
	f, err := os.Open(path)
	if err != nil {
		return nil
	}
	defer f.Close()
	var out []string
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		out = append(out, line)
	}
	return out
}

package services

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"fintrack/internal/cache"
	"fintrack/internal/core"
	"fintrack/internal/ledger"
	ports "fintrack/internal/sheets"
)

const (
	viewCacheSize = 64
	viewCacheTTL  = 10 * time.Minute
)

// LedgerService is the application context of one ledger session. It owns
// the in-memory snapshot of the three tables, the dirty flags that decide
// which sections are re-read before the next access, the one-slot undo
// buffer and the month whose recurring entries were last materialized.
//
// Every mutation is written to the store first and followed by a re-read of
// the affected section; a rejected or failed mutation leaves the snapshot as
// it was.
type LedgerService struct {
	mu    sync.Mutex
	store ports.Store
	owner string
	now   func() time.Time
	newID func() string

	txs      []core.Transaction
	accounts []core.Account
	admin    core.AdminConfig
	dirty    dirtyFlags
	version  uint64

	undo          *undoEntry
	selected      core.Month
	lastRecurring core.Month

	utilization *cache.LRUCache[[]ledger.Utilization]
	dashboards  *cache.LRUCache[Dashboard]
	trends      *cache.LRUCache[ledger.Trends]
	insights    *cache.LRUCache[ledger.Insights]
}

type dirtyFlags struct {
	transactions bool
	accounts     bool
	admin        bool
}

func (d dirtyFlags) any() bool { return d.transactions || d.accounts || d.admin }

// Option configures a LedgerService.
type Option func(*LedgerService)

// WithOwner sets the Owner column written on new rows.
func WithOwner(owner string) Option {
	return func(s *LedgerService) {
		if owner != "" {
			s.owner = owner
		}
	}
}

// WithClock replaces time.Now, for CreatedAt stamps and "today".
func WithClock(now func() time.Time) Option {
	return func(s *LedgerService) { s.now = now }
}

// WithIDGenerator replaces the uuid transaction id generator.
func WithIDGenerator(newID func() string) Option {
	return func(s *LedgerService) { s.newID = newID }
}

func NewLedgerService(store ports.Store, opts ...Option) *LedgerService {
	s := &LedgerService{
		store:       store,
		owner:       core.DefaultOwner,
		now:         time.Now,
		newID:       func() string { return uuid.NewString() },
		admin:       core.DefaultAdminConfig(),
		dirty:       dirtyFlags{transactions: true, accounts: true, admin: true},
		utilization: cache.NewLRUCache[[]ledger.Utilization](viewCacheSize, viewCacheTTL),
		dashboards:  cache.NewLRUCache[Dashboard](viewCacheSize, viewCacheTTL),
		trends:      cache.NewLRUCache[ledger.Trends](viewCacheSize, viewCacheTTL),
		insights:    cache.NewLRUCache[ledger.Insights](viewCacheSize, viewCacheTTL),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// RegisterCaches hands the view caches to m for periodic expiry.
func (s *LedgerService) RegisterCaches(m *cache.Manager) {
	m.Register(s.utilization)
	m.Register(s.dashboards)
	m.Register(s.trends)
	m.Register(s.insights)
}

// CacheStats reports the derived view caches by view name.
func (s *LedgerService) CacheStats() map[string]cache.Stats {
	return map[string]cache.Stats{
		"utilization": s.utilization.Stats(),
		"dashboard":   s.dashboards.Stats(),
		"trends":      s.trends.Stats(),
		"insights":    s.insights.Stats(),
	}
}

// Ping checks that the store answers, without touching the snapshot.
func (s *LedgerService) Ping(ctx context.Context) error {
	if _, err := s.store.AdminValues(ctx); err != nil {
		return fmt.Errorf("store unreachable: %w", err)
	}
	return nil
}

// Snapshot is a copy of the session state at one version.
type Snapshot struct {
	Version      uint64
	Transactions []core.Transaction
	Accounts     []core.Account
	Admin        core.AdminConfig
}

// Refresh re-reads all three tables.
func (s *LedgerService) Refresh(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.dirty = dirtyFlags{transactions: true, accounts: true, admin: true}
	return s.refreshDirtyLocked(ctx)
}

// RefreshDirty re-reads only the sections marked dirty by earlier writes.
func (s *LedgerService) RefreshDirty(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.refreshDirtyLocked(ctx)
}

// Snapshot returns a copy of the current state, refreshing dirty sections
// first.
func (s *LedgerService) Snapshot(ctx context.Context) (Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.refreshDirtyLocked(ctx); err != nil {
		return Snapshot{}, err
	}
	return s.snapshotLocked(), nil
}

// Version is the snapshot version; it changes whenever a section is re-read.
func (s *LedgerService) Version() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.version
}

// SelectedMonth is the month last passed to SelectMonth.
func (s *LedgerService) SelectedMonth() core.Month {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.selected
}

// LastMaterialized is the month of the last completed recurring pass.
func (s *LedgerService) LastMaterialized() core.Month {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastRecurring
}

func (s *LedgerService) snapshotLocked() Snapshot {
	return Snapshot{
		Version:      s.version,
		Transactions: append([]core.Transaction(nil), s.txs...),
		Accounts:     append([]core.Account(nil), s.accounts...),
		Admin:        copyAdmin(s.admin),
	}
}

// refreshDirtyLocked reads every dirty section concurrently and swaps the
// results in only when all reads succeed.
func (s *LedgerService) refreshDirtyLocked(ctx context.Context) error {
	if !s.dirty.any() {
		return nil
	}
	want := s.dirty

	var (
		txs      []core.Transaction
		accounts []core.Account
		admin    core.AdminConfig
	)
	g, gctx := errgroup.WithContext(ctx)
	if want.transactions {
		g.Go(func() error {
			rows, err := s.store.ListTransactions(gctx)
			if err != nil {
				return fmt.Errorf("read transactions: %w", err)
			}
			txs = rows
			return nil
		})
	}
	if want.accounts {
		g.Go(func() error {
			rows, err := s.store.ListAccounts(gctx)
			if err != nil {
				return fmt.Errorf("read accounts: %w", err)
			}
			accounts = rows
			return nil
		})
	}
	if want.admin {
		g.Go(func() error {
			cfg, err := s.loadAdmin(gctx)
			if err != nil {
				return err
			}
			admin = cfg
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		slog.ErrorContext(ctx, "Snapshot refresh failed", "component", "ledger", "error", err)
		return err
	}

	if want.transactions {
		s.txs = txs
	}
	if want.accounts {
		s.accounts = accounts
	}
	if want.admin {
		s.admin = admin
	}
	s.dirty = dirtyFlags{}
	s.version++
	slog.DebugContext(ctx, "Snapshot refreshed",
		"component", "ledger",
		"version", s.version,
		"transactions", want.transactions,
		"accounts", want.accounts,
		"admin", want.admin)
	return nil
}

// loadAdmin reads the admin table, writing defaults for absent keys first.
func (s *LedgerService) loadAdmin(ctx context.Context) (core.AdminConfig, error) {
	values, err := s.store.AdminValues(ctx)
	if err != nil {
		return core.AdminConfig{}, fmt.Errorf("read admin: %w", err)
	}
	missing, err := core.MissingAdminKeys(values)
	if err != nil {
		return core.AdminConfig{}, err
	}
	for _, key := range sortedKeys(missing) {
		if err := s.store.SetAdminValue(ctx, key, missing[key]); err != nil {
			return core.AdminConfig{}, fmt.Errorf("write admin default %s: %w", key, err)
		}
		values[key] = missing[key]
		slog.InfoContext(ctx, "Admin default written", "component", "ledger", "key", key)
	}
	cfg, warnings := core.DecodeAdminConfig(values)
	for _, w := range warnings {
		slog.WarnContext(ctx, "Admin config fallback", "component", "ledger", "warning", w)
	}
	return cfg, nil
}

// afterWriteLocked re-reads the sections a successful write touched. A
// failed re-read keeps the flags set so the next access retries it.
func (s *LedgerService) afterWriteLocked(ctx context.Context, d dirtyFlags) {
	s.dirty.transactions = s.dirty.transactions || d.transactions
	s.dirty.accounts = s.dirty.accounts || d.accounts
	s.dirty.admin = s.dirty.admin || d.admin
	if err := s.refreshDirtyLocked(ctx); err != nil {
		slog.WarnContext(ctx, "Re-read after write failed, will retry on next access",
			"component", "ledger", "error", err)
	}
}

func copyAdmin(c core.AdminConfig) core.AdminConfig {
	out := core.AdminConfig{
		LockedMonths:   make(map[core.Month]bool, len(c.LockedMonths)),
		Rules:          make(core.Rules, len(c.Rules)),
		RulesLocked:    c.RulesLocked,
		RecurringPrefs: append([]core.RecurringPreference(nil), c.RecurringPrefs...),
	}
	for m, v := range c.LockedMonths {
		out.LockedMonths[m] = v
	}
	for i, r := range c.Rules {
		out.Rules[i] = core.Rule{Category: r.Category, Keywords: append([]string(nil), r.Keywords...)}
	}
	return out
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

package commands

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fintrack/internal/config"
	"fintrack/internal/core"
	"fintrack/internal/services"
	"fintrack/internal/sheets/memory"
)

func testLedger(t *testing.T) (*services.LedgerService, LedgerOpener) {
	t.Helper()
	store := memory.New([]core.Account{{
		Name: "Visa", Emoji: core.DefaultAccountEmoji, Limit: decimal.NewFromInt(1000), BillingDay: 15,
	}})
	n := 0
	svc := services.NewLedgerService(store,
		services.WithClock(func() time.Time { return time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC) }),
		services.WithIDGenerator(func() string { n++; return fmt.Sprintf("tx-%d", n) }),
	)
	require.NoError(t, svc.Refresh(context.Background()))
	open := func(context.Context) (*services.LedgerService, func() error, error) {
		return svc, func() error { return nil }, nil
	}
	return svc, open
}

func noConfig() (*config.Config, error) { return nil, errors.New("no config in tests") }

func run(t *testing.T, open LedgerOpener, stdin string, args ...string) (string, error) {
	t.Helper()
	root := newRootCommand(open, noConfig)
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetIn(strings.NewReader(stdin))
	root.SetArgs(args)
	err := root.ExecuteContext(context.Background())
	return out.String(), err
}

func TestExportWritesCSV(t *testing.T) {
	svc, open := testLedger(t)
	_, err := svc.AddTransaction(context.Background(), core.Transaction{
		Date: core.NewDate(2026, time.March, 2), Type: core.TypeExpense,
		Amount: decimal.NewFromInt(80), PayMethod: core.PayCash, Notes: "Costco run",
	}, nil)
	require.NoError(t, err)

	out, err := run(t, open, "", "export", "--month", "2026-03")
	require.NoError(t, err)
	assert.Contains(t, out, "Costco run")
	assert.Contains(t, out, "Groceries")

	out, err = run(t, open, "", "export", "--month", "2026-02")
	require.NoError(t, err)
	assert.NotContains(t, out, "Costco run")
}

func TestExportToFile(t *testing.T) {
	_, open := testLedger(t)
	path := filepath.Join(t.TempDir(), "all.csv")

	out, err := run(t, open, "", "export", "-o", path)
	require.NoError(t, err)
	assert.Contains(t, out, "to "+path)
	_, err = os.Stat(path)
	require.NoError(t, err)
}

func TestExportRejectsBadMonth(t *testing.T) {
	_, open := testLedger(t)
	_, err := run(t, open, "", "export", "--month", "March")
	assert.Error(t, err)
}

func TestRecurringMaterializesMonth(t *testing.T) {
	svc, open := testLedger(t)
	_, err := svc.AddTransaction(context.Background(), core.Transaction{
		Date: core.NewDate(2026, time.March, 5), Type: core.TypeExpense,
		Amount: decimal.RequireFromString("15.99"), PayMethod: core.PayCard, Account: "Visa", Notes: "Netflix",
	}, &services.RecurringMark{DayOfMonth: 5})
	require.NoError(t, err)

	out, err := run(t, open, "", "recurring", "--month", "2026-04")
	require.NoError(t, err)
	assert.Equal(t, "2026-04: 1 recurring entries added\n", out)

	out, err = run(t, open, "", "recurring", "--month", "2026-04")
	require.NoError(t, err)
	assert.Equal(t, "2026-04: 0 recurring entries added\n", out)
}

func TestUtilizationTable(t *testing.T) {
	_, open := testLedger(t)
	out, err := run(t, open, "", "utilization")
	require.NoError(t, err)
	assert.Contains(t, out, "ACCOUNT")
	assert.Contains(t, out, "Visa")
	assert.Contains(t, out, "$1,000.00")
}

func TestRulesCheck(t *testing.T) {
	out, err := run(t, nil, "Coffee: tim hortons, starbucks\n# comment\nRent: rent\n", "rules", "check", "-")
	require.NoError(t, err)
	assert.Contains(t, out, "3 categories")
	assert.Contains(t, out, "Coffee (2 keywords)")
	assert.Contains(t, out, "Uncategorized (0 keywords)")

	_, err = run(t, nil, "Coffee: beans\nno colon\n", "rules", "check", "-")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "-:2: missing ':'")
}

func TestRulesDefaultRoundTrips(t *testing.T) {
	out, err := run(t, nil, "", "rules", "default")
	require.NoError(t, err)
	rules, err := core.ParseRules(out)
	require.NoError(t, err)
	assert.Equal(t, core.DefaultRules(), rules)
}

func TestMerchant(t *testing.T) {
	_, open := testLedger(t)
	out, err := run(t, open, "", "merchant", "COSTCO WHOLESALE #123", "--classify")
	require.NoError(t, err)
	assert.Contains(t, out, "key: costco wholesale")
	assert.Contains(t, out, "nickname: Costco Wholesale")
	assert.Contains(t, out, "category: Groceries")

	_, err = run(t, open, "", "merchant", "12 34")
	assert.Error(t, err)
}

func TestDBMigrateAndVersion(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ledger.db")

	out, err := run(t, nil, "", "db", "version", "--path", path)
	require.NoError(t, err)
	assert.Contains(t, out, "version 0 (clean)")

	out, err = run(t, nil, "", "db", "migrate", "--path", path)
	require.NoError(t, err)
	assert.Contains(t, out, "migrated to version 2")

	_, err = run(t, nil, "", "db", "version")
	assert.ErrorContains(t, err, "no config in tests")
}

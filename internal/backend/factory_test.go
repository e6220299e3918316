package backend

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fintrack/internal/adapters"
	"fintrack/internal/config"
	"fintrack/internal/core"
	"fintrack/internal/sheets/memory"
)

func TestFromAppConfig(t *testing.T) {
	_, err := FromAppConfig(nil)
	require.Error(t, err)

	_, err = FromAppConfig(&config.Config{DataBackend: "postgres"})
	require.Error(t, err)

	cfg, err := FromAppConfig(&config.Config{
		DataBackend:          "sheets",
		GoogleSpreadsheetID:  "sheet-1",
		SheetsRetryAttempts:  6,
		SheetsRetryBaseDelay: time.Second,
		DataDir:              "seed",
	})
	require.NoError(t, err)
	assert.Equal(t, SheetsBackend, cfg.Type)
	assert.Equal(t, "sheet-1", cfg.GoogleSpreadsheetID)
	assert.Equal(t, "seed", cfg.DataDirectory)
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr bool
	}{
		{"memory", Config{Type: MemoryBackend}, false},
		{"sqlite without path", Config{Type: SQLiteBackend}, true},
		{"sheets without id", Config{Type: SheetsBackend}, true},
		{"sheets", Config{Type: SheetsBackend, GoogleSpreadsheetID: "x"}, false},
		{"unknown", Config{Type: "csv"}, true},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.cfg.Validate()
			if tc.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestRetryPolicy(t *testing.T) {
	p := RetryPolicy(Config{})
	assert.Equal(t, 4, p.Attempts)
	assert.Equal(t, 800*time.Millisecond, p.Initial)

	p = RetryPolicy(Config{RetryAttempts: 2, RetryBaseDelay: time.Second})
	assert.Equal(t, 2, p.Attempts)
	assert.Equal(t, time.Second, p.Initial)
}

func TestCreateMemoryAndSQLiteBackends(t *testing.T) {
	f := NewFactory(nil)
	ctx := context.Background()

	res, err := f.CreateBackend(ctx, Config{Type: MemoryBackend, DataDirectory: t.TempDir()})
	require.NoError(t, err)
	assert.IsType(t, &memory.Store{}, res.Backend)
	assert.NoError(t, res.Close())

	dbPath := filepath.Join(t.TempDir(), "ledger.db")
	res, err = f.CreateBackend(ctx, Config{Type: SQLiteBackend, SQLiteDBPath: dbPath, DataDirectory: t.TempDir()})
	require.NoError(t, err)
	assert.IsType(t, &adapters.SQLiteAdapter{}, res.Backend)
	accounts, err := res.Backend.ListAccounts(ctx)
	require.NoError(t, err)
	require.Len(t, accounts, 1, "an empty database gets the default card")
	require.NoError(t, res.Backend.ReplaceAccounts(ctx, append(accounts, core.Account{Name: "Amex", Emoji: "💳", BillingDay: 3})))
	require.NoError(t, res.Close())

	res, err = f.CreateBackend(ctx, Config{Type: SQLiteBackend, SQLiteDBPath: dbPath, DataDirectory: t.TempDir()})
	require.NoError(t, err)
	accounts, err = res.Backend.ListAccounts(ctx)
	require.NoError(t, err)
	assert.Len(t, accounts, 2, "existing accounts are not reseeded")
	assert.NoError(t, res.Close())
}

func TestGetBackendTypeStrings(t *testing.T) {
	assert.Equal(t, []string{"sqlite", "sheets", "memory"}, GetBackendTypeStrings())
}

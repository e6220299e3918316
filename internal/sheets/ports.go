package sheets

import (
	"context"

	"fintrack/internal/core"
)

// Ports for outbound adapters.
type (
	// TransactionStore is the transactions table. Rows keep insertion order.
	TransactionStore interface {
		ListTransactions(ctx context.Context) ([]core.Transaction, error)
		AppendTransaction(ctx context.Context, tx core.Transaction) error
		// UpdateTransaction overwrites the row with tx.ID; core.ErrNotFound if absent.
		UpdateTransaction(ctx context.Context, tx core.Transaction) error
		// DeleteTransaction removes the row and returns its former position so
		// an undo can put it back in place.
		DeleteTransaction(ctx context.Context, id string) (index int, err error)
		// RestoreTransaction re-inserts a deleted row at index (clamped to the table).
		RestoreTransaction(ctx context.Context, tx core.Transaction, index int) error
	}

	// AccountStore is the accounts table, saved as a whole.
	AccountStore interface {
		ListAccounts(ctx context.Context) ([]core.Account, error)
		ReplaceAccounts(ctx context.Context, accounts []core.Account) error
	}

	// AdminStore is the admin key/value table.
	AdminStore interface {
		AdminValues(ctx context.Context) (map[string]string, error)
		SetAdminValue(ctx context.Context, key, value string) error
	}

	// Store bundles the three tables of one backend.
	Store interface {
		TransactionStore
		AccountStore
		AdminStore
	}

	// TransactionMirror receives rows replicated from the primary store.
	TransactionMirror interface {
		// UpsertTransaction updates the row with tx.ID or appends it.
		UpsertTransaction(ctx context.Context, tx core.Transaction) error
		// RemoveTransaction deletes the row with id; absent rows are ignored.
		RemoveTransaction(ctx context.Context, id string) error
	}
)

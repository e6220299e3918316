package adapters

import (
	"context"
	"log/slog"

	"fintrack/internal/amqp"
	"fintrack/internal/core"
	ports "fintrack/internal/sheets"
	"fintrack/internal/storage"
)

var _ ports.Store = (*SQLiteAdapter)(nil)

// SyncPublisher announces changed transaction rows to the mirror worker.
type SyncPublisher interface {
	PublishTransactionSync(ctx context.Context, id string, op amqp.SyncOp, version int64) error
}

// SQLiteAdapter stores the ledger in SQLite and, after each transaction
// mutation, publishes a sync message so the worker can mirror the row to
// Google Sheets. Publishing is best effort: rows stay pending in SQLite and
// the worker's pending scan picks up anything a lost message missed.
type SQLiteAdapter struct {
	*storage.SQLiteRepository
	publisher SyncPublisher
}

// NewSQLiteAdapter wraps repo; publisher may be nil to run without sync.
func NewSQLiteAdapter(repo *storage.SQLiteRepository, publisher SyncPublisher) *SQLiteAdapter {
	return &SQLiteAdapter{SQLiteRepository: repo, publisher: publisher}
}

// AppendTransaction implements sheets.TransactionStore
func (a *SQLiteAdapter) AppendTransaction(ctx context.Context, tx core.Transaction) error {
	if err := a.SQLiteRepository.AppendTransaction(ctx, tx); err != nil {
		return err
	}
	a.publish(ctx, tx.ID, amqp.OpUpsert)
	return nil
}

// UpdateTransaction implements sheets.TransactionStore
func (a *SQLiteAdapter) UpdateTransaction(ctx context.Context, tx core.Transaction) error {
	if err := a.SQLiteRepository.UpdateTransaction(ctx, tx); err != nil {
		return err
	}
	a.publish(ctx, tx.ID, amqp.OpUpsert)
	return nil
}

// DeleteTransaction implements sheets.TransactionStore
func (a *SQLiteAdapter) DeleteTransaction(ctx context.Context, id string) (int, error) {
	index, err := a.SQLiteRepository.DeleteTransaction(ctx, id)
	if err != nil {
		return 0, err
	}
	a.publish(ctx, id, amqp.OpDelete)
	return index, nil
}

// RestoreTransaction implements sheets.TransactionStore
func (a *SQLiteAdapter) RestoreTransaction(ctx context.Context, tx core.Transaction, index int) error {
	if err := a.SQLiteRepository.RestoreTransaction(ctx, tx, index); err != nil {
		return err
	}
	a.publish(ctx, tx.ID, amqp.OpUpsert)
	return nil
}

func (a *SQLiteAdapter) publish(ctx context.Context, id string, op amqp.SyncOp) {
	if a.publisher == nil {
		return
	}
	rec, err := a.GetTransaction(ctx, id)
	if err != nil {
		slog.WarnContext(ctx, "Failed to read version for sync message", "id", id, "error", err)
		return
	}
	if err := a.publisher.PublishTransactionSync(ctx, id, op, rec.Version); err != nil {
		slog.WarnContext(ctx, "Failed to publish sync message, row stays pending",
			"id", id,
			"op", op,
			"error", err)
	}
}

// Close releases the database.
func (a *SQLiteAdapter) Close() error {
	return a.SQLiteRepository.Close()
}

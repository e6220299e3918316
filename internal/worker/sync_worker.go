package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"fintrack/internal/amqp"
	"fintrack/internal/core"
	ports "fintrack/internal/sheets"
	"fintrack/internal/storage"
)

// SyncSource is the SQLite side of the mirror.
type SyncSource interface {
	GetTransaction(ctx context.Context, id string) (storage.SyncRecord, error)
	ListPendingSync(ctx context.Context, limit int) ([]storage.PendingSync, error)
	MarkSynced(ctx context.Context, id string, version int64) error
	MarkSyncError(ctx context.Context, id string) error
	RequeueErrors(ctx context.Context) (int64, error)
}

// SyncWorker mirrors transaction rows from SQLite to Google Sheets
type SyncWorker struct {
	source    SyncSource
	mirror    ports.TransactionMirror
	batchSize int
}

func NewSyncWorker(source SyncSource, mirror ports.TransactionMirror, batchSize int) *SyncWorker {
	if batchSize <= 0 {
		batchSize = 10
	}
	return &SyncWorker{
		source:    source,
		mirror:    mirror,
		batchSize: batchSize,
	}
}

// HandleSyncMessage processes a single sync message from AMQP. The stored
// row decides what happens, so out-of-order messages converge on the
// latest state.
func (w *SyncWorker) HandleSyncMessage(ctx context.Context, msg *amqp.TransactionSyncMessage) error {
	slog.InfoContext(ctx, "Processing sync message",
		"id", msg.ID,
		"op", msg.Op,
		"version", msg.Version)

	rec, err := w.source.GetTransaction(ctx, msg.ID)
	if errors.Is(err, core.ErrNotFound) {
		slog.WarnContext(ctx, "Sync message for unknown transaction, dropping", "id", msg.ID)
		return nil
	}
	if err != nil {
		return fmt.Errorf("get transaction from storage: %w", err)
	}
	if rec.SyncStatus == storage.SyncSynced && rec.Version >= msg.Version {
		slog.DebugContext(ctx, "Transaction already mirrored", "id", msg.ID, "version", rec.Version)
		return nil
	}
	return w.syncRecord(ctx, rec)
}

// ProcessPending mirrors rows that are still pending. It covers messages
// lost while the broker or the worker was down.
func (w *SyncWorker) ProcessPending(ctx context.Context) (int, error) {
	return w.processPending(ctx, w.batchSize)
}

func (w *SyncWorker) processPending(ctx context.Context, limit int) (int, error) {
	pending, err := w.source.ListPendingSync(ctx, limit)
	if err != nil {
		return 0, fmt.Errorf("get pending transactions: %w", err)
	}
	if len(pending) == 0 {
		return 0, nil
	}

	slog.InfoContext(ctx, "Processing pending transactions", "count", len(pending))

	synced := 0
	for _, p := range pending {
		if ctx.Err() != nil {
			return synced, ctx.Err()
		}
		rec, err := w.source.GetTransaction(ctx, p.ID)
		if err != nil {
			slog.ErrorContext(ctx, "Failed to get transaction", "id", p.ID, "error", err)
			if err := w.source.MarkSyncError(ctx, p.ID); err != nil {
				slog.ErrorContext(ctx, "Failed to mark sync error", "id", p.ID, "error", err)
			}
			continue
		}
		if err := w.syncRecord(ctx, rec); err != nil {
			slog.ErrorContext(ctx, "Failed to sync transaction", "id", p.ID, "error", err)
			continue
		}
		synced++
	}
	return synced, nil
}

// StartupSyncCheck requeues failed rows and mirrors a larger pending batch.
func (w *SyncWorker) StartupSyncCheck(ctx context.Context) error {
	requeued, err := w.source.RequeueErrors(ctx)
	if err != nil {
		return fmt.Errorf("requeue failed transactions: %w", err)
	}

	synced, err := w.processPending(ctx, w.batchSize*5)
	if err != nil {
		return fmt.Errorf("startup sync: %w", err)
	}

	slog.InfoContext(ctx, "Startup sync completed",
		"requeued", requeued,
		"synced", synced)
	return nil
}

// Run polls for pending rows every interval until ctx is done.
func (w *SyncWorker) Run(ctx context.Context, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if _, err := w.ProcessPending(ctx); err != nil && ctx.Err() == nil {
				slog.ErrorContext(ctx, "Periodic sync failed", "error", err)
			}
		}
	}
}

func (w *SyncWorker) syncRecord(ctx context.Context, rec storage.SyncRecord) error {
	id := rec.Transaction.ID

	var err error
	if rec.Deleted {
		err = w.mirror.RemoveTransaction(ctx, id)
	} else {
		err = w.mirror.UpsertTransaction(ctx, rec.Transaction)
	}
	if err != nil {
		if markErr := w.source.MarkSyncError(ctx, id); markErr != nil {
			slog.ErrorContext(ctx, "Failed to mark sync error", "id", id, "error", markErr)
		}
		return fmt.Errorf("mirror transaction %s: %w", id, err)
	}

	// The mirror already holds the row; a failed mark only means a repeat
	// upsert later.
	if err := w.source.MarkSynced(ctx, id, rec.Version); err != nil {
		slog.ErrorContext(ctx, "Failed to mark as synced", "id", id, "error", err)
	}

	slog.InfoContext(ctx, "Successfully mirrored transaction",
		"id", id,
		"deleted", rec.Deleted,
		"version", rec.Version)
	return nil
}

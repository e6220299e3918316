package worker

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fintrack/internal/amqp"
	"fintrack/internal/core"
	"fintrack/internal/sheets/memory"
	"fintrack/internal/storage"
)

type fakeSource struct {
	records  map[string]storage.SyncRecord
	synced   map[string]int64
	errored  []string
	requeued int64
}

func newFakeSource(recs ...storage.SyncRecord) *fakeSource {
	s := &fakeSource{records: map[string]storage.SyncRecord{}, synced: map[string]int64{}}
	for _, r := range recs {
		s.records[r.Transaction.ID] = r
	}
	return s
}

func (s *fakeSource) GetTransaction(_ context.Context, id string) (storage.SyncRecord, error) {
	r, ok := s.records[id]
	if !ok {
		return storage.SyncRecord{}, fmt.Errorf("transaction %s: %w", id, core.ErrNotFound)
	}
	return r, nil
}

func (s *fakeSource) ListPendingSync(_ context.Context, limit int) ([]storage.PendingSync, error) {
	var out []storage.PendingSync
	for _, id := range []string{"a", "b", "c"} {
		if r, ok := s.records[id]; ok && r.SyncStatus == storage.SyncPending && len(out) < limit {
			out = append(out, storage.PendingSync{ID: id, Version: r.Version, Deleted: r.Deleted})
		}
	}
	return out, nil
}

func (s *fakeSource) MarkSynced(_ context.Context, id string, version int64) error {
	s.synced[id] = version
	r := s.records[id]
	r.SyncStatus = storage.SyncSynced
	s.records[id] = r
	return nil
}

func (s *fakeSource) MarkSyncError(_ context.Context, id string) error {
	s.errored = append(s.errored, id)
	return nil
}

func (s *fakeSource) RequeueErrors(context.Context) (int64, error) {
	return s.requeued, nil
}

type failingMirror struct{}

func (failingMirror) UpsertTransaction(context.Context, core.Transaction) error {
	return errors.New("quota")
}
func (failingMirror) RemoveTransaction(context.Context, string) error { return errors.New("quota") }

func record(id string, version int64, deleted bool) storage.SyncRecord {
	return storage.SyncRecord{
		Transaction: core.Transaction{ID: id, Date: core.NewDate(2026, time.March, 1), Notes: id},
		Version:     version,
		Deleted:     deleted,
		SyncStatus:  storage.SyncPending,
	}
}

func TestHandleSyncMessageMirrorsStoredState(t *testing.T) {
	ctx := context.Background()
	mirror := memory.New(nil)
	_ = mirror.UpsertTransaction(ctx, core.Transaction{ID: "b"})
	src := newFakeSource(record("a", 2, false), record("b", 3, true))
	w := NewSyncWorker(src, mirror, 10)

	require.NoError(t, w.HandleSyncMessage(ctx, amqp.NewTransactionSyncMessage("a", amqp.OpUpsert, 2)))
	// The row was deleted after an upsert message was sent; the stored state wins.
	require.NoError(t, w.HandleSyncMessage(ctx, amqp.NewTransactionSyncMessage("b", amqp.OpUpsert, 2)))
	require.NoError(t, w.HandleSyncMessage(ctx, amqp.NewTransactionSyncMessage("gone", amqp.OpDelete, 1)))

	txs, _ := mirror.ListTransactions(ctx)
	require.Len(t, txs, 1)
	assert.Equal(t, "a", txs[0].ID)
	assert.Equal(t, map[string]int64{"a": 2, "b": 3}, src.synced)
}

func TestHandleSyncMessageFailureMarksError(t *testing.T) {
	src := newFakeSource(record("a", 1, false))
	w := NewSyncWorker(src, failingMirror{}, 10)

	err := w.HandleSyncMessage(context.Background(), amqp.NewTransactionSyncMessage("a", amqp.OpUpsert, 1))
	require.Error(t, err)
	assert.Equal(t, []string{"a"}, src.errored)
	assert.Empty(t, src.synced)
}

func TestProcessPendingAndStartup(t *testing.T) {
	ctx := context.Background()
	mirror := memory.New(nil)
	src := newFakeSource(record("a", 1, false), record("b", 1, false), record("c", 1, false))
	src.requeued = 2
	w := NewSyncWorker(src, mirror, 2)

	n, err := w.ProcessPending(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	require.NoError(t, w.StartupSyncCheck(ctx))
	txs, _ := mirror.ListTransactions(ctx)
	assert.Len(t, txs, 3)

	n, err = w.ProcessPending(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)
}

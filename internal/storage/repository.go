package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"fintrack/internal/core"
	ports "fintrack/internal/sheets"

	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

var _ ports.Store = (*SQLiteRepository)(nil)

// Sync states of a transaction row.
const (
	SyncPending = "pending"
	SyncSynced  = "synced"
	SyncError   = "error"
)

type SQLiteRepository struct {
	db *sql.DB
}

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	// SQLite allows one writer; a single connection avoids SQLITE_BUSY.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteRepository{db: db}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// Ping reports whether the database is reachable.
func (r *SQLiteRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

const transactionColumns = `id, date, owner, type, amount, pay, account, category, notes, created_at, auto_tag`

// ListTransactions implements sheets.TransactionStore
func (r *SQLiteRepository) ListTransactions(ctx context.Context) ([]core.Transaction, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+transactionColumns+` FROM transactions WHERE deleted_at IS NULL ORDER BY position`)
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	defer rows.Close()

	var out []core.Transaction
	for rows.Next() {
		tx, err := scanTransaction(rows)
		if err != nil {
			return nil, fmt.Errorf("scan transaction: %w", err)
		}
		out = append(out, tx)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate transactions: %w", err)
	}
	return out, nil
}

// AppendTransaction implements sheets.TransactionStore
func (r *SQLiteRepository) AppendTransaction(ctx context.Context, tx core.Transaction) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO transactions (position, `+transactionColumns+`)
		VALUES ((SELECT COALESCE(MAX(position), 0) + 1 FROM transactions), ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		transactionArgs(tx)...)
	if isUniqueViolation(err) {
		return fmt.Errorf("insert %s: %w", tx.AutoTag, core.ErrRecurringExists)
	}
	if err != nil {
		return fmt.Errorf("insert transaction: %w", err)
	}

	slog.InfoContext(ctx, "Transaction saved to SQLite",
		"id", tx.ID,
		"date", tx.Date.Format("2006-01-02"),
		"type", tx.Type,
		"amount", tx.Amount.StringFixed(2))
	return nil
}

// UpdateTransaction implements sheets.TransactionStore
func (r *SQLiteRepository) UpdateTransaction(ctx context.Context, tx core.Transaction) error {
	args := append(transactionArgs(tx)[1:], tx.ID)
	res, err := r.db.ExecContext(ctx, `
		UPDATE transactions
		SET date = ?, owner = ?, type = ?, amount = ?, pay = ?, account = ?, category = ?,
		    notes = ?, created_at = ?, auto_tag = ?,
		    sync_status = 'pending', version = version + 1, updated_at = CURRENT_TIMESTAMP
		WHERE id = ? AND deleted_at IS NULL`, args...)
	if err != nil {
		return fmt.Errorf("update transaction: %w", err)
	}
	if err := requireOneRow(res, tx.ID); err != nil {
		return err
	}
	slog.InfoContext(ctx, "Transaction updated in SQLite", "id", tx.ID)
	return nil
}

// DeleteTransaction implements sheets.TransactionStore. Rows are soft
// deleted so the removal can still be mirrored.
func (r *SQLiteRepository) DeleteTransaction(ctx context.Context, id string) (int, error) {
	var index int
	err := r.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM transactions
		WHERE deleted_at IS NULL
		  AND position < (SELECT position FROM transactions WHERE id = ? AND deleted_at IS NULL)`, id).Scan(&index)
	if err != nil {
		return 0, fmt.Errorf("locate transaction: %w", err)
	}

	res, err := r.db.ExecContext(ctx, `
		UPDATE transactions
		SET deleted_at = ?, sync_status = 'pending', version = version + 1, updated_at = CURRENT_TIMESTAMP
		WHERE id = ? AND deleted_at IS NULL`, time.Now().UTC().Format(time.RFC3339), id)
	if err != nil {
		return 0, fmt.Errorf("delete transaction: %w", err)
	}
	if err := requireOneRow(res, id); err != nil {
		return 0, err
	}
	slog.InfoContext(ctx, "Transaction deleted in SQLite", "id", id, "index", index)
	return index, nil
}

// RestoreTransaction implements sheets.TransactionStore. A soft-deleted row
// keeps its position, so restoring it puts it back in place; index only
// matters for rows this database never saw.
func (r *SQLiteRepository) RestoreTransaction(ctx context.Context, tx core.Transaction, index int) error {
	args := append(transactionArgs(tx)[1:], tx.ID)
	res, err := r.db.ExecContext(ctx, `
		UPDATE transactions
		SET date = ?, owner = ?, type = ?, amount = ?, pay = ?, account = ?, category = ?,
		    notes = ?, created_at = ?, auto_tag = ?,
		    deleted_at = NULL, sync_status = 'pending', version = version + 1, updated_at = CURRENT_TIMESTAMP
		WHERE id = ?`, args...)
	if isUniqueViolation(err) {
		return fmt.Errorf("restore %s: %w", tx.AutoTag, core.ErrRecurringExists)
	}
	if err != nil {
		return fmt.Errorf("restore transaction: %w", err)
	}
	if n, _ := res.RowsAffected(); n > 0 {
		slog.InfoContext(ctx, "Transaction restored in SQLite", "id", tx.ID)
		return nil
	}

	slog.WarnContext(ctx, "Restoring unknown transaction, inserting", "id", tx.ID, "index", index)
	return r.insertAt(ctx, tx, index)
}

func (r *SQLiteRepository) insertAt(ctx context.Context, tx core.Transaction, index int) error {
	dbTx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin restore: %w", err)
	}
	defer dbTx.Rollback()

	var position sql.NullInt64
	err = dbTx.QueryRowContext(ctx, `
		SELECT position FROM transactions WHERE deleted_at IS NULL
		ORDER BY position LIMIT 1 OFFSET ?`, max(0, index)).Scan(&position)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("locate restore position: %w", err)
	}
	if position.Valid {
		if _, err := dbTx.ExecContext(ctx,
			`UPDATE transactions SET position = position + 1 WHERE position >= ?`, position.Int64); err != nil {
			return fmt.Errorf("shift positions: %w", err)
		}
	} else {
		if err := dbTx.QueryRowContext(ctx,
			`SELECT COALESCE(MAX(position), 0) + 1 FROM transactions`).Scan(&position); err != nil {
			return fmt.Errorf("next position: %w", err)
		}
	}

	if _, err := dbTx.ExecContext(ctx,
		`INSERT INTO transactions (position, `+transactionColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		append([]any{position.Int64}, transactionArgs(tx)...)...); err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("restore %s: %w", tx.AutoTag, core.ErrRecurringExists)
		}
		return fmt.Errorf("insert restored transaction: %w", err)
	}
	return dbTx.Commit()
}

// SyncRecord is a transaction row together with its replication state.
type SyncRecord struct {
	Transaction core.Transaction
	Deleted     bool
	Version     int64
	SyncStatus  string
}

// PendingSync represents minimal data needed for sync queue messages
type PendingSync struct {
	ID        string
	Version   int64
	Deleted   bool
	UpdatedAt time.Time
}

// GetTransaction returns a row by id, including soft-deleted rows.
func (r *SQLiteRepository) GetTransaction(ctx context.Context, id string) (SyncRecord, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+transactionColumns+`, deleted_at IS NOT NULL, version, sync_status FROM transactions WHERE id = ?`, id)

	var (
		rec  SyncRecord
		cols transactionRow
	)
	err := row.Scan(cols.dest(&rec.Deleted, &rec.Version, &rec.SyncStatus)...)
	if errors.Is(err, sql.ErrNoRows) {
		return SyncRecord{}, fmt.Errorf("transaction %s: %w", id, core.ErrNotFound)
	}
	if err != nil {
		return SyncRecord{}, fmt.Errorf("get transaction: %w", err)
	}
	rec.Transaction = cols.transaction()
	return rec, nil
}

// ListPendingSync returns rows that still need to be mirrored, oldest first.
func (r *SQLiteRepository) ListPendingSync(ctx context.Context, limit int) ([]PendingSync, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, version, deleted_at IS NOT NULL, updated_at
		FROM transactions
		WHERE sync_status = 'pending'
		ORDER BY updated_at, position
		LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("get pending sync transactions: %w", err)
	}
	defer rows.Close()

	var out []PendingSync
	for rows.Next() {
		var (
			p         PendingSync
			updatedAt any
		)
		if err := rows.Scan(&p.ID, &p.Version, &p.Deleted, &updatedAt); err != nil {
			return nil, fmt.Errorf("scan pending sync: %w", err)
		}
		p.UpdatedAt = parseTimestamp(updatedAt)
		out = append(out, p)
	}
	return out, rows.Err()
}

// MarkSynced marks a row as mirrored. A row changed since version was read
// stays pending.
func (r *SQLiteRepository) MarkSynced(ctx context.Context, id string, version int64) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE transactions SET sync_status = 'synced' WHERE id = ? AND version = ?`, id, version)
	if err != nil {
		return fmt.Errorf("mark transaction synced: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		slog.InfoContext(ctx, "Transaction changed during sync, leaving pending", "id", id, "version", version)
		return nil
	}
	slog.InfoContext(ctx, "Transaction marked as synced", "id", id, "version", version)
	return nil
}

// MarkSyncError marks a row as having sync errors
func (r *SQLiteRepository) MarkSyncError(ctx context.Context, id string) error {
	if _, err := r.db.ExecContext(ctx,
		`UPDATE transactions SET sync_status = 'error' WHERE id = ?`, id); err != nil {
		return fmt.Errorf("mark transaction sync error: %w", err)
	}
	slog.WarnContext(ctx, "Transaction marked with sync error", "id", id)
	return nil
}

// RequeueErrors moves rows in the error state back to pending.
func (r *SQLiteRepository) RequeueErrors(ctx context.Context) (int64, error) {
	res, err := r.db.ExecContext(ctx, `UPDATE transactions SET sync_status = 'pending' WHERE sync_status = 'error'`)
	if err != nil {
		return 0, fmt.Errorf("requeue sync errors: %w", err)
	}
	return res.RowsAffected()
}

// ListAccounts implements sheets.AccountStore
func (r *SQLiteRepository) ListAccounts(ctx context.Context) ([]core.Account, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT name, emoji, limit_amount, billing_day FROM accounts ORDER BY position`)
	if err != nil {
		return nil, fmt.Errorf("list accounts: %w", err)
	}
	defer rows.Close()

	var out []core.Account
	for rows.Next() {
		var (
			a     core.Account
			limit string
		)
		if err := rows.Scan(&a.Name, &a.Emoji, &limit, &a.BillingDay); err != nil {
			return nil, fmt.Errorf("scan account: %w", err)
		}
		a.Limit = core.ParseStoredAmount(limit)
		out = append(out, a.Normalize())
	}
	return out, rows.Err()
}

// ReplaceAccounts implements sheets.AccountStore
func (r *SQLiteRepository) ReplaceAccounts(ctx context.Context, accounts []core.Account) error {
	dbTx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin accounts: %w", err)
	}
	defer dbTx.Rollback()

	if _, err := dbTx.ExecContext(ctx, `DELETE FROM accounts`); err != nil {
		return fmt.Errorf("clear accounts: %w", err)
	}
	for i, a := range accounts {
		if _, err := dbTx.ExecContext(ctx,
			`INSERT INTO accounts (position, name, emoji, limit_amount, billing_day) VALUES (?, ?, ?, ?, ?)`,
			i, a.Name, a.Emoji, a.Limit.StringFixed(2), a.BillingDay); err != nil {
			return fmt.Errorf("insert account %s: %w", a.Name, err)
		}
	}
	if err := dbTx.Commit(); err != nil {
		return fmt.Errorf("commit accounts: %w", err)
	}
	slog.InfoContext(ctx, "Accounts saved to SQLite", "count", len(accounts))
	return nil
}

// AdminValues implements sheets.AdminStore
func (r *SQLiteRepository) AdminValues(ctx context.Context) (map[string]string, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT key, value FROM admin`)
	if err != nil {
		return nil, fmt.Errorf("list admin values: %w", err)
	}
	defer rows.Close()

	out := map[string]string{}
	for rows.Next() {
		var k, v string
		if err := rows.Scan(&k, &v); err != nil {
			return nil, fmt.Errorf("scan admin value: %w", err)
		}
		out[k] = v
	}
	return out, rows.Err()
}

// SetAdminValue implements sheets.AdminStore
func (r *SQLiteRepository) SetAdminValue(ctx context.Context, key, value string) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO admin (key, value) VALUES (?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value`, key, value)
	if err != nil {
		return fmt.Errorf("set admin value %s: %w", key, err)
	}
	return nil
}

func transactionArgs(tx core.Transaction) []any {
	return []any{
		tx.ID,
		tx.Date.Format("2006-01-02"),
		tx.Owner,
		string(tx.Type),
		tx.Amount.StringFixed(2),
		string(tx.PayMethod),
		tx.Account,
		tx.Category,
		tx.Notes,
		core.FormatCreatedAt(tx.CreatedAt),
		tx.AutoTag,
	}
}

// transactionRow holds the raw columns of one transactions row.
type transactionRow struct {
	id, date, owner, typ, amount, pay, account, category, notes, createdAt, autoTag string
}

func (c *transactionRow) dest(extra ...any) []any {
	return append([]any{
		&c.id, &c.date, &c.owner, &c.typ, &c.amount, &c.pay,
		&c.account, &c.category, &c.notes, &c.createdAt, &c.autoTag,
	}, extra...)
}

func (c *transactionRow) transaction() core.Transaction {
	date, _ := core.ParseDate(c.date)
	return core.Transaction{
		ID:        c.id,
		Date:      date,
		Owner:     c.owner,
		Type:      core.TxType(c.typ),
		Amount:    core.ParseStoredAmount(c.amount),
		PayMethod: core.PayMethod(c.pay),
		Account:   c.account,
		Category:  c.category,
		Notes:     c.notes,
		CreatedAt: core.ParseCreatedAt(c.createdAt),
		AutoTag:   c.autoTag,
	}
}

func scanTransaction(rows *sql.Rows) (core.Transaction, error) {
	var c transactionRow
	if err := rows.Scan(c.dest()...); err != nil {
		return core.Transaction{}, err
	}
	return c.transaction(), nil
}

// parseTimestamp reads a CURRENT_TIMESTAMP column, which the driver may hand
// back as time.Time or as text.
func parseTimestamp(v any) time.Time {
	switch t := v.(type) {
	case time.Time:
		return t
	case string:
		if ts, err := time.Parse(time.DateTime, t); err == nil {
			return ts
		}
		return core.ParseCreatedAt(t)
	case []byte:
		return parseTimestamp(string(t))
	}
	return time.Time{}
}

func requireOneRow(res sql.Result, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("transaction %s: %w", id, core.ErrNotFound)
	}
	return nil
}

// isUniqueViolation reports a UNIQUE index failure. The only unique index on
// transactions besides the primary key is the live recurring tag.
func isUniqueViolation(err error) bool {
	var serr *sqlite.Error
	return errors.As(err, &serr) && serr.Code() == sqlite3.SQLITE_CONSTRAINT_UNIQUE
}

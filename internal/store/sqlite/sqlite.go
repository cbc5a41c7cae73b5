// Package sqlite provides the durable Repository backend. The database runs
// embedded with WAL journaling so UI reads stay concurrent with the single
// in-flight writable transaction that serializes composite operations.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/ncruces/go-sqlite3/driver"
	_ "github.com/ncruces/go-sqlite3/embed"

	"warungpos/terminal/internal/domain"
	"warungpos/terminal/internal/store"
	"warungpos/terminal/internal/xid"
)

const schema = `
CREATE TABLE IF NOT EXISTS master_data (
	key        TEXT PRIMARY KEY,
	blob       TEXT NOT NULL,
	updated_at INTEGER NOT NULL
);
CREATE TABLE IF NOT EXISTS transactions (
	id              INTEGER PRIMARY KEY AUTOINCREMENT,
	items           TEXT NOT NULL,
	payments        TEXT NOT NULL,
	subtotal        INTEGER NOT NULL,
	discount        INTEGER NOT NULL,
	tax             INTEGER NOT NULL,
	total           INTEGER NOT NULL,
	status          TEXT NOT NULL,
	refunded_amount INTEGER NOT NULL DEFAULT 0,
	created_at      INTEGER NOT NULL
);
CREATE TABLE IF NOT EXISTS sync_queue (
	id              INTEGER PRIMARY KEY AUTOINCREMENT,
	entity_type     TEXT NOT NULL,
	operation       TEXT NOT NULL,
	payload         TEXT NOT NULL,
	status          TEXT NOT NULL DEFAULT 'pending',
	attempts        INTEGER NOT NULL DEFAULT 0,
	idempotency_key TEXT NOT NULL,
	created_at      INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_sync_queue_status ON sync_queue(status, id);
`

type Store struct {
	db   *sql.DB
	path string
}

// Open creates or opens the terminal database at path. AUTOINCREMENT keeps
// transaction and queue ids strictly increasing and never reused, even after
// deletion. The caller must Close.
func Open(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, &store.StorageError{Op: "open", Err: err}
	}

	db, err := sql.Open("sqlite3", fmt.Sprintf("file:%s", path))
	if err != nil {
		return nil, &store.StorageError{Op: "open", Err: err}
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, &store.StorageError{Op: "open", Err: err}
	}

	db.SetMaxOpenConns(4)
	db.SetMaxIdleConns(2)
	db.SetConnMaxLifetime(5 * time.Minute)

	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA foreign_keys=ON",
	} {
		if _, err := db.Exec(pragma); err != nil {
			_ = db.Close()
			return nil, &store.StorageError{Op: "open", Err: err}
		}
	}
	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, &store.StorageError{Op: "open", Err: err}
	}

	return &Store{db: db, path: path}, nil
}

func (s *Store) Close() error {
	if _, err := s.db.Exec("PRAGMA wal_checkpoint(TRUNCATE)"); err != nil {
		fmt.Fprintf(os.Stderr, "warning: wal checkpoint failed: %v\n", err)
	}
	return s.db.Close()
}

func (s *Store) GetMasterData(ctx context.Context, key string) (json.RawMessage, error) {
	var blob string
	err := s.db.QueryRowContext(ctx, `SELECT blob FROM master_data WHERE key = ?`, key).Scan(&blob)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, &store.StorageError{Op: "getMasterData", Err: err}
	}
	return json.RawMessage(blob), nil
}

func (s *Store) SaveMasterData(ctx context.Context, key string, blob json.RawMessage, intents ...store.SyncIntent) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return &store.StorageError{Op: "saveMasterData", Err: err}
	}
	defer func() { _ = tx.Rollback() }()

	if err := upsertMasterData(ctx, tx, key, blob); err != nil {
		return &store.StorageError{Op: "saveMasterData", Err: err}
	}
	for _, intent := range intents {
		payload := intent.Payload
		if payload == nil {
			payload = blob
		}
		if _, err := enqueueSync(ctx, tx, intent.EntityType, intent.Operation, payload); err != nil {
			return &store.StorageError{Op: "saveMasterData", Err: err}
		}
	}

	if err := tx.Commit(); err != nil {
		return &store.StorageError{Op: "saveMasterData", Err: err}
	}
	return nil
}

func upsertMasterData(ctx context.Context, tx *sql.Tx, key string, blob json.RawMessage) error {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO master_data (key, blob, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET blob = excluded.blob, updated_at = excluded.updated_at
	`, key, string(blob), time.Now().UnixMilli())
	return err
}

func enqueueSync(ctx context.Context, tx *sql.Tx, entityType, operation string, payload json.RawMessage) (int64, error) {
	res, err := tx.ExecContext(ctx, `
		INSERT INTO sync_queue (entity_type, operation, payload, status, attempts, idempotency_key, created_at)
		VALUES (?, ?, ?, 'pending', 0, ?, ?)
	`, entityType, operation, string(payload), xid.New("sync"), time.Now().UnixMilli())
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

func (s *Store) CreateSale(ctx context.Context, saleTx domain.Transaction) (*domain.Transaction, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, &store.StorageError{Op: "createSale", Err: err}
	}
	defer func() { _ = tx.Rollback() }()

	var productsBlob string
	err = tx.QueryRowContext(ctx, `SELECT blob FROM master_data WHERE key = ?`, domain.DomainProducts).Scan(&productsBlob)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return nil, &store.StorageError{Op: "createSale", Err: err}
	}

	updated, err := store.DecrementStock(json.RawMessage(productsBlob), saleTx.Items)
	if err != nil {
		var insufficient *store.InsufficientStockError
		if errors.As(err, &insufficient) {
			return nil, err
		}
		return nil, &store.StorageError{Op: "createSale", Err: err}
	}
	if err := upsertMasterData(ctx, tx, domain.DomainProducts, updated); err != nil {
		return nil, &store.StorageError{Op: "createSale", Err: err}
	}

	items, err := json.Marshal(saleTx.Items)
	if err != nil {
		return nil, &store.StorageError{Op: "createSale", Err: err}
	}
	payments, err := json.Marshal(saleTx.Payments)
	if err != nil {
		return nil, &store.StorageError{Op: "createSale", Err: err}
	}

	res, err := tx.ExecContext(ctx, `
		INSERT INTO transactions (items, payments, subtotal, discount, tax, total, status, refunded_amount, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, string(items), string(payments), saleTx.Subtotal, saleTx.Discount, saleTx.Tax, saleTx.Total,
		saleTx.Status, saleTx.RefundedAmount, saleTx.Timestamp.UnixMilli())
	if err != nil {
		return nil, &store.StorageError{Op: "createSale", Err: err}
	}
	saleTx.ID, err = res.LastInsertId()
	if err != nil {
		return nil, &store.StorageError{Op: "createSale", Err: err}
	}

	payload, err := json.Marshal(saleTx)
	if err != nil {
		return nil, &store.StorageError{Op: "createSale", Err: err}
	}
	if _, err := enqueueSync(ctx, tx, domain.EntityTransaction, domain.SyncOpCreate, payload); err != nil {
		return nil, &store.StorageError{Op: "createSale", Err: err}
	}

	if err := tx.Commit(); err != nil {
		return nil, &store.StorageError{Op: "createSale", Err: err}
	}
	return &saleTx, nil
}

func scanTransaction(scan func(dest ...any) error) (*domain.Transaction, error) {
	var (
		tx              domain.Transaction
		items, payments string
		createdAtMillis int64
	)
	if err := scan(&tx.ID, &items, &payments, &tx.Subtotal, &tx.Discount, &tx.Tax,
		&tx.Total, &tx.Status, &tx.RefundedAmount, &createdAtMillis); err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(items), &tx.Items); err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(payments), &tx.Payments); err != nil {
		return nil, err
	}
	tx.Timestamp = time.UnixMilli(createdAtMillis).UTC()
	return &tx, nil
}

const transactionColumns = `id, items, payments, subtotal, discount, tax, total, status, refunded_amount, created_at`

func (s *Store) GetTransaction(ctx context.Context, id int64) (*domain.Transaction, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+transactionColumns+` FROM transactions WHERE id = ?`, id)
	tx, err := scanTransaction(row.Scan)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, &store.StorageError{Op: "getTransaction", Err: err}
	}
	return tx, nil
}

func (s *Store) ListTransactions(ctx context.Context) ([]domain.Transaction, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+transactionColumns+` FROM transactions ORDER BY id`)
	if err != nil {
		return nil, &store.StorageError{Op: "listTransactions", Err: err}
	}
	defer rows.Close()

	out := make([]domain.Transaction, 0, 64)
	for rows.Next() {
		tx, err := scanTransaction(rows.Scan)
		if err != nil {
			return nil, &store.StorageError{Op: "listTransactions", Err: err}
		}
		out = append(out, *tx)
	}
	if err := rows.Err(); err != nil {
		return nil, &store.StorageError{Op: "listTransactions", Err: err}
	}
	return out, nil
}

func (s *Store) UpdateTransactionStatus(ctx context.Context, id int64, status string, refundedAmount int64, restock []domain.LineItem, intents ...store.SyncIntent) (*domain.Transaction, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, &store.StorageError{Op: "updateTransactionStatus", Err: err}
	}
	defer func() { _ = tx.Rollback() }()

	row := tx.QueryRowContext(ctx, `SELECT `+transactionColumns+` FROM transactions WHERE id = ?`, id)
	record, err := scanTransaction(row.Scan)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, &store.StorageError{Op: "updateTransactionStatus", Err: err}
	}

	if len(restock) > 0 {
		var productsBlob string
		err = tx.QueryRowContext(ctx, `SELECT blob FROM master_data WHERE key = ?`, domain.DomainProducts).Scan(&productsBlob)
		if err != nil && !errors.Is(err, sql.ErrNoRows) {
			return nil, &store.StorageError{Op: "updateTransactionStatus", Err: err}
		}
		updated, err := store.IncrementStock(json.RawMessage(productsBlob), restock)
		if err != nil {
			return nil, &store.StorageError{Op: "updateTransactionStatus", Err: err}
		}
		if err := upsertMasterData(ctx, tx, domain.DomainProducts, updated); err != nil {
			return nil, &store.StorageError{Op: "updateTransactionStatus", Err: err}
		}
	}

	if _, err := tx.ExecContext(ctx, `
		UPDATE transactions SET status = ?, refunded_amount = ? WHERE id = ?
	`, status, refundedAmount, id); err != nil {
		return nil, &store.StorageError{Op: "updateTransactionStatus", Err: err}
	}

	record.Status = status
	record.RefundedAmount = refundedAmount
	payload, err := json.Marshal(record)
	if err != nil {
		return nil, &store.StorageError{Op: "updateTransactionStatus", Err: err}
	}
	for _, intent := range intents {
		p := intent.Payload
		if p == nil {
			p = payload
		}
		if _, err := enqueueSync(ctx, tx, intent.EntityType, intent.Operation, p); err != nil {
			return nil, &store.StorageError{Op: "updateTransactionStatus", Err: err}
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, &store.StorageError{Op: "updateTransactionStatus", Err: err}
	}
	return record, nil
}

func scanQueueItem(scan func(dest ...any) error) (domain.SyncQueueItem, error) {
	var (
		item            domain.SyncQueueItem
		payload         string
		createdAtMillis int64
	)
	err := scan(&item.ID, &item.EntityType, &item.Operation, &payload, &item.Status,
		&item.Attempts, &item.IdempotencyKey, &createdAtMillis)
	if err != nil {
		return domain.SyncQueueItem{}, err
	}
	item.Payload = json.RawMessage(payload)
	item.CreatedAt = time.UnixMilli(createdAtMillis).UTC()
	return item, nil
}

const queueColumns = `id, entity_type, operation, payload, status, attempts, idempotency_key, created_at`

func (s *Store) listQueue(ctx context.Context, op, where string, args ...any) ([]domain.SyncQueueItem, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+queueColumns+` FROM sync_queue `+where+` ORDER BY id`, args...)
	if err != nil {
		return nil, &store.StorageError{Op: op, Err: err}
	}
	defer rows.Close()

	out := make([]domain.SyncQueueItem, 0, 32)
	for rows.Next() {
		item, err := scanQueueItem(rows.Scan)
		if err != nil {
			return nil, &store.StorageError{Op: op, Err: err}
		}
		out = append(out, item)
	}
	if err := rows.Err(); err != nil {
		return nil, &store.StorageError{Op: op, Err: err}
	}
	return out, nil
}

func (s *Store) ListSyncQueue(ctx context.Context) ([]domain.SyncQueueItem, error) {
	return s.listQueue(ctx, "listSyncQueue", "")
}

func (s *Store) ListPendingSync(ctx context.Context) ([]domain.SyncQueueItem, error) {
	return s.listQueue(ctx, "listPendingSync", "WHERE status = 'pending'")
}

func (s *Store) MarkSyncItemSynced(ctx context.Context, id int64) error {
	return s.execQueueUpdate(ctx, "markSyncItemSynced",
		`UPDATE sync_queue SET status = 'synced' WHERE id = ?`, id)
}

func (s *Store) MarkSyncItemFailed(ctx context.Context, id int64) error {
	return s.execQueueUpdate(ctx, "markSyncItemFailed",
		`UPDATE sync_queue SET status = 'failed', attempts = attempts + 1 WHERE id = ?`, id)
}

func (s *Store) RequeueSyncItem(ctx context.Context, id int64) error {
	return s.execQueueUpdate(ctx, "requeueSyncItem",
		`UPDATE sync_queue SET status = 'pending' WHERE id = ? AND status = 'failed'`, id)
}

func (s *Store) execQueueUpdate(ctx context.Context, op, query string, id int64) error {
	res, err := s.db.ExecContext(ctx, query, id)
	if err != nil {
		return &store.StorageError{Op: op, Err: err}
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return &store.StorageError{Op: op, Err: err}
	}
	if affected == 0 {
		return store.ErrNotFound
	}
	return nil
}

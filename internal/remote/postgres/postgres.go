// Package postgres adapts the central Postgres system of record as the
// remote store. Single-outlet deployments point the terminal straight at
// the head-office database instead of an API gateway.
package postgres

import (
	"context"
	"database/sql"
	"errors"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"

	"warungpos/terminal/internal/domain"
	"warungpos/terminal/internal/remote"
)

const schema = `
CREATE TABLE IF NOT EXISTS pos_sync_entities (
	store_id        TEXT NOT NULL,
	entity_type     TEXT NOT NULL,
	entity_id       BIGINT NOT NULL,
	version         BIGINT NOT NULL,
	payload         JSONB NOT NULL,
	idempotency_key TEXT NOT NULL,
	updated_at      TIMESTAMPTZ NOT NULL DEFAULT now(),
	PRIMARY KEY (store_id, entity_type, entity_id)
)`

type Store struct {
	db      *sql.DB
	storeID string
}

func New(ctx context.Context, databaseURL string, storeID string) (*Store, error) {
	db, err := sql.Open("pgx", databaseURL)
	if err != nil {
		return nil, err
	}

	db.SetMaxIdleConns(2)
	db.SetMaxOpenConns(8)
	db.SetConnMaxLifetime(30 * time.Minute)

	pingCtx, cancel := context.WithTimeout(ctx, 6*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, err
	}
	if _, err := db.ExecContext(ctx, schema); err != nil {
		_ = db.Close()
		return nil, err
	}

	return &Store{db: db, storeID: storeID}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) Ping(ctx context.Context) error {
	pingCtx, cancel := context.WithTimeout(ctx, 6*time.Second)
	defer cancel()
	if err := s.db.PingContext(pingCtx); err != nil {
		return remote.ErrUnavailable
	}
	return nil
}

// Apply pushes one mutation with a version check. The version is the item's
// local enqueue instant; a remote row with a higher version reports a
// conflict for the processor to resolve.
func (s *Store) Apply(ctx context.Context, item domain.SyncQueueItem) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	entityID := remote.EntityID(item)
	version := item.CreatedAt.UnixMilli()

	var (
		remoteVersion int64
		remoteIdemKey string
	)
	err = tx.QueryRowContext(ctx, `
		SELECT version, idempotency_key
		FROM pos_sync_entities
		WHERE store_id = $1 AND entity_type = $2 AND entity_id = $3
		FOR UPDATE
	`, s.storeID, item.EntityType, entityID).Scan(&remoteVersion, &remoteIdemKey)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		// First delivery for this entity.
	case err != nil:
		return err
	case remoteIdemKey == item.IdempotencyKey:
		// Redelivery of an already-applied item: a no-op success.
		return tx.Commit()
	case remoteVersion > version:
		return &remote.ConflictError{EntityType: item.EntityType, EntityID: entityID, RemoteVersion: remoteVersion}
	}

	if err := upsert(ctx, tx, s.storeID, item, entityID, version); err != nil {
		return err
	}
	return tx.Commit()
}

// Overwrite replaces whatever the remote holds, no version check.
func (s *Store) Overwrite(ctx context.Context, item domain.SyncQueueItem) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if err := upsert(ctx, tx, s.storeID, item, remote.EntityID(item), item.CreatedAt.UnixMilli()); err != nil {
		return err
	}
	return tx.Commit()
}

func upsert(ctx context.Context, tx *sql.Tx, storeID string, item domain.SyncQueueItem, entityID, version int64) error {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO pos_sync_entities (store_id, entity_type, entity_id, version, payload, idempotency_key, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, now())
		ON CONFLICT (store_id, entity_type, entity_id) DO UPDATE
		SET version = excluded.version,
		    payload = excluded.payload,
		    idempotency_key = excluded.idempotency_key,
		    updated_at = now()
	`, storeID, item.EntityType, entityID, version, string(item.Payload), item.IdempotencyKey)
	return err
}

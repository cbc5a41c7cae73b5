// Package memory provides the in-memory Repository used by tests and by
// terminals running without a durable database path configured.
package memory

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"warungpos/terminal/internal/domain"
	"warungpos/terminal/internal/store"
	"warungpos/terminal/internal/xid"
)

type Store struct {
	mu           sync.RWMutex
	masterData   map[string]json.RawMessage
	transactions map[int64]domain.Transaction
	txOrder      []int64
	nextTxID     int64
	queue        []domain.SyncQueueItem
	nextQueueID  int64
}

func New() *Store {
	return &Store{
		masterData:   make(map[string]json.RawMessage),
		transactions: make(map[int64]domain.Transaction),
		nextTxID:     1,
		nextQueueID:  1,
	}
}

func (s *Store) GetMasterData(_ context.Context, key string) (json.RawMessage, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	blob, ok := s.masterData[key]
	if !ok {
		return nil, store.ErrNotFound
	}
	out := make(json.RawMessage, len(blob))
	copy(out, blob)
	return out, nil
}

func (s *Store) SaveMasterData(_ context.Context, key string, blob json.RawMessage, intents ...store.SyncIntent) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	stored := make(json.RawMessage, len(blob))
	copy(stored, blob)
	s.masterData[key] = stored
	for _, intent := range intents {
		payload := intent.Payload
		if payload == nil {
			payload = stored
		}
		s.appendQueueItem(intent.EntityType, intent.Operation, payload)
	}
	return nil
}

// appendQueueItem assigns the next queue id. Caller holds the write lock.
func (s *Store) appendQueueItem(entityType, operation string, payload json.RawMessage) domain.SyncQueueItem {
	item := domain.SyncQueueItem{
		ID:             s.nextQueueID,
		EntityType:     entityType,
		Operation:      operation,
		Payload:        append(json.RawMessage(nil), payload...),
		Status:         domain.SyncStatusPending,
		IdempotencyKey: xid.New("sync"),
		CreatedAt:      time.Now().UTC(),
	}
	s.nextQueueID++
	s.queue = append(s.queue, item)
	return item
}

func (s *Store) CreateSale(_ context.Context, tx domain.Transaction) (*domain.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	updated, err := store.DecrementStock(s.masterData[domain.DomainProducts], tx.Items)
	if err != nil {
		return nil, err
	}

	tx.ID = s.nextTxID
	payload, err := json.Marshal(tx)
	if err != nil {
		return nil, &store.StorageError{Op: "createSale", Err: err}
	}

	// Point of no return: apply every sub-step together.
	s.masterData[domain.DomainProducts] = updated
	s.nextTxID++
	s.transactions[tx.ID] = tx
	s.txOrder = append(s.txOrder, tx.ID)
	s.appendQueueItem(domain.EntityTransaction, domain.SyncOpCreate, payload)

	created := tx
	return &created, nil
}

func (s *Store) GetTransaction(_ context.Context, id int64) (*domain.Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	tx, ok := s.transactions[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return &tx, nil
}

func (s *Store) ListTransactions(_ context.Context) ([]domain.Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]domain.Transaction, 0, len(s.txOrder))
	for _, id := range s.txOrder {
		out = append(out, s.transactions[id])
	}
	return out, nil
}

func (s *Store) UpdateTransactionStatus(_ context.Context, id int64, status string, refundedAmount int64, restock []domain.LineItem, intents ...store.SyncIntent) (*domain.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, ok := s.transactions[id]
	if !ok {
		return nil, store.ErrNotFound
	}

	updatedProducts := s.masterData[domain.DomainProducts]
	if len(restock) > 0 {
		var err error
		updatedProducts, err = store.IncrementStock(updatedProducts, restock)
		if err != nil {
			return nil, &store.StorageError{Op: "updateTransactionStatus", Err: err}
		}
	}

	tx.Status = status
	tx.RefundedAmount = refundedAmount
	payload, err := json.Marshal(tx)
	if err != nil {
		return nil, &store.StorageError{Op: "updateTransactionStatus", Err: err}
	}

	if len(restock) > 0 {
		s.masterData[domain.DomainProducts] = updatedProducts
	}
	s.transactions[id] = tx
	for _, intent := range intents {
		p := intent.Payload
		if p == nil {
			p = payload
		}
		s.appendQueueItem(intent.EntityType, intent.Operation, p)
	}

	updated := tx
	return &updated, nil
}

func (s *Store) ListSyncQueue(_ context.Context) ([]domain.SyncQueueItem, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]domain.SyncQueueItem, len(s.queue))
	copy(out, s.queue)
	return out, nil
}

func (s *Store) ListPendingSync(_ context.Context) ([]domain.SyncQueueItem, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]domain.SyncQueueItem, 0, len(s.queue))
	for _, item := range s.queue {
		if item.Status == domain.SyncStatusPending {
			out = append(out, item)
		}
	}
	return out, nil
}

func (s *Store) MarkSyncItemSynced(_ context.Context, id int64) error {
	return s.updateQueueItem(id, func(item *domain.SyncQueueItem) {
		item.Status = domain.SyncStatusSynced
	})
}

func (s *Store) MarkSyncItemFailed(_ context.Context, id int64) error {
	return s.updateQueueItem(id, func(item *domain.SyncQueueItem) {
		item.Status = domain.SyncStatusFailed
		item.Attempts++
	})
}

// RequeueSyncItem flips a failed item back to pending. Items in any other
// status are not eligible: a synced item must never be redelivered.
func (s *Store) RequeueSyncItem(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range s.queue {
		if s.queue[i].ID != id {
			continue
		}
		if s.queue[i].Status != domain.SyncStatusFailed {
			return store.ErrNotFound
		}
		s.queue[i].Status = domain.SyncStatusPending
		return nil
	}
	return store.ErrNotFound
}

func (s *Store) updateQueueItem(id int64, apply func(*domain.SyncQueueItem)) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range s.queue {
		if s.queue[i].ID == id {
			apply(&s.queue[i])
			return nil
		}
	}
	return store.ErrNotFound
}

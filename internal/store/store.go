package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"warungpos/terminal/internal/domain"
)

var (
	ErrNotFound            = errors.New("not found")
	ErrInvalidTransaction  = errors.New("invalid transaction")
	ErrInsufficientStock   = errors.New("insufficient stock")
	ErrInsufficientPayment = errors.New("insufficient payment")
)

// InsufficientStockError names the product whose stock would be driven
// negative. errors.Is(err, ErrInsufficientStock) matches it.
type InsufficientStockError struct {
	ProductID   int64
	ProductName string
	Requested   int64
	Available   int64
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("insufficient stock for product %d (%s): requested %d, available %d",
		e.ProductID, e.ProductName, e.Requested, e.Available)
}

func (e *InsufficientStockError) Is(target error) bool {
	return target == ErrInsufficientStock
}

// StorageError wraps an underlying durability failure. Fatal to the
// triggering operation; the store guarantees no partial write is observable
// after one.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage %s: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() error {
	return e.Err
}

// SyncIntent asks a composite write to append a sync-queue entry in the same
// atomic unit. When Payload is nil the store snapshots the entity being
// written. Callers decide what needs syncing; the store never does.
type SyncIntent struct {
	EntityType string
	Operation  string
	Payload    json.RawMessage
}

// Repository is the local persistent store: master data blobs, the
// append-only transaction ledger, and the sync queue. Implementations must
// make every method atomic, including the composite ones (CreateSale,
// SaveMasterData with intents, UpdateTransactionStatus): a crash between
// sub-steps leaves none of them applied.
type Repository interface {
	GetMasterData(ctx context.Context, key string) (json.RawMessage, error)
	SaveMasterData(ctx context.Context, key string, blob json.RawMessage, intents ...SyncIntent) error

	// CreateSale re-checks stock against the current products blob, decrements
	// it, appends the transaction and a pending sync-queue entry carrying the
	// finalized record, and assigns the transaction id. All-or-nothing.
	CreateSale(ctx context.Context, tx domain.Transaction) (*domain.Transaction, error)
	GetTransaction(ctx context.Context, id int64) (*domain.Transaction, error)
	ListTransactions(ctx context.Context) ([]domain.Transaction, error)

	// UpdateTransactionStatus drives void/refund transitions. Restock items
	// (if any) are credited back to product stock in the same atomic unit.
	UpdateTransactionStatus(ctx context.Context, id int64, status string, refundedAmount int64, restock []domain.LineItem, intents ...SyncIntent) (*domain.Transaction, error)

	ListSyncQueue(ctx context.Context) ([]domain.SyncQueueItem, error)
	ListPendingSync(ctx context.Context) ([]domain.SyncQueueItem, error)
	MarkSyncItemSynced(ctx context.Context, id int64) error
	MarkSyncItemFailed(ctx context.Context, id int64) error

	// RequeueSyncItem flips a failed item back to pending. Only failed items
	// are eligible; any other status reports ErrNotFound so a synced item can
	// never be redelivered.
	RequeueSyncItem(ctx context.Context, id int64) error
}

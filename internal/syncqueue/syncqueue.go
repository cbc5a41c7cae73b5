// Package syncqueue exposes the durable log of pending mutations for status
// rendering and retry bookkeeping. Enqueueing happens only inside the
// store's composite operations; nothing here talks to the network.
package syncqueue

import (
	"context"

	"warungpos/terminal/internal/domain"
	"warungpos/terminal/internal/store"
)

type Queue struct {
	repo store.Repository
}

func New(repo store.Repository) *Queue {
	return &Queue{repo: repo}
}

func (q *Queue) List(ctx context.Context) ([]domain.SyncQueueItem, error) {
	return q.repo.ListSyncQueue(ctx)
}

// Pending returns retryable items in enqueue order.
func (q *Queue) Pending(ctx context.Context) ([]domain.SyncQueueItem, error) {
	return q.repo.ListPendingSync(ctx)
}

func (q *Queue) MarkSynced(ctx context.Context, id int64) error {
	return q.repo.MarkSyncItemSynced(ctx, id)
}

// MarkFailed records a delivery failure and increments the attempt counter.
// The item stays eligible for a later drain.
func (q *Queue) MarkFailed(ctx context.Context, id int64) error {
	return q.repo.MarkSyncItemFailed(ctx, id)
}

// Requeue flips a failed item back to pending. Attempts are kept: they only
// ever increase over an item's lifetime. Items in any other status are
// refused; a synced item never goes back on the wire.
func (q *Queue) Requeue(ctx context.Context, id int64) error {
	return q.repo.RequeueSyncItem(ctx, id)
}

// Counts tallies items per status for the sync status page.
func (q *Queue) Counts(ctx context.Context) (map[string]int, error) {
	items, err := q.repo.ListSyncQueue(ctx)
	if err != nil {
		return nil, err
	}
	counts := map[string]int{
		domain.SyncStatusPending: 0,
		domain.SyncStatusSynced:  0,
		domain.SyncStatusFailed:  0,
	}
	for _, item := range items {
		counts[item.Status]++
	}
	return counts, nil
}

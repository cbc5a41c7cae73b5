// Package remote defines the contract with the online-only authoritative
// store. The core depends only on per-item success/failure reporting and on
// remote-side idempotency being good enough for at-least-once redelivery.
package remote

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"warungpos/terminal/internal/domain"
)

// ErrUnavailable means no session with the remote store could be
// established at all. A drain pass fails fast on it without touching items.
var ErrUnavailable = errors.New("remote store unavailable")

// ConflictError is the remote's "I already hold a newer version" signal.
// The sync processor answers it by overwriting unconditionally
// (last-write-wins); it is never surfaced to callers.
type ConflictError struct {
	EntityType    string
	EntityID      int64
	RemoteVersion int64
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("remote has newer version %d of %s %d", e.RemoteVersion, e.EntityType, e.EntityID)
}

// Store is one session with the remote authoritative store.
type Store interface {
	// Ping verifies a session can be established.
	Ping(ctx context.Context) error

	// Apply pushes one queued mutation. Returns *ConflictError when the
	// remote holds a newer version of the entity.
	Apply(ctx context.Context, item domain.SyncQueueItem) error

	// Overwrite pushes the mutation unconditionally, replacing whatever the
	// remote holds.
	Overwrite(ctx context.Context, item domain.SyncQueueItem) error
}

// EntityID extracts the numeric id from a queued payload. Zero when the
// payload carries none (some adjustments are keyed remotely).
func EntityID(item domain.SyncQueueItem) int64 {
	var probe struct {
		ID int64 `json:"id"`
	}
	if err := json.Unmarshal(item.Payload, &probe); err != nil {
		return 0
	}
	return probe.ID
}

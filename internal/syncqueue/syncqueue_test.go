package syncqueue

import (
	"context"
	"encoding/json"
	"testing"

	"warungpos/terminal/internal/domain"
	"warungpos/terminal/internal/store"
	"warungpos/terminal/internal/store/memory"
)

func newTestQueue(t *testing.T) (*Queue, *memory.Store) {
	t.Helper()

	repo := memory.New()
	return New(repo), repo
}

func enqueue(t *testing.T, repo *memory.Store, n int) {
	t.Helper()

	blob, _ := json.Marshal([]domain.Category{{ID: 1, Name: "Sembako", Active: true}})
	for i := 0; i < n; i++ {
		err := repo.SaveMasterData(context.Background(), domain.DomainCategories, blob,
			store.SyncIntent{EntityType: domain.EntityCategory, Operation: domain.SyncOpUpdate})
		if err != nil {
			t.Fatalf("enqueue %d: %v", i, err)
		}
	}
}

func TestPendingOrder(t *testing.T) {
	q, repo := newTestQueue(t)
	enqueue(t, repo, 3)

	pending, err := q.Pending(context.Background())
	if err != nil {
		t.Fatalf("pending: %v", err)
	}
	if len(pending) != 3 {
		t.Fatalf("expected 3 pending, got %d", len(pending))
	}
	for i := 1; i < len(pending); i++ {
		if pending[i].ID <= pending[i-1].ID {
			t.Fatalf("expected enqueue order, got ids %v then %v", pending[i-1].ID, pending[i].ID)
		}
	}
}

func TestCounts(t *testing.T) {
	q, repo := newTestQueue(t)
	ctx := context.Background()

	counts, err := q.Counts(ctx)
	if err != nil {
		t.Fatalf("counts on empty queue: %v", err)
	}
	for _, status := range []string{domain.SyncStatusPending, domain.SyncStatusSynced, domain.SyncStatusFailed} {
		if _, ok := counts[status]; !ok {
			t.Fatalf("expected %s present even when zero", status)
		}
	}

	enqueue(t, repo, 3)
	pending, _ := q.Pending(ctx)
	if err := q.MarkSynced(ctx, pending[0].ID); err != nil {
		t.Fatalf("mark synced: %v", err)
	}
	if err := q.MarkFailed(ctx, pending[1].ID); err != nil {
		t.Fatalf("mark failed: %v", err)
	}

	counts, err = q.Counts(ctx)
	if err != nil {
		t.Fatalf("counts: %v", err)
	}
	if counts[domain.SyncStatusPending] != 1 || counts[domain.SyncStatusSynced] != 1 || counts[domain.SyncStatusFailed] != 1 {
		t.Fatalf("unexpected counts %v", counts)
	}
}

func TestRequeueKeepsAttempts(t *testing.T) {
	q, repo := newTestQueue(t)
	ctx := context.Background()
	enqueue(t, repo, 1)

	pending, _ := q.Pending(ctx)
	id := pending[0].ID

	if err := q.MarkFailed(ctx, id); err != nil {
		t.Fatalf("mark failed: %v", err)
	}
	if err := q.Requeue(ctx, id); err != nil {
		t.Fatalf("requeue: %v", err)
	}

	pending, _ = q.Pending(ctx)
	if len(pending) != 1 || pending[0].Attempts != 1 {
		t.Fatalf("expected requeued item keeping attempts, got %v", pending)
	}
}

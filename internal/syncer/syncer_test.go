package syncer

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log"
	"testing"
	"time"

	"warungpos/terminal/internal/domain"
	"warungpos/terminal/internal/remote"
	remotemem "warungpos/terminal/internal/remote/memory"
	"warungpos/terminal/internal/store/memory"
)

func enqueueTransaction(t *testing.T, repo *memory.Store, tx domain.Transaction) domain.SyncQueueItem {
	t.Helper()

	created, err := repo.CreateSale(context.Background(), tx)
	if err != nil {
		t.Fatalf("create sale: %v", err)
	}
	pending, err := repo.ListPendingSync(context.Background())
	if err != nil {
		t.Fatalf("list pending: %v", err)
	}
	for _, item := range pending {
		var queued domain.Transaction
		if json.Unmarshal(item.Payload, &queued) == nil && queued.ID == created.ID {
			return item
		}
	}
	t.Fatalf("no queue item for transaction %d", created.ID)
	return domain.SyncQueueItem{}
}

func saleInput(total int64) domain.Transaction {
	return domain.Transaction{
		Items:     []domain.LineItem{{ProductID: 1, VariantID: 1, Quantity: 1, UnitPrice: total}},
		Payments:  []domain.PaymentEntry{{MethodID: 1, Amount: total}},
		Subtotal:  total,
		Total:     total,
		Status:    domain.TxStatusCompleted,
		Timestamp: time.Now().UTC(),
	}
}

func seedStock(t *testing.T, repo *memory.Store, stock int64) {
	t.Helper()

	blob, err := json.Marshal([]domain.Product{{ID: 1, Name: "Beras Premium", Stock: stock}})
	if err != nil {
		t.Fatalf("marshal products: %v", err)
	}
	if err := repo.SaveMasterData(context.Background(), domain.DomainProducts, blob); err != nil {
		t.Fatalf("seed products: %v", err)
	}
}

func queueItem(t *testing.T, repo *memory.Store, id int64) domain.SyncQueueItem {
	t.Helper()

	items, err := repo.ListSyncQueue(context.Background())
	if err != nil {
		t.Fatalf("list queue: %v", err)
	}
	for _, item := range items {
		if item.ID == id {
			return item
		}
	}
	t.Fatalf("queue item %d not found", id)
	return domain.SyncQueueItem{}
}

func TestDrainMarksItemsSynced(t *testing.T) {
	repo := memory.New()
	seedStock(t, repo, 100)
	rem := remotemem.New()
	p := New(repo, rem, nil)
	ctx := context.Background()

	first := enqueueTransaction(t, repo, saleInput(10000))
	second := enqueueTransaction(t, repo, saleInput(20000))

	report, err := p.Drain(ctx)
	if err != nil {
		t.Fatalf("drain: %v", err)
	}
	if report.Synced != 2 || report.Failed != 0 {
		t.Fatalf("expected 2 synced, got %+v", report)
	}

	for _, id := range []int64{first.ID, second.ID} {
		if got := queueItem(t, repo, id).Status; got != domain.SyncStatusSynced {
			t.Fatalf("expected item %d synced, got %s", id, got)
		}
	}
	if order := rem.AppliedOrder(); len(order) != 2 || order[0] != first.ID || order[1] != second.ID {
		t.Fatalf("expected enqueue-order delivery, got %v", order)
	}

	// A second pass has nothing to do.
	report, err = p.Drain(ctx)
	if err != nil {
		t.Fatalf("second drain: %v", err)
	}
	if report.Synced != 0 || report.Failed != 0 {
		t.Fatalf("expected empty second drain, got %+v", report)
	}
}

func TestDrainRecordsFailuresAndRetries(t *testing.T) {
	repo := memory.New()
	seedStock(t, repo, 100)
	rem := remotemem.New()
	p := New(repo, rem, nil)
	ctx := context.Background()

	good := enqueueTransaction(t, repo, saleInput(10000))
	bad := enqueueTransaction(t, repo, saleInput(20000))
	rem.FailItems(bad.ID)

	report, err := p.Drain(ctx)
	if err != nil {
		t.Fatalf("drain: %v", err)
	}
	if report.Synced != 1 || report.Failed != 1 {
		t.Fatalf("expected one of each, got %+v", report)
	}
	if got := queueItem(t, repo, good.ID).Status; got != domain.SyncStatusSynced {
		t.Fatalf("expected good item synced, got %s", got)
	}
	failed := queueItem(t, repo, bad.ID)
	if failed.Status != domain.SyncStatusFailed || failed.Attempts != 1 {
		t.Fatalf("expected failed with one attempt, got %s/%d", failed.Status, failed.Attempts)
	}

	// A failed item stays retryable: requeue, clear the fault, drain again.
	if err := repo.RequeueSyncItem(ctx, bad.ID); err != nil {
		t.Fatalf("requeue: %v", err)
	}
	rem.ClearFailures()

	report, err = p.Drain(ctx)
	if err != nil {
		t.Fatalf("retry drain: %v", err)
	}
	if report.Synced != 1 || report.Failed != 0 {
		t.Fatalf("expected retried item to sync, got %+v", report)
	}
	retried := queueItem(t, repo, bad.ID)
	if retried.Status != domain.SyncStatusSynced || retried.Attempts != 1 {
		t.Fatalf("expected synced item keeping its attempt count, got %s/%d", retried.Status, retried.Attempts)
	}
}

func TestDrainUnavailableRemoteTouchesNothing(t *testing.T) {
	repo := memory.New()
	seedStock(t, repo, 100)
	rem := remotemem.New()
	rem.SetUnavailable(true)
	p := New(repo, rem, nil)
	ctx := context.Background()

	item := enqueueTransaction(t, repo, saleInput(10000))

	report, err := p.Drain(ctx)
	if !errors.Is(err, remote.ErrUnavailable) {
		t.Fatalf("expected unavailable error, got %v", err)
	}
	if report.Synced != 0 || report.Failed != 0 {
		t.Fatalf("expected empty report, got %+v", report)
	}
	after := queueItem(t, repo, item.ID)
	if after.Status != domain.SyncStatusPending || after.Attempts != 0 {
		t.Fatalf("unreachable remote must leave items untouched, got %s/%d", after.Status, after.Attempts)
	}
}

func TestDrainConflictOverwritesWithLocalPayload(t *testing.T) {
	repo := memory.New()
	seedStock(t, repo, 100)
	rem := remotemem.New()

	var buf bytes.Buffer
	p := New(repo, rem, log.New(&buf, "", 0))
	ctx := context.Background()

	created, err := repo.CreateSale(ctx, saleInput(10000))
	if err != nil {
		t.Fatalf("create sale: %v", err)
	}
	// Remote already holds a strictly newer version of this transaction.
	rem.SetVersion(domain.EntityTransaction, created.ID, time.Now().Add(time.Hour).UnixMilli())

	report, err := p.Drain(ctx)
	if err != nil {
		t.Fatalf("drain: %v", err)
	}
	if report.Synced != 1 || report.Failed != 0 {
		t.Fatalf("expected conflicting item to count as synced, got %+v", report)
	}

	blob, ok := rem.Entity(domain.EntityTransaction, created.ID)
	if !ok {
		t.Fatalf("expected remote to hold the entity after overwrite")
	}
	var remoteTx domain.Transaction
	if err := json.Unmarshal(blob, &remoteTx); err != nil {
		t.Fatalf("decode remote payload: %v", err)
	}
	if remoteTx.Total != 10000 {
		t.Fatalf("expected local payload to win, got total %d", remoteTx.Total)
	}
	if !bytes.Contains(buf.Bytes(), []byte("overwriting")) {
		t.Fatalf("expected a conflict log line, got %q", buf.String())
	}
}

package remote

import (
	"encoding/json"
	"testing"

	"warungpos/terminal/internal/domain"
)

func TestEntityID(t *testing.T) {
	item := domain.SyncQueueItem{Payload: json.RawMessage(`{"id":42,"total":15000}`)}
	if got := EntityID(item); got != 42 {
		t.Fatalf("expected 42, got %d", got)
	}

	// Stock adjustments carry no entity id of their own.
	adjustment := domain.SyncQueueItem{Payload: json.RawMessage(`{"productId":2,"change":-10}`)}
	if got := EntityID(adjustment); got != 0 {
		t.Fatalf("expected 0 for payload without id, got %d", got)
	}

	garbage := domain.SyncQueueItem{Payload: json.RawMessage(`not json`)}
	if got := EntityID(garbage); got != 0 {
		t.Fatalf("expected 0 for undecodable payload, got %d", got)
	}
}

package store

import (
	"encoding/json"
	"errors"
	"testing"

	"warungpos/terminal/internal/domain"
)

func productsBlob(t *testing.T, products []domain.Product) json.RawMessage {
	t.Helper()

	blob, err := json.Marshal(products)
	if err != nil {
		t.Fatalf("marshal products: %v", err)
	}
	return blob
}

func decodeProducts(t *testing.T, blob json.RawMessage) []domain.Product {
	t.Helper()

	var products []domain.Product
	if err := json.Unmarshal(blob, &products); err != nil {
		t.Fatalf("decode products: %v", err)
	}
	return products
}

func TestDecrementStock(t *testing.T) {
	blob := productsBlob(t, []domain.Product{
		{ID: 1, Name: "Beras Premium", Stock: 10},
		{ID: 2, Name: "Minyak Goreng", Stock: 5},
	})

	updated, err := DecrementStock(blob, []domain.LineItem{
		{ProductID: 1, Quantity: 4},
		{ProductID: 2, Quantity: 5},
	})
	if err != nil {
		t.Fatalf("decrement: %v", err)
	}
	products := decodeProducts(t, updated)
	if products[0].Stock != 6 || products[1].Stock != 0 {
		t.Fatalf("unexpected stocks %d/%d", products[0].Stock, products[1].Stock)
	}
}

func TestDecrementStockInsufficient(t *testing.T) {
	blob := productsBlob(t, []domain.Product{{ID: 1, Name: "Gula Pasir", Stock: 3}})

	_, err := DecrementStock(blob, []domain.LineItem{{ProductID: 1, Quantity: 4}})
	var stockErr *InsufficientStockError
	if !errors.As(err, &stockErr) {
		t.Fatalf("expected typed stock error, got %v", err)
	}
	if !errors.Is(err, ErrInsufficientStock) {
		t.Fatalf("expected sentinel match")
	}
	if stockErr.ProductName != "Gula Pasir" || stockErr.Requested != 4 || stockErr.Available != 3 {
		t.Fatalf("unexpected detail: %+v", stockErr)
	}
}

func TestDecrementStockUnknownProduct(t *testing.T) {
	blob := productsBlob(t, []domain.Product{{ID: 1, Stock: 10}})

	_, err := DecrementStock(blob, []domain.LineItem{{ProductID: 9, Quantity: 1}})
	if !errors.Is(err, ErrInsufficientStock) {
		t.Fatalf("expected unknown product to read as zero stock, got %v", err)
	}
}

func TestDecrementStockAggregatesLines(t *testing.T) {
	blob := productsBlob(t, []domain.Product{{ID: 1, Stock: 5}})

	// 3+3 across two variants of the same product exceeds 5.
	_, err := DecrementStock(blob, []domain.LineItem{
		{ProductID: 1, VariantID: 1, Quantity: 3},
		{ProductID: 1, VariantID: 2, Quantity: 3},
	})
	if !errors.Is(err, ErrInsufficientStock) {
		t.Fatalf("expected aggregated check to fail, got %v", err)
	}

	updated, err := DecrementStock(blob, []domain.LineItem{
		{ProductID: 1, VariantID: 1, Quantity: 2},
		{ProductID: 1, VariantID: 2, Quantity: 3},
	})
	if err != nil {
		t.Fatalf("decrement: %v", err)
	}
	if decodeProducts(t, updated)[0].Stock != 0 {
		t.Fatalf("expected stock drained to exactly zero")
	}
}

func TestIncrementStockSkipsUnknownProducts(t *testing.T) {
	blob := productsBlob(t, []domain.Product{{ID: 1, Stock: 5}})

	updated, err := IncrementStock(blob, []domain.LineItem{
		{ProductID: 1, Quantity: 2},
		{ProductID: 9, Quantity: 7},
	})
	if err != nil {
		t.Fatalf("increment: %v", err)
	}
	products := decodeProducts(t, updated)
	if len(products) != 1 || products[0].Stock != 7 {
		t.Fatalf("expected known product credited and unknown skipped, got %v", products)
	}
}

func TestDecrementStockEmptyBlob(t *testing.T) {
	_, err := DecrementStock(nil, []domain.LineItem{{ProductID: 1, Quantity: 1}})
	if !errors.Is(err, ErrInsufficientStock) {
		t.Fatalf("expected empty catalog to have no stock, got %v", err)
	}
}

package store

import (
	"encoding/json"
	"fmt"

	"warungpos/terminal/internal/domain"
)

// aggregateQuantities folds line items into per-product totals so a sale
// with several lines for the same product is checked against stock once.
func aggregateQuantities(items []domain.LineItem) map[int64]int64 {
	totals := make(map[int64]int64, len(items))
	for _, item := range items {
		totals[item.ProductID] += item.Quantity
	}
	return totals
}

// DecrementStock applies a sale's quantities to the products blob and
// returns the updated blob. If any product would go negative the whole
// operation fails with *InsufficientStockError and the input blob is
// untouched.
func DecrementStock(blob json.RawMessage, items []domain.LineItem) (json.RawMessage, error) {
	var products []domain.Product
	if len(blob) > 0 {
		if err := json.Unmarshal(blob, &products); err != nil {
			return nil, fmt.Errorf("decode products blob: %w", err)
		}
	}

	index := make(map[int64]int, len(products))
	for i, p := range products {
		index[p.ID] = i
	}

	for productID, qty := range aggregateQuantities(items) {
		i, ok := index[productID]
		if !ok {
			return nil, &InsufficientStockError{ProductID: productID, Requested: qty, Available: 0}
		}
		if products[i].Stock < qty {
			return nil, &InsufficientStockError{
				ProductID:   productID,
				ProductName: products[i].Name,
				Requested:   qty,
				Available:   products[i].Stock,
			}
		}
	}
	for productID, qty := range aggregateQuantities(items) {
		products[index[productID]].Stock -= qty
	}

	updated, err := json.Marshal(products)
	if err != nil {
		return nil, fmt.Errorf("encode products blob: %w", err)
	}
	return updated, nil
}

// IncrementStock credits quantities back to the products blob (void and
// refund restocks). Unknown products are skipped: the catalog may have been
// replaced wholesale since the sale.
func IncrementStock(blob json.RawMessage, items []domain.LineItem) (json.RawMessage, error) {
	var products []domain.Product
	if len(blob) > 0 {
		if err := json.Unmarshal(blob, &products); err != nil {
			return nil, fmt.Errorf("decode products blob: %w", err)
		}
	}

	index := make(map[int64]int, len(products))
	for i, p := range products {
		index[p.ID] = i
	}
	for productID, qty := range aggregateQuantities(items) {
		if i, ok := index[productID]; ok {
			products[i].Stock += qty
		}
	}

	updated, err := json.Marshal(products)
	if err != nil {
		return nil, fmt.Errorf("encode products blob: %w", err)
	}
	return updated, nil
}

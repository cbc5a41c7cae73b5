package masterdata

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"warungpos/terminal/internal/domain"
	"warungpos/terminal/internal/store"
)

// AdjustStock applies a manual stock correction (receiving, shrinkage,
// opname) to one product and queues a stockAdjustment for the remote store
// in the same atomic write. A sale never goes through here. The read goes
// straight to the store, not through the read cache: a sale may have
// decremented stock since the cached blob was filled, and starting from the
// stale count would resurrect the decrement.
func (c *Cache) AdjustStock(ctx context.Context, productID int64, change int64, reason string) error {
	blob, err := c.repo.GetMasterData(ctx, domain.DomainProducts)
	if errors.Is(err, store.ErrNotFound) {
		return store.ErrNotFound
	}
	if err != nil {
		return err
	}
	var products []domain.Product
	if err := json.Unmarshal(blob, &products); err != nil {
		return fmt.Errorf("decode products blob: %w", err)
	}

	var adjusted *domain.Product
	for i := range products {
		if products[i].ID == productID {
			products[i].Stock += change
			if products[i].Stock < 0 {
				return fmt.Errorf("adjustment would drive product %d stock below zero: %w",
					productID, store.ErrInvalidTransaction)
			}
			adjusted = &products[i]
			break
		}
	}
	if adjusted == nil {
		return store.ErrNotFound
	}

	updated, err := json.Marshal(products)
	if err != nil {
		return fmt.Errorf("encode products blob: %w", err)
	}

	var variantID int64
	if len(adjusted.Variants) > 0 {
		variantID = adjusted.Variants[0].ID
	}
	payload, err := json.Marshal(domain.StockAdjustment{
		ProductID: productID,
		VariantID: variantID,
		Change:    change,
		Reason:    reason,
		Timestamp: time.Now().UnixMilli(),
	})
	if err != nil {
		return fmt.Errorf("encode stock adjustment: %w", err)
	}

	return c.SetDomain(ctx, domain.DomainProducts, updated, store.SyncIntent{
		EntityType: domain.EntityStockAdjustment,
		Operation:  domain.SyncOpCreate,
		Payload:    payload,
	})
}

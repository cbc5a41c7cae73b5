// Package masterdata exposes the reference-data collections (categories,
// products, payment methods, promotions) cached locally for offline reads.
package masterdata

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	"warungpos/terminal/internal/cache"
	"warungpos/terminal/internal/domain"
	"warungpos/terminal/internal/store"
)

var emptyDomain = json.RawMessage("[]")

// Cache is a read-through/write-through accessor over the master data
// collection. It never decides what needs syncing: callers attach an
// explicit store.SyncIntent per changed entity and the enqueue happens in
// the same atomic unit as the blob write.
type Cache struct {
	repo    store.Repository
	domains cache.DomainCache
	ttl     time.Duration
}

func New(repo store.Repository, domains cache.DomainCache, ttl time.Duration) *Cache {
	if domains == nil {
		domains = cache.NoopDomainCache{}
	}
	if ttl <= 0 {
		ttl = 30 * time.Second
	}
	return &Cache{repo: repo, domains: domains, ttl: ttl}
}

// GetDomain returns the blob for a domain key. An absent domain yields an
// empty JSON array, never nil, so consumers need no nil checks.
func (c *Cache) GetDomain(ctx context.Context, key string) (json.RawMessage, error) {
	if blob, ok, err := c.domains.Get(ctx, key); err == nil && ok {
		return blob, nil
	} else if err != nil {
		log.Printf("[masterdata] cache read failed for %s: %v", key, err)
	}

	blob, err := c.repo.GetMasterData(ctx, key)
	if errors.Is(err, store.ErrNotFound) {
		return emptyDomain, nil
	}
	if err != nil {
		return nil, err
	}

	if err := c.domains.Set(ctx, key, blob, c.ttl); err != nil {
		log.Printf("[masterdata] cache fill failed for %s: %v", key, err)
	}
	return blob, nil
}

// SetDomain replaces the domain blob wholesale and appends one sync-queue
// entry per intent atomically with the write.
func (c *Cache) SetDomain(ctx context.Context, key string, blob json.RawMessage, intents ...store.SyncIntent) error {
	if err := c.repo.SaveMasterData(ctx, key, blob, intents...); err != nil {
		return err
	}
	if err := c.domains.Invalidate(ctx, key); err != nil {
		log.Printf("[masterdata] cache invalidate failed for %s: %v", key, err)
	}
	return nil
}

func getDomainAs[T any](ctx context.Context, c *Cache, key string) ([]T, error) {
	blob, err := c.GetDomain(ctx, key)
	if err != nil {
		return nil, err
	}
	out := []T{}
	if err := json.Unmarshal(blob, &out); err != nil {
		return nil, fmt.Errorf("decode %s blob: %w", key, err)
	}
	return out, nil
}

func (c *Cache) Categories(ctx context.Context) ([]domain.Category, error) {
	return getDomainAs[domain.Category](ctx, c, domain.DomainCategories)
}

func (c *Cache) Products(ctx context.Context) ([]domain.Product, error) {
	return getDomainAs[domain.Product](ctx, c, domain.DomainProducts)
}

func (c *Cache) PaymentMethods(ctx context.Context) ([]domain.PaymentMethod, error) {
	return getDomainAs[domain.PaymentMethod](ctx, c, domain.DomainPaymentMethods)
}

func (c *Cache) Promotions(ctx context.Context) ([]domain.Promotion, error) {
	return getDomainAs[domain.Promotion](ctx, c, domain.DomainPromotions)
}

package cache

import (
	"context"
	"encoding/json"
	"time"
)

// DomainCache is a read cache in front of the local store's master data
// blobs. Implementations must treat a miss as (nil, false, nil).
type DomainCache interface {
	Get(ctx context.Context, key string) (json.RawMessage, bool, error)
	Set(ctx context.Context, key string, blob json.RawMessage, ttl time.Duration) error
	Invalidate(ctx context.Context, key string) error
}

type NoopDomainCache struct{}

func (NoopDomainCache) Get(_ context.Context, _ string) (json.RawMessage, bool, error) {
	return nil, false, nil
}

func (NoopDomainCache) Set(_ context.Context, _ string, _ json.RawMessage, _ time.Duration) error {
	return nil
}

func (NoopDomainCache) Invalidate(_ context.Context, _ string) error {
	return nil
}

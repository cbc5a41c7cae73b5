package cache

import (
	"context"
	"encoding/json"
	"time"

	redis "github.com/redis/go-redis/v9"
)

// RedisDomainCache shares decoded master data between terminals on the same
// LAN. It is strictly an accelerator: the local store stays the source of
// truth and every write invalidates the cached blob.
type RedisDomainCache struct {
	client *redis.Client
	prefix string
}

func NewRedisDomainCache(addr string, password string, db int) *RedisDomainCache {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	return &RedisDomainCache{client: client, prefix: "masterdata:"}
}

func (c *RedisDomainCache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

func (c *RedisDomainCache) Close() error {
	return c.client.Close()
}

func (c *RedisDomainCache) Get(ctx context.Context, key string) (json.RawMessage, bool, error) {
	val, err := c.client.Get(ctx, c.prefix+key).Result()
	if err == redis.Nil {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return json.RawMessage(val), true, nil
}

func (c *RedisDomainCache) Set(ctx context.Context, key string, blob json.RawMessage, ttl time.Duration) error {
	if len(blob) == 0 {
		return nil
	}
	return c.client.Set(ctx, c.prefix+key, string(blob), ttl).Err()
}

func (c *RedisDomainCache) Invalidate(ctx context.Context, key string) error {
	return c.client.Del(ctx, c.prefix+key).Err()
}

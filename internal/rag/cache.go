package rag

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"docbot-rag/utils"

	"github.com/redis/go-redis/v9"
)

// Cache stores retrieval results. Implementations may be lossy.
type Cache interface {
	Get(ctx context.Context, key string) ([]Chunk, bool, error)
	Set(ctx context.Context, key string, chunks []Chunk) error
}

// CacheKey scopes entries to one index generation, so a rebuild never
// serves stale chunks.
func CacheKey(indexID string, k int, query string) string {
	return fmt.Sprintf("rag:retrieve:%s:%d:%s", indexID, k, utils.SHA256Hex(query))
}

type RedisCache struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewRedisCache(rdb *redis.Client, ttl time.Duration) *RedisCache {
	return &RedisCache{rdb: rdb, ttl: ttl}
}

func (c *RedisCache) Get(ctx context.Context, key string) ([]Chunk, bool, error) {
	ctx, cancel := utils.WithShortTimeout(ctx)
	defer cancel()

	raw, err := c.rdb.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	var chunks []Chunk
	if err := json.Unmarshal(raw, &chunks); err != nil {
		return nil, false, err
	}
	return chunks, true, nil
}

func (c *RedisCache) Set(ctx context.Context, key string, chunks []Chunk) error {
	ctx, cancel := utils.WithShortTimeout(ctx)
	defer cancel()

	raw, err := json.Marshal(chunks)
	if err != nil {
		return err
	}
	return c.rdb.Set(ctx, key, raw, c.ttl).Err()
}

package retrieval

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/fusekb/fusekb/helper"
	"github.com/fusekb/fusekb/model"
)

const redisCachePrefix = "fusekb:retrieval:"

// RedisCache shares the retrieval cache across processes. Results are
// stored as JSON under a common key prefix so Clear can drop them without
// touching other keys in the same database.
type RedisCache struct {
	client *redis.Client
	ttl    time.Duration
	logger *slog.Logger
}

// NewRedisCache connects to redis and verifies the connection.
func NewRedisCache(ctx context.Context, address string, password string, db int, ttl time.Duration, logger *slog.Logger) (*RedisCache, error) {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	client := redis.NewClient(&redis.Options{
		Addr:     address,
		Password: password,
		DB:       db,
	})
	err := client.Ping(ctx).Err()
	if err != nil {
		return nil, helper.NewError("redis ping", err)
	}

	return &RedisCache{client: client, ttl: ttl, logger: logger}, nil
}

// NewRedisCacheFromClient wraps an existing client, used by tests.
func NewRedisCacheFromClient(client *redis.Client, ttl time.Duration, logger *slog.Logger) *RedisCache {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &RedisCache{client: client, ttl: ttl, logger: logger}
}

func (c *RedisCache) Get(ctx context.Context, key string) ([]*model.RetrievalResult, bool) {
	data, err := c.client.Get(ctx, redisCachePrefix+key).Bytes()
	if err != nil {
		if err != redis.Nil {
			c.logger.Warn("Cache read failed", "error", err)
		}
		return nil, false
	}

	var results []*model.RetrievalResult
	if err := json.Unmarshal(data, &results); err != nil {
		c.logger.Warn("Cache entry corrupt, dropping", "key", key, "error", err)
		c.client.Del(ctx, redisCachePrefix+key)
		return nil, false
	}
	return results, true
}

func (c *RedisCache) Set(ctx context.Context, key string, results []*model.RetrievalResult) error {
	data, err := json.Marshal(results)
	if err != nil {
		return helper.NewError("marshal results", err)
	}

	err = c.client.Set(ctx, redisCachePrefix+key, data, c.ttl).Err()
	if err != nil {
		return helper.NewError("cache write", err)
	}
	return nil
}

func (c *RedisCache) Clear(ctx context.Context) error {
	iter := c.client.Scan(ctx, 0, redisCachePrefix+"*", 0).Iterator()
	var keys []string
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return helper.NewError("cache scan", err)
	}
	if len(keys) == 0 {
		return nil
	}

	err := c.client.Del(ctx, keys...).Err()
	if err != nil {
		return helper.NewError("cache clear", err)
	}
	return nil
}

// Close releases the redis connection.
func (c *RedisCache) Close() error {
	return c.client.Close()
}

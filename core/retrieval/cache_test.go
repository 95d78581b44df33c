package retrieval

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fusekb/fusekb/model"
)

func TestCacheKey(t *testing.T) {
	base := &model.RetrieveRequest{Query: "什么是RAG技术？", Mode: model.ModeHybrid, TopK: 10}

	t.Run("Same request same key", func(t *testing.T) {
		assert.Equal(t, CacheKey(base), CacheKey(&model.RetrieveRequest{
			Query: "什么是RAG技术？", Mode: model.ModeHybrid, TopK: 10,
		}))
	})

	t.Run("Filter order does not matter", func(t *testing.T) {
		first := &model.RetrieveRequest{Query: "q", Mode: model.ModeVector, TopK: 5,
			Filters: map[string]string{"a": "1", "b": "2"}}
		second := &model.RetrieveRequest{Query: "q", Mode: model.ModeVector, TopK: 5,
			Filters: map[string]string{"b": "2", "a": "1"}}

		assert.Equal(t, CacheKey(first), CacheKey(second))
	})

	t.Run("Each dimension changes the key", func(t *testing.T) {
		variants := []*model.RetrieveRequest{
			{Query: "other", Mode: model.ModeHybrid, TopK: 10},
			{Query: "什么是RAG技术？", Mode: model.ModeVector, TopK: 10},
			{Query: "什么是RAG技术？", Mode: model.ModeHybrid, TopK: 5},
			{Query: "什么是RAG技术？", Mode: model.ModeHybrid, TopK: 10, Filters: map[string]string{"lang": "zh"}},
		}
		for _, variant := range variants {
			assert.NotEqual(t, CacheKey(base), CacheKey(variant))
		}
	})
}

func TestMemoryCache(t *testing.T) {
	ctx := context.Background()

	t.Run("Set and get", func(t *testing.T) {
		cache := NewMemoryCache(time.Minute)
		results := []*model.RetrievalResult{result("cached", 0.9, model.SourceVector)}

		require.NoError(t, cache.Set(ctx, "key", results))

		got, ok := cache.Get(ctx, "key")
		require.True(t, ok)
		assert.Equal(t, results, got)
	})

	t.Run("Miss on unknown key", func(t *testing.T) {
		cache := NewMemoryCache(time.Minute)

		_, ok := cache.Get(ctx, "missing")
		assert.False(t, ok)
	})

	t.Run("Entries expire", func(t *testing.T) {
		cache := NewMemoryCache(time.Millisecond)
		require.NoError(t, cache.Set(ctx, "key", []*model.RetrievalResult{}))

		time.Sleep(5 * time.Millisecond)

		_, ok := cache.Get(ctx, "key")
		assert.False(t, ok)
	})

	t.Run("Clear drops everything", func(t *testing.T) {
		cache := NewMemoryCache(time.Minute)
		require.NoError(t, cache.Set(ctx, "key", []*model.RetrievalResult{}))

		require.NoError(t, cache.Clear(ctx))

		_, ok := cache.Get(ctx, "key")
		assert.False(t, ok)
	})
}

func TestRedisCache(t *testing.T) {
	ctx := context.Background()
	server := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: server.Addr()})
	cache := NewRedisCacheFromClient(client, time.Minute, nil)

	t.Run("Round trip", func(t *testing.T) {
		results := []*model.RetrievalResult{
			{Content: "缓存内容", Score: 0.8, Source: model.SourceVector, Metadata: model.Metadata{"k": "v"}, ChunkID: "c1"},
		}
		require.NoError(t, cache.Set(ctx, "key", results))

		got, ok := cache.Get(ctx, "key")
		require.True(t, ok)
		require.Len(t, got, 1)
		assert.Equal(t, "缓存内容", got[0].Content)
		assert.Equal(t, model.SourceVector, got[0].Source)
	})

	t.Run("Miss on unknown key", func(t *testing.T) {
		_, ok := cache.Get(ctx, "missing")
		assert.False(t, ok)
	})

	t.Run("Clear only removes cache keys", func(t *testing.T) {
		require.NoError(t, client.Set(ctx, "unrelated", "stays", 0).Err())
		require.NoError(t, cache.Set(ctx, "key", []*model.RetrievalResult{}))

		require.NoError(t, cache.Clear(ctx))

		_, ok := cache.Get(ctx, "key")
		assert.False(t, ok)
		assert.Equal(t, "stays", client.Get(ctx, "unrelated").Val())
	})
}

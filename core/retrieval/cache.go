package retrieval

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/fusekb/fusekb/model"
)

// Cache stores finished retrieval responses keyed by the request. Entries
// are only written for successful retrievals and the whole cache is cleared
// on ingestion, so a hit can never serve results older than the corpus.
type Cache interface {
	Get(ctx context.Context, key string) ([]*model.RetrievalResult, bool)
	Set(ctx context.Context, key string, results []*model.RetrievalResult) error
	Clear(ctx context.Context) error
}

// CacheKey derives the cache key from everything that shapes a response:
// the query, mode, top k and the filters in sorted order.
func CacheKey(request *model.RetrieveRequest) string {
	filterKeys := make([]string, 0, len(request.Filters))
	for key := range request.Filters {
		filterKeys = append(filterKeys, key)
	}
	sort.Strings(filterKeys)

	var filters strings.Builder
	for _, key := range filterKeys {
		fmt.Fprintf(&filters, "%v=%v;", key, request.Filters[key])
	}

	sum := sha256.Sum256([]byte(fmt.Sprintf("%v|%v|%v|%v", request.Query, request.Mode, request.TopK, filters.String())))
	return hex.EncodeToString(sum[:])
}

type memoryCacheEntry struct {
	results   []*model.RetrievalResult
	expiresAt time.Time
}

// MemoryCache is an in process cache with a fixed TTL per entry.
type MemoryCache struct {
	mu      sync.RWMutex
	entries map[string]memoryCacheEntry
	ttl     time.Duration
}

// NewMemoryCache creates a cache whose entries expire after ttl.
func NewMemoryCache(ttl time.Duration) *MemoryCache {
	return &MemoryCache{
		entries: map[string]memoryCacheEntry{},
		ttl:     ttl,
	}
}

func (c *MemoryCache) Get(_ context.Context, key string) ([]*model.RetrievalResult, bool) {
	c.mu.RLock()
	entry, ok := c.entries[key]
	c.mu.RUnlock()

	if !ok || time.Now().After(entry.expiresAt) {
		return nil, false
	}
	return entry.results, true
}

func (c *MemoryCache) Set(_ context.Context, key string, results []*model.RetrievalResult) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = memoryCacheEntry{
		results:   results,
		expiresAt: time.Now().Add(c.ttl),
	}
	return nil
}

func (c *MemoryCache) Clear(_ context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = map[string]memoryCacheEntry{}
	return nil
}

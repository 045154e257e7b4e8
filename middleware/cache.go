package middleware

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/klejdi94/clipbench/encoder"
)

// Cache is the interface for embedding caching.
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, bool)
	Set(ctx context.Context, key string, val []byte, ttl time.Duration) error
}

// cacheEncoder caches text embeddings keyed by the input text. Label prompts
// repeat across runs, so this avoids re-billing the same strings.
type cacheEncoder struct {
	next  encoder.TextEncoder
	cache Cache
	ttl   time.Duration
}

// CacheMiddleware returns a middleware that caches text embeddings.
func CacheMiddleware(cache Cache, ttl time.Duration) Middleware {
	if ttl <= 0 {
		ttl = time.Hour
	}
	return func(e encoder.TextEncoder) encoder.TextEncoder {
		return &cacheEncoder{next: e, cache: cache, ttl: ttl}
	}
}

func (c *cacheEncoder) EncodeText(ctx context.Context, text string) ([]float32, error) {
	if c.cache != nil {
		if raw, ok := c.cache.Get(ctx, text); ok {
			var vec []float32
			if err := json.Unmarshal(raw, &vec); err == nil {
				return vec, nil
			}
		}
	}
	vec, err := c.next.EncodeText(ctx, text)
	if err != nil {
		return nil, err
	}
	if c.cache != nil {
		if raw, err := json.Marshal(vec); err == nil {
			_ = c.cache.Set(ctx, text, raw, c.ttl)
		}
	}
	return vec, nil
}

func (c *cacheEncoder) EncodeTextBatch(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	var missing []string
	var missingIdx []int
	for i, text := range texts {
		if c.cache != nil {
			if raw, ok := c.cache.Get(ctx, text); ok {
				var vec []float32
				if err := json.Unmarshal(raw, &vec); err == nil {
					out[i] = vec
					continue
				}
			}
		}
		missing = append(missing, text)
		missingIdx = append(missingIdx, i)
	}
	if len(missing) == 0 {
		return out, nil
	}
	vecs, err := c.next.EncodeTextBatch(ctx, missing)
	if err != nil {
		return nil, err
	}
	for j, vec := range vecs {
		out[missingIdx[j]] = vec
		if c.cache != nil {
			if raw, err := json.Marshal(vec); err == nil {
				_ = c.cache.Set(ctx, missing[j], raw, c.ttl)
			}
		}
	}
	return out, nil
}

func (c *cacheEncoder) Dimension() int {
	return c.next.Dimension()
}

// InMemoryCache is a simple in-memory cache (for testing/single process).
type InMemoryCache struct {
	mu    sync.RWMutex
	store map[string]cacheEntry
}

type cacheEntry struct {
	val     []byte
	expires time.Time
}

func NewInMemoryCache() *InMemoryCache {
	return &InMemoryCache{store: make(map[string]cacheEntry)}
}

func (m *InMemoryCache) Get(ctx context.Context, key string) ([]byte, bool) {
	m.mu.RLock()
	e, ok := m.store[key]
	m.mu.RUnlock()
	if !ok || time.Now().After(e.expires) {
		return nil, false
	}
	return e.val, true
}

func (m *InMemoryCache) Set(ctx context.Context, key string, val []byte, ttl time.Duration) error {
	m.mu.Lock()
	m.store[key] = cacheEntry{val: val, expires: time.Now().Add(ttl)}
	m.mu.Unlock()
	return nil
}

// RedisCache stores embeddings in Redis so they survive across runs.
type RedisCache struct {
	client redis.UniversalClient
	prefix string
}

// NewRedisCache creates a cache using the given Redis client. Optional key
// prefix (e.g. "clipbench:embed:").
func NewRedisCache(client redis.UniversalClient, prefix string) *RedisCache {
	return &RedisCache{client: client, prefix: prefix}
}

func (r *RedisCache) Get(ctx context.Context, key string) ([]byte, bool) {
	raw, err := r.client.Get(ctx, r.prefix+key).Bytes()
	if err != nil {
		return nil, false
	}
	return raw, true
}

func (r *RedisCache) Set(ctx context.Context, key string, val []byte, ttl time.Duration) error {
	return r.client.Set(ctx, r.prefix+key, val, ttl).Err()
}

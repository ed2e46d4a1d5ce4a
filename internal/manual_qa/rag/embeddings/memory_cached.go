package embeddings

import (
	"context"
	"time"

	"manualqa/internal/manual_qa/rag/interfaces"
	"manualqa/pkg/util"
)

// memoryCacheCapacity bounds the in-process word-vector cache. Vehicle
// manuals share a modest vocabulary, so a few thousand entries cover the
// working set.
const memoryCacheCapacity = 8192

// MemoryCached decorates an EmbeddingProvider with an in-process LRU cache.
// It is the single-node alternative to the Redis-backed Cached decorator.
// Known-absent words are cached as empty vectors so they are not re-requested.
type MemoryCached struct {
	inner interfaces.EmbeddingProvider
	cache *util.LRUCache[string, []float32]
}

// NewMemoryCached wraps inner with an LRU word-vector cache. A ttl of zero
// means entries never expire.
func NewMemoryCached(inner interfaces.EmbeddingProvider, ttl time.Duration) (*MemoryCached, error) {
	cache, err := util.NewLRU[string, []float32](memoryCacheCapacity, ttl)
	if err != nil {
		return nil, err
	}
	return &MemoryCached{inner: inner, cache: cache}, nil
}

// Vector returns the cached vector for word, consulting the inner provider on
// a miss and storing the result.
func (c *MemoryCached) Vector(ctx context.Context, word string) ([]float32, error) {
	if vec, ok := c.cache.Get(word); ok {
		if len(vec) == 0 {
			return nil, nil
		}
		return vec, nil
	}
	vec, err := c.inner.Vector(ctx, word)
	if err != nil {
		return nil, err
	}
	if vec == nil {
		c.cache.Set(word, []float32{})
		return nil, nil
	}
	c.cache.Set(word, vec)
	return vec, nil
}

var _ interfaces.EmbeddingProvider = (*MemoryCached)(nil)

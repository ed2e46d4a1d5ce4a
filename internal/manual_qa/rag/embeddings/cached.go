package embeddings

import (
	"context"
	"encoding/json"
	"time"

	"manualqa/internal/manual_qa/rag/interfaces"
	"manualqa/pkg/logger"

	"github.com/go-redis/redis/v8"
)

const cacheKeyPrefix = "manualqa:embed:"

// Cached decorates an EmbeddingProvider with a Redis word-vector cache.
// Word lookups repeat heavily across queries against the same manual, and a
// cache miss costs a provider round trip. Known-absent words are cached as an
// empty vector so they are not re-requested. Cache failures are logged and
// the lookup falls through to the inner provider.
type Cached struct {
	inner interfaces.EmbeddingProvider
	rdb   *redis.Client
	ttl   time.Duration
	log   *logger.Logger
}

// NewCached wraps inner with a Redis cache. A ttl of zero means entries never
// expire.
func NewCached(inner interfaces.EmbeddingProvider, rdb *redis.Client, ttl time.Duration, log *logger.Logger) *Cached {
	return &Cached{inner: inner, rdb: rdb, ttl: ttl, log: log}
}

// Vector returns the cached vector for word, consulting the inner provider on
// a miss and storing the result.
func (c *Cached) Vector(ctx context.Context, word string) ([]float32, error) {
	key := cacheKeyPrefix + word

	raw, err := c.rdb.Get(ctx, key).Bytes()
	if err == nil {
		var vec []float32
		if jsonErr := json.Unmarshal(raw, &vec); jsonErr == nil {
			if len(vec) == 0 {
				return nil, nil
			}
			return vec, nil
		}
		// A corrupt entry is treated as a miss and overwritten below.
	} else if err != redis.Nil {
		c.log.WithError(err).Warn("embedding cache read failed; falling through to provider")
	}

	vec, err := c.inner.Vector(ctx, word)
	if err != nil {
		return nil, err
	}

	encoded, jsonErr := json.Marshal(vec)
	if jsonErr == nil {
		if setErr := c.rdb.Set(ctx, key, encoded, c.ttl).Err(); setErr != nil {
			c.log.WithError(setErr).Debug("embedding cache write failed")
		}
	}
	return vec, nil
}

var _ interfaces.EmbeddingProvider = (*Cached)(nil)

package redis

import (
	"context"
	"encoding/json"
	"math/rand"
	"time"

	"vocab-quiz-service/internal/domain"
	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"
)

// WordSource fetches the word pool for a status filter from a backing store
// (e.g., Postgres).
type WordSource interface {
	LoadWords(ctx context.Context, status domain.WordStatus) ([]domain.Word, error)
}

// PoolCache caches word pools in Redis (one JSON value per status filter)
// and falls back to a source on cache miss.
// Pools are stored as: SET words:pool:{status} {json} EX {ttl}
type PoolCache struct {
	client *redis.Client
	source WordSource
	ttl    time.Duration
	sf     singleflight.Group
	rnd    *rand.Rand
}

func NewPoolCache(client *redis.Client, source WordSource, ttl time.Duration) *PoolCache {
	return &PoolCache{
		client: client,
		source: source,
		ttl:    ttl,
		rnd:    rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

func (c *PoolCache) LoadWords(ctx context.Context, status domain.WordStatus) ([]domain.Word, error) {
	key := c.poolKey(status)

	raw, err := c.client.Get(ctx, key).Bytes()
	if err == nil {
		if words, ok := decodePool(raw); ok {
			return words, nil
		}
	}

	result, err, _ := c.sf.Do(string(status), func() (interface{}, error) {
		// Re-check cache in case another goroutine filled it.
		raw, err := c.client.Get(ctx, key).Bytes()
		if err == nil {
			if words, ok := decodePool(raw); ok {
				return words, nil
			}
		}

		words, err := c.source.LoadWords(ctx, status)
		if err != nil {
			return nil, err
		}

		if data, err := json.Marshal(words); err == nil {
			// best-effort fill; a miss next time just reloads
			_ = c.client.Set(ctx, key, data, c.ttlWithJitter()).Err()
		}
		return words, nil
	})
	if err != nil {
		return nil, err
	}
	return result.([]domain.Word), nil
}

func (c *PoolCache) poolKey(status domain.WordStatus) string {
	if status == "" {
		status = domain.StatusAll
	}
	return "words:pool:" + string(status)
}

func decodePool(raw []byte) ([]domain.Word, bool) {
	var words []domain.Word
	if err := json.Unmarshal(raw, &words); err != nil {
		return nil, false
	}
	return words, true
}

func (c *PoolCache) ttlWithJitter() time.Duration {
	if c.ttl <= 0 {
		return 0
	}
	jitterMax := int64(c.ttl) / 10
	return c.ttl + time.Duration(c.rnd.Int63n(jitterMax+1))
}

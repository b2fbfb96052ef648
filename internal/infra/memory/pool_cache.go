package memory

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"vocab-quiz-service/internal/domain"
	"golang.org/x/sync/singleflight"
)

// PoolCache caches word pools per status filter with TTL to avoid hitting
// the backing store on every quiz start.
type PoolCache struct {
	source WordSource
	ttl    time.Duration
	clock  func() time.Time
	sf     singleflight.Group
	rnd    *rand.Rand

	mu    sync.RWMutex
	cache map[domain.WordStatus]cachedPool
}

type cachedPool struct {
	words     []domain.Word
	expiresAt time.Time
}

func NewPoolCache(source WordSource, ttl time.Duration) *PoolCache {
	return &PoolCache{
		source: source,
		ttl:    ttl,
		clock:  time.Now,
		rnd:    rand.New(rand.NewSource(time.Now().UnixNano())),
		cache:  make(map[domain.WordStatus]cachedPool),
	}
}

func (c *PoolCache) LoadWords(ctx context.Context, status domain.WordStatus) ([]domain.Word, error) {
	now := c.clock()

	c.mu.RLock()
	if entry, ok := c.cache[status]; ok && entry.expiresAt.After(now) {
		c.mu.RUnlock()
		return entry.words, nil
	}
	c.mu.RUnlock()

	result, err, _ := c.sf.Do(string(status), func() (interface{}, error) {
		now := c.clock()
		c.mu.RLock()
		if entry, ok := c.cache[status]; ok && entry.expiresAt.After(now) {
			c.mu.RUnlock()
			return entry.words, nil
		}
		c.mu.RUnlock()

		words, err := c.source.LoadWords(ctx, status)
		if err != nil {
			return nil, err
		}

		c.mu.Lock()
		c.cache[status] = cachedPool{
			words:     words,
			expiresAt: now.Add(c.ttlWithJitter()),
		}
		c.mu.Unlock()
		return words, nil
	})
	if err != nil {
		return nil, err
	}
	return result.([]domain.Word), nil
}

func (c *PoolCache) ttlWithJitter() time.Duration {
	if c.ttl <= 0 {
		return 0
	}
	// add up to 10% jitter to spread expirations
	jitterMax := int64(c.ttl) / 10
	return c.ttl + time.Duration(c.rnd.Int63n(jitterMax+1))
}

package redis

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

// Registry marks live quiz attempts in Redis so multiple instances can see
// which attempts are active. Keys expire on their own if an instance dies
// without unregistering.
type Registry struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRegistry(client *redis.Client, ttl time.Duration) *Registry {
	return &Registry{client: client, ttl: ttl}
}

func (r *Registry) Register(ctx context.Context, sessionID string) error {
	return r.client.Set(ctx, r.key(sessionID), "1", r.ttl).Err()
}

func (r *Registry) Unregister(ctx context.Context, sessionID string) {
	// best-effort cleanup; the TTL covers a lost delete
	_ = r.client.Del(ctx, r.key(sessionID)).Err()
}

func (r *Registry) key(sessionID string) string {
	return "quiz:attempt:" + sessionID
}

package notification

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// Guard records delivery keys. Claim reports true only for the first caller
// of a key within the guard's TTL.
type Guard interface {
	Claim(ctx context.Context, key string) (bool, error)
}

type MemoryGuard struct {
	ttl time.Duration
	now func() time.Time

	mu   sync.Mutex
	seen map[string]time.Time
}

func NewMemoryGuard(ttl time.Duration) *MemoryGuard {
	return &MemoryGuard{
		ttl:  ttl,
		now:  time.Now,
		seen: make(map[string]time.Time),
	}
}

func (g *MemoryGuard) Claim(_ context.Context, key string) (bool, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	now := g.now()
	if expires, ok := g.seen[key]; ok && now.Before(expires) {
		return false, nil
	}
	g.seen[key] = now.Add(g.ttl)

	// sweep lazily so the map does not grow without bound
	if len(g.seen)%1024 == 0 {
		for k, exp := range g.seen {
			if !now.Before(exp) {
				delete(g.seen, k)
			}
		}
	}
	return true, nil
}

const defaultGuardPrefix = "lender-ledger:delivery:"

// RedisGuard shares delivery keys across instances with SET NX EX.
type RedisGuard struct {
	client    redis.Cmdable
	keyPrefix string
	ttl       time.Duration
}

func NewRedisGuard(client redis.Cmdable, keyPrefix string, ttl time.Duration) *RedisGuard {
	if keyPrefix == "" {
		keyPrefix = defaultGuardPrefix
	}
	return &RedisGuard{client: client, keyPrefix: keyPrefix, ttl: ttl}
}

func (g *RedisGuard) Claim(ctx context.Context, key string) (bool, error) {
	ok, err := g.client.SetNX(ctx, g.keyPrefix+key, "1", g.ttl).Result()
	if err != nil {
		return false, fmt.Errorf("failed to claim delivery key %q: %w", key, err)
	}
	return ok, nil
}

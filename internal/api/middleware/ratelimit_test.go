package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"lender-ledger/internal/config"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
)

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func serve(h http.Handler, remoteAddr string, headers map[string]string) int {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = remoteAddr
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec.Code
}

func TestRateLimiterMiddleware_InMemory(t *testing.T) {
	rl := NewRateLimiterMiddleware(config.RateLimitConfig{Enabled: true, RPS: 1, Burst: 2}, nil, testLogger)
	handler := rl.Middleware(okHandler())

	t.Run("Allows the burst then blocks", func(t *testing.T) {
		assert.Equal(t, http.StatusOK, serve(handler, "10.0.0.1:1234", nil))
		assert.Equal(t, http.StatusOK, serve(handler, "10.0.0.1:1234", nil))
		assert.Equal(t, http.StatusTooManyRequests, serve(handler, "10.0.0.1:1234", nil))
	})

	t.Run("Buckets are per client IP", func(t *testing.T) {
		assert.Equal(t, http.StatusOK, serve(handler, "10.0.0.2:1234", nil))
	})

	t.Run("Uses X-Forwarded-For first", func(t *testing.T) {
		headers := map[string]string{"X-Forwarded-For": "192.168.1.9, 10.0.0.1"}
		assert.Equal(t, http.StatusOK, serve(handler, "10.0.0.1:1234", headers))
	})

	t.Run("Unknown client is forbidden", func(t *testing.T) {
		assert.Equal(t, http.StatusForbidden, serve(handler, "not-an-address", nil))
	})
}

func TestRateLimiterMiddleware_Disabled(t *testing.T) {
	for _, cfg := range []config.RateLimitConfig{
		{Enabled: false, RPS: 1},
		{Enabled: true, RPS: 0},
	} {
		rl := NewRateLimiterMiddleware(cfg, nil, testLogger)
		assert.False(t, rl.IsEnabled())

		handler := rl.Middleware(okHandler())
		for i := 0; i < 5; i++ {
			assert.Equal(t, http.StatusOK, serve(handler, "10.0.0.1:1", nil))
		}
	}
}

type countingRedis struct {
	redis.Cmdable
	counts map[string]int64
	fail   bool
}

type countingPipeline struct {
	redis.Pipeliner
	parent *countingRedis
	incr   *redis.IntCmd
	ttl    *redis.DurationCmd
}

func (c *countingRedis) Pipeline() redis.Pipeliner {
	return &countingPipeline{parent: c}
}

func (c *countingRedis) Expire(ctx context.Context, key string, _ time.Duration) *redis.BoolCmd {
	return redis.NewBoolResult(true, nil)
}

func (p *countingPipeline) Incr(ctx context.Context, key string) *redis.IntCmd {
	p.parent.counts[key]++
	p.incr = redis.NewIntResult(p.parent.counts[key], nil)
	return p.incr
}

func (p *countingPipeline) TTL(ctx context.Context, key string) *redis.DurationCmd {
	p.ttl = redis.NewDurationResult(-1, nil)
	return p.ttl
}

func (p *countingPipeline) Exec(ctx context.Context) ([]redis.Cmder, error) {
	if p.parent.fail {
		return nil, errors.New("redis unavailable")
	}
	return []redis.Cmder{p.incr, p.ttl}, nil
}

func TestRateLimiterMiddleware_Redis(t *testing.T) {
	t.Run("Counts within the shared window", func(t *testing.T) {
		client := &countingRedis{counts: map[string]int64{}}
		handler := NewRateLimiterMiddleware(config.RateLimitConfig{Enabled: true, RPS: 2}, client, testLogger).Middleware(okHandler())

		assert.Equal(t, http.StatusOK, serve(handler, "10.0.0.1:1", nil))
		assert.Equal(t, http.StatusOK, serve(handler, "10.0.0.1:1", nil))
		assert.Equal(t, http.StatusTooManyRequests, serve(handler, "10.0.0.1:1", nil))
		assert.Equal(t, int64(3), client.counts["ratelimit:10.0.0.1"])
	})

	t.Run("Falls back to local buckets when Redis fails", func(t *testing.T) {
		client := &countingRedis{counts: map[string]int64{}, fail: true}
		handler := NewRateLimiterMiddleware(config.RateLimitConfig{Enabled: true, RPS: 1, Burst: 1}, client, testLogger).Middleware(okHandler())

		assert.Equal(t, http.StatusOK, serve(handler, "10.0.0.1:1", nil))
		assert.Equal(t, http.StatusTooManyRequests, serve(handler, "10.0.0.1:1", nil))
	})
}

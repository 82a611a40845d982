package redisx

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

// New returns a client for the tracking cache, or nil when no address is
// configured; callers treat nil as "cache disabled".
func New(ctx context.Context, addr string) *redis.Client {
	if addr == "" {
		return nil
	}
	r := redis.NewClient(&redis.Options{Addr: addr})
	pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if err := r.Ping(pingCtx).Err(); err != nil {
		_ = r.Close()
		return nil
	}
	return r
}

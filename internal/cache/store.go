package cache

import (
	"context"
	"errors"
	"time"
)

// ErrMiss is returned when a key does not exist (or has expired).
var ErrMiss = errors.New("cache: key not found")

// Store is the slice of the cache/lock service the booking engine uses:
// string values with TTLs, integer counters, and the compare-and-delete
// primitive the lock manager releases with.
type Store interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string, ttl time.Duration) error
	SetNX(ctx context.Context, key, value string, ttl time.Duration) (bool, error)
	Incr(ctx context.Context, key string) (int64, error)
	Decr(ctx context.Context, key string) (int64, error)
	Del(ctx context.Context, keys ...string) error
	// DelIfEquals deletes key only when its current value matches. Used for
	// token-checked lock release; must be atomic with respect to other ops.
	DelIfEquals(ctx context.Context, key, value string) (bool, error)
}

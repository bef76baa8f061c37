package cache

import (
	"context"
	"errors"
	"time"
)

// ErrNotInitialised is returned by stores that were constructed without a backend.
var ErrNotInitialised = errors.New("cache: store not initialised")

// Store is the shared cache used for rate-limit counters and short-lived
// login state.
type Store interface {
	IncrementWithTTL(ctx context.Context, key string, window time.Duration) (int64, time.Duration, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Get(ctx context.Context, key string) ([]byte, bool, error)
	// Take returns the value and removes the key in one step.
	Take(ctx context.Context, key string) ([]byte, bool, error)
	Delete(ctx context.Context, keys ...string) error
}

func ensureContext(ctx context.Context) context.Context {
	if ctx == nil {
		return context.Background()
	}
	return ctx
}

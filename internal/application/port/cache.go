package port

import (
	"context"
	"time"
)

// Cache defines read-through caching operations.
// Get returns (nil, nil) on a miss so callers can fall through to the
// source of truth; any error is treated the same way (cache is advisory).
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
	DeletePrefix(ctx context.Context, prefix string) error
}

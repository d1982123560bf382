package session

import (
	"context"
	"time"
)

// Store is durable key-value persistence for serialized session records.
// Implementations must treat a missing key as (nil, nil), not an error,
// and must keep each call atomic; the manager layers expiry and
// self-healing on top.
type Store interface {
	// Put writes value under key with the given time-to-live.
	Put(ctx context.Context, key string, value []byte, ttl time.Duration) error
	// Get returns the stored value, or nil when the key is absent.
	Get(ctx context.Context, key string) ([]byte, error)
	// Delete removes the key. Deleting an absent key is not an error.
	Delete(ctx context.Context, key string) error
}

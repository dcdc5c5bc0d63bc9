package ports

import (
	"context"
	"time"
)

// Cache is the external keyed store sessions are persisted in.
// Every call is a single-key round trip; there is no cross-key atomicity.
type Cache interface {
	// Get returns the raw value for key.
	// Returns domain.ErrSessionNotFound if the key does not exist or has expired.
	Get(ctx context.Context, key string) ([]byte, error)

	// Set stores value under key. A ttl of zero means no expiration.
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error

	// Delete removes key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error

	// List returns the keys currently stored.
	List(ctx context.Context) ([]string, error)
}

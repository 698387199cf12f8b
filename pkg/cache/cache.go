// Package cache stores rendered gitlanes artifacts.
//
// A [Cache] is a byte store with per-entry expiry. Backends:
//   - [FileCache]: one file per entry under a directory, for the CLI
//   - [RedisCache]: shared cache for several server instances
//   - [MongoCache]: shared cache with a TTL index
//   - [NullCache]: disables caching
//
// Keys come from a [Keyer]. They hash the repository identity, the tips of
// every reference and the options that shaped the output, so a moved branch
// or a fetch produces new keys without explicit invalidation.
package cache

import (
	"context"
	"time"
)

// Time-to-live for each kind of entry.
const (
	// TTLGraph bounds how long a laid out commit grid is reused.
	TTLGraph = 10 * time.Minute
	// TTLArtifact bounds how long a rendered SVG/JSON/PNG/PDF is reused.
	TTLArtifact = time.Hour
	// TTLGeneration bounds how long an invalidation token lives.
	TTLGeneration = 24 * time.Hour
)

// Cache is a key/value byte store. Implementations must be safe for
// concurrent use.
type Cache interface {
	// Get returns the value for key. A missing or expired entry is a miss,
	// not an error.
	Get(ctx context.Context, key string) ([]byte, bool, error)
	// Set stores data under key. A ttl of zero means no expiry.
	Set(ctx context.Context, key string, data []byte, ttl time.Duration) error
	// Delete removes key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error
	// Close releases backend resources.
	Close() error
}

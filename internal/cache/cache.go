// Package cache stores computed repayment plans keyed by their inputs.
// Plans are deterministic, so a cached response is always valid for
// identical inputs; entries expire only to bound memory.
package cache

import (
	"context"
	"strconv"

	"github.com/cespare/xxhash/v2"
)

// Cache is a byte-value store with per-entry expiry.
type Cache interface {
	// Get returns the value for key. ok is false on a miss.
	Get(ctx context.Context, key string) (value []byte, ok bool, err error)
	// Set stores value under key.
	Set(ctx context.Context, key string, value []byte) error
	// Close releases the underlying connection, if any.
	Close() error
}

// Key derives a cache key from a canonical encoding of the plan inputs.
func Key(prefix string, canonical []byte) string {
	return prefix + ":" + strconv.FormatUint(xxhash.Sum64(canonical), 16)
}

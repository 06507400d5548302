// Package cache provides the response cache used in front of the compositing
// service. Preview generation is the expensive step in the editing loop, so
// identical requests (same templates, names, color, and positions) are served
// from here instead of re-rendering.
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"time"
)

// Cache is a byte-oriented cache with per-entry TTLs.
type Cache interface {
	// Get retrieves a value. The bool reports whether the key was present
	// and unexpired.
	Get(ctx context.Context, key string) ([]byte, bool, error)
	// Set stores a value. A non-positive ttl means the entry never expires.
	Set(ctx context.Context, key string, data []byte, ttl time.Duration) error
	// Delete removes a value; deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error
	Close() error
}

// Key builds a cache key by hashing the JSON encoding of parts under a
// prefix, e.g. "preview:3a7f…".
func Key(prefix string, parts ...interface{}) string {
	data, _ := json.Marshal(parts)
	hash := sha256.Sum256(data)
	return fmt.Sprintf("%s:%s", prefix, hex.EncodeToString(hash[:]))
}

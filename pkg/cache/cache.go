package cache

import "time"

// Cache is an in-process key-value cache.
type Cache interface {
	// Get returns (value, true) if key is present.
	Get(key string) (interface{}, bool)

	// Set stores value under key. A zero ttl never expires.
	// Writes are applied asynchronously; call Wait to observe them.
	Set(key string, value interface{}, ttl time.Duration) bool

	Delete(key string)

	// Wait blocks until pending writes have been applied.
	Wait()

	Clear()
	Close()
}

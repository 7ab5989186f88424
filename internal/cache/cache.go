// Package cache provides short-lived memoization for provider verdicts,
// so duplicate delivery of an article does not re-spend provider quota.
package cache

import "time"

// Cache is a byte-valued key/value cache with TTL
type Cache interface {
	Get(key string) ([]byte, bool)
	Set(key string, value []byte, ttl time.Duration) error
	Delete(key string) error
	Clear() error
}

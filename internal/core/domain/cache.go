package domain

import "time"

// Cache defaults.
const (
	// DefaultCacheTTL is the default entry lifetime.
	DefaultCacheTTL = 24 * time.Hour

	// DefaultCompressionThreshold is the serialised size above which
	// values pass through the compression hook.
	DefaultCompressionThreshold = 10 * 1024

	// DefaultCacheMaxBytes is the default total cache quota.
	DefaultCacheMaxBytes = 100 * 1024 * 1024
)

// CacheEntry is a generic expiring cache record. Data holds the
// serialised (possibly compressed) payload.
type CacheEntry struct {
	// Key identifies the entry within its partition.
	Key string `json:"key"`

	// Data is the serialised payload.
	Data []byte `json:"data"`

	// Timestamp is the insertion time, used for eviction ordering.
	Timestamp time.Time `json:"timestamp"`

	// Expires is when the entry stops being returned. Expired entries
	// are deleted lazily on read and by the background sweep.
	Expires time.Time `json:"expires"`

	// Size is the serialised byte length of Data.
	Size int `json:"size"`

	// Compressed marks Data as having passed through the compression
	// hook; reads must decompress before deserialising.
	Compressed bool `json:"compressed"`
}

// Expired reports whether the entry has passed its expiry at the given time.
func (e *CacheEntry) Expired(now time.Time) bool {
	return now.After(e.Expires)
}

// CacheStats summarises cache state across partitions.
type CacheStats struct {
	// Entries is the total entry count.
	Entries int

	// TotalBytes is the summed Size across all partitions.
	TotalBytes int64

	// Partitions maps partition name to its byte size.
	Partitions map[string]int64
}

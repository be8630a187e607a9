// Package cache provides the read-through/invalidate-on-write key-value
// layer in front of the item store. The cache is strictly best-effort: the
// system of record never depends on it, so every failure here degrades to a
// miss or a buffered write instead of an error for the caller.
package cache

import (
	"context"
	"time"
)

// SetResult reports where a write landed.
type SetResult int

const (
	// Committed means the value reached the remote backend.
	Committed SetResult = iota
	// Buffered means the backend was unreachable and the write sits in the
	// local fallback queue awaiting a drain.
	Buffered
)

func (r SetResult) String() string {
	if r == Buffered {
		return "buffered"
	}
	return "committed"
}

// Cache is the contract the orchestrator and audit logger consume.
type Cache interface {
	// Get returns the cached payload, or ok=false on miss, corrupt payload,
	// or any transport error. It never fails upward.
	Get(ctx context.Context, key string) ([]byte, bool)

	// Set writes a value with the given TTL, falling back to the local
	// buffer when the backend is unreachable.
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) SetResult

	// Delete evicts keys best-effort. Failures are logged, never returned.
	Delete(ctx context.Context, keys ...string)

	// Append pushes value to the front of a capped most-recent-first ring
	// at key, trimming it to max entries. Buffered on backend failure.
	Append(ctx context.Context, key string, value []byte, max int64) SetResult

	// DrainFallback flushes buffered writes to the backend in order,
	// stopping at the first failure. Returns the number flushed.
	DrainFallback(ctx context.Context) int
}

package sortable

import (
	"context"
	"time"
)

// Cache is the interface for a shared byte cache.
// Users should implement this interface with their preferred caching solution
// (e.g., Redis, Memcached, in-memory).
type Cache interface {
	// Get retrieves a value from the cache.
	// Returns nil, nil if the key doesn't exist.
	Get(ctx context.Context, key string) ([]byte, error)

	// Set stores a value in the cache with an optional TTL.
	// If ttl is 0, the value should not expire.
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error

	// Delete removes a value from the cache.
	Delete(ctx context.Context, key string) error

	// DeletePrefix removes all values with the given prefix.
	DeletePrefix(ctx context.Context, prefix string) error

	// Clear removes all values from the cache.
	Clear(ctx context.Context) error
}

// CacheKey names an entry of the identity cache in a shared Cache.
type CacheKey struct {
	Table string
	Kind  string // "row" or "version"
	Key   string
}

// String returns the string representation of the cache key.
func (k CacheKey) String() string {
	return k.Table + ":" + k.Kind + ":" + k.Key
}

// IdentityCache maps primary keys to record instances.
//
// Bulk shifts rewrite ranks without touching the in-memory instances of the
// shifted rows, so the ledger calls InvalidateScope after each of them. Entries
// cached before the invalidation must never be returned afterwards.
type IdentityCache[K comparable] interface {
	// Get returns the cached record for id, if present and current.
	Get(ctx context.Context, id K) (*Record[K], bool)
	// Put stores rec under its key, stamped with its scope's current version.
	Put(ctx context.Context, rec *Record[K])
	// Evict drops the entry of id.
	Evict(ctx context.Context, id K)
	// InvalidateScope makes every entry of scope stale.
	InvalidateScope(ctx context.Context, scope Scope) error
	// Clear drops every entry.
	Clear(ctx context.Context) error
}

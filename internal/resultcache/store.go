// Package resultcache stores settled daily series keyed by query signature.
package resultcache

import "context"

// Store is the storage-agnostic key-value contract backing the cache. An
// in-memory budgeted map or a remote cache both satisfy it; the cache layer
// owns entry semantics (TTL, versioning, scope).
//
// Set returns an error with errs.CodeCapacity when the write is rejected for
// lack of space. Implementations must never partially apply a write.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
	Keys(ctx context.Context) ([]string, error)
	Clear(ctx context.Context) error
}

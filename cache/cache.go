// Package cache is the key-value boundary the job store caches through.
//
// Entries live in namespaces. Each namespace also carries a generation token:
// an opaque string that changes on every BumpGeneration. Callers that fold the
// current token into their keys get whole-namespace invalidation without
// enumerating keys; entries under old tokens are simply never read again and
// fall out through the backing store's own eviction.
//
// Implementations may fail. Callers treat any error as a miss.
package cache

import "context"

// Cache is a namespaced byte cache with per-namespace generation tokens.
type Cache interface {
	Get(ctx context.Context, ns, key string) ([]byte, bool, error)
	Set(ctx context.Context, ns, key string, value []byte) error
	Delete(ctx context.Context, ns, key string) error

	// Generation returns the namespace's current token, creating one if needed.
	Generation(ctx context.Context, ns string) (string, error)
	// BumpGeneration atomically replaces the namespace's token and returns the new one.
	BumpGeneration(ctx context.Context, ns string) (string, error)
}

// Nop never stores anything. Every Get misses.
var Nop Cache = nopCache{}

type nopCache struct{}

func (nopCache) Get(context.Context, string, string) ([]byte, bool, error) { return nil, false, nil }
func (nopCache) Set(context.Context, string, string, []byte) error         { return nil }
func (nopCache) Delete(context.Context, string, string) error              { return nil }
func (nopCache) Generation(context.Context, string) (string, error)        { return "0", nil }
func (nopCache) BumpGeneration(context.Context, string) (string, error)    { return "0", nil }

package cache

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
	lru "github.com/hashicorp/golang-lru"

	"github.com/teranos/cronstore/errors"
)

// DefaultSize is the entry capacity used when NewLRU is given a non-positive size.
const DefaultSize = 4096

// LRU is an in-process Cache backed by a fixed-size LRU.
// Generation tokens are UUIDv7 strings, so successive tokens sort in bump order.
type LRU struct {
	entries *lru.Cache

	mu          sync.Mutex
	generations map[string]string

	hits   atomic.Int64
	misses atomic.Int64
}

// Stats reports cache effectiveness counters.
type Stats struct {
	Hits    int64
	Misses  int64
	Entries int
}

// NewLRU creates an LRU cache holding at most size entries.
func NewLRU(size int) (*LRU, error) {
	if size <= 0 {
		size = DefaultSize
	}
	entries, err := lru.New(size)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create lru cache")
	}
	return &LRU{
		entries:     entries,
		generations: make(map[string]string),
	}, nil
}

func entryKey(ns, key string) string {
	return ns + "\x00" + key
}

// Get returns a copy of the cached value.
func (c *LRU) Get(ctx context.Context, ns, key string) ([]byte, bool, error) {
	if err := ctx.Err(); err != nil {
		return nil, false, err
	}
	v, ok := c.entries.Get(entryKey(ns, key))
	if !ok {
		c.misses.Add(1)
		return nil, false, nil
	}
	c.hits.Add(1)
	stored := v.([]byte)
	out := make([]byte, len(stored))
	copy(out, stored)
	return out, true, nil
}

// Set stores a copy of value.
func (c *LRU) Set(ctx context.Context, ns, key string, value []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	stored := make([]byte, len(value))
	copy(stored, value)
	c.entries.Add(entryKey(ns, key), stored)
	return nil
}

// Delete removes a single entry. Deleting a missing key is not an error.
func (c *LRU) Delete(ctx context.Context, ns, key string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	c.entries.Remove(entryKey(ns, key))
	return nil
}

// Generation returns the namespace's token, minting one on first use.
func (c *LRU) Generation(ctx context.Context, ns string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	if token, ok := c.generations[ns]; ok {
		return token, nil
	}
	token, err := newToken()
	if err != nil {
		return "", err
	}
	c.generations[ns] = token
	return token, nil
}

// BumpGeneration replaces the namespace's token.
func (c *LRU) BumpGeneration(ctx context.Context, ns string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	token, err := newToken()
	if err != nil {
		return "", err
	}
	c.mu.Lock()
	c.generations[ns] = token
	c.mu.Unlock()
	return token, nil
}

// Stats returns hit/miss counters and the current entry count.
func (c *LRU) Stats() Stats {
	return Stats{
		Hits:    c.hits.Load(),
		Misses:  c.misses.Load(),
		Entries: c.entries.Len(),
	}
}

func newToken() (string, error) {
	id, err := uuid.NewV7()
	if err != nil {
		return "", errors.Wrap(err, "failed to mint generation token")
	}
	return id.String(), nil
}

// Package roi serves investment metrics through a short-lived read-through
// cache. Entries are never updated by writes; they expire, or a caller clears
// them or asks for a fresh read.
package roi

import (
	"context"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"golang.org/x/sync/singleflight"

	"labelsim/internal/game"
	"labelsim/internal/ledger"
)

const (
	DefaultTTL  = time.Minute
	DefaultSize = 4096
)

type Key struct {
	Entity   game.EntityType
	EntityID string
	GameID   string
}

func (k Key) String() string {
	return k.GameID + "/" + string(k.Entity) + "/" + k.EntityID
}

type Cache struct {
	reader ledger.Reader
	lru    *expirable.LRU[Key, ledger.Metrics]
	group  singleflight.Group
}

// New builds a cache over reader. Non-positive ttl or size take the defaults.
func New(reader ledger.Reader, ttl time.Duration, size int) *Cache {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	if size <= 0 {
		size = DefaultSize
	}
	return &Cache{
		reader: reader,
		lru:    expirable.NewLRU[Key, ledger.Metrics](size, nil, ttl),
	}
}

// Get returns cached metrics, loading them on a miss. Concurrent misses for
// the same key share one load.
func (c *Cache) Get(ctx context.Context, key Key) (ledger.Metrics, error) {
	if m, ok := c.lru.Get(key); ok {
		return m, nil
	}
	return c.load(ctx, key)
}

// Fresh skips the cached value, reloads it and stores the result.
func (c *Cache) Fresh(ctx context.Context, key Key) (ledger.Metrics, error) {
	c.lru.Remove(key)
	return c.load(ctx, key)
}

// load runs detached from the caller's cancellation: other callers may be
// waiting on the same shared load.
func (c *Cache) load(ctx context.Context, key Key) (ledger.Metrics, error) {
	loadCtx := context.WithoutCancel(ctx)
	v, err, _ := c.group.Do(key.String(), func() (any, error) {
		// A load that finished between our miss and this call already
		// filled the entry.
		if m, ok := c.lru.Get(key); ok {
			return m, nil
		}
		m, err := c.reader.Metrics(loadCtx, key.Entity, key.GameID, key.EntityID)
		if err != nil {
			return ledger.Metrics{}, err
		}
		c.lru.Add(key, m)
		return m, nil
	})
	if err != nil {
		return ledger.Metrics{}, err
	}
	return v.(ledger.Metrics), nil
}

func (c *Cache) Invalidate(key Key) {
	c.lru.Remove(key)
}

// Clear drops every entry.
func (c *Cache) Clear() {
	c.lru.Purge()
}

func (c *Cache) Len() int {
	return c.lru.Len()
}

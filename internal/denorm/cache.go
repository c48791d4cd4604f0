package denorm

import (
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/roach88/denorm/internal/ir"
)

// Slot is the memo record of one entity: the stored entity the result was
// built from and the result itself.
type Slot struct {
	Source       ir.IRValue
	Denormalized ir.IRValue
}

type slotKey struct {
	Partition string
	ID        string
}

func (k slotKey) String() string {
	return k.Partition + ":" + k.ID
}

// CacheStats is a point-in-time snapshot of cache counters.
type CacheStats struct {
	Hits        int64 `json:"hits"`
	Misses      int64 `json:"misses"`
	StaleResets int64 `json:"stale_resets"`
	Evictions   int64 `json:"evictions"`
	Slots       int   `json:"slots"`
}

// Cache holds memoized denormalization results across calls.
//
// Slots are keyed by (partition, id). A slot is valid for as long as the
// store holds the same source entity by identity; a different source resets
// it. Without a capacity the cache grows with the number of distinct
// entities seen. With a capacity the least recently used slots are evicted,
// which costs a rebuild and breaks reference reuse for the evicted entity.
//
// Thread-safety: all methods are safe for concurrent use. Slot reads and
// writes are individually atomic; a walk reads and writes many slots
// without holding the lock in between.
type Cache struct {
	id       string
	capacity int
	idGen    IDGenerator
	logger   *slog.Logger

	mu      sync.Mutex
	slots   map[slotKey]Slot
	bounded *lru.Cache[slotKey, Slot]

	hits        atomic.Int64
	misses      atomic.Int64
	staleResets atomic.Int64
	evictions   atomic.Int64
}

// CacheOption configures NewCache.
type CacheOption func(*Cache)

// WithCapacity bounds the cache to n slots with least-recently-used
// eviction. n <= 0 means unbounded (the default).
func WithCapacity(n int) CacheOption {
	return func(c *Cache) {
		c.capacity = n
	}
}

// WithCacheLogger sets the logger for slot resets and evictions.
func WithCacheLogger(logger *slog.Logger) CacheOption {
	return func(c *Cache) {
		c.logger = logger
	}
}

// WithIDGenerator sets the generator for the cache's identifier.
func WithIDGenerator(gen IDGenerator) CacheOption {
	return func(c *Cache) {
		c.idGen = gen
	}
}

// NewCache creates an empty cache.
func NewCache(opts ...CacheOption) *Cache {
	c := &Cache{
		idGen:  UUIDv7Generator{},
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.id = c.idGen.Generate()
	c.reset()
	return c
}

// DefaultCache is the process-wide cache used by Denormalize when memoized
// mode is requested without an explicit cache.
var DefaultCache = NewCache()

// reset drops every slot. Caller must hold mu or own c exclusively.
func (c *Cache) reset() {
	if c.capacity <= 0 {
		c.slots = make(map[slotKey]Slot)
		c.bounded = nil
		return
	}
	bounded, err := lru.NewWithEvict[slotKey, Slot](c.capacity, c.onEvict)
	if err != nil {
		// NewWithEvict only fails for a non-positive size.
		panic(fmt.Sprintf("denorm: lru cache: %v", err))
	}
	c.slots = nil
	c.bounded = bounded
}

func (c *Cache) onEvict(key slotKey, _ Slot) {
	c.evictions.Add(1)
	c.logger.Debug("cache slot evicted", "cache_id", c.id, "slot", key.String())
}

// ID returns the cache's identifier.
func (c *Cache) ID() string {
	return c.id
}

// Capacity returns the slot bound, or 0 when unbounded.
func (c *Cache) Capacity() int {
	if c.capacity <= 0 {
		return 0
	}
	return c.capacity
}

// Len returns the number of slots currently held.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.bounded != nil {
		return c.bounded.Len()
	}
	return len(c.slots)
}

// Lookup returns the slot for the entity id in partition.
func (c *Cache) Lookup(partition, id string) (Slot, bool) {
	return c.load(slotKey{Partition: partition, ID: id})
}

// Invalidate drops the slot for the entity id in partition. The next walk
// that reaches the entity rebuilds it and every ancestor that embeds it.
func (c *Cache) Invalidate(partition, id string) {
	key := slotKey{Partition: partition, ID: id}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.bounded != nil {
		c.bounded.Remove(key)
		return
	}
	delete(c.slots, key)
}

// Reset drops every slot and zeroes the counters.
func (c *Cache) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.reset()
	c.hits.Store(0)
	c.misses.Store(0)
	c.staleResets.Store(0)
	c.evictions.Store(0)
}

// Stats returns a snapshot of the cache counters.
func (c *Cache) Stats() CacheStats {
	return CacheStats{
		Hits:        c.hits.Load(),
		Misses:      c.misses.Load(),
		StaleResets: c.staleResets.Load(),
		Evictions:   c.evictions.Load(),
		Slots:       c.Len(),
	}
}

func (c *Cache) load(key slotKey) (Slot, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.bounded != nil {
		return c.bounded.Get(key)
	}
	s, ok := c.slots[key]
	return s, ok
}

func (c *Cache) store(key slotKey, s Slot) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.bounded != nil {
		c.bounded.Add(key, s)
		return
	}
	c.slots[key] = s
}

// acquire returns the slot for key valid for source: the cached slot when
// its source is source, otherwise a fresh slot whose result is source.
func (c *Cache) acquire(key slotKey, source ir.IRValue) Slot {
	s, ok := c.load(key)
	switch {
	case !ok:
		c.misses.Add(1)
	case !ir.Same(s.Source, source):
		c.staleResets.Add(1)
		c.logger.Debug("cache slot stale", "cache_id", c.id, "slot", key.String())
	default:
		c.hits.Add(1)
		return s
	}
	s = Slot{Source: source, Denormalized: source}
	c.store(key, s)
	return s
}

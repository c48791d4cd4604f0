package denorm

import (
	"bytes"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/denorm/internal/ir"
	"github.com/roach88/denorm/internal/schema"
	"github.com/roach88/denorm/internal/testutil"
)

func TestNewCache_Defaults(t *testing.T) {
	c := NewCache()

	assert.Len(t, c.ID(), 36)
	assert.Equal(t, 0, c.Capacity())
	assert.Equal(t, 0, c.Len())
	assert.Equal(t, CacheStats{}, c.Stats())
}

func TestNewCache_FixedID(t *testing.T) {
	c := NewCache(WithIDGenerator(testutil.NewFixedIDGenerator("cache-a")))
	assert.Equal(t, "cache-a", c.ID())
}

func TestCache_StatsCountHitsAndMisses(t *testing.T) {
	lib := testutil.NewLibrary()
	cache := NewCache()
	store := testutil.LibraryStore()

	memoized(t, cache, ir.IRInt(1), store, lib.Book)
	stats := cache.Stats()
	// book 1, author 1, book 2, review 1, review 2
	assert.Equal(t, int64(5), stats.Misses)
	// book 1 and author 1 met again while in progress
	assert.Equal(t, int64(2), stats.Hits)
	assert.Equal(t, 5, stats.Slots)

	memoized(t, cache, ir.IRInt(1), store, lib.Book)
	stats = cache.Stats()
	assert.Equal(t, int64(5), stats.Misses)
	assert.Equal(t, int64(9), stats.Hits)
	assert.Equal(t, int64(0), stats.StaleResets)
}

func TestCache_StaleReset(t *testing.T) {
	lib := testutil.NewLibrary()
	cache := NewCache()
	store1 := acyclicStore()

	memoized(t, cache, ir.IRInt(1), store1, lib.Book)
	author := testutil.With(entityAt(t, store1, "authors", "1"), "name", ir.IRString("X"))
	store2 := testutil.Replace(store1, "authors", "1", author)
	memoized(t, cache, ir.IRInt(1), store2, lib.Book)

	assert.Equal(t, int64(1), cache.Stats().StaleResets)

	slot, ok := cache.Lookup("authors", "1")
	require.True(t, ok)
	assert.True(t, ir.Same(author, slot.Source))
}

func TestCache_Lookup(t *testing.T) {
	lib := testutil.NewLibrary()
	cache := NewCache()
	store := acyclicStore()

	got := memoized(t, cache, ir.IRInt(1), store, lib.Book)

	slot, ok := cache.Lookup("books", "1")
	require.True(t, ok)
	assert.True(t, ir.Same(entityAt(t, store, "books", "1"), slot.Source))
	assert.True(t, ir.Same(got, slot.Denormalized))

	_, ok = cache.Lookup("books", "2")
	assert.False(t, ok)
}

func TestCache_Capacity(t *testing.T) {
	lib := testutil.NewLibrary()
	cache := NewCache(WithCapacity(1))
	store := testutil.LibraryStore()
	ids := ir.IRArray{ir.IRInt(1), ir.IRInt(2)}

	r1 := memoized(t, cache, ids, store, schema.ArrayOf(lib.Review))
	r2 := memoized(t, cache, ids, store, schema.ArrayOf(lib.Review))

	assert.Equal(t, 1, cache.Capacity())
	assert.Equal(t, 1, cache.Len())
	stats := cache.Stats()
	assert.Equal(t, int64(4), stats.Misses)
	assert.Equal(t, int64(3), stats.Evictions)

	// evicted entities are rebuilt, with equal content
	assert.True(t, ir.Equal(r1, r2))
}

func TestCache_Invalidate(t *testing.T) {
	lib := testutil.NewLibrary()
	cache := NewCache()
	store := acyclicStore()

	d1 := memoized(t, cache, ir.IRInt(1), store, lib.Book)
	cache.Invalidate("books", "1")
	d2 := memoized(t, cache, ir.IRInt(1), store, lib.Book)

	assert.False(t, ir.Same(d1, d2))
	assert.True(t, ir.Equal(d1, d2))
	// the author slot survived
	assert.True(t, ir.Same(at(t, d1, "author"), at(t, d2, "author")))
}

func TestCache_InvalidateBounded(t *testing.T) {
	lib := testutil.NewLibrary()
	cache := NewCache(WithCapacity(8))

	memoized(t, cache, ir.IRInt(1), acyclicStore(), lib.Review)
	require.Equal(t, 1, cache.Len())

	cache.Invalidate("reviews", "1")
	assert.Equal(t, 0, cache.Len())
}

func TestCache_Reset(t *testing.T) {
	lib := testutil.NewLibrary()
	for _, capacity := range []int{0, 4} {
		cache := NewCache(WithCapacity(capacity))
		memoized(t, cache, ir.IRInt(1), acyclicStore(), lib.Book)
		require.NotZero(t, cache.Len())

		cache.Reset()

		assert.Equal(t, 0, cache.Len())
		assert.Equal(t, CacheStats{}, cache.Stats())
	}
}

func TestCache_LogsStaleSlots(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	lib := testutil.NewLibrary()
	cache := NewCache(
		WithCacheLogger(logger),
		WithIDGenerator(testutil.NewFixedIDGenerator("cache-log")),
	)
	store1 := acyclicStore()

	memoized(t, cache, ir.IRInt(1), store1, lib.Review)
	review := testutil.With(entityAt(t, store1, "reviews", "1"), "content", ir.IRString("new"))
	memoized(t, cache, ir.IRInt(1), testutil.Replace(store1, "reviews", "1", review), lib.Review)

	assert.Contains(t, buf.String(), "cache slot stale")
	assert.Contains(t, buf.String(), "cache_id=cache-log")
	assert.Contains(t, buf.String(), "slot=reviews:1")
}

package denorm

import (
	"log/slog"

	"github.com/roach88/denorm/internal/ir"
	"github.com/roach88/denorm/internal/schema"
)

// Options configures a single Denormalize call.
type Options struct {
	// Memoized selects the reference-preserving walker.
	Memoized bool

	// Cache holds memo slots for memoized calls. Nil means DefaultCache.
	// Ignored when Memoized is false.
	Cache *Cache

	// Logger receives debug events. Nil means slog.Default().
	Logger *slog.Logger
}

// Denormalize rebuilds the nested value described by n from value and the
// entity store.
//
// value is usually an id, a sequence of ids, or a composite holding ids, as
// produced by normalization. store maps partition -> id -> entity. Neither is
// modified. Values whose schema is absent pass through unchanged.
//
// The result is built from the same container family as the value it
// replaces: persistent inputs yield persistent outputs.
func Denormalize(value, store ir.IRValue, n schema.Node, opts Options) (ir.IRValue, error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	if !opts.Memoized {
		return newPlainWalker(store, logger).walk(value, n)
	}

	cache := opts.Cache
	if cache == nil {
		cache = DefaultCache
	}
	logger = logger.With("cache_id", cache.ID())
	return newMemoWalker(store, cache, logger).walk(value, nil, n)
}

// Denormalizer binds a mode, cache and logger for repeated calls.
//
// Thread-safety: a Denormalizer is safe for concurrent use when its cache is.
type Denormalizer struct {
	memoized bool
	cache    *Cache
	logger   *slog.Logger
}

// Option configures a Denormalizer.
type Option func(*Denormalizer)

// WithMemoization enables or disables the memoized walker.
func WithMemoization(enabled bool) Option {
	return func(d *Denormalizer) {
		d.memoized = enabled
	}
}

// WithCache sets the cache for memoized calls and enables memoization.
func WithCache(c *Cache) Option {
	return func(d *Denormalizer) {
		d.cache = c
		d.memoized = true
	}
}

// WithLogger sets the logger for debug events.
func WithLogger(logger *slog.Logger) Option {
	return func(d *Denormalizer) {
		d.logger = logger
	}
}

// New creates a Denormalizer. By default it is not memoized; a memoized
// Denormalizer without WithCache gets a private cache rather than
// DefaultCache.
func New(opts ...Option) *Denormalizer {
	d := &Denormalizer{
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(d)
	}
	if d.memoized && d.cache == nil {
		d.cache = NewCache(WithCacheLogger(d.logger))
	}
	return d
}

// Memoized reports whether the Denormalizer uses the memoized walker.
func (d *Denormalizer) Memoized() bool {
	return d.memoized
}

// Cache returns the memo cache, nil when not memoized.
func (d *Denormalizer) Cache() *Cache {
	return d.cache
}

// Denormalize is the package-level Denormalize with the bound options.
func (d *Denormalizer) Denormalize(value, store ir.IRValue, n schema.Node) (ir.IRValue, error) {
	return Denormalize(value, store, n, Options{
		Memoized: d.memoized,
		Cache:    d.cache,
		Logger:   d.logger,
	})
}

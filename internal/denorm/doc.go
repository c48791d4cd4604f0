// Package denorm rebuilds nested object graphs from a flat entity store.
//
// The entity store is an ir value shaped partition -> id -> entity (plain or
// persistent containers). A schema.Node describes the shape of the value to
// rebuild. Denormalize walks both in lockstep and replaces every entity
// reference with the canonical stored entity.
//
// TWO WALKERS:
//
// Plain (default): a one-shot rebuild. Each entity is copied once per call
// into an arena keyed by (partition, id). The copy is placed in the arena
// BEFORE its fields are expanded, so a circular reference finds the copy
// instead of recursing forever. Cyclic schemas therefore produce cyclic
// output graphs.
//
// Memoized: an incremental rebuild backed by a Cache. Every entity has a
// slot holding the stored entity it was built from (the source) and the
// result. When the store still holds the same source (by identity, see
// ir.Same), the previous result is reused and only fields whose rebuilt
// value changed identity are replaced, through a shallow copy. Unchanged
// branches keep their references across calls; every ancestor of a changed
// entity gets a new object.
//
// LIMITATION: the memoized walker breaks cycles by returning the bare id of
// an entity that is already being rebuilt higher up the same call. The plain
// walker resolves the same cycle to the shared object instead. Because the
// cycle is cut where the walk entered it, cached results of cyclic entities
// are relative to that entry point: repeated walks from the same root reuse
// them, walks entering the cycle from different entities rebuild them.
//
// ERRORS:
//
//   - *SchemaMismatchError: a union value has no usable discriminator (fatal)
//   - *access.TypeError: a collection schema met a non-sequence value (fatal)
//   - missing entities are soft: the reference becomes IRNull
//
// CONCURRENCY:
//
// A walk is synchronous and never blocks. The in-progress set and the plain
// arena are per call. Cache slots are shared and replaced atomically, so one
// Cache may serve concurrent callers; interleaved calls over the same
// entities may each rebuild a slot, and the last write wins.
package denorm

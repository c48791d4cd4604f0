// Package store persists entity stores in SQLite.
//
// An entity store is the partition -> id -> entity value the denormalizer
// reads. The snapshot store keeps one row per entity:
//
//	entities(partition, id, body, hash, seq)
//
// # Patterns
//
// Content hashing:
//   - hash = ir.EntityHash(partition, id, body)
//   - writes with an unchanged hash are skipped, so seq only moves on change
//
// Logical time:
//   - seq comes from a monotonic Clock, never from wall time
//   - Since(seq) lists rows changed after a known point
//
// Deterministic reads:
//   - every query orders by partition, id COLLATE BINARY
//
// Identity across loads:
//   - Load returns the same entity value as the previous Load for every row
//     whose hash did not change, so a memoized denormalizer fed successive
//     loads only rebuilds what actually changed
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//   - foreign_keys=ON: Enforce referential integrity
package store

// Package schema describes the shape the denormalizer walks.
//
// A schema is a graph of Node values with four variants:
//
//   - *Entity: a record stored in the entity store under Key, identified by
//     the field named IDAttribute, whose Fields map to further nodes
//   - *Collection: an ordered sequence of items sharing one Item schema
//   - *Union: a tagged choice between item schemas, selected by the value's
//     SchemaAttribute field
//   - Composite: a plain field map for shapes that are not entities
//
// Entity graphs are usually cyclic (authors have books, books have an
// author), so entities are created first and wired with Define afterwards.
//
// Fields whose names start with an underscore are private and never
// traversed.
//
// Schemas can also be declared in YAML, JSON or CUE documents; see Parse,
// ParseCUE and LoadFile.
package schema

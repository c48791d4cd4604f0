package denorm

import (
	"github.com/roach88/denorm/internal/access"
	"github.com/roach88/denorm/internal/ir"
	"github.com/roach88/denorm/internal/schema"
)

// Reference is an entity reference resolved against the store.
type Reference struct {
	// Key is the store partition.
	Key string

	// ID is the id as it appeared in the value (the scalar itself, or the
	// value of the entity's id attribute).
	ID ir.IRValue

	// Entity is the stored entity, nil when not Found.
	Entity ir.IRValue

	// Found reports whether the store holds a non-null entity for the id.
	Found bool
}

// slot returns the (partition, id) key for the reference.
// ok is false when the id is not a string or integer.
func (r Reference) slot() (slotKey, bool) {
	id, ok := ir.KeyString(r.ID)
	if !ok {
		return slotKey{}, false
	}
	return slotKey{Partition: r.Key, ID: id}, true
}

// Resolve turns an id or a (possibly partial) entity into the canonical
// stored entity. When entityOrID is structured its id is read from the
// schema's id attribute; otherwise it is the id. The stored copy always
// wins over data embedded in entityOrID.
func Resolve(entityOrID, store ir.IRValue, e *schema.Entity) Reference {
	ref := Reference{Key: e.Key, ID: entityOrID}
	if access.IsStructured(entityOrID) {
		ref.ID, _ = access.Get(entityOrID, e.IDAttribute)
	}

	id, ok := ir.KeyString(ref.ID)
	if !ok {
		return ref
	}
	entity, ok := access.GetIn(store, e.Key, id)
	if !ok || ir.IsAbsent(entity) {
		return ref
	}
	ref.Entity = entity
	ref.Found = true
	return ref
}

package access

import (
	"fmt"
	"strconv"

	"github.com/roach88/denorm/internal/ir"
)

// Accessor is the capability set the denormalizer needs from a container family.
type Accessor interface {
	// IsContainer reports whether v belongs to this accessor's family.
	IsContainer(v ir.IRValue) bool

	// Get reads field from a map-like container. Absent fields report false.
	Get(container ir.IRValue, field string) (ir.IRValue, bool)

	// Set writes field and returns the resulting container. Plain containers
	// are mutated and returned; persistent containers are never mutated.
	Set(container ir.IRValue, field string, v ir.IRValue) ir.IRValue

	// Copy returns a container that may be passed to Set without affecting
	// container's other holders.
	Copy(container ir.IRValue) ir.IRValue

	// Fields lists the keys of a map-like container in canonical order.
	Fields(container ir.IRValue) []string

	// Items returns the elements of a sequence container.
	Items(container ir.IRValue) ([]ir.IRValue, error)

	// MakeSeq builds a sequence of this family holding items.
	MakeSeq(items []ir.IRValue) ir.IRValue
}

// TypeError reports a value that is not the container kind an operation expects.
type TypeError struct {
	Op    string
	Want  string
	Value ir.IRValue
}

func (e *TypeError) Error() string {
	return fmt.Sprintf("%s: expected %s, got %T", e.Op, e.Want, e.Value)
}

var (
	plainAccessor      Accessor = Plain{}
	persistentAccessor Accessor = Persistent{}
)

// For selects the accessor for v's container family.
// Scalars and absent values get the plain accessor.
func For(v ir.IRValue) Accessor {
	switch v.(type) {
	case *ir.IRMap, *ir.IRList:
		return persistentAccessor
	default:
		return plainAccessor
	}
}

// IsStructured reports whether v is a map-like container of either family.
func IsStructured(v ir.IRValue) bool {
	switch v.(type) {
	case ir.IRObject, *ir.IRMap:
		return true
	}
	return false
}

// IsSequence reports whether v is a sequence container of either family.
func IsSequence(v ir.IRValue) bool {
	switch v.(type) {
	case ir.IRArray, *ir.IRList:
		return true
	}
	return false
}

// Get reads field from v using v's own accessor.
func Get(v ir.IRValue, field string) (ir.IRValue, bool) {
	return For(v).Get(v, field)
}

// GetIn walks path through nested map-like containers, selecting the
// accessor per level. Sequence levels accept decimal indexes.
// Returns false as soon as a level is missing or not a container.
func GetIn(v ir.IRValue, path ...string) (ir.IRValue, bool) {
	cur := v
	for _, seg := range path {
		switch {
		case IsStructured(cur):
			next, ok := For(cur).Get(cur, seg)
			if !ok {
				return nil, false
			}
			cur = next
		case IsSequence(cur):
			idx, err := strconv.Atoi(seg)
			if err != nil {
				return nil, false
			}
			items, _ := For(cur).Items(cur)
			if idx < 0 || idx >= len(items) {
				return nil, false
			}
			cur = items[idx]
		default:
			return nil, false
		}
	}
	return cur, true
}

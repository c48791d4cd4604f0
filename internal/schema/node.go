package schema

import (
	"slices"
	"strings"
)

// DefaultIDAttribute is the id field used when an entity does not name one.
const DefaultIDAttribute = "id"

// DefaultSchemaAttribute is the union discriminator field used when a union
// does not name one.
const DefaultSchemaAttribute = "schema"

// Node is a sealed interface over the four schema variants.
type Node interface {
	schemaNode() // Sealed - only Entity, Collection, Union and Composite implement it
}

// Kind classifies a Node.
type Kind int

const (
	// KindNone means "no further denormalization": the value passes through.
	KindNone Kind = iota
	KindEntity
	KindCollection
	KindUnion
	KindComposite
)

func (k Kind) String() string {
	switch k {
	case KindEntity:
		return "entity"
	case KindCollection:
		return "collection"
	case KindUnion:
		return "union"
	case KindComposite:
		return "composite"
	default:
		return "none"
	}
}

// Classify returns the variant of n. A nil node, a nil pointer variant or an
// empty composite classify as KindNone.
func Classify(n Node) Kind {
	switch val := n.(type) {
	case *Entity:
		if val == nil {
			return KindNone
		}
		return KindEntity
	case *Collection:
		if val == nil {
			return KindNone
		}
		return KindCollection
	case *Union:
		if val == nil {
			return KindNone
		}
		return KindUnion
	case Composite:
		if len(val) == 0 {
			return KindNone
		}
		return KindComposite
	}
	return KindNone
}

// Entity describes records stored in partition Key of the entity store.
type Entity struct {
	Key         string
	IDAttribute string
	Fields      Composite
}

func (*Entity) schemaNode() {}

// EntityOption configures NewEntity.
type EntityOption func(*Entity)

// WithIDAttribute overrides the id field name (default "id").
func WithIDAttribute(attr string) EntityOption {
	return func(e *Entity) {
		e.IDAttribute = attr
	}
}

// NewEntity creates an entity schema for partition key with no fields.
func NewEntity(key string, opts ...EntityOption) *Entity {
	e := &Entity{
		Key:         key,
		IDAttribute: DefaultIDAttribute,
		Fields:      Composite{},
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Define adds field schemas to the entity and returns it.
// Later definitions of the same field replace earlier ones.
func (e *Entity) Define(fields Composite) *Entity {
	if e.Fields == nil {
		e.Fields = make(Composite, len(fields))
	}
	for name, n := range fields {
		e.Fields[name] = n
	}
	return e
}

// FieldNames returns the entity's traversable field names.
func (e *Entity) FieldNames() []string {
	return e.Fields.FieldNames()
}

// Collection wraps a sequence of items sharing Item's schema.
type Collection struct {
	Item Node
}

func (*Collection) schemaNode() {}

// ArrayOf creates a collection schema.
func ArrayOf(item Node) *Collection {
	return &Collection{Item: item}
}

// Union selects one of Items by the tag stored in the value's SchemaAttribute field.
type Union struct {
	Items           map[string]Node
	SchemaAttribute string
}

func (*Union) schemaNode() {}

// UnionOption configures UnionOf.
type UnionOption func(*Union)

// WithSchemaAttribute overrides the discriminator field name (default "schema").
func WithSchemaAttribute(attr string) UnionOption {
	return func(u *Union) {
		u.SchemaAttribute = attr
	}
}

// UnionOf creates a union schema over tagged item schemas.
func UnionOf(items map[string]Node, opts ...UnionOption) *Union {
	u := &Union{
		Items:           items,
		SchemaAttribute: DefaultSchemaAttribute,
	}
	for _, opt := range opts {
		opt(u)
	}
	return u
}

// Item returns the schema registered under tag.
func (u *Union) Item(tag string) (Node, bool) {
	n, ok := u.Items[tag]
	return n, ok
}

// Tags returns the union's tags in sorted order.
func (u *Union) Tags() []string {
	tags := make([]string, 0, len(u.Items))
	for tag := range u.Items {
		tags = append(tags, tag)
	}
	slices.Sort(tags)
	return tags
}

// Composite maps field names to schemas for non-entity shapes.
type Composite map[string]Node

func (Composite) schemaNode() {}

// FieldNames returns the non-private field names in sorted order.
func (c Composite) FieldNames() []string {
	names := make([]string, 0, len(c))
	for name := range c {
		if IsPrivate(name) {
			continue
		}
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// IsPrivate reports whether a field name is excluded from traversal.
func IsPrivate(name string) bool {
	return strings.HasPrefix(name, "_")
}

package denorm

import (
	"github.com/roach88/denorm/internal/access"
	"github.com/roach88/denorm/internal/ir"
	"github.com/roach88/denorm/internal/schema"
)

// unionItem selects the item schema named by value's discriminator.
func unionItem(value ir.IRValue, u *schema.Union) (schema.Node, error) {
	attr := u.SchemaAttribute
	if attr == "" {
		attr = schema.DefaultSchemaAttribute
	}

	var tag ir.IRValue
	if access.IsStructured(value) {
		tag, _ = access.Get(value, attr)
	}
	name, ok := tag.(ir.IRString)
	if !ok {
		return nil, newMissingDiscriminatorError(attr, u.Tags())
	}
	item, ok := u.Item(string(name))
	if !ok {
		return nil, newUnknownTagError(attr, string(name), u.Tags())
	}
	return item, nil
}

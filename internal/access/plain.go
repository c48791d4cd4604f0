package access

import (
	"maps"

	"github.com/roach88/denorm/internal/ir"
)

// Plain is the accessor for IRObject and IRArray.
type Plain struct{}

func (Plain) IsContainer(v ir.IRValue) bool {
	switch v.(type) {
	case ir.IRObject, ir.IRArray:
		return true
	}
	return false
}

func (Plain) Get(container ir.IRValue, field string) (ir.IRValue, bool) {
	obj, ok := container.(ir.IRObject)
	if !ok {
		return nil, false
	}
	v, ok := obj[field]
	return v, ok
}

// Set mutates container in place. A nil IRObject is replaced by a new one.
// Non-object containers panic with a *TypeError.
func (Plain) Set(container ir.IRValue, field string, v ir.IRValue) ir.IRValue {
	obj, ok := container.(ir.IRObject)
	if !ok {
		panic(&TypeError{Op: "access.Plain.Set", Want: "IRObject", Value: container})
	}
	if obj == nil {
		obj = make(ir.IRObject, 1)
	}
	obj[field] = v
	return obj
}

func (Plain) Copy(container ir.IRValue) ir.IRValue {
	switch val := container.(type) {
	case ir.IRObject:
		if val == nil {
			return ir.IRObject{}
		}
		return maps.Clone(val)
	case ir.IRArray:
		out := make(ir.IRArray, len(val))
		copy(out, val)
		return out
	}
	return container
}

func (Plain) Fields(container ir.IRValue) []string {
	obj, ok := container.(ir.IRObject)
	if !ok {
		return nil
	}
	return obj.SortedKeys()
}

func (Plain) Items(container ir.IRValue) ([]ir.IRValue, error) {
	arr, ok := container.(ir.IRArray)
	if !ok {
		return nil, &TypeError{Op: "access.Plain.Items", Want: "IRArray", Value: container}
	}
	return arr, nil
}

func (Plain) MakeSeq(items []ir.IRValue) ir.IRValue {
	return ir.IRArray(items)
}

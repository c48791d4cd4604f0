package access

import (
	"github.com/roach88/denorm/internal/ir"
)

// Persistent is the accessor for *IRMap and *IRList. It never mutates.
type Persistent struct{}

func (Persistent) IsContainer(v ir.IRValue) bool {
	switch v.(type) {
	case *ir.IRMap, *ir.IRList:
		return true
	}
	return false
}

func (Persistent) Get(container ir.IRValue, field string) (ir.IRValue, bool) {
	m, ok := container.(*ir.IRMap)
	if !ok {
		return nil, false
	}
	return m.Get(field)
}

// Set returns a new *IRMap. Non-map containers panic with a *TypeError.
func (Persistent) Set(container ir.IRValue, field string, v ir.IRValue) ir.IRValue {
	m, ok := container.(*ir.IRMap)
	if !ok {
		panic(&TypeError{Op: "access.Persistent.Set", Want: "*IRMap", Value: container})
	}
	return m.Set(field, v)
}

// Copy returns container itself; persistent values cannot be affected by Set.
func (Persistent) Copy(container ir.IRValue) ir.IRValue {
	return container
}

func (Persistent) Fields(container ir.IRValue) []string {
	m, ok := container.(*ir.IRMap)
	if !ok {
		return nil
	}
	return m.Keys()
}

func (Persistent) Items(container ir.IRValue) ([]ir.IRValue, error) {
	l, ok := container.(*ir.IRList)
	if !ok {
		return nil, &TypeError{Op: "access.Persistent.Items", Want: "*IRList", Value: container}
	}
	return l.Slice(), nil
}

func (Persistent) MakeSeq(items []ir.IRValue) ir.IRValue {
	return ir.NewIRList(items...)
}

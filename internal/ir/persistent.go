package ir

import (
	"slices"

	"github.com/benbjohnson/immutable"
)

// IRMap is a persistent (immutable) string-keyed map.
//
// Set and Delete never modify the receiver; they return a new *IRMap that
// shares structure with the old one. Identity is the pointer: two *IRMap
// values are the same value only if they are the same pointer.
//
// The zero value and a nil *IRMap both behave as an empty map.
type IRMap struct {
	m *immutable.Map[string, IRValue]
}

func (*IRMap) irValue() {}

// NewIRMap creates a persistent map from key-value pairs.
func NewIRMap(pairs ...IRPair) *IRMap {
	m := immutable.NewMap[string, IRValue](nil)
	for _, p := range pairs {
		m = m.Set(p.Key, p.Value)
	}
	return &IRMap{m: m}
}

// NewIRMapFromObject creates a persistent map holding the same (shallow) entries as obj.
func NewIRMapFromObject(obj IRObject) *IRMap {
	m := immutable.NewMap[string, IRValue](nil)
	for _, k := range obj.SortedKeys() {
		m = m.Set(k, obj[k])
	}
	return &IRMap{m: m}
}

func (pm *IRMap) inner() *immutable.Map[string, IRValue] {
	if pm == nil || pm.m == nil {
		return immutable.NewMap[string, IRValue](nil)
	}
	return pm.m
}

// Len returns the number of entries.
func (pm *IRMap) Len() int {
	if pm == nil || pm.m == nil {
		return 0
	}
	return pm.m.Len()
}

// Get returns the value stored under key.
func (pm *IRMap) Get(key string) (IRValue, bool) {
	if pm == nil || pm.m == nil {
		return nil, false
	}
	return pm.m.Get(key)
}

// Set returns a new map with key bound to value.
func (pm *IRMap) Set(key string, value IRValue) *IRMap {
	return &IRMap{m: pm.inner().Set(key, value)}
}

// Delete returns a new map without key.
func (pm *IRMap) Delete(key string) *IRMap {
	return &IRMap{m: pm.inner().Delete(key)}
}

// Keys returns the keys in RFC 8785 order.
func (pm *IRMap) Keys() []string {
	keys := make([]string, 0, pm.Len())
	if pm.Len() == 0 {
		return keys
	}
	itr := pm.m.Iterator()
	for !itr.Done() {
		k, _, ok := itr.Next()
		if !ok {
			break
		}
		keys = append(keys, k)
	}
	slices.SortFunc(keys, compareKeysRFC8785)
	return keys
}

// ToObject returns a shallow plain copy of the map.
func (pm *IRMap) ToObject() IRObject {
	obj := make(IRObject, pm.Len())
	for _, k := range pm.Keys() {
		v, _ := pm.Get(k)
		obj[k] = v
	}
	return obj
}

// IRList is a persistent (immutable) list.
//
// Set and Append return a new *IRList; the receiver is never modified.
// A nil *IRList behaves as an empty list.
type IRList struct {
	l *immutable.List[IRValue]
}

func (*IRList) irValue() {}

// NewIRList creates a persistent list holding vals in order.
func NewIRList(vals ...IRValue) *IRList {
	return &IRList{l: immutable.NewList[IRValue](vals...)}
}

func (pl *IRList) inner() *immutable.List[IRValue] {
	if pl == nil || pl.l == nil {
		return immutable.NewList[IRValue]()
	}
	return pl.l
}

// Len returns the number of elements.
func (pl *IRList) Len() int {
	if pl == nil || pl.l == nil {
		return 0
	}
	return pl.l.Len()
}

// Get returns the element at index i. Panics if i is out of range.
func (pl *IRList) Get(i int) IRValue {
	return pl.inner().Get(i)
}

// Set returns a new list with index i replaced.
func (pl *IRList) Set(i int, v IRValue) *IRList {
	return &IRList{l: pl.inner().Set(i, v)}
}

// Append returns a new list with v appended.
func (pl *IRList) Append(v IRValue) *IRList {
	return &IRList{l: pl.inner().Append(v)}
}

// Slice returns the elements as a new plain IRArray.
func (pl *IRList) Slice() IRArray {
	out := make(IRArray, pl.Len())
	for i := range out {
		out[i] = pl.Get(i)
	}
	return out
}

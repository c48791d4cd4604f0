package ir

import (
	"reflect"
	"strconv"
)

// Same reports whether a and b are the same value by identity.
//
// Scalars compare by value. Containers compare by reference:
//   - IRObject: same underlying map
//   - IRArray: same backing array and same length (all empty arrays are the same)
//   - *IRMap, *IRList: same pointer
//
// Same never inspects container contents. It is the staleness test used by
// the memoized denormalizer and the check behind structural sharing.
func Same(a, b IRValue) bool {
	switch av := a.(type) {
	case nil:
		return b == nil
	case IRNull:
		_, ok := b.(IRNull)
		return ok
	case IRString:
		bv, ok := b.(IRString)
		return ok && av == bv
	case IRInt:
		bv, ok := b.(IRInt)
		return ok && av == bv
	case IRBool:
		bv, ok := b.(IRBool)
		return ok && av == bv
	case IRObject:
		bv, ok := b.(IRObject)
		return ok && reflect.ValueOf(av).UnsafePointer() == reflect.ValueOf(bv).UnsafePointer()
	case IRArray:
		bv, ok := b.(IRArray)
		if !ok || len(av) != len(bv) {
			return false
		}
		return len(av) == 0 || &av[0] == &bv[0]
	case *IRMap:
		bv, ok := b.(*IRMap)
		return ok && av == bv
	case *IRList:
		bv, ok := b.(*IRList)
		return ok && av == bv
	}
	return false
}

// containerID returns an identity token for non-empty containers.
// Empty containers cannot participate in cycles and report false.
func containerID(v IRValue) (uintptr, bool) {
	switch val := v.(type) {
	case IRObject:
		if len(val) == 0 {
			return 0, false
		}
		return reflect.ValueOf(val).Pointer(), true
	case IRArray:
		if len(val) == 0 {
			return 0, false
		}
		return reflect.ValueOf(val).Pointer(), true
	case *IRMap:
		if val.Len() == 0 {
			return 0, false
		}
		return reflect.ValueOf(val).Pointer(), true
	case *IRList:
		if val.Len() == 0 {
			return 0, false
		}
		return reflect.ValueOf(val).Pointer(), true
	}
	return 0, false
}

// Equal reports whether a and b are structurally equal.
//
// Containers of different families (IRObject vs *IRMap) are never equal.
// Go nil and IRNull are equal. Cyclic graphs are supported: a pair of
// containers already under comparison is assumed equal.
func Equal(a, b IRValue) bool {
	return equal(a, b, make(map[[2]uintptr]bool))
}

func equal(a, b IRValue, seen map[[2]uintptr]bool) bool {
	if IsAbsent(a) || IsAbsent(b) {
		return IsAbsent(a) && IsAbsent(b)
	}

	ida, okA := containerID(a)
	idb, okB := containerID(b)
	if okA && okB {
		pair := [2]uintptr{ida, idb}
		if seen[pair] {
			return true
		}
		seen[pair] = true
	}

	switch av := a.(type) {
	case IRObject:
		bv, ok := b.(IRObject)
		if !ok || len(av) != len(bv) {
			return false
		}
		for k, x := range av {
			y, ok := bv[k]
			if !ok || !equal(x, y, seen) {
				return false
			}
		}
		return true
	case IRArray:
		bv, ok := b.(IRArray)
		if !ok || len(av) != len(bv) {
			return false
		}
		for i := range av {
			if !equal(av[i], bv[i], seen) {
				return false
			}
		}
		return true
	case *IRMap:
		bv, ok := b.(*IRMap)
		if !ok || av.Len() != bv.Len() {
			return false
		}
		for _, k := range av.Keys() {
			x, _ := av.Get(k)
			y, ok := bv.Get(k)
			if !ok || !equal(x, y, seen) {
				return false
			}
		}
		return true
	case *IRList:
		bv, ok := b.(*IRList)
		if !ok || av.Len() != bv.Len() {
			return false
		}
		for i := 0; i < av.Len(); i++ {
			if !equal(av.Get(i), bv.Get(i), seen) {
				return false
			}
		}
		return true
	default:
		return Same(a, b)
	}
}

// KeyString renders an id as the string key used for store partitions and
// cache slots. Only IRString and IRInt are valid ids.
//
// IRInt(1) and IRString("1") render to the same key, matching how ids are
// keyed once a store has been serialized to JSON.
func KeyString(v IRValue) (string, bool) {
	switch val := v.(type) {
	case IRString:
		return string(val), true
	case IRInt:
		return strconv.FormatInt(int64(val), 10), true
	}
	return "", false
}

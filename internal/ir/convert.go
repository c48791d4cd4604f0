package ir

import (
	"encoding/json"
	"fmt"
	"math"
	"strings"
)

// FromAny converts a decoded Go value (as produced by encoding/json with
// UseNumber, gopkg.in/yaml.v3 or cue.Value.Decode) to an IRValue.
//
// Integral float64 values are accepted and become IRInt; any other float
// is rejected.
func FromAny(v any) (IRValue, error) {
	switch val := v.(type) {
	case nil:
		return IRNull{}, nil
	case IRValue:
		return val, nil
	case bool:
		return IRBool(val), nil
	case string:
		return IRString(val), nil
	case int:
		return IRInt(val), nil
	case int64:
		return IRInt(val), nil
	case int32:
		return IRInt(val), nil
	case uint64:
		if val > math.MaxInt64 {
			return nil, fmt.Errorf("number out of int64 range: %d", val)
		}
		return IRInt(val), nil
	case float64:
		if val != math.Trunc(val) || math.IsInf(val, 0) {
			return nil, fmt.Errorf("floats are forbidden in IR: %v", val)
		}
		return IRInt(int64(val)), nil
	case json.Number:
		s := string(val)
		if strings.ContainsAny(s, ".eE") {
			return nil, fmt.Errorf("floats are forbidden in IR: %s", val)
		}
		n, err := val.Int64()
		if err != nil {
			return nil, fmt.Errorf("number out of int64 range: %s", val)
		}
		return IRInt(n), nil
	case []any:
		arr := make(IRArray, len(val))
		for i, elem := range val {
			irElem, err := FromAny(elem)
			if err != nil {
				return nil, fmt.Errorf("array[%d]: %w", i, err)
			}
			arr[i] = irElem
		}
		return arr, nil
	case map[string]any:
		obj := make(IRObject, len(val))
		for k, elem := range val {
			irElem, err := FromAny(elem)
			if err != nil {
				return nil, fmt.Errorf("object[%q]: %w", k, err)
			}
			obj[k] = irElem
		}
		return obj, nil
	default:
		return nil, fmt.Errorf("unsupported type: %T", v)
	}
}

// MustFromAny is like FromAny but panics on error.
// Use only in tests or when inputs are known to be valid.
func MustFromAny(v any) IRValue {
	out, err := FromAny(v)
	if err != nil {
		panic(err)
	}
	return out
}

// Freeze deep-converts plain containers into persistent ones.
// Persistent containers already in v are kept as they are. v must be acyclic.
func Freeze(v IRValue) IRValue {
	switch val := v.(type) {
	case IRObject:
		pairs := make([]IRPair, 0, len(val))
		for _, k := range val.SortedKeys() {
			pairs = append(pairs, O(k, Freeze(val[k])))
		}
		return NewIRMap(pairs...)
	case IRArray:
		items := make([]IRValue, len(val))
		for i, elem := range val {
			items[i] = Freeze(elem)
		}
		return NewIRList(items...)
	default:
		return v
	}
}

// Thaw deep-converts persistent containers into plain ones. v must be acyclic.
func Thaw(v IRValue) IRValue {
	switch val := v.(type) {
	case *IRMap:
		obj := make(IRObject, val.Len())
		for _, k := range val.Keys() {
			elem, _ := val.Get(k)
			obj[k] = Thaw(elem)
		}
		return obj
	case *IRList:
		arr := make(IRArray, val.Len())
		for i := range arr {
			arr[i] = Thaw(val.Get(i))
		}
		return arr
	case IRObject:
		obj := make(IRObject, len(val))
		for k, elem := range val {
			obj[k] = Thaw(elem)
		}
		return obj
	case IRArray:
		arr := make(IRArray, len(val))
		for i, elem := range val {
			arr[i] = Thaw(elem)
		}
		return arr
	default:
		return v
	}
}

package ir

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"

	"golang.org/x/text/unicode/norm"
)

// ErrCyclicValue is returned by MarshalCanonical when a container is reached
// again while it is still being encoded and no cycle marker is configured.
var ErrCyclicValue = errors.New("cyclic value cannot be encoded as canonical JSON")

// CanonicalOptions configures MarshalCanonicalWith.
type CanonicalOptions struct {
	// CycleMarker, when non-nil, is encoded in place of a container that is
	// already on the current encoding path. Plain denormalization of a
	// cyclic schema produces such graphs.
	CycleMarker IRValue
}

// MarshalCanonical produces RFC 8785 canonical JSON.
//
// Key differences from standard json.Marshal:
// 1. Object keys sorted by UTF-16 code units (not UTF-8 bytes)
// 2. No HTML escaping (< > & are NOT escaped)
// 3. Strings are NFC normalized
// 4. No floats (returns error)
// 5. Persistent containers encode exactly like their plain counterparts
func MarshalCanonical(v any) ([]byte, error) {
	return MarshalCanonicalWith(v, CanonicalOptions{})
}

// MarshalCanonicalWith is MarshalCanonical with explicit options.
func MarshalCanonicalWith(v any, opts CanonicalOptions) ([]byte, error) {
	irv, err := FromAny(v)
	if err != nil {
		return nil, err
	}
	enc := &canonicalEncoder{opts: opts, active: make(map[uintptr]bool)}
	if err := enc.encode(irv); err != nil {
		return nil, err
	}
	return enc.buf.Bytes(), nil
}

type canonicalEncoder struct {
	buf    bytes.Buffer
	opts   CanonicalOptions
	active map[uintptr]bool
}

func (e *canonicalEncoder) encode(v IRValue) error {
	if id, ok := containerID(v); ok {
		if e.active[id] {
			if e.opts.CycleMarker == nil {
				return ErrCyclicValue
			}
			return e.encode(e.opts.CycleMarker)
		}
		e.active[id] = true
		defer delete(e.active, id)
	}

	switch val := v.(type) {
	case nil, IRNull:
		e.buf.WriteString("null")
	case IRString:
		return e.encodeString(string(val))
	case IRInt:
		e.buf.WriteString(strconv.FormatInt(int64(val), 10))
	case IRBool:
		e.buf.WriteString(strconv.FormatBool(bool(val)))
	case IRArray:
		return e.encodeArray(len(val), func(i int) IRValue { return val[i] })
	case *IRList:
		return e.encodeArray(val.Len(), val.Get)
	case IRObject:
		return e.encodeObject(val.SortedKeys(), func(k string) IRValue { return val[k] })
	case *IRMap:
		return e.encodeObject(val.Keys(), func(k string) IRValue {
			elem, _ := val.Get(k)
			return elem
		})
	default:
		return fmt.Errorf("unsupported type for canonical JSON: %T", v)
	}
	return nil
}

func (e *canonicalEncoder) encodeArray(n int, at func(int) IRValue) error {
	e.buf.WriteByte('[')
	for i := 0; i < n; i++ {
		if i > 0 {
			e.buf.WriteByte(',')
		}
		if err := e.encode(at(i)); err != nil {
			return fmt.Errorf("array[%d]: %w", i, err)
		}
	}
	e.buf.WriteByte(']')
	return nil
}

func (e *canonicalEncoder) encodeObject(keys []string, at func(string) IRValue) error {
	e.buf.WriteByte('{')
	for i, k := range keys {
		if i > 0 {
			e.buf.WriteByte(',')
		}
		if err := e.encodeString(k); err != nil {
			return fmt.Errorf("key %q: %w", k, err)
		}
		e.buf.WriteByte(':')
		if err := e.encode(at(k)); err != nil {
			return fmt.Errorf("value for key %q: %w", k, err)
		}
	}
	e.buf.WriteByte('}')
	return nil
}

// encodeString writes a canonical JSON string with NFC normalization.
// Only control characters, backslash and quote are escaped.
func (e *canonicalEncoder) encodeString(s string) error {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(norm.NFC.String(s)); err != nil {
		return err
	}
	out := bytes.TrimSuffix(buf.Bytes(), []byte("\n"))
	e.buf.Write(unescapeLineSeparators(out))
	return nil
}

// unescapeLineSeparators undoes encoding/json's \u2028 and \u2029 escapes,
// which RFC 8785 forbids. Escape pairs are consumed as a unit so an escaped
// backslash followed by "u2028" text is left alone.
func unescapeLineSeparators(data []byte) []byte {
	if !bytes.Contains(data, []byte(`\u202`)) {
		return data
	}

	out := make([]byte, 0, len(data))
	for i := 0; i < len(data); i++ {
		if data[i] != '\\' || i+1 >= len(data) {
			out = append(out, data[i])
			continue
		}
		if i+6 <= len(data) && string(data[i+1:i+5]) == "u202" && (data[i+5] == '8' || data[i+5] == '9') {
			if data[i+5] == '8' {
				out = append(out, "\u2028"...)
			} else {
				out = append(out, "\u2029"...)
			}
			i += 5
			continue
		}
		out = append(out, data[i], data[i+1])
		i++
	}
	return out
}
